// Package report renders comparison results and calendar summaries as
// human-readable, colorized, or machine-readable text.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/koyomi-dev/koyomi/internal/diff"
	"github.com/koyomi-dev/koyomi/internal/event"
)

// Style selects the rendering mode. It is configuration, not separate
// logic paths: one formatter handles all of them.
type Style string

const (
	// StyleSummary prints file identities and per-kind counts only.
	StyleSummary Style = "summary"
	// StyleFull prints the summary plus every changed record with its
	// field-level differences, in date order.
	StyleFull Style = "full"
	// StyleJSON prints a machine-parseable serialization.
	StyleJSON Style = "json"
)

// Options controls formatting. Color never changes the underlying text
// content, it only wraps it in ANSI escapes.
type Options struct {
	Style Style
	Color bool
}

const (
	ansiReset   = "\033[0m"
	ansiBold    = "\033[1m"
	ansiRed     = "\033[31m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	ansiBlue    = "\033[34m"
	ansiMagenta = "\033[35m"
)

var kindSymbols = map[diff.Kind]string{
	diff.KindAdded:           "+",
	diff.KindDeleted:         "-",
	diff.KindModified:        "~",
	diff.KindMoved:           "=",
	diff.KindDurationChanged: "Δ",
}

var kindColors = map[diff.Kind]string{
	diff.KindAdded:           ansiGreen,
	diff.KindDeleted:         ansiRed,
	diff.KindModified:        ansiYellow,
	diff.KindMoved:           ansiBlue,
	diff.KindDurationChanged: ansiMagenta,
}

var kindLabels = map[diff.Kind]string{
	diff.KindAdded:           "added",
	diff.KindDeleted:         "deleted",
	diff.KindModified:        "modified",
	diff.KindMoved:           "moved",
	diff.KindDurationChanged: "duration changed",
}

// Format renders a comparison result according to opts.
func Format(res diff.Result, opts Options) (string, error) {
	switch opts.Style {
	case StyleJSON:
		return formatJSON(res)
	case StyleSummary:
		return formatText(res, opts.Color, false), nil
	case StyleFull, "":
		return formatText(res, opts.Color, true), nil
	default:
		return "", fmt.Errorf("unknown report style %q", opts.Style)
	}
}

func formatText(res diff.Result, color, detailed bool) string {
	p := painter{enabled: color}
	var out []string

	out = append(out, p.wrap(ansiBold, "=== calendar event diff ==="))
	out = append(out, fmt.Sprintf("old: %s (%d events)", res.Old.Name, res.Old.Events))
	out = append(out, fmt.Sprintf("new: %s (%d events)", res.New.Name, res.New.Events))

	out = append(out, "")
	out = append(out, p.wrap(ansiBold, "=== change summary ==="))
	for _, k := range diff.Kinds {
		if k == diff.KindUnchanged {
			continue
		}
		line := fmt.Sprintf("%s %s: %d events", kindSymbols[k], kindLabels[k], res.Counts[k])
		out = append(out, p.wrap(kindColors[k], line))
	}

	if !res.Changed() {
		out = append(out, "")
		out = append(out, "no differences between calendars")
		return strings.Join(out, "\n") + "\n"
	}

	if detailed {
		out = append(out, "")
		out = append(out, p.wrap(ansiBold, "=== details (by date) ==="))
		for i := range res.Records {
			rec := &res.Records[i]
			if rec.Kind == diff.KindUnchanged {
				continue
			}
			out = append(out, "")
			out = append(out, p.recordLines(rec)...)
		}
	}
	return strings.Join(out, "\n") + "\n"
}

type painter struct {
	enabled bool
}

func (p painter) wrap(code, s string) string {
	if !p.enabled || code == "" {
		return s
	}
	return code + s + ansiReset
}

func (p painter) recordLines(rec *diff.Record) []string {
	ev := rec.Display()
	head := fmt.Sprintf("%s [%s] %s %s",
		kindSymbols[rec.Kind], strings.ToUpper(string(rec.Kind)), displayDate(ev), ev.Summary)
	lines := []string{p.wrap(kindColors[rec.Kind], head)}

	if ev.UID != "" {
		lines = append(lines, "  UID: "+ev.UID)
	}
	switch rec.Kind {
	case diff.KindAdded, diff.KindDeleted:
		lines = append(lines, "  period: "+displayPeriod(ev))
		if ev.Description != "" {
			lines = append(lines, "  description: "+ev.Description)
		}
	default:
		for _, fc := range rec.Fields {
			lines = append(lines, "  - "+fc.Field+": "+p.inlineDiff(fc))
		}
	}
	return lines
}

// inlineDiff renders one field change in the old → new form. With color
// enabled, the character-level differences inside text fields are
// highlighted; the text itself stays identical to the uncolored output.
// Time fields are colored whole, a partial highlight inside a timestamp
// reads badly.
func (p painter) inlineDiff(fc diff.FieldChange) string {
	if !p.enabled {
		return fc.Old + " → " + fc.New
	}
	if fc.Field == "dtstart" || fc.Field == "dtend" {
		return p.wrap(ansiRed, fc.Old) + " → " + p.wrap(ansiGreen, fc.New)
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(fc.Old, fc.New, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var oldSide, newSide strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			oldSide.WriteString(d.Text)
			newSide.WriteString(d.Text)
		case diffmatchpatch.DiffDelete:
			oldSide.WriteString(p.wrap(ansiRed, d.Text))
		case diffmatchpatch.DiffInsert:
			newSide.WriteString(p.wrap(ansiGreen, d.Text))
		}
	}
	return oldSide.String() + " → " + newSide.String()
}

func displayDate(ev *event.Event) string {
	if ev.Start.IsZero() {
		return "N/A"
	}
	return ev.Start.At.Format("2006-01-02")
}

func displayPeriod(ev *event.Event) string {
	if ev.Start.IsZero() {
		return "unknown"
	}
	if ev.End.IsZero() {
		return ev.Start.String()
	}
	return ev.Start.String() + " - " + ev.End.String()
}

type jsonEvent struct {
	UID         string `json:"uid,omitempty"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Categories  string `json:"categories,omitempty"`
	Start       string `json:"start"`
	End         string `json:"end,omitempty"`
}

type jsonRecord struct {
	Kind    string             `json:"kind"`
	Stage   string             `json:"stage,omitempty"`
	Old     *jsonEvent         `json:"old,omitempty"`
	New     *jsonEvent         `json:"new,omitempty"`
	Changes []diff.FieldChange `json:"changes,omitempty"`
}

type jsonResult struct {
	Old     diff.SetInfo   `json:"old"`
	New     diff.SetInfo   `json:"new"`
	Summary map[string]int `json:"summary"`
	Records []jsonRecord   `json:"records"`
}

func formatJSON(res diff.Result) (string, error) {
	out := jsonResult{
		Old:     res.Old,
		New:     res.New,
		Summary: make(map[string]int, len(res.Counts)),
	}
	for k, n := range res.Counts {
		out.Summary[string(k)] = n
	}
	for i := range res.Records {
		rec := &res.Records[i]
		jr := jsonRecord{
			Kind:    string(rec.Kind),
			Stage:   string(rec.Stage),
			Old:     toJSONEvent(rec.Old),
			New:     toJSONEvent(rec.New),
			Changes: rec.Fields,
		}
		out.Records = append(out.Records, jr)
	}
	enc, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding diff result: %w", err)
	}
	return string(enc) + "\n", nil
}

func toJSONEvent(ev *event.Event) *jsonEvent {
	if ev == nil {
		return nil
	}
	return &jsonEvent{
		UID:         ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Categories:  ev.Categories,
		Start:       ev.Start.String(),
		End:         ev.End.String(),
	}
}
