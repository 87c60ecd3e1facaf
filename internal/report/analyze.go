package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/koyomi-dev/koyomi/internal/event"
	"github.com/koyomi-dev/koyomi/internal/ics"
)

// DateRange is the span covered by a calendar's events.
type DateRange struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	SpanDays int    `json:"span_days"`
}

// Stats summarizes one parsed calendar.
type Stats struct {
	Source      string         `json:"source"`
	Events      int            `json:"events"`
	Range       *DateRange     `json:"range,omitempty"`
	ByCategory  map[string]int `json:"by_category"`
	ByYear      map[int]int    `json:"by_year"`
	Diagnostics []string       `json:"diagnostics,omitempty"`
}

// Summarize computes statistics over a parsed set and its diagnostics.
func Summarize(set event.Set, diags []ics.Diagnostic) Stats {
	st := Stats{
		Source:     set.Name,
		Events:     len(set.Events),
		ByCategory: make(map[string]int),
		ByYear:     make(map[int]int),
	}
	for _, d := range diags {
		st.Diagnostics = append(st.Diagnostics, d.String())
	}

	var first, last event.Time
	for i := range set.Events {
		ev := &set.Events[i]
		cat := ev.Categories
		if cat == "" {
			cat = "uncategorized"
		}
		st.ByCategory[cat]++
		st.ByYear[ev.Start.At.Year()]++

		if first.IsZero() || ev.Start.Before(first) {
			first = ev.Start
		}
		if last.IsZero() || last.Before(ev.Start) {
			last = ev.Start
		}
	}
	if !first.IsZero() {
		st.Range = &DateRange{
			Start:    first.At.Format("2006-01-02"),
			End:      last.At.Format("2006-01-02"),
			SpanDays: int(last.At.Sub(first.At).Hours() / 24),
		}
	}
	return st
}

// FormatStats renders statistics in the requested style. StyleFull and
// StyleSummary share the human rendering; StyleJSON is machine-readable.
func FormatStats(st Stats, style Style) (string, error) {
	if style == StyleJSON {
		enc, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding stats: %w", err)
		}
		return string(enc) + "\n", nil
	}

	var out []string
	out = append(out, "=== calendar summary ===")
	out = append(out, "source: "+st.Source)
	out = append(out, fmt.Sprintf("events: %d", st.Events))
	if st.Range != nil {
		out = append(out, fmt.Sprintf("range: %s - %s (%d days)", st.Range.Start, st.Range.End, st.Range.SpanDays))
	}

	if len(st.ByCategory) > 0 {
		out = append(out, "", "=== by category ===")
		for _, k := range sortedKeys(st.ByCategory) {
			out = append(out, fmt.Sprintf("- %s: %d", k, st.ByCategory[k]))
		}
	}
	if len(st.ByYear) > 0 {
		out = append(out, "", "=== by year ===")
		years := make([]int, 0, len(st.ByYear))
		for y := range st.ByYear {
			years = append(years, y)
		}
		sort.Ints(years)
		for _, y := range years {
			out = append(out, fmt.Sprintf("- %d: %d", y, st.ByYear[y]))
		}
	}

	if len(st.Diagnostics) > 0 {
		out = append(out, "", "=== diagnostics ===")
		for _, d := range st.Diagnostics {
			out = append(out, "! "+d)
		}
	} else {
		out = append(out, "", "no diagnostics")
	}
	return strings.Join(out, "\n") + "\n", nil
}

type csvEvent struct {
	Date        string `csv:"date"`
	Summary     string `csv:"summary"`
	Description string `csv:"description"`
	Categories  string `csv:"categories"`
	UID         string `csv:"uid"`
}

// EventsCSV exports a set's events as CSV in file order, one row per event.
func EventsCSV(set event.Set) (string, error) {
	rows := make([]csvEvent, 0, len(set.Events))
	for i := range set.Events {
		ev := &set.Events[i]
		rows = append(rows, csvEvent{
			Date:        displayDate(ev),
			Summary:     ev.Summary,
			Description: ev.Description,
			Categories:  ev.Categories,
			UID:         ev.UID,
		})
	}
	out, err := gocsv.MarshalString(&rows)
	if err != nil {
		return "", fmt.Errorf("encoding events csv: %w", err)
	}
	return out, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
