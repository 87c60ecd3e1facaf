// Package ics reads and writes iCalendar text: parsing arbitrary calendar
// files into event sets with per-event diagnostics, and generating AWS SSM
// Change Calendar compatible documents.
package ics

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/koyomi-dev/koyomi/internal/event"
)

// ErrNotCalendar marks a fatal container error: the input has no usable
// VCALENDAR structure (missing or unbalanced BEGIN/END markers). No partial
// result is returned for this class of error.
var ErrNotCalendar = errors.New("not a parseable iCalendar stream")

// Diagnostic records a non-fatal defect in a single event block. The event
// is excluded from the returned set; parsing continues.
type Diagnostic struct {
	// Index is the zero-based position of the VEVENT in the file.
	Index int
	// UID of the defective event, when the block carried one.
	UID string
	// Reason describes the defect.
	Reason string
}

func (d Diagnostic) String() string {
	if d.UID != "" {
		return fmt.Sprintf("event #%d (%s): %s", d.Index, d.UID, d.Reason)
	}
	return fmt.Sprintf("event #%d: %s", d.Index, d.Reason)
}

// Parse reads one VCALENDAR from r and extracts its events in file order.
// Events missing a DTSTART or SUMMARY, or carrying an inverted time span,
// are recorded as diagnostics and excluded rather than aborting the parse.
// The returned error is non-nil only for container-level failures, in which
// case the set and diagnostics are empty.
func Parse(name string, r io.Reader) (event.Set, []Diagnostic, error) {
	set := event.Set{Name: name}

	cal, err := ical.NewDecoder(r).Decode()
	if err != nil {
		return set, nil, fmt.Errorf("%w: %s: %v", ErrNotCalendar, name, err)
	}

	var diags []Diagnostic
	idx := -1
	for _, child := range cal.Children {
		if child.Name != ical.CompEvent {
			continue
		}
		idx++
		ev, reason := decodeEvent(child)
		if reason != "" {
			diags = append(diags, Diagnostic{Index: idx, UID: propValue(child, ical.PropUID), Reason: reason})
			continue
		}
		set.Events = append(set.Events, ev)
	}
	return set, diags, nil
}

// decodeEvent extracts one VEVENT. A non-empty reason means the block is
// defective and must be skipped.
func decodeEvent(comp *ical.Component) (event.Event, string) {
	ev := event.Event{
		UID:         propValue(comp, ical.PropUID),
		Summary:     propValue(comp, ical.PropSummary),
		Description: propValue(comp, ical.PropDescription),
		Categories:  propValue(comp, ical.PropCategories),
	}

	if ev.Summary == "" {
		return event.Event{}, "missing SUMMARY"
	}

	start, err := propTime(comp, ical.PropDateTimeStart)
	if err != nil {
		return event.Event{}, fmt.Sprintf("bad DTSTART: %v", err)
	}
	if start.IsZero() {
		return event.Event{}, "missing DTSTART"
	}
	ev.Start = start

	end, err := propTime(comp, ical.PropDateTimeEnd)
	if err != nil {
		return event.Event{}, fmt.Sprintf("bad DTEND: %v", err)
	}
	ev.End = end

	// Inverted spans are a defect, never silently swapped.
	if !end.IsZero() && end.Before(start) {
		return event.Event{}, "DTEND precedes DTSTART"
	}

	return ev, ""
}

func propValue(comp *ical.Component, name string) string {
	p := comp.Props.Get(name)
	if p == nil {
		return ""
	}
	return p.Value
}

func propTime(comp *ical.Component, name string) (event.Time, error) {
	p := comp.Props.Get(name)
	if p == nil {
		return event.Time{}, nil
	}
	t, err := p.DateTime(time.UTC)
	if err != nil {
		return event.Time{}, err
	}
	dateOnly := p.Params.Get("VALUE") == "DATE" || len(p.Value) == 8
	return event.Time{At: t, DateOnly: dateOnly}, nil
}
