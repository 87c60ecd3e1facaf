// Package event holds the canonical in-memory representation of calendar
// events extracted from ICS text. Events are constructed once by the parser
// and read-only afterwards.
package event

import "time"

// Time is a calendar instant that is either a whole day (DATE value) or an
// exact moment (DATE-TIME value). The zero value means the property was
// absent.
type Time struct {
	At       time.Time
	DateOnly bool
}

// Date returns a date-only Time for the given civil date.
func Date(year int, month time.Month, day int) Time {
	return Time{At: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), DateOnly: true}
}

// At returns a date-time Time for the given instant.
func At(t time.Time) Time {
	return Time{At: t}
}

// IsZero reports whether the property was absent.
func (t Time) IsZero() bool {
	return t.At.IsZero()
}

// Equal reports whether two values denote the same instant with the same
// precision. A date-only 2025-01-01 and a timed 2025-01-01T00:00:00 are NOT
// equal: the difference is visible on the wire and must show up in a diff.
func (t Time) Equal(o Time) bool {
	return t.DateOnly == o.DateOnly && t.At.Equal(o.At)
}

// Before reports whether t denotes an earlier instant than o. Precision is
// ignored; only the instant matters for ordering.
func (t Time) Before(o Time) bool {
	return t.At.Before(o.At)
}

// String renders the value the way reports display it: YYYY-MM-DD for
// date-only values, RFC 3339 for timed ones, empty for absent ones.
func (t Time) String() string {
	if t.IsZero() {
		return ""
	}
	if t.DateOnly {
		return t.At.Format("2006-01-02")
	}
	return t.At.Format(time.RFC3339)
}

// Event is one calendar occurrence. End is exclusive: a single-day holiday
// on 2025-01-01 ends on 2025-01-02.
type Event struct {
	UID         string
	Summary     string
	Description string
	Categories  string
	Start       Time
	End         Time
}

// Duration returns the event's span length, or zero when either side of the
// span is absent.
func (e *Event) Duration() time.Duration {
	if e.Start.IsZero() || e.End.IsZero() {
		return 0
	}
	return e.End.At.Sub(e.Start.At)
}

// Set is the ordered collection of events parsed from one source. Insertion
// order follows file order; it carries no meaning beyond tie-breaking during
// matching.
type Set struct {
	// Name identifies the source: a file path, a remote calendar name.
	Name   string
	Events []Event
}

// Len returns the number of events in the set.
func (s *Set) Len() int {
	return len(s.Events)
}
