package diff

import (
	"github.com/koyomi-dev/koyomi/internal/event"
)

// Kind is the change category of a matched or unmatched event pair.
type Kind string

const (
	KindAdded           Kind = "added"
	KindDeleted         Kind = "deleted"
	KindModified        Kind = "modified"
	KindMoved           Kind = "moved"
	KindDurationChanged Kind = "duration-changed"
	KindUnchanged       Kind = "unchanged"
)

// Kinds lists every category in display order.
var Kinds = []Kind{KindAdded, KindDeleted, KindModified, KindMoved, KindDurationChanged, KindUnchanged}

// FieldChange records one property-level difference between the two sides
// of a matched pair.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// Classify decides the change category for a pair with both sides present.
// Priority order: a changed span length wins over a pure time shift, which
// wins over text-only edits. A duration change alters how long a freeze
// lasts and must never be masked by reporting it merely as "moved".
func Classify(a, b *event.Event) (Kind, []FieldChange) {
	changes := fieldChanges(a, b)

	timeChanged := !a.Start.Equal(b.Start) || !a.End.Equal(b.End)
	if timeChanged {
		if !a.Start.IsZero() && !a.End.IsZero() && !b.Start.IsZero() && !b.End.IsZero() &&
			a.Duration() != b.Duration() {
			return KindDurationChanged, changes
		}
		return KindMoved, changes
	}
	if len(changes) > 0 {
		return KindModified, changes
	}
	return KindUnchanged, nil
}

// fieldChanges lists every compared property that differs, in a fixed order.
func fieldChanges(a, b *event.Event) []FieldChange {
	var out []FieldChange
	if !a.Start.Equal(b.Start) {
		out = append(out, FieldChange{Field: "dtstart", Old: a.Start.String(), New: b.Start.String()})
	}
	if !a.End.Equal(b.End) {
		out = append(out, FieldChange{Field: "dtend", Old: a.End.String(), New: b.End.String()})
	}
	if a.Summary != b.Summary {
		out = append(out, FieldChange{Field: "summary", Old: a.Summary, New: b.Summary})
	}
	if a.Description != b.Description {
		out = append(out, FieldChange{Field: "description", Old: a.Description, New: b.Description})
	}
	if a.Categories != b.Categories {
		out = append(out, FieldChange{Field: "categories", Old: a.Categories, New: b.Categories})
	}
	return out
}
