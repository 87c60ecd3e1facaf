package diff

import (
	"sort"

	"github.com/koyomi-dev/koyomi/internal/event"
)

// Record is one classified comparison outcome. Exactly one of Old/New is
// nil for added and deleted records; both are set otherwise.
type Record struct {
	Kind   Kind          `json:"kind"`
	Stage  Stage         `json:"stage,omitempty"`
	Old    *event.Event  `json:"-"`
	New    *event.Event  `json:"-"`
	Fields []FieldChange `json:"changes,omitempty"`
}

// Display returns the side used when showing the record: the new side when
// present, otherwise the old one.
func (r *Record) Display() *event.Event {
	if r.New != nil {
		return r.New
	}
	return r.Old
}

// sortStart is the earlier of the two sides' start times; the single side's
// start for added/deleted records.
func (r *Record) sortStart() event.Time {
	switch {
	case r.Old == nil:
		return r.New.Start
	case r.New == nil:
		return r.Old.Start
	case r.New.Start.Before(r.Old.Start):
		return r.New.Start
	default:
		return r.Old.Start
	}
}

// SetInfo identifies one compared set: source name plus event count.
type SetInfo struct {
	Name   string `json:"name"`
	Events int    `json:"events"`
}

// Result is the final artifact of one comparison. It is not mutated after
// construction.
type Result struct {
	Old     SetInfo      `json:"old"`
	New     SetInfo      `json:"new"`
	Records []Record     `json:"records"`
	Counts  map[Kind]int `json:"counts"`
}

// Changed reports whether any record is something other than unchanged.
func (r *Result) Changed() bool {
	for k, n := range r.Counts {
		if k != KindUnchanged && n > 0 {
			return true
		}
	}
	return false
}

// Aggregate classifies every matched pair, maps leftovers to added/deleted
// records, sorts everything by the earlier of the two sides' start times
// (ties broken by UID), and counts records per kind in a single pass over
// the sorted list.
func Aggregate(a, b event.Set, m MatchResult) Result {
	res := Result{
		Old:    SetInfo{Name: a.Name, Events: len(a.Events)},
		New:    SetInfo{Name: b.Name, Events: len(b.Events)},
		Counts: make(map[Kind]int),
	}

	for _, ev := range m.LeftoverA {
		res.Records = append(res.Records, Record{Kind: KindDeleted, Old: ev})
	}
	for _, ev := range m.LeftoverB {
		res.Records = append(res.Records, Record{Kind: KindAdded, New: ev})
	}
	for _, p := range m.Pairs {
		kind, changes := Classify(p.A, p.B)
		res.Records = append(res.Records, Record{
			Kind:   kind,
			Stage:  p.Stage,
			Old:    p.A,
			New:    p.B,
			Fields: changes,
		})
	}

	sort.SliceStable(res.Records, func(i, j int) bool {
		si, sj := res.Records[i].sortStart(), res.Records[j].sortStart()
		if !si.At.Equal(sj.At) {
			return si.At.Before(sj.At)
		}
		return res.Records[i].Display().UID < res.Records[j].Display().UID
	})

	for i := range res.Records {
		res.Counts[res.Records[i].Kind]++
	}
	return res
}

// Compare runs the full pipeline over two sets: match, classify, aggregate.
func Compare(a, b event.Set) Result {
	return Aggregate(a, b, Match(a, b))
}
