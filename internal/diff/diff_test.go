package diff_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/koyomi-dev/koyomi/internal/diff"
	"github.com/koyomi-dev/koyomi/internal/event"
)

func day(y int, m time.Month, d int) event.Time {
	return event.Date(y, m, d)
}

func holidayEvent(uid, summary string, y int, m time.Month, d int) event.Event {
	return event.Event{
		UID:     uid,
		Summary: summary,
		Start:   day(y, m, d),
		End:     day(y, m, d+1),
	}
}

func set(name string, events ...event.Event) event.Set {
	return event.Set{Name: name, Events: events}
}

func TestCompareIdenticalSets(t *testing.T) {
	a := set("a.ics",
		holidayEvent("u1", "元日", 2025, time.January, 1),
		holidayEvent("u2", "成人の日", 2025, time.January, 13),
	)
	b := set("b.ics",
		holidayEvent("u1", "元日", 2025, time.January, 1),
		holidayEvent("u2", "成人の日", 2025, time.January, 13),
	)

	res := diff.Compare(a, b)
	if res.Changed() {
		t.Fatalf("identical sets reported as changed: %+v", res.Counts)
	}
	if res.Counts[diff.KindUnchanged] != 2 {
		t.Errorf("unchanged count = %d, want 2", res.Counts[diff.KindUnchanged])
	}
	if res.Old.Name != "a.ics" || res.New.Name != "b.ics" {
		t.Errorf("set identities lost: old=%q new=%q", res.Old.Name, res.New.Name)
	}
}

func TestCompareAddedAndDeleted(t *testing.T) {
	a := set("old",
		holidayEvent("u1", "元日", 2025, time.January, 1),
		holidayEvent("u2", "成人の日", 2025, time.January, 13),
	)
	b := set("new",
		holidayEvent("u1", "元日", 2025, time.January, 1),
		holidayEvent("u3", "建国記念の日", 2025, time.February, 11),
	)

	res := diff.Compare(a, b)
	if got := res.Counts[diff.KindAdded]; got != 1 {
		t.Errorf("added = %d, want 1", got)
	}
	if got := res.Counts[diff.KindDeleted]; got != 1 {
		t.Errorf("deleted = %d, want 1", got)
	}
	if got := res.Counts[diff.KindUnchanged]; got != 1 {
		t.Errorf("unchanged = %d, want 1", got)
	}

	for _, rec := range res.Records {
		switch rec.Kind {
		case diff.KindAdded:
			if rec.Old != nil || rec.New == nil || rec.New.UID != "u3" {
				t.Errorf("added record malformed: %+v", rec)
			}
		case diff.KindDeleted:
			if rec.New != nil || rec.Old == nil || rec.Old.UID != "u2" {
				t.Errorf("deleted record malformed: %+v", rec)
			}
		}
	}
}

func TestClassifyMovedKeepsDuration(t *testing.T) {
	a := holidayEvent("u1", "海の日", 2025, time.July, 21)
	b := holidayEvent("u1", "海の日", 2025, time.July, 22)

	kind, changes := diff.Classify(&a, &b)
	if kind != diff.KindMoved {
		t.Fatalf("kind = %s, want %s", kind, diff.KindMoved)
	}
	// Both endpoints shifted, so both must be reported.
	var fields []string
	for _, c := range changes {
		fields = append(fields, c.Field)
	}
	if !reflect.DeepEqual(fields, []string{"dtstart", "dtend"}) {
		t.Errorf("changed fields = %v, want [dtstart dtend]", fields)
	}
}

func TestClassifyDurationChangeWinsOverMoved(t *testing.T) {
	a := holidayEvent("u1", "夏季メンテナンス", 2025, time.August, 1)
	b := a
	b.End = day(2025, time.August, 4) // one day grew to three

	kind, _ := diff.Classify(&a, &b)
	if kind != diff.KindDurationChanged {
		t.Fatalf("kind = %s, want %s", kind, diff.KindDurationChanged)
	}
}

func TestClassifyOpenEndedSpanIsMovedNotDurationChanged(t *testing.T) {
	a := event.Event{UID: "u1", Summary: "リリース凍結", Start: day(2025, time.May, 1)}
	b := event.Event{UID: "u1", Summary: "リリース凍結", Start: day(2025, time.May, 2)}

	// Without both endpoints on both sides the span length is unknown, so
	// the change can only be reported as a move.
	kind, _ := diff.Classify(&a, &b)
	if kind != diff.KindMoved {
		t.Fatalf("kind = %s, want %s", kind, diff.KindMoved)
	}
}

func TestClassifyTextOnlyEdit(t *testing.T) {
	a := holidayEvent("u1", "体育の日", 2025, time.October, 13)
	b := a
	b.Summary = "スポーツの日"

	kind, changes := diff.Classify(&a, &b)
	if kind != diff.KindModified {
		t.Fatalf("kind = %s, want %s", kind, diff.KindModified)
	}
	if len(changes) != 1 || changes[0].Field != "summary" {
		t.Fatalf("changes = %+v, want single summary change", changes)
	}
	if changes[0].Old != "体育の日" || changes[0].New != "スポーツの日" {
		t.Errorf("summary change values wrong: %+v", changes[0])
	}
}

func TestClassifyDatePrecisionChangeIsVisible(t *testing.T) {
	a := event.Event{UID: "u1", Summary: "元日", Start: day(2025, time.January, 1), End: day(2025, time.January, 2)}
	b := event.Event{
		UID:     "u1",
		Summary: "元日",
		Start:   event.At(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)),
		End:     event.At(time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)),
	}

	// Same instants, different wire precision: still a reportable change.
	kind, changes := diff.Classify(&a, &b)
	if kind != diff.KindMoved {
		t.Fatalf("kind = %s, want %s", kind, diff.KindMoved)
	}
	if len(changes) != 2 {
		t.Errorf("changes = %+v, want dtstart and dtend", changes)
	}
}

func TestMatchCompositeKeyWhenUIDsDiffer(t *testing.T) {
	a := set("old", event.Event{UID: "old-uid", Summary: "元日", Start: day(2025, time.January, 1)})
	b := set("new", event.Event{UID: "new-uid", Summary: "元日", Start: day(2025, time.January, 1)})

	m := diff.Match(a, b)
	if len(m.Pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(m.Pairs))
	}
	if m.Pairs[0].Stage != diff.StageStartSummary {
		t.Errorf("stage = %s, want %s", m.Pairs[0].Stage, diff.StageStartSummary)
	}
	if len(m.LeftoverA) != 0 || len(m.LeftoverB) != 0 {
		t.Errorf("unexpected leftovers: %d/%d", len(m.LeftoverA), len(m.LeftoverB))
	}
}

func TestMatchDuplicateUIDsPairInFileOrder(t *testing.T) {
	a := set("old",
		event.Event{UID: "dup", Summary: "first-a", Start: day(2025, time.March, 1)},
		event.Event{UID: "dup", Summary: "second-a", Start: day(2025, time.March, 2)},
	)
	b := set("new",
		event.Event{UID: "dup", Summary: "first-b", Start: day(2025, time.March, 3)},
		event.Event{UID: "dup", Summary: "second-b", Start: day(2025, time.March, 4)},
	)

	m := diff.Match(a, b)
	if len(m.Pairs) != 2 {
		t.Fatalf("pairs = %d, want 2", len(m.Pairs))
	}
	if m.Pairs[0].A.Summary != "first-a" || m.Pairs[0].B.Summary != "first-b" {
		t.Errorf("first pair = %s/%s, want first-a/first-b", m.Pairs[0].A.Summary, m.Pairs[0].B.Summary)
	}
	if m.Pairs[1].A.Summary != "second-a" || m.Pairs[1].B.Summary != "second-b" {
		t.Errorf("second pair = %s/%s, want second-a/second-b", m.Pairs[1].A.Summary, m.Pairs[1].B.Summary)
	}
}

func TestMatchSurplusDuplicateFallsThrough(t *testing.T) {
	a := set("old",
		event.Event{UID: "dup", Summary: "one", Start: day(2025, time.March, 1)},
		event.Event{UID: "dup", Summary: "two", Start: day(2025, time.March, 2)},
	)
	b := set("new",
		event.Event{UID: "dup", Summary: "one", Start: day(2025, time.March, 1)},
	)

	m := diff.Match(a, b)
	if len(m.Pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(m.Pairs))
	}
	if len(m.LeftoverA) != 1 || m.LeftoverA[0].Summary != "two" {
		t.Fatalf("leftoverA = %+v, want the surplus duplicate", m.LeftoverA)
	}
}

func TestMatchEmptyUIDNeverKeys(t *testing.T) {
	a := set("old", event.Event{Summary: "no uid", Start: day(2025, time.June, 1)})
	b := set("new", event.Event{Summary: "also no uid", Start: day(2025, time.June, 2)})

	m := diff.Match(a, b)
	// Different (start, summary) keys too, so nothing can pair.
	if len(m.Pairs) != 0 {
		t.Fatalf("pairs = %d, want 0; empty UIDs must not match each other", len(m.Pairs))
	}
}

func TestCompareDeterministic(t *testing.T) {
	a := set("old",
		holidayEvent("u3", "春分の日", 2025, time.March, 20),
		holidayEvent("u1", "元日", 2025, time.January, 1),
		holidayEvent("u2", "成人の日", 2025, time.January, 13),
	)
	b := set("new",
		holidayEvent("u2", "成人の日", 2025, time.January, 14),
		holidayEvent("u4", "昭和の日", 2025, time.April, 29),
		holidayEvent("u1", "元日", 2025, time.January, 1),
	)

	first := diff.Compare(a, b)
	for i := 0; i < 5; i++ {
		if got := diff.Compare(a, b); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs from first run", i+1)
		}
	}
}

func TestCompareRecordConservation(t *testing.T) {
	a := set("old",
		holidayEvent("u1", "元日", 2025, time.January, 1),
		holidayEvent("u2", "成人の日", 2025, time.January, 13),
		holidayEvent("u3", "建国記念の日", 2025, time.February, 11),
	)
	b := set("new",
		holidayEvent("u1", "元日", 2025, time.January, 1),
		holidayEvent("u2", "成人の日", 2025, time.January, 14),
		holidayEvent("u9", "天皇誕生日", 2025, time.February, 23),
	)

	res := diff.Compare(a, b)

	// Every input event appears in exactly one record.
	sides := 0
	for _, rec := range res.Records {
		if rec.Old != nil {
			sides++
		}
		if rec.New != nil {
			sides++
		}
	}
	if want := len(a.Events) + len(b.Events); sides != want {
		t.Errorf("events accounted for = %d, want %d", sides, want)
	}

	total := 0
	for _, n := range res.Counts {
		total += n
	}
	if total != len(res.Records) {
		t.Errorf("counts sum to %d, records = %d", total, len(res.Records))
	}
}

func TestCompareRecordsSortedByDate(t *testing.T) {
	a := set("old",
		holidayEvent("u5", "こどもの日", 2025, time.May, 5),
		holidayEvent("u1", "元日", 2025, time.January, 1),
	)
	b := set("new",
		holidayEvent("u1", "元日", 2025, time.January, 1),
		holidayEvent("u3", "建国記念の日", 2025, time.February, 11),
		holidayEvent("u5", "こどもの日", 2025, time.May, 6),
	)

	res := diff.Compare(a, b)

	// Sorting uses the earlier of the two sides' start times.
	earliest := func(rec diff.Record) time.Time {
		switch {
		case rec.Old == nil:
			return rec.New.Start.At
		case rec.New == nil:
			return rec.Old.Start.At
		case rec.New.Start.Before(rec.Old.Start):
			return rec.New.Start.At
		default:
			return rec.Old.Start.At
		}
	}
	for i := 1; i < len(res.Records); i++ {
		if earliest(res.Records[i-1]).After(earliest(res.Records[i])) {
			t.Errorf("records out of order at index %d", i)
		}
	}
	// The moved こどもの日 record sorts at its earlier (old) date, so it
	// still comes last.
	last := res.Records[len(res.Records)-1]
	if last.Display().UID != "u5" {
		t.Errorf("last record UID = %s, want u5", last.Display().UID)
	}
}

func TestCompareSelfIsIdempotent(t *testing.T) {
	a := set("cal",
		holidayEvent("u1", "元日", 2025, time.January, 1),
		event.Event{Summary: "uid無し", Start: day(2025, time.April, 1)},
	)

	res := diff.Compare(a, a)
	if res.Changed() {
		t.Fatalf("self comparison reported changes: %+v", res.Counts)
	}
	if res.Counts[diff.KindUnchanged] != 2 {
		t.Errorf("unchanged = %d, want 2", res.Counts[diff.KindUnchanged])
	}
}

func TestCompareDirectionSymmetry(t *testing.T) {
	a := set("old", holidayEvent("u1", "元日", 2025, time.January, 1))
	b := set("new",
		holidayEvent("u1", "元日", 2025, time.January, 1),
		holidayEvent("u2", "成人の日", 2025, time.January, 13),
	)

	ab := diff.Compare(a, b)
	ba := diff.Compare(b, a)
	if ab.Counts[diff.KindAdded] != ba.Counts[diff.KindDeleted] {
		t.Errorf("added(a,b)=%d, deleted(b,a)=%d, want equal",
			ab.Counts[diff.KindAdded], ba.Counts[diff.KindDeleted])
	}
	if ab.Counts[diff.KindDeleted] != ba.Counts[diff.KindAdded] {
		t.Errorf("deleted(a,b)=%d, added(b,a)=%d, want equal",
			ab.Counts[diff.KindDeleted], ba.Counts[diff.KindAdded])
	}
}

func TestCompareSwapReversesFieldValues(t *testing.T) {
	old := holidayEvent("u1", "体育の日", 2025, time.October, 13)
	renamed := old
	renamed.Summary = "スポーツの日"
	a := set("old", old)
	b := set("new", renamed)

	ab := diff.Compare(a, b)
	ba := diff.Compare(b, a)
	if len(ab.Records) != 1 || len(ba.Records) != 1 {
		t.Fatalf("records = %d/%d, want 1/1", len(ab.Records), len(ba.Records))
	}
	fwd, rev := ab.Records[0].Fields, ba.Records[0].Fields
	if len(fwd) != 1 || len(rev) != 1 {
		t.Fatalf("field changes = %d/%d, want 1/1", len(fwd), len(rev))
	}
	if fwd[0].Old != rev[0].New || fwd[0].New != rev[0].Old {
		t.Errorf("reversed comparison does not swap old/new: %+v vs %+v", fwd[0], rev[0])
	}
}
