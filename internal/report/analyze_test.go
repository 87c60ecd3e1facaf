package report_test

import (
	"strings"
	"testing"
	"time"

	"github.com/koyomi-dev/koyomi/internal/event"
	"github.com/koyomi-dev/koyomi/internal/ics"
	"github.com/koyomi-dev/koyomi/internal/report"
)

func analyzedSet() event.Set {
	return event.Set{Name: "holidays.ics", Events: []event.Event{
		{UID: "u1", Summary: "元日", Categories: "Japanese-Holiday", Start: event.Date(2025, time.January, 1)},
		{UID: "u2", Summary: "成人の日", Categories: "Japanese-Holiday", Start: event.Date(2025, time.January, 13)},
		{UID: "u3", Summary: "planning", Start: event.Date(2026, time.January, 5)},
	}}
}

func TestSummarize(t *testing.T) {
	diags := []ics.Diagnostic{{Index: 3, UID: "bad", Reason: "missing DTSTART"}}
	st := report.Summarize(analyzedSet(), diags)

	if st.Source != "holidays.ics" || st.Events != 3 {
		t.Errorf("source/events = %s/%d", st.Source, st.Events)
	}
	if st.Range == nil {
		t.Fatal("range not computed")
	}
	if st.Range.Start != "2025-01-01" || st.Range.End != "2026-01-05" {
		t.Errorf("range = %+v", st.Range)
	}
	if st.ByCategory["Japanese-Holiday"] != 2 || st.ByCategory["uncategorized"] != 1 {
		t.Errorf("by category = %v", st.ByCategory)
	}
	if st.ByYear[2025] != 2 || st.ByYear[2026] != 1 {
		t.Errorf("by year = %v", st.ByYear)
	}
	if len(st.Diagnostics) != 1 || !strings.Contains(st.Diagnostics[0], "missing DTSTART") {
		t.Errorf("diagnostics = %v", st.Diagnostics)
	}
}

func TestSummarizeEmptySet(t *testing.T) {
	st := report.Summarize(event.Set{Name: "empty.ics"}, nil)
	if st.Events != 0 {
		t.Errorf("events = %d", st.Events)
	}
	if st.Range != nil {
		t.Errorf("range computed for empty set: %+v", st.Range)
	}
}

func TestFormatStatsHuman(t *testing.T) {
	st := report.Summarize(analyzedSet(), nil)
	out, err := report.FormatStats(st, report.StyleSummary)
	if err != nil {
		t.Fatalf("FormatStats: %v", err)
	}
	for _, want := range []string{
		"=== calendar summary ===",
		"source: holidays.ics",
		"events: 3",
		"- Japanese-Holiday: 2",
		"- 2025: 2",
		"no diagnostics",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestEventsCSV(t *testing.T) {
	out, err := report.EventsCSV(analyzedSet())
	if err != nil {
		t.Fatalf("EventsCSV: %v", err)
	}
	rows := strings.Split(strings.TrimSpace(out), "\n")
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header plus 3", len(rows))
	}
	if !strings.HasPrefix(rows[0], "date,summary,description,categories,uid") {
		t.Errorf("header = %q", rows[0])
	}
	if !strings.Contains(rows[1], "2025-01-01") || !strings.Contains(rows[1], "元日") {
		t.Errorf("first row = %q", rows[1])
	}
}
