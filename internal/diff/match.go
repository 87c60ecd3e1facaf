// Package diff implements the semantic comparison engine: matching events
// across two calendar snapshots, classifying each match into a change
// category, and assembling a deterministic, sorted result.
package diff

import (
	"github.com/koyomi-dev/koyomi/internal/event"
)

// Stage identifies the key that paired two events.
type Stage string

const (
	// StageUID pairs events whose UID fields are identical.
	StageUID Stage = "uid-match"
	// StageStartSummary pairs remaining events on the (start, summary)
	// composite key when UIDs do not align.
	StageStartSummary Stage = "start-summary-match"
)

// Pair associates one event from each side plus the stage that matched them.
type Pair struct {
	A, B  *event.Event
	Stage Stage
}

// MatchResult is the outcome of the staged matching: paired events and the
// leftovers that only one side has.
type MatchResult struct {
	Pairs []Pair
	// LeftoverA are events only in set A ("deleted" in A→B direction).
	LeftoverA []*event.Event
	// LeftoverB are events only in set B ("added").
	LeftoverB []*event.Event
}

// Match pairs the events of two sets in two greedy stages: first by UID,
// then by the (start, summary) composite key over whatever the first stage
// left unmatched. Duplicate keys pair in file order, first unmatched to
// first unmatched; surplus candidates fall through to the next stage or
// become leftovers. The result is deterministic for identical inputs.
func Match(a, b event.Set) MatchResult {
	var res MatchResult
	usedA := make([]bool, len(a.Events))
	usedB := make([]bool, len(b.Events))

	stage := func(tag Stage, key func(*event.Event) string) {
		// Candidate indexes on side B per key, in file order.
		byKey := make(map[string][]int)
		for j := range b.Events {
			if usedB[j] {
				continue
			}
			k := key(&b.Events[j])
			if k == "" {
				continue
			}
			byKey[k] = append(byKey[k], j)
		}
		for i := range a.Events {
			if usedA[i] {
				continue
			}
			k := key(&a.Events[i])
			if k == "" {
				continue
			}
			cands := byKey[k]
			matched := -1
			for n, j := range cands {
				if !usedB[j] {
					matched = j
					byKey[k] = cands[n+1:]
					break
				}
			}
			if matched < 0 {
				continue
			}
			usedA[i], usedB[matched] = true, true
			res.Pairs = append(res.Pairs, Pair{A: &a.Events[i], B: &b.Events[matched], Stage: tag})
		}
	}

	stage(StageUID, func(e *event.Event) string { return e.UID })
	stage(StageStartSummary, func(e *event.Event) string {
		if e.Start.IsZero() {
			return ""
		}
		return e.Start.String() + "\x00" + e.Summary
	})

	for i := range a.Events {
		if !usedA[i] {
			res.LeftoverA = append(res.LeftoverA, &a.Events[i])
		}
	}
	for j := range b.Events {
		if !usedB[j] {
			res.LeftoverB = append(res.LeftoverB, &b.Events[j])
		}
	}
	return res
}
