package domain

import (
	"slices"
	"strings"
)

// SelectMostRecent returns the summary with the latest UpdatedAt, ties
// broken by the larger id so the choice is deterministic. It does not depend
// on the order of the input.
func SelectMostRecent(summaries []SessionSummary) (SessionSummary, bool) {
	if len(summaries) == 0 {
		return SessionSummary{}, false
	}
	best := summaries[0]
	for _, s := range summaries[1:] {
		if newer(s, best) {
			best = s
		}
	}
	return best, true
}

// SortByRecency orders summaries newest first in place.
func SortByRecency(summaries []SessionSummary) {
	slices.SortStableFunc(summaries, func(a, b SessionSummary) int {
		switch {
		case newer(a, b):
			return -1
		case newer(b, a):
			return 1
		default:
			return 0
		}
	})
}

func newer(a, b SessionSummary) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return strings.Compare(a.ID, b.ID) > 0
}
