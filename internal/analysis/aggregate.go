package analysis

import (
	"github.com/runbookstack/runbook-analyzer/internal/models"
)

// AggregateResult summarises canonical-tag frequencies across an annotation
// history. Counts are owned by a single Aggregate call; no shared state.
type AggregateResult struct {
	CauseCounts    map[Tag]int
	FixCounts      map[Tag]int
	CauseFixPairs  map[Tag]map[Tag]int
	TotalIncidents int
}

// Aggregate classifies every annotation's cause and fix against the canonical
// vocabularies and tallies tag occurrences plus cause->fix co-occurrence
// pairs. An annotation matching several cause and fix tags contributes the
// full Cartesian product of pair increments. The result is independent of
// input order.
func Aggregate(annotations []models.AnnotationRecord) AggregateResult {
	result := AggregateResult{
		CauseCounts:    make(map[Tag]int),
		FixCounts:      make(map[Tag]int),
		CauseFixPairs:  make(map[Tag]map[Tag]int),
		TotalIncidents: len(annotations),
	}

	for _, annotation := range annotations {
		causes := CauseVocabulary.Classify(annotation.Cause)
		fixes := FixVocabulary.Classify(annotation.Fix)

		for _, cause := range causes {
			result.CauseCounts[cause]++
		}
		for _, fix := range fixes {
			result.FixCounts[fix]++
		}
		for _, cause := range causes {
			pairs, ok := result.CauseFixPairs[cause]
			if !ok {
				pairs = make(map[Tag]int, len(fixes))
				result.CauseFixPairs[cause] = pairs
			}
			for _, fix := range fixes {
				pairs[fix]++
			}
		}
	}

	return result
}
