package analysis

import (
	"fmt"
	"sort"

	"github.com/runbookstack/runbook-analyzer/internal/models"
)

// DefaultMinFrequency is the threshold applied when a caller does not supply
// one. A minFrequency of zero or below degenerates to "everything seen at
// least once"; the threshold is only ever compared, never divided by.
const DefaultMinFrequency = 2

// Suggest converts aggregate counts meeting minFrequency into typed, justified
// suggestions: add_step per frequent fix, add_monitoring per frequent cause,
// add_relationship per frequent cause->fix pair. Output is grouped by kind
// with tags sorted inside each group so repeated runs produce identical
// sequences.
func Suggest(aggregate AggregateResult, minFrequency int) []models.Suggestion {
	if minFrequency <= 0 {
		minFrequency = 1
	}

	var suggestions []models.Suggestion

	for _, fix := range sortedTags(aggregate.FixCounts) {
		count := aggregate.FixCounts[fix]
		if count < minFrequency {
			continue
		}
		suggestions = append(suggestions, models.Suggestion{
			Kind:   models.SuggestionAddStep,
			Item:   string(fix),
			Count:  count,
			Reason: fmt.Sprintf("'%s' applied in %d incidents", fix, count),
		})
	}

	for _, cause := range sortedTags(aggregate.CauseCounts) {
		count := aggregate.CauseCounts[cause]
		if count < minFrequency {
			continue
		}
		suggestions = append(suggestions, models.Suggestion{
			Kind:   models.SuggestionAddMonitoring,
			Item:   string(cause),
			Count:  count,
			Reason: fmt.Sprintf("'%s' identified as root cause in %d incidents", cause, count),
		})
	}

	causes := make([]Tag, 0, len(aggregate.CauseFixPairs))
	for cause := range aggregate.CauseFixPairs {
		causes = append(causes, cause)
	}
	sort.Slice(causes, func(i, j int) bool { return causes[i] < causes[j] })
	for _, cause := range causes {
		pairs := aggregate.CauseFixPairs[cause]
		for _, fix := range sortedTags(pairs) {
			count := pairs[fix]
			if count < minFrequency {
				continue
			}
			suggestions = append(suggestions, models.Suggestion{
				Kind:   models.SuggestionAddRelationship,
				Item:   fmt.Sprintf("%s -> %s", cause, fix),
				Count:  count,
				Reason: fmt.Sprintf("'%s' typically fixed with '%s' in %d incidents", cause, fix, count),
			})
		}
	}

	return suggestions
}

func sortedTags(counts map[Tag]int) []Tag {
	tags := make([]Tag, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}
