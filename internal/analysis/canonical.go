// Package analysis mines runbook annotation history: free-text causes and
// fixes are normalised into a closed canonical vocabulary, counted, and turned
// into advisory runbook-improvement suggestions. Every function here is a pure
// computation over records already loaded from the runbook store.
package analysis

import (
	"regexp"
	"strings"
)

// Tag is a canonical label representing a normalised cause or fix category.
type Tag string

// Vocabulary is an ordered table mapping a regular expression to exactly one
// canonical tag. Tables are closed at build time; membership is defined
// entirely by the pattern list.
type Vocabulary struct {
	name  string
	rules []vocabularyRule
}

type vocabularyRule struct {
	pattern *regexp.Regexp
	tag     Tag
}

// CauseVocabulary classifies free-text root causes.
var CauseVocabulary = newVocabulary("causes", []struct {
	expr string
	tag  Tag
}{
	{`memory\s+leak`, "memory_leak"},
	{`cpu\s+(?:usage|spike|high)`, "high_cpu_usage"},
	{`disk\s+(?:space|full)`, "disk_space_issue"},
	{`connection\s+(?:timeout|refused)`, "connection_timeout"},
	{`out\s+of\s+(?:memory|disk)`, "resource_exhaustion"},
	{`oomkilled`, "oom_killed"},
	{`network\s+(?:error|issue)`, "network_issue"},
	{`config(?:uration)?\s+(?:error|issue)`, "configuration_error"},
	{`dependency\s+(?:failure|down)`, "dependency_failure"},
	{`rate\s+(?:limit|throttling)`, "rate_limiting"},
})

// FixVocabulary classifies free-text fix descriptions.
var FixVocabulary = newVocabulary("fixes", []struct {
	expr string
	tag  Tag
}{
	{`increase(?:s|d)?\s+.*?(?:memory|cpu|resource)`, "increase_resource_limits"},
	{`restart(?:s|ed)?\s+.*?(?:pod|service|container)`, "restart_component"},
	{`scale(?:s|d)?\s+(?:up|out)`, "scale_up_resources"},
	{`rollback(?:s)?`, "rollback_deployment"},
	{`fix(?:es|ed)?\s+(?:config|configuration)`, "fix_configuration"},
	{`update(?:s|d)?\s+(?:version|image)`, "update_component"},
	{`add(?:s|ed)?\s+(?:timeout|retry)`, "add_timeout_retry"},
	{`clear(?:s|ed)?\s+(?:cache|buffer)`, "clear_cache"},
	{`kill(?:s|ed)?\s+(?:process|pod)`, "kill_process"},
	{`add(?:s|ed)?\s+(?:monitoring|alert)`, "add_monitoring"},
})

func newVocabulary(name string, entries []struct {
	expr string
	tag  Tag
}) *Vocabulary {
	rules := make([]vocabularyRule, 0, len(entries))
	for _, entry := range entries {
		rules = append(rules, vocabularyRule{
			pattern: regexp.MustCompile(entry.expr),
			tag:     entry.tag,
		})
	}
	return &Vocabulary{name: name, rules: rules}
}

// Name identifies the vocabulary in logs and metrics labels.
func (v *Vocabulary) Name() string {
	return v.name
}

// Classify normalises text and returns every canonical tag whose pattern
// matches. A compound description may yield several tags; unmatched or empty
// text yields no tags and never an error.
func (v *Vocabulary) Classify(text string) []Tag {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return nil
	}

	var tags []Tag
	seen := make(map[Tag]struct{}, 2)
	for _, rule := range v.rules {
		if !rule.pattern.MatchString(normalized) {
			continue
		}
		if _, ok := seen[rule.tag]; ok {
			continue
		}
		seen[rule.tag] = struct{}{}
		tags = append(tags, rule.tag)
	}
	return tags
}
