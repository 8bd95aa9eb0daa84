package models

// SuggestionKind enumerates the runbook improvements the analyzer can propose.
type SuggestionKind string

const (
	SuggestionAddStep         SuggestionKind = "add_step"
	SuggestionAddMonitoring   SuggestionKind = "add_monitoring"
	SuggestionAddRelationship SuggestionKind = "add_relationship"
)

// Suggestion is advisory output derived from annotation history. Suggestions
// are never applied to a runbook automatically.
type Suggestion struct {
	Kind   SuggestionKind `yaml:"type" json:"type"`
	Item   string         `yaml:"item" json:"item"`
	Count  int            `yaml:"count" json:"count"`
	Reason string         `yaml:"reason" json:"reason"`
}
