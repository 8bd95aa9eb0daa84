package models

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// AnnotationRecord captures a human-submitted incident note appended to a
// runbook's annotation history. Records are immutable once written; duplicate
// incident IDs are legal and represent corrected or re-reported incidents.
type AnnotationRecord struct {
	IncidentID string   `yaml:"incident_id" json:"incident_id"`
	Timestamp  string   `yaml:"timestamp" json:"timestamp"`
	Cause      string   `yaml:"cause" json:"cause"`
	Fix        string   `yaml:"fix" json:"fix"`
	Symptoms   []string `yaml:"symptoms,omitempty" json:"symptoms,omitempty"`
	RunbookGap GapList  `yaml:"runbook_gap,omitempty" json:"runbook_gap,omitempty"`
}

// GapList holds identified runbook gaps. Existing runbook documents store a
// single gap as a plain scalar and multiple gaps as a sequence, so both forms
// must round-trip.
type GapList []string

// UnmarshalYAML accepts either a scalar or a sequence of strings.
func (g *GapList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		*g = GapList{single}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*g = GapList(items)
		return nil
	default:
		return fmt.Errorf("runbook_gap must be a string or a list of strings")
	}
}

// MarshalYAML writes a single gap as a scalar to match existing documents.
func (g GapList) MarshalYAML() (interface{}, error) {
	if len(g) == 1 {
		return g[0], nil
	}
	return []string(g), nil
}

// UnmarshalJSON mirrors the YAML behaviour for API payloads.
func (g *GapList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*g = GapList{single}
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("runbook_gap must be a string or a list of strings")
	}
	*g = GapList(items)
	return nil
}
