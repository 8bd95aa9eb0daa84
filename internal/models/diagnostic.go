package models

// Provenance records how a diagnostic snapshot was collected.
type Provenance string

const (
	ProvenanceAutomated Provenance = "automated"
	ProvenanceManual    Provenance = "manual"
)

// DiagnosticRecord is a structured snapshot of command or tool output tied to
// an incident investigation. ResultHash is computed from ResultBlob once, at
// creation time; downstream readers trust it and never recompute.
type DiagnosticRecord struct {
	Timestamp  string                 `yaml:"timestamp" json:"timestamp"`
	Source     string                 `yaml:"source" json:"source"`
	Query      string                 `yaml:"query" json:"query"`
	ResultHash string                 `yaml:"result_hash" json:"result_hash"`
	ResultBlob map[string]interface{} `yaml:"result_blob" json:"result_blob"`
	Provenance Provenance             `yaml:"provenance" json:"provenance"`
}
