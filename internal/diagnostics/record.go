package diagnostics

import (
	"time"

	"github.com/runbookstack/runbook-analyzer/internal/models"
)

// NewRecord builds a DiagnosticRecord for the supplied payload, stamping the
// collection time and the payload's content hash at creation. This is the
// only place a result hash is ever computed; readers trust it afterwards.
func NewRecord(source, query string, blob map[string]interface{}, provenance models.Provenance) (models.DiagnosticRecord, error) {
	hash, err := Hash(blob)
	if err != nil {
		return models.DiagnosticRecord{}, err
	}
	if provenance == "" {
		provenance = models.ProvenanceAutomated
	}
	return models.DiagnosticRecord{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Source:     source,
		Query:      query,
		ResultHash: hash,
		ResultBlob: blob,
		Provenance: provenance,
	}, nil
}
