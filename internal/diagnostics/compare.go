package diagnostics

import (
	"reflect"

	"github.com/runbookstack/runbook-analyzer/internal/models"
)

// ValuePair holds both sides of a differing top-level key. A nil side means
// the key is absent from that record's result blob.
type ValuePair struct {
	ValueA interface{} `yaml:"value_a" json:"value_a"`
	ValueB interface{} `yaml:"value_b" json:"value_b"`
}

// DiffResult describes how two diagnostic records differ. Differences covers
// top-level result blob keys only; a change inside a nested structure
// surfaces as the whole value differing.
type DiffResult struct {
	TimestampA  string               `yaml:"timestamp_a" json:"timestamp_a"`
	TimestampB  string               `yaml:"timestamp_b" json:"timestamp_b"`
	SourceA     string               `yaml:"source_a" json:"source_a"`
	SourceB     string               `yaml:"source_b" json:"source_b"`
	Differences map[string]ValuePair `yaml:"differences" json:"differences"`
}

// FindByHash scans records in input order and collects those whose result
// hash equals targetHash, stopping once maxResults matches are collected.
// maxResults <= 0 means unbounded. No match yields an empty result, not an
// error.
func FindByHash(records []models.DiagnosticRecord, targetHash string, maxResults int) []models.DiagnosticRecord {
	var matches []models.DiagnosticRecord
	for _, record := range records {
		if record.ResultHash != targetHash {
			continue
		}
		matches = append(matches, record)
		if maxResults > 0 && len(matches) >= maxResults {
			break
		}
	}
	return matches
}

// Diff compares two diagnostic records shallowly: top-level result blob keys
// present in both with unequal values, keys only in a, and keys only in b.
// Keys equal on both sides are omitted. Missing blobs are treated as empty.
func Diff(a, b models.DiagnosticRecord) DiffResult {
	result := DiffResult{
		TimestampA:  a.Timestamp,
		TimestampB:  b.Timestamp,
		SourceA:     a.Source,
		SourceB:     b.Source,
		Differences: make(map[string]ValuePair),
	}

	for key, valueA := range a.ResultBlob {
		valueB, inB := b.ResultBlob[key]
		if !inB {
			result.Differences[key] = ValuePair{ValueA: valueA, ValueB: nil}
			continue
		}
		if !reflect.DeepEqual(valueA, valueB) {
			result.Differences[key] = ValuePair{ValueA: valueA, ValueB: valueB}
		}
	}
	for key, valueB := range b.ResultBlob {
		if _, inA := a.ResultBlob[key]; !inA {
			result.Differences[key] = ValuePair{ValueA: nil, ValueB: valueB}
		}
	}

	return result
}
