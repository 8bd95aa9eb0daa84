package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/runbookstack/runbook-analyzer/internal/analysis"
	"github.com/runbookstack/runbook-analyzer/internal/cache"
	"github.com/runbookstack/runbook-analyzer/internal/config"
	"github.com/runbookstack/runbook-analyzer/internal/diagnostics"
	"github.com/runbookstack/runbook-analyzer/internal/metrics"
	"github.com/runbookstack/runbook-analyzer/internal/models"
	"github.com/runbookstack/runbook-analyzer/internal/runbook"
	"github.com/runbookstack/runbook-analyzer/internal/utils"
)

// ErrDiagnosticNotFound signals that no diagnostic record matches a hash.
var ErrDiagnosticNotFound = errors.New("diagnostic not found")

// RunbookStore defines the store operations the service requires.
type RunbookStore interface {
	Load(name string) (*runbook.Document, error)
	AppendAnnotation(name string, annotation models.AnnotationRecord) error
	AppendDiagnostic(name string, record models.DiagnosticRecord) error
	List() ([]string, error)
}

// AnalysisService is the facade over the runbook store and the analysis and
// diagnostic engines. All engine invocations are pure; the service adds
// persistence, caching, metrics, and latency tracking around them.
type AnalysisService struct {
	logger         *slog.Logger
	store          RunbookStore
	cache          cache.Provider
	suggestionsTTL time.Duration
	maxFindResults int
	latencies      *utils.LatencyTracker
}

// NewAnalysisService constructs the service facade.
func NewAnalysisService(logger *slog.Logger, store RunbookStore, cacheProvider cache.Provider, cfg config.AnalysisConfig, suggestionsTTL time.Duration) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	maxFind := cfg.MaxFindResults
	if maxFind <= 0 {
		maxFind = 5
	}
	return &AnalysisService{
		logger:         logger,
		store:          store,
		cache:          cacheProvider,
		suggestionsTTL: suggestionsTTL,
		maxFindResults: maxFind,
		latencies:      utils.NewLatencyTracker(1024),
	}
}

// Annotate appends one annotation record to the named runbook.
func (s *AnalysisService) Annotate(ctx context.Context, name string, annotation models.AnnotationRecord) error {
	if annotation.IncidentID == "" {
		return fmt.Errorf("incident_id is required")
	}
	if err := s.store.AppendAnnotation(name, annotation); err != nil {
		return err
	}
	metrics.AnnotationIngested()
	return nil
}

// Suggest aggregates the runbook's annotation history and returns the
// suggestions meeting minFrequency. Results are memoised per runbook
// revision (history length) so repeated chat-ops queries skip aggregation.
func (s *AnalysisService) Suggest(ctx context.Context, name string, minFrequency int) ([]models.Suggestion, error) {
	if minFrequency <= 0 {
		minFrequency = 1
	}

	doc, err := s.store.Load(name)
	if err != nil {
		metrics.ObserveAnalysis(0, metrics.OutcomeError)
		return nil, err
	}

	key := fmt.Sprintf("suggestions:%s:%d:%d", name, minFrequency, len(doc.Annotations))
	if cached, err := s.cache.Get(ctx, key); err == nil {
		var suggestions []models.Suggestion
		if err := json.Unmarshal(cached, &suggestions); err == nil {
			return suggestions, nil
		}
		// Unreadable entry; fall through and overwrite it.
		_ = s.cache.Del(ctx, key)
	}

	start := time.Now()
	aggregate := analysis.Aggregate(doc.Annotations)
	suggestions := analysis.Suggest(aggregate, minFrequency)
	duration := time.Since(start)

	metrics.ObserveAnalysis(duration, metrics.OutcomeSuccess)
	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("analysis latency",
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Int("samples", count))
	}

	if encoded, err := json.Marshal(suggestions); err == nil {
		if err := s.cache.Set(ctx, key, encoded, s.suggestionsTTL); err != nil {
			s.logger.Debug("suggestion cache write failed", slog.Any("error", err))
		}
	}

	return suggestions, nil
}

// RecordDiagnostic hashes the payload, builds the record, and appends it to
// the named runbook. A blob with no canonical form surfaces the hasher's
// SerializationError unchanged; nothing here repairs the payload.
func (s *AnalysisService) RecordDiagnostic(ctx context.Context, name, source, query string, blob map[string]interface{}, provenance models.Provenance) (models.DiagnosticRecord, error) {
	record, err := diagnostics.NewRecord(source, query, blob, provenance)
	if err != nil {
		return models.DiagnosticRecord{}, err
	}
	if err := s.store.AppendDiagnostic(name, record); err != nil {
		return models.DiagnosticRecord{}, err
	}
	metrics.DiagnosticRecorded()
	return record, nil
}

// FindDiagnostics returns the runbook's diagnostic records matching
// targetHash in input order, capped at maxResults (service default when
// non-positive).
func (s *AnalysisService) FindDiagnostics(ctx context.Context, name, targetHash string, maxResults int) ([]models.DiagnosticRecord, error) {
	doc, err := s.store.Load(name)
	if err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = s.maxFindResults
	}
	return diagnostics.FindByHash(doc.Diagnostics, targetHash, maxResults), nil
}

// CompareDiagnostics diffs the first record matching hashA against the first
// matching hashB. Comparing a hash against itself diffs its first two
// occurrences.
func (s *AnalysisService) CompareDiagnostics(ctx context.Context, name, hashA, hashB string) (diagnostics.DiffResult, error) {
	doc, err := s.store.Load(name)
	if err != nil {
		return diagnostics.DiffResult{}, err
	}

	limit := 1
	if hashA == hashB {
		limit = 2
	}
	matchesA := diagnostics.FindByHash(doc.Diagnostics, hashA, limit)
	if len(matchesA) == 0 {
		return diagnostics.DiffResult{}, fmt.Errorf("%w: %s", ErrDiagnosticNotFound, hashA)
	}
	recordA := matchesA[0]

	var recordB models.DiagnosticRecord
	if hashA == hashB {
		if len(matchesA) < 2 {
			return diagnostics.DiffResult{}, fmt.Errorf("%w: second record for %s", ErrDiagnosticNotFound, hashB)
		}
		recordB = matchesA[1]
	} else {
		matchesB := diagnostics.FindByHash(doc.Diagnostics, hashB, 1)
		if len(matchesB) == 0 {
			return diagnostics.DiffResult{}, fmt.Errorf("%w: %s", ErrDiagnosticNotFound, hashB)
		}
		recordB = matchesB[0]
	}

	return diagnostics.Diff(recordA, recordB), nil
}
