package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful analysis runs.
	OutcomeSuccess = "success"
	// OutcomeError labels failed analysis runs (store or serialization issues).
	OutcomeError = "error"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "runbook_analyzer",
			Name:      "analyses_total",
			Help:      "Total number of suggestion analyses handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "runbook_analyzer",
			Name:      "analysis_seconds",
			Help:      "Suggestion analysis latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	annotationsIngestedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "runbook_analyzer",
			Name:      "annotations_ingested_total",
			Help:      "Total number of incident annotations appended to runbooks.",
		},
	)

	diagnosticsRecordedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "runbook_analyzer",
			Name:      "diagnostics_recorded_total",
			Help:      "Total number of diagnostic records appended to runbooks.",
		},
	)

	runbooksTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "runbook_analyzer",
			Name:      "runbooks_total",
			Help:      "Number of runbook documents under the store root.",
		},
	)

	runbooksStale = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "runbook_analyzer",
			Name:      "runbooks_stale",
			Help:      "Runbooks not updated for more than 90 days.",
		},
	)

	historyAnnotations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "runbook_analyzer",
			Name:      "history_annotations",
			Help:      "Annotations across all runbooks as of the last rollup scan.",
		},
	)

	historyDiagnostics = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "runbook_analyzer",
			Name:      "history_diagnostics",
			Help:      "Diagnostic records across all runbooks as of the last rollup scan.",
		},
	)

	runbookAgeDays = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "runbook_analyzer",
			Name:      "runbook_age_days",
			Help:      "Days since each runbook was last updated.",
		},
		[]string{"runbook"},
	)

	fixOccurrences = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "runbook_analyzer",
			Name:      "fix_occurrences",
			Help:      "Occurrences of each canonical fix across all annotation history.",
		},
		[]string{"fix"},
	)
)

// Register attaches runbook-analyzer collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		annotationsIngestedTotal,
		diagnosticsRecordedTotal,
		runbooksTotal,
		runbooksStale,
		historyAnnotations,
		historyDiagnostics,
		runbookAgeDays,
		fixOccurrences,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records a suggestion-analysis duration and outcome label.
func ObserveAnalysis(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// AnnotationIngested counts one appended annotation record.
func AnnotationIngested() {
	annotationsIngestedTotal.Inc()
}

// DiagnosticRecorded counts one appended diagnostic record.
func DiagnosticRecorded() {
	diagnosticsRecordedTotal.Inc()
}

// SetRollupTotals publishes the aggregate counts from a rollup scan.
func SetRollupTotals(runbooks, stale, annotations, diagnostics int) {
	runbooksTotal.Set(float64(runbooks))
	runbooksStale.Set(float64(stale))
	historyAnnotations.Set(float64(annotations))
	historyDiagnostics.Set(float64(diagnostics))
}

// SetRunbookAge publishes one runbook's age in days.
func SetRunbookAge(runbook string, days int) {
	runbookAgeDays.WithLabelValues(runbook).Set(float64(days))
}

// SetFixOccurrences publishes one canonical fix's occurrence count.
func SetFixOccurrences(fix string, count int) {
	fixOccurrences.WithLabelValues(fix).Set(float64(count))
}

// ResetRollupSeries clears per-runbook and per-fix series before a rescan so
// deleted runbooks and vanished fixes do not linger.
func ResetRollupSeries() {
	runbookAgeDays.Reset()
	fixOccurrences.Reset()
}
