// Package rollup scans the runbook store and publishes health metrics:
// document ages, stale counts, history sizes, and the most common canonical
// fixes. The scan re-runs on a timer and whenever the store changes on disk.
package rollup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/runbookstack/runbook-analyzer/internal/analysis"
	"github.com/runbookstack/runbook-analyzer/internal/metrics"
	"github.com/runbookstack/runbook-analyzer/internal/runbook"
	"github.com/runbookstack/runbook-analyzer/internal/utils"
)

// Library is the slice of the runbook store the collector reads.
type Library interface {
	List() ([]string, error)
	Load(name string) (*runbook.Document, error)
	Path(name string) (string, error)
	Root() string
}

// FixCount pairs a canonical fix tag with its occurrence count.
type FixCount struct {
	Name  string
	Count int
}

// Summary is the aggregate health picture from one scan.
type Summary struct {
	Runbooks    int
	Stale       int
	Annotations int
	Diagnostics int
	Ages        map[string]int
	AgeBuckets  map[string]int
	TopFixes    []FixCount
}

// Collector computes and publishes runbook health metrics.
type Collector struct {
	library        Library
	logger         *slog.Logger
	interval       time.Duration
	staleAfterDays int
	topFixes       int
	now            func() time.Time
}

// NewCollector constructs a Collector over the supplied library.
func NewCollector(library Library, logger *slog.Logger, interval time.Duration, staleAfterDays, topFixes int) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if staleAfterDays <= 0 {
		staleAfterDays = 90
	}
	if topFixes <= 0 {
		topFixes = 10
	}
	return &Collector{
		library:        library,
		logger:         logger,
		interval:       interval,
		staleAfterDays: staleAfterDays,
		topFixes:       topFixes,
		now:            time.Now,
	}
}

// Scan walks every runbook and aggregates health figures. Unreadable
// documents are logged and skipped; one broken runbook must not blank the
// whole rollup.
func (c *Collector) Scan() (Summary, error) {
	names, err := c.library.List()
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Ages:       make(map[string]int, len(names)),
		AgeBuckets: make(map[string]int, 4),
	}
	fixCounts := make(map[analysis.Tag]int)
	now := c.now()

	for _, name := range names {
		doc, err := c.library.Load(name)
		if err != nil {
			c.logger.Warn("rollup skipping runbook", slog.String("runbook", name), slog.Any("error", err))
			continue
		}

		summary.Runbooks++
		summary.Annotations += len(doc.Annotations)
		summary.Diagnostics += len(doc.Diagnostics)

		age := c.runbookAge(name, doc, now)
		summary.Ages[name] = age
		summary.AgeBuckets[ageBucket(age)]++
		if age > c.staleAfterDays {
			summary.Stale++
		}

		for _, annotation := range doc.Annotations {
			for _, tag := range analysis.FixVocabulary.Classify(annotation.Fix) {
				fixCounts[tag]++
			}
		}
	}

	summary.TopFixes = topFixes(fixCounts, c.topFixes)
	return summary, nil
}

// Publish pushes a summary into the Prometheus gauges.
func (c *Collector) Publish(summary Summary) {
	metrics.ResetRollupSeries()
	metrics.SetRollupTotals(summary.Runbooks, summary.Stale, summary.Annotations, summary.Diagnostics)
	for name, age := range summary.Ages {
		metrics.SetRunbookAge(name, age)
	}
	for _, fix := range summary.TopFixes {
		metrics.SetFixOccurrences(fix.Name, fix.Count)
	}
}

// Run scans once immediately, then rescans on the configured interval and
// whenever a runbook document changes on disk. It blocks until ctx is done.
func (c *Collector) Run(ctx context.Context) {
	c.scanAndPublish()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.logger.Warn("rollup watcher unavailable, interval-only rescans", slog.Any("error", err))
	} else {
		defer watcher.Close()
		c.watchStore(watcher)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	var pending <-chan time.Time
	for {
		var events chan fsnotify.Event
		var watchErrs chan error
		if watcher != nil {
			events = watcher.Events
			watchErrs = watcher.Errors
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.scanAndPublish()
		case <-pending:
			pending = nil
			c.scanAndPublish()
			c.watchStore(watcher)
		case event, ok := <-events:
			if !ok {
				watcher = nil
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				// Atomic saves land as create+rename bursts; debounce them.
				pending = time.After(500 * time.Millisecond)
			}
		case err, ok := <-watchErrs:
			if !ok {
				watcher = nil
				continue
			}
			c.logger.Warn("rollup watcher error", slog.Any("error", err))
		}
	}
}

func (c *Collector) scanAndPublish() {
	summary, err := c.Scan()
	if err != nil {
		c.logger.Error("rollup scan failed", slog.Any("error", err))
		return
	}
	c.Publish(summary)
	c.logger.Debug("rollup published",
		slog.Int("runbooks", summary.Runbooks),
		slog.Int("stale", summary.Stale),
		slog.Int("annotations", summary.Annotations))
}

// watchStore (re)registers the store root and each runbook directory.
// fsnotify does not recurse, and new runbook directories appear over time.
func (c *Collector) watchStore(watcher *fsnotify.Watcher) {
	if watcher == nil {
		return
	}
	if err := watcher.Add(c.library.Root()); err != nil {
		c.logger.Warn("rollup watch failed", slog.String("dir", c.library.Root()), slog.Any("error", err))
	}
	names, err := c.library.List()
	if err != nil {
		return
	}
	for _, name := range names {
		path, err := c.library.Path(name)
		if err != nil {
			continue
		}
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			c.logger.Debug("rollup watch failed", slog.String("runbook", name), slog.Any("error", err))
		}
	}
}

func (c *Collector) runbookAge(name string, doc *runbook.Document, now time.Time) int {
	if doc.LastUpdated != "" {
		if updated, err := utils.ParseTimestamp(doc.LastUpdated); err == nil {
			return utils.DaysSince(updated, now)
		}
	}
	// Fall back to the document's modification time.
	path, err := c.library.Path(name)
	if err != nil {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return utils.DaysSince(info.ModTime(), now)
}

func ageBucket(days int) string {
	switch {
	case days <= 30:
		return "0-30 days"
	case days <= 60:
		return "31-60 days"
	case days <= 90:
		return "61-90 days"
	default:
		return "90+ days"
	}
}

func topFixes(counts map[analysis.Tag]int, limit int) []FixCount {
	fixes := make([]FixCount, 0, len(counts))
	for tag, count := range counts {
		fixes = append(fixes, FixCount{Name: string(tag), Count: count})
	}
	sort.Slice(fixes, func(i, j int) bool {
		if fixes[i].Count != fixes[j].Count {
			return fixes[i].Count > fixes[j].Count
		}
		return fixes[i].Name < fixes[j].Name
	})
	if len(fixes) > limit {
		fixes = fixes[:limit]
	}
	return fixes
}
