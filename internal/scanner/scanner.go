// Package scanner runs category scans: it walks every root of a category in
// parallel, filters and reduces the walked files, and merges the per-root
// results.
package scanner

import (
	"context"
	"time"

	"github.com/fenilsonani/diskscope/internal/catalog"
	"github.com/fenilsonani/diskscope/internal/logging"
	"github.com/fenilsonani/diskscope/internal/metrics"
	"github.com/fenilsonani/diskscope/internal/progress"
	"github.com/fenilsonani/diskscope/internal/ranking"
	"github.com/fenilsonani/diskscope/internal/reducer"
	"github.com/fenilsonani/diskscope/internal/walker"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

var ErrUnknownCategory = catalog.ErrUnknownCategory

// Scanner is safe for concurrent use
type Scanner struct {
	catalog  *catalog.Catalog
	walker   *walker.Walker
	reducer  *reducer.Reducer
	metrics  *metrics.Collector
	progress *progress.Reporter
	logger   logrus.FieldLogger
}

type options struct {
	workers  int
	excludes []string
	logger   logrus.FieldLogger
	metrics  *metrics.Collector
	progress *progress.Reporter
}

// Option configures a Scanner
type Option func(*options)

// WithWorkers bounds the filter/reduce pool of every root
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithExcludes prunes matching files and directories from every walk
func WithExcludes(patterns []string) Option {
	return func(o *options) { o.excludes = patterns }
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

func WithProgress(r *progress.Reporter) Option {
	return func(o *options) { o.progress = r }
}

// New creates a Scanner reading through fs
func New(cat *catalog.Catalog, fs afero.Fs, opts ...Option) *Scanner {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.OrDiscard(o.logger)

	return &Scanner{
		catalog:  cat,
		walker:   walker.New(fs, walker.WithExcludes(o.excludes), walker.WithLogger(logger)),
		reducer:  reducer.New(fs, reducer.WithWorkers(o.workers), reducer.WithLogger(logger)),
		metrics:  o.metrics,
		progress: o.progress,
		logger:   logger,
	}
}

// ScanCache lists files under the cache directory
func (s *Scanner) ScanCache(ctx context.Context) ([]CacheFile, error) {
	return collect(ctx, s, catalog.Cache, newCacheFile)
}

// ScanTrash lists the top-level files in the trash
func (s *Scanner) ScanTrash(ctx context.Context) ([]TrashFile, error) {
	return collect(ctx, s, catalog.Trash, newTrashFile)
}

// ScanLogs lists files under the system log root
func (s *Scanner) ScanLogs(ctx context.Context) ([]LogFile, error) {
	return collect(ctx, s, catalog.Logs, newLogFile)
}

// ScanLargeFiles lists the largest files above the threshold in the user
// folders, largest first, up to the configured result cap.
func (s *Scanner) ScanLargeFiles(ctx context.Context) ([]LargeFile, error) {
	return collect(ctx, s, catalog.LargeFiles, newLargeFile(s.catalog.Threshold()))
}

func (s *Scanner) CacheSummary(ctx context.Context) (Summary, error) {
	return s.aggregate(ctx, catalog.Cache, always)
}

func (s *Scanner) TrashSummary(ctx context.Context) (Summary, error) {
	return s.aggregate(ctx, catalog.Trash, always)
}

func (s *Scanner) LogSummary(ctx context.Context) (Summary, error) {
	return s.aggregate(ctx, catalog.Logs, always)
}

func (s *Scanner) LargeFilesSummary(ctx context.Context) (Summary, error) {
	return s.aggregate(ctx, catalog.LargeFiles, above(s.catalog.Threshold()))
}

// Summarize dispatches to the summary operation of category
func (s *Scanner) Summarize(ctx context.Context, category catalog.Category) (Summary, error) {
	switch category {
	case catalog.Cache:
		return s.CacheSummary(ctx)
	case catalog.Trash:
		return s.TrashSummary(ctx)
	case catalog.Logs:
		return s.LogSummary(ctx)
	case catalog.LargeFiles:
		return s.LargeFilesSummary(ctx)
	}
	return Summary{}, ErrUnknownCategory
}

// collect runs the list variant of category. Records are ranked by size so
// the output does not depend on worker scheduling.
func collect[R ranking.Ranked](ctx context.Context, s *Scanner, category catalog.Category, keep func(walker.FileEntry) (R, bool)) ([]R, error) {
	var records []R
	err := s.run(ctx, category, catalog.List, func(ctx context.Context, roots []catalog.ScanRoot, walk func(catalog.ScanRoot) []walker.FileEntry) error {
		partials := make([][]R, len(roots))

		g, ctx := errgroup.WithContext(ctx)
		for i, root := range roots {
			g.Go(func() error {
				recs, err := reducer.Collect(ctx, s.reducer, walk(root), keep)
				if err != nil {
					return err
				}
				partials[i] = recs
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		records = ranking.Rank(lo.Flatten(partials), s.catalog.ResultCap(category))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Scanner) aggregate(ctx context.Context, category catalog.Category, pred func(walker.FileEntry) bool) (Summary, error) {
	var total Summary
	err := s.run(ctx, category, catalog.Summary, func(ctx context.Context, roots []catalog.ScanRoot, walk func(catalog.ScanRoot) []walker.FileEntry) error {
		partials := make([]Summary, len(roots))

		g, ctx := errgroup.WithContext(ctx)
		for i, root := range roots {
			g.Go(func() error {
				sum, err := s.reducer.Aggregate(ctx, walk(root), pred)
				if err != nil {
					return err
				}
				partials[i] = sum
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		total = lo.Reduce(partials, func(acc Summary, p Summary, _ int) Summary {
			return acc.Add(p)
		}, Summary{})
		return nil
	})
	return total, err
}

type scanFunc func(ctx context.Context, roots []catalog.ScanRoot, walk func(catalog.ScanRoot) []walker.FileEntry) error

// run resolves the roots of category, tags logging with a scan id and
// records timing around fn. walk is handed to fn so every root walk is
// reported the same way.
func (s *Scanner) run(ctx context.Context, category catalog.Category, scope catalog.Scope, fn scanFunc) error {
	roots, err := s.catalog.Roots(category, scope)
	if err != nil {
		s.progress.Publish(&progress.RootProgress{
			Category:  string(category),
			Phase:     progress.PhaseError,
			StartTime: time.Now(),
			Error:     err,
		})
		return err
	}

	scanID := uuid.NewString()
	logger := s.logger.WithFields(logrus.Fields{
		"category": category,
		"scope":    scope.String(),
		"scan_id":  scanID,
	})

	started := time.Now()
	logger.WithField("roots", len(roots)).Debug("Starting scan")

	walk := func(root catalog.ScanRoot) []walker.FileEntry {
		return s.walkRoot(scanID, category, root, logger)
	}
	if err := fn(ctx, roots, walk); err != nil {
		logger.WithError(err).Warning("Scan aborted")
		return err
	}

	s.metrics.ObserveScan(string(category), scope.String(), started)
	logger.WithField("duration", time.Since(started)).Debug("Scan finished")
	return nil
}

func (s *Scanner) walkRoot(scanID string, category catalog.Category, root catalog.ScanRoot, logger logrus.FieldLogger) []walker.FileEntry {
	started := time.Now()
	s.progress.Publish(&progress.RootProgress{
		ScanID:    scanID,
		Category:  string(category),
		Root:      root.Path,
		Phase:     progress.PhaseScanning,
		StartTime: started,
	})

	entries, stats := s.walker.Collect(root)

	total := lo.SumBy(entries, func(e walker.FileEntry) uint64 { return e.Size })
	s.metrics.ObserveRoot(string(category), stats.Emitted, stats.SoftFailures, stats.Truncated)
	s.progress.Publish(&progress.RootProgress{
		ScanID:       scanID,
		Category:     string(category),
		Root:         root.Path,
		Phase:        progress.PhaseComplete,
		FilesFound:   stats.Emitted,
		TotalSize:    total,
		SoftFailures: stats.SoftFailures,
		Truncated:    stats.Truncated,
		StartTime:    started,
	})

	logger.WithFields(logrus.Fields{
		"root":          root.Path,
		"visited":       stats.Visited,
		"emitted":       stats.Emitted,
		"soft_failures": stats.SoftFailures,
		"truncated":     stats.Truncated,
	}).Debug("Walked scan root")

	return entries
}
