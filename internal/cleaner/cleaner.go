// Package cleaner removes files found by the scanner. Every target is
// validated before removal; batch failures never roll back earlier
// successes.
package cleaner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fenilsonani/diskscope/internal/catalog"
	"github.com/fenilsonani/diskscope/internal/executor"
	"github.com/fenilsonani/diskscope/internal/logging"
	"github.com/fenilsonani/diskscope/internal/metrics"
	"github.com/fenilsonani/diskscope/internal/progress"
	"github.com/fenilsonani/diskscope/internal/response"
	"github.com/fenilsonani/diskscope/internal/scanner"
	"github.com/fenilsonani/diskscope/internal/security"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

var defaultRetryDelays = []time.Duration{100 * time.Millisecond, 500 * time.Millisecond}

// CleanResult collects the outcome of removing a batch of paths
type CleanResult struct {
	Cleared []string
	Errors  []*DeletionError
}

// Err joins every failure as "path: reason; path: reason", or returns nil
func (r *CleanResult) Err() error {
	var merr *multierror.Error
	for _, e := range r.Errors {
		merr = multierror.Append(merr, e)
	}
	if merr != nil {
		merr.ErrorFormat = joinErrors
	}
	return merr.ErrorOrNil()
}

func joinErrors(errs []error) string {
	return strings.Join(lo.Map(errs, func(err error, _ int) string {
		return err.Error()
	}), "; ")
}

// Cleaner performs clear operations and reports them as response envelopes
type Cleaner struct {
	fs          afero.Fs
	catalog     *catalog.Catalog
	scanner     *scanner.Scanner
	runner      executor.Runner
	validator   *security.PathValidator
	metrics     *metrics.Collector
	progress    *progress.Reporter
	logger      logrus.FieldLogger
	retryDelays []time.Duration
}

// Option configures a Cleaner
type Option func(*Cleaner)

func WithValidator(v *security.PathValidator) Option {
	return func(c *Cleaner) { c.validator = v }
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Cleaner) { c.logger = logger }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(c *Cleaner) { c.metrics = m }
}

func WithProgress(r *progress.Reporter) Option {
	return func(c *Cleaner) { c.progress = r }
}

// WithRetryDelays sets the waits between attempts to remove a busy file.
// An empty slice disables retries.
func WithRetryDelays(delays []time.Duration) Option {
	return func(c *Cleaner) { c.retryDelays = delays }
}

// New creates a Cleaner. The scanner is used by the clear-all operations;
// the runner executes elevated log removal.
func New(cat *catalog.Catalog, scan *scanner.Scanner, fs afero.Fs, runner executor.Runner, opts ...Option) *Cleaner {
	c := &Cleaner{
		fs:          fs,
		catalog:     cat,
		scanner:     scan,
		runner:      runner,
		validator:   security.NewPathValidator(),
		retryDelays: defaultRetryDelays,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDiscard(c.logger)
	return c
}

// =============================================================================
// Selected paths
// =============================================================================

func (c *Cleaner) ClearSelectedCache(ctx context.Context, paths []string) response.Envelope {
	return c.clearSelected(ctx, catalog.Cache, paths)
}

func (c *Cleaner) ClearSelectedTrash(ctx context.Context, paths []string) response.Envelope {
	return c.clearSelected(ctx, catalog.Trash, paths)
}

func (c *Cleaner) ClearSelectedLargeFiles(ctx context.Context, paths []string) response.Envelope {
	return c.clearSelected(ctx, catalog.LargeFiles, paths)
}

// ClearSelected dispatches to the clear-selected operation of category
func (c *Cleaner) ClearSelected(ctx context.Context, category catalog.Category, paths []string) response.Envelope {
	switch category {
	case catalog.Cache, catalog.Trash, catalog.LargeFiles:
		return c.clearSelected(ctx, category, paths)
	case catalog.Logs:
		return c.ClearSelectedLogs(ctx, paths)
	}
	return response.Errorf("Unknown category: %s", category)
}

func (c *Cleaner) clearSelected(ctx context.Context, category catalog.Category, paths []string) response.Envelope {
	result := c.remove(ctx, category, paths)
	if err := result.Err(); err != nil {
		return response.Errorf("Cleared %d files, failed on: %s", len(result.Cleared), err)
	}
	return response.Success(fmt.Sprintf("Successfully cleared %d %s files", len(result.Cleared), displayName(category)), nil)
}

// ClearSelectedLogs removes log files with a single elevated rm
func (c *Cleaner) ClearSelectedLogs(ctx context.Context, paths []string) response.Envelope {
	if len(paths) == 0 {
		return response.Success("No log files selected", nil)
	}

	if err := c.validateAll(catalog.Logs, paths); err != nil {
		return response.Errorf("Failed to clear log files: %s", err)
	}

	res, err := c.removeElevated(ctx, paths)
	if err != nil {
		return response.Errorf("Failed to run pkexec: %v", err)
	}
	if !res.Success() {
		return response.Errorf("Failed to clear log files: %s", strings.TrimSpace(res.Stderr))
	}
	return response.Success(fmt.Sprintf("Successfully cleared %d log files", len(paths)), nil)
}

// =============================================================================
// Whole categories
// =============================================================================

// ClearAll dispatches to the clear-all operation of category
func (c *Cleaner) ClearAll(ctx context.Context, category catalog.Category) response.Envelope {
	switch category {
	case catalog.Cache:
		return c.ClearCache(ctx)
	case catalog.Trash:
		return c.ClearTrash(ctx)
	case catalog.Logs:
		return c.ClearAllLogs(ctx)
	case catalog.LargeFiles:
		return c.ClearAllLargeFiles(ctx)
	}
	return response.Errorf("Unknown category: %s", category)
}

// ClearTrash removes every top-level non-directory entry of the trash and
// stops at the first failure.
func (c *Cleaner) ClearTrash(ctx context.Context) response.Envelope {
	dir, err := c.rootDir(catalog.Trash)
	if err != nil {
		return response.Errorf("Failed to read trash: %v", err)
	}

	infos, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		return response.Errorf("Failed to read trash: %s", cause(err))
	}

	var paths []string
	for _, fi := range infos {
		if !fi.IsDir() {
			paths = append(paths, filepath.Join(dir, fi.Name()))
		}
	}

	result := c.removeUntilFailure(ctx, catalog.Trash, paths)
	if len(result.Errors) > 0 {
		failed := result.Errors[0]
		return response.Errorf("Failed to remove %s: %s", failed.Path, cause(failed.Original))
	}
	return response.Success("Trash cleared successfully", nil)
}

// ClearCache empties the cache directory, leaving the directory itself in
// place.
func (c *Cleaner) ClearCache(ctx context.Context) response.Envelope {
	dir, err := c.rootDir(catalog.Cache)
	if err != nil {
		return response.Errorf("Failed to clear cache directory: %v", err)
	}

	if exists, _ := afero.DirExists(c.fs, dir); !exists {
		return response.Info("No cache to clear", nil)
	}

	infos, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		return response.Errorf("Failed to clear cache directory: %s", cause(err))
	}

	start := time.Now()
	cleared := 0
	for _, fi := range infos {
		if err := ctx.Err(); err != nil {
			return response.Errorf("Failed to clear cache directory: %v", err)
		}

		path := filepath.Join(dir, fi.Name())
		if err := c.validate(catalog.Cache, path); err != nil {
			c.metrics.ObserveClear(string(catalog.Cache), cleared, 1)
			return response.Errorf("Failed to clear cache directory: %s", InvalidPath(path, err))
		}
		if err := c.fs.RemoveAll(path); err != nil {
			c.metrics.ObserveClear(string(catalog.Cache), cleared, 1)
			return response.Errorf("Failed to clear cache directory: %s", CategorizeError(path, err))
		}
		cleared++
		c.publish(catalog.Cache, progress.ClearProgress{Phase: progress.PhaseCleaning, CurrentFile: path, Cleared: cleared, Total: len(infos), StartTime: start})
	}

	if err := c.fs.MkdirAll(dir, 0o755); err != nil {
		c.logger.WithError(err).WithField("path", dir).Warning("Failed to recreate cache directory")
	}

	c.metrics.ObserveClear(string(catalog.Cache), cleared, 0)
	c.publish(catalog.Cache, progress.ClearProgress{Phase: progress.PhaseComplete, Cleared: cleared, Total: len(infos), StartTime: start})
	return response.Success("Cache directory cleared successfully", nil)
}

// ClearAllLogs scans the log root and removes every file found with one
// elevated rm. The payload is the number of files cleared.
func (c *Cleaner) ClearAllLogs(ctx context.Context) response.Envelope {
	logs, err := c.scanner.ScanLogs(ctx)
	if err != nil {
		return response.Errorf("Failed to scan logs: %v", err)
	}
	if len(logs) == 0 {
		return response.Success("No log files found to clear", response.Count(0))
	}

	paths := lo.Map(logs, func(f scanner.LogFile, _ int) string { return f.Path })
	if err := c.validateAll(catalog.Logs, paths); err != nil {
		return response.Errorf("Failed to clear logs: %s", err)
	}

	res, err := c.removeElevated(ctx, paths)
	if err != nil {
		return response.Errorf("Failed to run pkexec: %v", err)
	}
	if !res.Success() {
		return response.Errorf("Failed to clear logs: %s", strings.TrimSpace(res.Stderr))
	}
	return response.Success(fmt.Sprintf("Cleared %d log files", len(paths)), response.Count(len(paths)))
}

// ClearAllLargeFiles removes every large file the scanner reports. Files
// that cannot be removed are logged and left out of the count.
func (c *Cleaner) ClearAllLargeFiles(ctx context.Context) response.Envelope {
	files, err := c.scanner.ScanLargeFiles(ctx)
	if err != nil {
		return response.Errorf("Failed to scan large files: %v", err)
	}

	paths := lo.Map(files, func(f scanner.LargeFile, _ int) string { return f.Path })
	result := c.remove(ctx, catalog.LargeFiles, paths)
	for _, e := range result.Errors {
		c.logger.WithField("path", e.Path).WithError(e.Original).Warning(e.UserMessage())
	}
	for reason, errs := range GroupErrors(result.Errors) {
		c.logger.WithFields(logrus.Fields{
			"reason": reason.String(),
			"count":  len(errs),
		}).Warning("Large files left in place")
	}

	n := len(result.Cleared)
	return response.Success(fmt.Sprintf("Cleared %d large files", n), response.Count(n))
}

// =============================================================================
// Removal
// =============================================================================

// remove validates and removes every path, continuing past failures
func (c *Cleaner) remove(ctx context.Context, category catalog.Category, paths []string) *CleanResult {
	return c.removeEach(ctx, category, paths, false)
}

func (c *Cleaner) removeUntilFailure(ctx context.Context, category catalog.Category, paths []string) *CleanResult {
	return c.removeEach(ctx, category, paths, true)
}

func (c *Cleaner) removeEach(ctx context.Context, category catalog.Category, paths []string, stopOnFailure bool) *CleanResult {
	result := &CleanResult{}
	start := time.Now()
	logger := c.logger.WithField("category", category)

	c.publish(category, progress.ClearProgress{Phase: progress.PhaseCleaning, Total: len(paths), StartTime: start})
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, &DeletionError{Path: path, Reason: ErrorUnknown, Original: err})
			break
		}

		if delErr := c.removeWithRetry(ctx, category, path); delErr != nil {
			logger.WithField("path", path).WithError(delErr.Original).Debug("Removal failed")
			result.Errors = append(result.Errors, delErr)
			if stopOnFailure {
				break
			}
		} else {
			result.Cleared = append(result.Cleared, path)
		}
		c.publish(category, progress.ClearProgress{Phase: progress.PhaseCleaning, CurrentFile: path, Cleared: len(result.Cleared), Failed: len(result.Errors), Total: len(paths), StartTime: start})
	}

	c.metrics.ObserveClear(string(category), len(result.Cleared), len(result.Errors))
	c.publish(category, progress.ClearProgress{Phase: progress.PhaseComplete, Cleared: len(result.Cleared), Failed: len(result.Errors), Total: len(paths), StartTime: start})
	logger.WithFields(logrus.Fields{
		"cleared": len(result.Cleared),
		"failed":  len(result.Errors),
	}).Info("Clear finished")

	return result
}

// removeWithRetry removes one regular file, retrying while it is busy
func (c *Cleaner) removeWithRetry(ctx context.Context, category catalog.Category, path string) *DeletionError {
	if err := c.validate(category, path); err != nil {
		return InvalidPath(path, err)
	}

	var lastErr *DeletionError
	for attempt := 0; ; attempt++ {
		lastErr = c.removeFile(path)
		if lastErr == nil || !lastErr.Retryable || attempt >= len(c.retryDelays) {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(c.retryDelays[attempt]):
		}
	}
}

func (c *Cleaner) removeFile(path string) *DeletionError {
	if isDir, err := afero.IsDir(c.fs, path); err == nil && isDir {
		return CategorizeError(path, syscall.EISDIR)
	}
	return CategorizeError(path, c.fs.Remove(path))
}

func (c *Cleaner) removeElevated(ctx context.Context, paths []string) (*executor.Result, error) {
	cmd := executor.Command{
		Program:  "rm",
		Args:     append([]string{"-f", "--"}, paths...),
		Elevated: true,
	}

	start := time.Now()
	c.publish(catalog.Logs, progress.ClearProgress{Phase: progress.PhaseCleaning, Total: len(paths), UsingPkexec: true, StartTime: start})
	c.logger.WithFields(logrus.Fields{
		"category": catalog.Logs,
		"files":    len(paths),
	}).Info("Running elevated removal")

	res, err := c.runner.Run(ctx, cmd)
	switch {
	case err != nil:
		c.metrics.ObserveClear(string(catalog.Logs), 0, len(paths))
		c.publish(catalog.Logs, progress.ClearProgress{Phase: progress.PhaseError, Failed: len(paths), Total: len(paths), UsingPkexec: true, StartTime: start, Error: err})
	case !res.Success():
		c.metrics.ObserveClear(string(catalog.Logs), 0, len(paths))
		c.publish(catalog.Logs, progress.ClearProgress{
			Phase:       progress.PhaseError,
			Failed:      len(paths),
			Total:       len(paths),
			UsingPkexec: true,
			StartTime:   start,
			Error:       fmt.Errorf("%s exited with status %d", cmd.Program, res.ExitCode),
		})
	default:
		c.metrics.ObserveClear(string(catalog.Logs), len(paths), 0)
		c.publish(catalog.Logs, progress.ClearProgress{Phase: progress.PhaseComplete, Cleared: len(paths), Total: len(paths), UsingPkexec: true, StartTime: start})
	}
	return res, err
}

// =============================================================================
// Validation
// =============================================================================

var errOutsideRoots = errors.New("path is outside the category's scan roots")

// validate accepts a path the validator allows that lies strictly inside one
// of the category's roots.
func (c *Cleaner) validate(category catalog.Category, path string) error {
	if err := c.validator.ValidatePathForDeletion(path); err != nil {
		return err
	}

	roots, err := c.catalog.Roots(category, catalog.List)
	if err != nil {
		return err
	}
	for _, root := range roots {
		rel, err := filepath.Rel(filepath.Clean(root.Path), path)
		if err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}
	return errOutsideRoots
}

func (c *Cleaner) validateAll(category catalog.Category, paths []string) error {
	result := &CleanResult{}
	for _, path := range paths {
		if err := c.validate(category, path); err != nil {
			result.Errors = append(result.Errors, InvalidPath(path, err))
		}
	}
	return result.Err()
}

func (c *Cleaner) rootDir(category catalog.Category) (string, error) {
	roots, err := c.catalog.Roots(category, catalog.List)
	if err != nil {
		return "", err
	}
	if len(roots) == 0 {
		return "", fmt.Errorf("no %s directory configured", category)
	}
	return roots[0].Path, nil
}

func (c *Cleaner) publish(category catalog.Category, p progress.ClearProgress) {
	p.Category = displayName(category)
	c.progress.Publish(&p)
}

func displayName(category catalog.Category) string {
	if category == catalog.LargeFiles {
		return "large"
	}
	return string(category)
}
