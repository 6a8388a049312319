// Package reducer filters and reduces walked entries on a bounded worker
// pool. Each worker owns a private partial result; partials are merged only
// after every worker has finished.
package reducer

import (
	"context"
	"os"
	"runtime"

	"github.com/fenilsonani/diskscope/internal/logging"
	"github.com/fenilsonani/diskscope/internal/walker"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
)

// Summary is the aggregate of a set of files. The zero value is the
// identity of Add.
type Summary struct {
	TotalSize uint64 `json:"totalSize" yaml:"totalSize"`
	FileCount uint64 `json:"fileCount" yaml:"fileCount"`
}

// Add combines two summaries pointwise
func (s Summary) Add(other Summary) Summary {
	return Summary{
		TotalSize: s.TotalSize + other.TotalSize,
		FileCount: s.FileCount + other.FileCount,
	}
}

// Reducer runs Collect and Aggregate passes
type Reducer struct {
	fs      afero.Fs
	workers int
	logger  logrus.FieldLogger
}

// Option configures a Reducer
type Option func(*Reducer)

// WithWorkers bounds the number of concurrent partitions. n <= 0 selects
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(r *Reducer) {
		r.workers = n
	}
}

// WithLogger sets the logger dropped entries are reported to
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Reducer) {
		r.logger = logger
	}
}

// New creates a Reducer that re-reads file metadata through fs
func New(fs afero.Fs, opts ...Option) *Reducer {
	r := &Reducer{fs: fs}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers <= 0 {
		r.workers = runtime.GOMAXPROCS(0)
	}
	r.logger = logging.OrDiscard(r.logger)
	return r
}

// Workers returns the partition bound in effect
func (r *Reducer) Workers() int {
	return r.workers
}

// Collect maps every entry that keep accepts into a record. The order of the
// result is unspecified.
func Collect[R any](ctx context.Context, r *Reducer, entries []walker.FileEntry, keep func(walker.FileEntry) (R, bool)) ([]R, error) {
	return forkJoin(ctx, r, entries,
		func(acc []R, e walker.FileEntry) []R {
			if rec, ok := keep(e); ok {
				acc = append(acc, rec)
			}
			return acc
		},
		func(a, b []R) []R { return append(a, b...) },
	)
}

// Aggregate sums size and count over the entries pred accepts
func (r *Reducer) Aggregate(ctx context.Context, entries []walker.FileEntry, pred func(walker.FileEntry) bool) (Summary, error) {
	return forkJoin(ctx, r, entries,
		func(acc Summary, e walker.FileEntry) Summary {
			if pred(e) {
				acc = acc.Add(Summary{TotalSize: e.Size, FileCount: 1})
			}
			return acc
		},
		Summary.Add,
	)
}

// forkJoin splits entries into at most r.workers contiguous partitions, folds
// each one with step starting from the zero P, and merges the partials.
func forkJoin[P any](ctx context.Context, r *Reducer, entries []walker.FileEntry, step func(P, walker.FileEntry) P, merge func(P, P) P) (P, error) {
	var result P
	if len(entries) == 0 {
		return result, ctx.Err()
	}

	size := (len(entries) + r.workers - 1) / r.workers
	partitions := lo.Chunk(entries, size)

	p := pool.NewWithResults[P]().WithContext(ctx).WithMaxGoroutines(len(partitions))
	for _, part := range partitions {
		p.Go(func(ctx context.Context) (P, error) {
			var partial P
			for _, e := range part {
				if err := ctx.Err(); err != nil {
					return partial, err
				}
				fresh, ok := r.refresh(e)
				if !ok {
					continue
				}
				partial = step(partial, fresh)
			}
			return partial, nil
		})
	}

	partials, err := p.Wait()
	if err != nil {
		return result, err
	}
	for _, partial := range partials {
		result = merge(result, partial)
	}
	return result, nil
}

// refresh re-reads the metadata of e. Entries that vanished or stopped being
// regular files since the walk are dropped.
func (r *Reducer) refresh(e walker.FileEntry) (walker.FileEntry, bool) {
	info, err := r.lstat(e.Path)
	if err != nil {
		r.logger.WithError(err).WithField("path", e.Path).Debug("Dropping entry with unreadable metadata")
		return e, false
	}
	if !info.Mode().IsRegular() {
		return e, false
	}

	e.ModTime = info.ModTime()
	e.Size = 0
	if info.Size() > 0 {
		e.Size = uint64(info.Size())
	}
	return e, true
}

func (r *Reducer) lstat(path string) (os.FileInfo, error) {
	if l, ok := r.fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return r.fs.Stat(path)
}
