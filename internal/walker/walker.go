// Package walker performs bounded depth-first traversal of one scan root.
package walker

import (
	"iter"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fenilsonani/diskscope/internal/catalog"
	"github.com/fenilsonani/diskscope/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// FileEntry is a regular file found during a walk, with the metadata read
// from its directory listing.
type FileEntry struct {
	Path    string
	Name    string
	Size    uint64
	ModTime time.Time
	Depth   int
}

// Stats describes what a walk did
type Stats struct {
	Visited      int  // directory entries listed, of any type
	Emitted      int  // regular files handed downstream
	SoftFailures int  // directories that could not be read
	Truncated    bool // the entry cap stopped the walk
}

// Walker lists regular files below a root. Symlinks are never followed,
// so link cycles cannot occur.
type Walker struct {
	fs       afero.Fs
	excludes []string
	logger   logrus.FieldLogger
}

// Option configures a Walker
type Option func(*Walker)

// WithExcludes skips files and prunes directories matching any glob. A
// pattern is tried against the base name, the root-relative path and the
// absolute path.
func WithExcludes(patterns []string) Option {
	return func(w *Walker) {
		w.excludes = append(w.excludes, patterns...)
	}
}

// WithLogger sets the logger soft failures are reported to
func WithLogger(logger logrus.FieldLogger) Option {
	return func(w *Walker) {
		w.logger = logger
	}
}

// New creates a Walker over fs
func New(fs afero.Fs, opts ...Option) *Walker {
	w := &Walker{fs: fs}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.OrDiscard(w.logger)
	return w
}

// Walk lazily yields the regular files of root, depth-first, stopping after
// root.MaxEntries files (when non-zero) and never below root.MaxDepth.
func (w *Walker) Walk(root catalog.ScanRoot) iter.Seq[FileEntry] {
	return func(yield func(FileEntry) bool) {
		w.walk(root, yield, &Stats{})
	}
}

// Collect materialises a walk into a slice bounded by the entry cap
func (w *Walker) Collect(root catalog.ScanRoot) ([]FileEntry, Stats) {
	var (
		stats   Stats
		entries []FileEntry
	)
	if root.MaxEntries > 0 {
		entries = make([]FileEntry, 0, min(root.MaxEntries, 1024))
	}

	w.walk(root, func(e FileEntry) bool {
		entries = append(entries, e)
		return true
	}, &stats)

	return entries, stats
}

type frame struct {
	path  string
	depth int
}

func (w *Walker) walk(root catalog.ScanRoot, yield func(FileEntry) bool, stats *Stats) {
	if root.MaxDepth < 1 {
		return
	}

	logger := w.logger.WithField("root", root.Path)

	// The root itself may be a symlink to a directory; follow only that one.
	info, err := w.fs.Stat(root.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			stats.SoftFailures++
			logger.WithError(err).Debug("Skipping unreadable scan root")
		}
		return
	}
	if !info.IsDir() {
		return
	}

	stack := []frame{{path: root.Path, depth: 0}}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		infos, err := afero.ReadDir(w.fs, current.path)
		if err != nil {
			stats.SoftFailures++
			logger.WithError(err).WithField("path", current.path).Debug("Skipping unreadable directory")
			continue
		}

		depth := current.depth + 1
		var subdirs []string
		for _, fi := range infos {
			stats.Visited++
			path := filepath.Join(current.path, fi.Name())
			if w.excluded(root.Path, path) {
				continue
			}

			switch {
			case fi.IsDir():
				if depth < root.MaxDepth {
					subdirs = append(subdirs, path)
				}
			case fi.Mode().IsRegular():
				entry := FileEntry{
					Path:    path,
					Name:    fi.Name(),
					Size:    sizeOf(fi),
					ModTime: fi.ModTime(),
					Depth:   depth,
				}
				if !yield(entry) {
					return
				}
				stats.Emitted++
				if root.MaxEntries > 0 && stats.Emitted >= root.MaxEntries {
					stats.Truncated = true
					return
				}
			}
		}

		// Push in reverse so siblings are descended in name order.
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, frame{path: subdirs[i], depth: depth})
		}
	}
}

func (w *Walker) excluded(root, path string) bool {
	if len(w.excludes) == 0 {
		return false
	}

	candidates := []string{filepath.Base(path), path}
	if rel, err := filepath.Rel(root, path); err == nil {
		candidates = append(candidates, filepath.ToSlash(rel))
	}

	for _, pattern := range w.excludes {
		for _, candidate := range candidates {
			if ok, _ := doublestar.Match(pattern, candidate); ok {
				return true
			}
		}
	}
	return false
}

func sizeOf(fi os.FileInfo) uint64 {
	if fi.Size() < 0 {
		return 0
	}
	return uint64(fi.Size())
}
