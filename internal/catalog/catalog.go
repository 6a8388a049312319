// Package catalog declares, per scan category, which directory trees are
// searched and how deep and how far each traversal may go.
package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fenilsonani/diskscope/internal/config"
	"github.com/fenilsonani/diskscope/internal/platform"
)

// Category names a family of files a scan looks for
type Category string

const (
	Cache      Category = "cache"
	Trash      Category = "trash"
	Logs       Category = "logs"
	LargeFiles Category = "large_files"
)

// Scope selects between the listing and the summarising variant of a category
type Scope int

const (
	List Scope = iota
	Summary
)

func (s Scope) String() string {
	if s == Summary {
		return "summary"
	}
	return "list"
}

var ErrUnknownCategory = errors.New("unknown category")

// Categories returns every category in display order
func Categories() []Category {
	return []Category{Cache, Trash, Logs, LargeFiles}
}

// ParseCategory accepts a category name, tolerating dashes and case
func ParseCategory(name string) (Category, error) {
	normalized := Category(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_"))
	for _, c := range Categories() {
		if c == normalized {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// ScanRoot is one directory tree to walk with its traversal bounds.
// MaxEntries of 0 leaves the walk uncapped.
type ScanRoot struct {
	Path       string
	MaxDepth   int
	MaxEntries int
}

// Catalog resolves ScanRoots from configuration and the host's directories
type Catalog struct {
	cfg    *config.Config
	dirs   platform.Dirs
	layout platform.Layout
}

// New creates a Catalog
func New(cfg *config.Config, dirs platform.Dirs, layout platform.Layout) *Catalog {
	return &Catalog{cfg: cfg, dirs: dirs, layout: layout}
}

// Roots returns the roots for a category. A root directory that cannot be
// resolved at all (no home, no cache dir) is an error; a resolved root that
// does not exist on disk is returned and scans as empty.
func (c *Catalog) Roots(category Category, scope Scope) ([]ScanRoot, error) {
	limits, err := c.limits(category, scope)
	if err != nil {
		return nil, err
	}

	paths, err := c.paths(category)
	if err != nil {
		return nil, fmt.Errorf("resolve %s roots: %w", category, err)
	}

	roots := make([]ScanRoot, 0, len(paths))
	for _, p := range paths {
		roots = append(roots, ScanRoot{
			Path:       p,
			MaxDepth:   limits.MaxDepth,
			MaxEntries: limits.MaxEntries,
		})
	}
	return roots, nil
}

// Threshold returns the large file size bound in bytes
func (c *Catalog) Threshold() uint64 {
	n, err := c.cfg.ThresholdBytes()
	if err != nil {
		// Validate rejects unparsable thresholds before a Catalog is built.
		return 100 * 1024 * 1024
	}
	return n
}

// ResultCap returns the maximum length of a ranked list, 0 for none.
// Only large files are re-ranked.
func (c *Catalog) ResultCap(category Category) int {
	if category == LargeFiles {
		return c.cfg.LargeFiles.MaxResults
	}
	return 0
}

func (c *Catalog) limits(category Category, scope Scope) (config.Limits, error) {
	l := c.cfg.Categories
	switch {
	case category == Cache && scope == List:
		return l.Cache, nil
	case category == Cache:
		return l.CacheSummary, nil
	case category == Trash && scope == List:
		return l.Trash, nil
	case category == Trash:
		return l.TrashSummary, nil
	case category == Logs && scope == List:
		return l.Logs, nil
	case category == Logs:
		return l.LogsSummary, nil
	case category == LargeFiles && scope == List:
		return l.LargeFiles, nil
	case category == LargeFiles:
		return l.LargeFilesSummary, nil
	}
	return config.Limits{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
}

func (c *Catalog) paths(category Category) ([]string, error) {
	switch category {
	case Cache:
		dir, err := c.dirs.CacheDir()
		if err != nil {
			return nil, err
		}
		return []string{dir}, nil

	case Trash:
		home, err := c.dirs.HomeDir()
		if err != nil {
			return nil, err
		}
		return []string{filepath.Join(home, c.layout.TrashFiles)}, nil

	case Logs:
		if c.cfg.Scan.LogDir != "" {
			return []string{c.cfg.Scan.LogDir}, nil
		}
		return []string{c.layout.LogDir}, nil

	case LargeFiles:
		home, err := c.dirs.HomeDir()
		if err != nil {
			return nil, err
		}
		rel := c.cfg.LargeFiles.Dirs
		if len(rel) == 0 {
			rel = c.layout.UserDirs
		}
		paths := make([]string, 0, len(rel))
		for _, r := range rel {
			paths = append(paths, filepath.Join(home, r))
		}
		return paths, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
}
