// Package testutil provides fixtures for diskscope tests.
// All on-disk fixtures live under t.TempDir().
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/fenilsonani/diskscope/internal/config"
	"github.com/fenilsonani/diskscope/internal/platform"
	"github.com/spf13/afero"
)

// MiB is one mebibyte
const MiB = 1024 * 1024

// TestFixture is a fake home directory with the layout the scanners expect
type TestFixture struct {
	T       *testing.T
	RootDir string

	HomeDir  string
	CacheDir string
	TrashDir string
	LogDir   string
}

// NewFixture creates an isolated home, cache, trash and log tree
func NewFixture(t *testing.T) *TestFixture {
	t.Helper()

	root := t.TempDir()
	f := &TestFixture{
		T:        t,
		RootDir:  root,
		HomeDir:  filepath.Join(root, "home"),
		CacheDir: filepath.Join(root, "home", ".cache"),
		TrashDir: filepath.Join(root, "home", ".local", "share", "Trash", "files"),
		LogDir:   filepath.Join(root, "var", "log"),
	}

	for _, dir := range []string{f.HomeDir, f.CacheDir, f.TrashDir, f.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}

	return f
}

// Dirs returns a directory resolver pointing into the fixture
func (f *TestFixture) Dirs() platform.Dirs {
	return platform.Static{Home: f.HomeDir, Cache: f.CacheDir}
}

// Layout returns the fixture's platform layout with an absolute log root
func (f *TestFixture) Layout() platform.Layout {
	return platform.Layout{
		TrashFiles: filepath.Join(".local", "share", "Trash", "files"),
		UserDirs:   []string{"Downloads", "Documents", "Videos", "Pictures", "Desktop"},
		LogDir:     f.LogDir,
	}
}

// Config returns the default configuration with the log root moved into the fixture
func (f *TestFixture) Config() *config.Config {
	cfg := config.GetDefault()
	cfg.Scan.LogDir = f.LogDir
	return cfg
}

// =============================================================================
// File Creation Helpers
// =============================================================================

// CreateFile creates a file below the fixture root and returns its path
func (f *TestFixture) CreateFile(relPath string, content []byte) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		f.T.Fatalf("failed to create directory for %s: %v", fullPath, err)
	}
	if err := os.WriteFile(fullPath, content, 0o644); err != nil {
		f.T.Fatalf("failed to create file %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateSizedFile creates a sparse file of exactly size bytes
func (f *TestFixture) CreateSizedFile(relPath string, size int64) string {
	f.T.Helper()

	fullPath := f.CreateFile(relPath, nil)
	if err := os.Truncate(fullPath, size); err != nil {
		f.T.Fatalf("failed to size file %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateFileWithAge creates a file and moves its modification time into the past
func (f *TestFixture) CreateFileWithAge(relPath string, content []byte, age time.Duration) string {
	f.T.Helper()

	fullPath := f.CreateFile(relPath, content)
	old := time.Now().Add(-age)
	if err := os.Chtimes(fullPath, old, old); err != nil {
		f.T.Fatalf("failed to set file time for %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateDir creates a directory below the fixture root
func (f *TestFixture) CreateDir(relPath string) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	if err := os.MkdirAll(fullPath, 0o755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateSymlink creates linkPath (relative to the root) pointing at target
func (f *TestFixture) CreateSymlink(target, linkPath string) string {
	f.T.Helper()

	fullLinkPath := filepath.Join(f.RootDir, linkPath)
	if err := os.MkdirAll(filepath.Dir(fullLinkPath), 0o755); err != nil {
		f.T.Fatalf("failed to create directory for %s: %v", fullLinkPath, err)
	}
	if err := os.Symlink(target, fullLinkPath); err != nil {
		f.T.Fatalf("failed to create symlink %s -> %s: %v", fullLinkPath, target, err)
	}

	return fullLinkPath
}

// CreateUnreadableDir creates a directory holding one file and then removes
// every permission bit from it. Permissions are restored on cleanup.
func (f *TestFixture) CreateUnreadableDir(relPath string) string {
	f.T.Helper()
	SkipIfPrivileged(f.T)

	dirPath := f.CreateDir(relPath)
	f.CreateFile(filepath.Join(relPath, "hidden.txt"), []byte("hidden"))
	if err := os.Chmod(dirPath, 0o000); err != nil {
		f.T.Fatalf("failed to chmod directory %s: %v", dirPath, err)
	}
	f.T.Cleanup(func() {
		_ = os.Chmod(dirPath, 0o755)
	})

	return dirPath
}

// CreateReadOnlyDir creates a directory whose entries cannot be removed
func (f *TestFixture) CreateReadOnlyDir(relPath string) string {
	f.T.Helper()
	SkipIfPrivileged(f.T)

	dirPath := f.CreateDir(relPath)
	f.T.Cleanup(func() {
		_ = os.Chmod(dirPath, 0o755)
	})

	return dirPath
}

// Lock removes write permission from dir so its entries cannot be unlinked
func (f *TestFixture) Lock(dir string) {
	f.T.Helper()
	if err := os.Chmod(dir, 0o555); err != nil {
		f.T.Fatalf("failed to chmod directory %s: %v", dir, err)
	}
}

// Path returns the absolute path of relPath inside the fixture
func (f *TestFixture) Path(relPath string) string {
	return filepath.Join(f.RootDir, relPath)
}

// =============================================================================
// Assertion Helpers
// =============================================================================

// FileExists reports whether path exists without following a final symlink
func (f *TestFixture) FileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// AssertFileExists fails the test if path does not exist
func (f *TestFixture) AssertFileExists(path string) {
	f.T.Helper()
	if !f.FileExists(path) {
		f.T.Errorf("expected file to exist: %s", path)
	}
}

// AssertFileNotExists fails the test if path exists
func (f *TestFixture) AssertFileNotExists(path string) {
	f.T.Helper()
	if f.FileExists(path) {
		f.T.Errorf("expected file to not exist: %s", path)
	}
}

// =============================================================================
// In-memory Helpers
// =============================================================================

// MemFS builds an in-memory filesystem holding files of the given sizes
func MemFS(t *testing.T, files map[string]int64) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	for path, size := range files {
		WriteMemFile(t, fs, path, size)
	}
	return fs
}

// WriteMemFile adds a zero-filled file of size bytes to fs
func WriteMemFile(t *testing.T, fs afero.Fs, path string, size int64) {
	t.Helper()

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := afero.WriteFile(fs, path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("failed to create file %s: %v", path, err)
	}
}

// =============================================================================
// Skip Helpers
// =============================================================================

// SkipIfPrivileged skips tests that rely on permission bits being enforced
func SkipIfPrivileged(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("permission checks are bypassed when running as root")
	}
}

// SkipIfNotUnix skips tests that need unix filesystem semantics
func SkipIfNotUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires unix filesystem semantics")
	}
}
