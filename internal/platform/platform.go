package platform

import (
	"errors"
	"os"
	"os/user"
	"runtime"
)

// Platform represents the operating system platform
type Platform string

const (
	MacOS   Platform = "darwin"
	Linux   Platform = "linux"
	Unknown Platform = "unknown"
)

var (
	ErrNoHomeDir  = errors.New("home directory not found")
	ErrNoCacheDir = errors.New("cache directory not found")
)

// Dirs resolves the per-user directories scans are rooted in.
// A failure from either method is fatal for any scan that depends on it.
type Dirs interface {
	HomeDir() (string, error)
	CacheDir() (string, error)
}

// Detect returns the current platform
func Detect() Platform {
	switch runtime.GOOS {
	case "darwin":
		return MacOS
	case "linux":
		return Linux
	default:
		return Unknown
	}
}

// System resolves directories from the running environment.
type System struct{}

// HomeDir returns $HOME, falling back to the passwd entry of the current user.
func (System) HomeDir() (string, error) {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home, nil
	}

	currentUser, err := user.Current()
	if err != nil || currentUser.HomeDir == "" {
		return "", ErrNoHomeDir
	}
	return currentUser.HomeDir, nil
}

// CacheDir returns the user's cache directory
func (s System) CacheDir() (string, error) {
	switch Detect() {
	case Linux:
		// Try XDG_CACHE_HOME first
		if cacheDir := os.Getenv("XDG_CACHE_HOME"); cacheDir != "" {
			return cacheDir, nil
		}
		home, err := s.HomeDir()
		if err != nil {
			return "", ErrNoCacheDir
		}
		return home + "/.cache", nil
	default:
		dir, err := os.UserCacheDir()
		if err != nil || dir == "" {
			return "", ErrNoCacheDir
		}
		return dir, nil
	}
}

// Static is a fixed set of directories. Empty fields resolve as missing.
type Static struct {
	Home  string
	Cache string
}

func (s Static) HomeDir() (string, error) {
	if s.Home == "" {
		return "", ErrNoHomeDir
	}
	return s.Home, nil
}

func (s Static) CacheDir() (string, error) {
	if s.Cache == "" {
		return "", ErrNoCacheDir
	}
	return s.Cache, nil
}

// Layout holds the home-relative directories a platform keeps user files in.
type Layout struct {
	// TrashFiles is the directory trashed files live in, relative to home.
	TrashFiles string
	// UserDirs are the folders searched for large files, relative to home.
	UserDirs []string
	// LogDir is the absolute system log directory.
	LogDir string
}

// DefaultLayout returns the layout for the current platform
func DefaultLayout() Layout {
	switch Detect() {
	case MacOS:
		return macOSLayout()
	default:
		return linuxLayout()
	}
}
