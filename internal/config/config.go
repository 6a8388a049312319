package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fenilsonani/diskscope/internal/security"
	"github.com/fenilsonani/diskscope/pkg/utils"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Scan            ScanConfig       `yaml:"scan" toml:"scan"`
	Categories      CategoryLimits   `yaml:"categories" toml:"categories"`
	LargeFiles      LargeFilesConfig `yaml:"large_files" toml:"large_files"`
	ExcludePatterns []string         `yaml:"exclude_patterns" toml:"exclude_patterns"`
	ProtectedPaths  []string         `yaml:"protected_paths" toml:"protected_paths"`
	Log             LogConfig        `yaml:"log" toml:"log"`
}

// ScanConfig holds settings shared by every scan category
type ScanConfig struct {
	// Workers caps the filter/reduce worker pool. 0 means GOMAXPROCS.
	Workers int `yaml:"workers" toml:"workers"`
	// LogDir is the system log root scanned by the logs categories. Empty
	// uses the platform log directory.
	LogDir string `yaml:"log_dir" toml:"log_dir"`
}

// Limits bounds a single traversal. MaxEntries of 0 means uncapped.
type Limits struct {
	MaxDepth   int `yaml:"max_depth" toml:"max_depth"`
	MaxEntries int `yaml:"max_entries" toml:"max_entries"`
}

// CategoryLimits holds traversal limits for each list and summary category
type CategoryLimits struct {
	Cache             Limits `yaml:"cache" toml:"cache"`
	CacheSummary      Limits `yaml:"cache_summary" toml:"cache_summary"`
	Trash             Limits `yaml:"trash" toml:"trash"`
	TrashSummary      Limits `yaml:"trash_summary" toml:"trash_summary"`
	Logs              Limits `yaml:"logs" toml:"logs"`
	LogsSummary       Limits `yaml:"logs_summary" toml:"logs_summary"`
	LargeFiles        Limits `yaml:"large_files" toml:"large_files"`
	LargeFilesSummary Limits `yaml:"large_files_summary" toml:"large_files_summary"`
}

// LargeFilesConfig configures the large file search
type LargeFilesConfig struct {
	Threshold  string   `yaml:"threshold" toml:"threshold"` // e.g. "100MiB"; strictly greater is kept
	MaxResults int      `yaml:"max_results" toml:"max_results"`
	Dirs       []string `yaml:"dirs" toml:"dirs"` // relative to home; empty uses the platform defaults
}

// LogConfig configures the process logger
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// ThresholdBytes parses the large file threshold
func (c *Config) ThresholdBytes() (uint64, error) {
	n, err := utils.ParseSize(c.LargeFiles.Threshold)
	if err != nil {
		return 0, fmt.Errorf("invalid large file threshold: %w", err)
	}
	return n, nil
}

// Load loads configuration from a file. Values missing from the file keep
// their defaults; a missing file yields the defaults.
func Load(configPath string) (*Config, error) {
	config := GetDefault()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if isTOML(configPath) {
		err = toml.Unmarshal(data, config)
	} else {
		err = yaml.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save saves configuration to a file
func Save(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	defer file.Close()

	if isTOML(configPath) {
		err = toml.NewEncoder(file).Encode(config)
	} else {
		enc := yaml.NewEncoder(file)
		enc.SetIndent(2)
		err = enc.Encode(config)
		if err == nil {
			err = enc.Close()
		}
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Scan.Workers < 0 {
		return fmt.Errorf("workers must be >= 0")
	}
	if c.Scan.LogDir != "" && !filepath.IsAbs(c.Scan.LogDir) {
		return fmt.Errorf("log dir must be absolute: %q", c.Scan.LogDir)
	}

	limits := map[string]Limits{
		"cache":               c.Categories.Cache,
		"cache_summary":       c.Categories.CacheSummary,
		"trash":               c.Categories.Trash,
		"trash_summary":       c.Categories.TrashSummary,
		"logs":                c.Categories.Logs,
		"logs_summary":        c.Categories.LogsSummary,
		"large_files":         c.Categories.LargeFiles,
		"large_files_summary": c.Categories.LargeFilesSummary,
	}
	for name, l := range limits {
		if l.MaxDepth < 1 {
			return fmt.Errorf("%s max depth must be >= 1", name)
		}
		if l.MaxEntries < 0 {
			return fmt.Errorf("%s max entries must be >= 0", name)
		}
	}

	if _, err := c.ThresholdBytes(); err != nil {
		return err
	}
	if c.LargeFiles.MaxResults < 0 {
		return fmt.Errorf("large files max results must be >= 0")
	}
	for _, dir := range c.LargeFiles.Dirs {
		if filepath.IsAbs(dir) || strings.HasPrefix(filepath.Clean(dir), "..") {
			return fmt.Errorf("large files dir must be relative to home: %s", dir)
		}
	}

	for _, pattern := range c.ExcludePatterns {
		if err := security.ValidateGlobPattern(pattern); err != nil {
			return fmt.Errorf("invalid exclude pattern '%s': %w", pattern, err)
		}
	}

	for _, path := range c.ProtectedPaths {
		if !filepath.IsAbs(path) {
			return fmt.Errorf("protected path must be absolute: %s", path)
		}
	}

	return nil
}

// GetConfigPath returns the default config path
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".config", "diskscope", "config.yaml"), nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
