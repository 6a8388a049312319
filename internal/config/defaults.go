package config

// GetDefault returns the default configuration
func GetDefault() *Config {
	return &Config{
		Scan: ScanConfig{
			Workers: 0,
			LogDir:  "",
		},
		Categories: CategoryLimits{
			Cache:             Limits{MaxDepth: 4, MaxEntries: 1000},
			CacheSummary:      Limits{MaxDepth: 4, MaxEntries: 2000},
			Trash:             Limits{MaxDepth: 1},
			TrashSummary:      Limits{MaxDepth: 1},
			Logs:              Limits{MaxDepth: 3, MaxEntries: 500},
			LogsSummary:       Limits{MaxDepth: 2, MaxEntries: 500},
			LargeFiles:        Limits{MaxDepth: 3},
			LargeFilesSummary: Limits{MaxDepth: 3},
		},
		LargeFiles: LargeFilesConfig{
			Threshold:  "100MiB",
			MaxResults: 200,
		},
		ExcludePatterns: []string{},
		ProtectedPaths:  []string{},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
