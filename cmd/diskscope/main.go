package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "diskscope",
	Short: "Find and clear disk space used by caches, trash, logs and large files",
	Long: `diskscope scans the user cache, the trash, the system logs and the user
folders, reports what it found, and clears selected files or whole categories.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file path (.yaml or .toml)")
	flags.String("output", "summary", "output format (summary, table, json, yaml)")
	flags.Int("workers", 0, "filter/reduce workers (0 uses GOMAXPROCS)")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")
	flags.Bool("verbose", false, "print per-root progress to stderr")
	flags.Bool("metrics", false, "dump Prometheus metrics to stderr on exit")

	for _, name := range []string{"config", "output", "workers", "log-level", "log-format", "verbose", "metrics"} {
		viper.BindPFlag(name, flags.Lookup(name))
	}
}

func initConfig() {
	viper.SetEnvPrefix("DISKSCOPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
