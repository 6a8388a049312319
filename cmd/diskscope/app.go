package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fenilsonani/diskscope/internal/catalog"
	"github.com/fenilsonani/diskscope/internal/cleaner"
	"github.com/fenilsonani/diskscope/internal/config"
	"github.com/fenilsonani/diskscope/internal/executor"
	"github.com/fenilsonani/diskscope/internal/logging"
	"github.com/fenilsonani/diskscope/internal/metrics"
	"github.com/fenilsonani/diskscope/internal/platform"
	"github.com/fenilsonani/diskscope/internal/progress"
	"github.com/fenilsonani/diskscope/internal/reporter"
	"github.com/fenilsonani/diskscope/internal/response"
	"github.com/fenilsonani/diskscope/internal/scanner"
	"github.com/fenilsonani/diskscope/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app holds the components shared by every command
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	fs       afero.Fs
	catalog  *catalog.Catalog
	scanner  *scanner.Scanner
	service  *scanner.Service
	cleaner  *cleaner.Cleaner
	reporter *reporter.Reporter
	progress *progress.Reporter
	metrics  *metrics.Collector
	registry *prometheus.Registry
	stderr   io.Writer

	printing sync.WaitGroup
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if viper.IsSet("workers") {
		cfg.Scan.Workers = viper.GetInt("workers")
	}
	if level := viper.GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format := viper.GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	format, err := reporter.ParseFormat(viper.GetString("output"))
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		fs:       afero.NewOsFs(),
		reporter: reporter.New(cmd.OutOrStdout(), format),
		progress: progress.NewReporter(),
		metrics:  metrics.NewCollector(),
		registry: prometheus.NewRegistry(),
		stderr:   cmd.ErrOrStderr(),
	}
	a.registry.MustRegister(a.metrics)

	layout := platform.DefaultLayout()
	a.catalog = catalog.New(cfg, platform.System{}, layout)

	a.scanner = scanner.New(a.catalog, a.fs,
		scanner.WithWorkers(cfg.Scan.Workers),
		scanner.WithExcludes(cfg.ExcludePatterns),
		scanner.WithLogger(logger),
		scanner.WithMetrics(a.metrics),
		scanner.WithProgress(a.progress),
	)
	a.service = scanner.NewService(a.scanner)

	validator := security.NewPathValidator()
	for _, path := range cfg.ProtectedPaths {
		validator.AddProtectedPath(path)
	}
	a.cleaner = cleaner.New(a.catalog, a.scanner, a.fs, executor.System{},
		cleaner.WithValidator(validator),
		cleaner.WithLogger(logger),
		cleaner.WithMetrics(a.metrics),
		cleaner.WithProgress(a.progress),
	)

	if viper.GetBool("verbose") {
		a.printProgress()
	}

	logger.WithField("platform", platform.Detect()).Debug("diskscope initialized")
	return a, nil
}

// printProgress echoes progress events to stderr until close
func (a *app) printProgress() {
	events := a.progress.Subscribe()
	a.printing.Add(1)
	go func() {
		defer a.printing.Done()
		for ev := range events {
			fmt.Fprintln(a.stderr, progress.Format(ev))
		}
	}()
}

// report renders env and turns an error envelope into a command error
func (a *app) report(env response.Envelope) error {
	if err := a.reporter.Report(env); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	return env.Err()
}

func (a *app) close() {
	a.progress.Close()
	a.printing.Wait()

	if viper.GetBool("metrics") {
		if err := metrics.WriteText(a.stderr, a.registry); err != nil {
			a.logger.WithError(err).Warn("Failed to write metrics")
		}
	}
}

// run builds the app, runs fn under a signal-aware context and releases
// the app afterwards
func run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, a)
}

func loadConfig() (*config.Config, error) {
	if path := viper.GetString("config"); path != "" {
		return config.Load(path)
	}

	cfgPath, err := config.GetConfigPath()
	if err != nil {
		return nil, err
	}

	return config.Load(cfgPath)
}
