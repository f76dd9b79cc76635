// Package cmd implements the alertctl command line.
package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/glucoalert/alertcore/internal/alerting"
	"github.com/glucoalert/alertcore/internal/conf"
	datastore "github.com/glucoalert/alertcore/internal/datastore/v2"
	"github.com/glucoalert/alertcore/internal/logger"
	"github.com/glucoalert/alertcore/internal/telemetry"
)

var (
	configPath string
	logLevel   string

	settings *conf.Settings
	log      logger.Logger
	logOut   io.Writer = os.Stderr
)

var rootCmd = &cobra.Command{
	Use:   "alertctl",
	Short: "Manage glucose alert types and schedules",
	Long: `alertctl manages the alert types and per-kind alert schedules of a
glucose monitor, and serves them over HTTP.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		telemetry.Flush(2 * time.Second)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to alertctl.yaml (default: ./alertctl.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
}

func setup(cmd *cobra.Command, _ []string) error {
	s, err := conf.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		s.Logging.Level = logLevel
	}

	level, err := logger.ParseLevel(s.Logging.Level)
	if err != nil {
		return err
	}
	settings = s
	log = logger.NewZapLogger(logOut, level, &logger.Options{
		Format:  s.Logging.Format,
		Service: "alertctl",
	})

	return telemetry.Init(s.Telemetry, Version)
}

// app is an opened store with the alerting service over it.
type app struct {
	manager datastore.Manager
	svc     *alerting.Service
}

func (a *app) Close() {
	if err := a.manager.Close(); err != nil {
		log.Warn("failed to close database", logger.Error(err))
	}
}

// openApp opens the configured database, migrates it and initialises the
// alerting service.
func openApp(ctx context.Context, observer alerting.OperationObserver) (*app, error) {
	m, err := datastore.NewManager(settings.Database, log)
	if err != nil {
		return nil, err
	}
	if err := m.Initialize(); err != nil {
		_ = m.Close()
		return nil, err
	}

	svc, err := alerting.Initialize(ctx, m.DB(), alerting.Options{
		SeedDefaults: settings.Alerting.SeedDefaults,
		Schedule:     settings.Alerting.Schedule,
		CacheTTL:     settings.Alerting.CacheTTL,
		Log:          log,
		Observer:     observer,
	})
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	return &app{manager: m, svc: svc}, nil
}
