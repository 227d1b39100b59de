package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driving"
	"github.com/custodia-labs/rfpkb/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// annotationNoServices marks commands that run without bootstrapping.
const annotationNoServices = "rfpkb/no-services"

// annotationLongRunning marks commands that attach the persistent log sink.
const annotationLongRunning = "rfpkb/long-running"

// OverrideSweeper drops expired session overrides.
type OverrideSweeper interface {
	Sweep() int
}

// Services holds everything the commands need. Only Retrieval,
// Maintenance and Settings are required.
type Services struct {
	Retrieval   driving.RetrievalService
	Maintenance driving.MaintenanceService
	Settings    driving.SettingsService
	Scheduler   driving.Scheduler

	// Snapshots is set when the store keeps a version history.
	Snapshots driven.SnapshotStore

	// Overrides is set when session overrides are held in memory.
	Overrides OverrideSweeper

	// Close releases resources. May be nil.
	Close func()
}

// Options are the global flags handed to the bootstrap function.
type Options struct {
	Verbose     bool
	ConfigDir   string
	LogFile     string
	LongRunning bool
}

// BootstrapFunc builds the services for a command invocation.
type BootstrapFunc func(ctx context.Context, opts Options) (*Services, error)

var (
	retrievalService   driving.RetrievalService
	maintenanceService driving.MaintenanceService
	settingsService    driving.SettingsService
	scheduler          driving.Scheduler
	snapshotStore      driven.SnapshotStore
	overrideSweeper    OverrideSweeper
	closeServices      func()

	bootstrap BootstrapFunc
)

var (
	verbose   bool
	configDir string
	logFile   string
)

var rootCmd = &cobra.Command{
	Use:   "rfpkb",
	Short: "RFP knowledge base retrieval and maintenance",
	Long: `rfpkb answers RFP questions from a curated knowledge base.

It ranks stored question/answer pairs and context passages against a query,
records new answers, and keeps the corpus clean with sanitize and backfill
passes that can also run on a schedule.`,
	SilenceUsage:      true,
	PersistentPreRunE: preRun,
	PersistentPostRun: postRun,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logging to stderr")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.rfpkb)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
}

// SetServices installs services directly, bypassing bootstrap.
func SetServices(s *Services) {
	if s == nil {
		retrievalService = nil
		maintenanceService = nil
		settingsService = nil
		scheduler = nil
		snapshotStore = nil
		overrideSweeper = nil
		closeServices = nil
		return
	}
	retrievalService = s.Retrieval
	maintenanceService = s.Maintenance
	settingsService = s.Settings
	scheduler = s.Scheduler
	snapshotStore = s.Snapshots
	overrideSweeper = s.Overrides
	closeServices = s.Close
}

// SetBootstrap sets the function used to build services before a command runs.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func preRun(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if cmd.Annotations[annotationNoServices] == "true" {
		return nil
	}
	if retrievalService != nil || bootstrap == nil {
		return nil
	}

	services, err := bootstrap(commandContext(cmd), Options{
		Verbose:     verbose,
		ConfigDir:   configDir,
		LogFile:     logFile,
		LongRunning: cmd.Annotations[annotationLongRunning] == "true",
	})
	if err != nil {
		return fmt.Errorf("initialising services: %w", err)
	}
	SetServices(services)
	return nil
}

func postRun(_ *cobra.Command, _ []string) {
	if closeServices != nil {
		closeServices()
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func requireRetrieval() error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}
	return nil
}

func requireMaintenance() error {
	if maintenanceService == nil {
		return errors.New("maintenance service not configured")
	}
	return nil
}

func requireSettings() error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return nil
}
