// opsdeck is the operations-console companion CLI: it drives the project
// configuration workflow (basic info, KPI criteria, task authoring, task
// assignment) against the remote console API, with resumable local drafts.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"opsdeck/internal/api"
	"opsdeck/internal/config"
	"opsdeck/internal/logging"
	"opsdeck/internal/workflow"
)

var (
	// Global flags
	verbose   bool
	workspace string
	actor     string

	// Logger
	logger *zap.Logger

	// Loaded workspace config
	cfg           *config.Config
	configWatcher *config.Watcher
)

var rootCmd = &cobra.Command{
	Use:   "opsdeck",
	Short: "opsdeck - project configuration and task-assignment orchestrator",
	Long: `opsdeck configures projects on the internal operations console:
department selection, KPI criteria, task authoring and task assignment,
driven from declarative plan files with resumable local drafts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if workspace == "" {
			workspace, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to resolve workspace: %w", err)
			}
		}
		if err := logging.Initialize(workspace); err != nil {
			logger.Warn("File logging unavailable", zap.Error(err))
		}

		cfg, err = config.Load(workspace)
		if err != nil {
			return err
		}
		if actor != "" {
			cfg.Defaults.Actor = actor
		}
		if cfg.Defaults.Actor == "" {
			cfg.Defaults.Actor = os.Getenv("USER")
		}

		// Pick up logging-section edits while a long workflow runs.
		watcher, werr := config.NewWatcher(workspace, func() {
			if rerr := logging.ReloadConfig(); rerr != nil {
				logger.Warn("Config reload failed", zap.Error(rerr))
			}
		})
		if werr == nil && watcher.Start(cmd.Context()) == nil {
			configWatcher = watcher
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if configWatcher != nil {
			configWatcher.Stop()
		}
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// consoleClient builds the API client from the loaded config.
func consoleClient() *api.Client {
	return api.NewClient(api.Config{
		BaseURL: cfg.API.BaseURL,
		Token:   cfg.API.Token,
		Timeout: cfg.APITimeout(),
	})
}

// consoleStores bundles the client behind the workflow's store interfaces.
func consoleStores() workflow.Stores {
	client := consoleClient()
	return workflow.Stores{
		Projects:    client,
		Directory:   client,
		Kpi:         client,
		Tasks:       client,
		Assignments: client,
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default: cwd)")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "operator id recorded as created_by/assigned_by")

	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(draftsCmd)
}

func main() {
	start := time.Now()
	err := rootCmd.Execute()
	if logger != nil {
		logger.Debug("Command finished", zap.Duration("elapsed", time.Since(start)))
	}
	if err != nil {
		os.Exit(1)
	}
}
