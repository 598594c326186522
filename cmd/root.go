package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cpm/app"
	"github.com/kilianp07/cpm/config"
	"github.com/kilianp07/cpm/core/scheduling"
	"github.com/kilianp07/cpm/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "cpm",
	Short:        "Critical path scheduling service",
	SilenceUsage: true,
	RunE:         run,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, periodic rescheduler and notifiers",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json); CPM_ environment variables override it")
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}

// openManager builds a scheduler over the configured store for one-shot
// commands. The returned cleanup closes the store and run log.
func openManager() (*scheduling.Manager, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, nil, err
	}
	repo, err := app.OpenRepository(cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	mgr, err := scheduling.NewManager(repo, cfg.Scheduler, nil, logger.New("cli"))
	if err != nil {
		_ = repo.Close()
		return nil, nil, err
	}
	rl, err := runlogStore(cfg)
	if err != nil {
		_ = repo.Close()
		return nil, nil, err
	}
	mgr.SetRunLog(rl)
	cleanup := func() {
		if err := mgr.Close(); err != nil {
			logger.New("cli").Errorf("close run log: %v", err)
		}
		if err := repo.Close(); err != nil {
			logger.New("cli").Errorf("close store: %v", err)
		}
	}
	return mgr, cleanup, nil
}
