package cmd

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cpm/config"
	"github.com/kilianp07/cpm/core/runlog"
)

var (
	runsProject string
	runsFailed  bool
	runsSince   time.Duration
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Print scheduling runs from the run log as JSON lines",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().StringVar(&runsProject, "project", "", "only runs of this project")
	runsCmd.Flags().BoolVar(&runsFailed, "failed", false, "only failed runs")
	runsCmd.Flags().DurationVar(&runsSince, "since", 0, "only runs newer than this duration")
	rootCmd.AddCommand(runsCmd)
}

func runlogStore(cfg *config.Config) (runlog.Store, error) {
	return runlog.Open(cfg.Logging.RunLogOptions())
}

func runRuns(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	store, err := runlogStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	q := runlog.Query{ProjectID: runsProject, FailedOnly: runsFailed}
	if runsSince > 0 {
		q.Start = time.Now().Add(-runsSince)
	}
	recs, err := store.Query(context.Background(), q)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
