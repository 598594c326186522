package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cpm/core/scheduling"
	"github.com/kilianp07/cpm/pkg/export"
)

var (
	scheduleAll    bool
	scheduleFormat string
	scheduleOutput string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule [project-id]",
	Short: "Compute and store the schedule of a project",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSchedule,
}

func init() {
	scheduleCmd.Flags().BoolVar(&scheduleAll, "all", false, "reschedule every stored project")
	scheduleCmd.Flags().StringVarP(&scheduleFormat, "format", "f", "json", "output format: "+strings.Join(export.Formats, ", "))
	scheduleCmd.Flags().StringVarP(&scheduleOutput, "output", "o", "", "write the schedule to this file instead of stdout")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	if scheduleAll == (len(args) == 1) {
		return fmt.Errorf("pass either a project id or --all")
	}
	mgr, cleanup, err := openManager()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = scheduling.WithTrigger(ctx, "cli")
	if scheduleAll {
		n, err := mgr.ScheduleAll(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "%d projects scheduled\n", n)
		return err
	}

	if _, err := mgr.ScheduleProject(ctx, args[0]); err != nil {
		return err
	}
	snap, err := mgr.Repository().LoadSnapshot(ctx, args[0])
	if err != nil {
		return err
	}
	var w io.Writer = cmd.OutOrStdout()
	if scheduleOutput != "" {
		f, err := os.Create(scheduleOutput)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	return export.Write(w, scheduleFormat, snap)
}
