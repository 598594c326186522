package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cpm/core/scheduling"
	"github.com/kilianp07/cpm/pkg/projectfile"
)

var importSchedule bool

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a project network from a YAML or JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importSchedule, "schedule", false, "schedule the project after importing it")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := projectfile.ReadFile(args[0])
	if err != nil {
		return err
	}
	snap, warnings, err := f.Snapshot()
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
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
	if err := mgr.Repository().Import(ctx, snap); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported project %s: %d activities, %d relationships\n",
		snap.Project.ID, len(snap.Activities), len(snap.Relationships))

	if !importSchedule {
		return nil
	}
	out, err := mgr.ScheduleProject(scheduling.WithTrigger(ctx, "cli"), snap.Project.ID)
	if err != nil {
		return err
	}
	if out.Result != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "project finish %s\n", out.Result.ProjectFinish.Format("2006-01-02 15:04"))
	}
	return nil
}
