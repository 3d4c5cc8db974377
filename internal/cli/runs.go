package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rowcheck/rowcheck/internal/recorder"
)

// RunsOptions holds flags for the runs subcommands.
type RunsOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// NewRunsCommand creates the runs command group for inspecting recorded
// harness history.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded harness runs",
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the run history database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	list := &cobra.Command{
		Use:           "list",
		Short:         "List recorded runs, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRuns(cmd, opts)
		},
	}
	list.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list")

	show := &cobra.Command{
		Use:           "show <run-id>",
		Short:         "Show one recorded run with its full trace",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showRun(cmd, opts, args[0])
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func openRecorder(opts *RunsOptions) (*recorder.Recorder, error) {
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("run history database not found: %s", opts.Database))
	}
	rec, err := recorder.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open run history", err)
	}
	return rec, nil
}

func listRuns(cmd *cobra.Command, opts *RunsOptions) error {
	rec, err := openRecorder(opts)
	if err != nil {
		return err
	}
	defer rec.Close()

	runs, err := rec.ListRuns(cmd.Context(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if opts.Format == "json" {
		return writeJSONResponse(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: runs})
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		status := "PASS"
		if !r.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s  %s  %s  %s\n", status, r.StartedAt.Format(time.RFC3339), r.ID, r.Scenario)
	}
	return nil
}

func showRun(cmd *cobra.Command, opts *RunsOptions, id string) error {
	rec, err := openRecorder(opts)
	if err != nil {
		return err
	}
	defer rec.Close()

	run, err := rec.GetRun(cmd.Context(), id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load run", err)
	}

	if opts.Format == "json" {
		return writeJSONResponse(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: run})
	}

	w := cmd.OutOrStdout()
	status := "PASS"
	if !run.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(w, "%s  %s (engine %s)\n", status, run.Scenario, run.EngineURL)
	fmt.Fprintf(w, "started  %s\nfinished %s\n", run.StartedAt.Format(time.RFC3339), run.FinishedAt.Format(time.RFC3339))
	for _, msg := range run.Errors {
		fmt.Fprintf(w, "error: %s\n", msg)
	}
	for _, ev := range run.Trace {
		switch ev.Type {
		case "procedure":
			fmt.Fprintf(w, "[%d] procedure %s -> %s\n", ev.Seq, ev.Name, ev.Output)
		case "dataset":
			fmt.Fprintf(w, "[%d] dataset %s\n", ev.Seq, ev.Name)
		case "query":
			fmt.Fprintf(w, "[%d] query %s\n", ev.Seq, ev.Query)
			if ev.Table != nil {
				if err := ev.Table.Render(w); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
