package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rowcheck/rowcheck/internal/engine"
	"github.com/rowcheck/rowcheck/internal/harness"
	"github.com/rowcheck/rowcheck/internal/recorder"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern on file base name)
	Record string // optional path to a run history database
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// RunSummary holds the overall run result.
type RunSummary struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario-file-or-dir>",
		Short: "Run conformance scenarios against a query engine",
		Long: `Run scenario files against the query engine at --engine.

Each scenario runs to completion before the next starts: setup steps,
then flow queries compared against their expected tables, then assertions.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, unreachable engine, etc.)

Examples:
  rowcheck run ./scenarios --engine http://localhost:11700
  rowcheck run ./scenarios --filter "sparse-*" --engine http://localhost:11700
  rowcheck run ./scenarios/keywords.yaml --engine http://localhost:11700 --record runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Record, "record", "", "record runs to a SQLite history database")

	return cmd
}

func runScenarios(cmd *cobra.Command, opts *RunOptions, path string) error {
	if opts.Engine == "" {
		return NewExitError(ExitCommandError, "--engine is required")
	}

	files, err := findScenarioFiles(path, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	if len(files) == 0 {
		if opts.Format == "json" {
			return writeJSONResponse(cmd.OutOrStdout(), CLIResponse{
				Status: "ok",
				Data:   RunSummary{Scenarios: []ScenarioResult{}},
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	client, err := engine.New(engine.Config{BaseURL: opts.Engine, Logger: slog.Default()})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid engine configuration", err)
	}

	ctx := cmd.Context()
	if err := client.Ping(ctx); err != nil {
		return WrapExitError(ExitCommandError, "engine not reachable", err)
	}

	var rec *recorder.Recorder
	if opts.Record != "" {
		rec, err = recorder.Open(opts.Record)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open run history", err)
		}
		defer rec.Close()
	}

	h := harness.New(client, slog.Default())

	summary := RunSummary{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}

	for _, file := range files {
		sr := runOneScenario(ctx, h, rec, opts.Engine, file)
		summary.Scenarios = append(summary.Scenarios, sr)
		if sr.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	if opts.Format == "json" {
		status := "ok"
		if summary.Failed > 0 {
			status = "error"
		}
		if err := writeJSONResponse(cmd.OutOrStdout(), CLIResponse{Status: status, Data: summary}); err != nil {
			return err
		}
	} else {
		printRunSummary(cmd, summary)
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", summary.Failed, summary.Total))
	}
	return nil
}

// runOneScenario loads and executes a single scenario file.
// Load and harness errors become scenario failures rather than command
// errors, so one broken file does not stop the suite.
func runOneScenario(ctx context.Context, h *harness.Harness, rec *recorder.Recorder, engineURL, file string) ScenarioResult {
	sr := ScenarioResult{Name: scenarioNameFromFile(file), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		sr.Errors = append(sr.Errors, err.Error())
		return sr
	}
	sr.Name = scenario.Name

	started := time.Now()
	result, err := h.Run(ctx, scenario)
	if err != nil {
		sr.Errors = append(sr.Errors, err.Error())
		return sr
	}

	sr.Pass = result.Pass
	sr.Errors = result.Errors

	if rec != nil {
		run := &recorder.Run{
			Scenario:   scenario.Name,
			EngineURL:  engineURL,
			Pass:       result.Pass,
			Errors:     result.Errors,
			Trace:      result.Trace,
			StartedAt:  started,
			FinishedAt: time.Now(),
		}
		if err := rec.RecordRun(ctx, run); err != nil {
			slog.Error("failed to record run", "scenario", scenario.Name, "error", err)
		}
	}

	return sr
}

func printRunSummary(cmd *cobra.Command, summary RunSummary) {
	w := cmd.OutOrStdout()
	for _, sr := range summary.Scenarios {
		status := "PASS"
		if !sr.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s  %s (%s)\n", status, sr.Name, sr.File)
		for _, msg := range sr.Errors {
			for _, line := range strings.Split(msg, "\n") {
				fmt.Fprintf(w, "      %s\n", line)
			}
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", summary.Passed, summary.Failed, summary.Total)
}

// findScenarioFiles resolves a path to a sorted list of scenario files.
// A file path returns itself; a directory is searched for *.yaml and *.yml,
// optionally filtered by a glob pattern on the base name.
func findScenarioFiles(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if filter != "" {
			match, err := filepath.Match(filter, strings.TrimSuffix(name, ext))
			if err != nil {
				return nil, fmt.Errorf("invalid filter pattern %q: %w", filter, err)
			}
			if !match {
				continue
			}
		}
		files = append(files, filepath.Join(path, name))
	}
	sort.Strings(files)
	return files, nil
}

func scenarioNameFromFile(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
