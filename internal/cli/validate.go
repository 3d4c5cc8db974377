package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rowcheck/rowcheck/internal/harness"
)

// ValidationResult holds the outcome of validating one scenario file.
type ValidationResult struct {
	File  string `json:"file"`
	Valid bool   `json:"valid"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-file-or-dir>",
		Short: "Validate scenario files without contacting the engine",
		Long: `Check scenario files against the scenario schema and semantic rules.
The query engine is not contacted.

Exit codes:
  0 - All files valid
  1 - One or more files invalid
  2 - Command error (invalid paths)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateScenarios(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func validateScenarios(cmd *cobra.Command, opts *RootOptions, path string) error {
	files, err := findScenarioFiles(path, "")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	results := make([]ValidationResult, 0, len(files))
	invalid := 0
	for _, file := range files {
		vr := ValidationResult{File: file}
		scenario, err := harness.LoadScenario(file)
		if err != nil {
			vr.Error = err.Error()
			invalid++
		} else {
			vr.Valid = true
			vr.Name = scenario.Name
		}
		results = append(results, vr)
	}

	if opts.Format == "json" {
		status := "ok"
		if invalid > 0 {
			status = "error"
		}
		if err := writeJSONResponse(cmd.OutOrStdout(), CLIResponse{Status: status, Data: results}); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, vr := range results {
			if vr.Valid {
				fmt.Fprintf(w, "OK    %s (%s)\n", vr.File, vr.Name)
			} else {
				fmt.Fprintf(w, "BAD   %s\n      %s\n", vr.File, vr.Error)
			}
		}
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario files invalid", invalid, len(files)))
	}
	return nil
}
