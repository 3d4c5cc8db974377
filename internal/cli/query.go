package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rowcheck/rowcheck/internal/engine"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run an ad-hoc query and print the result table",
		Long: `Send a single read-only query to the engine at --engine and print
the result, aligned text by default or JSON with --format json.

Example:
  rowcheck query "SELECT * FROM keywords" --engine http://localhost:11700`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdhocQuery(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runAdhocQuery(cmd *cobra.Command, opts *RootOptions, sql string) error {
	if opts.Engine == "" {
		return NewExitError(ExitCommandError, "--engine is required")
	}

	client, err := engine.New(engine.Config{BaseURL: opts.Engine, Logger: slog.Default()})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid engine configuration", err)
	}

	tbl, err := client.Query(cmd.Context(), sql)
	if err != nil {
		return WrapExitError(ExitFailure, "query failed", err)
	}

	if opts.Format == "json" {
		return writeJSONResponse(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: tbl})
	}
	return tbl.Render(cmd.OutOrStdout())
}
