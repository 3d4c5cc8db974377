package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/rowcheck/rowcheck/internal/engine"
	"github.com/rowcheck/rowcheck/internal/table"
	"github.com/rowcheck/rowcheck/internal/testutil"
)

// Harness drives the external query engine through one scenario at a time.
//
// Execution is strictly sequential: each step's request completes (or fails)
// before the next begins. The engine client is injected at construction;
// the harness holds no ambient global state.
type Harness struct {
	client *engine.Client
	clock  *testutil.Clock
	logger *slog.Logger

	// output is the most recently generated output dataset name, expanded
	// into queries via the $output placeholder.
	output string
}

// New creates a Harness around an engine client.
// A nil logger suppresses logging.
func New(client *engine.Client, logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Harness{
		client: client,
		clock:  testutil.NewClock(),
		logger: logger,
	}
}

// Run executes a scenario and returns its result.
//
// Execution flow:
//  1. Setup steps (procedures, datasets) run in order.
//  2. Flow steps run their queries; steps with expect tables are compared
//     exactly against the result.
//  3. Assertions run fresh queries against the final engine state.
//
// A request error from the engine is fatal to the scenario: it is recorded
// on the result and execution stops, with no retry. Run returns a non-nil
// error only for harness-side failures (nil scenario, encoding bugs),
// never for test failures.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	if scenario == nil {
		return nil, fmt.Errorf("scenario is nil")
	}

	h.clock.Reset()
	h.output = ""
	result := NewResult()

	h.logger.Info("scenario started", "name", scenario.Name)

	if ok := h.executeSetup(ctx, scenario.Setup, result); !ok {
		return result, nil
	}
	if ok := h.executeFlow(ctx, scenario.Flow, result); !ok {
		return result, nil
	}

	for _, msg := range h.EvaluateAssertions(ctx, scenario.Assertions, result) {
		result.AddError(msg)
	}

	h.logger.Info("scenario finished", "name", scenario.Name, "pass", result.Pass)
	return result, nil
}

// executeSetup runs all setup steps. Returns false when a step failed and
// the scenario must stop.
func (h *Harness) executeSetup(ctx context.Context, setup []SetupStep, result *Result) bool {
	for i, step := range setup {
		var err error
		switch {
		case step.Procedure != nil:
			err = h.createProcedure(ctx, *step.Procedure, result)
		case step.Dataset != nil:
			err = h.createDataset(ctx, *step.Dataset, result)
		}
		if err != nil {
			result.AddError(fmt.Sprintf("setup step %d: %v", i, err))
			return false
		}
	}
	return true
}

// createProcedure sends one procedure spec, generating a unique output
// dataset name when the spec omits one.
func (h *Harness) createProcedure(ctx context.Context, spec engine.ProcedureSpec, result *Result) error {
	outputName, ok := engine.OutputDatasetName(spec.Params.OutputDataset)
	if !ok {
		outputName = "out-" + uuid.Must(uuid.NewV7()).String()
		out, err := engine.SetOutputDatasetName(spec.Params.OutputDataset, outputName)
		if err != nil {
			return err
		}
		spec.Params.OutputDataset = out
		h.output = outputName
		h.logger.Debug("generated output dataset name", "name", outputName)
	}

	spec.Params.InputData = h.expand(spec.Params.InputData)

	if err := h.client.CreateProcedure(ctx, spec); err != nil {
		return err
	}

	result.AddProcedureTrace(spec.Type, outputName, h.clock.Next())
	h.logger.Info("procedure created", "type", spec.Type, "output", outputName)
	return nil
}

// createDataset creates a dataset, records its rows, and commits it.
func (h *Harness) createDataset(ctx context.Context, ds DatasetStep, result *Result) error {
	cfg := engine.DatasetConfig{ID: ds.ID, Type: ds.Type}
	if err := h.client.CreateDataset(ctx, cfg); err != nil {
		return err
	}
	if len(ds.Rows) > 0 {
		if err := h.client.RecordRows(ctx, ds.ID, ds.Rows); err != nil {
			return err
		}
	}
	if err := h.client.CommitDataset(ctx, ds.ID); err != nil {
		return err
	}

	result.AddDatasetTrace(ds.ID, h.clock.Next())
	h.logger.Info("dataset created", "id", ds.ID, "rows", len(ds.Rows))
	return nil
}

// executeFlow runs all flow steps and compares expect tables.
// Returns false when a request error stopped the scenario; assertion
// mismatches are recorded but do not stop the flow.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) bool {
	for i, step := range flow {
		actual, err := h.runQuery(ctx, step.Query, result)
		if err != nil {
			result.AddError(fmt.Sprintf("flow step %d: %v", i, err))
			return false
		}

		if step.Expect == nil {
			continue
		}

		expected, err := table.FromRows(step.Expect)
		if err != nil {
			result.AddError(fmt.Sprintf("flow step %d: invalid expected table: %v", i, err))
			continue
		}
		if err := assertTableEquals(h.expand(step.Query), actual, expected); err != nil {
			result.AddError(fmt.Sprintf("flow step %d: %v", i, err))
		}
	}
	return true
}

// runQuery sends one query, expanding $output, and records it in the trace.
func (h *Harness) runQuery(ctx context.Context, query string, result *Result) (table.Table, error) {
	expanded := h.expand(query)

	tbl, err := h.client.Query(ctx, expanded)
	if err != nil {
		var reqErr *engine.RequestError
		if errors.As(err, &reqErr) {
			h.logger.Error("query rejected", "query", expanded, "status", reqErr.StatusCode)
		}
		return nil, err
	}

	result.AddQueryTrace(expanded, tbl, h.clock.Next())
	h.logger.Debug("query succeeded", "query", expanded, "rows", tbl.NumDataRows())
	return tbl, nil
}

// expand substitutes the $output placeholder with the most recently
// generated output dataset name.
func (h *Harness) expand(s string) string {
	if h.output == "" || !strings.Contains(s, "$output") {
		return s
	}
	return strings.ReplaceAll(s, "$output", h.output)
}
