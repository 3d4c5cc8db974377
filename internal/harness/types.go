package harness

import "github.com/rowcheck/rowcheck/internal/table"

// TraceEvent records one step the harness performed against the engine.
type TraceEvent struct {
	// Type is "procedure", "dataset", or "query".
	Type string `json:"type"`

	// Seq is the logical sequence number of the event.
	Seq int64 `json:"seq"`

	// Name is the procedure type or dataset id, depending on Type.
	Name string `json:"name,omitempty"`

	// Output is the procedure's output dataset name, if any.
	Output string `json:"output,omitempty"`

	// Query is the SQL string for query events.
	Query string `json:"query,omitempty"`

	// Table is the result for query events.
	Table table.Table `json:"table,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	Pass bool `json:"pass"`

	// Trace contains all steps in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddProcedureTrace records a procedure creation.
func (r *Result) AddProcedureTrace(procType, output string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{Type: "procedure", Name: procType, Output: output, Seq: seq})
}

// AddDatasetTrace records a dataset creation.
func (r *Result) AddDatasetTrace(id string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{Type: "dataset", Name: id, Seq: seq})
}

// AddQueryTrace records a query and its result table.
func (r *Result) AddQueryTrace(query string, tbl table.Table, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{Type: "query", Query: query, Table: tbl, Seq: seq})
}
