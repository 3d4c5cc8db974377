// Package harness provides conformance testing for external query engines.
//
// The harness drives an engine through its HTTP interface: setup steps
// create procedures and datasets, flow steps run queries, and assertions
// validate the returned tables against literal expectations.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	setup:
//	  - procedure:
//	      type: transform
//	      params:
//	        inputData: SELECT CAST('1.2.3' AS path) AS name
//	        outputDataset: {id: sparse, type: sparse.mutable}
//	  - dataset:
//	      id: dataset1
//	      type: sparse.mutable
//	      rows:
//	        - name: row1
//	          columns: [[x, toy story, 0]]
//	flow:
//	  - query: SELECT * FROM sparse
//	    expect:
//	      - [_rowName, name]
//	      - [result, 1.2.3]
//	assertions:
//	  - type: row_count
//	    query: SELECT * FROM sparse
//	    count: 1
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - table_equals: Runs a query and compares the full table exactly
//   - header_equals: Runs a query and compares only the column names
//   - row_count: Runs a query and checks the number of data rows
//
// A flow step with an expect table is shorthand for table_equals on that
// step's query. Comparison is always exact: same row count, same header,
// same cell values in the same order.
//
// # Execution Model
//
// Steps run strictly sequentially; a request error from the engine aborts
// the scenario immediately, with no retry. A procedure step that omits its
// output dataset name gets a generated unique name, available to later
// queries through the $output placeholder.
//
// # Deterministic Traces
//
// Every step is recorded as a trace event stamped with a logical sequence
// number, so the same scenario against the same engine state produces
// byte-identical traces for golden file comparison.
package harness
