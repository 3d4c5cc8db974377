package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rowcheck/rowcheck/internal/engine"
	"github.com/rowcheck/rowcheck/internal/table"
)

// Scenario defines a conformance test scenario against the query engine.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup contains procedure and dataset steps run before the flow.
	// Setup steps establish engine-side state and are assumed to succeed;
	// a request error aborts the scenario.
	Setup []SetupStep `yaml:"setup,omitempty"`

	// Flow contains the queries under test, each with an optional literal
	// expected table.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate engine state after the flow.
	// Supported types: table_equals, header_equals, row_count.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// SetupStep is one setup action: exactly one of Procedure or Dataset.
type SetupStep struct {
	// Procedure creates a server-side procedure (e.g. a transform that
	// materializes a query result into an output dataset).
	Procedure *engine.ProcedureSpec `yaml:"procedure,omitempty"`

	// Dataset creates a dataset, records its rows, and commits it.
	Dataset *DatasetStep `yaml:"dataset,omitempty"`
}

// DatasetStep creates a dataset and optionally records rows into it.
// The dataset is committed after the rows are recorded.
type DatasetStep struct {
	ID   string       `yaml:"id"`
	Type string       `yaml:"type"`
	Rows []engine.Row `yaml:"rows,omitempty"`
}

// FlowStep runs one query, optionally asserting on the full result table.
type FlowStep struct {
	// Query is the SQL string sent to the engine. The $output placeholder
	// expands to the most recently generated output dataset name.
	Query string `yaml:"query"`

	// Expect is a literal expected table: row 0 is the header, data rows
	// follow. If nil, the query result is recorded but not compared.
	// A header-only table asserts the query returns zero data rows.
	Expect [][]any `yaml:"expect,omitempty"`
}

// Assertion validates engine state with a fresh query.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Query is the SQL string to run for this assertion.
	Query string `yaml:"query"`

	// Expect is the literal expected table (table_equals).
	Expect [][]any `yaml:"expect,omitempty"`

	// Columns are the expected header names (header_equals).
	Columns []string `yaml:"columns,omitempty"`

	// Count is the expected number of data rows (row_count).
	// A pointer so that zero rows is expressible.
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTableEquals  = "table_equals"
	AssertHeaderEquals = "header_equals"
	AssertRowCount     = "row_count"
)

// LoadScenario reads and parses a scenario YAML file.
// The file is checked against the embedded CUE schema, decoded strictly
// (unknown fields are rejected), and validated semantically.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML bytes. See LoadScenario.
func ParseScenario(data []byte) (*Scenario, error) {
	if err := validateWithSchema(data); err != nil {
		return nil, fmt.Errorf("scenario does not match schema: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields (catches typos)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks required fields and the shape of literal tables.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateSetupStep(i, &step); err != nil {
			return err
		}
	}

	for i, step := range s.Flow {
		if step.Query == "" {
			return fmt.Errorf("flow[%d]: query is required", i)
		}
		if step.Expect != nil {
			if _, err := table.FromRows(step.Expect); err != nil {
				return fmt.Errorf("flow[%d].expect: %w", i, err)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateSetupStep(index int, step *SetupStep) error {
	if step.Procedure == nil && step.Dataset == nil {
		return fmt.Errorf("setup[%d]: procedure or dataset is required", index)
	}
	if step.Procedure != nil && step.Dataset != nil {
		return fmt.Errorf("setup[%d]: procedure and dataset are mutually exclusive", index)
	}

	if step.Procedure != nil && step.Procedure.Type == "" {
		return fmt.Errorf("setup[%d].procedure: type is required", index)
	}

	if step.Dataset != nil {
		if step.Dataset.ID == "" {
			return fmt.Errorf("setup[%d].dataset: id is required", index)
		}
		if step.Dataset.Type == "" {
			return fmt.Errorf("setup[%d].dataset: type is required", index)
		}
		for j, row := range step.Dataset.Rows {
			if row.Name == "" {
				return fmt.Errorf("setup[%d].dataset.rows[%d]: name is required", index, j)
			}
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Query == "" {
		return fmt.Errorf("assertions[%d]: query is required", index)
	}

	switch a.Type {
	case AssertTableEquals:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for table_equals", index)
		}
		if _, err := table.FromRows(a.Expect); err != nil {
			return fmt.Errorf("assertions[%d].expect: %w", index, err)
		}
	case AssertHeaderEquals:
		if len(a.Columns) == 0 {
			return fmt.Errorf("assertions[%d]: columns list is required for header_equals", index)
		}
	case AssertRowCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for row_count", index)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
