package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/rowcheck/rowcheck/internal/table"
)

// AssertionError is returned when an assertion fails.
// For table mismatches it carries the first differing row/column.
type AssertionError struct {
	Type     string      // Assertion type for categorization
	Query    string      // Query the assertion ran
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Diff     *table.Diff // First differing cell, for table mismatches
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Query: %s\n", e.Query)
	if e.Diff != nil {
		fmt.Fprintf(&buf, "  Mismatch at %s\n", e.Diff.String())
	}
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)

	return buf.String()
}

// assertTableEquals compares an actual table against a literal expectation.
// Equality is exact: same row count, same header, same cell values in the
// same order. No normalization is performed at comparison time.
func assertTableEquals(query string, actual, expected table.Table) error {
	diff := actual.FirstDiff(expected)
	if diff == nil {
		return nil
	}

	return &AssertionError{
		Type:     AssertTableEquals,
		Query:    query,
		Expected: renderTable(expected),
		Actual:   renderTable(actual),
		Diff:     diff,
	}
}

// assertHeaderEquals compares only the result's column names and order.
func assertHeaderEquals(query string, actual table.Table, columns []string) error {
	header := actual.Header()
	match := len(header) == len(columns)
	if match {
		for i := range header {
			if header[i] != columns[i] {
				match = false
				break
			}
		}
	}
	if match {
		return nil
	}

	return &AssertionError{
		Type:     AssertHeaderEquals,
		Query:    query,
		Expected: fmt.Sprintf("columns %v", columns),
		Actual:   fmt.Sprintf("columns %v", header),
	}
}

// assertRowCount checks the number of data rows (excluding the header).
func assertRowCount(query string, actual table.Table, count int) error {
	if actual.NumDataRows() == count {
		return nil
	}

	return &AssertionError{
		Type:     AssertRowCount,
		Query:    query,
		Expected: fmt.Sprintf("%d data rows", count),
		Actual:   fmt.Sprintf("%d data rows", actual.NumDataRows()),
	}
}

// renderTable formats a table for assertion messages.
func renderTable(t table.Table) string {
	var b strings.Builder
	b.WriteString("\n")
	if err := t.Render(&b); err != nil {
		return fmt.Sprintf("%v", t)
	}
	return strings.TrimRight(b.String(), "\n")
}

// EvaluateAssertions runs every assertion with a fresh query and returns
// the failure messages. A request error while querying fails the assertion
// but does not abort the remaining ones.
func (h *Harness) EvaluateAssertions(ctx context.Context, assertions []Assertion, result *Result) []string {
	var errors []string

	for i, assertion := range assertions {
		actual, err := h.runQuery(ctx, assertion.Query, result)
		if err != nil {
			errors = append(errors, fmt.Sprintf("assertion[%d]: %v", i, err))
			continue
		}

		switch assertion.Type {
		case AssertTableEquals:
			expected, ferr := table.FromRows(assertion.Expect)
			if ferr != nil {
				err = fmt.Errorf("assertion[%d]: invalid expected table: %w", i, ferr)
			} else {
				err = assertTableEquals(assertion.Query, actual, expected)
			}
		case AssertHeaderEquals:
			err = assertHeaderEquals(assertion.Query, actual, assertion.Columns)
		case AssertRowCount:
			err = assertRowCount(assertion.Query, actual, *assertion.Count)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
