package table

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// formatCell renders a single cell for human-readable output.
// Strings are quoted so that "1" and 1 are distinguishable.
func formatCell(v Value) string {
	switch c := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(c)
	case bool:
		return strconv.FormatBool(c)
	case float64:
		return strconv.FormatFloat(c, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", c)
	}
}

// displayCell renders a cell for aligned table output (no quoting).
func displayCell(v Value) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return "null"
	}
	return formatCell(v)
}

// displayWidth returns the number of terminal cells a string occupies.
// East Asian wide and fullwidth runes count as two.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

// Render writes the table as aligned text columns, header first, followed by
// a dashed separator and the data rows.
func (t Table) Render(w io.Writer) error {
	if len(t) == 0 {
		return nil
	}

	widths := make([]int, len(t[0]))
	cells := make([][]string, len(t))
	for i, row := range t {
		cells[i] = make([]string, len(row))
		for j, cell := range row {
			s := displayCell(cell)
			cells[i][j] = s
			if j < len(widths) && displayWidth(s) > widths[j] {
				widths[j] = displayWidth(s)
			}
		}
	}

	writeRow := func(row []string) error {
		var b strings.Builder
		for j, s := range row {
			if j > 0 {
				b.WriteString("  ")
			}
			b.WriteString(s)
			if j < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[j]-displayWidth(s)))
			}
		}
		b.WriteByte('\n')
		_, err := io.WriteString(w, b.String())
		return err
	}

	if err := writeRow(cells[0]); err != nil {
		return err
	}
	var sep []string
	for _, cw := range widths {
		sep = append(sep, strings.Repeat("-", cw))
	}
	if err := writeRow(sep); err != nil {
		return err
	}
	for _, row := range cells[1:] {
		if err := writeRow(row); err != nil {
			return err
		}
	}
	return nil
}
