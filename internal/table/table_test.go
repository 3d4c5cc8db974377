package table

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBasic(t *testing.T) {
	body := `[["_rowName","title"],["0","My Value"]]`

	tbl, err := Parse([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, []string{"_rowName", "title"}, tbl.Header())
	assert.Equal(t, 1, tbl.NumDataRows())
	assert.Equal(t, "My Value", tbl[1][1])
}

func TestParseMixedCellTypes(t *testing.T) {
	body := `[["_rowName","x","y","z"],["row1","toy story",1,null]]`

	tbl, err := Parse([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, "toy story", tbl[1][1])
	assert.Equal(t, float64(1), tbl[1][2])
	assert.Nil(t, tbl[1][3])
}

func TestParseHeaderOnly(t *testing.T) {
	tbl, err := Parse([]byte(`[["_rowName","name"]]`))
	require.NoError(t, err)

	assert.Equal(t, 0, tbl.NumDataRows())
	assert.Equal(t, []string{"_rowName", "name"}, tbl.Header())
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not an array", `{"rows": []}`},
		{"empty table", `[]`},
		{"ragged row", `[["a","b"],["only one"]]`},
		{"non-string header", `[["a",2],["x","y"]]`},
		{"nested cell", `[["a"],[["nested"]]]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestFromRowsNormalizesIntegers(t *testing.T) {
	// YAML decodes numeric literals as int; JSON as float64.
	// Both sides must end up identical after construction.
	fromYAML, err := FromRows([][]any{{"_rowName", "n"}, {"0", int(7)}})
	require.NoError(t, err)

	fromJSON, err := Parse([]byte(`[["_rowName","n"],["0",7]]`))
	require.NoError(t, err)

	assert.True(t, fromJSON.Equal(fromYAML))
}

func TestEqualExact(t *testing.T) {
	a, err := FromRows([][]any{{"_rowName", "name"}, {"result", "1.2.3"}})
	require.NoError(t, err)
	b, err := FromRows([][]any{{"_rowName", "name"}, {"result", "1.2.3"}})
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
}

func TestEqualDistinguishesStringFromNumber(t *testing.T) {
	a, err := FromRows([][]any{{"n"}, {"1"}})
	require.NoError(t, err)
	b, err := FromRows([][]any{{"n"}, {1}})
	require.NoError(t, err)

	assert.False(t, a.Equal(b))
}

func TestFirstDiffNamesFirstDifferingCell(t *testing.T) {
	actual, err := FromRows([][]any{
		{"_rowName", "title"},
		{"0", "Other Value"},
	})
	require.NoError(t, err)
	expected, err := FromRows([][]any{
		{"_rowName", "title"},
		{"0", "My Value"},
	})
	require.NoError(t, err)

	diff := actual.FirstDiff(expected)
	require.NotNil(t, diff)
	assert.Equal(t, 1, diff.Row)
	assert.Equal(t, 1, diff.Col)
	assert.Equal(t, "title", diff.Column)
	assert.Equal(t, "My Value", diff.Want)
	assert.Equal(t, "Other Value", diff.Got)
	assert.Contains(t, diff.String(), "row 1, column 1 (title)")
}

func TestFirstDiffHeaderMismatch(t *testing.T) {
	actual, _ := FromRows([][]any{{"_rowName", "name"}})
	expected, _ := FromRows([][]any{{"_rowName", "title"}})

	diff := actual.FirstDiff(expected)
	require.NotNil(t, diff)
	assert.Equal(t, 0, diff.Row)
	assert.Equal(t, 1, diff.Col)
}

func TestFirstDiffRowCountMismatch(t *testing.T) {
	actual, _ := FromRows([][]any{{"n"}, {"a"}, {"b"}})
	expected, _ := FromRows([][]any{{"n"}, {"a"}})

	diff := actual.FirstDiff(expected)
	require.NotNil(t, diff)
	assert.Equal(t, -1, diff.Row)
	assert.Contains(t, diff.String(), "row count")
}

func TestFirstDiffEmptyTablesMatch(t *testing.T) {
	// Header-only expected table matches a zero-data-row response.
	actual, err := Parse([]byte(`[["_rowName","name"]]`))
	require.NoError(t, err)
	expected, err := FromRows([][]any{{"_rowName", "name"}})
	require.NoError(t, err)

	assert.Nil(t, actual.FirstDiff(expected))
}

func TestFirstDiffNullCells(t *testing.T) {
	a, _ := FromRows([][]any{{"n"}, {nil}})
	b, _ := FromRows([][]any{{"n"}, {nil}})
	c, _ := FromRows([][]any{{"n"}, {"x"}})

	assert.Nil(t, a.FirstDiff(b))
	assert.NotNil(t, a.FirstDiff(c))
	assert.NotNil(t, c.FirstDiff(a))
}

func TestJSONRoundTrip(t *testing.T) {
	orig, err := Parse([]byte(`[["_rowName","n","s"],["0",1.5,"x"],["1",null,"y"]]`))
	require.NoError(t, err)

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)
	assert.True(t, orig.Equal(back))
}

func TestRenderAlignsColumns(t *testing.T) {
	tbl, err := FromRows([][]any{
		{"_rowName", "title"},
		{"0", "My Value"},
		{"longer-row-name", "x"},
	})
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, tbl.Render(&b))

	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	require.Len(t, lines, 4) // header, separator, two data rows
	assert.True(t, strings.HasPrefix(lines[0], "_rowName"))
	assert.Contains(t, lines[1], "---")
	// The "title" column starts at the same offset in every line.
	assert.Equal(t, strings.Index(lines[0], "title"), strings.Index(lines[2], "My Value"))
}

func TestDisplayWidthWideRunes(t *testing.T) {
	assert.Equal(t, 3, displayWidth("abc"))
	assert.Equal(t, 4, displayWidth("日本"))
}
