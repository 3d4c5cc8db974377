package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowcheck/rowcheck/internal/testutil"
)

const keywordsScenario = `name: keywords_transform
description: row_dataset column names become rows in the transformed output
setup:
  - procedure:
      type: transform
      params:
        inputData: >-
          SELECT column AS title FROM
          (SELECT * FROM row_dataset({"My Value": 1}))
        outputDataset: keywords
flow:
  - query: select * from keywords
    expect:
      - [_rowName, title]
      - ["0", My Value]
`

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func startPassingEngine(t *testing.T) *testutil.FakeEngine {
	t.Helper()
	fe := testutil.NewFakeEngine(t)
	fe.SetQueryResult("select * from keywords", [][]any{
		{"_rowName", "title"},
		{"0", "My Value"},
	})
	return fe
}

func TestRunCommandPasses(t *testing.T) {
	fe := startPassingEngine(t)
	dir := t.TempDir()
	writeScenario(t, dir, "keywords.yaml", keywordsScenario)

	out, err := execute(t, "run", dir, "--engine", fe.URL())
	require.NoError(t, err)
	assert.Contains(t, out, "PASS  keywords_transform")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestRunCommandFailureExitCode(t *testing.T) {
	fe := testutil.NewFakeEngine(t)
	fe.SetQueryResult("select * from keywords", [][]any{
		{"_rowName", "title"},
		{"0", "Wrong Value"},
	})
	dir := t.TempDir()
	writeScenario(t, dir, "keywords.yaml", keywordsScenario)

	out, err := execute(t, "run", dir, "--engine", fe.URL())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL  keywords_transform")
	assert.Contains(t, out, "0 passed, 1 failed, 1 total")
}

func TestRunCommandRequiresEngine(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "keywords.yaml", keywordsScenario)

	_, err := execute(t, "run", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommandUnreachableEngine(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "keywords.yaml", keywordsScenario)

	_, err := execute(t, "run", dir, "--engine", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommandFilter(t *testing.T) {
	fe := startPassingEngine(t)
	dir := t.TempDir()
	writeScenario(t, dir, "keywords.yaml", keywordsScenario)
	writeScenario(t, dir, "other.yaml", keywordsScenario)

	out, err := execute(t, "run", dir, "--engine", fe.URL(), "--filter", "key*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestRunCommandJSONOutput(t *testing.T) {
	fe := startPassingEngine(t)
	dir := t.TempDir()
	writeScenario(t, dir, "keywords.yaml", keywordsScenario)

	out, err := execute(t, "run", dir, "--engine", fe.URL(), "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "ok"`)
	assert.Contains(t, out, `"passed": 1`)
}

func TestRunCommandRecordsHistory(t *testing.T) {
	fe := startPassingEngine(t)
	dir := t.TempDir()
	writeScenario(t, dir, "keywords.yaml", keywordsScenario)
	db := filepath.Join(t.TempDir(), "runs.db")

	_, err := execute(t, "run", dir, "--engine", fe.URL(), "--record", db)
	require.NoError(t, err)

	out, err := execute(t, "runs", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "keywords_transform")
}

func TestRunsListMissingDatabase(t *testing.T) {
	_, err := execute(t, "runs", "list", "--db", filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "good.yaml", keywordsScenario)

	out, err := execute(t, "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "keywords_transform")
}

func TestValidateCommandInvalidFile(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "bad.yaml", "name: x\ndescription: d\n") // no flow

	out, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "BAD")
}

func TestQueryCommandText(t *testing.T) {
	fe := startPassingEngine(t)

	out, err := execute(t, "query", "select * from keywords", "--engine", fe.URL())
	require.NoError(t, err)
	assert.Contains(t, out, "_rowName")
	assert.Contains(t, out, "My Value")
}

func TestQueryCommandJSON(t *testing.T) {
	fe := startPassingEngine(t)

	out, err := execute(t, "query", "select * from keywords", "--engine", fe.URL(), "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "ok"`)
	assert.Contains(t, out, `"My Value"`)
}

func TestQueryCommandEngineRejection(t *testing.T) {
	fe := testutil.NewFakeEngine(t)

	_, err := execute(t, "query", "select * from nowhere", "--engine", fe.URL())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRootRejectsInvalidFormat(t *testing.T) {
	_, err := execute(t, "validate", ".", "--format", "xml")
	assert.Error(t, err)
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "b.yaml", keywordsScenario)
	writeScenario(t, dir, "a.yml", keywordsScenario)
	writeScenario(t, dir, "notes.txt", "not a scenario")

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	require.Len(t, files, 2)
	// Sorted, yaml extensions only.
	assert.Equal(t, filepath.Join(dir, "a.yml"), files[0])
	assert.Equal(t, filepath.Join(dir, "b.yaml"), files[1])

	single, err := findScenarioFiles(files[0], "")
	require.NoError(t, err)
	assert.Equal(t, []string{files[0]}, single)
}
