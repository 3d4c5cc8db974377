package engine_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowcheck/rowcheck/internal/engine"
	"github.com/rowcheck/rowcheck/internal/testutil"
)

func newClient(t *testing.T) (*engine.Client, *testutil.FakeEngine) {
	t.Helper()
	fe := testutil.NewFakeEngine(t)
	client, err := engine.New(engine.Config{BaseURL: fe.URL()})
	require.NoError(t, err)
	return client, fe
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := engine.New(engine.Config{})
	assert.Error(t, err)

	_, err = engine.New(engine.Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)

	_, err = engine.New(engine.Config{BaseURL: "http://localhost:11700/"})
	assert.NoError(t, err)
}

func TestQueryParsesTable(t *testing.T) {
	client, fe := newClient(t)
	fe.SetQueryResult("SELECT * FROM sparse", [][]any{
		{"_rowName", "name"},
		{"result", "1.2.3"},
	})

	tbl, err := client.Query(context.Background(), "SELECT * FROM sparse")
	require.NoError(t, err)

	assert.Equal(t, []string{"_rowName", "name"}, tbl.Header())
	assert.Equal(t, 1, tbl.NumDataRows())
	assert.Equal(t, "1.2.3", tbl[1][1])
}

func TestQueryRequestError(t *testing.T) {
	client, _ := newClient(t)

	_, err := client.Query(context.Background(), "SELECT * FROM nowhere")
	require.Error(t, err)

	var reqErr *engine.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.MethodGet, reqErr.Method)
	assert.Equal(t, http.StatusBadRequest, reqErr.StatusCode)
	assert.Contains(t, reqErr.Body, "unknown query")
	assert.Contains(t, reqErr.Error(), "status 400")
}

func TestCreateProcedureSendsSpec(t *testing.T) {
	client, fe := newClient(t)

	runOnCreation := true
	spec := engine.ProcedureSpec{
		Type: "import.text",
		Params: engine.ProcedureParams{
			OutputDataset: engine.DatasetConfig{ID: "bid_req", Type: "sparse.mutable"},
			RunOnCreation: &runOnCreation,
			Extra:         map[string]any{"dataFileUrl": "file://bids.csv.gz"},
		},
	}
	require.NoError(t, client.CreateProcedure(context.Background(), spec))

	procs := fe.Procedures()
	require.Len(t, procs, 1)
	assert.Equal(t, "import.text", procs[0]["type"])

	params := procs[0]["params"].(map[string]any)
	assert.Equal(t, "file://bids.csv.gz", params["dataFileUrl"])
	assert.Equal(t, true, params["runOnCreation"])

	out := params["outputDataset"].(map[string]any)
	assert.Equal(t, "bid_req", out["id"])
	assert.Equal(t, "sparse.mutable", out["type"])
}

func TestCreateProcedureFailure(t *testing.T) {
	client, fe := newClient(t)
	fe.FailProcedures(http.StatusBadRequest, "unknown procedure type")

	err := client.CreateProcedure(context.Background(), engine.ProcedureSpec{Type: "bogus"})
	require.Error(t, err)

	var reqErr *engine.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.MethodPost, reqErr.Method)
	assert.Contains(t, reqErr.URL, "/v1/procedures")
}

func TestDatasetLifecycle(t *testing.T) {
	client, fe := newClient(t)
	ctx := context.Background()

	cfg := engine.DatasetConfig{ID: "dataset1", Type: "sparse.mutable"}
	require.NoError(t, client.CreateDataset(ctx, cfg))

	rows := []engine.Row{
		{Name: "row1", Columns: [][]any{{"x", "toy story", 0}, {"y", "1", 0}}},
		{Name: "row2", Columns: [][]any{{"x", "terminator", 0}, {"y", "2", 0}}},
	}
	require.NoError(t, client.RecordRows(ctx, "dataset1", rows))
	require.NoError(t, client.CommitDataset(ctx, "dataset1"))

	recorded := fe.DatasetRows("dataset1")
	require.Len(t, recorded, 2)
	assert.Equal(t, "row1", recorded[0]["rowName"])
	assert.Equal(t, "row2", recorded[1]["rowName"])
	assert.True(t, fe.Committed("dataset1"))
}

func TestRecordRowsUnknownDataset(t *testing.T) {
	client, _ := newClient(t)

	err := client.RecordRows(context.Background(), "ghost", []engine.Row{{Name: "r"}})
	require.Error(t, err)

	var reqErr *engine.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusNotFound, reqErr.StatusCode)
}

func TestPing(t *testing.T) {
	client, _ := newClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestContextCancellation(t *testing.T) {
	client, _ := newClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Ping(ctx)
	assert.Error(t, err)
}

func TestOutputDatasetName(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
		ok   bool
	}{
		{"plain string", "keywords", "keywords", true},
		{"empty string", "", "", false},
		{"nil", nil, "", false},
		{"config", engine.DatasetConfig{ID: "sparse", Type: "sparse.mutable"}, "sparse", true},
		{"decoded map", map[string]any{"id": "sparse", "type": "sparse.mutable"}, "sparse", true},
		{"map without id", map[string]any{"type": "sparse.mutable"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := engine.OutputDatasetName(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetOutputDatasetName(t *testing.T) {
	out, err := engine.SetOutputDatasetName(nil, "out-1")
	require.NoError(t, err)
	assert.Equal(t, "out-1", out)

	out, err = engine.SetOutputDatasetName(map[string]any{"type": "sparse.mutable"}, "out-2")
	require.NoError(t, err)
	m := out.(map[string]any)
	assert.Equal(t, "out-2", m["id"])
	assert.Equal(t, "sparse.mutable", m["type"])
}
