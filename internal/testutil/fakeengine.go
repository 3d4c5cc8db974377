package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// FakeEngine is an in-process stand-in for the external query engine.
//
// It records every procedure and dataset call it receives and serves
// configured tables for exact query strings. It implements just enough of
// the engine's REST surface for the harness:
//
//	POST /v1/procedures
//	POST /v1/datasets
//	POST /v1/datasets/{id}/rows
//	POST /v1/datasets/{id}/commit
//	GET  /v1/query?q=...&format=table
//	GET  /v1/status
type FakeEngine struct {
	mu sync.Mutex

	srv *httptest.Server

	procedures []map[string]any
	datasets   map[string][]map[string]any // dataset id -> recorded rows
	committed  map[string]bool
	results    map[string][][]any // exact query string -> table rows
	fallback   [][]any            // served for queries with no exact match

	procedureStatus int    // non-zero forces procedure creation to fail
	procedureBody   string // error body when procedureStatus is set
}

// NewFakeEngine starts a fake engine server. It is closed via t.Cleanup.
func NewFakeEngine(t *testing.T) *FakeEngine {
	t.Helper()

	fe := &FakeEngine{
		datasets:  make(map[string][]map[string]any),
		committed: make(map[string]bool),
		results:   make(map[string][][]any),
	}
	fe.srv = httptest.NewServer(http.HandlerFunc(fe.handle))
	t.Cleanup(fe.srv.Close)
	return fe
}

// URL returns the fake engine's base URL.
func (fe *FakeEngine) URL() string {
	return fe.srv.URL
}

// SetQueryResult configures the table returned for an exact query string.
func (fe *FakeEngine) SetQueryResult(query string, rows [][]any) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	fe.results[query] = rows
}

// SetDefaultQueryResult configures a table served for any query without an
// exact match. Useful when the harness generates dataset names the test
// cannot predict.
func (fe *FakeEngine) SetDefaultQueryResult(rows [][]any) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	fe.fallback = rows
}

// FailProcedures makes every subsequent procedure creation return the given
// status and body. Pass status 0 to restore normal behavior.
func (fe *FakeEngine) FailProcedures(status int, body string) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	fe.procedureStatus = status
	fe.procedureBody = body
}

// Procedures returns the decoded bodies of all procedure creations received.
func (fe *FakeEngine) Procedures() []map[string]any {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	out := make([]map[string]any, len(fe.procedures))
	copy(out, fe.procedures)
	return out
}

// DatasetRows returns the rows recorded into a dataset.
func (fe *FakeEngine) DatasetRows(id string) []map[string]any {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.datasets[id]
}

// Committed reports whether a dataset has been committed.
func (fe *FakeEngine) Committed(id string) bool {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.committed[id]
}

func (fe *FakeEngine) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v1/status":
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case r.Method == http.MethodGet && r.URL.Path == "/v1/query":
		fe.handleQuery(w, r)

	case r.Method == http.MethodPost && r.URL.Path == "/v1/procedures":
		fe.handleProcedure(w, r)

	case r.Method == http.MethodPost && r.URL.Path == "/v1/datasets":
		fe.handleCreateDataset(w, r)

	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/v1/datasets/"):
		fe.handleDatasetSub(w, r)

	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown route " + r.URL.Path})
	}
}

func (fe *FakeEngine) handleQuery(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	fe.mu.Lock()
	rows, ok := fe.results[query]
	if !ok && fe.fallback != nil {
		rows, ok = fe.fallback, true
	}
	fe.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unknown query: " + query})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (fe *FakeEngine) handleProcedure(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	fe.mu.Lock()
	status, errBody := fe.procedureStatus, fe.procedureBody
	if status == 0 {
		fe.procedures = append(fe.procedures, body)
	}
	fe.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]any{"error": errBody})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"state": "finished"})
}

func (fe *FakeEngine) handleCreateDataset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "dataset id is required"})
		return
	}

	fe.mu.Lock()
	if _, exists := fe.datasets[body.ID]; !exists {
		fe.datasets[body.ID] = nil
	}
	fe.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"id": body.ID})
}

func (fe *FakeEngine) handleDatasetSub(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/datasets/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown route " + r.URL.Path})
		return
	}
	id, op := parts[0], parts[1]

	fe.mu.Lock()
	defer fe.mu.Unlock()

	if _, exists := fe.datasets[id]; !exists {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown dataset " + id})
		return
	}

	switch op {
	case "rows":
		var row map[string]any
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		fe.datasets[id] = append(fe.datasets[id], row)
		writeJSON(w, http.StatusOK, map[string]any{})
	case "commit":
		fe.committed[id] = true
		writeJSON(w, http.StatusOK, map[string]any{})
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown dataset operation " + op})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
