package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/rowcheck/rowcheck/internal/table"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the engine's root URL, e.g. "http://localhost:11700".
	// Required.
	BaseURL string

	// HTTPClient issues the requests. Defaults to http.DefaultClient.
	// Timeout and transport policy belong to this client, not to Client.
	HTTPClient *http.Client

	// Logger receives per-request debug logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client talks to the external query engine.
// It is an explicitly constructed handle, passed into the harness rather
// than held as package-level state.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("engine base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid engine base URL %q: %w", cfg.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid engine base URL %q: scheme must be http or https", cfg.BaseURL)
	}

	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpc:   httpc,
		logger:  logger,
	}, nil
}

// CreateProcedure posts a procedure spec to /v1/procedures.
// The engine runs it on creation and materializes the output dataset.
func (c *Client) CreateProcedure(ctx context.Context, spec ProcedureSpec) error {
	_, err := c.do(ctx, http.MethodPost, "/v1/procedures", spec)
	return err
}

// CreateDataset creates an empty dataset via /v1/datasets.
func (c *Client) CreateDataset(ctx context.Context, cfg DatasetConfig) error {
	_, err := c.do(ctx, http.MethodPost, "/v1/datasets", cfg)
	return err
}

// RecordRows appends rows to a mutable dataset, one request per row,
// matching the engine's record-row granularity.
func (c *Client) RecordRows(ctx context.Context, datasetID string, rows []Row) error {
	path := "/v1/datasets/" + url.PathEscape(datasetID) + "/rows"
	for i, row := range rows {
		if _, err := c.do(ctx, http.MethodPost, path, row); err != nil {
			return fmt.Errorf("record row %d (%s): %w", i, row.Name, err)
		}
	}
	return nil
}

// CommitDataset commits a mutable dataset, making recorded rows queryable.
func (c *Client) CommitDataset(ctx context.Context, datasetID string) error {
	path := "/v1/datasets/" + url.PathEscape(datasetID) + "/commit"
	_, err := c.do(ctx, http.MethodPost, path, nil)
	return err
}

// Query runs a read-only SQL query and parses the table-shaped JSON
// response. The first response row is the column header, led by the
// engine's _rowName pseudo-column.
func (c *Client) Query(ctx context.Context, query string) (table.Table, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "table")

	body, err := c.do(ctx, http.MethodGet, "/v1/query?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	tbl, err := table.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", query, err)
	}
	return tbl, nil
}

// Ping checks the engine is reachable via /v1/status.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/v1/status", nil)
	return err
}

// do issues one request and returns the response body.
// Any non-2xx status becomes a *RequestError carrying the body.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	fullURL := c.baseURL + path

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("engine request", "method", method, "url", fullURL)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine request %s %s: %w", method, fullURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{
			Method:     method,
			URL:        fullURL,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	c.logger.Debug("engine response", "method", method, "url", fullURL,
		"status", resp.StatusCode, "bytes", len(body))

	return body, nil
}
