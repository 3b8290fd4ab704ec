// Package client is a typed HTTP client for the dataset API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"optiplus/internal/model"
)

const defaultTimeout = 30 * time.Second

// APIError is returned for non-2xx responses and for bodies reporting success=false.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsNotFound reports whether err is an APIError for a missing dataset.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// DatasetDetail is a dataset with all of its rows.
type DatasetDetail struct {
	Data    []model.Row   `json:"data"`
	Dataset model.Dataset `json:"dataset"`
}

// UploadResult is the server's answer to an upload.
type UploadResult struct {
	DatasetDetail
	FilePath string `json:"filePath"`
}

// Export is a downloaded dataset file.
type Export struct {
	Filename string
	Content  []byte
}

// Client talks to one dataset server.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its transport is used as is.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New returns a client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute http(s)", baseURL)
	}

	c := &Client{
		baseURL: u,
		http: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListDatasets fetches every dataset with its preview rows.
func (c *Client) ListDatasets(ctx context.Context) ([]model.Dataset, error) {
	var out struct {
		envelope
		Datasets []model.Dataset `json:"datasets"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/datasets", nil, "", "fetch datasets", &out); err != nil {
		return nil, err
	}
	return out.Datasets, nil
}

// GetDataset fetches one dataset with all rows.
func (c *Client) GetDataset(ctx context.Context, id string) (*DatasetDetail, error) {
	var out struct {
		envelope
		DatasetDetail
	}
	if err := c.doJSON(ctx, http.MethodGet, datasetPath(id), nil, "", "fetch dataset", &out); err != nil {
		return nil, err
	}
	return &out.DatasetDetail, nil
}

// UploadDataset sends r as a multipart CSV upload named filename.
func (c *Client) UploadDataset(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{"name": "file", "filename": filename}))
	h.Set("Content-Type", "text/csv")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var out struct {
		envelope
		UploadResult
	}
	if err := c.doJSON(ctx, http.MethodPost, "/datasets", body, w.FormDataContentType(), "upload dataset", &out); err != nil {
		return nil, err
	}
	return &out.UploadResult, nil
}

// DeleteDataset removes a dataset.
func (c *Client) DeleteDataset(ctx context.Context, id string) error {
	var out envelope
	return c.doJSON(ctx, http.MethodDelete, datasetPath(id), nil, "", "delete dataset", &out)
}

// ExportDataset downloads the stored file as uploaded.
func (c *Client) ExportDataset(ctx context.Context, id string) (*Export, error) {
	resp, err := c.do(ctx, http.MethodGet, datasetPath(id)+"/export", nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errorFromBody(resp.StatusCode, data, "export dataset")
	}

	filename := id + ".csv"
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}
	return &Export{Filename: filename, Content: data}, nil
}

// envelope is the part every JSON response shares.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func (e envelope) ok() bool { return e.Success }

type successReporter interface{ ok() bool }

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	return c.http.Do(req)
}

// doJSON performs a request and decodes the JSON body into out, which must embed envelope.
// op names the operation in default error messages ("Failed to <op>").
func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, contentType, op string, out successReporter) error {
	resp, err := c.do(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromBody(resp.StatusCode, data, op)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !out.ok() {
		return errorFromBody(resp.StatusCode, data, op)
	}
	return nil
}

// errorFromBody prefers the server's message and falls back to "Failed to <op>", adding the
// status code when the response was not 2xx.
func errorFromBody(status int, data []byte, op string) *APIError {
	var env envelope
	_ = json.Unmarshal(data, &env)
	apiErr := &APIError{StatusCode: status, Code: env.Code, Message: env.Error}
	if apiErr.Message == "" {
		if status < 200 || status > 299 {
			apiErr.Message = fmt.Sprintf("Failed to %s: %d", op, status)
		} else {
			apiErr.Message = "Failed to " + op
		}
	}
	return apiErr
}

func datasetPath(id string) string {
	return "/datasets/" + url.PathEscape(id)
}
