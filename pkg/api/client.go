// pkg/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Client uploads row files to a running server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// a batch waits on every row's page load
		httpClient: &http.Client{Timeout: 30 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UploadFile sends the file at path with the given ingest options
func (c *Client) UploadFile(ctx context.Context, path string, opts IngestOptions) (*BatchResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return c.Upload(ctx, filepath.Base(path), f, opts)
}

// Upload sends r as a file named filename and waits for the whole batch
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader, opts IngestOptions) (*BatchResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if opts.Sheet != "" {
		mw.WriteField("sheet", opts.Sheet)
	}
	if opts.Encoding != "" {
		mw.WriteField("encoding", opts.Encoding)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/batches", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeBatch(resp)
}

func decodeBatch(resp *http.Response) (*BatchResponse, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		var batch BatchResponse
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return &batch, nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var batch BatchResponse
	if json.Unmarshal(data, &batch) == nil && batch.Partial {
		apiErr.Message = "batch stopped early"
		apiErr.Batch = &batch
		return nil, apiErr
	}

	var e ErrorResponse
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		apiErr.Message = e.Error
		apiErr.Detail = e.Detail
	}
	return nil, apiErr
}
