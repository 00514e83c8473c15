// pkg/api/api_test.go
package api

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func staticConfig() *Config {
	cfg := DefaultConfig()
	cfg.Browser.Driver = "static"
	cfg.Sink.Driver = "none"
	cfg.Metrics.Enabled = false
	return cfg
}

func TestExtractor(t *testing.T) {
	shop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><div id="cost">%s</div></body></html>`, map[string]string{
			"/a": "1 299.90 грн",
			"/b": "no price yet",
		}[r.URL.Path])
	}))
	t.Cleanup(shop.Close)

	ctx := context.Background()
	x, err := NewExtractor(ctx, staticConfig())
	if err != nil {
		t.Fatalf("failed to create extractor: %v", err)
	}
	defer x.Close()

	path := filepath.Join(t.TempDir(), "rows.csv")
	csv := fmt.Sprintf("title,url,xpath\nA,%[1]s/a,//div[@id='cost']\nB,%[1]s/b,//div[@id='cost']\n", shop.URL)
	if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}

	var notices []Notice
	result, err := x.ExtractFile(ctx, path, IngestOptions{}, func(n Notice) { notices = append(notices, n) })
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}

	avg := 1299.9
	want := Summary{
		TotalRows: 2,
		Succeeded: 1,
		Failed:    1,
		Domains: []DomainSummary{
			{Domain: shop.Listener.Addr().String(), Attempts: 2, Count: 1, Average: &avg},
		},
	}
	if diff := cmp.Diff(want, result.Summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	if len(notices) != 2 {
		t.Errorf("expected 2 notices, got %d", len(notices))
	}
}

func TestExtractFile_BadInput(t *testing.T) {
	x, err := NewExtractor(context.Background(), staticConfig())
	if err != nil {
		t.Fatalf("failed to create extractor: %v", err)
	}
	defer x.Close()

	if _, err := x.ExtractFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), IngestOptions{}, nil); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestClient_Upload(t *testing.T) {
	var gotFile, gotEncoding string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/batches" {
			http.NotFound(w, r)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		file.Close()
		gotFile = header.Filename
		gotEncoding = r.FormValue("encoding")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"summary":{"total_rows":1,"succeeded":1,"failed":0,"domains":[]},"outcomes":[],"messages":["File loaded. 1 rows loaded."]}`)
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL + "/")
	resp, err := client.Upload(context.Background(), "rows.csv", strings.NewReader("title,url,xpath\n"), IngestOptions{Encoding: "cp1251"})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if gotFile != "rows.csv" || gotEncoding != "cp1251" {
		t.Errorf("server saw file %q encoding %q", gotFile, gotEncoding)
	}
	if resp.Summary.TotalRows != 1 || len(resp.Messages) != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantPartial bool
	}{
		{"rejected", http.StatusUnsupportedMediaType, `{"error":"unsupported type","detail":"rows.pdf"}`, "unsupported type", false},
		{"rate limited", http.StatusTooManyRequests, `{"error":"Rate limit exceeded"}`, "Rate limit exceeded", false},
		{"partial", http.StatusServiceUnavailable, `{"summary":{"total_rows":3},"outcomes":[],"messages":[],"partial":true}`, "batch stopped early", true},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, "Bad Gateway", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			_, err := NewClient(server.URL).Upload(context.Background(), "rows.csv", strings.NewReader(""), IngestOptions{})

			var apiErr *APIError
			if !stderrors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T: %v", err, err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Message != tt.wantMessage {
				t.Errorf("unexpected error: %+v", apiErr)
			}
			if (apiErr.Batch != nil) != tt.wantPartial {
				t.Errorf("expected partial batch %t, got %+v", tt.wantPartial, apiErr.Batch)
			}
		})
	}
}
