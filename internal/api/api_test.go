package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/health" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	var resp struct {
		Status string `json:"status"`
	}
	if err := NewClient(srv.URL).Get(context.Background(), "/health", &resp); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected ok, got %s", resp.Status)
	}
}

func TestClient_PostSendsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"echo":"` + body["file_id"] + `"}`))
	}))
	defer srv.Close()

	var resp map[string]string
	err := NewClient(srv.URL).Post(context.Background(), "/api/files/process", map[string]string{"file_id": "f-1"}, &resp)
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if resp["echo"] != "f-1" {
		t.Errorf("expected echo f-1, got %v", resp)
	}
}

func TestClient_ErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"json error", http.StatusNotFound, `{"error":"record not found"}`, "record not found"},
		{"plain body", http.StatusBadGateway, "upstream down\n", "upstream down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewClient(srv.URL).Delete(context.Background(), "/api/records/abc1234")
			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("expected StatusError, got %v", err)
			}
			if se.Code != tt.status || se.Message != tt.wantMsg {
				t.Errorf("unexpected error: %+v", se)
			}
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewClient(url).Get(context.Background(), "/health", nil)
	if !errors.Is(err, ErrServerUnreachable) {
		t.Errorf("expected ErrServerUnreachable, got %v", err)
	}
}

func TestOutputTo(t *testing.T) {
	data := struct {
		Collection string `json:"extracted_data_collection"`
		Count      int    `json:"count"`
	}{"sec-10k-filings", 2}

	var buf bytes.Buffer
	if err := OutputTo(&buf, OutputFormatYAML, data); err != nil {
		t.Fatalf("yaml output failed: %v", err)
	}
	if !strings.Contains(buf.String(), "extracted_data_collection: sec-10k-filings") {
		t.Errorf("yaml should use json tag names, got:\n%s", buf.String())
	}

	buf.Reset()
	if err := OutputTo(&buf, OutputFormatJSON, data); err != nil {
		t.Fatalf("json output failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"count": 2`) {
		t.Errorf("unexpected json output:\n%s", buf.String())
	}

	if err := OutputTo(&buf, "toml", data); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestParseOutputFormat(t *testing.T) {
	if f, err := ParseOutputFormat("json"); err != nil || f != OutputFormatJSON {
		t.Errorf("expected json, got %s %v", f, err)
	}
	if f, err := ParseOutputFormat(""); err != nil || f != DefaultOutput {
		t.Errorf("expected default, got %s %v", f, err)
	}
	if _, err := ParseOutputFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

type fakeEndpoint struct {
	method, path, use, group string
	init                     bool
}

func (e *fakeEndpoint) Route() (string, string, http.HandlerFunc) {
	return e.method, e.path, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(e.use))
	}
}
func (e *fakeEndpoint) RequiresInit() bool { return e.init }
func (e *fakeEndpoint) Group() string      { return e.group }
func (e *fakeEndpoint) Command(func() string) *cobra.Command {
	if e.use == "" {
		return nil
	}
	return &cobra.Command{Use: e.use}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeEndpoint{method: "GET", path: "/health", use: "health"})
	r.Register(&fakeEndpoint{method: "GET", path: "/api/records/{id}", use: "get", group: "records", init: true})
	r.Register(&fakeEndpoint{method: "DELETE", path: "/api/records/{id}", use: "delete", group: "records", init: true})
	r.Register(&fakeEndpoint{method: "GET", path: "/swagger.json"})

	var wrapped int
	mux := http.NewServeMux()
	r.RegisterRoutes(mux, func(h http.HandlerFunc) http.HandlerFunc {
		wrapped++
		return h
	})
	if wrapped != 2 {
		t.Errorf("expected 2 wrapped handlers, got %d", wrapped)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/records/abc1234", nil))
	if rec.Body.String() != "delete" {
		t.Errorf("expected delete handler, got %q", rec.Body.String())
	}

	root := r.BuildCommands(func() string { return "" })
	records, _, err := root.Find([]string{"records", "get"})
	if err != nil || records.Use != "get" {
		t.Errorf("expected records get command, got %v %v", records, err)
	}
	if len(root.Commands()) != 2 {
		t.Errorf("expected health and records commands, got %d", len(root.Commands()))
	}
}
