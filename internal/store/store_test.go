package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jackzampolin/filings/internal/llamacloud"
)

func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := NewID()
		if err != nil {
			t.Fatalf("NewID failed: %v", err)
		}
		if !IsID(id) {
			t.Fatalf("invalid id %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestNewID_UsesWholeAlphabet(t *testing.T) {
	var lower, upper, digit bool
	for i := 0; i < 500; i++ {
		id, err := NewID()
		if err != nil {
			t.Fatalf("NewID failed: %v", err)
		}
		if len(id) != IDLength {
			t.Fatalf("expected %d chars, got %q", IDLength, id)
		}
		for _, c := range id {
			switch {
			case c >= 'a' && c <= 'z':
				lower = true
			case c >= 'A' && c <= 'Z':
				upper = true
			case c >= '0' && c <= '9':
				digit = true
			}
		}
	}
	if !lower || !upper || !digit {
		t.Errorf("expected lower, upper and digits across ids: %v %v %v", lower, upper, digit)
	}
}

func TestIsID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"a1B2c3D", true},
		{"0000000", true},
		{"abc", false},
		{"abcdefgh", false},
		{"abc-def", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsID(tt.in); got != tt.want {
			t.Errorf("IsID(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// exerciseStore runs the shared Store contract against s.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	first, err := s.Insert(ctx, "sec-10k-filings", json.RawMessage(`{"company_name":"First"}`))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if !IsID(first) {
		t.Errorf("expected 7-char alphanumeric id, got %q", first)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := s.Insert(ctx, "sec-10k-filings", json.RawMessage(`{"company_name":"Second"}`))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct ids")
	}
	if _, err := s.Insert(ctx, "other", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	rec, err := s.Get(ctx, first)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.Collection != "sec-10k-filings" || string(rec.Data) != `{"company_name":"First"}` {
		t.Errorf("unexpected record: %+v", rec)
	}

	list, err := s.List(ctx, "sec-10k-filings", 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 records, got %d", len(list))
	}
	if list[0].ID != second {
		t.Errorf("expected newest first, got %s", list[0].ID)
	}

	limited, err := s.List(ctx, "sec-10k-filings", 1)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 record with limit, got %d", len(limited))
	}

	if err := s.Delete(ctx, first); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, first); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, first); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}

	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemory_FailInsert(t *testing.T) {
	m := NewMemory()
	m.FailInsert = errors.New("down")
	if _, err := m.Insert(context.Background(), "c", json.RawMessage(`{}`)); err == nil {
		t.Error("expected insert failure")
	}
	if m.Inserts() != 1 || m.Len() != 0 {
		t.Errorf("expected 1 attempt and no records, got %d/%d", m.Inserts(), m.Len())
	}
}

func TestBadger(t *testing.T) {
	s, err := OpenBadger(BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("OpenBadger failed: %v", err)
	}
	defer s.Close()

	exerciseStore(t, s)
}

func TestBadger_InMemory(t *testing.T) {
	s, err := OpenBadger(BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadger failed: %v", err)
	}
	defer s.Close()

	exerciseStore(t, s)
}

func TestBadger_Reopen(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenBadger(BadgerConfig{Path: dir})
	if err != nil {
		t.Fatalf("OpenBadger failed: %v", err)
	}
	id, err := s.Insert(context.Background(), "sec-10k-filings", json.RawMessage(`{"company_name":"Durable"}`))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	s.Close()

	s, err = OpenBadger(BadgerConfig{Path: dir})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	rec, err := s.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(rec.Data) != `{"company_name":"Durable"}` {
		t.Errorf("unexpected data: %s", rec.Data)
	}
}

func TestBadger_ConcurrentInsert(t *testing.T) {
	s, err := OpenBadger(BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadger failed: %v", err)
	}
	defer s.Close()

	var wg sync.WaitGroup
	ids := make([]string, 20)
	errs := make([]error, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = s.Insert(context.Background(), "sec-10k-filings", json.RawMessage(`{}`))
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i, id := range ids {
		if errs[i] != nil {
			t.Fatalf("insert %d failed: %v", i, errs[i])
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestAgentData(t *testing.T) {
	var mu sync.Mutex
	records := map[string]llamacloud.AgentData{}
	ids := []string{"AbC1234", "XyZ9876", "Qq00000"}
	created := 0

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/beta/agent-data", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			DeploymentName string          `json:"deployment_name"`
			Collection     string          `json:"collection"`
			Data           json.RawMessage `json:"data"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		now := time.Now().Add(time.Duration(created) * time.Second)
		rec := llamacloud.AgentData{ID: ids[created], DeploymentName: req.DeploymentName, Collection: req.Collection, Data: req.Data, CreatedAt: &now}
		created++
		records[rec.ID] = rec
		mu.Unlock()
		json.NewEncoder(w).Encode(rec)
	})
	mux.HandleFunc("GET /api/v1/beta/agent-data/{id}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		rec, ok := records[r.PathValue("id")]
		mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(rec)
	})
	mux.HandleFunc("DELETE /api/v1/beta/agent-data/{id}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if _, ok := records[r.PathValue("id")]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(records, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/v1/beta/agent-data/:search", func(w http.ResponseWriter, r *http.Request) {
		var req llamacloud.SearchRequest
		json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		defer mu.Unlock()
		var items []llamacloud.AgentData
		// Newest first, matching order_by created_at desc.
		for i := len(ids) - 1; i >= 0; i-- {
			rec, ok := records[ids[i]]
			if !ok || (req.Collection != "" && rec.Collection != req.Collection) || rec.DeploymentName != req.DeploymentName {
				continue
			}
			items = append(items, rec)
		}
		if req.PageSize > 0 && len(items) > req.PageSize {
			items = items[:req.PageSize]
		}
		json.NewEncoder(w).Encode(llamacloud.SearchResponse{Items: items})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := llamacloud.NewClient(llamacloud.Config{APIKey: "k", BaseURL: srv.URL, RequestsPerSecond: 1000})
	exerciseStore(t, NewAgentData(client, "filings-test"))

	mu.Lock()
	defer mu.Unlock()
	for _, rec := range records {
		if rec.DeploymentName != "filings-test" {
			t.Errorf("expected deployment filings-test, got %s", rec.DeploymentName)
		}
	}
}

func TestAgentData_Unauthorized(t *testing.T) {
	client := llamacloud.NewClient(llamacloud.Config{BaseURL: "http://127.0.0.1:0"})
	s := NewAgentData(client, "")
	_, err := s.Insert(context.Background(), "sec-10k-filings", json.RawMessage(`{}`))
	if !errors.Is(err, llamacloud.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}
