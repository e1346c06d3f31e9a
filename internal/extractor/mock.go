package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackzampolin/filings/internal/extraction"
)

const MockName = "mock"

// ErrMockFailure is returned by Mock when configured to fail.
var ErrMockFailure = errors.New("mock extraction failed")

// Mock is an Extractor for tests and local development.
type Mock struct {
	// Configurable behavior
	Latency  time.Duration
	Data     json.RawMessage
	FailFor  map[string]error // per file id
	Fail     bool
	Metadata map[string]any

	calls atomic.Int64

	mu    sync.Mutex
	files []string
}

// NewMock creates a mock that returns a small valid record.
func NewMock() *Mock {
	return &Mock{
		Data: json.RawMessage(`{"company_name":"Example Corp","ticker_symbol":"EXMP"}`),
	}
}

// Name returns the backend identifier.
func (m *Mock) Name() string {
	return MockName
}

// Extract returns the configured data after Latency, honoring ctx.
func (m *Mock) Extract(ctx context.Context, fileID string, cfg *extraction.Config) (*Result, error) {
	n := m.calls.Add(1)
	m.mu.Lock()
	m.files = append(m.files, fileID)
	m.mu.Unlock()

	if m.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Latency):
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err, ok := m.FailFor[fileID]; ok {
		return nil, err
	}
	if m.Fail {
		return nil, fmt.Errorf("%w: file %s", ErrMockFailure, fileID)
	}

	return &Result{
		Data:     m.Data,
		Metadata: m.Metadata,
		JobID:    fmt.Sprintf("mock-%d", n),
	}, nil
}

// Calls returns the number of Extract calls.
func (m *Mock) Calls() int {
	return int(m.calls.Load())
}

// Files returns the file ids passed to Extract, in call order.
func (m *Mock) Files() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.files...)
}
