// Package extractor wraps the remote services that turn a filing into
// structured data. Backends are interchangeable behind the Extractor interface
// and selected by name through a Registry.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/jackzampolin/filings/internal/extraction"
)

// Extractor runs one extraction for one remote file.
type Extractor interface {
	// Name returns the backend identifier.
	Name() string

	// Extract sends the file and configuration to the backend and returns the
	// structured data. Implementations must not retry failed jobs.
	Extract(ctx context.Context, fileID string, cfg *extraction.Config) (*Result, error)
}

// Result is the output of a successful extraction.
type Result struct {
	Data     json.RawMessage `json:"data"`
	Metadata map[string]any  `json:"metadata,omitempty"`
	JobID    string          `json:"job_id,omitempty"`
}

// Registry holds extractors by name. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
	logger     *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string]Extractor),
		logger:     slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds or replaces an extractor under its own name.
func (r *Registry) Register(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[e.Name()] = e
	if r.logger != nil {
		r.logger.Info("registered extractor", "name", e.Name())
	}
}

// Get returns the extractor registered under name.
func (r *Registry) Get(name string) (Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[name]
	if !ok {
		return nil, fmt.Errorf("extractor not found: %s", name)
	}
	return e, nil
}

// Names returns the registered extractor names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.extractors))
	for name := range r.extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
