package endpoints

import (
	"sync/atomic"

	"github.com/jackzampolin/filings/internal/api"
	"github.com/jackzampolin/filings/internal/workflow"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	BatchLimit *BatchLimit
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Workflow endpoints
		&MetadataEndpoint{},
		&ProcessFileEndpoint{},
		&ProcessBatchEndpoint{Limit: cfg.BatchLimit},
		&UploadEndpoint{},

		// Record endpoints
		&ListRecordsEndpoint{},
		&GetRecordEndpoint{},
		&DeleteRecordEndpoint{},
	}
}

// BatchLimit is the live concurrency bound for batch processing. It is
// updated when the configuration is reloaded.
type BatchLimit struct {
	n atomic.Int64
}

// NewBatchLimit creates a BatchLimit; n <= 0 selects the workflow default.
func NewBatchLimit(n int) *BatchLimit {
	b := &BatchLimit{}
	b.Set(n)
	return b
}

// Set updates the limit.
func (b *BatchLimit) Set(n int) {
	if n <= 0 {
		n = workflow.DefaultConcurrency
	}
	b.n.Store(int64(n))
}

// Get returns the current limit.
func (b *BatchLimit) Get() int {
	if b == nil {
		return workflow.DefaultConcurrency
	}
	return int(b.n.Load())
}
