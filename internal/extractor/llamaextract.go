package extractor

import (
	"context"
	"fmt"

	"github.com/jackzampolin/filings/internal/extraction"
	"github.com/jackzampolin/filings/internal/llamacloud"
)

const LlamaExtractName = "llamacloud"

// LlamaExtract runs extractions through the LlamaCloud Extract API.
type LlamaExtract struct {
	client *llamacloud.Client
}

// NewLlamaExtract creates an extractor backed by client.
func NewLlamaExtract(client *llamacloud.Client) *LlamaExtract {
	return &LlamaExtract{client: client}
}

// Name returns the backend identifier.
func (e *LlamaExtract) Name() string {
	return LlamaExtractName
}

// Extract submits a stateless extraction job and waits for its result.
func (e *LlamaExtract) Extract(ctx context.Context, fileID string, cfg *extraction.Config) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("extraction config is required")
	}
	res, jobID, err := e.client.Extract(ctx, llamacloud.ExtractRunRequest{
		FileID:     fileID,
		DataSchema: cfg.DataSchema,
		Config:     cfg,
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Data:     res.Data,
		Metadata: res.ExtractionMetadata,
		JobID:    jobID,
	}, nil
}
