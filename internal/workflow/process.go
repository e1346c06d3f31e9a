// Package workflow holds the two service entry points: processing a filing
// into a stored record and describing the stored data for discovery tools.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackzampolin/filings/internal/extraction"
	"github.com/jackzampolin/filings/internal/extractor"
	"github.com/jackzampolin/filings/internal/store"
)

// Sentinel errors for the workflow package. Returned errors wrap one of these
// together with the underlying cause.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrExtraction    = errors.New("extraction failed")
	ErrInvalidResult = errors.New("extraction result does not match schema")
	ErrPersistence   = errors.New("failed to persist record")
)

// FileEvent is a request to process one uploaded file.
type FileEvent struct {
	FileID string `json:"file_id"`
}

// Config configures a Processor.
type Config struct {
	Extractor  extractor.Extractor
	Store      store.Store
	Extraction *extraction.Config
	Logger     *slog.Logger
}

// Processor runs the file processing workflow. It holds no mutable state and
// is safe for concurrent use.
type Processor struct {
	extractor  extractor.Extractor
	store      store.Store
	extraction *extraction.Config
	logger     *slog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(cfg Config) (*Processor, error) {
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Extraction == nil {
		return nil, fmt.Errorf("extraction config is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Processor{
		extractor:  cfg.Extractor,
		store:      cfg.Store,
		extraction: cfg.Extraction,
		logger:     cfg.Logger,
	}, nil
}

// Process extracts structured data from the file, validates it and stores it
// under the filings collection. It returns the store-generated record id.
//
// The extractor and the store are each called at most once. Nothing is
// stored unless extraction succeeds and the result validates.
func (p *Processor) Process(ctx context.Context, ev FileEvent) (string, error) {
	fileID := strings.TrimSpace(ev.FileID)
	if fileID == "" {
		return "", fmt.Errorf("%w: file id is required", ErrInvalidInput)
	}

	start := time.Now()
	logger := p.logger.With("file_id", fileID, "extractor", p.extractor.Name())
	logger.Info("processing file")

	res, err := p.extractor.Extract(ctx, fileID, p.extraction)
	if err != nil {
		logger.Error("extraction failed", "error", err)
		return "", fmt.Errorf("%w: file %s: %w", ErrExtraction, fileID, err)
	}
	logger.Debug("extraction complete", "job_id", res.JobID, "elapsed_ms", time.Since(start).Milliseconds())

	if err := extraction.Validate(res.Data); err != nil {
		logger.Error("invalid extraction result", "job_id", res.JobID, "error", err)
		return "", fmt.Errorf("%w: file %s: %w", ErrInvalidResult, fileID, err)
	}
	rec, err := extraction.Decode(res.Data)
	if err != nil {
		logger.Error("invalid extraction result", "job_id", res.JobID, "error", err)
		return "", fmt.Errorf("%w: file %s: %w", ErrInvalidResult, fileID, err)
	}

	if err := ctx.Err(); err != nil {
		logger.Warn("cancelled before persistence", "job_id", res.JobID)
		return "", fmt.Errorf("file %s: %w", fileID, err)
	}

	id, err := p.store.Insert(ctx, extraction.CollectionName, res.Data)
	if err != nil {
		logger.Error("persistence failed", "job_id", res.JobID, "error", err)
		return "", fmt.Errorf("%w: file %s: %w", ErrPersistence, fileID, err)
	}

	logger.Info("file processed",
		"job_id", res.JobID,
		"record_id", id,
		"collection", extraction.CollectionName,
		"company", deref(rec.CompanyName),
		"ticker", deref(rec.TickerSymbol),
		"risk_factors", len(rec.RiskFactors),
		"elapsed_ms", time.Since(start).Milliseconds())
	return id, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
