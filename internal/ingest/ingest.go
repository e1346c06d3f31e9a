// Package ingest uploads local filing PDFs to the remote file store,
// optionally handing the new file ids to the processing workflow.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/jackzampolin/filings/internal/llamacloud"
	"github.com/jackzampolin/filings/internal/workflow"
)

var (
	ErrNoFiles    = errors.New("no PDF paths provided")
	ErrNotPDF     = errors.New("not a PDF file")
	ErrInvalidPDF = errors.New("invalid PDF")
)

// Uploader stores a document and returns its remote file id.
type Uploader interface {
	UploadFile(ctx context.Context, name string, r io.Reader) (*llamacloud.File, error)
}

// Config configures an Ingester.
type Config struct {
	Uploader Uploader
	// Processor is optional; without it Process requests only upload.
	Processor *workflow.Processor
	Logger    *slog.Logger
}

// Ingester validates and uploads filing PDFs.
type Ingester struct {
	uploader  Uploader
	processor *workflow.Processor
	logger    *slog.Logger
}

// Request contains the parameters for ingesting filings.
type Request struct {
	Paths   []string // PDF file paths, uploaded in this order
	Process bool     // run the processing workflow on each uploaded file
}

// Result describes one ingested document.
type Result struct {
	Path      string `json:"path,omitempty"`
	Name      string `json:"name"`
	FileID    string `json:"file_id"`
	PageCount int    `json:"page_count"`
	RecordID  string `json:"record_id,omitempty"`
}

// New creates an Ingester.
func New(cfg Config) (*Ingester, error) {
	if cfg.Uploader == nil {
		return nil, fmt.Errorf("uploader is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		uploader:  cfg.Uploader,
		processor: cfg.Processor,
		logger:    logger,
	}, nil
}

// CanProcess reports whether uploaded files can be handed to the workflow.
func (i *Ingester) CanProcess() bool {
	return i.processor != nil
}

// Ingest validates every path before uploading any of them, then uploads
// them in the order given. Filings are independent, so no order is imposed.
// Results for files uploaded before a failure are returned with the error.
func (i *Ingester) Ingest(ctx context.Context, req Request) ([]Result, error) {
	if len(req.Paths) == 0 {
		return nil, ErrNoFiles
	}
	if req.Process && i.processor == nil {
		return nil, fmt.Errorf("processing requested but no workflow is configured")
	}

	pages := make([]int, len(req.Paths))
	for n, p := range req.Paths {
		count, err := pageCountFile(p)
		if err != nil {
			return nil, err
		}
		pages[n] = count
	}
	i.logger.Info("starting ingest", "pdfs", len(req.Paths), "process", req.Process)

	results := make([]Result, 0, len(req.Paths))
	for n, p := range req.Paths {
		f, err := os.Open(p)
		if err != nil {
			return results, fmt.Errorf("failed to open %s: %w", p, err)
		}
		res, err := i.upload(ctx, filepath.Base(p), f, pages[n], req.Process)
		f.Close()
		if err != nil {
			return results, err
		}
		res.Path = p
		results = append(results, *res)
	}
	return results, nil
}

// IngestReader validates and uploads a single document held in memory or
// in a temporary file.
func (i *Ingester) IngestReader(ctx context.Context, name string, rs io.ReadSeeker, process bool) (*Result, error) {
	if !isPDFName(name) {
		return nil, fmt.Errorf("%w: %s", ErrNotPDF, name)
	}
	if process && i.processor == nil {
		return nil, fmt.Errorf("processing requested but no workflow is configured")
	}
	count, err := pageCount(name, rs)
	if err != nil {
		return nil, err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind %s: %w", name, err)
	}
	return i.upload(ctx, name, rs, count, process)
}

func (i *Ingester) upload(ctx context.Context, name string, r io.Reader, pages int, process bool) (*Result, error) {
	file, err := i.uploader.UploadFile(ctx, name, r)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", name, err)
	}
	res := &Result{Name: name, FileID: file.ID, PageCount: pages}
	i.logger.Info("uploaded filing", "name", name, "file_id", file.ID, "pages", pages)

	if process {
		recordID, err := i.processor.Process(ctx, workflow.FileEvent{FileID: file.ID})
		if err != nil {
			return res, err
		}
		res.RecordID = recordID
	}
	return res, nil
}

func pageCountFile(path string) (int, error) {
	if !isPDFName(path) {
		return 0, fmt.Errorf("%w: %s", ErrNotPDF, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("PDF not found: %s", path)
	}
	defer f.Close()
	return pageCount(path, f)
}

func pageCount(name string, rs io.ReadSeeker) (int, error) {
	count, err := api.PageCount(rs, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidPDF, name, err)
	}
	if count == 0 {
		return 0, fmt.Errorf("%w: %s has no pages", ErrInvalidPDF, name)
	}
	return count, nil
}

func isPDFName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
