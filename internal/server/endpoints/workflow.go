package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/filings/internal/api"
	"github.com/jackzampolin/filings/internal/ingest"
	"github.com/jackzampolin/filings/internal/svcctx"
	"github.com/jackzampolin/filings/internal/workflow"
)

// MetadataEndpoint handles GET /api/metadata.
type MetadataEndpoint struct{}

func (e *MetadataEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metadata", e.handler
}

func (e *MetadataEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Describe extracted data
//	@Description	Collection name and fully dereferenced JSON Schema of stored records
//	@Tags			workflows
//	@Produce		json
//	@Success		200	{object}	workflow.MetadataResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/metadata [get]
func (e *MetadataEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	md := svcctx.MetadataFrom(r.Context())
	if md == nil {
		writeError(w, http.StatusServiceUnavailable, "metadata workflow not initialized")
		return
	}
	writeJSON(w, http.StatusOK, md.Describe())
}

func (e *MetadataEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata",
		Short: "Show the collection name and JSON Schema of extracted records",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp workflow.MetadataResponse
			if err := client.Get(cmd.Context(), "/api/metadata", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ProcessResponse is the result of processing one file.
type ProcessResponse struct {
	FileID   string `json:"file_id"`
	RecordID string `json:"record_id"`
}

// ProcessFileEndpoint handles POST /api/files/{id}/process.
type ProcessFileEndpoint struct{}

func (e *ProcessFileEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/files/{id}/process", e.handler
}

func (e *ProcessFileEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Process a filing
//	@Description	Extract structured data from an uploaded 10-K and store it. Blocks until the record is stored.
//	@Tags			workflows
//	@Produce		json
//	@Param			id	path		string	true	"Remote file ID"
//	@Success		200	{object}	ProcessResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		502	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Failure		504	{object}	ErrorResponse
//	@Router			/api/files/{id}/process [post]
func (e *ProcessFileEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("id")

	proc := svcctx.ProcessorFrom(r.Context())
	if proc == nil {
		writeError(w, http.StatusServiceUnavailable, "processor not initialized")
		return
	}

	recordID, err := proc.Process(r.Context(), workflow.FileEvent{FileID: fileID})
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ProcessResponse{FileID: fileID, RecordID: recordID})
}

func (e *ProcessFileEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "process <file-id>",
		Short: "Extract and store one uploaded filing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ProcessResponse
			path := "/api/files/" + url.PathEscape(args[0]) + "/process"
			if err := client.Post(cmd.Context(), path, nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ProcessBatchRequest lists files to process together.
type ProcessBatchRequest struct {
	FileIDs     []string `json:"file_ids"`
	Concurrency int      `json:"concurrency,omitempty"`
}

// ProcessBatchResponse reports every file of a batch.
type ProcessBatchResponse struct {
	Results []workflow.BatchResult `json:"results"`
	Failed  int                    `json:"failed"`
}

// ProcessBatchEndpoint handles POST /api/files/process.
type ProcessBatchEndpoint struct {
	Limit *BatchLimit
}

func (e *ProcessBatchEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/files/process", e.handler
}

func (e *ProcessBatchEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Process several filings
//	@Description	Run the processing workflow for each file independently. A failed file does not affect the others.
//	@Tags			workflows
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ProcessBatchRequest	true	"Files to process"
//	@Success		200		{object}	ProcessBatchResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/files/process [post]
func (e *ProcessBatchEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ProcessBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if len(req.FileIDs) == 0 {
		writeError(w, http.StatusBadRequest, "file_ids is required")
		return
	}

	proc := svcctx.ProcessorFrom(r.Context())
	if proc == nil {
		writeError(w, http.StatusServiceUnavailable, "processor not initialized")
		return
	}

	limit := e.Limit.Get()
	if req.Concurrency > 0 && req.Concurrency < limit {
		limit = req.Concurrency
	}

	events := make([]workflow.FileEvent, len(req.FileIDs))
	for i, id := range req.FileIDs {
		events[i] = workflow.FileEvent{FileID: id}
	}
	results := proc.ProcessBatch(r.Context(), events, limit)

	writeJSON(w, http.StatusOK, ProcessBatchResponse{
		Results: results,
		Failed:  workflow.Failed(results),
	})
}

func (e *ProcessBatchEndpoint) Command(getServerURL func() string) *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "process-batch <file-id>...",
		Short: "Extract and store several uploaded filings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ProcessBatchResponse
			req := ProcessBatchRequest{FileIDs: args, Concurrency: concurrency}
			if err := client.Post(cmd.Context(), "/api/files/process", req, &resp); err != nil {
				return err
			}
			if err := api.Output(resp); err != nil {
				return err
			}
			if resp.Failed > 0 {
				return fmt.Errorf("%d of %d files failed", resp.Failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Max files in flight (server limit applies)")
	return cmd
}

// UploadResponse describes an uploaded filing.
type UploadResponse struct {
	Name      string `json:"name"`
	FileID    string `json:"file_id"`
	PageCount int    `json:"page_count"`
	RecordID  string `json:"record_id,omitempty"`
}

// DefaultMaxUploadBytes bounds the request body of a filing upload.
const DefaultMaxUploadBytes = 100 << 20

// UploadEndpoint handles POST /api/files/upload with a multipart PDF.
type UploadEndpoint struct {
	// MaxBytes bounds the request body; zero means DefaultMaxUploadBytes.
	MaxBytes int64
}

var _ api.Endpoint = (*UploadEndpoint)(nil)

func (e *UploadEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/files/upload", e.handler
}

func (e *UploadEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Upload a filing
//	@Description	Upload a 10-K PDF to the remote file store, optionally processing it
//	@Tags			workflows
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"Filing PDF"
//	@Param			process	formData	bool	false	"Run the processing workflow after upload"
//	@Success		200		{object}	UploadResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		413		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/files/upload [post]
func (e *UploadEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	const maxMemory = 32 << 20
	limit := e.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", limit))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	f, fh, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer f.Close()

	ing := svcctx.IngesterFrom(r.Context())
	if ing == nil {
		writeError(w, http.StatusServiceUnavailable, "ingester not initialized")
		return
	}

	process := strings.EqualFold(r.FormValue("process"), "true")
	res, err := ing.IngestReader(r.Context(), fh.Filename, f, process)
	if err != nil {
		status := errorStatus(err)
		if errors.Is(err, ingest.ErrNotPDF) || errors.Is(err, ingest.ErrInvalidPDF) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Name:      res.Name,
		FileID:    res.FileID,
		PageCount: res.PageCount,
		RecordID:  res.RecordID,
	})
}

// No CLI command for multipart upload; use "filings upload" instead.
func (e *UploadEndpoint) Command(_ func() string) *cobra.Command {
	return nil
}
