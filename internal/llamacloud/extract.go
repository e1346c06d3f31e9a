package llamacloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
)

// Job statuses reported by the Extract API.
const (
	StatusPending        = "PENDING"
	StatusSuccess        = "SUCCESS"
	StatusPartialSuccess = "PARTIAL_SUCCESS"
	StatusFailed         = "ERROR"
	StatusCancelled      = "CANCELLED"
)

// ExtractRunRequest starts a stateless extraction against an uploaded file.
type ExtractRunRequest struct {
	FileID     string          `json:"file_id"`
	DataSchema json.RawMessage `json:"data_schema"`
	Config     any             `json:"config"`
}

// ExtractJob is an extraction job as returned by the Extract API.
type ExtractJob struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Done reports whether the job reached a terminal status.
func (j *ExtractJob) Done() bool {
	switch j.Status {
	case StatusSuccess, StatusPartialSuccess, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Succeeded reports whether the job produced a result.
func (j *ExtractJob) Succeeded() bool {
	return j.Status == StatusSuccess || j.Status == StatusPartialSuccess
}

// ExtractResult is the output of a finished extraction job.
type ExtractResult struct {
	Data               json.RawMessage `json:"data"`
	ExtractionMetadata map[string]any  `json:"extraction_metadata,omitempty"`
}

var errJobPending = errors.New("job pending")

// RunExtraction submits an extraction job.
func (c *Client) RunExtraction(ctx context.Context, req ExtractRunRequest) (*ExtractJob, error) {
	if req.FileID == "" {
		return nil, fmt.Errorf("file id is required")
	}
	var job ExtractJob
	if err := c.doJSON(ctx, "POST", "/api/v1/extraction/run", nil, req, &job); err != nil {
		return nil, fmt.Errorf("failed to start extraction for file %s: %w", req.FileID, err)
	}
	if job.ID == "" {
		return nil, fmt.Errorf("extraction service returned a job without id")
	}
	return &job, nil
}

// GetJob fetches the current state of a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*ExtractJob, error) {
	var job ExtractJob
	if err := c.doJSON(ctx, "GET", "/api/v1/extraction/jobs/"+url.PathEscape(jobID), nil, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJobResult fetches the result of a finished job.
func (c *Client) GetJobResult(ctx context.Context, jobID string) (*ExtractResult, error) {
	var res ExtractResult
	if err := c.doJSON(ctx, "GET", "/api/v1/extraction/jobs/"+url.PathEscape(jobID)+"/result", nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// WaitForJob polls a job until it reaches a terminal status or the poll
// timeout elapses. Only a still-pending job is polled again; request errors
// end the wait immediately.
func (c *Client) WaitForJob(ctx context.Context, jobID string) (*ExtractJob, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	attempts := uint(c.pollTimeout/c.pollInterval) + 1
	var last *ExtractJob

	err := retry.Do(
		func() error {
			job, err := c.GetJob(pollCtx, jobID)
			if err != nil {
				return err
			}
			last = job
			if !job.Done() {
				return errJobPending
			}
			return nil
		},
		retry.Context(pollCtx),
		retry.Attempts(attempts),
		retry.Delay(c.pollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, errJobPending)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("extraction job pending", "job_id", jobID, "attempt", n+1)
		}),
	)

	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, errJobPending), errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: job %s after %s", ErrTimeout, jobID, c.pollTimeout)
	default:
		return nil, err
	}

	if !last.Succeeded() {
		msg := last.Error
		if msg == "" {
			msg = "no error detail"
		}
		return last, fmt.Errorf("%w: job %s status %s: %s", ErrExtractionFailed, jobID, last.Status, msg)
	}
	return last, nil
}

// Extract runs an extraction end to end: submit, wait, fetch result.
func (c *Client) Extract(ctx context.Context, req ExtractRunRequest) (*ExtractResult, string, error) {
	start := time.Now()

	job, err := c.RunExtraction(ctx, req)
	if err != nil {
		return nil, "", err
	}
	c.logger.Info("extraction job started", "file_id", req.FileID, "job_id", job.ID)

	if _, err := c.WaitForJob(ctx, job.ID); err != nil {
		return nil, job.ID, err
	}

	res, err := c.GetJobResult(ctx, job.ID)
	if err != nil {
		return nil, job.ID, fmt.Errorf("failed to fetch result for job %s: %w", job.ID, err)
	}

	c.logger.Info("extraction job finished",
		"file_id", req.FileID,
		"job_id", job.ID,
		"elapsed_ms", time.Since(start).Milliseconds())
	return res, job.ID, nil
}
