package workflow

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds ProcessBatch when no limit is given.
const DefaultConcurrency = 4

// BatchResult is the outcome of one file in a batch.
type BatchResult struct {
	FileID   string `json:"file_id"`
	RecordID string `json:"record_id,omitempty"`
	Err      error  `json:"-"`
	Error    string `json:"error,omitempty"`
}

// ProcessBatch runs Process for each event with at most concurrency files in
// flight. Files are independent: a failure is recorded in its own result and
// never cancels the others. Results are returned in input order.
func (p *Processor) ProcessBatch(ctx context.Context, events []FileEvent, concurrency int) []BatchResult {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]BatchResult, len(events))
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, ev := range events {
		g.Go(func() error {
			id, err := p.Process(ctx, ev)
			results[i] = BatchResult{FileID: ev.FileID, RecordID: id, Err: err}
			if err != nil {
				results[i].Error = err.Error()
			}
			return nil
		})
	}
	g.Wait()

	return results
}

// Failed returns the number of failed results.
func Failed(results []BatchResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
