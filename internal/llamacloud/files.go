package llamacloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
)

// File is an uploaded file as returned by the Files API.
type File struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FileSize int64  `json:"file_size,omitempty"`
}

// UploadFile streams r to the Files API under name and returns the stored
// file. The body is written through a pipe, so r is never held in memory.
func (c *Client) UploadFile(ctx context.Context, name string, r io.Reader) (*File, error) {
	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)

	done := make(chan error, 1)
	go func() {
		done <- writeUpload(pw, w, name, r)
	}()

	var out File
	err := c.do(ctx, "POST", "/api/v1/files", nil, pr, w.FormDataContentType(), &out)

	// Unblock the writer if the request ended before reading the whole body.
	pr.CloseWithError(io.ErrClosedPipe)
	writeErr := <-done

	if err != nil {
		if writeErr != nil && !errors.Is(writeErr, io.ErrClosedPipe) {
			return nil, fmt.Errorf("failed to upload %s: %w", name, writeErr)
		}
		return nil, fmt.Errorf("failed to upload %s: %w", name, err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("file service returned a file without id")
	}
	return &out, nil
}

// writeUpload writes the multipart body and closes the pipe with the result.
func writeUpload(pw *io.PipeWriter, w *multipart.Writer, name string, r io.Reader) error {
	part, err := w.CreateFormFile("upload_file", name)
	if err == nil {
		if _, err = io.Copy(part, r); err != nil {
			err = fmt.Errorf("failed to copy %s: %w", name, err)
		}
	}
	if err == nil {
		err = w.Close()
	}
	pw.CloseWithError(err)
	return err
}
