package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jackzampolin/filings/internal/extraction"
	"github.com/jackzampolin/filings/internal/extractor"
	"github.com/jackzampolin/filings/internal/llamacloud"
	"github.com/jackzampolin/filings/internal/store"
	"github.com/jackzampolin/filings/internal/workflow"
)

// testPDF builds a minimal well-formed PDF with the given number of pages.
func testPDF(pages int) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))
	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

type fakeUploader struct {
	mu      sync.Mutex
	names   []string
	sizes   []int
	failFor string
}

func (u *fakeUploader) UploadFile(ctx context.Context, name string, r io.Reader) (*llamacloud.File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if name == u.failFor {
		return nil, llamacloud.ErrUnauthorized
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.names = append(u.names, name)
	u.sizes = append(u.sizes, len(data))
	return &llamacloud.File{ID: fmt.Sprintf("file-%d", len(u.names)), Name: name, FileSize: int64(len(data))}, nil
}

func writePDF(t *testing.T, dir, name string, pages int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, testPDF(pages), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestIngest_UploadsInArgumentOrder(t *testing.T) {
	dir := t.TempDir()
	p2 := writePDF(t, dir, "acme-2.pdf", 1)
	p1 := writePDF(t, dir, "acme-1.pdf", 3)

	up := &fakeUploader{}
	ing, err := New(Config{Uploader: up})
	if err != nil {
		t.Fatal(err)
	}

	results, err := ing.Ingest(context.Background(), Request{Paths: []string{p2, p1}})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Name != "acme-2.pdf" || results[0].PageCount != 1 {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	if results[1].Name != "acme-1.pdf" || results[1].FileID != "file-2" || results[1].PageCount != 3 {
		t.Errorf("unexpected second result: %+v", results[1])
	}
	if up.sizes[1] != len(testPDF(3)) {
		t.Errorf("uploaded %d bytes, want the whole file", up.sizes[1])
	}
}

func TestIngest_ValidatesBeforeUploading(t *testing.T) {
	dir := t.TempDir()
	good := writePDF(t, dir, "good.pdf", 1)
	bad := filepath.Join(dir, "bad.pdf")
	os.WriteFile(bad, []byte("not a pdf"), 0o644)
	txt := filepath.Join(dir, "notes.txt")
	os.WriteFile(txt, []byte("hello"), 0o644)

	tests := []struct {
		name  string
		paths []string
		want  error
	}{
		{"no paths", nil, ErrNoFiles},
		{"corrupt pdf", []string{good, bad}, ErrInvalidPDF},
		{"wrong extension", []string{txt}, ErrNotPDF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &fakeUploader{}
			ing, _ := New(Config{Uploader: up})
			_, err := ing.Ingest(context.Background(), Request{Paths: tt.paths})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if len(up.names) != 0 {
				t.Errorf("nothing should be uploaded, got %v", up.names)
			}
		})
	}
}

func TestIngest_UploadFailure(t *testing.T) {
	dir := t.TempDir()
	p1 := writePDF(t, dir, "a-1.pdf", 1)
	p2 := writePDF(t, dir, "a-2.pdf", 1)

	ing, _ := New(Config{Uploader: &fakeUploader{failFor: "a-2.pdf"}})
	results, err := ing.Ingest(context.Background(), Request{Paths: []string{p1, p2}})
	if !errors.Is(err, llamacloud.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(results) != 1 || results[0].Name != "a-1.pdf" {
		t.Errorf("expected the first upload to be reported, got %+v", results)
	}
}

func TestIngest_Process(t *testing.T) {
	mem := store.NewMemory()
	proc, err := workflow.NewProcessor(workflow.Config{
		Extractor:  extractor.NewMock(),
		Store:      mem,
		Extraction: extraction.MustConfig(),
	})
	if err != nil {
		t.Fatal(err)
	}

	ing, _ := New(Config{Uploader: &fakeUploader{}, Processor: proc})
	if !ing.CanProcess() {
		t.Fatal("expected ingester to support processing")
	}

	res, err := ing.IngestReader(context.Background(), "acme.pdf", bytes.NewReader(testPDF(2)), true)
	if err != nil {
		t.Fatalf("IngestReader failed: %v", err)
	}
	if !store.IsID(res.RecordID) {
		t.Errorf("expected a record id, got %q", res.RecordID)
	}
	if mem.Len() != 1 {
		t.Errorf("expected 1 stored record, got %d", mem.Len())
	}
}

func TestIngestReader_Errors(t *testing.T) {
	ing, _ := New(Config{Uploader: &fakeUploader{}})

	if _, err := ing.IngestReader(context.Background(), "acme.docx", bytes.NewReader(testPDF(1)), false); !errors.Is(err, ErrNotPDF) {
		t.Errorf("expected ErrNotPDF, got %v", err)
	}
	if _, err := ing.IngestReader(context.Background(), "acme.pdf", bytes.NewReader(testPDF(1)), true); err == nil {
		t.Error("expected error when processing without a workflow")
	}
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without uploader")
	}
}
