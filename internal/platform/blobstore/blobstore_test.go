package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const testPatient = "6f1c2a52-6b0e-4c55-9c1e-2b1a4f0f7d11"

func seedBlob(t *testing.T, store BlobStore, patientID, fileName, content string) *BlobMetadata {
	t.Helper()
	meta := BlobMetadata{
		FileName:    fileName,
		ContentType: "application/pdf",
		PatientID:   patientID,
		Kind:        KindFichaPDF,
	}
	result, err := store.Upload(context.Background(), meta, strings.NewReader(content))
	if err != nil {
		t.Fatalf("seedBlob: %v", err)
	}
	return result
}

// ---------------------------------------------------------------------------
// Store tests
// ---------------------------------------------------------------------------

func TestInMemoryBlobStore_Upload(t *testing.T) {
	store := NewInMemoryBlobStore()
	content := "%PDF-1.3 fake"

	result := seedBlob(t, store, testPatient, "ficha_Ana.pdf", content)

	if result.ID == "" {
		t.Fatal("expected non-empty ID")
	}
	if result.FileName != "ficha_Ana.pdf" {
		t.Errorf("expected FileName=ficha_Ana.pdf, got %s", result.FileName)
	}
	if result.Size != int64(len(content)) {
		t.Errorf("expected Size=%d, got %d", len(content), result.Size)
	}
	if want := fmt.Sprintf("%x", sha256.Sum256([]byte(content))); result.Hash != want {
		t.Errorf("expected Hash=%s, got %s", want, result.Hash)
	}
	if result.CreatedAt.IsZero() {
		t.Fatal("expected non-zero CreatedAt")
	}
}

func TestInMemoryBlobStore_UploadValidation(t *testing.T) {
	store := NewInMemoryBlobStore()
	tests := []struct {
		name string
		meta BlobMetadata
		want error
	}{
		{"missing file name", BlobMetadata{ContentType: "application/pdf", PatientID: testPatient}, ErrMissingFileName},
		{"missing patient", BlobMetadata{FileName: "a.pdf", ContentType: "application/pdf"}, ErrMissingPatientID},
		{"bad content type", BlobMetadata{FileName: "a.exe", ContentType: "application/x-msdownload", PatientID: testPatient}, ErrInvalidContentType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Upload(context.Background(), tt.meta, strings.NewReader("x"))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestInMemoryBlobStore_Upload_FileTooLarge(t *testing.T) {
	store := NewInMemoryBlobStore()
	big := io.LimitReader(zeroReader{}, MaxFileSize+10)
	_, err := store.Upload(context.Background(), BlobMetadata{FileName: "big.pdf", ContentType: "application/pdf", PatientID: testPatient}, big)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestInMemoryBlobStore_Download(t *testing.T) {
	store := NewInMemoryBlobStore()
	created := seedBlob(t, store, testPatient, "ficha_Ana.pdf", "pdf bytes")

	rc, meta, err := store.Download(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "pdf bytes" {
		t.Errorf("unexpected content %q", data)
	}
	if meta.FileName != "ficha_Ana.pdf" {
		t.Errorf("unexpected file name %q", meta.FileName)
	}

	if _, _, err := store.Download(context.Background(), "missing"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestInMemoryBlobStore_Delete(t *testing.T) {
	store := NewInMemoryBlobStore()
	created := seedBlob(t, store, testPatient, "ficha_Ana.pdf", "x")

	if err := store.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.GetMetadata(context.Background(), created.ID); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound after delete, got %v", err)
	}
	if err := store.Delete(context.Background(), created.ID); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestInMemoryBlobStore_ListByPatientNewestFirst(t *testing.T) {
	store := NewInMemoryBlobStore()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	n := 0
	store.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
	first := seedBlob(t, store, testPatient, "ficha_1.pdf", "1")
	second := seedBlob(t, store, testPatient, "ficha_2.pdf", "2")
	seedBlob(t, store, "other", "ficha_3.pdf", "3")

	items, err := store.ListByPatient(context.Background(), testPatient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != second.ID || items[1].ID != first.ID {
		t.Error("expected newest first")
	}

	empty, err := store.ListByPatient(context.Background(), "nobody")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil list, got %v %v", empty, err)
	}
}

func TestInMemoryBlobStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryBlobStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			meta := BlobMetadata{FileName: fmt.Sprintf("f%d.pdf", i), ContentType: "application/pdf", PatientID: testPatient}
			if _, err := store.Upload(context.Background(), meta, strings.NewReader("x")); err != nil {
				t.Errorf("upload %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	items, _ := store.ListByPatient(context.Background(), testPatient)
	if len(items) != 20 {
		t.Errorf("expected 20 items, got %d", len(items))
	}
}

// ---------------------------------------------------------------------------
// Handler tests
// ---------------------------------------------------------------------------

func newTestHandler() (*InMemoryBlobStore, *echo.Echo) {
	store := NewInMemoryBlobStore()
	e := echo.New()
	NewBlobHandler(store, zerolog.Nop()).RegisterRoutes(e.Group("/api/v1"))
	return store, e
}

func TestBlobHandler_Download(t *testing.T) {
	store, e := newTestHandler()
	created := seedBlob(t, store, testPatient, "ficha_Ana.pdf", "pdf bytes")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/exports/"+created.ID, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "pdf bytes" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); cd != `attachment; filename=ficha_Ana.pdf` {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "application/pdf" {
		t.Errorf("unexpected Content-Type %q", ct)
	}
}

func TestBlobHandler_NotFound(t *testing.T) {
	_, e := newTestHandler()
	for _, path := range []string{"/api/v1/exports/nope", "/api/v1/exports/nope/metadata"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestBlobHandler_ListByPatient(t *testing.T) {
	store, e := newTestHandler()
	seedBlob(t, store, testPatient, "ficha_Ana.pdf", "1")
	seedBlob(t, store, testPatient, "ficha_Ana.pdf", "2")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/"+testPatient+"/exports", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 || len(resp.Items) != 2 {
		t.Errorf("expected 2 items, got %+v", resp)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/patients/not-a-uuid/exports", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid id, got %d", rec.Code)
	}
}

func TestBlobHandler_DownloadEscapesFileName(t *testing.T) {
	for _, name := range []string{`ficha_Ana_"Nina".pdf`, "ficha_João.pdf", `ficha_a;b\c.pdf`} {
		t.Run(name, func(t *testing.T) {
			store, e := newTestHandler()
			created := seedBlob(t, store, testPatient, name, "pdf bytes")

			req := httptest.NewRequest(http.MethodGet, "/api/v1/exports/"+created.ID, nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			disposition, params, err := mime.ParseMediaType(rec.Header().Get(echo.HeaderContentDisposition))
			if err != nil {
				t.Fatalf("Content-Disposition does not parse: %v", err)
			}
			if disposition != "attachment" || params["filename"] != name {
				t.Errorf("got %q filename=%q, want attachment filename=%q", disposition, params["filename"], name)
			}
		})
	}
}
