package pdfexport

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeLogo(t *testing.T) {
	logo, err := DecodeLogo(pngBytes(t))
	if err != nil {
		t.Fatalf("DecodeLogo: %v", err)
	}
	if logo.Type != "PNG" {
		t.Errorf("Type = %q, want PNG", logo.Type)
	}

	if _, err := DecodeLogo([]byte("<svg/>")); !errors.Is(err, ErrUnsupportedLogo) {
		t.Errorf("expected ErrUnsupportedLogo, got %v", err)
	}
}

func TestLoadLogo_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logo.png")
	if err := os.WriteFile(path, pngBytes(t), 0o600); err != nil {
		t.Fatal(err)
	}
	logo, err := LoadLogo(context.Background(), nil, path, "http://unused.invalid/logo.png")
	if err != nil {
		t.Fatalf("LoadLogo: %v", err)
	}
	if logo == nil || logo.Type != "PNG" {
		t.Errorf("unexpected logo %+v", logo)
	}
}

func TestLoadLogo_FromURL(t *testing.T) {
	data := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/logo.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer srv.Close()

	logo, err := LoadLogo(context.Background(), srv.Client(), "", srv.URL+"/logo.png")
	if err != nil {
		t.Fatalf("LoadLogo: %v", err)
	}
	if !bytes.Equal(logo.Data, data) {
		t.Error("logo bytes differ")
	}

	if _, err := LoadLogo(context.Background(), srv.Client(), "", srv.URL+"/missing.png"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestLoadLogo_NoneConfigured(t *testing.T) {
	logo, err := LoadLogo(context.Background(), nil, "", "")
	if err != nil || logo != nil {
		t.Errorf("expected nil, nil; got %v, %v", logo, err)
	}
}

func TestExporter_WithLogo(t *testing.T) {
	logo, err := DecodeLogo(pngBytes(t))
	if err != nil {
		t.Fatal(err)
	}
	e := NewExporter(newTestRasterizer(t, 1), nil, Options{Clinic: "Tio Paulo", Logo: logo}, zerolog.Nop())
	e.SetClock(func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) })

	res, err := e.Export(context.Background(), sampleDocument(2))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !bytes.HasPrefix(res.Data, []byte("%PDF-")) {
		t.Error("output is not a PDF")
	}
}

func TestDecodeLogo_RejectsTruncatedImage(t *testing.T) {
	data := pngBytes(t)
	if _, err := DecodeLogo(data[:len(data)/2]); !errors.Is(err, ErrUnsupportedLogo) {
		t.Errorf("expected ErrUnsupportedLogo for a cut-off PNG, got %v", err)
	}
}

func TestLoadLogo_RejectsOversizedFile(t *testing.T) {
	data := append(pngBytes(t), make([]byte, maxLogoSize)...)
	path := filepath.Join(t.TempDir(), "logo.png")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLogo(context.Background(), nil, path, ""); !errors.Is(err, ErrLogoTooLarge) {
		t.Errorf("expected ErrLogoTooLarge, got %v", err)
	}
}

func TestLoadLogo_RejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, maxLogoSize+1))
	}))
	defer srv.Close()

	if _, err := LoadLogo(context.Background(), srv.Client(), "", srv.URL); !errors.Is(err, ErrLogoTooLarge) {
		t.Errorf("expected ErrLogoTooLarge, got %v", err)
	}
}

func TestExporter_CorruptLogoIsAnError(t *testing.T) {
	data := pngBytes(t)
	logo := &Logo{Data: data[:len(data)/2], Type: "PNG"}
	e := NewExporter(newTestRasterizer(t, 1), nil, Options{Clinic: "Tio Paulo", Logo: logo}, zerolog.Nop())

	doc := sampleDocument(1)
	if _, err := e.Export(context.Background(), doc); err == nil {
		t.Fatal("expected an error for a logo the PDF writer cannot read")
	}
	if e.Exporting(doc.Key) {
		t.Error("busy mark must be released after a failed assembly")
	}
}
