package pdfexport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tiopaulo/anamnese/internal/platform/blobstore"
)

var ErrExportInProgress = errors.New("export already in progress")

const defaultTitle = "Ficha de Anamnese"

// Archiver keeps a copy of each exported document. blobstore.BlobStore
// satisfies it; ListByPatient returns newest first.
type Archiver interface {
	Upload(ctx context.Context, meta blobstore.BlobMetadata, content io.Reader) (*blobstore.BlobMetadata, error)
	ListByPatient(ctx context.Context, patientID string) ([]*blobstore.BlobMetadata, error)
	Delete(ctx context.Context, id string) error
}

// Options is the fixed export configuration.
type Options struct {
	Clinic      string
	Attribution string
	Geometry    Geometry
	Logo        *Logo
	// Keep is how many archived exports per document key survive a new
	// export. Zero keeps all.
	Keep int
}

// Result is one finished export.
type Result struct {
	FileName  string
	Data      []byte
	Pages     int
	ArchiveID string
}

// Exporter runs the export pipeline. At most one export per document key
// runs at a time; the busy mark is cleared on every return path.
type Exporter struct {
	renderer Renderer
	archive  Archiver
	opts     Options
	now      func() time.Time
	logger   zerolog.Logger

	mu   sync.Mutex
	busy map[string]bool
}

// NewExporter builds an exporter. archive may be nil.
func NewExporter(renderer Renderer, archive Archiver, opts Options, logger zerolog.Logger) *Exporter {
	if opts.Geometry == (Geometry{}) {
		opts.Geometry = A4
	}
	return &Exporter{
		renderer: renderer,
		archive:  archive,
		opts:     opts,
		now:      time.Now,
		logger:   logger.With().Str("component", "pdfexport").Logger(),
		busy:     make(map[string]bool),
	}
}

// SetClock replaces the clock used for the export timestamp.
func (e *Exporter) SetClock(now func() time.Time) {
	e.now = now
}

// Exporting reports whether an export for key is running.
func (e *Exporter) Exporting(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy[key]
}

func (e *Exporter) acquire(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy[key] {
		return false
	}
	e.busy[key] = true
	return true
}

func (e *Exporter) release(key string) {
	e.mu.Lock()
	delete(e.busy, key)
	e.mu.Unlock()
}

// Export renders doc, paginates it and assembles the PDF. A second call for
// the same key while one is running returns ErrExportInProgress.
func (e *Exporter) Export(ctx context.Context, doc Document) (*Result, error) {
	if !e.acquire(doc.Key) {
		return nil, ErrExportInProgress
	}
	defer e.release(doc.Key)

	log := e.logger.With().Str("key", doc.Key).Logger()
	started := e.now()

	img, err := e.renderer.Render(ctx, doc)
	if err != nil {
		log.Error().Err(err).Msg("render failed")
		return nil, fmt.Errorf("render %s: %w", doc.Key, err)
	}

	title := doc.Title
	if title == "" {
		title = defaultTitle
	}
	var buf bytes.Buffer
	pages, err := assembleSafely(&buf, e.opts.Geometry, img, pageHeader{
		Title:       title,
		Clinic:      e.opts.Clinic,
		Subject:     doc.Subject,
		Attribution: e.opts.Attribution,
		ExportedAt:  started,
		Logo:        e.opts.Logo,
	})
	if err != nil {
		log.Error().Err(err).Msg("assembly failed")
		return nil, fmt.Errorf("assemble %s: %w", doc.Key, err)
	}

	res := &Result{
		FileName: Filename(doc.Subject),
		Data:     buf.Bytes(),
		Pages:    pages,
	}
	if e.archive != nil {
		meta, err := e.archive.Upload(ctx, blobstore.BlobMetadata{
			FileName:    res.FileName,
			ContentType: "application/pdf",
			PatientID:   doc.Key,
			Kind:        blobstore.KindFichaPDF,
		}, bytes.NewReader(res.Data))
		if err != nil {
			log.Warn().Err(err).Msg("archive failed")
		} else {
			res.ArchiveID = meta.ID
			e.prune(ctx, doc.Key, log)
		}
	}

	log.Info().
		Int("pages", pages).
		Int("bytes", len(res.Data)).
		Dur("elapsed", e.now().Sub(started)).
		Msg("export finished")
	return res, nil
}

// assembleSafely turns a panic inside the PDF writer into an error.
func assembleSafely(w io.Writer, geo Geometry, img *image.RGBA, hdr pageHeader) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = 0, fmt.Errorf("pdfexport: assembly panicked: %v", r)
		}
	}()
	return assemble(w, geo, img, hdr)
}

// prune deletes the archived exports of key beyond the newest opts.Keep.
func (e *Exporter) prune(ctx context.Context, key string, log zerolog.Logger) {
	if e.opts.Keep <= 0 {
		return
	}
	items, err := e.archive.ListByPatient(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("listing archived exports failed")
		return
	}
	for _, old := range items[min(e.opts.Keep, len(items)):] {
		if err := e.archive.Delete(ctx, old.ID); err != nil {
			log.Warn().Err(err).Str("archive_id", old.ID).Msg("pruning archived export failed")
		}
	}
}
