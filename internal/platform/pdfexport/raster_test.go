package pdfexport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/image/font"
)

func sampleDocument(rows int) Document {
	fields := make([]Block, 0, rows)
	for i := 0; i < rows; i++ {
		fields = append(fields, Block{Kind: BlockField, Label: fmt.Sprintf("Campo %d", i), Value: "Não informado"})
	}
	return Document{
		Key:     "6f1c2a52-6b0e-4c55-9c1e-2b1a4f0f7d11",
		Subject: "Ana Clara",
		Sections: []Section{
			{Title: "Dados Pessoais", Blocks: fields},
			{Title: "MAPA DENTAL", Blocks: []Block{{
				Kind:  BlockCells,
				Label: "Superior decídua",
				Cells: []Cell{{Text: "55", Marked: true}, {Text: "54"}, {Text: "53"}},
			}}},
			{Title: "Observações", Blocks: []Block{{
				Kind:  BlockText,
				Label: "Alguma informação adicional não relatada?",
				Value: strings.Repeat("texto longo ", 80),
			}}},
			{Title: "Histórico de Consultas", Blocks: []Block{{
				Kind:   BlockTable,
				Header: []string{"Data", "Peso", "Observações"},
				Rows:   [][]string{{"01/03/2024", "18.5 kg", ""}},
			}}},
			{Title: "Assinaturas", Blocks: []Block{{
				Kind:     BlockSignatures,
				Captions: []string{"Assinatura do Responsável", "Assinatura do Profissional"},
			}}},
		},
	}
}

func newTestRasterizer(t *testing.T, scale float64) *Rasterizer {
	t.Helper()
	r, err := NewRasterizer(ExportTheme, scale)
	if err != nil {
		t.Fatalf("NewRasterizer: %v", err)
	}
	return r
}

func TestNewRasterizer_RejectsScale(t *testing.T) {
	if _, err := NewRasterizer(ExportTheme, 0); err == nil {
		t.Fatal("expected error for zero scale")
	}
}

func TestRasterizer_Width(t *testing.T) {
	if got := newTestRasterizer(t, 2).Width(); got != 1588 {
		t.Errorf("Width at 2x = %d, want 1588", got)
	}
	if got := newTestRasterizer(t, 1.5).Width(); got != 1191 {
		t.Errorf("Width at 1.5x = %d, want 1191", got)
	}
}

func TestRasterizer_RenderOpaqueFullHeight(t *testing.T) {
	r := newTestRasterizer(t, 1)
	img, err := r.Render(context.Background(), sampleDocument(5))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if img.Bounds().Dx() != BaseWidthPx {
		t.Errorf("width = %d, want %d", img.Bounds().Dx(), BaseWidthPx)
	}
	if img.Bounds().Dy() <= 0 {
		t.Fatal("expected a non-empty bitmap")
	}
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xff {
			t.Fatalf("pixel %d is not opaque", i/4)
		}
	}
}

func TestRasterizer_SectionsStackInOrder(t *testing.T) {
	r := newTestRasterizer(t, 1)
	doc := sampleDocument(3)

	whole, err := r.Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	sum := 0
	for _, s := range doc.Sections {
		part, err := r.Render(context.Background(), Document{Sections: []Section{s}})
		if err != nil {
			t.Fatalf("Render section %q: %v", s.Title, err)
		}
		sum += part.Bounds().Dy()
	}
	if whole.Bounds().Dy() != sum {
		t.Errorf("stacked height %d, want sum of sections %d", whole.Bounds().Dy(), sum)
	}

	again, _ := r.Render(context.Background(), doc)
	if string(again.Pix) != string(whole.Pix) {
		t.Error("render is not deterministic")
	}
}

func TestRasterizer_LongContentGrows(t *testing.T) {
	r := newTestRasterizer(t, 1)
	short, _ := r.Render(context.Background(), sampleDocument(2))
	long, _ := r.Render(context.Background(), sampleDocument(200))
	if long.Bounds().Dy() <= short.Bounds().Dy() {
		t.Errorf("expected more rows to make a taller bitmap: %d <= %d", long.Bounds().Dy(), short.Bounds().Dy())
	}
}

func TestRasterizer_CancelledContext(t *testing.T) {
	r := newTestRasterizer(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Render(ctx, sampleDocument(1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWrap(t *testing.T) {
	r := newTestRasterizer(t, 1)
	f, err := r.newFaces()
	if err != nil {
		t.Fatalf("newFaces: %v", err)
	}
	defer f.close()

	const width = 120
	lines := wrap(f.body, "uma frase comprida que precisa quebrar em varias linhas "+strings.Repeat("x", 60), width)
	if len(lines) < 2 {
		t.Fatalf("expected several lines, got %q", lines)
	}
	for _, l := range lines {
		if w := font.MeasureString(f.body, l).Ceil(); w > width {
			t.Errorf("line %q is %dpx wide, limit %d", l, w, width)
		}
	}

	if got := wrap(f.body, "", width); len(got) != 1 || got[0] != "" {
		t.Errorf("wrap of empty string = %q", got)
	}
	if got := wrap(f.body, "a\nb", width); len(got) != 2 {
		t.Errorf("expected newline to be kept, got %q", got)
	}
}
