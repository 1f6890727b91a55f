package pdfexport

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Renderer turns a document into one tall bitmap.
type Renderer interface {
	Render(ctx context.Context, doc Document) (*image.RGBA, error)
}

var (
	fontsOnce   sync.Once
	regularFont *opentype.Font
	boldFont    *opentype.Font
	fontsErr    error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		regularFont, fontsErr = opentype.Parse(goregular.TTF)
		if fontsErr != nil {
			return
		}
		boldFont, fontsErr = opentype.Parse(gobold.TTF)
	})
	return fontsErr
}

// Rasterizer draws documents with a theme at a fixed scale. It holds only
// immutable configuration; faces are created per call.
type Rasterizer struct {
	theme Theme
	scale float64
}

func NewRasterizer(theme Theme, scale float64) (*Rasterizer, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("pdfexport: scale must be positive, got %v", scale)
	}
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("pdfexport: load fonts: %w", err)
	}
	return &Rasterizer{theme: theme, scale: scale}, nil
}

// Width is the bitmap width in pixels.
func (r *Rasterizer) Width() int {
	return int(math.Round(BaseWidthPx * r.scale))
}

// Render draws every section at full height, in order, and stacks them.
// The context is checked before each section.
func (r *Rasterizer) Render(ctx context.Context, doc Document) (*image.RGBA, error) {
	f, err := r.newFaces()
	if err != nil {
		return nil, err
	}
	defer f.close()

	width := r.Width()
	parts := make([]*image.RGBA, 0, len(doc.Sections))
	total := 0
	for i, s := range doc.Sections {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pdfexport: section %d: %w", i, err)
		}
		img := r.renderSection(f, s)
		parts = append(parts, img)
		total += img.Bounds().Dy()
	}

	out := image.NewRGBA(image.Rect(0, 0, width, total))
	y := 0
	for _, p := range parts {
		h := p.Bounds().Dy()
		draw.Draw(out, image.Rect(0, y, width, y+h), p, image.Point{}, draw.Src)
		y += h
	}
	return out, nil
}

type faces struct {
	title font.Face
	label font.Face
	body  font.Face
}

func (r *Rasterizer) newFaces() (*faces, error) {
	mk := func(f *opentype.Font, size float64) (font.Face, error) {
		return opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size * r.scale,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	}
	title, err := mk(boldFont, r.theme.TitleSize)
	if err != nil {
		return nil, fmt.Errorf("pdfexport: title face: %w", err)
	}
	label, err := mk(boldFont, r.theme.LabelSize)
	if err != nil {
		title.Close()
		return nil, fmt.Errorf("pdfexport: label face: %w", err)
	}
	body, err := mk(regularFont, r.theme.BodySize)
	if err != nil {
		title.Close()
		label.Close()
		return nil, fmt.Errorf("pdfexport: body face: %w", err)
	}
	return &faces{title: title, label: label, body: body}, nil
}

func (f *faces) close() {
	f.title.Close()
	f.label.Close()
	f.body.Close()
}

// renderSection lays the section out twice: once to measure, once to draw.
func (r *Rasterizer) renderSection(f *faces, s Section) *image.RGBA {
	width := r.Width()
	c := &canvas{theme: r.theme, faces: f, scale: r.scale, width: width}
	h := c.section(s)

	img := image.NewRGBA(image.Rect(0, 0, width, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.theme.Background), image.Point{}, draw.Src)
	pad, gap := c.px(r.theme.Padding), c.px(r.theme.Gap)
	draw.Draw(img, image.Rect(pad, gap, width-pad, h-gap), image.NewUniform(r.theme.Card), image.Point{}, draw.Src)

	c.dst = img
	c.section(s)
	return img
}

// canvas is a vertical layout cursor. With a nil dst it only measures.
type canvas struct {
	dst   *image.RGBA
	theme Theme
	faces *faces
	scale float64
	width int
	y     int
}

func (c *canvas) px(v float64) int {
	return int(math.Round(v * c.scale))
}

func (c *canvas) inner() (x0, w int) {
	pad := c.px(c.theme.Padding)
	return 2 * pad, c.width - 4*pad
}

func (c *canvas) section(s Section) int {
	t := c.theme
	pad, gap := c.px(t.Padding), c.px(t.Gap)
	x0, w := c.inner()

	c.y = gap + pad
	c.y += c.paragraph(c.faces.title, t.Accent, x0, w, s.Title)
	c.y += gap / 2
	c.hline(x0, x0+w, c.y, t.Rule)
	c.y += gap
	for _, b := range s.Blocks {
		c.block(b)
	}
	c.y += pad + gap
	return c.y
}

func (c *canvas) block(b Block) {
	t, f := c.theme, c.faces
	gap := c.px(t.Gap)
	x0, w := c.inner()

	switch b.Kind {
	case BlockField:
		labelW := w * 2 / 5
		hl := c.paragraph(f.label, t.Muted, x0, labelW, b.Label)
		hv := c.paragraph(f.body, t.Text, x0+labelW+gap, w-labelW-gap, b.Value)
		c.y += max(hl, hv) + gap/2

	case BlockText:
		if b.Label != "" {
			c.y += c.paragraph(f.label, t.Muted, x0, w, b.Label)
		}
		c.y += c.paragraph(f.body, t.Text, x0, w, b.Value) + gap/2

	case BlockCells:
		if b.Label != "" {
			c.y += c.paragraph(f.label, t.Muted, x0, w, b.Label) + gap/4
		}
		cw, ch, sp := c.px(34), c.px(24), c.px(4)
		lh := lineHeight(f.body)
		x := x0
		for _, cell := range b.Cells {
			if x+cw > x0+w {
				x = x0
				c.y += ch + sp
			}
			rect := image.Rect(x, c.y, x+cw, c.y+ch)
			textCol := t.Text
			if cell.Marked {
				c.fill(rect, t.Marked)
				textCol = t.Background
			} else {
				c.stroke(rect, t.Rule)
			}
			tw := font.MeasureString(f.body, cell.Text).Ceil()
			c.text(f.body, textCol, x+(cw-tw)/2, c.y+(ch-lh)/2, cell.Text)
			x += cw + sp
		}
		if len(b.Cells) > 0 {
			c.y += ch
		}
		c.y += gap

	case BlockTable:
		cols := len(b.Header)
		if cols == 0 {
			return
		}
		colW := (w - (cols-1)*gap) / cols
		h := 0
		for i, head := range b.Header {
			h = max(h, c.paragraph(f.label, t.Muted, x0+i*(colW+gap), colW, head))
		}
		c.y += h + gap/4
		c.hline(x0, x0+w, c.y, t.Rule)
		c.y += gap / 4
		for _, row := range b.Rows {
			h = 0
			for i := 0; i < cols && i < len(row); i++ {
				h = max(h, c.paragraph(f.body, t.Text, x0+i*(colW+gap), colW, row[i]))
			}
			c.y += h + gap/4
			c.hline(x0, x0+w, c.y, t.Rule)
			c.y += gap / 4
		}
		c.y += gap / 2

	case BlockSignatures:
		n := len(b.Captions)
		if n == 0 {
			return
		}
		c.y += c.px(48)
		colW := w / n
		inset := c.px(16)
		for i, caption := range b.Captions {
			cx := x0 + i*colW
			c.hline(cx+inset, cx+colW-inset, c.y, t.Text)
			tw := font.MeasureString(f.body, caption).Ceil()
			c.text(f.body, t.Muted, cx+(colW-tw)/2, c.y+gap/2, caption)
		}
		c.y += gap/2 + lineHeight(f.body) + gap
	}
}

// paragraph draws s wrapped to width with its top at the cursor and returns
// the height used. The cursor does not move.
func (c *canvas) paragraph(face font.Face, col color.RGBA, x, width int, s string) int {
	lh := lineHeight(face)
	lines := wrap(face, s, width)
	for i, l := range lines {
		c.text(face, col, x, c.y+i*lh, l)
	}
	return len(lines) * lh
}

func (c *canvas) text(face font.Face, col color.RGBA, x, top int, s string) {
	if c.dst == nil || s == "" {
		return
	}
	d := font.Drawer{
		Dst:  c.dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, top+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

func (c *canvas) fill(r image.Rectangle, col color.RGBA) {
	if c.dst == nil {
		return
	}
	draw.Draw(c.dst, r, image.NewUniform(col), image.Point{}, draw.Src)
}

func (c *canvas) hline(x0, x1, y int, col color.RGBA) {
	c.fill(image.Rect(x0, y, x1, y+max(1, c.px(1))), col)
}

func (c *canvas) stroke(r image.Rectangle, col color.RGBA) {
	th := max(1, c.px(1))
	c.fill(image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+th), col)
	c.fill(image.Rect(r.Min.X, r.Max.Y-th, r.Max.X, r.Max.Y), col)
	c.fill(image.Rect(r.Min.X, r.Min.Y, r.Min.X+th, r.Max.Y), col)
	c.fill(image.Rect(r.Max.X-th, r.Min.Y, r.Max.X, r.Max.Y), col)
}

func lineHeight(face font.Face) int {
	return face.Metrics().Height.Ceil()
}

// wrap breaks s into lines no wider than width. Explicit newlines are kept
// and words wider than a line are split by rune. Empty input is one empty
// line.
func wrap(face font.Face, s string, width int) []string {
	var out []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := ""
		for _, word := range words {
			for _, piece := range breakWord(face, word, width) {
				candidate := piece
				if line != "" {
					candidate = line + " " + piece
				}
				if line != "" && font.MeasureString(face, candidate).Ceil() > width {
					out = append(out, line)
					line = piece
					continue
				}
				line = candidate
			}
		}
		out = append(out, line)
	}
	return out
}

func breakWord(face font.Face, word string, width int) []string {
	if font.MeasureString(face, word).Ceil() <= width {
		return []string{word}
	}
	var parts []string
	cur := ""
	for _, r := range word {
		next := cur + string(r)
		if cur != "" && font.MeasureString(face, next).Ceil() > width {
			parts = append(parts, cur)
			cur = string(r)
			continue
		}
		cur = next
	}
	if cur != "" {
		parts = append(parts, cur)
	}
	return parts
}
