package pdfexport

import (
	"image"
	"math"
)

// BaseWidthPx is the logical width of the rendered content before scaling.
const BaseWidthPx = 794

// Geometry is the fixed page layout in millimetres. HeaderMM and FooterMM
// are the bands reserved on every page, page edge included.
type Geometry struct {
	PageWidthMM  float64
	PageHeightMM float64
	MarginMM     float64
	HeaderMM     float64
	FooterMM     float64
}

// A4 is portrait A4 with 10 mm side margins.
var A4 = Geometry{
	PageWidthMM:  210,
	PageHeightMM: 297,
	MarginMM:     10,
	HeaderMM:     32,
	FooterMM:     16,
}

func (g Geometry) ContentWidthMM() float64 {
	return g.PageWidthMM - 2*g.MarginMM
}

func (g Geometry) ContentHeightMM() float64 {
	return g.PageHeightMM - g.HeaderMM - g.FooterMM
}

// PixelsPerMM is the bitmap-to-page scale when a bitmap of the given width
// fills the content width.
func (g Geometry) PixelsPerMM(bitmapWidth int) float64 {
	return float64(bitmapWidth) / g.ContentWidthMM()
}

// StripHeightPx is how many bitmap rows fit in one page's content area.
// It is never less than one.
func (g Geometry) StripHeightPx(bitmapWidth int) int {
	h := int(math.Floor(g.ContentHeightMM() * g.PixelsPerMM(bitmapWidth)))
	if h < 1 {
		return 1
	}
	return h
}

// SliceStrips cuts bounds into consecutive horizontal strips of at most
// stripHeight rows, top to bottom. The strips cover bounds exactly with no
// gap or overlap; an empty bounds yields no strips.
func SliceStrips(bounds image.Rectangle, stripHeight int) []image.Rectangle {
	if stripHeight < 1 || bounds.Empty() {
		return nil
	}
	n := (bounds.Dy() + stripHeight - 1) / stripHeight
	strips := make([]image.Rectangle, 0, n)
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stripHeight {
		bottom := y + stripHeight
		if bottom > bounds.Max.Y {
			bottom = bounds.Max.Y
		}
		strips = append(strips, image.Rect(bounds.Min.X, y, bounds.Max.X, bottom))
	}
	return strips
}
