package pdfexport

import "image/color"

// Theme is the palette and type scale used on the off-screen surface. Sizes
// are logical pixels and get multiplied by the render scale.
type Theme struct {
	Background color.RGBA
	Card       color.RGBA
	Text       color.RGBA
	Muted      color.RGBA
	Accent     color.RGBA
	Rule       color.RGBA
	Marked     color.RGBA

	TitleSize float64
	LabelSize float64
	BodySize  float64
	Padding   float64
	Gap       float64
}

// ExportTheme is opaque white with dark text. Every colour is fully opaque.
var ExportTheme = Theme{
	Background: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	Card:       color.RGBA{R: 0xf8, G: 0xfa, B: 0xfc, A: 0xff},
	Text:       color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff},
	Muted:      color.RGBA{R: 0x4b, G: 0x55, B: 0x63, A: 0xff},
	Accent:     color.RGBA{R: 0x0f, G: 0x76, B: 0x6e, A: 0xff},
	Rule:       color.RGBA{R: 0xd1, G: 0xd5, B: 0xdb, A: 0xff},
	Marked:     color.RGBA{R: 0xdc, G: 0x26, B: 0x26, A: 0xff},

	TitleSize: 16,
	LabelSize: 11,
	BodySize:  11,
	Padding:   16,
	Gap:       8,
}
