package pdfexport

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

const logoName = "logo"

// pageHeader is the text stamped on every page after the content is placed.
type pageHeader struct {
	Title       string
	Clinic      string
	Subject     string
	Attribution string
	ExportedAt  time.Time
	Logo        *Logo
}

// assemble places img on as many pages as it needs, one strip per page,
// then stamps header and footer on every page in a second pass so the page
// total is known. It returns the page count.
func assemble(w io.Writer, geo Geometry, img *image.RGBA, hdr pageHeader) (int, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(geo.MarginMM, geo.HeaderMM, geo.MarginMM)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(hdr.ExportedAt)
	pdf.SetTitle(hdr.Title, true)
	pdf.SetCreator(hdr.Clinic, true)

	width := img.Bounds().Dx()
	strips := SliceStrips(img.Bounds(), geo.StripHeightPx(width))
	ppmm := geo.PixelsPerMM(width)
	opts := fpdf.ImageOptions{ImageType: "PNG"}

	if len(strips) == 0 {
		pdf.AddPage()
	}
	for i, r := range strips {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img.SubImage(r)); err != nil {
			return 0, fmt.Errorf("pdfexport: encode strip %d: %w", i, err)
		}
		name := fmt.Sprintf("strip-%d", i)
		pdf.RegisterImageOptionsReader(name, opts, &buf)
		if err := pdf.Error(); err != nil {
			return 0, fmt.Errorf("pdfexport: register strip %d: %w", i, err)
		}
		pdf.AddPage()
		pdf.ImageOptions(name, geo.MarginMM, geo.HeaderMM, geo.ContentWidthMM(), float64(r.Dy())/ppmm, false, opts, 0, "")
	}

	if hdr.Logo != nil {
		pdf.RegisterImageOptionsReader(logoName, fpdf.ImageOptions{ImageType: hdr.Logo.Type}, bytes.NewReader(hdr.Logo.Data))
		if err := pdf.Error(); err != nil {
			return 0, fmt.Errorf("pdfexport: register logo: %w", err)
		}
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	total := pdf.PageCount()
	for p := 1; p <= total; p++ {
		pdf.SetPage(p)
		stampHeader(pdf, tr, geo, hdr)
		stampFooter(pdf, tr, geo, hdr, p, total)
	}

	if err := pdf.Output(w); err != nil {
		return 0, fmt.Errorf("pdfexport: write document: %w", err)
	}
	return total, nil
}

func stampHeader(pdf *fpdf.Fpdf, tr func(string) string, geo Geometry, h pageHeader) {
	const top = 8.0
	left := geo.MarginMM
	right := geo.PageWidthMM - geo.MarginMM

	if h.Logo != nil {
		pdf.ImageOptions(logoName, left, top, 0, 14, false, fpdf.ImageOptions{ImageType: h.Logo.Type}, 0, "")
		left += 18
	}

	pdf.SetTextColor(31, 41, 55)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Text(left, top+5, tr(h.Title))
	pdf.SetFont("Helvetica", "", 9)
	pdf.Text(left, top+11, tr(h.Clinic))

	exported := tr("Exportado em " + h.ExportedAt.Format("02/01/2006 15:04"))
	pdf.Text(right-pdf.GetStringWidth(exported), top+5, exported)
	subject := tr("Paciente: " + h.Subject)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.Text(right-pdf.GetStringWidth(subject), top+11, subject)

	pdf.SetDrawColor(15, 118, 110)
	pdf.SetLineWidth(0.4)
	pdf.Line(geo.MarginMM, geo.HeaderMM-4, right, geo.HeaderMM-4)
}

func stampFooter(pdf *fpdf.Fpdf, tr func(string) string, geo Geometry, h pageHeader, page, total int) {
	y := geo.PageHeightMM - geo.FooterMM + 4
	left := geo.MarginMM
	right := geo.PageWidthMM - geo.MarginMM

	pdf.SetDrawColor(209, 213, 219)
	pdf.SetLineWidth(0.2)
	pdf.Line(left, y, right, y)

	pdf.SetTextColor(75, 85, 99)
	pdf.SetFont("Helvetica", "", 8)
	pdf.Text(left, y+6, tr(h.Attribution))
	counter := tr(fmt.Sprintf("Página %d de %d", page, total))
	pdf.Text(right-pdf.GetStringWidth(counter), y+6, counter)
}
