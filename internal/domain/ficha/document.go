package ficha

import (
	"strconv"

	"github.com/tiopaulo/anamnese/internal/platform/pdfexport"
)

const documentTitle = "Ficha de Anamnese Odontopediátrica"

// ExportDocument converts a found view into the export model. Screen-only
// sections are dropped; the rest keep their order.
func ExportDocument(v *View) pdfexport.Document {
	doc := pdfexport.Document{
		Key:     v.Patient.ID.String(),
		Title:   documentTitle,
		Subject: v.Patient.NomeCrianca,
	}
	for _, s := range v.Sections {
		if s.ScreenOnly {
			continue
		}
		sec := pdfexport.Section{Title: s.Title}
		for _, row := range s.Chart {
			cells := make([]pdfexport.Cell, 0, len(row.Cells))
			for _, c := range row.Cells {
				cells = append(cells, pdfexport.Cell{Text: strconv.Itoa(c.Code), Marked: c.Selected})
			}
			sec.Blocks = append(sec.Blocks, pdfexport.Block{Kind: pdfexport.BlockCells, Label: row.Name, Cells: cells})
		}
		for _, r := range s.Rows {
			kind := pdfexport.BlockField
			if r.Long {
				kind = pdfexport.BlockText
			}
			sec.Blocks = append(sec.Blocks, pdfexport.Block{Kind: kind, Label: r.Label, Value: r.Value})
		}
		if len(s.Signatures) > 0 {
			sec.Blocks = append(sec.Blocks, pdfexport.Block{Kind: pdfexport.BlockSignatures, Captions: s.Signatures})
		}
		doc.Sections = append(doc.Sections, sec)
	}
	return doc
}
