// Package pdfexport renders a read-only document model into a paginated A4
// PDF. The model is drawn onto an off-screen bitmap with the export theme,
// sliced into page strips, and assembled with a repeated header and footer.
package pdfexport

import "strings"

// BlockKind says how a block is drawn.
type BlockKind int

const (
	// BlockField is a label with a short value on the same line.
	BlockField BlockKind = iota
	// BlockText is a label above a wrapped paragraph.
	BlockText
	// BlockCells is a labelled row of boxed cells, marked or not.
	BlockCells
	// BlockTable is a header row followed by data rows.
	BlockTable
	// BlockSignatures draws one signature line per caption, side by side.
	BlockSignatures
)

// Cell is one boxed entry of a BlockCells row.
type Cell struct {
	Text   string
	Marked bool
}

// Block is one drawable element of a section.
type Block struct {
	Kind   BlockKind
	Label  string
	Value  string
	Cells  []Cell
	Header []string
	Rows   [][]string
	// Captions are the signature captions of a BlockSignatures block.
	Captions []string
}

// Section is one card of the document, drawn in order.
type Section struct {
	Title  string
	Blocks []Block
}

// Document is everything the exporter needs. Key identifies the subject for
// the busy guard and the archive; Subject is printed in the page header.
type Document struct {
	Key      string
	Title    string
	Subject  string
	Sections []Section
}

// Filename returns ficha_<subject>.pdf with whitespace runs collapsed to a
// single underscore.
func Filename(subject string) string {
	return "ficha_" + strings.Join(strings.Fields(subject), "_") + ".pdf"
}
