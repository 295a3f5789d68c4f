package bookcompiler

import (
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// NewBookCompiler creates a new instance of BookCompiler
func NewBookCompiler(title string) *BookCompiler {
	bc := &BookCompiler{
		Title:       title,
		chapterFont: "Arial",
		textFont:    "Times",
		pageNumbers: true,
		tocTitle:    "Contents",
		pageWidth:   210, // A4 width in mm
		pageHeight:  297, // A4 height in mm
		margin:      20,
		tocLevels:   make(map[int]TextStyle),
	}

	bc.tocLevels[1] = TextStyle{FontFamily: "Arial", Style: "B", Size: 14}
	bc.tocLevels[2] = TextStyle{FontFamily: "Arial", Style: "", Size: 12}

	return bc
}

func (bc *BookCompiler) SetPageNumbers(enable bool) {
	bc.pageNumbers = enable
}

func (bc *BookCompiler) SetToCTitle(title string) {
	bc.tocTitle = title
}

func (bc *BookCompiler) newPDF() {
	bc.pdf = gofpdf.New("P", "mm", "A4", "")
	bc.pdf.SetMargins(bc.margin, bc.margin, bc.margin)
	bc.pdf.SetAutoPageBreak(true, bc.margin)
	bc.translate = bc.pdf.UnicodeTranslatorFromDescriptor("")
	if bc.pageNumbers {
		bc.pdf.SetFooterFunc(func() {
			bc.pdf.SetY(-15)
			bc.pdf.SetFont(bc.chapterFont, "I", 8)
			bc.pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", bc.pdf.PageNo()),
				"", 0, "C", false, 0, "")
		})
	}
}

func (bc *BookCompiler) titlePage() {
	bc.pdf.AddPage()
	bc.pdf.SetY(bc.pageHeight / 3)
	bc.pdf.SetFont(bc.chapterFont, "B", 28)
	bc.pdf.MultiCell(0, 12, bc.cleanText(bc.Title), "", "C", false)
	if bc.Subtitle != "" {
		bc.pdf.Ln(6)
		bc.pdf.SetFont(bc.textFont, "I", 14)
		bc.pdf.MultiCell(0, 8, bc.cleanText(bc.Subtitle), "", "C", false)
	}
}

func (bc *BookCompiler) generateToC() {
	bc.pdf.AddPage()

	bc.pdf.SetFont(bc.chapterFont, "B", 24)
	bc.pdf.Cell(0, 10, bc.cleanText(bc.tocTitle))
	bc.pdf.Ln(20)

	contentWidth := bc.pageWidth - 2*bc.margin
	titleWidth := contentWidth * 0.85
	pageNumWidth := contentWidth * 0.15

	for _, entry := range bc.toc {
		style := bc.tocLevels[entry.Level]
		bc.pdf.SetFont(style.FontFamily, style.Style, style.Size)

		indent := float64(entry.Level-1) * 10
		bc.pdf.SetX(bc.margin + indent)
		bc.pdf.CellFormat(titleWidth-indent, 8, bc.cleanText(entry.Title),
			"", 0, "L", false, 0, "")
		bc.pdf.CellFormat(pageNumWidth, 8, fmt.Sprintf("... %d", entry.PageNum),
			"", 1, "R", false, 0, "")
	}
}

// cleanText maps typographic punctuation to ASCII and the rest to the
// core fonts' code page.
func (bc *BookCompiler) cleanText(text string) string {
	text = strings.NewReplacer(
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
		"…", "...", "—", "-", "–", "-",
	).Replace(text)
	if bc.translate != nil {
		return bc.translate(text)
	}
	return text
}
