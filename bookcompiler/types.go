package bookcompiler

import "github.com/jung-kurt/gofpdf"

// BookCompiler lays out markdown sections as a PDF book with a title page
// and a table of contents.
type BookCompiler struct {
	Title       string
	Subtitle    string
	pdf         *gofpdf.Fpdf
	translate   func(string) string
	chapterFont string
	textFont    string
	toc         []ToCEntry
	collecting  bool // layout pass, headings go into toc
	pageNumbers bool
	tocTitle    string
	pageWidth   float64
	pageHeight  float64
	margin      float64
	tocLevels   map[int]TextStyle // Different styles for different ToC levels
}

// ToCEntry represents a table of contents entry
type ToCEntry struct {
	Title   string
	Level   int
	PageNum int
}

// Section is one chapter of the book, written in markdown.
type Section struct {
	Title    string
	Markdown string
}

// TextStyle holds current text formatting state
type TextStyle struct {
	FontFamily string
	Style      string
	Size       float64
}
