package bookcompiler

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/russross/blackfriday/v2"
	"golang.org/x/net/html"
)

// Compile renders sections into a PDF written to w. The first pass lays
// the sections out to learn their page numbers for the table of contents.
func (bc *BookCompiler) Compile(w io.Writer, sections []Section) error {
	if len(sections) == 0 {
		return errors.New("nothing to compile")
	}

	bc.toc = nil
	bc.collecting = true
	bc.newPDF()
	bc.titlePage()
	bc.pdf.AddPage() // placeholder for a single ToC page
	for _, s := range sections {
		if err := bc.processSection(s); err != nil {
			bc.collecting = false
			return err
		}
	}
	bc.collecting = false
	if err := bc.pdf.Output(io.Discard); err != nil {
		return fmt.Errorf("laying out book: %w", err)
	}
	if extra := bc.tocPageCount() - 1; extra > 0 {
		for i := range bc.toc {
			bc.toc[i].PageNum += extra
		}
	}

	bc.newPDF()
	bc.titlePage()
	bc.generateToC()
	for _, s := range sections {
		if err := bc.processSection(s); err != nil {
			return err
		}
	}
	if err := bc.pdf.Output(w); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	return nil
}

// tocPageCount lays out the table of contents alone and reports how many
// pages it takes.
func (bc *BookCompiler) tocPageCount() int {
	bc.newPDF()
	bc.titlePage()
	bc.generateToC()
	return bc.pdf.PageNo() - 1
}

func (bc *BookCompiler) processSection(s Section) error {
	bc.pdf.AddPage()
	if bc.collecting {
		bc.toc = append(bc.toc, ToCEntry{Title: s.Title, Level: 1, PageNum: bc.pdf.PageNo()})
	}
	bc.pdf.SetFont(bc.chapterFont, "B", 24)
	bc.pdf.MultiCell(0, 10, bc.cleanText(s.Title), "", "L", false)
	bc.pdf.Ln(10)

	doc, err := html.Parse(bytes.NewReader(blackfriday.Run([]byte(s.Markdown))))
	if err != nil {
		return fmt.Errorf("error parsing section %q: %w", s.Title, err)
	}
	return bc.renderHTML(doc)
}
