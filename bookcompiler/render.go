package bookcompiler

import (
	"strings"

	"golang.org/x/net/html"
)

// renderHTML walks the parsed markdown and writes it to the PDF.
func (bc *BookCompiler) renderHTML(n *html.Node) error {
	switch n.Type {
	case html.DocumentNode:
		return bc.renderChildren(n)
	case html.TextNode:
		text := strings.Join(strings.Fields(n.Data), " ")
		if text != "" {
			if strings.HasSuffix(n.Data, " ") || strings.HasSuffix(n.Data, "\n") {
				text += " "
			}
			bc.pdf.Write(6, bc.cleanText(text))
		}
		return nil
	case html.ElementNode:
	default:
		return nil
	}

	switch n.Data {
	case "h1", "h2":
		bc.pdf.Ln(8)
		bc.pdf.SetFont(bc.chapterFont, "B", 18)
		bc.renderChildren(n)
		// Recorded after drawing so a heading pushed over a page break gets
		// the page it landed on.
		if bc.collecting && n.Data == "h2" {
			bc.toc = append(bc.toc, ToCEntry{Title: getTextContent(n), Level: 2, PageNum: bc.pdf.PageNo()})
		}
		bc.pdf.Ln(10)
	case "h3", "h4":
		bc.pdf.Ln(6)
		bc.pdf.SetFont(bc.chapterFont, "B", 14)
		bc.renderChildren(n)
		bc.pdf.Ln(8)
	case "p":
		bc.pdf.SetFont(bc.textFont, "", 12)
		bc.renderChildren(n)
		bc.pdf.Ln(9)
	case "em", "i":
		bc.pdf.SetFont(bc.textFont, "I", 12)
		bc.renderChildren(n)
		bc.pdf.SetFont(bc.textFont, "", 12)
	case "strong", "b":
		bc.pdf.SetFont(bc.textFont, "B", 12)
		bc.renderChildren(n)
		bc.pdf.SetFont(bc.textFont, "", 12)
	case "ul", "ol":
		bc.pdf.SetFont(bc.textFont, "", 12)
		bc.renderChildren(n)
		bc.pdf.Ln(4)
	case "li":
		bc.pdf.SetX(bc.margin + 5)
		bc.pdf.Write(6, bc.cleanText("• "))
		bc.renderChildren(n)
		bc.pdf.Ln(7)
	case "blockquote":
		bc.pdf.SetFont(bc.textFont, "I", 12)
		bc.renderChildren(n)
		bc.pdf.SetFont(bc.textFont, "", 12)
	case "hr":
		y := bc.pdf.GetY() + 2
		bc.pdf.Line(bc.margin, y, bc.pageWidth-bc.margin, y)
		bc.pdf.Ln(6)
	case "br":
		bc.pdf.Ln(6)
	case "table":
		return bc.renderTable(n)
	default:
		return bc.renderChildren(n)
	}
	return nil
}

func (bc *BookCompiler) renderChildren(n *html.Node) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := bc.renderHTML(c); err != nil {
			return err
		}
	}
	return nil
}
