package bookcompiler

import (
	"strings"

	"golang.org/x/net/html"
)

// renderTable draws a markdown table as a bordered grid. Rows may sit
// inside thead/tbody.
func (bc *BookCompiler) renderTable(n *html.Node) error {
	var headers []string
	var rows [][]string

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.Data != "tr" {
				walk(c)
				continue
			}
			var row []string
			isHeaderRow := false
			for td := c.FirstChild; td != nil; td = td.NextSibling {
				if td.Type != html.ElementNode || (td.Data != "td" && td.Data != "th") {
					continue
				}
				cellText := bc.cleanText(strings.TrimSpace(getTextContent(td)))
				if td.Data == "th" {
					headers = append(headers, cellText)
					isHeaderRow = true
				} else {
					row = append(row, cellText)
				}
			}
			if !isHeaderRow && len(row) > 0 {
				rows = append(rows, row)
			}
		}
	}
	walk(n)

	colCount := len(headers)
	if colCount == 0 && len(rows) > 0 {
		colCount = len(rows[0])
	}
	if colCount == 0 {
		return nil
	}

	availWidth := bc.pageWidth - 2*bc.margin
	colWidth := availWidth / float64(colCount)

	lineHt := 6.0
	fontSize := 10.0
	bc.pdf.Ln(2)
	bc.pdf.SetFont(bc.textFont, "B", fontSize)

	if len(headers) > 0 {
		bc.pdf.SetFillColor(240, 240, 240) // Light gray background
		for _, header := range headers {
			bc.pdf.CellFormat(colWidth, lineHt, header, "1", 0, "L", true, 0, "")
		}
		bc.pdf.Ln(lineHt)
	}

	bc.pdf.SetFont(bc.textFont, "", fontSize)
	for _, row := range rows {
		maxHt := lineHt
		for _, cell := range row {
			lines := bc.SplitText(cell, colWidth-2)
			ht := float64(len(lines)) * lineHt
			if ht > maxHt {
				maxHt = ht
			}
		}

		y := bc.pdf.GetY()
		x := bc.pdf.GetX()
		for i, cell := range row {
			if i >= colCount {
				break
			}
			bc.pdf.Rect(x+float64(i)*colWidth, y, colWidth, maxHt, "D")
			bc.pdf.SetXY(x+float64(i)*colWidth, y)
			bc.pdf.MultiCell(colWidth, lineHt, cell, "0", "L", false)
		}
		bc.pdf.SetXY(x, y+maxHt)
	}
	bc.pdf.Ln(4)

	return nil
}

// SplitText wraps text into lines no wider than width at the current font.
func (bc *BookCompiler) SplitText(text string, width float64) []string {
	var lines []string
	currentLine := ""

	for _, word := range strings.Fields(text) {
		testLine := currentLine
		if testLine != "" {
			testLine += " "
		}
		testLine += word

		if bc.pdf.GetStringWidth(testLine) > width {
			if currentLine != "" {
				lines = append(lines, currentLine)
				currentLine = word
			} else {
				lines = append(lines, word)
			}
		} else {
			currentLine = testLine
		}
	}

	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}
