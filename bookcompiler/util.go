package bookcompiler

import (
	"strings"

	"golang.org/x/net/html"
)

func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return text.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`",
	"[", `\[`, "]", `\]`, "#", `\#`, "|", `\|`, "<", "&lt;",
)

// escapeMarkdown keeps user-written story text from being read as markup.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
