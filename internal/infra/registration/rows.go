package registration

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// RowsFromHTML returns the rendered text of every table row in the document.
func RowsFromHTML(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return RowTexts(doc.Selection), nil
}

// RowTexts renders each <tr> under sel in document order. Cells are joined
// by a space; line breaks inside a cell are kept as newlines.
func RowTexts(sel *goquery.Selection) []string {
	var rows []string
	sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		rows = append(rows, rowText(tr))
	})
	return rows
}

func rowText(tr *goquery.Selection) string {
	var cells []string
	tr.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
		if text := cellText(cell.Get(0)); text != "" {
			cells = append(cells, text)
		}
	})
	return strings.Join(cells, " ")
}

func cellText(n *html.Node) string {
	var buf bytes.Buffer
	renderText(n, &buf)

	lines := strings.Split(buf.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

var blockElements = map[string]bool{
	"div": true, "p": true, "li": true, "table": true, "tr": true,
}

func renderText(n *html.Node, buf *bytes.Buffer) {
	switch {
	case n == nil:
		return
	case n.Type == html.TextNode:
		// source newlines are layout, not content
		buf.WriteString(strings.ReplaceAll(n.Data, "\n", " "))
		return
	case n.Type == html.ElementNode && n.Data == "br":
		buf.WriteByte('\n')
		return
	case n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style"):
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		buf.WriteByte('\n')
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		renderText(child, buf)
	}
	if block {
		buf.WriteByte('\n')
	}
}
