// Package htmltext renders HTML email bodies as plain text.
package htmltext

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	blockSelector = "p, div, h1, h2, h3, h4, h5, h6, table, ul, ol, header, footer, section, article, blockquote, hr"
	lineSelector  = "li, tr"
)

// ToPlainText converts html to readable plain text. Block elements and <br>
// become line breaks, list items get a "- " prefix, table cells are joined
// with " | " and runs of whitespace collapse. Template placeholders such as
// {{order._id}} pass through untouched.
func ToPlainText(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("head, script, style, title").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("li").PrependHtml("- ")
	doc.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		if cell.Next().Length() > 0 {
			cell.AppendHtml(" | ")
		}
	})
	doc.Find(lineSelector).AppendHtml("\n")
	doc.Find(blockSelector).Each(func(_ int, block *goquery.Selection) {
		block.PrependHtml("\n")
		block.AppendHtml("\n")
	})

	return normalize(doc.Text()), nil
}

// normalize collapses whitespace inside lines and keeps at most one blank line in a row.
func normalize(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
