// Package render converts backend post HTML into text for list views and
// meta tags. Post content comes from the backend's rich-text editor, so it
// is an HTML fragment, never plain text.
package render

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultExcerptLen is the card excerpt length, in runes.
const DefaultExcerptLen = 160

// PlainText strips all markup from an HTML fragment and collapses runs of
// whitespace to single spaces. Unparseable input degrades to the trimmed
// raw string rather than failing the page.
func PlainText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Excerpt returns at most maxRunes of the fragment's plain text, cut at a
// word boundary with a trailing "...". maxRunes <= 0 selects the default.
func Excerpt(html string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultExcerptLen
	}
	text := PlainText(html)
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}

	cut := string(runes[:maxRunes])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " .,;:") + "..."
}
