package generator

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"

	"article_canvas/planning"
)

const (
	excerptLimit    = 150
	maxOutlineItems = 10
	// Below this many characters of text an article counts as empty enough
	// to receive generated section placeholders.
	placeholderThreshold = 50
)

// HTMLToText returns the text of an html fragment with tags dropped and
// entities decoded.
func HTMLToText(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(sb.String())
}

// Excerpt is the first 150 characters of text, with an ellipsis if cut.
func Excerpt(text string) string {
	r := []rune(text)
	if len(r) <= excerptLimit {
		return text
	}
	return string(r[:excerptLimit]) + "..."
}

// RenderMarkdown converts model markdown to HTML.
func RenderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// OutlineHTML is the starting content of an article whose outline was
// generated up front.
func OutlineHTML(outline string) (string, error) {
	body, err := RenderMarkdown(outline)
	if err != nil {
		return "", err
	}
	return "<h2>Outline</h2>\n" + body, nil
}

func looksLikeOutlineLine(line string) bool {
	r := []rune(line)
	if len(r) == 0 {
		return false
	}
	switch {
	case unicode.IsDigit(r[0]), r[0] == '-', r[0] == '*', r[0] == '•':
		return true
	case r[0] >= 'A' && r[0] <= 'Z':
		return true
	}
	return false
}

// ParseFreeformOutline turns a free-text outline reply into at most ten
// items, keeping numbered, bulleted or capitalized lines.
func ParseFreeformOutline(text string) []planning.OutlineItem {
	var items []planning.OutlineItem
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !looksLikeOutlineLine(line) {
			continue
		}
		items = append(items, planning.OutlineItem{
			ID:    uuid.NewString(),
			Title: planning.StripOutlineMarker(line),
		})
		if len(items) == maxOutlineItems {
			break
		}
	}
	return items
}

// StartWritingContent seeds the editor with one heading per outline item.
func StartWritingContent(outline []planning.OutlineItem) string {
	parts := make([]string, 0, len(outline))
	for i, item := range outline {
		parts = append(parts, fmt.Sprintf("<h2>%d. %s</h2><p></p>", i+1, html.EscapeString(item.Title)))
	}
	return strings.Join(parts, "\n")
}

// PlaceholderContent is the article body written after an AI outline is
// generated: the title, then a section stub per item.
func PlaceholderContent(title string, outline []planning.OutlineItem) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<h1>%s</h1>\n<p><br></p>\n", html.EscapeString(title)))
	for i, item := range outline {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("<h2>%d. %s</h2>\n<p class=\"text-slate-400 italic\">// TODO: Write content for this section</p>\n<p><br></p>",
			i+1, html.EscapeString(item.Title)))
	}
	return sb.String()
}

// NeedsPlaceholders reports whether content is short enough to be replaced
// by generated section stubs.
func NeedsPlaceholders(content string) bool {
	return len([]rune(HTMLToText(content))) < placeholderThreshold
}
