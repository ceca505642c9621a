package process

import (
	"strings"

	"golang.org/x/net/html"
)

var blockTags = map[string]bool{
	"body":       true,
	"div":        true,
	"section":    true,
	"article":    true,
	"main":       true,
	"td":         true,
	"blockquote": true,
	"pre":        true,
}

// VisibleText returns all text under n outside of scripts, styles and the
// document head, with whitespace collapsed.
func VisibleText(n *html.Node) string {
	var sb strings.Builder
	extractTextNodes(n, &sb)
	return collapse(sb.String())
}

// LargestTextBlock groups visible text by its nearest block ancestor and
// returns the biggest group. When no group reaches fallbackMinChars the whole
// visible text is returned.
func LargestTextBlock(doc *html.Node) string {
	groups := make(map[*html.Node]*strings.Builder)
	groupText(doc, nil, groups)

	best := ""
	for _, sb := range groups {
		if t := collapse(sb.String()); len(t) > len(best) {
			best = t
		}
	}
	if len(best) >= fallbackMinChars {
		return best
	}
	return VisibleText(doc)
}

func groupText(n *html.Node, block *html.Node, groups map[*html.Node]*strings.Builder) {
	if n.Type == html.ElementNode {
		if skipTag(n.Data) {
			return
		}
		if blockTags[n.Data] {
			block = n
		}
	}

	if n.Type == html.TextNode && block != nil {
		sb, ok := groups[block]
		if !ok {
			sb = &strings.Builder{}
			groups[block] = sb
		}
		sb.WriteString(n.Data)
		sb.WriteString(" ")
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		groupText(c, block, groups)
	}
}

func skipTag(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "iframe", "svg", "template", "head":
		return true
	}
	return false
}

func extractTextNodes(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode && skipTag(n.Data) {
		return
	}

	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteString(" ")
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractTextNodes(c, sb)
	}
}
