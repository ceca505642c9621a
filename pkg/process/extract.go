package process

import (
	"bytes"
	"errors"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/devraulu/refscout/pkg/reference"
)

const (
	primaryMinChars  = 200
	fallbackMinChars = 20
)

var ErrNoContent = errors.New("no readable content")

type Extraction struct {
	Title  string
	Text   string
	Method reference.ExtractionMethod
}

const boilerplateSelector = "script, style, noscript, iframe, svg, template, form, button, " +
	"nav, header, footer, aside, " +
	"[role=navigation], [role=banner], [role=contentinfo], [role=complementary], [aria-hidden=true]"

var boilerplateRx = regexp.MustCompile(`(?i)(^|[\s_-])(ads?|advert\w*|banner|breadcrumbs?|comments?|cookie\w*|menu|masthead|newsletter|popup|promo\w*|related|share|sharing|sidebar|social|sponsor\w*|subscribe|widget)($|[\s_-])`)

// Extract pulls the title and main text out of an HTML document. A
// readability-style pass runs first; when it yields near-empty text the
// largest text block is used instead.
func Extract(body []byte) (*Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	title := documentTitle(doc)

	if text := readable(doc); len(text) >= primaryMinChars {
		return &Extraction{Title: title, Text: text, Method: reference.ExtractionPrimary}, nil
	}

	// the primary pass mutated the tree
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = extractTitle(root)
	}

	text := LargestTextBlock(root)
	if len(text) < fallbackMinChars {
		return nil, ErrNoContent
	}

	return &Extraction{Title: title, Text: text, Method: reference.ExtractionFallback}, nil
}

func documentTitle(doc *goquery.Document) string {
	if t := collapse(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if t, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok && strings.TrimSpace(t) != "" {
		return collapse(t)
	}
	return collapse(doc.Find("h1").First().Text())
}

func readable(doc *goquery.Document) string {
	doc.Find(boilerplateSelector).Remove()
	doc.Find("div, section, span, ul, p").Each(func(_ int, s *goquery.Selection) {
		if isBoilerplate(s) {
			s.Remove()
		}
	})

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main, [role=main]").First()
	}
	if root.Length() == 0 {
		root = bestContainer(doc)
	}
	if root == nil || root.Length() == 0 {
		return ""
	}

	var sb strings.Builder
	for _, n := range root.Nodes {
		extractTextNodes(n, &sb)
	}
	return collapse(sb.String())
}

func isBoilerplate(s *goquery.Selection) bool {
	class, _ := s.Attr("class")
	id, _ := s.Attr("id")
	return boilerplateRx.MatchString(class) || boilerplateRx.MatchString(id)
}

// bestContainer scores parents of paragraph-like nodes by the text they hold,
// crediting grandparents half.
func bestContainer(doc *goquery.Document) *goquery.Selection {
	scores := make(map[*html.Node]float64)
	var order []*html.Node
	credit := func(n *html.Node, score float64) {
		if _, ok := scores[n]; !ok {
			order = append(order, n)
		}
		scores[n] += score
	}

	doc.Find("p, pre, td, li").Each(func(_ int, s *goquery.Selection) {
		n := s.Nodes[0]
		text := collapse(s.Text())
		if len(text) < 25 {
			return
		}
		score := 1 + float64(strings.Count(text, ",")) + min(float64(len(text))/100, 3)

		if p := n.Parent; p != nil && p.Type == html.ElementNode {
			credit(p, score)
			if gp := p.Parent; gp != nil && gp.Type == html.ElementNode {
				credit(gp, score/2)
			}
		}
	})

	var (
		best      *html.Node
		bestScore float64
	)
	for _, n := range order {
		if scores[n] > bestScore {
			best, bestScore = n, scores[n]
		}
	}
	if best == nil {
		return nil
	}
	return doc.FindNodes(best)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func extractTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		if n.FirstChild != nil {
			return collapse(n.FirstChild.Data)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := extractTitle(c); t != "" {
			return t
		}
	}
	return ""
}
