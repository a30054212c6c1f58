package knowledge

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// boilerplateTags never contribute readable text: navigation, scripting,
// and presentation chrome that surrounds the article body.
var boilerplateTags = map[string]bool{
	"script": true, "style": true, "nav": true, "footer": true,
	"header": true, "aside": true, "noscript": true, "form": true,
	"button": true, "svg": true, "iframe": true,
}

// Section is one heading-delimited unit of extracted text, the soft
// section marker the chunker splits along.
type Section struct {
	Heading string // empty for text before the first heading
	Level   int    // 1-6, or 0 for the headingless lead section
	Text    string
}

// Extracted is the result of reducing one HTML document to readable text.
type Extracted struct {
	Title    string
	Sections []Section
}

// Extract parses r as HTML and reduces it to a title plus a sequence of
// heading-delimited sections, discarding script/style/nav/footer/aside
// chrome. Heading hierarchy survives as each section's Level, letting the
// chunker avoid splitting a heading away from its introductory paragraph.
func Extract(r io.Reader) (*Extracted, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	ex := &Extracted{}
	cur := &Section{}
	flush := func() {
		text := strings.TrimSpace(cur.Text)
		if text != "" {
			cur.Text = text
			ex.Sections = append(ex.Sections, *cur)
		}
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if boilerplateTags[n.Data] {
				return
			}
			if n.Data == "title" && ex.Title == "" {
				ex.Title = strings.TrimSpace(textContent(n))
				return
			}
			if level, ok := headingLevel(n.Data); ok {
				flush()
				cur = &Section{Heading: strings.TrimSpace(textContent(n)), Level: level}
				return
			}
		case html.TextNode:
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				if cur.Text != "" {
					cur.Text += "\n"
				}
				cur.Text += trimmed
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	flush()

	return ex, nil
}

func headingLevel(tag string) (int, bool) {
	switch tag {
	case "h1":
		return 1, true
	case "h2":
		return 2, true
	case "h3":
		return 3, true
	case "h4":
		return 4, true
	case "h5":
		return 5, true
	case "h6":
		return 6, true
	}
	return 0, false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
