package extract

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockElements end the current paragraph on entry and exit
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Li: true, atom.Ol: true, atom.Ul: true, atom.Tr: true, atom.Table: true,
	atom.Blockquote: true, atom.Pre: true, atom.Br: true, atom.Hr: true,
	atom.Header: true, atom.Footer: true, atom.Main: true, atom.Dd: true, atom.Dt: true,
}

var headingLevels = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// HTMLText renders an HTML document as plain paragraphs separated by blank lines.
// Headings become "#"-prefixed lines; scripts, styles and the document head are skipped.
func HTMLText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var (
		paragraphs []string
		current    []string
	)
	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = nil
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Iframe, atom.Head, atom.Template:
				return
			}

			if level, ok := headingLevels[n.DataAtom]; ok {
				flush()
				if text := strings.Join(strings.Fields(nodeText(n)), " "); text != "" {
					paragraphs = append(paragraphs, strings.Repeat("#", level)+" "+text)
				}
				return
			}

			if blockElements[n.DataAtom] {
				flush()
				defer flush()
			}
		}

		if n.Type == html.TextNode {
			current = append(current, strings.Fields(n.Data)...)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	flush()

	if len(paragraphs) == 0 {
		return "", nil
	}
	return strings.Join(paragraphs, "\n\n") + "\n", nil
}

// nodeText concatenates the text beneath n
func nodeText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}
