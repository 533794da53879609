package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// HTML is a parsed page snapshot. CSS goes through goquery, XPath through
// htmlquery; both walk the same x/net/html tree.
type HTML struct {
	root *html.Node
	doc  *goquery.Document
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*HTML, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return &HTML{root: root, doc: goquery.NewDocumentFromNode(root)}, nil
}

// ParseString is Parse for an in-memory page.
func ParseString(s string) (*HTML, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document node.
func (h *HTML) Root() *html.Node { return h.root }

// CountCSS returns the number of nodes matching selector.
func (h *HTML) CountCSS(selector string) (int, error) {
	nodes, err := h.QueryCSS(h.root, selector)
	return len(nodes), err
}

// CountXPath returns the number of nodes matching expr.
func (h *HTML) CountXPath(expr string) (int, error) {
	nodes, err := h.QueryXPath(h.root, expr)
	return len(nodes), err
}

// QueryCSS returns element descendants of ctx matching selector.
func (h *HTML) QueryCSS(ctx *html.Node, selector string) ([]*html.Node, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("dom: css %q: %w", selector, err)
	}
	return goquery.NewDocumentFromNode(ctx).FindMatcher(m).Nodes, nil
}

// QueryXPath evaluates expr with ctx as the context node and keeps element
// results only.
func (h *HTML) QueryXPath(ctx *html.Node, expr string) ([]*html.Node, error) {
	nodes, err := htmlquery.QueryAll(ctx, expr)
	if err != nil {
		return nil, fmt.Errorf("dom: xpath %q: %w", expr, err)
	}
	out := nodes[:0]
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			out = append(out, n)
		}
	}
	return out, nil
}

// Find returns the Element description of the first node matching selector,
// or nil when nothing matches.
func (h *HTML) Find(selector string) (*Element, error) {
	nodes, err := h.QueryCSS(h.root, selector)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return Describe(nodes[0]), nil
}

// Describe builds the Element chain for an element node.
func Describe(n *html.Node) *Element {
	var levels []*Element
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		el := &Element{Tag: cur.Data}
		for _, a := range cur.Attr {
			el.Attrs = append(el.Attrs, Attr{Name: strings.ToLower(a.Key), Value: a.Val})
		}
		el.Index, el.Same = siblingPosition(cur)
		levels = append([]*Element{el}, levels...)
	}
	return chain(levels)
}

func siblingPosition(n *html.Node) (index, same int) {
	if n.Parent == nil {
		return 1, 1
	}
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != n.Data {
			continue
		}
		same++
		if c == n {
			index = same
		}
	}
	return index, same
}

// Text returns the whitespace-collapsed text content of n.
func Text(n *html.Node) string {
	return strings.Join(strings.Fields(htmlquery.InnerText(n)), " ")
}

// AttrOf returns an attribute of n.
func AttrOf(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// OuterHTML renders n back to markup.
func OuterHTML(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}
