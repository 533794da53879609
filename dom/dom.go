// Package dom gives the selector synthesizer and the extractor one view of
// a page, whether it is a parsed HTML snapshot or a live browser tab.
//
// An Element is a detached description of a node and its ancestors: tag,
// attributes in document order, and its position among same-tag siblings.
// A Document answers how many nodes a CSS selector or XPath expression
// matches.
package dom

import "strings"

// Attr is one attribute of an element.
type Attr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Element describes a node and, through Parent, its ancestor chain.
type Element struct {
	Tag    string   `json:"tag"`
	Attrs  []Attr   `json:"attrs"`
	Index  int      `json:"index"`   // 1-based among same-tag siblings
	Same   int      `json:"same"`    // same-tag siblings, self included
	Parent *Element `json:"-"`
}

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasSameTagSiblings reports whether a position predicate is needed to
// tell e apart from its siblings.
func (e *Element) HasSameTagSiblings() bool {
	return e.Same > 1
}

// InputLike reports whether e is a form control.
func (e *Element) InputLike() bool {
	switch e.Tag {
	case "input", "textarea", "select":
		return true
	}
	return false
}

// Document evaluates selectors against a page.
type Document interface {
	CountCSS(selector string) (int, error)
	CountXPath(expr string) (int, error)
}

// chain links a root-first list of elements into a parent chain and
// returns the last one.
func chain(levels []*Element) *Element {
	var prev *Element
	for _, el := range levels {
		el.Tag = strings.ToLower(el.Tag)
		el.Parent = prev
		prev = el
	}
	return prev
}
