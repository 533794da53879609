package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hazyhaar/leadsync/pagetype"
)

// ErrNotFound is returned when an element ID does not exist.
var ErrNotFound = errors.New("schema: element not found")

// ValidationError lists every problem found in a document or element.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "schema: invalid: " + strings.Join(e.Problems, "; ")
}

// ValidateCSS is a sanity check, not a grammar check: the selector must be
// non-empty and free of markup and rule-block characters.
func ValidateCSS(sel string) bool {
	return strings.TrimSpace(sel) != "" && !strings.ContainsAny(sel, "<>{}")
}

// ValidateXPath accepts absolute and context-relative expressions only.
func ValidateXPath(expr string) bool {
	return strings.HasPrefix(expr, "/") || strings.HasPrefix(expr, ".")
}

type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Problems: p}
}

func checkKey(p *problems, platform, pageType string) {
	if platform == "" {
		p.addf("platform is required")
	} else if !pagetype.Platform(platform).Valid() {
		p.addf("unknown platform %q", platform)
	}
	if pageType == "" {
		p.addf("page_type is required")
	} else if !pagetype.PageType(pageType).Valid() {
		p.addf("unknown page_type %q", pageType)
	}
}

func checkElement(p *problems, label, elementType, css string, xpath, parent *string) {
	if !ValidElementType(elementType) {
		p.addf("%s: unknown element_type %q", label, elementType)
	}
	hasXPath := xpath != nil && *xpath != ""
	if css == "" && !hasXPath {
		p.addf("%s: css_selector or xpath_selector is required", label)
	}
	if css != "" && !ValidateCSS(css) {
		p.addf("%s: invalid css_selector %q", label, css)
	}
	if hasXPath && !ValidateXPath(*xpath) {
		p.addf("%s: invalid xpath_selector %q", label, *xpath)
	}
	if parent != nil && *parent != "" && !ValidElementType(*parent) {
		p.addf("%s: unknown parent_element %q", label, *parent)
	}
}

// Validate checks a document before import.
func (d *Document) Validate() error {
	var p problems
	checkKey(&p, d.Platform, d.PageType)
	if len(d.Elements) == 0 {
		p.addf("elements must not be empty")
	}
	for i, el := range d.Elements {
		checkElement(&p, fmt.Sprintf("elements[%d]", i), el.ElementType, el.CSSSelector, el.XPathSelector, el.ParentElement)
	}
	return p.err()
}

func validateElement(e *Element) error {
	var p problems
	checkKey(&p, e.Platform, e.PageType)
	checkElement(&p, "element", e.ElementType, e.CSSSelector, e.XPathSelector, e.ParentElement)
	return p.err()
}
