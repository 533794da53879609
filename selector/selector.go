// Package selector builds CSS and XPath selectors for one element of a page,
// for use in extraction schemas.
//
// Both selectors prefer, in order: a non-random id, a data-* attribute, a
// stable plain attribute, then an ancestor path. Path steps are pinned by an
// attribute where one exists and by sibling position otherwise. Every
// candidate is checked against the document and accepted only when it
// matches exactly one node.
package selector

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/leadsync/dom"
)

// Confidence rates how well a selector should survive layout changes.
type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

const (
	maxCSSSegments  = 5
	maxXPathLevels  = 15
	minXPathSegment = 3
)

// Result is the output of one Generate call.
type Result struct {
	CSSSelector   string     `json:"css_selector"`
	XPathSelector string     `json:"xpath_selector"`
	Confidence    Confidence `json:"confidence"`
	Warnings      []string   `json:"warnings"`
}

// Synthesizer generates selectors.
type Synthesizer struct {
	heur   Heuristics
	logger *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithHeuristics replaces the random id/value detection.
func WithHeuristics(h Heuristics) Option {
	return func(s *Synthesizer) { s.heur = h }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Synthesizer) { s.logger = l }
}

// New creates a Synthesizer.
func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{}
	for _, o := range opts {
		o(s)
	}
	if s.heur == nil {
		s.heur = DefaultHeuristics()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// run collects warnings and positional steps for one Generate call.
type run struct {
	doc        dom.Document
	warnings   []string
	positional bool
}

func (r *run) unique(count func(string) (int, error), sel string) bool {
	n, err := count(sel)
	return err == nil && n == 1
}

func (r *run) uniqueCSS(sel string) bool   { return r.unique(r.doc.CountCSS, sel) }
func (r *run) uniqueXPath(sel string) bool { return r.unique(r.doc.CountXPath, sel) }

// Generate returns selectors for el evaluated against doc. The result is
// deterministic for an unchanged document.
func (s *Synthesizer) Generate(doc dom.Document, el *dom.Element) Result {
	r := &run{doc: doc}
	css := s.css(r, el)
	xpath := s.xpath(r, el)

	res := Result{CSSSelector: css, XPathSelector: xpath, Confidence: High}
	switch {
	case r.positional:
		res.Confidence = Low
		r.warnings = append(r.warnings, "Selector uses positional steps which may break if page structure changes")
	case !s.hasStableAttribute(el):
		res.Confidence = Medium
		r.warnings = append(r.warnings, "Element lacks stable attributes (data-*, id). Selector may be fragile.")
	}
	res.Warnings = r.warnings
	if res.Warnings == nil {
		res.Warnings = []string{}
	}

	s.logger.Debug("selector: generated", "tag", el.Tag, "css", css, "xpath", xpath, "confidence", res.Confidence)
	return res
}

func (s *Synthesizer) css(r *run, el *dom.Element) string {
	if id, ok := s.stableID(el); ok {
		if sel := "#" + cssIdent(id); r.uniqueCSS(sel) {
			return sel
		}
	}
	if a, ok := s.dataAttr(el); ok {
		if sel := cssAttrStep(el.Tag, a); r.uniqueCSS(sel) {
			return sel
		}
	}
	if a, ok := s.plainAttr(el); ok {
		if sel := cssAttrStep(el.Tag, a); r.uniqueCSS(sel) {
			return sel
		}
	}

	var path []string
	for cur := el; cur != nil; cur = cur.Parent {
		step := cur.Tag
		if id, ok := s.stableID(cur); ok && cur != el {
			step = cur.Tag + "#" + cssIdent(id)
		} else if a, ok := s.levelAttr(cur); ok {
			step = cssAttrStep(cur.Tag, a)
		} else if cur.Parent != nil && cur.HasSameTagSiblings() {
			step = fmt.Sprintf("%s:nth-of-type(%d)", cur.Tag, cur.Index)
			r.positional = true
			r.warnings = append(r.warnings, fmt.Sprintf("Using :nth-of-type(%d) for %s - may be fragile", cur.Index, step))
		}
		path = append([]string{step}, path...)

		if len(path) > 1 && r.uniqueCSS(strings.Join(path, " > ")) {
			break
		}
		if len(path) >= maxCSSSegments {
			break
		}
	}
	return strings.Join(path, " > ")
}

func cssAttrStep(tag string, a dom.Attr) string {
	return fmt.Sprintf("%s[%s=%s]", tag, a.Name, cssString(a.Value))
}

func (s *Synthesizer) xpath(r *run, el *dom.Element) string {
	if id, ok := s.stableID(el); ok {
		if sel := "//*[@id=" + xpathLiteral(id) + "]"; r.uniqueXPath(sel) {
			return sel
		}
	}
	if a, ok := s.dataAttr(el); ok {
		if sel := "//" + xpathAttrStep(el.Tag, a); r.uniqueXPath(sel) {
			return sel
		}
	}
	if a, ok := s.plainAttr(el); ok {
		if sel := "//" + xpathAttrStep(el.Tag, a); r.uniqueXPath(sel) {
			return sel
		}
	}

	var path []string
	depth := 0
	for cur := el; cur != nil && depth < maxXPathLevels; cur = cur.Parent {
		depth++
		if cur.Tag == "html" || cur.Tag == "body" {
			continue
		}

		step := cur.Tag
		if id, ok := s.stableID(cur); ok && cur != el {
			step = xpathAttrStep(cur.Tag, dom.Attr{Name: "id", Value: id})
		} else if a, ok := s.levelAttr(cur); ok {
			step = xpathAttrStep(cur.Tag, a)
		} else if cur.Parent != nil && cur.HasSameTagSiblings() {
			step = fmt.Sprintf("%s[%d]", cur.Tag, cur.Index)
			r.positional = true
			r.warnings = append(r.warnings, fmt.Sprintf("Using position [%d] for %s - may be fragile", cur.Index, cur.Tag))
		}
		path = append([]string{step}, path...)

		if len(path) >= minXPathSegment && depth >= minXPathSegment && r.uniqueXPath("//"+strings.Join(path, "/")) {
			break
		}
	}
	return "//" + strings.Join(path, "/")
}

func xpathAttrStep(tag string, a dom.Attr) string {
	return fmt.Sprintf("%s[@%s=%s]", tag, a.Name, xpathLiteral(a.Value))
}
