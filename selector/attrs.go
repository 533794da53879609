package selector

import (
	"strings"

	"github.com/hazyhaar/leadsync/dom"
)

var priorityDataAttrs = []string{
	"data-testid",
	"data-test",
	"data-id",
	"data-key",
	"data-urn",
	"data-item-id",
	"data-post-id",
	"data-user-id",
	"data-element-handle",
}

// Placeholders on form controls are usually hand-written, so they lead.
var inputAttrs = []string{
	"placeholder", "name", "type", "aria-label", "role", "aria-labelledby", "title", "alt", "for",
}

var otherAttrs = []string{
	"name", "type", "role", "aria-label", "aria-labelledby", "placeholder", "title", "alt", "for", "href",
}

func (s *Synthesizer) stableID(el *dom.Element) (string, bool) {
	id, ok := el.Attr("id")
	if !ok || id == "" || s.heur.RandomID(id) {
		return "", false
	}
	return id, true
}

func (s *Synthesizer) dataAttr(el *dom.Element) (dom.Attr, bool) {
	for _, name := range priorityDataAttrs {
		if v, ok := el.Attr(name); ok && v != "" {
			return dom.Attr{Name: name, Value: v}, true
		}
	}
	for _, a := range el.Attrs {
		if strings.HasPrefix(a.Name, "data-") && a.Value != "" && !s.heur.RandomValue(a.Value) {
			return a, true
		}
	}
	return dom.Attr{}, false
}

func (s *Synthesizer) plainAttr(el *dom.Element) (dom.Attr, bool) {
	names := otherAttrs
	if el.InputLike() {
		names = inputAttrs
	}
	for _, name := range names {
		if v, ok := el.Attr(name); ok && v != "" && !s.heur.RandomValue(v) {
			return dom.Attr{Name: name, Value: v}, true
		}
	}
	return dom.Attr{}, false
}

// levelAttr is the attribute used to pin one step of an ancestor path.
func (s *Synthesizer) levelAttr(el *dom.Element) (dom.Attr, bool) {
	if a, ok := s.dataAttr(el); ok {
		return a, true
	}
	return s.plainAttr(el)
}

func (s *Synthesizer) hasStableAttribute(el *dom.Element) bool {
	if _, ok := s.stableID(el); ok {
		return true
	}
	_, ok := s.levelAttr(el)
	return ok
}
