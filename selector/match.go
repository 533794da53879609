package selector

import "github.com/hazyhaar/leadsync/dom"

// Match reports how many nodes a selector matches, for checking a selector
// while authoring a schema.
type Match struct {
	Success    bool   `json:"success"`
	MatchCount int    `json:"match_count"`
	Error      string `json:"error,omitempty"`
}

// TestCSS evaluates a CSS selector against doc.
func TestCSS(doc dom.Document, sel string) Match {
	return match(doc.CountCSS(sel))
}

// TestXPath evaluates an XPath expression against doc.
func TestXPath(doc dom.Document, expr string) Match {
	return match(doc.CountXPath(expr))
}

func match(n int, err error) Match {
	if err != nil {
		return Match{Error: err.Error()}
	}
	return Match{Success: true, MatchCount: n}
}
