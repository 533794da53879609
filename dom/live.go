package dom

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
)

// Live evaluates selectors in an open browser tab, so uniqueness reflects
// the page as the user currently sees it.
type Live struct {
	page *rod.Page
	ctx  context.Context
}

// NewLive wraps page. ctx bounds every evaluation.
func NewLive(ctx context.Context, page *rod.Page) *Live {
	return &Live{page: page, ctx: ctx}
}

// CountCSS runs querySelectorAll in the page.
func (l *Live) CountCSS(selector string) (int, error) {
	res, err := l.page.Context(l.ctx).Eval(`(s) => {
		try { return document.querySelectorAll(s).length; } catch (e) { return -1; }
	}`, selector)
	if err != nil {
		return 0, fmt.Errorf("dom: live css: %w", err)
	}
	n := res.Value.Int()
	if n < 0 {
		return 0, fmt.Errorf("dom: live css: invalid selector %q", selector)
	}
	return n, nil
}

// CountXPath runs document.evaluate with an ordered snapshot.
func (l *Live) CountXPath(expr string) (int, error) {
	res, err := l.page.Context(l.ctx).Eval(`(x) => {
		try {
			return document.evaluate(x, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null).snapshotLength;
		} catch (e) { return -1; }
	}`, expr)
	if err != nil {
		return 0, fmt.Errorf("dom: live xpath: %w", err)
	}
	n := res.Value.Int()
	if n < 0 {
		return 0, fmt.Errorf("dom: live xpath: invalid expression %q", expr)
	}
	return n, nil
}

// describeScript returns the ancestor chain of the first match, root first.
const describeScript = `(s) => {
	const el = document.querySelector(s);
	if (!el) return "null";
	const levels = [];
	for (let node = el; node && node.nodeType === 1; node = node.parentElement) {
		const attrs = [];
		for (const a of node.attributes) attrs.push({name: a.name.toLowerCase(), value: a.value});
		let index = 0, same = 0;
		const parent = node.parentElement;
		const siblings = parent ? parent.children : [node];
		for (const sib of siblings) {
			if (sib.nodeName !== node.nodeName) continue;
			same++;
			if (sib === node) index = same;
		}
		levels.unshift({tag: node.nodeName.toLowerCase(), attrs, index, same});
	}
	return JSON.stringify(levels);
}`

// Find describes the first element matching selector, or returns nil when
// nothing matches.
func (l *Live) Find(selector string) (*Element, error) {
	res, err := l.page.Context(l.ctx).Eval(describeScript, selector)
	if err != nil {
		return nil, fmt.Errorf("dom: live describe: %w", err)
	}
	var levels []*Element
	if err := json.Unmarshal([]byte(res.Value.Str()), &levels); err != nil {
		return nil, fmt.Errorf("dom: live describe: decode: %w", err)
	}
	if len(levels) == 0 {
		return nil, nil
	}
	return chain(levels), nil
}

// Snapshot parses the current DOM into a static HTML document.
func (l *Live) Snapshot() (*HTML, error) {
	res, err := l.page.Context(l.ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("dom: live snapshot: %w", err)
	}
	return ParseString(res.Value.Str())
}
