package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/net/html"

	"github.com/hazyhaar/leadsync/dom"
	"github.com/hazyhaar/leadsync/gateway"
	"github.com/hazyhaar/leadsync/pagetype"
	"github.com/hazyhaar/leadsync/schema"
)

var firstNumber = regexp.MustCompile(`\d+`)

// readPost builds a lead from one wrapper. ok is false when a required field
// is missing or no keyword matches.
func (e *Extractor) readPost(doc *dom.HTML, wrapper *html.Node, pageURL string) (gateway.Lead, bool) {
	values := make(map[string]string)
	for _, et := range []string{schema.PostTitle, schema.PostDescription, schema.PostContent, schema.PostURL, schema.AuthorName, schema.AuthorURL} {
		entry, ok := e.entries[et]
		if !ok {
			continue
		}
		v := e.field(doc, wrapper, et, entry)
		if v == "" && entry.IsRequired {
			e.logger.Debug("extract: required field missing", "element_type", et)
			return gateway.Lead{}, false
		}
		values[et] = v
	}

	description := joinNonEmpty("\n\n", values[schema.PostDescription], values[schema.PostContent])
	matched := matchKeywords(values[schema.PostTitle]+" "+description, e.cfg.Keywords)
	if len(matched) == 0 {
		return gateway.Lead{}, false
	}

	postURL := resolve(pageURL, values[schema.PostURL])
	title := or(values[schema.PostTitle], DefaultTitle)
	author := or(values[schema.AuthorName], DefaultAuthor)
	id, ok := postID(values[schema.PostURL], postURL, e.cfg.Platform)
	if !ok {
		id = contentID(title, author, description)
	}
	return gateway.Lead{
		Platform:        string(e.cfg.Platform),
		PlatformID:      id,
		Title:           title,
		Description:     description,
		URL:             postURL,
		Author:          author,
		MatchedKeywords: matched,
		ConfidenceScore: DefaultConfidence,
	}, true
}

// field reads one element relative to wrapper and falls back to the
// schema's fallback value.
func (e *Extractor) field(doc *dom.HTML, wrapper *html.Node, elementType string, entry schema.Entry) string {
	if n := locate(doc, wrapper, entry); n != nil {
		if v := e.value(elementType, n); v != "" {
			return v
		}
	}
	if entry.FallbackValue != nil {
		return *entry.FallbackValue
	}
	return ""
}

// locate finds the first match of entry under wrapper, CSS first. A CSS
// selector starting with ">" matches direct children only. XPath is
// evaluated with wrapper as the context node.
func locate(doc *dom.HTML, wrapper *html.Node, entry schema.Entry) *html.Node {
	if sel := strings.TrimSpace(entry.CSSSelector); sel != "" {
		child := strings.HasPrefix(sel, ">")
		nodes, _ := doc.QueryCSS(wrapper, strings.TrimSpace(strings.TrimPrefix(sel, ">")))
		for _, n := range nodes {
			if !child || n.Parent == wrapper {
				return n
			}
		}
	}
	if entry.XPathSelector != nil {
		if expr := strings.TrimSpace(*entry.XPathSelector); expr != "" {
			if nodes, _ := doc.QueryXPath(wrapper, expr); len(nodes) > 0 {
				return nodes[0]
			}
		}
	}
	return nil
}

func (e *Extractor) value(elementType string, n *html.Node) string {
	switch {
	case strings.Contains(elementType, "_url") || strings.Contains(elementType, "_avatar"):
		for _, attr := range []string{"href", "src", "data-url"} {
			if v, ok := dom.AttrOf(n, attr); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return dom.Text(n)
	case strings.Contains(elementType, "_count"):
		if m := firstNumber.FindString(dom.Text(n)); m != "" {
			return m
		}
		return "0"
	case elementType == schema.PostDescription || elementType == schema.PostContent:
		return e.content.markdown(n)
	}
	return dom.Text(n)
}

// matchKeywords returns the keywords contained in text, ignoring case.
func matchKeywords(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			out = append(out, kw)
		}
	}
	return out
}

// postID returns the post id carried by a card's post URL. ok is false
// when the card has no URL or the URL is not a post permalink of p, such as
// a subreddit link or the search page itself.
func postID(raw, postURL string, p pagetype.Platform) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	info := pagetype.Classify(postURL)
	if info.Type != pagetype.PostPage && info.Type != pagetype.Unknown {
		return "", false
	}
	return pagetype.MatchPlatformID(postURL, p, pagetype.PostPage)
}

// contentID identifies a post without a permalink by what it shows.
// Identical cards share an id.
func contentID(title, author, description string) string {
	h := xxhash.New()
	for _, part := range []string{strings.ToLower(strings.TrimSpace(title)), author, description} {
		h.WriteString(part)
		h.WriteString("\x00")
	}
	return fmt.Sprintf("post_%016x", h.Sum64())
}

// resolve makes ref absolute against base. An empty ref yields base.
func resolve(base, ref string) string {
	if ref == "" {
		return base
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
