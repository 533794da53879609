package extract

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/hazyhaar/leadsync/dom"
)

// contentConverter turns post bodies into sanitised Markdown.
type contentConverter struct {
	policy *bluemonday.Policy
	md     *converter.Converter
}

func newContentConverter() *contentConverter {
	return &contentConverter{
		policy: bluemonday.UGCPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

// markdown renders the inner content of n. Plain text is returned when the
// conversion fails.
func (c *contentConverter) markdown(n *html.Node) string {
	var inner strings.Builder
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		inner.WriteString(dom.OuterHTML(ch))
	}
	clean := c.policy.Sanitize(inner.String())
	out, err := c.md.ConvertString(clean)
	if err != nil {
		return dom.Text(n)
	}
	return strings.TrimSpace(out)
}
