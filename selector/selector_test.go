package selector

import (
	"reflect"
	"strings"
	"testing"

	"github.com/hazyhaar/leadsync/dom"
)

func mustParse(t *testing.T, src string) *dom.HTML {
	t.Helper()
	doc, err := dom.ParseString(src)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func mustFind(t *testing.T, doc *dom.HTML, sel string) *dom.Element {
	t.Helper()
	el, err := doc.Find(sel)
	if err != nil || el == nil {
		t.Fatalf("Find(%q) = %v, %v", sel, el, err)
	}
	return el
}

func TestGenerate_StableID(t *testing.T) {
	doc := mustParse(t, `<html><body><div id="profile-card"><span>Jane</span></div></body></html>`)
	res := New().Generate(doc, mustFind(t, doc, "div"))

	if res.CSSSelector != "#profile-card" {
		t.Errorf("css: got %q", res.CSSSelector)
	}
	if res.XPathSelector != `//*[@id="profile-card"]` {
		t.Errorf("xpath: got %q", res.XPathSelector)
	}
	if res.Confidence != High {
		t.Errorf("confidence: got %q", res.Confidence)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings: got %v", res.Warnings)
	}
}

func TestGenerate_PositionOnlyIsLow(t *testing.T) {
	doc := mustParse(t, `<html><body>
		<ul><li>a</li><li>b</li><li>c</li></ul>
		<ul><li>x</li></ul>
	</body></html>`)
	res := New().Generate(doc, mustFind(t, doc, "ul > li:nth-of-type(2)"))

	if res.CSSSelector != "ul:nth-of-type(1) > li:nth-of-type(2)" {
		t.Errorf("css: got %q", res.CSSSelector)
	}
	if res.XPathSelector != "//ul[1]/li[2]" {
		t.Errorf("xpath: got %q", res.XPathSelector)
	}
	if res.Confidence != Low {
		t.Errorf("confidence: got %q, want low", res.Confidence)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "nth-of-type(2)") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings do not mention the positional step: %v", res.Warnings)
	}
	if n, _ := doc.CountCSS(res.CSSSelector); n != 1 {
		t.Errorf("css matches %d nodes", n)
	}
}

func TestGenerate_DataAttribute(t *testing.T) {
	doc := mustParse(t, `<html><body><main>
		<article data-urn="urn:li:activity:1"><h2>One</h2></article>
		<article data-urn="urn:li:activity:2"><h2>Two</h2></article>
	</main></body></html>`)
	res := New().Generate(doc, mustFind(t, doc, "article"))

	if res.CSSSelector != `article[data-urn="urn:li:activity:1"]` {
		t.Errorf("css: got %q", res.CSSSelector)
	}
	if res.XPathSelector != `//article[@data-urn="urn:li:activity:1"]` {
		t.Errorf("xpath: got %q", res.XPathSelector)
	}
	if res.Confidence != High {
		t.Errorf("confidence: got %q", res.Confidence)
	}
}

func TestGenerate_RandomIDSkipped(t *testing.T) {
	doc := mustParse(t, `<html><body><div id="react-select-42" data-testid="card">x</div></body></html>`)
	res := New().Generate(doc, mustFind(t, doc, "div"))

	if res.CSSSelector != `div[data-testid="card"]` {
		t.Errorf("css: got %q", res.CSSSelector)
	}
}

func TestGenerate_PlaceholderLeadsOnInputs(t *testing.T) {
	doc := mustParse(t, `<html><body><form>
		<input name="q" placeholder="Search posts">
		<button type="submit" aria-label="Send">Go</button>
	</form></body></html>`)
	s := New()

	if got := s.Generate(doc, mustFind(t, doc, "input")).CSSSelector; got != `input[placeholder="Search posts"]` {
		t.Errorf("input css: got %q", got)
	}
	if got := s.Generate(doc, mustFind(t, doc, "button")).CSSSelector; got != `button[type="submit"]` {
		t.Errorf("button css: got %q", got)
	}
}

func TestGenerate_NoStableAttributeIsMedium(t *testing.T) {
	doc := mustParse(t, `<html><body><main><section><p>hi</p></section></main></body></html>`)
	res := New().Generate(doc, mustFind(t, doc, "p"))

	if res.CSSSelector != "section > p" {
		t.Errorf("css: got %q", res.CSSSelector)
	}
	if res.XPathSelector != "//main/section/p" {
		t.Errorf("xpath: got %q", res.XPathSelector)
	}
	if res.Confidence != Medium {
		t.Errorf("confidence: got %q, want medium", res.Confidence)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "lacks stable attributes") {
		t.Errorf("warnings: got %v", res.Warnings)
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	doc := mustParse(t, `<html><body>
		<div><span>a</span><span>b</span></div>
		<div><span title="x">c</span></div>
	</body></html>`)
	s := New()
	el := mustFind(t, doc, "div > span:nth-of-type(2)")

	first := s.Generate(doc, el)
	second := s.Generate(doc, el)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ:\n%+v\n%+v", first, second)
	}
}

type everythingRandom struct{}

func (everythingRandom) RandomID(string) bool    { return true }
func (everythingRandom) RandomValue(string) bool { return true }

func TestGenerate_InjectedHeuristics(t *testing.T) {
	doc := mustParse(t, `<html><body><div id="profile-card" data-testid="card">x</div></body></html>`)
	res := New(WithHeuristics(everythingRandom{})).Generate(doc, mustFind(t, doc, "div"))

	// Priority data-* names are trusted regardless of their value.
	if res.CSSSelector != `div[data-testid="card"]` {
		t.Errorf("css: got %q", res.CSSSelector)
	}

	doc = mustParse(t, `<html><body><div id="profile-card">x</div></body></html>`)
	res = New(WithHeuristics(everythingRandom{})).Generate(doc, mustFind(t, doc, "div"))
	if res.CSSSelector != "body > div" {
		t.Errorf("css without trusted attributes: got %q", res.CSSSelector)
	}
	if res.Confidence != Medium {
		t.Errorf("confidence: got %q", res.Confidence)
	}
}

func TestDefaultHeuristics(t *testing.T) {
	h := DefaultHeuristics()
	randomIDs := []string{":r1:", "mui-12", "a1b2c3d4e5", "radix-menu", "headlessui-dialog-3", "1700000000123", "ember-view-item-x"}
	for _, id := range randomIDs {
		if !h.RandomID(id) {
			t.Errorf("RandomID(%q) = false", id)
		}
	}
	for _, id := range []string{"main", "profile-card", "feed"} {
		if h.RandomID(id) {
			t.Errorf("RandomID(%q) = true", id)
		}
	}
	if !h.RandomValue(strings.Repeat("a", 51)) || !h.RandomValue("deadbeefdeadbeef") {
		t.Error("RandomValue missed a random value")
	}
	if h.RandomValue("Search") {
		t.Error("RandomValue(Search) = true")
	}
}

func TestEscaping(t *testing.T) {
	for _, tt := range []struct{ in, want string }{
		{"1col", `\31 col`},
		{"a.b", `a\.b`},
		{"-", `\-`},
		{"-1x", `-\31 x`},
		{"--x", "--x"},
		{"-x", "-x"},
	} {
		if got := cssIdent(tt.in); got != tt.want {
			t.Errorf("cssIdent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := xpathLiteral(`say "hi"`); got != `'say "hi"'` {
		t.Errorf("xpathLiteral = %q", got)
	}
	if got := xpathLiteral(`it's "x"`); got != `concat("it's ", '"', "x", '"')` {
		t.Errorf("xpathLiteral both quotes = %q", got)
	}
}

func TestSelectorMatch(t *testing.T) {
	doc := mustParse(t, `<ul><li>a</li><li>b</li></ul>`)
	if p := TestCSS(doc, "li"); !p.Success || p.MatchCount != 2 {
		t.Errorf("TestCSS = %+v", p)
	}
	if p := TestXPath(doc, "//li[@"); p.Success || p.Error == "" {
		t.Errorf("TestXPath invalid = %+v", p)
	}
}
