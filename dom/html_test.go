package dom

import "testing"

const page = `<!DOCTYPE html>
<html><body>
<main id="feed">
  <article data-urn="urn:li:activity:1"><h2>First</h2><a href="/p/1">link</a></article>
  <article data-urn="urn:li:activity:2"><h2>Second</h2><a href="/p/2">link</a></article>
</main>
</body></html>`

func TestHTML_Counts(t *testing.T) {
	doc, err := ParseString(page)
	if err != nil {
		t.Fatal(err)
	}

	if n, err := doc.CountCSS("article"); err != nil || n != 2 {
		t.Fatalf("CountCSS(article) = %d, %v; want 2", n, err)
	}
	if n, err := doc.CountCSS(`#feed > article:nth-of-type(2) > h2`); err != nil || n != 1 {
		t.Fatalf("CountCSS(nth-of-type) = %d, %v; want 1", n, err)
	}
	if n, err := doc.CountXPath(`//main/article[1]/h2`); err != nil || n != 1 {
		t.Fatalf("CountXPath = %d, %v; want 1", n, err)
	}
	if n, err := doc.CountXPath(`//article/h2/text()`); err != nil || n != 0 {
		t.Fatalf("CountXPath(text()) = %d, %v; want 0 element matches", n, err)
	}
}

func TestHTML_InvalidSelectors(t *testing.T) {
	doc, err := ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := doc.CountCSS("article[["); err == nil {
		t.Fatal("expected css error")
	}
	if _, err := doc.CountXPath("//article[@"); err == nil {
		t.Fatal("expected xpath error")
	}
}

func TestDescribe(t *testing.T) {
	doc, err := ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	el, err := doc.Find(`article[data-urn="urn:li:activity:2"] h2`)
	if err != nil || el == nil {
		t.Fatalf("Find: %v, %v", el, err)
	}
	if el.Tag != "h2" || el.Index != 1 || el.Same != 1 {
		t.Fatalf("h2: got %+v", el)
	}
	art := el.Parent
	if art.Tag != "article" || art.Index != 2 || art.Same != 2 || !art.HasSameTagSiblings() {
		t.Fatalf("article: got %+v", art)
	}
	if v, ok := art.Attr("data-urn"); !ok || v != "urn:li:activity:2" {
		t.Fatalf("data-urn: got %q, %v", v, ok)
	}

	var tags []string
	for cur := el; cur != nil; cur = cur.Parent {
		tags = append(tags, cur.Tag)
	}
	want := []string{"h2", "article", "main", "body", "html"}
	if len(tags) != len(want) {
		t.Fatalf("chain: got %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("chain: got %v, want %v", tags, want)
		}
	}
}

func TestFind_NoMatch(t *testing.T) {
	doc, _ := ParseString(page)
	el, err := doc.Find("table")
	if err != nil || el != nil {
		t.Fatalf("Find(table) = %v, %v; want nil, nil", el, err)
	}
}

func TestText(t *testing.T) {
	doc, _ := ParseString(`<div><p>  hello
	   <b>world</b> </p></div>`)
	nodes, err := doc.QueryCSS(doc.Root(), "p")
	if err != nil || len(nodes) != 1 {
		t.Fatalf("QueryCSS: %v %v", nodes, err)
	}
	if got := Text(nodes[0]); got != "hello world" {
		t.Fatalf("Text = %q", got)
	}
}
