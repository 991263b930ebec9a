package xmlcore

import (
	"testing"
)

func TestFindElementByName(t *testing.T) {
	doc := mustParse(t, `<root><a><b id="1"/></a><b id="2"/></root>`)
	root := doc.FirstChild

	matches, err := FindAll(root, "<b>")
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if v, _ := matches[0].SelectAttr("id"); v != "1" {
		t.Fatalf("matches[0] id = %q, want 1", v)
	}
	if v, _ := matches[1].SelectAttr("id"); v != "2" {
		t.Fatalf("matches[1] id = %q, want 2", v)
	}
}

func TestFindFirstOnly(t *testing.T) {
	doc := mustParse(t, `<root><item v="x"/><item v="y"/></root>`)
	root := doc.FirstChild

	n, err := Find(root, "<item>")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if n == nil {
		t.Fatalf("expected a match")
	}
	if v, _ := n.SelectAttr("v"); v != "x" {
		t.Fatalf("v = %q, want x", v)
	}
}

func TestFindNoMatchReturnsNil(t *testing.T) {
	doc := mustParse(t, `<root><a/></root>`)
	n, err := Find(doc.FirstChild, "<missing>")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if n != nil {
		t.Fatalf("expected nil, got %+v", n)
	}
}

func TestFindAttrExists(t *testing.T) {
	doc := mustParse(t, `<root><a flag="1"/><a/></root>`)
	matches, err := FindAll(doc.FirstChild, "<a>/@flag")
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
}

func TestFindAttrEquals(t *testing.T) {
	doc := mustParse(t, `<root><a id="7"/><a id="8"/></root>`)
	matches, err := FindAll(doc.FirstChild, `<a>/id='7'`)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if v, _ := matches[0].SelectAttr("id"); v != "7" {
		t.Fatalf("id = %q, want 7", v)
	}
}

func TestFindAttrContains(t *testing.T) {
	doc := mustParse(t, `<root><a class="foo bar"/><a class="baz"/></root>`)
	matches, err := FindAll(doc.FirstChild, `<a>/class|='bar'`)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
}

func TestFindTextEquals(t *testing.T) {
	doc := mustParse(t, `<root><a>hi</a><a>bye</a></root>`)
	matches, err := FindAll(doc.FirstChild, `<a>/$text='hi'`)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
}

func TestFindTextContains(t *testing.T) {
	doc := mustParse(t, `<root><a>hello world</a><a>nope</a></root>`)
	matches, err := FindAll(doc.FirstChild, `<a>/$text|='world'`)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
}

func TestFindCommentEquals(t *testing.T) {
	doc := mustParse(t, `<root><a><!--keep--></a><b><!--drop--></b></root>`)
	matches, err := FindAll(doc.FirstChild, `<a>/#comment='keep'`)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
}

func TestFindNamespacedAttrEquals(t *testing.T) {
	doc := mustParse(t, `<root xmlns:a="urn:a"><x a:id="7"/><x a:id="8"/></root>`)
	matches, err := FindAll(doc.FirstChild, `<x>/a:id='7'`)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
}

func TestFindMalformedSegmentErrors(t *testing.T) {
	doc := mustParse(t, `<root/>`)
	_, err := FindAll(doc.FirstChild, "not-a-valid-segment-shape!!!")
	if err == nil {
		t.Fatalf("expected an error for a malformed query segment")
	}
}

func TestFindEmptyQueryErrors(t *testing.T) {
	doc := mustParse(t, `<root/>`)
	_, err := FindAll(doc.FirstChild, "")
	if err == nil {
		t.Fatalf("expected an error for an empty query")
	}
}

func TestQueryCacheReturnsSameSegments(t *testing.T) {
	prevDisable, prevMax := DisableQueryCache, QueryCacheMaxEntries
	DisableQueryCache = false
	QueryCacheMaxEntries = 50
	defer func() {
		DisableQueryCache, QueryCacheMaxEntries = prevDisable, prevMax
	}()

	const q = "<dup>"
	segs1, err := getQuery(q)
	if err != nil {
		t.Fatalf("getQuery: %v", err)
	}
	segs2, err := getQuery(q)
	if err != nil {
		t.Fatalf("getQuery: %v", err)
	}
	if len(segs1) != len(segs2) || len(segs1) != 1 {
		t.Fatalf("expected matching single-segment parses, got %v and %v", segs1, segs2)
	}
}

func TestQueryCacheDisabled(t *testing.T) {
	prevDisable := DisableQueryCache
	DisableQueryCache = true
	defer func() { DisableQueryCache = prevDisable }()

	doc := mustParse(t, `<root><a/></root>`)
	matches, err := FindAll(doc.FirstChild, "<a>")
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
}
