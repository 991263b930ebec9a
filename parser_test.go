package xmlcore

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, s string) *Node {
	t.Helper()
	doc, err := ParseString(s)
	if err != nil {
		t.Fatalf("ParseString(%q): %v", s, err)
	}
	return doc
}

func TestParseSimpleElement(t *testing.T) {
	doc := mustParse(t, `<root><a>1</a><b>2</b></root>`)
	if doc.FirstChild == nil || doc.FirstChild.Type != ElementNode {
		t.Fatalf("expected root element child")
	}
	root := doc.FirstChild
	if root.QName != "root" {
		t.Fatalf("QName = %q, want root", root.QName)
	}
	var names []string
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		names = append(names, c.QName)
	}
	if strings.Join(names, ",") != "a,b" {
		t.Fatalf("children = %v, want [a b]", names)
	}
}

func TestParseAttributes(t *testing.T) {
	doc := mustParse(t, `<root id="7" name="x"/>`)
	root := doc.FirstChild
	if v, ok := root.SelectAttr("id"); !ok || v != "7" {
		t.Fatalf("id attr = %q, %v", v, ok)
	}
	if v, ok := root.SelectAttr("name"); !ok || v != "x" {
		t.Fatalf("name attr = %q, %v", v, ok)
	}
}

func TestParseComment(t *testing.T) {
	doc := mustParse(t, `<root><!-- hi --></root>`)
	root := doc.FirstChild
	if root.FirstChild == nil || root.FirstChild.Type != CommentNode {
		t.Fatalf("expected a comment child")
	}
	if root.FirstChild.Data != " hi " {
		t.Fatalf("comment data = %q", root.FirstChild.Data)
	}
}

func TestParseCDATA(t *testing.T) {
	doc := mustParse(t, `<root><![CDATA[<raw>]]></root>`)
	root := doc.FirstChild
	if root.FirstChild == nil || !root.FirstChild.IsCDATA {
		t.Fatalf("expected a CDATA text child")
	}
	if root.FirstChild.Data != "<raw>" {
		t.Fatalf("CDATA data = %q", root.FirstChild.Data)
	}
}

func TestParseXMLHeader(t *testing.T) {
	doc := mustParse(t, `<?xml version="1.0" encoding="UTF-8"?><root/>`)
	if doc.FirstChild == nil || doc.FirstChild.Type != XMLHeaderNode {
		t.Fatalf("expected an XML header as the first child")
	}
	if v, ok := doc.FirstChild.Attrs.Get("version"); !ok || v.Data != "1.0" {
		t.Fatalf("version attr missing or wrong: %v %v", v, ok)
	}
}

func TestParseNamespaces(t *testing.T) {
	doc := mustParse(t, `<root xmlns:a="urn:a"><a:child/></root>`)
	root := doc.FirstChild
	child := root.FirstChild
	if child.Prefix != "a" || child.Local != "child" {
		t.Fatalf("child name = %q/%q", child.Prefix, child.Local)
	}
	if child.BoundNamespace == nil || child.BoundNamespace.URI != "urn:a" {
		t.Fatalf("child namespace not resolved: %+v", child.BoundNamespace)
	}
}

func TestParseNamespacedAttributeSelectAttrByQName(t *testing.T) {
	doc := mustParse(t, `<root xmlns:a="urn:a" a:id="7"/>`)
	root := doc.FirstChild
	if v, ok := root.SelectAttr("a:id"); !ok || v != "7" {
		t.Fatalf("a:id attr = %q, %v, want 7 true", v, ok)
	}
}

func TestParseXMLLangSelectAttr(t *testing.T) {
	doc := mustParse(t, `<root xml:lang="en-US"/>`)
	root := doc.FirstChild
	if v, ok := root.SelectAttr("xml:lang"); !ok || v != "en-US" {
		t.Fatalf("xml:lang attr = %q, %v, want en-US true", v, ok)
	}
}

func TestParseDuplicateNamespacedAttributeErrorsUnderUniquePolicy(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.EnsureNSAttributeUnique {
		t.Fatalf("expected EnsureNSAttributeUnique to default to true")
	}
	_, err := ParseStringWithConfig(`<root xmlns:a="urn:a" xmlns:b="urn:a" a:id="1" b:id="2"/>`, cfg)
	if err == nil {
		t.Fatalf("expected an error for two prefixes resolving to the same expanded attribute name")
	}
}

func TestParseUndeclaredPrefixErrors(t *testing.T) {
	_, err := ParseString(`<root><a:child/></root>`)
	if err == nil {
		t.Fatalf("expected an error for an undeclared prefix")
	}
}

func TestParseMismatchedEndTagErrors(t *testing.T) {
	_, err := ParseString(`<root><a></b></root>`)
	if err == nil {
		t.Fatalf("expected an error for a mismatched end tag")
	}
}

func TestParseDuplicateAttributeErrors(t *testing.T) {
	_, err := ParseString(`<root a="1" a="2"/>`)
	if err == nil {
		t.Fatalf("expected an error for a duplicate attribute")
	}
}

func TestParsePostRootTextWarns(t *testing.T) {
	doc := mustParse(t, `<root/>trailing`)
	if len(doc.Warnings) == 0 {
		t.Fatalf("expected a post-root warning")
	}
}

func TestInnerText(t *testing.T) {
	doc := mustParse(t, `<root>a<b>b</b>c</root>`)
	if got := doc.FirstChild.InnerText(); got != "abc" {
		t.Fatalf("InnerText = %q, want abc", got)
	}
}

func TestDropAndDelete(t *testing.T) {
	doc := mustParse(t, `<root><a/><b/></root>`)
	root := doc.FirstChild
	a := root.FirstChild
	b := a.NextSibling

	Drop(a)
	if root.FirstChild != b {
		t.Fatalf("Drop did not unlink a from root")
	}
	if a.Parent != nil {
		t.Fatalf("Drop left a.Parent set")
	}

	Delete(b)
	if root.FirstChild != nil {
		t.Fatalf("Delete did not unlink b from root")
	}
}
