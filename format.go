package xmlcore

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// foption is a functional option for the serializer, following the
// teacher's own formatter shape.
type foption func(*formatter)

// FormatOptionIndent overrides the per-level indent string (defaults to
// Config.IndentSpaceSize spaces).
func FormatOptionIndent(s string) foption {
	return func(t *formatter) { t.indent = s }
}

// FormatOptionDeclaration enables/disables re-emitting the XML header.
func FormatOptionDeclaration(b bool) foption {
	return func(t *formatter) { t.declaration = b }
}

// FormatOptionFancy enables/disables pretty printing (Config.PrintFancy):
// when true and the indent is non-empty, nested nodes start on a new line
// indented by their depth. Node kinds are not annotated in the output.
func FormatOptionFancy(b bool) foption {
	return func(t *formatter) { t.fancy = b }
}

// FormatString parses data and re-serializes it with the given options.
func FormatString(data string, options ...foption) (string, error) {
	root, err := ParseString(data)
	if err != nil {
		return "", err
	}
	return Format(root, options...), nil
}

// Format serializes n (a Root or any subtree) back to XML text.
func Format(n *Node, options ...foption) string {
	cfg := GetConfig()
	f := formatter{
		indent:      strings.Repeat(" ", cfg.IndentSpaceSize),
		declaration: true,
		fancy:       cfg.PrintFancy,
		topLevel:    cfg.ShowDocAsTopLevel,
	}
	return f.merge(options...).String(n)
}

type formatter struct {
	indent      string
	declaration bool
	fancy       bool
	topLevel    bool
}

func (t formatter) merge(options ...foption) formatter {
	for _, opt := range options {
		opt(&t)
	}
	return t
}

func (t formatter) String(n *Node) string {
	var buf bytes.Buffer
	if n.Type == RootNode {
		if t.topLevel {
			t.outputChildren(&buf, n, 0, true)
		} else {
			t.outputChildren(&buf, n, 0, false)
		}
	} else {
		t.output(&buf, n, 0, false)
	}
	return buf.String()
}

func calculatePreserveSpaces(n *Node, pastValue bool) bool {
	if n.Type != ElementNode {
		return pastValue
	}
	if v, ok := n.SelectAttr("xml:space"); ok {
		if v == "preserve" {
			return true
		}
		if v == "default" {
			return false
		}
	}
	return pastValue
}

func (t formatter) sanitizedData(n *Node, preserveSpaces bool) string {
	if preserveSpaces {
		return strings.Trim(n.Data, "\n\t")
	}
	return strings.TrimSpace(n.Data)
}

func (t formatter) output(buf *bytes.Buffer, n *Node, level int, preserve bool) {
	preserveSpaces := calculatePreserveSpaces(n, preserve)

	switch n.Type {
	case TextNode:
		if n.IsCDATA {
			buf.WriteString("<![CDATA[")
			buf.WriteString(t.sanitizedData(n, preserveSpaces))
			buf.WriteString("]]>")
			return
		}
		xml.EscapeText(buf, []byte(t.sanitizedData(n, preserveSpaces)))
		return
	case CommentNode:
		buf.WriteString("<!--")
		buf.WriteString(n.Data)
		buf.WriteString("-->")
		return
	case ProcessingInstructionNode:
		buf.WriteString("<?" + n.QName)
		if n.Data != "" {
			buf.WriteString(" " + n.Data)
		}
		buf.WriteString("?>")
		return
	case XMLHeaderNode:
		if !t.declaration {
			return
		}
		buf.WriteString("<?xml")
		for _, k := range n.Attrs.Keys() {
			a, _ := n.Attrs.Get(k)
			fmt.Fprintf(buf, ` %s="%s"`, k, a.Data)
		}
		buf.WriteString("?>")
		return
	case DTDNode:
		buf.WriteString("<!DOCTYPE " + n.Data + ">")
		return
	}

	// ElementNode.
	if t.fancy && len(t.indent) > 0 && level > 0 {
		buf.WriteString("\n")
		buf.WriteString(strings.Repeat(t.indent, level))
	}
	tag := n.QName
	buf.WriteString("<" + tag)
	for _, k := range n.Attrs.Keys() {
		a, _ := n.Attrs.Get(k)
		buf.WriteString(" " + a.QName + `="`)
		xml.EscapeText(buf, []byte(a.Data))
		buf.WriteByte('"')
	}
	if n.FirstChild == nil {
		buf.WriteString("/>")
		return
	}
	buf.WriteString(">")
	t.outputChildren(buf, n, level+1, preserveSpaces)
	if t.fancy && len(t.indent) > 0 && !isInlineText(n.LastChild) {
		buf.WriteString("\n")
		buf.WriteString(strings.Repeat(t.indent, level))
	}
	buf.WriteString("</" + tag + ">")
}

func (t formatter) outputChildren(buf *bytes.Buffer, n *Node, level int, preserve bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		t.output(buf, c, level, preserve)
	}
}

func isInlineText(n *Node) bool {
	if n == nil || n.Type != TextNode {
		return false
	}
	return strings.Trim(n.Data, "\n\t\r") != ""
}
