package xmlcore

import (
	"encoding/xml"
	"strings"

	"github.com/antflow/xmlcore/internal/buffer"
	"github.com/antflow/xmlcore/internal/omap"
)

// NodeType is the sum-type discriminant for Node (spec.md §3).
type NodeType int

const (
	RootNode NodeType = iota
	ElementNode
	TextNode
	CommentNode
	AttributeNode
	NamespaceNode
	ProcessingInstructionNode
	XMLHeaderNode
	DTDNode
)

func (t NodeType) String() string {
	switch t {
	case RootNode:
		return "Root"
	case ElementNode:
		return "Element"
	case TextNode:
		return "Text"
	case CommentNode:
		return "Comment"
	case AttributeNode:
		return "Attribute"
	case NamespaceNode:
		return "Namespace"
	case ProcessingInstructionNode:
		return "ProcessingInstruction"
	case XMLHeaderNode:
		return "XMLHeader"
	case DTDNode:
		return "DTD"
	default:
		return "Unknown"
	}
}

// Node is the single sum-typed tree node used for every variant in
// spec.md §3. Which fields are meaningful depends on Type; this mirrors
// the teacher's single-struct-with-discriminant approach rather than one
// Go type per variant, since the tree walkers (serialization, InnerText,
// the XPath evaluator's axis steps) are naturally written once over a
// shared parent/sibling/child shape.
type Node struct {
	Type NodeType

	Parent, FirstChild, LastChild, PrevSibling, NextSibling *Node

	// Name composite: QName is "prefix:local" or "local"; Prefix/Local are
	// derived once at construction time.
	QName  string
	Prefix string
	Local  string

	// Text/Comment/DTD value, or a processing-instruction's content.
	Data      string
	IsCDATA   bool
	HasEntity bool

	// Element / XMLHeader attribute map, keyed by qualified-name string.
	Attrs *omap.Map[*Node]
	// Element declared-namespace list, in declaration order.
	Namespaces []*Node
	// BoundNamespace is the namespace this element or attribute resolves
	// to, or nil. Not owned here: owned by whichever ancestor scope (or
	// the document) declared it.
	BoundNamespace *Node

	// Namespace-node fields.
	URI       string
	IsDefault bool
	IsGlobal  bool

	SelfClosing bool
	// Summaries of the element's content shape, set by addChild rather than
	// recomputed by a child-list scan. Drop and Delete do not clear them.
	HasElementChild bool
	HasTextChild    bool
	HasComment      bool

	// Root-only fields.
	DocName          string
	RootElement      *Node
	GlobalNamespaces []*Node
	WellFormed       bool
	RootWrapped      bool
	Warnings         []string
	nextDocPos       int

	// nsScope is the namespace scope chain active at this element (or, for
	// the root, the outermost scope pre-populated with the two reserved
	// globals). Only meaningful on RootNode and ElementNode.
	nsScope *nsScope

	// DocPos orders every node of a document for node-set sorting and
	// document-order comparisons (spec.md C8).
	DocPos int
}

func (n *Node) document() *Node {
	d := n
	for d.Parent != nil {
		d = d.Parent
	}
	return d
}

// Document returns the RootNode of the document n belongs to, walking
// Parent pointers to the top. Exported for callers outside the package
// (the xpath evaluator resolves "/" this way).
func (n *Node) Document() *Node { return n.document() }

func (n *Node) nextPos() int {
	d := n.document()
	d.nextDocPos++
	return d.nextDocPos
}

func newRoot(docName string) *Node {
	return &Node{Type: RootNode, DocName: docName, WellFormed: true}
}

func splitQName(qname string) (prefix, local string) {
	if i := strings.IndexByte(qname, ':'); i > 0 {
		return qname[:i], qname[i+1:]
	}
	return "", qname
}

func newElementNode(parent *Node, qname string) *Node {
	prefix, local := splitQName(qname)
	n := &Node{Type: ElementNode, QName: qname, Prefix: prefix, Local: local, Attrs: omap.New[*Node]()}
	n.DocPos = parent.nextPos()
	return n
}

func newTextNode(parent *Node, data string, isCDATA, hasEntity bool) *Node {
	n := &Node{Type: TextNode, Data: data, IsCDATA: isCDATA, HasEntity: hasEntity}
	n.DocPos = parent.nextPos()
	return n
}

func newCommentNode(parent *Node, data string) *Node {
	n := &Node{Type: CommentNode, Data: data}
	n.DocPos = parent.nextPos()
	return n
}

func newPINode(parent *Node, target, value string) *Node {
	n := &Node{Type: ProcessingInstructionNode, QName: target, Local: target, Data: value}
	n.DocPos = parent.nextPos()
	return n
}

func newAttributeNode(parent *Node, qname, value string) *Node {
	prefix, local := splitQName(qname)
	n := &Node{Type: AttributeNode, QName: qname, Prefix: prefix, Local: local, Data: value, Parent: parent}
	n.DocPos = parent.nextPos()
	return n
}

// newNamespaceNode builds a standalone Namespace node scoped to parent
// (an element, or the document for the two reserved globals). It is not
// linked into the child list via addChild: namespace nodes live in
// Node.Namespaces / Node.GlobalNamespaces instead.
func newNamespaceNode(parent *Node, prefix, uri string, isDefault, isGlobal bool) *Node {
	n := &Node{Type: NamespaceNode, Prefix: prefix, URI: uri, IsDefault: isDefault, IsGlobal: isGlobal, Parent: parent}
	n.DocPos = parent.nextPos()
	return n
}

func newXMLHeaderNode(parent *Node) *Node {
	n := &Node{Type: XMLHeaderNode, Attrs: omap.New[*Node]()}
	n.DocPos = parent.nextPos()
	return n
}

func newDTDNode(parent *Node, data string) *Node {
	n := &Node{Type: DTDNode, Data: data}
	n.DocPos = parent.nextPos()
	return n
}

// addChild links n as the last child of parent.
func addChild(parent, n *Node) {
	n.Parent = parent
	if parent.FirstChild == nil {
		parent.FirstChild = n
	} else {
		parent.LastChild.NextSibling = n
		n.PrevSibling = parent.LastChild
	}
	parent.LastChild = n
	switch n.Type {
	case ElementNode:
		parent.HasElementChild = true
	case TextNode:
		parent.HasTextChild = true
	case CommentNode:
		parent.HasComment = true
	}
}

// Drop unlinks n (and its subtree) from the tree and hands ownership to
// the caller; the rest of the document is otherwise untouched. A no-op on
// a node with no parent (the root, or an already-dropped node).
func Drop(n *Node) *Node {
	if n.Parent == nil {
		return n
	}
	p := n.Parent
	if p.FirstChild == n {
		p.FirstChild = n.NextSibling
	}
	if p.LastChild == n {
		p.LastChild = n.PrevSibling
	}
	if n.PrevSibling != nil {
		n.PrevSibling.NextSibling = n.NextSibling
	}
	if n.NextSibling != nil {
		n.NextSibling.PrevSibling = n.PrevSibling
	}
	n.Parent, n.PrevSibling, n.NextSibling = nil, nil, nil
	return n
}

// Delete unlinks n like Drop, then recursively clears every link in its
// subtree so it can't be walked or re-attached afterward (spec.md §9:
// Drop detaches, Delete destroys).
func Delete(n *Node) {
	Drop(n)
	invalidateSubtree(n)
}

func invalidateSubtree(n *Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		invalidateSubtree(c)
		c = next
	}
	n.Parent, n.FirstChild, n.LastChild, n.PrevSibling, n.NextSibling = nil, nil, nil, nil, nil
}

// InnerText concatenates descendant text/CDATA content in document order.
func (n *Node) InnerText() string {
	var sb strings.Builder
	var walk func(*Node)
	walk = func(n *Node) {
		switch n.Type {
		case TextNode:
			sb.WriteString(n.Data)
		case CommentNode, ProcessingInstructionNode:
			// excluded from string value
		default:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
	}
	walk(n)
	return sb.String()
}

// StringValue implements the XPath string-value coercion for every node
// kind (spec.md §4.11).
func (n *Node) StringValue() string {
	switch n.Type {
	case RootNode, ElementNode:
		return n.InnerText()
	case TextNode, CommentNode, ProcessingInstructionNode, AttributeNode:
		return n.Data
	case NamespaceNode:
		return n.URI
	default:
		return ""
	}
}

// Number returns the IEEE-754 double value of the node's string value, or
// NaN if the string value isn't numeric.
func (n *Node) Number() float64 { return buffer.ToNumber(n.StringValue()) }

// SelectAttr returns the value of the attribute with the given qualified
// name, and whether it exists.
func (n *Node) SelectAttr(qname string) (string, bool) {
	if n.Attrs == nil {
		return "", false
	}
	a, ok := n.Attrs.Get(qname)
	if !ok {
		return "", false
	}
	return a.Data, true
}

// AttrList returns the element's attributes as xml.Attr values in
// insertion order, for callers that want the standard library's
// attribute shape rather than walking Attrs directly.
func (n *Node) AttrList() []xml.Attr {
	if n.Attrs == nil {
		return nil
	}
	keys := n.Attrs.Keys()
	out := make([]xml.Attr, 0, len(keys))
	for _, k := range keys {
		a, _ := n.Attrs.Get(k)
		space := ""
		if a.BoundNamespace != nil {
			space = a.BoundNamespace.URI
		}
		out = append(out, xml.Attr{Name: xml.Name{Space: space, Local: a.Local}, Value: a.Data})
	}
	return out
}

// ComparePosition orders two nodes of the same document by document
// position: negative if a precedes b, 0 if equal, positive otherwise.
func ComparePosition(a, b *Node) int {
	switch {
	case a.DocPos < b.DocPos:
		return -1
	case a.DocPos > b.DocPos:
		return 1
	default:
		return 0
	}
}
