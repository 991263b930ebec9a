package xmlcore

import (
	"fmt"
	"io"
	"strings"
)

// EventKind enumerates the pull events emitted by Reader (spec.md §4.7).
type EventKind int

const (
	EventBeginDocument EventKind = iota
	EventXMLHeader
	EventDTD
	EventComment
	EventProcessingInstruction
	EventText
	EventCDATA
	EventBeginElement
	EventNamespace
	EventAttribute
	EventEndElement
	EventEndDocument
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventBeginDocument:
		return "BeginDocument"
	case EventXMLHeader:
		return "XMLHeader"
	case EventDTD:
		return "DTD"
	case EventComment:
		return "Comment"
	case EventProcessingInstruction:
		return "ProcessingInstruction"
	case EventText:
		return "Text"
	case EventCDATA:
		return "CDATA"
	case EventBeginElement:
		return "BeginElement"
	case EventNamespace:
		return "Namespace"
	case EventAttribute:
		return "Attribute"
	case EventEndElement:
		return "EndElement"
	case EventEndDocument:
		return "EndDocument"
	case EventError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Event is one unit materialized by the reader. Node is populated for
// every kind that carries node data (everything except BeginDocument,
// EndDocument, and Error); for Error, Err holds the diagnostic.
type Event struct {
	Kind EventKind
	Node *Node
	Err  error
}

// openElem tracks one element on the reader's open-tag stack, enough to
// validate end-tag balance and pop its namespace scope.
type openElem struct {
	qname string
	scope *nsScope
}

// Reader is the pull-based SAX-style event reader (C7): it drives the same
// lexer primitives as the tree parser but never builds a persistent tree.
// Node values it hands out (elements, attributes, namespaces) are created
// fresh per event and not linked into any parent/child chain, matching
// spec.md §4.7's "as_* getters... allocate...the caller owns" contract.
type Reader struct {
	lex    *lexer
	cfg    Config
	anchor *Node // only used for its document-position counter and as the namespace-scope root
	open   []openElem

	queue   []Event
	current Event
	haveCur bool
	done    bool
	errored bool
}

// NewReader opens a streaming event reader over r.
func NewReader(r io.Reader) *Reader { return NewReaderWithConfig(r, GetConfig()) }

// NewReaderWithConfig is NewReader with an explicit Config.
func NewReaderWithConfig(r io.Reader, cfg Config) *Reader {
	st := newStreamFromReader(r, cfg.ChunkSize)
	anchor := newRoot(cfg.DocName)
	anchor.nsScope = rootScope(anchor)
	rd := &Reader{lex: newLexer(st, cfg), cfg: cfg, anchor: anchor}
	rd.queue = append(rd.queue, Event{Kind: EventBeginDocument})
	return rd
}

// Close releases the reader's streaming buffer early, the only form of
// cancellation a caller has (spec.md §5).
func (r *Reader) Close() error {
	r.lex = nil
	r.done = true
	return nil
}

func (r *Reader) scope() *nsScope {
	if len(r.open) == 0 {
		return r.anchor.nsScope
	}
	return r.open[len(r.open)-1].scope
}

func (r *Reader) parent() *Node {
	if len(r.open) == 0 {
		return r.anchor
	}
	// The parent is only used for document-position bumping, so any node
	// sharing the anchor's document works; we reuse the anchor itself.
	return r.anchor
}

// HasEvent reports whether a further event is available without consuming
// the current one.
func (r *Reader) HasEvent() bool {
	if r.haveCur {
		return true
	}
	return r.fill()
}

// PeekEvent returns the current event without consuming it.
func (r *Reader) PeekEvent() (Event, bool) {
	if !r.HasEvent() {
		return Event{}, false
	}
	return r.current, true
}

// GetEvent consumes and returns the current event.
func (r *Reader) GetEvent() (Event, bool) {
	if !r.HasEvent() {
		return Event{}, false
	}
	ev := r.current
	r.haveCur = false
	return ev, true
}

// fill ensures r.current holds an event, pulling more of the document
// through the lexer/micro-parser if the queue has run dry.
func (r *Reader) fill() bool {
	if r.haveCur {
		return true
	}
	for len(r.queue) == 0 {
		if r.done || r.errored {
			return false
		}
		r.step()
	}
	r.current = r.queue[0]
	r.queue = r.queue[1:]
	r.haveCur = true
	if r.current.Kind == EventEndDocument {
		r.done = true
	}
	if r.current.Kind == EventError {
		r.errored = true
	}
	return true
}

func (r *Reader) emit(ev Event) { r.queue = append(r.queue, ev) }

func (r *Reader) fail(err error) {
	r.emit(Event{Kind: EventError, Err: err})
}

// step advances the underlying lexer by one syntactic unit and pushes
// whatever events it produces onto the queue.
func (r *Reader) step() {
	t := r.lex.Next()
	switch t.kind {
	case tokEOF:
		if len(r.open) > 0 {
			r.fail(fmt.Errorf("xmlcore: unclosed element <%s>", r.open[len(r.open)-1].qname))
			return
		}
		r.emit(Event{Kind: EventEndDocument})
	case tokText:
		r.emit(Event{Kind: EventText, Node: newTextNode(r.parent(), t.text, false, t.hadEntity)})
	case tokLess:
		r.stepMarkup()
	default:
		r.fail(newSyntaxError(ParseError, t, fmt.Sprintf("unexpected %s", t.kind)))
	}
}

func (r *Reader) stepMarkup() {
	t := r.lex.Next()
	switch t.kind {
	case tokComment:
		r.emit(Event{Kind: EventComment, Node: newCommentNode(r.parent(), t.text)})
	case tokCDATA:
		r.emit(Event{Kind: EventCDATA, Node: newTextNode(r.parent(), t.text, true, false)})
	case tokDoctype:
		r.emit(Event{Kind: EventDTD, Node: newDTDNode(r.parent(), t.text)})
	case tokQuestion:
		r.stepPI()
	case tokSlash:
		r.stepEndTag()
	case tokIdent:
		r.stepStartTag(t)
	default:
		r.fail(newSyntaxError(ParseError, t, fmt.Sprintf("unexpected %s after '<'", t.kind)))
	}
}

func (r *Reader) stepPI() {
	nameTok := r.lex.Next()
	if nameTok.kind != tokIdent {
		r.fail(newSyntaxError(ParseError, nameTok, "expected a target name after '<?'"))
		return
	}
	var data strings.Builder
	for {
		t := r.lex.Next()
		if t.kind == tokQuestion {
			g := r.lex.Next()
			if g.kind != tokGreater {
				r.fail(newSyntaxError(ParseError, g, "expected '>' to close processing instruction"))
				return
			}
			break
		}
		if t.kind == tokEOF {
			r.fail(newSyntaxError(LexicalError, t, "unterminated processing instruction"))
			return
		}
		if data.Len() > 0 {
			data.WriteByte(' ')
		}
		data.WriteString(t.text)
	}
	if nameTok.text == "xml" {
		r.emit(Event{Kind: EventXMLHeader, Node: newPINode(r.parent(), "xml", data.String())})
		return
	}
	r.emit(Event{Kind: EventProcessingInstruction, Node: newPINode(r.parent(), nameTok.text, data.String())})
}

func (r *Reader) readQName(first token) (string, error) {
	if first.kind != tokIdent {
		return "", newSyntaxError(ParseError, first, "expected a name")
	}
	name := first.text
	peekStream := r.lex.s
	if b, ok := peekStream.current(); ok && b == ':' {
		r.lex.Next() // consume ':'
		t2 := r.lex.Next()
		if t2.kind != tokIdent {
			return "", newSyntaxError(ParseError, t2, "expected a name after ':'")
		}
		name = name + ":" + t2.text
	}
	return name, nil
}

func (r *Reader) stepEndTag() {
	nameTok := r.lex.Next()
	endName, err := r.readQName(nameTok)
	if err != nil {
		r.fail(err)
		return
	}
	g := r.lex.Next()
	if g.kind != tokGreater {
		r.fail(newSyntaxError(ParseError, g, "expected '>' to close end tag"))
		return
	}
	if len(r.open) == 0 {
		r.fail(fmt.Errorf("xmlcore: end tag </%s> with no matching start tag", endName))
		return
	}
	top := r.open[len(r.open)-1]
	if top.qname != endName {
		r.fail(fmt.Errorf("xmlcore: mismatched end tag: expected </%s>, got </%s>", top.qname, endName))
		return
	}
	r.open = r.open[:len(r.open)-1]
	r.emit(Event{Kind: EventEndElement, Node: newElementNode(r.anchor, endName)})
}

func (r *Reader) stepStartTag(nameTok token) {
	qname, err := r.readQName(nameTok)
	if err != nil {
		r.fail(err)
		return
	}

	var attrs []rawAttr
	for {
		save := r.lex.Next()
		if save.kind != tokIdent {
			// not an attribute name: this token is the tag terminator
			r.finishStartTag(qname, attrs, save)
			return
		}
		aqname, err := r.readQName(save)
		if err != nil {
			r.fail(err)
			return
		}
		eq := r.lex.Next()
		if eq.kind != tokEqual {
			r.fail(newSyntaxError(ParseError, eq, "expected '=' after attribute name"))
			return
		}
		val := r.lex.Next()
		if val.kind != tokString {
			r.fail(newSyntaxError(ParseError, val, "expected a quoted attribute value"))
			return
		}
		attrs = append(attrs, rawAttr{qname: aqname, value: val.text, hadEntity: val.hadEntity, tok: save})
	}
}

// finishStartTag is reached once the attribute-scanning loop has already
// consumed the terminator token (tokSlash or tokGreater).
func (r *Reader) finishStartTag(qname string, attrs []rawAttr, term token) {
	selfClosing := false
	switch term.kind {
	case tokSlash:
		g := r.lex.Next()
		if g.kind != tokGreater {
			r.fail(newSyntaxError(ParseError, g, "expected '>' after '/' in self-closing tag"))
			return
		}
		selfClosing = true
	case tokGreater:
	default:
		r.fail(newSyntaxError(ParseError, term, fmt.Sprintf("expected '>' or '/>' to close <%s>", qname)))
		return
	}

	el := newElementNode(r.anchor, qname)
	el.SelfClosing = selfClosing
	scope := newNSScope(r.scope())

	var nsEvents, attrEvents []Event
	for _, a := range attrs {
		switch {
		case a.qname == "xmlns":
			if !r.cfg.AllowDefaultNamespace {
				continue
			}
			ns := newNamespaceNode(el, "", a.value, true, false)
			scope.declare("", ns)
			el.Namespaces = append(el.Namespaces, ns)
			nsEvents = append(nsEvents, Event{Kind: EventNamespace, Node: ns})
		case strings.HasPrefix(a.qname, "xmlns:"):
			prefix := a.qname[len("xmlns:"):]
			ns := newNamespaceNode(el, prefix, a.value, false, false)
			scope.declare(prefix, ns)
			el.Namespaces = append(el.Namespaces, ns)
			nsEvents = append(nsEvents, Event{Kind: EventNamespace, Node: ns})
		}
	}
	if el.Prefix != "" {
		if ns := scope.lookup(el.Prefix); ns != nil {
			el.BoundNamespace = ns
		} else {
			r.fail(fmt.Errorf("xmlcore: undeclared namespace prefix %q", el.Prefix))
			return
		}
	} else if ns := scope.lookup(""); ns != nil {
		el.BoundNamespace = ns
	}
	var expandedSeen map[string]bool
	if r.cfg.EnsureNSAttributeUnique {
		expandedSeen = make(map[string]bool, len(attrs))
	}
	for _, a := range attrs {
		if a.qname == "xmlns" || strings.HasPrefix(a.qname, "xmlns:") {
			continue
		}
		attr := newAttributeNode(el, a.qname, a.value)
		attr.HasEntity = a.hadEntity
		if attr.Prefix != "" {
			ns := scope.lookup(attr.Prefix)
			if ns == nil {
				r.fail(fmt.Errorf("xmlcore: undeclared namespace prefix %q", attr.Prefix))
				return
			}
			attr.BoundNamespace = ns
		}
		if expandedSeen != nil && attr.BoundNamespace != nil {
			expanded := attr.BoundNamespace.URI + "|" + attr.Local
			if expandedSeen[expanded] {
				r.fail(fmt.Errorf("xmlcore: duplicate attribute %q", a.qname))
				return
			}
			expandedSeen[expanded] = true
		}
		if _, ok := el.Attrs.Get(a.qname); ok {
			r.fail(fmt.Errorf("xmlcore: duplicate attribute %q", a.qname))
			return
		}
		el.Attrs.Set(a.qname, attr)
		attrEvents = append(attrEvents, Event{Kind: EventAttribute, Node: attr})
	}

	r.emit(Event{Kind: EventBeginElement, Node: el})
	for _, e := range nsEvents {
		r.emit(e)
	}
	for _, e := range attrEvents {
		r.emit(e)
	}

	if selfClosing {
		r.emit(Event{Kind: EventEndElement, Node: el})
		return
	}
	r.open = append(r.open, openElem{qname: qname, scope: scope})
}
