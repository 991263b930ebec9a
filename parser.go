package xmlcore

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
)

var xmlMIMERegex = regexp.MustCompile(`(?i)((application|image|message|model)/((\w|\.|-)+\+?)?|text/)(wb)?xml`)

// parser is the recursive-descent DOM builder (C6) driving a lexer over the
// grammar in spec.md §4.6: an optional XML header, misc items, exactly one
// root element, and optional trailing misc.
type parser struct {
	lex     *lexer
	cfg     Config
	doc     *Node
	tok     token
	havePos bool
}

func newParser(l *lexer, cfg Config) *parser {
	return &parser{lex: l, cfg: cfg}
}

func (p *parser) next() token {
	p.tok = p.lex.Next()
	return p.tok
}

func (p *parser) cur() token {
	if !p.havePos {
		p.next()
		p.havePos = true
	}
	return p.tok
}

func (p *parser) advance() token {
	t := p.cur()
	p.havePos = false
	return t
}

// Parse reads a complete XML document from r using the process-wide
// configuration and returns its Root node.
func Parse(r io.Reader) (*Node, error) {
	return ParseWithConfig(r, GetConfig())
}

// ParseString is like Parse but over an in-memory document; the whole-
// buffer streamer mode is used, so no chunking/compaction ever occurs.
func ParseString(s string) (*Node, error) {
	return ParseStringWithConfig(s, GetConfig())
}

// ParseWithConfig parses r with an explicit Config snapshot rather than the
// process-wide default.
func ParseWithConfig(r io.Reader, cfg Config) (*Node, error) {
	st := newStreamFromReader(r, cfg.ChunkSize)
	return runParser(st, cfg)
}

// ParseStringWithConfig is ParseString with an explicit Config.
func ParseStringWithConfig(s string, cfg Config) (*Node, error) {
	st := newStreamFromBytes([]byte(s))
	return runParser(st, cfg)
}

func runParser(st *stream, cfg Config) (*Node, error) {
	p := newParser(newLexer(st, cfg), cfg)
	return p.parseDocument()
}

// LoadURL fetches and parses the XML document at url, rejecting responses
// whose Content-Type doesn't look like an XML MIME type.
func LoadURL(url string) (*Node, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if !xmlMIMERegex.MatchString(resp.Header.Get("Content-Type")) {
		return nil, fmt.Errorf("xmlcore: invalid XML document (%s)", resp.Header.Get("Content-Type"))
	}
	return ParseWithConfig(resp.Body, GetConfig())
}

func (p *parser) parseDocument() (*Node, error) {
	doc := newRoot(p.cfg.DocName)
	p.doc = doc
	doc.nsScope = rootScope(doc)

	for {
		t := p.cur()
		switch t.kind {
		case tokEOF:
			if doc.RootElement == nil {
				return nil, fmt.Errorf("xmlcore: invalid XML document: missing root element")
			}
			return doc, nil
		case tokText:
			p.advance()
			if strings.TrimSpace(t.text) != "" {
				p.warnPostRoot(doc, "non-whitespace text outside root element")
			}
			if doc.RootElement != nil || p.cfg.PreserveSpace {
				addChild(doc, newTextNode(doc, t.text, false, t.hadEntity))
			}
		case tokLess:
			if err := p.parseMarkup(doc); err != nil {
				return nil, err
			}
		default:
			p.advance()
			return nil, newSyntaxError(ParseError, t, fmt.Sprintf("unexpected %s outside an element", t.kind))
		}
	}
}

// parseMarkup handles one '<...' construct at the document level: the XML
// header, a processing instruction, a comment, a DOCTYPE, or the root
// element (plus any ill-formed extra top-level element, tolerated as a
// warning). The leading '<' has not yet been consumed. Comment/CDATA/
// DOCTYPE arrive as single already-scanned tokens (the lexer consumes
// through their closing delimiter), so they are only ever seen here, right
// after the '<' that introduced them.
func (p *parser) parseMarkup(doc *Node) error {
	p.advance() // '<'
	t := p.cur()
	switch t.kind {
	case tokQuestion:
		return p.parsePI(doc)
	case tokComment:
		p.advance()
		addChild(doc, newCommentNode(doc, t.text))
		return nil
	case tokCDATA:
		p.advance()
		p.warnPostRoot(doc, "CDATA section outside root element")
		addChild(doc, newTextNode(doc, t.text, true, false))
		return nil
	case tokDoctype:
		p.advance()
		addChild(doc, newDTDNode(doc, t.text))
		return nil
	case tokIdent:
		if doc.RootElement != nil {
			return p.parseMisplacedElement(doc)
		}
		el, err := p.parseElement(doc)
		if err != nil {
			return err
		}
		doc.RootElement = el
		return nil
	default:
		return newSyntaxError(ParseError, t, fmt.Sprintf("unexpected %s after '<'", t.kind))
	}
}

// parseMisplacedElement parses (and discards into a warning) a second
// top-level element, which is ill-formed per spec.md §4.1 but tolerated as
// a warning rather than a fatal error, consistent with the lenient policy
// used for post-root text.
func (p *parser) parseMisplacedElement(doc *Node) error {
	el, err := p.parseElement(doc)
	if err != nil {
		return err
	}
	Drop(el)
	doc.Warnings = append(doc.Warnings, "ignored additional top-level element <"+el.QName+">")
	return nil
}

func (p *parser) warnPostRoot(doc *Node, msg string) {
	if doc.RootElement == nil {
		return
	}
	if p.cfg.ShowWarnings {
		doc.Warnings = append(doc.Warnings, msg)
	}
}

func (p *parser) parseQName() (string, error) {
	t := p.advance()
	if t.kind != tokIdent {
		return "", newSyntaxError(ParseError, t, "expected a name")
	}
	name := t.text
	if p.cur().kind == tokColon {
		p.advance()
		t2 := p.advance()
		if t2.kind != tokIdent {
			return "", newSyntaxError(ParseError, t2, "expected a name after ':'")
		}
		name = name + ":" + t2.text
	}
	return name, nil
}

// parsePI parses both the "<?xml ... ?>" header and ordinary processing
// instructions; the cursor sits on '?'.
func (p *parser) parsePI(parent *Node) error {
	p.advance() // '?'
	nameTok := p.advance()
	if nameTok.kind != tokIdent {
		return newSyntaxError(ParseError, nameTok, "expected a target name after '<?'")
	}
	if nameTok.text == "xml" {
		return p.parseXMLHeader(parent)
	}

	var data strings.Builder
	for {
		t := p.cur()
		if t.kind == tokQuestion {
			p.advance()
			g := p.advance()
			if g.kind != tokGreater {
				return newSyntaxError(ParseError, g, "expected '>' to close processing instruction")
			}
			break
		}
		if t.kind == tokEOF {
			return newSyntaxError(LexicalError, t, "unterminated processing instruction")
		}
		p.advance()
		if data.Len() > 0 {
			data.WriteByte(' ')
		}
		data.WriteString(t.text)
	}
	addChild(parent, newPINode(parent, nameTok.text, data.String()))
	return nil
}

func (p *parser) parseXMLHeader(parent *Node) error {
	hdr := newXMLHeaderNode(parent)
	for {
		t := p.cur()
		if t.kind == tokQuestion {
			p.advance()
			g := p.advance()
			if g.kind != tokGreater {
				return newSyntaxError(ParseError, g, "expected '>' to close XML declaration")
			}
			break
		}
		if t.kind != tokIdent {
			return newSyntaxError(ParseError, t, "expected an attribute name in XML declaration")
		}
		qname, err := p.parseQName()
		if err != nil {
			return err
		}
		eq := p.advance()
		if eq.kind != tokEqual {
			return newSyntaxError(ParseError, eq, "expected '=' after XML declaration attribute name")
		}
		val := p.advance()
		if val.kind != tokString {
			return newSyntaxError(ParseError, val, "expected a quoted value")
		}
		hdr.Attrs.Set(qname, newAttributeNode(hdr, qname, val.text))
	}
	addChild(parent, hdr)
	return nil
}

// rawAttr is a collected, not-yet-classified attribute from a start tag.
type rawAttr struct {
	qname     string
	value     string
	hadEntity bool
	tok       token
}

// parseElement parses one element, including its attributes and content,
// with the cursor positioned just after '<' on the tag-name identifier. It
// returns the fully built (and already namespace-resolved) element.
func (p *parser) parseElement(parent *Node) (*Node, error) {
	startTok := p.cur()
	qname, err := p.parseQName()
	if err != nil {
		return nil, err
	}

	var attrs []rawAttr
	for {
		t := p.cur()
		if t.kind == tokIdent {
			at := p.cur()
			aqname, err := p.parseQName()
			if err != nil {
				return nil, err
			}
			eq := p.advance()
			if eq.kind != tokEqual {
				return nil, newSyntaxError(ParseError, eq, "expected '=' after attribute name")
			}
			val := p.advance()
			if val.kind != tokString {
				return nil, newSyntaxError(ParseError, val, "expected a quoted attribute value")
			}
			attrs = append(attrs, rawAttr{qname: aqname, value: val.text, hadEntity: val.hadEntity, tok: at})
			continue
		}
		break
	}

	selfClosing := false
	t := p.advance()
	switch t.kind {
	case tokSlash:
		g := p.advance()
		if g.kind != tokGreater {
			return nil, newSyntaxError(ParseError, g, "expected '>' after '/' in self-closing tag")
		}
		selfClosing = true
	case tokGreater:
	default:
		return nil, newSyntaxError(ParseError, t, fmt.Sprintf("expected '>' or '/>' to close <%s>", qname))
	}

	el := newElementNode(parent, qname)
	el.SelfClosing = selfClosing
	// Link the parent now so the namespace and attribute nodes created below
	// draw their DocPos from the document counter; addChild sets it again.
	el.Parent = parent

	scope, err := p.bindNamespaces(parent, el, attrs)
	if err != nil {
		return nil, err
	}
	el.nsScope = scope

	if err := p.resolveElementName(el, startTok); err != nil {
		return nil, err
	}
	if err := p.bindAttributes(el, attrs); err != nil {
		return nil, err
	}

	addChild(parent, el)

	if selfClosing {
		return el, nil
	}

	if err := p.parseContent(el, qname, startTok); err != nil {
		return nil, err
	}
	return el, nil
}

// bindNamespaces pushes a new namespace scope for el (child of parent's),
// processes every xmlns/xmlns:prefix attribute in attrs, and returns the
// new scope. It enforces the reserved-URI and xmlns-as-prefix rules from
// spec.md §4.5.
func (p *parser) bindNamespaces(parent, el *Node, attrs []rawAttr) (*nsScope, error) {
	scope := newNSScope(parent.nsScope)
	for _, a := range attrs {
		switch {
		case a.qname == "xmlns":
			if !p.cfg.AllowDefaultNamespace {
				continue
			}
			if a.value == XMLNamespaceURI || a.value == XMLNSNamespaceURI {
				return nil, newSyntaxError(ParseError, a.tok, "reserved namespace URI cannot be bound as the default namespace")
			}
			ns := newNamespaceNode(el, "", a.value, true, false)
			scope.declare("", ns)
			el.Namespaces = append(el.Namespaces, ns)
		case strings.HasPrefix(a.qname, "xmlns:"):
			prefix := a.qname[len("xmlns:"):]
			if prefix == "xmlns" {
				return nil, newSyntaxError(ParseError, a.tok, "'xmlns' cannot be redeclared as a prefix")
			}
			if a.value == "" {
				return nil, newSyntaxError(ParseError, a.tok, "prefixed namespace URI cannot be empty")
			}
			if a.value == XMLNamespaceURI && prefix != "xml" {
				return nil, newSyntaxError(ParseError, a.tok, "reserved namespace URI cannot be bound to a prefix other than 'xml'")
			}
			if a.value == XMLNSNamespaceURI {
				return nil, newSyntaxError(ParseError, a.tok, "the xmlns namespace URI cannot be declared explicitly")
			}
			ns := newNamespaceNode(el, prefix, a.value, false, false)
			if !scope.declare(prefix, ns) {
				return nil, newSyntaxError(ParseError, a.tok, fmt.Sprintf("duplicate namespace declaration for prefix %q", prefix))
			}
			el.Namespaces = append(el.Namespaces, ns)
		}
	}
	return scope, nil
}

func (p *parser) resolveElementName(el *Node, startTok token) error {
	if el.Prefix == "" {
		if ns := el.nsScope.lookup(""); ns != nil {
			el.BoundNamespace = ns
		}
		return nil
	}
	if el.Prefix == "xmlns" {
		return newSyntaxError(ParseError, startTok, "'xmlns' cannot be used as an element prefix")
	}
	ns := el.nsScope.lookup(el.Prefix)
	if ns == nil {
		return newSyntaxError(ParseError, startTok, fmt.Sprintf("undeclared namespace prefix %q", el.Prefix))
	}
	el.BoundNamespace = ns
	return nil
}

func (p *parser) bindAttributes(el *Node, attrs []rawAttr) error {
	var expandedSeen map[string]bool
	if p.cfg.EnsureNSAttributeUnique {
		expandedSeen = make(map[string]bool, len(attrs))
	}
	for _, a := range attrs {
		if a.qname == "xmlns" || strings.HasPrefix(a.qname, "xmlns:") {
			continue
		}
		attr := newAttributeNode(el, a.qname, a.value)
		attr.HasEntity = a.hadEntity
		if attr.Prefix != "" {
			if attr.Prefix == "xmlns" {
				return newSyntaxError(ParseError, a.tok, "'xmlns' cannot be used as an attribute prefix")
			}
			ns := el.nsScope.lookup(attr.Prefix)
			if ns == nil {
				return newSyntaxError(ParseError, a.tok, fmt.Sprintf("undeclared namespace prefix %q", attr.Prefix))
			}
			attr.BoundNamespace = ns
		}
		if expandedSeen != nil && attr.BoundNamespace != nil {
			expanded := attr.BoundNamespace.URI + "|" + attr.Local
			if expandedSeen[expanded] {
				return newSyntaxError(ParseError, a.tok, fmt.Sprintf("duplicate attribute %q", a.qname))
			}
			expandedSeen[expanded] = true
		}
		if _, ok := el.Attrs.Get(a.qname); ok {
			return newSyntaxError(ParseError, a.tok, fmt.Sprintf("duplicate attribute %q", a.qname))
		}
		el.Attrs.Set(a.qname, attr)
	}
	return nil
}

// parseContent parses child nodes until the matching end tag for qname,
// verifying tag balance (spec.md §4.6 invariant: every start tag has a
// matching end tag with the identical qualified name).
func (p *parser) parseContent(el *Node, qname string, startTok token) error {
	for {
		t := p.cur()
		switch t.kind {
		case tokEOF:
			return newSyntaxError(ParseError, startTok, fmt.Sprintf("unclosed element <%s>", qname))
		case tokText:
			p.advance()
			addChild(el, newTextNode(el, t.text, false, t.hadEntity))
		case tokLess:
			p.advance()
			nt := p.cur()
			switch nt.kind {
			case tokSlash:
				p.advance()
				endName, err := p.parseQName()
				if err != nil {
					return err
				}
				g := p.advance()
				if g.kind != tokGreater {
					return newSyntaxError(ParseError, g, "expected '>' to close end tag")
				}
				if endName != qname {
					return newSyntaxError(ParseError, t, fmt.Sprintf("mismatched end tag: expected </%s>, got </%s>", qname, endName))
				}
				return nil
			case tokQuestion:
				if err := p.parsePI(el); err != nil {
					return err
				}
			case tokComment:
				p.advance()
				addChild(el, newCommentNode(el, nt.text))
			case tokCDATA:
				p.advance()
				addChild(el, newTextNode(el, nt.text, true, false))
			case tokIdent:
				if _, err := p.parseElement(el); err != nil {
					return err
				}
			default:
				return newSyntaxError(ParseError, nt, fmt.Sprintf("unexpected %s after '<'", nt.kind))
			}
		default:
			p.advance()
			return newSyntaxError(ParseError, t, fmt.Sprintf("unexpected %s inside <%s>", t.kind, qname))
		}
	}
}
