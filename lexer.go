package xmlcore

import (
	"fmt"
	"strconv"

	"github.com/antflow/xmlcore/internal/buffer"
)

// lexer is the hand-written scanner (C4). It drives a stream (C3) and
// produces a lazy sequence of tagged tokens. Content-mode (vflag) tracks
// whether the next call to Next must read a text run rather than a
// tag-structure token, matching the "after '>' the lexer enters content
// mode" rule in spec.md §4.4.
type lexer struct {
	s      *stream
	vflag  bool
	line   int
	column int
	cfg    Config
}

func newLexer(s *stream, cfg Config) *lexer {
	l := &lexer{s: s, line: 1, column: 1, cfg: cfg}
	l.skipBOM()
	return l
}

// skipBOM consumes a UTF-8 byte-order-mark at the very start of input,
// without producing any token for it.
func (l *lexer) skipBOM() {
	b0, ok0 := l.s.current()
	if !ok0 || b0 != 0xEF {
		return
	}
	b1, ok1 := l.s.byteAt(1)
	b2, ok2 := l.s.byteAt(2)
	if ok1 && ok2 && b1 == 0xBB && b2 == 0xBF {
		l.adv()
		l.adv()
		l.adv()
	}
}

func (l *lexer) adv() byte {
	b, _ := l.s.current()
	l.s.advance()
	if b == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return b
}

func isNameStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' || b >= 0x80
}

func isNameChar(b byte) bool {
	return isNameStart(b) || (b >= '0' && b <= '9') || b == '-' || b == '.'
}

func isTagSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func errTok(line, col int, format string, args ...interface{}) token {
	return token{kind: tokError, text: fmt.Sprintf(format, args...), line: line, column: col}
}

// Next returns the next token, switching into a text-run read whenever the
// previous token was '>' and content mode is pending.
func (l *lexer) Next() token {
	if l.vflag {
		l.vflag = false
		if tok, ok := l.lexContent(); ok {
			return tok
		}
	}
	for {
		b, ok := l.s.current()
		if !ok {
			return token{kind: tokEOF, line: l.line, column: l.column}
		}
		if !isTagSpace(b) {
			break
		}
		l.adv()
	}

	line, col := l.line, l.column
	b, ok := l.s.current()
	if !ok {
		return token{kind: tokEOF, line: line, column: col}
	}

	switch {
	case b == '<':
		l.adv()
		return token{kind: tokLess, text: "<", line: line, column: col}
	case b == '>':
		l.adv()
		l.vflag = true
		return token{kind: tokGreater, text: ">", line: line, column: col}
	case b == '/':
		l.adv()
		return token{kind: tokSlash, text: "/", line: line, column: col}
	case b == '?':
		l.adv()
		return token{kind: tokQuestion, text: "?", line: line, column: col}
	case b == '=':
		l.adv()
		return token{kind: tokEqual, text: "=", line: line, column: col}
	case b == ':':
		l.adv()
		return token{kind: tokColon, text: ":", line: line, column: col}
	case b == '\'' || b == '"':
		return l.lexString(b, line, col)
	case b == '!':
		return l.lexBang(line, col)
	case isNameStart(b):
		return l.lexIdent(line, col)
	default:
		l.adv()
		return errTok(line, col, "unexpected character %q", rune(b))
	}
}

func (l *lexer) lexIdent(line, col int) token {
	buf := buffer.New()
	for {
		b, ok := l.s.current()
		if !ok || !isNameChar(b) {
			break
		}
		buf.AppendByte(b)
		l.adv()
	}
	return token{kind: tokIdent, text: buf.String(), line: line, column: col}
}

func (l *lexer) lexString(quote byte, line, col int) token {
	l.adv() // opening quote
	buf := buffer.New()
	for {
		b, ok := l.s.current()
		if !ok {
			return errTok(line, col, "unterminated string literal")
		}
		if b == quote {
			l.adv()
			break
		}
		buf.AppendByte(b)
		l.adv()
	}
	text, _ := decodeEntities(buf.String())
	return token{kind: tokString, text: text, line: line, column: col}
}

// lexContent reads a text run in content mode: raw bytes up to the next '<'
// or EOF, verbatim — including any literal '>' that starts the run, which
// is exactly what handles `<tag>>foo</tag>` lexing as text rather than as
// a stray operator. When preserve_space is off, a run consisting only of
// whitespace is suppressed entirely (returns ok=false so Next falls through
// to tag-mode tokenizing of the following '<'). An empty run (a '<' right
// after the previous '>') likewise yields no token.
func (l *lexer) lexContent() (token, bool) {
	line, col := l.line, l.column
	buf := buffer.New()
	for {
		b, ok := l.s.current()
		if !ok || b == '<' {
			break
		}
		buf.AppendByte(b)
		l.adv()
	}
	raw := buf.String()
	if raw == "" {
		return token{}, false
	}
	if !l.cfg.PreserveSpace && isAllWhitespace(raw) {
		return token{}, false
	}
	text, hadEntity := decodeEntities(raw)
	return token{kind: tokText, text: text, line: line, column: col, hadEntity: hadEntity}, true
}

func isAllWhitespace(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isTagSpace(s[i]) {
			return false
		}
	}
	return true
}

func (l *lexer) peekString(n int) string {
	buf := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		b, ok := l.s.byteAt(i)
		if !ok {
			break
		}
		buf = append(buf, b)
	}
	return string(buf)
}

// lexBang handles the three '<!...' constructs: comments, CDATA sections,
// and the DOCTYPE declaration. It is reached with the cursor still on '!'.
func (l *lexer) lexBang(line, col int) token {
	l.adv() // '!'
	switch {
	case l.peekString(2) == "--":
		l.adv()
		l.adv()
		return l.lexComment(line, col)
	case l.peekString(7) == "[CDATA[":
		for i := 0; i < 7; i++ {
			l.adv()
		}
		return l.lexCDATA(line, col)
	case l.peekString(7) == "DOCTYPE":
		for i := 0; i < 7; i++ {
			l.adv()
		}
		return l.lexDoctype(line, col)
	default:
		return errTok(line, col, "malformed markup declaration after '<!'")
	}
}

// lexComment scans to the terminating "-->"; a bare "--" not immediately
// followed by '>' is a lexical error, per the XML comment grammar.
func (l *lexer) lexComment(line, col int) token {
	buf := buffer.New()
	for {
		b, ok := l.s.current()
		if !ok {
			return errTok(line, col, "unterminated comment")
		}
		if b == '-' {
			if l.peekString(2) == "--" {
				l.adv()
				l.adv()
				if nb, ok := l.s.current(); ok && nb == '>' {
					l.adv()
					break
				}
				return errTok(line, col, "'--' is not allowed inside a comment")
			}
		}
		buf.AppendByte(b)
		l.adv()
	}
	if !l.cfg.PreserveComment {
		return l.Next()
	}
	return token{kind: tokComment, text: buf.String(), line: line, column: col}
}

// lexCDATA scans to the terminating "]]>", tolerating a lone ']' that isn't
// part of that terminator.
func (l *lexer) lexCDATA(line, col int) token {
	buf := buffer.New()
	for {
		b, ok := l.s.current()
		if !ok {
			return errTok(line, col, "unterminated CDATA section")
		}
		if b == ']' && l.peekString(3) == "]]>" {
			l.adv()
			l.adv()
			l.adv()
			break
		}
		buf.AppendByte(b)
		l.adv()
	}
	if !l.cfg.PreserveCDATA {
		return l.Next()
	}
	return token{kind: tokCDATA, text: buf.String(), line: line, column: col}
}

// lexDoctype leniently scans the DTD's syntactic shape: a name, an
// optional external id, and an optional bracketed internal subset, quote-
// aware so that ']' inside a quoted literal doesn't end the subset early.
// Per spec.md §4.4/§9 this never validates the subset's contents.
func (l *lexer) lexDoctype(line, col int) token {
	for {
		b, ok := l.s.current()
		if !ok || !isTagSpace(b) {
			break
		}
		l.adv()
	}
	nameBuf := buffer.New()
	for {
		b, ok := l.s.current()
		if !ok || !isNameChar(b) {
			break
		}
		nameBuf.AppendByte(b)
		l.adv()
	}
	name := nameBuf.String()
	if name == "" {
		return errTok(line, col, "DOCTYPE declaration is missing a name")
	}

	fullBuf := buffer.New()
	fullBuf.AppendString(name)
	depth := 0
	for {
		b, ok := l.s.current()
		if !ok {
			return errTok(line, col, "unterminated DOCTYPE declaration")
		}
		if b == '"' || b == '\'' {
			quote := b
			fullBuf.AppendByte(b)
			l.adv()
			for {
				cb, ok := l.s.current()
				if !ok {
					return errTok(line, col, "unterminated quoted literal in DOCTYPE")
				}
				fullBuf.AppendByte(cb)
				l.adv()
				if cb == quote {
					break
				}
			}
			continue
		}
		if b == '[' {
			depth++
			fullBuf.AppendByte(b)
			l.adv()
			continue
		}
		if b == ']' {
			if depth > 0 {
				depth--
				fullBuf.AppendByte(b)
				l.adv()
				continue
			}
		}
		if b == '>' && depth == 0 {
			l.adv()
			break
		}
		fullBuf.AppendByte(b)
		l.adv()
	}

	if l.cfg.PreserveDTDStructure {
		return token{kind: tokDoctype, text: fullBuf.String(), line: line, column: col}
	}
	return token{kind: tokDoctype, text: name, line: line, column: col}
}

// decodeEntities expands the five predefined XML entities and numeric
// character references, reporting whether any substitution was made (the
// Text/Attribute node's has_entity flag).
func decodeEntities(s string) (string, bool) {
	if indexByte(s, '&') < 0 {
		return s, false
	}
	out := buffer.New()
	had := false
	i := 0
	for i < len(s) {
		if s[i] != '&' {
			out.AppendByte(s[i])
			i++
			continue
		}
		semi := indexByteFrom(s, ';', i)
		if semi < 0 {
			out.AppendByte(s[i])
			i++
			continue
		}
		ent := s[i+1 : semi]
		if r, ok := expandEntity(ent); ok {
			out.AppendString(r)
			had = true
			i = semi + 1
			continue
		}
		out.AppendByte(s[i])
		i++
	}
	return out.String(), had
}

func expandEntity(name string) (string, bool) {
	switch name {
	case "amp":
		return "&", true
	case "lt":
		return "<", true
	case "gt":
		return ">", true
	case "quot":
		return "\"", true
	case "apos":
		return "'", true
	}
	if len(name) > 1 && name[0] == '#' {
		if len(name) > 2 && (name[1] == 'x' || name[1] == 'X') {
			if v, err := strconv.ParseInt(name[2:], 16, 32); err == nil {
				return string(rune(v)), true
			}
			return "", false
		}
		if v, err := strconv.ParseInt(name[1:], 10, 32); err == nil {
			return string(rune(v)), true
		}
	}
	return "", false
}

func indexByte(s string, c byte) int { return indexByteFrom(s, c, 0) }

func indexByteFrom(s string, c byte, from int) int {
	for i := from; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}

func (l *lexer) classify(s string) buffer.Kind { return buffer.Classify(s) }
