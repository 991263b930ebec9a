package xmlcore

// tokenKind enumerates the lexer's token types (spec.md §4.4).
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLess
	tokGreater
	tokSlash
	tokQuestion
	tokEqual
	tokColon
	tokIdent
	tokString
	tokText
	tokComment
	tokCDATA
	tokDoctype
	tokError
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "EOF"
	case tokLess:
		return "<"
	case tokGreater:
		return ">"
	case tokSlash:
		return "/"
	case tokQuestion:
		return "?"
	case tokEqual:
		return "="
	case tokColon:
		return ":"
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokText:
		return "text"
	case tokComment:
		return "comment"
	case tokCDATA:
		return "CDATA"
	case tokDoctype:
		return "DOCTYPE"
	case tokError:
		return "error"
	default:
		return "?"
	}
}

// token is a lexed unit together with its source position for diagnostics.
// No literal kind is stored: string and text tokens are not classified at
// lex time, and numeric coercion classifies the text when it is needed.
type token struct {
	kind      tokenKind
	text      string
	line      int
	column    int
	hadEntity bool
}
