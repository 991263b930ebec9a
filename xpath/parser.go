package xpath

// parser is the Pratt expression parser (C10) driven by the binding-power
// table in spec.md §4.10.
type parser struct {
	lex *lexer
	cur token
}

func newParser(expr string) (*parser, error) {
	p := &parser{lex: newLexer(expr)}
	t, err := p.lex.next()
	if err != nil {
		return nil, err
	}
	p.cur = t
	return p, nil
}

func (p *parser) advance() (token, error) {
	cur := p.cur
	t, err := p.lex.next()
	if err != nil {
		return token{}, err
	}
	p.cur = t
	return cur, nil
}

func (p *parser) expect(k tokenKind) (token, error) {
	if p.cur.kind != k {
		return token{}, newError(p.cur.line, p.cur.column, "expected %s, got %s", k, p.cur.kind)
	}
	return p.advance()
}

// isKeyword reports whether the current token is the name-keyword kw
// ("or", "and", "div", "mod") — these lex as plain names and are
// distinguished from identifiers positionally by the parser.
func (p *parser) isKeyword(kw string) bool {
	return p.cur.kind == tName && p.cur.text == kw
}

// bindingPower returns the infix binding power for the current token if
// it can continue a binary/union expression, per spec.md §4.10's table.
func (p *parser) bindingPower() (int, bool) {
	switch {
	case p.isKeyword("or"):
		return 20, true
	case p.isKeyword("and"):
		return 30, true
	case p.cur.kind == tEqual || p.cur.kind == tNotEqual || p.cur.kind == tLess ||
		p.cur.kind == tLessEq || p.cur.kind == tGreater || p.cur.kind == tGreaterEq:
		return 40, true
	case p.cur.kind == tPlus || p.cur.kind == tMinus:
		return 50, true
	case p.cur.kind == tStar || p.isKeyword("div") || p.isKeyword("mod"):
		return 60, true
	case p.cur.kind == tPipe:
		return 70, true
	}
	return 0, false
}

// Compile parses expr into an AST, resolving function calls against the
// core library table as it goes (spec.md §4.10 "mismatched arity or
// unknown name produces a precise diagnostic... and tears down the
// parser"). The optimizer pre-pass (optimize.go) then annotates context-
// independence before the result is handed to the evaluator.
func Compile(expr string) (*CompiledExpr, error) {
	p, err := newParser(expr)
	if err != nil {
		return nil, err
	}
	root, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tEOF {
		return nil, newError(p.cur.line, p.cur.column, "unexpected trailing %s", p.cur.kind)
	}
	optimize(root)
	return &CompiledExpr{root: root, source: expr}, nil
}

// CompiledExpr is a parsed, optimizer-annotated XPath expression ready for
// repeated evaluation.
type CompiledExpr struct {
	root   Expr
	source string
}

func (p *parser) parseExpr(minBP int) (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		bp, ok := p.bindingPower()
		if !ok || bp < minBP {
			break
		}
		opTok, err := p.advance()
		if err != nil {
			return nil, err
		}
		right, err := p.parseExpr(bp + 1)
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: opKind(opTok), L: left, R: right}
	}
	return left, nil
}

// opKind normalizes a binary operator token (including the name-keyword
// operators or/and/div/mod, which lex as tName) into a single tokenKind
// tag the evaluator switches on.
func opKind(t token) tokenKind {
	if t.kind == tName {
		switch t.text {
		case "or":
			return tOrKeyword
		case "and":
			return tAndKeyword
		case "div":
			return tDivKeyword
		case "mod":
			return tModKeyword
		}
	}
	return t.kind
}

// Synthetic token kinds for the name-keyword operators, distinguished from
// the lexer's tName so the evaluator's switch is exhaustive and unambiguous.
const (
	tOrKeyword tokenKind = 1000 + iota
	tAndKeyword
	tDivKeyword
	tModKeyword
)

// parseUnary handles the unary +/- (binding power 50) before falling
// through to a union expression: the operand takes in `*`/div/mod and `|`
// but stops before a binary + or -.
func (p *parser) parseUnary() (Expr, error) {
	if p.cur.kind == tPlus || p.cur.kind == tMinus {
		opTok, err := p.advance()
		if err != nil {
			return nil, err
		}
		x, err := p.parseExpr(51)
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: opTok.kind, X: x}, nil
	}
	return p.parsePathExpr()
}

// parsePathExpr parses a single location path or filter-expression: spec.md
// §4.10's "function call, name" level (110) together with the path
// operators `/`/`//` (80) and predicates (90), which bind tighter than any
// binary operator and so are handled together here as one primary unit.
func (p *parser) parsePathExpr() (Expr, error) {
	// A leading '/' or '//' makes the path absolute.
	if p.cur.kind == tSlash {
		p.advance()
		if !p.startsStep() {
			// Bare "/" selects the document node itself.
			return &Path{Absolute: true}, nil
		}
		path := &Path{Absolute: true}
		step, err := p.parseStep(PathChild)
		if err != nil {
			return nil, err
		}
		path.Steps = append(path.Steps, step)
		return p.continuePath(path)
	}
	if p.cur.kind == tSlashSlash {
		p.advance()
		path := &Path{Absolute: true}
		step, err := p.parseStep(PathDescendant)
		if err != nil {
			return nil, err
		}
		path.Steps = append(path.Steps, step)
		return p.continuePath(path)
	}

	first, isPrimary, err := p.tryParsePrimary()
	if err != nil {
		return nil, err
	}
	if isPrimary {
		// FilterExpr: a primary expression optionally followed by predicates
		// and then further path steps.
		preds, err := p.parsePredicates()
		if err != nil {
			return nil, err
		}
		if p.cur.kind != tSlash && p.cur.kind != tSlashSlash {
			if len(preds) == 0 {
				return first, nil
			}
			return &filteredPrimary{X: first, Predicates: preds}, nil
		}
		// Further steps chain off this filter expression; represent it as a
		// pseudo-step carrying the primary.
		path := &Path{FromPredicate: true}
		step := &Step{Test: NodeTest{Kind: TestNode}, Predicates: preds, primary: first}
		path.Steps = append(path.Steps, step)
		return p.continuePath(path)
	}

	path := &Path{}
	step, err := p.parseStep(PathNone)
	if err != nil {
		return nil, err
	}
	path.Steps = append(path.Steps, step)
	return p.continuePath(path)
}

// startsStep reports whether the current token can begin a step, used to
// tell a bare "/" (document root) from "/foo" (a real absolute path).
func (p *parser) startsStep() bool {
	switch p.cur.kind {
	case tAt, tDot, tDotDot, tStar, tName:
		return true
	}
	return false
}

func (p *parser) continuePath(path *Path) (Expr, error) {
	for p.cur.kind == tSlash || p.cur.kind == tSlashSlash {
		spec := PathChild
		if p.cur.kind == tSlashSlash {
			spec = PathDescendant
		}
		p.advance()
		step, err := p.parseStep(spec)
		if err != nil {
			return nil, err
		}
		path.Steps = append(path.Steps, step)
	}
	return path, nil
}

// tryParsePrimary parses Num/StringLit/FunctionCall/parenthesized-expr if
// the current token starts one, reporting ok=false (with no error and no
// token consumed) otherwise so the caller can fall back to step parsing.
func (p *parser) tryParsePrimary() (Expr, bool, error) {
	switch p.cur.kind {
	case tNumber:
		t, _ := p.advance()
		return &Num{Value: t.num}, true, nil
	case tLiteral:
		t, _ := p.advance()
		return &StringLit{Value: t.text}, true, nil
	case tLParen:
		p.advance()
		x, err := p.parseExpr(0)
		if err != nil {
			return nil, false, err
		}
		if _, err := p.expect(tRParen); err != nil {
			return nil, false, err
		}
		return x, true, nil
	case tName:
		if isFunctionCallAhead(p) {
			fc, err := p.parseFunctionCall()
			if err != nil {
				return nil, false, err
			}
			return fc, true, nil
		}
	}
	return nil, false, nil
}

// isFunctionCallAhead decides, without consuming input, whether the
// current name token is followed by '(' (a call) rather than being a node
// test or axis name (spec.md §4.9 "a name followed by '(' disambiguates
// type-tests from identifiers"). Kind-test keywords are excluded here so
// they are parsed as node tests by parseStep instead.
func isFunctionCallAhead(p *parser) bool {
	if kindTestKeywords[p.cur.text] {
		return false
	}
	save := *p.lex
	savedCur := p.cur
	nextTok, err := p.lex.next()
	*p.lex = save
	p.cur = savedCur
	return err == nil && nextTok.kind == tLParen
}

func (p *parser) parseFunctionCall() (*FunctionCall, error) {
	nameTok, _ := p.advance()
	if _, err := p.expect(tLParen); err != nil {
		return nil, err
	}
	var args []Expr
	if p.cur.kind != tRParen {
		for {
			arg, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur.kind == tComma {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(tRParen); err != nil {
		return nil, err
	}
	entry, ok := resolveFunction(nameTok.text, len(args))
	if !ok {
		return nil, newError(nameTok.line, nameTok.column, "unknown function or wrong arity: %s/%d", nameTok.text, len(args))
	}
	return &FunctionCall{Name: nameTok.text, Args: args, Arity: len(args), Return: entry.Return}, nil
}

// parsePredicates consumes zero or more bracketed predicates.
func (p *parser) parsePredicates() ([]*Predicate, error) {
	var preds []*Predicate
	for p.cur.kind == tLBracket {
		p.advance()
		x, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRBracket); err != nil {
			return nil, err
		}
		preds = append(preds, &Predicate{X: x})
	}
	return preds, nil
}

// parseStep parses one axis+test+predicates path component.
func (p *parser) parseStep(spec PathSpec) (*Step, error) {
	step := &Step{Spec: spec}

	if p.cur.kind == tAt {
		p.advance()
		step.Attribute = true
	}

	switch p.cur.kind {
	case tDot:
		p.advance()
		step.Abbrev = AbbrevSelf
		step.Test = NodeTest{Kind: TestNode}
	case tDotDot:
		p.advance()
		step.Abbrev = AbbrevParent
		step.Test = NodeTest{Kind: TestNode}
	case tStar:
		p.advance()
		step.Test = NodeTest{Kind: TestNone, Name: NameTest{LocalStar: true}}
		if p.cur.kind == tColon {
			p.advance()
			local, err := p.expect(tName)
			if err != nil {
				return nil, err
			}
			step.Test = NodeTest{Kind: TestNone, Name: NameTest{PrefixStar: true, Local: local.text}}
		}
	case tName:
		nt, err := p.parseNodeTest()
		if err != nil {
			return nil, err
		}
		step.Test = nt
	default:
		return nil, newError(p.cur.line, p.cur.column, "expected a step, got %s", p.cur.kind)
	}

	preds, err := p.parsePredicates()
	if err != nil {
		return nil, err
	}
	step.Predicates = preds
	return step, nil
}

func (p *parser) parseNodeTest() (NodeTest, error) {
	first, _ := p.advance()

	if p.cur.kind == tLParen {
		switch first.text {
		case "node":
			return p.parseKindTest(TestNode)
		case "text":
			return p.parseKindTest(TestText)
		case "comment":
			return p.parseKindTest(TestComment)
		case "processing-instruction":
			return p.parseKindTestPI()
		default:
			return NodeTest{}, newError(first.line, first.column, "unknown node-test %s()", first.text)
		}
	}

	if p.cur.kind == tColon {
		p.advance()
		if p.cur.kind == tStar {
			p.advance()
			return NodeTest{Name: NameTest{Prefix: first.text, LocalStar: true}}, nil
		}
		local, err := p.expect(tName)
		if err != nil {
			return NodeTest{}, err
		}
		return NodeTest{Name: NameTest{Prefix: first.text, Local: local.text}}, nil
	}

	return NodeTest{Name: NameTest{Local: first.text}}, nil
}

func (p *parser) parseKindTest(kind TestKind) (NodeTest, error) {
	p.advance() // '('
	if _, err := p.expect(tRParen); err != nil {
		return NodeTest{}, err
	}
	return NodeTest{Kind: kind}, nil
}

func (p *parser) parseKindTestPI() (NodeTest, error) {
	p.advance() // '('
	nt := NodeTest{Kind: TestPI}
	if p.cur.kind == tLiteral {
		lit, _ := p.advance()
		nt.PILiteral = lit.text
		nt.HasPILiteral = true
	}
	if _, err := p.expect(tRParen); err != nil {
		return NodeTest{}, err
	}
	return nt, nil
}

// filteredPrimary is a primary expression (function call, parenthesized
// expr, literal) with trailing predicates applied to its node-set result,
// used when a FilterExpr doesn't continue into further path steps.
type filteredPrimary struct {
	X          Expr
	Predicates []*Predicate
	indep      independence
}

func (*filteredPrimary) exprNode() {}
