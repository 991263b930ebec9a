package xpath

// Expr is the common interface for every AST node (spec.md §4.10).
// The indep slots of the node types below are filled in by the optimizer
// pre-pass (optimize.go) before evaluation.
type Expr interface {
	exprNode()
}

type independence struct {
	computed    bool
	independent bool
}

// UnaryOp is a prefixed + or -.
type UnaryOp struct {
	Op   tokenKind
	X    Expr
	indep independence
}

// BinaryOp covers or/and/comparison/+-/*div,mod/union.
type BinaryOp struct {
	Op    tokenKind
	L, R  Expr
	indep independence
}

// Num is a numeric literal.
type Num struct {
	Value float64
}

// StringLit is a quoted string literal.
type StringLit struct {
	Value string
}

// PathSpec is how a Step is attached to the step before it.
type PathSpec int

const (
	PathNone PathSpec = iota // relative: the step chains directly (used for the first step)
	PathChild
	PathDescendant
)

// Abbrev marks `.`/`..` abbreviated steps.
type Abbrev int

const (
	AbbrevNone Abbrev = iota
	AbbrevSelf
	AbbrevParent
)

// NameTest matches `name`, `*`, `*:name`, `pref:*`, or `pref:name`.
type NameTest struct {
	Prefix     string
	Local      string
	PrefixStar bool
	LocalStar  bool
}

// TestKind enumerates kind-tests.
type TestKind int

const (
	TestNone TestKind = iota
	TestNode
	TestText
	TestComment
	TestPI
)

// NodeTest is either a NameTest or a kind-test (TestKind != TestNone).
type NodeTest struct {
	Kind    TestKind
	Name    NameTest
	PILiteral string
	HasPILiteral bool
}

// Predicate wraps a bracketed filter expression.
type Predicate struct {
	X    Expr
	indep independence
}

// Step is one `/`-separated path component: an axis (attribute or
// child/descendant via Spec), a node test, and zero or more predicates.
type Step struct {
	Spec       PathSpec
	Attribute  bool
	Abbrev     Abbrev
	Test       NodeTest
	Predicates []*Predicate
	// primary holds the FilterExpr this step chains off of, when the path
	// began with a function call/parenthesized expression rather than an
	// axis step (e.g. "(/a | /b)/c"). Nil for an ordinary step.
	primary Expr
	indep   independence
}

// Path is an ordered list of Steps. Absolute marks a path rooted at the
// document ("/" or "//..."); a bare "/" is Absolute with zero Steps,
// selecting the document node itself. FromPredicate marks a path whose
// first step chains off a primary expression (a function call or a
// parenthesized expression, see Step.primary) rather than an axis step.
type Path struct {
	Steps         []*Step
	Absolute      bool
	FromPredicate bool
	indep         independence
}

// FunctionCall is a resolved call: Pos/Arity/Return are filled in by the
// parser from the function table (spec.md §4.12).
type FunctionCall struct {
	Name   string
	Args   []Expr
	Pos    int
	Arity  int
	Return ReturnType
	indep  independence
}

func (*UnaryOp) exprNode()      {}
func (*BinaryOp) exprNode()     {}
func (*Num) exprNode()          {}
func (*StringLit) exprNode()    {}
func (*Path) exprNode()         {}
func (*FunctionCall) exprNode() {}
