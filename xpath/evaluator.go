package xpath

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/antflow/xmlcore"
	"github.com/antflow/xmlcore/internal/buffer"
	"github.com/antflow/xmlcore/internal/omap"
)

// ValueKind is the discriminant of the evaluator's four-typed Value.
type ValueKind int

const (
	NodeSetValue ValueKind = iota
	BooleanValue
	NumberValue
	StringValue
)

// Value is the result of evaluating any XPath (sub)expression.
type Value struct {
	Kind  ValueKind
	Nodes []*xmlcore.Node
	Bool  bool
	Num   float64
	Str   string
}

func nodeSetValue(nodes []*xmlcore.Node) Value { return Value{Kind: NodeSetValue, Nodes: nodes} }
func boolValue(b bool) Value                   { return Value{Kind: BooleanValue, Bool: b} }
func numValue(f float64) Value                 { return Value{Kind: NumberValue, Num: f} }
func strValue(s string) Value                  { return Value{Kind: StringValue, Str: s} }

// Boolean coerces v per the XPath boolean() rules.
func (v Value) Boolean() bool {
	switch v.Kind {
	case NodeSetValue:
		return len(v.Nodes) > 0
	case BooleanValue:
		return v.Bool
	case NumberValue:
		return v.Num != 0 && !math.IsNaN(v.Num)
	case StringValue:
		return v.Str != ""
	}
	return false
}

// Number coerces v per the XPath number() rules.
func (v Value) Number() float64 {
	switch v.Kind {
	case NodeSetValue:
		if len(v.Nodes) == 0 {
			return math.NaN()
		}
		return buffer.ToNumber(v.Nodes[0].StringValue())
	case BooleanValue:
		if v.Bool {
			return 1
		}
		return 0
	case NumberValue:
		return v.Num
	case StringValue:
		return buffer.ToNumber(v.Str)
	}
	return math.NaN()
}

// String coerces v per the XPath string() rules.
func (v Value) String() string {
	switch v.Kind {
	case NodeSetValue:
		if len(v.Nodes) == 0 {
			return ""
		}
		return v.Nodes[0].StringValue()
	case BooleanValue:
		if v.Bool {
			return "true"
		}
		return "false"
	case NumberValue:
		return formatNumber(v.Num)
	case StringValue:
		return v.Str
	}
	return ""
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return fmt.Sprintf("%.0f", f)
	default:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", f), "0"), ".")
	}
}

// evalContext is one frame of the context stack: the node currently under
// evaluation together with its position/size within the step or predicate
// that produced it (spec.md's position()/last() semantics).
type evalContext struct {
	node *xmlcore.Node
	pos  int
	size int
}

type evaluator struct {
	stack []*evalContext
}

func (e *evaluator) push(c *evalContext) { e.stack = append(e.stack, c) }
func (e *evaluator) pop()                { e.stack = e.stack[:len(e.stack)-1] }
func (e *evaluator) top() *evalContext    { return e.stack[len(e.stack)-1] }

// Eval evaluates the compiled expression with node as the initial context
// node (position 1, size 1).
func (c *CompiledExpr) Eval(node *xmlcore.Node) (Value, error) {
	e := &evaluator{}
	e.push(&evalContext{node: node, pos: 1, size: 1})
	return e.eval(c.root)
}

// Select evaluates the compiled expression and returns its result as a
// node-set; it errors if the expression's value is not a node-set.
func (c *CompiledExpr) Select(node *xmlcore.Node) ([]*xmlcore.Node, error) {
	v, err := c.Eval(node)
	if err != nil {
		return nil, err
	}
	if v.Kind != NodeSetValue {
		return nil, fmt.Errorf("xpath: expression %q does not select a node-set", c.source)
	}
	return v.Nodes, nil
}

// Select compiles expr and evaluates it against node, returning the
// resulting node-set (spec.md §6 "xpath(document, expression_string) ->
// node_set").
func Select(node *xmlcore.Node, expr string) ([]*xmlcore.Node, error) {
	c, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return c.Select(node)
}

func (e *evaluator) eval(x Expr) (Value, error) {
	switch n := x.(type) {
	case *Num:
		return numValue(n.Value), nil
	case *StringLit:
		return strValue(n.Value), nil
	case *UnaryOp:
		v, err := e.eval(n.X)
		if err != nil {
			return Value{}, err
		}
		if n.Op == tMinus {
			return numValue(-v.Number()), nil
		}
		return numValue(v.Number()), nil
	case *BinaryOp:
		return e.evalBinary(n)
	case *FunctionCall:
		return e.evalCall(n)
	case *Path:
		return e.evalPath(n)
	case *filteredPrimary:
		return e.evalFilteredPrimary(n)
	default:
		return Value{}, fmt.Errorf("xpath: unhandled expression node %T", x)
	}
}

func (e *evaluator) evalBinary(n *BinaryOp) (Value, error) {
	switch n.Op {
	case tOrKeyword:
		l, err := e.eval(n.L)
		if err != nil {
			return Value{}, err
		}
		if l.Boolean() {
			return boolValue(true), nil
		}
		r, err := e.eval(n.R)
		if err != nil {
			return Value{}, err
		}
		return boolValue(r.Boolean()), nil
	case tAndKeyword:
		l, err := e.eval(n.L)
		if err != nil {
			return Value{}, err
		}
		if !l.Boolean() {
			return boolValue(false), nil
		}
		r, err := e.eval(n.R)
		if err != nil {
			return Value{}, err
		}
		return boolValue(r.Boolean()), nil
	}

	l, err := e.eval(n.L)
	if err != nil {
		return Value{}, err
	}
	r, err := e.eval(n.R)
	if err != nil {
		return Value{}, err
	}

	switch n.Op {
	case tEqual, tNotEqual, tLess, tLessEq, tGreater, tGreaterEq:
		ok := compareValues(n.Op, l, r)
		return boolValue(ok), nil
	case tPlus:
		return numValue(l.Number() + r.Number()), nil
	case tMinus:
		return numValue(l.Number() - r.Number()), nil
	case tStar:
		return numValue(l.Number() * r.Number()), nil
	case tDivKeyword:
		return numValue(l.Number() / r.Number()), nil
	case tModKeyword:
		return numValue(math.Mod(l.Number(), r.Number())), nil
	case tPipe:
		return nodeSetValue(unionNodes(l.Nodes, r.Nodes)), nil
	}
	return Value{}, fmt.Errorf("xpath: unhandled operator %v", n.Op)
}

// compareValues implements the 4x4x6 comparison dispatch (spec.md §4.11):
// node-set comparisons test each node's string-value against the other
// operand; otherwise the looser of the two types (boolean > number >
// string) governs the coercion, with relational operators always numeric.
func compareValues(op tokenKind, l, r Value) bool {
	if l.Kind == NodeSetValue || r.Kind == NodeSetValue {
		return compareWithNodeSet(op, l, r)
	}
	if op != tEqual && op != tNotEqual {
		return compareNumeric(op, l.Number(), r.Number())
	}
	switch {
	case l.Kind == BooleanValue || r.Kind == BooleanValue:
		eq := l.Boolean() == r.Boolean()
		return eq == (op == tEqual)
	case l.Kind == NumberValue || r.Kind == NumberValue:
		eq := buffer.NumbersEqual(l.Number(), r.Number())
		if op == tNotEqual {
			return buffer.NumbersNotEqual(l.Number(), r.Number())
		}
		return eq
	default:
		eq := l.String() == r.String()
		return eq == (op == tEqual)
	}
}

func compareNumeric(op tokenKind, l, r float64) bool {
	if math.IsNaN(l) || math.IsNaN(r) {
		return false
	}
	switch op {
	case tLess:
		return l < r
	case tLessEq:
		return l <= r
	case tGreater:
		return l > r
	case tGreaterEq:
		return l >= r
	}
	return false
}

func compareWithNodeSet(op tokenKind, l, r Value) bool {
	if l.Kind == NodeSetValue && r.Kind == NodeSetValue {
		for _, ln := range l.Nodes {
			for _, rn := range r.Nodes {
				if compareValues(op, strValue(ln.StringValue()), strValue(rn.StringValue())) {
					return true
				}
			}
		}
		return false
	}
	nodes, other := l.Nodes, r
	if l.Kind != NodeSetValue {
		nodes, other = r.Nodes, l
	}
	for _, n := range nodes {
		var candidate Value
		switch other.Kind {
		case NumberValue:
			candidate = numValue(buffer.ToNumber(n.StringValue()))
		case BooleanValue:
			candidate = boolValue(strValue(n.StringValue()).Boolean())
		default:
			candidate = strValue(n.StringValue())
		}
		if compareValues(op, candidate, other) {
			return true
		}
	}
	return false
}

func unionNodes(a, b []*xmlcore.Node) []*xmlcore.Node {
	set := omap.NewPtrSet[xmlcore.Node]()
	for _, n := range a {
		set.Add(n)
	}
	for _, n := range b {
		set.Add(n)
	}
	out := set.Items()
	sort.Slice(out, func(i, j int) bool { return xmlcore.ComparePosition(out[i], out[j]) < 0 })
	return out
}

func (e *evaluator) evalFilteredPrimary(n *filteredPrimary) (Value, error) {
	v, err := e.eval(n.X)
	if err != nil {
		return Value{}, err
	}
	if len(n.Predicates) == 0 {
		return v, nil
	}
	if v.Kind != NodeSetValue {
		return Value{}, fmt.Errorf("xpath: predicate applied to a non-node-set value")
	}
	nodes, err := e.applyPredicates(v.Nodes, n.Predicates)
	if err != nil {
		return Value{}, err
	}
	return nodeSetValue(nodes), nil
}

func (e *evaluator) evalPath(p *Path) (Value, error) {
	ctxNode := e.top().node

	var current []*xmlcore.Node
	steps := p.Steps
	if len(steps) > 0 && steps[0].primary != nil {
		v, err := e.eval(steps[0].primary)
		if err != nil {
			return Value{}, err
		}
		if v.Kind != NodeSetValue {
			return Value{}, fmt.Errorf("xpath: path root expression is not a node-set")
		}
		filtered, err := e.applyPredicates(v.Nodes, steps[0].Predicates)
		if err != nil {
			return Value{}, err
		}
		current = filtered
		steps = steps[1:]
	} else if p.Absolute {
		current = []*xmlcore.Node{ctxNode.Document()}
	} else {
		current = []*xmlcore.Node{ctxNode}
	}

	for _, step := range steps {
		next, err := e.evalStep(current, step)
		if err != nil {
			return Value{}, err
		}
		current = next
	}
	return nodeSetValue(current), nil
}

// evalStep generates, per context node in current, the axis candidates
// matching step's node test, then filters them through step's predicates
// with position()/last() defined over that per-context candidate list —
// the filtered survivors from every context node are then merged (deduped,
// re-sorted into document order) into the step's overall result.
func (e *evaluator) evalStep(current []*xmlcore.Node, step *Step) ([]*xmlcore.Node, error) {
	var merged []*xmlcore.Node
	for _, c := range current {
		candidates := axisCandidates(c, step)
		var matched []*xmlcore.Node
		for _, cand := range candidates {
			if nodeTestMatches(cand, step) {
				matched = append(matched, cand)
			}
		}
		filtered, err := e.applyPredicates(matched, step.Predicates)
		if err != nil {
			return nil, err
		}
		merged = append(merged, filtered...)
	}
	return dedupeSorted(merged), nil
}

// axisCandidates returns every node reachable from c along step's axis,
// in document order, before the node test or predicates are applied.
func axisCandidates(c *xmlcore.Node, step *Step) []*xmlcore.Node {
	switch {
	case step.Abbrev == AbbrevSelf:
		return []*xmlcore.Node{c}
	case step.Abbrev == AbbrevParent:
		if c.Parent == nil {
			return nil
		}
		return []*xmlcore.Node{c.Parent}
	case step.Attribute:
		if c.Attrs == nil {
			return nil
		}
		out := make([]*xmlcore.Node, 0, c.Attrs.Len())
		for _, k := range c.Attrs.Keys() {
			a, _ := c.Attrs.Get(k)
			out = append(out, a)
		}
		return out
	case step.Spec == PathDescendant:
		var out []*xmlcore.Node
		var walk func(*xmlcore.Node)
		walk = func(n *xmlcore.Node) {
			for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
				out = append(out, ch)
				walk(ch)
			}
		}
		walk(c)
		return out
	default: // PathChild, PathNone: direct children
		var out []*xmlcore.Node
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			out = append(out, ch)
		}
		return out
	}
}

// nodeTestMatches checks a candidate node against step's test. Name tests
// are matched lexically against the candidate's Prefix/Local (the engine
// has no external prefix-to-URI binding to resolve against, so a test
// like "ns:foo" matches nodes parsed with that same literal prefix).
func nodeTestMatches(n *xmlcore.Node, step *Step) bool {
	if step.Attribute {
		if n.Type != xmlcore.AttributeNode {
			return false
		}
	} else {
		switch n.Type {
		case xmlcore.ElementNode, xmlcore.TextNode, xmlcore.CommentNode, xmlcore.ProcessingInstructionNode:
		default:
			return false
		}
	}

	t := step.Test
	switch t.Kind {
	case TestText:
		return n.Type == xmlcore.TextNode
	case TestComment:
		return n.Type == xmlcore.CommentNode
	case TestPI:
		if n.Type != xmlcore.ProcessingInstructionNode {
			return false
		}
		if t.HasPILiteral {
			return n.Local == t.PILiteral || n.QName == t.PILiteral
		}
		return true
	case TestNode:
		return true
	default:
		if n.Type != xmlcore.ElementNode && n.Type != xmlcore.AttributeNode {
			return false
		}
		if t.Name.LocalStar {
			if t.Name.Prefix != "" && n.Prefix != t.Name.Prefix {
				return false
			}
			return true
		}
		if t.Name.Prefix != "" && n.Prefix != t.Name.Prefix {
			return false
		}
		return n.Local == t.Name.Local
	}
}

// applyPredicates filters nodes through preds in order, each predicate
// re-establishing position()/last() over the surviving list so far, per
// XPath 1.0 semantics.
func (e *evaluator) applyPredicates(nodes []*xmlcore.Node, preds []*Predicate) ([]*xmlcore.Node, error) {
	for _, pr := range preds {
		class := classifyPredicate(pr)
		size := len(nodes)

		if class.cacheable && size > 0 {
			// Context-independent and never Number-valued: the result is
			// the same for every candidate, so it's evaluated once (per
			// document) and the LRU spares every subsequent step or call
			// that hits the same predicate against the same document from
			// re-walking its AST.
			doc := nodes[0].Document()
			v, ok := getCachedPredicateResult(pr, doc)
			if !ok {
				e.push(&evalContext{node: nodes[0], pos: 1, size: size})
				var err error
				v, err = e.eval(pr.X)
				e.pop()
				if err != nil {
					return nil, err
				}
				setCachedPredicateResult(pr, doc, v)
			}
			if !v.Boolean() {
				nodes = nil
			}
			continue
		}

		var survivors []*xmlcore.Node
		for i, n := range nodes {
			e.push(&evalContext{node: n, pos: i + 1, size: size})
			v, err := e.eval(pr.X)
			e.pop()
			if err != nil {
				return nil, err
			}
			if predicateHolds(v, i+1) {
				survivors = append(survivors, n)
			}
		}
		nodes = survivors
	}
	return nodes, nil
}

// predicateHolds applies the special numeric-predicate rule: a bare
// Number value selects the node at that 1-based position; any other
// value type coerces via boolean().
func predicateHolds(v Value, pos int) bool {
	if v.Kind == NumberValue {
		return float64(pos) == v.Num
	}
	return v.Boolean()
}

func dedupeSorted(nodes []*xmlcore.Node) []*xmlcore.Node {
	set := omap.NewPtrSet[xmlcore.Node]()
	for _, n := range nodes {
		set.Add(n)
	}
	out := set.Items()
	sort.Slice(out, func(i, j int) bool { return xmlcore.ComparePosition(out[i], out[j]) < 0 })
	return out
}
