package xpath

// optimize is the context-independence pre-pass (spec.md §4.11). It walks
// the whole compiled AST exactly once, memoizing on each node's embedded
// independence slot, and returns whether the root expression's value is
// the same no matter which node is the evaluation context.
//
// A context-independent predicate is the only thing ever offered to the
// LRU cache (cache.go): predicate results that vary by context node would
// collide under a single cache entry, and Number-typed results are never
// offered regardless of independence, since position()-sensitive numeric
// predicates ([1], [position()=2]) are the common case that must not be
// cached.
func optimize(e Expr) bool {
	switch n := e.(type) {
	case *Num:
		return true
	case *StringLit:
		return true
	case *UnaryOp:
		if n.indep.computed {
			return n.indep.independent
		}
		ok := optimize(n.X)
		n.indep = independence{computed: true, independent: ok}
		return ok
	case *BinaryOp:
		if n.indep.computed {
			return n.indep.independent
		}
		l := optimize(n.L)
		r := optimize(n.R)
		ok := l && r
		n.indep = independence{computed: true, independent: ok}
		return ok
	case *FunctionCall:
		return optimizeCall(n)
	case *Path:
		return optimizePath(n)
	case *filteredPrimary:
		if n.indep.computed {
			return n.indep.independent
		}
		ok := optimize(n.X)
		for _, pr := range n.Predicates {
			prOK := optimize(pr.X)
			pr.indep = independence{computed: true, independent: prOK}
			if !prOK {
				ok = false
			}
		}
		n.indep = independence{computed: true, independent: ok}
		return ok
	default:
		return false
	}
}

// contextSensitiveFuncs are always context-dependent regardless of their
// arguments, per spec.md §4.11.
var contextSensitiveFuncs = map[string]bool{
	"last": true, "position": true, "lang": true,
}

func optimizeCall(n *FunctionCall) bool {
	if n.indep.computed {
		return n.indep.independent
	}
	argsIndep := true
	for _, a := range n.Args {
		if !optimize(a) {
			argsIndep = false
		}
	}
	ok := argsIndep
	if contextSensitiveFuncs[n.Name] {
		ok = false
	} else if entry, found := resolveFunction(n.Name, n.Arity); found && entry.Omittable && len(n.Args) == 0 {
		// Defaults to the context node: e.g. string(), name(), local-name().
		ok = false
	}
	n.indep = independence{computed: true, independent: ok}
	return ok
}

func optimizePath(p *Path) bool {
	if p.indep.computed {
		return p.indep.independent
	}
	ok := p.Absolute
	if len(p.Steps) > 0 && p.Steps[0].primary != nil {
		// FilterExpr-rooted path (e.g. (/a | /b)/c): independence comes from
		// the primary expression, not from being syntactically absolute.
		ok = optimize(p.Steps[0].primary)
	}
	for i, s := range p.Steps {
		if i == 0 && s.primary != nil {
			ok = ok && optimizeStep(s, true)
			continue
		}
		if !optimizeStep(s, i == 0) {
			// A relative first step depends on the context node; later
			// steps chain off a concrete node-set and don't add
			// dependence on their own, but their predicates still must
			// be independent for the step itself to be cacheable.
			if i == 0 {
				ok = false
			}
		}
	}
	p.indep = independence{computed: true, independent: ok}
	return ok
}

// optimizeStep computes (and caches) whether a single step's predicates are
// all context-independent; isFirst additionally folds in whether a bare
// relative step depends on the context node.
func optimizeStep(s *Step, isFirst bool) bool {
	if s.indep.computed {
		return s.indep.independent
	}
	predsIndep := true
	for _, pr := range s.Predicates {
		prOK := optimize(pr.X)
		pr.indep = independence{computed: true, independent: prOK}
		if !prOK {
			predsIndep = false
		}
	}
	ok := predsIndep
	if isFirst && s.Spec == PathNone && s.primary == nil {
		ok = false
	}
	s.indep = independence{computed: true, independent: ok}
	return ok
}

// cacheable reports whether a predicate's result may be served from the LRU
// cache: it must be context-independent and must not evaluate to a Number
// (position()-relative numeric predicates are the dominant case that must
// re-run against the live context every time).
func cacheable(pr *Predicate) bool {
	return pr.indep.computed && pr.indep.independent && !isNumberValued(pr.X)
}

// isNumberValued conservatively reports whether x always produces a
// Number, the one Value kind the cache never stores.
func isNumberValued(x Expr) bool {
	switch n := x.(type) {
	case *Num:
		return true
	case *UnaryOp:
		return true
	case *BinaryOp:
		switch n.Op {
		case tPlus, tMinus, tStar, tDivKeyword, tModKeyword:
			return true
		}
		return false
	case *FunctionCall:
		entry, found := resolveFunction(n.Name, n.Arity)
		return found && entry.Return == ReturnNumber
	default:
		return false
	}
}
