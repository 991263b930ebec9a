package xpath

import (
	"fmt"
	"math"
	"strings"

	"github.com/antflow/xmlcore"
)

// evalCall evaluates a resolved core-library function call (spec.md
// §4.12). Arity and name were already validated at parse time by
// resolveFunction, so this only needs to handle the omittable-argument
// default (the context node) and each function's own semantics.
func (e *evaluator) evalCall(n *FunctionCall) (Value, error) {
	ctx := e.top()

	arg := func(i int) (Value, error) {
		if i < len(n.Args) {
			return e.eval(n.Args[i])
		}
		return nodeSetValue([]*xmlcore.Node{ctx.node}), nil
	}

	switch n.Name {
	case "last":
		return numValue(float64(ctx.size)), nil
	case "position":
		return numValue(float64(ctx.pos)), nil
	case "count":
		v, err := e.eval(n.Args[0])
		if err != nil {
			return Value{}, err
		}
		if v.Kind != NodeSetValue {
			return Value{}, fmt.Errorf("xpath: count() requires a node-set argument")
		}
		return numValue(float64(len(v.Nodes))), nil
	case "sum":
		v, err := e.eval(n.Args[0])
		if err != nil {
			return Value{}, err
		}
		if v.Kind != NodeSetValue {
			return Value{}, fmt.Errorf("xpath: sum() requires a node-set argument")
		}
		total := 0.0
		for _, nd := range v.Nodes {
			total += nd.Number()
		}
		return numValue(total), nil
	case "local-name":
		v, err := arg(0)
		if err != nil {
			return Value{}, err
		}
		if v.Kind != NodeSetValue || len(v.Nodes) == 0 {
			return strValue(""), nil
		}
		return strValue(v.Nodes[0].Local), nil
	case "name":
		v, err := arg(0)
		if err != nil {
			return Value{}, err
		}
		if v.Kind != NodeSetValue || len(v.Nodes) == 0 {
			return strValue(""), nil
		}
		return strValue(v.Nodes[0].QName), nil
	case "namespace-uri":
		v, err := arg(0)
		if err != nil {
			return Value{}, err
		}
		if v.Kind != NodeSetValue || len(v.Nodes) == 0 || v.Nodes[0].BoundNamespace == nil {
			return strValue(""), nil
		}
		return strValue(v.Nodes[0].BoundNamespace.URI), nil
	case "string":
		v, err := arg(0)
		if err != nil {
			return Value{}, err
		}
		return strValue(v.String()), nil
	case "string-length":
		v, err := arg(0)
		if err != nil {
			return Value{}, err
		}
		return numValue(float64(len([]rune(v.String())))), nil
	case "number":
		v, err := arg(0)
		if err != nil {
			return Value{}, err
		}
		return numValue(v.Number()), nil
	case "boolean":
		v, err := e.eval(n.Args[0])
		if err != nil {
			return Value{}, err
		}
		return boolValue(v.Boolean()), nil
	case "not":
		v, err := e.eval(n.Args[0])
		if err != nil {
			return Value{}, err
		}
		return boolValue(!v.Boolean()), nil
	case "true":
		return boolValue(true), nil
	case "false":
		return boolValue(false), nil
	case "lang":
		v, err := e.eval(n.Args[0])
		if err != nil {
			return Value{}, err
		}
		return boolValue(matchesLang(ctx.node, v.String())), nil
	case "concat":
		var sb strings.Builder
		for _, a := range n.Args {
			v, err := e.eval(a)
			if err != nil {
				return Value{}, err
			}
			sb.WriteString(v.String())
		}
		return strValue(sb.String()), nil
	case "starts-with":
		l, err := e.eval(n.Args[0])
		if err != nil {
			return Value{}, err
		}
		r, err := e.eval(n.Args[1])
		if err != nil {
			return Value{}, err
		}
		return boolValue(strings.HasPrefix(l.String(), r.String())), nil
	case "contains":
		l, err := e.eval(n.Args[0])
		if err != nil {
			return Value{}, err
		}
		r, err := e.eval(n.Args[1])
		if err != nil {
			return Value{}, err
		}
		return boolValue(strings.Contains(l.String(), r.String())), nil
	case "ceiling":
		v, err := e.eval(n.Args[0])
		if err != nil {
			return Value{}, err
		}
		return numValue(math.Ceil(v.Number())), nil
	case "floor":
		v, err := e.eval(n.Args[0])
		if err != nil {
			return Value{}, err
		}
		return numValue(math.Floor(v.Number())), nil
	case "round":
		v, err := e.eval(n.Args[0])
		if err != nil {
			return Value{}, err
		}
		f := v.Number()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return numValue(f), nil
		}
		return numValue(math.Floor(f + 0.5)), nil
	}
	return Value{}, fmt.Errorf("xpath: unimplemented function %s", n.Name)
}

// matchesLang implements lang(): true when the nearest xml:lang ancestor
// (or self) attribute equals testLang or begins with "testLang-".
func matchesLang(n *xmlcore.Node, testLang string) bool {
	for c := n; c != nil; c = c.Parent {
		if v, ok := c.SelectAttr("xml:lang"); ok {
			v = strings.ToLower(v)
			testLang = strings.ToLower(testLang)
			return v == testLang || strings.HasPrefix(v, testLang+"-")
		}
	}
	return false
}
