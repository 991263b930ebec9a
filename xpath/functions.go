package xpath

import "sort"

// ReturnType is a function's declared return type, used by the optimizer
// and by argument/coercion logic.
type ReturnType int

const (
	ReturnBoolean ReturnType = iota
	ReturnNumber
	ReturnString
	ReturnNodeSet
)

// funcEntry describes one of the 21 core XPath 1.0 functions (spec.md
// §4.12): Name, MinArity/MaxArity (-1 max means unbounded), Omittable (the
// last argument may default to the context node), and Return type.
type funcEntry struct {
	Name      string
	MinArity  int
	MaxArity  int
	Omittable bool
	Return    ReturnType
}

// functionTable is sorted alphabetically by Name so resolveFunction can
// binary-search it, per spec.md §4.12.
var functionTable = []funcEntry{
	{"boolean", 1, 1, false, ReturnBoolean},
	{"ceiling", 1, 1, false, ReturnNumber},
	{"comment", 0, 0, false, ReturnBoolean}, // kind-test keyword, never called as a function
	{"concat", 2, -1, false, ReturnString},
	{"contains", 2, 2, false, ReturnBoolean},
	{"count", 1, 1, false, ReturnNumber},
	{"false", 0, 0, false, ReturnBoolean},
	{"floor", 1, 1, false, ReturnNumber},
	{"lang", 1, 1, false, ReturnBoolean},
	{"last", 0, 0, false, ReturnNumber},
	{"local-name", 0, 1, true, ReturnString},
	{"name", 0, 1, true, ReturnString},
	{"namespace-uri", 0, 1, true, ReturnString},
	{"node", 0, 0, false, ReturnBoolean}, // kind-test keyword
	{"not", 1, 1, false, ReturnBoolean},
	{"number", 0, 1, true, ReturnNumber},
	{"position", 0, 0, false, ReturnNumber},
	{"processing-instruction", 0, 1, false, ReturnBoolean}, // kind-test keyword
	{"round", 1, 1, false, ReturnNumber},
	{"starts-with", 2, 2, false, ReturnBoolean},
	{"string", 0, 1, true, ReturnString},
	{"string-length", 0, 1, true, ReturnNumber},
	{"sum", 1, 1, false, ReturnNumber},
	{"text", 0, 0, false, ReturnBoolean}, // kind-test keyword
	{"true", 0, 0, false, ReturnBoolean},
}

// kindTestKeywords holds the names that are kind-test syntax (`text()`,
// `comment()`, `node()`, `processing-instruction()`) rather than callable
// functions; resolveFunction rejects them.
var kindTestKeywords = map[string]bool{
	"text": true, "comment": true, "node": true, "processing-instruction": true,
}

func resolveFunction(name string, argc int) (funcEntry, bool) {
	if kindTestKeywords[name] {
		return funcEntry{}, false
	}
	i := sort.Search(len(functionTable), func(i int) bool { return functionTable[i].Name >= name })
	if i >= len(functionTable) || functionTable[i].Name != name {
		return funcEntry{}, false
	}
	e := functionTable[i]
	if argc < e.MinArity || (e.MaxArity >= 0 && argc > e.MaxArity) {
		return funcEntry{}, false
	}
	return e, true
}
