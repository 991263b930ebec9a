package xpath

import (
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/antflow/xmlcore"
)

// predicateCacheSize bounds the LRU to 11 entries: most compiled
// expressions walk only a handful of distinct predicates per evaluation,
// and classification (not per-node results) is all that's cached here.
const predicateCacheSize = 11

var (
	predicateCacheOnce sync.Once
	predicateCache     *lru.Cache
	predicateCacheMu   sync.Mutex
)

// predResultCacheSize mirrors predicateCacheSize (spec.md §4.11/§8): a
// cacheable predicate's evaluated result is itself cached, keyed by the
// predicate and the document it was evaluated against, at the same size
// and with the same LRU eviction policy.
const predResultCacheSize = 11

var (
	predResultCacheOnce sync.Once
	predResultCache     *lru.Cache
	predResultCacheMu   sync.Mutex
)

// predResultKey identifies a cached predicate result: the predicate's own
// pointer identity together with the document it was evaluated against,
// so the cache never serves a stale result for the same *Predicate
// evaluated against a different document.
type predResultKey struct {
	pred *Predicate
	doc  *xmlcore.Node
}

// getCachedPredicateResult consults the size-11 result LRU for pr evaluated
// against doc.
func getCachedPredicateResult(pr *Predicate, doc *xmlcore.Node) (Value, bool) {
	predResultCacheOnce.Do(func() {
		predResultCache = lru.New(predResultCacheSize)
	})
	predResultCacheMu.Lock()
	defer predResultCacheMu.Unlock()
	v, ok := predResultCache.Get(predResultKey{pred: pr, doc: doc})
	if !ok {
		return Value{}, false
	}
	return v.(Value), true
}

// setCachedPredicateResult stores v as pr's evaluated result against doc,
// evicting the least-recently-used entry once the cache holds 11.
func setCachedPredicateResult(pr *Predicate, doc *xmlcore.Node, v Value) {
	predResultCacheOnce.Do(func() {
		predResultCache = lru.New(predResultCacheSize)
	})
	predResultCacheMu.Lock()
	defer predResultCacheMu.Unlock()
	predResultCache.Add(predResultKey{pred: pr, doc: doc}, v)
}

// predicateClass is the derived shape of a predicate: whether it is
// Number-valued and so selects by position ([1], [last()-1]), and whether
// its result may be cached. applyPredicates reads only cacheable; a
// positional predicate is evaluated per candidate node like any other and
// compared with the position by predicateHolds.
type predicateClass struct {
	positional bool
	cacheable  bool
}

// classifyPredicate returns pr's shape, consulting the size-11 LRU keyed by
// the *Predicate's own pointer identity before deriving it. Re-deriving is
// cheap, but a compiled expression is typically evaluated against every
// node of a large result set, so even this small cache avoids repeating
// the same AST inspection thousands of times per Select call.
func classifyPredicate(pr *Predicate) predicateClass {
	predicateCacheOnce.Do(func() {
		predicateCache = lru.New(predicateCacheSize)
	})

	predicateCacheMu.Lock()
	if v, ok := predicateCache.Get(pr); ok {
		predicateCacheMu.Unlock()
		return v.(predicateClass)
	}
	predicateCacheMu.Unlock()

	class := predicateClass{
		positional: isNumberValued(pr.X),
		cacheable:  cacheable(pr),
	}

	predicateCacheMu.Lock()
	predicateCache.Add(pr, class)
	predicateCacheMu.Unlock()
	return class
}
