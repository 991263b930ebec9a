package xmlcore

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// DisableQueryCache disables caching of parsed convenience-query segments
// if set to true.
var DisableQueryCache = false

// QueryCacheMaxEntries bounds how many parsed queries are cached. Will
// disable caching if QueryCacheMaxEntries <= 0. Default is 50.
var QueryCacheMaxEntries = 50

var (
	queryCacheOnce sync.Once
	queryCache     *lru.Cache
	queryCacheMu   sync.Mutex
)

// getQuery parses query (spec.md §6's convenience language) and caches the
// result keyed by the raw query string, so repeated Find/FindAll calls
// against the same literal query string don't re-parse it every time.
func getQuery(query string) ([]querySeg, error) {
	if DisableQueryCache || QueryCacheMaxEntries <= 0 {
		return parseQuery(query)
	}
	queryCacheOnce.Do(func() {
		queryCache = lru.New(QueryCacheMaxEntries)
	})
	queryCacheMu.Lock()
	defer queryCacheMu.Unlock()
	if v, ok := queryCache.Get(query); ok {
		return v.([]querySeg), nil
	}
	segs, err := parseQuery(query)
	if err != nil {
		return nil, err
	}
	queryCache.Add(query, segs)
	return segs, nil
}
