// Package omap implements the open-addressed, insertion-ordered hash table
// and set used in xmlcore: element attribute maps (Map) and the XPath
// node-set accumulator (PtrSet) share this open-addressing scheme. The
// parser's expanded-name uniqueness check uses a plain Go map instead.
package omap

const (
	initialCapacity = 8
	loadFactor      = 0.75
	reuseThreshold  = 0.60
)

type slotState uint8

const (
	slotEmpty slotState = iota
	slotTombstone
	slotLive
)

type slot[V any] struct {
	key   string
	value V
	state slotState
}

// InsertResult is the tri-state result of Map.Set.
type InsertResult int

const (
	// Rejected is never returned by Set today; kept so callers can treat a
	// future validating variant uniformly.
	Rejected InsertResult = iota
	Inserted
	Updated
)

// Map is a string-keyed, open-addressed hash table with linear probing. It
// remembers insertion order in a parallel key list so that iteration order
// matches the order attributes (or namespace declarations) were parsed in.
type Map[V any] struct {
	slots []slot[V]
	order []string // live keys, in insertion order
	live  int      // count of slotLive entries, used to size rehashes
}

// New returns an empty Map.
func New[V any]() *Map[V] {
	return &Map[V]{slots: make([]slot[V], initialCapacity)}
}

// Len returns the number of live entries.
func (m *Map[V]) Len() int { return m.live }

func fnv1a(key string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(key); i++ {
		h ^= uint64(key[i])
		h *= prime64
	}
	return h
}

// findSlot walks the probe sequence for key, returning the index of a live
// match, or the first empty/tombstone slot suitable for insertion, and
// whether a live match was found.
func (m *Map[V]) findSlot(key string) (idx int, found bool) {
	n := len(m.slots)
	h := int(fnv1a(key) % uint64(n))
	tomb := -1
	for i := 0; i < n; i++ {
		at := (h + i) % n
		s := &m.slots[at]
		switch s.state {
		case slotEmpty:
			if tomb >= 0 {
				return tomb, false
			}
			return at, false
		case slotTombstone:
			if tomb < 0 {
				tomb = at
			}
		case slotLive:
			if s.key == key {
				return at, true
			}
		}
	}
	if tomb >= 0 {
		return tomb, false
	}
	return -1, false
}

// Get returns the value stored under key.
func (m *Map[V]) Get(key string) (V, bool) {
	idx, found := m.findSlot(key)
	if !found {
		var zero V
		return zero, false
	}
	return m.slots[idx].value, true
}

// Has reports whether key is present.
func (m *Map[V]) Has(key string) bool {
	_, found := m.findSlot(key)
	return found
}

// Set inserts or updates key, growing (or reusing) capacity as needed.
// Returns Inserted for a brand-new key, Updated when key already existed.
func (m *Map[V]) Set(key string, value V) InsertResult {
	m.maybeRehash()
	idx, found := m.findSlot(key)
	if found {
		m.slots[idx].value = value
		return Updated
	}
	if idx < 0 {
		// Every slot was a live collision chain with no room; force growth.
		m.rehash(len(m.slots) * 2)
		idx, _ = m.findSlot(key)
	}
	m.slots[idx] = slot[V]{key: key, value: value, state: slotLive}
	m.order = append(m.order, key)
	m.live++
	return Inserted
}

// Delete clears key's slot to a tombstone. Per the open-addressing design
// this only clears the key (the probe chain must stay walkable). The live
// count is decremented and the key is removed from the insertion-order
// list; the tombstone stays in the table until the next rehash.
func (m *Map[V]) Delete(key string) bool {
	idx, found := m.findSlot(key)
	if !found {
		return false
	}
	m.slots[idx].key = ""
	m.slots[idx].state = slotTombstone
	m.live--
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// maybeRehash grows the table when the live-plus-incoming load would exceed
// loadFactor. Only live entries are counted: tombstones left by Delete do
// not trigger a rehash and are dropped only when one happens. The
// same-capacity branch (live below reuseThreshold of capacity) cannot be
// reached once the live load is above loadFactor, for any capacity of 8 or
// more, so in practice every rehash here doubles the capacity.
func (m *Map[V]) maybeRehash() {
	cap := len(m.slots)
	if float64(m.live+1) <= float64(cap)*loadFactor {
		return
	}
	if float64(m.live) < float64(cap)*reuseThreshold {
		m.rehash(cap)
		return
	}
	m.rehash(cap * 2)
}

func (m *Map[V]) rehash(newCap int) {
	old := m.slots
	m.slots = make([]slot[V], newCap)
	live := make([]slot[V], 0, m.live)
	for _, s := range old {
		if s.state == slotLive {
			live = append(live, s)
		}
	}
	for _, s := range live {
		idx, _ := m.findSlot(s.key)
		m.slots[idx] = slot[V]{key: s.key, value: s.value, state: slotLive}
	}
}

// Keys returns the live keys in insertion order.
func (m *Map[V]) Keys() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Range calls fn for every live entry in insertion order, matching Keys().
func (m *Map[V]) Range(fn func(key string, value V)) {
	for _, k := range m.order {
		v, ok := m.Get(k)
		if ok {
			fn(k, v)
		}
	}
}
