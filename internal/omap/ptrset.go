package omap

import "unsafe"

type ptrSlot[T any] struct {
	ptr   *T
	state slotState
}

// PtrSet is the pointer-identity counterpart of Map: an open-addressed,
// insertion-ordered set keyed by pointer identity rather than by string.
// The XPath evaluator's node-set accumulator (C11) is built on this so that
// adding the same *Node twice (e.g. via a union of overlapping paths) is a
// no-op, while iteration still yields nodes in the order they were first
// added (sorting into document order happens one layer up, in xpath).
type PtrSet[T any] struct {
	slots []ptrSlot[T]
	order []*T
	live  int
}

// NewPtrSet returns an empty PtrSet.
func NewPtrSet[T any]() *PtrSet[T] {
	return &PtrSet[T]{slots: make([]ptrSlot[T], initialCapacity)}
}

func identityHash(p unsafe.Pointer) uint64 {
	h := uint64(uintptr(p))
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return h
}

func (s *PtrSet[T]) findSlot(p *T) (idx int, found bool) {
	n := len(s.slots)
	h := int(identityHash(unsafe.Pointer(p)) % uint64(n))
	tomb := -1
	for i := 0; i < n; i++ {
		at := (h + i) % n
		slot := &s.slots[at]
		switch slot.state {
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
			if slot.ptr == p {
				return at, true
			}
		}
	}
	if tomb >= 0 {
		return tomb, false
	}
	return -1, false
}

// Contains reports whether p is a member.
func (s *PtrSet[T]) Contains(p *T) bool {
	_, found := s.findSlot(p)
	return found
}

// Add inserts p, returning true if it was not already present.
func (s *PtrSet[T]) Add(p *T) bool {
	s.maybeRehash()
	idx, found := s.findSlot(p)
	if found {
		return false
	}
	if idx < 0 {
		s.rehash(len(s.slots) * 2)
		idx, _ = s.findSlot(p)
	}
	s.slots[idx] = ptrSlot[T]{ptr: p, state: slotLive}
	s.order = append(s.order, p)
	s.live++
	return true
}

func (s *PtrSet[T]) maybeRehash() {
	cap := len(s.slots)
	if float64(s.live+1) <= float64(cap)*loadFactor {
		return
	}
	if float64(s.live) < float64(cap)*reuseThreshold {
		s.rehash(cap)
		return
	}
	s.rehash(cap * 2)
}

func (s *PtrSet[T]) rehash(newCap int) {
	old := s.slots
	s.slots = make([]ptrSlot[T], newCap)
	for _, slot := range old {
		if slot.state == slotLive {
			idx, _ := s.findSlot(slot.ptr)
			s.slots[idx] = ptrSlot[T]{ptr: slot.ptr, state: slotLive}
		}
	}
}

// Len returns the number of members.
func (s *PtrSet[T]) Len() int { return s.live }

// Items returns the members in insertion order.
func (s *PtrSet[T]) Items() []*T {
	out := make([]*T, len(s.order))
	copy(out, s.order)
	return out
}
