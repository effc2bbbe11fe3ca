package cache

import "time"

// nilIndex is the null link of the recency list.
const nilIndex = -1

// entry is one cached key/value pair plus its recency links.
//
// prev and next are arena indices rather than pointers; they are only ever
// touched by the store.
type entry struct {
	key       string
	value     string
	expiresAt time.Time

	prev int
	next int
}

// expired reports whether the entry's deadline has been reached at now.
func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.After(now)
}

// store is the entry index plus the recency list.
//
// Entries live in an arena slice. A removed entry's slot goes on the free
// list and is reused by the next insert, so the arena never holds more slots
// than the largest number of entries ever live at once.
//
// head is the most recently used entry, tail the least recently used.
// store is not safe for concurrent use; Cache serializes access to it.
type store struct {
	slots []entry
	free  []int
	index map[string]int

	head int
	tail int
}

func newStore(capacity int) *store {
	// Don't trust capacity for the up-front allocation; a generous cap
	// on an idle cache shouldn't cost memory.
	hint := capacity
	if hint > 1024 {
		hint = 1024
	}

	return &store{
		slots: make([]entry, 0, hint),
		index: make(map[string]int, hint),
		head:  nilIndex,
		tail:  nilIndex,
	}
}

func (s *store) len() int {
	return len(s.index)
}

// lookup returns the slot of key regardless of its expiry state.
func (s *store) lookup(key string) (int, bool) {
	idx, ok := s.index[key]
	return idx, ok
}

func (s *store) at(idx int) *entry {
	return &s.slots[idx]
}

// promote moves the entry at idx to the head of the recency list.
func (s *store) promote(idx int) {
	if idx == s.head {
		return
	}

	s.detach(idx)
	s.attachHead(idx)
}

// insert adds a new entry at the head. The caller guarantees key is absent.
func (s *store) insert(key, value string, expiresAt time.Time) int {
	e := entry{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
		prev:      nilIndex,
		next:      nilIndex,
	}

	var idx int
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
		s.slots[idx] = e
	} else {
		idx = len(s.slots)
		s.slots = append(s.slots, e)
	}

	s.attachHead(idx)
	s.index[key] = idx

	return idx
}

// evictTail removes the least recently used entry and returns a copy of it.
// The second return value is false if the store is empty.
func (s *store) evictTail() (entry, bool) {
	if s.tail == nilIndex {
		return entry{}, false
	}

	victim := *s.at(s.tail)
	s.remove(s.tail)

	return victim, true
}

// remove drops the entry at idx from both the list and the index.
func (s *store) remove(idx int) {
	s.detach(idx)
	delete(s.index, s.slots[idx].key)

	// Clear the slot so the strings can be collected before reuse.
	s.slots[idx] = entry{prev: nilIndex, next: nilIndex}
	s.free = append(s.free, idx)
}

// removeExpired walks the list from head to tail and removes every entry
// whose deadline has been reached at now. It returns the number removed.
func (s *store) removeExpired(now time.Time) int {
	removed := 0
	for idx := s.head; idx != nilIndex; {
		next := s.slots[idx].next
		if s.slots[idx].expired(now) {
			s.remove(idx)
			removed++
		}
		idx = next
	}

	return removed
}

// keys returns the stored keys in MRU -> LRU order.
func (s *store) keys() []string {
	out := make([]string, 0, s.len())
	for idx := s.head; idx != nilIndex; idx = s.slots[idx].next {
		out = append(out, s.slots[idx].key)
	}

	return out
}

func (s *store) attachHead(idx int) {
	e := &s.slots[idx]
	e.prev = nilIndex
	e.next = s.head

	if s.head != nilIndex {
		s.slots[s.head].prev = idx
	}
	s.head = idx

	if s.tail == nilIndex {
		s.tail = idx
	}
}

func (s *store) detach(idx int) {
	e := &s.slots[idx]

	if e.prev != nilIndex {
		s.slots[e.prev].next = e.next
	} else {
		s.head = e.next
	}

	if e.next != nilIndex {
		s.slots[e.next].prev = e.prev
	} else {
		s.tail = e.prev
	}

	e.prev = nilIndex
	e.next = nilIndex
}
