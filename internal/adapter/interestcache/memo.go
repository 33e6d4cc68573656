package interestcache

import "sync"

// memo is a bounded LRU of persisted (date, zone) values. A zone's value
// for a date is never rewritten once in the file, so a remembered value
// stays valid for the whole day.
type memo struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[memoKey]*memoEntry
	head       *memoEntry // most recently used
	tail       *memoEntry // least recently used
}

type memoKey struct {
	date string
	zone string
}

type memoEntry struct {
	key   memoKey
	value float64
	prev  *memoEntry
	next  *memoEntry
}

// newMemo returns nil for a non-positive size; a nil memo never hits.
func newMemo(maxEntries int) *memo {
	if maxEntries <= 0 {
		return nil
	}
	return &memo{
		maxEntries: maxEntries,
		entries:    make(map[memoKey]*memoEntry),
	}
}

func (m *memo) get(date, zone string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[memoKey{date, zone}]
	if !ok {
		return 0, false
	}
	m.moveToFront(e)
	return e.value, true
}

func (m *memo) put(date, zone string, value float64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoKey{date, zone}
	if e, ok := m.entries[key]; ok {
		e.value = value
		m.moveToFront(e)
		return
	}

	e := &memoEntry{key: key, value: value}
	m.entries[key] = e
	m.addToFront(e)

	if len(m.entries) > m.maxEntries {
		m.evictTail()
	}
}

func (m *memo) len() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *memo) moveToFront(e *memoEntry) {
	if e == m.head {
		return
	}
	m.remove(e)
	m.addToFront(e)
}

func (m *memo) addToFront(e *memoEntry) {
	e.next = m.head
	e.prev = nil
	if m.head != nil {
		m.head.prev = e
	}
	m.head = e
	if m.tail == nil {
		m.tail = e
	}
}

func (m *memo) remove(e *memoEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		m.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		m.tail = e.prev
	}
}

func (m *memo) evictTail() {
	if m.tail == nil {
		return
	}
	delete(m.entries, m.tail.key)
	m.remove(m.tail)
}
