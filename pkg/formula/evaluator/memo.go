package evaluator

import (
	"sync"
	"sync/atomic"
)

// MemoEntry is a memoized evaluation outcome.
type MemoEntry struct {
	Value any
	Err   error
}

type memoKey struct {
	recordID   string
	expression string
}

// Memo memoizes evaluation results per (record, expression) for the
// lifetime of one evaluation pass. It is safe for concurrent use.
type Memo struct {
	mu      sync.Mutex
	entries map[memoKey]MemoEntry
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewMemo creates an empty memo.
func NewMemo() *Memo {
	return &Memo{
		entries: make(map[memoKey]MemoEntry),
	}
}

// Get returns the memoized outcome for the record and expression.
func (m *Memo) Get(recordID, expression string) (MemoEntry, bool) {
	m.mu.Lock()
	entry, ok := m.entries[memoKey{recordID, expression}]
	m.mu.Unlock()

	if ok {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	return entry, ok
}

// Put stores an outcome for the record and expression.
func (m *Memo) Put(recordID, expression string, value any, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[memoKey{recordID, expression}] = MemoEntry{Value: value, Err: err}
}

// Reset drops every entry. Hit and miss counters are kept.
func (m *Memo) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[memoKey]MemoEntry)
}

// Len returns the number of memoized outcomes.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Stats returns the lookup hit and miss counts since creation.
func (m *Memo) Stats() (hits, misses uint64) {
	return m.hits.Load(), m.misses.Load()
}

// Forget drops every outcome memoized for recordID. Callers use it after
// changing a field of the record mid-pass.
func (m *Memo) Forget(recordID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if k.recordID == recordID {
			delete(m.entries, k)
		}
	}
}
