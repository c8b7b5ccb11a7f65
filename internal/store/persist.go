package store

import "sync"

// Persister durably stores the full entry collection.
//
// Load returns an empty collection when nothing has been saved yet and a
// *CorruptStoreError when the saved data cannot be decoded. Save replaces the
// whole collection atomically: a reader never observes a partial write.
type Persister interface {
	Load() ([]Entry, error)
	Save(entries []Entry) error
	Location() string
}

// MemoryPersister keeps the collection in memory. Tests use FailWith to
// simulate a durable write that cannot complete.
type MemoryPersister struct {
	mu      sync.Mutex
	entries []Entry
	saves   int
	failErr error
}

// NewMemoryPersister returns a persister seeded with entries.
func NewMemoryPersister(entries ...Entry) *MemoryPersister {
	m := &MemoryPersister{}
	if len(entries) > 0 {
		m.entries = cloneAll(entries)
	}
	return m
}

func (m *MemoryPersister) Load() ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAll(m.entries), nil
}

func (m *MemoryPersister) Save(entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.entries = cloneAll(entries)
	m.saves++
	return nil
}

func (m *MemoryPersister) Location() string { return ":memory:" }

// FailWith makes every following Save return err. A nil err clears the failure.
func (m *MemoryPersister) FailWith(err error) {
	m.mu.Lock()
	m.failErr = err
	m.mu.Unlock()
}

// Saves returns how many Save calls succeeded.
func (m *MemoryPersister) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Entries returns a copy of what was last saved.
func (m *MemoryPersister) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAll(m.entries)
}

func cloneAll(entries []Entry) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.clone()
	}
	return out
}
