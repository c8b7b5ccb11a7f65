package store

import (
	"fmt"
	"iter"
	"sync"
)

// Store owns the journal for the lifetime of the process. It is loaded once
// and every mutation rewrites the whole collection through its Persister.
//
// All writers are serialized by a single mutex, and the durable write happens
// while that mutex is held, so memory and disk never diverge: a failed write
// leaves the in-memory collection exactly as it was before the call.
type Store struct {
	mu      sync.Mutex
	p       Persister
	entries []Entry
}

// Open loads the persisted collection. A *CorruptStoreError is returned as is
// so callers can refuse to start.
func Open(p Persister) (*Store, error) {
	entries, err := p.Load()
	if err != nil {
		return nil, err
	}
	return &Store{p: p, entries: entries}, nil
}

// Location describes where the journal is persisted.
func (s *Store) Location() string { return s.p.Location() }

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Append adds e at the end of the collection and persists. The timestamp is
// stored in UTC at second precision and never goes backwards in insertion
// order: an entry older than the last one is stamped with the last entry's
// time. An echo's tags are reduced to a set.
func (s *Store) Append(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e = e.clone()
	e.Timestamp = normalizeTime(e.Timestamp)
	if e.Kind == KindEcho {
		e.Tags = uniqueTags(e.Tags)
	}
	if n := len(s.entries); n > 0 && e.Timestamp.Before(s.entries[n-1].Timestamp) {
		e.Timestamp = s.entries[n-1].Timestamp
	}

	next := make([]Entry, len(s.entries), len(s.entries)+1)
	copy(next, s.entries)
	next = append(next, e)

	if err := s.p.Save(next); err != nil {
		return &PersistenceError{Op: "append", Err: err}
	}
	s.entries = next
	return nil
}

// Mutate applies transform to every entry matching match and persists the
// result. It returns how many entries were transformed. Kind, ID and
// Timestamp are owned by the store and cannot be changed by transform.
func (s *Store) Mutate(match func(Entry) bool, transform func(Entry) Entry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]Entry, len(s.entries))
	count := 0
	for i, e := range s.entries {
		if !match(e) {
			next[i] = e
			continue
		}
		t := transform(e.clone())
		t.ID, t.Kind, t.Timestamp = e.ID, e.Kind, e.Timestamp
		if e.Kind == KindHoard && e.Status == StatusExpired && t.Status != StatusExpired {
			return 0, fmt.Errorf("mutate %s: status cannot leave %s", e.ID, StatusExpired)
		}
		next[i] = t
		count++
	}
	if count == 0 {
		return 0, nil
	}

	if err := s.p.Save(next); err != nil {
		return 0, &PersistenceError{Op: "mutate", Err: err}
	}
	s.entries = next
	return count, nil
}

// Clear empties the collection, persists, and returns the prior size.
func (s *Store) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.p.Save([]Entry{}); err != nil {
		return 0, &PersistenceError{Op: "clear", Err: err}
	}
	n := len(s.entries)
	s.entries = []Entry{}
	return n, nil
}

// Query returns the entries matching match, in insertion order. Each range
// over the sequence reads a fresh point-in-time snapshot, so the sequence is
// restartable and never observes a half-applied mutation. A nil match
// selects everything.
func (s *Store) Query(match func(Entry) bool) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, e := range s.Snapshot() {
			if match != nil && !match(e) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Snapshot returns a copy of the whole collection.
func (s *Store) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.entries)
}

// Get returns the entry with the given ID.
func (s *Store) Get(id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e.clone(), nil
		}
	}
	return Entry{}, ErrNotFound
}
