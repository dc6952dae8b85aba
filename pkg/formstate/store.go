package formstate

import (
	"sync"
	"time"
)

type storeKey struct {
	session  string
	formCode string
}

type storeEntry struct {
	state    *State
	lastSeen time.Time
}

// Store keeps open form states per (session, form code). Entries idle longer
// than the TTL are evicted lazily on access and by Sweep.
type Store struct {
	mu      sync.Mutex
	entries map[storeKey]*storeEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewStore builds a store with the given idle TTL (zero disables expiry).
func NewStore(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[storeKey]*storeEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the open state for a session/form pair.
func (s *Store) Get(sessionID, formCode string) (*State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := storeKey{session: sessionID, formCode: formCode}
	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.expired(entry, now) {
		delete(s.entries, key)
		return nil, false
	}
	entry.lastSeen = now
	return entry.state, true
}

// Put stores (or replaces) the state for a session/form pair.
func (s *Store) Put(sessionID, formCode string, state *State) {
	if state == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[storeKey{session: sessionID, formCode: formCode}] = &storeEntry{state: state, lastSeen: s.now()}
}

// Delete drops the state for a session/form pair.
func (s *Store) Delete(sessionID, formCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, storeKey{session: sessionID, formCode: formCode})
}

// Sweep evicts every expired entry and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if s.expired(entry, now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of open states.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) expired(entry *storeEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(entry.lastSeen) > s.ttl
}
