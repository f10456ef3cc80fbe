package submit

import (
	"sync"
)

// Store keeps prepared submissions in memory for later status lookups. The
// launcher is a preparation service, not a controller: submissions live for
// the lifetime of the process and are not persisted.
type Store struct {
	mu          sync.RWMutex
	submissions map[string]*Submission
}

// NewStore returns an empty submission store.
func NewStore() *Store {
	return &Store{submissions: map[string]*Submission{}}
}

// Put records a submission under its ID.
func (s *Store) Put(sub *Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[sub.ID] = sub
}

// Get returns the submission with the given ID, if present.
func (s *Store) Get(id string) (*Submission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	return sub, ok
}

// Len returns the number of stored submissions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.submissions)
}
