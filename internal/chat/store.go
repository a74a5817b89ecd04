package chat

import (
	"sync"

	"savvybot-backend/internal/models"
)

// Store is the ordered message list of the active conversation. It is only ever
// changed by id, so concurrent completions can't overwrite each other.
type Store struct {
	mu   sync.RWMutex
	msgs []models.Message
}

// Append adds m to the end of the list.
func (s *Store) Append(m models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, m)
}

// Replace swaps the message with the given id for m, keeping its position.
// It reports whether id was found.
func (s *Store) Replace(id string, m models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.msgs {
		if s.msgs[i].ID == id {
			s.msgs[i] = m
			return true
		}
	}
	return false
}

// Remove deletes the message with the given id. It reports whether id was found.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.msgs {
		if s.msgs[i].ID == id {
			s.msgs = append(s.msgs[:i], s.msgs[i+1:]...)
			return true
		}
	}
	return false
}

// Messages returns a copy of the list.
func (s *Store) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.msgs...)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}

// fillIfEmpty sets the list to msgs only if nothing has been appended yet.
func (s *Store) fillIfEmpty(msgs []models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.msgs) > 0 {
		return false
	}
	s.msgs = append([]models.Message(nil), msgs...)
	return true
}
