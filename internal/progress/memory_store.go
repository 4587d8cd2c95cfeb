package progress

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/emesedutech/cbt-akm/internal/model"
)

// MemoryStore is an in-process Store for tests and single-node development.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string][]byte)}
}

// Save stores a JSON snapshot of the answers.
func (s *MemoryStore) Save(_ context.Context, key string, answers model.Answers) error {
	data, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = data
	return nil
}

// Load reads the slot back, deleting corrupt entries like the Redis store.
func (s *MemoryStore) Load(_ context.Context, key string) (model.Answers, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.slots[key]
	if !ok {
		return nil, ErrNoProgress
	}

	var answers model.Answers
	if err := json.Unmarshal(data, &answers); err != nil {
		delete(s.slots, key)
		return nil, ErrNoProgress
	}
	return answers, nil
}

// Clear deletes the slot.
func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, key)
	return nil
}
