package session

import (
	"fmt"
	"sync"
)

// Manager tracks at most one live engine per (student, exam) pair.
type Manager struct {
	mu      sync.Mutex
	engines map[string]*Engine
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{engines: make(map[string]*Engine)}
}

func attemptKey(studentID int, examID string) string {
	return fmt.Sprintf("%d:%s", studentID, examID)
}

// Attach returns the live engine for the pair, creating one through factory
// if none exists. The second return value reports whether a new engine was
// created; the factory runs under the manager's lock so concurrent attaches
// cannot race into two engines for the same attempt.
func (m *Manager) Attach(studentID int, examID string, factory func() (*Engine, error)) (*Engine, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := attemptKey(studentID, examID)
	if e, ok := m.engines[key]; ok {
		return e, false, nil
	}

	e, err := factory()
	if err != nil {
		return nil, false, err
	}
	m.engines[key] = e
	return e, true, nil
}

// Get returns the live engine for the pair, if any.
func (m *Manager) Get(studentID int, examID string) (*Engine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.engines[attemptKey(studentID, examID)]
	return e, ok
}

// Remove discards the engine for the pair. Called after finish so a new
// attempt starts from a fresh engine.
func (m *Manager) Remove(studentID int, examID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.engines, attemptKey(studentID, examID))
}

// Len reports the number of live engines.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.engines)
}
