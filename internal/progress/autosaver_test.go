package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/emesedutech/cbt-akm/internal/model"
)

// countingStore wraps a MemoryStore and counts committed writes.
type countingStore struct {
	*MemoryStore
	mu      sync.Mutex
	writes  int
	failAll bool
}

func (s *countingStore) Save(ctx context.Context, key string, answers model.Answers) error {
	s.mu.Lock()
	fail := s.failAll
	if !fail {
		s.writes++
	}
	s.mu.Unlock()
	if fail {
		return context.DeadlineExceeded
	}
	return s.MemoryStore.Save(ctx, key, answers)
}

func (s *countingStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type statusLog struct {
	mu  sync.Mutex
	seq []SaveStatus
}

func (l *statusLog) record(s SaveStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq = append(l.seq, s)
}

func (l *statusLog) last() SaveStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.seq) == 0 {
		return ""
	}
	return l.seq[len(l.seq)-1]
}

func TestAutosaverCoalescesRapidEdits(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	key := Key(1, "EXAM01")
	statuses := &statusLog{}
	saver := NewAutosaver(store, key, 100*time.Millisecond, 50*time.Millisecond, statuses.record, zerolog.Nop())

	// Five edits inside the debounce window, each replacing the snapshot.
	for i := 0; i < 5; i++ {
		snapshot := model.Answers{"Q1": model.OptionAnswer(string(rune('a' + i)))}
		saver.Schedule(snapshot)
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(250 * time.Millisecond)

	if got := store.writeCount(); got != 1 {
		t.Fatalf("writes = %d, want exactly 1", got)
	}

	loaded, err := store.Load(context.Background(), key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded["Q1"].EqualsOption("e") {
		t.Errorf("persisted snapshot should hold the final edit, got %#v", loaded["Q1"])
	}
	if got := statuses.last(); got != StatusIdle {
		t.Errorf("final status = %q, want idle", got)
	}
}

func TestAutosaverFlushCancelsPendingWrite(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	key := Key(1, "EXAM01")
	saver := NewAutosaver(store, key, 80*time.Millisecond, 20*time.Millisecond, nil, zerolog.Nop())

	saver.Schedule(model.Answers{"Q1": model.OptionAnswer("stale")})
	if err := saver.Flush(context.Background(), model.Answers{"Q1": model.OptionAnswer("manual")}); err != nil {
		t.Fatalf("flush: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	if got := store.writeCount(); got != 1 {
		t.Fatalf("writes = %d, want only the manual save", got)
	}
	loaded, err := store.Load(context.Background(), key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded["Q1"].EqualsOption("manual") {
		t.Errorf("manual snapshot should win, got %#v", loaded["Q1"])
	}
}

func TestAutosaverCancelPreventsStaleWrite(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	saver := NewAutosaver(store, Key(1, "EXAM01"), 50*time.Millisecond, 20*time.Millisecond, nil, zerolog.Nop())

	saver.Schedule(model.Answers{"Q1": model.OptionAnswer("a")})
	saver.Cancel()

	time.Sleep(120 * time.Millisecond)

	if got := store.writeCount(); got != 0 {
		t.Fatalf("writes after cancel = %d, want 0", got)
	}
}

func TestAutosaverWriteFailureRevertsToIdle(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore(), failAll: true}
	statuses := &statusLog{}
	saver := NewAutosaver(store, Key(1, "EXAM01"), 30*time.Millisecond, 20*time.Millisecond, statuses.record, zerolog.Nop())

	saver.Schedule(model.Answers{"Q1": model.OptionAnswer("a")})
	time.Sleep(100 * time.Millisecond)

	if got := statuses.last(); got != StatusIdle {
		t.Fatalf("status after failed write = %q, want idle", got)
	}
}
