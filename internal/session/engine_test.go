package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emesedutech/cbt-akm/internal/model"
	"github.com/emesedutech/cbt-akm/internal/progress"
)

// recordingSink captures every outbound engine event for assertions.
type recordingSink struct {
	mu          sync.Mutex
	states      []State
	ticks       []int
	statuses    []progress.SaveStatus
	suspensions []Signal
	fullscreen  int
	finishes    []FinishEvent
}

func (s *recordingSink) StateChanged(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, st)
}

func (s *recordingSink) TimeRemaining(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks = append(s.ticks, seconds)
}

func (s *recordingSink) SaveStatusChanged(status progress.SaveStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
}

func (s *recordingSink) SessionSuspended(sig Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspensions = append(s.suspensions, sig)
}

func (s *recordingSink) FullscreenRequested() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fullscreen++
}

func (s *recordingSink) SessionFinished(ev FinishEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishes = append(s.finishes, ev)
}

func (s *recordingSink) finishCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.finishes)
}

func (s *recordingSink) lastFinish(t *testing.T) FinishEvent {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.finishes) == 0 {
		t.Fatal("no finish event recorded")
	}
	return s.finishes[len(s.finishes)-1]
}

func testPaper(n int, seconds int, randomize bool) *model.ExamPaper {
	questions := make([]model.PaperQuestion, n)
	for i := range questions {
		questions[i] = model.PaperQuestion{
			ID:           uuid.New().String(),
			Type:         model.QuestionTypeShortAnswer,
			QuestionText: "q",
		}
	}
	return &model.ExamPaper{
		ExamID:          uuid.New(),
		Title:           "Geography Basics",
		DurationSeconds: seconds,
		Randomize:       randomize,
		Questions:       questions,
	}
}

func newTestEngine(paper *model.ExamPaper, store progress.Store, sink Sink) *Engine {
	return NewEngine(Config{
		Paper:          paper,
		StudentID:      7,
		Store:          store,
		Sink:           sink,
		DebounceWindow: 30 * time.Millisecond,
		StatusWindow:   20 * time.Millisecond,
		TickInterval:   20 * time.Millisecond,
		Rand:           rand.New(rand.NewSource(1)),
		Logger:         zerolog.Nop(),
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEngineShuffleIsStablePermutation(t *testing.T) {
	paper := testPaper(12, 600, true)

	e := newTestEngine(paper, progress.NewMemoryStore(), &recordingSink{})
	e.Start(context.Background())

	order := e.Snapshot().QuestionOrder
	if len(order) != 12 {
		t.Fatalf("order has %d ids, want 12", len(order))
	}
	seen := make(map[string]bool, len(order))
	canonical := make(map[string]bool, len(paper.Questions))
	for _, q := range paper.Questions {
		canonical[q.ID] = true
	}
	for _, id := range order {
		if seen[id] {
			t.Fatalf("duplicate id %s in shuffled order", id)
		}
		if !canonical[id] {
			t.Fatalf("unknown id %s in shuffled order", id)
		}
		seen[id] = true
	}

	// The order is fixed at construction and never reshuffled.
	later := e.Snapshot().QuestionOrder
	for i := range order {
		if later[i] != order[i] {
			t.Fatal("question order changed between snapshots")
		}
	}
}

func TestEngineFreshStartGoesActive(t *testing.T) {
	paper := testPaper(3, 600, false)
	sink := &recordingSink{}

	e := newTestEngine(paper, progress.NewMemoryStore(), sink)
	e.Start(context.Background())

	st := e.Snapshot()
	if st.Phase != PhaseActive {
		t.Fatalf("phase = %s, want %s", st.Phase, PhaseActive)
	}
	if st.SecondsRemaining != 600 {
		t.Fatalf("seconds remaining = %d, want 600", st.SecondsRemaining)
	}
	if st.CurrentIndex != 0 {
		t.Fatalf("current index = %d, want 0", st.CurrentIndex)
	}
	if st.UnansweredCount != 3 || st.AnsweredCount != 0 {
		t.Fatalf("counts = %d answered / %d unanswered, want 0/3", st.AnsweredCount, st.UnansweredCount)
	}
}

func TestEngineResumeRestoresOnlyKnownAnswers(t *testing.T) {
	ctx := context.Background()
	paper := testPaper(3, 600, false)
	store := progress.NewMemoryStore()

	saved := model.Answers{
		paper.Questions[0].ID: model.OptionAnswer("Jakarta"),
		paper.Questions[2].ID: model.OptionSetAnswer([]string{"A", "B"}),
		"Q-removed":           model.OptionAnswer("stale"),
	}
	key := progress.Key(7, paper.ExamID.String())
	if err := store.Save(ctx, key, saved); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	e := newTestEngine(paper, store, &recordingSink{})
	e.Start(ctx)

	if got := e.Snapshot().Phase; got != PhaseAwaitingResume {
		t.Fatalf("phase = %s, want %s", got, PhaseAwaitingResume)
	}

	// Answers cannot be mutated before the decision is made.
	e.Handle(ctx, AnswerEvent{QuestionID: paper.Questions[0].ID, Answer: model.OptionAnswer("early")})
	if got := e.Snapshot().AnsweredCount; got != 0 {
		t.Fatalf("answered before resume decision: %d", got)
	}

	e.Handle(ctx, ResumeEvent{Restore: true})

	st := e.Snapshot()
	if st.Phase != PhaseActive {
		t.Fatalf("phase = %s, want %s", st.Phase, PhaseActive)
	}
	if st.SecondsRemaining != 600 {
		t.Fatalf("resume must restart the clock, got %d remaining", st.SecondsRemaining)
	}
	if st.AnsweredCount != 2 {
		t.Fatalf("answered = %d, want 2", st.AnsweredCount)
	}
	if _, ok := st.Answers["Q-removed"]; ok {
		t.Fatal("answer for a question no longer on the paper was adopted")
	}
	if got := st.Answers[paper.Questions[0].ID].Option(); got != "Jakarta" {
		t.Fatalf("restored answer = %q, want %q", got, "Jakarta")
	}
}

func TestEngineRestartDiscardsSavedSlot(t *testing.T) {
	ctx := context.Background()
	paper := testPaper(2, 600, false)
	store := progress.NewMemoryStore()

	key := progress.Key(7, paper.ExamID.String())
	seed := model.Answers{paper.Questions[0].ID: model.OptionAnswer("x")}
	if err := store.Save(ctx, key, seed); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	e := newTestEngine(paper, store, &recordingSink{})
	e.Start(ctx)
	e.Handle(ctx, ResumeEvent{Restore: false})

	st := e.Snapshot()
	if st.Phase != PhaseActive {
		t.Fatalf("phase = %s, want %s", st.Phase, PhaseActive)
	}
	if st.AnsweredCount != 0 {
		t.Fatalf("answered = %d after restart, want 0", st.AnsweredCount)
	}
	if _, err := store.Load(ctx, key); !errors.Is(err, progress.ErrNoProgress) {
		t.Fatalf("saved slot survived restart: err = %v", err)
	}
}

func TestEngineAnswerMutatesOnlyCurrentQuestion(t *testing.T) {
	ctx := context.Background()
	paper := testPaper(3, 600, false)

	e := newTestEngine(paper, progress.NewMemoryStore(), &recordingSink{})
	e.Start(ctx)

	// Not the current question: ignored.
	e.Handle(ctx, AnswerEvent{QuestionID: paper.Questions[1].ID, Answer: model.OptionAnswer("sneak")})
	if got := e.Snapshot().AnsweredCount; got != 0 {
		t.Fatalf("non-current answer landed, answered = %d", got)
	}

	e.Handle(ctx, AnswerEvent{QuestionID: paper.Questions[0].ID, Answer: model.OptionAnswer("ok")})
	e.Handle(ctx, NavigateEvent{Index: 1})
	e.Handle(ctx, AnswerEvent{QuestionID: paper.Questions[1].ID, Answer: model.OptionAnswer("now fine")})

	st := e.Snapshot()
	if st.AnsweredCount != 2 {
		t.Fatalf("answered = %d, want 2", st.AnsweredCount)
	}
	if st.CurrentIndex != 1 {
		t.Fatalf("current index = %d, want 1", st.CurrentIndex)
	}
}

func TestEngineNavigationIgnoresOutOfRange(t *testing.T) {
	ctx := context.Background()
	paper := testPaper(3, 600, false)

	e := newTestEngine(paper, progress.NewMemoryStore(), &recordingSink{})
	e.Start(ctx)
	e.Handle(ctx, NavigateEvent{Index: 2})

	e.Handle(ctx, NavigateEvent{Index: -1})
	e.Handle(ctx, NavigateEvent{Index: 3})

	if got := e.Snapshot().CurrentIndex; got != 2 {
		t.Fatalf("current index = %d, want 2", got)
	}
}

func TestEngineAutosavePersistsAfterDebounce(t *testing.T) {
	ctx := context.Background()
	paper := testPaper(2, 600, false)
	store := progress.NewMemoryStore()
	sink := &recordingSink{}

	e := newTestEngine(paper, store, sink)
	e.Start(ctx)

	qid := paper.Questions[0].ID
	e.Handle(ctx, AnswerEvent{QuestionID: qid, Answer: model.OptionAnswer("draft")})
	e.Handle(ctx, AnswerEvent{QuestionID: qid, Answer: model.OptionAnswer("final")})

	key := progress.Key(7, paper.ExamID.String())
	waitFor(t, "debounced write", func() bool {
		saved, err := store.Load(ctx, key)
		return err == nil && saved[qid].Option() == "final"
	})
}

func TestEngineSuspendAndAcknowledge(t *testing.T) {
	ctx := context.Background()
	paper := testPaper(2, 600, false)
	sink := &recordingSink{}

	e := newTestEngine(paper, progress.NewMemoryStore(), sink)
	e.Start(ctx)

	e.Handle(ctx, SignalEvent{Signal: SignalFullscreenLost})
	if got := e.Snapshot().Phase; got != PhaseSuspended {
		t.Fatalf("phase = %s, want %s", got, PhaseSuspended)
	}

	// Suspended sessions accept no answer or navigation mutations.
	e.Handle(ctx, AnswerEvent{QuestionID: paper.Questions[0].ID, Answer: model.OptionAnswer("x")})
	e.Handle(ctx, NavigateEvent{Index: 1})
	st := e.Snapshot()
	if st.AnsweredCount != 0 || st.CurrentIndex != 0 {
		t.Fatalf("suspended session mutated: answered=%d index=%d", st.AnsweredCount, st.CurrentIndex)
	}

	// A second signal while suspended is still counted but changes nothing.
	e.Handle(ctx, SignalEvent{Signal: SignalVisibilityHidden})
	if got := e.Violations(); got != 2 {
		t.Fatalf("violations = %d, want 2", got)
	}

	e.Handle(ctx, AcknowledgeEvent{})
	if got := e.Snapshot().Phase; got != PhaseActive {
		t.Fatalf("phase = %s after acknowledge, want %s", got, PhaseActive)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.suspensions) != 1 || sink.suspensions[0] != SignalFullscreenLost {
		t.Fatalf("suspensions = %v, want one fullscreen_lost", sink.suspensions)
	}
	if sink.fullscreen != 1 {
		t.Fatalf("fullscreen requests = %d, want 1", sink.fullscreen)
	}
}

func TestEngineCountdownKeepsRunningWhileSuspended(t *testing.T) {
	ctx := context.Background()
	paper := testPaper(2, 600, false)
	sink := &recordingSink{}

	e := newTestEngine(paper, progress.NewMemoryStore(), sink)
	e.Start(ctx)
	e.Handle(ctx, SignalEvent{Signal: SignalVisibilityHidden})

	waitFor(t, "ticks while suspended", func() bool {
		return e.Snapshot().SecondsRemaining < 600
	})
	if got := e.Snapshot().Phase; got != PhaseSuspended {
		t.Fatalf("phase = %s, want %s", got, PhaseSuspended)
	}
}

func TestEngineTimeoutFinishesExactlyOnce(t *testing.T) {
	ctx := context.Background()
	paper := testPaper(2, 2, false)
	store := progress.NewMemoryStore()
	sink := &recordingSink{}

	e := newTestEngine(paper, store, sink)
	e.Start(ctx)

	qid := paper.Questions[0].ID
	e.Handle(ctx, AnswerEvent{QuestionID: qid, Answer: model.OptionAnswer("kept")})

	waitFor(t, "timeout finish", func() bool { return e.Finished() })

	// A late submit after expiry must not produce a second finish.
	e.Handle(ctx, SubmitEvent{})
	time.Sleep(50 * time.Millisecond)

	if got := sink.finishCount(); got != 1 {
		t.Fatalf("finish events = %d, want 1", got)
	}
	fin := sink.lastFinish(t)
	if !fin.TimedOut {
		t.Fatal("finish not marked as timed out")
	}
	if got := fin.Answers[qid].Option(); got != "kept" {
		t.Fatalf("finish answers lost the submission: %q", got)
	}
	if fin.SecondsElapsed != paper.DurationSeconds {
		t.Fatalf("elapsed = %d, want %d", fin.SecondsElapsed, paper.DurationSeconds)
	}

	key := progress.Key(7, paper.ExamID.String())
	if _, err := store.Load(ctx, key); !errors.Is(err, progress.ErrNoProgress) {
		t.Fatalf("saved slot survived finish: err = %v", err)
	}
}

func TestEngineSubmitFinishesAndClearsSlot(t *testing.T) {
	ctx := context.Background()
	paper := testPaper(2, 600, false)
	store := progress.NewMemoryStore()
	sink := &recordingSink{}

	e := newTestEngine(paper, store, sink)
	e.Start(ctx)

	qid := paper.Questions[0].ID
	e.Handle(ctx, AnswerEvent{QuestionID: qid, Answer: model.OptionAnswer("done")})
	e.Handle(ctx, SubmitEvent{})

	if !e.Finished() {
		t.Fatal("engine not finished after submit")
	}
	fin := sink.lastFinish(t)
	if fin.TimedOut {
		t.Fatal("manual submit marked as timed out")
	}
	if fin.StudentID != 7 || fin.ExamID != paper.ExamID.String() {
		t.Fatalf("finish identity = student %d exam %s", fin.StudentID, fin.ExamID)
	}

	// The pending debounced write was cancelled before the slot was cleared,
	// so no stale snapshot can reappear afterwards.
	time.Sleep(80 * time.Millisecond)
	key := progress.Key(7, paper.ExamID.String())
	if _, err := store.Load(ctx, key); !errors.Is(err, progress.ErrNoProgress) {
		t.Fatalf("stale progress written after finish: err = %v", err)
	}

	// All post-finish events are ignored.
	e.Handle(ctx, AnswerEvent{QuestionID: qid, Answer: model.OptionAnswer("late")})
	e.Handle(ctx, SubmitEvent{})
	if got := sink.finishCount(); got != 1 {
		t.Fatalf("finish events = %d, want 1", got)
	}
}

func TestEngineExpiryReleasesManagerEntry(t *testing.T) {
	paper := testPaper(1, 1, false)
	m := NewManager()

	factory := func() (*Engine, error) {
		return NewEngine(Config{
			Paper:        paper,
			StudentID:    7,
			Store:        progress.NewMemoryStore(),
			Sink:         &recordingSink{},
			TickInterval: 10 * time.Millisecond,
			OnFinish:     func() { m.Remove(7, paper.ExamID.String()) },
			Rand:         rand.New(rand.NewSource(1)),
			Logger:       zerolog.Nop(),
		}), nil
	}

	e, created, err := m.Attach(7, paper.ExamID.String(), factory)
	if err != nil || !created {
		t.Fatalf("attach: created=%v err=%v", created, err)
	}
	e.Start(context.Background())

	// No client is connected; expiry alone must drop the live entry so a
	// finished attempt cannot linger in the manager until restart.
	waitFor(t, "manager entry released", func() bool { return m.Len() == 0 })
	if !e.Finished() {
		t.Fatal("engine not finished after expiry")
	}
}

func TestEngineSubmitRunsOnFinishExactlyOnce(t *testing.T) {
	ctx := context.Background()
	paper := testPaper(1, 600, false)

	var calls int
	e := NewEngine(Config{
		Paper:        paper,
		StudentID:    7,
		Store:        progress.NewMemoryStore(),
		Sink:         &recordingSink{},
		TickInterval: 20 * time.Millisecond,
		OnFinish:     func() { calls++ },
		Rand:         rand.New(rand.NewSource(1)),
		Logger:       zerolog.Nop(),
	})
	e.Start(ctx)

	e.Handle(ctx, SubmitEvent{})
	e.Handle(ctx, SubmitEvent{})

	if calls != 1 {
		t.Fatalf("OnFinish ran %d times, want 1", calls)
	}
}

func TestManagerSingleEnginePerAttempt(t *testing.T) {
	paper := testPaper(1, 600, false)
	m := NewManager()

	factory := func() (*Engine, error) {
		return newTestEngine(paper, progress.NewMemoryStore(), &recordingSink{}), nil
	}

	e1, created, err := m.Attach(7, paper.ExamID.String(), factory)
	if err != nil || !created {
		t.Fatalf("first attach: created=%v err=%v", created, err)
	}
	e2, created, err := m.Attach(7, paper.ExamID.String(), factory)
	if err != nil || created {
		t.Fatalf("second attach: created=%v err=%v", created, err)
	}
	if e1 != e2 {
		t.Fatal("second attach returned a different engine")
	}

	if _, created, _ := m.Attach(8, paper.ExamID.String(), factory); !created {
		t.Fatal("different student should get a fresh engine")
	}
	if got := m.Len(); got != 2 {
		t.Fatalf("live engines = %d, want 2", got)
	}

	m.Remove(7, paper.ExamID.String())
	if _, ok := m.Get(7, paper.ExamID.String()); ok {
		t.Fatal("engine still present after Remove")
	}
}
