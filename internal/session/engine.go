// Package session holds the exam-taking state machine and its two timers.
// One Engine owns one attempt's mutable state; the countdown, the autosaver
// and the integrity monitor only signal events in, never mutate directly.
package session

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/emesedutech/cbt-akm/internal/model"
	"github.com/emesedutech/cbt-akm/internal/progress"
)

// Phase is the engine's lifecycle state.
type Phase string

const (
	PhaseInitializing   Phase = "INITIALIZING"
	PhaseAwaitingResume Phase = "AWAITING_RESUME_DECISION"
	PhaseActive         Phase = "ACTIVE"
	PhaseSuspended      Phase = "SUSPENDED"
	PhaseFinished       Phase = "FINISHED"
)

// State is a read-only snapshot of the session for transport layers.
type State struct {
	ExamID           string        `json:"exam_id"`
	Phase            Phase         `json:"phase"`
	QuestionOrder    []string      `json:"question_order"`
	CurrentIndex     int           `json:"current_index"`
	Answers          model.Answers `json:"answers"`
	SecondsRemaining int           `json:"seconds_remaining"`
	TotalQuestions   int           `json:"total_questions"`
	AnsweredCount    int           `json:"answered_count"`
	UnansweredCount  int           `json:"unanswered_count"`
}

// FinishEvent is emitted exactly once when the attempt ends.
type FinishEvent struct {
	ExamID           string
	StudentID        int
	Answers          model.Answers
	SecondsRemaining int
	SecondsElapsed   int
	TimedOut         bool
}

// Sink receives the engine's outbound events. Implementations must not call
// back into the engine from within a callback.
type Sink interface {
	StateChanged(s State)
	TimeRemaining(seconds int)
	SaveStatusChanged(status progress.SaveStatus)
	SessionSuspended(sig Signal)
	FullscreenRequested()
	SessionFinished(ev FinishEvent)
}

// Config assembles an Engine's collaborators and tuning knobs.
type Config struct {
	Paper     *model.ExamPaper
	StudentID int
	Store     progress.Store
	Sink      Sink
	Recorder  Recorder // optional

	// OnFinish runs exactly once when the attempt reaches its terminal
	// phase, after the finish event is delivered. Optional. Owners use it
	// to drop their reference to the engine even when nothing is connected.
	OnFinish func()

	DebounceWindow time.Duration // default 1500ms
	StatusWindow   time.Duration // default 2s
	TickInterval   time.Duration // default 1s

	Rand   *rand.Rand // optional, deterministic shuffles in tests
	Logger zerolog.Logger
}

// Engine is the session state machine for one attempt.
type Engine struct {
	mu sync.Mutex

	paper     *model.ExamPaper
	studentID int
	key       string

	phase     Phase
	order     []string
	index     int
	answers   model.Answers
	remaining int
	saved     model.Answers // pending resume decision
	startedAt time.Time

	store     progress.Store
	saver     *progress.Autosaver
	monitor   *Monitor
	countdown *Countdown
	sink      Sink
	onFinish  func()

	tickInterval time.Duration
	log          zerolog.Logger
}

// NewEngine builds an engine in the Initializing phase: the question order
// is fixed here (shuffled when the exam asks for it) and stays fixed for
// the life of the attempt.
func NewEngine(cfg Config) *Engine {
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = 1500 * time.Millisecond
	}
	if cfg.StatusWindow <= 0 {
		cfg.StatusWindow = 2 * time.Second
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}

	e := &Engine{
		paper:        cfg.Paper,
		studentID:    cfg.StudentID,
		key:          progress.Key(cfg.StudentID, cfg.Paper.ExamID.String()),
		phase:        PhaseInitializing,
		answers:      make(model.Answers),
		remaining:    cfg.Paper.DurationSeconds,
		store:        cfg.Store,
		sink:         cfg.Sink,
		onFinish:     cfg.OnFinish,
		tickInterval: cfg.TickInterval,
		log: cfg.Logger.With().
			Str("component", "session_engine").
			Str("exam_id", cfg.Paper.ExamID.String()).
			Int("student_id", cfg.StudentID).
			Logger(),
	}

	e.order = cfg.Paper.QuestionIDs()
	if cfg.Paper.Randomize {
		r := cfg.Rand
		if r == nil {
			r = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		fisherYates(e.order, r)
	}

	e.saver = progress.NewAutosaver(
		cfg.Store, e.key, cfg.DebounceWindow, cfg.StatusWindow,
		e.sink.SaveStatusChanged, cfg.Logger,
	)
	e.monitor = NewMonitor(
		cfg.Paper.ExamID.String(), cfg.StudentID, cfg.Recorder,
		e.onViolation, cfg.Logger,
	)

	return e
}

// fisherYates shuffles ids in place: backward iteration, swapping index i
// with a uniformly chosen index in [0, i].
func fisherYates(ids []string, r *rand.Rand) {
	for i := len(ids) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}
}

// Start checks the persisted slot and either enters the resume decision or
// begins the attempt. Must be called exactly once, before any Handle call.
func (e *Engine) Start(ctx context.Context) {
	saved, err := e.store.Load(ctx, e.key)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err == nil && len(saved) > 0 {
		e.saved = saved
		e.phase = PhaseAwaitingResume
		e.log.Info().Int("answers", len(saved)).Msg("Saved progress found, awaiting resume decision")
		e.sink.StateChanged(e.snapshotLocked())
		return
	}

	e.beginLocked()
}

// Handle applies one inbound event. Events are processed to completion
// under the engine's lock, so no handler is ever re-entered.
func (e *Engine) Handle(ctx context.Context, ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev := ev.(type) {
	case ResumeEvent:
		e.resumeLocked(ctx, ev.Restore)
	case NavigateEvent:
		e.navigateLocked(ev.Index)
	case AnswerEvent:
		e.answerLocked(ev.QuestionID, ev.Answer)
	case ManualSaveEvent:
		e.manualSaveLocked(ctx)
	case SignalEvent:
		e.signalLocked(ctx, ev.Signal, ev.Detail)
	case AcknowledgeEvent:
		e.acknowledgeLocked()
	case SubmitEvent:
		e.finishLocked(false)
	default:
		e.log.Warn().Msgf("Unhandled event %T", ev)
	}
}

// Snapshot returns the current state for status displays and reconnects.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Finished reports whether the attempt has reached its terminal phase.
func (e *Engine) Finished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase == PhaseFinished
}

// Violations exposes the monitor's violation count.
func (e *Engine) Violations() int {
	return e.monitor.Violations()
}

// ─── Internal transitions (all called with e.mu held) ───────────────────

// beginLocked enters Active and starts the countdown. Resuming always
// restarts the clock from the exam's full duration: elapsed wall time is
// not trusted across a resume.
func (e *Engine) beginLocked() {
	e.phase = PhaseActive
	e.startedAt = time.Now()
	e.countdown = NewCountdown(e.remaining, e.tickInterval, e.onTick, e.onExpire)
	e.countdown.Start()
	e.log.Info().Int("seconds", e.remaining).Int("questions", len(e.order)).Msg("Session active")
	e.sink.StateChanged(e.snapshotLocked())
}

func (e *Engine) resumeLocked(ctx context.Context, restore bool) {
	if e.phase != PhaseAwaitingResume {
		return
	}

	if restore {
		// Only adopt answers for questions still on the paper, keeping the
		// invariant that answer keys are a subset of the question order.
		known := make(map[string]bool, len(e.order))
		for _, id := range e.order {
			known[id] = true
		}
		for id, a := range e.saved {
			if known[id] {
				e.answers[id] = a
			}
		}
		e.log.Info().Int("restored", len(e.answers)).Msg("Progress restored")
	} else {
		if err := e.store.Clear(ctx, e.key); err != nil {
			e.log.Warn().Err(err).Msg("Discarding saved progress failed")
		}
		e.log.Info().Msg("Saved progress discarded, starting clean")
	}

	e.saved = nil
	e.beginLocked()
}

func (e *Engine) navigateLocked(index int) {
	if e.phase != PhaseActive {
		return
	}
	if index < 0 || index >= len(e.order) {
		return
	}
	e.index = index
	e.sink.StateChanged(e.snapshotLocked())
}

func (e *Engine) answerLocked(questionID string, a model.Answer) {
	if e.phase != PhaseActive {
		return
	}
	if len(e.order) == 0 || questionID != e.order[e.index] {
		// Only the currently displayed question is mutable.
		e.log.Debug().Str("q_id", questionID).Msg("Ignoring answer for non-current question")
		return
	}

	e.answers[questionID] = a
	e.saver.Schedule(e.answers.Clone())
	e.sink.StateChanged(e.snapshotLocked())
}

func (e *Engine) manualSaveLocked(ctx context.Context) {
	if e.phase != PhaseActive {
		return
	}
	// Best-effort: a failed write is logged by the autosaver and the live
	// session remains authoritative.
	_ = e.saver.Flush(ctx, e.answers.Clone())
}

func (e *Engine) signalLocked(ctx context.Context, sig Signal, detail string) {
	if e.phase != PhaseActive && e.phase != PhaseSuspended {
		return
	}
	e.monitor.Report(ctx, sig, detail)
}

// onViolation runs inside Monitor.Report, which the engine only invokes
// while already holding its lock.
func (e *Engine) onViolation(sig Signal) {
	if e.phase != PhaseActive {
		return
	}
	// The countdown keeps running: leaving the exam context costs time.
	e.phase = PhaseSuspended
	e.sink.SessionSuspended(sig)
	e.sink.StateChanged(e.snapshotLocked())
}

func (e *Engine) acknowledgeLocked() {
	if e.phase != PhaseSuspended {
		return
	}
	e.phase = PhaseActive
	// Re-entering fullscreen is requested but not enforced; the session
	// stays Active even if the client cannot re-acquire it.
	e.sink.FullscreenRequested()
	e.sink.StateChanged(e.snapshotLocked())
}

func (e *Engine) onTick(remaining int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == PhaseFinished {
		return
	}
	e.remaining = remaining
	e.sink.TimeRemaining(remaining)
}

func (e *Engine) onExpire() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finishLocked(true)
}

// finishLocked is idempotent: a second trigger (timer firing after a manual
// submit, or the reverse) is a no-op. Pending autosaves are cancelled
// before the persisted slot is cleared, so the slot can never end up
// holding stale pre-finish data.
func (e *Engine) finishLocked(timedOut bool) {
	if e.phase == PhaseFinished {
		return
	}
	e.phase = PhaseFinished

	if e.countdown != nil {
		e.countdown.Stop()
	}
	e.saver.Cancel()
	if err := e.store.Clear(context.Background(), e.key); err != nil {
		e.log.Warn().Err(err).Msg("Clearing persisted progress failed")
	}

	elapsed := e.paper.DurationSeconds - e.remaining
	e.log.Info().
		Bool("timed_out", timedOut).
		Int("answered", e.answers.AnsweredCount()).
		Int("seconds_elapsed", elapsed).
		Msg("Session finished")

	e.sink.SessionFinished(FinishEvent{
		ExamID:           e.paper.ExamID.String(),
		StudentID:        e.studentID,
		Answers:          e.answers.Clone(),
		SecondsRemaining: e.remaining,
		SecondsElapsed:   elapsed,
		TimedOut:         timedOut,
	})

	if e.onFinish != nil {
		e.onFinish()
	}
}

func (e *Engine) snapshotLocked() State {
	order := make([]string, len(e.order))
	copy(order, e.order)
	answered := e.answers.AnsweredCount()

	return State{
		ExamID:           e.paper.ExamID.String(),
		Phase:            e.phase,
		QuestionOrder:    order,
		CurrentIndex:     e.index,
		Answers:          e.answers.Clone(),
		SecondsRemaining: e.remaining,
		TotalQuestions:   len(e.order),
		AnsweredCount:    answered,
		UnansweredCount:  len(e.order) - answered,
	}
}
