package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Signal identifies an environment-integrity condition reported by the
// participant's client.
type Signal string

const (
	SignalFullscreenLost   Signal = "fullscreen_lost"
	SignalVisibilityHidden Signal = "visibility_hidden"
)

// KnownSignal reports whether s is one of the monitored conditions.
func KnownSignal(s Signal) bool {
	return s == SignalFullscreenLost || s == SignalVisibilityHidden
}

// IntegrityEvent is one recorded violation, kept for operator review.
type IntegrityEvent struct {
	ExamID     string    `json:"exam_id"`
	StudentID  int       `json:"student_id"`
	Signal     Signal    `json:"signal"`
	Detail     string    `json:"detail,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Recorder persists integrity events. Recording is best-effort; failures
// must be absorbed by the implementation.
type Recorder interface {
	Record(ctx context.Context, ev IntegrityEvent)
}

// Monitor turns environment signals into violation callbacks toward its
// owner and records each event. It is advisory only: it detects leaving the
// assessment context, it cannot prevent it.
type Monitor struct {
	examID      string
	studentID   int
	recorder    Recorder
	onViolation func(Signal)
	log         zerolog.Logger

	mu         sync.Mutex
	violations int
}

// NewMonitor creates a Monitor. recorder may be nil; onViolation may be nil.
func NewMonitor(examID string, studentID int, recorder Recorder, onViolation func(Signal), log zerolog.Logger) *Monitor {
	if onViolation == nil {
		onViolation = func(Signal) {}
	}
	return &Monitor{
		examID:      examID,
		studentID:   studentID,
		recorder:    recorder,
		onViolation: onViolation,
		log:         log.With().Str("component", "integrity_monitor").Logger(),
	}
}

// Report handles one environment signal: unknown signals are dropped, known
// ones are counted, recorded and raised as a single violation each.
func (m *Monitor) Report(ctx context.Context, sig Signal, detail string) {
	if !KnownSignal(sig) {
		m.log.Warn().Str("signal", string(sig)).Msg("Ignoring unknown integrity signal")
		return
	}

	m.mu.Lock()
	m.violations++
	count := m.violations
	m.mu.Unlock()

	m.log.Info().
		Str("signal", string(sig)).
		Int("student_id", m.studentID).
		Str("exam_id", m.examID).
		Int("count", count).
		Msg("Integrity violation")

	if m.recorder != nil {
		m.recorder.Record(ctx, IntegrityEvent{
			ExamID:     m.examID,
			StudentID:  m.studentID,
			Signal:     sig,
			Detail:     detail,
			RecordedAt: time.Now(),
		})
	}

	m.onViolation(sig)
}

// Violations returns how many violations have been reported so far.
func (m *Monitor) Violations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.violations
}
