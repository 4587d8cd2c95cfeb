package progress

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/emesedutech/cbt-akm/internal/model"
)

// SaveStatus is the observable state of the autosave path.
type SaveStatus string

const (
	StatusIdle   SaveStatus = "idle"
	StatusSaving SaveStatus = "saving"
	StatusSaved  SaveStatus = "saved"
)

// Autosaver debounces answer writes into a Store. Every Schedule call
// replaces the pending snapshot and restarts the quiet-period timer, so
// rapid successive edits coalesce into a single write holding only the
// latest state. A write failure reverts the status to idle and is logged;
// the in-memory session remains authoritative.
type Autosaver struct {
	store        Store
	key          string
	window       time.Duration
	statusWindow time.Duration
	notify       func(SaveStatus)
	log          zerolog.Logger

	mu          sync.Mutex
	pending     model.Answers
	timer       *time.Timer
	statusTimer *time.Timer
	cancelled   bool
}

// NewAutosaver creates an Autosaver writing to key. notify receives every
// status transition and may be nil.
func NewAutosaver(store Store, key string, window, statusWindow time.Duration, notify func(SaveStatus), log zerolog.Logger) *Autosaver {
	if notify == nil {
		notify = func(SaveStatus) {}
	}
	return &Autosaver{
		store:        store,
		key:          key,
		window:       window,
		statusWindow: statusWindow,
		notify:       notify,
		log:          log.With().Str("component", "autosaver").Str("key", key).Logger(),
	}
}

// Schedule records a new snapshot and (re)starts the debounce timer. The
// snapshot must not be mutated by the caller afterwards.
func (a *Autosaver) Schedule(snapshot model.Answers) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancelled {
		return
	}

	a.pending = snapshot
	a.stopTimersLocked()
	a.notify(StatusSaving)
	a.timer = time.AfterFunc(a.window, a.fire)
}

// fire commits the pending snapshot once the quiet period has elapsed.
func (a *Autosaver) fire() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancelled || a.pending == nil {
		return
	}

	snapshot := a.pending
	a.pending = nil
	a.timer = nil
	a.writeLocked(snapshot)
}

// Flush performs an immediate write of the given snapshot, cancelling any
// pending debounce so a stale autosave cannot land after it.
func (a *Autosaver) Flush(ctx context.Context, snapshot model.Answers) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancelled {
		return nil
	}

	a.stopTimersLocked()
	a.pending = nil

	if err := a.store.Save(ctx, a.key, snapshot); err != nil {
		a.log.Warn().Err(err).Msg("Manual save failed")
		a.notify(StatusIdle)
		return err
	}
	a.markSavedLocked()
	return nil
}

// Cancel stops the autosaver permanently. It blocks until any in-flight
// write has finished, so callers may clear the slot immediately afterwards
// without racing a stale write.
func (a *Autosaver) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancelled = true
	a.stopTimersLocked()
	a.pending = nil
}

func (a *Autosaver) writeLocked(snapshot model.Answers) {
	if err := a.store.Save(context.Background(), a.key, snapshot); err != nil {
		a.log.Warn().Err(err).Msg("Autosave failed")
		a.notify(StatusIdle)
		return
	}
	a.markSavedLocked()
}

func (a *Autosaver) markSavedLocked() {
	a.notify(StatusSaved)
	a.statusTimer = time.AfterFunc(a.statusWindow, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if !a.cancelled {
			a.notify(StatusIdle)
		}
	})
}

func (a *Autosaver) stopTimersLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if a.statusTimer != nil {
		a.statusTimer.Stop()
		a.statusTimer = nil
	}
}
