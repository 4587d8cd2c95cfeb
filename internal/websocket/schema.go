package websocket

import (
	"github.com/emesedutech/cbt-akm/internal/model"
	"github.com/emesedutech/cbt-akm/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer           Action = "answer"
	ActionNavigate         Action = "navigate"
	ActionResume           Action = "resume"
	ActionRestart          Action = "restart"
	ActionSave             Action = "save"
	ActionAckWarning       Action = "ack_warning"
	ActionFullscreenLost   Action = "fullscreen_lost"
	ActionVisibilityHidden Action = "visibility_hidden"
	ActionSubmit           Action = "submit"
	ActionPing             Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest sets or replaces the answer for the current question.
type AnswerRequest struct {
	Action Action       `json:"action"`
	QID    string       `json:"q_id"`
	Answer model.Answer `json:"ans"`
}

// NavigateRequest moves the current question position.
type NavigateRequest struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`
}

// SignalRequest reports an environment-integrity condition. The action
// itself names the signal; detail is free-form client context.
type SignalRequest struct {
	Action Action `json:"action"`
	Detail string `json:"detail,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState      Event = "state"
	EventTick       Event = "tick"
	EventSaveStatus Event = "save_status"
	EventSuspended  Event = "suspended"
	EventFullscreen Event = "request_fullscreen"
	EventGraded     Event = "graded"
	EventError      Event = "error"
	EventPong       Event = "pong"
)

// StateResponse carries a full session snapshot, sent on every mutation.
type StateResponse struct {
	Event Event         `json:"event"`
	State session.State `json:"state"`
}

// TickResponse is the once-per-second countdown update.
type TickResponse struct {
	Event            Event `json:"event"`
	SecondsRemaining int   `json:"seconds_remaining"`
}

// SaveStatusResponse reports the autosave indicator state.
type SaveStatusResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

// SuspendedResponse tells the client to show the integrity warning.
type SuspendedResponse struct {
	Event  Event  `json:"event"`
	Signal string `json:"signal"`
}

// FullscreenResponse asks the client to re-enter fullscreen.
type FullscreenResponse struct {
	Event Event `json:"event"`
}

// GradedResponse delivers the final score after the attempt ends.
type GradedResponse struct {
	Event    Event   `json:"event"`
	Score    float64 `json:"score"`
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	TimedOut bool    `json:"timed_out"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
