package session

import "github.com/emesedutech/cbt-akm/internal/model"

// Event is an inbound message for the engine. All session mutation flows
// through Engine.Handle so the state machine is independent of any
// transport or rendering layer.
type Event interface {
	isEvent()
}

// NavigateEvent moves the current position to Index. Out-of-range indexes
// are ignored.
type NavigateEvent struct {
	Index int
}

// AnswerEvent sets or replaces the answer for the currently displayed
// question. Mutations for any other question id are ignored.
type AnswerEvent struct {
	QuestionID string
	Answer     model.Answer
}

// ResumeEvent resolves the resume decision: Restore adopts the saved
// answers, otherwise the saved slot is discarded and the attempt starts
// clean. Only valid while the engine awaits the decision.
type ResumeEvent struct {
	Restore bool
}

// ManualSaveEvent requests an immediate write, bypassing the debounce.
type ManualSaveEvent struct{}

// SignalEvent reports an environment-integrity condition.
type SignalEvent struct {
	Signal Signal
	Detail string
}

// AcknowledgeEvent dismisses the suspension warning and returns to Active.
type AcknowledgeEvent struct{}

// SubmitEvent finishes the attempt on the participant's confirmation.
type SubmitEvent struct{}

func (NavigateEvent) isEvent()    {}
func (AnswerEvent) isEvent()      {}
func (ResumeEvent) isEvent()      {}
func (ManualSaveEvent) isEvent()  {}
func (SignalEvent) isEvent()      {}
func (AcknowledgeEvent) isEvent() {}
func (SubmitEvent) isEvent()      {}
