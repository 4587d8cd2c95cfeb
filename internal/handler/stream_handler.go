package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/emesedutech/cbt-akm/internal/config"
	"github.com/emesedutech/cbt-akm/internal/middleware"
	"github.com/emesedutech/cbt-akm/internal/progress"
	"github.com/emesedutech/cbt-akm/internal/service"
	"github.com/emesedutech/cbt-akm/internal/session"
	ws "github.com/emesedutech/cbt-akm/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// streamSink forwards engine events to the student's live connection. The
// bound connection can be swapped on reconnect; every engine event between
// connections is dropped silently, the snapshot sent on re-attach catches
// the client up.
type streamSink struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	resultSvc *service.ResultService
	log       zerolog.Logger
}

func (s *streamSink) rebind(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
}

func (s *streamSink) write(v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return
	}
	if err := ws.WriteTyped(s.conn, v); err != nil {
		s.log.Debug().Err(err).Msg("Write to stream failed")
	}
}

func (s *streamSink) StateChanged(st session.State) {
	s.write(ws.StateResponse{Event: ws.EventState, State: st})
}

func (s *streamSink) TimeRemaining(seconds int) {
	s.write(ws.TickResponse{Event: ws.EventTick, SecondsRemaining: seconds})
}

func (s *streamSink) SaveStatusChanged(status progress.SaveStatus) {
	s.write(ws.SaveStatusResponse{Event: ws.EventSaveStatus, Status: string(status)})
}

func (s *streamSink) SessionSuspended(sig session.Signal) {
	s.write(ws.SuspendedResponse{Event: ws.EventSuspended, Signal: string(sig)})
}

func (s *streamSink) FullscreenRequested() {
	s.write(ws.FullscreenResponse{Event: ws.EventFullscreen})
}

func (s *streamSink) SessionFinished(ev session.FinishEvent) {
	result, err := s.resultSvc.Grade(context.Background(), ev)
	if err != nil {
		s.log.Error().Err(err).Str("exam_id", ev.ExamID).Msg("Grading failed")
		s.write(ws.ErrorResponse{Event: ws.EventError, Error: "grading failed"})
		return
	}
	s.write(ws.GradedResponse{
		Event:    ws.EventGraded,
		Score:    result.Percentage,
		Correct:  result.Correct,
		Total:    result.Total,
		TimedOut: ev.TimedOut,
	})
}

// StreamHandler drives live exam sessions over WebSocket. Each attempt has
// at most one engine; reconnects re-attach to the running engine.
type StreamHandler struct {
	cfg        *config.Config
	manager    *session.Manager
	examSvc    *service.ExamService
	attemptSvc *service.AttemptService
	resultSvc  *service.ResultService
	store      progress.Store
	recorder   session.Recorder
	log        zerolog.Logger
	upgrader   websocket.Upgrader

	mu    sync.Mutex
	sinks map[string]*streamSink
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(
	cfg *config.Config,
	manager *session.Manager,
	examSvc *service.ExamService,
	attemptSvc *service.AttemptService,
	resultSvc *service.ResultService,
	store progress.Store,
	recorder session.Recorder,
	log zerolog.Logger,
) *StreamHandler {
	return &StreamHandler{
		cfg:        cfg,
		manager:    manager,
		examSvc:    examSvc,
		attemptSvc: attemptSvc,
		resultSvc:  resultSvc,
		store:      store,
		recorder:   recorder,
		log:        log.With().Str("component", "stream_handler").Logger(),
		upgrader:   buildUpgrader(cfg.AllowedOrigins),
		sinks:      make(map[string]*streamSink),
	}
}

// ExamStream godoc
// WS /ws/v1/student/exams/:exam_id/stream
// Upgrades to WebSocket and binds the student to their session engine.
func (h *StreamHandler) ExamStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	studentID := claims.UserID

	// The attempt must exist and be open before any streaming starts.
	if err := h.attemptSvc.VerifyActiveAttempt(c.Request.Context(), examID, studentID); err != nil {
		status := http.StatusForbidden
		if errors.Is(err, service.ErrAttemptCompleted) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": "no open attempt for this exam"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Logger()

	engine, sink, err := h.attach(c.Request.Context(), examID, studentID, conn, wsLog)
	if err != nil {
		wsLog.Error().Err(err).Msg("Attaching session engine failed")
		ws.WriteError(conn, "session unavailable")
		return
	}

	wsLog.Info().Msg("Student connected")
	defer h.cleanup(examID, studentID, engine, wsLog)

	h.readLoop(conn, engine, sink, wsLog)
}

// attach binds the connection to the attempt's engine, creating and
// starting one on first contact and re-syncing state on reconnect.
func (h *StreamHandler) attach(ctx context.Context, examID uuid.UUID, studentID int, conn *websocket.Conn, wsLog zerolog.Logger) (*session.Engine, *streamSink, error) {
	key := examID.String()

	h.mu.Lock()
	sink, ok := h.sinks[sinkKey(studentID, key)]
	if !ok {
		sink = &streamSink{resultSvc: h.resultSvc, log: wsLog}
		h.sinks[sinkKey(studentID, key)] = sink
	}
	h.mu.Unlock()

	sink.rebind(conn)

	engine, created, err := h.manager.Attach(studentID, key, func() (*session.Engine, error) {
		paper, err := h.examSvc.GetExamPaper(ctx, examID)
		if err != nil {
			return nil, err
		}
		return session.NewEngine(session.Config{
			Paper:          paper,
			StudentID:      studentID,
			Store:          h.store,
			Sink:           sink,
			Recorder:       h.recorder,
			DebounceWindow: h.cfg.AutosaveDebounce,
			StatusWindow:   h.cfg.SaveStatusWindow,
			// The countdown can expire while the student is disconnected, so
			// the finish path itself must drop the live entries; a reconnect
			// after finish is rejected before it would reach cleanup.
			OnFinish: func() { h.release(studentID, key) },
			Logger:   h.log,
		}), nil
	})
	if err != nil {
		return nil, nil, err
	}

	if created {
		engine.Start(ctx)
	} else {
		// Reconnect: catch the client up with the live snapshot.
		sink.StateChanged(engine.Snapshot())
	}

	return engine, sink, nil
}

func (h *StreamHandler) readLoop(conn *websocket.Conn, engine *session.Engine, sink *streamSink, wsLog zerolog.Logger) {
	ctx := context.Background()

	for {
		data, err := ws.ReadRaw(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		// All outbound frames go through the sink: the countdown goroutine
		// writes ticks to the same connection, and gorilla/websocket forbids
		// concurrent writers.
		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			sink.write(ws.ErrorResponse{Event: ws.EventError, Error: "malformed message"})
			continue
		}

		switch envelope.Action {
		case ws.ActionAnswer:
			var req ws.AnswerRequest
			if err := json.Unmarshal(data, &req); err != nil || req.QID == "" {
				sink.write(ws.ErrorResponse{Event: ws.EventError, Error: "q_id and ans are required"})
				continue
			}
			engine.Handle(ctx, session.AnswerEvent{QuestionID: req.QID, Answer: req.Answer})

		case ws.ActionNavigate:
			var req ws.NavigateRequest
			if err := json.Unmarshal(data, &req); err != nil {
				sink.write(ws.ErrorResponse{Event: ws.EventError, Error: "malformed navigate payload"})
				continue
			}
			engine.Handle(ctx, session.NavigateEvent{Index: req.Index})

		case ws.ActionResume:
			engine.Handle(ctx, session.ResumeEvent{Restore: true})

		case ws.ActionRestart:
			engine.Handle(ctx, session.ResumeEvent{Restore: false})

		case ws.ActionSave:
			engine.Handle(ctx, session.ManualSaveEvent{})

		case ws.ActionAckWarning:
			engine.Handle(ctx, session.AcknowledgeEvent{})

		case ws.ActionFullscreenLost, ws.ActionVisibilityHidden:
			var req ws.SignalRequest
			if err := json.Unmarshal(data, &req); err != nil {
				sink.write(ws.ErrorResponse{Event: ws.EventError, Error: "malformed signal payload"})
				continue
			}
			engine.Handle(ctx, session.SignalEvent{
				Signal: session.Signal(envelope.Action),
				Detail: req.Detail,
			})

		case ws.ActionSubmit:
			engine.Handle(ctx, session.SubmitEvent{})

		case ws.ActionPing:
			sink.write(ws.PongResponse{Event: ws.EventPong})

		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			sink.write(ws.ErrorResponse{Event: ws.EventError, Error: "unknown action: " + string(envelope.Action)})
		}

		if engine.Finished() {
			// The graded event has already been pushed by the sink; close
			// from the server side so the client stops cleanly.
			return
		}
	}
}

// cleanup discards the engine after its attempt finished. Disconnects
// mid-attempt keep the engine (and its countdown) alive for reconnects.
func (h *StreamHandler) cleanup(examID uuid.UUID, studentID int, engine *session.Engine, wsLog zerolog.Logger) {
	if !engine.Finished() {
		wsLog.Info().Msg("Student disconnected, session stays live")
		return
	}

	h.release(studentID, examID.String())
	wsLog.Info().Msg("Session closed")
}

// release drops the engine and sink entries for one attempt. Called from the
// engine's finish path and from cleanup; safe to call more than once.
func (h *StreamHandler) release(studentID int, examID string) {
	h.manager.Remove(studentID, examID)
	h.mu.Lock()
	delete(h.sinks, sinkKey(studentID, examID))
	h.mu.Unlock()
}

func sinkKey(studentID int, examID string) string {
	return progress.Key(studentID, examID)
}
