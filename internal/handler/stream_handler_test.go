package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/emesedutech/cbt-akm/internal/model"
	"github.com/emesedutech/cbt-akm/internal/progress"
	"github.com/emesedutech/cbt-akm/internal/session"
)

func streamTestPaper(n int) *model.ExamPaper {
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
		Title:           "Stream Test",
		DurationSeconds: 600,
		Questions:       questions,
	}
}

// dialStreamServer upgrades incoming connections and hands the server side
// to serve. Returns the client side of the connection.
func dialStreamServer(t *testing.T, serve func(conn *websocket.Conn)) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		serve(conn)
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// The countdown goroutine and the read loop share one connection, so every
// outbound frame must go through the sink's mutex. Error replies written
// directly to the connection while ticks stream would trip the concurrent
// write check in gorilla/websocket and kill the connection.
func TestReadLoopErrorRepliesShareTheSinkWriter(t *testing.T) {
	paper := streamTestPaper(2)
	sink := &streamSink{log: zerolog.Nop()}
	engine := session.NewEngine(session.Config{
		Paper:     paper,
		StudentID: 7,
		Store:     progress.NewMemoryStore(),
		Sink:      sink,
		Logger:    zerolog.Nop(),
	})
	h := &StreamHandler{log: zerolog.Nop()}

	client := dialStreamServer(t, func(conn *websocket.Conn) {
		sink.rebind(conn)

		stop := make(chan struct{})
		go func() {
			ticker := time.NewTicker(2 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
					sink.TimeRemaining(599)
				}
			}
		}()

		h.readLoop(conn, engine, sink, zerolog.Nop())
		close(stop)
		conn.Close()
	})

	const bad = 40
	for i := 0; i < bad; i++ {
		var err error
		if i%2 == 0 {
			err = client.WriteMessage(websocket.TextMessage, []byte("{not json"))
		} else {
			err = client.WriteJSON(map[string]string{"action": "bogus"})
		}
		if err != nil {
			t.Fatalf("client write %d: %v", i, err)
		}
	}

	// Every bad message must come back as an error event, interleaved with
	// ticks, on a connection that stays open throughout.
	errorsSeen := 0
	deadline := time.Now().Add(5 * time.Second)
	for errorsSeen < bad {
		_ = client.SetReadDeadline(deadline)
		var frame struct {
			Event string `json:"event"`
			Error string `json:"error"`
		}
		if err := client.ReadJSON(&frame); err != nil {
			t.Fatalf("read after %d error frames: %v", errorsSeen, err)
		}
		if frame.Event == "error" {
			errorsSeen++
		}
	}
}
