package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/elec-mate/elecmate-engine/internal/assessment"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

// StreamMessage is one frame on the exam websocket
type StreamMessage struct {
	Type     string               `json:"type"`
	Data     string               `json:"data,omitempty"`
	Event    *assessment.Event    `json:"event,omitempty"`
	Snapshot *assessment.Snapshot `json:"snapshot,omitempty"`
}

// handleExamStream pushes countdown ticks and submission to the client. The
// client may send {"type":"submit"} to hand in early.
func (s *Server) handleExamStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := s.exams.Get(id)
	if err != nil {
		respondServiceError(w, err, "stream exam session")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := session.Subscribe()
	defer unsubscribe()

	slog.Info("exam stream connected", "session_id", id)

	snap := session.Snapshot()
	if err := sendStreamMessage(conn, StreamMessage{Type: "connected", Snapshot: &snap}); err != nil {
		return
	}

	done := make(chan struct{})
	go s.readExamStream(conn, session, done)

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			slog.Info("exam stream disconnected", "session_id", id)
			return
		case ev, ok := <-events:
			if !ok {
				sendStreamMessage(conn, StreamMessage{Type: "closed", Data: "exam session disposed"})
				return
			}
			if err := sendStreamMessage(conn, StreamMessage{Type: "event", Event: &ev}); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readExamStream handles client frames until the connection drops
func (s *Server) readExamStream(conn *websocket.Conn, session *assessment.Session, done chan<- struct{}) {
	defer close(done)

	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "error", err)
			}
			return
		}

		var msg StreamMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Debug("invalid message format", "error", err)
			continue
		}

		switch msg.Type {
		case "submit":
			if _, err := session.Submit(); err != nil {
				slog.Debug("stream submit rejected", "session_id", session.ID(), "error", err)
			}
		}
	}
}

// sendStreamMessage is only called from the writer loop, so writes never overlap
func sendStreamMessage(conn *websocket.Conn, msg StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal stream message", "error", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send stream message", "error", err)
		return err
	}
	return nil
}
