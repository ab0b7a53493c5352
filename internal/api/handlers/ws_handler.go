package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/bcllcc/MockMate/internal/services"
	"github.com/bcllcc/MockMate/internal/utils"
)

const (
	wsReadTimeout  = 90 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingPeriod   = 30 * time.Second
)

type WSHandler struct {
	interviews services.InterviewService
	streams    services.StreamService
	upgrader   websocket.Upgrader
	log        *logrus.Logger
}

func NewWSHandler(interviews services.InterviewService, streams services.StreamService, allowedOrigins []string, l *logrus.Logger) *WSHandler {
	if l == nil {
		l = logrus.New()
	}
	return &WSHandler{
		interviews: interviews,
		streams:    streams,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
		log: l,
	}
}

// originChecker accepts requests without an Origin header and those from allowed origins.
// A "*" entry allows any origin.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

type wsClientMsg struct {
	Type           string   `json:"type"` // answer | end
	Answer         string   `json:"answer"`
	ElapsedSeconds *float64 `json:"elapsed_seconds"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.c.WriteJSON(v)
}

func (w *wsConn) writeError(err error) error {
	return w.writeJSON(services.Event{
		Type: services.EventError,
		Data: services.ErrorData{Code: utils.CodeOf(err), Message: utils.MessageOf(err)},
	})
}

// InterviewWS answers the current question of one session over a websocket.
// Every server message is a services.Event; each client message is answered by
// events ending with "done".
func (h *WSHandler) InterviewWS(c *gin.Context) {
	const op = "WSHandler.InterviewWS"

	sessionID := c.Param("session_id")
	if _, err := h.interviews.GetDetail(c.Request.Context(), sessionID, c.Query("owner_id")); err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})
	go h.ping(ctx, conn)

	log := h.log.WithFields(logrus.Fields{"op": op, "session_id": sessionID})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("websocket closed")
			}
			return
		}

		var msg wsClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			if wc.writeError(utils.E(utils.CodeInvalidArgument, op, "invalid json", err)) != nil {
				return
			}
			continue
		}

		switch msg.Type {
		case "answer":
			events := h.streams.Answer(ctx, services.AnswerInput{
				SessionID:      sessionID,
				Answer:         msg.Answer,
				ElapsedSeconds: msg.ElapsedSeconds,
			})
			for ev := range events {
				if wc.writeJSON(ev) != nil {
					// client is gone; stop the producer and let it close the channel
					cancel()
				}
			}
			if ctx.Err() != nil {
				return
			}

		case "end":
			feedback, err := h.interviews.End(ctx, sessionID)
			if err != nil {
				_ = wc.writeError(err)
			} else {
				_ = wc.writeJSON(services.Event{
					Type: services.EventInterviewComplete,
					Data: services.CompleteData{SessionID: sessionID, Completed: true, Feedback: feedback},
				})
			}
			_ = wc.writeJSON(services.Event{Type: services.EventDone})
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "interview ended"),
				time.Now().Add(wsWriteTimeout))
			return

		default:
			if wc.writeError(utils.E(utils.CodeInvalidArgument, op, "unknown message type", nil)) != nil {
				return
			}
		}
	}
}

func (h *WSHandler) ping(ctx context.Context, conn *websocket.Conn) {
	t := time.NewTicker(wsPingPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}
