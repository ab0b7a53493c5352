package handlers

import (
	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"github.com/bcllcc/MockMate/internal/services"
)

// doneMarker terminates every SSE response.
const doneMarker = "[DONE]"

type StreamHandler struct {
	svc services.StreamService
}

func NewStreamHandler(svc services.StreamService) *StreamHandler {
	return &StreamHandler{svc: svc}
}

func (h *StreamHandler) Start(c *gin.Context) {
	var req services.StartInput
	if !bindJSON(c, "StreamHandler.Start", &req) {
		return
	}
	writeSSE(c, h.svc.Start(c.Request.Context(), req))
}

func (h *StreamHandler) Respond(c *gin.Context) {
	var req services.AnswerInput
	if !bindJSON(c, "StreamHandler.Respond", &req) {
		return
	}
	writeSSE(c, h.svc.Answer(c.Request.Context(), req))
}

// writeSSE forwards events as `data: {...}` frames until the stream closes.
// Writes to a gone client fail silently; the request context stops the producer.
func writeSSE(c *gin.Context, events <-chan services.Event) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	for ev := range events {
		if ev.Type == services.EventDone {
			c.Render(-1, sse.Event{Data: doneMarker})
		} else {
			c.Render(-1, sse.Event{Data: ev})
		}
		c.Writer.Flush()
	}
}
