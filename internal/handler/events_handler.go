package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/service"
)

const heartbeatInterval = 15 * time.Second

// EventsHandler streams session events over SSE for clients that only
// watch the timer and cannot hold a WebSocket.
type EventsHandler struct {
	practice *service.PracticeService
	log      zerolog.Logger
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(practice *service.PracticeService, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		practice: practice,
		log:      log.With().Str("component", "events_handler").Logger(),
	}
}

// SessionEventsSSE godoc
// GET /api/v1/practice/sessions/:id/events
// Sends the current view, then every session event until the session is
// closed or the client goes away.
func (h *EventsHandler) SessionEventsSSE(c *gin.Context) {
	claims, id, ok := sessionTarget(c)
	if !ok {
		return
	}

	sess, err := h.practice.Session(claims.UserID, id)
	if err != nil {
		failWith(c, h.log, err, nil)
		return
	}

	events, unsubscribe := sess.Subscribe(eventBuffer)
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	log := h.log.With().Int("student_id", claims.UserID).Str("session_id", id).Logger()
	log.Info().Msg("Student connected to session events")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.SSEvent("state", sess.View())
	c.Writer.Flush()

	reqCtx := c.Request.Context()
	for {
		select {
		case <-reqCtx.Done():
			log.Info().Msg("Student disconnected from session events")
			return
		case evt, ok := <-events:
			if !ok {
				c.SSEvent("closed", gin.H{"session_id": id})
				c.Writer.Flush()
				return
			}
			c.SSEvent(string(evt.Type), evt)
			c.Writer.Flush()
		case <-heartbeat.C:
			_, _ = c.Writer.Write([]byte(": heartbeat\n\n"))
			c.Writer.Flush()
		}
	}
}
