package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/engine"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/service"
	ws "github.com/stemsi/exstem-practice/internal/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	eventBuffer  = 32
	outboxBuffer = 16
)

// errStreamClosed ends the read loop when the session stream is over.
var errStreamClosed = errors.New("session stream closed")

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
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

// WSHandler streams a live session to the student's UI: engine events go
// out, user actions come in.
type WSHandler struct {
	practice *service.PracticeService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(practice *service.PracticeService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		practice: practice,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/practice/sessions/:id/stream?token=
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims, id, ok := sessionTarget(c)
	if !ok {
		return
	}

	// Ownership is checked before the upgrade so a plain 404 can be sent.
	sess, err := h.practice.Session(claims.UserID, id)
	if err != nil {
		failWith(c, h.log, err, nil)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("student_id", claims.UserID).
		Str("session_id", id).
		Logger()
	wsLog.Info().Msg("Student connected")

	events, unsubscribe := sess.Subscribe(eventBuffer)
	defer unsubscribe()

	out := make(chan ws.Message, outboxBuffer)
	out <- ws.Message{Event: ws.EventState, Data: sess.View()}

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		// Closing the conn unblocks the reader once writing stops.
		defer conn.Close()
		return writeLoop(ctx, conn, events, out)
	})
	g.Go(func() error {
		return h.readLoop(ctx, conn, claims.UserID, id, out)
	})

	err = g.Wait()
	switch {
	case err == nil, errors.Is(err, errStreamClosed), errors.Is(err, context.Canceled):
		wsLog.Debug().Msg("Connection closed")
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure):
		wsLog.Warn().Err(err).Msg("Unexpected close")
	default:
		wsLog.Debug().Err(err).Msg("Connection ended")
	}
}

// writeLoop is the only writer of conn.
func writeLoop(ctx context.Context, conn *websocket.Conn, events <-chan engine.Event, out <-chan ws.Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-out:
			if err := ws.WriteMessage(conn, msg); err != nil {
				return err
			}
		case evt, ok := <-events:
			if !ok {
				ws.CloseNormal(conn, "session closed")
				return errStreamClosed
			}
			if err := ws.WriteMessage(conn, ws.Message{Event: ws.EventSession, Data: evt}); err != nil {
				return err
			}
		}
	}
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, studentID int, sessionID string, out chan<- ws.Message) error {
	for {
		req, err := ws.ReadRequest(conn)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		msg := h.dispatch(ctx, studentID, sessionID, req)
		select {
		case out <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// dispatch runs one client action and builds the reply frame.
func (h *WSHandler) dispatch(ctx context.Context, studentID int, sessionID string, req ws.Request) ws.Message {
	var (
		view engine.View
		err  error
	)

	switch req.Action {
	case ws.ActionPing:
		return ws.Message{Event: ws.EventPong}
	case ws.ActionSync:
		var sess *engine.Session
		if sess, err = h.practice.Session(studentID, sessionID); err == nil {
			view = sess.View()
		}
	case ws.ActionSelectAnswer:
		if req.OptionID == "" {
			return ws.ErrorMessage(req.Action, string(response.ErrValidation), "option_id is required", nil)
		}
		view, err = h.practice.SelectAnswer(studentID, sessionID, req.OptionID)
	case ws.ActionNavigate:
		if req.Index == nil {
			return ws.ErrorMessage(req.Action, string(response.ErrValidation), "index is required", nil)
		}
		view, err = h.practice.Navigate(studentID, sessionID, *req.Index)
	case ws.ActionToggleFlag:
		view, err = h.practice.ToggleFlag(ctx, studentID, sessionID)
	case ws.ActionPause:
		view, err = h.practice.Pause(ctx, studentID, sessionID)
	case ws.ActionResume:
		view, err = h.practice.Resume(ctx, studentID, sessionID)
	case ws.ActionSubmit:
		var result *model.ResultSet
		result, err = h.practice.Submit(ctx, studentID, sessionID, req.Confirm)
		if err == nil {
			return ws.Message{Event: ws.EventResult, Action: req.Action, Data: result}
		}
	default:
		h.log.Warn().Str("action", string(req.Action)).Msg("Unknown action")
		return ws.ErrorMessage(req.Action, string(response.ErrInvalidPayload), "unknown action: "+string(req.Action), nil)
	}

	if err != nil {
		m, ok := classify(err)
		if !ok {
			h.log.Error().Err(err).Str("action", string(req.Action)).Msg("Unhandled error")
		}
		var data any
		if view.ID != "" {
			data = view
		}
		return ws.ErrorMessage(req.Action, string(m.code), response.GetMessage(m.code), data)
	}
	return ws.Message{Event: ws.EventState, Action: req.Action, Data: view}
}
