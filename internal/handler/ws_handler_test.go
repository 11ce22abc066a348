package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stemsi/exstem-practice/internal/engine"
	"github.com/stemsi/exstem-practice/internal/response"
	ws "github.com/stemsi/exstem-practice/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Event  ws.Event        `json:"event"`
	Action ws.Action       `json:"action"`
	Data   json.RawMessage `json:"data"`
	Code   string          `json:"code"`
}

func dial(t *testing.T, s *testServer, studentID int, sessionID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") +
		"/ws/v1/practice/sessions/" + sessionID + "/stream?token=" + s.token(t, studentID)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// next reads frames until one matches event, skipping relayed engine events.
func next(t *testing.T, conn *websocket.Conn, event ws.Event) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Event == event {
			return f
		}
	}
}

func TestSessionStream(t *testing.T) {
	s := newTestServer(t)
	view := startSession(t, s, 7)
	conn := dial(t, s, 7, view.ID)

	f := next(t, conn, ws.EventState)
	assert.Equal(t, view.ID, decode[engine.View](t, f.Data).ID)

	// The relayed engine event and the action reply may arrive in either order.
	require.NoError(t, conn.WriteJSON(ws.Request{Action: ws.ActionSelectAnswer, OptionID: "a"}))
	var gotEvent, gotState bool
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for !gotEvent || !gotState {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		switch f.Event {
		case ws.EventSession:
			evt := decode[engine.Event](t, f.Data)
			assert.Equal(t, engine.EventAnswer, evt.Type)
			assert.Equal(t, "a", evt.OptionID)
			gotEvent = true
		case ws.EventState:
			assert.Equal(t, ws.ActionSelectAnswer, f.Action)
			assert.Equal(t, 1, decode[engine.View](t, f.Data).AnsweredCount)
			gotState = true
		}
	}

	idx := 9
	require.NoError(t, conn.WriteJSON(ws.Request{Action: ws.ActionNavigate, Index: &idx}))
	f = next(t, conn, ws.EventError)
	assert.Equal(t, string(response.ErrIndexOutOfRange), f.Code)

	require.NoError(t, conn.WriteJSON(ws.Request{Action: ws.ActionPing}))
	next(t, conn, ws.EventPong)

	require.NoError(t, conn.WriteJSON(ws.Request{Action: ws.ActionSubmit}))
	f = next(t, conn, ws.EventResult)
	assert.Contains(t, string(f.Data), `"correct_count":1`)
}

func TestSessionStreamRejectsOtherStudent(t *testing.T) {
	s := newTestServer(t)
	view := startSession(t, s, 7)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") +
		"/ws/v1/practice/sessions/" + view.ID + "/stream?token=" + s.token(t, 8)
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionStreamClosesWithSession(t *testing.T) {
	s := newTestServer(t)
	view := startSession(t, s, 7)
	conn := dial(t, s, 7, view.ID)
	next(t, conn, ws.EventState)

	code, _ := s.do(t, 7, http.MethodDelete, "/api/v1/practice/sessions/"+view.ID, "")
	require.Equal(t, http.StatusOK, code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err.Error())
			return
		}
	}
}
