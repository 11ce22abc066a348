package handler

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionEventsSSE(t *testing.T) {
	s := newTestServer(t)
	view := startSession(t, s, 7)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/practice/sessions/"+view.ID+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+s.token(t, 7))
	req.Header.Set("Accept", "text/event-stream")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := bufio.NewScanner(resp.Body)
	readEvent := func() string {
		for lines.Scan() {
			if name, ok := strings.CutPrefix(lines.Text(), "event:"); ok {
				return name
			}
		}
		return ""
	}

	require.Equal(t, "state", readEvent())

	code, _ := s.do(t, 7, http.MethodPost, "/api/v1/practice/sessions/"+view.ID+"/answer", `{"option_id":"a"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "answer", readEvent())

	code, _ = s.do(t, 7, http.MethodDelete, "/api/v1/practice/sessions/"+view.ID, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "closed", readEvent())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	startSession(t, s, 7)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"live_sessions":1`)
	assert.Contains(t, w.Body.String(), `"queue_results":0`)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
