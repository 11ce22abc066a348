package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/handler"
	"github.com/stemsi/exstem-practice/internal/service"
	"github.com/stretchr/testify/assert"
)

func testRouter() *gin.Engine {
	cfg := &config.Config{GinMode: gin.TestMode, JWTSecret: "s", CompressionMinBytes: 1024}
	practice := service.NewPracticeService(nil, nil, nil, nil, nil, service.PracticeConfig{}, zerolog.Nop())
	handlers := &Handlers{
		Practice:      handler.NewPracticeHandler(practice, zerolog.Nop()),
		Comprehensive: handler.NewComprehensiveHandler(service.NewComprehensiveDriver(practice, nil, zerolog.Nop()), zerolog.Nop()),
		Events:        handler.NewEventsHandler(practice, zerolog.Nop()),
		WS:            handler.NewWSHandler(practice, zerolog.Nop(), nil),
		System:        handler.NewSystemHandler(practice, nil, zerolog.Nop()),
	}
	return SetupRouter(service.NewAuthService(cfg), handlers, nil, cfg, zerolog.Nop())
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"live_sessions":0`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestPracticeRoutesRequireToken(t *testing.T) {
	r := testRouter()
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/practice/sessions"},
		{http.MethodGet, "/api/v1/practice/sessions/abc"},
		{http.MethodGet, "/api/v1/practice/history"},
		{http.MethodGet, "/api/v1/practice/sessions/abc/events"},
		{http.MethodPost, "/api/v1/practice/comprehensive"},
		{http.MethodGet, "/ws/v1/practice/sessions/abc/stream"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}
}
