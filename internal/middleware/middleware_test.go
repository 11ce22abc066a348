package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/remote"
	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) response.ErrCode {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body.Error.Code
}

func TestRequireStudentJWT(t *testing.T) {
	auth := service.NewAuthService(&config.Config{JWTSecret: "s3cret"})

	r := gin.New()
	r.GET("/me", RequireStudentJWT(auth), func(c *gin.Context) {
		token, _ := remote.TokenFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user_id": GetClaims(c).UserID, "token": token})
	})

	do := func(header, query string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me"+query, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("missing", func(t *testing.T) {
		w := do("", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, response.ErrTokenRequired, errCode(t, w))
	})

	t.Run("garbage", func(t *testing.T) {
		w := do("Bearer nope", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, response.ErrTokenInvalid, errCode(t, w))
	})

	t.Run("expired", func(t *testing.T) {
		token, err := auth.IssueStudentToken(5, 1, -time.Minute)
		require.NoError(t, err)
		w := do("Bearer "+token, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, response.ErrTokenExpired, errCode(t, w))
	})

	t.Run("admin", func(t *testing.T) {
		claims := service.Claims{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
			TokenType:        service.TokenTypeAdmin,
			UserID:           1,
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
		require.NoError(t, err)
		w := do("Bearer "+token, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, response.ErrStudentAccessOnly, errCode(t, w))
	})

	t.Run("header", func(t *testing.T) {
		token, err := auth.IssueStudentToken(5, 1, time.Hour)
		require.NoError(t, err)
		w := do("bearer "+token, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":5,"token":"`+token+`"}`, w.Body.String())
	})

	t.Run("query", func(t *testing.T) {
		token, err := auth.IssueStudentToken(6, 1, time.Hour)
		require.NoError(t, err)
		w := do("", "?token="+token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":6`)
	})
}

func TestBrotli(t *testing.T) {
	big := strings.Repeat("practice ", 500)

	r := gin.New()
	r.Use(BrotliWithConfig(BrotliConfig{MinLength: 256}))
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "tiny") })
	r.GET("/big", func(c *gin.Context) {
		// Several writes, the first of them below the threshold.
		_, _ = c.Writer.WriteString(big[:100])
		_, _ = c.Writer.WriteString(big[100:2000])
		_, _ = c.Writer.WriteString(big[2000:])
	})

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept-Encoding", "gzip, br;q=1.0")
		r.ServeHTTP(w, req)
		return w
	}

	w := get("/small")
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "tiny", w.Body.String())

	w = get("/big")
	assert.Equal(t, "br", w.Header().Get("Content-Encoding"))
	assert.Less(t, w.Body.Len(), len(big))
	plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, big, string(plain))

	// Without br in Accept-Encoding the body passes through.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/big", nil))
	assert.Equal(t, big, w.Body.String())
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("student:1"))
	assert.True(t, rl.allow("student:1"))
	assert.False(t, rl.allow("student:1"))
	assert.True(t, rl.allow("student:2"), "buckets are per student")

	now = now.Add(time.Minute)
	assert.True(t, rl.allow("student:1"))

	now = now.Add(10 * time.Minute)
	rl.cleanup()
	assert.Empty(t, rl.visitors)
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	r := gin.New()
	r.POST("/start", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/start", nil))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/start", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, response.ErrRateLimitExceeded, errCode(t, w))
}

func TestNoStore(t *testing.T) {
	r := gin.New()
	r.GET("/", NoStore(), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}
