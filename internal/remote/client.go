package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/engine"
	"github.com/stemsi/exstem-practice/internal/model"
)

var (
	ErrNoToken      = errors.New("no student token in context")
	ErrTokenExpired = errors.New("student token expired")
	ErrUnauthorized = errors.New("exam api rejected credentials")
	ErrBadResponse  = errors.New("unexpected exam api response")
)

type tokenKey struct{}

// WithToken returns a context carrying the student's bearer token. Every
// request made with that context is authenticated as the student.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom extracts the bearer token set by WithToken.
func TokenFrom(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey{}).(string)
	return t, ok && t != ""
}

// envelope mirrors the exam API response body.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a non-2xx reply from the exam API.
type APIError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: exam api returned %d %s: %s", e.Op, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: exam api returned %d", e.Op, e.StatusCode)
}

// Client talks to the remote exam API. It implements engine.Gateway and the
// session catalog used by the practice service.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
	now     func() time.Time
}

// NewClient creates a Client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "remote_client").Logger(),
		now:     time.Now,
	}
}

var _ engine.Gateway = (*Client)(nil)

// StartSession asks the catalog for a new practice session.
func (c *Client) StartSession(ctx context.Context, req model.StartSessionRequest) (*model.SessionStart, error) {
	var out model.SessionStart
	if err := c.do(ctx, "start session", http.MethodPost, "/api/v1/practice-sessions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordAnswer implements engine.AnswerRecorder.
func (c *Client) RecordAnswer(ctx context.Context, sessionID, questionID, optionID string) (*model.AnswerVerdict, error) {
	body := map[string]string{"question_id": questionID, "option_id": optionID}
	var out model.AnswerVerdict
	if err := c.do(ctx, "record answer", http.MethodPost, sessionPath(sessionID, "answers"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetFlag implements engine.Gateway.
func (c *Client) SetFlag(ctx context.Context, sessionID, questionID string, flagged bool) error {
	body := map[string]bool{"flagged": flagged}
	return c.do(ctx, "set flag", http.MethodPut, sessionPath(sessionID, "flags", questionID), body, nil)
}

// Pause implements engine.Gateway.
func (c *Client) Pause(ctx context.Context, sessionID string) error {
	return c.do(ctx, "pause", http.MethodPost, sessionPath(sessionID, "pause"), nil, nil)
}

// Resume implements engine.Gateway.
func (c *Client) Resume(ctx context.Context, sessionID string) error {
	return c.do(ctx, "resume", http.MethodPost, sessionPath(sessionID, "resume"), nil, nil)
}

// Complete implements engine.Finalizer.
func (c *Client) Complete(ctx context.Context, sessionID string) error {
	return c.do(ctx, "complete", http.MethodPost, sessionPath(sessionID, "complete"), nil, nil)
}

// GetResults implements engine.Finalizer.
func (c *Client) GetResults(ctx context.Context, sessionID string) (*model.ResultPayload, error) {
	var out model.ResultPayload
	if err := c.do(ctx, "get results", http.MethodGet, sessionPath(sessionID, "results"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func sessionPath(sessionID string, parts ...string) string {
	p := "/api/v1/practice-sessions/" + url.PathEscape(sessionID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// do sends one JSON request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	token, err := c.bearer(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", c.now().Sub(start)).
		Msg("Exam API call")

	var env envelope
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", op, err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode/100 == 2 {
			return fmt.Errorf("%s: %w: %v", op, ErrBadResponse, err)
		}
	}

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Op: op, StatusCode: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		switch resp.StatusCode {
		case http.StatusNotFound, http.StatusGone:
			return fmt.Errorf("%w: %w", engine.ErrSessionGone, apiErr)
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %w", ErrUnauthorized, apiErr)
		default:
			return apiErr
		}
	}

	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%s: %w: empty data", op, ErrBadResponse)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrBadResponse, err)
	}
	return nil
}

// bearer returns the context token, refusing tokens whose exp has passed.
// The signature is checked by the exam API, not here.
func (c *Client) bearer(ctx context.Context) (string, error) {
	token, ok := TokenFrom(ctx)
	if !ok {
		return "", ErrNoToken
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return token, nil
	}
	if claims.ExpiresAt != nil && !c.now().Before(claims.ExpiresAt.Time) {
		return "", ErrTokenExpired
	}
	return token, nil
}
