package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/cache"
	"github.com/stemsi/exstem-practice/internal/engine"
	"github.com/stemsi/exstem-practice/internal/remote"
	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/service"
)

// errorMapping pairs a sentinel with its HTTP status and error code.
type errorMapping struct {
	target error
	status int
	code   response.ErrCode
	// sync marks failures of the exam API; their cause is surfaced as detail.
	sync bool
}

// Order matters: the first match wins, and remote session loss must win over
// the finalization error that wraps it.
var errorMappings = []errorMapping{
	{engine.ErrSessionGone, http.StatusGone, response.ErrSessionExpired, true},

	{service.ErrSessionNotFound, http.StatusNotFound, response.ErrSessionNotFound, false},
	{cache.ErrNoAttempt, http.StatusNotFound, response.ErrNoCachedAttempt, false},
	{service.ErrConfirmationRequired, http.StatusConflict, response.ErrConfirmationRequired, false},
	{service.ErrResultNotReady, http.StatusConflict, response.ErrResultNotReady, false},

	{engine.ErrInvalidSessionData, http.StatusUnprocessableEntity, response.ErrInvalidSessionData, false},
	{engine.ErrUnknownQuestion, http.StatusUnprocessableEntity, response.ErrInvalidSessionData, false},
	{engine.ErrUnknownOption, http.StatusUnprocessableEntity, response.ErrUnknownOption, false},
	{engine.ErrIndexOutOfRange, http.StatusUnprocessableEntity, response.ErrIndexOutOfRange, false},
	{engine.ErrAlreadySubmitted, http.StatusConflict, response.ErrAlreadySubmitted, false},
	{engine.ErrSyncInProgress, http.StatusConflict, response.ErrSyncInProgress, false},
	{engine.ErrInvalidTransition, http.StatusConflict, response.ErrInvalidTransition, false},
	{engine.ErrInvalidState, http.StatusConflict, response.ErrInvalidTransition, false},

	{engine.ErrTransientSubmission, http.StatusBadGateway, response.ErrSubmissionFailed, true},
	{engine.ErrFinalization, http.StatusBadGateway, response.ErrSubmissionFailed, true},
	{engine.ErrPauseSync, http.StatusBadGateway, response.ErrPauseFailed, true},
	{engine.ErrResumeSync, http.StatusBadGateway, response.ErrResumeFailed, true},
	{engine.ErrFlagSync, http.StatusBadGateway, response.ErrFlagFailed, true},

	{remote.ErrTokenExpired, http.StatusUnauthorized, response.ErrTokenExpired, false},
	{remote.ErrUnauthorized, http.StatusUnauthorized, response.ErrTokenInvalid, false},
	{remote.ErrNoToken, http.StatusUnauthorized, response.ErrTokenRequired, false},
	{remote.ErrBadResponse, http.StatusBadGateway, response.ErrUpstream, true},

	{service.ErrRunNotFound, http.StatusNotFound, response.ErrRunNotFound, false},
	{service.ErrDayOutOfOrder, http.StatusConflict, response.ErrDayOutOfOrder, false},
	{service.ErrRunFinished, http.StatusConflict, response.ErrRunFinished, false},
}

// classify finds the mapping for err. ok is false for unexpected errors.
func classify(err error) (errorMapping, bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m, true
		}
	}
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		return errorMapping{target: apiErr, status: http.StatusBadGateway, code: response.ErrUpstream, sync: true}, true
	}
	return errorMapping{status: http.StatusInternalServerError, code: response.ErrInternal}, false
}

// failWith translates a service or engine error into an error response.
// data, when non-nil, is sent alongside the error; pause and flag failures
// use it to return the rolled-back session state.
func failWith(c *gin.Context, log zerolog.Logger, err error, data any) {
	m, ok := classify(err)
	if !ok {
		log.Error().Err(err).Msg("Unhandled error")
		_ = c.Error(err)
		response.Fail(c, m.status, m.code)
		return
	}

	detail := ""
	if m.sync {
		detail = err.Error()
		log.Warn().Err(err).Str("code", string(m.code)).Msg("Exam API sync failed")
	}
	response.FailWithData(c, m.status, m.code, detail, data)
}
