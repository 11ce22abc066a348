package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/engine"
	"github.com/stemsi/exstem-practice/internal/middleware"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/service"
	"github.com/stemsi/exstem-practice/internal/validator"
)

const (
	defaultHistoryPage    = 1
	defaultHistoryPerPage = 20
)

// PracticeHandler serves the student's practice sessions.
type PracticeHandler struct {
	practice *service.PracticeService
	log      zerolog.Logger
}

// NewPracticeHandler creates a new PracticeHandler.
func NewPracticeHandler(practice *service.PracticeService, log zerolog.Logger) *PracticeHandler {
	return &PracticeHandler{
		practice: practice,
		log:      log.With().Str("component", "practice_handler").Logger(),
	}
}

// StartSession godoc
// POST /api/v1/practice/sessions
// Starts a session on the exam API and activates its timer.
func (h *PracticeHandler) StartSession(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.practice.Start(c.Request.Context(), claims.UserID, req)
	if err != nil {
		failWith(c, h.log, err, nil)
		return
	}
	response.Success(c, http.StatusCreated, view)
}

// RestoreSession godoc
// POST /api/v1/practice/sessions/restore
// Rebuilds the student's session from the attempt cache after a page reload.
func (h *PracticeHandler) RestoreSession(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	view, err := h.practice.Restore(c.Request.Context(), claims.UserID)
	if err != nil {
		failWith(c, h.log, err, nil)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// GetSession godoc
// GET /api/v1/practice/sessions/:id
func (h *PracticeHandler) GetSession(c *gin.Context) {
	claims, id, ok := sessionTarget(c)
	if !ok {
		return
	}

	sess, err := h.practice.Session(claims.UserID, id)
	if err != nil {
		failWith(c, h.log, err, nil)
		return
	}
	response.Success(c, http.StatusOK, sess.View())
}

// SelectAnswer godoc
// POST /api/v1/practice/sessions/:id/answer
// Selects an option on the current question. Ignored unless ACTIVE.
func (h *PracticeHandler) SelectAnswer(c *gin.Context) {
	claims, id, ok := sessionTarget(c)
	if !ok {
		return
	}

	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.practice.SelectAnswer(claims.UserID, id, req.OptionID)
	if err != nil {
		failWith(c, h.log, err, nil)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// Navigate godoc
// POST /api/v1/practice/sessions/:id/navigate
func (h *PracticeHandler) Navigate(c *gin.Context) {
	claims, id, ok := sessionTarget(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.practice.Navigate(claims.UserID, id, *req.Index)
	if err != nil {
		failWith(c, h.log, err, nil)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// ToggleFlag godoc
// POST /api/v1/practice/sessions/:id/flag
// Flips the flag on the current question. A failed sync reverts it and the
// reverted view is returned with the error.
func (h *PracticeHandler) ToggleFlag(c *gin.Context) {
	h.syncAction(c, h.practice.ToggleFlag)
}

// PauseSession godoc
// POST /api/v1/practice/sessions/:id/pause
func (h *PracticeHandler) PauseSession(c *gin.Context) {
	h.syncAction(c, h.practice.Pause)
}

// ResumeSession godoc
// POST /api/v1/practice/sessions/:id/resume
func (h *PracticeHandler) ResumeSession(c *gin.Context) {
	h.syncAction(c, h.practice.Resume)
}

// SubmitSession godoc
// POST /api/v1/practice/sessions/:id/submit
// Finalizes the session. Submitting with no answers needs confirm=true.
func (h *PracticeHandler) SubmitSession(c *gin.Context) {
	claims, id, ok := sessionTarget(c)
	if !ok {
		return
	}

	var req model.SubmitRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	result, err := h.practice.Submit(c.Request.Context(), claims.UserID, id, req.Confirm)
	if err != nil {
		var view any
		if sess, serr := h.practice.Session(claims.UserID, id); serr == nil {
			view = sess.View()
		}
		failWith(c, h.log, err, view)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// ExitSession godoc
// DELETE /api/v1/practice/sessions/:id?submit=true
// Leaves the session. With submit it is finalized first, otherwise the
// cached attempt is discarded.
func (h *PracticeHandler) ExitSession(c *gin.Context) {
	claims, id, ok := sessionTarget(c)
	if !ok {
		return
	}

	var req model.ExitRequest
	if fields := validator.BindQuery(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.practice.Exit(c.Request.Context(), claims.UserID, id, req.Submit)
	if err != nil {
		failWith(c, h.log, err, nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exited": true, "result": result})
}

// GetResult godoc
// GET /api/v1/practice/sessions/:id/result
func (h *PracticeHandler) GetResult(c *gin.Context) {
	claims, id, ok := sessionTarget(c)
	if !ok {
		return
	}

	result, err := h.practice.Result(claims.UserID, id)
	if err != nil {
		failWith(c, h.log, err, nil)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// GetHistory godoc
// GET /api/v1/practice/history?page=&per_page=
func (h *PracticeHandler) GetHistory(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var q model.HistoryQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if q.Page == 0 {
		q.Page = defaultHistoryPage
	}
	if q.PerPage == 0 {
		q.PerPage = defaultHistoryPerPage
	}

	results, total, err := h.practice.History(c.Request.Context(), claims.UserID, q.Page, q.PerPage)
	if err != nil {
		failWith(c, h.log, err, nil)
		return
	}
	if results == nil {
		results = []model.ArchivedResult{}
	}
	response.SuccessWithPagination(c, http.StatusOK, results, response.NewPagination(q.Page, q.PerPage, total))
}

// syncAction runs an action that is mirrored on the exam API and always
// answers with the resulting view.
func (h *PracticeHandler) syncAction(c *gin.Context, action func(ctx context.Context, studentID int, sessionID string) (engine.View, error)) {
	claims, id, ok := sessionTarget(c)
	if !ok {
		return
	}

	view, err := action(c.Request.Context(), claims.UserID, id)
	if err != nil {
		var data any
		if view.ID != "" {
			data = view
		}
		failWith(c, h.log, err, data)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// requireClaims fetches the student's claims or aborts with 401.
func requireClaims(c *gin.Context) (*service.Claims, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}
	return claims, true
}

// sessionTarget resolves the claims and the :id parameter.
func sessionTarget(c *gin.Context) (*service.Claims, string, bool) {
	claims, ok := requireClaims(c)
	if !ok {
		return nil, "", false
	}

	var uri model.SessionURI
	if fields := validator.BindURI(c, &uri); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidID, fields)
		return nil, "", false
	}
	return claims, uri.ID, true
}
