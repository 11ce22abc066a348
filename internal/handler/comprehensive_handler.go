package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/service"
	"github.com/stemsi/exstem-practice/internal/validator"
)

// ComprehensiveHandler serves multi-day comprehensive runs. Each day's
// session is then driven through the ordinary session routes.
type ComprehensiveHandler struct {
	driver *service.ComprehensiveDriver
	log    zerolog.Logger
}

// NewComprehensiveHandler creates a new ComprehensiveHandler.
func NewComprehensiveHandler(driver *service.ComprehensiveDriver, log zerolog.Logger) *ComprehensiveHandler {
	return &ComprehensiveHandler{
		driver: driver,
		log:    log.With().Str("component", "comprehensive_handler").Logger(),
	}
}

// StartRun godoc
// POST /api/v1/practice/comprehensive
func (h *ComprehensiveHandler) StartRun(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var req model.StartComprehensiveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	run, err := h.driver.StartRun(c.Request.Context(), claims.UserID, req)
	if err != nil {
		failWith(c, h.log, err, nil)
		return
	}
	response.Success(c, http.StatusCreated, service.Summarize(run))
}

// GetSummary godoc
// GET /api/v1/practice/comprehensive/:run_id
func (h *ComprehensiveHandler) GetSummary(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var uri model.ComprehensiveRunURI
	if fields := validator.BindURI(c, &uri); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidID, fields)
		return
	}

	sum, err := h.driver.Summary(c.Request.Context(), claims.UserID, uri.RunID)
	if err != nil {
		failWith(c, h.log, err, nil)
		return
	}
	response.Success(c, http.StatusOK, sum)
}

// StartDay godoc
// POST /api/v1/practice/comprehensive/:run_id/days/:day
// Starts the session of the next unfinished day.
func (h *ComprehensiveHandler) StartDay(c *gin.Context) {
	claims, uri, ok := h.dayTarget(c)
	if !ok {
		return
	}

	view, err := h.driver.StartDay(c.Request.Context(), claims.UserID, uri.RunID, uri.Day)
	if err != nil {
		failWith(c, h.log, err, nil)
		return
	}
	response.Success(c, http.StatusCreated, view)
}

// RestoreDay godoc
// POST /api/v1/practice/comprehensive/:run_id/days/:day/restore
func (h *ComprehensiveHandler) RestoreDay(c *gin.Context) {
	claims, uri, ok := h.dayTarget(c)
	if !ok {
		return
	}

	view, err := h.driver.RestoreDay(c.Request.Context(), claims.UserID, uri.RunID, uri.Day)
	if err != nil {
		failWith(c, h.log, err, nil)
		return
	}
	response.Success(c, http.StatusOK, view)
}

func (h *ComprehensiveHandler) dayTarget(c *gin.Context) (*service.Claims, model.ComprehensiveDayURI, bool) {
	var uri model.ComprehensiveDayURI
	claims, ok := requireClaims(c)
	if !ok {
		return nil, uri, false
	}
	if fields := validator.BindURI(c, &uri); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidID, fields)
		return nil, uri, false
	}
	return claims, uri, true
}
