package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/response"
)

// LiveCounter reports how many sessions are held in memory.
type LiveCounter interface {
	Live() int
}

// SystemHandler serves the health endpoint.
type SystemHandler struct {
	live      LiveCounter
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler. rdb may be nil.
func NewSystemHandler(live LiveCounter, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		live:      live,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type healthStatus struct {
	Status       string `json:"status"`
	Uptime       string `json:"uptime"`
	LiveSessions int    `json:"live_sessions"`
	Goroutines   int    `json:"goroutines"`
	// QueueResults is the archive backlog; -1 when Redis is unreachable.
	QueueResults int64 `json:"queue_results"`
}

// Health godoc
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	st := healthStatus{
		Status:       "ok",
		Uptime:       time.Since(h.startTime).Truncate(time.Second).String(),
		LiveSessions: h.live.Live(),
		Goroutines:   runtime.NumGoroutine(),
	}

	if h.rdb != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		n, err := h.rdb.LLen(ctx, config.WorkerKey.PersistResultsQueue).Result()
		if err != nil {
			h.log.Warn().Err(err).Msg("Health check could not reach Redis")
			st.Status = "degraded"
			n = -1
		}
		st.QueueResults = n
	}

	response.Success(c, http.StatusOK, st)
}
