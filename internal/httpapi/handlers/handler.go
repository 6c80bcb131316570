package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/suPer8Hu/fin-advisor/internal/advisor"
	"github.com/suPer8Hu/fin-advisor/internal/chat"
	"github.com/suPer8Hu/fin-advisor/internal/common"
	"github.com/suPer8Hu/fin-advisor/internal/finance"
	"github.com/suPer8Hu/fin-advisor/internal/httpapi/middleware"
	"gorm.io/gorm"
)

// AdviceRunner is the synchronous advisory pipeline.
type AdviceRunner interface {
	Advise(ctx context.Context, userID uint64, sessionID, query string) (*advisor.Result, error)
	QuickInsights(ctx context.Context, userID uint64, sessionID string) (*advisor.Result, error)
}

type JobPublisher interface {
	PublishJob(ctx context.Context, jobID string) error
}

type Handler struct {
	ChatSvc *chat.Service
	Advisor AdviceRunner
	Finance *finance.Repo
	Memory  advisor.FinanceStore

	// Jobs is nil when no broker is configured; async advice is then refused.
	Jobs JobPublisher
	Log  zerolog.Logger
}

func userIDFromContext(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}

// mustUser writes 401 and returns false when the auth middleware did not run.
func mustUser(c *gin.Context) (uint64, bool) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
	}
	return uid, ok
}

// failErr maps domain errors to the response envelope.
func (h *Handler) failErr(c *gin.Context, op string, err error, notFound string) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		common.Fail(c, http.StatusNotFound, 40401, notFound)
	case errors.Is(err, advisor.ErrEmptyQuery):
		common.Fail(c, http.StatusBadRequest, 10002, "message required")
	case errors.Is(err, chat.ErrInvalidActionStatus):
		common.Fail(c, http.StatusBadRequest, 10004, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		common.Fail(c, http.StatusServiceUnavailable, 50300, "request cancelled")
	default:
		h.Log.Error().Err(err).Str("op", op).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("request failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
	}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}
