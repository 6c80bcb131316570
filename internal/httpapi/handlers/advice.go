package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/fin-advisor/internal/common"
	"github.com/suPer8Hu/fin-advisor/internal/httpapi/middleware"
)

const maxIdempotencyKey = 128

type adviceReq struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

// Advise answers synchronously. A reply produced after every provider failed
// is still a 200 with failed=true; the apology is meant to be shown.
func (h *Handler) Advise(c *gin.Context) {
	uid, ok := mustUser(c)
	if !ok {
		return
	}
	var req adviceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	res, err := h.Advisor.Advise(c.Request.Context(), uid, req.SessionID, req.Message)
	if err != nil {
		h.failErr(c, "advise", err, "session not found")
		return
	}
	common.OK(c, res)
}

type insightsReq struct {
	SessionID string `json:"session_id" binding:"required"`
}

func (h *Handler) QuickInsights(c *gin.Context) {
	uid, ok := mustUser(c)
	if !ok {
		return
	}
	var req insightsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	res, err := h.Advisor.QuickInsights(c.Request.Context(), uid, req.SessionID)
	if err != nil {
		h.failErr(c, "insights", err, "session not found")
		return
	}
	common.OK(c, res)
}

// AdviseAsync records a job and hands it to the worker queue. With an
// Idempotency-Key the same job is returned and not published again.
func (h *Handler) AdviseAsync(c *gin.Context) {
	uid, ok := mustUser(c)
	if !ok {
		return
	}
	if h.Jobs == nil {
		common.Fail(c, http.StatusServiceUnavailable, 50301, "async advice is not configured")
		return
	}
	var req adviceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	query := strings.TrimSpace(req.Message)
	if query == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "message required")
		return
	}

	idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if len(idemKey) > maxIdempotencyKey {
		common.Fail(c, http.StatusBadRequest, 10003, "idempotency key too long")
		return
	}
	var idemKeyPtr *string
	if idemKey != "" {
		idemKeyPtr = &idemKey
	}

	job, created, err := h.ChatSvc.EnqueueJob(c.Request.Context(), uid, req.SessionID, query, idemKeyPtr)
	if err != nil {
		h.failErr(c, "enqueue_job", err, "session not found")
		return
	}

	// Enqueue only when a new job was created
	if created {
		if err := h.Jobs.PublishJob(c.Request.Context(), job.ID); err != nil {
			h.Log.Error().Err(err).
				Uint64("user_id", uid).
				Str("job_id", job.ID).
				Str("request_id", c.GetString(middleware.RequestIDKey)).
				Msg("publish job failed")
			common.Fail(c, http.StatusInternalServerError, 50002, "enqueue failed")
			return
		}
	}
	common.OK(c, gin.H{"job_id": job.ID, "created": created})
}

func (h *Handler) GetAdviceJob(c *gin.Context) {
	uid, ok := mustUser(c)
	if !ok {
		return
	}
	jobID := c.Param("job_id")

	j, err := h.ChatSvc.GetJob(c.Request.Context(), jobID)
	if err != nil {
		h.failErr(c, "get_job", err, "job not found")
		return
	}
	if j.UserID != uid {
		// hide existence
		common.Fail(c, http.StatusNotFound, 40402, "job not found")
		return
	}

	common.OK(c, gin.H{
		"job": gin.H{
			"id":                j.ID,
			"session_id":        j.SessionID,
			"status":            j.Status,
			"intent":            j.Intent,
			"provider":          j.Provider,
			"result_message_id": j.ResultMessageID,
			"error":             j.Error,
			"created_at":        j.CreatedAt,
			"updated_at":        j.UpdatedAt,
		},
	})
}
