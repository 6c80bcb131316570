package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/fin-advisor/internal/chat"
	"github.com/suPer8Hu/fin-advisor/internal/common"
)

type createSessionReq struct {
	Title string `json:"title"`
}

func (h *Handler) CreateChatSession(c *gin.Context) {
	uid, ok := mustUser(c)
	if !ok {
		return
	}

	var req createSessionReq
	_ = c.ShouldBindJSON(&req) // allow empty {}

	sess, err := h.ChatSvc.CreateSession(c.Request.Context(), uid, req.Title)
	if err != nil {
		h.failErr(c, "create_session", err, "")
		return
	}
	common.OK(c, gin.H{"session_id": sess.SessionID, "title": sess.Title})
}

func (h *Handler) ListChatMessages(c *gin.Context) {
	uid, ok := mustUser(c)
	if !ok {
		return
	}
	sessionID := c.Param("session_id")

	limit, _ := strconv.Atoi(c.Query("limit"))
	var beforeID uint64
	if s := c.Query("before_id"); s != "" {
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			beforeID = n
		}
	}

	msgs, err := h.ChatSvc.ListMessages(c.Request.Context(), uid, sessionID, limit, beforeID)
	if err != nil {
		h.failErr(c, "list_messages", err, "session not found")
		return
	}

	var nextBeforeID uint64
	if len(msgs) > 0 {
		nextBeforeID = msgs[len(msgs)-1].ID
	}
	common.OK(c, gin.H{
		"messages":       msgs,
		"next_before_id": nextBeforeID,
	})
}

type putSummaryReq struct {
	Summary string `json:"summary" binding:"required"`
}

// PutDataSummary attaches a short description of an uploaded file to the
// session; it is added to the model context on every later question.
func (h *Handler) PutDataSummary(c *gin.Context) {
	uid, ok := mustUser(c)
	if !ok {
		return
	}
	var req putSummaryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	sessionID, name := c.Param("session_id"), c.Param("name")
	if err := h.ChatSvc.SetDataSummary(c.Request.Context(), uid, sessionID, name, req.Summary); err != nil {
		h.failErr(c, "set_summary", err, "session not found")
		return
	}
	common.OK(c, gin.H{"session_id": sessionID, "name": name})
}

func (h *Handler) GetActionBoard(c *gin.Context) {
	uid, ok := mustUser(c)
	if !ok {
		return
	}
	board, err := h.ChatSvc.ActionBoard(c.Request.Context(), uid, c.Param("session_id"))
	if err != nil {
		h.failErr(c, "action_board", err, "session not found")
		return
	}
	common.OK(c, board)
}

type updateActionReq struct {
	Status chat.ActionStatus `json:"status" binding:"required"`
}

func (h *Handler) UpdateAction(c *gin.Context) {
	uid, ok := mustUser(c)
	if !ok {
		return
	}
	var req updateActionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	sessionID, key := c.Param("session_id"), c.Param("key")
	if err := h.ChatSvc.UpdateAction(c.Request.Context(), uid, sessionID, key, req.Status); err != nil {
		h.failErr(c, "update_action", err, "action not found")
		return
	}
	common.OK(c, gin.H{"key": key, "status": req.Status})
}
