package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gopherdesk/supportbot/internal/chat"
	"github.com/gopherdesk/supportbot/internal/common"
	"gorm.io/gorm"
)

type chatReq struct {
	Message    string `json:"message" binding:"required"`
	SessionID  string `json:"session_id"`
	CustomerID string `json:"customer_id"`
}

func (h *Handler) Chat(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.SessionID == "" {
		req.SessionID = common.NewSessionID()
	}
	if req.CustomerID == "" {
		req.CustomerID = "anonymous"
	}

	reply, err := h.ChatSvc.HandleMessage(c.Request.Context(), req.SessionID, req.CustomerID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			common.Fail(c, http.StatusBadRequest, 10002, "message must not be empty")
		case errors.Is(err, chat.ErrMessageTooLong):
			common.Fail(c, http.StatusBadRequest, 10003, "message too long")
		default:
			common.Fail(c, http.StatusInternalServerError, 50001, "failed to process message")
		}
		return
	}

	common.OK(c, reply)
}

type createSessionReq struct {
	CustomerID string `json:"customer_id"`
	Topic      string `json:"topic"`
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionReq
	_ = c.ShouldBindJSON(&req) // allow empty {}
	if req.CustomerID == "" {
		req.CustomerID = "anonymous"
	}

	sess, err := h.ChatSvc.CreateSession(c.Request.Context(), req.CustomerID, req.Topic)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to create session")
		return
	}

	common.OK(c, gin.H{
		"session_id": sess.SessionID,
		"status":     sess.Status,
		"created_at": sess.CreatedAt,
	})
}

func (h *Handler) ListSessionMessages(c *gin.Context) {
	sessionID := c.Param("session_id")

	msgs, err := h.ChatSvc.Transcript(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to list messages")
		return
	}

	common.OK(c, gin.H{
		"session_id": sessionID,
		"messages":   msgs,
		"count":      len(msgs),
	})
}

func (h *Handler) GetSessionMetrics(c *gin.Context) {
	sessionID := c.Param("session_id")

	metrics, err := h.ChatSvc.RecomputeMetrics(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to compute metrics")
		return
	}

	common.OK(c, metrics)
}

func (h *Handler) GetSessionSummary(c *gin.Context) {
	sessionID := c.Param("session_id")

	summary, err := h.ChatSvc.Summarize(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50005, "failed to summarize session")
		return
	}

	common.OK(c, gin.H{
		"session_id": sessionID,
		"summary":    summary,
	})
}

func (h *Handler) GetSessionNextActions(c *gin.Context) {
	sessionID := c.Param("session_id")

	actions, err := h.ChatSvc.SuggestNextActions(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50006, "failed to suggest next actions")
		return
	}

	common.OK(c, actions)
}
