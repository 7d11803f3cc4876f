package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/gopherdesk/supportbot/internal/chat"
	"github.com/gopherdesk/supportbot/internal/common"
	"github.com/gopherdesk/supportbot/internal/kb"
)

type Handler struct {
	ChatSvc *chat.Service
	KBSvc   *kb.Service
}

func NewHandler(chatSvc *chat.Service, kbSvc *kb.Service) *Handler {
	return &Handler{ChatSvc: chatSvc, KBSvc: kbSvc}
}

func (h *Handler) Health(c *gin.Context) {
	common.OK(c, gin.H{"status": "healthy"})
}
