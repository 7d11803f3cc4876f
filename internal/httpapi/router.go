package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gopherdesk/supportbot/internal/common"
	"github.com/gopherdesk/supportbot/internal/httpapi/handlers"
	"github.com/gopherdesk/supportbot/internal/httpapi/middleware"
)

func NewRouter(h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1")

	v1.POST("/chat", h.Chat)

	v1.POST("/sessions", h.CreateSession)
	v1.GET("/sessions/:session_id/messages", h.ListSessionMessages)
	v1.GET("/sessions/:session_id/metrics", h.GetSessionMetrics)
	v1.GET("/sessions/:session_id/summary", h.GetSessionSummary)
	v1.GET("/sessions/:session_id/next-actions", h.GetSessionNextActions)

	v1.POST("/faqs/import", h.ImportFAQs)
	v1.GET("/faqs", h.ListFAQs)
	v1.GET("/faqs/search", h.SearchFAQs)
	v1.DELETE("/faqs/:id", h.DeleteFAQ)
	v1.DELETE("/faqs/clear/all", h.ClearFAQs)

	return r
}
