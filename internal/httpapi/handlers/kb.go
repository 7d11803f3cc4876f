package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gopherdesk/supportbot/internal/common"
	"github.com/gopherdesk/supportbot/internal/kb"
	"gorm.io/gorm"
)

type importFAQReq struct {
	Content string `json:"content" binding:"required"`
	Source  string `json:"source"`
}

func (h *Handler) ImportFAQs(c *gin.Context) {
	var req importFAQReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.Source == "" {
		req.Source = "api"
	}

	count, err := h.KBSvc.Import(c.Request.Context(), req.Content, req.Source)
	if err != nil {
		if errors.Is(err, kb.ErrNoPairs) {
			common.Fail(c, http.StatusBadRequest, 10004, "no question/answer pairs detected")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50010, "failed to import FAQs")
		return
	}

	common.OK(c, gin.H{
		"imported": count,
		"source":   req.Source,
	})
}

func (h *Handler) ListFAQs(c *gin.Context) {
	entries, err := h.KBSvc.ListActive(c.Request.Context())
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50011, "failed to list FAQs")
		return
	}

	common.OK(c, gin.H{
		"faqs":  entries,
		"count": len(entries),
	})
}

func (h *Handler) SearchFAQs(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		common.Fail(c, http.StatusBadRequest, 10005, "q required")
		return
	}

	topK := kb.DefaultTopK
	if v := c.Query("top_k"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			topK = n
		}
	}
	minSimilarity := kb.DefaultMinSimilarity
	if v := c.Query("min_similarity"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			minSimilarity = f
		}
	}

	matches, err := h.KBSvc.SearchSemantic(c.Request.Context(), query, topK, minSimilarity)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50012, "failed to search FAQs")
		return
	}

	common.OK(c, gin.H{
		"query":   query,
		"matches": matches,
		"count":   len(matches),
	})
}

func (h *Handler) DeleteFAQ(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10006, "invalid id")
		return
	}

	if err := h.KBSvc.Deactivate(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40402, "FAQ not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50013, "failed to delete FAQ")
		return
	}

	common.OK(c, gin.H{"deleted": id})
}

func (h *Handler) ClearFAQs(c *gin.Context) {
	n, err := h.KBSvc.DeactivateAll(c.Request.Context())
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50014, "failed to clear FAQs")
		return
	}

	common.OK(c, gin.H{"deleted": n})
}
