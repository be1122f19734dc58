package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vuthy55/studio-sub006/internal/models"
)

// handleRecordPracticeAttempt handles POST /api/practice/attempts
func (h *Handler) handleRecordPracticeAttempt(c *gin.Context) {
	var req models.PracticeAttemptRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.RecordPracticeAttempt(c.Request.Context(), c.GetString(contextUserID), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleGetPracticeHistory(c *gin.Context) {
	userID, ok := h.authorizeTarget(c)
	if !ok {
		return
	}

	history, err := h.svc.GetPracticeHistory(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.PracticeHistoryResponse{Success: true, History: history})
}

// handleResetLanguageStats handles POST /api/users/:userId/stats/reset-language
func (h *Handler) handleResetLanguageStats(c *gin.Context) {
	userID, ok := h.authorizeTarget(c)
	if !ok {
		return
	}
	var req models.ResetLanguageStatsRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.svc.ResetLanguageStats(c.Request.Context(), userID, req.LanguageCode); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Language stats reset")
}

// handleResetUsageStats handles POST /api/users/:userId/stats/reset-usage
func (h *Handler) handleResetUsageStats(c *gin.Context) {
	userID, ok := h.authorizeTarget(c)
	if !ok {
		return
	}

	if err := h.svc.ResetUsageStats(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Usage stats reset")
}
