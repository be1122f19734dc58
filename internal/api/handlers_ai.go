package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vuthy55/studio-sub006/internal/models"
)

func (h *Handler) handleSpeech(c *gin.Context) {
	var req models.SpeechRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.SynthesizeSpeech(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleTranslate handles POST /api/ai/translate; the caller pays the translation cost
func (h *Handler) handleTranslate(c *gin.Context) {
	var req models.TranslateRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.Translate(c.Request.Context(), c.GetString(contextUserID), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleSearch(c *gin.Context) {
	var req models.SearchRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.Search(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleScrape(c *gin.Context) {
	var req models.ScrapeRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.Scrape(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleModerate(c *gin.Context) {
	var req models.ModerationRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.Moderate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
