package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vuthy55/studio-sub006/internal/models"
)

// handleSignUp handles POST /api/auth/signup
func (h *Handler) handleSignUp(c *gin.Context) {
	var req models.SignUpRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.SignUp(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// handleLogin handles POST /api/auth/login
func (h *Handler) handleLogin(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
