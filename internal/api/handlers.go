package api

import (
	"github.com/gin-gonic/gin"
	"github.com/vuthy55/studio-sub006/internal/service"
)

// Handler exposes the service over HTTP
type Handler struct {
	svc     service.Service
	limiter *RateLimiter
}

// NewHandler creates a Handler. A nil limiter leaves the AI routes unlimited.
func NewHandler(svc service.Service, limiter *RateLimiter) *Handler {
	if limiter == nil {
		limiter = NewRateLimiter(0, 1)
	}
	return &Handler{svc: svc, limiter: limiter}
}

// SetupRoutes registers every route on router. The router must already carry
// JWTSecretMiddleware.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.handleHealth)

	api := router.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", h.handleSignUp)
	auth.POST("/login", h.handleLogin)

	user := api.Group("")
	user.Use(AuthMiddleware())
	{
		user.GET("/settings", h.handleGetSettings)

		user.GET("/users/:userId/transactions", h.handleGetTransactionLogs)
		user.GET("/users/:userId/practice", h.handleGetPracticeHistory)
		user.POST("/users/:userId/stats/reset-language", h.handleResetLanguageStats)
		user.POST("/users/:userId/stats/reset-usage", h.handleResetUsageStats)
		user.POST("/practice/attempts", h.handleRecordPracticeAttempt)

		user.POST("/rooms", h.handleCreateRoom)
		user.GET("/rooms/:roomId", h.handleGetRoom)
		user.DELETE("/rooms/:roomId", h.handleSoftDeleteRoom)
		user.POST("/rooms/:roomId/session", h.handleStartSession)
		user.POST("/rooms/:roomId/messages", h.handlePostMessage)
		user.GET("/rooms/:roomId/messages", h.handleListMessages)

		user.GET("/notifications", h.handleListNotifications)
		user.POST("/notifications/:id/read", h.handleMarkNotificationRead)
	}

	ai := api.Group("/ai")
	ai.Use(AuthMiddleware(), h.limiter.Middleware())
	{
		ai.POST("/speech", h.handleSpeech)
		ai.POST("/translate", h.handleTranslate)
		ai.POST("/search", h.handleSearch)
		ai.POST("/scrape", h.handleScrape)
		ai.POST("/moderate", h.handleModerate)
	}

	admin := api.Group("/admin")
	admin.Use(AuthMiddleware(), RequireAdmin(h.svc))
	{
		admin.POST("/tokens/issue", h.handleIssueTokens)
		admin.POST("/referrals", h.handleProcessReferral)
		admin.PUT("/settings", h.handleUpdateSettings)
		admin.DELETE("/ledger/tokens", h.handleClearTokenLedger)
		admin.DELETE("/ledger/financial", h.handleClearFinancialLedger)
		admin.POST("/ledger/financial", h.handleRecordFinancialEntry)
		admin.GET("/ledger/financial", h.handleListFinancialLedger)
	}
}

func (h *Handler) handleHealth(c *gin.Context) {
	respondOK(c, "ok")
}

// authorizeTarget checks that the caller may act on the :userId path user
func (h *Handler) authorizeTarget(c *gin.Context) (string, bool) {
	target := c.Param("userId")
	if err := h.svc.AuthorizeUserAccess(c.Request.Context(), c.GetString(contextUserID), target); err != nil {
		respondError(c, err)
		return "", false
	}
	return target, true
}
