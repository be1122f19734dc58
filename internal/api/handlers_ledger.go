package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vuthy55/studio-sub006/internal/models"
)

// handleIssueTokens handles POST /api/admin/tokens/issue
func (h *Handler) handleIssueTokens(c *gin.Context) {
	var req models.IssueTokensRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.svc.IssueTokens(c.Request.Context(), c.GetString(contextUserID), req); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Tokens issued")
}

// handleProcessReferral handles POST /api/admin/referrals
func (h *Handler) handleProcessReferral(c *gin.Context) {
	var req models.ProcessReferralRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.svc.ProcessReferral(c.Request.Context(), req.ReferrerUID, req.NewUserID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Referral processed")
}

func (h *Handler) handleClearTokenLedger(c *gin.Context) {
	if err := h.svc.ClearTokenLedger(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Token ledger cleared")
}

func (h *Handler) handleClearFinancialLedger(c *gin.Context) {
	if err := h.svc.ClearFinancialLedger(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Financial ledger cleared")
}

func (h *Handler) handleRecordFinancialEntry(c *gin.Context) {
	var req models.FinancialEntryRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.svc.RecordFinancialEntry(c.Request.Context(), c.GetString(contextUserID), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.FinancialEntryResponse{Success: true, Entry: *entry})
}

func (h *Handler) handleListFinancialLedger(c *gin.Context) {
	entries, err := h.svc.ListFinancialLedger(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.FinancialLedgerResponse{Success: true, Entries: entries})
}

// handleGetTransactionLogs handles GET /api/users/:userId/transactions
func (h *Handler) handleGetTransactionLogs(c *gin.Context) {
	userID, ok := h.authorizeTarget(c)
	if !ok {
		return
	}

	logs, err := h.svc.GetTransactionLogs(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.TransactionLogsResponse{Success: true, Logs: logs})
}

func (h *Handler) handleGetSettings(c *gin.Context) {
	settings, err := h.svc.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SettingsResponse{Success: true, Settings: *settings})
}

func (h *Handler) handleUpdateSettings(c *gin.Context) {
	var req models.UpdateSettingsRequest
	if !bindJSON(c, &req) {
		return
	}

	settings, err := h.svc.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SettingsResponse{Success: true, Settings: *settings})
}
