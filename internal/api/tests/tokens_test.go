package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vuthy55/studio-sub006/internal/api/testutils"
	"github.com/vuthy55/studio-sub006/internal/models"
)

func TestIssueTokens(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	t.Run("AdminIssuesTokens", func(t *testing.T) {
		req := models.IssueTokensRequest{
			Email:       testutils.TestUserEmail,
			Amount:      25,
			Reason:      "Contest",
			Description: "Weekly winner",
		}
		w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/admin/tokens/issue", req,
			testutils.AuthHeaders(testCtx.TestAdminJWT))
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, testutils.DecodeAction(t, w).Success)
		assert.Equal(t, int64(25), testCtx.Balance(t, testCtx.TestUserID))

		w = testutils.PerformRequest(testCtx.Router, http.MethodGet,
			fmt.Sprintf("/api/users/%s/transactions", testCtx.TestUserID), nil,
			testutils.AuthHeaders(testCtx.TestUserJWT))
		require.Equal(t, http.StatusOK, w.Code)

		var logsResp models.TransactionLogsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logsResp))
		require.Len(t, logsResp.Logs, 1)
		assert.Equal(t, models.ActionAdminIssue, logsResp.Logs[0].ActionType)
		assert.Equal(t, "Contest: Weekly winner", logsResp.Logs[0].Description)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		req := models.IssueTokensRequest{Email: "missing@x.com", Amount: 10, Reason: "Gift"}
		w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/admin/tokens/issue", req,
			testutils.AuthHeaders(testCtx.TestAdminJWT))
		assert.Equal(t, http.StatusNotFound, w.Code)

		resp := testutils.DecodeAction(t, w)
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Error, "not found")
	})

	t.Run("NonAdminRejected", func(t *testing.T) {
		req := models.IssueTokensRequest{Email: testutils.TestUserEmail, Amount: 1000, Reason: "Self"}
		w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/admin/tokens/issue", req,
			testutils.AuthHeaders(testCtx.TestUserJWT))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, int64(25), testCtx.Balance(t, testCtx.TestUserID))
	})
}

func TestTransactionLogsAccess(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	path := fmt.Sprintf("/api/users/%s/transactions", testCtx.TestAdminID)

	w := testutils.PerformRequest(testCtx.Router, http.MethodGet, path, nil,
		testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusForbidden, w.Code)

	path = fmt.Sprintf("/api/users/%s/transactions", testCtx.TestUserID)
	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, path, nil,
		testutils.AuthHeaders(testCtx.TestAdminJWT))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProcessReferral(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	adminHeaders := testutils.AuthHeaders(testCtx.TestAdminJWT)
	req := models.ProcessReferralRequest{ReferrerUID: testCtx.TestAdminID, NewUserID: testCtx.TestUserID}

	// bonus not configured
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/admin/referrals", req, adminHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	testCtx.SetSettings(t, models.AppSettings{ReferralBonus: 20})
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/admin/referrals", req, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(20), testCtx.Balance(t, testCtx.TestAdminID))

	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/admin/referrals",
		models.ProcessReferralRequest{ReferrerUID: "ghost", NewUserID: testCtx.TestUserID}, adminHeaders)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/admin/referrals",
		models.ProcessReferralRequest{ReferrerUID: testCtx.TestAdminID, NewUserID: "made-up-id"}, adminHeaders)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, int64(20), testCtx.Balance(t, testCtx.TestAdminID))
}

func TestProcessReferralNotSelfServe(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)
	testCtx.SetSettings(t, models.AppSettings{ReferralBonus: 20})

	headers := testutils.AuthHeaders(testCtx.TestUserJWT)
	req := models.ProcessReferralRequest{ReferrerUID: testCtx.TestUserID, NewUserID: "made-up-id"}

	for i := 0; i < 5; i++ {
		w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/admin/referrals", req, headers)
		assert.Equal(t, http.StatusForbidden, w.Code)
	}

	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/referrals", req, headers)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Zero(t, testCtx.Balance(t, testCtx.TestUserID))
}

func TestClearTokenLedger(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, testCtx.Service.IssueTokens(ctx, testCtx.TestAdminID, models.IssueTokensRequest{
			Email: testutils.TestUserEmail, Amount: 10, Reason: "Seed",
		}))
	}
	require.Equal(t, int64(50), testCtx.Balance(t, testCtx.TestUserID))

	w := testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/admin/ledger/tokens", nil,
		testutils.AuthHeaders(testCtx.TestAdminJWT))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Zero(t, testCtx.Balance(t, testCtx.TestUserID))
	logs, err := testCtx.Repository.GetTransactionLogs(ctx, testCtx.TestUserID)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestFinancialLedger(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)
	headers := testutils.AuthHeaders(testCtx.TestAdminJWT)

	for _, entry := range []models.FinancialEntryRequest{
		{Type: models.FinancialRevenue, AmountCents: 1999, Source: "store"},
		{Type: models.FinancialExpense, AmountCents: 500, Description: "Speech API"},
		{Type: models.FinancialRevenue, AmountCents: 999, Source: "store"},
	} {
		w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/admin/ledger/financial", entry, headers)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/admin/ledger/financial",
		models.FinancialEntryRequest{Type: "refund", AmountCents: 1}, headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/admin/ledger/financial", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	var ledger models.FinancialLedgerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ledger))
	assert.Len(t, ledger.Entries, 3)

	w = testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/admin/ledger/financial", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/admin/ledger/financial", nil, headers)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ledger))
	assert.Empty(t, ledger.Entries)
}

func TestSettings(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	update := models.UpdateSettingsRequest{
		SignupBonus: 100, PracticeReward: 1, PracticeThreshold: 80, TranslationCost: 1, ReferralBonus: 20,
	}
	w := testutils.PerformRequest(testCtx.Router, http.MethodPut, "/api/admin/settings", update,
		testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodPut, "/api/admin/settings", update,
		testutils.AuthHeaders(testCtx.TestAdminJWT))
	require.Equal(t, http.StatusOK, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/settings", nil,
		testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.SettingsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(100), resp.Settings.SignupBonus)
	assert.Equal(t, 80.0, resp.Settings.PracticeThreshold)

	update.PracticeThreshold = 120
	w = testutils.PerformRequest(testCtx.Router, http.MethodPut, "/api/admin/settings", update,
		testutils.AuthHeaders(testCtx.TestAdminJWT))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
