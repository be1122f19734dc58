package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vuthy55/studio-sub006/internal/api/testutils"
	"github.com/vuthy55/studio-sub006/internal/models"
)

func TestSignup(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)
	testCtx.SetSettings(t, models.AppSettings{SignupBonus: 100, ReferralBonus: 20})

	// Test case 1: Successful signup with a referrer
	signupReq := models.SignUpRequest{
		Email:       "newuser@example.com",
		Password:    "Password123",
		Name:        "New User",
		ReferrerUID: testCtx.TestUserID,
	}

	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/auth/signup", signupReq, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var authResp models.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &authResp))
	assert.True(t, authResp.Success)
	assert.Equal(t, int64(100), authResp.TokenBalance)
	assert.Equal(t, int64(20), testCtx.Balance(t, testCtx.TestUserID))

	// Test case 2: Duplicate email
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/auth/signup", signupReq, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	resp := testutils.DecodeAction(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "CONFLICT", resp.Code)

	// Test case 3: Invalid request (missing required fields)
	invalidReq := models.SignUpRequest{
		Email: "invalid@example.com",
	}
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/auth/signup", invalidReq, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	// Test case 1: Successful login
	loginReq := models.LoginRequest{
		Email:    testutils.TestUserEmail,
		Password: testutils.TestPassword,
	}
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/auth/login", loginReq, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Test case 2: Invalid credentials
	invalidLoginReq := models.LoginRequest{
		Email:    testutils.TestUserEmail,
		Password: "wrongpassword",
	}
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/auth/login", invalidLoginReq, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Test case 3: User not found
	nonExistentUserReq := models.LoginRequest{
		Email:    "nonexistent@example.com",
		Password: testutils.TestPassword,
	}
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/auth/login", nonExistentUserReq, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	w := testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/settings", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/settings", nil,
		map[string]string{"Authorization": "Token abc"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/settings", nil,
		testutils.AuthHeaders("not-a-jwt"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/settings", nil,
		testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	w := testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/admin/ledger/tokens", nil,
		testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// a valid token for a user that does not exist
	w = testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/admin/ledger/tokens", nil,
		testutils.AuthHeaders(testutils.TokenFor(t, "ghost")))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/admin/ledger/tokens", nil,
		testutils.AuthHeaders(testCtx.TestAdminJWT))
	assert.Equal(t, http.StatusOK, w.Code)
}
