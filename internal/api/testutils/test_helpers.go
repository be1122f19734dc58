package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/vuthy55/studio-sub006/internal/api"
	"github.com/vuthy55/studio-sub006/internal/config"
	"github.com/vuthy55/studio-sub006/internal/models"
	"github.com/vuthy55/studio-sub006/internal/repository"
	"github.com/vuthy55/studio-sub006/internal/service"
	"golang.org/x/crypto/bcrypt"
)

const (
	TestUserEmail  = "testuser@example.com"
	TestAdminEmail = "admin@example.com"
	TestPassword   = "testpassword"
	testJWTSecret  = "test-secret-key"
)

// TestContext holds all dependencies for tests
type TestContext struct {
	Router       *gin.Engine
	Repository   repository.Repository
	Service      service.Service
	JWTSecret    []byte
	DB           *sqlx.DB
	TestUserID   string
	TestUserJWT  string
	TestAdminID  string
	TestAdminJWT string
}

// SetupTestContext creates a new test context with initialized dependencies.
// Tests run against the in-memory repository unless TEST_DB_DRIVER=postgres.
func SetupTestContext(t *testing.T, opts ...service.Option) *TestContext {
	t.Helper()

	var (
		repo repository.Repository
		db   *sqlx.DB
	)
	if os.Getenv("TEST_DB_DRIVER") == "postgres" {
		cfg, err := config.LoadConfig()
		require.NoError(t, err, "Failed to load config")
		cfg.Database.DBName = cfg.Database.TestDBName

		db, err = config.SetupDatabase(cfg)
		require.NoError(t, err, "TEST_DB_DRIVER=postgres but the test database is unavailable")
		repo = repository.NewPostgresRepository(db)
		cleanupTestDatabase(t, repo)
	} else {
		repo = repository.NewMemoryRepository()
	}

	svc := service.NewDefaultService(repo, service.Config{JWTSecret: testJWTSecret, DeletePageSize: 2}, opts...)
	handler := api.NewHandler(svc, api.NewRateLimiter(1000, 1000))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(api.JWTSecretMiddleware(testJWTSecret))
	handler.SetupRoutes(router)

	userID, userToken := createTestUser(t, repo, TestUserEmail, models.RoleUser)
	adminID, adminToken := createTestUser(t, repo, TestAdminEmail, models.RoleAdmin)

	return &TestContext{
		Router:       router,
		Repository:   repo,
		Service:      svc,
		JWTSecret:    []byte(testJWTSecret),
		DB:           db,
		TestUserID:   userID,
		TestUserJWT:  userToken,
		TestAdminID:  adminID,
		TestAdminJWT: adminToken,
	}
}

// CleanupTestContext cleans up test resources
func CleanupTestContext(t *TestContext) {
	if t.DB != nil {
		cleanupTestDatabase(nil, t.Repository)
		t.DB.Close()
	}
}

// cleanupTestDatabase removes every row the tests may have written
func cleanupTestDatabase(t *testing.T, repo repository.Repository) {
	pgRepo, ok := repo.(*repository.PostgresRepository)
	if !ok {
		return
	}
	db := pgRepo.GetDB()

	tables := []string{
		"notifications", "room_messages", "sync_rooms", "referrals",
		"practice_history", "payment_history", "transaction_logs",
		"financial_ledger", "settings", "users",
	}
	for _, table := range tables {
		if _, err := db.Exec("DELETE FROM " + table); err != nil && t != nil {
			t.Logf("Warning: Failed to clean %s: %v", table, err)
		}
	}
}

func createTestUser(t *testing.T, repo repository.Repository, email, role string) (string, string) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Email:    email,
		Name:     email,
		Password: string(hashedPassword),
		Role:     role,
	}
	require.NoError(t, repo.CreateUser(context.Background(), user, nil), "Failed to create test user")

	return user.ID, TokenFor(t, user.ID)
}

// TokenFor signs a bearer token for userID with the test secret
func TokenFor(t *testing.T, userID string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})

	tokenString, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err, "Failed to generate JWT token")
	return tokenString
}

// CreateUser adds another plain user and returns its id and bearer token
func (tc *TestContext) CreateUser(t *testing.T, email string) (string, string) {
	return createTestUser(t, tc.Repository, email, models.RoleUser)
}

// SetSettings stores the economy settings directly
func (tc *TestContext) SetSettings(t *testing.T, settings models.AppSettings) {
	require.NoError(t, tc.Repository.SaveSettings(context.Background(), &settings))
}

// Balance returns the stored token balance of userID
func (tc *TestContext) Balance(t *testing.T, userID string) int64 {
	user, err := tc.Repository.GetUserByID(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, user)
	return user.TokenBalance
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}

// DecodeAction decodes an ActionResponse body
func DecodeAction(t *testing.T, w *httptest.ResponseRecorder) models.ActionResponse {
	var resp models.ActionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
