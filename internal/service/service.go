package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vuthy55/studio-sub006/internal/adapter"
	"github.com/vuthy55/studio-sub006/internal/cache"
	"github.com/vuthy55/studio-sub006/internal/config"
	apperrors "github.com/vuthy55/studio-sub006/internal/errors"
	"github.com/vuthy55/studio-sub006/internal/models"
	"github.com/vuthy55/studio-sub006/internal/repository"
	"github.com/vuthy55/studio-sub006/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// Service defines all the business logic operations
type Service interface {
	// Authentication
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	AuthorizeUserAccess(ctx context.Context, requesterID, userID string) error

	// Settings
	GetSettings(ctx context.Context) (*models.AppSettings, error)
	UpdateSettings(ctx context.Context, req models.UpdateSettingsRequest) (*models.AppSettings, error)

	// Token ledger
	IssueTokens(ctx context.Context, adminID string, req models.IssueTokensRequest) error
	ProcessReferral(ctx context.Context, referrerUID, newUserID string) error
	ClearTokenLedger(ctx context.Context) error
	GetTransactionLogs(ctx context.Context, userID string) ([]models.TransactionLog, error)
	SpendForTranslation(ctx context.Context, userID, description string) (spent int64, balance int64, err error)

	// Financial ledger
	ClearFinancialLedger(ctx context.Context) error
	RecordFinancialEntry(ctx context.Context, adminID string, req models.FinancialEntryRequest) (*models.FinancialEntry, error)
	ListFinancialLedger(ctx context.Context) ([]models.FinancialEntry, error)

	// Rooms
	CreateRoom(ctx context.Context, userID string, req models.CreateRoomRequest) (*models.SyncRoom, error)
	GetRoom(ctx context.Context, roomID string) (*models.SyncRoom, error)
	SetFirstMessageTimestamp(ctx context.Context, userID, roomID string) error
	SoftDeleteRoom(ctx context.Context, userID, roomID string) error
	PostMessage(ctx context.Context, userID, roomID string, req models.PostMessageRequest) (*models.RoomMessage, error)
	ListMessages(ctx context.Context, roomID string) ([]models.RoomMessage, error)
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error

	// Practice and stats
	RecordPracticeAttempt(ctx context.Context, userID string, req models.PracticeAttemptRequest) (*models.PracticeAttemptResponse, error)
	GetPracticeHistory(ctx context.Context, userID string) ([]models.PracticeHistory, error)
	ResetLanguageStats(ctx context.Context, userID, languageCode string) error
	ResetUsageStats(ctx context.Context, userID string) error

	// AI features
	SynthesizeSpeech(ctx context.Context, req models.SpeechRequest) (*models.SpeechResponse, error)
	Translate(ctx context.Context, userID string, req models.TranslateRequest) (*models.TranslateResponse, error)
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error)
	Scrape(ctx context.Context, req models.ScrapeRequest) (*models.ScrapeResponse, error)
	Moderate(ctx context.Context, req models.ModerationRequest) (*models.ModerationResponse, error)
}

// Config holds the service settings taken from the application configuration
type Config struct {
	JWTSecret      string
	TokenDuration  time.Duration
	DeletePageSize int
}

// Option customizes a DefaultService
type Option func(*DefaultService)

// WithLogger sets the service logger
func WithLogger(logger *utils.Logger) Option {
	return func(s *DefaultService) { s.logger = logger }
}

// WithSettingsCache puts a read-through cache in front of the settings row
func WithSettingsCache(c *cache.SettingsCache) Option {
	return func(s *DefaultService) { s.settingsCache = c }
}

// WithProviders sets the external service adapters
func WithProviders(p *adapter.Providers) Option {
	return func(s *DefaultService) { s.providers = p }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *DefaultService) { s.now = now }
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo           repository.Repository
	jwtSecret      []byte
	tokenDuration  time.Duration
	deletePageSize int
	settingsCache  *cache.SettingsCache
	providers      *adapter.Providers
	logger         *utils.Logger
	now            func() time.Time
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, cfg Config, opts ...Option) Service {
	s := &DefaultService{
		repo:           repo,
		jwtSecret:      []byte(cfg.JWTSecret),
		tokenDuration:  cfg.TokenDuration,
		deletePageSize: cfg.DeletePageSize,
		logger:         utils.Discard(),
		now:            func() time.Time { return time.Now().UTC() },
	}
	if s.tokenDuration <= 0 {
		s.tokenDuration = 24 * time.Hour
	}
	if s.deletePageSize <= 0 {
		s.deletePageSize = 500
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.providers == nil {
		s.providers = adapter.NewProviders(&config.Config{}, s.logger)
	}
	return s
}

// internalError logs err and hides it behind a generic message
func (s *DefaultService) internalError(operation string, err error) error {
	s.logger.WithError(err).WithField("operation", operation).Error("Operation failed")
	return apperrors.NewInternalError(operation+" failed", err)
}

// passThrough returns categorized errors unchanged and hides everything else
func (s *DefaultService) passThrough(operation string, err error) error {
	var catErr *apperrors.CategorizedError
	if errors.As(err, &catErr) {
		if apperrors.IsSystemError(catErr) {
			s.logger.WithError(err).WithField("operation", operation).Warn("Operation failed")
		}
		return catErr
	}
	return s.internalError(operation, err)
}

// Authentication methods
func (s *DefaultService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	email := strings.TrimSpace(req.Email)

	// Check if user already exists
	existingUser, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, s.internalError("check user existence", err)
	}
	if existingUser != nil {
		return nil, apperrors.NewConflictError("user with this email already exists")
	}

	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, s.internalError("hash password", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         req.Name,
		Password:     string(hashedPassword),
		Role:         models.RoleUser,
		TokenBalance: settings.SignupBonus,
	}
	referrer := strings.TrimSpace(req.ReferrerUID)
	if referrer != "" {
		user.ReferredBy = &referrer
	}

	var signupLog *models.TransactionLog
	if settings.SignupBonus != 0 {
		signupLog = &models.TransactionLog{
			ActionType:  models.ActionSignupBonus,
			TokenChange: settings.SignupBonus,
			Timestamp:   s.now(),
			Description: "Welcome bonus",
		}
	}

	if err := s.repo.CreateUser(ctx, user, signupLog); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewConflictError("user with this email already exists")
		}
		return nil, s.internalError("create user", err)
	}

	if referrer != "" {
		if err := s.ProcessReferral(ctx, referrer, user.ID); err != nil {
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"referrerUid": referrer,
				"newUserId":   user.ID,
			}).Warn("Referral bonus not paid")
		}
	}

	s.logger.WithField("userId", user.ID).Info("User signed up")

	return &models.AuthResponse{
		Success:      true,
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.Name,
		TokenBalance: user.TokenBalance,
	}, nil
}

func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return nil, s.internalError("get user", err)
	}
	if user == nil {
		return nil, apperrors.NewUnauthorizedError("invalid email or password")
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid email or password")
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return nil, s.internalError("generate token", err)
	}

	return &models.AuthResponse{
		Success:      true,
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.Name,
		TokenBalance: user.TokenBalance,
		Token:        token,
		ExpiresIn:    int(s.tokenDuration.Seconds()),
	}, nil
}

// GetUser returns the user or a NotFound error
func (s *DefaultService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("userId", "is required")
	}
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, s.internalError("get user", err)
	}
	if user == nil {
		return nil, apperrors.NewNotFoundError("user", userID)
	}
	return user, nil
}

// AuthorizeUserAccess allows a requester to act on their own data, or an admin on anyone's
func (s *DefaultService) AuthorizeUserAccess(ctx context.Context, requesterID, userID string) error {
	if requesterID != "" && requesterID == userID {
		return nil
	}
	requester, err := s.GetUser(ctx, requesterID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return apperrors.NewUnauthorizedError("unknown user")
		}
		return err
	}
	if !requester.IsAdmin() {
		return apperrors.NewForbiddenError("you don't have permission to access this user")
	}
	return nil
}

func (s *DefaultService) generateJWT(user *models.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID,
		"exp": now.Add(s.tokenDuration).Unix(),
		"iat": now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}
	return tokenString, nil
}
