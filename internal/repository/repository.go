package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vuthy55/studio-sub006/internal/models"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrRoomNotFound         = errors.New("room not found")
	ErrRoomClosed           = errors.New("room is closed")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrDuplicateEmail       = errors.New("user with this email already exists")
	ErrInsufficientTokens   = errors.New("insufficient tokens")
)

// NoticeBuilder renders the notification an admin receives when a room closes.
// It runs inside the closing transaction and must not touch the repository.
type NoticeBuilder func(room *models.SyncRoom, adminID string) *models.Notification

// Repository interface defines the methods that any repository implementation must satisfy.
// Every method that changes a token balance also appends exactly one transaction log
// in the same atomic unit.
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User, signupLog *models.TransactionLog) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUserIDs(ctx context.Context) ([]string, error)

	// Token ledger operations
	ApplyTokenChange(ctx context.Context, entry *models.TransactionLog) (int64, error)
	SpendTokens(ctx context.Context, entry *models.TransactionLog) (int64, error)
	CreateReferral(ctx context.Context, referral *models.Referral, entry *models.TransactionLog) error
	GetTransactionLogs(ctx context.Context, userID string) ([]models.TransactionLog, error)
	ZeroTokenBalances(ctx context.Context, userIDs []string) error
	DeleteTransactionLogsPage(ctx context.Context, userID string, limit int) (int, error)

	// Financial ledger operations
	AddFinancialEntry(ctx context.Context, entry *models.FinancialEntry) error
	ListFinancialEntries(ctx context.Context) ([]models.FinancialEntry, error)
	DeleteFinancialEntriesPage(ctx context.Context, limit int) (int, error)

	// Settings operations
	GetSettings(ctx context.Context) (*models.AppSettings, error)
	SaveSettings(ctx context.Context, settings *models.AppSettings) error

	// Room operations
	CreateRoom(ctx context.Context, room *models.SyncRoom) error
	GetRoom(ctx context.Context, roomID string) (*models.SyncRoom, error)
	StartRoomSession(ctx context.Context, roomID string, announcement *models.RoomMessage) (bool, error)
	CloseRoom(ctx context.Context, roomID string, closedAt time.Time, notice NoticeBuilder) (*models.SyncRoom, int, error)
	AddRoomMessage(ctx context.Context, msg *models.RoomMessage) error
	ListRoomMessages(ctx context.Context, roomID string) ([]models.RoomMessage, error)

	// Notification operations
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error

	// Practice and stats operations
	RecordPracticeAttempt(ctx context.Context, attempt *models.PracticeAttempt, reward *models.TransactionLog) error
	GetPracticeHistory(ctx context.Context, userID string) ([]models.PracticeHistory, error)
	ResetLanguageStats(ctx context.Context, userID, languageCode string) (int64, error)
	ResetUsageStats(ctx context.Context, userID string) error
}
