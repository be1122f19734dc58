package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Transaction log action types
const (
	ActionSignupBonus      = "signup_bonus"
	ActionAdminIssue       = "admin_issue"
	ActionReferralBonus    = "referral_bonus"
	ActionPracticeEarn     = "practice_earn"
	ActionTranslationSpend = "translation_spend"
)

// Room statuses
const (
	RoomActive = "active"
	RoomClosed = "closed"
)

// Referral statuses
const (
	ReferralCompleted = "completed"
)

// Notification types
const (
	NotificationRoomClosed = "room_closed"
)

// Financial ledger entry types
const (
	FinancialRevenue = "revenue"
	FinancialExpense = "expense"
)

// SettingsID is the primary key of the singleton settings row
const SettingsID = "app"

// User represents a user profile and its token wallet
type User struct {
	ID               string     `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	Name             string     `db:"name" json:"name"`
	Password         string     `db:"password" json:"-"` // Password hash, not returned in JSON
	Role             string     `db:"role" json:"role"`
	TokenBalance     int64      `db:"token_balance" json:"tokenBalance"`
	SyncLiveUsage    int64      `db:"sync_live_usage" json:"syncLiveUsage"`
	SyncOnlineUsage  int64      `db:"sync_online_usage" json:"syncOnlineUsage"`
	UsageLastResetAt *time.Time `db:"usage_last_reset_at" json:"usageLastResetAt,omitempty"`
	ReferredBy       *string    `db:"referred_by" json:"referredBy,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// TransactionLog is an append-only record of one token balance change
type TransactionLog struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"userId"`
	ActionType  string    `db:"action_type" json:"actionType"`
	TokenChange int64     `db:"token_change" json:"tokenChange"`
	Timestamp   time.Time `db:"timestamp" json:"timestamp"`
	Description string    `db:"description" json:"description"`
	FromUserID  *string   `db:"from_user_id" json:"fromUserId,omitempty"`
}

// PracticeHistory holds per-language practice counters for one phrase
type PracticeHistory struct {
	ID                  string             `db:"id" json:"id"`
	UserID              string             `db:"user_id" json:"userId"`
	PhraseID            string             `db:"phrase_id" json:"phraseId"`
	PassCountPerLang    JSONMap[int64]     `db:"pass_count_per_lang" json:"passCountPerLang"`
	FailCountPerLang    JSONMap[int64]     `db:"fail_count_per_lang" json:"failCountPerLang"`
	LastAccuracyPerLang JSONMap[float64]   `db:"last_accuracy_per_lang" json:"lastAccuracyPerLang"`
	LastAttemptPerLang  JSONMap[time.Time] `db:"last_attempt_per_lang" json:"lastAttemptPerLang"`
	UpdatedAt           time.Time          `db:"updated_at" json:"updatedAt"`
}

// PracticeAttempt is one scored pronunciation attempt
type PracticeAttempt struct {
	UserID       string
	PhraseID     string
	LanguageCode string
	Accuracy     float64
	Passed       bool
	At           time.Time
}

// Referral records a referrer being paid for bringing in a new user
type Referral struct {
	ID           string    `db:"id" json:"id"`
	ReferrerUID  string    `db:"referrer_uid" json:"referrerUid"`
	ReferredUID  string    `db:"referred_uid" json:"referredUid"`
	Status       string    `db:"status" json:"status"`
	BonusAwarded int64     `db:"bonus_awarded" json:"bonusAwarded"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// SyncRoom is a shared live translation room
type SyncRoom struct {
	ID                 string         `db:"id" json:"id"`
	Topic              string         `db:"topic" json:"topic"`
	CreatorUID         string         `db:"creator_uid" json:"creatorUid"`
	Status             string         `db:"status" json:"status"`
	FirstMessageAt     *time.Time     `db:"first_message_at" json:"firstMessageAt"`
	LastActivityAt     time.Time      `db:"last_activity_at" json:"lastActivityAt"`
	LastSessionEndedAt *time.Time     `db:"last_session_ended_at" json:"lastSessionEndedAt"`
	InvitedEmails      pq.StringArray `db:"invited_emails" json:"invitedEmails"`
	ActiveSpeakerUID   *string        `db:"active_speaker_uid" json:"activeSpeakerUid"`
	EmceeUIDs          pq.StringArray `db:"emcee_uids" json:"emceeUids"`
	CreatedAt          time.Time      `db:"created_at" json:"createdAt"`
}

// RoomMessage is an append-only chat or system message in a room
type RoomMessage struct {
	ID              string    `db:"id" json:"id"`
	RoomID          string    `db:"room_id" json:"roomId"`
	Text            string    `db:"text" json:"text"`
	SpeakerName     string    `db:"speaker_name" json:"speakerName"`
	SpeakerUID      string    `db:"speaker_uid" json:"speakerUid"`
	SpeakerLanguage string    `db:"speaker_language" json:"speakerLanguage"`
	IsSystem        bool      `db:"is_system" json:"isSystem"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// Notification is a message addressed to a single user
type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Type      string    `db:"type" json:"type"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	Read      bool      `db:"read" json:"read"`
	RoomID    *string   `db:"room_id" json:"roomId,omitempty"`
}

// AppSettings holds the economic constants of the token economy
type AppSettings struct {
	SignupBonus       int64     `db:"signup_bonus" json:"signupBonus"`
	PracticeReward    int64     `db:"practice_reward" json:"practiceReward"`
	PracticeThreshold float64   `db:"practice_threshold" json:"practiceThreshold"`
	TranslationCost   int64     `db:"translation_cost" json:"translationCost"`
	ReferralBonus     int64     `db:"referral_bonus" json:"referralBonus"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

// FinancialEntry is a revenue or expense row, unrelated to token balances
type FinancialEntry struct {
	ID          string    `db:"id" json:"id"`
	Type        string    `db:"type" json:"type"`
	AmountCents int64     `db:"amount_cents" json:"amountCents"`
	Description string    `db:"description" json:"description"`
	Source      string    `db:"source" json:"source"`
	CreatedBy   string    `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// JSONMap is a language-keyed map stored as a JSONB column
type JSONMap[V any] map[string]V

// Value implements driver.Valuer
func (m JSONMap[V]) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]V(m))
}

// Scan implements sql.Scanner
func (m *JSONMap[V]) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = JSONMap[V]{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported JSONB source type %T", src)
	}

	out := map[string]V{}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*m = out
	return nil
}
