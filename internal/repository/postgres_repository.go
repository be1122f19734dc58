package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/vuthy55/studio-sub006/internal/models"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// withTx runs fn inside a transaction, rolling back on error or panic.
// Conflicting transactions fail atomically; retries are left to the caller.
func (r *PostgresRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// User repository methods
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User, signupLog *models.TransactionLog) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO users (id, email, name, password, role, token_balance, sync_live_usage,
				sync_online_usage, usage_last_reset_at, referred_by, created_at, updated_at)
			VALUES (:id, :email, :name, :password, :role, :token_balance, :sync_live_usage,
				:sync_online_usage, :usage_last_reset_at, :referred_by, :created_at, :updated_at)
		`, user)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return ErrDuplicateEmail
			}
			return err
		}

		if signupLog == nil {
			return nil
		}
		signupLog.UserID = user.ID
		return insertTransactionLog(ctx, tx, signupLog)
	})
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT * FROM users WHERE LOWER(email) = LOWER($1)`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT * FROM users WHERE id = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM users ORDER BY created_at`); err != nil {
		return nil, err
	}
	return ids, nil
}

// Token ledger repository methods

// insertTransactionLog appends a log entry within an existing transaction
func insertTransactionLog(ctx context.Context, tx *sqlx.Tx, entry *models.TransactionLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO transaction_logs (id, user_id, action_type, token_change, timestamp, description, from_user_id)
		VALUES (:id, :user_id, :action_type, :token_change, :timestamp, :description, :from_user_id)
	`, entry)
	return err
}

// applyTokenChangeTx adds entry.TokenChange to the balance and logs it within tx
func applyTokenChangeTx(ctx context.Context, tx *sqlx.Tx, entry *models.TransactionLog) (int64, error) {
	var balance int64
	err := tx.QueryRowxContext(ctx, `
		UPDATE users SET token_balance = token_balance + $1, updated_at = $2
		WHERE id = $3
		RETURNING token_balance
	`, entry.TokenChange, time.Now().UTC(), entry.UserID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}

	if err := insertTransactionLog(ctx, tx, entry); err != nil {
		return 0, err
	}

	return balance, nil
}

func (r *PostgresRepository) ApplyTokenChange(ctx context.Context, entry *models.TransactionLog) (int64, error) {
	var balance int64
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		balance, err = applyTokenChangeTx(ctx, tx, entry)
		return err
	})
	return balance, err
}

// SpendTokens debits -entry.TokenChange from the balance, refusing to go below zero
func (r *PostgresRepository) SpendTokens(ctx context.Context, entry *models.TransactionLog) (int64, error) {
	var balance int64
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var current int64
		err := tx.GetContext(ctx, &current,
			`SELECT token_balance FROM users WHERE id = $1 FOR UPDATE`, entry.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			return err
		}

		if current+entry.TokenChange < 0 {
			return fmt.Errorf("%w: balance %d", ErrInsufficientTokens, current)
		}

		balance, err = applyTokenChangeTx(ctx, tx, entry)
		return err
	})
	return balance, err
}

func (r *PostgresRepository) CreateReferral(ctx context.Context, referral *models.Referral, entry *models.TransactionLog) error {
	if referral.ID == "" {
		referral.ID = uuid.New().String()
	}
	if referral.CreatedAt.IsZero() {
		referral.CreatedAt = time.Now().UTC()
	}

	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		// Fails with ErrUserNotFound when the referrer is gone
		if _, err := applyTokenChangeTx(ctx, tx, entry); err != nil {
			return err
		}

		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO referrals (id, referrer_uid, referred_uid, status, bonus_awarded, created_at)
			VALUES (:id, :referrer_uid, :referred_uid, :status, :bonus_awarded, :created_at)
		`, referral)
		return err
	})
}

func (r *PostgresRepository) GetTransactionLogs(ctx context.Context, userID string) ([]models.TransactionLog, error) {
	logs := []models.TransactionLog{}
	err := r.db.SelectContext(ctx, &logs,
		`SELECT * FROM transaction_logs WHERE user_id = $1 ORDER BY timestamp DESC`, userID)
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// ZeroTokenBalances resets every listed balance in a single statement
func (r *PostgresRepository) ZeroTokenBalances(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET token_balance = 0, updated_at = $1 WHERE id = ANY($2)`,
		time.Now().UTC(), pq.Array(userIDs))
	return err
}

func (r *PostgresRepository) DeleteTransactionLogsPage(ctx context.Context, userID string, limit int) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM transaction_logs
		WHERE id IN (SELECT id FROM transaction_logs WHERE user_id = $1 LIMIT $2)
	`, userID, limit)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	return int(n), err
}

// Financial ledger repository methods
func (r *PostgresRepository) AddFinancialEntry(ctx context.Context, entry *models.FinancialEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO financial_ledger (id, type, amount_cents, description, source, created_by, created_at)
		VALUES (:id, :type, :amount_cents, :description, :source, :created_by, :created_at)
	`, entry)
	return err
}

func (r *PostgresRepository) ListFinancialEntries(ctx context.Context) ([]models.FinancialEntry, error) {
	entries := []models.FinancialEntry{}
	if err := r.db.SelectContext(ctx, &entries, `SELECT * FROM financial_ledger ORDER BY created_at DESC`); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *PostgresRepository) DeleteFinancialEntriesPage(ctx context.Context, limit int) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM financial_ledger WHERE id IN (SELECT id FROM financial_ledger LIMIT $1)`, limit)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	return int(n), err
}

// Settings repository methods
func (r *PostgresRepository) GetSettings(ctx context.Context) (*models.AppSettings, error) {
	var settings models.AppSettings
	err := r.db.GetContext(ctx, &settings, `
		SELECT signup_bonus, practice_reward, practice_threshold, translation_cost, referral_bonus, updated_at
		FROM settings WHERE id = $1
	`, models.SettingsID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Settings never saved
		}
		return nil, err
	}
	return &settings, nil
}

func (r *PostgresRepository) SaveSettings(ctx context.Context, settings *models.AppSettings) error {
	settings.UpdatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (id, signup_bonus, practice_reward, practice_threshold, translation_cost, referral_bonus, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			signup_bonus = EXCLUDED.signup_bonus,
			practice_reward = EXCLUDED.practice_reward,
			practice_threshold = EXCLUDED.practice_threshold,
			translation_cost = EXCLUDED.translation_cost,
			referral_bonus = EXCLUDED.referral_bonus,
			updated_at = EXCLUDED.updated_at
	`, models.SettingsID, settings.SignupBonus, settings.PracticeReward, settings.PracticeThreshold,
		settings.TranslationCost, settings.ReferralBonus, settings.UpdatedAt)
	return err
}

// Room repository methods
func (r *PostgresRepository) CreateRoom(ctx context.Context, room *models.SyncRoom) error {
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	if room.InvitedEmails == nil {
		room.InvitedEmails = pq.StringArray{}
	}
	if room.EmceeUIDs == nil {
		room.EmceeUIDs = pq.StringArray{}
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO sync_rooms (id, topic, creator_uid, status, first_message_at, last_activity_at,
			last_session_ended_at, invited_emails, active_speaker_uid, emcee_uids, created_at)
		VALUES (:id, :topic, :creator_uid, :status, :first_message_at, :last_activity_at,
			:last_session_ended_at, :invited_emails, :active_speaker_uid, :emcee_uids, :created_at)
	`, room)
	return err
}

func (r *PostgresRepository) GetRoom(ctx context.Context, roomID string) (*models.SyncRoom, error) {
	var room models.SyncRoom
	err := r.db.GetContext(ctx, &room, `SELECT * FROM sync_rooms WHERE id = $1`, roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Room not found
		}
		return nil, err
	}
	return &room, nil
}

// lockRoom re-reads a room under a row lock for the rest of tx
func lockRoom(ctx context.Context, tx *sqlx.Tx, roomID string) (*models.SyncRoom, error) {
	var room models.SyncRoom
	err := tx.GetContext(ctx, &room, `SELECT * FROM sync_rooms WHERE id = $1 FOR UPDATE`, roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

func insertRoomMessage(ctx context.Context, tx *sqlx.Tx, msg *models.RoomMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO room_messages (id, room_id, text, speaker_name, speaker_uid, speaker_language, is_system, created_at)
		VALUES (:id, :room_id, :text, :speaker_name, :speaker_uid, :speaker_language, :is_system, :created_at)
	`, msg)
	return err
}

// StartRoomSession stamps first_message_at and posts the announcement, unless a
// session is already running. It reports whether a new session was started.
func (r *PostgresRepository) StartRoomSession(ctx context.Context, roomID string, announcement *models.RoomMessage) (bool, error) {
	started := false
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		room, err := lockRoom(ctx, tx, roomID)
		if err != nil {
			return err
		}

		if room.FirstMessageAt != nil {
			return nil
		}

		if announcement.CreatedAt.IsZero() {
			announcement.CreatedAt = time.Now().UTC()
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE sync_rooms
			SET first_message_at = $2, last_session_ended_at = NULL, last_activity_at = $2
			WHERE id = $1
		`, roomID, announcement.CreatedAt)
		if err != nil {
			return err
		}

		announcement.RoomID = roomID
		if err := insertRoomMessage(ctx, tx, announcement); err != nil {
			return err
		}

		started = true
		return nil
	})
	return started, err
}

// CloseRoom marks the room closed, clears its session timer and notifies every
// admin. The admin scan runs inside the same transaction as the status change.
// A room that is already closed with no running session is left untouched.
func (r *PostgresRepository) CloseRoom(ctx context.Context, roomID string, closedAt time.Time, notice NoticeBuilder) (*models.SyncRoom, int, error) {
	var closed *models.SyncRoom
	notified := 0

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		room, err := lockRoom(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if room.Status == models.RoomClosed && room.FirstMessageAt == nil {
			closed = room
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE sync_rooms
			SET status = $2, last_activity_at = $3, first_message_at = NULL, last_session_ended_at = $3
			WHERE id = $1
		`, roomID, models.RoomClosed, closedAt)
		if err != nil {
			return err
		}

		room.Status = models.RoomClosed
		room.LastActivityAt = closedAt
		room.FirstMessageAt = nil
		room.LastSessionEndedAt = &closedAt

		var adminIDs []string
		err = tx.SelectContext(ctx, &adminIDs, `SELECT id FROM users WHERE role = $1`, models.RoleAdmin)
		if err != nil {
			return err
		}

		for _, adminID := range adminIDs {
			n := notice(room, adminID)
			if n.ID == "" {
				n.ID = uuid.New().String()
			}
			_, err := tx.NamedExecContext(ctx, `
				INSERT INTO notifications (id, user_id, type, message, created_at, read, room_id)
				VALUES (:id, :user_id, :type, :message, :created_at, :read, :room_id)
			`, n)
			if err != nil {
				return err
			}
		}

		closed = room
		notified = len(adminIDs)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return closed, notified, nil
}

func (r *PostgresRepository) AddRoomMessage(ctx context.Context, msg *models.RoomMessage) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		room, err := lockRoom(ctx, tx, msg.RoomID)
		if err != nil {
			return err
		}
		if room.Status == models.RoomClosed {
			return ErrRoomClosed
		}

		if err := insertRoomMessage(ctx, tx, msg); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE sync_rooms SET last_activity_at = $2 WHERE id = $1`, msg.RoomID, msg.CreatedAt)
		return err
	})
}

func (r *PostgresRepository) ListRoomMessages(ctx context.Context, roomID string) ([]models.RoomMessage, error) {
	messages := []models.RoomMessage{}
	err := r.db.SelectContext(ctx, &messages,
		`SELECT * FROM room_messages WHERE room_id = $1 ORDER BY created_at ASC`, roomID)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// Notification repository methods
func (r *PostgresRepository) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	notifications := []models.Notification{}
	err := r.db.SelectContext(ctx, &notifications,
		`SELECT * FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *PostgresRepository) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, notificationID, userID)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// Practice and stats repository methods

// RecordPracticeAttempt bumps the pass or fail counter for the attempt's language
// and, when reward is non-nil, pays it in the same transaction.
func (r *PostgresRepository) RecordPracticeAttempt(ctx context.Context, attempt *models.PracticeAttempt, reward *models.TransactionLog) error {
	counter := "fail_count_per_lang"
	if attempt.Passed {
		counter = "pass_count_per_lang"
	}

	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		var exists bool
		err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, attempt.UserID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO practice_history (id, user_id, phrase_id, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, phrase_id) DO NOTHING
		`, uuid.New().String(), attempt.UserID, attempt.PhraseID, attempt.At)
		if err != nil {
			return err
		}

		query := fmt.Sprintf(`
			UPDATE practice_history SET
				%[1]s = jsonb_set(%[1]s, ARRAY[$3::text], to_jsonb(COALESCE((%[1]s->>$3::text)::bigint, 0) + 1)),
				last_accuracy_per_lang = jsonb_set(last_accuracy_per_lang, ARRAY[$3::text], to_jsonb($4::float8)),
				last_attempt_per_lang = jsonb_set(last_attempt_per_lang, ARRAY[$3::text], to_jsonb($5::text)),
				updated_at = $6
			WHERE user_id = $1 AND phrase_id = $2
		`, counter)

		_, err = tx.ExecContext(ctx, query, attempt.UserID, attempt.PhraseID, attempt.LanguageCode,
			attempt.Accuracy, attempt.At.Format(time.RFC3339Nano), attempt.At)
		if err != nil {
			return err
		}

		if reward == nil {
			return nil
		}
		_, err = applyTokenChangeTx(ctx, tx, reward)
		return err
	})
}

func (r *PostgresRepository) GetPracticeHistory(ctx context.Context, userID string) ([]models.PracticeHistory, error) {
	history := []models.PracticeHistory{}
	err := r.db.SelectContext(ctx, &history,
		`SELECT * FROM practice_history WHERE user_id = $1 ORDER BY phrase_id`, userID)
	if err != nil {
		return nil, err
	}
	return history, nil
}

// ResetLanguageStats removes the four per-language keys for languageCode from every
// practice row of the user in a single statement. Other languages are untouched.
func (r *PostgresRepository) ResetLanguageStats(ctx context.Context, userID, languageCode string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE practice_history SET
			pass_count_per_lang = pass_count_per_lang - $2::text,
			fail_count_per_lang = fail_count_per_lang - $2::text,
			last_accuracy_per_lang = last_accuracy_per_lang - $2::text,
			last_attempt_per_lang = last_attempt_per_lang - $2::text,
			updated_at = $3
		WHERE user_id = $1
	`, userID, languageCode, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) ResetUsageStats(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET sync_live_usage = 0, sync_online_usage = 0, usage_last_reset_at = NULL, updated_at = $2
		WHERE id = $1
	`, userID, time.Now().UTC())
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
