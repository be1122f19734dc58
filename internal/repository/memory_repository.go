package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vuthy55/studio-sub006/internal/models"
)

// MemoryRepository implements Repository in process memory. A single mutex
// makes every method one atomic unit, mirroring the transactional guarantees of
// PostgresRepository. It backs DB_DRIVER=memory and the test suites.
type MemoryRepository struct {
	mu            sync.Mutex
	users         map[string]*models.User
	logs          map[string][]models.TransactionLog
	referrals     []models.Referral
	financial     []models.FinancialEntry
	settings      *models.AppSettings
	rooms         map[string]*models.SyncRoom
	messages      map[string][]models.RoomMessage
	notifications []models.Notification
	practice      map[string]map[string]*models.PracticeHistory // user -> phrase -> row
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[string]*models.User),
		logs:     make(map[string][]models.TransactionLog),
		rooms:    make(map[string]*models.SyncRoom),
		messages: make(map[string][]models.RoomMessage),
		practice: make(map[string]map[string]*models.PracticeHistory),
	}
}

// Referrals returns a copy of every stored referral
func (m *MemoryRepository) Referrals() []models.Referral {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Referral(nil), m.referrals...)
}

// SavePracticeHistory stores a practice row as-is, replacing any row for the same phrase
func (m *MemoryRepository) SavePracticeHistory(row *models.PracticeHistory) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.practice[row.UserID] == nil {
		m.practice[row.UserID] = make(map[string]*models.PracticeHistory)
	}
	cp := clonePractice(row)
	m.practice[row.UserID][row.PhraseID] = &cp
}

func (m *MemoryRepository) CreateUser(ctx context.Context, user *models.User, signupLog *models.TransactionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicateEmail
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	cp := *user
	m.users[user.ID] = &cp

	if signupLog != nil {
		signupLog.UserID = user.ID
		m.appendLog(signupLog)
	}
	return nil
}

func (m *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// appendLog must be called with mu held
func (m *MemoryRepository) appendLog(entry *models.TransactionLog) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	m.logs[entry.UserID] = append(m.logs[entry.UserID], *entry)
}

// applyTokenChange must be called with mu held
func (m *MemoryRepository) applyTokenChange(entry *models.TransactionLog) (int64, error) {
	u, ok := m.users[entry.UserID]
	if !ok {
		return 0, ErrUserNotFound
	}
	u.TokenBalance += entry.TokenChange
	u.UpdatedAt = time.Now().UTC()
	m.appendLog(entry)
	return u.TokenBalance, nil
}

func (m *MemoryRepository) ApplyTokenChange(ctx context.Context, entry *models.TransactionLog) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyTokenChange(entry)
}

func (m *MemoryRepository) SpendTokens(ctx context.Context, entry *models.TransactionLog) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[entry.UserID]
	if !ok {
		return 0, ErrUserNotFound
	}
	if u.TokenBalance+entry.TokenChange < 0 {
		return 0, fmt.Errorf("%w: balance %d", ErrInsufficientTokens, u.TokenBalance)
	}
	return m.applyTokenChange(entry)
}

func (m *MemoryRepository) CreateReferral(ctx context.Context, referral *models.Referral, entry *models.TransactionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.applyTokenChange(entry); err != nil {
		return err
	}

	if referral.ID == "" {
		referral.ID = uuid.New().String()
	}
	if referral.CreatedAt.IsZero() {
		referral.CreatedAt = time.Now().UTC()
	}
	m.referrals = append(m.referrals, *referral)
	return nil
}

func (m *MemoryRepository) GetTransactionLogs(ctx context.Context, userID string) ([]models.TransactionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	src := m.logs[userID]
	logs := make([]models.TransactionLog, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		logs = append(logs, src[i])
	}
	return logs, nil
}

func (m *MemoryRepository) ZeroTokenBalances(ctx context.Context, userIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for _, id := range userIDs {
		if u, ok := m.users[id]; ok {
			u.TokenBalance = 0
			u.UpdatedAt = now
		}
	}
	return nil
}

func (m *MemoryRepository) DeleteTransactionLogsPage(ctx context.Context, userID string, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	logs := m.logs[userID]
	n := limit
	if n > len(logs) {
		n = len(logs)
	}
	if n == len(logs) {
		delete(m.logs, userID)
	} else {
		m.logs[userID] = append([]models.TransactionLog(nil), logs[n:]...)
	}
	return n, nil
}

func (m *MemoryRepository) AddFinancialEntry(ctx context.Context, entry *models.FinancialEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	m.financial = append(m.financial, *entry)
	return nil
}

func (m *MemoryRepository) ListFinancialEntries(ctx context.Context) ([]models.FinancialEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]models.FinancialEntry, 0, len(m.financial))
	for i := len(m.financial) - 1; i >= 0; i-- {
		entries = append(entries, m.financial[i])
	}
	return entries, nil
}

func (m *MemoryRepository) DeleteFinancialEntriesPage(ctx context.Context, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := limit
	if n > len(m.financial) {
		n = len(m.financial)
	}
	m.financial = append([]models.FinancialEntry(nil), m.financial[n:]...)
	return n, nil
}

func (m *MemoryRepository) GetSettings(ctx context.Context) (*models.AppSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.settings == nil {
		return nil, nil
	}
	cp := *m.settings
	return &cp, nil
}

func (m *MemoryRepository) SaveSettings(ctx context.Context, settings *models.AppSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	settings.UpdatedAt = time.Now().UTC()
	cp := *settings
	m.settings = &cp
	return nil
}

func cloneRoom(room *models.SyncRoom) models.SyncRoom {
	cp := *room
	cp.InvitedEmails = append(pq.StringArray{}, room.InvitedEmails...)
	cp.EmceeUIDs = append(pq.StringArray{}, room.EmceeUIDs...)
	return cp
}

func (m *MemoryRepository) CreateRoom(ctx context.Context, room *models.SyncRoom) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	cp := cloneRoom(room)
	m.rooms[room.ID] = &cp
	return nil
}

func (m *MemoryRepository) GetRoom(ctx context.Context, roomID string) (*models.SyncRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return nil, nil
	}
	cp := cloneRoom(room)
	return &cp, nil
}

// appendMessage must be called with mu held
func (m *MemoryRepository) appendMessage(msg *models.RoomMessage) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	m.messages[msg.RoomID] = append(m.messages[msg.RoomID], *msg)
}

func (m *MemoryRepository) StartRoomSession(ctx context.Context, roomID string, announcement *models.RoomMessage) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return false, ErrRoomNotFound
	}
	if room.FirstMessageAt != nil {
		return false, nil
	}

	if announcement.CreatedAt.IsZero() {
		announcement.CreatedAt = time.Now().UTC()
	}
	at := announcement.CreatedAt
	room.FirstMessageAt = &at
	room.LastSessionEndedAt = nil
	room.LastActivityAt = at

	announcement.RoomID = roomID
	m.appendMessage(announcement)
	return true, nil
}

func (m *MemoryRepository) CloseRoom(ctx context.Context, roomID string, closedAt time.Time, notice NoticeBuilder) (*models.SyncRoom, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return nil, 0, ErrRoomNotFound
	}
	if room.Status == models.RoomClosed && room.FirstMessageAt == nil {
		cp := cloneRoom(room)
		return &cp, 0, nil
	}

	ended := closedAt
	room.Status = models.RoomClosed
	room.LastActivityAt = closedAt
	room.FirstMessageAt = nil
	room.LastSessionEndedAt = &ended

	cp := cloneRoom(room)
	notified := 0
	for _, id := range m.sortedUserIDs() {
		if !m.users[id].IsAdmin() {
			continue
		}
		n := notice(&cp, id)
		if n.ID == "" {
			n.ID = uuid.New().String()
		}
		m.notifications = append(m.notifications, *n)
		notified++
	}

	return &cp, notified, nil
}

// sortedUserIDs must be called with mu held
func (m *MemoryRepository) sortedUserIDs() []string {
	ids := make([]string, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *MemoryRepository) AddRoomMessage(ctx context.Context, msg *models.RoomMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[msg.RoomID]
	if !ok {
		return ErrRoomNotFound
	}
	if room.Status == models.RoomClosed {
		return ErrRoomClosed
	}

	m.appendMessage(msg)
	room.LastActivityAt = msg.CreatedAt
	return nil
}

func (m *MemoryRepository) ListRoomMessages(ctx context.Context, roomID string) ([]models.RoomMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]models.RoomMessage{}, m.messages[roomID]...), nil
}

func (m *MemoryRepository) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Notification{}
	for i := len(m.notifications) - 1; i >= 0; i-- {
		if m.notifications[i].UserID == userID {
			out = append(out, m.notifications[i])
		}
	}
	return out, nil
}

func (m *MemoryRepository) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.notifications {
		if m.notifications[i].ID == notificationID && m.notifications[i].UserID == userID {
			m.notifications[i].Read = true
			return nil
		}
	}
	return ErrNotificationNotFound
}

func clonePractice(row *models.PracticeHistory) models.PracticeHistory {
	cp := *row
	cp.PassCountPerLang = cloneMap(row.PassCountPerLang)
	cp.FailCountPerLang = cloneMap(row.FailCountPerLang)
	cp.LastAccuracyPerLang = cloneMap(row.LastAccuracyPerLang)
	cp.LastAttemptPerLang = cloneMap(row.LastAttemptPerLang)
	return cp
}

func cloneMap[V any](src models.JSONMap[V]) models.JSONMap[V] {
	dst := make(models.JSONMap[V], len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (m *MemoryRepository) RecordPracticeAttempt(ctx context.Context, attempt *models.PracticeAttempt, reward *models.TransactionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[attempt.UserID]
	if !ok {
		return ErrUserNotFound
	}
	if reward != nil && reward.UserID != u.ID {
		return ErrUserNotFound
	}

	rows := m.practice[attempt.UserID]
	if rows == nil {
		rows = make(map[string]*models.PracticeHistory)
		m.practice[attempt.UserID] = rows
	}
	row, ok := rows[attempt.PhraseID]
	if !ok {
		row = &models.PracticeHistory{
			ID:                  uuid.New().String(),
			UserID:              attempt.UserID,
			PhraseID:            attempt.PhraseID,
			PassCountPerLang:    models.JSONMap[int64]{},
			FailCountPerLang:    models.JSONMap[int64]{},
			LastAccuracyPerLang: models.JSONMap[float64]{},
			LastAttemptPerLang:  models.JSONMap[time.Time]{},
		}
		rows[attempt.PhraseID] = row
	}

	lang := attempt.LanguageCode
	if attempt.Passed {
		row.PassCountPerLang[lang]++
	} else {
		row.FailCountPerLang[lang]++
	}
	row.LastAccuracyPerLang[lang] = attempt.Accuracy
	row.LastAttemptPerLang[lang] = attempt.At
	row.UpdatedAt = attempt.At

	if reward == nil {
		return nil
	}
	_, err := m.applyTokenChange(reward)
	return err
}

func (m *MemoryRepository) GetPracticeHistory(ctx context.Context, userID string) ([]models.PracticeHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.PracticeHistory{}
	for _, row := range m.practice[userID] {
		out = append(out, clonePractice(row))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PhraseID < out[j].PhraseID })
	return out, nil
}

func (m *MemoryRepository) ResetLanguageStats(ctx context.Context, userID, languageCode string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var n int64
	for _, row := range m.practice[userID] {
		delete(row.PassCountPerLang, languageCode)
		delete(row.FailCountPerLang, languageCode)
		delete(row.LastAccuracyPerLang, languageCode)
		delete(row.LastAttemptPerLang, languageCode)
		row.UpdatedAt = now
		n++
	}
	return n, nil
}

func (m *MemoryRepository) ResetUsageStats(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.SyncLiveUsage = 0
	u.SyncOnlineUsage = 0
	u.UsageLastResetAt = nil
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// SetUsage overwrites the usage counters of a user; used to seed local data
func (m *MemoryRepository) SetUsage(userID string, live, online int64, lastReset *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.SyncLiveUsage = live
	u.SyncOnlineUsage = online
	u.UsageLastResetAt = lastReset
	return nil
}
