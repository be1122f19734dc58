package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/vuthy55/studio-sub006/internal/errors"
	"github.com/vuthy55/studio-sub006/internal/models"
	"github.com/vuthy55/studio-sub006/internal/repository"
)

// loadSettings reads the economy settings through the cache. A missing
// settings row yields zero values, which callers treat as unset.
func (s *DefaultService) loadSettings(ctx context.Context) (*models.AppSettings, error) {
	if s.settingsCache != nil {
		cached, err := s.settingsCache.Get(ctx)
		if err != nil {
			s.logger.WithError(err).Warn("Settings cache unavailable, reading from store")
		} else if cached != nil {
			return cached, nil
		}
	}

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, s.internalError("load settings", err)
	}
	if settings == nil {
		settings = &models.AppSettings{}
	}

	if s.settingsCache != nil {
		if err := s.settingsCache.Set(ctx, settings); err != nil {
			s.logger.WithError(err).Warn("Failed to cache settings")
		}
	}
	return settings, nil
}

func (s *DefaultService) GetSettings(ctx context.Context) (*models.AppSettings, error) {
	return s.loadSettings(ctx)
}

func (s *DefaultService) UpdateSettings(ctx context.Context, req models.UpdateSettingsRequest) (*models.AppSettings, error) {
	settings := &models.AppSettings{
		SignupBonus:       req.SignupBonus,
		PracticeReward:    req.PracticeReward,
		PracticeThreshold: req.PracticeThreshold,
		TranslationCost:   req.TranslationCost,
		ReferralBonus:     req.ReferralBonus,
	}
	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return nil, s.internalError("save settings", err)
	}

	if s.settingsCache != nil {
		if err := s.settingsCache.Invalidate(ctx); err != nil {
			s.logger.WithError(err).Warn("Failed to invalidate settings cache")
		}
	}
	return settings, nil
}

// IssueTokens adds amount (of any sign) to the balance of the user with email
// and records an admin_issue log attributed to the admin.
func (s *DefaultService) IssueTokens(ctx context.Context, adminID string, req models.IssueTokensRequest) error {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return apperrors.NewValidationError("email", "is required")
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return s.internalError("find user by email", err)
	}
	if user == nil {
		return apperrors.NewNotFoundError("user", email)
	}

	description := req.Reason
	if req.Description != "" {
		description = fmt.Sprintf("%s: %s", req.Reason, req.Description)
	}

	entry := &models.TransactionLog{
		UserID:      user.ID,
		ActionType:  models.ActionAdminIssue,
		TokenChange: req.Amount,
		Timestamp:   s.now(),
		Description: description,
	}
	if adminID != "" {
		entry.FromUserID = &adminID
	}

	balance, err := s.repo.ApplyTokenChange(ctx, entry)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperrors.NewNotFoundError("user", email)
		}
		return s.internalError("issue tokens", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"userId":  user.ID,
		"adminId": adminID,
		"amount":  req.Amount,
		"balance": balance,
	}).Info("Tokens issued")
	return nil
}

// ProcessReferral pays the configured referral bonus to the referrer. It is not
// idempotent: signup gates it, and the HTTP route is admin only.
func (s *DefaultService) ProcessReferral(ctx context.Context, referrerUID, newUserID string) error {
	if referrerUID == "" {
		return apperrors.NewValidationError("referrerUid", "is required")
	}
	if newUserID == "" {
		return apperrors.NewValidationError("newUserId", "is required")
	}
	if referrerUID == newUserID {
		return apperrors.NewValidationError("referrerUid", "cannot refer yourself")
	}

	settings, err := s.loadSettings(ctx)
	if err != nil {
		return err
	}
	bonus := settings.ReferralBonus
	if bonus <= 0 {
		return apperrors.NewValidationError("referralBonus", "is not configured")
	}

	newUser, err := s.repo.GetUserByID(ctx, newUserID)
	if err != nil {
		return s.internalError("get referred user", err)
	}
	if newUser == nil {
		return apperrors.NewNotFoundError("user", newUserID)
	}

	now := s.now()
	entry := &models.TransactionLog{
		UserID:      referrerUID,
		ActionType:  models.ActionReferralBonus,
		TokenChange: bonus,
		Timestamp:   now,
		Description: "Referral bonus",
		FromUserID:  &newUserID,
	}
	referral := &models.Referral{
		ReferrerUID:  referrerUID,
		ReferredUID:  newUserID,
		Status:       models.ReferralCompleted,
		BonusAwarded: bonus,
		CreatedAt:    now,
	}

	if err := s.repo.CreateReferral(ctx, referral, entry); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperrors.NewNotFoundError("referrer", referrerUID)
		}
		return s.internalError("process referral", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"referrerUid": referrerUID,
		"newUserId":   newUserID,
		"bonus":       bonus,
	}).Info("Referral processed")
	return nil
}

// ClearTokenLedger zeroes every balance in one batch, then deletes every
// user's transaction logs page by page.
func (s *DefaultService) ClearTokenLedger(ctx context.Context) error {
	ids, err := s.repo.ListUserIDs(ctx)
	if err != nil {
		return s.internalError("list users", err)
	}
	if len(ids) == 0 {
		return nil
	}

	if err := s.repo.ZeroTokenBalances(ctx, ids); err != nil {
		return s.internalError("reset balances", err)
	}

	total := 0
	for _, id := range ids {
		userID := id
		n, err := drainPages(ctx, s.deletePageSize, func(ctx context.Context, limit int) (int, error) {
			return s.repo.DeleteTransactionLogsPage(ctx, userID, limit)
		})
		total += n
		if err != nil {
			return s.internalError("delete transaction logs", err)
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"users":       len(ids),
		"logsDeleted": total,
	}).Warn("Token ledger cleared")
	return nil
}

// ClearFinancialLedger deletes every financial ledger entry page by page
func (s *DefaultService) ClearFinancialLedger(ctx context.Context) error {
	n, err := drainPages(ctx, s.deletePageSize, s.repo.DeleteFinancialEntriesPage)
	if err != nil {
		return s.internalError("clear financial ledger", err)
	}

	s.logger.WithField("entriesDeleted", n).Warn("Financial ledger cleared")
	return nil
}

// drainPages calls deletePage until it deletes fewer than pageSize rows.
// The context is checked between pages, so a cancelled clear can be rerun to resume.
func drainPages(ctx context.Context, pageSize int, deletePage func(ctx context.Context, limit int) (int, error)) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := deletePage(ctx, pageSize)
		if err != nil {
			return total, err
		}
		total += n
		if n < pageSize {
			return total, nil
		}
	}
}

func (s *DefaultService) GetTransactionLogs(ctx context.Context, userID string) ([]models.TransactionLog, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	logs, err := s.repo.GetTransactionLogs(ctx, userID)
	if err != nil {
		return nil, s.internalError("get transaction logs", err)
	}
	return logs, nil
}

// SpendForTranslation charges the configured translation cost
func (s *DefaultService) SpendForTranslation(ctx context.Context, userID, description string) (int64, int64, error) {
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return 0, 0, err
	}
	cost := settings.TranslationCost
	if cost <= 0 {
		user, err := s.GetUser(ctx, userID)
		if err != nil {
			return 0, 0, err
		}
		return 0, user.TokenBalance, nil
	}

	entry := &models.TransactionLog{
		UserID:      userID,
		ActionType:  models.ActionTranslationSpend,
		TokenChange: -cost,
		Timestamp:   s.now(),
		Description: description,
	}

	balance, err := s.repo.SpendTokens(ctx, entry)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return 0, 0, apperrors.NewNotFoundError("user", userID)
		case errors.Is(err, repository.ErrInsufficientTokens):
			current := int64(0)
			if user, getErr := s.repo.GetUserByID(ctx, userID); getErr == nil && user != nil {
				current = user.TokenBalance
			}
			return 0, 0, apperrors.NewInsufficientTokensError(current, cost)
		default:
			return 0, 0, s.internalError("spend tokens", err)
		}
	}
	return cost, balance, nil
}

func (s *DefaultService) RecordFinancialEntry(ctx context.Context, adminID string, req models.FinancialEntryRequest) (*models.FinancialEntry, error) {
	if req.Type != models.FinancialRevenue && req.Type != models.FinancialExpense {
		return nil, apperrors.NewValidationError("type", "must be revenue or expense")
	}
	if req.AmountCents <= 0 {
		return nil, apperrors.NewValidationError("amountCents", "must be positive")
	}

	entry := &models.FinancialEntry{
		Type:        req.Type,
		AmountCents: req.AmountCents,
		Description: req.Description,
		Source:      req.Source,
		CreatedBy:   adminID,
		CreatedAt:   s.now(),
	}
	if err := s.repo.AddFinancialEntry(ctx, entry); err != nil {
		return nil, s.internalError("record financial entry", err)
	}
	return entry, nil
}

func (s *DefaultService) ListFinancialLedger(ctx context.Context) ([]models.FinancialEntry, error) {
	entries, err := s.repo.ListFinancialEntries(ctx)
	if err != nil {
		return nil, s.internalError("list financial ledger", err)
	}
	return entries, nil
}
