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

// RecordPracticeAttempt scores an attempt against the practice threshold and
// pays the practice reward on a pass.
func (s *DefaultService) RecordPracticeAttempt(ctx context.Context, userID string, req models.PracticeAttemptRequest) (*models.PracticeAttemptResponse, error) {
	if strings.TrimSpace(req.PhraseID) == "" {
		return nil, apperrors.NewValidationError("phraseId", "is required")
	}
	lang := strings.TrimSpace(req.LanguageCode)
	if lang == "" {
		return nil, apperrors.NewValidationError("languageCode", "is required")
	}
	if req.Accuracy < 0 || req.Accuracy > 100 {
		return nil, apperrors.NewValidationError("accuracy", "must be between 0 and 100")
	}

	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	attempt := &models.PracticeAttempt{
		UserID:       userID,
		PhraseID:     req.PhraseID,
		LanguageCode: lang,
		Accuracy:     req.Accuracy,
		Passed:       req.Accuracy >= settings.PracticeThreshold,
		At:           now,
	}

	var reward *models.TransactionLog
	if attempt.Passed && settings.PracticeReward > 0 {
		reward = &models.TransactionLog{
			UserID:      userID,
			ActionType:  models.ActionPracticeEarn,
			TokenChange: settings.PracticeReward,
			Timestamp:   now,
			Description: fmt.Sprintf("Practice passed: %s (%s)", req.PhraseID, lang),
		}
	}

	if err := s.repo.RecordPracticeAttempt(ctx, attempt, reward); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperrors.NewNotFoundError("user", userID)
		}
		return nil, s.internalError("record practice attempt", err)
	}

	resp := &models.PracticeAttemptResponse{Success: true, Passed: attempt.Passed}
	if reward != nil {
		resp.TokensEarned = reward.TokenChange
	}
	return resp, nil
}

func (s *DefaultService) GetPracticeHistory(ctx context.Context, userID string) ([]models.PracticeHistory, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	history, err := s.repo.GetPracticeHistory(ctx, userID)
	if err != nil {
		return nil, s.internalError("get practice history", err)
	}
	return history, nil
}

// ResetLanguageStats drops one language from every practice row of the user.
// Other languages and the token balance are not touched.
func (s *DefaultService) ResetLanguageStats(ctx context.Context, userID, languageCode string) error {
	lang := strings.TrimSpace(languageCode)
	if lang == "" {
		return apperrors.NewValidationError("languageCode", "is required")
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}

	rows, err := s.repo.ResetLanguageStats(ctx, userID, lang)
	if err != nil {
		return s.internalError("reset language stats", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"userId":   userID,
		"language": lang,
		"rows":     rows,
	}).Info("Language stats reset")
	return nil
}

func (s *DefaultService) ResetUsageStats(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.NewValidationError("userId", "is required")
	}

	if err := s.repo.ResetUsageStats(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperrors.NewNotFoundError("user", userID)
		}
		return s.internalError("reset usage stats", err)
	}
	return nil
}
