package service

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/vuthy55/studio-sub006/internal/errors"
	"github.com/vuthy55/studio-sub006/internal/models"
)

func (s *DefaultService) SynthesizeSpeech(ctx context.Context, req models.SpeechRequest) (*models.SpeechResponse, error) {
	res, err := s.providers.Speech.Synthesize(ctx, req.Text, req.LanguageTag, req.VoicePreference)
	if err != nil {
		return nil, s.passThrough("synthesize speech", err)
	}
	return &models.SpeechResponse{Success: true, AudioBase64: res.AudioBase64, Voice: res.Voice}, nil
}

// Translate checks the balance, translates, then charges the translation cost.
// A failed translation costs nothing.
func (s *DefaultService) Translate(ctx context.Context, userID string, req models.TranslateRequest) (*models.TranslateResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, apperrors.NewValidationError("text", "is required")
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}
	if settings.TranslationCost > 0 && user.TokenBalance < settings.TranslationCost {
		return nil, apperrors.NewInsufficientTokensError(user.TokenBalance, settings.TranslationCost)
	}

	translated, err := s.providers.Translator.Translate(ctx, req.Text, req.FromLanguage, req.ToLanguage)
	if err != nil {
		return nil, s.passThrough("translate", err)
	}

	spent, balance, err := s.SpendForTranslation(ctx, userID,
		fmt.Sprintf("Translation %s -> %s", req.FromLanguage, req.ToLanguage))
	if err != nil {
		return nil, err
	}

	return &models.TranslateResponse{
		Success:        true,
		TranslatedText: translated,
		TokensSpent:    spent,
		TokenBalance:   balance,
	}, nil
}

func (s *DefaultService) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	results, err := s.providers.Search.Search(ctx, req.Query, req.Limit)
	if err != nil {
		return nil, s.passThrough("search", err)
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	return &models.SearchResponse{Success: true, Results: results}, nil
}

// Scrape never fails on fetch problems; the content is empty instead
func (s *DefaultService) Scrape(ctx context.Context, req models.ScrapeRequest) (*models.ScrapeResponse, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, apperrors.NewValidationError("url", "is required")
	}
	content := s.providers.Scraper.Scrape(ctx, req.URL)
	return &models.ScrapeResponse{Success: true, URL: req.URL, Content: content}, nil
}

func (s *DefaultService) Moderate(ctx context.Context, req models.ModerationRequest) (*models.ModerationResponse, error) {
	res, err := s.providers.Moderator.Review(ctx, req.Rules, req.Posts)
	if err != nil {
		return nil, s.passThrough("moderate", err)
	}
	return &models.ModerationResponse{
		Success:          true,
		Judgment:         res.Judgment,
		Reasoning:        res.Reasoning,
		OffendingPostIDs: res.OffendingPostIDs,
	}, nil
}
