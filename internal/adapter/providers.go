package adapter

import (
	"context"
	"net/http"
	"time"

	"github.com/vuthy55/studio-sub006/internal/config"
	apperrors "github.com/vuthy55/studio-sub006/internal/errors"
	"github.com/vuthy55/studio-sub006/internal/models"
	"github.com/vuthy55/studio-sub006/internal/utils"
	"golang.org/x/time/rate"
)

// Providers bundles every external adapter the service uses
type Providers struct {
	Speech     SpeechSynthesizer
	Translator Translator
	Search     Searcher
	Scraper    *Scraper
	Moderator  ModerationReviewer
}

// ModerationReviewer reviews posts against rules
type ModerationReviewer interface {
	Review(ctx context.Context, rules string, posts []models.ModerationPost) (*ModerationResult, error)
}

// unconfigured answers every call with CredentialsMissing
type unconfigured struct {
	feature string
}

func (u unconfigured) err() error {
	return apperrors.NewCredentialsMissingError(u.feature)
}

func (u unconfigured) Synthesize(ctx context.Context, text, languageTag, voicePreference string) (*SpeechResult, error) {
	return nil, u.err()
}

func (u unconfigured) Translate(ctx context.Context, text, from, to string) (string, error) {
	return "", u.err()
}

func (u unconfigured) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	return nil, u.err()
}

func (u unconfigured) Review(ctx context.Context, rules string, posts []models.ModerationPost) (*ModerationResult, error) {
	return nil, u.err()
}

func (u unconfigured) Generate(ctx context.Context, prompt string) (string, error) {
	return "", u.err()
}

// NewProviders builds the adapters from configuration. A feature whose
// credentials are missing gets a stub that fails each call instead.
func NewProviders(cfg *config.Config, logger *utils.Logger) *Providers {
	if logger == nil {
		logger = utils.Discard()
	}
	opts := Options{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Limiter:    rate.NewLimiter(rate.Limit(10), 20),
		Logger:     logger,
	}
	p := &Providers{Scraper: NewScraper(nil, ScrapeCharBudget, logger)}

	if speech, err := NewAzureSpeech(cfg.Speech, "", opts); err != nil {
		logger.Warn("Speech synthesis disabled: %v", err)
		p.Speech = unconfigured{feature: speechFeature}
	} else {
		p.Speech = speech
	}

	var llm LLM
	if gemini, err := NewGeminiClient(cfg.LLM, opts); err != nil {
		logger.Warn("Language model disabled: %v", err)
		llm = unconfigured{feature: llmFeature}
	} else {
		llm = gemini
	}
	p.Moderator = NewModerator(llm)

	switch cfg.Translator.Backend {
	case BackendAzure:
		if azure, err := NewAzureTranslator(cfg.Translator, "", opts); err != nil {
			logger.Warn("Translation disabled: %v", err)
			p.Translator = unconfigured{feature: translationFeature}
		} else {
			p.Translator = azure
		}
	default:
		if _, ok := llm.(unconfigured); ok {
			p.Translator = unconfigured{feature: translationFeature}
		} else {
			p.Translator = NewLLMTranslator(llm)
		}
	}

	if search, err := NewGoogleSearch(cfg.Search, "", opts); err != nil {
		logger.Warn("Web search disabled: %v", err)
		p.Search = unconfigured{feature: searchFeature}
	} else {
		p.Search = search
	}

	return p
}
