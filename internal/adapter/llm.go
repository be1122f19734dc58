package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/vuthy55/studio-sub006/internal/config"
	apperrors "github.com/vuthy55/studio-sub006/internal/errors"
)

const llmFeature = "language model"

// LLM generates text from a prompt
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiClient calls the Gemini generateContent endpoint
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *providerClient
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig map[string]interface{} `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// NewGeminiClient creates a Gemini client
func NewGeminiClient(cfg config.LLMConfig, opts Options) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.NewCredentialsMissingError(llmFeature)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	return &GeminiClient{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newProviderClient("gemini", opts),
	}, nil
}

// Generate returns the concatenated text of the first candidate
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	headers := map[string]string{"x-goog-api-key": g.apiKey}

	payload := geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: map[string]interface{}{"temperature": 0.2},
	}

	var resp geminiResponse
	if err := g.client.doJSON(ctx, http.MethodPost, endpoint, headers, payload, &resp); err != nil {
		return "", err
	}

	if resp.PromptFeedback.BlockReason != "" {
		return "", apperrors.NewProviderError("gemini", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason))
	}
	if len(resp.Candidates) == 0 {
		return "", apperrors.NewProviderError("gemini", fmt.Errorf("no candidates returned"))
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", apperrors.NewProviderError("gemini", fmt.Errorf("empty response, finish reason %q", resp.Candidates[0].FinishReason))
	}
	return text, nil
}
