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

const (
	translationFeature   = "translation"
	azureTranslatorURL   = "https://api.cognitive.microsofttranslator.com"
	azureTranslatorAPIV3 = "3.0"
)

// Translator backends
const (
	BackendAzure = "azure"
	BackendLLM   = "llm"
)

// Translator translates text between two language codes. Backends are interchangeable.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// Language is one entry of the language-code table
type Language struct {
	Name  string // English name, used in LLM prompts
	Azure string // Azure Translator code
}

var languageTable = map[string]Language{
	"en":    {Name: "English", Azure: "en"},
	"km":    {Name: "Khmer", Azure: "km"},
	"th":    {Name: "Thai", Azure: "th"},
	"vi":    {Name: "Vietnamese", Azure: "vi"},
	"lo":    {Name: "Lao", Azure: "lo"},
	"my":    {Name: "Burmese", Azure: "my"},
	"ms":    {Name: "Malay", Azure: "ms"},
	"id":    {Name: "Indonesian", Azure: "id"},
	"fil":   {Name: "Filipino", Azure: "fil"},
	"zh":    {Name: "Chinese (Simplified)", Azure: "zh-Hans"},
	"zh-cn": {Name: "Chinese (Simplified)", Azure: "zh-Hans"},
	"zh-tw": {Name: "Chinese (Traditional)", Azure: "zh-Hant"},
	"ja":    {Name: "Japanese", Azure: "ja"},
	"ko":    {Name: "Korean", Azure: "ko"},
	"fr":    {Name: "French", Azure: "fr"},
	"de":    {Name: "German", Azure: "de"},
	"es":    {Name: "Spanish", Azure: "es"},
	"it":    {Name: "Italian", Azure: "it"},
	"pt":    {Name: "Portuguese", Azure: "pt"},
	"ru":    {Name: "Russian", Azure: "ru"},
	"ar":    {Name: "Arabic", Azure: "ar"},
	"hi":    {Name: "Hindi", Azure: "hi"},
}

// LookupLanguage resolves a code such as "th", "th-TH" or "zh-TW".
// The full tag is tried first, then its primary subtag.
func LookupLanguage(code string) (Language, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
	if lang, ok := languageTable[norm]; ok {
		return lang, nil
	}
	if i := strings.Index(norm, "-"); i > 0 {
		if lang, ok := languageTable[norm[:i]]; ok {
			return lang, nil
		}
	}
	return Language{}, apperrors.NewUnsupportedLanguageError(code)
}

func resolvePair(from, to string) (Language, Language, error) {
	src, err := LookupLanguage(from)
	if err != nil {
		return Language{}, Language{}, err
	}
	dst, err := LookupLanguage(to)
	if err != nil {
		return Language{}, Language{}, err
	}
	return src, dst, nil
}

// AzureTranslator calls the Azure Translator v3 REST API
type AzureTranslator struct {
	key     string
	region  string
	baseURL string
	client  *providerClient
}

// NewAzureTranslator creates an Azure translator. baseURL may be empty for the public endpoint.
func NewAzureTranslator(cfg config.TranslatorConfig, baseURL string, opts Options) (*AzureTranslator, error) {
	if cfg.Key == "" {
		return nil, apperrors.NewCredentialsMissingError(translationFeature)
	}
	if baseURL == "" {
		baseURL = azureTranslatorURL
	}

	return &AzureTranslator{
		key:     cfg.Key,
		region:  cfg.Region,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newProviderClient("azure-translator", opts),
	}, nil
}

// Translate implements Translator
func (t *AzureTranslator) Translate(ctx context.Context, text, from, to string) (string, error) {
	src, dst, err := resolvePair(from, to)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("api-version", azureTranslatorAPIV3)
	q.Set("from", src.Azure)
	q.Set("to", dst.Azure)
	endpoint := t.baseURL + "/translate?" + q.Encode()

	headers := map[string]string{"Ocp-Apim-Subscription-Key": t.key}
	if t.region != "" {
		headers["Ocp-Apim-Subscription-Region"] = t.region
	}

	var resp []struct {
		Translations []struct {
			Text string `json:"text"`
			To   string `json:"to"`
		} `json:"translations"`
	}
	payload := []map[string]string{{"Text": text}}
	if err := t.client.doJSON(ctx, http.MethodPost, endpoint, headers, payload, &resp); err != nil {
		return "", err
	}

	if len(resp) == 0 || len(resp[0].Translations) == 0 {
		return "", apperrors.NewProviderError("azure-translator", fmt.Errorf("empty translation"))
	}
	return resp[0].Translations[0].Text, nil
}

// LLMTranslator translates by prompting a language model
type LLMTranslator struct {
	llm LLM
}

// NewLLMTranslator creates a translator backed by llm
func NewLLMTranslator(llm LLM) *LLMTranslator {
	return &LLMTranslator{llm: llm}
}

// Translate implements Translator
func (t *LLMTranslator) Translate(ctx context.Context, text, from, to string) (string, error) {
	src, dst, err := resolvePair(from, to)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(
		"Translate the following text from %s to %s. Reply with the translation only, without quotes or commentary.\n\n%s",
		src.Name, dst.Name, text,
	)
	out, err := t.llm.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(out), "\""), nil
}
