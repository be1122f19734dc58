package adapter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/vuthy55/studio-sub006/internal/config"
	apperrors "github.com/vuthy55/studio-sub006/internal/errors"
)

const (
	speechFeature      = "speech synthesis"
	speechOutputFormat = "audio-16khz-128kbitrate-mono-mp3"
	defaultVoiceName   = "default"
)

// SpeechResult is synthesized audio and the voice that produced it
type SpeechResult struct {
	AudioBase64 string
	Voice       string
}

// SpeechSynthesizer turns text into audio
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, languageTag, voicePreference string) (*SpeechResult, error)
}

// AzureSpeech calls the Azure Speech text-to-speech REST endpoint
type AzureSpeech struct {
	key      string
	endpoint string
	client   *providerClient
}

// NewAzureSpeech creates an Azure speech client. endpoint may be empty to use the regional default.
func NewAzureSpeech(cfg config.SpeechConfig, endpoint string, opts Options) (*AzureSpeech, error) {
	if cfg.Key == "" || (cfg.Region == "" && endpoint == "") {
		return nil, apperrors.NewCredentialsMissingError(speechFeature)
	}
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", cfg.Region)
	}

	return &AzureSpeech{
		key:      cfg.Key,
		endpoint: endpoint,
		client:   newProviderClient("azure-speech", opts),
	}, nil
}

// Synthesize renders text with the mapped voice, or the provider default for unmapped tags
func (s *AzureSpeech) Synthesize(ctx context.Context, text, languageTag, voicePreference string) (*SpeechResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("text", "must not be empty")
	}
	if strings.TrimSpace(languageTag) == "" {
		return nil, apperrors.NewValidationError("languageTag", "must not be empty")
	}

	tag := canonicalTag(languageTag)
	if !validTag(tag) {
		return nil, apperrors.NewUnsupportedLanguageError(languageTag)
	}
	voice, mapped := LookupVoice(tag, voicePreference)
	ssml, err := buildSSML(text, tag, voice, voicePreference)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build SSML", err)
	}

	audio, err := s.client.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(ssml))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", s.key)
		req.Header.Set("Content-Type", "application/ssml+xml")
		req.Header.Set("X-Microsoft-OutputFormat", speechOutputFormat)
		req.Header.Set("User-Agent", "linguasync")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, apperrors.NewSynthesisCanceledError("provider returned no audio")
	}

	if !mapped {
		voice = defaultVoiceName
	}
	return &SpeechResult{
		AudioBase64: base64.StdEncoding.EncodeToString(audio),
		Voice:       voice,
	}, nil
}

// buildSSML names the voice when mapped; otherwise it selects by language and gender
func buildSSML(text, tag, voice, preference string) ([]byte, error) {
	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(text)); err != nil {
		return nil, err
	}

	var voiceAttrs string
	if voice != "" {
		voiceAttrs = fmt.Sprintf("name='%s'", voice)
	} else {
		gender := "Female"
		if strings.EqualFold(preference, VoiceMale) {
			gender = "Male"
		}
		voiceAttrs = fmt.Sprintf("xml:lang='%s' xml:gender='%s'", tag, gender)
	}

	ssml := fmt.Sprintf(
		"<speak version='1.0' xml:lang='%s'><voice %s>%s</voice></speak>",
		tag, voiceAttrs, escaped.String(),
	)
	return []byte(ssml), nil
}
