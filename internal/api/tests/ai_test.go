package api_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vuthy55/studio-sub006/internal/adapter"
	"github.com/vuthy55/studio-sub006/internal/api/testutils"
	"github.com/vuthy55/studio-sub006/internal/config"
	"github.com/vuthy55/studio-sub006/internal/models"
	"github.com/vuthy55/studio-sub006/internal/retry"
	"github.com/vuthy55/studio-sub006/internal/service"
	"golang.org/x/time/rate"
)

// fakeUpstream stands in for the speech, LLM, search and web page hosts
func fakeUpstream(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/tts", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("RIFF-audio"))
	})

	mux.HandleFunc("/llm/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reply := "Xin chào"
		if strings.Contains(string(body), "JUDGMENT") {
			reply = "JUDGMENT: violation\nREASONING: Insults another member.\nFLAGGED:\np2::bob: you are an idiot"
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{{
				"content": map[string]interface{}{"parts": []map[string]string{{"text": reply}}},
			}},
		})
	})

	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		items := []map[string]string{}
		for i := 0; i < 12; i++ {
			items = append(items, map[string]string{
				"title": fmt.Sprintf("Result %d", i), "link": fmt.Sprintf("https://example.com/%d", i),
			})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"items": items})
	})

	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><script>var x;</script></head>
<body><nav>Menu</nav><p>Visa rules   for Thailand</p><footer>Copyright</footer></body></html>`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setupAIContext(t *testing.T) (*testutils.TestContext, *httptest.Server) {
	upstream := fakeUpstream(t)
	opts := adapter.Options{
		Limiter: rate.NewLimiter(rate.Inf, 1),
		Retry:   &retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1},
	}

	speech, err := adapter.NewAzureSpeech(config.SpeechConfig{Key: "k"}, upstream.URL+"/tts", opts)
	require.NoError(t, err)
	llm, err := adapter.NewGeminiClient(config.LLMConfig{APIKey: "k", BaseURL: upstream.URL + "/llm"}, opts)
	require.NoError(t, err)
	search, err := adapter.NewGoogleSearch(config.SearchConfig{APIKey: "k", EngineID: "cx"}, upstream.URL+"/search", opts)
	require.NoError(t, err)

	providers := &adapter.Providers{
		Speech:     speech,
		Translator: adapter.NewLLMTranslator(llm),
		Search:     search,
		Scraper:    adapter.NewScraper(upstream.Client(), 0, nil),
		Moderator:  adapter.NewModerator(llm),
	}

	return testutils.SetupTestContext(t, service.WithProviders(providers)), upstream
}

func TestSpeechEndpoint(t *testing.T) {
	testCtx, _ := setupAIContext(t)
	defer testutils.CleanupTestContext(testCtx)
	headers := testutils.AuthHeaders(testCtx.TestUserJWT)

	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/ai/speech",
		models.SpeechRequest{Text: "Sawasdee", LanguageTag: "th-TH", VoicePreference: "male"}, headers)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SpeechResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AudioBase64)
	assert.Equal(t, "th-TH-NiwatNeural", resp.Voice)

	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/ai/speech",
		models.SpeechRequest{Text: "Hola", LanguageTag: "es-MX"}, headers)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "default", resp.Voice)
}

func TestTranslateEndpoint(t *testing.T) {
	testCtx, _ := setupAIContext(t)
	defer testutils.CleanupTestContext(testCtx)
	testCtx.SetSettings(t, models.AppSettings{TranslationCost: 2})
	headers := testutils.AuthHeaders(testCtx.TestUserJWT)
	req := models.TranslateRequest{Text: "Hello", FromLanguage: "en", ToLanguage: "vi"}

	// no tokens yet
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/ai/translate", req, headers)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "INSUFFICIENT_TOKENS", testutils.DecodeAction(t, w).Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/admin/tokens/issue",
		models.IssueTokensRequest{Email: testutils.TestUserEmail, Amount: 5, Reason: "Trial"},
		testutils.AuthHeaders(testCtx.TestAdminJWT))
	require.Equal(t, http.StatusOK, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/ai/translate", req, headers)
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.TranslateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Xin chào", resp.TranslatedText)
	assert.Equal(t, int64(2), resp.TokensSpent)
	assert.Equal(t, int64(3), resp.TokenBalance)

	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/ai/translate",
		models.TranslateRequest{Text: "Hello", FromLanguage: "en", ToLanguage: "tlh"}, headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int64(3), testCtx.Balance(t, testCtx.TestUserID))
}

func TestSearchAndScrapeEndpoints(t *testing.T) {
	testCtx, upstream := setupAIContext(t)
	defer testutils.CleanupTestContext(testCtx)
	headers := testutils.AuthHeaders(testCtx.TestUserJWT)

	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/ai/search",
		models.SearchRequest{Query: "thai visa", Limit: 10}, headers)
	require.Equal(t, http.StatusOK, w.Code)
	var search models.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &search))
	assert.Len(t, search.Results, 10)

	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/ai/scrape",
		models.ScrapeRequest{URL: upstream.URL + "/page"}, headers)
	require.Equal(t, http.StatusOK, w.Code)
	var scrape models.ScrapeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scrape))
	assert.Equal(t, "Visa rules for Thailand", scrape.Content)

	// a failing page is not an error
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/ai/scrape",
		models.ScrapeRequest{URL: upstream.URL + "/missing"}, headers)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scrape))
	assert.True(t, scrape.Success)
	assert.Empty(t, scrape.Content)
}

func TestModerateEndpoint(t *testing.T) {
	testCtx, _ := setupAIContext(t)
	defer testutils.CleanupTestContext(testCtx)

	req := models.ModerationRequest{
		Rules: "Be respectful.",
		Posts: []models.ModerationPost{
			{ID: "p1", Author: "alice", Content: "Where is the station?"},
			{ID: "p2", Author: "bob", Content: "you are an idiot"},
		},
	}
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/ai/moderate", req,
		testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ModerationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, adapter.JudgmentViolation, resp.Judgment)
	assert.Equal(t, []string{"p2"}, resp.OffendingPostIDs)
}

func TestAIEndpointsUnconfigured(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/ai/speech",
		models.SpeechRequest{Text: "hi", LanguageTag: "en-US"}, testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, "CREDENTIALS_MISSING", testutils.DecodeAction(t, w).Code)
}
