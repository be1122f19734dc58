package adapter

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vuthy55/studio-sub006/internal/config"
	apperrors "github.com/vuthy55/studio-sub006/internal/errors"
	"github.com/vuthy55/studio-sub006/internal/models"
	"github.com/vuthy55/studio-sub006/internal/utils"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	searchFeature      = "web search"
	googleSearchURL    = "https://www.googleapis.com/customsearch/v1"
	MaxSearchResults   = 10
	defaultResults     = 5
	ScrapeCharBudget   = 4000
	maxScrapeBodyBytes = 2 << 20
)

// Searcher runs web searches
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
}

// GoogleSearch calls the Google Custom Search JSON API
type GoogleSearch struct {
	apiKey   string
	engineID string
	baseURL  string
	client   *providerClient
}

// NewGoogleSearch creates a search client. baseURL may be empty for the public endpoint.
func NewGoogleSearch(cfg config.SearchConfig, baseURL string, opts Options) (*GoogleSearch, error) {
	if cfg.APIKey == "" || cfg.EngineID == "" {
		return nil, apperrors.NewCredentialsMissingError(searchFeature)
	}
	if baseURL == "" {
		baseURL = googleSearchURL
	}

	return &GoogleSearch{
		apiKey:   cfg.APIKey,
		engineID: cfg.EngineID,
		baseURL:  baseURL,
		client:   newProviderClient("google-search", opts),
	}, nil
}

// Search returns at most limit results, capped at MaxSearchResults
func (s *GoogleSearch) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.NewValidationError("query", "must not be empty")
	}
	if limit <= 0 {
		limit = defaultResults
	}
	if limit > MaxSearchResults {
		limit = MaxSearchResults
	}

	q := url.Values{}
	q.Set("key", s.apiKey)
	q.Set("cx", s.engineID)
	q.Set("q", query)
	q.Set("num", strconv.Itoa(limit))

	var resp struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := s.client.doJSON(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil, nil, &resp); err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		if len(results) == limit {
			break
		}
		results = append(results, models.SearchResult{Title: item.Title, Link: item.Link, Snippet: item.Snippet})
	}
	return results, nil
}

// Scraper fetches a page and extracts its readable text
type Scraper struct {
	http   *http.Client
	budget int
	logger *utils.Logger
}

// NewScraper creates a scraper that truncates to budget characters. A nil
// client fetches public addresses only.
func NewScraper(client *http.Client, budget int, logger *utils.Logger) *Scraper {
	if client == nil {
		client = NewPublicHTTPClient(15 * time.Second)
	}
	if budget <= 0 {
		budget = ScrapeCharBudget
	}
	if logger == nil {
		logger = utils.Discard()
	}
	return &Scraper{http: client, budget: budget, logger: logger}
}

// Scrape returns the cleaned text of rawURL. Fetch and parse failures are
// logged and yield an empty string so callers can carry on.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) string {
	log := s.logger.WithField("url", rawURL)

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		log.Warn("Skipping scrape of invalid URL")
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		log.WithError(err).Warn("Failed to build scrape request")
		return ""
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; linguasync-scraper/1.0)")

	resp, err := s.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("Scrape fetch failed")
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.WithField("status", resp.StatusCode).Warn("Scrape returned non-200 status")
		return ""
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxScrapeBodyBytes))
	if err != nil {
		log.WithError(err).Warn("Failed to parse scraped page")
		return ""
	}

	return truncateRunes(ExtractText(doc), s.budget)
}

var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Nav:      true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Noscript: true,
	atom.Template: true,
}

// ExtractText returns the visible text of doc with whitespace collapsed
func ExtractText(doc *html.Node) string {
	var words []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			words = append(words, strings.Fields(n.Data)...)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(words, " ")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
