package parser

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"NewsPerspectives/internal/config"
	"NewsPerspectives/internal/domain"
	"NewsPerspectives/internal/logging"
	"NewsPerspectives/internal/scanner"
)

const (
	googleNewsBaseURL    = "https://news.google.com/rss"
	googleNewsLocale     = "hl=en-US&gl=US&ceid=US:en"
	defaultMaxResults    = 5
	maxDescriptionLength = 500
	unknownSource        = "Unknown Source"
	unknownTitle         = "Unknown Title"
	newsIDPrefix         = "news_"
)

var googleNewsTopics = map[string]string{
	"WORLD":         "/topics/CAAqJggKIiBDQkFTRWdvSUwyMHZNRGx1YlY4U0FtVnVHZ0pWVXlnQVAB",
	"NATION":        "/topics/CAAqIQgKIhtDQkFTRGdvSUwyMHZNRGs1TVdvaUFtVnVLQUFQAQ",
	"BUSINESS":      "/topics/CAAqJggKIiBDQkFTRWdvSUwyMHZNRGx6TVdZU0FtVnVHZ0pWVXlnQVAB",
	"TECHNOLOGY":    "/topics/CAAqJggKIiBDQkFTRWdvSUwyMHZNRGRqTVhZU0FtVnVHZ0pWVXlnQVAB",
	"ENTERTAINMENT": "/topics/CAAqJggKIiBDQkFTRWdvSUwyMHZNREpxYW5RU0FtVnVHZ0pWVXlnQVAB",
	"SPORTS":        "/topics/CAAqJggKIiBDQkFTRWdvSUwyMHZNRFp1ZEdvU0FtVnVHZ0pWVXlnQVAB",
	"SCIENCE":       "/topics/CAAqJggKIiBDQkFTRWdvSUwyMHZNRFp0Y1RjU0FtVnVHZ0pWVXlnQVAB",
	"HEALTH":        "/topics/CAAqIQgKIhtDQkFTRGdvSUwyMHZNR3QwTlRFU0FtVnVLQUFQAQ",
}

type rssFeed struct {
	Items []rssItem `xml:"channel>item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
	Source      string `xml:"source"`
}

// GoogleNewsScanner reads topic RSS feeds from Google News.
type GoogleNewsScanner struct {
	client  *http.Client
	baseURL string
	now     func() time.Time
	logger  *slog.Logger
}

// NewGoogleNewsScanner wires an HTTP client; a nil client gets a 20s timeout.
func NewGoogleNewsScanner(client *http.Client, logger *slog.Logger) *GoogleNewsScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &GoogleNewsScanner{
		client:  client,
		baseURL: googleNewsBaseURL,
		now:     time.Now,
		logger:  logging.OrDiscard(logger),
	}
}

// Name identifies the strategy inside the registry.
func (g *GoogleNewsScanner) Name() string {
	return "google-news"
}

// Scan fetches up to max_results items per topic. Topics that fail are
// logged and skipped; Scan errors only when every topic failed.
func (g *GoogleNewsScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Item, error) {
	categories := req.Categories
	if len(categories) == 0 {
		categories = []scanner.Category{{}}
	}
	limit := req.IntOption(config.MaxResultsOption, defaultMaxResults)

	var (
		items []domain.Item
		errs  []error
	)
	for _, cat := range categories {
		feedURL := cat.URL
		if feedURL == "" {
			feedURL = g.TopicURL(cat.Name)
		}

		g.logger.Info("fetching news", "topic", cat.Name, "url", feedURL)
		feed, err := g.fetchFeed(ctx, feedURL)
		if err != nil {
			g.logger.Error("news topic failed", "topic", cat.Name, "error", err)
			errs = append(errs, fmt.Errorf("topic %s: %w", cat.Name, err))
			continue
		}

		fetched := g.toItems(feed, cat.Name, limit)
		g.logger.Info("fetched news", "topic", cat.Name, "count", len(fetched))
		items = append(items, fetched...)
	}

	if len(errs) == len(categories) {
		return nil, errors.Join(errs...)
	}
	return items, nil
}

// TopicURL maps a topic name to its feed; unknown topics get top stories.
func (g *GoogleNewsScanner) TopicURL(topic string) string {
	if path, ok := googleNewsTopics[strings.ToUpper(strings.TrimSpace(topic))]; ok {
		return g.baseURL + path + "?" + googleNewsLocale
	}
	return g.baseURL + "?" + googleNewsLocale
}

func (g *GoogleNewsScanner) fetchFeed(ctx context.Context, feedURL string) (rssFeed, error) {
	var feed rssFeed

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return feed, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return feed, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return feed, fmt.Errorf("google news returned %s", resp.Status)
	}

	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return feed, fmt.Errorf("decode feed: %w", err)
	}
	return feed, nil
}

func (g *GoogleNewsScanner) toItems(feed rssFeed, topic string, limit int) []domain.Item {
	fetchedAt := domain.Timestamp(g.now())
	entries := feed.Items
	if len(entries) > limit {
		entries = entries[:limit]
	}

	items := make([]domain.Item, 0, len(entries))
	for _, entry := range entries {
		title := CleanHTML(entry.Title)
		if title == "" {
			title = unknownTitle
		}
		description := truncateRunes(CleanHTML(entry.Description), maxDescriptionLength)
		if description == "" {
			description = title
		}
		source := strings.TrimSpace(entry.Source)
		if source == "" {
			source = unknownSource
		}
		link := strings.TrimSpace(entry.Link)

		items = append(items, domain.Item{
			ID:          NewsID(link, title),
			Title:       title,
			Description: description,
			URL:         link,
			Source:      source,
			Published:   strings.TrimSpace(entry.PubDate),
			Topic:       topic,
			FetchedAt:   fetchedAt,
		})
	}
	return items
}

// NewsID derives a stable item id from the link, or the title without one.
func NewsID(link, title string) string {
	name := link
	if name == "" {
		name = title
	}
	return newsIDPrefix + uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// CleanHTML drops markup and decodes entities. Only surrounding whitespace is
// trimmed; interior spacing, including decoded &nbsp;, is kept.
func CleanHTML(fragment string) string {
	text := fragment
	if strings.ContainsAny(fragment, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment)); err == nil {
			text = doc.Text()
		}
	}
	return strings.TrimSpace(text)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
