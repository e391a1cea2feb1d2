package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsPerspectives/internal/config"
	"NewsPerspectives/internal/domain"
	"NewsPerspectives/internal/logging"
	"NewsPerspectives/internal/scanner"
)

const (
	arxivBaseURL     = "https://arxiv.org"
	arxivDefaultPage = 200
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ArxivScanner crawls listing pages and returns papers published on the requested day.
type ArxivScanner struct {
	client   *http.Client
	pageSize int
	now      func() time.Time
	logger   *slog.Logger
}

// NewArxivScanner wires an HTTP client; pageSize defaults to 200.
func NewArxivScanner(client *http.Client, logger *slog.Logger) *ArxivScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &ArxivScanner{
		client:   client,
		pageSize: arxivDefaultPage,
		now:      time.Now,
		logger:   logging.OrDiscard(logger),
	}
}

// Name identifies the strategy inside the registry.
func (a *ArxivScanner) Name() string {
	return "arxiv"
}

// Scan walks each category listing until it reaches papers older than
// req.Day. The max_results option caps items per category.
func (a *ArxivScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Item, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories provided for source %s", req.SiteName)
	}

	targetDay := req.Day.UTC().Truncate(24 * time.Hour)
	limit := req.IntOption(config.MaxResultsOption, 0)
	fetchedAt := domain.Timestamp(a.now())
	results := make([]domain.Item, 0)
	seen := map[string]struct{}{}

	for _, cat := range req.Categories {
		taken := 0
		for skip := 0; ; skip += a.pageSize {
			pageURL, err := buildPageURL(cat.URL, skip, a.pageSize)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}

			doc, err := a.fetchDocument(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}

			page, more := a.extractItems(doc, targetDay, req.SiteName, cat.Name)
			for _, item := range page {
				if limit > 0 && taken >= limit {
					more = false
					break
				}
				if _, ok := seen[item.ID]; ok {
					continue
				}
				seen[item.ID] = struct{}{}
				item.FetchedAt = fetchedAt
				results = append(results, item)
				taken++
			}
			a.logger.Debug("arxiv page scanned", "category", cat.Name, "skip", skip, "items", len(page))

			if !more {
				break
			}
		}
	}

	return results, nil
}

func (a *ArxivScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsPerspectives/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (a *ArxivScanner) extractItems(doc *goquery.Document, targetDay time.Time, siteName, category string) ([]domain.Item, bool) {
	var (
		collected []domain.Item
		more      = true
		processed int
	)

	doc.Find("dl > dt").EachWithBreak(func(_ int, dt *goquery.Selection) bool {
		processed++

		item, publishedAt, ok := parseEntry(dt, dt.Next(), siteName, category)
		if !ok {
			return true
		}

		day := publishedAt.UTC().Truncate(24 * time.Hour)
		if day.Equal(targetDay) {
			collected = append(collected, item)
		}
		if day.Before(targetDay) {
			more = false
			return false
		}
		return true
	})

	if processed < a.pageSize {
		more = false
	}

	return collected, more
}

// parseEntry reads one dt/dd pair. Entries without a dateline cannot be
// placed on a day and are skipped.
func parseEntry(dt, dd *goquery.Selection, siteName, category string) (domain.Item, time.Time, bool) {
	link := dt.Find(`a[href*="/abs/"]`).First()
	href, _ := link.Attr("href")

	id := strings.TrimSpace(link.Text())
	if id == "" {
		id = strings.TrimPrefix(href, "/abs/")
	}
	if href != "" && !strings.HasPrefix(href, "http") {
		href = arxivBaseURL + href
	}
	if id == "" {
		id = href
	}
	if id == "" {
		return domain.Item{}, time.Time{}, false
	}

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}
	publishedAt, err := time.Parse("2 Jan 2006", dateExpr.FindString(dateText))
	if err != nil {
		return domain.Item{}, time.Time{}, false
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

	abstract := dd.Find("p.mathjax").First().Text()
	abstract = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(abstract), "Abstract:"))

	source := siteName
	if category != "" {
		source = siteName + "/" + category
	}

	return domain.Item{
		ID:        id,
		Title:     title,
		Abstract:  abstract,
		URL:       href,
		Source:    source,
		Published: domain.Timestamp(publishedAt),
		Topic:     category,
	}, publishedAt, true
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid category url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
