package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"covidwatch/internal/httpclient"
	"covidwatch/internal/logger"

	"github.com/microcosm-cc/bluemonday"
)

// Placeholder stands in for article fields the news API leaves empty.
const Placeholder = "-"

type Article struct {
	Title       string
	SourceName  string
	Author      string
	Description string
	URL         string
	PublishedAt time.Time
}

type NewsQuery struct {
	Endpoint string
	APIKey   string
	Topic    string
	Language string
	SortBy   string
	PageSize int
}

// news API wire format
type newsResponse struct {
	Status       string        `json:"status"`
	Code         string        `json:"code"`
	Message      string        `json:"message"`
	TotalResults int           `json:"totalResults"`
	Articles     []newsArticle `json:"articles"`
}

type newsArticle struct {
	Source struct {
		ID   *string `json:"id"`
		Name *string `json:"name"`
	} `json:"source"`
	Author      *string `json:"author"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	URL         *string `json:"url"`
	PublishedAt *string `json:"publishedAt"`
}

// ArticleFetcher pulls one page of articles for the configured topic.
type ArticleFetcher struct {
	q      NewsQuery
	client httpclient.Client
	policy *bluemonday.Policy
	log    logger.Logger
}

func NewArticleFetcher(q NewsQuery, client httpclient.Client, log logger.Logger) *ArticleFetcher {
	return &ArticleFetcher{
		q:      q,
		client: client,
		policy: bluemonday.StrictPolicy(),
		log:    logger.Ensure(log),
	}
}

func (f *ArticleFetcher) params() map[string]string {
	return map[string]string{
		"query":    f.q.Topic,
		"apiKey":   f.q.APIKey,
		"language": f.q.Language,
		"sortBy":   f.q.SortBy,
		"pageSize": strconv.Itoa(f.q.PageSize),
	}
}

// Fetch issues a single request; there is no paging and no retry.
func (f *ArticleFetcher) Fetch(ctx context.Context) ([]Article, error) {
	resp, err := f.client.Get(ctx, f.q.Endpoint, f.params(), map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}

	var body newsResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode news response: %w", err)
	}
	if body.Status != "" && body.Status != "ok" {
		return nil, fmt.Errorf("news api %s: %s", body.Code, body.Message)
	}

	articles := make([]Article, 0, len(body.Articles))
	for _, na := range body.Articles {
		articles = append(articles, f.normalize(na))
	}

	f.log.InfoObj("articles fetched", "news_fetch", map[string]any{
		"count":         len(articles),
		"total_results": body.TotalResults,
	})
	return articles, nil
}

func (f *ArticleFetcher) normalize(na newsArticle) Article {
	a := Article{
		Title:       orPlaceholder(f.plain(na.Title)),
		SourceName:  orPlaceholder(deref(na.Source.Name)),
		Author:      orPlaceholder(deref(na.Author)),
		Description: orPlaceholder(f.plain(na.Description)),
		URL:         orPlaceholder(deref(na.URL)),
	}
	if ts, err := utcTimestamp(deref(na.PublishedAt)); err == nil {
		a.PublishedAt = ts
	} else {
		f.log.DebugObj("article without usable publishedAt", "news_timestamp", map[string]any{
			"url":   a.URL,
			"error": err.Error(),
		})
	}
	return a
}

// plain strips markup and decodes the entities the policy escapes.
func (f *ArticleFetcher) plain(s *string) string {
	if s == nil {
		return ""
	}
	return html.UnescapeString(f.policy.Sanitize(*s))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orPlaceholder(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return Placeholder
	}
	return s
}
