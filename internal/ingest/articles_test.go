package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"covidwatch/internal/httpclient"
)

type seenURL struct {
	mu  sync.Mutex
	url *url.URL
}

func (s *seenURL) get() *url.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

func newsServer(t *testing.T, status int, body string) (*httptest.Server, *seenURL) {
	t.Helper()
	seen := &seenURL{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.mu.Lock()
		seen.url = r.URL
		seen.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func newTestFetcher(endpoint string) *ArticleFetcher {
	return NewArticleFetcher(NewsQuery{
		Endpoint: endpoint,
		APIKey:   "key-123",
		Topic:    "coronavirus",
		Language: "en",
		SortBy:   "publishedAt",
		PageSize: 20,
	}, httpclient.NewRestyClient(5*time.Second), nil)
}

func TestArticleFetcher_Normalizes(t *testing.T) {
	srv, seen := newsServer(t, http.StatusOK, `{
		"status": "ok",
		"totalResults": 2,
		"articles": [
			{
				"source": {"id": null, "name": "Reuters"},
				"author": null,
				"title": null,
				"description": "<p>Cases <b>rise</b> &amp; fall</p>",
				"url": "https://example.com/a",
				"publishedAt": "2021-01-05T10:20:30Z"
			},
			{
				"source": {"id": "bbc", "name": ""},
				"author": "Jane Doe",
				"title": "Vaccine rollout",
				"url": "https://example.com/b",
				"publishedAt": "2021-01-05T12:20:30+02:00"
			}
		]
	}`)

	articles, err := newTestFetcher(srv.URL + "/v2/everything").Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	u := seen.get()
	q := u.Query()
	for k, want := range map[string]string{
		"query": "coronavirus", "apiKey": "key-123", "language": "en", "sortBy": "publishedAt", "pageSize": "20",
	} {
		if got := q.Get(k); got != want {
			t.Errorf("query param %s = %q, want %q", k, got, want)
		}
	}
	if u.Path != "/v2/everything" {
		t.Errorf("path = %s", u.Path)
	}

	if len(articles) != 2 {
		t.Fatalf("articles = %d, want 2", len(articles))
	}

	a := articles[0]
	if a.Title != Placeholder || a.Author != Placeholder {
		t.Errorf("null title/author should become placeholders: %+v", a)
	}
	if a.SourceName != "Reuters" || a.URL != "https://example.com/a" {
		t.Errorf("article 0 = %+v", a)
	}
	if a.Description != "Cases rise & fall" {
		t.Errorf("Description = %q", a.Description)
	}
	if want := time.Date(2021, 1, 5, 10, 20, 30, 0, time.UTC); !a.PublishedAt.Equal(want) {
		t.Errorf("PublishedAt = %v, want %v", a.PublishedAt, want)
	}

	b := articles[1]
	if b.SourceName != Placeholder || b.Description != Placeholder {
		t.Errorf("empty/absent fields should become placeholders: %+v", b)
	}
	if b.Title != "Vaccine rollout" || b.Author != "Jane Doe" {
		t.Errorf("article 1 = %+v", b)
	}
	if want := time.Date(2021, 1, 5, 10, 20, 30, 0, time.UTC); !b.PublishedAt.Equal(want) || b.PublishedAt.Location() != time.UTC {
		t.Errorf("PublishedAt = %v, want %v", b.PublishedAt, want)
	}
}

func TestArticleFetcher_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusUnauthorized, `{"status":"error","code":"apiKeyInvalid","message":"bad key"}`},
		{"api error status", http.StatusOK, `{"status":"error","code":"rateLimited","message":"slow down"}`},
		{"malformed json", http.StatusOK, `{"status":"ok","articles":[`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newsServer(t, tt.status, tt.body)
			articles, err := newTestFetcher(srv.URL).Fetch(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if len(articles) != 0 {
				t.Errorf("articles = %v, want none", articles)
			}
		})
	}
}

func TestArticleFetcher_EmptyPage(t *testing.T) {
	srv, _ := newsServer(t, http.StatusOK, `{"status":"ok","totalResults":0,"articles":[]}`)
	articles, err := newTestFetcher(srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if articles == nil || len(articles) != 0 {
		t.Errorf("articles = %#v, want empty non-nil slice", articles)
	}
}
