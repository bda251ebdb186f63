package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "covidwatch-etl/1.0"

// Client is the transport used by the downloader and the news fetcher.
type Client interface {
	// Get performs a buffered GET and fails on any non-200 status.
	Get(ctx context.Context, url string, params, headers map[string]string) (*resty.Response, error)
	// Stream performs a GET and hands back the unread body of a 200 response.
	Stream(ctx context.Context, url string) (io.ReadCloser, error)
}

// StatusError is returned for responses other than 200 OK.
type StatusError struct {
	URL     string
	Code    int
	Snippet string
}

func (e *StatusError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
	}
	return fmt.Sprintf("GET %s: status %d body: %s", e.URL, e.Code, e.Snippet)
}

// RestyClient implements Client with go-resty.
type RestyClient struct {
	r *resty.Client
}

func NewRestyClient(timeout time.Duration) *RestyClient {
	r := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent)
	return &RestyClient{r: r}
}

func (c *RestyClient) Get(ctx context.Context, url string, params, headers map[string]string) (*resty.Response, error) {
	resp, err := c.r.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetHeaders(headers).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return resp, &StatusError{URL: url, Code: resp.StatusCode(), Snippet: snippet(resp.Body())}
	}
	return resp, nil
}

func (c *RestyClient) Stream(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := c.r.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	body := resp.RawBody()
	if resp.StatusCode() != http.StatusOK {
		if body != nil {
			body.Close()
		}
		return nil, &StatusError{URL: url, Code: resp.StatusCode()}
	}
	return body, nil
}

func snippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
