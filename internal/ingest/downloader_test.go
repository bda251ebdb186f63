package ingest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"covidwatch/internal/httpclient"

	"github.com/go-resty/resty/v2"
)

var fixedNow = time.Date(2021, time.March, 10, 15, 30, 0, 0, time.UTC)

type probeServer struct {
	mu       sync.Mutex
	requests []string
	serve    map[string]string
}

func (p *probeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.requests = append(p.requests, r.URL.Path)
	p.mu.Unlock()

	name := strings.TrimPrefix(r.URL.Path, "/")
	if body, ok := p.serve[name]; ok {
		w.Write([]byte(body))
		return
	}
	http.NotFound(w, r)
}

func (p *probeServer) seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.requests...)
}

func newTestDownloader(t *testing.T, baseURL string, client httpclient.Client) *Downloader {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	d := NewDownloader(baseURL, dir, 90, client, nil)
	d.now = func() time.Time { return fixedNow }
	if err := d.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	return d
}

func TestDownloader_SucceedsAfterThreeMisses(t *testing.T) {
	ps := &probeServer{serve: map[string]string{
		"03-07-2021.csv": "Country_Region,Deaths\nA,1\n",
	}}
	srv := httptest.NewServer(ps)
	defer srv.Close()

	d := newTestDownloader(t, srv.URL, httpclient.NewRestyClient(5*time.Second))

	snap, err := d.Download(context.Background())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	want := []string{"/03-10-2021.csv", "/03-09-2021.csv", "/03-08-2021.csv", "/03-07-2021.csv"}
	requests := ps.seen()
	if len(requests) != len(want) {
		t.Fatalf("attempts = %d (%v), want %d", len(requests), requests, len(want))
	}
	for i := range want {
		if requests[i] != want[i] {
			t.Errorf("attempt %d = %s, want %s", i, requests[i], want[i])
		}
	}

	if snap.Token != "03-07-2021" {
		t.Errorf("Token = %s", snap.Token)
	}
	if filepath.Base(snap.Path) != "03-07-2021.csv" {
		t.Errorf("Path = %s", snap.Path)
	}
	data, err := os.ReadFile(snap.Path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if string(data) != "Country_Region,Deaths\nA,1\n" || snap.Bytes != int64(len(data)) {
		t.Errorf("snapshot content %q (%d bytes)", data, snap.Bytes)
	}

	entries, _ := os.ReadDir(filepath.Dir(snap.Path))
	if len(entries) != 1 {
		t.Errorf("data dir holds %d files, want 1", len(entries))
	}
}

func TestDownloader_ExhaustsWindow(t *testing.T) {
	ps := &probeServer{serve: map[string]string{}}
	srv := httptest.NewServer(ps)
	defer srv.Close()

	d := newTestDownloader(t, srv.URL, httpclient.NewRestyClient(5*time.Second))

	_, err := d.Download(context.Background())
	if !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("err = %v, want ErrSnapshotNotFound", err)
	}
	requests := ps.seen()
	if len(requests) != 90 {
		t.Fatalf("attempts = %d, want 90", len(requests))
	}
	if last := requests[89]; last != "/12-11-2020.csv" {
		t.Errorf("last attempt = %s, want /12-11-2020.csv", last)
	}

	entries, err := os.ReadDir(d.dataDir)
	if err != nil {
		t.Fatalf("read data dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("data dir should be empty, has %d entries", len(entries))
	}
}

// brokenClient serves a body that fails half way through for every date
// except the one in ok.
type brokenClient struct {
	ok    string
	calls int
}

func (b *brokenClient) Get(context.Context, string, map[string]string, map[string]string) (*resty.Response, error) {
	return nil, errors.New("not used")
}

func (b *brokenClient) Stream(_ context.Context, url string) (io.ReadCloser, error) {
	b.calls++
	if strings.HasSuffix(url, "/"+b.ok) {
		return io.NopCloser(strings.NewReader("ok")), nil
	}
	return io.NopCloser(io.MultiReader(strings.NewReader("partial"), errReader{})), nil
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestDownloader_RemovesPartialFiles(t *testing.T) {
	client := &brokenClient{ok: "03-09-2021.csv"}
	d := newTestDownloader(t, "https://example.invalid/reports", client)

	snap, err := d.Download(context.Background())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if client.calls != 2 {
		t.Errorf("calls = %d, want 2", client.calls)
	}
	if _, err := os.Stat(filepath.Join(d.dataDir, "03-10-2021.csv")); !os.IsNotExist(err) {
		t.Errorf("partial file for failed date should be removed, stat err = %v", err)
	}
	if snap.Token != "03-09-2021" {
		t.Errorf("Token = %s", snap.Token)
	}
}

func TestDownloader_StopsOnCancel(t *testing.T) {
	client := &brokenClient{}
	d := newTestDownloader(t, "https://example.invalid/reports", client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.Download(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if client.calls != 0 {
		t.Errorf("calls = %d, want 0", client.calls)
	}
}

func TestDownloader_PrepareClearsDataDir(t *testing.T) {
	d := newTestDownloader(t, "https://example.invalid", &brokenClient{})
	stale := filepath.Join(d.dataDir, "01-01-2021.csv")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := d.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale file survived Prepare")
	}
}
