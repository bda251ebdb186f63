package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"covidwatch/internal/httpclient"
	"covidwatch/internal/logger"
)

// DateTokenLayout is the date format used in daily report file names.
const DateTokenLayout = "01-02-2006"

var ErrSnapshotNotFound = errors.New("no daily snapshot found")

type Snapshot struct {
	Date  time.Time
	Token string
	Path  string
	Bytes int64
}

// Downloader finds the newest published daily report by walking back one
// calendar day at a time from today.
type Downloader struct {
	baseURL string
	dataDir string
	days    int
	client  httpclient.Client
	now     func() time.Time
	log     logger.Logger
}

func NewDownloader(baseURL, dataDir string, days int, client httpclient.Client, log logger.Logger) *Downloader {
	return &Downloader{
		baseURL: baseURL,
		dataDir: dataDir,
		days:    days,
		client:  client,
		now:     time.Now,
		log:     logger.Ensure(log),
	}
}

// Prepare empties the data directory.
func (d *Downloader) Prepare() error {
	if err := os.RemoveAll(d.dataDir); err != nil {
		return fmt.Errorf("clear data dir: %w", err)
	}
	if err := os.MkdirAll(d.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

// Download tries today, yesterday, ... until one report is retrieved or the
// window is exhausted. Attempts are made one after another.
func (d *Downloader) Download(ctx context.Context) (Snapshot, error) {
	today := d.now()
	for i := 0; i < d.days; i++ {
		if err := ctx.Err(); err != nil {
			return Snapshot{}, err
		}

		date := today.AddDate(0, 0, -i)
		token := date.Format(DateTokenLayout)
		url := d.baseURL + "/" + token + ".csv"
		path := filepath.Join(d.dataDir, token+".csv")

		n, err := d.fetch(ctx, url, path)
		if err != nil {
			d.log.DebugObj("snapshot not available", "csv_probe_miss", map[string]any{
				"token": token,
				"error": err.Error(),
			})
			continue
		}

		d.log.InfoObj("download completed", "csv_download", map[string]any{
			"token":    token,
			"attempts": i + 1,
			"bytes":    n,
		})
		return Snapshot{Date: date, Token: token, Path: path, Bytes: n}, nil
	}

	return Snapshot{}, fmt.Errorf("%w in the last %d days", ErrSnapshotNotFound, d.days)
}

func (d *Downloader) fetch(ctx context.Context, url, path string) (int64, error) {
	body, err := d.client.Stream(ctx, url)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return n, nil
}
