package ingest

import (
	"context"
	"errors"
	"fmt"

	"covidwatch/internal/config"
	"covidwatch/internal/httpclient"
	"covidwatch/internal/logger"
	mdb "covidwatch/internal/mongo"
)

type Stage int

const (
	StageInit Stage = iota
	StageDownloadCsv
	StageFetchArticles
	StageParseCsv
	StageBuildCountryTable
	StageAggregateRows
	StageConnect
	StagePersistArticles
	StagePersistCountries
	StageClose
	StageDone
)

var stageNames = [...]string{
	"init", "download_csv", "fetch_articles", "parse_csv", "build_country_table",
	"aggregate_rows", "connect", "persist_articles", "persist_countries", "close", "done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Persister is the document store a run writes into.
type Persister interface {
	DropCollection(ctx context.Context, name string) (mdb.DropResult, error)
	InsertAll(ctx context.Context, name string, docs []any) error
	EnsureIndexes(ctx context.Context, name string, specs ...mdb.IndexSpec) error
	Close(ctx context.Context) error
}

// Connector opens the store once per run.
type Connector func(ctx context.Context) (Persister, error)

func MongoConnector(cfg config.Config) Connector {
	return func(ctx context.Context) (Persister, error) {
		c, err := mdb.Connect(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoTimeout)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

type Options struct {
	CountryCollection string
	ArticleCollection string
	// RequireSnapshot stops the run before touching the store when no
	// report was found, instead of writing a Worldwide-only table.
	RequireSnapshot bool
}

type Report struct {
	Snapshot      Snapshot
	SnapshotFound bool
	Rows          int
	SkippedRows   int
	Countries     int
	Articles      int
	ArticleDrop   mdb.DropResult
	CountryDrop   mdb.DropResult
	Stage         Stage
}

type Pipeline struct {
	downloader *Downloader
	fetcher    *ArticleFetcher
	connect    Connector
	opts       Options
	log        logger.Logger
}

func NewPipeline(dl *Downloader, fetcher *ArticleFetcher, connect Connector, opts Options, log logger.Logger) *Pipeline {
	return &Pipeline{
		downloader: dl,
		fetcher:    fetcher,
		connect:    connect,
		opts:       opts,
		log:        logger.Ensure(log),
	}
}

// FromConfig wires the production pipeline.
func FromConfig(cfg config.Config, client httpclient.Client, log logger.Logger) *Pipeline {
	if client == nil {
		client = httpclient.NewRestyClient(cfg.HTTPTimeout)
	}
	dl := NewDownloader(cfg.DataURL, cfg.DataDir, cfg.ProbeDays, client, log)
	fetcher := NewArticleFetcher(NewsQuery{
		Endpoint: cfg.NewsEndpoint,
		APIKey:   cfg.NewsAPIKey,
		Topic:    cfg.NewsQuery,
		Language: cfg.NewsLanguage,
		SortBy:   cfg.NewsSortBy,
		PageSize: cfg.NewsPageSize,
	}, client, log)

	return NewPipeline(dl, fetcher, MongoConnector(cfg), Options{
		CountryCollection: cfg.CountryCollection,
		ArticleCollection: cfg.ArticleCollection,
		RequireSnapshot:   cfg.RequireSnapshot,
	}, log)
}

func (p *Pipeline) enter(rep *Report, s Stage) {
	rep.Stage = s
	p.log.DebugObj("pipeline stage", "stage", map[string]any{"stage": s.String()})
}

// Run performs one full extract-transform-load pass. Download, news and parse
// problems are logged and the run carries on with empty data. A failed
// connect ends the run without writing. A failure on one collection does not
// stop the other from being replaced; all such errors are returned joined.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	var rep Report

	p.enter(&rep, StageInit)
	if err := p.downloader.Prepare(); err != nil {
		return rep, err
	}

	p.enter(&rep, StageDownloadCsv)
	snap, dlErr := p.downloader.Download(ctx)
	if dlErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return rep, ctxErr
		}
		p.log.WarnObj("download failed", "csv_download_error", map[string]any{"error": dlErr.Error()})
	} else {
		rep.Snapshot, rep.SnapshotFound = snap, true
	}

	p.enter(&rep, StageFetchArticles)
	articles, err := p.fetcher.Fetch(ctx)
	if err != nil {
		p.log.WarnObj("news fetch failed, continuing without articles", "news_error", map[string]any{"error": err.Error()})
		articles = nil
	}
	rep.Articles = len(articles)

	p.enter(&rep, StageParseCsv)
	var rows []RawRow
	if rep.SnapshotFound {
		rows, err = ReadRows(snap.Path)
		if err != nil {
			p.log.WarnObj("csv parse failed, continuing without rows", "csv_parse_error", map[string]any{
				"path":  snap.Path,
				"error": err.Error(),
			})
			rows = nil
		}
	}
	rep.Rows = len(rows)

	p.enter(&rep, StageBuildCountryTable)
	table := newCountryTable(collectCountryNames(rows), sourceUpdatedAt(rows))

	p.enter(&rep, StageAggregateRows)
	table.fold(rows)
	rep.Countries = table.Len()
	rep.SkippedRows = table.Skipped
	ww := table.Worldwide()
	p.log.InfoObj("rows aggregated", "aggregate", map[string]any{
		"rows":      rep.Rows,
		"skipped":   table.Skipped,
		"countries": rep.Countries,
		"confirmed": ww.Confirmed,
		"deaths":    ww.Deaths,
	})

	if !rep.SnapshotFound && p.opts.RequireSnapshot {
		p.enter(&rep, StageDone)
		return rep, dlErr
	}

	p.enter(&rep, StageConnect)
	store, err := p.connect(ctx)
	if err != nil {
		p.log.ErrorObj("could not connect to the document store", "store_connect_error", map[string]any{"error": err.Error()})
		p.enter(&rep, StageDone)
		return rep, fmt.Errorf("connect store: %w", err)
	}

	var errs []error

	p.enter(&rep, StagePersistArticles)
	rep.ArticleDrop, err = p.replace(ctx, store, p.opts.ArticleCollection, articleDocs(articles), mdb.ArticleIndexes())
	if err != nil {
		errs = append(errs, err)
	}

	p.enter(&rep, StagePersistCountries)
	rep.CountryDrop, err = p.replace(ctx, store, p.opts.CountryCollection, countryDocs(table.Stats()), mdb.CountryIndexes())
	if err != nil {
		errs = append(errs, err)
	}

	p.enter(&rep, StageClose)
	if err := store.Close(context.WithoutCancel(ctx)); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	p.enter(&rep, StageDone)
	for _, e := range errs {
		p.log.ErrorObj("persist failed", "store_error", map[string]any{"error": e.Error()})
	}
	return rep, errors.Join(errs...)
}

// replace drops the collection and writes docs into it. When the drop fails
// nothing is inserted, so old and new documents never mix.
func (p *Pipeline) replace(ctx context.Context, store Persister, name string, docs []any, idx []mdb.IndexSpec) (mdb.DropResult, error) {
	res, err := store.DropCollection(ctx, name)
	if err != nil {
		return res, fmt.Errorf("replace %s: %w", name, err)
	}
	if err := store.InsertAll(ctx, name, docs); err != nil {
		return res, fmt.Errorf("replace %s: %w", name, err)
	}
	if err := store.EnsureIndexes(ctx, name, idx...); err != nil {
		return res, fmt.Errorf("replace %s: %w", name, err)
	}

	p.log.InfoObj("collection replaced", "store_replace", map[string]any{
		"collection": name,
		"drop":       res.String(),
		"documents":  len(docs),
	})
	return res, nil
}

func countryDocs(stats []CountryStat) []any {
	docs := make([]any, 0, len(stats))
	for _, s := range stats {
		docs = append(docs, mdb.CountryDoc{
			Name:                  s.Name,
			Confirmed:             s.Confirmed,
			Deaths:                s.Deaths,
			Active:                s.Active,
			Recovered:             s.Recovered,
			LastUpdatedBySourceAt: s.LastUpdatedBySourceAt,
		})
	}
	return docs
}

func articleDocs(articles []Article) []any {
	docs := make([]any, 0, len(articles))
	for _, a := range articles {
		docs = append(docs, mdb.ArticleDoc{
			Title:       a.Title,
			SourceName:  a.SourceName,
			Author:      a.Author,
			Description: a.Description,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
		})
	}
	return docs
}
