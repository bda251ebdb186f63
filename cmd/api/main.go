// @title           covidwatch API
// @version         1.0
// @description     Latest per-country COVID-19 totals and related news, refreshed by the daily ETL.
// @BasePath        /
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"covidwatch/internal/config"
	httpx "covidwatch/internal/httpx"
	"covidwatch/internal/ingest"
	"covidwatch/internal/logger"
	mdb "covidwatch/internal/mongo"
)

func init() {
	_ = godotenv.Load()
}

func main() {
	cfgPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional config file (yaml, json, toml)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.ErrorObj("api stopped", "shutdown", map[string]any{"error": err.Error()})
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logger.ZapLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mc, err := mdb.Connect(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoTimeout)
	if err != nil {
		return err
	}
	defer func() { _ = mc.Close(context.Background()) }()

	pipeline := ingest.FromConfig(cfg, nil, log)
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err = c.AddFunc(cfg.IngestSchedule, func() {
		rep, err := pipeline.Run(ctx)
		fields := map[string]any{
			"snapshot":  rep.Snapshot.Token,
			"countries": rep.Countries,
			"articles":  rep.Articles,
			"stage":     rep.Stage.String(),
		}
		if err != nil {
			fields["error"] = err.Error()
			log.ErrorObj("ingest failed", "ingest", fields)
			return
		}
		log.InfoObj("ingest completed", "ingest", fields)
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.IngestSchedule, err)
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	rl := httpx.NewRateLimiter(cfg.RatePerMinute)
	defer rl.Stop()

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: httpx.NewRouter(mc, mc.DB.Name(), httpx.Collections{
			Countries: cfg.CountryCollection,
			Articles:  cfg.ArticleCollection,
		}, rl, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.InfoObj("listening", "startup", map[string]any{"port": cfg.Port, "schedule": cfg.IngestSchedule})
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
