package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"covidwatch/internal/config"
	"covidwatch/internal/ingest"
	"covidwatch/internal/logger"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := ingest.FromConfig(cfg, nil, log).Run(ctx)
	fields := map[string]any{
		"snapshot":     rep.Snapshot.Token,
		"rows":         rep.Rows,
		"skipped_rows": rep.SkippedRows,
		"countries":    rep.Countries,
		"articles":     rep.Articles,
		"stage":        rep.Stage.String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		log.ErrorObj("etl failed", "etl_done", fields)
		_ = log.Sync()
		stop()
		os.Exit(1)
	}
	log.InfoObj("etl done", "etl_done", fields)
}
