package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrMissingMongoURI       = errors.New("connection_string is required")
	ErrMissingDatabase       = errors.New("database is required")
	ErrMissingCollections    = errors.New("collection_country and collection_article are required and must differ")
	ErrMissingDataURL        = errors.New("data_url is required")
	ErrMissingDataDir        = errors.New("data_dir is required")
	ErrInvalidProbeDays      = errors.New("probe_days must be at least 1")
	ErrMissingNewsEndpoint   = errors.New("news_endpoint is required")
	ErrMissingNewsAPIKey     = errors.New("news_api_key is required")
	ErrInvalidNewsPageSize   = errors.New("news_page_size must be between 1 and 100")
	ErrInvalidTimeout        = errors.New("http_timeout and mongo_timeout must be positive")
	ErrInvalidRatePerMinute  = errors.New("rate_per_minute must be at least 1")
	ErrInvalidLogLevel       = errors.New("log_level must be one of: debug, info, warn, error")
	ErrMissingIngestSchedule = errors.New("schedule is required")
)

type Config struct {
	Port string `mapstructure:"port"`

	MongoURI          string        `mapstructure:"connection_string"`
	MongoDB           string        `mapstructure:"database"`
	CountryCollection string        `mapstructure:"collection_country"`
	ArticleCollection string        `mapstructure:"collection_article"`
	MongoTimeout      time.Duration `mapstructure:"mongo_timeout"`

	DataURL         string `mapstructure:"data_url"`
	DataDir         string `mapstructure:"data_dir"`
	ProbeDays       int    `mapstructure:"probe_days"`
	RequireSnapshot bool   `mapstructure:"require_snapshot"`

	NewsEndpoint string `mapstructure:"news_endpoint"`
	NewsAPIKey   string `mapstructure:"news_api_key"`
	NewsQuery    string `mapstructure:"news_query"`
	NewsLanguage string `mapstructure:"news_language"`
	NewsSortBy   string `mapstructure:"news_sort_by"`
	NewsPageSize int    `mapstructure:"news_page_size"`

	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`
	IngestSchedule string        `mapstructure:"schedule"`
	RatePerMinute  int           `mapstructure:"rate_per_minute"`
	LogLevel       string        `mapstructure:"log_level"`
}

var defaults = map[string]any{
	"port":               "8080",
	"connection_string":  "mongodb://localhost:27017",
	"database":           "covid",
	"collection_country": "countries",
	"collection_article": "articles",
	"mongo_timeout":      "10s",
	"data_url":           "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_daily_reports",
	"data_dir":           "data",
	"probe_days":         90,
	"require_snapshot":   false,
	"news_endpoint":      "https://newsapi.org/v2/everything",
	"news_api_key":       "",
	"news_query":         "coronavirus",
	"news_language":      "en",
	"news_sort_by":       "publishedAt",
	"news_page_size":     100,
	"http_timeout":       "30s",
	"schedule":           "@daily",
	"rate_per_minute":    60,
	"log_level":          "info",
}

// Load reads defaults, then the optional config file at path, then the
// environment (CONNECTION_STRING, NEWS_API_KEY, ...). The result is validated.
func Load(path string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.DataURL = strings.TrimRight(strings.TrimSpace(cfg.DataURL), "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.MongoURI) == "":
		return ErrMissingMongoURI
	case strings.TrimSpace(c.MongoDB) == "":
		return ErrMissingDatabase
	case c.CountryCollection == "" || c.ArticleCollection == "" || c.CountryCollection == c.ArticleCollection:
		return ErrMissingCollections
	case c.DataURL == "":
		return ErrMissingDataURL
	case strings.TrimSpace(c.DataDir) == "":
		return ErrMissingDataDir
	case c.ProbeDays < 1:
		return ErrInvalidProbeDays
	case c.NewsEndpoint == "":
		return ErrMissingNewsEndpoint
	case strings.TrimSpace(c.NewsAPIKey) == "":
		return ErrMissingNewsAPIKey
	case c.NewsPageSize < 1 || c.NewsPageSize > 100:
		return ErrInvalidNewsPageSize
	case c.HTTPTimeout <= 0 || c.MongoTimeout <= 0:
		return ErrInvalidTimeout
	case c.RatePerMinute < 1:
		return ErrInvalidRatePerMinute
	case strings.TrimSpace(c.IngestSchedule) == "":
		return ErrMissingIngestSchedule
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	return nil
}
