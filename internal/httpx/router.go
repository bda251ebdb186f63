package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	docs "covidwatch/internal/docs"
	"covidwatch/internal/logger"
	mdb "covidwatch/internal/mongo"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Store is the read side of the document store used by the API.
type Store interface {
	Ping(ctx context.Context) error
	FindCountries(ctx context.Context, collection, q string, skip, limit int64) ([]mdb.CountryDoc, int64, error)
	FindCountry(ctx context.Context, collection, name string) (mdb.CountryDoc, error)
	FindArticles(ctx context.Context, collection string, skip, limit int64) ([]mdb.ArticleDoc, int64, error)
}

type Collections struct {
	Countries string
	Articles  string
}

type HTTPError struct {
	Message string `json:"message"`
}

type api struct {
	store Store
	cols  Collections
	db    string
	log   logger.Logger
}

// NewRouter wires the read API over store. A nil rl disables rate limiting.
func NewRouter(store Store, dbName string, cols Collections, rl *RateLimiter, log logger.Logger) http.Handler {
	a := &api{store: store, cols: cols, db: dbName, log: logger.Ensure(log)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", a.healthz)
	mux.HandleFunc("GET /countries", a.countriesList)
	mux.HandleFunc("GET /countries/{name}", a.countryGet)
	mux.HandleFunc("GET /articles", a.articlesList)

	mux.HandleFunc("GET /swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(docs.SwaggerInfo.ReadDoc()))
	})
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	if rl == nil {
		return mux
	}
	return LimitMiddleware(rl, mux)
}

// Healthz godoc
// @Summary      Liveness and database reachability
// @Tags         health
// @Produce      json
// @Success      200  {object}  healthResponse
// @Failure      503  {object}  healthResponse
// @Router       /healthz [get]
func (a *api) healthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Time: time.Now().UTC(), DB: a.db}
	code := http.StatusOK
	if err := a.store.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

type healthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
	DB     string    `json:"db"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, HTTPError{Message: msg})
}

func (a *api) internalError(w http.ResponseWriter, r *http.Request, err error) {
	a.log.ErrorObj("request failed", "http_error", map[string]any{
		"path":  r.URL.Path,
		"error": err.Error(),
	})
	writeError(w, http.StatusInternalServerError, "internal error")
}
