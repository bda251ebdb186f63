package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	mdb "covidwatch/internal/mongo"
)

type CountriesResponse struct {
	Items []mdb.CountryDoc `json:"items"`
	Meta  PageMeta         `json:"meta"`
}

// CountriesList godoc
// @Summary      List country totals
// @Description  Per-country totals from the latest daily report, Worldwide included
// @Tags         countries
// @Produce      json
// @Param        q      query  string  false  "case-insensitive name filter"
// @Param        page   query  int     false  "page"   default(1)
// @Param        limit  query  int     false  "limit"  default(50) minimum(1) maximum(500)
// @Success      200    {object}  CountriesResponse
// @Failure      500    {object}  HTTPError
// @Router       /countries [get]
func (a *api) countriesList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	page, limit, skip := pageWindow(r, 50, 500)

	items, total, err := a.store.FindCountries(ctx, a.cols.Countries, q, skip, limit)
	if err != nil {
		a.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CountriesResponse{
		Items: items,
		Meta:  PageMeta{Page: page, Limit: int(limit), Total: total},
	})
}

// CountryGet godoc
// @Summary      Totals for one country
// @Tags         countries
// @Produce      json
// @Param        name   path  string  true  "country name as in the report, or Worldwide"
// @Success      200    {object}  mongo.CountryDoc
// @Failure      404    {object}  HTTPError
// @Failure      500    {object}  HTTPError
// @Router       /countries/{name} [get]
func (a *api) countryGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	name := strings.TrimSpace(r.PathValue("name"))
	doc, err := a.store.FindCountry(ctx, a.cols.Countries, name)
	if errors.Is(err, mdb.ErrNotFound) {
		writeError(w, http.StatusNotFound, "country not found")
		return
	}
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
