package httpx

import (
	"context"
	"net/http"
	"time"

	mdb "covidwatch/internal/mongo"
)

type ArticlesResponse struct {
	Items []mdb.ArticleDoc `json:"items"`
	Meta  PageMeta         `json:"meta"`
}

// ArticlesList godoc
// @Summary      List news articles
// @Description  Articles from the latest run, newest first
// @Tags         articles
// @Produce      json
// @Param        page   query  int  false  "page"   default(1)
// @Param        limit  query  int  false  "limit"  default(20) minimum(1) maximum(100)
// @Success      200    {object}  ArticlesResponse
// @Failure      500    {object}  HTTPError
// @Router       /articles [get]
func (a *api) articlesList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	page, limit, skip := pageWindow(r, 20, 100)

	items, total, err := a.store.FindArticles(ctx, a.cols.Articles, skip, limit)
	if err != nil {
		a.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ArticlesResponse{
		Items: items,
		Meta:  PageMeta{Page: page, Limit: int(limit), Total: total},
	})
}
