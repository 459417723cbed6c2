package api

import (
	"net/http"
	"strconv"

	"github.com/hashicorp/go-hclog"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/apperr"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/catalog"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

type CatalogHandler struct {
	Store  *catalog.Store
	Logger hclog.Logger
}

type ContentResponse struct {
	*model.Content
	Related []*model.Content `json:"related"`
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Alive"))
}

// ListContent serves the cached catalog filtered by ?type=, ?category= and
// ordered by ?sort=.
func (h *CatalogHandler) ListContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := catalog.Filter{
		Type:   model.ContentType(q.Get("type")),
		SortBy: catalog.ParseSort(q.Get("sort")),
	}
	if filter.Type != "" && !filter.Type.Valid() {
		writeError(w, h.Logger, r, apperr.Validation("type", "Unknown content type"))
		return
	}
	if v := q.Get("category"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, h.Logger, r, apperr.Validation("category", "Invalid category"))
			return
		}
		filter.CategoryID = id
	}
	writeJSON(w, http.StatusOK, filter.Apply(h.Store.Contents()))
}

func (h *CatalogHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	content, err := h.Store.ContentBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	if content == nil {
		writeError(w, h.Logger, r, apperr.NotFound("Content not found"))
		return
	}
	writeJSON(w, http.StatusOK, ContentResponse{
		Content: content,
		Related: catalog.Related(content, h.Store.Contents()),
	})
}

func (h *CatalogHandler) IncrementViews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	h.Store.IncrementViews(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.Store.SearchContent(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	if results == nil {
		results = []*model.Content{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.Categories())
}

func (h *CatalogHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.Settings())
}
