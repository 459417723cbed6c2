package api

import (
	"net/http"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/account"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/apperr"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/catalog"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

const maxUploadForm = 32 << 20

var uploadPrefixes = map[string]bool{"posters": true, "episodes": true, "logos": true, "avatars": true}

type AdminHandler struct {
	Store    *catalog.Store
	Registry *account.Registry
	Logger   hclog.Logger
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (h *AdminHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
	holder, _ := GetHolder(r)
	var in model.ContentInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	uploader := holder.User().ID
	content, err := h.Store.AddContent(r.Context(), in, &uploader)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, content)
}

func (h *AdminHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	var in model.ContentInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	content, err := h.Store.UpdateContent(r.Context(), id, in)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (h *AdminHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = h.Store.DeleteContent(r.Context(), id)
	}
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	category, err := h.Store.AddCategory(r.Context(), req.Name)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (h *AdminHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	category, err := h.Store.UpdateCategory(r.Context(), id, req.Name)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = h.Store.DeleteCategory(r.Context(), id)
	}
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.AllUsers(r.Context())
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	if users == nil {
		users = []*model.Profile{}
	}
	writeJSON(w, http.StatusOK, users)
}

// UpdateUser edits another user's name or flags. An administrator cannot
// demote or block themselves.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	holder, _ := GetHolder(r)
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	var update model.UserUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	if id == holder.User().ID && ((update.IsAdmin != nil && !*update.IsAdmin) || (update.IsBlocked != nil && *update.IsBlocked)) {
		writeError(w, h.Logger, r, apperr.Forbidden("You cannot remove your own access"))
		return
	}

	profile, err := h.Store.UpdateUser(r.Context(), id, update)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	h.Registry.RefreshUser(id)
	writeJSON(w, http.StatusOK, profile)
}

func (h *AdminHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.Store.AllComments(r.Context())
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	if comments == nil {
		comments = []*model.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *AdminHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	deleted, err := h.Store.DeleteComment(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]int64{"deleted": deleted})
}

func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var update model.SettingsUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	settings, err := h.Store.UpdateSiteSettings(r.Context(), update)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Upload accepts a multipart "file" and an optional "prefix" naming the
// target folder, and returns the public URL.
func (h *AdminHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadForm)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.Logger, r, apperr.Validation("file", "A file is required"))
		return
	}
	defer file.Close()

	prefix := strings.TrimSpace(r.FormValue("prefix"))
	if prefix == "" {
		prefix = "posters"
	}
	if !uploadPrefixes[prefix] {
		writeError(w, h.Logger, r, apperr.Validation("prefix", "Unknown upload folder"))
		return
	}

	url, err := h.Store.UploadFile(r.Context(), prefix, header.Filename, file)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.Stats(r.Context())
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Refresh forces a full catalog reload.
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.FetchData(r.Context()); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
