package api

import (
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/apperr"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/catalog"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

const maxAvatarForm = 8 << 20

type UserHandler struct {
	Store  *catalog.Store
	Logger hclog.Logger
}

type MeResponse struct {
	User    UserResponse   `json:"user"`
	Profile *model.Profile `json:"profile"`
}

type ListResponse struct {
	Added   bool           `json:"added"`
	Profile *model.Profile `json:"profile"`
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	holder, _ := GetHolder(r)
	writeJSON(w, http.StatusOK, MeResponse{User: userResponse(holder.User()), Profile: holder.Profile()})
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	holder, _ := GetHolder(r)
	var update model.ProfileUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	if err := holder.UpdateUserProfile(r.Context(), update); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, holder.Profile())
}

// UploadAvatar stores the submitted image and points the profile at it.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	holder, _ := GetHolder(r)
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarForm)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.Logger, r, apperr.Validation("file", "An image file is required"))
		return
	}
	defer file.Close()

	url, err := h.Store.UploadFile(r.Context(), "avatars", header.Filename, file)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	if err := holder.UpdateUserProfile(r.Context(), model.ProfileUpdate{AvatarURL: &url}); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, holder.Profile())
}

func listTarget(r *http.Request) (model.ListKind, int64, error) {
	kind := model.ListKind(r.PathValue("list"))
	if !kind.Valid() {
		return "", 0, apperr.Validation("list", "Unknown list")
	}
	id, err := pathID(r, "id")
	return kind, id, err
}

func (h *UserHandler) ToggleList(w http.ResponseWriter, r *http.Request) {
	holder, _ := GetHolder(r)
	kind, id, err := listTarget(r)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	added, err := holder.ToggleList(r.Context(), kind, id)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Added: added, Profile: holder.Profile()})
}

func (h *UserHandler) AddToList(w http.ResponseWriter, r *http.Request) {
	holder, _ := GetHolder(r)
	kind, id, err := listTarget(r)
	if err == nil {
		err = holder.AddToList(r.Context(), kind, id)
	}
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Added: true, Profile: holder.Profile()})
}

func (h *UserHandler) RemoveFromList(w http.ResponseWriter, r *http.Request) {
	holder, _ := GetHolder(r)
	kind, id, err := listTarget(r)
	if err == nil {
		err = holder.RemoveFromList(r.Context(), kind, id)
	}
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Added: false, Profile: holder.Profile()})
}

// GetList returns the cached content behind one of the caller's lists.
func (h *UserHandler) GetList(w http.ResponseWriter, r *http.Request) {
	holder, _ := GetHolder(r)
	kind := model.ListKind(r.PathValue("list"))
	if !kind.Valid() {
		writeError(w, h.Logger, r, apperr.Validation("list", "Unknown list"))
		return
	}
	profile := holder.Profile()
	if profile == nil {
		writeError(w, h.Logger, r, apperr.Profile("Profile not loaded", nil))
		return
	}
	writeJSON(w, http.StatusOK, h.Store.ListContents(profile.List(kind)))
}
