package api

import (
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/catalog"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

type CommentHandler struct {
	Store  *catalog.Store
	Logger hclog.Logger
}

func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	comments, err := h.Store.CommentsByContentID(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	if comments == nil {
		comments = []*model.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	holder, _ := GetHolder(r)
	var in model.CommentInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	comment, err := h.Store.AddComment(r.Context(), holder.Profile(), in)
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *CommentHandler) Vote(w http.ResponseWriter, r *http.Request) {
	holder, _ := GetHolder(r)
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	var req struct {
		VoteType int `json:"vote_type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	if err := h.Store.VoteOnComment(r.Context(), holder.Profile(), id, req.VoteType); err != nil {
		writeError(w, h.Logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
