package handler

import (
	"net/http"

	"github.com/mmeshcher/orbit-portal/internal/model"
	"github.com/mmeshcher/orbit-portal/internal/service"
)

// ListLookbookPosts возвращает публикации лукбука от новых к старым.
func (h *Handler) ListLookbookPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListLookbookPosts(r.Context())
	if err != nil {
		h.writeError(w, r, "list lookbook posts", err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) GetLookbookPost(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetLookbookPost(r.Context(), urlParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "get lookbook post", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) CreateLookbookPost(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var in service.LookbookInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, "create lookbook post", err)
		return
	}
	p, err := h.service.CreateLookbookPost(r.Context(), actor, in)
	if err != nil {
		h.writeError(w, r, "create lookbook post", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdateLookbookPost(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var patch model.LookbookPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.writeError(w, r, "update lookbook post", err)
		return
	}
	p, err := h.service.UpdateLookbookPost(r.Context(), actor, urlParam(r, "id"), patch)
	if err != nil {
		h.writeError(w, r, "update lookbook post", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) DeleteLookbookPost(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteLookbookPost(r.Context(), actor, urlParam(r, "id")); err != nil {
		h.writeError(w, r, "delete lookbook post", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddLookbookComment добавляет комментарий к публикации.
func (h *Handler) AddLookbookComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, "add lookbook comment", err)
		return
	}
	c, err := h.service.AddLookbookComment(r.Context(), actor, urlParam(r, "id"), req.Message)
	if err != nil {
		h.writeError(w, r, "add lookbook comment", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) ListLookbookComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.ListLookbookComments(r.Context(), urlParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "list lookbook comments", err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}
