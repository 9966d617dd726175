package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	apierrors "github.com/pribylovaa/thinkedin/internal/errors"
	"github.com/pribylovaa/thinkedin/internal/models"
	"github.com/pribylovaa/thinkedin/internal/service"
)

// ListPosts — лента; с ?q= выполняет поиск по содержимому и тегам.
func (h *Handlers) ListPosts(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var posts []models.Post
	if q := r.URL.Query().Get("q"); q != "" {
		posts, err = h.Service.SearchPosts(r.Context(), q, limit)
	} else {
		posts, err = h.Service.ListPosts(r.Context(), limit)
	}
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, postsFromModel(posts, actorFrom(r).AccountID))
}

func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	var in CreatePostRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument("body"))
		return
	}

	actor := actorFrom(r)
	post, err := h.Service.CreatePost(r.Context(), actor, service.CreatePostInput{
		Content: in.Content,
		Tags:    in.Tags,
		Kind:    models.PostKind(in.Kind),
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, postFromModel(*post, actor.AccountID))
}

func (h *Handlers) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.Service.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, postFromModel(*post, actorFrom(r).AccountID))
}

func (h *Handlers) EditPost(w http.ResponseWriter, r *http.Request) {
	h.editRecord(w, r, models.RecordPost)
}

func (h *Handlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, models.RecordPost)
}

func (h *Handlers) EditComment(w http.ResponseWriter, r *http.Request) {
	h.editRecord(w, r, models.RecordComment)
}

func (h *Handlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, models.RecordComment)
}

func (h *Handlers) editRecord(w http.ResponseWriter, r *http.Request, kind models.RecordKind) {
	var in EditRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument("body"))
		return
	}

	if err := h.Service.EditRecord(r.Context(), actorFrom(r), kind, chi.URLParam(r, "id"), in.Content); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) deleteRecord(w http.ResponseWriter, r *http.Request, kind models.RecordKind) {
	if err := h.Service.DeleteRecord(r.Context(), actorFrom(r), kind, chi.URLParam(r, "id")); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
