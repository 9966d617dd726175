package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/thinkedin/internal/errors"
)

// Me — псевдоним устройства и состояние онбординга.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	id, err := h.Service.Identity(r.Context(), actorFrom(r))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{
		Pseudonym:           id.Pseudonym,
		OnboardingDismissed: id.OnboardingDismissed,
		Authenticated:       id.Authenticated,
	})
}

func (h *Handlers) DismissOnboarding(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DismissOnboarding(r.Context(), actorFrom(r)); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MyPosts / MyComments — дашборд аккаунта; без токена 401.
func (h *Handlers) MyPosts(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	actor := actorFrom(r)
	posts, err := h.Service.ListMyPosts(r.Context(), actor, limit)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, postsFromModel(posts, actor.AccountID))
}

func (h *Handlers) MyComments(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	actor := actorFrom(r)
	comments, err := h.Service.ListMyComments(r.Context(), actor, limit)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, commentsFromModel(comments, actor.AccountID))
}

func (h *Handlers) Tags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TagsResponse{Tags: h.Service.Tags(), Kinds: h.Service.Kinds()})
}
