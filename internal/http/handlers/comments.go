package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	apierrors "github.com/pribylovaa/thinkedin/internal/errors"
	"github.com/pribylovaa/thinkedin/internal/service"
)

func (h *Handlers) CreateComment(w http.ResponseWriter, r *http.Request) {
	var in CreateCommentRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument("body"))
		return
	}

	actor := actorFrom(r)
	comm, err := h.Service.CreateComment(r.Context(), actor, service.CreateCommentInput{
		PostID:   chi.URLParam(r, "id"),
		ParentID: in.ParentID,
		Content:  in.Content,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, commentFromModel(*comm, actor.AccountID))
}

// Thread — дерево комментариев поста.
// ?flat=true отдаёт тот же лес списком в прямом порядке (depth + can_reply у каждой строки).
func (h *Handlers) Thread(w http.ResponseWriter, r *http.Request) {
	account := actorFrom(r).AccountID

	th, err := h.Service.Thread(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if r.URL.Query().Get("flat") == "true" {
		writeJSON(w, http.StatusOK, flatFromService(th, account))
		return
	}

	writeJSON(w, http.StatusOK, threadFromService(th, account))
}
