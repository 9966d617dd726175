package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/thinkedin/internal/errors"
)

// Recommend — чат-бот: подбирает свежие посты под запрос.
func (h *Handlers) Recommend(w http.ResponseWriter, r *http.Request) {
	var in RecommendRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument("body"))
		return
	}

	rec, err := h.Service.Recommend(r.Context(), in.Prompt)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, RecommendResponse{
		Text:  rec.Text,
		Posts: postsFromModel(rec.Posts, actorFrom(r).AccountID).Posts,
	})
}
