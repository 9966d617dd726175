package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/thinkedin/internal/errors"
	"github.com/pribylovaa/thinkedin/internal/models"
)

func (h *Handlers) VoteTally(w http.ResponseWriter, r *http.Request) {
	tally, err := h.Service.VoteTally(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tally)
}

func (h *Handlers) CastVote(w http.ResponseWriter, r *http.Request) {
	var in VoteRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument("body"))
		return
	}

	tally, err := h.Service.CastVote(r.Context(), actorFrom(r), models.VoteChoice(in.Choice))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tally)
}
