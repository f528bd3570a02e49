// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/danielhkuo/livepoll/ledger"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/voting"
)

type VotingHandler struct {
	svc *voting.Service
}

func NewVotingHandler(svc *voting.Service) *VotingHandler {
	return &VotingHandler{svc: svc}
}

// CastVote handles POST /api/events/{eventId}/polls/{pollId}/votes
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventId")
	pollID := r.PathValue("pollId")
	if !validIDs(w, eventID, pollID) {
		return
	}

	personID, ok := middleware.PersonID(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	// Parse request
	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if _, err := uuid.Parse(req.OptionID); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "optionId must be a UUID")
		return
	}

	_, err := h.svc.CastInEvent(r.Context(), personID, eventID, pollID, req.OptionID)
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrAlreadyVoted):
		middleware.ErrorResponse(w, http.StatusBadRequest, "You have already voted on this poll!")
		return
	case errors.Is(err, voting.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	case errors.Is(err, voting.ErrAccessDenied):
		middleware.ErrorResponse(w, http.StatusForbidden, "You don't have permission to vote on this event")
		return
	default:
		slog.Error("failed to cast vote", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to cast vote")
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// MyVote handles GET /api/events/{eventId}/polls/{pollId}/my-vote
func (h *VotingHandler) MyVote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("pollId")
	if !validIDs(w, r.PathValue("eventId"), pollID) {
		return
	}

	personID, ok := middleware.PersonID(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	optionID, ok := h.svc.MyVote(personID, pollID)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.MyVoteResponse{OptionID: optionID})
}

// validIDs writes 400 and returns false unless every id is a UUID
func validIDs(w http.ResponseWriter, ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid id format")
			return false
		}
	}
	return true
}
