// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/voting"
)

type ResultsHandler struct {
	svc *voting.Service
}

func NewResultsHandler(svc *voting.Service) *ResultsHandler {
	return &ResultsHandler{svc: svc}
}

// GetResults handles GET /api/polls/{pollId}/results
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("pollId")
	if !validIDs(w, pollID) {
		return
	}

	results, total, err := h.svc.Snapshot(r.Context(), pollID)
	if errors.Is(err, voting.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to read results", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ResultsResponse{
		PollID:  pollID,
		Results: results,
		Total:   total,
	})
}

// GetPoll handles GET /api/events/{eventId}/polls/{pollId}
// Returns the poll with its options and current results.
func (h *ResultsHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventId")
	pollID := r.PathValue("pollId")
	if !validIDs(w, eventID, pollID) {
		return
	}

	poll, err := h.svc.Poll(r.Context(), pollID)
	if err == nil && poll.EventID != eventID {
		err = voting.ErrNotFound
	}
	if errors.Is(err, voting.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to read poll", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	results, total, err := h.svc.Snapshot(r.Context(), pollID)
	if err != nil {
		slog.Error("failed to read results", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PollResponse{
		Poll:    poll,
		Results: results,
		Total:   total,
	})
}
