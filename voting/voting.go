// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/livepoll/broadcast"
	"github.com/danielhkuo/livepoll/ledger"
	"github.com/danielhkuo/livepoll/metrics"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
)

var (
	// ErrNotFound is returned for unknown polls and options. PollDirectory
	// implementations wrap it for missing polls.
	ErrNotFound     = store.ErrNotFound
	ErrAccessDenied = errors.New("not allowed to vote on this event")
)

// PollDirectory looks up poll metadata.
type PollDirectory interface {
	GetPoll(ctx context.Context, pollID string) (models.Poll, error)
}

// Authorizer decides whether identity may vote on events of category.
type Authorizer interface {
	CanVote(ctx context.Context, identity, category string) (bool, error)
}

type Service struct {
	polls   PollDirectory
	authz   Authorizer
	ledger  *ledger.Ledger
	results *broadcast.Results
}

func NewService(polls PollDirectory, authz Authorizer, l *ledger.Ledger, results *broadcast.Results) *Service {
	return &Service{polls: polls, authz: authz, ledger: l, results: results}
}

// Cast records identity's vote and publishes the new counts of every
// option it changed.
func (s *Service) Cast(ctx context.Context, identity, pollID, optionID string) (ledger.Outcome, error) {
	return s.CastInEvent(ctx, identity, "", pollID, optionID)
}

// CastInEvent is Cast for a poll addressed through its event. An empty
// eventID matches any event.
func (s *Service) CastInEvent(ctx context.Context, identity, eventID, pollID, optionID string) (ledger.Outcome, error) {
	poll, err := s.lookup(ctx, eventID, pollID)
	if err != nil {
		return ledger.Outcome{}, s.fail(err)
	}
	if !poll.HasOption(optionID) {
		return ledger.Outcome{}, s.fail(fmt.Errorf("option %s: %w", optionID, ErrNotFound))
	}

	ok, err := s.authz.CanVote(ctx, identity, poll.Category)
	if err != nil {
		return ledger.Outcome{}, s.fail(fmt.Errorf("failed to check permissions: %w", err))
	}
	if !ok {
		return ledger.Outcome{}, s.fail(fmt.Errorf("%w: %q", ErrAccessDenied, poll.Category))
	}

	out, err := s.ledger.CastVote(ctx, identity, pollID, optionID)
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrInconsistent):
		// The switch was applied; observers still need the new counts.
		metrics.TallyInconsistencies.Inc()
		s.results.Publish(pollID, out.Affected()...)
		return out, s.fail(err)
	default:
		return ledger.Outcome{}, s.fail(err)
	}

	if out.Switched() {
		metrics.VotesCast.WithLabelValues(metrics.OutcomeSwitched).Inc()
	} else {
		metrics.VotesCast.WithLabelValues(metrics.OutcomeRecorded).Inc()
	}

	s.results.Publish(pollID, out.Affected()...)

	slog.Debug("vote cast",
		"poll_id", pollID,
		"option_id", optionID,
		"switched", out.Switched(),
	)
	return out, nil
}

// MyVote returns the option identity holds on pollID, if any.
func (s *Service) MyVote(identity, pollID string) (string, bool) {
	return s.ledger.MyVote(identity, pollID)
}

// Snapshot returns the current count of every option of pollID, including
// options nobody voted for, and the total number of votes.
func (s *Service) Snapshot(ctx context.Context, pollID string) ([]models.ResultsMessage, int64, error) {
	poll, err := s.lookup(ctx, "", pollID)
	if err != nil {
		return nil, 0, err
	}

	msgs := s.results.Snapshot(pollID, optionIDs(poll))
	var total int64
	for _, m := range msgs {
		total += m.Votes
	}
	return msgs, total, nil
}

// Poll returns the metadata of pollID.
func (s *Service) Poll(ctx context.Context, pollID string) (models.Poll, error) {
	return s.lookup(ctx, "", pollID)
}

func (s *Service) lookup(ctx context.Context, eventID, pollID string) (models.Poll, error) {
	poll, err := s.polls.GetPoll(ctx, pollID)
	if err != nil {
		return models.Poll{}, err
	}
	if eventID != "" && poll.EventID != eventID {
		return models.Poll{}, fmt.Errorf("poll %s in event %s: %w", pollID, eventID, ErrNotFound)
	}
	return poll, nil
}

func (s *Service) fail(err error) error {
	outcome := metrics.OutcomeError
	switch {
	case errors.Is(err, ledger.ErrAlreadyVoted):
		outcome = metrics.OutcomeAlreadyVoted
	case errors.Is(err, ErrNotFound):
		outcome = metrics.OutcomeNotFound
	case errors.Is(err, ErrAccessDenied):
		outcome = metrics.OutcomeDenied
	}
	metrics.VotesCast.WithLabelValues(outcome).Inc()
	return err
}

func optionIDs(p models.Poll) []string {
	ids := make([]string, len(p.Options))
	for i, o := range p.Options {
		ids[i] = o.ID
	}
	return ids
}
