// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/danielhkuo/livepoll/keylock"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/tally"
)

var (
	ErrAlreadyVoted = errors.New("already voted for this option")
	ErrInconsistent = errors.New("vote ledger and tally out of sync")
	ErrDuplicate    = errors.New("duplicate vote for identity and poll")
)

// Journal persists ledger changes. RecordVote must store vote and, when
// previous is non-nil, remove previous in the same transaction.
type Journal interface {
	RecordVote(ctx context.Context, vote models.Vote, previous *models.Vote) error
}

type voteKey struct {
	identity string
	pollID   string
}

// Outcome describes a committed vote.
type Outcome struct {
	Vote     models.Vote
	Previous string // option switched away from, empty for a first vote
}

func (o Outcome) Switched() bool {
	return o.Previous != ""
}

// Affected lists the options whose counts changed: the old option first,
// then the new one.
func (o Outcome) Affected() []string {
	if o.Switched() {
		return []string{o.Previous, o.Vote.OptionID}
	}
	return []string{o.Vote.OptionID}
}

type Ledger struct {
	tally   *tally.Store
	journal Journal
	polls   keylock.RWMap[string] // casts share a poll, ForgetPoll excludes them
	locks   keylock.Map[voteKey]
	votes   sync.Map // voteKey -> models.Vote
}

// New returns a ledger driving t. journal may be nil for a memory-only
// ledger.
func New(t *tally.Store, journal Journal) *Ledger {
	return &Ledger{tally: t, journal: journal}
}

// CastVote records identity's vote for optionID on pollID.
//
// Calls for the same identity and poll are serialized; calls for different
// identities only meet on the tally counters. The journal write happens
// before any in-memory change, so a journal failure leaves nothing behind.
func (l *Ledger) CastVote(ctx context.Context, identity, pollID, optionID string) (Outcome, error) {
	runlock := l.polls.RLock(pollID)
	defer runlock()

	k := voteKey{identity: identity, pollID: pollID}
	unlock := l.locks.Lock(k)
	defer unlock()

	var previous *models.Vote
	if v, ok := l.votes.Load(k); ok {
		prev := v.(models.Vote)
		if prev.OptionID == optionID {
			return Outcome{}, ErrAlreadyVoted
		}
		previous = &prev
	}

	vote := models.Vote{
		Identity:  identity,
		PollID:    pollID,
		OptionID:  optionID,
		CreatedAt: time.Now().UTC(),
	}

	if l.journal != nil {
		if err := l.journal.RecordVote(ctx, vote, previous); err != nil {
			return Outcome{}, fmt.Errorf("failed to record vote: %w", err)
		}
	}

	out := Outcome{Vote: vote}
	var err error
	if previous != nil {
		out.Previous = previous.OptionID
		if _, derr := l.tally.Decrement(pollID, previous.OptionID); derr != nil {
			// The journal already holds the switch, so finish applying it and
			// report the fault instead of leaving the ledger half updated.
			slog.Error("tally desync on vote switch",
				"poll_id", pollID,
				"option_id", previous.OptionID,
				"error", derr,
			)
			err = fmt.Errorf("%w: %w", ErrInconsistent, derr)
		}
	}

	l.votes.Store(k, vote)
	l.tally.Increment(pollID, optionID)

	return out, err
}

// MyVote returns the option identity currently holds on pollID.
func (l *Ledger) MyVote(identity, pollID string) (string, bool) {
	v, ok := l.votes.Load(voteKey{identity: identity, pollID: pollID})
	if !ok {
		return "", false
	}
	return v.(models.Vote).OptionID, true
}

// Load seeds the ledger and tally from persisted votes. It is meant for
// startup, before any CastVote.
func (l *Ledger) Load(votes []models.Vote) error {
	for _, v := range votes {
		k := voteKey{identity: v.Identity, pollID: v.PollID}
		if _, loaded := l.votes.LoadOrStore(k, v); loaded {
			return fmt.Errorf("%w: %s on poll %s", ErrDuplicate, v.Identity, v.PollID)
		}
		l.tally.Increment(v.PollID, v.OptionID)
	}
	return nil
}

// ForgetPoll drops every vote on pollID and clears its tally. The caller
// removes the persisted rows.
func (l *Ledger) ForgetPoll(pollID string) {
	unlock := l.polls.Lock(pollID)
	defer unlock()
	l.forget(pollID)
}

// ReplacePoll runs replace with no vote on pollID in progress and, if it
// succeeds, drops every vote on the poll before any new cast is accepted.
// replace is where the persisted votes are removed.
func (l *Ledger) ReplacePoll(pollID string, replace func() error) error {
	unlock := l.polls.Lock(pollID)
	defer unlock()

	if err := replace(); err != nil {
		return err
	}
	l.forget(pollID)
	return nil
}

// forget needs the poll's exclusive lock.
func (l *Ledger) forget(pollID string) {
	l.votes.Range(func(k, _ any) bool {
		if k.(voteKey).pollID == pollID {
			l.votes.Delete(k)
		}
		return true
	})
	l.tally.Reset(pollID)
}

// Votes returns the number of votes currently recorded on pollID.
func (l *Ledger) Votes(pollID string) int {
	n := 0
	l.votes.Range(func(k, _ any) bool {
		if k.(voteKey).pollID == pollID {
			n++
		}
		return true
	})
	return n
}

// CountFor returns how many recorded votes name optionID on pollID.
func (l *Ledger) CountFor(pollID, optionID string) int64 {
	var n int64
	l.votes.Range(func(k, v any) bool {
		if k.(voteKey).pollID == pollID && v.(models.Vote).OptionID == optionID {
			n++
		}
		return true
	})
	return n
}
