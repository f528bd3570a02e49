// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/livepoll/db"
	"github.com/danielhkuo/livepoll/models"
)

var ErrNotFound = errors.New("not found")

// Store is the SQL-backed poll and event directory, the voting
// permission lookup, and the vote journal.
type Store struct {
	db     *sql.DB
	dbType string
}

func New(conn *sql.DB, dbType string) *Store {
	return &Store{db: conn, dbType: dbType}
}

func (s *Store) q(query string) string {
	return db.Rebind(s.dbType, query)
}

// ---------- Events ----------

func (s *Store) CreateEvent(ctx context.Context, title, category string) (models.Event, error) {
	ev := models.Event{ID: uuid.NewString(), Title: title, Category: category}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO event (id, title, category, active, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), ev.ID, ev.Title, ev.Category, false, time.Now().UTC())
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to insert event: %w", err)
	}
	return ev, nil
}

// GetEvent returns the event with its polls (without options).
func (s *Store) GetEvent(ctx context.Context, eventID string) (models.Event, error) {
	var ev models.Event
	var activePollID sql.NullString
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, title, category, active, active_poll_id
		FROM event
		WHERE id = ?
	`), eventID).Scan(&ev.ID, &ev.Title, &ev.Category, &ev.Active, &activePollID)
	if err == sql.ErrNoRows {
		return models.Event{}, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to query event: %w", err)
	}
	if activePollID.Valid {
		ev.ActivePollID = &activePollID.String
	}

	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, event_id, title FROM poll WHERE event_id = ? ORDER BY created_at, id
	`), eventID)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to query polls: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Poll
		if err := rows.Scan(&p.ID, &p.EventID, &p.Title); err != nil {
			return models.Event{}, fmt.Errorf("failed to scan poll: %w", err)
		}
		p.Category = ev.Category
		ev.Polls = append(ev.Polls, p)
	}
	if err := rows.Err(); err != nil {
		return models.Event{}, err
	}
	return ev, nil
}

// ListEvents returns every event, newest first, each with its polls
// (without options).
func (s *Store) ListEvents(ctx context.Context) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, title, category, active, active_poll_id
		FROM event
		ORDER BY created_at DESC, id
	`))
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	index := make(map[string]int)
	for rows.Next() {
		var ev models.Event
		var activePollID sql.NullString
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Category, &ev.Active, &activePollID); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if activePollID.Valid {
			ev.ActivePollID = &activePollID.String
		}
		index[ev.ID] = len(events)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	pollRows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, event_id, title FROM poll ORDER BY created_at, id
	`))
	if err != nil {
		return nil, fmt.Errorf("failed to query polls: %w", err)
	}
	defer pollRows.Close()

	for pollRows.Next() {
		var p models.Poll
		if err := pollRows.Scan(&p.ID, &p.EventID, &p.Title); err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		i, ok := index[p.EventID]
		if !ok {
			continue
		}
		p.Category = events[i].Category
		events[i].Polls = append(events[i].Polls, p)
	}
	return events, pollRows.Err()
}

// UpdateEvent applies the fields set in req and returns the updated event.
// A non-null activePollId must name a poll of the same event.
func (s *Store) UpdateEvent(ctx context.Context, eventID string, req models.UpdateEventRequest) (models.Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx, s.q(`SELECT EXISTS(SELECT 1 FROM event WHERE id = ?)`), eventID).Scan(&exists)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to query event: %w", err)
	}
	if !exists {
		return models.Event{}, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}

	if req.Title != nil {
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE event SET title = ? WHERE id = ?`), *req.Title, eventID); err != nil {
			return models.Event{}, fmt.Errorf("failed to update title: %w", err)
		}
	}
	if req.Active != nil {
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE event SET active = ? WHERE id = ?`), *req.Active, eventID); err != nil {
			return models.Event{}, fmt.Errorf("failed to update active: %w", err)
		}
	}
	if req.ActivePollID.Set {
		if req.ActivePollID.Value != nil {
			var owned bool
			err := tx.QueryRowContext(ctx, s.q(`
				SELECT EXISTS(SELECT 1 FROM poll WHERE id = ? AND event_id = ?)
			`), *req.ActivePollID.Value, eventID).Scan(&owned)
			if err != nil {
				return models.Event{}, fmt.Errorf("failed to query poll: %w", err)
			}
			if !owned {
				return models.Event{}, fmt.Errorf("poll %s: %w", *req.ActivePollID.Value, ErrNotFound)
			}
		}
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE event SET active_poll_id = ? WHERE id = ?`), req.ActivePollID.Value, eventID); err != nil {
			return models.Event{}, fmt.Errorf("failed to update active poll: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Event{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.GetEvent(ctx, eventID)
}

// ---------- Polls ----------

// GetPoll returns the poll with its options in display order and the
// category of its event.
func (s *Store) GetPoll(ctx context.Context, pollID string) (models.Poll, error) {
	var p models.Poll
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT p.id, p.event_id, p.title, e.category
		FROM poll p
		JOIN event e ON e.id = p.event_id
		WHERE p.id = ?
	`), pollID).Scan(&p.ID, &p.EventID, &p.Title, &p.Category)
	if err == sql.ErrNoRows {
		return models.Poll{}, fmt.Errorf("poll %s: %w", pollID, ErrNotFound)
	}
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to query poll: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, poll_id, title FROM poll_option WHERE poll_id = ? ORDER BY position, id
	`), pollID)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o models.Option
		if err := rows.Scan(&o.ID, &o.PollID, &o.Title); err != nil {
			return models.Poll{}, fmt.Errorf("failed to scan option: %w", err)
		}
		p.Options = append(p.Options, o)
	}
	if err := rows.Err(); err != nil {
		return models.Poll{}, err
	}
	return p, nil
}

// EventPolls returns the event with its polls and their options, polls in
// creation order.
func (s *Store) EventPolls(ctx context.Context, eventID string) (models.Event, error) {
	ev, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return models.Event{}, err
	}

	index := make(map[string]int, len(ev.Polls))
	for i, p := range ev.Polls {
		index[p.ID] = i
	}

	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT o.id, o.poll_id, o.title
		FROM poll_option o
		JOIN poll p ON p.id = o.poll_id
		WHERE p.event_id = ?
		ORDER BY o.position, o.id
	`), eventID)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o models.Option
		if err := rows.Scan(&o.ID, &o.PollID, &o.Title); err != nil {
			return models.Event{}, fmt.Errorf("failed to scan option: %w", err)
		}
		if i, ok := index[o.PollID]; ok {
			ev.Polls[i].Options = append(ev.Polls[i].Options, o)
		}
	}
	if err := rows.Err(); err != nil {
		return models.Event{}, err
	}
	return ev, nil
}

// CreatePoll inserts a poll and its options under eventID.
func (s *Store) CreatePoll(ctx context.Context, eventID, title string, options []string) (models.Poll, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var category string
	err = tx.QueryRowContext(ctx, s.q(`SELECT category FROM event WHERE id = ?`), eventID).Scan(&category)
	if err == sql.ErrNoRows {
		return models.Poll{}, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to query event: %w", err)
	}

	p := models.Poll{ID: uuid.NewString(), EventID: eventID, Title: title, Category: category}
	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO poll (id, event_id, title, created_at) VALUES (?, ?, ?, ?)
	`), p.ID, p.EventID, p.Title, time.Now().UTC())
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to insert poll: %w", err)
	}

	if p.Options, err = s.insertOptions(ctx, tx, p.ID, options); err != nil {
		return models.Poll{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Poll{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return p, nil
}

// ReplacePoll renames a poll and replaces its options. Votes on the old
// options are deleted with them.
func (s *Store) ReplacePoll(ctx context.Context, pollID, eventID, title string, options []string) (models.Poll, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.q(`UPDATE poll SET title = ? WHERE id = ? AND event_id = ?`), title, pollID, eventID)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to update poll: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return models.Poll{}, err
	} else if n == 0 {
		return models.Poll{}, fmt.Errorf("poll %s: %w", pollID, ErrNotFound)
	}

	// Explicit so that SQLite connections without foreign keys behave the same.
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM vote WHERE poll_id = ?`), pollID); err != nil {
		return models.Poll{}, fmt.Errorf("failed to delete votes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM poll_option WHERE poll_id = ?`), pollID); err != nil {
		return models.Poll{}, fmt.Errorf("failed to delete options: %w", err)
	}

	if _, err := s.insertOptions(ctx, tx, pollID, options); err != nil {
		return models.Poll{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Poll{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.GetPoll(ctx, pollID)
}

func (s *Store) insertOptions(ctx context.Context, tx *sql.Tx, pollID string, titles []string) ([]models.Option, error) {
	opts := make([]models.Option, 0, len(titles))
	for i, title := range titles {
		o := models.Option{ID: uuid.NewString(), PollID: pollID, Title: title}
		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO poll_option (id, poll_id, title, position) VALUES (?, ?, ?, ?)
		`), o.ID, o.PollID, o.Title, i)
		if err != nil {
			return nil, fmt.Errorf("failed to insert option: %w", err)
		}
		opts = append(opts, o)
	}
	return opts, nil
}

// ---------- Users ----------

// SaveUser creates or replaces a user's voting permissions.
func (s *Store) SaveUser(ctx context.Context, u models.User) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO app_user (person_id, allowed_categories) VALUES (?, ?)
		ON CONFLICT (person_id) DO UPDATE SET allowed_categories = excluded.allowed_categories
	`), u.PersonID, strings.Join(u.AllowedCategories, ","))
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, personID string) (models.User, error) {
	var allowed string
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT allowed_categories FROM app_user WHERE person_id = ?
	`), personID).Scan(&allowed)
	if err == sql.ErrNoRows {
		return models.User{}, fmt.Errorf("user %s: %w", personID, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to query user: %w", err)
	}

	u := models.User{PersonID: personID, AllowedCategories: []string{}}
	for _, c := range strings.Split(allowed, ",") {
		if c = strings.TrimSpace(c); c != "" {
			u.AllowedCategories = append(u.AllowedCategories, c)
		}
	}
	return u, nil
}

// CanVote reports whether personID may vote in events of category. Users
// with no listed categories may vote everywhere; unknown users nowhere.
func (s *Store) CanVote(ctx context.Context, personID, category string) (bool, error) {
	u, err := s.GetUser(ctx, personID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(u.AllowedCategories) == 0 {
		return true, nil
	}
	for _, c := range u.AllowedCategories {
		if c == category {
			return true, nil
		}
	}
	return false, nil
}

// ---------- Votes ----------

// RecordVote persists vote, replacing previous in the same transaction.
func (s *Store) RecordVote(ctx context.Context, vote models.Vote, previous *models.Vote) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if previous != nil {
		res, err := tx.ExecContext(ctx, s.q(`
			DELETE FROM vote WHERE person_id = ? AND poll_id = ? AND option_id = ?
		`), previous.Identity, previous.PollID, previous.OptionID)
		if err != nil {
			return fmt.Errorf("failed to delete previous vote: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n != 1 {
			return fmt.Errorf("previous vote of %s on poll %s: %w", previous.Identity, previous.PollID, ErrNotFound)
		}
	}

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO vote (person_id, poll_id, option_id, created_at) VALUES (?, ?, ?, ?)
	`), vote.Identity, vote.PollID, vote.OptionID, vote.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}

	return tx.Commit()
}

// LoadVotes returns every persisted vote.
func (s *Store) LoadVotes(ctx context.Context) ([]models.Vote, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT person_id, poll_id, option_id, created_at FROM vote`)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	var votes []models.Vote
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.Identity, &v.PollID, &v.OptionID, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return votes, nil
}
