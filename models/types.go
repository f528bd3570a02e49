package models

import (
	"encoding/json"
	"time"
)

// Request types

type CastVoteRequest struct {
	OptionID string `json:"optionId"`
}

// ID is set when replacing the title and options of an existing poll.
type CreatePollRequest struct {
	ID      string   `json:"id,omitempty"`
	Title   string   `json:"title"`
	Options []string `json:"options"`
}

type CreateEventRequest struct {
	Title    string `json:"title"`
	Category string `json:"type"`
}

type UpdateEventRequest struct {
	Title        *string        `json:"title,omitempty"`
	Active       *bool          `json:"active,omitempty"`
	ActivePollID NullableString `json:"activePollId"`
}

// NullableString distinguishes an absent JSON field from an explicit null.
type NullableString struct {
	Set   bool
	Value *string
}

func (n *NullableString) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// Response types

type CreatePollResponse struct {
	PollID string `json:"pollId"`
}

type MyVoteResponse struct {
	OptionID string `json:"optionId"`
}

type ResultsResponse struct {
	PollID  string           `json:"pollId"`
	Results []ResultsMessage `json:"results"`
	Total   int64            `json:"total"`
}

type PollResponse struct {
	Poll    Poll             `json:"poll"`
	Results []ResultsMessage `json:"results"`
	Total   int64            `json:"total"`
}

type EventResponse struct {
	Event Event `json:"event"`
}

type CreateEventResponse struct {
	EventID string `json:"eventId"`
	Event   Event  `json:"event"`
}

type EventsResponse struct {
	Events []Event `json:"events"`
}

// PollsResponse lists an event's polls with the live score of every option.
type PollsResponse struct {
	Polls []ScoredPoll `json:"polls"`
}

type ScoredPoll struct {
	ID      string         `json:"id"`
	EventID string         `json:"eventId"`
	Title   string         `json:"title"`
	Options []ScoredOption `json:"options"`
}

type ScoredOption struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Score int64  `json:"score"`
}

// Domain types

type Event struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Category     string  `json:"type"`
	Active       bool    `json:"active"`
	ActivePollID *string `json:"activePollId"`
	Polls        []Poll  `json:"polls,omitempty"`
}

type Poll struct {
	ID       string   `json:"id"`
	EventID  string   `json:"eventId"`
	Title    string   `json:"title"`
	Category string   `json:"-"` // category of the owning event
	Options  []Option `json:"options,omitempty"`
}

// HasOption reports whether optionID belongs to the poll.
func (p Poll) HasOption(optionID string) bool {
	for _, o := range p.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

type Option struct {
	ID     string `json:"id"`
	PollID string `json:"-"`
	Title  string `json:"title"`
}

// Vote is a single ballot. At most one exists per (Identity, PollID).
type Vote struct {
	Identity  string    `json:"-"`
	PollID    string    `json:"pollId"`
	OptionID  string    `json:"optionId"`
	CreatedAt time.Time `json:"createdAt"`
}

type User struct {
	PersonID          string   `json:"personId"`
	AllowedCategories []string `json:"allowedEventTypes"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
