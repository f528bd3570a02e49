// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/db"
)

// TestAdminID is the person ID GetTestConfig configures as administrator
const TestAdminID = "admin-person"

// SetupTestDB opens a private in-memory SQLite database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.TypeSQLite, "file::memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3333,
		DatabaseURL:   "file::memory:",
		DatabaseType:  db.TypeSQLite,
		AuthSecret:    "test-auth-secret",
		AdminPersonID: TestAdminID,
		WSSendBuffer:  16,
	}
}

// CreateTestEvent inserts an event and returns its ID
func CreateTestEvent(t *testing.T, conn *sql.DB, category string, active bool) string {
	t.Helper()

	eventID := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO event (id, title, category, active, created_at)
		VALUES (?, 'Test Event', ?, ?, ?)
	`, eventID, category, active, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test event: %v", err)
	}

	return eventID
}

// CreateTestPoll inserts a poll with the given option titles and returns the
// poll ID and the option IDs in the same order
func CreateTestPoll(t *testing.T, conn *sql.DB, eventID string, options ...string) (string, []string) {
	t.Helper()

	pollID := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO poll (id, event_id, title, created_at)
		VALUES (?, ?, 'Test Poll', ?)
	`, pollID, eventID, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	optionIDs := make([]string, 0, len(options))
	for i, title := range options {
		optionID := uuid.NewString()
		_, err := conn.Exec(`
			INSERT INTO poll_option (id, poll_id, title, position)
			VALUES (?, ?, ?, ?)
		`, optionID, pollID, title, i)
		if err != nil {
			t.Fatalf("Failed to create test option: %v", err)
		}
		optionIDs = append(optionIDs, optionID)
	}

	return pollID, optionIDs
}

// CreateTestUser registers a person allowed to vote on the given categories
// (none = all)
func CreateTestUser(t *testing.T, conn *sql.DB, personID string, categories ...string) {
	t.Helper()

	_, err := conn.Exec(`
		INSERT INTO app_user (person_id, allowed_categories) VALUES (?, ?)
	`, personID, strings.Join(categories, ","))
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
}

// CountVotes returns the number of persisted votes for a poll
func CountVotes(t *testing.T, conn *sql.DB, pollID string) int {
	t.Helper()

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM vote WHERE poll_id = ?`, pollID).Scan(&n); err != nil {
		t.Fatalf("Failed to count votes: %v", err)
	}
	return n
}

// AuthHeaders returns an Authorization header carrying a token for personID
func AuthHeaders(t *testing.T, cfg cliparse.Config, personID string) map[string]string {
	t.Helper()

	token, err := auth.IssueToken(personID, cfg.AuthSecret, time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
