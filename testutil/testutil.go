// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/bugdex/auth"
	"github.com/danielhkuo/bugdex/cliparse"
	"github.com/danielhkuo/bugdex/db"
)

// Test wallets (already normalized to lowercase)
const (
	OwnerWallet = "0x1111111111111111111111111111111111111111"
	VoterA      = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	VoterB      = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	VoterC      = "0xcccccccccccccccccccccccccccccccccccccccc"
)

const TestAdminKey = "test-admin-key"

// SetupTestDB creates a fresh sqlite database file with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bugdex.db")
	conn, err := db.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3318,
		DatabaseURL:    "file::memory:",
		DatabaseType:   "sqlite",
		AdminKey:       TestAdminKey,
		IPHashSalt:     "test-ip-salt",
		IPFSGatewayURL: "https://ipfs.io/ipfs/",
	}
}

// CreateTestUpload inserts a discovery that has not entered voting
func CreateTestUpload(t *testing.T, conn *sql.DB, wallet string) string {
	t.Helper()

	uploadID := auth.NewID()
	_, err := conn.Exec(`
		INSERT INTO upload (id, wallet_address, image_cid, metadata_cid, species_info,
			common_name, scientific_name, confidence, location_name, created_at)
		VALUES ($1, $2, 'bafyimage', 'bafymeta', '{"order":"Coleoptera"}',
			'Ladybug', 'Coccinella septempunctata', 0.92, 'Test Garden', $3)
	`, uploadID, wallet, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test upload: %v", err)
	}

	return uploadID
}

// CreatePendingUpload inserts a discovery already in pending_voting with the given counters
func CreatePendingUpload(t *testing.T, conn *sql.DB, wallet string, deadline time.Time, votesFor, votesAgainst int) string {
	t.Helper()

	uploadID := CreateTestUpload(t, conn, wallet)
	_, err := conn.Exec(`
		UPDATE upload
		SET voting_status = 'pending_voting', voting_deadline = $1, votes_for = $2,
			votes_against = $3, bug_staked = 10, submitted_at = $4
		WHERE id = $5
	`, deadline.UTC(), votesFor, votesAgainst, time.Now().UTC(), uploadID)
	if err != nil {
		t.Fatalf("Failed to mark upload pending: %v", err)
	}

	return uploadID
}

// CreateTestVote inserts a vote row without touching the counters
func CreateTestVote(t *testing.T, conn *sql.DB, uploadID, voter string, voteFor bool) {
	t.Helper()

	_, err := conn.Exec(`
		INSERT INTO vote (id, upload_id, voter_address, vote_for, voted_at)
		VALUES ($1, $2, $3, $4, $5)
	`, auth.NewID(), uploadID, voter, voteFor, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test vote: %v", err)
	}
}

// GetCounts reads the vote counters and status of an upload
func GetCounts(t *testing.T, conn *sql.DB, uploadID string) (votesFor, votesAgainst int, status string) {
	t.Helper()

	err := conn.QueryRow(`
		SELECT votes_for, votes_against, voting_status FROM upload WHERE id = $1
	`, uploadID).Scan(&votesFor, &votesAgainst, &status)
	if err != nil {
		t.Fatalf("Failed to read upload counters: %v", err)
	}
	return votesFor, votesAgainst, status
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
