// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/bugdex/models"
	"github.com/danielhkuo/bugdex/testutil"
)

func submitForVoting(h *VotingHandler, uploadID, wallet string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/api/submit-for-voting", models.SubmitForVotingRequest{
		UploadID:      uploadID,
		WalletAddress: wallet,
	}, nil)
	w := httptest.NewRecorder()
	h.SubmitForVoting(w, req)
	return w
}

func castVote(h *VotingHandler, uploadID, voter string, voteFor bool) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/api/vote-offchain", models.VoteRequest{
		UploadID:     uploadID,
		VoterAddress: voter,
		VoteFor:      &voteFor,
	}, nil)
	w := httptest.NewRecorder()
	h.CastVote(w, req)
	return w
}

func TestSubmitForVoting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	stakes := newFakeStakes()
	handler := NewVotingHandler(db, testutil.GetTestConfig(), stakes)

	tests := []struct {
		name           string
		setup          func() string
		wallet         string
		txHash         string
		expectedStatus int
	}{
		{
			name: "valid stake",
			setup: func() string {
				id := testutil.CreateTestUpload(t, db, testutil.OwnerWallet)
				stakes.put(id, testutil.OwnerWallet, 10)
				return id
			},
			wallet:         testutil.OwnerWallet,
			expectedStatus: http.StatusOK,
		},
		{
			name: "stake above minimum with tx hash",
			setup: func() string {
				id := testutil.CreateTestUpload(t, db, testutil.OwnerWallet)
				stakes.put(id, testutil.OwnerWallet, 25)
				return id
			},
			wallet:         testutil.OwnerWallet,
			txHash:         "0x" + strings.Repeat("ab", 32),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "upload not found",
			setup:          func() string { return "missing-upload" },
			wallet:         testutil.OwnerWallet,
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "caller is not the owner",
			setup: func() string {
				id := testutil.CreateTestUpload(t, db, testutil.OwnerWallet)
				stakes.put(id, testutil.VoterA, 10)
				return id
			},
			wallet:         testutil.VoterA,
			expectedStatus: http.StatusForbidden,
		},
		{
			name: "no stake on chain",
			setup: func() string {
				return testutil.CreateTestUpload(t, db, testutil.OwnerWallet)
			},
			wallet:         testutil.OwnerWallet,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "stake from another wallet",
			setup: func() string {
				id := testutil.CreateTestUpload(t, db, testutil.OwnerWallet)
				stakes.put(id, testutil.VoterB, 10)
				return id
			},
			wallet:         testutil.OwnerWallet,
			expectedStatus: http.StatusForbidden,
		},
		{
			name: "insufficient stake",
			setup: func() string {
				id := testutil.CreateTestUpload(t, db, testutil.OwnerWallet)
				stakes.put(id, testutil.OwnerWallet, 9)
				return id
			},
			wallet:         testutil.OwnerWallet,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "malformed wallet",
			setup: func() string {
				return testutil.CreateTestUpload(t, db, testutil.OwnerWallet)
			},
			wallet:         "0x1234",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "malformed tx hash",
			setup: func() string {
				id := testutil.CreateTestUpload(t, db, testutil.OwnerWallet)
				stakes.put(id, testutil.OwnerWallet, 10)
				return id
			},
			wallet:         testutil.OwnerWallet,
			txHash:         "0xnothex",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uploadID := tt.setup()

			req := testutil.MakeRequest("POST", "/api/submit-for-voting", models.SubmitForVotingRequest{
				UploadID:      uploadID,
				WalletAddress: tt.wallet,
				TxHash:        tt.txHash,
			}, nil)
			w := httptest.NewRecorder()

			handler.SubmitForVoting(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusOK {
				var resp models.SubmitForVotingResponse
				testutil.AssertJSON(t, w, &resp)

				if resp.VotingStatus != models.StatusPendingVoting {
					t.Errorf("Expected pending_voting, got %s", resp.VotingStatus)
				}
				if resp.BugStaked != models.StakeAmount {
					t.Errorf("Expected bug_staked %d, got %d", models.StakeAmount, resp.BugStaked)
				}
				wantDeadline := time.Now().Add(24 * time.Hour)
				if diff := resp.VotingDeadline.Sub(wantDeadline); diff > time.Minute || diff < -time.Minute {
					t.Errorf("Deadline %v not ~24h from now", resp.VotingDeadline)
				}
				return
			}

			if uploadID == "missing-upload" {
				return
			}
			// Failed submissions must not change state
			_, _, status := testutil.GetCounts(t, db, uploadID)
			if status != models.StatusNotSubmitted {
				t.Errorf("Expected status to stay not_submitted, got %s", status)
			}
		})
	}
}

func TestSubmitForVotingTwice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	stakes := newFakeStakes()
	handler := NewVotingHandler(db, testutil.GetTestConfig(), stakes)

	uploadID := testutil.CreateTestUpload(t, db, testutil.OwnerWallet)
	stakes.put(uploadID, testutil.OwnerWallet, 10)

	testutil.AssertStatus(t, submitForVoting(handler, uploadID, testutil.OwnerWallet), http.StatusOK)
	testutil.AssertStatus(t, submitForVoting(handler, uploadID, testutil.OwnerWallet), http.StatusConflict)
}

func TestSubmitForVotingDisabled(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	stakes := newFakeStakes()
	handler := NewVotingHandler(db, testutil.GetTestConfig(), stakes)

	if _, err := db.Exec(`UPDATE voting_config SET enabled = FALSE WHERE id = 1`); err != nil {
		t.Fatalf("Failed to disable voting: %v", err)
	}

	uploadID := testutil.CreateTestUpload(t, db, testutil.OwnerWallet)
	stakes.put(uploadID, testutil.OwnerWallet, 10)

	testutil.AssertStatus(t, submitForVoting(handler, uploadID, testutil.OwnerWallet), http.StatusForbidden)
}

func TestSubmitForVotingVerifierErrors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	uploadID := testutil.CreateTestUpload(t, db, testutil.OwnerWallet)

	stakes := newFakeStakes()
	stakes.err = errRPCDown
	handler := NewVotingHandler(db, testutil.GetTestConfig(), stakes)
	testutil.AssertStatus(t, submitForVoting(handler, uploadID, testutil.OwnerWallet), http.StatusBadGateway)

	unconfigured := NewVotingHandler(db, testutil.GetTestConfig(), nil)
	testutil.AssertStatus(t, submitForVoting(unconfigured, uploadID, testutil.OwnerWallet), http.StatusServiceUnavailable)
}

func TestSubmitForVotingSnapshotsConfig(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	stakes := newFakeStakes()
	handler := NewVotingHandler(db, testutil.GetTestConfig(), stakes)

	if _, err := db.Exec(`UPDATE voting_config SET duration_hours = 2, approval_threshold = 3 WHERE id = 1`); err != nil {
		t.Fatalf("Failed to update config: %v", err)
	}

	uploadID := testutil.CreateTestUpload(t, db, testutil.OwnerWallet)
	stakes.put(uploadID, testutil.OwnerWallet, 10)
	testutil.AssertStatus(t, submitForVoting(handler, uploadID, testutil.OwnerWallet), http.StatusOK)

	// Later edits don't move an already pending upload
	if _, err := db.Exec(`UPDATE voting_config SET duration_hours = 48, approval_threshold = 0 WHERE id = 1`); err != nil {
		t.Fatalf("Failed to update config: %v", err)
	}

	upload, err := loadUpload(db, uploadID)
	if err != nil {
		t.Fatalf("Failed to load upload: %v", err)
	}
	if upload.ApprovalThreshold != 3 {
		t.Errorf("Expected snapshot threshold 3, got %d", upload.ApprovalThreshold)
	}
	if upload.VotingDeadline == nil {
		t.Fatal("Expected a voting deadline")
	}
	if remaining := time.Until(*upload.VotingDeadline); remaining > 2*time.Hour || remaining < 119*time.Minute {
		t.Errorf("Expected ~2h deadline, got %v remaining", remaining)
	}
}

func TestCastVote(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	handler := NewVotingHandler(db, testutil.GetTestConfig(), nil)

	open := testutil.CreatePendingUpload(t, db, testutil.OwnerWallet, time.Now().Add(time.Hour), 0, 0)
	expired := testutil.CreatePendingUpload(t, db, testutil.OwnerWallet, time.Now().Add(-time.Minute), 1, 1)
	draft := testutil.CreateTestUpload(t, db, testutil.OwnerWallet)

	tests := []struct {
		name           string
		uploadID       string
		voter          string
		voteFor        *bool
		expectedStatus int
	}{
		{"first vote for", open, testutil.VoterA, boolPtr(true), http.StatusOK},
		{"first vote against", open, testutil.VoterB, boolPtr(false), http.StatusOK},
		{"checksummed voter address", open, "0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC", boolPtr(true), http.StatusOK},
		{"own submission", open, testutil.OwnerWallet, boolPtr(true), http.StatusForbidden},
		{"upload not found", "missing-upload", testutil.VoterA, boolPtr(true), http.StatusNotFound},
		{"not submitted", draft, testutil.VoterA, boolPtr(true), http.StatusBadRequest},
		{"after deadline", expired, testutil.VoterA, boolPtr(true), http.StatusBadRequest},
		{"missing direction", open, testutil.VoterA, nil, http.StatusBadRequest},
		{"malformed voter", open, "not-an-address", boolPtr(true), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/api/vote-offchain", models.VoteRequest{
				UploadID:     tt.uploadID,
				VoterAddress: tt.voter,
				VoteFor:      tt.voteFor,
			}, nil)
			w := httptest.NewRecorder()

			handler.CastVote(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	votesFor, votesAgainst, _ := testutil.GetCounts(t, db, open)
	if votesFor != 2 || votesAgainst != 1 {
		t.Errorf("Expected 2 for / 1 against, got %d / %d", votesFor, votesAgainst)
	}

	// Rejected late votes leave counters alone
	votesFor, votesAgainst, _ = testutil.GetCounts(t, db, expired)
	if votesFor != 1 || votesAgainst != 1 {
		t.Errorf("Expired upload counters changed: %d / %d", votesFor, votesAgainst)
	}
}

func TestCastVoteAfterDeadlineReportsDeadline(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	handler := NewVotingHandler(db, testutil.GetTestConfig(), nil)
	deadline := time.Now().Add(-time.Hour).UTC()
	uploadID := testutil.CreatePendingUpload(t, db, testutil.OwnerWallet, deadline, 2, 2)

	w := castVote(handler, uploadID, testutil.VoterA, true)
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	var resp models.ErrorResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Deadline == nil {
		t.Fatal("Expected deadline in error response")
	}
	if diff := resp.Deadline.Sub(deadline); diff > time.Second || diff < -time.Second {
		t.Errorf("Expected deadline %v, got %v", deadline, *resp.Deadline)
	}
}

func TestVoteSwitch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	handler := NewVotingHandler(db, testutil.GetTestConfig(), nil)
	uploadID := testutil.CreatePendingUpload(t, db, testutil.OwnerWallet, time.Now().Add(time.Hour), 0, 0)

	testutil.AssertStatus(t, castVote(handler, uploadID, testutil.VoterA, true), http.StatusOK)

	w := castVote(handler, uploadID, testutil.VoterA, false)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.VoteResponse
	testutil.AssertJSON(t, w, &resp)
	if !resp.Changed {
		t.Error("Expected changed = true on direction switch")
	}
	if resp.VotesFor != 0 || resp.VotesAgainst != 1 {
		t.Errorf("Expected 0 for / 1 against, got %d / %d", resp.VotesFor, resp.VotesAgainst)
	}

	// Still one row for the pair
	if n := countVotes(t, db, uploadID); n != 1 {
		t.Errorf("Expected exactly one vote row, got %d", n)
	}
	var voteFor bool
	err := db.QueryRow(`
		SELECT vote_for FROM vote WHERE upload_id = $1 AND voter_address = $2
	`, uploadID, testutil.VoterA).Scan(&voteFor)
	if err != nil {
		t.Fatalf("Failed to query vote: %v", err)
	}
	if voteFor {
		t.Error("Expected stored vote to be against")
	}

	// Switching back restores the original counts
	testutil.AssertStatus(t, castVote(handler, uploadID, testutil.VoterA, true), http.StatusOK)
	votesFor, votesAgainst, _ := testutil.GetCounts(t, db, uploadID)
	if votesFor != 1 || votesAgainst != 0 {
		t.Errorf("Expected 1 for / 0 against, got %d / %d", votesFor, votesAgainst)
	}
}

func TestVoteSameDirectionIsNoop(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	handler := NewVotingHandler(db, testutil.GetTestConfig(), nil)
	uploadID := testutil.CreatePendingUpload(t, db, testutil.OwnerWallet, time.Now().Add(time.Hour), 0, 0)

	testutil.AssertStatus(t, castVote(handler, uploadID, testutil.VoterA, true), http.StatusOK)

	w := castVote(handler, uploadID, testutil.VoterA, true)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.VoteResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Changed {
		t.Error("Expected changed = false when repeating a vote")
	}
	if resp.VotesFor != 1 || resp.VotesAgainst != 0 {
		t.Errorf("Expected 1 for / 0 against, got %d / %d", resp.VotesFor, resp.VotesAgainst)
	}
}

func TestCheckVote(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	handler := NewVotingHandler(db, testutil.GetTestConfig(), nil)
	uploadID := testutil.CreatePendingUpload(t, db, testutil.OwnerWallet, time.Now().Add(time.Hour), 0, 0)
	testutil.CreateTestVote(t, db, uploadID, testutil.VoterA, false)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		wantVoted      bool
	}{
		{"has voted", "?upload_id=" + uploadID + "&voter_address=" + testutil.VoterA, http.StatusOK, true},
		{"has not voted", "?upload_id=" + uploadID + "&voter_address=" + testutil.VoterB, http.StatusOK, false},
		{"missing upload id", "?voter_address=" + testutil.VoterA, http.StatusBadRequest, false},
		{"malformed voter", "?upload_id=" + uploadID + "&voter_address=bob", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/check-vote"+tt.query, nil)
			w := httptest.NewRecorder()

			handler.CheckVote(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var resp models.CheckVoteResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.HasVoted != tt.wantVoted {
				t.Errorf("Expected has_voted %v, got %v", tt.wantVoted, resp.HasVoted)
			}
			if tt.wantVoted && (resp.VoteFor == nil || *resp.VoteFor) {
				t.Error("Expected vote_for = false")
			}
		})
	}
}

// countVotes returns the number of vote rows for an upload
func countVotes(t *testing.T, db *sql.DB, uploadID string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM vote WHERE upload_id = $1`, uploadID).Scan(&n); err != nil {
		t.Fatalf("Failed to count votes: %v", err)
	}
	return n
}
