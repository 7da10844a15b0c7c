// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/bugdex/auth"
	"github.com/danielhkuo/bugdex/chain"
	"github.com/danielhkuo/bugdex/cliparse"
	"github.com/danielhkuo/bugdex/metrics"
	"github.com/danielhkuo/bugdex/middleware"
	"github.com/danielhkuo/bugdex/models"
)

type VotingHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	stakes StakeVerifier
}

func NewVotingHandler(db *sql.DB, cfg cliparse.Config, stakes StakeVerifier) *VotingHandler {
	return &VotingHandler{db: db, cfg: cfg, stakes: stakes}
}

// SubmitForVoting handles POST /api/submit-for-voting
// The on-chain stake must exist, belong to the caller and cover the minimum
// before the upload enters pending_voting
func (h *VotingHandler) SubmitForVoting(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitForVotingRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.UploadID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "upload_id is required")
		return
	}
	wallet, err := auth.NormalizeAddress(req.WalletAddress)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "valid wallet_address is required")
		return
	}
	if req.TxHash != "" && !chain.ValidTxHash(req.TxHash) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "tx_hash must be a 0x-prefixed 32-byte hash")
		return
	}

	upload, err := loadUpload(h.db, req.UploadID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Upload not found")
		return
	}
	if err != nil {
		slog.Error("failed to query upload", "error", err, "upload_id", req.UploadID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if !auth.SameAddress(upload.WalletAddress, wallet) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Only the owner can submit this upload")
		return
	}
	if upload.VotingStatus != models.StatusNotSubmitted {
		middleware.ErrorResponse(w, http.StatusConflict, "Upload has already been submitted for voting")
		return
	}

	cfg, err := loadVotingConfig(h.db)
	if err != nil {
		slog.Error("failed to load voting config", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !cfg.Enabled {
		middleware.ErrorResponse(w, http.StatusForbidden, "Voting is currently disabled")
		return
	}

	if h.stakes == nil {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Stake verification is not configured")
		return
	}

	stake, err := h.stakes.GetStake(r.Context(), upload.ID)
	if err != nil {
		if errors.Is(err, chain.ErrNoStake) {
			metrics.StakeVerifications.WithLabelValues("no_stake").Inc()
			middleware.ErrorResponse(w, http.StatusBadRequest, "No stake found for this upload")
			return
		}
		metrics.StakeVerifications.WithLabelValues("error").Inc()
		slog.Error("failed to read stake", "error", err, "upload_id", upload.ID)
		middleware.ErrorResponse(w, http.StatusBadGateway, "Failed to verify stake")
		return
	}

	switch err := chain.VerifyStake(stake, wallet, models.StakeAmount); {
	case errors.Is(err, chain.ErrStakeMismatch):
		metrics.StakeVerifications.WithLabelValues("mismatch").Inc()
		middleware.ErrorResponse(w, http.StatusForbidden, "Stake belongs to a different wallet")
		return
	case errors.Is(err, chain.ErrInsufficientStake):
		metrics.StakeVerifications.WithLabelValues("insufficient").Inc()
		middleware.ErrorResponse(w, http.StatusBadRequest, "Staked amount is below the 10 BUG minimum")
		return
	case err != nil:
		metrics.StakeVerifications.WithLabelValues("error").Inc()
		middleware.ErrorResponse(w, http.StatusBadGateway, "Failed to verify stake")
		return
	}
	metrics.StakeVerifications.WithLabelValues("ok").Inc()

	now := time.Now().UTC()
	deadline := now.Add(time.Duration(cfg.DurationHours) * time.Hour)

	// Deadline and threshold are fixed here; later config edits don't apply
	result, err := h.db.Exec(`
		UPDATE upload
		SET voting_status = $1, voting_deadline = $2, approval_threshold = $3,
			bug_staked = $4, stake_tx_hash = $5, submitted_at = $6
		WHERE id = $7 AND voting_status = $8
	`, models.StatusPendingVoting, deadline, cfg.ApprovalThreshold,
		models.StakeAmount, nullString(req.TxHash), now,
		upload.ID, models.StatusNotSubmitted)
	if err != nil {
		slog.Error("failed to submit upload for voting", "error", err, "upload_id", upload.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit for voting")
		return
	}

	if n, _ := result.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Upload has already been submitted for voting")
		return
	}

	slog.Info("upload submitted for voting", "upload_id", upload.ID, "deadline", deadline)

	middleware.JSONResponse(w, http.StatusOK, models.SubmitForVotingResponse{
		UploadID:       upload.ID,
		VotingStatus:   models.StatusPendingVoting,
		VotingDeadline: deadline,
		BugStaked:      models.StakeAmount,
	})
}

// CastVote handles POST /api/vote-offchain
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.UploadID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "upload_id is required")
		return
	}
	voter, err := auth.NormalizeAddress(req.VoterAddress)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "valid voter_address is required")
		return
	}
	if req.VoteFor == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "vote_for is required")
		return
	}
	voteFor := *req.VoteFor

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	upload, err := loadUpload(tx, req.UploadID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Upload not found")
		return
	}
	if err != nil {
		slog.Error("failed to query upload", "error", err, "upload_id", req.UploadID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if auth.SameAddress(upload.WalletAddress, voter) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Cannot vote on your own submission")
		return
	}
	if upload.VotingStatus != models.StatusPendingVoting || upload.VotingDeadline == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Upload is not open for voting")
		return
	}

	now := time.Now().UTC()
	if !now.Before(*upload.VotingDeadline) {
		votingClosed(w, *upload.VotingDeadline)
		return
	}

	var voteID string
	var previous bool
	err = tx.QueryRow(`
		SELECT id, vote_for FROM vote WHERE upload_id = $1 AND voter_address = $2
	`, upload.ID, voter).Scan(&voteID, &previous)

	isNew := err == sql.ErrNoRows
	if err != nil && !isNew {
		slog.Error("failed to query existing vote", "error", err, "upload_id", upload.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if !isNew && previous == voteFor {
		middleware.JSONResponse(w, http.StatusOK, models.VoteResponse{
			UploadID:     upload.ID,
			VotesFor:     upload.VotesFor,
			VotesAgainst: upload.VotesAgainst,
			Changed:      false,
			Message:      "Vote unchanged",
		})
		return
	}

	ipHash := auth.HashIP(middleware.GetClientIP(r), h.cfg.IPHashSalt)

	var counterSQL string
	if isNew {
		_, err = tx.Exec(`
			INSERT INTO vote (id, upload_id, voter_address, vote_for, voted_at, ip_hash)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, auth.NewID(), upload.ID, voter, voteFor, now, ipHash)
		if err != nil {
			if isUniqueViolation(err) {
				middleware.ErrorResponse(w, http.StatusConflict, "Vote is already being recorded, retry")
				return
			}
			slog.Error("failed to insert vote", "error", err, "upload_id", upload.ID)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
			return
		}

		counterSQL = `UPDATE upload SET votes_against = votes_against + 1`
		if voteFor {
			counterSQL = `UPDATE upload SET votes_for = votes_for + 1`
		}
	} else {
		// Only flips the row if it still holds the direction we read
		result, err := tx.Exec(`
			UPDATE vote SET vote_for = $1, voted_at = $2, ip_hash = $3
			WHERE id = $4 AND vote_for = $5
		`, voteFor, now, ipHash, voteID, previous)
		if err != nil {
			slog.Error("failed to switch vote", "error", err, "vote_id", voteID)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
			return
		}
		if n, _ := result.RowsAffected(); n == 0 {
			middleware.ErrorResponse(w, http.StatusConflict, "Vote changed concurrently, retry")
			return
		}

		counterSQL = `UPDATE upload SET votes_for = votes_for - 1, votes_against = votes_against + 1`
		if voteFor {
			counterSQL = `UPDATE upload SET votes_for = votes_for + 1, votes_against = votes_against - 1`
		}
	}

	result, err := tx.Exec(counterSQL+`
		WHERE id = $1 AND voting_status = $2 AND voting_resolved = FALSE AND voting_deadline > $3
	`, upload.ID, models.StatusPendingVoting, now)
	if err != nil {
		slog.Error("failed to update vote counters", "error", err, "upload_id", upload.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		votingClosed(w, *upload.VotingDeadline)
		return
	}

	var votesFor, votesAgainst int
	err = tx.QueryRow(`
		SELECT votes_for, votes_against FROM upload WHERE id = $1
	`, upload.ID).Scan(&votesFor, &votesAgainst)
	if err != nil {
		slog.Error("failed to read vote counters", "error", err, "upload_id", upload.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	kind, message := "new", "Vote recorded"
	if !isNew {
		kind, message = "switch", "Vote changed"
	}
	metrics.VotesCast.WithLabelValues(metrics.Direction(voteFor), kind).Inc()

	slog.Info("vote recorded", "upload_id", upload.ID, "vote_for", voteFor, "kind", kind)

	middleware.JSONResponse(w, http.StatusOK, models.VoteResponse{
		UploadID:     upload.ID,
		VotesFor:     votesFor,
		VotesAgainst: votesAgainst,
		Changed:      true,
		Message:      message,
	})
}

// CheckVote handles GET /api/check-vote?upload_id=...&voter_address=...
func (h *VotingHandler) CheckVote(w http.ResponseWriter, r *http.Request) {
	uploadID := r.URL.Query().Get("upload_id")
	if uploadID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "upload_id is required")
		return
	}
	voter, err := auth.NormalizeAddress(r.URL.Query().Get("voter_address"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "valid voter_address is required")
		return
	}

	var voteFor bool
	err = h.db.QueryRow(`
		SELECT vote_for FROM vote WHERE upload_id = $1 AND voter_address = $2
	`, uploadID, voter).Scan(&voteFor)

	if err == sql.ErrNoRows {
		middleware.JSONResponse(w, http.StatusOK, models.CheckVoteResponse{HasVoted: false})
		return
	}
	if err != nil {
		slog.Error("failed to query vote", "error", err, "upload_id", uploadID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.CheckVoteResponse{
		HasVoted: true,
		VoteFor:  &voteFor,
	})
}

func votingClosed(w http.ResponseWriter, deadline time.Time) {
	middleware.JSONResponse(w, http.StatusBadRequest, models.ErrorResponse{
		Error:    http.StatusText(http.StatusBadRequest),
		Message:  "Voting period has ended",
		Deadline: &deadline,
	})
}
