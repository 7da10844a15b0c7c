// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/bugdex/auth"
	"github.com/danielhkuo/bugdex/cliparse"
	"github.com/danielhkuo/bugdex/metrics"
	"github.com/danielhkuo/bugdex/middleware"
	"github.com/danielhkuo/bugdex/models"
)

type ResolveHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewResolveHandler(db *sql.DB, cfg cliparse.Config) *ResolveHandler {
	return &ResolveHandler{db: db, cfg: cfg}
}

type expiredUpload struct {
	id           string
	votesFor     int
	votesAgainst int
	threshold    int
}

// ResolveExpired finalizes every pending upload whose deadline is at or
// before now. Rows that fail to update stay pending for the next run.
func (h *ResolveHandler) ResolveExpired(ctx context.Context, now time.Time) (models.BatchResolveResponse, error) {
	resp := models.BatchResolveResponse{Results: []models.ResolutionResult{}}

	rows, err := h.db.QueryContext(ctx, `
		SELECT id, votes_for, votes_against, approval_threshold
		FROM upload
		WHERE voting_status = $1 AND voting_resolved = FALSE AND voting_deadline <= $2
		ORDER BY voting_deadline ASC
	`, models.StatusPendingVoting, now.UTC())
	if err != nil {
		return resp, fmt.Errorf("failed to query expired uploads: %w", err)
	}

	// Collect first: sqlite runs on a single connection
	var expired []expiredUpload
	for rows.Next() {
		var e expiredUpload
		if err := rows.Scan(&e.id, &e.votesFor, &e.votesAgainst, &e.threshold); err != nil {
			rows.Close()
			return resp, fmt.Errorf("failed to scan expired upload: %w", err)
		}
		expired = append(expired, e)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return resp, fmt.Errorf("failed to read expired uploads: %w", err)
	}

	for _, e := range expired {
		result, ok, err := h.finalize(ctx, e, now)
		if err != nil {
			resp.Failed++
			slog.Error("failed to resolve upload", "error", err, "upload_id", e.id)
			continue
		}
		if !ok {
			// resolved elsewhere, or a late vote moved the counters
			continue
		}
		resp.Resolved++
		resp.Results = append(resp.Results, result)
	}

	h.updatePendingGauge(ctx)

	if len(expired) > 0 {
		slog.Info("resolver run finished", "expired", len(expired), "resolved", resp.Resolved, "failed", resp.Failed)
	}

	return resp, nil
}

// finalize writes the outcome once. The guard on voting_resolved and the
// counters read makes a concurrent resolver or late vote a no-op here.
func (h *ResolveHandler) finalize(ctx context.Context, e expiredUpload, now time.Time) (models.ResolutionResult, bool, error) {
	res := ComputeResolution(e.votesFor, e.votesAgainst, e.threshold)

	result, err := h.db.ExecContext(ctx, `
		UPDATE upload
		SET voting_status = $1, voting_resolved = TRUE, voting_approved = $2,
			bug_rewards_earned = $3, resolved_at = $4
		WHERE id = $5 AND voting_resolved = FALSE AND votes_for = $6 AND votes_against = $7
	`, res.Status, res.Approved, res.Reward, now.UTC(), e.id, e.votesFor, e.votesAgainst)
	if err != nil {
		return models.ResolutionResult{}, false, err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return models.ResolutionResult{}, false, err
	}
	if n == 0 {
		return models.ResolutionResult{}, false, nil
	}

	metrics.SubmissionsResolved.WithLabelValues(res.Status).Inc()
	metrics.RewardsAwarded.Add(float64(res.Reward))

	slog.Info("upload resolved", "upload_id", e.id, "status", res.Status,
		"net_votes", res.NetVotes, "reward", res.Reward)

	return models.ResolutionResult{
		UploadID:         e.id,
		VotingStatus:     res.Status,
		VotesFor:         e.votesFor,
		VotesAgainst:     e.votesAgainst,
		NetVotes:         res.NetVotes,
		Approved:         res.Approved,
		BugRewardsEarned: res.Reward,
	}, true, nil
}

func (h *ResolveHandler) updatePendingGauge(ctx context.Context) {
	var pending int
	err := h.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM upload WHERE voting_status = $1
	`, models.StatusPendingVoting).Scan(&pending)
	if err != nil {
		slog.Warn("failed to count pending uploads", "error", err)
		return
	}
	metrics.PendingSubmissions.Set(float64(pending))
}

// BatchResolve handles GET /api/resolve-voting
// Protected by the cron bearer secret when one is configured
func (h *ResolveHandler) BatchResolve(w http.ResponseWriter, r *http.Request) {
	if err := auth.ValidateBearer(r.Header.Get("Authorization"), h.cfg.CronSecret); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid cron secret")
		return
	}

	resp, err := h.ResolveExpired(r.Context(), time.Now().UTC())
	if err != nil {
		slog.Error("batch resolve failed", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to resolve voting")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// ResolveOne handles POST /api/resolve-voting
func (h *ResolveHandler) ResolveOne(w http.ResponseWriter, r *http.Request) {
	var req models.ResolveRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.UploadID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "upload_id is required")
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

	if upload.VotingResolved {
		respondAlreadyResolved(w, upload)
		return
	}
	if upload.VotingStatus == models.StatusNotSubmitted || upload.VotingDeadline == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Upload was never submitted for voting")
		return
	}

	now := time.Now().UTC()
	if now.Before(*upload.VotingDeadline) {
		middleware.JSONResponse(w, http.StatusBadRequest, models.ErrorResponse{
			Error:    "Voting period has not ended",
			Message:  "Voting is still open until the deadline",
			Deadline: upload.VotingDeadline,
		})
		return
	}

	result, ok, err := h.finalize(r.Context(), expiredUpload{
		id:           upload.ID,
		votesFor:     upload.VotesFor,
		votesAgainst: upload.VotesAgainst,
		threshold:    upload.ApprovalThreshold,
	}, now)
	if err != nil {
		slog.Error("failed to resolve upload", "error", err, "upload_id", upload.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to resolve voting")
		return
	}

	if !ok {
		current, err := loadUpload(h.db, upload.ID)
		if err == nil && current.VotingResolved {
			respondAlreadyResolved(w, current)
			return
		}
		middleware.ErrorResponse(w, http.StatusConflict, "Vote counts changed during resolution, retry")
		return
	}

	h.updatePendingGauge(r.Context())

	middleware.JSONResponse(w, http.StatusOK, models.SingleResolveResponse{
		AlreadyResolved: false,
		Result:          &result,
		Message:         "Voting resolved",
	})
}

func respondAlreadyResolved(w http.ResponseWriter, u models.Upload) {
	approved := u.VotingApproved != nil && *u.VotingApproved
	middleware.JSONResponse(w, http.StatusOK, models.SingleResolveResponse{
		AlreadyResolved: true,
		Result: &models.ResolutionResult{
			UploadID:         u.ID,
			VotingStatus:     u.VotingStatus,
			VotesFor:         u.VotesFor,
			VotesAgainst:     u.VotesAgainst,
			NetVotes:         u.VotesFor - u.VotesAgainst,
			Approved:         approved,
			BugRewardsEarned: u.BugRewardsEarned,
		},
		Message: "Voting already resolved",
	})
}

// Run resolves expired uploads every interval until ctx is cancelled
func (h *ResolveHandler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("resolver started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("resolver stopped")
			return
		case <-ticker.C:
			if _, err := h.ResolveExpired(ctx, time.Now().UTC()); err != nil && ctx.Err() == nil {
				slog.Error("scheduled resolve failed", "error", err)
			}
		}
	}
}
