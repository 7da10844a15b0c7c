// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/bugdex/auth"
	"github.com/danielhkuo/bugdex/cliparse"
	"github.com/danielhkuo/bugdex/middleware"
	"github.com/danielhkuo/bugdex/models"
)

type AdminHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewAdminHandler(db *sql.DB, cfg cliparse.Config) *AdminHandler {
	return &AdminHandler{db: db, cfg: cfg}
}

// GetStats handles GET /api/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if err := auth.ValidateAdminKey(r.Header.Get("X-Admin-Key"), h.cfg.AdminKey); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	var stats models.AdminStats

	rows, err := h.db.Query(`
		SELECT voting_status, COUNT(*), COALESCE(SUM(bug_rewards_earned), 0)
		FROM upload
		GROUP BY voting_status
	`)
	if err != nil {
		slog.Error("failed to query upload stats", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	for rows.Next() {
		var status string
		var count, rewards int
		if err := rows.Scan(&status, &count, &rewards); err != nil {
			rows.Close()
			slog.Error("failed to scan upload stats", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}

		stats.TotalUploads += count
		stats.TotalBugRewarded += rewards
		switch status {
		case models.StatusNotSubmitted:
			stats.NotSubmitted = count
		case models.StatusPendingVoting:
			stats.PendingVoting = count
		case models.StatusApproved:
			stats.Approved = count
		case models.StatusRejected:
			stats.Rejected = count
		}
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		slog.Error("failed to read upload stats", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	err = h.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM app_user),
			(SELECT COUNT(*) FROM vote),
			(SELECT COUNT(*) FROM donation)
	`).Scan(&stats.TotalUsers, &stats.TotalVotes, &stats.TotalDonations)
	if err != nil {
		slog.Error("failed to query totals", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, stats)
}
