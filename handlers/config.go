// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/bugdex/auth"
	"github.com/danielhkuo/bugdex/cliparse"
	"github.com/danielhkuo/bugdex/middleware"
	"github.com/danielhkuo/bugdex/models"
)

const (
	minDurationHours = 1
	maxDurationHours = 720
)

type ConfigHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewConfigHandler(db *sql.DB, cfg cliparse.Config) *ConfigHandler {
	return &ConfigHandler{db: db, cfg: cfg}
}

// GetVotingConfig handles GET /api/voting-config
func (h *ConfigHandler) GetVotingConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := loadVotingConfig(h.db)
	if err != nil {
		slog.Error("failed to load voting config", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, cfg)
}

// UpdateVotingConfig handles PUT /api/voting-config
// The request must carry the version it read; a stale version is rejected
func (h *ConfigHandler) UpdateVotingConfig(w http.ResponseWriter, r *http.Request) {
	if err := auth.ValidateAdminKey(r.Header.Get("X-Admin-Key"), h.cfg.AdminKey); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	var req models.UpdateVotingConfigRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Version < 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "version is required")
		return
	}
	if req.DurationHours == nil && req.Enabled == nil && req.ApprovalThreshold == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "no fields to update")
		return
	}
	if d := req.DurationHours; d != nil && (*d < minDurationHours || *d > maxDurationHours) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "duration_hours must be between 1 and 720")
		return
	}
	// A negative threshold would approve submissions voted down
	if th := req.ApprovalThreshold; th != nil && *th < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "approval_threshold must not be negative")
		return
	}

	current, err := loadVotingConfig(h.db)
	if err != nil {
		slog.Error("failed to load voting config", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if current.Version != req.Version {
		middleware.ErrorResponse(w, http.StatusConflict, "Voting config was modified, reload and retry")
		return
	}

	next := current
	if req.DurationHours != nil {
		next.DurationHours = *req.DurationHours
	}
	if req.Enabled != nil {
		next.Enabled = *req.Enabled
	}
	if req.ApprovalThreshold != nil {
		next.ApprovalThreshold = *req.ApprovalThreshold
	}
	next.Version = current.Version + 1
	next.UpdatedAt = time.Now().UTC()
	next.UpdatedBy = nullString(req.UpdatedBy)

	result, err := h.db.Exec(`
		UPDATE voting_config
		SET duration_hours = $1, enabled = $2, approval_threshold = $3,
			version = $4, updated_at = $5, updated_by = $6
		WHERE id = 1 AND version = $7
	`, next.DurationHours, next.Enabled, next.ApprovalThreshold,
		next.Version, next.UpdatedAt, next.UpdatedBy, req.Version)
	if err != nil {
		slog.Error("failed to update voting config", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update voting config")
		return
	}

	if n, _ := result.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Voting config was modified, reload and retry")
		return
	}

	slog.Info("voting config updated", "version", next.Version,
		"duration_hours", next.DurationHours, "enabled", next.Enabled,
		"approval_threshold", next.ApprovalThreshold)

	middleware.JSONResponse(w, http.StatusOK, next)
}
