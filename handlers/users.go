// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/danielhkuo/bugdex/auth"
	"github.com/danielhkuo/bugdex/cliparse"
	"github.com/danielhkuo/bugdex/middleware"
	"github.com/danielhkuo/bugdex/models"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

const maxBioLength = 500

type UserHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewUserHandler(db *sql.DB, cfg cliparse.Config) *UserHandler {
	return &UserHandler{db: db, cfg: cfg}
}

// Register handles POST /api/users/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterUserRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	wallet, err := auth.NormalizeAddress(req.WalletAddress)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "valid wallet_address is required")
		return
	}
	if msg := validateProfile(&req.Username, &req.Email, nil); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	now := time.Now().UTC()
	user := models.User{
		WalletAddress: wallet,
		Username:      req.Username,
		Email:         nullString(strings.TrimSpace(req.Email)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err = h.db.Exec(`
		INSERT INTO app_user (wallet_address, username, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, user.WalletAddress, user.Username, user.Email, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusConflict, "Wallet or username already registered")
			return
		}
		slog.Error("failed to insert user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	slog.Info("user registered", "wallet", wallet, "username", user.Username)

	middleware.JSONResponse(w, http.StatusCreated, user)
}

// GetUser handles GET /api/users/{address}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	wallet, err := auth.NormalizeAddress(r.PathValue("address"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid wallet address")
		return
	}

	user, err := loadUser(h.db, wallet)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		slog.Error("failed to query user", "error", err, "wallet", wallet)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	profile := models.UserProfile{User: user}
	err = h.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM upload WHERE wallet_address = $1),
			(SELECT COUNT(*) FROM upload WHERE wallet_address = $1 AND voting_status = $2),
			(SELECT COALESCE(SUM(bug_rewards_earned), 0) FROM upload WHERE wallet_address = $1),
			(SELECT COUNT(*) FROM vote WHERE voter_address = $1)
	`, wallet, models.StatusApproved).Scan(
		&profile.TotalUploads, &profile.ApprovedUploads,
		&profile.BugRewardsEarned, &profile.VotesCast,
	)
	if err != nil {
		slog.Error("failed to query user activity", "error", err, "wallet", wallet)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, profile)
}

// UpdateUser handles PUT /api/users/{address}
// Only the wallet itself may edit its profile
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	wallet, err := auth.NormalizeAddress(r.PathValue("address"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid wallet address")
		return
	}

	caller, err := auth.NormalizeAddress(r.Header.Get("X-Wallet-Address"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "X-Wallet-Address header required")
		return
	}
	if caller != wallet {
		middleware.ErrorResponse(w, http.StatusForbidden, "Cannot edit another user's profile")
		return
	}

	var req models.UpdateUserRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := validateProfile(req.Username, req.Email, req.Bio); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	user, err := loadUser(h.db, wallet)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		slog.Error("failed to query user", "error", err, "wallet", wallet)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Email != nil {
		user.Email = nullString(strings.TrimSpace(*req.Email))
	}
	if req.Bio != nil {
		user.Bio = nullString(strings.TrimSpace(*req.Bio))
	}
	user.UpdatedAt = time.Now().UTC()

	_, err = h.db.Exec(`
		UPDATE app_user
		SET username = $1, email = $2, bio = $3, updated_at = $4
		WHERE wallet_address = $5
	`, user.Username, user.Email, user.Bio, user.UpdatedAt, wallet)
	if err != nil {
		if isUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusConflict, "Username already taken")
			return
		}
		slog.Error("failed to update user", "error", err, "wallet", wallet)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	slog.Info("user updated", "wallet", wallet)

	middleware.JSONResponse(w, http.StatusOK, user)
}

func loadUser(q querier, wallet string) (models.User, error) {
	var u models.User
	err := q.QueryRow(`
		SELECT wallet_address, username, email, bio, created_at, updated_at
		FROM app_user
		WHERE wallet_address = $1
	`, wallet).Scan(&u.WalletAddress, &u.Username, &u.Email, &u.Bio, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// validateProfile returns a user-facing message for the first invalid field.
// Nil fields are not being set and are skipped.
func validateProfile(username, email, bio *string) string {
	if username != nil && !usernamePattern.MatchString(*username) {
		return "username must be 3-30 letters, digits or underscores"
	}
	if email != nil {
		e := strings.TrimSpace(*email)
		if e != "" && (!strings.Contains(e, "@") || len(e) > 254) {
			return "invalid email"
		}
	}
	if bio != nil && utf8.RuneCountInString(*bio) > maxBioLength {
		return "bio must be at most 500 characters"
	}
	return ""
}
