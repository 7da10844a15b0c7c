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

type UploadHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewUploadHandler(db *sql.DB, cfg cliparse.Config) *UploadHandler {
	return &UploadHandler{db: db, cfg: cfg}
}

// CreateUpload handles POST /api/uploads
func (h *UploadHandler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUploadRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	wallet, err := auth.NormalizeAddress(req.WalletAddress)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "valid wallet_address is required")
		return
	}
	if req.ImageCID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "image_cid is required")
		return
	}
	if lat := req.Location.Latitude; lat != nil && (*lat < -90 || *lat > 90) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "latitude must be between -90 and 90")
		return
	}
	if lng := req.Location.Longitude; lng != nil && (*lng < -180 || *lng > 180) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "longitude must be between -180 and 180")
		return
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "confidence must be between 0 and 1")
		return
	}

	var speciesInfo *string
	if len(req.SpeciesInfo) > 0 && string(req.SpeciesInfo) != "null" {
		s := string(req.SpeciesInfo)
		speciesInfo = &s
	}

	uploadID := auth.NewID()
	_, err = h.db.Exec(`
		INSERT INTO upload (id, wallet_address, image_cid, metadata_cid, species_info,
			common_name, scientific_name, confidence, location_name, latitude, longitude,
			voting_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, uploadID, wallet, req.ImageCID, nullString(req.MetadataCID), speciesInfo,
		nullString(req.CommonName), nullString(req.ScientificName), req.Confidence,
		nullString(req.Location.Name), req.Location.Latitude, req.Location.Longitude,
		models.StatusNotSubmitted, time.Now().UTC())

	if err != nil {
		slog.Error("failed to insert upload", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save discovery")
		return
	}

	slog.Info("upload created", "upload_id", uploadID, "wallet", wallet)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateUploadResponse{
		UploadID: uploadID,
	})
}

// ListUploads handles GET /api/uploads?wallet=0x...&status=...
func (h *UploadHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	wallet, err := auth.NormalizeAddress(r.URL.Query().Get("wallet"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "valid wallet query parameter is required")
		return
	}

	query := `SELECT ` + uploadColumns + ` FROM upload WHERE wallet_address = $1`
	args := []any{wallet}
	if status := r.URL.Query().Get("status"); status != "" {
		if !isValidStatus(status) {
			middleware.ErrorResponse(w, http.StatusBadRequest, "unknown status filter")
			return
		}
		query += ` AND voting_status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	uploads, err := h.queryUploads(query, args...)
	if err != nil {
		slog.Error("failed to list uploads", "error", err, "wallet", wallet)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, uploads)
}

// ListPending handles GET /api/uploads/pending?exclude=0x...
// Returns submissions still open for voting, soonest deadline first
func (h *UploadHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	query := `SELECT ` + uploadColumns + ` FROM upload
		WHERE voting_status = $1 AND voting_resolved = FALSE AND voting_deadline > $2`
	args := []any{models.StatusPendingVoting, time.Now().UTC()}

	if exclude := r.URL.Query().Get("exclude"); exclude != "" {
		wallet, err := auth.NormalizeAddress(exclude)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "invalid exclude address")
			return
		}
		query += ` AND wallet_address <> $3`
		args = append(args, wallet)
	}
	query += ` ORDER BY voting_deadline ASC`

	uploads, err := h.queryUploads(query, args...)
	if err != nil {
		slog.Error("failed to list pending uploads", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, uploads)
}

// GetUpload handles GET /api/uploads/{id}
func (h *UploadHandler) GetUpload(w http.ResponseWriter, r *http.Request) {
	uploadID := r.PathValue("id")
	if uploadID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "upload id is required")
		return
	}

	upload, err := loadUpload(h.db, uploadID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Upload not found")
		return
	}
	if err != nil {
		slog.Error("failed to query upload", "error", err, "upload_id", uploadID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, upload)
}

// DeleteUpload handles DELETE /api/uploads/{id}
// Only the owner may delete, and only before the upload enters voting
func (h *UploadHandler) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	uploadID := r.PathValue("id")
	if uploadID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "upload id is required")
		return
	}

	wallet, err := auth.NormalizeAddress(r.Header.Get("X-Wallet-Address"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "X-Wallet-Address header required")
		return
	}

	upload, err := loadUpload(h.db, uploadID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Upload not found")
		return
	}
	if err != nil {
		slog.Error("failed to query upload", "error", err, "upload_id", uploadID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if !auth.SameAddress(upload.WalletAddress, wallet) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Only the owner can delete this upload")
		return
	}

	result, err := h.db.Exec(`
		DELETE FROM upload WHERE id = $1 AND voting_status = $2
	`, uploadID, models.StatusNotSubmitted)
	if err != nil {
		slog.Error("failed to delete upload", "error", err, "upload_id", uploadID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete upload")
		return
	}

	if n, _ := result.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Upload has already been submitted for voting")
		return
	}

	slog.Info("upload deleted", "upload_id", uploadID)
	w.WriteHeader(http.StatusNoContent)
}

// GetNFTMetadata handles GET /api/uploads/{id}/nft-metadata
// Only approved discoveries can be minted
func (h *UploadHandler) GetNFTMetadata(w http.ResponseWriter, r *http.Request) {
	uploadID := r.PathValue("id")

	upload, err := loadUpload(h.db, uploadID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Upload not found")
		return
	}
	if err != nil {
		slog.Error("failed to query upload", "error", err, "upload_id", uploadID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if upload.VotingStatus != models.StatusApproved {
		middleware.ErrorResponse(w, http.StatusConflict, "Only approved discoveries can be minted")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, BuildNFTMetadata(upload))
}

func (h *UploadHandler) queryUploads(query string, args ...any) ([]models.Upload, error) {
	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	uploads := []models.Upload{}
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}

func isValidStatus(status string) bool {
	switch status {
	case models.StatusNotSubmitted, models.StatusPendingVoting, models.StatusApproved, models.StatusRejected:
		return true
	}
	return false
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
