// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/bugdex/auth"
	"github.com/danielhkuo/bugdex/chain"
	"github.com/danielhkuo/bugdex/cliparse"
	"github.com/danielhkuo/bugdex/middleware"
	"github.com/danielhkuo/bugdex/models"
)

const (
	defaultDonationLimit = 50
	maxDonationLimit     = 200
)

type DonationHandler struct {
	db  *sql.DB
	cfg cliparse.Config
	txs TxVerifier
}

func NewDonationHandler(db *sql.DB, cfg cliparse.Config, txs TxVerifier) *DonationHandler {
	return &DonationHandler{db: db, cfg: cfg, txs: txs}
}

// RecordDonation handles POST /api/donations
func (h *DonationHandler) RecordDonation(w http.ResponseWriter, r *http.Request) {
	var req models.RecordDonationRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	donor, err := auth.NormalizeAddress(req.DonorAddress)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "valid donor_address is required")
		return
	}
	if amt, ok := new(big.Rat).SetString(req.Amount); !ok || amt.Sign() <= 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "amount must be a positive decimal")
		return
	}
	currency := strings.ToUpper(req.Currency)
	if currency != models.CurrencyETH && currency != models.CurrencyPYUSD {
		middleware.ErrorResponse(w, http.StatusBadRequest, "currency must be ETH or PYUSD")
		return
	}
	if !chain.ValidTxHash(req.TxHash) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "tx_hash must be a 0x-prefixed 32-byte hash")
		return
	}
	txHash := strings.ToLower(req.TxHash)

	verified := false
	if h.txs != nil {
		ok, err := h.txs.TxSucceeded(r.Context(), txHash)
		switch {
		case errors.Is(err, chain.ErrTxNotFound):
			middleware.ErrorResponse(w, http.StatusBadRequest, "Transaction not found on chain")
			return
		case err != nil:
			// Keep the record; it can be verified later
			slog.Warn("failed to verify donation receipt", "error", err, "tx_hash", txHash)
		default:
			verified = ok
		}
	}

	donation := models.Donation{
		ID:           auth.NewID(),
		DonorAddress: donor,
		Amount:       req.Amount,
		Currency:     currency,
		TxHash:       txHash,
		Verified:     verified,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = h.db.Exec(`
		INSERT INTO donation (id, donor_address, amount, currency, tx_hash, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, donation.ID, donation.DonorAddress, donation.Amount, donation.Currency,
		donation.TxHash, donation.Verified, donation.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusConflict, "Donation already recorded")
			return
		}
		slog.Error("failed to insert donation", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record donation")
		return
	}

	slog.Info("donation recorded", "donation_id", donation.ID, "currency", currency, "verified", verified)

	middleware.JSONResponse(w, http.StatusCreated, donation)
}

// ListDonations handles GET /api/donations?donor=0x...&limit=50
func (h *DonationHandler) ListDonations(w http.ResponseWriter, r *http.Request) {
	limit := defaultDonationLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxDonationLimit)
	}

	where := ""
	args := []any{}
	if s := r.URL.Query().Get("donor"); s != "" {
		donor, err := auth.NormalizeAddress(s)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "invalid donor address")
			return
		}
		where = ` WHERE donor_address = $1`
		args = append(args, donor)
	}

	var list models.DonationList
	if err := h.db.QueryRow(`SELECT COUNT(*) FROM donation`+where, args...).Scan(&list.Total); err != nil {
		slog.Error("failed to count donations", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	rows, err := h.db.Query(`
		SELECT id, donor_address, amount, currency, tx_hash, verified, created_at
		FROM donation`+where+`
		ORDER BY created_at DESC
		LIMIT `+strconv.Itoa(limit), args...)
	if err != nil {
		slog.Error("failed to query donations", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	list.Donations = []models.Donation{}
	for rows.Next() {
		var d models.Donation
		if err := rows.Scan(&d.ID, &d.DonorAddress, &d.Amount, &d.Currency, &d.TxHash, &d.Verified, &d.CreatedAt); err != nil {
			slog.Error("failed to scan donation", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		list.Donations = append(list.Donations, d)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read donations", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, list)
}
