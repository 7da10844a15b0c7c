// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/danielhkuo/bugdex/auth"
	"github.com/danielhkuo/bugdex/cache"
	"github.com/danielhkuo/bugdex/middleware"
	"github.com/danielhkuo/bugdex/models"
)

type FaucetHandler struct {
	faucet FaucetReader
	cache  *cache.Cache
	now    func() time.Time
}

func NewFaucetHandler(faucet FaucetReader, c *cache.Cache) *FaucetHandler {
	return &FaucetHandler{faucet: faucet, cache: c, now: time.Now}
}

// GetStatus handles GET /api/faucet/{address}
func (h *FaucetHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if h.faucet == nil {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Token contract is not configured")
		return
	}

	wallet, err := auth.NormalizeAddress(r.PathValue("address"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid wallet address")
		return
	}

	key := cache.Key("faucet", wallet)
	var status models.FaucetStatus
	hit, err := h.cache.GetJSON(r.Context(), key, &status)
	if err != nil {
		slog.Warn("faucet cache read failed", "error", err)
	}
	if hit {
		middleware.JSONResponse(w, http.StatusOK, status)
		return
	}

	state, err := h.faucet.FaucetStatus(r.Context(), common.HexToAddress(wallet))
	if err != nil {
		slog.Error("failed to read faucet state", "error", err, "wallet", wallet)
		middleware.ErrorResponse(w, http.StatusBadGateway, "Failed to read faucet state")
		return
	}

	status = models.FaucetStatus{
		Address:       wallet,
		Unlocked:      state.Unlocked,
		CooldownHours: state.Cooldown.Hours(),
	}

	now := h.now().UTC()
	if !state.LastClaim.IsZero() {
		last := state.LastClaim
		next := last.Add(state.Cooldown)
		status.LastClaimAt = &last
		status.NextClaimAt = &next
		status.CanClaim = state.Unlocked && !now.Before(next)
	} else {
		status.CanClaim = state.Unlocked
	}

	if err := h.cache.SetJSON(r.Context(), key, status); err != nil {
		slog.Warn("faucet cache write failed", "error", err)
	}

	middleware.JSONResponse(w, http.StatusOK, status)
}
