// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/bugdex/cliparse"
	"github.com/danielhkuo/bugdex/handlers"
	"github.com/danielhkuo/bugdex/metrics"
	"github.com/danielhkuo/bugdex/middleware"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, deps handlers.Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	uploadHandler := handlers.NewUploadHandler(db, cfg)
	votingHandler := handlers.NewVotingHandler(db, cfg, deps.Stakes)
	resolveHandler := handlers.NewResolveHandler(db, cfg)
	configHandler := handlers.NewConfigHandler(db, cfg)
	adminHandler := handlers.NewAdminHandler(db, cfg)
	donationHandler := handlers.NewDonationHandler(db, cfg, deps.Txs)
	userHandler := handlers.NewUserHandler(db, cfg)
	ipfsHandler := handlers.NewIPFSHandler(deps.Content)
	faucetHandler := handlers.NewFaucetHandler(deps.Faucet, deps.Cache)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	// Discoveries
	mux.HandleFunc("POST /api/uploads", middleware.WithLogging(uploadHandler.CreateUpload))
	mux.HandleFunc("GET /api/uploads", middleware.WithLogging(uploadHandler.ListUploads))
	mux.HandleFunc("GET /api/uploads/pending", middleware.WithLogging(uploadHandler.ListPending))
	mux.HandleFunc("GET /api/uploads/{id}", middleware.WithLogging(uploadHandler.GetUpload))
	mux.HandleFunc("DELETE /api/uploads/{id}", middleware.WithLogging(uploadHandler.DeleteUpload))
	mux.HandleFunc("GET /api/uploads/{id}/nft-metadata", middleware.WithLogging(uploadHandler.GetNFTMetadata))

	// Staking gate and off-chain votes
	mux.HandleFunc("POST /api/submit-for-voting", middleware.WithLogging(votingHandler.SubmitForVoting))
	mux.HandleFunc("POST /api/vote-offchain", middleware.WithLogging(votingHandler.CastVote))
	mux.HandleFunc("GET /api/check-vote", middleware.WithLogging(votingHandler.CheckVote))

	// Resolution (GET is the scheduled batch, POST resolves one upload)
	mux.HandleFunc("GET /api/resolve-voting", middleware.WithLogging(resolveHandler.BatchResolve))
	mux.HandleFunc("POST /api/resolve-voting", middleware.WithLogging(resolveHandler.ResolveOne))

	// Admin
	mux.HandleFunc("GET /api/voting-config", middleware.WithLogging(configHandler.GetVotingConfig))
	mux.HandleFunc("PUT /api/voting-config", middleware.WithLogging(configHandler.UpdateVotingConfig))
	mux.HandleFunc("GET /api/admin/stats", middleware.WithLogging(adminHandler.GetStats))

	// Donations
	mux.HandleFunc("POST /api/donations", middleware.WithLogging(donationHandler.RecordDonation))
	mux.HandleFunc("GET /api/donations", middleware.WithLogging(donationHandler.ListDonations))

	// Users
	mux.HandleFunc("POST /api/users/register", middleware.WithLogging(userHandler.Register))
	mux.HandleFunc("GET /api/users/{address}", middleware.WithLogging(userHandler.GetUser))
	mux.HandleFunc("PUT /api/users/{address}", middleware.WithLogging(userHandler.UpdateUser))

	// IPFS and faucet
	mux.HandleFunc("POST /api/ipfs/upload", middleware.WithLogging(ipfsHandler.Upload))
	mux.HandleFunc("GET /api/faucet/{address}", middleware.WithLogging(faucetHandler.GetStatus))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("bugdex API v1"))
	})

	return mux
}
