package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielhkuo/bugdex/cache"
	"github.com/danielhkuo/bugdex/chain"
	"github.com/danielhkuo/bugdex/cliparse"
	"github.com/danielhkuo/bugdex/db"
	"github.com/danielhkuo/bugdex/handlers"
	"github.com/danielhkuo/bugdex/ipfs"
	"github.com/danielhkuo/bugdex/middleware"
	"github.com/danielhkuo/bugdex/router"
)

func main() {
	var err error

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the database (sqlite or postgres)
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err, "type", cfg.DatabaseType)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := buildDeps(ctx, cfg)
	if deps.Cache != nil {
		defer deps.Cache.Close()
	}

	// In-process resolver; the cron endpoint keeps working either way
	if cfg.ResolveInterval > 0 {
		resolver := handlers.NewResolveHandler(dbConn, cfg)
		go resolver.Run(ctx, cfg.ResolveInterval)
		slog.Info("Resolver started", "interval", cfg.ResolveInterval)
	}

	// Create router
	mux := router.NewRouter(dbConn, cfg, deps)

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		// Wait for Ctrl-C signal
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}

// buildDeps connects the optional collaborators. Anything unconfigured or
// unreachable stays nil so its routes answer 503 instead of failing startup.
func buildDeps(ctx context.Context, cfg cliparse.Config) handlers.Deps {
	var deps handlers.Deps

	if cfg.ChainEnabled() {
		client, err := chain.Dial(cfg.RPCURL, cfg.StakingContract, cfg.TokenContract)
		if err != nil {
			slog.Error("chain client unavailable, stake verification disabled", "error", err)
		} else {
			deps.Stakes = client
			deps.Txs = client
			if cfg.TokenContract != "" {
				deps.Faucet = client
			}
			slog.Info("Chain client ready", "staking_contract", cfg.StakingContract)
		}
	} else {
		slog.Warn("RPC_URL or STAKING_CONTRACT_ADDRESS not set, submissions cannot be verified")
	}

	if cfg.IPFSAPIURL != "" {
		deps.Content = ipfs.NewClient(cfg.IPFSAPIURL, cfg.IPFSGatewayURL)
		slog.Info("IPFS client ready", "api", cfg.IPFSAPIURL)
	}

	if cfg.RedisURL != "" {
		c, err := cache.New(ctx, cfg.RedisURL, 15*time.Second)
		if err != nil {
			slog.Error("redis unavailable, caching disabled", "error", err)
		} else {
			deps.Cache = c
		}
	}

	return deps
}
