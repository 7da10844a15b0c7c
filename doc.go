// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the BugDex API server.

BugDex lets people photograph insects, stake BUG tokens on a discovery, and
have the community vote on it off-chain. When the voting window ends the
resolver finalizes each submission exactly once and credits a reward of
5 BUG per vote in favor.

# Starting the Server

	DATABASE_URL=file:bugdex.db ADMIN_API_KEY=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -admin-key ...

# Configuration

Required settings:

  - DATABASE_URL (-d): sqlite file or PostgreSQL connection string
  - ADMIN_API_KEY (-admin-key): secret for the admin endpoints

Optional settings:

  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - CRON_SECRET: bearer token for the batch resolver
  - RPC_URL, STAKING_CONTRACT_ADDRESS, BUG_TOKEN_ADDRESS: chain access
  - IPFS_API_URL, IPFS_GATEWAY_URL: pinning uploads
  - REDIS_URL: response cache for faucet lookups
  - RESOLVE_INTERVAL: run the resolver in-process (e.g. 5m)

Without chain access the server still starts, but submit-for-voting
answers 503.

# Architecture

  - handlers: HTTP request handlers (uploads, voting, resolution, admin)
  - router: route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: request/response types
  - chain: read-only contract calls (stakes, faucet, receipts)
  - ipfs: content pinning
  - cache: Redis JSON cache
  - metrics: Prometheus collectors
  - auth: wallet addresses, admin and cron secrets
  - db: connection and schema
  - cliparse: configuration parsing
*/
package main
