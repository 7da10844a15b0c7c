// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags loads a .env file if present, then returns a Config:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags and Environment Variables

Flags fall back to environment variables:

	-p                 PORT                      (default 3318)
	-d                 DATABASE_URL              (required)
	-t                 DATABASE_TYPE             sqlite | postgres (default sqlite)
	-admin-key         ADMIN_API_KEY             (required)
	-cron-secret       CRON_SECRET
	-rpc               RPC_URL
	-staking-contract  STAKING_CONTRACT_ADDRESS
	-token-contract    BUG_TOKEN_ADDRESS
	-ipfs              IPFS_API_URL
	-redis             REDIS_URL
	-resolve-interval  RESOLVE_INTERVAL          (0 disables)

IP_HASH_SALT and IPFS_GATEWAY_URL are environment only. Without IP_HASH_SALT
a salt is derived from the admin key with HMAC-SHA256 and a warning is logged.

CLI flags take precedence over environment variables, and real environment
variables take precedence over the .env file.
*/
package cliparse
