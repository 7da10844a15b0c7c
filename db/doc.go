// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates the schema.

Open accepts "postgres" (lib/pq) or "sqlite" (modernc.org/sqlite). The SQL is
written to run unchanged on both: $N placeholders, ON CONFLICT, CURRENT_TIMESTAMP.

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

CreateSchema is safe to call multiple times and seeds the voting_config
singleton (24h window, enabled, threshold 0, version 1) only when absent.

# Tables

	upload 1──* vote
	voting_config (id = 1)
	app_user
	donation

Votes are unique per (upload_id, voter_address) and cascade with their upload.
*/
package db
