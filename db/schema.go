// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Open connects to the configured database and verifies the connection.
// dbType is "postgres" or "sqlite".
func Open(dbType, url string) (*sql.DB, error) {
	driver := "postgres"
	if dbType == "sqlite" {
		driver = "sqlite"
		url = sqliteDSN(url)
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dbType, err)
	}

	if dbType == "sqlite" {
		// SQLite allows a single writer
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dbType, err)
	}

	return conn, nil
}

// sqliteDSN adds the pragmas the schema relies on: foreign keys,
// a busy timeout and a lexically sortable time format.
func sqliteDSN(url string) string {
	params := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_time_format=sqlite",
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + strings.Join(params, "&")
}

// CreateSchema creates all tables needed for the application and seeds the
// voting config row. Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	_, err = db.Exec(seedVotingConfig)
	if err != nil {
		return fmt.Errorf("failed to seed voting config: %w", err)
	}

	return nil
}

const schema = `
-- Discoveries
CREATE TABLE IF NOT EXISTS upload (
    id TEXT PRIMARY KEY,
    wallet_address TEXT NOT NULL,
    image_cid TEXT NOT NULL,
    metadata_cid TEXT,
    species_info TEXT,
    common_name TEXT,
    scientific_name TEXT,
    confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
    location_name TEXT,
    latitude DOUBLE PRECISION,
    longitude DOUBLE PRECISION,
    voting_status TEXT NOT NULL DEFAULT 'not_submitted'
        CHECK (voting_status IN ('not_submitted', 'pending_voting', 'approved', 'rejected')),
    votes_for INTEGER NOT NULL DEFAULT 0 CHECK (votes_for >= 0),
    votes_against INTEGER NOT NULL DEFAULT 0 CHECK (votes_against >= 0),
    voting_deadline TIMESTAMP,
    voting_resolved BOOLEAN NOT NULL DEFAULT FALSE,
    voting_approved BOOLEAN,
    approval_threshold INTEGER NOT NULL DEFAULT 0,
    bug_staked INTEGER NOT NULL DEFAULT 0,
    bug_rewards_earned INTEGER NOT NULL DEFAULT 0,
    stake_tx_hash TEXT,
    submitted_at TIMESTAMP,
    resolved_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_upload_wallet ON upload(wallet_address);
CREATE INDEX IF NOT EXISTS idx_upload_voting ON upload(voting_status, voting_resolved, voting_deadline);

-- Off-chain votes
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    upload_id TEXT NOT NULL REFERENCES upload(id) ON DELETE CASCADE,
    voter_address TEXT NOT NULL,
    vote_for BOOLEAN NOT NULL,
    voted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    ip_hash TEXT,
    UNIQUE (upload_id, voter_address)
);

CREATE INDEX IF NOT EXISTS idx_vote_upload_id ON vote(upload_id);

-- Voting config (singleton)
CREATE TABLE IF NOT EXISTS voting_config (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    duration_hours INTEGER NOT NULL,
    enabled BOOLEAN NOT NULL,
    approval_threshold INTEGER NOT NULL DEFAULT 0,
    version INTEGER NOT NULL DEFAULT 1,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_by TEXT
);

-- Users
CREATE TABLE IF NOT EXISTS app_user (
    wallet_address TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT,
    bio TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Donations
CREATE TABLE IF NOT EXISTS donation (
    id TEXT PRIMARY KEY,
    donor_address TEXT NOT NULL,
    amount TEXT NOT NULL,
    currency TEXT NOT NULL CHECK (currency IN ('ETH', 'PYUSD')),
    tx_hash TEXT NOT NULL UNIQUE,
    verified BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_donation_donor ON donation(donor_address);
`

const seedVotingConfig = `
INSERT INTO voting_config (id, duration_hours, enabled, approval_threshold, version)
VALUES (1, 24, TRUE, 0, 1)
ON CONFLICT (id) DO NOTHING
`
