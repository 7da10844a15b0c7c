// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/danielhkuo/bugdex/cache"
	"github.com/danielhkuo/bugdex/chain"
	"github.com/danielhkuo/bugdex/models"
)

// StakeVerifier reads the on-chain stake recorded for a submission
type StakeVerifier interface {
	GetStake(ctx context.Context, submissionID string) (chain.Stake, error)
}

// TxVerifier checks whether a transaction was mined successfully
type TxVerifier interface {
	TxSucceeded(ctx context.Context, txHash string) (bool, error)
}

// FaucetReader reads faucet unlock and cooldown state
type FaucetReader interface {
	FaucetStatus(ctx context.Context, wallet common.Address) (chain.FaucetState, error)
}

// ContentStore pins content and builds gateway URLs
type ContentStore interface {
	Add(ctx context.Context, content []byte) (string, error)
	GatewayURL(cid string) string
}

// Deps are the optional external collaborators. A nil field disables the
// routes that need it (they answer 503).
type Deps struct {
	Stakes  StakeVerifier
	Txs     TxVerifier
	Faucet  FaucetReader
	Content ContentStore
	Cache   *cache.Cache
}

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

const uploadColumns = `
	id, wallet_address, image_cid, metadata_cid, species_info, common_name,
	scientific_name, confidence, location_name, latitude, longitude,
	voting_status, votes_for, votes_against, voting_deadline, voting_resolved,
	voting_approved, approval_threshold, bug_staked, bug_rewards_earned, stake_tx_hash,
	submitted_at, resolved_at, created_at`

func scanUpload(s scanner) (models.Upload, error) {
	var u models.Upload
	var metadataCID, speciesInfo, commonName, scientificName, locationName sql.NullString

	err := s.Scan(
		&u.ID, &u.WalletAddress, &u.ImageCID, &metadataCID, &speciesInfo, &commonName,
		&scientificName, &u.Confidence, &locationName, &u.Location.Latitude, &u.Location.Longitude,
		&u.VotingStatus, &u.VotesFor, &u.VotesAgainst, &u.VotingDeadline, &u.VotingResolved,
		&u.VotingApproved, &u.ApprovalThreshold, &u.BugStaked, &u.BugRewardsEarned, &u.StakeTxHash,
		&u.SubmittedAt, &u.ResolvedAt, &u.CreatedAt,
	)
	if err != nil {
		return models.Upload{}, err
	}

	u.MetadataCID = metadataCID.String
	u.CommonName = commonName.String
	u.ScientificName = scientificName.String
	u.Location.Name = locationName.String
	if speciesInfo.Valid && speciesInfo.String != "" {
		u.SpeciesInfo = []byte(speciesInfo.String)
	}
	return u, nil
}

func loadUpload(q querier, uploadID string) (models.Upload, error) {
	return scanUpload(q.QueryRow(`SELECT `+uploadColumns+` FROM upload WHERE id = $1`, uploadID))
}

func loadVotingConfig(q querier) (models.VotingConfig, error) {
	var c models.VotingConfig
	err := q.QueryRow(`
		SELECT duration_hours, enabled, approval_threshold, version, updated_at, updated_by
		FROM voting_config
		WHERE id = 1
	`).Scan(&c.DurationHours, &c.Enabled, &c.ApprovalThreshold, &c.Version, &c.UpdatedAt, &c.UpdatedBy)
	return c, err
}

// isUniqueViolation recognizes unique-constraint failures from both drivers
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
	}
	// without extended result codes sqlite only reports SQLITE_CONSTRAINT
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
