// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

  - CreateUploadRequest: wallet, CIDs, species and location
  - SubmitForVotingRequest: upload_id, wallet_address, stake tx hash
  - VoteRequest: upload_id, voter_address, vote_for
  - ResolveRequest, UpdateVotingConfigRequest
  - RegisterUserRequest, UpdateUserRequest, RecordDonationRequest

# Response Types

  - SubmitForVotingResponse: voting_deadline
  - VoteResponse: counters after the vote and whether it changed
  - BatchResolveResponse, SingleResolveResponse: resolution results
  - AdminStats, DonationList, FaucetStatus, IPFSUploadResponse
  - NFTMetadata: ERC-721 metadata JSON
  - ErrorResponse: error, message, and an optional deadline

# Domain Types

  - Upload: a discovery and its voting state
  - Vote: one wallet's vote on one upload
  - VotingConfig: singleton, versioned for optimistic updates
  - User, UserProfile, Donation

# Constants

Voting status:

	StatusNotSubmitted  = "not_submitted"
	StatusPendingVoting = "pending_voting"
	StatusApproved      = "approved"
	StatusRejected      = "rejected"

Token economics, in whole BUG:

	StakeAmount   = 10
	RewardPerVote = 5

Rarity tiers: common, rare, epic, legendary.
*/
package models
