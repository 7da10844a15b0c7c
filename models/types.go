package models

import (
	"encoding/json"
	"time"
)

// Voting status constants
const (
	StatusNotSubmitted  = "not_submitted"
	StatusPendingVoting = "pending_voting"
	StatusApproved      = "approved"
	StatusRejected      = "rejected"
)

// Token economics (whole BUG tokens)
const (
	StakeAmount          = 10
	RewardPerVote        = 5
	DefaultDurationHours = 24
)

// Rarity tiers
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// Donation currencies
const (
	CurrencyETH   = "ETH"
	CurrencyPYUSD = "PYUSD"
)

// Request types

type Location struct {
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type CreateUploadRequest struct {
	WalletAddress  string          `json:"wallet_address"`
	ImageCID       string          `json:"image_cid"`
	MetadataCID    string          `json:"metadata_cid"`
	SpeciesInfo    json.RawMessage `json:"species_info,omitempty"`
	CommonName     string          `json:"common_name"`
	ScientificName string          `json:"scientific_name"`
	Confidence     float64         `json:"confidence"`
	Location       Location        `json:"location"`
}

type SubmitForVotingRequest struct {
	UploadID      string `json:"upload_id"`
	WalletAddress string `json:"wallet_address"`
	TxHash        string `json:"tx_hash,omitempty"`
}

type VoteRequest struct {
	UploadID     string `json:"upload_id"`
	VoterAddress string `json:"voter_address"`
	VoteFor      *bool  `json:"vote_for"`
}

type ResolveRequest struct {
	UploadID string `json:"upload_id"`
}

type UpdateVotingConfigRequest struct {
	DurationHours     *int   `json:"duration_hours,omitempty"`
	Enabled           *bool  `json:"enabled,omitempty"`
	ApprovalThreshold *int   `json:"approval_threshold,omitempty"`
	Version           int    `json:"version"`
	UpdatedBy         string `json:"updated_by"`
}

type RegisterUserRequest struct {
	WalletAddress string `json:"wallet_address"`
	Username      string `json:"username"`
	Email         string `json:"email"`
}

type UpdateUserRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Bio      *string `json:"bio,omitempty"`
}

type RecordDonationRequest struct {
	DonorAddress string `json:"donor_address"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	TxHash       string `json:"tx_hash"`
}

// Response types

type CreateUploadResponse struct {
	UploadID string `json:"upload_id"`
}

type SubmitForVotingResponse struct {
	UploadID       string    `json:"upload_id"`
	VotingStatus   string    `json:"voting_status"`
	VotingDeadline time.Time `json:"voting_deadline"`
	BugStaked      int       `json:"bug_staked"`
}

type VoteResponse struct {
	UploadID     string `json:"upload_id"`
	VotesFor     int    `json:"votes_for"`
	VotesAgainst int    `json:"votes_against"`
	Changed      bool   `json:"changed"`
	Message      string `json:"message"`
}

type CheckVoteResponse struct {
	HasVoted bool  `json:"has_voted"`
	VoteFor  *bool `json:"vote_for,omitempty"`
}

type ResolutionResult struct {
	UploadID         string `json:"upload_id"`
	VotingStatus     string `json:"voting_status"`
	VotesFor         int    `json:"votes_for"`
	VotesAgainst     int    `json:"votes_against"`
	NetVotes         int    `json:"net_votes"`
	Approved         bool   `json:"approved"`
	BugRewardsEarned int    `json:"bug_rewards_earned"`
}

type BatchResolveResponse struct {
	Resolved int                `json:"resolved"`
	Failed   int                `json:"failed"`
	Results  []ResolutionResult `json:"results"`
}

type SingleResolveResponse struct {
	AlreadyResolved bool              `json:"already_resolved"`
	Result          *ResolutionResult `json:"result,omitempty"`
	Message         string            `json:"message"`
}

type AdminStats struct {
	TotalUploads     int `json:"total_uploads"`
	NotSubmitted     int `json:"not_submitted"`
	PendingVoting    int `json:"pending_voting"`
	Approved         int `json:"approved"`
	Rejected         int `json:"rejected"`
	TotalUsers       int `json:"total_users"`
	TotalVotes       int `json:"total_votes"`
	TotalDonations   int `json:"total_donations"`
	TotalBugRewarded int `json:"total_bug_rewarded"`
}

type DonationList struct {
	Donations []Donation `json:"donations"`
	Total     int        `json:"total"`
}

type IPFSUploadResponse struct {
	CID string `json:"cid"`
	URL string `json:"url"`
}

type FaucetStatus struct {
	Address       string     `json:"address"`
	Unlocked      bool       `json:"unlocked"`
	LastClaimAt   *time.Time `json:"last_claim_at,omitempty"`
	NextClaimAt   *time.Time `json:"next_claim_at,omitempty"`
	CanClaim      bool       `json:"can_claim"`
	CooldownHours float64    `json:"cooldown_hours"`
}

type NFTAttribute struct {
	TraitType string      `json:"trait_type"`
	Value     interface{} `json:"value"`
}

type NFTMetadata struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Image       string         `json:"image"`
	Attributes  []NFTAttribute `json:"attributes"`
}

// Domain types

type Upload struct {
	ID                string          `json:"id"`
	WalletAddress     string          `json:"wallet_address"`
	ImageCID          string          `json:"image_cid"`
	MetadataCID       string          `json:"metadata_cid"`
	SpeciesInfo       json.RawMessage `json:"species_info,omitempty"`
	CommonName        string          `json:"common_name"`
	ScientificName    string          `json:"scientific_name"`
	Confidence        float64         `json:"confidence"`
	Location          Location        `json:"location"`
	VotingStatus      string          `json:"voting_status"`
	VotesFor          int             `json:"votes_for"`
	VotesAgainst      int             `json:"votes_against"`
	VotingDeadline    *time.Time      `json:"voting_deadline,omitempty"`
	VotingResolved    bool            `json:"voting_resolved"`
	VotingApproved    *bool           `json:"voting_approved,omitempty"`
	ApprovalThreshold int             `json:"approval_threshold"`
	BugStaked         int             `json:"bug_staked"`
	BugRewardsEarned  int             `json:"bug_rewards_earned"`
	StakeTxHash       *string         `json:"stake_tx_hash,omitempty"`
	SubmittedAt       *time.Time      `json:"submitted_at,omitempty"`
	ResolvedAt        *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

type Vote struct {
	ID           string    `json:"id"`
	UploadID     string    `json:"upload_id"`
	VoterAddress string    `json:"voter_address"`
	VoteFor      bool      `json:"vote_for"`
	VotedAt      time.Time `json:"voted_at"`
	IPHash       *string   `json:"-"`
}

type VotingConfig struct {
	DurationHours     int       `json:"duration_hours"`
	Enabled           bool      `json:"enabled"`
	ApprovalThreshold int       `json:"approval_threshold"`
	Version           int       `json:"version"`
	UpdatedAt         time.Time `json:"updated_at"`
	UpdatedBy         *string   `json:"updated_by,omitempty"`
}

type User struct {
	WalletAddress string    `json:"wallet_address"`
	Username      string    `json:"username"`
	Email         *string   `json:"email,omitempty"`
	Bio           *string   `json:"bio,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UserProfile is a user plus their discovery and voting activity
type UserProfile struct {
	User
	TotalUploads     int `json:"total_uploads"`
	ApprovedUploads  int `json:"approved_uploads"`
	BugRewardsEarned int `json:"bug_rewards_earned"`
	VotesCast        int `json:"votes_cast"`
}

type Donation struct {
	ID           string    `json:"id"`
	DonorAddress string    `json:"donor_address"`
	Amount       string    `json:"amount"`
	Currency     string    `json:"currency"`
	TxHash       string    `json:"tx_hash"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"created_at"`
}

// Error response

type ErrorResponse struct {
	Error    string     `json:"error"`
	Message  string     `json:"message,omitempty"`
	Deadline *time.Time `json:"deadline,omitempty"`
}
