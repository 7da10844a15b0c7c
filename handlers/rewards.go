// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"

	"github.com/danielhkuo/bugdex/models"
)

// Resolution is the outcome of a finished voting period
type Resolution struct {
	NetVotes int
	Approved bool
	Reward   int
	Status   string
}

// ComputeResolution applies the approval policy: a submission is approved
// when net votes (for minus against) reach the threshold captured at
// submission time. With the default threshold of 0 a submission nobody
// voted on is approved with a zero reward.
func ComputeResolution(votesFor, votesAgainst, threshold int) Resolution {
	net := votesFor - votesAgainst
	res := Resolution{
		NetVotes: net,
		Approved: net >= threshold,
		Status:   models.StatusRejected,
	}
	if res.Approved {
		res.Status = models.StatusApproved
		res.Reward = votesFor * models.RewardPerVote
	}
	return res
}

// RarityTier maps net votes at mint time to the NFT rarity
func RarityTier(netVotes int) string {
	switch {
	case netVotes >= 10:
		return models.RarityLegendary
	case netVotes >= 5:
		return models.RarityEpic
	case netVotes >= 2:
		return models.RarityRare
	default:
		return models.RarityCommon
	}
}

// BuildNFTMetadata renders ERC-721 metadata for an approved discovery
func BuildNFTMetadata(u models.Upload) models.NFTMetadata {
	net := u.VotesFor - u.VotesAgainst

	name := u.CommonName
	if name == "" {
		name = "Unknown Bug"
	}

	attrs := []models.NFTAttribute{
		{TraitType: "Rarity", Value: RarityTier(net)},
		{TraitType: "Net Votes", Value: net},
		{TraitType: "Votes For", Value: u.VotesFor},
		{TraitType: "Votes Against", Value: u.VotesAgainst},
	}
	if u.ScientificName != "" {
		attrs = append(attrs, models.NFTAttribute{TraitType: "Scientific Name", Value: u.ScientificName})
	}
	if u.Location.Name != "" {
		attrs = append(attrs, models.NFTAttribute{TraitType: "Location", Value: u.Location.Name})
	}
	if u.Confidence > 0 {
		attrs = append(attrs, models.NFTAttribute{TraitType: "AI Confidence", Value: u.Confidence})
	}

	return models.NFTMetadata{
		Name:        fmt.Sprintf("BugDex #%s: %s", shortID(u.ID), name),
		Description: fmt.Sprintf("A %s discovery verified by the BugDex community.", name),
		Image:       "ipfs://" + u.ImageCID,
		Attributes:  attrs,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
