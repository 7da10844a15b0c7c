// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package chain performs the read-only contract calls the API needs.

The staking contract's submissionStakes(string) mapping gates entry into
voting; the BUG token's hasUnlocked, lastClaimTime and FAUCET_COOLDOWN views
feed the faucet status display; transaction receipts confirm donations.
All writes (faucet claims, unlocks, stakes, NFT claims) are sent by the
user's wallet and never pass through this package.

	client, err := chain.Dial(cfg.RPCURL, cfg.StakingContract, cfg.TokenContract)
	stake, err := client.GetStake(ctx, uploadID)
	if err := chain.VerifyStake(stake, wallet, models.StakeAmount); err != nil {
		...
	}

Amounts are 18-decimal base units; TokenUnits converts whole tokens.
*/
package chain
