// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the BugDex API.

# Handler Types

  - UploadHandler: discoveries and NFT metadata
  - VotingHandler: staking gate and off-chain votes
  - ResolveHandler: deadline resolution (batch, single, ticker)
  - ConfigHandler: versioned voting configuration
  - AdminHandler: aggregate statistics
  - DonationHandler, UserHandler, IPFSHandler, FaucetHandler

Handlers that only need storage take *sql.DB and Config. Handlers that talk
to the chain or IPFS take a small interface (StakeVerifier, TxVerifier,
FaucetReader, ContentStore) so tests can substitute fakes.

# Submission Lifecycle

	not_submitted → pending_voting → approved | rejected

SubmitForVoting moves an upload to pending_voting only after the stake
recorded on chain for that upload matches the owner and is at least
10 BUG. The approval threshold in force at that moment is stored with the
upload.

# Vote Counters

Every vote change and its counter update happen in one transaction, and
counter updates only apply while the upload is pending, unresolved and
before its deadline. A switch is a compare-and-swap on the stored
direction, so concurrent flips from the same wallet cannot double count.

# Resolution

Resolution is idempotent. The final UPDATE matches on voting_resolved =
FALSE and the counters that were read, so overlapping resolver runs and
late votes cannot finalize an upload twice or with stale totals.

	reward = 5 × votes_for   when votes_for - votes_against >= threshold
*/
package handlers
