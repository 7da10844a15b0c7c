// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the BugDex API.

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, deps)

deps carries the optional chain, IPFS and cache clients. Routes whose
dependency is nil stay registered and answer 503.

# Endpoints

	GET    /health
	GET    /metrics

	POST   /api/uploads
	GET    /api/uploads?wallet=&status=
	GET    /api/uploads/pending?exclude=
	GET    /api/uploads/{id}
	DELETE /api/uploads/{id}               (X-Wallet-Address, not yet submitted)
	GET    /api/uploads/{id}/nft-metadata

	POST   /api/submit-for-voting          (verifies the on-chain stake)
	POST   /api/vote-offchain
	GET    /api/check-vote?upload_id=&voter_address=

	GET    /api/resolve-voting             (batch, Authorization: Bearer CRON_SECRET)
	POST   /api/resolve-voting             (single upload)

	GET    /api/voting-config
	PUT    /api/voting-config              (X-Admin-Key)
	GET    /api/admin/stats                (X-Admin-Key)

	POST   /api/donations
	GET    /api/donations

	POST   /api/users/register
	GET    /api/users/{address}
	PUT    /api/users/{address}            (X-Wallet-Address)

	POST   /api/ipfs/upload
	GET    /api/faucet/{address}
*/
package router
