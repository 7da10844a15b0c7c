// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides identity helpers for wallets, admins and the cron caller.

# Wallet Addresses

Addresses are validated with go-ethereum and stored lowercase:

	addr, err := auth.NormalizeAddress(req.WalletAddress)

Wallet ownership itself is proven by the wallet-auth provider in front of
this API; handlers trust the address they are given.

# Admin Key

Admin routes compare the X-Admin-Key header to ADMIN_API_KEY in constant time:

	err := auth.ValidateAdminKey(r.Header.Get("X-Admin-Key"), cfg.AdminKey)

# Cron Secret

The batch resolver accepts "Authorization: Bearer <CRON_SECRET>" when a
secret is configured:

	err := auth.ValidateBearer(r.Header.Get("Authorization"), cfg.CronSecret)

# IP Hashing

Vote rows keep a salted hash of the client IP, never the IP itself:

	hash := auth.HashIP(ipAddress, salt)
*/
package auth
