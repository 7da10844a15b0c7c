// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cache is a small Redis-backed JSON cache for slow display reads,
such as faucet status pulled from the chain.

When REDIS_URL is unset the server passes a nil *Cache around; every method
treats nil as an always-missing cache so callers need no special casing.
*/
package cache
