// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package ipfs pins discovery images and metadata on an IPFS node.
package ipfs
