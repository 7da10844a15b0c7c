// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrInvalidAddress  = errors.New("invalid wallet address")
	ErrInvalidBearer   = errors.New("invalid bearer token")
)

// NewID returns a random UUID string for database records
func NewID() string {
	return uuid.NewString()
}

// NormalizeAddress validates a hex wallet address and returns it lowercased,
// which is the form stored and compared in the database
func NormalizeAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return "", ErrInvalidAddress
	}
	return strings.ToLower(common.HexToAddress(addr).Hex()), nil
}

// SameAddress compares two wallet addresses ignoring case
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ValidateAdminKey compares the provided key to the configured one in constant time
func ValidateAdminKey(provided, expected string) error {
	if expected == "" || !hmac.Equal([]byte(provided), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}

// ValidateBearer checks an "Authorization: Bearer <secret>" header value.
// An empty secret disables the check.
func ValidateBearer(header, secret string) error {
	if secret == "" {
		return nil
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || !hmac.Equal([]byte(token), []byte(secret)) {
		return ErrInvalidBearer
	}
	return nil
}

// HashIP creates a one-way hash of an IP address for privacy
// Includes salt to prevent rainbow table attacks
func HashIP(ip, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	sum := h.Sum(nil)
	// First 16 hex chars are enough for deduplication
	return hex.EncodeToString(sum[:8])
}
