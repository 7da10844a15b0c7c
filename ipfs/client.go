// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ipfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/sethvargo/go-retry"
)

var ErrEmptyContent = errors.New("empty content")

// Adder is the part of the IPFS shell used for uploads
type Adder interface {
	Add(r io.Reader, options ...shell.AddOpts) (string, error)
}

// Client adds and pins content on an IPFS node
type Client struct {
	sh         Adder
	gateway    string
	baseDelay  time.Duration
	maxRetries uint64
}

// NewClient creates a client for an IPFS API endpoint such as
// "localhost:5001" and a public gateway prefix used to build URLs
func NewClient(apiURL, gateway string) *Client {
	sh := shell.NewShell(apiURL)
	sh.SetTimeout(60 * time.Second)
	return newClient(sh, gateway)
}

func newClient(sh Adder, gateway string) *Client {
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}
	return &Client{
		sh:         sh,
		gateway:    gateway,
		baseDelay:  200 * time.Millisecond,
		maxRetries: 3,
	}
}

// Add uploads content as CIDv1, pins it, and returns the CID.
// Failed adds are retried with Fibonacci backoff.
func (c *Client) Add(ctx context.Context, content []byte) (string, error) {
	if len(content) == 0 {
		return "", ErrEmptyContent
	}

	backoff := retry.NewFibonacci(c.baseDelay)
	backoff = retry.WithMaxRetries(c.maxRetries, backoff)
	backoff = retry.WithJitter(c.baseDelay/2, backoff)

	var cid string
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		id, err := c.sh.Add(bytes.NewReader(content), shell.CidVersion(1), shell.Pin(true))
		if err != nil {
			slog.Warn("ipfs add failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		cid = id
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to add to IPFS after %d attempts: %w", attempt, err)
	}

	slog.Info("stored content in IPFS", "cid", cid, "bytes", len(content))
	return cid, nil
}

// GatewayURL returns the public URL for a CID
func (c *Client) GatewayURL(cid string) string {
	return c.gateway + cid
}
