// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ipfs

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyShell struct {
	failures int
	calls    int
	lastBody []byte
}

func (f *flakyShell) Add(r io.Reader, options ...shell.AddOpts) (string, error) {
	f.calls++
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.lastBody = body
	if f.calls <= f.failures {
		return "", errors.New("connection reset")
	}
	return "bafkreitestcid", nil
}

func testClient(sh Adder) *Client {
	c := newClient(sh, "https://gateway.example/ipfs")
	c.baseDelay = time.Millisecond
	return c
}

func TestAddRetriesUntilSuccess(t *testing.T) {
	sh := &flakyShell{failures: 2}
	c := testClient(sh)

	cid, err := c.Add(context.Background(), []byte("bug photo"))
	require.NoError(t, err)
	assert.Equal(t, "bafkreitestcid", cid)
	assert.Equal(t, 3, sh.calls)
	// every attempt re-reads the full content
	assert.Equal(t, []byte("bug photo"), sh.lastBody)
}

func TestAddGivesUp(t *testing.T) {
	sh := &flakyShell{failures: 100}
	c := testClient(sh)

	_, err := c.Add(context.Background(), []byte("bug photo"))
	require.Error(t, err)
	assert.Equal(t, 4, sh.calls)
}

func TestAddRejectsEmpty(t *testing.T) {
	sh := &flakyShell{}
	_, err := testClient(sh).Add(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.Zero(t, sh.calls)
}

func TestGatewayURL(t *testing.T) {
	c := testClient(&flakyShell{})
	assert.Equal(t, "https://gateway.example/ipfs/bafy123", c.GatewayURL("bafy123"))
}
