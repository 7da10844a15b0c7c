// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/danielhkuo/bugdex/chain"
)

// fakeStakes is an in-memory StakeVerifier
type fakeStakes struct {
	mu     sync.Mutex
	stakes map[string]chain.Stake
	err    error
}

func newFakeStakes() *fakeStakes {
	return &fakeStakes{stakes: make(map[string]chain.Stake)}
}

func (f *fakeStakes) put(uploadID, wallet string, tokens int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stakes[uploadID] = chain.Stake{
		Submitter: common.HexToAddress(wallet),
		Amount:    chain.TokenUnits(tokens),
	}
}

func (f *fakeStakes) GetStake(ctx context.Context, uploadID string) (chain.Stake, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return chain.Stake{}, f.err
	}
	s, ok := f.stakes[uploadID]
	if !ok {
		return chain.Stake{}, chain.ErrNoStake
	}
	return s, nil
}

// fakeTxs answers receipt lookups from a map of hash -> success
type fakeTxs struct {
	receipts map[string]bool
	err      error
}

func (f *fakeTxs) TxSucceeded(ctx context.Context, txHash string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	ok, found := f.receipts[txHash]
	if !found {
		return false, chain.ErrTxNotFound
	}
	return ok, nil
}

// fakeFaucet returns a fixed state and counts reads
type fakeFaucet struct {
	state chain.FaucetState
	err   error
	calls int
}

func (f *fakeFaucet) FaucetStatus(ctx context.Context, wallet common.Address) (chain.FaucetState, error) {
	f.calls++
	return f.state, f.err
}

// fakeContent records added payloads and hands out sequential CIDs
type fakeContent struct {
	added [][]byte
	err   error
}

func (f *fakeContent) Add(ctx context.Context, content []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.added = append(f.added, content)
	return "bafytestcid", nil
}

func (f *fakeContent) GatewayURL(cid string) string {
	return "https://ipfs.io/ipfs/" + cid
}

var errRPCDown = errors.New("rpc unavailable")

func boolPtr(b bool) *bool { return &b }

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }
