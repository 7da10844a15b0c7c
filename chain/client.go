// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/danielhkuo/bugdex/metrics"
)

// Read-only slices of the deployed contract ABIs
const (
	StakingABI = `[
		{"type":"function","name":"submissionStakes","stateMutability":"view",
		 "inputs":[{"name":"submissionId","type":"string"}],
		 "outputs":[{"name":"submitter","type":"address"},{"name":"amount","type":"uint256"}]}
	]`

	TokenABI = `[
		{"type":"function","name":"hasUnlocked","stateMutability":"view",
		 "inputs":[{"name":"user","type":"address"}],
		 "outputs":[{"name":"","type":"bool"}]},
		{"type":"function","name":"lastClaimTime","stateMutability":"view",
		 "inputs":[{"name":"user","type":"address"}],
		 "outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"FAUCET_COOLDOWN","stateMutability":"view",
		 "inputs":[],
		 "outputs":[{"name":"","type":"uint256"}]}
	]`
)

const callTimeout = 10 * time.Second

var (
	ErrNoStake           = errors.New("no stake found for submission")
	ErrStakeMismatch     = errors.New("stake belongs to a different wallet")
	ErrInsufficientStake = errors.New("staked amount below minimum")
	ErrTxNotFound        = errors.New("transaction not found")
	ErrNoTokenContract   = errors.New("token contract not configured")
)

// Backend is the subset of ethclient.Client used here
type Backend interface {
	ethereum.ContractCaller
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Stake is one row of the staking contract's submissionStakes mapping
type Stake struct {
	Submitter common.Address
	Amount    *big.Int
}

// FaucetState is the token contract's view of one wallet
type FaucetState struct {
	Unlocked  bool
	LastClaim time.Time
	Cooldown  time.Duration
}

// Client reads the staking and token contracts
type Client struct {
	backend    Backend
	staking    common.Address
	token      common.Address
	stakingABI abi.ABI
	tokenABI   abi.ABI
}

// Dial connects to an RPC endpoint. tokenAddr may be empty.
func Dial(rpcURL, stakingAddr, tokenAddr string) (*Client, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum client: %w", err)
	}
	return NewClient(client, stakingAddr, tokenAddr)
}

// NewClient binds the contracts on an existing backend
func NewClient(backend Backend, stakingAddr, tokenAddr string) (*Client, error) {
	if !common.IsHexAddress(stakingAddr) {
		return nil, fmt.Errorf("invalid staking contract address: %s", stakingAddr)
	}
	if tokenAddr != "" && !common.IsHexAddress(tokenAddr) {
		return nil, fmt.Errorf("invalid token contract address: %s", tokenAddr)
	}

	stakingABI, err := abi.JSON(strings.NewReader(StakingABI))
	if err != nil {
		return nil, fmt.Errorf("failed to load staking ABI: %w", err)
	}
	tokenABI, err := abi.JSON(strings.NewReader(TokenABI))
	if err != nil {
		return nil, fmt.Errorf("failed to load token ABI: %w", err)
	}

	c := &Client{
		backend:    backend,
		staking:    common.HexToAddress(stakingAddr),
		stakingABI: stakingABI,
		tokenABI:   tokenABI,
	}
	if tokenAddr != "" {
		c.token = common.HexToAddress(tokenAddr)
	}
	return c, nil
}

// GetStake reads the stake recorded for a submission id
func (c *Client) GetStake(ctx context.Context, submissionID string) (Stake, error) {
	out, err := c.call(ctx, c.staking, c.stakingABI, "submissionStakes", submissionID)
	if err != nil {
		return Stake{}, err
	}
	if len(out) != 2 {
		return Stake{}, fmt.Errorf("unexpected submissionStakes output length %d", len(out))
	}

	submitter, ok := out[0].(common.Address)
	if !ok {
		return Stake{}, errors.New("unexpected submitter type")
	}
	amount, ok := out[1].(*big.Int)
	if !ok {
		return Stake{}, errors.New("unexpected amount type")
	}

	if submitter == (common.Address{}) || amount.Sign() == 0 {
		return Stake{}, ErrNoStake
	}
	return Stake{Submitter: submitter, Amount: amount}, nil
}

// FaucetStatus reads unlock and cooldown state for a wallet
func (c *Client) FaucetStatus(ctx context.Context, wallet common.Address) (FaucetState, error) {
	if c.token == (common.Address{}) {
		return FaucetState{}, ErrNoTokenContract
	}

	var state FaucetState

	out, err := c.call(ctx, c.token, c.tokenABI, "hasUnlocked", wallet)
	if err != nil {
		return FaucetState{}, err
	}
	state.Unlocked, _ = out[0].(bool)

	out, err = c.call(ctx, c.token, c.tokenABI, "lastClaimTime", wallet)
	if err != nil {
		return FaucetState{}, err
	}
	if last, ok := out[0].(*big.Int); ok && last.Sign() > 0 {
		state.LastClaim = time.Unix(last.Int64(), 0).UTC()
	}

	out, err = c.call(ctx, c.token, c.tokenABI, "FAUCET_COOLDOWN")
	if err != nil {
		return FaucetState{}, err
	}
	if cooldown, ok := out[0].(*big.Int); ok {
		state.Cooldown = time.Duration(cooldown.Int64()) * time.Second
	}

	return state, nil
}

// TxSucceeded reports whether a mined transaction has a successful receipt
func (c *Client) TxSucceeded(ctx context.Context, txHash string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	receipt, err := c.backend.TransactionReceipt(ctx, common.HexToHash(txHash))
	if errors.Is(err, ethereum.NotFound) {
		return false, ErrTxNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to fetch receipt: %w", err)
	}
	return receipt.Status == types.ReceiptStatusSuccessful, nil
}

func (c *Client) call(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	start := time.Now()
	out, err := c.doCall(ctx, to, contract, method, args...)

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ChainCalls.WithLabelValues(method, result).Observe(time.Since(start).Seconds())

	return out, err
}

func (c *Client) doCall(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	out, err := contract.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty %s result", method)
	}
	return out, nil
}

// TokenUnits converts whole tokens to 18-decimal base units
func TokenUnits(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

// VerifyStake checks a stake against the caller and the minimum amount
func VerifyStake(stake Stake, wallet string, minTokens int64) error {
	if !strings.EqualFold(stake.Submitter.Hex(), wallet) {
		return ErrStakeMismatch
	}
	if stake.Amount == nil || stake.Amount.Cmp(TokenUnits(minTokens)) < 0 {
		return ErrInsufficientStake
	}
	return nil
}

// ValidTxHash reports whether s is a 0x-prefixed 32-byte hex hash
func ValidTxHash(s string) bool {
	b, err := hexutil.Decode(s)
	return err == nil && len(b) == common.HashLength
}
