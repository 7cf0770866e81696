package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrReceiptTimeout is returned when no receipt appears inside the wait
// window. The transaction may still settle later; callers reconcile via
// fresh balance reads.
var ErrReceiptTimeout = errors.New("receipt not observed within window")

// DefaultReceiptTimeout bounds the receipt poll for trade transactions.
const DefaultReceiptTimeout = 120 * time.Second

// SendRaw signs and broadcasts a transaction, returning the signed tx so
// the caller holds the canonical hash.
func (r *Runtime) SendRaw(ctx context.Context, tx *types.Transaction) (*types.Transaction, error) {
	if r.Signer == nil {
		return nil, ErrSignerUnavailable
	}
	signed, err := r.Signer.SignTx(tx, r.ChainID)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	if err := r.Client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send tx: %w", err)
	}
	return signed, nil
}

// WaitMined polls for the receipt of hash until it appears or the window
// elapses. Poll cadence is fixed at one second; the chains this bot runs
// on block faster than that.
func (r *Runtime) WaitMined(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	if timeout <= 0 {
		timeout = DefaultReceiptTimeout
	}
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		receipt, err := r.Client.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("poll receipt %s: %w", hash.Hex(), err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s after %s", ErrReceiptTimeout, hash.Hex(), timeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// PendingNonce reads the wallet's next nonce. Multi-transaction intents
// read once and increment locally; nothing caches a nonce across ticks.
func (r *Runtime) PendingNonce(ctx context.Context) (uint64, error) {
	if r.Signer == nil {
		return 0, ErrSignerUnavailable
	}
	return r.Client.PendingNonceAt(ctx, r.Signer.Address())
}
