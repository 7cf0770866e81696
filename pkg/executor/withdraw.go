package executor

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Withdraw sweeps an ERC-20 balance out of the executor contract to the
// given recipient. Owner-gated on-chain; deliberately a separate
// operation from trade intents and prefunds so its failures never mix
// into tick reports.
func (a *Adapter) Withdraw(ctx context.Context, token, to common.Address, amount *big.Int) (*Result, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("withdraw amount must be positive")
	}

	parsed := futarchyV5ABI
	if a.flavor == PredictionV1 {
		parsed = predictionV1ABI
	}
	data, err := parsed.Pack("withdrawToken", token, to, amount)
	if err != nil {
		return nil, err
	}

	nonce, err := a.rt.PendingNonce(ctx)
	if err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	gasLimit, err := a.gasLimit(ctx, data, defaultPrefundGas)
	if err != nil {
		return nil, err
	}

	signed, err := a.send(ctx, a.addrs.Executor, data, nonce, gasLimit)
	if err != nil {
		return nil, err
	}
	a.log.Infow("withdraw_sent", "tx", signed.Hash().Hex(), "token", token.Hex(), "to", to.Hex())

	receipt, err := a.rt.WaitMined(ctx, signed.Hash(), a.opts.ReceiptTimeout)
	if err != nil {
		return &Result{TxHash: signed.Hash().Hex()}, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return &Result{TxHash: signed.Hash().Hex(), GasUsed: receipt.GasUsed},
			fmt.Errorf("%w: withdraw %s", ErrSendReverted, signed.Hash().Hex())
	}
	return &Result{TxHash: signed.Hash().Hex(), GasUsed: receipt.GasUsed, Status: receipt.Status}, nil
}
