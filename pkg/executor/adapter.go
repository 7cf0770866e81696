package executor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/futarchy-tools/arbot/pkg/chain"
	"github.com/futarchy-tools/arbot/pkg/detect"
)

// Per-flavor gas limit fallbacks when estimation is unavailable.
const (
	defaultPrefundGas = 150_000
	defaultTradeGas   = 1_500_000
	gasHeadroomNum    = 12 // estimate * 1.2
	gasHeadroomDen    = 10
)

// Addresses is everything the executor contract needs to route a trade.
type Addresses struct {
	Executor common.Address

	BalancerRouter common.Address
	BalancerVault  common.Address
	SwaprRouter    common.Address
	FutarchyRouter common.Address

	Proposal common.Address

	Currency    common.Address
	Company     common.Address
	YesCurrency common.Address
	NoCurrency  common.Address
	YesCompany  common.Address
	NoCompany   common.Address

	PoolPredYes common.Address
	PoolPredNo  common.Address
}

// Options tunes transaction construction.
type Options struct {
	// GasLimit, when nonzero, skips estimation entirely (CLI override).
	GasLimit uint64
	// ForceSend falls back to the flavor default limit when estimation
	// reverts, instead of aborting the tick.
	ForceSend bool
	// ReceiptTimeout bounds each receipt wait (default 120s).
	ReceiptTimeout time.Duration
}

// Adapter translates trade intents into signed executor contract calls.
type Adapter struct {
	rt     *chain.Runtime
	flavor Flavor
	addrs  Addresses
	gas    chain.GasConfig
	opts   Options
	log    *zap.SugaredLogger
}

// NewAdapter builds the in-process executor adapter.
func NewAdapter(rt *chain.Runtime, flavor Flavor, addrs Addresses, gas chain.GasConfig, opts Options, log *zap.SugaredLogger) *Adapter {
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = chain.DefaultReceiptTimeout
	}
	return &Adapter{rt: rt, flavor: flavor, addrs: addrs, gas: gas, opts: opts, log: log}
}

// Execute performs the optional prefund then the single executor call.
// The nonce is read once at intent start and incremented locally across
// the prefund; nothing is cached across intents.
func (a *Adapter) Execute(ctx context.Context, intent Intent) (*Result, error) {
	if err := intent.validate(a.flavor); err != nil {
		return nil, err
	}

	nonce, err := a.rt.PendingNonce(ctx)
	if err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}

	if intent.Prefund {
		advanced, err := a.prefund(ctx, intent.AmountIn, nonce)
		if err != nil {
			return nil, err
		}
		nonce += advanced
	}

	data, err := a.buildCalldata(intent)
	if err != nil {
		return nil, err
	}

	gasLimit, err := a.gasLimit(ctx, data, defaultTradeGas)
	if err != nil {
		return nil, err
	}

	signed, err := a.send(ctx, a.addrs.Executor, data, nonce, gasLimit)
	if err != nil {
		return nil, err
	}
	hash := signed.Hash()
	a.log.Infow("tx_sent", "tx", hash.Hex(), "flavor", a.flavor.String(), "flow", intent.Flow.String())

	receipt, err := a.rt.WaitMined(ctx, hash, a.opts.ReceiptTimeout)
	if err != nil {
		if errors.Is(err, chain.ErrReceiptTimeout) {
			return &Result{TxHash: hash.Hex()}, fmt.Errorf("%w: %s", ErrTimedOut, hash.Hex())
		}
		return &Result{TxHash: hash.Hex()}, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return &Result{TxHash: hash.Hex(), GasUsed: receipt.GasUsed, Status: receipt.Status},
			fmt.Errorf("%w: %s", ErrSendReverted, hash.Hex())
	}

	return &Result{TxHash: hash.Hex(), GasUsed: receipt.GasUsed, Status: receipt.Status}, nil
}

// prefund transfers amount - executorBalance (clamped >= 0) of base
// currency to the executor and waits for it to land. Returns how many
// nonces were consumed.
func (a *Adapter) prefund(ctx context.Context, amount *big.Int, nonce uint64) (uint64, error) {
	erc := a.rt.NewERC20(a.addrs.Currency)
	execBal, err := erc.BalanceOf(ctx, a.addrs.Executor)
	if err != nil {
		return 0, fmt.Errorf("%w: read executor balance: %v", ErrPrefundFailed, err)
	}
	need := new(big.Int).Sub(amount, execBal)
	if need.Sign() <= 0 {
		return 0, nil
	}

	data, err := erc.TransferData(a.addrs.Executor, need)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPrefundFailed, err)
	}
	gasLimit, err := a.gasLimitTo(ctx, a.addrs.Currency, data, defaultPrefundGas)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPrefundFailed, err)
	}

	signed, err := a.send(ctx, a.addrs.Currency, data, nonce, gasLimit)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPrefundFailed, err)
	}
	a.log.Infow("prefund_sent", "tx", signed.Hash().Hex(), "amount_wei", need.String())

	receipt, err := a.rt.WaitMined(ctx, signed.Hash(), a.opts.ReceiptTimeout)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPrefundFailed, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return 0, fmt.Errorf("%w: transfer reverted: %s", ErrPrefundFailed, signed.Hash().Hex())
	}
	return 1, nil
}

func (a *Adapter) buildCalldata(intent Intent) ([]byte, error) {
	addrs := a.addrs
	switch a.flavor {
	case FutarchyV5:
		method := "buy_conditional_arbitrage"
		if intent.Flow == detect.FlowSell {
			method = "sell_conditional_arbitrage"
		}
		return futarchyV5ABI.Pack(method,
			addrs.BalancerRouter,
			addrs.Company, addrs.Currency,
			addrs.FutarchyRouter, addrs.Proposal,
			addrs.YesCompany, addrs.NoCompany,
			addrs.YesCurrency, addrs.NoCurrency,
			addrs.SwaprRouter,
			intent.AmountIn,
			intent.Cheaper == detect.LegYes,
			intent.MinProfit,
		)
	case PNK:
		// The contract ignores the spot-leg fields; its sDAI -> WETH ->
		// PNK path is fixed. Only amount and the guard matter here.
		return futarchyV5ABI.Pack("sell_conditional_arbitrage_pnk",
			[]byte{},
			common.Address{}, common.Address{},
			addrs.Company, addrs.Currency,
			addrs.FutarchyRouter, addrs.Proposal,
			addrs.YesCompany, addrs.NoCompany,
			addrs.YesCurrency, addrs.NoCurrency,
			addrs.SwaprRouter,
			intent.AmountIn,
			intent.MinProfit,
		)
	case PredictionV1:
		var forceFlow uint8
		switch intent.ForceFlow {
		case "buy":
			forceFlow = 1
		case "sell":
			forceFlow = 2
		}
		return predictionV1ABI.Pack("run_prediction_arbitrage",
			addrs.FutarchyRouter, addrs.Proposal,
			addrs.Currency, addrs.YesCurrency, addrs.NoCurrency,
			addrs.SwaprRouter,
			addrs.PoolPredYes, addrs.PoolPredNo,
			intent.AmountIn,
			intent.MinProfit,
			forceFlow,
		)
	default:
		return nil, fmt.Errorf("unknown executor flavor %d", a.flavor)
	}
}

// gasLimit resolves the limit for the main executor call.
func (a *Adapter) gasLimit(ctx context.Context, data []byte, fallback uint64) (uint64, error) {
	return a.gasLimitTo(ctx, a.addrs.Executor, data, fallback)
}

// gasLimitTo honours the CLI override, else estimates with 1.2x
// headroom, else falls back to the flavor default when force-send is on.
// A reverting estimate carrying the profit-guard message becomes a skip.
func (a *Adapter) gasLimitTo(ctx context.Context, to common.Address, data []byte, fallback uint64) (uint64, error) {
	if a.opts.GasLimit > 0 {
		return a.opts.GasLimit, nil
	}

	est, err := a.rt.Client.EstimateGas(ctx, ethereum.CallMsg{
		From: a.rt.Signer.Address(),
		To:   &to,
		Data: data,
	})
	if err == nil {
		return est * gasHeadroomNum / gasHeadroomDen, nil
	}

	if strings.Contains(strings.ToLower(err.Error()), "min profit not met") {
		return 0, fmt.Errorf("%w: %v", ErrMinProfitNotMet, err)
	}
	if a.opts.ForceSend {
		a.log.Warnw("gas_estimate_failed_force_send", "err", err, "fallback_gas", fallback)
		return fallback, nil
	}
	return 0, fmt.Errorf("%w: %v", ErrSimulationFailed, err)
}

// send composes fees, signs, and broadcasts one transaction.
func (a *Adapter) send(ctx context.Context, to common.Address, data []byte, nonce, gasLimit uint64) (*types.Transaction, error) {
	fees, err := a.rt.SuggestFees(ctx, a.gas)
	if err != nil {
		return nil, err
	}

	var tx *types.Transaction
	if fees.Dynamic() {
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   a.rt.ChainID,
			Nonce:     nonce,
			GasTipCap: fees.TipCap,
			GasFeeCap: fees.FeeCap,
			Gas:       gasLimit,
			To:        &to,
			Data:      data,
		})
	} else {
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: fees.GasPrice,
			Gas:      gasLimit,
			To:       &to,
			Data:     data,
		})
	}

	signed, err := a.rt.SendRaw(ctx, tx)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "min profit not met") {
			return nil, fmt.Errorf("%w: %v", ErrMinProfitNotMet, err)
		}
		return nil, err
	}
	return signed, nil
}
