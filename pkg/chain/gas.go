package chain

import (
	"context"
	"fmt"
	"math/big"
)

// GasConfig tunes transaction fee composition. Defaults match a chain
// with near-zero base fees (Gnosis): 1 wei tip, 2x base-fee headroom,
// 1 wei legacy bump.
type GasConfig struct {
	PriorityFeeWei     *big.Int
	MaxFeeMultiplier   int64
	MinGasPriceBumpWei *big.Int
}

// DefaultGasConfig returns the stock fee policy.
func DefaultGasConfig() GasConfig {
	return GasConfig{
		PriorityFeeWei:     big.NewInt(1),
		MaxFeeMultiplier:   2,
		MinGasPriceBumpWei: big.NewInt(1),
	}
}

// Fees is either an EIP-1559 (tip+cap) or legacy (gas price) fee set,
// depending on whether the chain advertises a base fee.
type Fees struct {
	TipCap   *big.Int // nil for legacy
	FeeCap   *big.Int // nil for legacy
	GasPrice *big.Int // nil for EIP-1559
}

// Dynamic reports whether the fees are EIP-1559 style.
func (f Fees) Dynamic() bool { return f.GasPrice == nil }

// SuggestFees inspects the head block: with a base fee present it returns
// maxFee = base*multiplier + tip; otherwise legacy gasPrice = current + bump.
func (r *Runtime) SuggestFees(ctx context.Context, cfg GasConfig) (Fees, error) {
	head, err := r.Client.HeaderByNumber(ctx, nil)
	if err != nil {
		return Fees{}, fmt.Errorf("read head block: %w", err)
	}

	if head.BaseFee != nil {
		tip := cfg.PriorityFeeWei
		if tip == nil {
			tip = big.NewInt(1)
		}
		mult := cfg.MaxFeeMultiplier
		if mult <= 0 {
			mult = 2
		}
		feeCap := new(big.Int).Mul(head.BaseFee, big.NewInt(mult))
		feeCap.Add(feeCap, tip)
		return Fees{TipCap: new(big.Int).Set(tip), FeeCap: feeCap}, nil
	}

	gasPrice, err := r.Client.SuggestGasPrice(ctx)
	if err != nil {
		return Fees{}, fmt.Errorf("read gas price: %w", err)
	}
	bump := cfg.MinGasPriceBumpWei
	if bump == nil {
		bump = big.NewInt(1)
	}
	return Fees{GasPrice: new(big.Int).Add(gasPrice, bump)}, nil
}
