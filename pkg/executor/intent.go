package executor

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/futarchy-tools/arbot/pkg/detect"
)

// Flavor selects which deployed executor contract and ABI method a trade
// intent is translated into.
type Flavor int

const (
	// FutarchyV5 runs the generic BUY/SELL conditional arbitrage.
	FutarchyV5 Flavor = iota
	// PNK is the V5 SELL variant whose spot hop is hard-coded on-chain
	// (vault batch swap to an intermediary, then a v2 router).
	PNK
	// PredictionV1 trades the prediction pools only; flow direction is
	// decided on-chain unless forced.
	PredictionV1
)

func (f Flavor) String() string {
	switch f {
	case PNK:
		return "pnk"
	case PredictionV1:
		return "prediction_v1"
	default:
		return "futarchy_v5"
	}
}

// Intent is one high-level trade to be executed atomically on-chain.
type Intent struct {
	// AmountIn is the base currency committed, in base units.
	AmountIn *big.Int
	// Flow and Cheaper come from the detector. Ignored by the
	// prediction flavor.
	Flow    detect.Flow
	Cheaper detect.Leg
	// MinProfit is the on-chain guard in base units. Signed: negative
	// values permit deliberate loss-leader runs.
	MinProfit *big.Int
	// Prefund tops the executor's base currency up to AmountIn from the
	// wallet before the main call.
	Prefund bool
	// ForceFlow overrides the prediction executor's own direction
	// choice ("buy" or "sell"); empty lets the contract decide.
	ForceFlow string
}

func (i Intent) validate(flavor Flavor) error {
	if i.AmountIn == nil || i.AmountIn.Sign() <= 0 {
		return fmt.Errorf("intent amount must be positive")
	}
	if i.MinProfit == nil {
		return fmt.Errorf("intent min profit must be set (zero is allowed)")
	}
	if flavor != PredictionV1 && i.Flow == detect.FlowNone {
		return fmt.Errorf("intent flow must be buy or sell for flavor %s", flavor)
	}
	return nil
}

// Result reports a completed (or settled-and-reverted) execution.
type Result struct {
	// TxHash is the 32-byte transaction hash, 0x-prefixed hex.
	TxHash  string
	GasUsed uint64
	Status  uint64
}

// TradeExecutor is what the controller drives; implemented in-process by
// Adapter and out-of-process by Shim.
type TradeExecutor interface {
	Execute(ctx context.Context, intent Intent) (*Result, error)
}

// Error kinds. The controller maps each to a disposition: skip, abort
// tick, or report-and-continue.
var (
	// ErrMinProfitNotMet: the on-chain guard reverted. A skip, not a
	// failure.
	ErrMinProfitNotMet = errors.New("min profit not met")
	// ErrSimulationFailed: gas estimation reverted and force-send is
	// off.
	ErrSimulationFailed = errors.New("simulation failed")
	// ErrTimedOut: no receipt inside the window; the next tick
	// reconciles via fresh balance reads.
	ErrTimedOut = errors.New("receipt timed out")
	// ErrSendReverted: the trade settled with status != 1.
	ErrSendReverted = errors.New("transaction reverted")
	// ErrPrefundFailed: the preparatory transfer reverted or timed out;
	// the main call is never attempted.
	ErrPrefundFailed = errors.New("prefund failed")
)
