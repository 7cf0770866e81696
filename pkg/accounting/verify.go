package accounting

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// ProfitReport is the outcome of comparing bracketed snapshots against
// the configured minimum profit.
type ProfitReport struct {
	// ExecutorDelta is the primary measure: base currency gained or lost
	// by the executor contract, in base units.
	ExecutorDelta *big.Int
	// WalletDelta is the secondary measure: wallet base currency change,
	// expected ~0 apart from gas and prefunds.
	WalletDelta *big.Int

	Executor decimal.Decimal // human units
	Wallet   decimal.Decimal
	Percent  decimal.Decimal // executor delta relative to amount in

	MinProfit *big.Int
	MetTarget bool
}

// VerifyProfit computes both profit measures from pre/post snapshot pairs
// of the executor and the wallet. minProfit is signed: negative values
// deliberately accept loss-leader trades.
func VerifyProfit(execPre, execPost, walletPre, walletPost *Snapshot, amountIn, minProfit *big.Int) (*ProfitReport, error) {
	execDiff, err := Diff(execPre, execPost)
	if err != nil {
		return nil, err
	}
	walletDiff, err := Diff(walletPre, walletPost)
	if err != nil {
		return nil, err
	}

	dec := execPre.Decimals[LabelBaseCurrency]
	executorDelta := execDiff[LabelBaseCurrency]
	walletDelta := walletDiff[LabelBaseCurrency]

	report := &ProfitReport{
		ExecutorDelta: executorDelta,
		WalletDelta:   walletDelta,
		Executor:      decimal.NewFromBigInt(executorDelta, -int32(dec)),
		Wallet:        decimal.NewFromBigInt(walletDelta, -int32(dec)),
		MinProfit:     minProfit,
		MetTarget:     executorDelta.Cmp(minProfit) >= 0,
	}
	if amountIn != nil && amountIn.Sign() > 0 {
		report.Percent = decimal.NewFromBigInt(executorDelta, 0).
			DivRound(decimal.NewFromBigInt(amountIn, 0), 8).
			Mul(decimal.NewFromInt(100))
	}
	return report, nil
}
