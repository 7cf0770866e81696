package oracle

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// priceScale is the number of fractional digits kept by price divisions.
// Pool state is integer-exact up to this final scaling, which keeps
// relative representation error far below the 1e-12 the detector needs.
const priceScale = 36

var twoPow192 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 192), 0)

// priceFromSqrtX96 converts a Q64.96 sqrt price into the price of token0
// denominated in token1, adjusting for the tokens' decimals.
func priceFromSqrtX96(sqrtPriceX96 *big.Int, dec0, dec1 uint8) decimal.Decimal {
	q := decimal.NewFromBigInt(sqrtPriceX96, 0)
	// (q/2^96)^2 computed as q^2 / 2^192: the square stays exact, only
	// the final division rounds.
	ratio := q.Mul(q).DivRound(twoPow192, priceScale)
	return ratio.Shift(int32(dec0) - int32(dec1))
}

func reciprocal(d decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).DivRound(d, priceScale)
}

// validatePredSum enforces the split-position invariant: the two
// prediction legs must price to ~1 base currency together. A larger
// drift means at least one pool is quoting nonsense, so no verdict may
// be derived from the tick.
func validatePredSum(predYes, predNo decimal.Decimal) error {
	sum := predYes.Add(predNo)
	if sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(predSumEpsilon) {
		return fmt.Errorf("%w: pred_yes+pred_no = %s, expected ~1", ErrPoolDecode, sum)
	}
	return nil
}
