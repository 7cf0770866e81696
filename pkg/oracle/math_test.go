package oracle

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestPriceFromSqrtX96_UnitPrice(t *testing.T) {
	// sqrtPriceX96 = 2^96 encodes a price of exactly 1 between
	// equal-decimal tokens.
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)
	got := priceFromSqrtX96(q96, 18, 18)
	if !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("price = %s, want 1", got)
	}
}

func TestPriceFromSqrtX96_Quadruple(t *testing.T) {
	// Doubling the sqrt price quadruples the price.
	q := new(big.Int).Lsh(big.NewInt(2), 96)
	got := priceFromSqrtX96(q, 18, 18)
	if !got.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("price = %s, want 4", got)
	}
}

func TestPriceFromSqrtX96_DecimalsAdjustment(t *testing.T) {
	// A 6-decimal token0 against an 18-decimal token1 shifts the raw
	// ratio by 10^(6-18).
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)
	got := priceFromSqrtX96(q96, 6, 18)
	want := decimal.New(1, -12)
	if !got.Equal(want) {
		t.Fatalf("price = %s, want %s", got, want)
	}
}

func TestPriceFromSqrtX96_Precision(t *testing.T) {
	// An awkward sqrt price must round-trip through the reciprocal with
	// relative error far below 1e-12.
	q, _ := new(big.Int).SetString("112045541949572287496682733568", 10) // ~sqrt(2)*2^96
	p := priceFromSqrtX96(q, 18, 18)
	back := reciprocal(reciprocal(p))

	relErr := p.Sub(back).Abs().DivRound(p, 40)
	if relErr.GreaterThan(decimal.New(1, -13)) {
		t.Fatalf("relative error %s too large", relErr)
	}
}

func TestValidatePredSum(t *testing.T) {
	tests := []struct {
		name    string
		yes, no string
		wantErr bool
	}{
		{"exact identity", "0.50", "0.50", false},
		{"small drift tolerated", "0.52", "0.49", false},
		{"drift at bound tolerated", "0.51", "0.51", false},
		{"large drift rejected", "0.60", "0.50", true},
		{"collapsed market rejected", "0.10", "0.10", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePredSum(
				decimal.RequireFromString(tt.yes),
				decimal.RequireFromString(tt.no),
			)
			if (err != nil) != tt.wantErr {
				t.Errorf("validatePredSum(%s, %s) err = %v, wantErr %v", tt.yes, tt.no, err, tt.wantErr)
			}
		})
	}
}

func TestReciprocal(t *testing.T) {
	p := decimal.RequireFromString("0.25")
	if got := reciprocal(p); !got.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("reciprocal = %s, want 4", got)
	}
}
