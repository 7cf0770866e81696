package oracle

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// SpotSource supplies the market price the implied price is compared
// against. The detector never learns which venue it came from.
type SpotSource interface {
	Price(ctx context.Context) (decimal.Decimal, error)
	Label() string
}

// WeightedSpot quotes company/currency off the Balancer pool.
type WeightedSpot struct {
	Oracle *Oracle
	Desc   PoolDescriptor
}

func (w WeightedSpot) Price(ctx context.Context) (decimal.Decimal, error) {
	s, err := w.Oracle.Price(ctx, w.Desc)
	if err != nil {
		return decimal.Zero, err
	}
	return s.Price, nil
}

func (w WeightedSpot) Label() string { return "balancer" }

// PNKSpot quotes the company token (PNK) in base currency through two v2
// pairs and the sDAI conversion rate:
//
//	PNK/WETH pair  -> PNK price in WETH
//	WETH/WXDAI pair -> WETH price in USD
//	sDAI convertToAssets -> USD per sDAI
//
// price_sdai = price_weth * weth_usd / sdai_rate.
type PNKSpot struct {
	Oracle *Oracle

	PNKWETHPool   common.Address
	WETHWXDAIPool common.Address
	WETH          common.Address
	SDAI          common.Address
}

func (p PNKSpot) Label() string { return "pnk" }

func (p PNKSpot) Price(ctx context.Context) (decimal.Decimal, error) {
	o := p.Oracle

	// WETH priced in WXDAI (USD baseline).
	wethUSD, err := p.pairPriceOf(ctx, p.WETHWXDAIPool, p.WETH)
	if err != nil {
		return decimal.Zero, err
	}
	// PNK priced in WETH: PNK is whichever side of the pair is not WETH.
	priceWETH, err := p.pairPriceOfOther(ctx, p.PNKWETHPool, p.WETH)
	if err != nil {
		return decimal.Zero, err
	}

	rateVals, err := o.call(ctx, p.SDAI, sdaiABI, "convertToAssets", new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	if err != nil {
		return decimal.Zero, err
	}
	rateWei, ok := rateVals[0].(*big.Int)
	if !ok || rateWei.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: sdai rate is zero", ErrPoolDecode)
	}
	sdaiRate := decimal.NewFromBigInt(rateWei, -18)

	priceUSD := priceWETH.Mul(wethUSD)
	return priceUSD.DivRound(sdaiRate, priceScale), nil
}

// pairPriceOf prices `base` in units of the pair's other token.
func (p PNKSpot) pairPriceOf(ctx context.Context, pair, base common.Address) (decimal.Decimal, error) {
	return p.pairPrice(ctx, pair, base, true)
}

// pairPriceOfOther prices the pair's other token in units of `quote`.
func (p PNKSpot) pairPriceOfOther(ctx context.Context, pair, quote common.Address) (decimal.Decimal, error) {
	return p.pairPrice(ctx, pair, quote, false)
}

func (p PNKSpot) pairPrice(ctx context.Context, pair, token common.Address, tokenIsBase bool) (decimal.Decimal, error) {
	o := p.Oracle
	token0, err := o.poolToken(ctx, pair, pairV2ABI, "token0")
	if err != nil {
		return decimal.Zero, err
	}

	baseIndex := 0
	if (token0 == token) != tokenIsBase {
		baseIndex = 1
	}
	s, err := o.Price(ctx, PoolDescriptor{ID: pair.Hex(), Address: pair, Kind: PairV2, BaseTokenIndex: baseIndex})
	if err != nil {
		return decimal.Zero, err
	}
	return s.Price, nil
}
