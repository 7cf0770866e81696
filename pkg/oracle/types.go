package oracle

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PoolKind selects the pricing algorithm for a pool.
type PoolKind int

const (
	// Concentrated is an Algebra/UniV3-style pool priced from the global
	// sqrt price word.
	Concentrated PoolKind = iota
	// Weighted is a Balancer-style pool priced from vault balances.
	Weighted
	// PairV2 is a constant-product pair priced from reserves.
	PairV2
)

func (k PoolKind) String() string {
	switch k {
	case Concentrated:
		return "concentrated"
	case Weighted:
		return "weighted"
	case PairV2:
		return "pair_v2"
	default:
		return "unknown"
	}
}

// PoolDescriptor identifies a pool and which side is quoted as base.
type PoolDescriptor struct {
	ID      string
	Address common.Address
	Kind    PoolKind
	// BaseTokenIndex picks which pool token (0 or 1) the price is quoted
	// for: the returned price is quote units per one base unit.
	BaseTokenIndex int
	// Vault is the Balancer vault holding the pool's balances. Only
	// meaningful for Weighted pools.
	Vault common.Address
}

// Sample is one observed pool price, produced once per tick per pool and
// discarded after the tick.
type Sample struct {
	PoolID      string
	Price       decimal.Decimal
	BaseToken   common.Address
	QuoteToken  common.Address
	BlockNumber uint64
	ObservedAt  time.Time
}

// TickPrices is the joined result of one tick's price fan-out.
type TickPrices struct {
	Yes     decimal.Decimal // YES-company in YES-currency
	No      decimal.Decimal // NO-company in NO-currency
	PredYes decimal.Decimal // YES-currency in base currency
	PredNo  decimal.Decimal // NO-currency in base currency
	Spot    decimal.Decimal // base company in base currency

	SpotLabel   string
	BlockNumber uint64
	ObservedAt  time.Time
}

// Error kinds. Transient RPC failures are retried next tick; undecodable
// pool state aborts the tick without a partial verdict.
var (
	ErrRPCTransient = errors.New("transient rpc failure")
	ErrPoolDecode   = errors.New("pool state undecodable")
)

// predSumEpsilon bounds how far pred_yes + pred_no may drift from 1
// before the tick is rejected as unpriceable.
var predSumEpsilon = decimal.NewFromFloat(0.02)
