package oracle

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/futarchy-tools/arbot/pkg/chain"
)

// maxParallelReads bounds the per-tick RPC fan-out to one in-flight read
// per pool, so a single endpoint is never hammered.
const maxParallelReads = 5

// Oracle performs read-only price queries against the proposal's pools.
// Token decimals are immutable on-chain, so they are cached for the life
// of the process.
type Oracle struct {
	rt *chain.Runtime

	mu       sync.Mutex
	decimals map[common.Address]uint8
}

// New creates an Oracle over the connected runtime.
func New(rt *chain.Runtime) *Oracle {
	return &Oracle{rt: rt, decimals: map[common.Address]uint8{}}
}

// call performs an eth_call and classifies failures: transport errors are
// transient, undecodable returns are fatal for the tick.
func (o *Oracle) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...any) ([]any, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := o.rt.Client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s on %s: %v", ErrRPCTransient, method, to.Hex(), err)
	}
	vals, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %s on %s: %v", ErrPoolDecode, method, to.Hex(), err)
	}
	return vals, nil
}

func (o *Oracle) tokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	o.mu.Lock()
	if d, ok := o.decimals[token]; ok {
		o.mu.Unlock()
		return d, nil
	}
	o.mu.Unlock()

	d, err := o.rt.NewERC20(token).Decimals(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRPCTransient, err)
	}
	if d > 36 {
		return 0, fmt.Errorf("%w: token %s reports %d decimals", ErrPoolDecode, token.Hex(), d)
	}

	o.mu.Lock()
	o.decimals[token] = d
	o.mu.Unlock()
	return d, nil
}

// Price reads one pool and returns its current spot quote. The result
// reflects the pool's state at some block at or after the call start.
func (o *Oracle) Price(ctx context.Context, desc PoolDescriptor) (Sample, error) {
	switch desc.Kind {
	case Concentrated:
		return o.concentratedPrice(ctx, desc)
	case Weighted:
		return o.weightedPrice(ctx, desc)
	case PairV2:
		return o.pairPrice(ctx, desc)
	default:
		return Sample{}, fmt.Errorf("%w: pool %s has unknown kind %d", ErrPoolDecode, desc.ID, desc.Kind)
	}
}

// concentratedPrice prices an Algebra pool from the global sqrt price.
// price(token0 in token1) = (sqrtPriceX96 / 2^96)^2 * 10^(dec0-dec1).
func (o *Oracle) concentratedPrice(ctx context.Context, desc PoolDescriptor) (Sample, error) {
	vals, err := o.call(ctx, desc.Address, algebraPoolABI, "globalState")
	if err != nil {
		return Sample{}, err
	}
	sqrtPriceX96, ok := vals[0].(*big.Int)
	if !ok || sqrtPriceX96.Sign() <= 0 {
		return Sample{}, fmt.Errorf("%w: pool %s sqrt price is zero", ErrPoolDecode, desc.ID)
	}

	token0, err := o.poolToken(ctx, desc.Address, algebraPoolABI, "token0")
	if err != nil {
		return Sample{}, err
	}
	token1, err := o.poolToken(ctx, desc.Address, algebraPoolABI, "token1")
	if err != nil {
		return Sample{}, err
	}
	dec0, err := o.tokenDecimals(ctx, token0)
	if err != nil {
		return Sample{}, err
	}
	dec1, err := o.tokenDecimals(ctx, token1)
	if err != nil {
		return Sample{}, err
	}

	price01 := priceFromSqrtX96(sqrtPriceX96, dec0, dec1)

	s := Sample{PoolID: desc.ID, ObservedAt: time.Now()}
	if desc.BaseTokenIndex == 0 {
		s.Price, s.BaseToken, s.QuoteToken = price01, token0, token1
	} else {
		s.Price, s.BaseToken, s.QuoteToken = reciprocal(price01), token1, token0
	}
	return s, nil
}

// weightedPrice prices a Balancer pool from vault balances, equal-weight:
// price(token_i in token_j) = (bal_j / 10^dec_j) / (bal_i / 10^dec_i).
func (o *Oracle) weightedPrice(ctx context.Context, desc PoolDescriptor) (Sample, error) {
	vals, err := o.call(ctx, desc.Vault, balancerVaultABI, "getPoolTokenInfo", desc.Address)
	if err != nil {
		return Sample{}, err
	}
	tokens, ok := vals[0].([]common.Address)
	if !ok || len(tokens) != 2 {
		return Sample{}, fmt.Errorf("%w: pool %s vault returned %d tokens, want 2", ErrPoolDecode, desc.ID, len(tokens))
	}
	balancesRaw, ok := vals[2].([]*big.Int)
	if !ok || len(balancesRaw) != len(tokens) {
		return Sample{}, fmt.Errorf("%w: pool %s balance list mismatch", ErrPoolDecode, desc.ID)
	}

	i := desc.BaseTokenIndex
	j := 1 - i
	decI, err := o.tokenDecimals(ctx, tokens[i])
	if err != nil {
		return Sample{}, err
	}
	decJ, err := o.tokenDecimals(ctx, tokens[j])
	if err != nil {
		return Sample{}, err
	}
	if balancesRaw[i].Sign() == 0 {
		return Sample{}, fmt.Errorf("%w: pool %s base balance is zero", ErrPoolDecode, desc.ID)
	}

	balI := decimal.NewFromBigInt(balancesRaw[i], -int32(decI))
	balJ := decimal.NewFromBigInt(balancesRaw[j], -int32(decJ))

	return Sample{
		PoolID:     desc.ID,
		Price:      balJ.DivRound(balI, priceScale),
		BaseToken:  tokens[i],
		QuoteToken: tokens[j],
		ObservedAt: time.Now(),
	}, nil
}

// pairPrice prices a constant-product pair from reserves.
func (o *Oracle) pairPrice(ctx context.Context, desc PoolDescriptor) (Sample, error) {
	vals, err := o.call(ctx, desc.Address, pairV2ABI, "getReserves")
	if err != nil {
		return Sample{}, err
	}
	reserve0, _ := vals[0].(*big.Int)
	reserve1, _ := vals[1].(*big.Int)
	if reserve0 == nil || reserve1 == nil || reserve0.Sign() == 0 || reserve1.Sign() == 0 {
		return Sample{}, fmt.Errorf("%w: pair %s has empty reserves", ErrPoolDecode, desc.ID)
	}

	token0, err := o.poolToken(ctx, desc.Address, pairV2ABI, "token0")
	if err != nil {
		return Sample{}, err
	}
	token1, err := o.poolToken(ctx, desc.Address, pairV2ABI, "token1")
	if err != nil {
		return Sample{}, err
	}
	dec0, err := o.tokenDecimals(ctx, token0)
	if err != nil {
		return Sample{}, err
	}
	dec1, err := o.tokenDecimals(ctx, token1)
	if err != nil {
		return Sample{}, err
	}

	r0 := decimal.NewFromBigInt(reserve0, -int32(dec0))
	r1 := decimal.NewFromBigInt(reserve1, -int32(dec1))

	s := Sample{PoolID: desc.ID, ObservedAt: time.Now()}
	if desc.BaseTokenIndex == 0 {
		s.Price, s.BaseToken, s.QuoteToken = r1.DivRound(r0, priceScale), token0, token1
	} else {
		s.Price, s.BaseToken, s.QuoteToken = r0.DivRound(r1, priceScale), token1, token0
	}
	return s, nil
}

func (o *Oracle) poolToken(ctx context.Context, pool common.Address, parsed abi.ABI, method string) (common.Address, error) {
	vals, err := o.call(ctx, pool, parsed, method)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := vals[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s returned no address", ErrPoolDecode, method)
	}
	return addr, nil
}

// ProposalPools names the four conditional pools plus the spot source for
// one proposal's tick fan-out.
type ProposalPools struct {
	Yes     PoolDescriptor
	No      PoolDescriptor
	PredYes PoolDescriptor
	PredNo  PoolDescriptor
	Spot    SpotSource
}

// FetchTick reads all five prices in parallel and joins them. All reads
// complete before the result is returned; any transient failure aborts
// the whole tick.
func (o *Oracle) FetchTick(ctx context.Context, pools ProposalPools) (TickPrices, error) {
	block, err := o.rt.Client.BlockNumber(ctx)
	if err != nil {
		return TickPrices{}, fmt.Errorf("%w: block number: %v", ErrRPCTransient, err)
	}

	var (
		yes, no, predYes, predNo Sample
		spot                     decimal.Decimal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)

	g.Go(func() (err error) { yes, err = o.Price(gctx, pools.Yes); return })
	g.Go(func() (err error) { no, err = o.Price(gctx, pools.No); return })
	g.Go(func() (err error) { predYes, err = o.Price(gctx, pools.PredYes); return })
	g.Go(func() (err error) { predNo, err = o.Price(gctx, pools.PredNo); return })
	g.Go(func() (err error) { spot, err = pools.Spot.Price(gctx); return })

	if err := g.Wait(); err != nil {
		return TickPrices{}, err
	}

	if err := validatePredSum(predYes.Price, predNo.Price); err != nil {
		return TickPrices{}, err
	}

	return TickPrices{
		Yes:         yes.Price,
		No:          no.Price,
		PredYes:     predYes.Price,
		PredNo:      predNo.Price,
		Spot:        spot,
		SpotLabel:   pools.Spot.Label(),
		BlockNumber: block,
		ObservedAt:  time.Now(),
	}, nil
}
