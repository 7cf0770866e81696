package bot

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/futarchy-tools/arbot/pkg/accounting"
	"github.com/futarchy-tools/arbot/pkg/detect"
	"github.com/futarchy-tools/arbot/pkg/executor"
	"github.com/futarchy-tools/arbot/pkg/oracle"
)

var (
	walletAddr   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	executorAddr = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

type fakePrices struct {
	prices oracle.TickPrices
	err    error
	calls  int
}

func (f *fakePrices) FetchTick(ctx context.Context) (oracle.TickPrices, error) {
	f.calls++
	return f.prices, f.err
}

type fakeAccountant struct {
	block    uint64
	balances map[common.Address]map[string]*big.Int
	err      error
}

func (f *fakeAccountant) Snapshot(ctx context.Context, holder common.Address) (*accounting.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.block++
	snap := &accounting.Snapshot{
		Holder:   holder,
		Balances: map[string]*big.Int{},
		Decimals: map[string]uint8{},
		Block:    f.block,
		TakenAt:  time.Now(),
	}
	for _, label := range accounting.Labels {
		snap.Balances[label] = big.NewInt(0)
		snap.Decimals[label] = 18
	}
	if held, ok := f.balances[holder]; ok {
		for label, v := range held {
			snap.Balances[label] = new(big.Int).Set(v)
		}
	}
	return snap, nil
}

type fakeExecutor struct {
	result *executor.Result
	err    error
	calls  []executor.Intent
}

func (f *fakeExecutor) Execute(ctx context.Context, intent executor.Intent) (*executor.Result, error) {
	f.calls = append(f.calls, intent)
	return f.result, f.err
}

type fakeClock struct{ now time.Time }

func (f fakeClock) Now() time.Time { return f.now }
func (f fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- f.now.Add(d)
	return ch
}

func buyPrices() oracle.TickPrices {
	return oracle.TickPrices{
		Yes:     decimal.RequireFromString("0.40"),
		No:      decimal.RequireFromString("0.60"),
		PredYes: decimal.RequireFromString("0.50"),
		PredNo:  decimal.RequireFromString("0.50"),
		Spot:    decimal.RequireFromString("0.55"),
	}
}

func flatPrices() oracle.TickPrices {
	p := buyPrices()
	p.Spot = decimal.RequireFromString("0.50")
	return p
}

func newController(prices *fakePrices, acc *fakeAccountant, exec *fakeExecutor) *Controller {
	return &Controller{
		Prices:       prices,
		Accountant:   acc,
		Executor:     exec,
		Clock:        fakeClock{now: time.Unix(1700000000, 0)},
		Log:          zap.NewNop().Sugar(),
		Wallet:       walletAddr,
		ExecutorAddr: executorAddr,
		Params: Params{
			BotType:      "balancer",
			AmountWei:    big.NewInt(1_000_000),
			Interval:     time.Second,
			Tolerance:    decimal.RequireFromString("0.01"),
			MinProfitWei: big.NewInt(0),
		},
	}
}

func TestTick_NoOpportunity(t *testing.T) {
	prices := &fakePrices{prices: flatPrices()}
	exec := &fakeExecutor{}
	c := newController(prices, &fakeAccountant{}, exec)

	report := c.runTick(context.Background())

	require.Equal(t, OutcomeNoOpportunity, report.Outcome)
	require.Empty(t, exec.calls, "no execute call on a flat market")
	require.Equal(t, detect.FlowNone, report.Verdict.Flow)
}

func TestTick_ExecutesBuyVerdict(t *testing.T) {
	prices := &fakePrices{prices: buyPrices()}
	exec := &fakeExecutor{result: &executor.Result{TxHash: "0xabc", Status: 1}}
	acc := &fakeAccountant{balances: map[common.Address]map[string]*big.Int{
		executorAddr: {accounting.LabelBaseCurrency: big.NewInt(500)},
	}}
	c := newController(prices, acc, exec)

	report := c.runTick(context.Background())

	require.Equal(t, OutcomeExecuted, report.Outcome)
	require.Equal(t, "0xabc", report.TxHash)
	require.Len(t, exec.calls, 1)
	require.Equal(t, detect.FlowBuy, exec.calls[0].Flow)
	require.Equal(t, detect.LegYes, exec.calls[0].Cheaper)
	require.NotNil(t, report.Profit)
	// Prices fetched twice: detection plus the post-trade re-read.
	require.Equal(t, 2, prices.calls)
}

func TestTick_DryRunSkipsExecution(t *testing.T) {
	prices := &fakePrices{prices: buyPrices()}
	exec := &fakeExecutor{}
	c := newController(prices, &fakeAccountant{}, exec)
	c.Params.DryRun = true

	report := c.runTick(context.Background())

	require.Equal(t, OutcomeDryRun, report.Outcome)
	require.Empty(t, exec.calls)
	// Dry-run produces the same verdict stream as live mode.
	require.Equal(t, detect.FlowBuy, report.Verdict.Flow)
	require.Equal(t, detect.LegYes, report.Verdict.Cheaper)
}

func TestTick_MinProfitNotMetIsSkip(t *testing.T) {
	prices := &fakePrices{prices: buyPrices()}
	exec := &fakeExecutor{err: fmt.Errorf("%w: guard held", executor.ErrMinProfitNotMet)}
	c := newController(prices, &fakeAccountant{}, exec)

	report := c.runTick(context.Background())

	require.Equal(t, OutcomeSkipped, report.Outcome)
	require.Equal(t, "min_profit_not_met", report.ErrKind)
	require.Nil(t, report.Profit, "skipped trades compare no snapshots")
}

func TestTick_SendRevertedIsError(t *testing.T) {
	prices := &fakePrices{prices: buyPrices()}
	exec := &fakeExecutor{
		result: &executor.Result{TxHash: "0xdead"},
		err:    fmt.Errorf("%w: 0xdead", executor.ErrSendReverted),
	}
	c := newController(prices, &fakeAccountant{}, exec)

	report := c.runTick(context.Background())

	require.Equal(t, OutcomeError, report.Outcome)
	require.Equal(t, "send_reverted", report.ErrKind)
	require.Equal(t, "0xdead", report.TxHash)
	require.NotEmpty(t, report.Suggested)
}

func TestTick_RPCFailureAbortsTick(t *testing.T) {
	prices := &fakePrices{err: fmt.Errorf("%w: connection refused", oracle.ErrRPCTransient)}
	exec := &fakeExecutor{}
	c := newController(prices, &fakeAccountant{}, exec)

	report := c.runTick(context.Background())

	require.Equal(t, OutcomeError, report.Outcome)
	require.Equal(t, "rpc_transient", report.ErrKind)
	require.Empty(t, exec.calls)
}

func TestTick_TimeoutStoresPendingReconcile(t *testing.T) {
	prices := &fakePrices{prices: buyPrices()}
	exec := &fakeExecutor{
		result: &executor.Result{TxHash: "0xslow"},
		err:    fmt.Errorf("%w: 0xslow", executor.ErrTimedOut),
	}
	c := newController(prices, &fakeAccountant{}, exec)

	report := c.runTick(context.Background())
	require.Equal(t, OutcomeError, report.Outcome)
	require.Equal(t, "timed_out", report.ErrKind)
	require.NotNil(t, c.pending)
	require.Equal(t, "0xslow", c.pending.txHash)

	// Next tick reconciles and clears the pending trade.
	prices.prices = flatPrices()
	exec.err = nil
	next := c.runTick(context.Background())
	require.Equal(t, OutcomeNoOpportunity, next.Outcome)
	require.Nil(t, c.pending)
}

func TestTick_PredictionDelegatesFlow(t *testing.T) {
	prices := &fakePrices{prices: buyPrices()}
	exec := &fakeExecutor{result: &executor.Result{TxHash: "0xpred", Status: 1}}
	c := newController(prices, &fakeAccountant{}, exec)
	c.Params.BotType = "prediction"
	c.Params.ForceFlow = "sell"

	report := c.runTick(context.Background())

	require.Equal(t, OutcomeExecuted, report.Outcome)
	require.Len(t, exec.calls, 1)
	require.Equal(t, detect.FlowNone, exec.calls[0].Flow)
	require.Equal(t, "sell", exec.calls[0].ForceFlow)
	// Prediction mode never reads prices.
	require.Zero(t, prices.calls)
	require.Nil(t, report.Verdict)
}

func TestRun_StopsOnCancel(t *testing.T) {
	prices := &fakePrices{prices: flatPrices()}
	c := newController(prices, &fakeAccountant{}, &fakeExecutor{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_EmitsReportsViaOnTick(t *testing.T) {
	prices := &fakePrices{prices: flatPrices()}
	c := newController(prices, &fakeAccountant{}, &fakeExecutor{})

	var got []TickReport
	c.OnTick = func(r TickReport) {
		got = append(got, r)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.Clock = cancellingClock{cancel: cancel}

	_ = c.Run(ctx)
	require.NotEmpty(t, got)
	require.Equal(t, uint64(1), got[0].Index)
	require.Equal(t, OutcomeNoOpportunity, got[0].Outcome)
}

// cancellingClock cancels the run during the first inter-tick sleep.
type cancellingClock struct{ cancel context.CancelFunc }

func (c cancellingClock) Now() time.Time { return time.Unix(1700000000, 0) }
func (c cancellingClock) After(d time.Duration) <-chan time.Time {
	c.cancel()
	ch := make(chan time.Time, 1)
	return ch
}

func TestClassify_ErrorTaxonomy(t *testing.T) {
	kind, suggested := classify(fmt.Errorf("wrap: %w", executor.ErrPrefundFailed))
	require.Equal(t, "prefund_failed", kind)
	require.NotEmpty(t, suggested)

	kind, _ = classify(errors.New("mystery"))
	require.Equal(t, "internal", kind)
}
