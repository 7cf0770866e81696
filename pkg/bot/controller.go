package bot

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/futarchy-tools/arbot/pkg/accounting"
	"github.com/futarchy-tools/arbot/pkg/detect"
	"github.com/futarchy-tools/arbot/pkg/executor"
	"github.com/futarchy-tools/arbot/pkg/oracle"
	"github.com/futarchy-tools/arbot/pkg/util"
)

// PriceSource yields the joined five-pool prices for one tick.
type PriceSource interface {
	FetchTick(ctx context.Context) (oracle.TickPrices, error)
}

// BalanceReader snapshots the six token balances of one holder.
type BalanceReader interface {
	Snapshot(ctx context.Context, holder common.Address) (*accounting.Snapshot, error)
}

// Params are the runtime knobs of one controller instance.
type Params struct {
	BotType string

	// AmountWei is the base currency committed per trade, base units.
	AmountWei *big.Int
	Interval  time.Duration
	Tolerance decimal.Decimal
	// MinProfitWei is signed; negative accepts loss-leader trades.
	MinProfitWei *big.Int
	ForceFlow    string

	DryRun  bool
	Prefund bool
}

// Controller runs the tick state machine: fetch, detect, account,
// execute, verify, report, sleep. One proposal, one tick at a time.
type Controller struct {
	Prices     PriceSource
	Accountant BalanceReader
	Executor   executor.TradeExecutor
	Clock      util.Clock
	Log        *zap.SugaredLogger

	Wallet       common.Address
	ExecutorAddr common.Address

	Params Params

	// OnTick receives every tick report (journal, status API). Called
	// synchronously from the tick goroutine.
	OnTick func(TickReport)

	tick uint64

	// pending carries a timed-out trade's pre-snapshots into the next
	// tick so a late settlement is still accounted for.
	pending *pendingTrade
}

type pendingTrade struct {
	txHash    string
	execPre   *accounting.Snapshot
	walletPre *accounting.Snapshot
	amountWei *big.Int
}

// Run loops ticks until ctx is cancelled. The inter-tick sleep aborts on
// cancellation; an in-flight transaction is always awaited first because
// its on-chain side effects cannot be cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.Log.Infow("bot_starting",
		"bot_type", c.Params.BotType,
		"amount_wei", c.Params.AmountWei.String(),
		"interval", c.Params.Interval.String(),
		"tolerance", c.Params.Tolerance.String(),
		"min_profit_wei", c.Params.MinProfitWei.String(),
		"dry_run", c.Params.DryRun,
		"prefund", c.Params.Prefund,
		"executor", c.ExecutorAddr.Hex(),
	)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		report := c.runTick(ctx)
		c.emit(report)

		if err := util.SleepCtx(ctx, c.Clock, c.Params.Interval); err != nil {
			c.Log.Infow("bot_stopping", "ticks", c.tick)
			return err
		}
	}
}

func (c *Controller) emit(report TickReport) {
	switch report.Outcome {
	case OutcomeError:
		c.Log.Errorw("tick_report", "tick", report.Index, "kind", report.ErrKind,
			"err", report.Err, "tx", report.TxHash, "action", report.Suggested)
	case OutcomeSkipped:
		c.Log.Infow("tick_report", "tick", report.Index, "outcome", report.Outcome,
			"kind", report.ErrKind, "tx", report.TxHash)
	default:
		c.Log.Infow("tick_report", "tick", report.Index, "outcome", report.Outcome, "tx", report.TxHash)
	}
	if c.OnTick != nil {
		c.OnTick(report)
	}
}

// runTick drives one pass of the state machine. Trade execution runs
// under a cancellation-shielded context: once a transaction is signed,
// shutdown waits for its receipt.
func (c *Controller) runTick(ctx context.Context) TickReport {
	c.tick++
	report := TickReport{Index: c.tick, StartedAt: c.Clock.Now()}

	c.reconcilePending(ctx)

	if c.Params.BotType == "prediction" {
		return c.runPredictionTick(ctx, report)
	}

	prices, err := c.Prices.FetchTick(ctx)
	if err != nil {
		return c.failed(report, err)
	}
	report.Prices = &prices

	verdict := detect.Detect(prices, c.Params.Tolerance)
	report.Verdict = &verdict
	c.Log.Infow("price_analysis",
		"tick", c.tick,
		"yes", prices.Yes.StringFixed(6),
		"no", prices.No.StringFixed(6),
		"pred_yes", prices.PredYes.StringFixed(6),
		"spot", prices.Spot.StringFixed(6),
		"spot_label", prices.SpotLabel,
		"implied", verdict.Implied.StringFixed(6),
		"deviation", verdict.Deviation.StringFixed(6),
	)

	if verdict.None() {
		report.Outcome = OutcomeNoOpportunity
		return report
	}
	c.Log.Infow("opportunity",
		"tick", c.tick, "flow", verdict.Flow.String(), "cheaper", verdict.Cheaper.String())

	intent := executor.Intent{
		AmountIn:  c.Params.AmountWei,
		Flow:      verdict.Flow,
		Cheaper:   verdict.Cheaper,
		MinProfit: c.Params.MinProfitWei,
		Prefund:   c.Params.Prefund,
	}

	if c.Params.DryRun {
		c.Log.Infow("dry_run_intent",
			"tick", c.tick, "flow", intent.Flow.String(), "cheaper", intent.Cheaper.String(),
			"amount_wei", intent.AmountIn.String(), "min_profit_wei", intent.MinProfit.String())
		report.Outcome = OutcomeDryRun
		return report
	}

	return c.executeAndVerify(ctx, report, intent)
}

// runPredictionTick delegates flow choice to the prediction executor: no
// price fetch, no detection, just accounting around the call.
func (c *Controller) runPredictionTick(ctx context.Context, report TickReport) TickReport {
	intent := executor.Intent{
		AmountIn:  c.Params.AmountWei,
		MinProfit: c.Params.MinProfitWei,
		Prefund:   c.Params.Prefund,
		ForceFlow: c.Params.ForceFlow,
	}
	if c.Params.DryRun {
		c.Log.Infow("dry_run_intent", "tick", c.tick, "flavor", "prediction",
			"amount_wei", intent.AmountIn.String(), "force_flow", intent.ForceFlow)
		report.Outcome = OutcomeDryRun
		return report
	}
	return c.executeAndVerify(ctx, report, intent)
}

func (c *Controller) executeAndVerify(ctx context.Context, report TickReport, intent executor.Intent) TickReport {
	execPre, err := c.Accountant.Snapshot(ctx, c.ExecutorAddr)
	if err != nil {
		return c.failed(report, err)
	}
	walletPre, err := c.Accountant.Snapshot(ctx, c.Wallet)
	if err != nil {
		return c.failed(report, err)
	}
	for _, w := range accounting.ResidualWarnings(execPre) {
		c.Log.Warnw("pre_trade_residual", "tick", c.tick, "residual", w.String())
	}

	// On-chain side effects are not cancellable: shield the execute and
	// receipt wait from shutdown, then let the loop exit afterwards.
	execCtx := context.WithoutCancel(ctx)
	result, err := c.Executor.Execute(execCtx, intent)
	if result != nil {
		report.TxHash = result.TxHash
	}
	if err != nil {
		switch {
		case errors.Is(err, executor.ErrMinProfitNotMet):
			// The guard held; balances did not move, so no comparison.
			report.Outcome = OutcomeSkipped
			report.ErrKind, report.Suggested = classify(err)
			return report
		case errors.Is(err, executor.ErrTimedOut):
			c.pending = &pendingTrade{
				txHash:    report.TxHash,
				execPre:   execPre,
				walletPre: walletPre,
				amountWei: intent.AmountIn,
			}
			return c.failed(report, err)
		default:
			return c.failed(report, err)
		}
	}

	execPost, err := c.Accountant.Snapshot(execCtx, c.ExecutorAddr)
	if err != nil {
		return c.failed(report, err)
	}
	walletPost, err := c.Accountant.Snapshot(execCtx, c.Wallet)
	if err != nil {
		return c.failed(report, err)
	}

	profit, err := accounting.VerifyProfit(execPre, execPost, walletPre, walletPost, intent.AmountIn, intent.MinProfit)
	if err != nil {
		return c.failed(report, err)
	}
	report.Profit = profit
	report.Residuals = accounting.ResidualWarnings(execPost)
	report.Outcome = OutcomeExecuted

	c.Log.Infow("trade_summary",
		"tick", c.tick,
		"tx", report.TxHash,
		"executor_delta", profit.Executor.StringFixed(6),
		"wallet_delta", profit.Wallet.StringFixed(6),
		"profit_pct", profit.Percent.StringFixed(4),
		"target_met", profit.MetTarget,
	)
	if profit.ExecutorDelta.Sign() < 0 {
		// Negative profit is reported, never compensated: the operator's
		// min_profit may allow it.
		c.Log.Warnw("negative_profit", "tick", c.tick, "delta", profit.Executor.StringFixed(6))
	}
	for _, w := range report.Residuals {
		c.Log.Warnw("post_trade_residual", "tick", c.tick, "residual", w.String())
	}

	c.logPostTradePrices(ctx)
	return report
}

// logPostTradePrices re-reads the pools after a settled trade to show the
// remaining deviation. Best-effort: failures only log.
func (c *Controller) logPostTradePrices(ctx context.Context) {
	if c.Params.BotType == "prediction" {
		return
	}
	prices, err := c.Prices.FetchTick(ctx)
	if err != nil {
		c.Log.Warnw("post_trade_price_fetch_failed", "tick", c.tick, "err", err)
		return
	}
	implied := detect.Implied(prices)
	c.Log.Infow("post_trade_prices",
		"tick", c.tick,
		"spot", prices.Spot.StringFixed(6),
		"implied", implied.StringFixed(6),
		"deviation", prices.Spot.Sub(implied).Abs().StringFixed(6),
	)
}

// reconcilePending re-reads balances after a timed-out trade. If the
// transaction settled late, the retroactive profit is reported here.
func (c *Controller) reconcilePending(ctx context.Context) {
	if c.pending == nil {
		return
	}
	p := c.pending
	c.pending = nil

	execPost, err := c.Accountant.Snapshot(ctx, c.ExecutorAddr)
	if err != nil {
		c.Log.Warnw("reconcile_failed", "tick", c.tick, "tx", p.txHash, "err", err)
		return
	}
	walletPost, err := c.Accountant.Snapshot(ctx, c.Wallet)
	if err != nil {
		c.Log.Warnw("reconcile_failed", "tick", c.tick, "tx", p.txHash, "err", err)
		return
	}
	profit, err := accounting.VerifyProfit(p.execPre, execPost, p.walletPre, walletPost, p.amountWei, big.NewInt(0))
	if err != nil {
		c.Log.Warnw("reconcile_failed", "tick", c.tick, "tx", p.txHash, "err", err)
		return
	}
	c.Log.Infow("reconciled_timed_out_trade",
		"tick", c.tick,
		"tx", p.txHash,
		"executor_delta", profit.Executor.StringFixed(6),
		"wallet_delta", profit.Wallet.StringFixed(6),
	)
}

func (c *Controller) failed(report TickReport, err error) TickReport {
	report.Outcome = OutcomeError
	report.Err = err.Error()
	report.ErrKind, report.Suggested = classify(err)
	return report
}
