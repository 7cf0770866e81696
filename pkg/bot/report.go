package bot

import (
	"errors"
	"time"

	"github.com/futarchy-tools/arbot/pkg/accounting"
	"github.com/futarchy-tools/arbot/pkg/chain"
	"github.com/futarchy-tools/arbot/pkg/config"
	"github.com/futarchy-tools/arbot/pkg/detect"
	"github.com/futarchy-tools/arbot/pkg/executor"
	"github.com/futarchy-tools/arbot/pkg/oracle"
)

// Outcome summarises how a tick ended.
type Outcome string

const (
	OutcomeNoOpportunity Outcome = "no_opportunity"
	OutcomeExecuted      Outcome = "executed"
	OutcomeSkipped       Outcome = "skipped"
	OutcomeDryRun        Outcome = "dry_run"
	OutcomeError         Outcome = "error"
)

// TickReport is the user-facing record of one tick. It carries the error
// kind, the tick index, the transaction hash when one exists, and a
// suggested operator action — everything a report needs per the error
// design.
type TickReport struct {
	Index     uint64    `json:"index"`
	StartedAt time.Time `json:"started_at"`
	Outcome   Outcome   `json:"outcome"`

	Prices  *oracle.TickPrices `json:"prices,omitempty"`
	Verdict *detect.Verdict    `json:"verdict,omitempty"`

	TxHash    string                       `json:"tx_hash,omitempty"`
	Profit    *accounting.ProfitReport     `json:"profit,omitempty"`
	Residuals []accounting.ResidualWarning `json:"residuals,omitempty"`

	ErrKind   string `json:"err_kind,omitempty"`
	Err       string `json:"err,omitempty"`
	Suggested string `json:"suggested_action,omitempty"`
}

// classify maps an error to its taxonomy kind and a suggested operator
// action.
func classify(err error) (kind, suggested string) {
	switch {
	case errors.Is(err, config.ErrIncomplete):
		return "config_incomplete", "set the missing configuration keys and restart"
	case errors.Is(err, oracle.ErrPoolDecode):
		return "pool_decode_error", "verify the pool addresses and ABI expectations"
	case errors.Is(err, oracle.ErrRPCTransient):
		return "rpc_transient", "transient RPC failure; will retry next tick"
	case errors.Is(err, executor.ErrMinProfitNotMet):
		return "min_profit_not_met", "no action needed; guard held"
	case errors.Is(err, executor.ErrSimulationFailed):
		return "simulation_failed", "inspect the failed estimate or rerun with --force-send"
	case errors.Is(err, executor.ErrTimedOut):
		return "timed_out", "transaction may still settle; next tick reconciles balances"
	case errors.Is(err, executor.ErrSendReverted):
		return "send_reverted", "inspect the transaction on the block explorer"
	case errors.Is(err, executor.ErrPrefundFailed):
		return "prefund_failed", "check wallet base currency balance and allowances"
	case errors.Is(err, chain.ErrSignerUnavailable):
		return "signer_unavailable", "configure PRIVATE_KEY or run with --dry-run"
	default:
		return "internal", "inspect logs"
	}
}
