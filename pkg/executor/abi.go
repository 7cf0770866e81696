package executor

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// FutarchyArbExecutorV5. The buy and sell entrypoints take the full
// address set, the committed amount, the cheaper-leg switch, and the
// signed profit guard. The PNK entrypoint keeps slots for the spot leg
// (buy ops, Balancer router and vault) but drops the cheaper-leg switch;
// the adapter leaves the spot-leg slots empty because that hop is fixed
// at deployment.
const futarchyV5ABIJSON = `[
  {"inputs":[
    {"internalType":"address","name":"balancer_router","type":"address"},
    {"internalType":"address","name":"comp","type":"address"},
    {"internalType":"address","name":"cur","type":"address"},
    {"internalType":"address","name":"futarchy_router","type":"address"},
    {"internalType":"address","name":"proposal","type":"address"},
    {"internalType":"address","name":"yes_comp","type":"address"},
    {"internalType":"address","name":"no_comp","type":"address"},
    {"internalType":"address","name":"yes_cur","type":"address"},
    {"internalType":"address","name":"no_cur","type":"address"},
    {"internalType":"address","name":"swapr_router","type":"address"},
    {"internalType":"uint256","name":"amount_in","type":"uint256"},
    {"internalType":"bool","name":"yes_cheaper","type":"bool"},
    {"internalType":"int256","name":"min_profit","type":"int256"}],
   "name":"buy_conditional_arbitrage","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[
    {"internalType":"address","name":"balancer_router","type":"address"},
    {"internalType":"address","name":"comp","type":"address"},
    {"internalType":"address","name":"cur","type":"address"},
    {"internalType":"address","name":"futarchy_router","type":"address"},
    {"internalType":"address","name":"proposal","type":"address"},
    {"internalType":"address","name":"yes_comp","type":"address"},
    {"internalType":"address","name":"no_comp","type":"address"},
    {"internalType":"address","name":"yes_cur","type":"address"},
    {"internalType":"address","name":"no_cur","type":"address"},
    {"internalType":"address","name":"swapr_router","type":"address"},
    {"internalType":"uint256","name":"amount_in","type":"uint256"},
    {"internalType":"bool","name":"yes_cheaper","type":"bool"},
    {"internalType":"int256","name":"min_profit","type":"int256"}],
   "name":"sell_conditional_arbitrage","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[
    {"internalType":"bytes","name":"buy_company_ops","type":"bytes"},
    {"internalType":"address","name":"balancer_router","type":"address"},
    {"internalType":"address","name":"balancer_vault","type":"address"},
    {"internalType":"address","name":"comp","type":"address"},
    {"internalType":"address","name":"cur","type":"address"},
    {"internalType":"address","name":"futarchy_router","type":"address"},
    {"internalType":"address","name":"proposal","type":"address"},
    {"internalType":"address","name":"yes_comp","type":"address"},
    {"internalType":"address","name":"no_comp","type":"address"},
    {"internalType":"address","name":"yes_cur","type":"address"},
    {"internalType":"address","name":"no_cur","type":"address"},
    {"internalType":"address","name":"swapr_router","type":"address"},
    {"internalType":"uint256","name":"amount_sdai_in","type":"uint256"},
    {"internalType":"int256","name":"min_out_final","type":"int256"}],
   "name":"sell_conditional_arbitrage_pnk","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[
    {"internalType":"address","name":"token","type":"address"},
    {"internalType":"address","name":"to","type":"address"},
    {"internalType":"uint256","name":"amount","type":"uint256"}],
   "name":"withdrawToken","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// PredictionArbExecutorV1. Flow is derived on-chain from the two
// prediction pools unless force_flow (0 auto, 1 buy, 2 sell) pins it.
const predictionV1ABIJSON = `[
  {"inputs":[
    {"internalType":"address","name":"futarchy_router","type":"address"},
    {"internalType":"address","name":"proposal","type":"address"},
    {"internalType":"address","name":"cur","type":"address"},
    {"internalType":"address","name":"yes_cur","type":"address"},
    {"internalType":"address","name":"no_cur","type":"address"},
    {"internalType":"address","name":"swapr_router","type":"address"},
    {"internalType":"address","name":"pool_pred_yes","type":"address"},
    {"internalType":"address","name":"pool_pred_no","type":"address"},
    {"internalType":"uint256","name":"amount_in","type":"uint256"},
    {"internalType":"int256","name":"min_profit","type":"int256"},
    {"internalType":"uint8","name":"force_flow","type":"uint8"}],
   "name":"run_prediction_arbitrage","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[
    {"internalType":"address","name":"token","type":"address"},
    {"internalType":"address","name":"to","type":"address"},
    {"internalType":"uint256","name":"amount","type":"uint256"}],
   "name":"withdrawToken","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

var (
	futarchyV5ABI   = mustABI(futarchyV5ABIJSON)
	predictionV1ABI = mustABI(predictionV1ABIJSON)
)

func mustABI(src string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(src))
	if err != nil {
		panic(fmt.Errorf("parse abi: %w", err))
	}
	return parsed
}
