package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// The env catalogue is the fixed two-way mapping between environment
// variable names and dotted config paths. Downstream components that
// consume environment variables (the subprocess shim in particular) see
// exactly this namespace, so the mapping must stay stable.
var pathToEnv = map[string]string{
	"bot.type":                                              "BOT_TYPE",
	"network.rpc_url":                                       "RPC_URL",
	"network.chain_id":                                      "CHAIN_ID",
	"wallet.private_key":                                    "PRIVATE_KEY",
	"wallet.derivation_path":                                "WALLET_DERIVATION_PATH",
	"contracts.executor_v5":                                 "FUTARCHY_ARB_EXECUTOR_V5",
	"contracts.executor_prediction_v1":                      "PREDICTION_ARB_EXECUTOR_V1",
	"contracts.routers.balancer":                            "BALANCER_ROUTER_ADDRESS",
	"contracts.routers.balancer_vault":                      "BALANCER_VAULT_ADDRESS",
	"contracts.routers.swapr":                               "SWAPR_ROUTER_ADDRESS",
	"contracts.routers.futarchy":                            "FUTARCHY_ROUTER_ADDRESS",
	"proposal.address":                                      "FUTARCHY_PROPOSAL_ADDRESS",
	"proposal.tokens.currency.address":                      "SDAI_TOKEN_ADDRESS",
	"proposal.tokens.company.address":                       "COMPANY_TOKEN_ADDRESS",
	"proposal.tokens.yes_currency.address":                  "SWAPR_SDAI_YES_ADDRESS",
	"proposal.tokens.no_currency.address":                   "SWAPR_SDAI_NO_ADDRESS",
	"proposal.tokens.yes_company.address":                   "SWAPR_GNO_YES_ADDRESS",
	"proposal.tokens.no_company.address":                    "SWAPR_GNO_NO_ADDRESS",
	"proposal.pools.balancer_company_currency.address":      "BALANCER_POOL_ADDRESS",
	"proposal.pools.swapr_yes_company_yes_currency.address": "SWAPR_POOL_YES_ADDRESS",
	"proposal.pools.swapr_no_company_no_currency.address":   "SWAPR_POOL_NO_ADDRESS",
	"proposal.pools.swapr_yes_currency_currency.address":    "SWAPR_POOL_PRED_YES_ADDRESS",
	"proposal.pools.swapr_no_currency_currency.address":     "SWAPR_POOL_PRED_NO_ADDRESS",
	"proposal.pools.pnk_weth.address":                       "PNK_WETH_POOL_ADDRESS",
	"proposal.pools.weth_wxdai.address":                     "WETH_WXDAI_POOL_ADDRESS",
	"proposal.tokens.weth.address":                          "WETH_ADDRESS",
	"gas.priority_fee_wei":                                  "PRIORITY_FEE_WEI",
	"gas.max_fee_multiplier":                                "MAX_FEE_MULTIPLIER",
	"gas.min_gas_price_bump_wei":                            "MIN_GAS_PRICE_BUMP_WEI",
}

var envToPath = invert(pathToEnv)

// criticalEnvKeys are always re-overlaid from the process environment
// after all file layers merged, so a stale config file can never shadow
// the operator's live credentials or addresses.
var criticalEnvKeys = []string{
	"PRIVATE_KEY",
	"FUTARCHY_ARB_EXECUTOR_V5",
	"PREDICTION_ARB_EXECUTOR_V1",
	"RPC_URL",
	"CHAIN_ID",
	"BALANCER_ROUTER_ADDRESS",
	"BALANCER_VAULT_ADDRESS",
	"SWAPR_ROUTER_ADDRESS",
	"FUTARCHY_ROUTER_ADDRESS",
	"BALANCER_POOL_ADDRESS",
	"SWAPR_POOL_YES_ADDRESS",
	"SWAPR_POOL_NO_ADDRESS",
	"SWAPR_POOL_PRED_YES_ADDRESS",
	"SWAPR_POOL_PRED_NO_ADDRESS",
	"SDAI_TOKEN_ADDRESS",
	"COMPANY_TOKEN_ADDRESS",
}

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// Materialise flattens the effective config into the environment-variable
// namespace. Only catalogued keys appear; runtime options stay CLI-side.
func (c *Config) Materialise() map[string]string {
	out := map[string]string{}
	for path, env := range pathToEnv {
		if v := c.values[path]; v != "" {
			out[env] = v
		}
	}
	return out
}

// WriteEnvFile renders the materialised config as KEY=value lines at the
// given path, creating parent directories as needed. Keys are sorted so
// repeated runs produce identical files for identical configs.
func (c *Config) WriteEnvFile(path string) error {
	env := c.Materialise()
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, env[k])
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create env dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("write env file: %w", err)
	}
	return nil
}
