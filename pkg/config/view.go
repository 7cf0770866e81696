package config

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ErrIncomplete is returned when a required effective-config key is
// absent. The wrapping error names the missing dotted paths.
var ErrIncomplete = errors.New("configuration incomplete")

// Bot flavors. The flavor picks the executor contract and the validation
// checklist.
const (
	BotBalancer   = "balancer"
	BotKleros     = "kleros"
	BotPNK        = "pnk"
	BotPrediction = "prediction"
)

// View is the typed effective configuration handed to the controller and
// its collaborators. Addresses are checked to be 20-byte hex at parse
// time; their checksum casing is not verified.
type View struct {
	BotType string

	Amount    decimal.Decimal
	Interval  time.Duration
	Tolerance decimal.Decimal
	MinProfit decimal.Decimal
	ForceFlow string

	RPCURL  string
	ChainID int64

	PrivateKey     string
	DerivationPath string

	Executor           common.Address
	ExecutorPrediction common.Address

	BalancerRouter common.Address
	BalancerVault  common.Address
	SwaprRouter    common.Address
	FutarchyRouter common.Address

	ProposalAddress common.Address

	Currency    common.Address
	Company     common.Address
	YesCurrency common.Address
	NoCurrency  common.Address
	YesCompany  common.Address
	NoCompany   common.Address

	BalancerPool common.Address
	PoolYes      common.Address
	PoolNo       common.Address
	PoolPredYes  common.Address
	PoolPredNo   common.Address

	// PNK spot feed (kleros/pnk flavors only).
	PNKWETHPool   common.Address
	WETHWXDAIPool common.Address
	WETH          common.Address

	PriorityFeeWei     *big.Int
	MaxFeeMultiplier   int64
	MinGasPriceBumpWei *big.Int
}

// Validate checks the per-flavor required-key checklist and reports every
// missing dotted path at once. Dry runs never sign, so the wallet key is
// only required for live runs.
func (c *Config) Validate(dryRun bool) error {
	botType := strings.ToLower(c.Get("bot.type"))

	var required []string
	switch botType {
	case BotPrediction:
		required = []string{
			"wallet.private_key",
			"network.rpc_url",
			"proposal.address",
			"contracts.executor_prediction_v1",
			"proposal.tokens.currency.address",
			"proposal.tokens.yes_currency.address",
			"proposal.tokens.no_currency.address",
			"proposal.pools.swapr_yes_currency_currency.address",
			"proposal.pools.swapr_no_currency_currency.address",
			"contracts.routers.swapr",
			"contracts.routers.futarchy",
		}
	default:
		required = []string{
			"wallet.private_key",
			"network.rpc_url",
			"contracts.executor_v5",
			"proposal.tokens.currency.address",
			"proposal.tokens.company.address",
			"proposal.pools.swapr_yes_company_yes_currency.address",
			"proposal.pools.swapr_yes_currency_currency.address",
			"proposal.pools.swapr_no_company_no_currency.address",
		}
		// The spot source differs by flavor: the Balancer pool, or the
		// PNK multi-hop feed.
		if botType == BotKleros || botType == BotPNK {
			required = append(required,
				"proposal.pools.pnk_weth.address",
				"proposal.pools.weth_wxdai.address",
				"proposal.tokens.weth.address",
			)
		} else {
			required = append(required, "proposal.pools.balancer_company_currency.address")
		}
	}

	var missing []string
	for _, path := range required {
		if dryRun && path == "wallet.private_key" {
			continue
		}
		if !c.Has(path) {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// TypedView parses the effective config into its typed form. Validate
// should have passed first; TypedView still reports malformed values.
func (c *Config) TypedView() (*View, error) {
	v := &View{
		BotType:        strings.ToLower(c.Get("bot.type")),
		RPCURL:         c.Get("network.rpc_url"),
		PrivateKey:     c.Get("wallet.private_key"),
		DerivationPath: c.Get("wallet.derivation_path"),
		ForceFlow:      c.Get("bot.run_options.force_flow"),
	}

	var err error
	if v.ChainID, err = c.int64At("network.chain_id"); err != nil {
		return nil, err
	}

	if v.Amount, err = c.decimalAt("bot.run_options.amount"); err != nil {
		return nil, err
	}
	if v.Tolerance, err = c.decimalAt("bot.run_options.tolerance"); err != nil {
		return nil, err
	}
	if v.MinProfit, err = c.decimalAt("bot.run_options.min_profit"); err != nil {
		return nil, err
	}
	interval, err := c.int64At("bot.run_options.interval_seconds")
	if err != nil {
		return nil, err
	}
	v.Interval = time.Duration(interval) * time.Second

	addrs := []struct {
		path string
		dst  *common.Address
	}{
		{"contracts.executor_v5", &v.Executor},
		{"contracts.executor_prediction_v1", &v.ExecutorPrediction},
		{"contracts.routers.balancer", &v.BalancerRouter},
		{"contracts.routers.balancer_vault", &v.BalancerVault},
		{"contracts.routers.swapr", &v.SwaprRouter},
		{"contracts.routers.futarchy", &v.FutarchyRouter},
		{"proposal.address", &v.ProposalAddress},
		{"proposal.tokens.currency.address", &v.Currency},
		{"proposal.tokens.company.address", &v.Company},
		{"proposal.tokens.yes_currency.address", &v.YesCurrency},
		{"proposal.tokens.no_currency.address", &v.NoCurrency},
		{"proposal.tokens.yes_company.address", &v.YesCompany},
		{"proposal.tokens.no_company.address", &v.NoCompany},
		{"proposal.pools.balancer_company_currency.address", &v.BalancerPool},
		{"proposal.pools.swapr_yes_company_yes_currency.address", &v.PoolYes},
		{"proposal.pools.swapr_no_company_no_currency.address", &v.PoolNo},
		{"proposal.pools.swapr_yes_currency_currency.address", &v.PoolPredYes},
		{"proposal.pools.swapr_no_currency_currency.address", &v.PoolPredNo},
		{"proposal.pools.pnk_weth.address", &v.PNKWETHPool},
		{"proposal.pools.weth_wxdai.address", &v.WETHWXDAIPool},
		{"proposal.tokens.weth.address", &v.WETH},
	}
	for _, a := range addrs {
		raw := c.Get(a.path)
		if raw == "" {
			continue
		}
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("%s: not a hex address: %q", a.path, raw)
		}
		*a.dst = common.HexToAddress(raw)
	}

	if v.PriorityFeeWei, err = c.bigIntAt("gas.priority_fee_wei"); err != nil {
		return nil, err
	}
	if v.MaxFeeMultiplier, err = c.int64At("gas.max_fee_multiplier"); err != nil {
		return nil, err
	}
	if v.MinGasPriceBumpWei, err = c.bigIntAt("gas.min_gas_price_bump_wei"); err != nil {
		return nil, err
	}

	return v, nil
}

func (c *Config) int64At(path string) (int64, error) {
	raw := c.Get(path)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: not an integer: %q", path, raw)
	}
	return n, nil
}

func (c *Config) decimalAt(path string) (decimal.Decimal, error) {
	raw := c.Get(path)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: not a decimal: %q", path, raw)
	}
	return d, nil
}

func (c *Config) bigIntAt(path string) (*big.Int, error) {
	raw := c.Get(path)
	if raw == "" {
		return big.NewInt(0), nil
	}
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("%s: not an integer: %q", path, raw)
	}
	return n, nil
}
