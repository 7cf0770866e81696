package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/futarchy-tools/arbot/pkg/accounting"
	"github.com/futarchy-tools/arbot/pkg/api"
	"github.com/futarchy-tools/arbot/pkg/bot"
	"github.com/futarchy-tools/arbot/pkg/chain"
	"github.com/futarchy-tools/arbot/pkg/config"
	"github.com/futarchy-tools/arbot/pkg/executor"
	"github.com/futarchy-tools/arbot/pkg/journal"
	"github.com/futarchy-tools/arbot/pkg/oracle"
	"github.com/futarchy-tools/arbot/pkg/util"
)

// Exit codes: 0 normal termination, 1 fatal configuration or startup
// error, 2 invalid CLI arguments.
const (
	exitOK      = 0
	exitFatal   = 1
	exitBadArgs = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	flags := flag.NewFlagSet("arbitrage-bot", flag.ContinueOnError)

	configPath := flags.String("config", "", "path to JSON configuration file")
	envPath := flags.String("env", "", "path to .env file with configuration")
	amount := flags.String("amount", "", "base currency committed per trade (decimal, ether units)")
	interval := flags.Int("interval", 0, "seconds between price checks")
	tolerance := flags.String("tolerance", "", "minimum price deviation to trigger a trade")
	minProfit := flags.String("min-profit", "", "minimum profit required (decimal, may be negative)")
	botType := flags.String("bot-type", "", "bot flavor: balancer|kleros|pnk|prediction")
	forceFlow := flags.String("force-flow", "", "prediction mode only: force buy or sell")
	dryRun := flags.Bool("dry-run", false, "detect and log the intended call without signing or sending")
	prefund := flags.Bool("prefund", false, "top the executor's base currency up to the trade amount first")
	dumpConfig := flags.String("dump-config", "", "write effective merged config to path (or '-' for stdout) and exit")
	rpcURL := flags.String("rpc-url", "", "RPC endpoint (overrides config)")
	gasLimit := flags.Uint64("gas", 0, "explicit gas limit override for executor calls")
	forceSend := flags.Bool("force-send", false, "fall back to the default gas limit when estimation reverts")
	journalDir := flags.String("journal", "", "directory for the tick/trade journal (disabled when empty)")
	apiAddr := flags.String("api-addr", "", "listen address for the status API (disabled when empty)")
	logFile := flags.String("log-file", "", "also write logs to this file")
	executorCmd := flags.String("executor-cmd", "", "run the executor out of process via this command (subprocess shim)")
	receiptTimeout := flags.Duration("receipt-timeout", chain.DefaultReceiptTimeout, "receipt wait window per transaction")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return exitBadArgs
	}
	if *configPath != "" && *envPath != "" {
		fmt.Fprintln(os.Stderr, "--config and --env are mutually exclusive")
		return exitBadArgs
	}
	if *amount != "" {
		d, err := decimal.NewFromString(*amount)
		if err != nil || d.Sign() <= 0 {
			fmt.Fprintf(os.Stderr, "--amount must be a positive decimal, got %q\n", *amount)
			return exitBadArgs
		}
	}
	switch *forceFlow {
	case "", "buy", "sell":
	default:
		fmt.Fprintf(os.Stderr, "--force-flow must be buy or sell, got %q\n", *forceFlow)
		return exitBadArgs
	}

	overrides := map[string]string{
		"bot.run_options.amount":     *amount,
		"bot.run_options.tolerance":  *tolerance,
		"bot.run_options.min_profit": *minProfit,
		"bot.run_options.force_flow": *forceFlow,
		"bot.type":                   *botType,
		"network.rpc_url":            *rpcURL,
	}
	if *interval > 0 {
		overrides["bot.run_options.interval_seconds"] = fmt.Sprintf("%d", *interval)
	}

	cfg, err := config.Load(config.Sources{
		BaseEnvPath: ".env",
		EnvFilePath: *envPath,
		JSONPath:    *configPath,
		Overrides:   overrides,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		return exitFatal
	}

	if *dumpConfig != "" {
		if err := dump(cfg, *dumpConfig); err != nil {
			fmt.Fprintf(os.Stderr, "dump config failed: %v\n", err)
			return exitFatal
		}
		return exitOK
	}

	if err := cfg.Validate(*dryRun); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitFatal
	}
	view, err := cfg.TypedView()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config invalid: %v\n", err)
		return exitFatal
	}
	if view.Amount.Sign() <= 0 {
		fmt.Fprintln(os.Stderr, "trade amount missing: set --amount or bot.run_options.amount")
		return exitBadArgs
	}
	if view.BotType != config.BotPrediction && view.Tolerance.Sign() <= 0 {
		fmt.Fprintln(os.Stderr, "tolerance missing: set --tolerance or bot.run_options.tolerance")
		return exitBadArgs
	}

	logger, err := newLogger(*logFile)
	if err != nil {
		log.Printf("logger: %v", err)
		return exitFatal
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runBot(ctx, cfg, view, sugar, botFlags{
		dryRun:         *dryRun,
		prefund:        *prefund,
		gasLimit:       *gasLimit,
		forceSend:      *forceSend,
		journalDir:     *journalDir,
		apiAddr:        *apiAddr,
		executorCmd:    *executorCmd,
		receiptTimeout: *receiptTimeout,
	}); err != nil {
		if ctx.Err() != nil {
			// Cancelled by signal: normal termination.
			return exitOK
		}
		sugar.Errorw("bot_failed", "err", err)
		return exitFatal
	}
	return exitOK
}

type botFlags struct {
	dryRun         bool
	prefund        bool
	gasLimit       uint64
	forceSend      bool
	journalDir     string
	apiAddr        string
	executorCmd    string
	receiptTimeout time.Duration
}

func runBot(ctx context.Context, cfg *config.Config, view *config.View, sugar *zap.SugaredLogger, f botFlags) error {
	rt, err := chain.Dial(ctx, view.RPCURL, view.ChainID, sugar)
	if err != nil {
		return err
	}
	defer rt.Close()

	if view.PrivateKey != "" {
		var signer *chain.Signer
		if view.DerivationPath != "" {
			signer, err = chain.DeriveSigner(view.PrivateKey, view.DerivationPath)
		} else {
			signer, err = chain.FromPrivateKeyHex(view.PrivateKey)
		}
		if err != nil {
			return err
		}
		rt.Signer = signer
		sugar.Infow("wallet_loaded", "address", signer.Address().Hex())
	} else if !f.dryRun {
		return chain.ErrSignerUnavailable
	}

	executorAddr := view.Executor
	if view.BotType == config.BotPrediction {
		executorAddr = view.ExecutorPrediction
	}
	sugar.Infow("monitoring_executor", "address", executorAddr.Hex(), "bot_type", view.BotType)

	orc := oracle.New(rt)

	// Prediction mode delegates pricing to the executor contract, so the
	// pool fan-out is only wired for the detecting flavors.
	var pools oracle.ProposalPools
	if view.BotType != config.BotPrediction {
		if pools, err = buildPools(ctx, orc, view); err != nil {
			return err
		}
	}

	accountant := accounting.New(rt, accounting.TokenSet{
		BaseCurrency: view.Currency,
		BaseCompany:  view.Company,
		YesCurrency:  view.YesCurrency,
		NoCurrency:   view.NoCurrency,
		YesCompany:   view.YesCompany,
		NoCompany:    view.NoCompany,
	})

	gasCfg := chain.GasConfig{
		PriorityFeeWei:     view.PriorityFeeWei,
		MaxFeeMultiplier:   view.MaxFeeMultiplier,
		MinGasPriceBumpWei: view.MinGasPriceBumpWei,
	}

	var exec executor.TradeExecutor
	if f.executorCmd != "" {
		exec = &executor.Shim{
			Command: strings.Fields(f.executorCmd),
			Config:  cfg,
			Timeout: f.receiptTimeout,
			Log:     sugar,
		}
	} else {
		exec = executor.NewAdapter(rt, flavorFor(view.BotType), executor.Addresses{
			Executor:       executorAddr,
			BalancerRouter: view.BalancerRouter,
			BalancerVault:  view.BalancerVault,
			SwaprRouter:    view.SwaprRouter,
			FutarchyRouter: view.FutarchyRouter,
			Proposal:       view.ProposalAddress,
			Currency:       view.Currency,
			Company:        view.Company,
			YesCurrency:    view.YesCurrency,
			NoCurrency:     view.NoCurrency,
			YesCompany:     view.YesCompany,
			NoCompany:      view.NoCompany,
			PoolPredYes:    view.PoolPredYes,
			PoolPredNo:     view.PoolPredNo,
		}, gasCfg, executor.Options{
			GasLimit:       f.gasLimit,
			ForceSend:      f.forceSend,
			ReceiptTimeout: f.receiptTimeout,
		}, sugar)
	}

	var wallet common.Address
	if rt.Signer != nil {
		wallet = rt.Signer.Address()
	}

	controller := &bot.Controller{
		Prices:       tickSource{orc: orc, pools: pools},
		Accountant:   accountant,
		Executor:     exec,
		Clock:        util.RealClock{},
		Log:          sugar,
		Wallet:       wallet,
		ExecutorAddr: executorAddr,
		Params: bot.Params{
			BotType:      view.BotType,
			AmountWei:    toWei(view.Amount),
			Interval:     view.Interval,
			Tolerance:    view.Tolerance,
			MinProfitWei: toWei(view.MinProfit),
			ForceFlow:    view.ForceFlow,
			DryRun:       f.dryRun,
			Prefund:      f.prefund,
		},
	}

	var hooks []func(bot.TickReport)

	var jnl *journal.Journal
	if f.journalDir != "" {
		if jnl, err = journal.Open(f.journalDir); err != nil {
			return err
		}
		defer jnl.Close()
		hooks = append(hooks, func(r bot.TickReport) {
			if err := jnl.SaveTick(r); err != nil {
				sugar.Warnw("journal_write_failed", "tick", r.Index, "err", err)
			}
		})
	}

	if f.apiAddr != "" {
		srv := statusServer(view, executorAddr, wallet, f, sugar)
		srv.Journal = jnl
		srv.Balances = balanceReader(accountant, wallet, executorAddr)
		hooks = append(hooks, srv.Record)
		go func() {
			if err := srv.Start(f.apiAddr); err != nil {
				sugar.Errorw("api_server_failed", "err", err)
			}
		}()
	}

	if len(hooks) > 0 {
		controller.OnTick = func(r bot.TickReport) {
			for _, h := range hooks {
				h(r)
			}
		}
	}

	err = controller.Run(ctx)
	if err == context.Canceled || ctx.Err() != nil {
		return nil
	}
	return err
}

// tickSource binds the oracle to the resolved pool set.
type tickSource struct {
	orc   *oracle.Oracle
	pools oracle.ProposalPools
}

func (t tickSource) FetchTick(ctx context.Context) (oracle.TickPrices, error) {
	return t.orc.FetchTick(ctx, t.pools)
}

// buildPools resolves each pool's base token slot against the proposal's
// token set, then picks the spot source by flavor.
func buildPools(ctx context.Context, orc *oracle.Oracle, view *config.View) (oracle.ProposalPools, error) {
	var pools oracle.ProposalPools
	var err error

	resolve := func(id string, addr, base common.Address) (oracle.PoolDescriptor, error) {
		return orc.ResolveBaseIndex(ctx, oracle.PoolDescriptor{
			ID:      id,
			Address: addr,
			Kind:    oracle.Concentrated,
		}, base)
	}

	if pools.Yes, err = resolve("swapr_yes", view.PoolYes, view.YesCompany); err != nil {
		return pools, err
	}
	if pools.No, err = resolve("swapr_no", view.PoolNo, view.NoCompany); err != nil {
		return pools, err
	}
	if pools.PredYes, err = resolve("swapr_pred_yes", view.PoolPredYes, view.YesCurrency); err != nil {
		return pools, err
	}
	if pools.PredNo, err = resolve("swapr_pred_no", view.PoolPredNo, view.NoCurrency); err != nil {
		return pools, err
	}

	switch view.BotType {
	case config.BotKleros, config.BotPNK:
		pools.Spot = oracle.PNKSpot{
			Oracle:        orc,
			PNKWETHPool:   view.PNKWETHPool,
			WETHWXDAIPool: view.WETHWXDAIPool,
			WETH:          view.WETH,
			SDAI:          view.Currency,
		}
	default:
		desc, err := orc.ResolveBaseIndex(ctx, oracle.PoolDescriptor{
			ID:      "weighted_spot",
			Address: view.BalancerPool,
			Kind:    oracle.Weighted,
			Vault:   view.BalancerVault,
		}, view.Company)
		if err != nil {
			return pools, err
		}
		pools.Spot = oracle.WeightedSpot{Oracle: orc, Desc: desc}
	}
	return pools, nil
}

func statusServer(view *config.View, executorAddr, wallet common.Address, f botFlags, sugar *zap.SugaredLogger) *api.Server {
	return api.NewServer(api.BotInfo{
		BotType:   view.BotType,
		Proposal:  view.ProposalAddress.Hex(),
		Executor:  executorAddr.Hex(),
		Wallet:    wallet.Hex(),
		Amount:    view.Amount.String(),
		Interval:  view.Interval.String(),
		Tolerance: view.Tolerance.String(),
		MinProfit: view.MinProfit.String(),
		DryRun:    f.dryRun,
	}, sugar)
}

func balanceReader(acc *accounting.Accountant, wallet, executorAddr common.Address) func(ctx context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		execSnap, err := acc.Snapshot(ctx, executorAddr)
		if err != nil {
			return nil, err
		}
		walletSnap, err := acc.Snapshot(ctx, wallet)
		if err != nil {
			return nil, err
		}
		return map[string]any{"executor": execSnap, "wallet": walletSnap}, nil
	}
}

func flavorFor(botType string) executor.Flavor {
	switch botType {
	case config.BotPrediction:
		return executor.PredictionV1
	case config.BotKleros, config.BotPNK:
		return executor.PNK
	default:
		return executor.FutarchyV5
	}
}

// toWei converts ether-unit decimals into signed base units (18
// decimals), truncating sub-wei dust.
func toWei(d decimal.Decimal) *big.Int {
	return d.Shift(18).Truncate(0).BigInt()
}

func dump(cfg *config.Config, target string) error {
	payload, err := cfg.DumpJSON()
	if err != nil {
		return err
	}
	if target == "-" {
		fmt.Println(string(payload))
		return nil
	}
	return os.WriteFile(target, append(payload, '\n'), 0600)
}

func newLogger(logFile string) (*zap.Logger, error) {
	if logFile != "" {
		return util.NewLoggerWithFile(logFile)
	}
	return util.NewLogger()
}
