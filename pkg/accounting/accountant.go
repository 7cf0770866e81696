package accounting

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/futarchy-tools/arbot/pkg/chain"
)

// Token labels in a snapshot. Every snapshot carries all six; tokens
// left unconfigured are not read and hold zero.
const (
	LabelBaseCurrency = "base_currency"
	LabelBaseCompany  = "base_company"
	LabelYesCurrency  = "yes_currency"
	LabelNoCurrency   = "no_currency"
	LabelYesCompany   = "yes_company"
	LabelNoCompany    = "no_company"
)

// Labels lists the snapshot labels in stable order.
var Labels = []string{
	LabelBaseCurrency, LabelBaseCompany,
	LabelYesCurrency, LabelNoCurrency,
	LabelYesCompany, LabelNoCompany,
}

// residualLabels are the tokens expected to be ~0 after a clean trade:
// every conditional plus the plain company token.
var residualLabels = []string{
	LabelBaseCompany,
	LabelYesCurrency, LabelNoCurrency,
	LabelYesCompany, LabelNoCompany,
}

// TokenSet maps snapshot labels to token contracts.
type TokenSet struct {
	BaseCurrency common.Address
	BaseCompany  common.Address
	YesCurrency  common.Address
	NoCurrency   common.Address
	YesCompany   common.Address
	NoCompany    common.Address
}

func (t TokenSet) byLabel() map[string]common.Address {
	return map[string]common.Address{
		LabelBaseCurrency: t.BaseCurrency,
		LabelBaseCompany:  t.BaseCompany,
		LabelYesCurrency:  t.YesCurrency,
		LabelNoCurrency:   t.NoCurrency,
		LabelYesCompany:   t.YesCompany,
		LabelNoCompany:    t.NoCompany,
	}
}

// Snapshot holds the six balances of one holder at one block.
type Snapshot struct {
	Holder   common.Address
	Balances map[string]*big.Int
	Decimals map[string]uint8
	Block    uint64
	TakenAt  time.Time
}

// Accountant reads balances for the wallet and the executor contract.
type Accountant struct {
	rt     *chain.Runtime
	tokens TokenSet

	mu       sync.Mutex
	decimals map[common.Address]uint8
}

// New creates an Accountant over the proposal's token set.
func New(rt *chain.Runtime, tokens TokenSet) *Accountant {
	return &Accountant{rt: rt, tokens: tokens, decimals: map[common.Address]uint8{}}
}

// Snapshot reads all six token balances of holder, tagged with the block
// number read just before them so pre/post pairs can be ordered.
func (a *Accountant) Snapshot(ctx context.Context, holder common.Address) (*Snapshot, error) {
	block, err := a.rt.Client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("block number: %w", err)
	}

	byLabel := a.tokens.byLabel()
	snap := &Snapshot{
		Holder:   holder,
		Balances: make(map[string]*big.Int, len(byLabel)),
		Decimals: make(map[string]uint8, len(byLabel)),
		Block:    block,
		TakenAt:  time.Now(),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(Labels))

	for _, label := range Labels {
		token := byLabel[label]
		// Some flavors configure only a subset of the six tokens; the
		// rest read as zero rather than failing the snapshot.
		if token == (common.Address{}) {
			mu.Lock()
			snap.Balances[label] = big.NewInt(0)
			snap.Decimals[label] = 18
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			erc := a.rt.NewERC20(token)
			bal, err := erc.BalanceOf(gctx, holder)
			if err != nil {
				return err
			}
			dec, err := a.tokenDecimals(gctx, erc)
			if err != nil {
				return err
			}
			mu.Lock()
			snap.Balances[label] = bal
			snap.Decimals[label] = dec
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (a *Accountant) tokenDecimals(ctx context.Context, erc *chain.ERC20) (uint8, error) {
	a.mu.Lock()
	if d, ok := a.decimals[erc.Token]; ok {
		a.mu.Unlock()
		return d, nil
	}
	a.mu.Unlock()

	d, err := erc.Decimals(ctx)
	if err != nil {
		return 0, err
	}
	a.mu.Lock()
	a.decimals[erc.Token] = d
	a.mu.Unlock()
	return d, nil
}

// Diff computes post - pre per token. It refuses reversed block ordering:
// snapshots must bracket exactly one executor invocation.
func Diff(pre, post *Snapshot) (map[string]*big.Int, error) {
	if post.Block < pre.Block {
		return nil, fmt.Errorf("snapshot order reversed: pre at block %d, post at block %d", pre.Block, post.Block)
	}
	out := make(map[string]*big.Int, len(pre.Balances))
	for _, label := range Labels {
		preBal, okPre := pre.Balances[label]
		postBal, okPost := post.Balances[label]
		if !okPre || !okPost {
			return nil, fmt.Errorf("snapshot missing label %q", label)
		}
		out[label] = new(big.Int).Sub(postBal, preBal)
	}
	return out, nil
}

// ResidualWarning flags a token that should have been fully consumed by
// the trade but was not.
type ResidualWarning struct {
	Label   string
	Balance decimal.Decimal
}

func (w ResidualWarning) String() string {
	return fmt.Sprintf("%s balance %s should be ~0", w.Label, w.Balance)
}

// ResidualWarnings reports conditional or plain company balances above
// the dust threshold 10^(decimals-4).
func ResidualWarnings(snap *Snapshot) []ResidualWarning {
	var out []ResidualWarning
	for _, label := range residualLabels {
		bal := snap.Balances[label]
		if bal == nil {
			continue
		}
		dec := snap.Decimals[label]
		dust := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(dec)-4), nil)
		if bal.Cmp(dust) > 0 {
			out = append(out, ResidualWarning{
				Label:   label,
				Balance: decimal.NewFromBigInt(bal, -int32(dec)),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
