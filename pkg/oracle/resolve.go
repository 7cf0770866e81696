package oracle

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ResolveBaseIndex fixes a descriptor's BaseTokenIndex so its price is
// quoted for baseToken. Pool token ordering is an on-chain accident; the
// proposal config only knows which token should be the base, so the
// slot is discovered once at startup.
func (o *Oracle) ResolveBaseIndex(ctx context.Context, desc PoolDescriptor, baseToken common.Address) (PoolDescriptor, error) {
	switch desc.Kind {
	case Concentrated:
		token0, err := o.poolToken(ctx, desc.Address, algebraPoolABI, "token0")
		if err != nil {
			return desc, err
		}
		token1, err := o.poolToken(ctx, desc.Address, algebraPoolABI, "token1")
		if err != nil {
			return desc, err
		}
		switch baseToken {
		case token0:
			desc.BaseTokenIndex = 0
		case token1:
			desc.BaseTokenIndex = 1
		default:
			return desc, fmt.Errorf("%w: pool %s holds neither side as %s",
				ErrPoolDecode, desc.ID, baseToken.Hex())
		}
		return desc, nil

	case Weighted:
		vals, err := o.call(ctx, desc.Vault, balancerVaultABI, "getPoolTokenInfo", desc.Address)
		if err != nil {
			return desc, err
		}
		tokens, ok := vals[0].([]common.Address)
		if !ok {
			return desc, fmt.Errorf("%w: pool %s vault token list undecodable", ErrPoolDecode, desc.ID)
		}
		for i, t := range tokens {
			if t == baseToken {
				desc.BaseTokenIndex = i
				return desc, nil
			}
		}
		return desc, fmt.Errorf("%w: pool %s does not contain %s", ErrPoolDecode, desc.ID, baseToken.Hex())

	default:
		return desc, fmt.Errorf("%w: cannot resolve base index for kind %s", ErrPoolDecode, desc.Kind)
	}
}
