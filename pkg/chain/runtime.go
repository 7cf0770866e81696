package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Runtime carries the connected RPC client, the signing account, and the
// chain id. It is constructed once in main and passed explicitly to every
// component; nothing chain-related lives in package globals.
type Runtime struct {
	Client  *ethclient.Client
	Signer  *Signer
	ChainID *big.Int
	Log     *zap.SugaredLogger
}

// Dial connects to the RPC endpoint and verifies the chain id. When
// expectChainID is nonzero and the node reports a different id, Dial
// fails rather than letting the bot sign for the wrong chain.
func Dial(ctx context.Context, rpcURL string, expectChainID int64, log *zap.SugaredLogger) (*Runtime, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	if expectChainID != 0 && chainID.Int64() != expectChainID {
		client.Close()
		return nil, fmt.Errorf("chain id mismatch: node reports %d, config expects %d", chainID, expectChainID)
	}

	log.Infow("rpc_connected", "chain_id", chainID.Int64())
	return &Runtime{Client: client, ChainID: chainID, Log: log}, nil
}

// Close releases the underlying RPC client.
func (r *Runtime) Close() {
	if r.Client != nil {
		r.Client.Close()
	}
}
