package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Minimal ERC-20 surface: balance reads for the accountant, transfer for
// prefunds, approve for router allowances.
const erc20ABIJSON = `[
  {"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
  {"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
  {"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

var erc20ABI = mustParseABI(erc20ABIJSON)

func mustParseABI(src string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(src))
	if err != nil {
		panic(fmt.Errorf("parse abi: %w", err))
	}
	return parsed
}

// ERC20 is a read/encode helper bound to one token contract.
type ERC20 struct {
	Token common.Address
	rt    *Runtime
}

// NewERC20 binds the minimal ERC-20 interface to a token address.
func (r *Runtime) NewERC20(token common.Address) *ERC20 {
	return &ERC20{Token: token, rt: r}
}

// BalanceOf reads the holder's balance in base units.
func (t *ERC20) BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", holder)
	if err != nil {
		return nil, err
	}
	out, err := t.rt.Client.CallContract(ctx, ethereum.CallMsg{To: &t.Token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf %s: %w", t.Token.Hex(), err)
	}
	vals, err := erc20ABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("decode balanceOf %s: %w", t.Token.Hex(), err)
	}
	return vals[0].(*big.Int), nil
}

// Decimals reads the token's decimal count.
func (t *ERC20) Decimals(ctx context.Context) (uint8, error) {
	data, err := erc20ABI.Pack("decimals")
	if err != nil {
		return 0, err
	}
	out, err := t.rt.Client.CallContract(ctx, ethereum.CallMsg{To: &t.Token, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("decimals %s: %w", t.Token.Hex(), err)
	}
	vals, err := erc20ABI.Unpack("decimals", out)
	if err != nil {
		return 0, fmt.Errorf("decode decimals %s: %w", t.Token.Hex(), err)
	}
	return vals[0].(uint8), nil
}

// TransferData encodes transfer(to, amount) calldata.
func (t *ERC20) TransferData(to common.Address, amount *big.Int) ([]byte, error) {
	return erc20ABI.Pack("transfer", to, amount)
}

// ApproveData encodes approve(spender, amount) calldata.
func (t *ERC20) ApproveData(spender common.Address, amount *big.Int) ([]byte, error) {
	return erc20ABI.Pack("approve", spender, amount)
}
