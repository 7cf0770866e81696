package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

// Well-known test vector: private key 0x01.
const testKeyHex = "0000000000000000000000000000000000000000000000000000000000000001"

func TestFromPrivateKeyHex(t *testing.T) {
	s, err := FromPrivateKeyHex(testKeyHex)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"), s.Address())

	// 0x prefix is accepted.
	prefixed, err := FromPrivateKeyHex("0x" + testKeyHex)
	require.NoError(t, err)
	require.Equal(t, s.Address(), prefixed.Address())
}

func TestFromPrivateKeyHex_Empty(t *testing.T) {
	_, err := FromPrivateKeyHex("")
	require.ErrorIs(t, err, ErrSignerUnavailable)
}

func TestFromPrivateKeyHex_Garbage(t *testing.T) {
	_, err := FromPrivateKeyHex("zz")
	require.Error(t, err)
}

func TestDeriveSigner_Deterministic(t *testing.T) {
	a1, err := DeriveSigner(testKeyHex, "m/arb/0")
	require.NoError(t, err)
	a2, err := DeriveSigner(testKeyHex, "m/arb/0")
	require.NoError(t, err)
	require.Equal(t, a1.Address(), a2.Address())

	b, err := DeriveSigner(testKeyHex, "m/arb/1")
	require.NoError(t, err)
	require.NotEqual(t, a1.Address(), b.Address())

	// A derived child never equals the master's own address.
	master, err := FromPrivateKeyHex(testKeyHex)
	require.NoError(t, err)
	require.NotEqual(t, master.Address(), a1.Address())
}

func TestSignTx_RecoversSender(t *testing.T) {
	s, err := FromPrivateKeyHex(testKeyHex)
	require.NoError(t, err)

	chainID := big.NewInt(100)
	to := common.HexToAddress("0x00000000000000000000000000000000000000ff")
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     7,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Gas:       21000,
		To:        &to,
	})

	signed, err := s.SignTx(tx, chainID)
	require.NoError(t, err)

	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	require.Equal(t, s.Address(), sender)
}

func TestSignTx_NilSigner(t *testing.T) {
	var s *Signer
	_, err := s.SignTx(types.NewTx(&types.LegacyTx{}), big.NewInt(1))
	require.ErrorIs(t, err, ErrSignerUnavailable)
}
