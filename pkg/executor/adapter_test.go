package executor

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/futarchy-tools/arbot/pkg/detect"
)

func testAddresses() Addresses {
	return Addresses{
		Executor:       common.HexToAddress("0x0000000000000000000000000000000000000001"),
		BalancerRouter: common.HexToAddress("0x0000000000000000000000000000000000000002"),
		BalancerVault:  common.HexToAddress("0x0000000000000000000000000000000000000003"),
		SwaprRouter:    common.HexToAddress("0x0000000000000000000000000000000000000004"),
		FutarchyRouter: common.HexToAddress("0x0000000000000000000000000000000000000005"),
		Proposal:       common.HexToAddress("0x0000000000000000000000000000000000000006"),
		Currency:       common.HexToAddress("0x0000000000000000000000000000000000000007"),
		Company:        common.HexToAddress("0x0000000000000000000000000000000000000008"),
		YesCurrency:    common.HexToAddress("0x0000000000000000000000000000000000000009"),
		NoCurrency:     common.HexToAddress("0x000000000000000000000000000000000000000a"),
		YesCompany:     common.HexToAddress("0x000000000000000000000000000000000000000b"),
		NoCompany:      common.HexToAddress("0x000000000000000000000000000000000000000c"),
		PoolPredYes:    common.HexToAddress("0x000000000000000000000000000000000000000d"),
		PoolPredNo:     common.HexToAddress("0x000000000000000000000000000000000000000e"),
	}
}

func testIntent(flow detect.Flow) Intent {
	return Intent{
		AmountIn:  big.NewInt(1_000_000),
		Flow:      flow,
		Cheaper:   detect.LegYes,
		MinProfit: big.NewInt(-5),
	}
}

func TestBuildCalldata_MethodSelection(t *testing.T) {
	tests := []struct {
		name   string
		flavor Flavor
		flow   detect.Flow
		method string
	}{
		{"v5 buy", FutarchyV5, detect.FlowBuy, "buy_conditional_arbitrage"},
		{"v5 sell", FutarchyV5, detect.FlowSell, "sell_conditional_arbitrage"},
		{"pnk", PNK, detect.FlowSell, "sell_conditional_arbitrage_pnk"},
		{"prediction", PredictionV1, detect.FlowNone, "run_prediction_arbitrage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Adapter{flavor: tt.flavor, addrs: testAddresses()}
			data, err := a.buildCalldata(testIntent(tt.flow))
			require.NoError(t, err)

			parsed := futarchyV5ABI
			if tt.flavor == PredictionV1 {
				parsed = predictionV1ABI
			}
			wantID := parsed.Methods[tt.method].ID
			require.True(t, bytes.HasPrefix(data, wantID),
				"calldata does not start with %s selector", tt.method)
		})
	}
}

func TestBuildCalldata_SignedMinProfit(t *testing.T) {
	a := &Adapter{flavor: FutarchyV5, addrs: testAddresses()}
	intent := testIntent(detect.FlowBuy)
	intent.MinProfit = big.NewInt(-1)

	data, err := a.buildCalldata(intent)
	require.NoError(t, err)

	// int256(-1) is all-ones in the last argument word.
	word := data[len(data)-32:]
	for _, b := range word {
		require.Equal(t, byte(0xff), b)
	}
}

func TestBuildCalldata_CheaperLegFlag(t *testing.T) {
	a := &Adapter{flavor: FutarchyV5, addrs: testAddresses()}

	intent := testIntent(detect.FlowBuy)
	intent.Cheaper = detect.LegYes
	yesData, err := a.buildCalldata(intent)
	require.NoError(t, err)

	intent.Cheaper = detect.LegNo
	noData, err := a.buildCalldata(intent)
	require.NoError(t, err)

	require.NotEqual(t, yesData, noData)
	// bool yes_cheaper is the second-to-last word.
	yesWord := yesData[len(yesData)-64 : len(yesData)-32]
	noWord := noData[len(noData)-64 : len(noData)-32]
	require.Equal(t, byte(1), yesWord[31])
	require.Equal(t, byte(0), noWord[31])
}

func TestIntentValidate(t *testing.T) {
	valid := testIntent(detect.FlowBuy)
	require.NoError(t, valid.validate(FutarchyV5))

	zeroAmount := valid
	zeroAmount.AmountIn = big.NewInt(0)
	require.Error(t, zeroAmount.validate(FutarchyV5))

	nilProfit := valid
	nilProfit.MinProfit = nil
	require.Error(t, nilProfit.validate(FutarchyV5))

	noFlow := valid
	noFlow.Flow = detect.FlowNone
	require.Error(t, noFlow.validate(FutarchyV5))
	// The prediction flavor decides flow on-chain.
	require.NoError(t, noFlow.validate(PredictionV1))
}
