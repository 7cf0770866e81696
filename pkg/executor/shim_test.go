package executor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTxHash_Patterns(t *testing.T) {
	hash := "a3f1c9e2b4d6a8f0c1e3b5d7a9f1c3e5b7d9a1f3c5e7b9d1a3f5c7e9b1d3a5f7"

	tests := []struct {
		name   string
		output string
		want   string
	}{
		{
			name:   "tx sent with prefix",
			output: "Funding executor\nTx sent: 0x" + hash + "\ndone",
			want:   "0x" + hash,
		},
		{
			name:   "tx sent without prefix",
			output: "Tx sent: " + hash,
			want:   "0x" + hash,
		},
		{
			name:   "transaction hash label",
			output: "Transaction hash: 0x" + hash,
			want:   "0x" + hash,
		},
		{
			name:   "bare tx label",
			output: "tx: " + hash,
			want:   "0x" + hash,
		},
		{
			name:   "case insensitive label",
			output: "TX SENT: 0x" + hash,
			want:   "0x" + hash,
		},
		{
			name:   "no hash present",
			output: "nothing to see here",
			want:   "",
		},
		{
			name:   "hash too short",
			output: "Tx sent: 0xdeadbeef",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ParseTxHash(tt.output))
		})
	}
}

func TestParseTxHash_Idempotent(t *testing.T) {
	output := "Tx sent: 0xA3F1C9E2B4D6A8F0C1E3B5D7A9F1C3E5B7D9A1F3C5E7B9D1A3F5C7E9B1D3A5F7"
	first := ParseTxHash(output)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, ParseTxHash(output))
	}
	require.NotEmpty(t, first)
}

func TestParseTxHash_FirstMatchWins(t *testing.T) {
	h1 := "1111111111111111111111111111111111111111111111111111111111111111"
	h2 := "2222222222222222222222222222222222222222222222222222222222222222"
	output := "Tx sent: 0x" + h1 + "\nTx sent: 0x" + h2
	require.Equal(t, "0x"+h1, ParseTxHash(output))
}

func TestStrippedEnv(t *testing.T) {
	t.Setenv("RPC_URL", "https://stale.example")
	t.Setenv("UNRELATED_KEY", "keepme")

	env := strippedEnv(map[string]string{"RPC_URL": "https://fresh.example"})

	for _, kv := range env {
		require.NotContains(t, kv, "RPC_URL=", "materialised keys must be stripped")
	}
	require.Contains(t, env, "UNRELATED_KEY=keepme")
}

func TestLastErrorLine(t *testing.T) {
	stderr := "Traceback (most recent call last):\n  File x\nValueError: Error: bad pool state\n"
	require.Equal(t, "ValueError: Error: bad pool state", lastErrorLine(stderr))

	require.Equal(t, "plain failure", lastErrorLine("plain failure\n"))
	require.Equal(t, "", lastErrorLine(""))
}
