package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/futarchy-tools/arbot/pkg/bot"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func report(index uint64, outcome bot.Outcome) bot.TickReport {
	return bot.TickReport{
		Index:     index,
		StartedAt: time.Unix(1700000000+int64(index), 0),
		Outcome:   outcome,
		TxHash:    "0xabc",
	}
}

func TestJournal_SaveAndScanNewestFirst(t *testing.T) {
	j := openTestJournal(t)

	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, j.SaveTick(report(i, bot.OutcomeNoOpportunity)))
	}

	ticks, err := j.RecentTicks(3)
	require.NoError(t, err)
	require.Len(t, ticks, 3)
	require.Equal(t, uint64(5), ticks[0].Index)
	require.Equal(t, uint64(4), ticks[1].Index)
	require.Equal(t, uint64(3), ticks[2].Index)
}

func TestJournal_TradesOnlyExecutedTicks(t *testing.T) {
	j := openTestJournal(t)

	require.NoError(t, j.SaveTick(report(1, bot.OutcomeNoOpportunity)))
	require.NoError(t, j.SaveTick(report(2, bot.OutcomeExecuted)))
	require.NoError(t, j.SaveTick(report(3, bot.OutcomeSkipped)))
	require.NoError(t, j.SaveTick(report(4, bot.OutcomeExecuted)))

	trades, err := j.RecentTrades(10)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	require.Equal(t, uint64(4), trades[0].Index)
	require.Equal(t, uint64(2), trades[1].Index)

	ticks, err := j.RecentTicks(10)
	require.NoError(t, err)
	require.Len(t, ticks, 4)
}

func TestJournal_ReopenKeepsHistory(t *testing.T) {
	dir := t.TempDir()

	j, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, j.SaveTick(report(1, bot.OutcomeExecuted)))
	require.NoError(t, j.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	ticks, err := reopened.RecentTicks(10)
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	require.Equal(t, "0xabc", ticks[0].TxHash)
}
