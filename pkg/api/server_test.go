package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/futarchy-tools/arbot/pkg/bot"
)

func newTestServer() *Server {
	return NewServer(BotInfo{
		BotType:  "balancer",
		Executor: "0x00000000000000000000000000000000000000bb",
	}, zap.NewNop().Sugar())
}

func TestHealth(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStatus_BeforeAndAfterTick(t *testing.T) {
	s := newTestServer()

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var before StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &before))
	require.Zero(t, before.Tick)
	require.Equal(t, "balancer", before.Bot.BotType)

	s.Record(bot.TickReport{Index: 3, Outcome: bot.OutcomeNoOpportunity})

	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/status", nil))

	var after StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	require.Equal(t, uint64(3), after.Tick)
	require.Equal(t, bot.OutcomeNoOpportunity, after.Outcome)
}

func TestPrices_404BeforeFirstTick(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/prices", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTicks_404WithoutJournal(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/ticks", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBalances_UsesCallback(t *testing.T) {
	s := newTestServer()
	s.Balances = func(ctx context.Context) (any, error) {
		return map[string]string{"wallet": "1.0"}, nil
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/balances", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"wallet":"1.0"}`, rec.Body.String())
}

func TestTicks_JournalCheckPrecedesLimit(t *testing.T) {
	s := newTestServer()
	s.Journal = nil

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/ticks?limit=-1", nil))
	// Journal check precedes limit validation.
	require.Equal(t, http.StatusNotFound, rec.Code)
}
