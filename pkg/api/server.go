package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/futarchy-tools/arbot/pkg/bot"
	"github.com/futarchy-tools/arbot/pkg/journal"
)

// Server exposes the operator status API: a REST snapshot of the
// controller's state plus a WebSocket stream of tick reports. Pull-only;
// nothing is pushed to external backends.
type Server struct {
	info   BotInfo
	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger

	// Journal is optional; /api/v1/ticks 404s without it.
	Journal *journal.Journal
	// Balances, when set, serves live holder balances on demand.
	Balances func(ctx context.Context) (any, error)

	mu   sync.RWMutex
	last *bot.TickReport
}

// NewServer creates the status server for one controller instance.
func NewServer(info BotInfo, log *zap.SugaredLogger) *Server {
	s := &Server{
		info:   info,
		router: mux.NewRouter(),
		hub:    NewHub(log),
		log:    log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/prices", s.handlePrices).Methods("GET")
	api.HandleFunc("/balances", s.handleBalances).Methods("GET")
	api.HandleFunc("/ticks", s.handleTicks).Methods("GET")
	api.HandleFunc("/trades", s.handleTrades).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start serves until the listener fails. Run it in its own goroutine.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	s.log.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// Record stores the latest tick report and broadcasts it to subscribers.
// Wired as the controller's OnTick hook.
func (s *Server) Record(report bot.TickReport) {
	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()

	s.hub.BroadcastToChannel("ticks", TickUpdate{Type: "tick", Report: report})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()

	resp := StatusResponse{Bot: s.info}
	if last != nil {
		resp.Tick = last.Index
		resp.Outcome = last.Outcome
		resp.LastTick = last
	}
	respondJSON(w, resp)
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()

	if last == nil || last.Prices == nil {
		respondError(w, http.StatusNotFound, "no prices observed yet", "")
		return
	}
	respondJSON(w, last.Prices)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	if s.Balances == nil {
		respondError(w, http.StatusNotFound, "balance reads not enabled", "")
		return
	}
	balances, err := s.Balances(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, "balance read failed", err.Error())
		return
	}
	respondJSON(w, balances)
}

func (s *Server) handleTicks(w http.ResponseWriter, r *http.Request) {
	s.serveJournal(w, r, func(limit int) ([]bot.TickReport, error) {
		return s.Journal.RecentTicks(limit)
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	s.serveJournal(w, r, func(limit int) ([]bot.TickReport, error) {
		return s.Journal.RecentTrades(limit)
	})
}

func (s *Server) serveJournal(w http.ResponseWriter, r *http.Request, read func(int) ([]bot.TickReport, error)) {
	if s.Journal == nil {
		respondError(w, http.StatusNotFound, "journal not enabled", "")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			respondError(w, http.StatusBadRequest, "invalid limit", raw)
			return
		}
		limit = n
	}
	reports, err := read(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "journal read failed", err.Error())
		return
	}
	respondJSON(w, reports)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, errMsg, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: errMsg, Message: message})
}
