package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rustyeddy/papertrader/advisor"
	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/portfolio"
	"github.com/rustyeddy/papertrader/sim"
	"github.com/shopspring/decimal"
)

type tradeRequest struct {
	Symbol   string          `json:"symbol"`
	Type     string          `json:"type"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type resetRequest struct {
	InitialBalance decimal.Decimal `json:"initialBalance"`
}

// DefaultHistoryDays is the price history window when none is asked for.
const DefaultHistoryDays = 7

type startRequest struct {
	Symbol string `json:"symbol"`
	// Interval is in seconds.
	Interval int `json:"interval"`
}

func (s *Server) handleCoins(w http.ResponseWriter, r *http.Request) {
	coins, err := s.broker.Coins(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, coins)
}

func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request) {
	snap, err := s.broker.MarketData(r.Context(), r.PathValue("coinID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, snap)
}

func (s *Server) handleAllMarketData(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.broker.AllMarketData(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, nonNil(snaps))
}

func (s *Server) handleLatestMarketData(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.broker.LatestMarketData(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, nonNil(snaps))
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := s.broker.GetAccountInfo(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, acct)
}

func (s *Server) handleResetAccount(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	acct, err := s.broker.ResetAccount(r.Context(), req.InitialBalance)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, acct)
}

func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	hs, err := s.broker.Holdings(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, nonNil(hs))
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	trades, err := s.broker.Trades(r.Context(), journal.TradeFilter{
		Symbol: q.Get("symbol"),
		Side:   q.Get("type"),
		Reason: q.Get("reason"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, nonNil(trades))
}

func (s *Server) handleProfitLoss(w http.ResponseWriter, r *http.Request) {
	pl, err := s.broker.ProfitLoss(r.Context(), r.PathValue("symbol"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, pl)
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	adv, err := s.broker.Advice(r.Context(), r.PathValue("symbol"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, adv)
}

func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	days := DefaultHistoryDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonErr(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	since := time.Now().AddDate(0, 0, -days)
	snaps, err := s.broker.PriceHistory(r.Context(), r.PathValue("coinID"), since)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, nonNil(snaps))
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Symbol == "" || req.Type == "" || req.Quantity.IsZero() {
		jsonErr(w, http.StatusBadRequest, "symbol, type and quantity are required")
		return
	}

	res, err := s.broker.ExecuteTrade(r.Context(), req.Symbol, req.Type, req.Quantity, req.Price)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, res)
}

func (s *Server) handleSimulationStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Symbol == "" {
		jsonErr(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if req.Interval == 0 {
		req.Interval = DefaultSimulationInterval
	}

	if err := s.broker.StartSimulation(req.Symbol, req.Interval); err != nil {
		s.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, map[string]any{
		"message": "simulation started",
		"status":  s.broker.SimulationStatus(),
	})
}

func (s *Server) handleSimulationStop(w http.ResponseWriter, r *http.Request) {
	s.broker.StopSimulation()
	jsonOK(w, http.StatusOK, map[string]any{"message": "simulation stopped"})
}

func (s *Server) handleSimulationStatus(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, http.StatusOK, s.broker.SimulationStatus())
}

func (s *Server) handleEquity(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.broker.EquityHistory(r.Context(), r.URL.Query().Get("run"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, nonNil(snaps))
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, portfolio.ErrInvalidOrder),
		errors.Is(err, portfolio.ErrInsufficientFunds),
		errors.Is(err, portfolio.ErrInsufficientPosition),
		errors.Is(err, market.ErrUnsupportedSymbol),
		errors.Is(err, sim.ErrInvalidSchedule):
		return http.StatusBadRequest
	case errors.Is(err, sim.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, market.ErrFeedUnavailable),
		errors.Is(err, advisor.ErrUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, broker.ErrNoHistory),
		errors.Is(err, broker.ErrNoAdvisor):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	jsonErr(w, status, err.Error())
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

func jsonOK(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
}
