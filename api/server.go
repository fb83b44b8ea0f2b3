// Package api serves the broker over HTTP as JSON.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/shopspring/decimal"
)

const DefaultSimulationInterval = 60

func init() {
	// amounts go out as JSON numbers, clients do arithmetic on them
	decimal.MarshalJSONWithoutQuotes = true
}

type Server struct {
	broker broker.Broker
	logger *slog.Logger
	srv    *http.Server
}

func NewServer(addr string, b broker.Broker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{broker: b, logger: logger}
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}
	return s
}

// Handler returns the routed API with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/coins", s.handleCoins)
	mux.HandleFunc("GET /api/market-data", s.handleAllMarketData)
	mux.HandleFunc("GET /api/market-data/{coinID}", s.handleMarketData)
	mux.HandleFunc("GET /api/latest-market-data", s.handleLatestMarketData)

	mux.HandleFunc("GET /api/price-history/{coinID}", s.handlePriceHistory)

	mux.HandleFunc("GET /api/account", s.handleAccount)
	mux.HandleFunc("POST /api/account/reset", s.handleResetAccount)
	mux.HandleFunc("GET /api/holdings", s.handleHoldings)
	mux.HandleFunc("POST /api/trade", s.handleTrade)
	mux.HandleFunc("GET /api/trades", s.handleTrades)
	mux.HandleFunc("GET /api/profit-loss/{symbol}", s.handleProfitLoss)
	mux.HandleFunc("GET /api/advice/{symbol}", s.handleAdvice)

	mux.HandleFunc("GET /api/simulation", s.handleSimulationStatus)
	mux.HandleFunc("POST /api/simulation/start", s.handleSimulationStart)
	mux.HandleFunc("POST /api/simulation/stop", s.handleSimulationStop)
	mux.HandleFunc("GET /api/simulation/equity", s.handleEquity)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, http.StatusOK, map[string]any{"ok": true})
	})

	return s.logRequests(mux)
}

// ListenAndServe blocks until ctx is done, then shuts the server down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.srv.Addr)
		errc <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path,
			"status", rec.status, "elapsed", time.Since(start))
	})
}
