package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"multiswap/core/types"
	"multiswap/crypto"
	"multiswap/indexer"
)

// Ledger is the slice of the runtime the API needs.
type Ledger interface {
	Execute(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	Account(key crypto.PublicKey) (*types.Account, error)
}

// History serves indexed escrow events.
type History interface {
	History(ctx context.Context, escrow string, limit int) ([]indexer.EscrowEvent, error)
	ByParty(ctx context.Context, key string, limit int) ([]indexer.EscrowEvent, error)
}

// Config tunes the HTTP surface.
type Config struct {
	EscrowProgramID    crypto.PublicKey
	RateLimitPerSecond float64
	RateLimitBurst     int
	JWTSecret          string
	MaxBodyBytes       int64
	ReadHeaderTimeout  time.Duration
}

// Server exposes transaction submission and ledger queries over HTTP.
type Server struct {
	cfg     Config
	ledger  Ledger
	history History
	logger  *slog.Logger
	handler http.Handler
	srv     *http.Server
}

// NewServer builds the router. history may be nil when indexing is disabled.
func NewServer(cfg Config, ledger Ledger, history History, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	s := &Server{
		cfg:     cfg,
		ledger:  ledger,
		history: history,
		logger:  logger.With(slog.String("component", moduleName)),
	}
	s.handler = otelhttp.NewHandler(s.routes(), "multiswap-rpc")
	return s
}

func (s *Server) routes() http.Handler {
	limiter := newRateLimiter(s.cfg.RateLimitPerSecond, s.cfg.RateLimitBurst)
	auth := newAuthenticator(s.cfg.JWTSecret, s.logger)

	r := chi.NewRouter()
	r.Use(requestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(limiter.middleware)
		v1.With(auth.middleware).Post("/transactions", observe("submit", s.logger, s.handleSubmit))
		v1.Get("/accounts/{key}", observe("account", s.logger, s.handleAccount))
		v1.Get("/escrows/{key}", observe("escrow", s.logger, s.handleEscrow))
		v1.Get("/escrows/{key}/events", observe("escrow_events", s.logger, s.handleEscrowEvents))
		v1.Get("/parties/{key}/events", observe("party_events", s.logger, s.handlePartyEvents))
		v1.Post("/instructions/decode", observe("decode", s.logger, s.handleDecode))
	})
	return r
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler { return s.handler }

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}
	s.logger.Info("rpc listening", slog.String("addr", addr))
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and drains in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code uint32, err error) {
	writeJSON(w, status, ErrorResponse{
		Error:     err.Error(),
		Code:      code,
		RequestID: RequestIDFromContext(r.Context()),
	})
}
