// Package server exposes the stablecoin engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"bricsengine/core"
	"bricsengine/observability"
)

// Config defines HTTP server parameters.
type Config struct {
	ListenAddress   string
	ShutdownTimeout time.Duration
	Auth            AuthConfig
	RateLimit       RateLimitConfig
}

// Server hosts the bricsd API.
type Server struct {
	cfg     Config
	engine  *core.Engine
	logger  *slog.Logger
	auth    *Authenticator
	limiter *RateLimiter
	handler http.Handler
}

// New constructs the server and its router.
func New(cfg Config, engine *core.Engine, logger *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, errors.New("engine required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	auth, err := NewAuthenticator(cfg.Auth, logger)
	if err != nil {
		return nil, fmt.Errorf("configure auth: %w", err)
	}
	s := &Server{
		cfg:     cfg,
		engine:  engine,
		logger:  logger,
		auth:    auth,
		limiter: NewRateLimiter(cfg.RateLimit),
	}
	s.handler = otelhttp.NewHandler(s.routes(), "bricsd")
	return s, nil
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler { return s.handler }

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("bricsd: http server listening", "addr", s.cfg.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen and serve: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.limiter.Middleware)

		r.Get("/rates", s.handleListRates)
		r.Get("/rates/{currency}", s.handleGetRate)

		r.Get("/vault/params", s.handleGetVaultParams)
		r.Get("/vault/state", s.handleVaultState)
		r.Get("/vault/positions/{owner}/{currency}", s.handlePosition)
		r.Get("/vault/positions/{owner}/{currency}/liquidation", s.handlePreviewLiquidate)
		r.Get("/vault/candidates", s.handleCandidates)
		r.Post("/vault/deposit/preview", s.handlePreviewDeposit)

		r.Get("/pools", s.handlePools)
		r.Get("/pools/key", s.handlePoolKey)
		r.Get("/pools/rate", s.handlePoolRate)
		r.Get("/pools/{a}/{b}", s.handlePool)
		r.Get("/pools/{a}/{b}/liquidity/{owner}", s.handleUserLiquidity)
		r.Post("/pools/swap/preview", s.handlePreviewSwap)

		r.Get("/balances/{owner}/{currency}", s.handleBalance)
		r.Get("/admin/pause", s.handleListPaused)
		r.Get("/receipts", s.handleReceipts)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)
			r.Put("/rates/{currency}", s.handleSetRate)
			r.Put("/vault/params", s.handleSetVaultParams)
			r.Post("/vault/deposit", s.handleDeposit)
			r.Post("/vault/redeem", s.handleRedeem)
			r.Post("/vault/liquidate", s.handleLiquidate)
			r.Post("/pools/liquidity/add", s.handleAddLiquidity)
			r.Post("/pools/liquidity/remove", s.handleRemoveLiquidity)
			r.Post("/pools/swap", s.handleSwap)
			r.Post("/approve", s.handleApprove)
			r.Post("/transfer", s.handleTransfer)
			r.Put("/admin/pause/{module}", s.handleSetPaused)
		})
	})
	return r
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = r.Method + " " + pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.ModuleMetrics().Observe(moduleOf(r.URL.Path), route, status, time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
