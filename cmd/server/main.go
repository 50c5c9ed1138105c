// Package main is the entry point for the DEX stats API, a read-only HTTP service reporting live
// reserve, price and liquidity statistics of one AMM exchange deployed on several EVM chains.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/dex-stats-api/internal/config"
	"github.com/yourorg/dex-stats-api/internal/fetch"
	"github.com/yourorg/dex-stats-api/internal/otel"
	"github.com/yourorg/dex-stats-api/internal/registry"
)

const msgChainNotFound = "Chain not found or not configured."

// Server represents the stats API server instance
type Server struct {
	// Configuration for the server
	config config.Config

	// Chains loaded at startup
	registry *registry.Registry

	// Per-chain stats aggregator
	fetcher *fetch.Fetcher

	// Metrics, nil when disabled
	metrics  *serverMetrics
	gatherer prometheus.Gatherer

	// Routed handler wrapped with CORS
	handler http.Handler

	// HTTP server instance
	server *http.Server
}

// main is the entry point for the application
func main() {
	if err := config.LoadDotEnv(config.GetEnvOrDefault("DOTENV_PATH", ".env")); err != nil {
		logrus.Warnf("Failed to load dotenv file: %v", err)
	}

	setupLogging()

	cfg := config.Load()

	shutdownTracer := otel.InitTracer(cfg.OtelEndpoint)
	defer shutdownTracer()

	abis := registry.EmbeddedABIs()
	if cfg.ABIDir != "" {
		abis = registry.DirABIs(cfg.ABIDir)
	}
	reg := registry.Build(registry.Options{ABIs: abis})

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	server := NewServer(cfg, reg, fetch.NewRPCDialer(cfg.RPCRetryMax), promReg)
	server.Start()
}

// setupLogging configures the logging for the application
func setupLogging() {
	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))

	switch logFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	switch logLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}

	logrus.Info("Logging configured")
}

// NewServer creates a server serving the chains in reg. Metrics are registered with promReg
// when enabled in cfg.
func NewServer(cfg config.Config, reg *registry.Registry, dialer fetch.Dialer, promReg *prometheus.Registry) *Server {
	s := &Server{
		config:   cfg,
		registry: reg,
	}

	opts := []fetch.Option{fetch.WithCallTimeout(cfg.CallTimeout)}
	if cfg.EnableMetrics && promReg != nil {
		s.metrics = registerMetrics(promReg)
		s.gatherer = promReg
		opts = append(opts, fetch.WithObserver(s.metrics))
	}
	s.fetcher = fetch.NewFetcher(reg, dialer, opts...)

	s.handler = cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}).Handler(s.routes())

	logrus.WithFields(logrus.Fields{
		"port":         cfg.Port,
		"call_timeout": cfg.CallTimeout,
		"metrics":      s.metrics != nil,
		"chains":       reg.Configured(),
		"diagnostics":  len(reg.Diagnostics()),
	}).Info("Server initialized")

	return s
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/stats/all", s.handleAllStats).Methods(http.MethodGet)
	router.HandleFunc("/stats/{chain}", s.handleChainStats).Methods(http.MethodGet)
	router.HandleFunc("/diagnostics", s.handleDiagnostics).Methods(http.MethodGet)
	router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Not Found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	router.Use(s.instrument)
	return router
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins the HTTP server and sets up graceful shutdown
func (s *Server) Start() {
	s.server = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3*s.config.CallTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("Server starting on port %s", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Error starting server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server shutdown failed: %v", err)
		return
	}

	logrus.Info("Server stopped")
}

// instrument logs and measures every routed request
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		elapsed := time.Since(start)

		if s.metrics != nil {
			s.metrics.observeRequest(route, rec.status, elapsed)
		}
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"route":    route,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": elapsed,
		}).Debug("Handled request")
	})
}

type healthResponse struct {
	Status           string   `json:"status"`
	ConfiguredChains []string `json:"configured_chains"`
}

// handleHealth reports liveness and the chains loaded at startup
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:           "ok",
		ConfiguredChains: s.registry.Configured(),
	})
}

// handleAllStats returns one entry per configured chain. Per-chain failures are reported in
// the entries, never as an HTTP error.
func (s *Server) handleAllStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.fetcher.FetchAll(r.Context()))
}

func (s *Server) handleChainStats(w http.ResponseWriter, r *http.Request) {
	chain := strings.ToLower(mux.Vars(r)["chain"])
	if _, ok := s.registry.Get(chain); !ok {
		writeJSONError(w, http.StatusNotFound, msgChainNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.fetcher.FetchStats(r.Context(), chain))
}

type chainStatus struct {
	Chain    string `json:"chain"`
	Complete bool   `json:"complete"`
}

type diagnosticsResponse struct {
	Chains      []chainStatus         `json:"chains"`
	Diagnostics []registry.Diagnostic `json:"diagnostics"`
}

// handleDiagnostics lists the completeness of each loaded chain and the chains omitted at startup
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	configured := s.registry.Configured()
	resp := diagnosticsResponse{
		Chains:      make([]chainStatus, 0, len(configured)),
		Diagnostics: s.registry.Diagnostics(),
	}
	for _, chain := range configured {
		cfg, _ := s.registry.Get(chain)
		resp.Chains = append(resp.Chains, chainStatus{Chain: chain, Complete: cfg.Complete()})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleMetrics exposes Prometheus metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "Metrics disabled")
		return
	}
	promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
