package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/joho/godotenv"
	"github.com/tendant/content-ledger/pkg/ledger/api"
	"github.com/tendant/content-ledger/pkg/ledger/config"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	serverConfig, err := config.Load(config.WithEnv())
	if err != nil {
		return fmt.Errorf("failed to load server configuration: %w", err)
	}

	rt, err := serverConfig.Build(logger)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer rt.Close()

	httpServer := &http.Server{
		Addr:              ":" + serverConfig.Port,
		Handler:           NewHTTPServer(rt, serverConfig).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("content ledger starting",
			"port", serverConfig.Port,
			"env", serverConfig.Environment,
			"database", serverConfig.DatabaseType,
			"storage", serverConfig.StorageType,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exiting")
	return nil
}

// HTTPServer wraps the ledger runtime for HTTP access
type HTTPServer struct {
	runtime *config.Runtime
	config  *config.ServerConfig
}

// NewHTTPServer creates a new HTTP server wrapper
func NewHTTPServer(rt *config.Runtime, serverConfig *config.ServerConfig) *HTTPServer {
	return &HTTPServer{
		runtime: rt,
		config:  serverConfig,
	}
}

// Routes sets up the HTTP routes
func (s *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if m := s.runtime.Metrics; m != nil {
		r.Use(m.Middleware)
	}

	// CORS for the browser front end during development
	if s.config.Environment == "development" {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusOK)
					return
				}

				next.ServeHTTP(w, r)
			})
		})
	}

	r.Get("/health", s.handleHealth)
	if m := s.runtime.Metrics; m != nil {
		r.Handle("/metrics", m.Handler())
	}

	r.Mount("/api/v1", api.NewHandler(s.runtime.Service, s.runtime.TokenAuth).Routes())

	return r
}

type healthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Database    string `json:"database"`
	Storage     string `json:"storage"`
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.runtime.Service.GetStats(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, healthResponse{Status: "unhealthy", Environment: s.config.Environment})
		return
	}

	render.JSON(w, r, healthResponse{
		Status:      "healthy",
		Environment: s.config.Environment,
		Database:    s.config.DatabaseType,
		Storage:     s.config.StorageType,
	})
}
