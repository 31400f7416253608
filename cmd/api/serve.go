package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authkeep/authkeep-go/internal/crypto"
	"github.com/authkeep/authkeep-go/internal/handler"
	"github.com/authkeep/authkeep-go/internal/metrics"
	"github.com/authkeep/authkeep-go/internal/middleware"
	"github.com/authkeep/authkeep-go/internal/notify"
	"github.com/authkeep/authkeep-go/internal/service"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, closeStore, err := newUserStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	hasher, err := newHasher(cfg)
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("component", "hasher").Wrap(err)
	}
	signer, err := crypto.NewSigner(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("component", "signer").Wrap(err)
	}

	m := metrics.New()
	dispatcher := newDispatcher(cfg, logger)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		reportDeliveryErrors(logger, m, dispatcher.Errors())
	}()

	authService, err := service.NewAuthService(users, hasher, signer, dispatcher, service.AuthConfig{
		SessionTTL:      cfg.SessionTTL,
		ConfirmationTTL: cfg.ConfirmationTTL,
		WebserviceURL:   cfg.WebserviceURL,
	}, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(logger, m, authService, cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Env, "database", cfg.DatabaseDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return oops.Code("SERVER_FAILED").Wrap(err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", "error", err)
	}

	dispatcher.Close()
	<-drained

	logger.Info("server stopped")
	return nil
}

func newRouter(logger *slog.Logger, m *metrics.Metrics, authService *service.AuthService, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger, m))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	authHandler := handler.NewAuthHandler(authService, m, logger)
	r.Mount("/api/v1/auth", authHandler.Routes(middleware.JWTAuth(authService)))

	return r
}

// reportDeliveryErrors logs and counts failed confirmation emails until errs is closed.
func reportDeliveryErrors(logger *slog.Logger, m *metrics.Metrics, errs <-chan notify.DeliveryError) {
	for de := range errs {
		m.NotificationFailed()
		logger.Error("confirmation email not delivered", "error", de.Err)
	}
}
