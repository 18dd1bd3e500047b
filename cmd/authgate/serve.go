package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/mail"
	promexport "github.com/MrEthical07/authgate/metrics/export/prometheus"
	"github.com/MrEthical07/authgate/middleware"
	"github.com/MrEthical07/authgate/store/sqlstore"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var (
		auditLog     bool
		createTables bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			s, err := loadSettings(nil, path)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
			var audit io.Writer
			if auditLog {
				audit = cmd.OutOrStdout()
			}
			return run(ctx, s, logger, audit, createTables)
		},
	}
	cmd.Flags().BoolVar(&auditLog, "audit-log", false, "write audit events to stdout as JSON lines")
	cmd.Flags().BoolVar(&createTables, "create-tables", false, "create the reference tables if missing")
	return cmd
}

// service bundles the wired dependencies of one running gateway.
type service struct {
	auth   *authgate.Auth
	store  *sqlstore.Store
	redis  redis.UniversalClient
	router http.Handler
}

func (s *service) Close() {
	if s.auth != nil {
		s.auth.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
}

// newService wires storage, the auth stack and the router. audit may be nil.
func newService(s settings, store *sqlstore.Store, client redis.UniversalClient, logger *slog.Logger, audit io.Writer) (*service, error) {
	var mailer authgate.Mailer = mail.NewLogMailer(logger)
	if s.Env.SMTP.Host != "" {
		m, err := mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     s.Env.SMTP.Host,
			Port:     s.Env.SMTP.Port,
			Username: s.Env.SMTP.Username,
			Password: s.Env.SMTP.Password,
			From:     s.Env.SMTP.From,
		})
		if err != nil {
			return nil, fmt.Errorf("smtp: %w", err)
		}
		mailer = m
	}

	b := authgate.New().
		WithConfig(s.Auth).
		WithRedis(client).
		WithStore(store).
		WithMailer(mailer).
		WithLogger(logger)
	sink := authgate.AuditSink(authgate.NewLoggerSink(logger, slog.LevelDebug))
	if audit != nil {
		sink = authgate.MultiAuditSink(authgate.NewWriterSink(audit), sink)
	}
	b.WithAuditSink(sink)
	auth, err := b.Build()
	if err != nil {
		return nil, err
	}

	return &service{
		auth:   auth,
		store:  store,
		redis:  client,
		router: newRouter(auth, store, logger),
	}, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func newRouter(auth *authgate.Auth, db pinger, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(auth.CORS())
	r.Use(middleware.CaptureHeaders(auth.HeaderStore()))

	r.Handle(auth.BasePath()+"/*", auth.Gateway())

	r.With(middleware.RequireUser(auth)).Get("/api/me", func(w http.ResponseWriter, r *http.Request) {
		cu, _ := middleware.CurrentUserFromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(cu); err != nil {
			logger.WarnContext(r.Context(), "write current user", "error", err)
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		for _, p := range []pinger{auth, db} {
			if err := p.Ping(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "health check failed", "error", err)
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Handle("/metrics", promexport.NewExporter(auth).Handler())
	return r
}

func run(ctx context.Context, s settings, logger *slog.Logger, audit io.Writer, createTables bool) error {
	store, err := sqlstore.Open(s.Env.DatabasePath)
	if err != nil {
		return err
	}
	if createTables {
		if err := store.CreateTables(ctx); err != nil {
			_ = store.Close()
			return err
		}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     s.Env.RedisAddr,
		Password: s.Env.RedisPassword,
		DB:       s.Env.RedisDB,
	})

	svc, err := newService(s, store, client, logger, audit)
	if err != nil {
		_ = client.Close()
		_ = store.Close()
		return err
	}
	defer svc.Close()

	srv := &http.Server{
		Addr:              s.Env.HTTPAddr,
		Handler:           svc.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("authgate listening", "addr", s.Env.HTTPAddr, "base_path", svc.auth.BasePath())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("authgate shutting down")
	return srv.Shutdown(shutdownCtx)
}
