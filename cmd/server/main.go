package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/freelance-escrow/internal/app"
	"github.com/ignatzorin/freelance-escrow/internal/config"
	"github.com/ignatzorin/freelance-escrow/internal/db"
	"github.com/ignatzorin/freelance-escrow/internal/infrastructure/identity"
	"github.com/ignatzorin/freelance-escrow/internal/infrastructure/metrics"
	"github.com/ignatzorin/freelance-escrow/internal/infrastructure/payment"
	"github.com/ignatzorin/freelance-escrow/internal/infrastructure/persistence"
	"github.com/ignatzorin/freelance-escrow/internal/logger"
	"github.com/ignatzorin/freelance-escrow/internal/service"
	"github.com/ignatzorin/freelance-escrow/internal/storage"
	"github.com/ignatzorin/freelance-escrow/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Freelance marketplace escrow backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var skipMigrations bool
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), skipMigrations)
		},
	}
	serve.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply pending migrations on start")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}

	cmd.AddCommand(serve, migrate)
	return cmd
}

func setup(ctx context.Context) (*config.Config, *sqlx.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger.Init(cfg.LogLevel, cfg.Env)

	conn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return cfg, conn, nil
}

func runMigrate(ctx context.Context) error {
	cfg, conn, err := setup(ctx)
	if err != nil {
		return err
	}
	defer safeClose(conn)

	applied, err := db.RunMigrations(ctx, conn, cfg.MigrationsPath)
	if err != nil {
		return err
	}
	logger.Log.WithField("applied", applied).Info("migrations complete")
	return nil
}

func runServe(parent context.Context, skipMigrations bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, conn, err := setup(ctx)
	if err != nil {
		return err
	}
	defer safeClose(conn)

	if !skipMigrations {
		applied, err := db.RunMigrations(ctx, conn, cfg.MigrationsPath)
		if err != nil {
			return err
		}
		logger.Log.WithField("applied", applied).Info("migrations applied")
	}

	files, err := storage.NewFileStorage(cfg.UploadStoragePath, cfg.PublicBaseURL+"/uploads", cfg.MaxUploadSizeMB)
	if err != nil {
		return err
	}

	m := metrics.New()
	hub := ws.NewHub(m)
	cache := service.NewCacheService(time.Minute)
	defer cache.Close()

	gw := cfg.Gateways
	router := app.NewRouter(app.Options{
		Config: cfg,
		Repos: app.Repositories{
			Tx:            persistence.NewTxManager(conn),
			Tasks:         persistence.NewTaskRepositoryAdapter(conn),
			Applications:  persistence.NewApplicationRepositoryAdapter(conn),
			Escrows:       persistence.NewEscrowRepositoryAdapter(conn),
			Milestones:    persistence.NewMilestoneRepositoryAdapter(conn),
			Disputes:      persistence.NewDisputeRepositoryAdapter(conn),
			Ledger:        persistence.NewLedgerRepositoryAdapter(conn),
			Verifications: persistence.NewVerificationRepositoryAdapter(conn),
			Users:         persistence.NewUserRepositoryAdapter(conn),
			Sessions:      persistence.NewSessionRepositoryAdapter(conn),
			Conversations: persistence.NewConversationRepositoryAdapter(conn),
			Messages:      persistence.NewMessageRepositoryAdapter(conn),
		},
		Payments:    payment.NewClient(gw.Payment.BaseURL, gw.Payment.SecretKey, gw.Payment.Timeout, m),
		Identity:    identity.NewClient(gw.Identity.BaseURL, gw.Identity.AppID, gw.Identity.SecretKey, gw.Identity.Timeout, m),
		Hub:         hub,
		Files:       files,
		Cache:       cache,
		DB:          conn,
		Recorder:    m,
		MetricsPage: m.Handler(),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Log.WithField("addr", server.Addr).WithField("env", cfg.Env).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Log.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		logger.Log.WithError(err).Warn("closing database")
	}
}
