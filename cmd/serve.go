package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lernpfad/backend/internal/config"
	"github.com/lernpfad/backend/internal/curriculum"
	"github.com/lernpfad/backend/internal/llm"
	"github.com/lernpfad/backend/internal/plan"
	"github.com/lernpfad/backend/internal/server"
	"github.com/lernpfad/backend/internal/session"
	"github.com/lernpfad/backend/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer log.Sync()

		cfg, err := config.Load(".")
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		dbPath, err := resolveDBPath(cmd, cfg.DBPath)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		ctx := cmd.Context()
		provider, err := llm.NewProvider(ctx, llm.ConfigFromEnv(), st.EventRepo(), log)
		if err != nil {
			return fmt.Errorf("init generation provider: %w", err)
		}

		srv := server.New(
			session.NewService(st, provider, session.DefaultConfig(), log),
			plan.NewService(st, provider, plan.DefaultConfig(), log),
			curriculum.NewService(st),
			st.SettingsRepo(),
			log,
		)

		httpSrv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           srv.Router(cfg),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("listening", zap.String("addr", cfg.ListenAddr), zap.String("db", dbPath))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return fmt.Errorf("serve: %w", err)
		case <-stop:
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	},
}
