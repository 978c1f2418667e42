package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/gogpu/halftone/ledger"
)

const shutdownTimeout = 10 * time.Second

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the preview, export and suggest HTTP API",
		Long: `Serve exposes the transform over HTTP:

  POST /v1/preview         image body, settings as query parameters, PNG reply
  POST /v1/export          same as preview, charged to the X-User-ID account
  POST /v1/suggest         image body, JSON suggestion reply
  GET  /v1/users/{id}      account status and balance, own account or admin

Admin routes, the X-User-ID account must have the admin role:

  GET  /v1/users                 all accounts
  POST /v1/users/{id}/credits    {"amount": n} adds credits
  PUT  /v1/users/{id}/status     {"status": "approved"} sets approval

  GET  /healthz            liveness check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", DefaultConfig().Server.Addr, "listen address")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML config file")

	return cmd
}

func runServe(ctx context.Context, cfg Config) error {
	logger := loggerFromContext(ctx)

	l, closeLedger, err := openLedger(ctx, cfg.Ledger)
	if err != nil {
		return err
	}
	defer closeLedger()

	for _, su := range cfg.Ledger.Users {
		if err := l.Put(ctx, su.user()); err != nil {
			return fmt.Errorf("seed user %s: %w", su.ID, err)
		}
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: newServer(serverOptions{
			ledger:   l,
			advisor:  cfg.advisor(),
			defaults: cfg.Settings,
			config:   cfg,
			logger:   logger,
		}).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", cfg.Server.Addr, "ledger", cfg.Ledger.Backend)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openLedger connects the configured backend. The returned func releases it.
func openLedger(ctx context.Context, cfg LedgerConfig) (ledger.Ledger, func(), error) {
	switch cfg.Backend {
	case backendRedis:
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		return ledger.NewRedis(client, cfg.KeyPrefix), func() { _ = client.Close() }, nil
	default:
		return ledger.NewMemory(), func() {}, nil
	}
}
