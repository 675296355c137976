package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/parley"
	parleyhttp "github.com/aretw0/parley/pkg/adapters/http"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/adapters/redis"
	"github.com/aretw0/parley/pkg/observability"
	"github.com/aretw0/parley/pkg/persistence/middleware"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WebSocket chat server",
	Long: `Starts the chat server. Each WebSocket connection on /ws is one conversation.
Sessions are kept in memory unless PARLEY_REDIS_ADDR points at a Redis server,
in which case replicas share them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("watch") {
			cfg.WatchCatalog, _ = cmd.Flags().GetBool("watch")
		}
		if cmd.Flags().Changed("degraded") {
			cfg.Degraded, _ = cmd.Flags().GetBool("degraded")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		metrics := observability.NewMetrics()
		opts := append(engineOptions(cfg, logger),
			parley.WithLifecycleHooks(observability.Chain(observability.LogHooks(logger), metrics.Hooks())),
		)
		var store ports.SessionStore = memory.NewStore()
		if cfg.RedisAddr != "" {
			rdb := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redis.WithTTL(cfg.SessionTTL))
			defer rdb.Close()
			store = rdb
			opts = append(opts, parley.WithLocker(redis.NewLocker(rdb.Client(), "parley:")))
			logger.Info("sessions stored in redis", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL)
		}
		active, fallback, err := cfg.SessionKeys()
		if err != nil {
			return err
		}
		if active != nil {
			seal, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
			if err != nil {
				return err
			}
			store = middleware.Wrap(store, seal)
			logger.Info("stored answers are encrypted", "fallback_keys", len(fallback))
		}
		opts = append(opts, parley.WithStore(store))

		eng, err := parley.New(opts...)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.WatchCatalog {
			go func() {
				if err := eng.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("catalog watch stopped", "err", err)
				}
			}()
		}

		chat := parleyhttp.NewServer(eng,
			parleyhttp.WithAllowedOrigins(cfg.AllowedOrigins...),
			parleyhttp.WithPublicDir(cfg.PublicDir),
			parleyhttp.WithMetrics(metrics.Handler()),
			parleyhttp.WithLogger(logger),
		)
		srv := &http.Server{
			Addr:              cfg.Addr(),
			Handler:           chat.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("chat server listening", "addr", srv.Addr, "catalog", cfg.CatalogDir, "degraded", eng.Degraded())
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			return err
		case <-ctx.Done():
			logger.Info("shutdown started")

			// Hijacked WebSocket connections are not tracked by Shutdown.
			chat.Close()

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return srv.Close()
			}
			logger.Info("chat server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 3001, "Port to listen on (default $PORT or 3001)")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload the catalog when its files change")
	serveCmd.Flags().Bool("degraded", false, "Serve intents only when the dialogue tree fails to load")
}
