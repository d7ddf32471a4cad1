package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/messaging-gateway/internal/config"
	"github.com/jmehdipour/messaging-gateway/internal/db"
	httpSrv "github.com/jmehdipour/messaging-gateway/internal/http"
	"github.com/jmehdipour/messaging-gateway/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		log := logger.Init(cfg.Log.Level, cfg.Log.Format)
		defer func() { _ = log.Sync() }()

		sqlDB, err := openPrimary(cfg)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		redisClient, err := db.NewRedisClient(db.RedisOpts{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		if redisClient != nil {
			defer func() { _ = redisClient.Close() }()
		}

		chDB, err := openClickHouse(cfg)
		if err != nil {
			return err
		}
		if chDB != nil {
			defer func() { _ = chDB.Close() }()
		}

		dispatch := newDispatcher(cfg, log)
		server := httpSrv.NewServer(cfg, sqlDB, chDB, redisClient, dispatch, log)

		errCh := make(chan error, 1)
		go func() {
			log.Info("starting http", zap.String("addr", cfg.HTTP.Addr), zap.String("driver", cfg.Database.Driver))
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil {
				log.Error("http server exited", zap.Error(err))
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}
