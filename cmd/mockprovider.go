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

	"github.com/jmehdipour/messaging-gateway/internal/config"
	"github.com/jmehdipour/messaging-gateway/internal/logger"
	"github.com/jmehdipour/messaging-gateway/internal/mockprovider"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var mockProviderCmd = &cobra.Command{
	Use:   "mock-provider",
	Short: "Run a simulated SMS/email provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		log := logger.Init(cfg.Log.Level, cfg.Log.Format)
		defer func() { _ = log.Sync() }()

		srv := mockprovider.NewServer(cfg.MockProvider, nil, log.Named("mock"))

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(cfg.MockProvider.Addr) }()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}
