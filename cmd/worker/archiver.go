package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/messaging-gateway/internal/config"
	"github.com/jmehdipour/messaging-gateway/internal/db"
	"github.com/jmehdipour/messaging-gateway/internal/kafka"
	"github.com/jmehdipour/messaging-gateway/internal/logger"
	"github.com/jmehdipour/messaging-gateway/internal/metrics"
	"github.com/jmehdipour/messaging-gateway/internal/repository"
	"github.com/jmehdipour/messaging-gateway/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var archiverCmd = &cobra.Command{
	Use:   "archiver",
	Short: "Copy message events from Kafka into the ClickHouse reporting table",
	RunE:  runArchiver,
}

func runArchiver(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.Init(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	chDB, err := db.NewClickHouseConnection(db.ClickHouseOpts{
		DSN:             cfg.ClickHouse.DSN,
		MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
		MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
		PingTimeout:     cfg.ClickHouse.PingTimeout,
	})
	if err != nil {
		return fmt.Errorf("clickhouse connect: %w", err)
	}
	if chDB == nil {
		return errors.New("archiver needs clickhouse.dsn")
	}
	defer chDB.Close()

	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topic == "" {
		return errors.New("archiver needs kafka.brokers and kafka.topic")
	}
	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "msggw-archiver"
	}

	consumer := kafka.NewConsumerFromConfig(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          cfg.Kafka.Topic,
		GroupID:        groupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
	})
	defer consumer.Close()

	w := worker.NewArchiver(consumer, repository.NewCHMessagesRepository(chDB), log.Named("archiver"))
	if cfg.Archiver.BatchSize > 0 {
		w.BatchSize = cfg.Archiver.BatchSize
	}
	if cfg.Archiver.BatchWait > 0 {
		w.BatchWait = cfg.Archiver.BatchWait
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("archiver started",
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group", groupID),
		zap.Int("batch_size", w.BatchSize),
		zap.Duration("batch_wait", w.BatchWait),
	)

	return w.Run(ctx)
}
