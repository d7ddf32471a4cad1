package cmd

import (
	"fmt"
	"time"

	"github.com/jmehdipour/messaging-gateway/internal/config"
	"github.com/jmehdipour/messaging-gateway/internal/db"
	"github.com/jmehdipour/messaging-gateway/internal/dispatcher"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

func openPrimary(cfg config.Config) (*sqlx.DB, error) {
	sqlDB, err := db.NewSQLConnection(cfg.Database.Driver, cfg.Database.DSN, db.SQLOpts{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		PingTimeout:     cfg.Database.PingTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}
	return sqlDB, nil
}

// openClickHouse returns nil, nil when no DSN is configured.
func openClickHouse(cfg config.Config) (*sqlx.DB, error) {
	chDB, err := db.NewClickHouseConnection(db.ClickHouseOpts{
		DSN:             cfg.ClickHouse.DSN,
		MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
		MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
		PingTimeout:     cfg.ClickHouse.PingTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse connect: %w", err)
	}
	return chDB, nil
}

// newDispatcher builds one client per configured channel. A channel with an
// empty endpoint gets no client and its sends fail with ErrUnsupportedType.
func newDispatcher(cfg config.Config, logger *zap.Logger) *dispatcher.Dispatcher {
	var clients []dispatcher.Client
	if o, ok := clientOpts(cfg.Providers.SMS); ok {
		clients = append(clients, dispatcher.NewSMSClient(o))
	} else {
		logger.Warn("no sms provider endpoint configured")
	}
	if o, ok := clientOpts(cfg.Providers.Email); ok {
		clients = append(clients, dispatcher.NewEmailClient(o))
	} else {
		logger.Warn("no email provider endpoint configured")
	}

	retry := dispatcher.NewRetryPolicy(cfg.Retry.MaxRetries, cfg.Retry.Delay, logger.Named("retry"))
	return dispatcher.NewDispatcher(retry, clients...)
}

func clientOpts(pc config.ProviderConfig) (dispatcher.HTTPClientOpts, bool) {
	if pc.Endpoint == "" {
		return dispatcher.HTTPClientOpts{}, false
	}
	return dispatcher.HTTPClientOpts{
		Name:          pc.Name,
		Endpoint:      pc.Endpoint,
		Timeout:       time.Duration(pc.TimeoutMs) * time.Millisecond,
		RPS:           pc.RPS,
		Burst:         pc.Burst,
		FailThreshold: pc.Breaker.FailThreshold,
		OpenFor:       time.Duration(pc.Breaker.OpenForMs) * time.Millisecond,
	}, true
}
