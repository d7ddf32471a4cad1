package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jmehdipour/messaging-gateway/internal/config"
	"github.com/jmehdipour/messaging-gateway/internal/dispatcher"
	"github.com/jmehdipour/messaging-gateway/internal/http/middleware"
	"github.com/jmehdipour/messaging-gateway/internal/metrics"
	"github.com/jmehdipour/messaging-gateway/internal/repository"
	"github.com/jmehdipour/messaging-gateway/internal/service/messaging"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Service       MessageService
	Conversations repository.ConversationsRepository
	Messages      repository.MessagesRepository
	Providers     repository.ProvidersRepository
	Reports       repository.CHMessagesRepository // nil when ClickHouse is not configured
	Redis         *redis.Client
}

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

func NewServer(cfg config.Config, sqlDB, clickhouseDB *sqlx.DB, rds *redis.Client, dispatch *dispatcher.Dispatcher, logger *zap.Logger) *Server {
	// repos (primary store)
	conversationsRepo := repository.NewConversationsRepository(sqlDB)
	messagesRepo := repository.NewMessagesRepository(sqlDB)
	providersRepo := repository.NewProvidersRepository(sqlDB)
	outboxRepo := repository.NewOutboxRepository(sqlDB)

	// services
	store := messaging.NewStore(sqlDB, conversationsRepo, messagesRepo, outboxRepo, cfg.Kafka.Topic)
	svc := messaging.NewService(store, dispatch, logger)

	deps := Deps{
		Service:       svc,
		Conversations: conversationsRepo,
		Messages:      messagesRepo,
		Providers:     providersRepo,
		Redis:         rds,
	}
	// repos (ClickHouse)
	if clickhouseDB != nil {
		deps.Reports = repository.NewCHMessagesRepository(clickhouseDB)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	return &Server{e: newEcho(cfg, deps), log: logger}
}

func newEcho(cfg config.Config, d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(gommonLevel(cfg.Log.Level))
	e.Use(echoMid.Recover(), echoMid.Logger())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          d.Redis,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:ip:",
		Window:         time.Second,
		RetryAfterHint: true,
	})
	hookMW := middleware.WebhookTokenMiddleware(cfg.Webhooks.Token)

	// routes
	api := e.Group("/api")
	api.POST("/messages/sms", sendMessageHandler(d.Service, smsRoute), rlMW)
	api.POST("/messages/email", sendMessageHandler(d.Service, emailRoute), rlMW)

	hooks := api.Group("/webhooks", hookMW)
	hooks.POST("/sms", receiveWebhookHandler(d.Service, smsRoute))
	hooks.POST("/email", receiveWebhookHandler(d.Service, emailRoute))

	api.GET("/conversations", listConversationsHandler(d.Conversations))
	api.GET("/conversations/:id/messages", listConversationMessagesHandler(d.Messages))
	api.GET("/providers", listProvidersHandler(d.Providers))

	if d.Reports != nil {
		api.GET("/reports/messages", listReportsHandler(d.Reports))
	}

	return e
}

func gommonLevel(level string) log.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	default:
		return log.INFO
	}
}

func (s *Server) Start(addr string) error {
	s.log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
