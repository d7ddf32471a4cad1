package mockprovider

import (
	"context"
	"math/rand"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/jmehdipour/messaging-gateway/internal/config"
	"github.com/jmehdipour/messaging-gateway/internal/dispatcher"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Server simulates the SMS and email providers, failing a configurable share of requests.
type Server struct {
	e     *echo.Echo
	log   *zap.Logger
	mu    sync.Mutex
	roll  func() float64
	sms   config.OutcomeMix
	email config.OutcomeMix
}

// NewServer builds the mock. roll returns values in [0, 1); nil uses math/rand.
func NewServer(cfg config.MockProviderConfig, roll func() float64, logger *zap.Logger) *Server {
	if roll == nil {
		roll = rand.Float64
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{log: logger, roll: roll, sms: cfg.SMS, email: cfg.Email}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echoMid.Recover())
	e.POST("/sms/send", s.handle("sms", s.sms))
	e.POST("/email/send", s.handle("email", s.email))
	s.e = e

	return s
}

func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(addr string) error {
	s.log.Info("mock provider: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

func (s *Server) nextRoll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roll()
}

// pick maps roll onto the weighted outcomes in the order
// success, bad request, unauthorized, rate limited, server error.
func pick(mix config.OutcomeMix, roll float64) int {
	serverStatus := mix.ServerStatus
	if serverStatus == 0 {
		serverStatus = http.StatusInternalServerError
	}

	outcomes := []struct {
		weight float64
		status int
	}{
		{mix.Success, http.StatusCreated},
		{mix.BadRequest, http.StatusBadRequest},
		{mix.Unauthorized, http.StatusUnauthorized},
		{mix.RateLimited, http.StatusTooManyRequests},
		{mix.ServerError, serverStatus},
	}

	total := 0.0
	for _, o := range outcomes {
		if o.weight > 0 {
			total += o.weight
		}
	}
	if total <= 0 {
		return http.StatusCreated
	}

	target := roll * total
	acc := 0.0
	for _, o := range outcomes {
		if o.weight <= 0 {
			continue
		}
		acc += o.weight
		if target < acc {
			return o.status
		}
	}
	return http.StatusCreated
}

func (s *Server) handle(prefix string, mix config.OutcomeMix) echo.HandlerFunc {
	return func(c echo.Context) error {
		var p dispatcher.Payload
		if err := c.Bind(&p); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		}

		status := pick(mix, s.nextRoll())
		s.log.Debug("mock provider request",
			zap.String("channel", prefix),
			zap.String("to", p.To),
			zap.Int("status", status),
		)

		switch status {
		case http.StatusCreated:
			return c.JSON(http.StatusCreated, map[string]string{"id": prefix + "-" + uuid.NewString()})
		case http.StatusTooManyRequests:
			c.Response().Header().Set("Retry-After", "2")
			return c.JSON(status, map[string]string{"error": "rate limit exceeded"})
		default:
			return c.JSON(status, map[string]string{"error": http.StatusText(status)})
		}
	}
}
