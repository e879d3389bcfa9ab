package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/atelierdevis/devis-gateway/internal/auth"
	"github.com/atelierdevis/devis-gateway/internal/config"
	"github.com/atelierdevis/devis-gateway/internal/flag"
	"github.com/atelierdevis/devis-gateway/internal/pipeline"
	"github.com/atelierdevis/devis-gateway/internal/ratelimit"
	"github.com/atelierdevis/devis-gateway/internal/repository"
	"github.com/atelierdevis/devis-gateway/internal/token"
)

type Server struct{ e *echo.Echo }

// NewServer wires the domain objects and routes. External collaborators
// (object storage, mail relay, event broker) come in behind the pipeline
// interfaces so tests can fake them.
func NewServer(
	cfg config.Config,
	orders repository.OrdersRepository,
	rds *redis.Client,
	store pipeline.ObjectStorage,
	notifier pipeline.Notifier,
	publisher pipeline.EventPublisher,
) *Server {
	limiter := ratelimit.New(rds, cfg.Admin.Window)
	tokens := token.NewService(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
	flags := flag.NewService(
		flag.NewStore(rds),
		flag.NewStatusCache(cfg.StatusCache.TTL, time.Now),
	)
	gate := auth.NewGate(limiter, tokens, flags, cfg.Admin.Password, cfg.Admin.MaxAttempts)

	pipe := pipeline.New(store, orders, notifier, publisher)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// routes: same paths the old serverless functions answered on
	e.POST("/admin-auth", adminAuthHandler(gate))
	e.POST("/jwt-login", jwtLoginHandler(gate))
	e.GET("/get-status", getStatusHandler(gate))
	e.POST("/toggle-status", toggleStatusHandler(gate))
	e.POST("/send-mail", sendMailHandler(pipe))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler { return s.e }
