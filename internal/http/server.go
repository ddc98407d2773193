package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/jmehdipour/energymon/internal/config"
	"github.com/jmehdipour/energymon/internal/http/middleware"
	"github.com/jmehdipour/energymon/internal/metrics"
	"github.com/jmehdipour/energymon/internal/repository"
)

type Server struct{ e *echo.Echo }

// NewServer wires the read-only reporting API over the replica store (MySQL)
// and the alert history (ClickHouse). It never writes the pipeline's tables.
func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client) *Server {
	bucketsRepo := repository.NewHourlyConsumptionRepository(mysqlDB)
	alertsRepo := repository.NewCHAlertsRepository(clickhouseDB)

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:ip:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	e.GET("/monitoring/:deviceId", dailyConsumptionHandler(bucketsRepo), rlMW)

	v1 := e.Group("/v1", rlMW)
	v1.GET("/alerts", listAlertsHandler(alertsRepo))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
