// Package api hosts the HTTP server that mounts the versioned JSON APIs.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/glucoalert/alertcore/internal/alerting"
	apiv2 "github.com/glucoalert/alertcore/internal/api/v2"
	"github.com/glucoalert/alertcore/internal/conf"
	"github.com/glucoalert/alertcore/internal/errors"
	"github.com/glucoalert/alertcore/internal/logger"
)

const defaultShutdownTimeout = 10 * time.Second

// Server is the echo instance serving the alert settings API.
type Server struct {
	echo     *echo.Echo
	settings conf.HTTPSettings
	log      logger.Logger

	Controller *apiv2.Controller
}

// NewServer builds the server and registers the v2 routes. A per-IP rate
// limiter is installed when settings.RateLimit is positive.
func NewServer(settings conf.HTTPSettings, svc *alerting.Service, opts apiv2.Options) *Server {
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	log = log.Module("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(log))

	if opts.Limiter == nil && settings.RateLimit > 0 {
		opts.Limiter = apiv2.NewIPRateLimiter(apiv2.RateLimiterConfig{
			RequestsPerSecond: settings.RateLimit,
			BurstSize:         settings.RateBurst,
		})
	}
	opts.Log = log

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return &Server{
		echo:       e,
		settings:   settings,
		log:        log,
		Controller: apiv2.New(e, svc, opts),
	}
}

func requestLogger(log logger.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.Duration("latency", v.Latency),
				logger.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				log.Warn("request failed", append(fields, logger.Error(v.Error))...)
				return nil
			}
			log.Debug("request", fields...)
			return nil
		},
	})
}

// Handler exposes the router for in-process use.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on settings.Listen and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.settings.Listen)
	if err != nil {
		return errors.New(err).
			Component("http").
			Category(errors.CategoryNetwork).
			Context("listen", s.settings.Listen).
			Build()
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully within settings.ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.echo.Listener = ln
	s.log.Info("http server listening", logger.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start("")
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.New(err).Component("http").Category(errors.CategoryNetwork).Build()
	case <-ctx.Done():
	}

	timeout := s.settings.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("http server shutting down")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return errors.New(err).Component("http").Category(errors.CategoryNetwork).Build()
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.New(err).Component("http").Category(errors.CategoryNetwork).Build()
	}
	return nil
}
