// Package api implements the v2 JSON API over the alert settings model.
package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/glucoalert/alertcore/internal/alerting"
	"github.com/glucoalert/alertcore/internal/errors"
	"github.com/glucoalert/alertcore/internal/logger"
	"github.com/glucoalert/alertcore/internal/units"
)

// Prefix is the mount point of the v2 API.
const Prefix = "/api/v2"

// Options configures a Controller.
type Options struct {
	// Unit is the default display unit; requests may override it with ?unit=.
	Unit units.Unit
	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Limiter rate limits every route. Nil disables rate limiting.
	Limiter *IPRateLimiter
	Log     logger.Logger
}

// Controller serves the v2 API.
type Controller struct {
	Group *echo.Group

	registry  *alerting.Registry
	schedule  *alerting.Schedule
	evaluator *alerting.Evaluator
	unit      units.Unit
	log       logger.Logger
}

// New registers the v2 routes on e.
func New(e *echo.Echo, svc *alerting.Service, opts Options) *Controller {
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	unit := opts.Unit
	if unit == "" {
		unit = units.MgDL
	}

	var mw []echo.MiddlewareFunc
	if opts.Limiter != nil {
		mw = append(mw, opts.Limiter.Middleware())
	}

	c := &Controller{
		Group:     e.Group(Prefix, mw...),
		registry:  svc.Registry,
		schedule:  svc.Schedule,
		evaluator: svc.Evaluator,
		unit:      unit,
		log:       log.Module("api"),
	}

	c.initKindRoutes()
	c.initAlertTypeRoutes()
	c.initEntryRoutes()
	c.Group.GET("/convert", c.Convert)
	if opts.Gatherer != nil {
		c.Group.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	return c
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, alerting.ErrDuplicateName),
		errors.Is(err, alerting.ErrOverlap),
		errors.Is(err, alerting.ErrInUse):
		return http.StatusConflict
	case errors.Is(err, alerting.ErrNotFound),
		errors.Is(err, alerting.ErrUnknownKind):
		return http.StatusNotFound
	case errors.Is(err, alerting.ErrOutOfBounds),
		errors.Is(err, alerting.ErrIsDefaultEntry),
		errors.Is(err, alerting.ErrKindHasNoValue),
		errors.Is(err, alerting.ErrInvalidAlertType):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes err as JSON. Domain errors carry their own message;
// anything else is logged and reported with message.
func (c *Controller) HandleError(ctx echo.Context, err error, message string) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.log.Error(message,
			logger.String("path", ctx.Path()),
			logger.String("method", ctx.Request().Method),
			logger.Error(err))
		return ctx.JSON(status, ErrorResponse{Error: message})
	}
	return ctx.JSON(status, ErrorResponse{Error: err.Error(), Message: message})
}

func badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

func parseUintParam(ctx echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid %s parameter %q", name, ctx.Param(name))
	}
	return uint(v), nil
}

// parseKindParam accepts a kind code or name.
func parseKindParam(ctx echo.Context) (alerting.Kind, error) {
	raw := ctx.Param("kind")
	if code, err := strconv.Atoi(raw); err == nil {
		return alerting.Lookup(code)
	}
	return alerting.LookupName(raw)
}

// displayUnit returns the ?unit= override or the controller default.
func (c *Controller) displayUnit(ctx echo.Context) (units.Unit, error) {
	raw := ctx.QueryParam("unit")
	if raw == "" {
		return c.unit, nil
	}
	return units.ParseUnit(raw)
}
