package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/glucoalert/alertcore/internal/alerting"
	"github.com/glucoalert/alertcore/internal/conf"
	"github.com/glucoalert/alertcore/internal/units"
)

func (c *Controller) initKindRoutes() {
	kinds := c.Group.Group("/kinds")
	kinds.GET("", c.ListKinds)
	kinds.GET("/:kind/entries", c.ListEntries)
	kinds.POST("/:kind/entries", c.CreateEntry)
	kinds.GET("/:kind/active", c.GetActiveEntry)
	kinds.POST("/:kind/evaluate", c.EvaluateReading)
	kinds.POST("/:kind/snooze", c.SnoozeKind)
	kinds.DELETE("/:kind/snooze", c.UnsnoozeKind)
}

// ListKinds returns the alert kind catalog for the display unit.
func (c *Controller) ListKinds(ctx echo.Context) error {
	unit, err := c.displayUnit(ctx)
	if err != nil {
		return badRequest(ctx, "Invalid unit")
	}
	return ctx.JSON(http.StatusOK, alerting.GetSchema(unit))
}

// ListEntries returns a kind's schedule ordered by start.
func (c *Controller) ListEntries(ctx echo.Context) error {
	k, err := parseKindParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Unknown alert kind")
	}
	unit, err := c.displayUnit(ctx)
	if err != nil {
		return badRequest(ctx, "Invalid unit")
	}

	entries, err := c.schedule.ListForKind(ctx.Request().Context(), k.Code)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list alert entries")
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"kind":    k.Name,
		"entries": newEntryViews(entries, unit),
		"count":   len(entries),
	})
}

// CreateEntryRequest is the body of POST /kinds/:kind/entries. Value is in
// the display unit; when omitted the kind's default is used.
type CreateEntryRequest struct {
	Start       *conf.TimeOfDay `json:"start"`
	Value       *float64        `json:"value"`
	AlertTypeID uint            `json:"alert_type_id"`
}

// CreateEntry adds an entry to a kind's schedule.
func (c *Controller) CreateEntry(ctx echo.Context) error {
	k, err := parseKindParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Unknown alert kind")
	}
	unit, err := c.displayUnit(ctx)
	if err != nil {
		return badRequest(ctx, "Invalid unit")
	}

	var req CreateEntryRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	if req.Start == nil {
		return badRequest(ctx, "start is required")
	}
	if req.AlertTypeID == 0 {
		return badRequest(ctx, "alert_type_id is required")
	}

	value := k.DefaultValue
	if req.Value != nil {
		value = k.NativeValue(*req.Value, unit)
	}

	entry, err := c.schedule.Create(ctx.Request().Context(), k.Code, req.Start.Minutes(), value, req.AlertTypeID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to create alert entry")
	}
	return ctx.JSON(http.StatusCreated, newEntryView(entry, unit))
}

// GetActiveEntry returns the entry in effect at ?minute= or ?time=HH:MM.
func (c *Controller) GetActiveEntry(ctx echo.Context) error {
	k, err := parseKindParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Unknown alert kind")
	}
	unit, err := c.displayUnit(ctx)
	if err != nil {
		return badRequest(ctx, "Invalid unit")
	}

	var minute int
	switch {
	case ctx.QueryParam("minute") != "":
		if minute, err = strconv.Atoi(ctx.QueryParam("minute")); err != nil {
			return badRequest(ctx, "Invalid minute")
		}
	case ctx.QueryParam("time") != "":
		t, err := conf.ParseTimeOfDay(ctx.QueryParam("time"))
		if err != nil {
			return badRequest(ctx, "Invalid time")
		}
		minute = t.Minutes()
	default:
		return badRequest(ctx, "minute or time is required")
	}

	entry, err := c.evaluator.ActiveEntry(ctx.Request().Context(), k.Code, minute)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to resolve active entry")
	}
	return ctx.JSON(http.StatusOK, newEntryView(entry, unit))
}

// EvaluateRequest is the body of POST /kinds/:kind/evaluate. Glucose
// readings are in the display unit. At defaults to now.
type EvaluateRequest struct {
	Reading *float64   `json:"reading"`
	At      *time.Time `json:"at"`
}

// EvaluateReading checks a reading against the entry active at the given time.
func (c *Controller) EvaluateReading(ctx echo.Context) error {
	k, err := parseKindParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Unknown alert kind")
	}
	unit, err := c.displayUnit(ctx)
	if err != nil {
		return badRequest(ctx, "Invalid unit")
	}
	var req EvaluateRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	var reading float64
	if req.Reading != nil {
		reading = *req.Reading
	} else if k.NeedsValue {
		return badRequest(ctx, "reading is required")
	}
	if k.NeedsMmolConversion && !unit.IsNative() {
		reading *= units.MgDLPerMmolL
	}

	d, err := c.evaluator.Evaluate(ctx.Request().Context(), k.Code, requestTime(req.At), reading)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to evaluate reading")
	}
	return ctx.JSON(http.StatusOK, d)
}

// SnoozeRequest is the body of POST /kinds/:kind/snooze. Zero minutes uses
// the active alert type's default snooze period.
type SnoozeRequest struct {
	Minutes int        `json:"minutes"`
	At      *time.Time `json:"at"`
}

// SnoozeKind silences a kind.
func (c *Controller) SnoozeKind(ctx echo.Context) error {
	k, err := parseKindParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Unknown alert kind")
	}
	var req SnoozeRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	until, err := c.evaluator.Snooze(ctx.Request().Context(), k.Code, requestTime(req.At), req.Minutes)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to snooze")
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"kind":          k.Name,
		"snoozed_until": until,
	})
}

// UnsnoozeKind clears a kind's snooze.
func (c *Controller) UnsnoozeKind(ctx echo.Context) error {
	k, err := parseKindParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Unknown alert kind")
	}
	c.evaluator.Unsnooze(k.Code)
	return ctx.NoContent(http.StatusNoContent)
}

func requestTime(at *time.Time) time.Time {
	if at == nil || at.IsZero() {
		return time.Now()
	}
	return *at
}
