package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/glucoalert/alertcore/internal/alerting"
	"github.com/glucoalert/alertcore/internal/conf"
)

func (c *Controller) initEntryRoutes() {
	entries := c.Group.Group("/entries")
	entries.GET("/:id", c.GetEntry)
	entries.PUT("/:id", c.UpdateEntry)
	entries.DELETE("/:id", c.DeleteEntry)
	entries.PATCH("/:id/start", c.SetEntryStart)
	entries.PATCH("/:id/value", c.SetEntryValue)
	entries.PATCH("/:id/alert-type", c.SetEntryAlertType)
	entries.GET("/:id/bounds", c.GetEntryBounds)
	entries.GET("/:id/fields", c.GetEntryFields)
}

// GetEntry returns one schedule entry.
func (c *Controller) GetEntry(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid entry ID")
	}
	unit, err := c.displayUnit(ctx)
	if err != nil {
		return badRequest(ctx, "Invalid unit")
	}

	entry, err := c.schedule.Get(ctx.Request().Context(), id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get alert entry")
	}
	return ctx.JSON(http.StatusOK, newEntryView(entry, unit))
}

// UpdateEntryRequest is the body of PUT /entries/:id. Omitted fields keep
// their current value; Value is in the display unit.
type UpdateEntryRequest struct {
	Start       *conf.TimeOfDay `json:"start"`
	Value       *float64        `json:"value"`
	AlertTypeID *uint           `json:"alert_type_id"`
}

// UpdateEntry stages the given fields in an editing session and commits
// them together.
func (c *Controller) UpdateEntry(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid entry ID")
	}
	unit, err := c.displayUnit(ctx)
	if err != nil {
		return badRequest(ctx, "Invalid unit")
	}
	var req UpdateEntryRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	reqCtx := ctx.Request().Context()
	session, err := c.schedule.Edit(reqCtx, id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get alert entry")
	}
	defer func() {
		if !session.State().Terminal() {
			_ = session.Discard()
		}
	}()

	if req.Start != nil && req.Start.Minutes() != session.Fields().Start {
		if err := session.SetStart(req.Start.Minutes()); err != nil {
			return c.HandleError(ctx, err, "Invalid start")
		}
	}
	// An echoed display value is rounded and would drift the stored one.
	if req.Value != nil && *req.Value != session.DisplayValue(unit) {
		if err := session.SetDisplayValue(*req.Value, unit); err != nil {
			return c.HandleError(ctx, err, "Invalid value")
		}
	}
	if req.AlertTypeID != nil {
		if err := session.SetAlertType(*req.AlertTypeID); err != nil {
			return c.HandleError(ctx, err, "Invalid alert type")
		}
	}
	if err := session.Commit(reqCtx); err != nil {
		return c.HandleError(ctx, err, "Failed to update alert entry")
	}

	entry, err := c.schedule.Get(reqCtx, id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get alert entry")
	}
	return ctx.JSON(http.StatusOK, newEntryView(entry, unit))
}

// DeleteEntry removes a non-default entry.
func (c *Controller) DeleteEntry(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid entry ID")
	}
	if err := c.schedule.Delete(ctx.Request().Context(), id); err != nil {
		return c.HandleError(ctx, err, "Failed to delete alert entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// SetEntryStart moves an entry within its bounds. Body: {"start": "HH:MM"}.
func (c *Controller) SetEntryStart(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid entry ID")
	}
	var req struct {
		Start *conf.TimeOfDay `json:"start"`
	}
	if err := ctx.Bind(&req); err != nil || req.Start == nil {
		return badRequest(ctx, "start is required")
	}
	if err := c.schedule.SetStart(ctx.Request().Context(), id, req.Start.Minutes()); err != nil {
		return c.HandleError(ctx, err, "Failed to set start")
	}
	return c.GetEntry(ctx)
}

// SetEntryValue sets an entry's threshold. Body: {"value": 3.9} in the
// display unit.
func (c *Controller) SetEntryValue(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid entry ID")
	}
	unit, err := c.displayUnit(ctx)
	if err != nil {
		return badRequest(ctx, "Invalid unit")
	}
	var req struct {
		Value *float64 `json:"value"`
	}
	if err := ctx.Bind(&req); err != nil || req.Value == nil {
		return badRequest(ctx, "value is required")
	}

	reqCtx := ctx.Request().Context()
	entry, err := c.schedule.Get(reqCtx, id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get alert entry")
	}
	k, err := alerting.Lookup(entry.Kind)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to set value")
	}
	if err := c.schedule.SetValue(reqCtx, id, k.NativeValue(*req.Value, unit)); err != nil {
		return c.HandleError(ctx, err, "Failed to set value")
	}
	return c.GetEntry(ctx)
}

// SetEntryAlertType points an entry at another type. Body: {"alert_type_id": 2}.
func (c *Controller) SetEntryAlertType(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid entry ID")
	}
	var req struct {
		AlertTypeID uint `json:"alert_type_id"`
	}
	if err := ctx.Bind(&req); err != nil || req.AlertTypeID == 0 {
		return badRequest(ctx, "alert_type_id is required")
	}
	if err := c.schedule.SetAlertType(ctx.Request().Context(), id, req.AlertTypeID); err != nil {
		return c.HandleError(ctx, err, "Failed to set alert type")
	}
	return c.GetEntry(ctx)
}

// GetEntryBounds returns the range an entry's start may be moved within.
func (c *Controller) GetEntryBounds(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid entry ID")
	}
	b, err := c.schedule.EditableBounds(ctx.Request().Context(), id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get bounds")
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"min":       conf.TimeOfDay(b.Min),
		"max":       conf.TimeOfDay(b.Max),
		"immutable": b.Immutable,
	})
}

// GetEntryFields returns the visible form rows of an entry.
func (c *Controller) GetEntryFields(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid entry ID")
	}
	entry, err := c.schedule.Get(ctx.Request().Context(), id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get alert entry")
	}
	k, err := alerting.Lookup(entry.Kind)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get alert entry")
	}
	enabled := entry.AlertType != nil && entry.AlertType.Enabled
	return ctx.JSON(http.StatusOK, map[string]any{
		"fields": alerting.EntryFormFields(k, entry.Start, enabled),
	})
}
