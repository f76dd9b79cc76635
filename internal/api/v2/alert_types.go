package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/glucoalert/alertcore/internal/alerting"
	"github.com/glucoalert/alertcore/internal/datastore/v2/entities"
	"github.com/glucoalert/alertcore/internal/errors"
)

var errInvalidSound = errors.NewStd("invalid sound_name")

func (c *Controller) initAlertTypeRoutes() {
	types := c.Group.Group("/alert-types")
	types.GET("", c.ListAlertTypes)
	types.POST("", c.CreateAlertType)
	types.GET("/:id", c.GetAlertType)
	types.PUT("/:id", c.UpdateAlertType)
	types.DELETE("/:id", c.DeleteAlertType)
}

// AlertTypeRequest is the body of POST and PUT /alert-types. Omitted fields
// keep their current value, or the default for a new type. A sound_name of
// null selects the platform default sound.
type AlertTypeRequest struct {
	Name                       *string         `json:"name"`
	Enabled                    *bool           `json:"enabled"`
	Vibrate                    *bool           `json:"vibrate"`
	SoundName                  json.RawMessage `json:"sound_name"`
	OverrideMute               *bool           `json:"override_mute"`
	SnoozeViaNotification      *bool           `json:"snooze_via_notification"`
	DefaultSnoozePeriodMinutes *int            `json:"default_snooze_period_minutes"`
}

// apply stages the present fields on s.
func (r *AlertTypeRequest) apply(s *alerting.TypeSession) error {
	var errs []error
	if r.Name != nil {
		errs = append(errs, s.SetName(*r.Name))
	}
	if r.Enabled != nil {
		errs = append(errs, s.SetEnabled(*r.Enabled))
	}
	if r.Vibrate != nil {
		errs = append(errs, s.SetVibrate(*r.Vibrate))
	}
	if len(r.SoundName) > 0 {
		var sound *string
		if err := json.Unmarshal(r.SoundName, &sound); err != nil {
			return errInvalidSound
		}
		errs = append(errs, s.SetSoundName(sound))
	}
	if r.OverrideMute != nil {
		errs = append(errs, s.SetOverrideMute(*r.OverrideMute))
	}
	if r.SnoozeViaNotification != nil {
		errs = append(errs, s.SetSnoozeViaNotification(*r.SnoozeViaNotification))
	}
	if r.DefaultSnoozePeriodMinutes != nil {
		errs = append(errs, s.SetDefaultSnoozePeriod(*r.DefaultSnoozePeriodMinutes))
	}
	return errors.Join(errs...)
}

// ListAlertTypes returns every alert type.
func (c *Controller) ListAlertTypes(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	types, err := c.registry.List(reqCtx)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list alert types")
	}

	views := make([]AlertTypeView, 0, len(types))
	for i := range types {
		v, err := c.alertTypeView(reqCtx, &types[i])
		if err != nil {
			return c.HandleError(ctx, err, "Failed to list alert types")
		}
		views = append(views, v)
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"alert_types": views,
		"count":       len(views),
	})
}

// GetAlertType returns one alert type with its form state.
func (c *Controller) GetAlertType(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid alert type ID")
	}
	reqCtx := ctx.Request().Context()
	t, err := c.registry.Get(reqCtx, id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get alert type")
	}
	v, err := c.alertTypeView(reqCtx, t)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get alert type")
	}
	return ctx.JSON(http.StatusOK, v)
}

// CreateAlertType adds an alert type starting from the defaults.
func (c *Controller) CreateAlertType(ctx echo.Context) error {
	var req AlertTypeRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	if req.Name == nil || *req.Name == "" {
		return badRequest(ctx, "name is required")
	}
	return c.commitAlertType(ctx, c.registry.EditNew(), &req, http.StatusCreated)
}

// UpdateAlertType changes the present fields of an alert type.
func (c *Controller) UpdateAlertType(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid alert type ID")
	}
	var req AlertTypeRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	session, err := c.registry.Edit(ctx.Request().Context(), id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get alert type")
	}
	return c.commitAlertType(ctx, session, &req, http.StatusOK)
}

func (c *Controller) commitAlertType(ctx echo.Context, session *alerting.TypeSession, req *AlertTypeRequest, status int) error {
	defer func() {
		if !session.State().Terminal() {
			_ = session.Discard()
		}
	}()

	if err := req.apply(session); err != nil {
		if errors.Is(err, errInvalidSound) {
			return badRequest(ctx, "sound_name must be a string or null")
		}
		return c.HandleError(ctx, err, "Invalid alert type")
	}

	reqCtx := ctx.Request().Context()
	if err := session.Commit(reqCtx); err != nil {
		return c.HandleError(ctx, err, "Failed to save alert type")
	}
	t, err := c.registry.Get(reqCtx, session.AlertTypeID())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get alert type")
	}
	v, err := c.alertTypeView(reqCtx, t)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get alert type")
	}
	return ctx.JSON(status, v)
}

// DeleteAlertType removes an unreferenced alert type.
func (c *Controller) DeleteAlertType(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid alert type ID")
	}
	if err := c.registry.Delete(ctx.Request().Context(), id); err != nil {
		return c.HandleError(ctx, err, "Failed to delete alert type")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (c *Controller) alertTypeView(ctx context.Context, t *entities.AlertType) (AlertTypeView, error) {
	canDelete, err := c.registry.CanDelete(ctx, t.ID)
	if err != nil {
		return AlertTypeView{}, err
	}
	return AlertTypeView{
		AlertType: *t,
		CanDelete: canDelete,
		Fields:    alerting.TypeFormFields(t.Enabled),
	}, nil
}
