package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/glucoalert/alertcore/internal/units"
)

// ConversionResponse is a glucose value in both units.
type ConversionResponse struct {
	Input  string  `json:"input"`
	Unit   string  `json:"unit"`
	Native int     `json:"native"`
	MgDL   float64 `json:"mgdl"`
	MmolL  float64 `json:"mmol"`
}

// Convert parses ?value= in ?unit= and returns it in both units.
func (c *Controller) Convert(ctx echo.Context) error {
	unit, err := c.displayUnit(ctx)
	if err != nil {
		return badRequest(ctx, "Invalid unit")
	}
	raw := ctx.QueryParam("value")
	if raw == "" {
		return badRequest(ctx, "value is required")
	}
	native, err := units.ParseDisplay(raw, unit)
	if err != nil {
		return badRequest(ctx, "Invalid value")
	}
	return ctx.JSON(http.StatusOK, ConversionResponse{
		Input:  raw,
		Unit:   unit.Label(),
		Native: native,
		MgDL:   units.ToDisplay(native, units.MgDL),
		MmolL:  units.ToDisplay(native, units.MmolL),
	})
}
