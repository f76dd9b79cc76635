package api

import (
	"github.com/glucoalert/alertcore/internal/alerting"
	"github.com/glucoalert/alertcore/internal/conf"
	"github.com/glucoalert/alertcore/internal/datastore/v2/entities"
	"github.com/glucoalert/alertcore/internal/units"
)

// EntryView is a schedule entry rendered for one display unit.
type EntryView struct {
	ID            uint           `json:"id"`
	Kind          string         `json:"kind"`
	Code          int            `json:"code"`
	Start         conf.TimeOfDay `json:"start"`
	StartMinute   int            `json:"start_minute"`
	Value         int            `json:"value"`
	DisplayValue  float64        `json:"display_value"`
	DisplayText   string         `json:"display_text"`
	UnitText      string         `json:"unit_text,omitempty"`
	AlertTypeID   uint           `json:"alert_type_id"`
	AlertTypeName string         `json:"alert_type_name,omitempty"`
	IsDefault     bool           `json:"is_default"`
}

func newEntryView(e *entities.AlertEntry, unit units.Unit) EntryView {
	k, err := alerting.Lookup(e.Kind)
	if err != nil {
		k = alerting.Kind{Code: e.Kind}
	}
	v := EntryView{
		ID:           e.ID,
		Kind:         k.Name,
		Code:         e.Kind,
		Start:        conf.TimeOfDay(e.Start),
		StartMinute:  e.Start,
		Value:        e.Value,
		DisplayValue: k.DisplayValue(e.Value, unit),
		DisplayText:  k.FormatValue(e.Value, unit),
		UnitText:     k.UnitText(unit),
		AlertTypeID:  e.AlertTypeID,
		IsDefault:    e.IsDefault(),
	}
	if e.AlertType != nil {
		v.AlertTypeName = e.AlertType.Name
	}
	return v
}

func newEntryViews(entries []entities.AlertEntry, unit units.Unit) []EntryView {
	out := make([]EntryView, 0, len(entries))
	for i := range entries {
		out = append(out, newEntryView(&entries[i], unit))
	}
	return out
}

// AlertTypeView is an alert type with its form state.
type AlertTypeView struct {
	entities.AlertType
	CanDelete bool                  `json:"can_delete"`
	Fields    []alerting.FieldState `json:"fields"`
}

