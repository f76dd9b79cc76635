package alerting

import (
	"fmt"

	"github.com/glucoalert/alertcore/internal/units"
)

// Kind is an immutable alert kind catalog entry.
type Kind struct {
	Code                int       `json:"code"`
	Name                string    `json:"name"`
	Title               string    `json:"title"`
	NeedsValue          bool      `json:"needs_value"`
	ValueUnit           ValueUnit `json:"value_unit"`
	NeedsMmolConversion bool      `json:"needs_mmol_conversion"`
	DefaultValue        int       `json:"default_value"`
	Trigger             Trigger   `json:"trigger"`
}

var catalog = [...]Kind{
	KindLow:             {Code: KindLow, Name: "low", Title: "Low", NeedsValue: true, ValueUnit: UnitGlucose, NeedsMmolConversion: true, DefaultValue: 70, Trigger: TriggerBelow},
	KindHigh:            {Code: KindHigh, Name: "high", Title: "High", NeedsValue: true, ValueUnit: UnitGlucose, NeedsMmolConversion: true, DefaultValue: 170, Trigger: TriggerAbove},
	KindVeryLow:         {Code: KindVeryLow, Name: "verylow", Title: "Very Low", NeedsValue: true, ValueUnit: UnitGlucose, NeedsMmolConversion: true, DefaultValue: 50, Trigger: TriggerBelow},
	KindVeryHigh:        {Code: KindVeryHigh, Name: "veryhigh", Title: "Very High", NeedsValue: true, ValueUnit: UnitGlucose, NeedsMmolConversion: true, DefaultValue: 250, Trigger: TriggerAbove},
	KindMissedReading:   {Code: KindMissedReading, Name: "missedreading", Title: "Missed Reading", NeedsValue: true, ValueUnit: UnitMinutes, DefaultValue: 30, Trigger: TriggerAbove},
	KindCalibration:     {Code: KindCalibration, Name: "calibration", Title: "Calibration Request", NeedsValue: true, ValueUnit: UnitHours, DefaultValue: 24, Trigger: TriggerAbove},
	KindBatteryLow:      {Code: KindBatteryLow, Name: "batterylow", Title: "Transmitter Battery Low", NeedsValue: true, ValueUnit: UnitPercent, DefaultValue: 20, Trigger: TriggerBelow},
	KindPhoneBatteryLow: {Code: KindPhoneBatteryLow, Name: "phonebatterylow", Title: "Phone Battery Low", NeedsValue: true, ValueUnit: UnitPercent, DefaultValue: 20, Trigger: TriggerBelow},
	KindSensorWarmup:    {Code: KindSensorWarmup, Name: "sensorwarmup", Title: "Sensor Warm-up Finished", ValueUnit: UnitNone, Trigger: TriggerNone},
}

// Lookup returns the catalog entry for code.
func Lookup(code int) (Kind, error) {
	if code < 0 || code >= len(catalog) {
		return Kind{}, fmt.Errorf("%w: %d", ErrUnknownKind, code)
	}
	return catalog[code], nil
}

// LookupName returns the catalog entry with the given name.
func LookupName(name string) (Kind, error) {
	for i := range catalog {
		if catalog[i].Name == name {
			return catalog[i], nil
		}
	}
	return Kind{}, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// NeedsValue reports whether entries of the kind carry a threshold value.
func NeedsValue(code int) (bool, error) {
	k, err := Lookup(code)
	if err != nil {
		return false, err
	}
	return k.NeedsValue, nil
}

// Kinds returns the full catalog ordered by code.
func Kinds() []Kind {
	out := make([]Kind, len(catalog))
	copy(out, catalog[:])
	return out
}

// UnitText returns the label of the kind's value in the given display unit.
func (k Kind) UnitText(display units.Unit) string {
	switch k.ValueUnit {
	case UnitGlucose:
		return display.Label()
	case UnitMinutes:
		return "min"
	case UnitHours:
		return "h"
	case UnitPercent:
		return "%"
	default:
		return ""
	}
}

// converts reports whether values of the kind change with the display unit.
func (k Kind) converts(display units.Unit) bool {
	return k.NeedsMmolConversion && !display.IsNative()
}

// DisplayValue converts a stored value for presentation.
func (k Kind) DisplayValue(native int, display units.Unit) float64 {
	if !k.converts(display) {
		return float64(native)
	}
	return units.ToDisplay(native, display)
}

// NativeValue converts a presented value back to storage form.
func (k Kind) NativeValue(value float64, display units.Unit) int {
	if !k.converts(display) {
		return units.ToNative(value, units.MgDL)
	}
	return units.ToNative(value, display)
}

// FormatValue renders a stored value in the display unit.
func (k Kind) FormatValue(native int, display units.Unit) string {
	if !k.converts(display) {
		return units.Format(native, units.MgDL)
	}
	return units.Format(native, display)
}

// Compare reports whether reading breaches threshold for the kind's trigger.
func (k Kind) Compare(reading float64, threshold int) bool {
	switch k.Trigger {
	case TriggerBelow:
		return reading < float64(threshold)
	case TriggerAbove:
		return reading > float64(threshold)
	case TriggerNone:
		return true
	default:
		return false
	}
}

// DisplayValue converts a stored value of kind for presentation in unit.
func DisplayValue(k Kind, native int, unit units.Unit) float64 {
	return k.DisplayValue(native, unit)
}

// NativeValue converts a value presented in unit back to storage form.
func NativeValue(k Kind, display float64, unit units.Unit) int {
	return k.NativeValue(display, unit)
}
