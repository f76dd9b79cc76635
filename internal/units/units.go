// Package units converts glucose values between the native storage unit
// (integer mg/dL) and the user's display unit.
//
// Conversion to mmol/L is lossy: values are rounded to one decimal on the way
// out and to the nearest integer on the way back, so a round trip may move a
// value by one mg/dL.
package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unit is a glucose display unit.
type Unit string

const (
	// MgDL is the native storage unit.
	MgDL Unit = "mgdl"
	// MmolL is the alternate display unit.
	MmolL Unit = "mmol"
)

// MgDLPerMmolL is the fixed conversion ratio.
const MgDLPerMmolL = 18.0182

// ParseUnit accepts the config and transport spellings of a unit.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mgdl", "mg/dl", "mg":
		return MgDL, nil
	case "mmol", "mmol/l", "mmoll":
		return MmolL, nil
	default:
		return "", fmt.Errorf("unknown glucose unit %q", s)
	}
}

// Label returns the unit as shown to users.
func (u Unit) Label() string {
	if u == MmolL {
		return "mmol/L"
	}
	return "mg/dL"
}

// IsNative reports whether u is the storage unit.
func (u Unit) IsNative() bool {
	return u != MmolL
}

// ToDisplay converts a native value for display in unit u.
func ToDisplay(native int, u Unit) float64 {
	if u.IsNative() {
		return float64(native)
	}
	return math.Round(float64(native)/MgDLPerMmolL*10) / 10
}

// ToNative converts a display value in unit u back to the native integer.
func ToNative(display float64, u Unit) int {
	if u.IsNative() {
		return int(math.Round(display))
	}
	return int(math.Round(display * MgDLPerMmolL))
}

// Format renders a native value in unit u without the unit label.
func Format(native int, u Unit) string {
	if u.IsNative() {
		return strconv.Itoa(native)
	}
	return strconv.FormatFloat(ToDisplay(native, u), 'f', 1, 64)
}

// ParseDisplay parses user input in unit u and returns the native value.
// A comma decimal separator is accepted.
func ParseDisplay(input string, u Unit) (int, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(input), ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid glucose value %q: %w", input, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid glucose value %q", input)
	}
	return ToNative(v, u), nil
}
