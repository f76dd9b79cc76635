package conf

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// MinutesPerDay is the number of distinct minute-of-day values.
const MinutesPerDay = 24 * 60

// LastMinute is the final minute of the day (23:59).
const LastMinute = MinutesPerDay - 1

// TimeOfDay is a minute offset from local midnight in [0, 1439]. It
// serializes as "HH:MM" in JSON and YAML.
type TimeOfDay int

// Minutes returns the offset from midnight.
func (t TimeOfDay) Minutes() int {
	return int(t)
}

// Valid reports whether t falls within a single day.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t <= LastMinute
}

// String formats t as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// ParseTimeOfDay accepts "HH:MM", "H:MM" or a bare minute count.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty time of day")
	}

	if hh, mm, ok := strings.Cut(s, ":"); ok {
		h, err := strconv.Atoi(hh)
		if err != nil || h < 0 || h > 23 {
			return 0, fmt.Errorf("invalid hour in time of day %q", s)
		}
		m, err := strconv.Atoi(mm)
		if err != nil || len(mm) != 2 || m < 0 || m > 59 {
			return 0, fmt.Errorf("invalid minute in time of day %q", s)
		}
		return TimeOfDay(h*60 + m), nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}
	t := TimeOfDay(n)
	if !t.Valid() {
		return 0, fmt.Errorf("time of day %d out of range [0, %d]", n, LastMinute)
	}
	return t, nil
}

// MarshalJSON outputs the time as a JSON string like "08:30".
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts "HH:MM" or a number of minutes.
func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case string:
		parsed, err := ParseTimeOfDay(value)
		if err != nil {
			return err
		}
		*t = parsed
	case float64:
		parsed := TimeOfDay(int(value))
		if float64(int(value)) != value || !parsed.Valid() {
			return fmt.Errorf("invalid time of day %v", value)
		}
		*t = parsed
	case nil:
		*t = 0
	default:
		return fmt.Errorf("invalid time of day value: %v (type %T)", v, v)
	}
	return nil
}

// MarshalYAML outputs the time as "HH:MM".
func (t TimeOfDay) MarshalYAML() (any, error) {
	return t.String(), nil
}

// UnmarshalYAML accepts the same forms as ParseTimeOfDay.
func (t *TimeOfDay) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("expected scalar time of day, got %v", value.Kind)
	}
	parsed, err := ParseTimeOfDay(value.Value)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

var timeOfDayType = reflect.TypeFor[TimeOfDay]()

// DecodeHook returns the mapstructure hook viper uses for Settings. It
// converts "HH:MM" strings to TimeOfDay and keeps viper's default duration
// and slice conversions.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.DecodeHookFuncType(func(from, to reflect.Type, data any) (any, error) {
			if to != timeOfDayType {
				return data, nil
			}

			switch v := data.(type) {
			case string:
				return ParseTimeOfDay(v)
			case int:
				return ParseTimeOfDay(strconv.Itoa(v))
			case int64:
				return ParseTimeOfDay(strconv.FormatInt(v, 10))
			case float64:
				return ParseTimeOfDay(strconv.Itoa(int(v)))
			default:
				return data, nil
			}
		}),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}
