// Package alerting implements the alert profile and schedule model: the
// alert kind catalog, the alert type registry, per-kind schedules of alert
// entries, staged editing sessions and schedule evaluation.
package alerting

// Alert kind codes. Codes are persisted and must never be renumbered.
const (
	KindLow = iota
	KindHigh
	KindVeryLow
	KindVeryHigh
	KindMissedReading
	KindCalibration
	KindBatteryLow
	KindPhoneBatteryLow
	KindSensorWarmup
)

// ValueUnit names what an entry's threshold value measures.
type ValueUnit string

// Value units.
const (
	UnitNone    ValueUnit = "none"
	UnitGlucose ValueUnit = "glucose"
	UnitMinutes ValueUnit = "minutes"
	UnitHours   ValueUnit = "hours"
	UnitPercent ValueUnit = "percent"
)

// Trigger describes how a reading is compared with an entry's value.
type Trigger string

// Triggers.
const (
	// TriggerBelow fires when the reading is strictly below the value.
	TriggerBelow Trigger = "below"
	// TriggerAbove fires when the reading is strictly above the value.
	TriggerAbove Trigger = "above"
	// TriggerNone fires whenever the kind is evaluated.
	TriggerNone Trigger = "none"
)

// Schedule limits.
const (
	// FirstMinute is the start of the default entry of every kind.
	FirstMinute = 0
	// LastMinute is the latest start an entry can have (23:59).
	LastMinute = 24*60 - 1
	// MaxValue is the largest storable threshold value.
	MaxValue = 32767
)
