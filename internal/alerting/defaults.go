package alerting

// DefaultAlertTypeName names the alert type seeded on first start.
const DefaultAlertTypeName = "Default"

// DefaultSnoozePeriodMinutes is the snooze period of new alert types.
const DefaultSnoozePeriodMinutes = 60

// DefaultAlertTypeFields returns the attributes new alert types start with.
func DefaultAlertTypeFields() AlertTypeFields {
	return AlertTypeFields{
		Name:                       DefaultAlertTypeName,
		Enabled:                    true,
		Vibrate:                    true,
		SoundName:                  nil,
		OverrideMute:               false,
		SnoozeViaNotification:      true,
		DefaultSnoozePeriodMinutes: DefaultSnoozePeriodMinutes,
	}
}

// defaultEntryValue is the value of a kind's seeded start-of-day entry.
func defaultEntryValue(k Kind) int {
	if !k.NeedsValue {
		return 0
	}
	return k.DefaultValue
}
