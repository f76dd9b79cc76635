package alerting

// EntryField is a setting row of the alert entry form, in display order.
type EntryField string

// Entry form rows.
const (
	EntryFieldStart     EntryField = "start"
	EntryFieldAlertType EntryField = "alert_type"
	EntryFieldValue     EntryField = "value"
)

// TypeField is a setting row of the alert type form, in display order.
type TypeField string

// Alert type form rows.
const (
	TypeFieldEnabled               TypeField = "enabled"
	TypeFieldName                  TypeField = "name"
	TypeFieldVibrate               TypeField = "vibrate"
	TypeFieldSoundName             TypeField = "sound_name"
	TypeFieldOverrideMute          TypeField = "override_mute"
	TypeFieldSnoozeViaNotification TypeField = "snooze_via_notification"
	TypeFieldDefaultSnoozePeriod   TypeField = "default_snooze_period"
)

var allTypeFields = []TypeField{
	TypeFieldEnabled,
	TypeFieldName,
	TypeFieldVibrate,
	TypeFieldSoundName,
	TypeFieldOverrideMute,
	TypeFieldSnoozeViaNotification,
	TypeFieldDefaultSnoozePeriod,
}

// FieldState describes how a row is presented.
type FieldState struct {
	Field    string `json:"field"`
	Editable bool   `json:"editable"`
}

// ValueVisible reports whether the threshold value row is shown for an
// entry of kind whose alert type has the given enabled flag.
func ValueVisible(k Kind, alertTypeEnabled bool) bool {
	return k.NeedsValue || alertTypeEnabled
}

// EntryFormFields returns the visible rows of the alert entry form. The start
// row of the default entry is shown read-only. The value row may be visible
// for kinds without a value; it is never editable for them.
func EntryFormFields(k Kind, start int, alertTypeEnabled bool) []FieldState {
	fields := []FieldState{
		{Field: string(EntryFieldStart), Editable: start != FirstMinute},
		{Field: string(EntryFieldAlertType), Editable: true},
	}
	if ValueVisible(k, alertTypeEnabled) {
		fields = append(fields, FieldState{Field: string(EntryFieldValue), Editable: k.NeedsValue})
	}
	return fields
}

// TypeFormFields returns the visible rows of the alert type form. A disabled
// type only shows its enabled switch.
func TypeFormFields(enabled bool) []FieldState {
	if !enabled {
		return []FieldState{{Field: string(TypeFieldEnabled), Editable: true}}
	}
	fields := make([]FieldState, 0, len(allTypeFields))
	for _, f := range allTypeFields {
		fields = append(fields, FieldState{Field: string(f), Editable: true})
	}
	return fields
}

// HasField reports whether fields contains name.
func HasField(fields []FieldState, name string) bool {
	for _, f := range fields {
		if f.Field == name {
			return true
		}
	}
	return false
}
