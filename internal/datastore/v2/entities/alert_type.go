package entities

import "time"

// AlertType is a named alert profile shared by schedule entries.
// SoundName is nil for the platform default sound and "" for no sound.
type AlertType struct {
	ID                         uint      `gorm:"primaryKey" json:"id"`
	Name                       string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Enabled                    bool      `gorm:"not null" json:"enabled"`
	Vibrate                    bool      `gorm:"not null" json:"vibrate"`
	SoundName                  *string   `gorm:"size:255" json:"sound_name"`
	OverrideMute               bool      `gorm:"not null;default:false" json:"override_mute"`
	SnoozeViaNotification      bool      `gorm:"not null" json:"snooze_via_notification"`
	DefaultSnoozePeriodMinutes int       `gorm:"not null" json:"default_snooze_period_minutes"`
	CreatedAt                  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (AlertType) TableName() string {
	return "alert_types"
}

// UsesDefaultSound reports whether the platform default sound plays.
func (t *AlertType) UsesDefaultSound() bool {
	return t.SoundName == nil
}

// IsSilent reports whether the type plays no sound at all.
func (t *AlertType) IsSilent() bool {
	return t.SoundName != nil && *t.SoundName == ""
}
