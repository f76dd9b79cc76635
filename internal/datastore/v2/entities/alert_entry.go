package entities

import "time"

// AlertEntry is one time window of a kind's schedule. Start is minutes since
// midnight; the window runs until the next entry's start. Value is stored in
// the native unit of the kind.
type AlertEntry struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Kind        int        `gorm:"not null;uniqueIndex:idx_alert_entries_kind_start,priority:1" json:"kind"`
	Start       int        `gorm:"column:start_minute;not null;uniqueIndex:idx_alert_entries_kind_start,priority:2" json:"start"`
	Value       int        `gorm:"not null;default:0" json:"value"`
	AlertTypeID uint       `gorm:"not null;index" json:"alert_type_id"`
	AlertType   *AlertType `gorm:"foreignKey:AlertTypeID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"alert_type,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (AlertEntry) TableName() string {
	return "alert_entries"
}

// IsDefault reports whether this is the start-of-day entry of its kind.
func (e *AlertEntry) IsDefault() bool {
	return e.Start == 0
}
