package models

import (
	"time"

	"gorm.io/gorm"
)

// AvailabilitySlot is a provider-declared open window, not a reservation.
// A booking that consumes it flips Available to false; cancelling that
// booking flips it back. There is no stored link between a slot and the
// booking that consumed it: the association is recomputed by exact
// start/end equality on every reservation and release.
type AvailabilitySlot struct {
	gorm.Model
	ProviderID uint      `gorm:"column:provider_id;not null;index" json:"provider_id"`
	StartTime  time.Time `gorm:"column:start_time;not null" json:"start_time"`
	EndTime    time.Time `gorm:"column:end_time;not null" json:"end_time"`
	Available  bool      `gorm:"column:available;default:true" json:"available"`

	Provider *ServiceProvider `gorm:"foreignKey:ProviderID" json:"-"`
}

func (AvailabilitySlot) TableName() string {
	return "availability_slots"
}
