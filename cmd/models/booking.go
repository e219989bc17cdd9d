package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	BookingPending    = "PENDING"
	BookingConfirmed  = "CONFIRMED"
	BookingInProgress = "IN_PROGRESS"
	BookingCompleted  = "COMPLETED"
	BookingCancelled  = "CANCELLED"
)

type Booking struct {
	gorm.Model
	CustomerID  uint      `gorm:"column:customer_id;not null;index" json:"customer_id"`
	ProviderID  uint      `gorm:"column:provider_id;not null;index" json:"provider_id"`
	StartTime   time.Time `gorm:"column:start_time;not null" json:"start_time"`
	EndTime     time.Time `gorm:"column:end_time;not null" json:"end_time"`
	Status      string    `gorm:"column:status;size:50;not null;default:PENDING" json:"status"`
	Description string    `gorm:"column:description;size:1000" json:"description"`
	TotalAmount float64   `gorm:"column:total_amount;not null" json:"total_amount"`
	Address     string    `gorm:"column:address;size:255" json:"address"`
	Notes       string    `gorm:"column:notes;size:1000" json:"notes"`

	Customer *User            `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Provider *ServiceProvider `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
}

// Overlaps reports whether the booking's [start,end) window intersects the
// given one. Touching endpoints do not overlap.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

func (b *Booking) Active() bool {
	return b.Status != BookingCancelled
}
