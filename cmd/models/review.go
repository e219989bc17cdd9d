package models

import (
	"gorm.io/gorm"
)

// Review is 1:1 with a completed booking. The uniqueness is enforced by an
// existence check in the review service, not a database constraint.
type Review struct {
	gorm.Model
	BookingID  uint   `gorm:"column:booking_id;not null;index" json:"booking_id"`
	CustomerID uint   `gorm:"column:customer_id;not null;index" json:"customer_id"`
	ProviderID uint   `gorm:"column:provider_id;not null;index" json:"provider_id"`
	Rating     int    `gorm:"column:rating;not null" json:"rating"`
	ReviewText string `gorm:"column:review_text;type:text" json:"review_text"`

	Booking  *Booking         `gorm:"foreignKey:BookingID" json:"booking,omitempty"`
	Customer *User            `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Provider *ServiceProvider `gorm:"foreignKey:ProviderID" json:"-"`
}
