package models

import (
	"gorm.io/gorm"
)

type ServiceCategory struct {
	gorm.Model
	Name        string `gorm:"column:name;size:255;not null;uniqueIndex" json:"name"`
	Description string `gorm:"column:description;type:text" json:"description"`
}

func (ServiceCategory) TableName() string {
	return "service_categories"
}

// ServiceProvider is the bookable side of the marketplace. Rating and
// TotalReviews are derived state owned by the review aggregator; booking
// flows never write them.
type ServiceProvider struct {
	gorm.Model
	UserID          uint    `gorm:"column:user_id;not null;uniqueIndex" json:"user_id"`
	CategoryID      uint    `gorm:"column:category_id;not null;index" json:"category_id"`
	Bio             string  `gorm:"column:bio;type:text" json:"bio"`
	ExperienceYears float64 `gorm:"column:experience_years;default:0" json:"experience_years"`
	HourlyRate      float64 `gorm:"column:hourly_rate;not null" json:"hourly_rate"`
	Rating          float64 `gorm:"column:rating;default:0" json:"rating"`
	TotalReviews    int     `gorm:"column:total_reviews;default:0" json:"total_reviews"`
	Available       bool    `gorm:"column:available;default:true" json:"available"`
	Verified        bool    `gorm:"column:verified;default:false" json:"verified"`

	User     *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Category *ServiceCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (ServiceProvider) TableName() string {
	return "service_providers"
}
