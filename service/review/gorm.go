package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/KNartey/ServiceHub-server/cmd/models"
	"github.com/KNartey/ServiceHub-server/service/booking"
	"gorm.io/gorm"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, booking.ErrNotFound)
	}
	return err
}

func (s *GormStore) ReviewByID(ctx context.Context, id uint) (*models.Review, error) {
	var rv models.Review
	if err := s.db.WithContext(ctx).First(&rv, id).Error; err != nil {
		return nil, notFound(err, "review")
	}
	return &rv, nil
}

func (s *GormStore) ReviewsByProvider(ctx context.Context, providerID uint) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.WithContext(ctx).
		Where("provider_id = ?", providerID).Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func (s *GormStore) HasReviewForBooking(ctx context.Context, bookingID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Review{}).
		Where("booking_id = ?", bookingID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) SaveReview(ctx context.Context, rv *models.Review) error {
	return s.db.WithContext(ctx).Save(rv).Error
}

func (s *GormStore) DeleteReview(ctx context.Context, rv *models.Review) error {
	return s.db.WithContext(ctx).Delete(rv).Error
}

func (s *GormStore) BookingByID(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := s.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, notFound(err, "booking")
	}
	return &b, nil
}

func (s *GormStore) ProviderByID(ctx context.Context, id uint) (*models.ServiceProvider, error) {
	var p models.ServiceProvider
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err, "service provider")
	}
	return &p, nil
}

func (s *GormStore) SaveProvider(ctx context.Context, p *models.ServiceProvider) error {
	return s.db.WithContext(ctx).Save(p).Error
}
