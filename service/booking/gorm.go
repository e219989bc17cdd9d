package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KNartey/ServiceHub-server/cmd/models"
	"gorm.io/gorm"
)

// GormStore backs the scheduler with postgres through gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

func (s *GormStore) BookingByID(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := s.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, notFound(err, "booking")
	}
	return &b, nil
}

func (s *GormStore) SaveBooking(ctx context.Context, b *models.Booking) error {
	return s.db.WithContext(ctx).Save(b).Error
}

func (s *GormStore) OverlappingActive(ctx context.Context, providerID uint, start, end time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Where("provider_id = ? AND status <> ? AND start_time < ? AND end_time > ?",
			providerID, models.BookingCancelled, end, start).
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *GormStore) ProviderByID(ctx context.Context, id uint) (*models.ServiceProvider, error) {
	var p models.ServiceProvider
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err, "service provider")
	}
	return &p, nil
}

func (s *GormStore) ExactSlot(ctx context.Context, providerID uint, start, end time.Time, available bool) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	err := s.db.WithContext(ctx).
		Where("provider_id = ? AND start_time = ? AND end_time = ? AND available = ?",
			providerID, start, end, available).
		First(&slot).Error
	if err != nil {
		return nil, notFound(err, "availability slot")
	}
	return &slot, nil
}

func (s *GormStore) SaveSlot(ctx context.Context, slot *models.AvailabilitySlot) error {
	return s.db.WithContext(ctx).Save(slot).Error
}
