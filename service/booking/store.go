package booking

import (
	"context"
	"time"

	"github.com/KNartey/ServiceHub-server/cmd/models"
)

// Store is the persistence surface the scheduler needs. The gorm
// implementation backs the server; tests substitute an in-memory one.
// Implementations must return ErrNotFound (wrapped or bare) for missing
// records.
type Store interface {
	// WithTx runs fn inside a transaction; every store call made through
	// the Store passed to fn belongs to that transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	BookingByID(ctx context.Context, id uint) (*models.Booking, error)
	SaveBooking(ctx context.Context, b *models.Booking) error

	// OverlappingActive returns the provider's bookings whose status is not
	// CANCELLED and whose [start,end) interval overlaps the given one.
	OverlappingActive(ctx context.Context, providerID uint, start, end time.Time) ([]models.Booking, error)

	ProviderByID(ctx context.Context, id uint) (*models.ServiceProvider, error)

	// ExactSlot finds the first slot of the provider whose start and end
	// equal the given times exactly and whose availability matches. Slot
	// matching is deliberately equality-based, never overlap-based.
	ExactSlot(ctx context.Context, providerID uint, start, end time.Time, available bool) (*models.AvailabilitySlot, error)
	SaveSlot(ctx context.Context, s *models.AvailabilitySlot) error
}
