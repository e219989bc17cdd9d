package review

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/KNartey/ServiceHub-server/cmd/models"
	"github.com/KNartey/ServiceHub-server/service/booking"
	"go.uber.org/zap"
)

var (
	ErrDuplicateReview = errors.New("review already exists for this booking")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrNotCompleted    = errors.New("can only review completed bookings")
)

// Store is the persistence surface for reviews plus the records the
// preconditions and the aggregator need to read.
type Store interface {
	ReviewByID(ctx context.Context, id uint) (*models.Review, error)
	ReviewsByProvider(ctx context.Context, providerID uint) ([]models.Review, error)
	HasReviewForBooking(ctx context.Context, bookingID uint) (bool, error)
	SaveReview(ctx context.Context, rv *models.Review) error
	DeleteReview(ctx context.Context, rv *models.Review) error

	BookingByID(ctx context.Context, id uint) (*models.Booking, error)
	ProviderByID(ctx context.Context, id uint) (*models.ServiceProvider, error)
	SaveProvider(ctx context.Context, p *models.ServiceProvider) error
}

// Service enforces review preconditions and keeps the provider's aggregate
// rating in sync with review mutations.
type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

type CreateReviewInput struct {
	BookingID  uint
	CustomerID uint
	Rating     int
	ReviewText string
}

// Create persists a review for a completed booking owned by the customer.
// Exactly one review may exist per booking; the provider is always derived
// from the booking, never taken from the caller.
func (s *Service) Create(ctx context.Context, in CreateReviewInput) (*models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, ErrInvalidRating
	}

	b, err := s.store.BookingByID(ctx, in.BookingID)
	if err != nil {
		return nil, fmt.Errorf("booking %d: %w", in.BookingID, err)
	}
	if b.Status != models.BookingCompleted {
		return nil, ErrNotCompleted
	}
	if b.CustomerID != in.CustomerID {
		return nil, fmt.Errorf("you can only review your own bookings: %w", booking.ErrForbidden)
	}

	exists, err := s.store.HasReviewForBooking(ctx, in.BookingID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateReview
	}

	now := time.Now()
	rv := &models.Review{
		BookingID:  in.BookingID,
		CustomerID: in.CustomerID,
		ProviderID: b.ProviderID,
		Rating:     in.Rating,
		ReviewText: in.ReviewText,
	}
	rv.CreatedAt = now
	rv.UpdatedAt = now

	if err := s.store.SaveReview(ctx, rv); err != nil {
		return nil, err
	}

	s.refreshProviderRating(ctx, b.ProviderID)

	return rv, nil
}

// Update edits a review owned by the actor and recomputes the provider
// aggregate.
func (s *Service) Update(ctx context.Context, reviewID, actorID uint, rating int, text string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	rv, err := s.store.ReviewByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("review %d: %w", reviewID, err)
	}
	if rv.CustomerID != actorID {
		return nil, fmt.Errorf("you can only update your own reviews: %w", booking.ErrForbidden)
	}

	rv.Rating = rating
	rv.ReviewText = text
	rv.UpdatedAt = time.Now()

	if err := s.store.SaveReview(ctx, rv); err != nil {
		return nil, err
	}

	s.refreshProviderRating(ctx, rv.ProviderID)

	return rv, nil
}

// Delete removes a review owned by the actor and recomputes the provider
// aggregate without it.
func (s *Service) Delete(ctx context.Context, reviewID, actorID uint) error {
	rv, err := s.store.ReviewByID(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("review %d: %w", reviewID, err)
	}
	if rv.CustomerID != actorID {
		return fmt.Errorf("you can only delete your own reviews: %w", booking.ErrForbidden)
	}

	providerID := rv.ProviderID
	if err := s.store.DeleteReview(ctx, rv); err != nil {
		return err
	}

	s.refreshProviderRating(ctx, providerID)

	return nil
}

func round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// refreshProviderRating rescans all of the provider's reviews and rewrites
// the stored mean and count. A full rescan is deliberate: incremental
// average updates are not safely invertible under concurrent deletes.
// Failures are logged and never propagate to the review mutation that
// triggered the recompute.
func (s *Service) refreshProviderRating(ctx context.Context, providerID uint) {
	reviews, err := s.store.ReviewsByProvider(ctx, providerID)
	if err != nil {
		s.log.Warn("error reading reviews for rating update",
			zap.Uint("provider_id", providerID), zap.Error(err))
		return
	}

	avg := 0.0
	if len(reviews) > 0 {
		sum := 0
		for _, rv := range reviews {
			sum += rv.Rating
		}
		avg = round2(float64(sum) / float64(len(reviews)))
	}

	provider, err := s.store.ProviderByID(ctx, providerID)
	if err != nil {
		s.log.Warn("error loading provider for rating update",
			zap.Uint("provider_id", providerID), zap.Error(err))
		return
	}

	provider.Rating = avg
	provider.TotalReviews = len(reviews)

	if err := s.store.SaveProvider(ctx, provider); err != nil {
		s.log.Warn("error updating provider rating",
			zap.Uint("provider_id", providerID), zap.Error(err))
	}
}
