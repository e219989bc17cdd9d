package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/KNartey/ServiceHub-server/cmd/models"
	"go.uber.org/zap"
)

// Notifier receives booking lifecycle events. Delivery is best-effort;
// implementations must not block the caller on failure.
type Notifier interface {
	BookingCreated(b *models.Booking)
	BookingStatusChanged(b *models.Booking)
}

// Scheduler owns booking creation, cancellation, and status transitions.
// Creates and cancels for the same provider are serialized by a per-provider
// mutex on top of the store transaction, so two overlapping requests cannot
// both pass the conflict check before either one commits.
type Scheduler struct {
	store    Store
	log      *zap.Logger
	notifier Notifier

	mu            sync.Mutex
	providerLocks map[uint]*sync.Mutex
}

func NewScheduler(store Store, log *zap.Logger) *Scheduler {
	return &Scheduler{
		store:         store,
		log:           log,
		providerLocks: make(map[uint]*sync.Mutex),
	}
}

// SetNotifier attaches an optional lifecycle notifier.
func (s *Scheduler) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Scheduler) providerLock(providerID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lk, ok := s.providerLocks[providerID]
	if !ok {
		lk = &sync.Mutex{}
		s.providerLocks[providerID] = lk
	}
	return lk
}

type CreateBookingInput struct {
	CustomerID  uint
	ProviderID  uint
	Start       time.Time
	End         time.Time
	Description string
	Address     string
	// TotalAmount overrides the computed duration * hourly rate when set.
	TotalAmount *float64
}

// round2 rounds half-up to two decimal places. Inputs are never negative.
func round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// Amount computes duration-in-hours (minutes / 60, rounded to two decimals
// half-up) times the hourly rate, rounded the same way.
func Amount(start, end time.Time, hourlyRate float64) float64 {
	hours := round2(end.Sub(start).Minutes() / 60)
	return round2(hours * hourlyRate)
}

// CreateBooking validates the interval, checks the provider's active
// bookings for overlap, computes the amount, reserves an exactly-matching
// availability slot when one exists, and persists the booking as PENDING.
// The conflict check, insert, and slot flip are one atomic unit.
func (s *Scheduler) CreateBooking(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	if !in.End.After(in.Start) {
		return nil, ErrInvalidInterval
	}

	lk := s.providerLock(in.ProviderID)
	lk.Lock()
	defer lk.Unlock()

	var created *models.Booking
	err := s.store.WithTx(ctx, func(tx Store) error {
		provider, err := tx.ProviderByID(ctx, in.ProviderID)
		if err != nil {
			return fmt.Errorf("provider %d: %w", in.ProviderID, err)
		}

		conflicts, err := tx.OverlappingActive(ctx, in.ProviderID, in.Start, in.End)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return fmt.Errorf("provider %d between %s and %s: %w",
				in.ProviderID, in.Start.Format(time.RFC3339), in.End.Format(time.RFC3339), ErrSlotConflict)
		}

		amount := Amount(in.Start, in.End, provider.HourlyRate)
		if in.TotalAmount != nil {
			amount = *in.TotalAmount
		}

		now := time.Now()
		b := &models.Booking{
			CustomerID:  in.CustomerID,
			ProviderID:  in.ProviderID,
			StartTime:   in.Start,
			EndTime:     in.End,
			Status:      models.BookingPending,
			Description: in.Description,
			Address:     in.Address,
			TotalAmount: amount,
		}
		b.CreatedAt = now
		b.UpdatedAt = now

		if err := tx.SaveBooking(ctx, b); err != nil {
			return err
		}

		// A missing exact slot is tolerated: the booking still stands on
		// its own conflict check.
		slot, err := tx.ExactSlot(ctx, in.ProviderID, in.Start, in.End, true)
		switch {
		case err == nil:
			slot.Available = false
			if err := tx.SaveSlot(ctx, slot); err != nil {
				return err
			}
		case errors.Is(err, ErrNotFound):
		default:
			return err
		}

		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.BookingCreated(created)
	}
	return created, nil
}

// ConfirmBooking moves a PENDING booking to CONFIRMED. The actor must be
// the user behind the booking's provider.
func (s *Scheduler) ConfirmBooking(ctx context.Context, bookingID, actorID uint) (*models.Booking, error) {
	return s.providerTransition(ctx, bookingID, actorID, models.BookingConfirmed)
}

// StartService moves a CONFIRMED booking to IN_PROGRESS.
func (s *Scheduler) StartService(ctx context.Context, bookingID, actorID uint) (*models.Booking, error) {
	return s.providerTransition(ctx, bookingID, actorID, models.BookingInProgress)
}

// CompleteService moves an IN_PROGRESS booking to COMPLETED.
func (s *Scheduler) CompleteService(ctx context.Context, bookingID, actorID uint) (*models.Booking, error) {
	return s.providerTransition(ctx, bookingID, actorID, models.BookingCompleted)
}

// UpdateStatus is the generic provider-facing status change. It runs through
// the same transition table as the dedicated operations, so illegal jumps
// are rejected rather than silently applied.
func (s *Scheduler) UpdateStatus(ctx context.Context, bookingID uint, status string, actorID uint) (*models.Booking, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("unknown status %q: %w", status, ErrIllegalTransition)
	}
	if status == models.BookingCancelled {
		return s.cancel(ctx, bookingID, cancelOptions{actorProviderUserID: actorID})
	}
	return s.providerTransition(ctx, bookingID, actorID, status)
}

func (s *Scheduler) providerTransition(ctx context.Context, bookingID, actorID uint, to string) (*models.Booking, error) {
	var updated *models.Booking
	err := s.store.WithTx(ctx, func(tx Store) error {
		b, err := tx.BookingByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("booking %d: %w", bookingID, err)
		}

		provider, err := tx.ProviderByID(ctx, b.ProviderID)
		if err != nil {
			return fmt.Errorf("provider %d: %w", b.ProviderID, err)
		}
		if provider.UserID != actorID {
			return fmt.Errorf("you can only update bookings for your services: %w", ErrForbidden)
		}

		if !CanTransition(b.Status, to) {
			return fmt.Errorf("cannot move booking from %s to %s: %w", b.Status, to, ErrIllegalTransition)
		}

		b.Status = to
		b.UpdatedAt = time.Now()
		if err := tx.SaveBooking(ctx, b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.BookingStatusChanged(updated)
	}
	return updated, nil
}

type cancelOptions struct {
	// actorCustomerID, when set, requires the booking to belong to that
	// customer and restricts cancellation to PENDING or CONFIRMED.
	actorCustomerID uint
	// actorProviderUserID, when set, requires the actor to be the booking's
	// provider. Any non-terminal status may be cancelled.
	actorProviderUserID uint
	reason              string
}

// CancelBooking is the customer-initiated cancellation.
func (s *Scheduler) CancelBooking(ctx context.Context, bookingID, customerID uint) (*models.Booking, error) {
	return s.cancel(ctx, bookingID, cancelOptions{actorCustomerID: customerID})
}

// CancelBookingWithReason is the internal/administrative cancellation. It
// records the reason in the booking notes and blocks only COMPLETED bookings.
func (s *Scheduler) CancelBookingWithReason(ctx context.Context, bookingID uint, reason string) (*models.Booking, error) {
	return s.cancel(ctx, bookingID, cancelOptions{reason: reason})
}

func (s *Scheduler) cancel(ctx context.Context, bookingID uint, opts cancelOptions) (*models.Booking, error) {
	b, err := s.store.BookingByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("booking %d: %w", bookingID, err)
	}

	lk := s.providerLock(b.ProviderID)
	lk.Lock()
	defer lk.Unlock()

	var cancelled *models.Booking
	err = s.store.WithTx(ctx, func(tx Store) error {
		b, err := tx.BookingByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("booking %d: %w", bookingID, err)
		}

		if opts.actorCustomerID != 0 && b.CustomerID != opts.actorCustomerID {
			return fmt.Errorf("you can only cancel your own bookings: %w", ErrForbidden)
		}
		if opts.actorProviderUserID != 0 {
			provider, err := tx.ProviderByID(ctx, b.ProviderID)
			if err != nil {
				return fmt.Errorf("provider %d: %w", b.ProviderID, err)
			}
			if provider.UserID != opts.actorProviderUserID {
				return fmt.Errorf("you can only cancel bookings for your services: %w", ErrForbidden)
			}
		}

		if b.Status == models.BookingCompleted {
			return fmt.Errorf("completed bookings cannot be cancelled: %w", ErrIllegalTransition)
		}
		if opts.actorCustomerID != 0 &&
			b.Status != models.BookingPending && b.Status != models.BookingConfirmed {
			return fmt.Errorf("cannot cancel booking with status %s: %w", b.Status, ErrIllegalTransition)
		}

		b.Status = models.BookingCancelled
		if opts.reason != "" {
			b.Notes = b.Notes + "\nCancellation reason: " + opts.reason
		}
		b.UpdatedAt = time.Now()
		if err := tx.SaveBooking(ctx, b); err != nil {
			return err
		}

		cancelled = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Best-effort and outside the transaction: a failed slot write must not
	// take the committed cancellation down with it.
	s.restoreSlot(ctx, s.store, cancelled)

	if s.notifier != nil {
		s.notifier.BookingStatusChanged(cancelled)
	}
	return cancelled, nil
}

// restoreSlot flips the exactly-matching consumed slot back to available.
// Failures are logged and swallowed: slot drift must never block a
// cancellation.
func (s *Scheduler) restoreSlot(ctx context.Context, st Store, b *models.Booking) {
	slot, err := st.ExactSlot(ctx, b.ProviderID, b.StartTime, b.EndTime, false)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn("error restoring availability slot",
				zap.Uint("booking_id", b.ID), zap.Error(err))
		}
		return
	}
	slot.Available = true
	if err := st.SaveSlot(ctx, slot); err != nil {
		s.log.Warn("error restoring availability slot",
			zap.Uint("booking_id", b.ID), zap.Uint("slot_id", slot.ID), zap.Error(err))
	}
}

// UpdateBooking edits the free-text fields of a PENDING booking owned by
// the given customer. Times and amount are immutable after creation.
func (s *Scheduler) UpdateBooking(ctx context.Context, bookingID, customerID uint, description, address, notes string) (*models.Booking, error) {
	var updated *models.Booking
	err := s.store.WithTx(ctx, func(tx Store) error {
		b, err := tx.BookingByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("booking %d: %w", bookingID, err)
		}
		if b.CustomerID != customerID {
			return fmt.Errorf("you can only update your own bookings: %w", ErrForbidden)
		}
		if b.Status != models.BookingPending {
			return fmt.Errorf("only pending bookings can be updated: %w", ErrIllegalTransition)
		}

		b.Description = description
		b.Address = address
		b.Notes = notes
		b.UpdatedAt = time.Now()
		if err := tx.SaveBooking(ctx, b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
