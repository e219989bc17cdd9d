package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/KNartey/ServiceHub-server/cmd/models"
	"go.uber.org/zap"
)

// memStore is an in-memory Store for scheduler tests. Transactions are
// serialized by a single mutex; the tests never fail mid-transaction after
// a write, so rollback is not modeled.
type memStore struct {
	txMu sync.Mutex

	mu        sync.Mutex
	bookings  map[uint]*models.Booking
	providers map[uint]*models.ServiceProvider
	slots     map[uint]*models.AvailabilitySlot
	nextID    uint
}

func newMemStore() *memStore {
	return &memStore{
		bookings:  make(map[uint]*models.Booking),
		providers: make(map[uint]*models.ServiceProvider),
		slots:     make(map[uint]*models.AvailabilitySlot),
	}
}

func (m *memStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(m)
}

func (m *memStore) BookingByID(ctx context.Context, id uint) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) SaveBooking(ctx context.Context, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == 0 {
		m.nextID++
		b.ID = m.nextID
	}
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memStore) OverlappingActive(ctx context.Context, providerID uint, start, end time.Time) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.ProviderID == providerID && b.Active() && b.Overlaps(start, end) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memStore) ProviderByID(ctx context.Context, id uint) (*models.ServiceProvider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.providers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ExactSlot(ctx context.Context, providerID uint, start, end time.Time, available bool) (*models.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slots {
		if s.ProviderID == providerID && s.StartTime.Equal(start) && s.EndTime.Equal(end) && s.Available == available {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) SaveSlot(ctx context.Context, slot *models.AvailabilitySlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slot.ID == 0 {
		m.nextID++
		slot.ID = m.nextID
	}
	cp := *slot
	m.slots[slot.ID] = &cp
	return nil
}

func (m *memStore) addProvider(p *models.ServiceProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[p.ID] = p
}

func (m *memStore) addBooking(b *models.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == 0 {
		m.nextID++
		b.ID = m.nextID
	}
	m.bookings[b.ID] = b
}

func (m *memStore) addSlot(s *models.AvailabilitySlot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		m.nextID++
		s.ID = m.nextID
	}
	m.slots[s.ID] = s
}

func (m *memStore) bookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

func (m *memStore) slotByID(id uint) *models.AvailabilitySlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.slots[id]
	return &cp
}

func testScheduler(store *memStore) *Scheduler {
	return NewScheduler(store, zap.NewNop())
}

func at(hour, min int) time.Time {
	return time.Date(2025, 6, 2, hour, min, 0, 0, time.UTC)
}

func seedProvider(store *memStore, rate float64) *models.ServiceProvider {
	p := &models.ServiceProvider{UserID: 100, HourlyRate: rate, Available: true}
	p.ID = 1
	store.addProvider(p)
	return p
}

func TestCreateBookingInvalidInterval(t *testing.T) {
	store := newMemStore()
	seedProvider(store, 50)
	s := testScheduler(store)

	_, err := s.CreateBooking(context.Background(), CreateBookingInput{
		CustomerID: 7, ProviderID: 1, Start: at(12, 0), End: at(10, 0),
	})
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}

	// Same start and end is also invalid.
	_, err = s.CreateBooking(context.Background(), CreateBookingInput{
		CustomerID: 7, ProviderID: 1, Start: at(10, 0), End: at(10, 0),
	})
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}

	if store.bookingCount() != 0 {
		t.Fatalf("invalid booking must never persist, found %d bookings", store.bookingCount())
	}
}

func TestCreateBookingComputesAmount(t *testing.T) {
	store := newMemStore()
	seedProvider(store, 50)
	s := testScheduler(store)

	b, err := s.CreateBooking(context.Background(), CreateBookingInput{
		CustomerID: 7, ProviderID: 1, Start: at(10, 0), End: at(12, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.TotalAmount != 100.00 {
		t.Errorf("expected total amount 100.00, got %v", b.TotalAmount)
	}
	if b.Status != models.BookingPending {
		t.Errorf("expected status PENDING, got %s", b.Status)
	}
}

func TestCreateBookingExplicitAmount(t *testing.T) {
	store := newMemStore()
	seedProvider(store, 50)
	s := testScheduler(store)

	amount := 80.0
	b, err := s.CreateBooking(context.Background(), CreateBookingInput{
		CustomerID: 7, ProviderID: 1, Start: at(10, 0), End: at(12, 0), TotalAmount: &amount,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.TotalAmount != 80.0 {
		t.Errorf("explicit amount must win, got %v", b.TotalAmount)
	}
}

func TestAmountRounding(t *testing.T) {
	cases := []struct {
		start, end time.Time
		rate       float64
		want       float64
	}{
		{at(10, 0), at(12, 0), 50, 100.00},
		{at(10, 0), at(11, 30), 50, 75.00},
		{at(9, 0), at(9, 50), 60, 49.80},  // 50min -> 0.83h
		{at(9, 0), at(9, 20), 100, 33.00}, // 20min -> 0.33h
	}
	for _, tc := range cases {
		if got := Amount(tc.start, tc.end, tc.rate); got != tc.want {
			t.Errorf("Amount(%v-%v, %v) = %v, want %v", tc.start, tc.end, tc.rate, got, tc.want)
		}
	}
}

func TestCreateBookingConflict(t *testing.T) {
	store := newMemStore()
	seedProvider(store, 50)
	s := testScheduler(store)

	if _, err := s.CreateBooking(context.Background(), CreateBookingInput{
		CustomerID: 7, ProviderID: 1, Start: at(9, 0), End: at(10, 0),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := s.CreateBooking(context.Background(), CreateBookingInput{
		CustomerID: 8, ProviderID: 1, Start: at(9, 30), End: at(10, 30),
	})
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}
}

func TestCreateBookingTouchingIntervalsDoNotConflict(t *testing.T) {
	store := newMemStore()
	seedProvider(store, 50)
	s := testScheduler(store)

	if _, err := s.CreateBooking(context.Background(), CreateBookingInput{
		CustomerID: 7, ProviderID: 1, Start: at(9, 0), End: at(10, 0),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.CreateBooking(context.Background(), CreateBookingInput{
		CustomerID: 8, ProviderID: 1, Start: at(10, 0), End: at(11, 0),
	}); err != nil {
		t.Fatalf("back-to-back bookings must not conflict: %v", err)
	}
}

func TestCreateBookingAfterCancellationReusesWindow(t *testing.T) {
	store := newMemStore()
	seedProvider(store, 50)
	s := testScheduler(store)

	b, err := s.CreateBooking(context.Background(), CreateBookingInput{
		CustomerID: 7, ProviderID: 1, Start: at(9, 0), End: at(10, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.CancelBooking(context.Background(), b.ID, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.CreateBooking(context.Background(), CreateBookingInput{
		CustomerID: 8, ProviderID: 1, Start: at(9, 0), End: at(10, 0),
	}); err != nil {
		t.Fatalf("cancelled bookings must not block the window: %v", err)
	}
}

func TestSlotReserveReleaseRoundTrip(t *testing.T) {
	store := newMemStore()
	seedProvider(store, 50)
	slot := &models.AvailabilitySlot{ProviderID: 1, StartTime: at(9, 0), EndTime: at(10, 0), Available: true}
	store.addSlot(slot)
	s := testScheduler(store)

	b, err := s.CreateBooking(context.Background(), CreateBookingInput{
		CustomerID: 7, ProviderID: 1, Start: at(9, 0), End: at(10, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.slotByID(slot.ID); got.Available {
		t.Fatal("slot should be unavailable after booking")
	}

	if _, err := s.CancelBooking(context.Background(), b.ID, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.slotByID(slot.ID); !got.Available {
		t.Fatal("slot should be available again after cancellation")
	}
}

func TestSubRangeBookingLeavesLargerSlotAlone(t *testing.T) {
	store := newMemStore()
	seedProvider(store, 50)
	slot := &models.AvailabilitySlot{ProviderID: 1, StartTime: at(9, 0), EndTime: at(12, 0), Available: true}
	store.addSlot(slot)
	s := testScheduler(store)

	// Matching is exact equality: a sub-range booking neither consumes
	// nor frees the larger slot.
	if _, err := s.CreateBooking(context.Background(), CreateBookingInput{
		CustomerID: 7, ProviderID: 1, Start: at(9, 0), End: at(10, 0),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.slotByID(slot.ID); !got.Available {
		t.Fatal("sub-range booking must not consume the larger slot")
	}
}

func TestCreateBookingWithoutSlotStillSucceeds(t *testing.T) {
	store := newMemStore()
	seedProvider(store, 50)
	s := testScheduler(store)

	if _, err := s.CreateBooking(context.Background(), CreateBookingInput{
		CustomerID: 7, ProviderID: 1, Start: at(9, 0), End: at(10, 0),
	}); err != nil {
		t.Fatalf("a missing exact slot must not fail the booking: %v", err)
	}
}

func TestCancelCompletedBookingFails(t *testing.T) {
	store := newMemStore()
	seedProvider(store, 50)
	b := &models.Booking{CustomerID: 7, ProviderID: 1, StartTime: at(9, 0), EndTime: at(10, 0), Status: models.BookingCompleted}
	store.addBooking(b)
	s := testScheduler(store)

	_, err := s.CancelBookingWithReason(context.Background(), b.ID, "customer request")
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}

	got, _ := store.BookingByID(context.Background(), b.ID)
	if got.Status != models.BookingCompleted {
		t.Errorf("booking must be unchanged, got status %s", got.Status)
	}
}

func TestCustomerCancelOwnershipAndStatus(t *testing.T) {
	store := newMemStore()
	seedProvider(store, 50)
	b := &models.Booking{CustomerID: 7, ProviderID: 1, StartTime: at(9, 0), EndTime: at(10, 0), Status: models.BookingInProgress}
	store.addBooking(b)
	s := testScheduler(store)

	if _, err := s.CancelBooking(context.Background(), b.ID, 99); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for wrong customer, got %v", err)
	}

	// Customers may only cancel PENDING or CONFIRMED bookings.
	if _, err := s.CancelBooking(context.Background(), b.ID, 7); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition for in-progress cancel, got %v", err)
	}
}

func TestCancelWithReasonAppendsNotes(t *testing.T) {
	store := newMemStore()
	seedProvider(store, 50)
	b := &models.Booking{CustomerID: 7, ProviderID: 1, StartTime: at(9, 0), EndTime: at(10, 0),
		Status: models.BookingConfirmed, Notes: "bring ladder"}
	store.addBooking(b)
	s := testScheduler(store)

	cancelled, err := s.CancelBookingWithReason(context.Background(), b.ID, "provider unavailable")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "bring ladder\nCancellation reason: provider unavailable"
	if cancelled.Notes != want {
		t.Errorf("notes = %q, want %q", cancelled.Notes, want)
	}
}

func TestConfirmOnlyFromPending(t *testing.T) {
	store := newMemStore()
	seedProvider(store, 50)
	updatedAt := at(8, 0)
	b := &models.Booking{CustomerID: 7, ProviderID: 1, StartTime: at(9, 0), EndTime: at(10, 0), Status: models.BookingConfirmed}
	b.UpdatedAt = updatedAt
	store.addBooking(b)
	s := testScheduler(store)

	_, err := s.ConfirmBooking(context.Background(), b.ID, 100)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}

	got, _ := store.BookingByID(context.Background(), b.ID)
	if !got.UpdatedAt.Equal(updatedAt) {
		t.Error("failed transition must not touch updatedAt")
	}
}

func TestProviderTransitionAuthorization(t *testing.T) {
	store := newMemStore()
	seedProvider(store, 50)
	b := &models.Booking{CustomerID: 7, ProviderID: 1, StartTime: at(9, 0), EndTime: at(10, 0), Status: models.BookingPending}
	store.addBooking(b)
	s := testScheduler(store)

	if _, err := s.ConfirmBooking(context.Background(), b.ID, 55); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for wrong provider user, got %v", err)
	}

	confirmed, err := s.ConfirmBooking(context.Background(), b.ID, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if confirmed.Status != models.BookingConfirmed {
		t.Errorf("expected CONFIRMED, got %s", confirmed.Status)
	}
}

func TestFullLifecycle(t *testing.T) {
	store := newMemStore()
	seedProvider(store, 50)
	s := testScheduler(store)

	b, err := s.CreateBooking(context.Background(), CreateBookingInput{
		CustomerID: 7, ProviderID: 1, Start: at(9, 0), End: at(10, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.ConfirmBooking(context.Background(), b.ID, 100); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := s.StartService(context.Background(), b.ID, 100); err != nil {
		t.Fatalf("start: %v", err)
	}
	done, err := s.CompleteService(context.Background(), b.ID, 100)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != models.BookingCompleted {
		t.Errorf("expected COMPLETED, got %s", done.Status)
	}
}

func TestUpdateStatusRejectsIllegalJump(t *testing.T) {
	store := newMemStore()
	seedProvider(store, 50)
	b := &models.Booking{CustomerID: 7, ProviderID: 1, StartTime: at(9, 0), EndTime: at(10, 0), Status: models.BookingPending}
	store.addBooking(b)
	s := testScheduler(store)

	// The generic status update goes through the same transition table:
	// PENDING cannot jump straight to COMPLETED.
	if _, err := s.UpdateStatus(context.Background(), b.ID, models.BookingCompleted, 100); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}

	if _, err := s.UpdateStatus(context.Background(), b.ID, "SOMETHING", 100); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition for unknown status, got %v", err)
	}

	if _, err := s.UpdateStatus(context.Background(), b.ID, models.BookingConfirmed, 100); err != nil {
		t.Fatalf("legal transition via generic path: %v", err)
	}
}

func TestUpdateBookingOnlyWhilePending(t *testing.T) {
	store := newMemStore()
	seedProvider(store, 50)
	b := &models.Booking{CustomerID: 7, ProviderID: 1, StartTime: at(9, 0), EndTime: at(10, 0), Status: models.BookingConfirmed}
	store.addBooking(b)
	s := testScheduler(store)

	_, err := s.UpdateBooking(context.Background(), b.ID, 7, "new desc", "new addr", "new notes")
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestConcurrentOverlappingCreatesExactlyOneWins(t *testing.T) {
	store := newMemStore()
	seedProvider(store, 50)
	s := testScheduler(store)

	var wg sync.WaitGroup
	results := make(chan error, 2)

	intervals := []struct{ start, end time.Time }{
		{at(9, 0), at(10, 0)},
		{at(9, 30), at(10, 30)},
	}
	for i, iv := range intervals {
		wg.Add(1)
		go func(customerID uint, start, end time.Time) {
			defer wg.Done()
			_, err := s.CreateBooking(context.Background(), CreateBookingInput{
				CustomerID: customerID, ProviderID: 1, Start: start, End: end,
			})
			results <- err
		}(uint(i+1), iv.start, iv.end)
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrSlotConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("expected exactly one success and one conflict, got %d/%d", successes, conflicts)
	}
}

func TestConcurrentCreatesNoOverlapInvariant(t *testing.T) {
	store := newMemStore()
	seedProvider(store, 50)
	s := testScheduler(store)

	// Many goroutines hammer the same morning with random-ish overlapping
	// windows; afterwards no two active bookings may overlap.
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := at(8, (i*7)%50)
			end := start.Add(time.Duration(30+(i%4)*15) * time.Minute)
			_, _ = s.CreateBooking(context.Background(), CreateBookingInput{
				CustomerID: uint(i + 1), ProviderID: 1, Start: start, End: end,
			})
		}(i)
	}
	wg.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	var active []*models.Booking
	for _, b := range store.bookings {
		if b.Active() {
			active = append(active, b)
		}
	}
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			if active[i].Overlaps(active[j].StartTime, active[j].EndTime) {
				t.Fatalf("active bookings %d and %d overlap: %v-%v vs %v-%v",
					active[i].ID, active[j].ID,
					active[i].StartTime, active[i].EndTime,
					active[j].StartTime, active[j].EndTime)
			}
		}
	}
}

func TestCreateBookingUnknownProvider(t *testing.T) {
	store := newMemStore()
	s := testScheduler(store)

	_, err := s.CreateBooking(context.Background(), CreateBookingInput{
		CustomerID: 7, ProviderID: 42, Start: at(9, 0), End: at(10, 0),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func ExampleAmount() {
	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	fmt.Println(Amount(start, end, 50))
	// Output: 100
}
