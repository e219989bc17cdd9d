package availability

import (
	"errors"
	"time"

	"github.com/KNartey/ServiceHub-server/cmd/models"
)

var ErrInvalidInterval = errors.New("end time must be after start time")

// ValidateInterval rejects slots whose end does not come strictly after
// their start.
func ValidateInterval(start, end time.Time) error {
	if !end.After(start) {
		return ErrInvalidInterval
	}
	return nil
}

// Overlaps reports whether two [start,end) windows intersect. Slots that
// merely touch do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// FirstOverlapping returns the first slot in slots whose window overlaps
// [start,end), or nil.
func FirstOverlapping(slots []models.AvailabilitySlot, start, end time.Time) *models.AvailabilitySlot {
	for i := range slots {
		if Overlaps(slots[i].StartTime, slots[i].EndTime, start, end) {
			return &slots[i]
		}
	}
	return nil
}
