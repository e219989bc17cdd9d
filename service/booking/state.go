package booking

import (
	"github.com/KNartey/ServiceHub-server/cmd/models"
)

// transitions is the booking status state machine:
//
//	PENDING -> CONFIRMED -> IN_PROGRESS -> COMPLETED
//
// with CANCELLED reachable from every non-terminal state. COMPLETED and
// CANCELLED are terminal. Every status change in this package, including
// the generic provider status-update path, goes through CanTransition;
// there is no side door that skips the legality check.
var transitions = map[string][]string{
	models.BookingPending:    {models.BookingConfirmed, models.BookingCancelled},
	models.BookingConfirmed:  {models.BookingInProgress, models.BookingCancelled},
	models.BookingInProgress: {models.BookingCompleted, models.BookingCancelled},
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(status string) bool {
	return status == models.BookingCompleted || status == models.BookingCancelled
}

func ValidStatus(status string) bool {
	switch status {
	case models.BookingPending, models.BookingConfirmed, models.BookingInProgress,
		models.BookingCompleted, models.BookingCancelled:
		return true
	}
	return false
}
