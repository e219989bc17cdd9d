package booking

import (
	"testing"

	"github.com/KNartey/ServiceHub-server/cmd/models"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{models.BookingPending, models.BookingConfirmed, true},
		{models.BookingPending, models.BookingCancelled, true},
		{models.BookingPending, models.BookingInProgress, false},
		{models.BookingPending, models.BookingCompleted, false},

		{models.BookingConfirmed, models.BookingInProgress, true},
		{models.BookingConfirmed, models.BookingCancelled, true},
		{models.BookingConfirmed, models.BookingCompleted, false},
		{models.BookingConfirmed, models.BookingPending, false},

		{models.BookingInProgress, models.BookingCompleted, true},
		{models.BookingInProgress, models.BookingCancelled, true},
		{models.BookingInProgress, models.BookingConfirmed, false},

		{models.BookingCompleted, models.BookingCancelled, false},
		{models.BookingCompleted, models.BookingPending, false},
		{models.BookingCancelled, models.BookingPending, false},
		{models.BookingCancelled, models.BookingConfirmed, false},

		{models.BookingPending, models.BookingPending, false},
		{"UNKNOWN", models.BookingConfirmed, false},
		{models.BookingPending, "UNKNOWN", false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := map[string]bool{
		models.BookingPending:    false,
		models.BookingConfirmed:  false,
		models.BookingInProgress: false,
		models.BookingCompleted:  true,
		models.BookingCancelled:  true,
	}
	for status, want := range terminal {
		if got := IsTerminal(status); got != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, status := range []string{
		models.BookingPending, models.BookingConfirmed, models.BookingInProgress,
		models.BookingCompleted, models.BookingCancelled,
	} {
		if !ValidStatus(status) {
			t.Errorf("ValidStatus(%s) = false, want true", status)
		}
	}
	for _, status := range []string{"", "pending", "DONE", "Confirmed"} {
		if ValidStatus(status) {
			t.Errorf("ValidStatus(%q) = true, want false", status)
		}
	}
}
