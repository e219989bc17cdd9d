package booking

import "errors"

// Caller-facing error kinds. Handlers match these with errors.Is and map
// them to HTTP statuses; everything else is a 500.
var (
	ErrInvalidInterval   = errors.New("end time must be after start time")
	ErrSlotConflict      = errors.New("provider is not available during the requested time slot")
	ErrNotFound          = errors.New("record not found")
	ErrForbidden         = errors.New("not authorized for this booking")
	ErrIllegalTransition = errors.New("booking status does not permit this transition")
)
