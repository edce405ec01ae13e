package lifecycle

import (
	"errors"
	"fmt"

	"github.com/example/order-fulfillment/internal/models"
)

var (
	// ErrOrderNotFound is returned when the order id resolves to nothing.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidTransition is returned when the requested status is not in
	// the allowed set for the order's current status. This is a caller bug
	// or a race and is always reported, never swallowed.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNoDriversAvailable is returned when entering in_transit and the
	// eligibility query finds no driver.
	ErrNoDriversAvailable = errors.New("no drivers available")
)

// NeedsManualAssignmentError is returned when more than one eligible driver
// exists. No mutation has happened; the caller must resubmit the same
// transition with an explicit driver reference chosen from Candidates.
type NeedsManualAssignmentError struct {
	Candidates []models.Driver
}

func (e *NeedsManualAssignmentError) Error() string {
	return fmt.Sprintf("manual driver assignment required: %d candidates", len(e.Candidates))
}
