package storage

import (
	"context"
	"errors"

	"github.com/example/order-fulfillment/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// OrderStore defines the order persistence operations the state machine
// needs. Status writes happen only through UpdateOrder, under the
// machine's per-order serialization.
type OrderStore interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	UpdateOrder(ctx context.Context, id string, status models.OrderStatus, driverID string) error
}

// DriverStore answers the eligibility query behind driver assignment:
// drivers affiliated with the restaurant and currently available.
type DriverStore interface {
	EligibleDrivers(ctx context.Context, restaurantID string) ([]models.Driver, error)
}

// SubscriptionStore holds push subscriptions. The upsert key is the
// endpoint, not the recipient, so one recipient may hold many devices.
type SubscriptionStore interface {
	UpsertSubscription(ctx context.Context, sub models.Subscription) error
	SubscriptionsFor(ctx context.Context, recipient string) ([]models.Subscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
	DeleteByRecipient(ctx context.Context, recipient string) error
}

// PreferenceStore exposes the recipient-level notification opt-in flag.
type PreferenceStore interface {
	NotificationsEnabled(ctx context.Context, recipient string) (bool, error)
}
