package push

import (
	"context"
	"errors"

	"github.com/example/order-fulfillment/internal/models"
	"github.com/example/order-fulfillment/internal/storage"
)

// ErrMalformedEndpoint is returned when a registration descriptor fails
// structural validation.
var ErrMalformedEndpoint = errors.New("malformed endpoint")

// minEndpointLen is shorter than any real push-service URL; it exists to
// reject obviously truncated descriptors early.
const minEndpointLen = 32

// Registry manages push subscriptions. The upsert key is the endpoint,
// so re-registering the same device updates in place and one recipient
// may hold many devices.
type Registry struct {
	Subs storage.SubscriptionStore
}

// Register validates the descriptor and upserts the subscription.
func (r *Registry) Register(ctx context.Context, recipient, endpoint, p256dh, auth string) error {
	if recipient == "" {
		return ErrMalformedEndpoint
	}
	if len(endpoint) < minEndpointLen {
		return ErrMalformedEndpoint
	}
	// the Web Push transport cannot encrypt without both keys
	if p256dh == "" || auth == "" {
		return ErrMalformedEndpoint
	}
	return r.Subs.UpsertSubscription(ctx, models.Subscription{
		Recipient: recipient,
		Endpoint:  endpoint,
		P256dh:    p256dh,
		Auth:      auth,
	})
}

// Unregister deletes every subscription of the recipient (explicit
// opt-out across all devices).
func (r *Registry) Unregister(ctx context.Context, recipient string) error {
	return r.Subs.DeleteByRecipient(ctx, recipient)
}
