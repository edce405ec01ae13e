package push

import (
	"context"
	"fmt"

	"github.com/example/order-fulfillment/internal/models"
)

// FailureKind classifies a per-subscription delivery failure. The kind
// decides whether the subscription survives the failure.
type FailureKind string

const (
	KindGone        FailureKind = "gone"         // endpoint no longer exists
	KindMalformed   FailureKind = "malformed"    // endpoint or payload permanently unusable
	KindTooLarge    FailureKind = "too_large"    // payload shape is a caller bug
	KindRateLimited FailureKind = "rate_limited" // retry is the caller's responsibility
	KindOther       FailureKind = "other"
)

// SendError is the classified failure a Transport reports.
type SendError struct {
	Kind FailureKind
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("push send failed (%s): %v", e.Kind, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Transport delivers a serialized payload to one push endpoint. Errors
// are *SendError so the dispatcher can decide pruning per kind.
type Transport interface {
	Send(ctx context.Context, sub models.Subscription, payload []byte) error
}
