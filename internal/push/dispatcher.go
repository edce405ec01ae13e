package push

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/example/order-fulfillment/internal/models"
	"github.com/example/order-fulfillment/internal/observability"
	"github.com/example/order-fulfillment/internal/storage"
)

// DeliveryFailure records why one subscription did not receive the
// notification.
type DeliveryFailure struct {
	Endpoint string      `json:"endpoint"`
	Kind     FailureKind `json:"kind"`
	Reason   string      `json:"reason"`
}

// DeliveryReport is what Dispatch always returns. A notification failure
// is observable here but never propagates to the triggering caller.
type DeliveryReport struct {
	Skipped   bool              `json:"skipped"`
	Attempted int               `json:"attempted"`
	Succeeded int               `json:"succeeded"`
	Failures  []DeliveryFailure `json:"failures,omitempty"`
}

// Dispatcher builds payloads from domain events and delivers them to
// every live subscription of a recipient. It holds no per-call state:
// retry-with-backoff, if wanted, is layered by the caller.
type Dispatcher struct {
	Subs      storage.SubscriptionStore
	Prefs     storage.PreferenceStore
	Transport Transport
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Dispatch delivers the event to the recipient. Failures are
// per-subscription, not all-or-nothing; gone and malformed endpoints are
// pruned from the registry. Dispatch never returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, recipient string, ev Event) DeliveryReport {
	var report DeliveryReport

	enabled, err := d.Prefs.NotificationsEnabled(ctx, recipient)
	if err != nil {
		// fail open: an unreadable flag should not mute the recipient
		d.logWarn("preference lookup failed", "recipient", recipient, "error", err)
		enabled = true
	}
	if !enabled {
		report.Skipped = true
		return report
	}

	payload, err := json.Marshal(buildPayload(ev))
	if err != nil {
		d.logWarn("payload marshal failed", "recipient", recipient, "error", err)
		return report
	}

	subs, err := d.Subs.SubscriptionsFor(ctx, recipient)
	if err != nil {
		d.logWarn("subscription load failed", "recipient", recipient, "error", err)
		return report
	}

	for _, sub := range subs {
		report.Attempted++
		observability.PushAttempts.Inc()

		err := d.send(ctx, sub, payload)
		if err == nil {
			report.Succeeded++
			observability.PushSucceeded.Inc()
			continue
		}

		kind := KindOther
		var se *SendError
		if errors.As(err, &se) {
			kind = se.Kind
		}
		report.Failures = append(report.Failures, DeliveryFailure{
			Endpoint: sub.Endpoint,
			Kind:     kind,
			Reason:   err.Error(),
		})

		switch kind {
		case KindGone, KindMalformed:
			// the endpoint is permanently unusable, prune it
			if derr := d.Subs.DeleteByEndpoint(ctx, sub.Endpoint); derr != nil {
				d.logWarn("subscription prune failed", "endpoint", sub.Endpoint, "error", derr)
			} else {
				observability.PushPruned.Inc()
			}
		case KindTooLarge:
			d.logWarn("payload too large, subscription retained", "recipient", recipient, "error", err)
		case KindRateLimited:
			d.logWarn("push rate limited, subscription retained", "recipient", recipient, "error", err)
		default:
			d.logWarn("push delivery failed, subscription retained", "recipient", recipient, "error", err)
		}
	}
	return report
}

func (d *Dispatcher) send(ctx context.Context, sub models.Subscription, payload []byte) error {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	return d.Transport.Send(ctx, sub, payload)
}

func (d *Dispatcher) logWarn(msg string, args ...any) {
	if d.Logger != nil {
		d.Logger.Warn(msg, args...)
	}
}
