package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/order-fulfillment/internal/models"
	"github.com/example/order-fulfillment/internal/push"
	"github.com/example/order-fulfillment/internal/rooms"
)

// Bridge connects the state machine's event emission to its consumers:
// status changes go to the push dispatcher on a separate goroutine
// (asynchronous, best-effort; the report is only logged), room signals
// go to the broadcaster synchronously so activation is in place before
// the transition response returns.
type Bridge struct {
	Dispatcher  *push.Dispatcher
	Broadcaster *rooms.Broadcaster
	Logger      *slog.Logger
	Timeout     time.Duration
}

func (b *Bridge) StatusChanged(ev models.StatusChanged) {
	if b.Dispatcher == nil {
		return
	}
	go func() {
		timeout := b.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		report := b.Dispatcher.Dispatch(ctx, ev.Counterpart, push.Event{
			Kind:      push.EventStatusChanged,
			OrderID:   ev.OrderID,
			NewStatus: ev.NewStatus,
		})
		if b.Logger != nil {
			b.Logger.Info("status notification dispatched",
				"order_id", ev.OrderID,
				"recipient", ev.Counterpart,
				"new_status", ev.NewStatus,
				"skipped", report.Skipped,
				"attempted", report.Attempted,
				"succeeded", report.Succeeded,
				"failures", len(report.Failures))
		}
	}()
}

func (b *Bridge) RoomActivate(orderID string) {
	if b.Broadcaster == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.Broadcaster.Activate(ctx, orderID); err != nil && b.Logger != nil {
		b.Logger.Error("room activation failed", "order_id", orderID, "error", err)
	}
}

func (b *Bridge) RoomDeactivate(orderID string) {
	if b.Broadcaster == nil {
		return
	}
	b.Broadcaster.Deactivate(orderID)
}
