package push

import (
	"fmt"

	"github.com/example/order-fulfillment/internal/models"
)

// EventKind selects the wording table.
type EventKind string

const (
	EventStatusChanged EventKind = "status_changed"
	EventNewOrder      EventKind = "new_order"
)

// Event is what the dispatcher turns into a notification payload.
type Event struct {
	Kind       EventKind
	OrderID    string
	NewStatus  models.OrderStatus
	TotalCents int64
}

var statusWording = map[models.OrderStatus]struct{ Title, Body string }{
	models.StatusConfirmed: {"Order confirmed", "The restaurant accepted your order."},
	models.StatusPreparing: {"Order in the kitchen", "Your food is being prepared."},
	models.StatusReady:     {"Order ready", "Your order is ready for pickup."},
	models.StatusInTransit: {"Driver on the way", "Your order is out for delivery."},
	models.StatusDelivered: {"Order delivered", "Enjoy your meal!"},
	models.StatusCancelled: {"Order cancelled", "Your order was cancelled."},
}

// buildPayload creates a fresh payload per event; payloads are never
// reused across deliveries. The data map drives client-side routing.
func buildPayload(ev Event) models.NotificationPayload {
	p := models.NotificationPayload{
		Icon:  "/img/icons/order-96.png",
		Badge: "/img/icons/badge-72.png",
		Actions: []models.NotificationAction{
			{Action: "open_order", Title: "View order"},
		},
		Data: map[string]string{
			"kind":     string(ev.Kind),
			"order_id": ev.OrderID,
			"screen":   "order_detail",
		},
	}
	switch ev.Kind {
	case EventNewOrder:
		p.Title = "New order received"
		p.Body = fmt.Sprintf("New order for $%.2f", float64(ev.TotalCents)/100)
		p.Data["screen"] = "incoming_orders"
	default:
		w, ok := statusWording[ev.NewStatus]
		if !ok {
			w.Title = "Order update"
			w.Body = fmt.Sprintf("Your order is now %s.", ev.NewStatus)
		}
		p.Title = w.Title
		p.Body = w.Body
		p.Data["status"] = string(ev.NewStatus)
	}
	return p
}
