package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/example/order-fulfillment/internal/models"
	"github.com/example/order-fulfillment/internal/observability"
	"github.com/example/order-fulfillment/internal/storage"
)

// allowedTransitions is the single source of truth for the order
// lifecycle. Cancellation is reachable from pending directly, and once
// confirmed only via preparing or in_transit: an order the kitchen has
// already accepted cannot be cancelled by the counterpart. That
// asymmetry is a confirmed business rule, not an oversight.
var allowedTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed: {models.StatusPreparing},
	models.StatusPreparing: {models.StatusInTransit, models.StatusCancelled},
	models.StatusReady:     {},
	models.StatusInTransit: {models.StatusDelivered, models.StatusCancelled},
	models.StatusDelivered: {},
	models.StatusCancelled: {},
}

// Allowed reports whether the (from, to) pair is in the transition table.
func Allowed(from, to models.OrderStatus) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// EventSink receives the domain events the machine emits after a
// successful transition. Emission is synchronous; the sink decides how
// (and whether) delivery happens, and its failures never reach the
// transition caller.
type EventSink interface {
	StatusChanged(ev models.StatusChanged)
	RoomActivate(orderID string)
	RoomDeactivate(orderID string)
}

// Result is the outcome of a successful transition.
type Result struct {
	Order          *models.Order
	AssignedDriver string // set when the machine auto-assigned a driver
}

// Machine owns the canonical status of every order. Mutation of one
// order is serialized through a per-order lock; distinct orders never
// share a lock.
type Machine struct {
	Orders  storage.OrderStore
	Drivers storage.DriverStore
	Sink    EventSink
	Logger  *slog.Logger

	locks sync.Map // order id -> *sync.Mutex
}

func (m *Machine) lockFor(orderID string) *sync.Mutex {
	mu, _ := m.locks.LoadOrStore(orderID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Transition moves the order to the requested status. driverID may be
// empty; when entering in_transit without one the assignment policy
// runs (see assignDriver). On success the new status is persisted first,
// then events are emitted.
func (m *Machine) Transition(ctx context.Context, orderID string, to models.OrderStatus, driverID string) (Result, error) {
	mu := m.lockFor(orderID)
	mu.Lock()
	defer mu.Unlock()

	o, err := m.Orders.GetOrder(ctx, orderID)
	if errors.Is(err, storage.ErrNotFound) {
		observability.TransitionErrorsTotal.WithLabelValues("not_found").Inc()
		return Result{}, ErrOrderNotFound
	}
	if err != nil {
		return Result{}, err
	}

	// delivered -> delivered is accepted as a no-op used solely to attach
	// a late driver reference.
	if o.Status == models.StatusDelivered && to == models.StatusDelivered {
		if driverID != "" {
			if err := m.Orders.UpdateOrder(ctx, orderID, o.Status, driverID); err != nil {
				return Result{}, err
			}
			o.DriverID = driverID
		}
		return Result{Order: o}, nil
	}

	if !to.Valid() || !Allowed(o.Status, to) {
		observability.TransitionErrorsTotal.WithLabelValues("invalid_transition").Inc()
		return Result{}, ErrInvalidTransition
	}

	var assigned string
	if to == models.StatusInTransit && driverID == "" {
		driverID, err = m.assignDriver(ctx, o)
		if err != nil {
			return Result{}, err
		}
		assigned = driverID
	}

	if err := m.Orders.UpdateOrder(ctx, orderID, to, driverID); err != nil {
		return Result{}, err
	}

	old := o.Status
	o.Status = to
	if driverID != "" {
		o.DriverID = driverID
	}
	observability.TransitionsTotal.WithLabelValues(string(to)).Inc()
	if m.Logger != nil {
		m.Logger.Info("order transition",
			"order_id", orderID, "from", old, "to", to, "driver_id", o.DriverID)
	}

	m.emit(o, old, to)
	return Result{Order: o, AssignedDriver: assigned}, nil
}

// assignDriver implements the policy on the in_transit edge: exactly one
// eligible driver is auto-assigned; more than one demands a manual
// choice; zero is a hard stop. In the latter two cases no mutation has
// happened yet.
func (m *Machine) assignDriver(ctx context.Context, o *models.Order) (string, error) {
	cands, err := m.Drivers.EligibleDrivers(ctx, o.RestaurantID)
	if err != nil {
		return "", err
	}
	switch len(cands) {
	case 0:
		observability.TransitionErrorsTotal.WithLabelValues("no_drivers").Inc()
		return "", ErrNoDriversAvailable
	case 1:
		return cands[0].ID, nil
	default:
		observability.TransitionErrorsTotal.WithLabelValues("needs_manual_assignment").Inc()
		return "", &NeedsManualAssignmentError{Candidates: cands}
	}
}

func (m *Machine) emit(o *models.Order, old, to models.OrderStatus) {
	if m.Sink == nil {
		return
	}
	m.Sink.StatusChanged(models.StatusChanged{
		OrderID:     o.ID,
		OldStatus:   old,
		NewStatus:   to,
		Counterpart: o.CustomerID,
	})
	if to == models.StatusInTransit {
		m.Sink.RoomActivate(o.ID)
	}
	if old == models.StatusInTransit && (to == models.StatusDelivered || to == models.StatusCancelled) {
		m.Sink.RoomDeactivate(o.ID)
	}
}
