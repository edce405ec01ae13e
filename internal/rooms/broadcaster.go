package rooms

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/order-fulfillment/internal/models"
	"github.com/example/order-fulfillment/internal/observability"
	"github.com/example/order-fulfillment/internal/positions"
	"github.com/example/order-fulfillment/internal/routing"
	"github.com/example/order-fulfillment/internal/storage"
)

// Observer is an opaque handle to a connected watcher of a room. Joining
// a room never implies ownership of it.
type Observer interface {
	Send(ev models.PositionUpdate) error
}

// room is the ephemeral fan-out group for one order's active delivery
// phase. Delivery to its observers runs on a single pump goroutine so
// updates keep room-local FIFO order while rooms proceed in parallel.
type room struct {
	orderID string

	mu        sync.Mutex
	observers map[Observer]struct{}
	route     *models.Route // last computed, discarded when the room empties

	// bound on activation
	driverID string
	dest     models.Coord
	active   bool

	// reportMu serializes route computation + enqueue for this room so
	// concurrent position reports cannot reorder the queue.
	reportMu sync.Mutex

	queue chan models.PositionUpdate
	done  chan struct{}
}

func (r *room) snapshotObservers() []Observer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Observer, 0, len(r.observers))
	for o := range r.observers {
		out = append(out, o)
	}
	return out
}

func (r *room) pump(logger *slog.Logger) {
	for {
		select {
		case <-r.done:
			return
		case ev := <-r.queue:
			for _, obs := range r.snapshotObservers() {
				if err := obs.Send(ev); err != nil {
					observability.ObserverSendErrs.Inc()
					if logger != nil {
						logger.Warn("observer send failed", "order_id", r.orderID, "error", err)
					}
				}
			}
			observability.PositionUpdates.Inc()
		}
	}
}

// Broadcaster maintains the room registry and fans driver positions out
// to exactly the parties watching each order.
type Broadcaster struct {
	Orders       storage.OrderStore
	Positions    positions.Store
	Routes       routing.Provider
	RouteCache   *routing.Cache
	RouteTimeout time.Duration
	QueueDepth   int
	Logger       *slog.Logger

	mu       sync.RWMutex
	rooms    map[string]*room
	byDriver map[string]map[string]*room // driver id -> order id -> room
}

func NewBroadcaster(orders storage.OrderStore, pos positions.Store, routes routing.Provider) *Broadcaster {
	return &Broadcaster{
		Orders:       orders,
		Positions:    pos,
		Routes:       routes,
		RouteTimeout: 2 * time.Second,
		QueueDepth:   64,
		rooms:        make(map[string]*room),
		byDriver:     make(map[string]map[string]*room),
	}
}

// ensureRoom returns the room for orderID, creating it lazily with an
// empty route when missing.
func (b *Broadcaster) ensureRoom(orderID string) *room {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.rooms[orderID]; ok {
		return r
	}
	depth := b.QueueDepth
	if depth <= 0 {
		depth = 64
	}
	r := &room{
		orderID:   orderID,
		observers: make(map[Observer]struct{}),
		queue:     make(chan models.PositionUpdate, depth),
		done:      make(chan struct{}),
	}
	b.rooms[orderID] = r
	go r.pump(b.Logger)
	return r
}

// Join admits an observer to the order's room. No-op if already joined.
func (b *Broadcaster) Join(orderID string, obs Observer) {
	r := b.ensureRoom(orderID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.observers[obs]; ok {
		return
	}
	r.observers[obs] = struct{}{}
	observability.RoomObservers.Inc()
}

// Leave removes the observer. When the room empties its cached route is
// discarded, but the room itself persists until Deactivate so a
// reconnecting observer finds it again.
func (b *Broadcaster) Leave(orderID string, obs Observer) {
	b.mu.RLock()
	r, ok := b.rooms[orderID]
	b.mu.RUnlock()
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.observers[obs]; !ok {
		return
	}
	delete(r.observers, obs)
	observability.RoomObservers.Dec()
	if len(r.observers) == 0 {
		r.route = nil
	}
}

// Activate registers the order for position fan-out. The order's driver
// and destination are bound here; a room created earlier by Join is
// reused.
func (b *Broadcaster) Activate(ctx context.Context, orderID string) error {
	o, err := b.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	r := b.ensureRoom(orderID)

	b.mu.Lock()
	defer b.mu.Unlock()
	r.mu.Lock()
	r.driverID = o.DriverID
	r.dest = o.Destination
	wasActive := r.active
	r.active = true
	r.mu.Unlock()

	if o.DriverID != "" {
		m := b.byDriver[o.DriverID]
		if m == nil {
			m = make(map[string]*room)
			b.byDriver[o.DriverID] = m
		}
		m[orderID] = r
	}
	if !wasActive {
		observability.RoomsActive.Inc()
	}
	return nil
}

// Deactivate tears the room down. Further position reports for the
// order's driver no longer reach its former observers.
func (b *Broadcaster) Deactivate(orderID string) {
	b.mu.Lock()
	r, ok := b.rooms[orderID]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.rooms, orderID)
	if r.driverID != "" {
		if m, ok := b.byDriver[r.driverID]; ok {
			delete(m, orderID)
			if len(m) == 0 {
				delete(b.byDriver, r.driverID)
			}
		}
	}
	b.mu.Unlock()

	close(r.done)

	r.mu.Lock()
	n := len(r.observers)
	r.observers = make(map[Observer]struct{})
	wasActive := r.active
	r.active = false
	r.mu.Unlock()
	observability.RoomObservers.Sub(float64(n))
	if wasActive {
		observability.RoomsActive.Dec()
	}
}

// ReportPosition records the driver's position and, for every active
// room assigned to this driver, recomputes the route and fans the update
// out. A driver with no active room still gets the position recorded.
func (b *Broadcaster) ReportPosition(ctx context.Context, driverID string, lat, lng float64) error {
	loc := models.Coord{Lat: lat, Lng: lng}
	if err := b.Positions.Set(ctx, driverID, loc, time.Now()); err != nil {
		return err
	}

	b.mu.RLock()
	targets := make([]*room, 0, len(b.byDriver[driverID]))
	for _, r := range b.byDriver[driverID] {
		targets = append(targets, r)
	}
	b.mu.RUnlock()

	for _, r := range targets {
		r.reportMu.Lock()
		route := b.routeFor(ctx, loc, r.dest)
		r.mu.Lock()
		r.route = &route
		r.mu.Unlock()
		ev := models.PositionUpdate{
			OrderID:        r.orderID,
			DriverID:       driverID,
			Lat:            lat,
			Lng:            lng,
			Route:          route,
			DistanceMeters: route.DistanceMeters,
		}
		select {
		case r.queue <- ev:
		default:
			observability.PositionDrops.Inc()
			if b.Logger != nil {
				b.Logger.Warn("room queue full, dropping update", "order_id", r.orderID)
			}
		}
		r.reportMu.Unlock()
	}
	return nil
}

// routeFor asks the provider for a fresh path, falling back to the
// two-point straight line on any failure.
func (b *Broadcaster) routeFor(ctx context.Context, from, to models.Coord) models.Route {
	if b.RouteCache != nil {
		if route, ok := b.RouteCache.Get(from, to); ok {
			return route
		}
	}
	if b.Routes != nil {
		rctx := ctx
		if b.RouteTimeout > 0 {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(ctx, b.RouteTimeout)
			defer cancel()
		}
		route, err := b.Routes.ComputeRoute(rctx, from, to)
		if err == nil {
			if b.RouteCache != nil {
				b.RouteCache.Set(from, to, route)
			}
			return route
		}
		if b.Logger != nil {
			b.Logger.Warn("route provider failed, using straight line", "error", err)
		}
	}
	observability.RouteFallbacks.Inc()
	return routing.StraightLine(from, to)
}

// LastRoute returns the room's cached route, if any. Used by reconnecting
// observers so the last-known path is shown immediately.
func (b *Broadcaster) LastRoute(orderID string) (models.Route, bool) {
	b.mu.RLock()
	r, ok := b.rooms[orderID]
	b.mu.RUnlock()
	if !ok {
		return models.Route{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.route == nil {
		return models.Route{}, false
	}
	return *r.route, true
}
