package rooms

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/order-fulfillment/internal/models"
	"github.com/example/order-fulfillment/internal/positions"
	"github.com/example/order-fulfillment/internal/routing"
	"github.com/example/order-fulfillment/internal/storage"
)

type fakeObserver struct {
	mu     sync.Mutex
	events []models.PositionUpdate
}

func (f *fakeObserver) Send(ev models.PositionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeObserver) received() []models.PositionUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.PositionUpdate, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeObserver) waitFor(t *testing.T, n int) []models.PositionUpdate {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if evs := f.received(); len(evs) >= n {
			return evs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events, got %d", n, len(f.received()))
	return nil
}

type fakeProvider struct {
	mu    sync.Mutex
	fail  bool
	calls int
}

func (f *fakeProvider) ComputeRoute(ctx context.Context, from, to models.Coord) (models.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return models.Route{}, errors.New("provider down")
	}
	return models.Route{
		Points:         []models.Coord{from, {Lat: from.Lat / 2, Lng: to.Lng / 2}, to},
		DistanceMeters: 1234,
	}, nil
}

func newTestBroadcaster(t *testing.T, provider routing.Provider) (*Broadcaster, *storage.MemoryStore, *positions.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	pos := positions.NewMemoryStore()
	return NewBroadcaster(store, pos, provider), store, pos
}

func seedActiveOrder(t *testing.T, b *Broadcaster, store *storage.MemoryStore, orderID, driverID string) {
	t.Helper()
	store.PutOrder(&models.Order{
		ID:           orderID,
		Status:       models.StatusInTransit,
		DriverID:     driverID,
		RestaurantID: "r1",
		CustomerID:   "c1",
		Destination:  models.Coord{Lat: -34.58, Lng: -58.40},
	})
	if err := b.Activate(context.Background(), orderID); err != nil {
		t.Fatalf("activate: %v", err)
	}
}

func TestReportPositionFansOutToRoom(t *testing.T) {
	b, store, _ := newTestBroadcaster(t, &fakeProvider{})
	seedActiveOrder(t, b, store, "o1", "d1")

	obs := &fakeObserver{}
	b.Join("o1", obs)

	if err := b.ReportPosition(context.Background(), "d1", -34.60, -58.38); err != nil {
		t.Fatalf("report: %v", err)
	}
	evs := obs.waitFor(t, 1)
	ev := evs[0]
	if ev.OrderID != "o1" || ev.DriverID != "d1" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if len(ev.Route.Points) == 0 {
		t.Fatal("expected a non-empty route")
	}
	if ev.Route.Approximate {
		t.Fatal("provider succeeded, route must not be approximate")
	}
}

func TestProviderFailureFallsBackToStraightLine(t *testing.T) {
	b, store, _ := newTestBroadcaster(t, &fakeProvider{fail: true})
	seedActiveOrder(t, b, store, "o1", "d1")

	obs := &fakeObserver{}
	b.Join("o1", obs)

	if err := b.ReportPosition(context.Background(), "d1", -34.60, -58.38); err != nil {
		t.Fatalf("report: %v", err)
	}
	ev := obs.waitFor(t, 1)[0]
	if !ev.Route.Approximate {
		t.Fatal("expected approximate route")
	}
	want := []models.Coord{{Lat: -34.60, Lng: -58.38}, {Lat: -34.58, Lng: -58.40}}
	if len(ev.Route.Points) != 2 || ev.Route.Points[0] != want[0] || ev.Route.Points[1] != want[1] {
		t.Fatalf("expected two-point straight line, got %+v", ev.Route.Points)
	}
	wantDist := routing.Haversine(-34.60, -58.38, -34.58, -58.40)
	if ev.Route.DistanceMeters != wantDist {
		t.Fatalf("expected distance %f, got %f", wantDist, ev.Route.DistanceMeters)
	}
}

func TestRoomLocalFIFOOrdering(t *testing.T) {
	b, store, _ := newTestBroadcaster(t, &fakeProvider{})
	seedActiveOrder(t, b, store, "o1", "d1")

	obs := &fakeObserver{}
	b.Join("o1", obs)

	const n = 20
	for i := 0; i < n; i++ {
		if err := b.ReportPosition(context.Background(), "d1", float64(i), float64(i)); err != nil {
			t.Fatalf("report %d: %v", i, err)
		}
	}
	evs := obs.waitFor(t, n)
	for i := 0; i < n; i++ {
		if evs[i].Lat != float64(i) {
			t.Fatalf("event %d out of order: lat=%f", i, evs[i].Lat)
		}
	}
}

func TestDriverWithTwoActiveRoomsUpdatesBoth(t *testing.T) {
	b, store, _ := newTestBroadcaster(t, &fakeProvider{})
	seedActiveOrder(t, b, store, "o1", "d1")
	seedActiveOrder(t, b, store, "o2", "d1")

	obs1, obs2 := &fakeObserver{}, &fakeObserver{}
	b.Join("o1", obs1)
	b.Join("o2", obs2)

	if err := b.ReportPosition(context.Background(), "d1", 1, 2); err != nil {
		t.Fatalf("report: %v", err)
	}
	obs1.waitFor(t, 1)
	obs2.waitFor(t, 1)
}

func TestReportWithNoActiveRoomStillStoresPosition(t *testing.T) {
	b, _, pos := newTestBroadcaster(t, &fakeProvider{})

	if err := b.ReportPosition(context.Background(), "d1", 3, 4); err != nil {
		t.Fatalf("report: %v", err)
	}
	p, ok, err := pos.Get(context.Background(), "d1")
	if err != nil || !ok {
		t.Fatalf("expected stored position, ok=%v err=%v", ok, err)
	}
	if p.Loc.Lat != 3 || p.Loc.Lng != 4 {
		t.Fatalf("unexpected position %+v", p)
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	b, store, _ := newTestBroadcaster(t, &fakeProvider{})
	seedActiveOrder(t, b, store, "o1", "d1")

	obs := &fakeObserver{}
	b.Join("o1", obs)
	b.Join("o1", obs)

	if err := b.ReportPosition(context.Background(), "d1", 1, 1); err != nil {
		t.Fatalf("report: %v", err)
	}
	evs := obs.waitFor(t, 1)
	time.Sleep(50 * time.Millisecond)
	if got := len(obs.received()); got != len(evs) {
		t.Fatalf("double join duplicated delivery: %d events", got)
	}
}

func TestLeaveDiscardsCachedRouteButKeepsRoom(t *testing.T) {
	b, store, _ := newTestBroadcaster(t, &fakeProvider{})
	seedActiveOrder(t, b, store, "o1", "d1")

	obs := &fakeObserver{}
	b.Join("o1", obs)
	if err := b.ReportPosition(context.Background(), "d1", 1, 1); err != nil {
		t.Fatalf("report: %v", err)
	}
	obs.waitFor(t, 1)
	if _, ok := b.LastRoute("o1"); !ok {
		t.Fatal("expected a cached route")
	}

	b.Leave("o1", obs)
	if _, ok := b.LastRoute("o1"); ok {
		t.Fatal("cached route must be discarded when the room empties")
	}

	// the room persists: a reconnect keeps receiving updates
	obs2 := &fakeObserver{}
	b.Join("o1", obs2)
	if err := b.ReportPosition(context.Background(), "d1", 2, 2); err != nil {
		t.Fatalf("report: %v", err)
	}
	obs2.waitFor(t, 1)
}

func TestDeactivateStopsUpdates(t *testing.T) {
	b, store, _ := newTestBroadcaster(t, &fakeProvider{})
	seedActiveOrder(t, b, store, "o1", "d1")

	obs := &fakeObserver{}
	b.Join("o1", obs)
	if err := b.ReportPosition(context.Background(), "d1", 1, 1); err != nil {
		t.Fatalf("report: %v", err)
	}
	obs.waitFor(t, 1)

	b.Deactivate("o1")
	if err := b.ReportPosition(context.Background(), "d1", 2, 2); err != nil {
		t.Fatalf("report: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := len(obs.received()); got != 1 {
		t.Fatalf("expected no updates after deactivation, got %d", got)
	}
}

func TestRouteCacheBoundsProviderCalls(t *testing.T) {
	p := &fakeProvider{}
	b, store, _ := newTestBroadcaster(t, p)
	b.RouteCache = routing.NewCache(time.Minute)
	seedActiveOrder(t, b, store, "o1", "d1")

	obs := &fakeObserver{}
	b.Join("o1", obs)
	for i := 0; i < 3; i++ {
		if err := b.ReportPosition(context.Background(), "d1", 5, 5); err != nil {
			t.Fatalf("report: %v", err)
		}
	}
	obs.waitFor(t, 3)

	p.mu.Lock()
	calls := p.calls
	p.mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected 1 provider call for a repeated position, got %d", calls)
	}
}
