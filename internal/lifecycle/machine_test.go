package lifecycle

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/order-fulfillment/internal/models"
	"github.com/example/order-fulfillment/internal/storage"
)

type recordingSink struct {
	mu          sync.Mutex
	changes     []models.StatusChanged
	activated   []string
	deactivated []string
}

func (r *recordingSink) StatusChanged(ev models.StatusChanged) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ev)
}

func (r *recordingSink) RoomActivate(orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activated = append(r.activated, orderID)
}

func (r *recordingSink) RoomDeactivate(orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deactivated = append(r.deactivated, orderID)
}

func newMachine(t *testing.T) (*Machine, *storage.MemoryStore, *recordingSink) {
	t.Helper()
	store := storage.NewMemoryStore()
	sink := &recordingSink{}
	return &Machine{Orders: store, Drivers: store, Sink: sink}, store, sink
}

func seedOrder(store *storage.MemoryStore, id string, status models.OrderStatus, driverID string) {
	store.PutOrder(&models.Order{
		ID:           id,
		Status:       status,
		DriverID:     driverID,
		RestaurantID: "r1",
		CustomerID:   "c1",
		Destination:  models.Coord{Lat: -34.58, Lng: -58.40},
	})
}

func TestTransitionTableExhaustive(t *testing.T) {
	// enumerate every (from, to) status pair and assert the outcome
	// matches the table exactly
	allowed := map[[2]models.OrderStatus]bool{
		{models.StatusPending, models.StatusConfirmed}:   true,
		{models.StatusPending, models.StatusCancelled}:   true,
		{models.StatusConfirmed, models.StatusPreparing}: true,
		{models.StatusPreparing, models.StatusInTransit}: true,
		{models.StatusPreparing, models.StatusCancelled}: true,
		{models.StatusInTransit, models.StatusDelivered}: true,
		{models.StatusInTransit, models.StatusCancelled}: true,
	}

	for _, from := range models.AllStatuses() {
		for _, to := range models.AllStatuses() {
			m, store, _ := newMachine(t)
			seedOrder(store, "o1", from, "d1")
			store.PutDriver(models.Driver{ID: "d1", RestaurantID: "r1", Available: true})

			_, err := m.Transition(context.Background(), "o1", to, "d1")
			if from == models.StatusDelivered && to == models.StatusDelivered {
				// the no-op late-driver-attach path, not a transition
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			if allowed[[2]models.OrderStatus{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", from, to)
			}
		}
	}
}

func TestCancellationBlockedOnceAccepted(t *testing.T) {
	m, store, _ := newMachine(t)
	seedOrder(store, "o1", models.StatusPending, "")
	_, err := m.Transition(context.Background(), "o1", models.StatusCancelled, "")
	require.NoError(t, err)

	m2, store2, _ := newMachine(t)
	seedOrder(store2, "o2", models.StatusConfirmed, "")
	_, err = m2.Transition(context.Background(), "o2", models.StatusCancelled, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionOrderNotFound(t *testing.T) {
	m, _, _ := newMachine(t)
	_, err := m.Transition(context.Background(), "missing", models.StatusConfirmed, "")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestAssignmentPolicyZeroDrivers(t *testing.T) {
	m, store, sink := newMachine(t)
	seedOrder(store, "o1", models.StatusPreparing, "")

	_, err := m.Transition(context.Background(), "o1", models.StatusInTransit, "")
	assert.ErrorIs(t, err, ErrNoDriversAvailable)

	o, err := store.GetOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, o.Status, "status must be unchanged")
	assert.Empty(t, sink.changes)
}

func TestAssignmentPolicySingleDriverAutoAssigns(t *testing.T) {
	m, store, sink := newMachine(t)
	seedOrder(store, "o1", models.StatusPreparing, "")
	store.PutDriver(models.Driver{ID: "d1", Name: "Dana", RestaurantID: "r1", Available: true})
	store.PutDriver(models.Driver{ID: "d2", Name: "Omar", RestaurantID: "r1", Available: false})
	store.PutDriver(models.Driver{ID: "d3", Name: "Kim", RestaurantID: "other", Available: true})

	res, err := m.Transition(context.Background(), "o1", models.StatusInTransit, "")
	require.NoError(t, err)
	assert.Equal(t, "d1", res.AssignedDriver)
	assert.Equal(t, models.StatusInTransit, res.Order.Status)
	assert.Equal(t, "d1", res.Order.DriverID)
	assert.Equal(t, []string{"o1"}, sink.activated)
}

func TestAssignmentPolicyMultipleDriversNeedsManual(t *testing.T) {
	m, store, sink := newMachine(t)
	seedOrder(store, "o1", models.StatusPreparing, "")
	store.PutDriver(models.Driver{ID: "d1", RestaurantID: "r1", Available: true})
	store.PutDriver(models.Driver{ID: "d2", RestaurantID: "r1", Available: true})

	_, err := m.Transition(context.Background(), "o1", models.StatusInTransit, "")
	var manual *NeedsManualAssignmentError
	require.ErrorAs(t, err, &manual)
	assert.Len(t, manual.Candidates, 2)

	o, err := store.GetOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, o.Status, "no mutation on manual assignment")
	assert.Empty(t, sink.activated)

	// resubmitting with an explicit driver succeeds
	res, err := m.Transition(context.Background(), "o1", models.StatusInTransit, "d2")
	require.NoError(t, err)
	assert.Equal(t, "d2", res.Order.DriverID)
}

func TestDeliveredToDeliveredAttachesLateDriver(t *testing.T) {
	m, store, sink := newMachine(t)
	seedOrder(store, "o1", models.StatusDelivered, "")

	res, err := m.Transition(context.Background(), "o1", models.StatusDelivered, "d9")
	require.NoError(t, err)
	assert.Equal(t, "d9", res.Order.DriverID)
	assert.Equal(t, models.StatusDelivered, res.Order.Status)
	assert.Empty(t, sink.changes, "the no-op path emits no events")
}

func TestEventsEmittedOnTransition(t *testing.T) {
	m, store, sink := newMachine(t)
	seedOrder(store, "o1", models.StatusInTransit, "d1")

	_, err := m.Transition(context.Background(), "o1", models.StatusDelivered, "")
	require.NoError(t, err)

	require.Len(t, sink.changes, 1)
	assert.Equal(t, models.StatusChanged{
		OrderID:     "o1",
		OldStatus:   models.StatusInTransit,
		NewStatus:   models.StatusDelivered,
		Counterpart: "c1",
	}, sink.changes[0])
	assert.Equal(t, []string{"o1"}, sink.deactivated)
	assert.Empty(t, sink.activated)
}

func TestConcurrentTransitionsSerializedPerOrder(t *testing.T) {
	m, store, _ := newMachine(t)
	seedOrder(store, "o1", models.StatusPreparing, "")
	store.PutDriver(models.Driver{ID: "d1", RestaurantID: "r1", Available: true})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Transition(context.Background(), "o1", models.StatusInTransit, "d1")
		}(i)
	}
	wg.Wait()

	var ok, invalid int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case err == ErrInvalidTransition:
			invalid++
		}
	}
	assert.Equal(t, 1, ok, "exactly one concurrent transition may win")
	assert.Equal(t, 1, invalid)
}
