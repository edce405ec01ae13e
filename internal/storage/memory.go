package storage

import (
	"context"
	"sync"
	"time"

	"github.com/example/order-fulfillment/internal/models"
)

// MemoryStore implements every store contract in memory. It backs tests
// and dependency-free local runs; production wiring uses PostgresStore.
type MemoryStore struct {
	mu       sync.RWMutex
	orders   map[string]*models.Order
	drivers  map[string]models.Driver
	subs     map[string]models.Subscription // keyed by endpoint
	disabled map[string]bool                // recipients who opted out
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:   make(map[string]*models.Order),
		drivers:  make(map[string]models.Driver),
		subs:     make(map[string]models.Subscription),
		disabled: make(map[string]bool),
	}
}

func (m *MemoryStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MemoryStore) UpdateOrder(ctx context.Context, id string, status models.OrderStatus, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	if driverID != "" {
		o.DriverID = driverID
	}
	return nil
}

// PutOrder seeds an order; creation itself belongs to the checkout
// collaborator, not this core.
func (m *MemoryStore) PutOrder(o *models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
}

func (m *MemoryStore) PutDriver(d models.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[d.ID] = d
}

func (m *MemoryStore) EligibleDrivers(ctx context.Context, restaurantID string) ([]models.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Driver
	for _, d := range m.drivers {
		if d.Available && d.RestaurantID == restaurantID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MemoryStore) UpsertSubscription(ctx context.Context, sub models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if prev, ok := m.subs[sub.Endpoint]; ok {
		sub.CreatedAt = prev.CreatedAt
	} else {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	m.subs[sub.Endpoint] = sub
	return nil
}

func (m *MemoryStore) SubscriptionsFor(ctx context.Context, recipient string) ([]models.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Subscription
	for _, s := range m.subs {
		if s.Recipient == recipient {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryStore) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, endpoint)
	return nil
}

func (m *MemoryStore) DeleteByRecipient(ctx context.Context, recipient string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ep, s := range m.subs {
		if s.Recipient == recipient {
			delete(m.subs, ep)
		}
	}
	return nil
}

func (m *MemoryStore) NotificationsEnabled(ctx context.Context, recipient string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.disabled[recipient], nil
}

// SetNotificationsEnabled flips the recipient opt-in flag.
func (m *MemoryStore) SetNotificationsEnabled(recipient string, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if enabled {
		delete(m.disabled, recipient)
	} else {
		m.disabled[recipient] = true
	}
}
