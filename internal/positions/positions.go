package positions

import (
	"context"
	"sync"
	"time"

	"github.com/example/order-fulfillment/internal/models"
)

// Store keeps the last known position per driver. Writes come from a
// high-frequency producer (the driver's device); reads must see a full
// lat/lng pair, never a partial write.
type Store interface {
	Set(ctx context.Context, driverID string, loc models.Coord, at time.Time) error
	Get(ctx context.Context, driverID string) (models.DriverPosition, bool, error)
}

type MemoryStore struct {
	mu        sync.RWMutex
	positions map[string]models.DriverPosition
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{positions: make(map[string]models.DriverPosition)}
}

func (m *MemoryStore) Set(ctx context.Context, driverID string, loc models.Coord, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[driverID] = models.DriverPosition{DriverID: driverID, Loc: loc, UpdatedAt: at}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, driverID string) (models.DriverPosition, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.positions[driverID]
	return p, ok, nil
}
