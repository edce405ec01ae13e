package positions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/order-fulfillment/internal/models"
)

// RedisStore implements Store using Redis GEO commands plus a metadata
// hash per driver, so consumers in other processes see the same state.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(addr, password, key string) *RedisStore {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisStore{client: c, key: key}
}

func (r *RedisStore) Set(ctx context.Context, driverID string, loc models.Coord, at time.Time) error {
	if _, err := r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{Longitude: loc.Lng, Latitude: loc.Lat, Name: driverID}).Result(); err != nil {
		return err
	}
	return r.client.HSet(ctx, metaKey(driverID), map[string]interface{}{
		"updated": at.Format(time.RFC3339Nano),
	}).Err()
}

func (r *RedisStore) Get(ctx context.Context, driverID string) (models.DriverPosition, bool, error) {
	pos, err := r.client.GeoPos(ctx, r.key, driverID).Result()
	if err != nil {
		return models.DriverPosition{}, false, err
	}
	if len(pos) == 0 || pos[0] == nil {
		return models.DriverPosition{}, false, nil
	}
	p := models.DriverPosition{
		DriverID: driverID,
		Loc:      models.Coord{Lat: pos[0].Latitude, Lng: pos[0].Longitude},
	}
	if m, err := r.client.HGetAll(ctx, metaKey(driverID)).Result(); err == nil {
		if v, ok := m["updated"]; ok {
			if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
				p.UpdatedAt = ts
			}
		}
	}
	return p, true, nil
}

// Ping reports Redis connectivity for readiness checks.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error { return r.client.Close() }

func metaKey(id string) string { return "driver:meta:" + id }
