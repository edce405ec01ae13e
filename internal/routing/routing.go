package routing

import (
	"context"
	"math"

	"github.com/example/order-fulfillment/internal/models"
)

// Provider is the external routing collaborator: it returns an ordered
// path and distance between two points, or fails.
type Provider interface {
	ComputeRoute(ctx context.Context, from, to models.Coord) (models.Route, error)
}

// StraightLine builds the two-point approximate route used whenever the
// provider fails. The flag is surfaced to observers, not hidden.
func StraightLine(from, to models.Coord) models.Route {
	return models.Route{
		Points:         []models.Coord{from, to},
		DistanceMeters: Haversine(from.Lat, from.Lng, to.Lat, to.Lng),
		Approximate:    true,
	}
}

// Haversine distance in meters
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
