package routing

import (
	"testing"
	"time"

	"github.com/example/order-fulfillment/internal/models"
)

func TestHaversineZero(t *testing.T) {
	d := Haversine(0, 0, 0, 0)
	if d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Obelisco to Plaza de Mayo, roughly a kilometer
	d := Haversine(-34.6037, -58.3816, -34.6083, -58.3722)
	if d < 900 || d > 1100 {
		t.Fatalf("expected ~1km, got %f", d)
	}
}

func TestStraightLineShape(t *testing.T) {
	from := models.Coord{Lat: 1, Lng: 2}
	to := models.Coord{Lat: 3, Lng: 4}
	r := StraightLine(from, to)
	if !r.Approximate {
		t.Fatal("straight line must be marked approximate")
	}
	if len(r.Points) != 2 || r.Points[0] != from || r.Points[1] != to {
		t.Fatalf("unexpected points %+v", r.Points)
	}
	if r.DistanceMeters != Haversine(1, 2, 3, 4) {
		t.Fatal("distance must come from the same two points")
	}
}

func TestCacheHitAndExpiry(t *testing.T) {
	c := NewCache(30 * time.Millisecond)
	a := models.Coord{Lat: 1, Lng: 1}
	b := models.Coord{Lat: 2, Lng: 2}
	route := models.Route{Points: []models.Coord{a, b}, DistanceMeters: 42}

	if _, ok := c.Get(a, b); ok {
		t.Fatal("empty cache must miss")
	}
	c.Set(a, b, route)
	got, ok := c.Get(a, b)
	if !ok || got.DistanceMeters != 42 {
		t.Fatalf("expected hit, got ok=%v %+v", ok, got)
	}
	if _, ok := c.Get(b, a); ok {
		t.Fatal("cache key must be directional")
	}

	time.Sleep(50 * time.Millisecond)
	if _, ok := c.Get(a, b); ok {
		t.Fatal("expired entry must miss")
	}
}
