package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/order-fulfillment/internal/models"
)

// fakeStore implements PositionUpdater for tests
type fakeStore struct {
	fail  int // number of times to fail before succeeding
	calls int
}

func (f *fakeStore) Set(ctx context.Context, driverID string, loc models.Coord, at time.Time) error {
	f.calls++
	if f.calls <= f.fail {
		return errors.New("store fail")
	}
	return nil
}

func TestUpdatePositionWithRetry_SucceedsAfterRetries(t *testing.T) {
	f := &fakeStore{fail: 2}
	r := models.PositionReport{DriverID: "d1", Lat: 1, Lng: 2, ReportedAt: time.Now()}
	start := time.Now()
	if err := updatePositionWithRetry(context.Background(), f, r, 3, 10*time.Millisecond); err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if f.calls != 3 {
		t.Fatalf("expected retries, got calls=%d", f.calls)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("expected at least one backoff")
	}
}

func TestUpdatePositionWithRetry_FailsWhenExhausted(t *testing.T) {
	f := &fakeStore{fail: 5}
	r := models.PositionReport{DriverID: "d1", Lat: 1, Lng: 2, ReportedAt: time.Now()}
	if err := updatePositionWithRetry(context.Background(), f, r, 3, 5*time.Millisecond); err == nil {
		t.Fatalf("expected error after retries")
	}
}
