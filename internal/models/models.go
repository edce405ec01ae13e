package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// OrderStatus enumerates the order lifecycle states. Transitions between
// them are owned by the lifecycle package; nothing else mutates status.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusInTransit OrderStatus = "in_transit"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// AllStatuses lists every known status, used by validation and tests.
func AllStatuses() []OrderStatus {
	return []OrderStatus{
		StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
		StatusInTransit, StatusDelivered, StatusCancelled,
	}
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
		StatusInTransit, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition can leave this status.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type Order struct {
	ID           string      `json:"id"`
	Status       OrderStatus `json:"status"`
	DriverID     string      `json:"driver_id,omitempty"`
	RestaurantID string      `json:"restaurant_id"`
	CustomerID   string      `json:"customer_id"`
	Destination  Coord       `json:"destination"`
	TotalCents   int64       `json:"total_cents"`
	CreatedAt    time.Time   `json:"created_at"`
}

type Driver struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	RestaurantID string `json:"restaurant_id"`
	Available    bool   `json:"available"`
}

// DriverPosition is the last reported location of a driver. Writes go
// through the positions store only, so reads always see a full lat/lng pair.
type DriverPosition struct {
	DriverID  string    `json:"driver_id"`
	Loc       Coord     `json:"loc"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PositionReport is the wire shape a driver device produces, both on the
// HTTP ingest endpoint and on the Kafka topic.
type PositionReport struct {
	DriverID   string    `json:"driver_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	ReportedAt time.Time `json:"reported_at"`
}

// Route is an ordered path from the driver to the order destination.
// Approximate marks the two-point straight-line substitute used when the
// route provider failed; observers see the flag, it is not hidden.
type Route struct {
	Points         []Coord `json:"points"`
	DistanceMeters float64 `json:"distance_meters"`
	Approximate    bool    `json:"approximate"`
}

type Subscription struct {
	Recipient string    `json:"recipient"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// NotificationPayload is built fresh per event and never reused across
// deliveries.
type NotificationPayload struct {
	Title   string               `json:"title"`
	Body    string               `json:"body"`
	Icon    string               `json:"icon,omitempty"`
	Badge   string               `json:"badge,omitempty"`
	Actions []NotificationAction `json:"actions,omitempty"`
	Data    map[string]string    `json:"data,omitempty"`
}
