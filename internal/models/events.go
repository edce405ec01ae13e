package models

// StatusChanged is emitted by the order state machine after a successful
// transition has been persisted. Counterpart is the party to notify.
type StatusChanged struct {
	OrderID     string      `json:"order_id"`
	OldStatus   OrderStatus `json:"old_status"`
	NewStatus   OrderStatus `json:"new_status"`
	Counterpart string      `json:"counterpart"`
}

// PositionUpdate is fanned out to every observer of an order's room.
type PositionUpdate struct {
	OrderID        string  `json:"order_id"`
	DriverID       string  `json:"driver_id"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	Route          Route   `json:"route"`
	DistanceMeters float64 `json:"distance_meters"`
}
