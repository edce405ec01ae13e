package httpapi

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/example/order-fulfillment/internal/models"
	"github.com/example/order-fulfillment/internal/storage"
)

var upgrader = websocket.Upgrader{}

// wsObserver adapts a websocket connection to a room observer handle.
// The write path is mutex-guarded: the room pump and the join replay may
// not interleave writes on one connection.
type wsObserver struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (o *wsObserver) Send(ev models.PositionUpdate) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conn.WriteJSON(ev)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["order_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		s.logger.Warn("ws upgrade failed", "order_id", orderID, "error", err)
		return
	}
	obs := &wsObserver{conn: conn}
	s.broadcaster.Join(orderID, obs)
	s.replayLastRoute(r, orderID, obs)

	// the read loop only detects disconnects; observers never send
	go func() {
		defer func() {
			s.broadcaster.Leave(orderID, obs)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// replayLastRoute sends the room's cached route to a freshly joined
// observer so a reconnect shows the last-known path immediately instead
// of waiting for the next driver report.
func (s *Server) replayLastRoute(r *http.Request, orderID string, obs *wsObserver) {
	route, ok := s.broadcaster.LastRoute(orderID)
	if !ok {
		return
	}
	o, err := s.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("route replay order lookup failed", "order_id", orderID, "error", err)
		}
		return
	}
	if o.DriverID == "" {
		return
	}
	pos, found, err := s.positions.Get(r.Context(), o.DriverID)
	if err != nil || !found {
		return
	}
	if err := obs.Send(models.PositionUpdate{
		OrderID:        orderID,
		DriverID:       o.DriverID,
		Lat:            pos.Loc.Lat,
		Lng:            pos.Loc.Lng,
		Route:          route,
		DistanceMeters: route.DistanceMeters,
	}); err != nil {
		s.logger.Warn("route replay send failed", "order_id", orderID, "error", err)
	}
}
