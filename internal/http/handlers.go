package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/order-fulfillment/internal/lifecycle"
	"github.com/example/order-fulfillment/internal/models"
	"github.com/example/order-fulfillment/internal/push"
	"github.com/example/order-fulfillment/internal/storage"
)

type transitionRequest struct {
	Status   models.OrderStatus `json:"status"`
	DriverID string             `json:"driver_id,omitempty"`
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["order_id"]
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.machine.Transition(r.Context(), orderID, req.Status, req.DriverID)
	if err != nil {
		var manual *lifecycle.NeedsManualAssignmentError
		switch {
		case errors.Is(err, lifecycle.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "order not found"})
		case errors.Is(err, lifecycle.ErrInvalidTransition):
			writeJSON(w, http.StatusConflict, map[string]any{"error": "invalid transition"})
		case errors.As(err, &manual):
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":      "needs_manual_assignment",
				"candidates": manual.Candidates,
			})
		case errors.Is(err, lifecycle.ErrNoDriversAvailable):
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "no drivers available"})
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"order":           res.Order,
		"assigned_driver": res.AssignedDriver,
	})
}

// handleNotifyNewOrder lets the checkout collaborator push a "new order"
// notification to the restaurant. The delivery report comes back to the
// caller for observability; a failed push is never an HTTP error.
func (s *Server) handleNotifyNewOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["order_id"]
	o, err := s.orders.GetOrder(r.Context(), orderID)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "order not found"})
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	report := s.dispatcher.Dispatch(r.Context(), o.RestaurantID, push.Event{
		Kind:       push.EventNewOrder,
		OrderID:    o.ID,
		TotalCents: o.TotalCents,
	})
	writeJSON(w, http.StatusOK, report)
}

type subscribeRequest struct {
	Recipient string `json:"recipient"`
	Endpoint  string `json:"endpoint"`
	Keys      struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err := s.registry.Register(r.Context(), req.Recipient, req.Endpoint, req.Keys.P256dh, req.Keys.Auth)
	if errors.Is(err, push.ErrMalformedEndpoint) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed endpoint"})
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	recipient := mux.Vars(r)["recipient"]
	if err := s.registry.Unregister(r.Context(), recipient); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePositionReport(w http.ResponseWriter, r *http.Request) {
	var report models.PositionReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if report.DriverID == "" {
		http.Error(w, "driver_id required", http.StatusBadRequest)
		return
	}
	if report.ReportedAt.IsZero() {
		report.ReportedAt = time.Now()
	}
	// publish for downstream consumers, best-effort
	if s.producer != nil {
		if err := s.producer.PublishPosition(report); err != nil {
			s.logger.Warn("position publish failed", "driver_id", report.DriverID, "error", err)
		}
	}
	if err := s.broadcaster.ReportPosition(r.Context(), report.DriverID, report.Lat, report.Lng); err != nil {
		s.logger.Error("position report failed", "driver_id", report.DriverID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
