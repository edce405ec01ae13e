package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/order-fulfillment/internal/config"
	"github.com/example/order-fulfillment/internal/events"
	"github.com/example/order-fulfillment/internal/ingest"
	"github.com/example/order-fulfillment/internal/lifecycle"
	"github.com/example/order-fulfillment/internal/positions"
	"github.com/example/order-fulfillment/internal/push"
	"github.com/example/order-fulfillment/internal/rooms"
	"github.com/example/order-fulfillment/internal/routing"
	"github.com/example/order-fulfillment/internal/storage"
)

// Stores bundles the persistence contracts the server needs. The memory
// store satisfies all of them and backs dependency-free runs.
type Stores struct {
	Orders  storage.OrderStore
	Drivers storage.DriverStore
	Subs    storage.SubscriptionStore
	Prefs   storage.PreferenceStore
}

type Server struct {
	cfg    config.ServerConfig
	logger *slog.Logger

	machine     *lifecycle.Machine
	broadcaster *rooms.Broadcaster
	registry    *push.Registry
	dispatcher  *push.Dispatcher
	orders      storage.OrderStore
	positions   positions.Store
	producer    *ingest.KafkaProducer
	ready       func(ctx context.Context) error

	mux *mux.Router
}

// NewServer wires the coordination core behind the HTTP surface. Route
// provider, Kafka producer and readiness probe are optional.
func NewServer(cfg config.ServerConfig, logger *slog.Logger, stores Stores, pos positions.Store,
	routes routing.Provider, transport push.Transport, producer *ingest.KafkaProducer,
	ready func(ctx context.Context) error) *Server {

	broadcaster := rooms.NewBroadcaster(stores.Orders, pos, routes)
	broadcaster.RouteCache = routing.NewCache(cfg.RouteCacheTTL)
	broadcaster.RouteTimeout = cfg.RouteTimeout
	broadcaster.QueueDepth = cfg.RoomQueueDepth
	broadcaster.Logger = logger

	dispatcher := &push.Dispatcher{
		Subs:      stores.Subs,
		Prefs:     stores.Prefs,
		Transport: transport,
		Timeout:   cfg.PushTimeout,
		Logger:    logger,
	}

	machine := &lifecycle.Machine{
		Orders:  stores.Orders,
		Drivers: stores.Drivers,
		Sink: &events.Bridge{
			Dispatcher:  dispatcher,
			Broadcaster: broadcaster,
			Logger:      logger,
		},
		Logger: logger,
	}

	s := &Server{
		cfg:         cfg,
		logger:      logger,
		machine:     machine,
		broadcaster: broadcaster,
		registry:    &push.Registry{Subs: stores.Subs},
		dispatcher:  dispatcher,
		orders:      stores.Orders,
		positions:   pos,
		producer:    producer,
		ready:       ready,
		mux:         mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/orders/{order_id}/status", s.handleTransition).Methods("POST")
	s.mux.HandleFunc("/api/v1/orders/{order_id}/notify-new", s.handleNotifyNewOrder).Methods("POST")
	s.mux.HandleFunc("/api/v1/push/subscriptions", s.handleSubscribe).Methods("POST")
	s.mux.HandleFunc("/api/v1/push/subscriptions/{recipient}", s.handleUnsubscribe).Methods("DELETE")
	s.mux.HandleFunc("/internal/driver/positions", s.handlePositionReport).Methods("POST")
	s.mux.HandleFunc("/ws/orders/{order_id}", s.handleWS)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.HandleFunc("/ready", s.handleReady).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// Broadcaster exposes the room registry for the consumer-side bridge and
// for tests.
func (s *Server) Broadcaster() *rooms.Broadcaster { return s.broadcaster }

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(200)
	w.Write([]byte("ready"))
}
