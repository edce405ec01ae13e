package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/example/order-fulfillment/internal/config"
	httpapi "github.com/example/order-fulfillment/internal/http"
	"github.com/example/order-fulfillment/internal/ingest"
	"github.com/example/order-fulfillment/internal/logging"
	"github.com/example/order-fulfillment/internal/positions"
	"github.com/example/order-fulfillment/internal/push"
	"github.com/example/order-fulfillment/internal/routing"
	"github.com/example/order-fulfillment/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.NewLogger(os.Stdout, cfg.LogLevel)

	if cfg.PGDSN != "" && cfg.RunMigrations {
		runMigrations(cfg.PGDSN, logger.Error)
	}

	stores := httpapi.Stores{}
	if cfg.PGDSN != "" {
		pg, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		stores.Orders, stores.Drivers, stores.Subs, stores.Prefs = pg, pg, pg, pg
	} else {
		mem := storage.NewMemoryStore()
		stores.Orders, stores.Drivers, stores.Subs, stores.Prefs = mem, mem, mem, mem
		logger.Warn("PG_DSN not set, using in-memory stores")
	}

	var pos positions.Store
	var ready func(ctx context.Context) error
	if cfg.RedisAddr != "" {
		rs := positions.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
		pos = rs
		ready = rs.Ping
	} else {
		pos = positions.NewMemoryStore()
	}

	var routes routing.Provider
	if cfg.OSRMEndpoint != "" {
		routes = routing.NewOSRMClient(cfg.OSRMEndpoint, cfg.RouteTimeout)
	} else {
		logger.Warn("OSRM_ENDPOINT not set, every route falls back to a straight line")
	}

	transport := push.NewWebPushTransport(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber, cfg.PushTimeout)

	var producer *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		producer = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
	}

	srv := httpapi.NewServer(cfg, logger, stores, pos, routes, transport, producer, ready)

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("order-fulfillment listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// runMigrations applies the schema file when MIGRATE=true, mirroring how
// local and CI environments bootstrap.
func runMigrations(dsn string, logErr func(msg string, args ...any)) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logErr("migration db open error", "error", err)
		return
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_core.sql"))
	if err != nil {
		logErr("migration read error", "error", err)
		return
	}
	if _, err := db.Exec(string(b)); err != nil {
		logErr("migration exec error", "error", err)
		return
	}
	log.Printf("migration applied: 001_create_core.sql")
}
