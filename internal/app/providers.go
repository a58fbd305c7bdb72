// Package app composes the matching service from configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/config"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/db"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/events"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/geofence"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/grpcserver"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/httpapi"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/marketplace"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/metrics"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/places"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/pricing"
	"github.com/henrysimon4260/helpr-platform-sub000/pkg/logging"
)

// App is the assembled service.
type App struct {
	Config  *config.Config
	Log     *logging.Logger
	Service *marketplace.Service
	HTTP    *http.Server
	GRPC    *grpc.Server
}

func newApp(cfg *config.Config, log *logging.Logger, svc *marketplace.Service, hs *http.Server, gs *grpc.Server) *App {
	return &App{Config: cfg, Log: log, Service: svc, HTTP: hs, GRPC: gs}
}

// provideStore opens PostgreSQL or returns an in-memory store.
func provideStore(ctx context.Context, cfg *config.Config, log *logging.Logger) (marketplace.Store, func(), error) {
	if cfg.StoreBackend == config.BackendMemory {
		log.Warn("using in-memory store; data is lost on restart")
		return marketplace.NewMemStore(nil), func() {}, nil
	}

	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	if cfg.Migrate {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("schema applied")
	}
	log.Info("postgres connected")
	return marketplace.NewPgStore(pool), pool.Close, nil
}

// provideRedis connects when REDIS_URL is set. The client may be nil.
func provideRedis(ctx context.Context, cfg *config.Config, log *logging.Logger) (*redis.Client, func(), error) {
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	if rdb == nil {
		log.Warn("REDIS_URL not set, events go to the log")
		return nil, func() {}, nil
	}
	log.Info("redis connected")
	return rdb, func() { _ = rdb.Close() }, nil
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func provideMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}

func provideGeofence(cfg *config.Config) (*geofence.Validator, error) {
	if cfg.ServiceAreas == "" {
		return geofence.New(nil)
	}
	areas, err := geofence.LoadAreas(cfg.ServiceAreas)
	if err != nil {
		return nil, err
	}
	return geofence.New(areas)
}

func provideService(
	cfg *config.Config,
	store marketplace.Store,
	pub events.Publisher,
	m *metrics.Metrics,
	geo *geofence.Validator,
	log *logging.Logger,
) (*marketplace.Service, error) {
	policy, err := marketplace.ParseBidCancelPolicy(cfg.BidCancelPolicy)
	if err != nil {
		return nil, err
	}
	return marketplace.NewService(store,
		marketplace.WithEvents(pub),
		marketplace.WithMetrics(m),
		marketplace.WithGeofence(geo),
		marketplace.WithLogger(log.Named("marketplace")),
		marketplace.WithBidCancelPolicy(policy),
	)
}

func provideEstimator(cfg *config.Config, log *logging.Logger) *pricing.Estimator {
	var hazards []string
	if cfg.LLM.HazardScreen {
		hazards = pricing.DefaultHazards
	}
	return pricing.NewEstimator(pricing.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Hazards: hazards,
		Logger:  log.Named("pricing"),
	})
}

func providePlaces(cfg *config.Config, log *logging.Logger) *places.Client {
	return places.NewClient(places.Config{
		APIKey:  cfg.Places.APIKey,
		BaseURL: cfg.Places.BaseURL,
		Logger:  log.Named("places"),
	})
}

func provideRouter(jobs *httpapi.JobsHandler, tools *httpapi.ToolsHandler, reg *prometheus.Registry) http.Handler {
	return httpapi.NewRouter(jobs, tools, reg)
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

func provideGRPCServer(srv *grpcserver.Server) *grpc.Server {
	return grpcserver.New(srv)
}
