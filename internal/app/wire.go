//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/config"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/events"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/grpcserver"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/httpapi"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/places"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/pricing"
	"github.com/henrysimon4260/helpr-platform-sub000/pkg/logging"
)

// InitializeApp wires the service from cfg. The returned cleanup closes the
// database and Redis connections.
func InitializeApp(ctx context.Context, cfg *config.Config, log *logging.Logger) (*App, func(), error) {
	wire.Build(
		// Infrastructure
		provideStore,
		provideRedis,
		events.New,
		provideRegistry,
		provideMetrics,
		provideGeofence,

		// Domain
		provideService,

		// Outbound clients
		provideEstimator,
		wire.Bind(new(httpapi.Estimator), new(*pricing.Estimator)),
		providePlaces,
		wire.Bind(new(httpapi.PlaceFinder), new(*places.Client)),

		// Transports
		httpapi.NewJobsHandler,
		httpapi.NewToolsHandler,
		provideRouter,
		provideHTTPServer,
		grpcserver.NewServer,
		provideGRPCServer,

		newApp,
	)
	return nil, nil, nil
}
