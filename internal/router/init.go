package router

import (
	"github.com/cric2000/Amazon-price-tracker/internal/application"
	"github.com/cric2000/Amazon-price-tracker/internal/container"
	pginfra "github.com/cric2000/Amazon-price-tracker/internal/infrastructure/postgres"
	handlers "github.com/cric2000/Amazon-price-tracker/internal/interface/http"
	"github.com/cric2000/Amazon-price-tracker/internal/router/modules"
	"github.com/cric2000/Amazon-price-tracker/internal/scraper"
	"github.com/cric2000/Amazon-price-tracker/pkg/helpers"
)

// publisher adapts the container's concrete *RabbitPublisher to the services'
// Publisher interface. When RabbitMQ was unavailable at startup the container
// holds a nil pointer; returning it directly would produce a non-nil interface
// wrapping a nil receiver, so the services must get a true nil instead.
func publisher() application.Publisher {
	if p := container.GetRabbitPub(); p != nil {
		return p
	}
	return nil
}

// BuildTracker constructs the tracker service from the container singletons.
// cmd/main.go reuses it for the in-process cron schedule so the HTTP trigger
// and the scheduler share one instance.
func BuildTracker() *application.TrackerService {
	cfg := container.GetConfig()

	users := pginfra.NewUserRepository(container.GetPGPool())
	products := pginfra.NewProductRepository(container.GetPGPool())

	notifier := application.NewQueueNotifier(
		users,
		publisher(),
		cfg.AppName,
		cfg.MailSendEnabled,
		container.GetLogger(),
	)

	tracker := application.NewTrackerService(
		users,
		products,
		scraper.NewHTTPFetcher(cfg.FetchTimeout, cfg.FetchUserAgent),
		scraper.NewRegistry(scraper.NewAmazonExtractor()),
		notifier,
		&application.RedisSweepLock{RDB: container.GetRedis(), TTL: cfg.RefreshLeaseTTL},
		container.GetLogger(),
	)
	tracker.ES = container.GetES()
	tracker.ESProductsIndex = cfg.ESProductsIndex
	tracker.BatchWait = cfg.RefreshBatchWait
	return tracker
}

// InitModules wires all feature modules into the router registry. Called once
// during startup.
func InitModules(r *Registry, tracker *application.TrackerService) {
	cfg := container.GetConfig()

	users := pginfra.NewUserRepository(container.GetPGPool())
	userService := application.NewUserService(
		users,
		container.GetJWT(),
		container.GetRedis(),
		publisher(),
		cfg,
		container.GetLogger(),
	)
	cookies := helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure)

	r.Add(modules.NewUserModule(handlers.NewUserHandler(userService, cookies), container.GetJWT()))
	r.Add(modules.NewProductModule(handlers.NewProductHandler(tracker), container.GetJWT()))
	r.Add(modules.NewTrackerModule(handlers.NewTrackerHandler(tracker)))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
