package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ruestzeit/anmeldung/internal/auth"
	"github.com/ruestzeit/anmeldung/internal/config"
	"github.com/ruestzeit/anmeldung/internal/database"
	"github.com/ruestzeit/anmeldung/internal/handlers"
	"github.com/ruestzeit/anmeldung/internal/i18n"
	"github.com/ruestzeit/anmeldung/internal/jobs"
	"github.com/ruestzeit/anmeldung/internal/metrics"
	"github.com/ruestzeit/anmeldung/internal/notifier"
	"github.com/ruestzeit/anmeldung/internal/region"
	"github.com/ruestzeit/anmeldung/internal/registration"
)

func serve(ctx context.Context, cfg *config.Config) error {
	// Connect to Database
	db := database.Connect(cfg)

	// Region lookup
	lookup, closeCache := newRegionLookup(ctx, cfg)
	defer closeCache()

	// Notifiers
	notifiers := newNotifiers(cfg)

	m := metrics.New(prometheus.DefaultRegisterer)

	service := registration.NewService(db,
		registration.WithRegionLookup(lookup),
		registration.WithNotifier(notifiers),
		registration.WithTranslator(i18n.NewCatalog(cfg.Labels)),
		registration.WithMetrics(m),
		registration.WithCountry(cfg.PostalcodeCountry),
	)

	// Bring cached member counts up to date before serving.
	if err := service.RefreshMemberCounts(ctx); err != nil {
		log.Printf("Failed to refresh member counts: %v", err)
	}

	scheduler := jobs.NewScheduler()
	if cfg.MemberCountSchedule != "" {
		if err := scheduler.ScheduleMemberCounts(cfg.MemberCountSchedule, service); err != nil {
			return err
		}
		scheduler.Start()
	}

	// Initialize Handlers
	authHandler := auth.NewAuthHandler(cfg, db)
	h := handlers.Handlers{
		Auth:          authHandler,
		Public:        handlers.NewPublicHandler(service, cfg.BypassToken),
		Events:        handlers.NewEventHandler(db, authHandler),
		CustomFields:  handlers.NewCustomFieldHandler(db, authHandler),
		Registrations: handlers.NewRegistrationHandler(db, authHandler, service),
		Locations:     handlers.NewLocationHandler(db, authHandler),
		APIKeys:       handlers.NewAPIKeyHandler(db, authHandler),
		Metrics:       promhttp.Handler(),
	}

	// Initialize Router
	r := chi.NewRouter()
	handlers.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	return srv.Shutdown(shutdownCtx)
}

// newRegionLookup returns the postal code lookup with a redis cache when
// REDIS_URL is set and an in-process cache otherwise.
func newRegionLookup(ctx context.Context, cfg *config.Config) (region.Lookup, func()) {
	client := region.NewOpenPLZClient(cfg.PostalcodeAPIURL, nil)

	ttl, err := time.ParseDuration(cfg.RegionCacheTTL)
	if err != nil || ttl <= 0 {
		log.Printf("Invalid REGION_CACHE_TTL %q, using 720h", cfg.RegionCacheTTL)
		ttl = 720 * time.Hour
	}

	if cfg.RedisURL != "" {
		cache, err := region.NewRedisCache(ctx, cfg.RedisURL)
		if err == nil {
			return region.NewCachedLookup(client, cache, ttl), func() { cache.Close() }
		}
		log.Printf("Redis cache not initialized, falling back to memory: %v", err)
	}
	return region.NewCachedLookup(client, region.NewMemoryCache(), ttl), func() {}
}

func newNotifiers(cfg *config.Config) notifier.Multi {
	var notifiers notifier.Multi

	if cfg.MailTo != "" {
		sender, err := notifier.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
		if err != nil {
			log.Printf("Mail notifier not initialized: %v", err)
		} else {
			notifiers = append(notifiers, notifier.NewMailNotifier(sender, cfg.MailFrom, cfg.MailTo))
		}
	} else {
		log.Printf("MAIL_TO is not set, registrations are not mailed")
	}

	if cfg.DiscordBotToken != "" {
		session, err := notifier.NewDiscordSession(cfg.DiscordBotToken)
		if err != nil {
			log.Printf("Discord notifier not initialized: %v", err)
		} else {
			notifiers = append(notifiers, notifier.NewDiscordNotifier(session, cfg.DiscordNotificationsChannelID))
		}
	}

	return notifiers
}
