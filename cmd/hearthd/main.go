// Command hearthd runs the Hearth household coordination server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/hearthhq/hearth/internal/app"
	devotionalsvc "github.com/hearthhq/hearth/internal/app/services/devotional"
	suggestsvc "github.com/hearthhq/hearth/internal/app/services/suggest"
	"github.com/hearthhq/hearth/internal/config"
	"github.com/hearthhq/hearth/internal/httpapi"
	"github.com/hearthhq/hearth/internal/metrics"
	"github.com/hearthhq/hearth/internal/middleware"
	"github.com/hearthhq/hearth/internal/session"
	"github.com/hearthhq/hearth/internal/store"
	"github.com/hearthhq/hearth/pkg/logger"
)

func main() {
	// A missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault("hearthd").WithError(err).Error("load configuration")
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := logger.New("hearthd", os.Stderr, level)

	gateway, err := buildStore(cfg, log)
	if err != nil {
		log.WithError(err).Error("build store gateway")
		os.Exit(1)
	}

	var auth session.Authenticator
	if cfg.Auth.URL != "" {
		auth, err = session.NewHTTPAuthenticator(cfg.Auth.URL, cfg.Store.APIKey, nil)
		if err != nil {
			log.WithError(err).Error("build authenticator")
			os.Exit(1)
		}
	}

	var verses devotionalsvc.VerseFetcher
	if v, err := devotionalsvc.NewVerseAPI(cfg.Verse.URL, nil); err != nil {
		log.WithError(err).Warn("verse API disabled")
	} else {
		verses = v
	}

	if !cfg.HasSuggestCredential() {
		log.Warn("no suggestion API credential; sub-task suggestions disabled")
	}

	application := app.New(app.Options{
		Store:  gateway,
		Auth:   auth,
		Verses: verses,
		Suggest: suggestsvc.Config{
			URL:       cfg.Suggest.URL,
			APIKey:    cfg.Suggest.APIKey,
			RateLimit: rate.Limit(cfg.Suggest.RateLimit),
			Burst:     cfg.Suggest.Burst,
			Log:       log.WithField("component", "suggest"),
		},
		Log: log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("start application")
		os.Exit(1)
	}

	m := metrics.New(cfg.AppID)
	router := httpapi.NewRouter(application)
	router.Use(middleware.Logging(log.WithField("component", "http")))
	router.Use(middleware.Metrics(m))
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.Burst, log.WithField("component", "ratelimit"))
	cors := middleware.NewCORS(cfg.CORSOrigins)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      cors.Handler(limiter.Handler(router)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.WithError(err).Error("server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application stop")
	}
	log.Info("goodbye")
}

func buildStore(cfg *config.Config, log *logger.Logger) (store.Gateway, error) {
	switch cfg.Backend() {
	case config.BackendRest:
		return store.NewRest(store.RestConfig{
			URL:    cfg.Store.URL,
			APIKey: cfg.Store.APIKey,
			Log:    log.WithField("component", "store"),
		})
	default:
		log.Info("using in-memory store")
		return store.NewMemory(), nil
	}
}
