package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/cors"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/account"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/api"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/auth"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/catalog"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/config"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/db"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/events"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/logging"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/mail"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/storage"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/templates"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/web"
)

const pruneInterval = time.Hour

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logging.New("carsaiplay", logging.Options{}).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New("carsaiplay", logging.Options{Level: cfg.Logging.Level, JSON: cfg.Logging.JSON})

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger hclog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.New(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer database.Close()
	logger.Info("database ready", "dialect", database.Dialect)

	tmpl := templates.NewManager(cfg.Templates.Dir)
	if cfg.Templates.Watch {
		if err := tmpl.Watch(ctx, logger.Named("templates")); err != nil {
			logger.Warn("template watching disabled", "error", err)
		}
	}

	hub := events.NewHub(logger.Named("events"), append([]string{cfg.Server.BaseURL}, cfg.Server.CORSOrigins...)...)
	defer hub.Close()

	objects, err := storage.NewLocal(cfg.Storage.UploadDir, cfg.Storage.PublicPath, "", cfg.Storage.MaxUploadMB<<20)
	if err != nil {
		return err
	}

	store := catalog.NewStore(database, objects, hub, logger.Named("catalog"))
	if err := store.FetchData(ctx); err != nil {
		return err
	}

	mailer := mail.NewSender(cfg.Mail, logger.Named("mail"))
	svc := auth.NewService(database, mailer, tmpl, auth.NewJWT(cfg.Auth.JWTSecret, "carsaiplay"), auth.Options{
		BaseURL:                  cfg.Server.BaseURL,
		SiteName:                 func() string { return store.Settings().SiteName },
		SessionTTL:               cfg.Auth.SessionTTL,
		ResetTokenTTL:            cfg.Auth.ResetTokenTTL,
		RequireEmailConfirmation: cfg.Auth.RequireEmailConfirmation,
	}, logger.Named("auth"))
	registry := account.NewRegistry(svc, database, logger.Named("account"))
	defer registry.Close()

	mux := http.NewServeMux()
	mux.Handle("GET "+cfg.Storage.PublicPath, objects.Handler())
	api.Register(mux, api.Deps{Auth: svc, Registry: registry, Store: store, Events: hub, Logger: logger.Named("api")})
	site := &web.Handler{
		Templates: tmpl,
		Store:     store,
		Registry:  registry,
		Auth:      svc,
		Sessions:  web.NewCookieStore(cfg.Auth.CookieSecret, int(cfg.Auth.SessionTTL.Seconds()), strings.HasPrefix(cfg.Server.BaseURL, "https://")),
		Logger:    logger.Named("web"),
		StaticDir: cfg.Templates.StaticDir,
		BaseURL:   cfg.Server.BaseURL,
	}
	site.Register(mux)

	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}).Handler(api.LoggingMiddleware(logger.Named("http"))(mux))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go pruneSessions(ctx, registry, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port, "base_url", cfg.Server.BaseURL)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	hub.Close()
	return server.Shutdown(shutdownCtx)
}

// pruneSessions deletes expired sessions until ctx is done.
func pruneSessions(ctx context.Context, registry *account.Registry, logger hclog.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := registry.Prune(ctx); err != nil {
				logger.Error("failed to prune sessions", "error", err)
			}
		}
	}
}
