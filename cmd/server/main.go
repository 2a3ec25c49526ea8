package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/campussafety/safety-dashboard/internal/config"
	"github.com/campussafety/safety-dashboard/internal/controllers"
	"github.com/campussafety/safety-dashboard/internal/database"
	"github.com/campussafety/safety-dashboard/internal/live"
	"github.com/campussafety/safety-dashboard/internal/logger"
	"github.com/campussafety/safety-dashboard/internal/middleware"
	"github.com/campussafety/safety-dashboard/internal/scheduler"
	"github.com/campussafety/safety-dashboard/internal/services"
	"github.com/campussafety/safety-dashboard/internal/storage"
	"github.com/campussafety/safety-dashboard/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// the logger depends on config, so this one goes to stderr
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg, log)
	if err != nil {
		return err
	}
	if err := database.MigrateLocal(db, cfg.DBDriver); err != nil {
		return err
	}

	archive, err := storage.Open(ctx, cfg.ArchiveBucket, cfg.GCSCredentialsFile, cfg.ArchiveDir, log)
	if err != nil {
		return err
	}
	var archiver services.Archiver
	if archive != nil {
		archiver = archive
		defer func() {
			if err := archive.Close(); err != nil {
				log.Warn("archive close failed", zap.Error(err))
			}
		}()
	}

	// Services
	reports := services.NewReportService(db)
	cache := services.NewIncidentCache(reports, log)
	analytics := services.NewAnalyticsService(cache, nil)
	settings := services.NewSettingsService(db)
	exports := services.NewExportService(reports, cache, analytics, nil)
	snapshots := services.NewSnapshotService(db, reports, archiver, log, nil)
	auth := services.NewAuthService(authProvider(cfg), cfg.AuthJWTSecret, log)

	hub := live.NewHub(log, originChecker(cfg.CORSOrigins))
	go hub.Run()
	defer hub.Stop()

	jobs := scheduler.New(analytics, snapshots, hub, cfg.RemoteTimeout, log)
	if err := jobs.Register(cfg.StatsRefreshSpec, cfg.SnapshotSpec); err != nil {
		return err
	}
	jobs.Start()

	if _, err := cache.Reload(ctx); err != nil {
		log.Warn("initial incident load failed", zap.Error(err))
	}

	// Controllers
	shell := &controllers.Shell{Settings: settings, Analytics: analytics, Cache: cache, Live: hub, Log: log}
	router := &controllers.Router{
		Verifier:  auth,
		Auth:      controllers.NewAuthController(auth, shell, cfg.SessionCookieSecure),
		Health:    controllers.NewHealthController(db, reports, snapshots, cache, hub.Clients),
		Dashboard: controllers.NewDashboardController(analytics, shell),
		Incidents: controllers.NewIncidentController(reports, cache, exports, shell),
		Analytics: controllers.NewAnalyticsController(analytics, exports, shell),
		Map:       controllers.NewMapController(services.NewMapService(cache, cfg.Campus), shell),
		News:      controllers.NewNewsController(services.NewNewsService(db), shell),
		Users:     controllers.NewUserController(services.NewUserService(reports), shell),
		Reports:   controllers.NewReportController(reports, exports, snapshots, archiver, shell),
		Settings:  controllers.NewSettingsController(settings, auth, shell, cfg.SessionCookieSecure),
		Live:      controllers.NewLiveController(hub, log),
	}

	renderer, err := web.New()
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.HTTPErrorHandler = middleware.ErrorHandler(log)
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	if len(cfg.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
			AllowCredentials: true,
		}))
	}
	e.StaticFS("/static", web.Static())
	router.Mount(e)

	errCh := make(chan error, 1)
	go func() {
		log.Info("dashboard listening", zap.String("addr", cfg.HTTPAddr), zap.String("auth", cfg.AuthProvider), zap.String("db", cfg.DBDriver))
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	jobs.Stop(shutdownCtx)
	return e.Shutdown(shutdownCtx)
}

func authProvider(cfg *config.Config) services.AuthProvider {
	if cfg.AuthProvider == config.AuthProviderLocal {
		return services.NewLocalAuth(cfg.AdminEmail, cfg.AdminPasswordHash, cfg.AuthJWTSecret, cfg.SessionTTL)
	}
	return services.NewRemoteAuth(cfg.AuthURL, cfg.AuthAnonKey, cfg.RemoteTimeout)
}

// originChecker allows same-origin websocket upgrades plus the configured
// CORS origins.
func originChecker(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || strings.EqualFold(origin, "http://"+r.Host) || strings.EqualFold(origin, "https://"+r.Host) {
			return true
		}
		for _, o := range origins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}
