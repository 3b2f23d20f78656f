package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"reception-service/internal/app"
	"reception-service/internal/config"
	"reception-service/internal/gcal"
	"reception-service/internal/logger"
	"reception-service/internal/metrics"
	"reception-service/internal/server"
	"reception-service/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL required")
	}

	logger.InitLogger(cfg)
	zlog := logger.GetLogger()
	defer zlog.Sync()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		zlog.Fatal("failed to connect to db", zap.Error(err))
	}
	defer pool.Close()

	db := store.New(pool)
	if err := db.Init(ctx); err != nil {
		zlog.Fatal("failed to initialize schema", zap.Error(err))
	}

	oauthCfg := gcal.NewOAuthConfig(&cfg.Google)
	if oauthCfg == nil {
		zlog.Warn("Google Calendar integration not configured; calendar routes will fail")
	}
	factory := gcal.NewGoogle(oauthCfg, db)
	resolver := gcal.NewResolver(factory,
		cfg.Google.PrimaryBusinessID, cfg.Google.PrimaryCalendarID, cfg.Google.DefaultTimezone)

	appInstance := &app.App{
		DB:       db,
		Calendar: factory,
		Resolver: resolver,
		Notifier: gcal.NewGmailNotifier(oauthCfg, db),
		OAuth:    oauthCfg,
		Cfg:      cfg,
		Log:      zlog,
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware(zlog))
	router.Use(metrics.Middleware())

	router.GET("/healthz", appInstance.HealthzHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// OAuth2 callback (must be before auth middleware)
	router.GET("/oauth2callback", appInstance.GoogleOAuth2CallbackHandler)

	// Operator-gated: authenticated by admin secret, not a session
	router.POST("/api/calendar/tag-legacy", appInstance.TagLegacyEventsHandler)

	api := router.Group("/api")
	api.Use(app.AuthMiddleware(&cfg.Auth))
	{
		calendarGroup := api.Group("/calendar")
		{
			calendarGroup.GET("/auth", appInstance.GoogleAuthHandler)
			calendarGroup.GET("/events", appInstance.GetCalendarEventsHandler)
			calendarGroup.POST("/book", appInstance.BookAppointmentHandler)
		}
		api.GET("/appointments", appInstance.ListAppointmentsHandler)
	}

	server.Run(router, cfg.Server.Port)
}
