package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/cinevault/cinevault-api/api/swagger"
	"github.com/cinevault/cinevault-api/internal/handler"
	"github.com/cinevault/cinevault-api/internal/middleware"
	"github.com/cinevault/cinevault-api/internal/models"
	"github.com/cinevault/cinevault-api/internal/repository"
	"github.com/cinevault/cinevault-api/internal/scheduler"
	"github.com/cinevault/cinevault-api/internal/service"
	"github.com/cinevault/cinevault-api/pkg/cache"
	"github.com/cinevault/cinevault-api/pkg/config"
	"github.com/cinevault/cinevault-api/pkg/database"
	"github.com/cinevault/cinevault-api/pkg/export"
	"github.com/cinevault/cinevault-api/pkg/jobs"
	"github.com/cinevault/cinevault-api/pkg/logger"
	corsmiddleware "github.com/cinevault/cinevault-api/pkg/middleware/cors"
	reqidmiddleware "github.com/cinevault/cinevault-api/pkg/middleware/requestid"
	"github.com/cinevault/cinevault-api/pkg/storage"
)

// @title CineVault API
// @version 1.0.0
// @description Movie catalog and premium subscription backend
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	adminRepo := repository.NewAdminUserRepository(db)
	movieRepo := repository.NewMovieRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	blacklistRepo := repository.NewBlacklistRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Catalog.CacheTTL, logr)
	} else {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr)
	}

	uploads, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare upload storage", zap.Error(err))
	}
	fetcher := storage.NewRemoteFetcher(cfg.Uploads.AllowedURLHosts, cfg.Uploads.MaxFileSizeBytes, cfg.Uploads.FetchTimeout)

	// Notifications
	var dispatcher service.Dispatcher
	if cfg.FCM.Enabled && cfg.FCM.ProjectID != "" && cfg.FCM.CredentialsFile != "" {
		fcm, err := service.NewFCMDispatcher(ctx, cfg.FCM.ProjectID, cfg.FCM.CredentialsFile, cfg.FCM.RequestTimeout)
		if err != nil {
			logr.Warn("push notifications disabled", zap.Error(err))
		} else {
			dispatcher = fcm
		}
	}
	notificationSvc := service.NewNotificationService(ctx, dispatcher, userRepo, metricsSvc, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	}, logr)
	defer notificationSvc.Stop()

	// Services
	authSvc := service.NewAuthService(userRepo, adminRepo, blacklistRepo, validate, logr, service.AuthConfig{
		Secret:      cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	movieSvc := service.NewMovieService(movieRepo, uploads, fetcher, cacheSvc, notificationSvc, validate, logr, service.MovieConfig{
		PublicBaseURL: cfg.PublicBaseURL,
		MaxImageBytes: cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs:  cfg.Uploads.AllowedMIMEs,
		CacheTTL:      cfg.Catalog.CacheTTL,
	})

	var gateway service.BillingGateway
	if cfg.Stripe.SecretKey != "" {
		gateway = service.NewStripeGateway(service.StripeConfig{
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			PriceIDOneDay: cfg.Stripe.PriceIDOneDay,
			PriceIDWeek:   cfg.Stripe.PriceIDWeek,
			PriceIDMonth:  cfg.Stripe.PriceIDMonth,
			SuccessURL:    cfg.Stripe.SuccessURL,
			CancelURL:     cfg.Stripe.CancelURL,
		})
	} else {
		logr.Warn("stripe secret key missing, billing disabled")
	}
	subscriptionSvc := service.NewSubscriptionService(subscriptionRepo, userRepo, gateway, notificationSvc, validate, logr)
	reviewSvc := service.NewReviewService(reviewRepo, movieRepo, validate, logr)
	orderSvc := service.NewOrderService(orderRepo, movieRepo, validate, logr)
	exportSvc := service.NewExportService(movieRepo, userRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	// Handlers
	pageSize, maxPage := cfg.Catalog.DefaultPageSize, cfg.Catalog.MaxPageSize
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc, pageSize, maxPage)
	movieHandler := handler.NewMovieHandler(movieSvc, pageSize, maxPage)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionSvc)
	webhookHandler := handler.NewWebhookHandler(subscriptionSvc, cfg.Stripe.WebhookSecret, logr)
	reviewHandler := handler.NewReviewHandler(reviewSvc, pageSize, maxPage)
	orderHandler := handler.NewOrderHandler(orderSvc, pageSize, maxPage)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	r.Static("/uploads", cfg.Uploads.StorageDir)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/users", authHandler.Register)
	api.POST("/users/sign_in", authHandler.SignIn)
	api.POST("/admin_users/sign_in", authHandler.AdminSignIn)
	api.POST("/users/password", authHandler.ForgotPassword)
	api.PUT("/users/password", authHandler.ResetPassword)

	movies := api.Group("/movies")
	{
		optional := middleware.OptionalJWT(authSvc)
		movies.GET("", optional, movieHandler.List)
		// The shared path segment carries either a movie ID or a genre
		// name; the handler dispatches on its shape.
		movies.GET("/:id", optional, movieHandler.Show)
		movies.GET("/:id/reviews", reviewHandler.List)
		movies.POST("/:id/reviews", middleware.JWT(authSvc), reviewHandler.Create)

		staff := middleware.RequireRoles(models.RoleSupervisor, models.RoleAdmin)
		movies.POST("", middleware.JWT(authSvc), staff, movieHandler.Create)
		movies.PATCH("/:id", middleware.JWT(authSvc), staff, movieHandler.Update)
		movies.PUT("/:id", middleware.JWT(authSvc), staff, movieHandler.Update)
		movies.DELETE("/:id", middleware.JWT(authSvc), staff, movieHandler.Delete)
	}

	api.DELETE("/reviews/:id", middleware.JWT(authSvc), reviewHandler.Delete)

	subscriptions := api.Group("/subscriptions", middleware.JWT(authSvc))
	{
		subscriptions.GET("", subscriptionHandler.Status)
		subscriptions.GET("/status", subscriptionHandler.Status)
		subscriptions.POST("", subscriptionHandler.Checkout)
		subscriptions.GET("/success", subscriptionHandler.Confirm)
	}

	api.POST("/stripe/webhook", webhookHandler.Stripe)

	users := api.Group("/users", middleware.JWT(authSvc))
	{
		adminOnly := middleware.RequireRoles(models.RoleAdmin)
		users.POST("/sign_out", authHandler.SignOut)
		users.GET("", adminOnly, userHandler.List)
		users.GET("/me", userHandler.Me)
		users.PUT("/me", userHandler.UpdateProfile)
		users.PATCH("/me", userHandler.UpdateProfile)
		users.PUT("/me/device", userHandler.RegisterDevice)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), userHandler.Get)
		users.PATCH("/:id/role", adminOnly, userHandler.UpdateRole)
		users.PUT("/:id/subscription", adminOnly, subscriptionHandler.AdminUpdate)
		users.DELETE("/:id", adminOnly, userHandler.Delete)
	}

	orders := api.Group("/orders", middleware.JWT(authSvc))
	{
		orders.POST("", orderHandler.Create)
		orders.GET("", orderHandler.List)
		orders.PATCH("/:id/status", middleware.RequireRoles(models.RoleAdmin), orderHandler.UpdateStatus)
	}

	if cfg.Exports.Enabled {
		exports := api.Group("/exports", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
		exports.GET("/movies", exportHandler.Movies)
		exports.GET("/users", exportHandler.Users)
	}

	api.GET("/metrics/summary", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)

	// Background maintenance
	sched := scheduler.New(subscriptionSvc, notificationSvc, blacklistRepo, logr, scheduler.Config{
		ScanInterval:   cfg.Notifications.ExpiryScanInterval,
		ReminderWindow: cfg.Notifications.ExpiryReminderWindow,
	})
	sched.Start(ctx)
	defer sched.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
