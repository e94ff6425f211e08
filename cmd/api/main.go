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

	"maize-resilience-api/config"
	"maize-resilience-api/handlers"
	"maize-resilience-api/metrics"
	"maize-resilience-api/middleware"
	"maize-resilience-api/model"
	"maize-resilience-api/models"
	"maize-resilience-api/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql db handle: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}
	if err := db.AutoMigrate(&models.PredictionRecord{}, &models.ModelVersion{}, &models.User{}); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}
	log.Printf("database connected")

	cache, err := services.NewCacheService(cfg.Redis)
	if err != nil {
		// The cache degrades to a no-op; predictions still serve.
		log.Printf("redis unavailable, running without cache: %v", err)
	}
	defer cache.Close()

	authService := services.NewAuthService(cfg.JWT)
	seedOperator(db, authService)

	m := model.NewResilienceModel(model.ForestParams{
		NEstimators:    cfg.Model.NEstimators,
		MaxDepth:       cfg.Model.MaxDepth,
		MinSamplesLeaf: cfg.Model.MinSamplesLeaf,
		Seed:           cfg.Model.Seed,
	}, cfg.Model.BenchmarkYield)
	if _, statErr := os.Stat(cfg.Model.ArtifactPath); statErr == nil {
		if err := m.Load(cfg.Model.ArtifactPath); err != nil {
			log.Printf("failed to load model artifact: %v", err)
		}
	} else {
		log.Printf("no model artifact at %s, serving untrained until an operator trains", cfg.Model.ArtifactPath)
	}
	shared := model.NewShared(m)

	collector := metrics.NewCollector()
	store := services.NewPredictionStore(db, cache)
	defer store.Close()

	router := setupRouter(cfg, db, cache, shared, collector, store, authService)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func setupRouter(
	cfg *config.Config,
	db *gorm.DB,
	cache *services.CacheService,
	shared *model.Shared,
	collector *metrics.Collector,
	store *services.PredictionStore,
	authService *services.AuthService,
) *gin.Engine {
	router := gin.Default()
	router.Use(middleware.SetupCORS(cfg.CORS))

	meta := handlers.NewMetaHandler(shared, collector, cache, db, cfg.Counties, cfg.Model.Version)
	pred := handlers.NewPredictionHandler(shared, collector, store, cfg.Model.Version)
	modelH := handlers.NewModelHandler(shared, cache, cfg.Model.Version)
	auth := handlers.NewAuthHandler(db, authService)
	admin := handlers.NewAdminHandler(shared, collector, cache, db, cfg.Model)

	router.GET("/", meta.Root)
	router.GET("/health", meta.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws/live", handlers.LiveWebSocket(cache, authService))

	api := router.Group("/api")
	api.GET("/counties", meta.Counties)
	api.POST("/predict", pred.Predict)
	api.POST("/predict/batch", pred.PredictBatch)
	api.GET("/model/status", modelH.Status)
	api.GET("/model/feature-importance", modelH.FeatureImportance)
	api.GET("/metrics", meta.Metrics)
	api.POST("/auth/login", auth.Login)

	adminGroup := api.Group("/admin", middleware.RequireOperator(authService))
	adminGroup.POST("/model/train", admin.TrainModel)
	adminGroup.POST("/metrics/reset", admin.ResetMetrics)

	return router
}

// seedOperator creates the operator account named by ADMIN_EMAIL and
// ADMIN_PASSWORD when it does not exist yet.
func seedOperator(db *gorm.DB, authService *services.AuthService) {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}

	var count int64
	db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return
	}

	hash, err := authService.HashPassword(password)
	if err != nil {
		log.Printf("failed to hash operator password: %v", err)
		return
	}
	if err := db.Create(&models.User{Email: email, Password: hash, Role: "operator"}).Error; err != nil {
		log.Printf("failed to seed operator account: %v", err)
		return
	}
	log.Printf("seeded operator account %s", email)
}
