package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/appraisal-orders-api/config"
	"github.com/kendall-kelly/appraisal-orders-api/controllers"
	"github.com/kendall-kelly/appraisal-orders-api/intake"
	"github.com/kendall-kelly/appraisal-orders-api/metrics"
	"github.com/kendall-kelly/appraisal-orders-api/middleware"
	"github.com/kendall-kelly/appraisal-orders-api/models"
	"github.com/kendall-kelly/appraisal-orders-api/services"
	"github.com/kendall-kelly/appraisal-orders-api/store"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	log.Println("Starting Appraisal Orders API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := buildServer(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialise server")
	}
	defer srv.Close()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("server is running")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

// server owns every long-lived component the router serves
type server struct {
	cfg      *config.Config
	logger   *logrus.Logger
	db       *gorm.DB
	registry *metrics.Registry
	handlers *controllers.Handlers
	closers  []func() error
}

// buildServer wires the store, cache, event, storage and draft backends chosen by cfg
func buildServer(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*server, error) {
	s := &server{cfg: cfg, logger: logger, registry: metrics.NewRegistry()}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	var st store.Store
	if cfg.StoreDriver == config.StoreMemory {
		st = store.NewMemoryStore()
	} else {
		db, err := config.OpenDatabase(cfg)
		if err != nil {
			return nil, err
		}
		s.db = db
		s.closers = append(s.closers, func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
		sqlStore, err := store.NewSQLStore(db)
		if err != nil {
			return nil, err
		}
		st = sqlStore
		logger.WithField("driver", cfg.StoreDriver).Info("database migration completed successfully")
	}

	var cache services.ListCache = services.NewMemoryListCache(cfg.ListCacheTTL)
	redisClient, err := config.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		s.closers = append(s.closers, redisClient.Close)
		cache = services.NewRedisListCache(redisClient, cfg.ListCacheTTL)
	}

	var events services.EventPublisher = services.NopEventPublisher{}
	if cfg.KafkaEnabled() {
		publisher := services.NewKafkaEventPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
		s.closers = append(s.closers, publisher.Close)
		events = publisher
	}

	var storage services.FileStorage
	if cfg.S3Enabled() {
		s3, err := services.NewS3Service(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		storage = s3
	} else {
		storage = services.NewLocalFileStorage(cfg.UploadDir)
	}

	var drafts intake.DraftStore = intake.NewMemoryDraftStore()
	if cfg.DraftDir != "" {
		pebbleDrafts, err := intake.NewPebbleDraftStore(cfg.DraftDir)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pebbleDrafts.Close)
		drafts = pebbleDrafts
	}

	orders := services.NewOrderService(st, services.OrderServiceOptions{
		Cache:   cache,
		Events:  events,
		Metrics: s.registry,
		Logger:  logger,
	})
	if cfg.SeedDemoData {
		if err := services.SeedDemoData(ctx, st, orders); err != nil {
			return nil, err
		}
	}

	submit := func(ctx context.Context, o models.Order) (*models.Order, error) {
		return orders.Create(ctx, o, middleware.ActorFromContext(ctx))
	}
	manager := intake.NewManager(intake.Options{
		Drafts:           drafts,
		Templates:        orders,
		Clients:          orders,
		Duplicates:       orders,
		Submit:           submit,
		AutosaveInterval: cfg.DraftAutosaveInterval,
		DebounceDelay:    cfg.DuplicateDebounce,
		Metrics:          s.registry,
		Logger:           logger,
	})
	// unmount first so the open form's last autosave lands before the draft store closes
	s.closers = append([]func() error{func() error { manager.Close(); return nil }}, s.closers...)

	s.handlers = &controllers.Handlers{
		Orders:        orders,
		Documents:     services.NewDocumentService(st, storage, logger),
		Notifications: services.NewNotificationService(services.SettingsFromConfig(cfg), nil, s.registry, logger),
		Intake:        manager,
		QuickEntry:    intake.NewQuickEntry(drafts, submit, s.registry, logger),
		EmailIntake:   intake.NewEmailIntake(orders, submit, logger),
		UploadDir:     cfg.UploadDir,
		Logger:        logger,
	}
	ok = true
	return s, nil
}

// Close releases backends in the order they must stop
func (s *server) Close() {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			config.LogError(s.logger, "main", "Close", "failed to release backend", nil, err)
		}
	}
	s.closers = nil
}

func setupRouter(s *server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(s.logger))
	router.Use(middleware.Metrics(s.registry))
	router.Use(middleware.CORS(s.cfg))
	router.Use(middleware.Actor())

	router.GET("/metrics", gin.WrapH(s.registry.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", s.databaseStatus)
		controllers.RegisterRoutes(v1, s.handlers)
	}
	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Appraisal Orders API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func (s *server) databaseStatus(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Using in-memory store",
			"driver":  s.cfg.StoreDriver,
		})
		return
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := s.db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"driver":  s.cfg.StoreDriver,
		"tables":  tables,
	})
}
