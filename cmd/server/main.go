package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/DoSvEinTe/proyecto-flota/internal/config"
	"github.com/DoSvEinTe/proyecto-flota/internal/database"
	"github.com/DoSvEinTe/proyecto-flota/internal/handlers"
	"github.com/DoSvEinTe/proyecto-flota/internal/services"
	"github.com/DoSvEinTe/proyecto-flota/pkg/email"
	"github.com/DoSvEinTe/proyecto-flota/pkg/jwt"
	"github.com/DoSvEinTe/proyecto-flota/pkg/pdf"
	"github.com/DoSvEinTe/proyecto-flota/pkg/routing"
	"github.com/DoSvEinTe/proyecto-flota/pkg/storage"
	"github.com/DoSvEinTe/proyecto-flota/pkg/validator"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting fleet management backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	if !cfg.IsProduction() {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Database
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err := database.Migrate(migrateCtx, db.SQL(), logger)
		cancel()
		if err != nil {
			logger.Fatalf("Failed to migrate database: %v", err)
		}
	}

	if err := validator.RegisterBindingTags(); err != nil {
		logger.Fatalf("Failed to register validation tags: %v", err)
	}

	// Repositories
	tx := database.NewTxManager(db)
	placeRepo := database.NewPlaceRepository(db)
	busRepo := database.NewBusRepository(db)
	documentRepo := database.NewVehicleDocumentRepository(db)
	driverRepo := database.NewDriverRepository(db)
	passengerRepo := database.NewPassengerRepository(db)
	tripRepo := database.NewTripRepository(db)
	costRepo := database.NewCostRecordRepository(db)
	stopRepo := database.NewFuelStopRepository(db)
	tollRepo := database.NewTollRepository(db)
	maintenanceRepo := database.NewMaintenanceRepository(db)

	// External collaborators. Disabled ones stay untyped nil so the services
	// see a nil interface.
	var distance services.DistanceCalculator
	if cfg.Routing.BaseURL != "" {
		distance = routing.NewOSRMClient(routing.OSRMConfig{
			BaseURL: cfg.Routing.BaseURL,
			Timeout: cfg.Routing.Timeout,
		})
		logger.WithField("base_url", cfg.Routing.BaseURL).Info("Distance lookup enabled")
	} else {
		logger.Warn("OSRM_BASE_URL not set, trip distances will not be computed")
	}

	var receipts services.ReceiptStorage
	if cfg.Storage.Enabled {
		uploader, err := storage.NewUploader(context.Background(), storage.S3Config{
			Bucket:           cfg.Storage.Bucket,
			Region:           cfg.Storage.Region,
			AccessKeyID:      cfg.Storage.AccessKeyID,
			SecretAccessKey:  cfg.Storage.SecretAccessKey,
			CloudFrontDomain: cfg.Storage.CloudFrontDomain,
		})
		if err != nil {
			logger.Fatalf("Failed to initialize receipt storage: %v", err)
		}
		receipts = uploader
		logger.WithField("bucket", cfg.Storage.Bucket).Info("Receipt storage enabled")
	}

	var (
		mailer    services.Mailer
		templates *email.TemplateManager
	)
	if cfg.Email.Enabled {
		sender, err := email.NewSESV2Sender(context.Background(), cfg.Email.Region, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize email sender: %v", err)
		}
		templates, err = email.NewTemplateManager()
		if err != nil {
			logger.Fatalf("Failed to load email templates: %v", err)
		}
		mailer = sender
		logger.WithField("from", cfg.Email.FromAddress).Info("Email delivery enabled")
	}

	// Services
	linking := services.NewTripLinkingService(tx, tripRepo, placeRepo, busRepo, driverRepo, distance, logger)
	engine := services.NewCostAggregationService(tx, costRepo, tripRepo, stopRepo, tollRepo, maintenanceRepo, receipts, logger)
	workflow := services.NewCostWorkflowService(tx, costRepo, tripRepo, busRepo, stopRepo, maintenanceRepo, engine, logger)
	status := services.NewTripStatusService(tx, tripRepo, logger)
	booking := services.NewTripPassengerService(tx, tripRepo, busRepo, logger)
	reports := services.NewCostReportService(services.CostReportDeps{
		Costs:       costRepo,
		Trips:       tripRepo,
		Places:      placeRepo,
		Buses:       busRepo,
		Drivers:     driverRepo,
		Stops:       stopRepo,
		Tolls:       tollRepo,
		Maintenance: maintenanceRepo,
		Passengers:  tripRepo,
		Renderer:    pdf.NewRenderer(cfg.Email.CompanyName),
		Mailer:      mailer,
		Templates:   templates,
		CompanyName: cfg.Email.CompanyName,
	}, logger)

	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpiry)

	router := &handlers.Router{
		Config:      cfg,
		JWT:         jwtService,
		DB:          db,
		Version:     version,
		Logger:      logger,
		Places:      handlers.NewPlaceHandler(placeRepo, logger),
		Buses:       handlers.NewBusHandler(busRepo, documentRepo, logger),
		Drivers:     handlers.NewDriverHandler(driverRepo, logger),
		Passengers:  handlers.NewPassengerHandler(passengerRepo, logger),
		Maintenance: handlers.NewMaintenanceHandler(maintenanceRepo, busRepo, engine, logger),
		Trips:       handlers.NewTripHandler(tripRepo, linking, status, booking, workflow, reports, logger),
		Costs:       handlers.NewCostRecordHandler(costRepo, engine, workflow, reports, cfg.Storage.MaxUploadMB, logger),
		Reports:     handlers.NewReportHandler(reports, logger),
		Admin:       handlers.NewAdminHandler(linking, status, logger),
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Engine(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Infof("Server listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
