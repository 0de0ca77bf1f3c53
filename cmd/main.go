package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bryceadler/procurehub-backend/internal/clients/mail"
	"github.com/bryceadler/procurehub-backend/internal/complock"
	"github.com/bryceadler/procurehub-backend/internal/db"
	"github.com/bryceadler/procurehub-backend/internal/handlers"
	"github.com/bryceadler/procurehub-backend/internal/logger"
	"github.com/bryceadler/procurehub-backend/internal/observability"
	"github.com/bryceadler/procurehub-backend/internal/repos"
	"github.com/bryceadler/procurehub-backend/internal/server"
	"github.com/bryceadler/procurehub-backend/internal/services"
	"github.com/bryceadler/procurehub-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	rfpRepo := repos.NewRFPRepo(thePG, log)
	vendorRepo := repos.NewVendorRepo(thePG, log)
	proposalRepo := repos.NewProposalRepo(thePG, log)
	comparisonRepo := repos.NewComparisonRepo(thePG, log)

	// Clients
	log.Info("Setting up Clients from main...")
	mailClient := mail.New(log, metrics)
	locker := complock.New(log)

	// Services
	log.Info("Setting up Services from main...")
	aiService := services.NewAIService(log, metrics)
	rfpService := services.NewRFPService(log, aiService, mailClient, rfpRepo, vendorRepo, proposalRepo)
	vendorService := services.NewVendorService(log, vendorRepo)
	ingestionService := services.NewIngestionService(log, metrics, mailClient, aiService, rfpRepo, vendorRepo, proposalRepo)
	comparisonService := services.NewComparisonService(log, metrics, aiService, locker, rfpRepo, proposalRepo, comparisonRepo)

	// Handlers
	log.Info("Setting up Handlers from main...")
	rfpHandler := handlers.NewRFPHandler(log, rfpService, comparisonService)
	vendorHandler := handlers.NewVendorHandler(log, vendorService)
	emailHandler := handlers.NewEmailHandler(log, ingestionService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		Log:           log,
		RFPHandler:    rfpHandler,
		VendorHandler: vendorHandler,
		EmailHandler:  emailHandler,
		Registry:      registry,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
