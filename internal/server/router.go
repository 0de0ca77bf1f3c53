package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bryceadler/procurehub-backend/internal/handlers"
	"github.com/bryceadler/procurehub-backend/internal/logger"
	"github.com/bryceadler/procurehub-backend/internal/middleware"
)

type RouterConfig struct {
	Log           *logger.Logger
	RFPHandler    *handlers.RFPHandler
	VendorHandler *handlers.VendorHandler
	EmailHandler  *handlers.EmailHandler
	Registry      *prometheus.Registry
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(cfg.Log))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/health", handlers.HealthCheck)
	if cfg.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	{
		// RFP
		api.POST("/rfp/create", cfg.RFPHandler.Create)
		api.GET("/rfp/list", cfg.RFPHandler.List)
		api.GET("/rfp/:id", cfg.RFPHandler.Get)
		api.POST("/rfp/:id/send-emails", cfg.RFPHandler.SendEmails)
		api.GET("/rfp/:id/proposals", cfg.RFPHandler.Proposals)
		api.POST("/rfp/:id/compare", cfg.RFPHandler.Compare)

		// Vendors
		api.POST("/vendors", cfg.VendorHandler.Create)
		api.GET("/vendors", cfg.VendorHandler.List)
		api.GET("/vendors/:id", cfg.VendorHandler.Get)
		api.PUT("/vendors/:id", cfg.VendorHandler.Update)
		api.DELETE("/vendors/:id", cfg.VendorHandler.Delete)

		// Email intake
		api.POST("/email/ingest", cfg.EmailHandler.Ingest)
	}

	return router
}
