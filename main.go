package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Aashish23092/payslip-verification/config"
	"github.com/Aashish23092/payslip-verification/handler"
	"github.com/Aashish23092/payslip-verification/logger"
	"github.com/Aashish23092/payslip-verification/metrics"
	"github.com/Aashish23092/payslip-verification/service"
)

func main() {
	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zlog := logger.Get()

	m := metrics.New(prometheus.DefaultRegisterer)

	// Initialize service layer
	verificationService, err := service.NewVerificationService(cfg, zlog, m)
	if err != nil {
		logger.Fatal("Failed to initialize verification service", zap.Error(err))
	}

	// Initialize handler layer
	verificationHandler := handler.NewVerificationHandler(verificationService, zlog, cfg.Server.MaxBatchDocuments)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		handler.RequestID(),
		handler.Recovery(zlog),
		handler.Metrics(m),
		handler.RequestLogger(zlog),
	)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "Payslip Verification",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	verificationHandler.RegisterRoutes(router)

	// Start server
	logger.Info("Starting Payslip Verification Service",
		zap.String("port", cfg.Server.Port),
		zap.String("environment", cfg.Server.Environment),
		zap.Int("workers", cfg.Processing.Workers),
	)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}
