package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"billpay-sim/internal/config"
	"billpay-sim/internal/portal"
	"billpay-sim/internal/services"
)

func main() {
	configPath := flag.String("config", "utility.yaml", "path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadPortal(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize the transfer channel based on configuration (factory pattern)
	channel := services.CreateChannel(cfg)

	if cfg.Server.Verbose {
		if cfg.StandaloneMode {
			log.Printf("Initialized MOCK gateway channel for standalone mode")
		} else {
			log.Printf("Initialized REAL gateway channel for online mode")
		}
	}

	// Wire the portal core
	p, err := portal.New(cfg, channel)
	if err != nil {
		log.Fatalf("Failed to initialize portal: %v", err)
	}

	// Initialize handlers
	handler := portal.NewHandler(p, cfg.Server.Verbose)

	// Set up Gin router with logging based on verbose config
	var router *gin.Engine
	if cfg.Server.Verbose {
		gin.SetMode(gin.DebugMode)
		router = gin.Default()
		log.Printf("Verbose mode enabled - HTTP requests will be logged")
	} else {
		gin.SetMode(gin.ReleaseMode)
		router = gin.New()
		router.Use(gin.Recovery())
	}

	// Define routes
	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/merchants", handler.GetMerchants)
		apiGroup.GET("/captcha", handler.GetCaptcha)

		merchant := apiGroup.Group("/:merchant")
		{
			merchant.GET("/sections", handler.GetSections)
			merchant.POST("/bill", handler.PostBill)
			merchant.POST("/pay", handler.PostPay)
			merchant.POST("/checkout", handler.PostCheckout)
			merchant.GET("/return", handler.GetReturn)
			merchant.POST("/return", handler.PostReturn)
		}
	}

	// Health check
	router.GET("/health", handler.HealthCheck)

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting utility portal on port %d", cfg.Server.Port)

	if cfg.StandaloneMode {
		log.Printf("Running in STANDALONE mode - no external gateway required")
	} else {
		log.Printf("Running in ONLINE mode - handing off to gateway")
		log.Printf("  UPI Gateway: %s", cfg.Gateway.URL)
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
