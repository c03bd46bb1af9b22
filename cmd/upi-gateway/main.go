package main

import (
	"flag"
	"log"

	"billpay-sim/internal/config"
	"billpay-sim/internal/gateway"
	"billpay-sim/internal/payment"
)

func main() {
	configPath := flag.String("config", "gateway.yaml", "path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadGateway(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Server.Verbose {
		log.Printf("[MAIN] UPI Gateway starting...")
		log.Printf("[MAIN] Configuration loaded from: %s", *configPath)
		log.Printf("[MAIN] Server port: %d", cfg.Server.Port)
		log.Printf("[MAIN] Processing delay: %v", cfg.ProcessingDelay)
		log.Printf("[MAIN] Return countdown: %v", cfg.ReturnCountdown)
		log.Printf("[MAIN] Cleanup interval: %v", cfg.CleanupInterval)
		log.Printf("[MAIN] Max intent age: %v", cfg.MaxIntentAge)
	}

	// Initialize storage
	storage := gateway.NewMemoryStorage(cfg.MaxIntentAge, cfg.Server.Verbose)
	storage.StartCleanupRoutine(cfg.CleanupInterval)

	// Initialize the simulator and return-transfer client
	simulator := payment.NewSimulator(cfg.ProcessingDelay, payment.GatewayMessages, cfg.Server.Verbose)
	returns := gateway.NewReturnClient(cfg.ReturnTimeout, cfg.Return.MaxRetries, cfg.Server.Verbose)

	// Initialize handlers
	handler := gateway.NewHandler(storage, simulator, returns,
		cfg.ReturnCountdown, cfg.Return.DefaultURL, cfg.Server.Verbose)

	// Initialize and start server
	srv := gateway.NewServer(handler, cfg.Server.Verbose)

	log.Printf("[MAIN] UPI Gateway ready - listening on port %d", cfg.Server.Port)
	if err := srv.Start(cfg.Server.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
