package services

import (
	"billpay-sim/internal/config"
	"billpay-sim/internal/handoff"
	"billpay-sim/internal/services/mock"
	"billpay-sim/internal/services/real"
)

// CreateChannel creates the appropriate transfer channel based on
// configuration: an in-process simulated gateway in standalone mode, an
// HTTP client to the upi-gateway service otherwise.
func CreateChannel(cfg *config.ParsedPortalConfig) handoff.TransferChannel {
	if cfg.StandaloneMode {
		autoVPA := cfg.Standalone.AutoVPA
		if autoVPA == "" {
			autoVPA = "success@upi"
		}
		return mock.NewMockGateway(autoVPA, cfg.StandaloneResultDelay, cfg.Server.Verbose)
	}
	return real.NewRealGateway(cfg.Gateway.URL, cfg.Server.Verbose)
}
