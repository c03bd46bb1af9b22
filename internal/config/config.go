package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"billpay-sim/internal/models"
)

// PortalConfig is the utility-portal configuration.
type PortalConfig struct {
	Server struct {
		Port    int  `yaml:"port"`
		Verbose bool `yaml:"verbose"`
	} `yaml:"server"`

	// StandaloneMode runs the payment simulator in-process instead of
	// handing off to an external gateway.
	StandaloneMode bool `yaml:"standalone_mode"`

	Gateway struct {
		URL string `yaml:"url"`
	} `yaml:"gateway"`

	// ReturnBaseURL is the externally reachable base URL of this portal,
	// used to build per-merchant return locations for the handoff.
	ReturnBaseURL string `yaml:"return_base_url"`

	Captcha struct {
		TTL             string `yaml:"ttl"`
		CleanupInterval string `yaml:"cleanup_interval"`
	} `yaml:"captcha"`

	Payment struct {
		ProcessingDelay string `yaml:"processing_delay"`
	} `yaml:"payment"`

	Standalone struct {
		AutoVPA     string `yaml:"auto_vpa"`
		ResultDelay string `yaml:"result_delay"`
	} `yaml:"standalone"`

	Sessions struct {
		MaxAge          string `yaml:"max_age"`
		CleanupInterval string `yaml:"cleanup_interval"`
	} `yaml:"sessions"`

	Merchants []models.Merchant `yaml:"merchants"`
}

// ParsedPortalConfig contains parsed time.Duration values for easier use.
type ParsedPortalConfig struct {
	PortalConfig
	CaptchaTTL             time.Duration
	CaptchaCleanupInterval time.Duration
	ProcessingDelay        time.Duration
	StandaloneResultDelay  time.Duration
	SessionMaxAge          time.Duration
	SessionCleanupInterval time.Duration
}

// LoadPortal loads and validates the portal configuration.
func LoadPortal(path string) (*ParsedPortalConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	var cfg PortalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %v", err)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("server port must be between 1 and 65535")
	}
	if !cfg.StandaloneMode && cfg.Gateway.URL == "" {
		return nil, fmt.Errorf("gateway url is required unless standalone_mode is set")
	}
	if len(cfg.Merchants) == 0 {
		return nil, fmt.Errorf("at least one merchant must be configured")
	}
	seen := make(map[string]bool)
	for _, m := range cfg.Merchants {
		if m.Code == "" || m.DataFile == "" {
			return nil, fmt.Errorf("merchant code and data_file are required")
		}
		if seen[m.Code] {
			return nil, fmt.Errorf("duplicate merchant code %q", m.Code)
		}
		seen[m.Code] = true
	}

	parsed := &ParsedPortalConfig{PortalConfig: cfg}

	for _, d := range []struct {
		name string
		raw  string
		def  time.Duration
		dst  *time.Duration
	}{
		{"captcha.ttl", cfg.Captcha.TTL, 5 * time.Minute, &parsed.CaptchaTTL},
		{"captcha.cleanup_interval", cfg.Captcha.CleanupInterval, time.Minute, &parsed.CaptchaCleanupInterval},
		{"payment.processing_delay", cfg.Payment.ProcessingDelay, 3 * time.Second, &parsed.ProcessingDelay},
		{"standalone.result_delay", cfg.Standalone.ResultDelay, 500 * time.Millisecond, &parsed.StandaloneResultDelay},
		{"sessions.max_age", cfg.Sessions.MaxAge, 30 * time.Minute, &parsed.SessionMaxAge},
		{"sessions.cleanup_interval", cfg.Sessions.CleanupInterval, 5 * time.Minute, &parsed.SessionCleanupInterval},
	} {
		if err := parseDuration(d.name, d.raw, d.def, d.dst); err != nil {
			return nil, err
		}
	}

	return parsed, nil
}

// GatewayConfig is the upi-gateway configuration.
type GatewayConfig struct {
	Server struct {
		Port    int  `yaml:"port"`
		Verbose bool `yaml:"verbose"`
	} `yaml:"server"`

	Storage struct {
		CleanupInterval string `yaml:"cleanup_interval"`
		MaxIntentAge    string `yaml:"max_intent_age"`
	} `yaml:"storage"`

	Payment struct {
		ProcessingDelay string `yaml:"processing_delay"`
	} `yaml:"payment"`

	Return struct {
		Countdown  string `yaml:"countdown"`
		Timeout    string `yaml:"timeout"`
		MaxRetries int    `yaml:"max_retries"`
		DefaultURL string `yaml:"default_url"`
	} `yaml:"return"`
}

// ParsedGatewayConfig contains parsed time.Duration values for easier use.
type ParsedGatewayConfig struct {
	GatewayConfig
	CleanupInterval time.Duration
	MaxIntentAge    time.Duration
	ProcessingDelay time.Duration
	ReturnCountdown time.Duration
	ReturnTimeout   time.Duration
}

// LoadGateway loads and validates the gateway configuration.
func LoadGateway(path string) (*ParsedGatewayConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	var cfg GatewayConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %v", err)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("server port must be between 1 and 65535")
	}
	if cfg.Return.MaxRetries < 0 {
		return nil, fmt.Errorf("return max_retries must be non-negative")
	}

	parsed := &ParsedGatewayConfig{GatewayConfig: cfg}

	for _, d := range []struct {
		name string
		raw  string
		def  time.Duration
		dst  *time.Duration
	}{
		{"storage.cleanup_interval", cfg.Storage.CleanupInterval, time.Minute, &parsed.CleanupInterval},
		{"storage.max_intent_age", cfg.Storage.MaxIntentAge, 15 * time.Minute, &parsed.MaxIntentAge},
		{"payment.processing_delay", cfg.Payment.ProcessingDelay, 2500 * time.Millisecond, &parsed.ProcessingDelay},
		{"return.countdown", cfg.Return.Countdown, 5 * time.Second, &parsed.ReturnCountdown},
		{"return.timeout", cfg.Return.Timeout, 10 * time.Second, &parsed.ReturnTimeout},
	} {
		if err := parseDuration(d.name, d.raw, d.def, d.dst); err != nil {
			return nil, err
		}
	}

	return parsed, nil
}

func parseDuration(name, raw string, def time.Duration, dst *time.Duration) error {
	if raw == "" {
		*dst = def
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %v", name, err)
	}
	if parsed < 0 {
		return fmt.Errorf("invalid %s: must be non-negative", name)
	}
	*dst = parsed
	return nil
}
