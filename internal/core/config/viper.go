package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	v := viper.New()

	// Set defaults matching DefaultServiceConfig
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("engine.default_autonomy_level", "advise")
	v.SetDefault("engine.max_actions_per_hour", 100)
	v.SetDefault("engine.approval_expiration_minutes", 60)
	v.SetDefault("engine.undo_window_minutes", 60)
	v.SetDefault("engine.sweep_interval", "5m")
	v.SetDefault("engine.enable_logging", false)

	// Bind environment variables with HP_ prefix
	v.SetEnvPrefix("HP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Security check: reject secrets in config files
	// Secrets must be environment-only per 12-factor principles
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &ServiceConfig{
		Host:                      v.GetString("server.host"),
		Port:                      v.GetInt("server.port"),
		RequestTimeout:            v.GetDuration("server.request_timeout"),
		DefaultAutonomyLevel:      v.GetString("engine.default_autonomy_level"),
		MaxActionsPerHour:         v.GetInt("engine.max_actions_per_hour"),
		ApprovalExpirationMinutes: v.GetInt("engine.approval_expiration_minutes"),
		UndoWindowMinutes:         v.GetInt("engine.undo_window_minutes"),
		SweepInterval:             v.GetDuration("engine.sweep_interval"),
		EnableLogging:             v.GetBool("engine.enable_logging"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range and positive policy values.
func validateConfig(cfg *ServiceConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	switch cfg.DefaultAutonomyLevel {
	case "advise", "confirm", "autonomous":
	default:
		return fmt.Errorf("default_autonomy_level must be advise, confirm, or autonomous, got %q", cfg.DefaultAutonomyLevel)
	}
	if cfg.MaxActionsPerHour <= 0 {
		return fmt.Errorf("max_actions_per_hour must be positive, got %d", cfg.MaxActionsPerHour)
	}
	if cfg.ApprovalExpirationMinutes <= 0 {
		return fmt.Errorf("approval_expiration_minutes must be positive, got %d", cfg.ApprovalExpirationMinutes)
	}
	if cfg.UndoWindowMinutes <= 0 {
		return fmt.Errorf("undo_window_minutes must be positive, got %d", cfg.UndoWindowMinutes)
	}
	if cfg.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive, got %v", cfg.SweepInterval)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor principle).
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.IsSet("hmac_secret") || v.IsSet("server.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use HP_HMAC_SECRET environment variable)")
	}
	return nil
}
