package anomaly

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Config holds the tunables for the anomaly engine. All values are fixed at
// construction time; out-of-range values are rejected by Validate before the
// engine starts serving traffic.
type Config struct {
	RiskThreshold    float64 `mapstructure:"risk_threshold"`
	WarningThreshold float64 `mapstructure:"warning_threshold"`
	MaxRiskScore     float64 `mapstructure:"max_risk_score"`

	RapidRequestWindow    time.Duration `mapstructure:"rapid_request_window"`
	RapidRequestThreshold int           `mapstructure:"rapid_request_threshold"`
	RapidRequestPenalty   float64       `mapstructure:"rapid_request_penalty"`

	FailedLoginWindow    time.Duration `mapstructure:"failed_login_window"`
	FailedLoginThreshold int           `mapstructure:"failed_login_threshold"`
	FailedLoginPenalty   float64       `mapstructure:"failed_login_penalty"`

	IPChangeWindow  time.Duration `mapstructure:"ip_change_window"`
	IPChangePenalty float64       `mapstructure:"ip_change_penalty"`

	// DecayFraction is the fraction of the current score removed per elapsed minute.
	DecayFraction float64 `mapstructure:"decay_rate"`

	LockDuration  time.Duration `mapstructure:"lock_duration"`
	DecayInterval time.Duration `mapstructure:"decay_interval"`
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		RiskThreshold:         80,
		WarningThreshold:      50,
		MaxRiskScore:          100,
		RapidRequestWindow:    time.Minute,
		RapidRequestThreshold: 10,
		RapidRequestPenalty:   20,
		FailedLoginWindow:     5 * time.Minute,
		FailedLoginThreshold:  3,
		FailedLoginPenalty:    10,
		IPChangeWindow:        time.Hour,
		IPChangePenalty:       15,
		DecayFraction:         0.05,
		LockDuration:          15 * time.Minute,
		DecayInterval:         time.Minute,
	}
}

// ConfigFromSettings decodes a settings map into a Config, filling unset
// fields with the defaults and validating the result.
func ConfigFromSettings(settings map[string]interface{}) (Config, error) {
	cfg := DefaultConfig()
	if err := mapstructure.Decode(settings, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first contract violation found. Construction fails
// fast on an invalid config instead of surfacing errors at runtime.
func (c Config) Validate() error {
	if c.MaxRiskScore <= 0 {
		return fmt.Errorf("max_risk_score must be positive, got %v", c.MaxRiskScore)
	}
	if c.RiskThreshold <= 0 || c.RiskThreshold > c.MaxRiskScore {
		return fmt.Errorf("risk_threshold must be in (0, %v], got %v", c.MaxRiskScore, c.RiskThreshold)
	}
	if c.WarningThreshold <= 0 || c.WarningThreshold >= c.RiskThreshold {
		return fmt.Errorf("warning_threshold must be in (0, %v), got %v", c.RiskThreshold, c.WarningThreshold)
	}
	if c.RapidRequestWindow <= 0 || c.FailedLoginWindow <= 0 || c.IPChangeWindow <= 0 {
		return fmt.Errorf("signal windows must be positive")
	}
	if c.RapidRequestThreshold <= 0 || c.FailedLoginThreshold <= 0 {
		return fmt.Errorf("signal thresholds must be positive")
	}
	if c.RapidRequestPenalty < 0 || c.FailedLoginPenalty < 0 || c.IPChangePenalty < 0 {
		return fmt.Errorf("penalties must not be negative")
	}
	if c.DecayFraction <= 0 || c.DecayFraction > 1 {
		return fmt.Errorf("decay_rate must be in (0, 1], got %v", c.DecayFraction)
	}
	if c.LockDuration <= 0 {
		return fmt.Errorf("lock_duration must be positive, got %v", c.LockDuration)
	}
	if c.DecayInterval <= 0 {
		return fmt.Errorf("decay_interval must be positive, got %v", c.DecayInterval)
	}
	return nil
}
