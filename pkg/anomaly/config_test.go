package anomaly_test

import (
	"testing"
	"time"

	"github.com/authwatch/authwatch/pkg/anomaly"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, anomaly.DefaultConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*anomaly.Config)
		wantErr bool
	}{
		{
			name:   "defaults",
			mutate: func(c *anomaly.Config) {},
		},
		{
			name:    "zero max score",
			mutate:  func(c *anomaly.Config) { c.MaxRiskScore = 0 },
			wantErr: true,
		},
		{
			name:    "risk threshold above max",
			mutate:  func(c *anomaly.Config) { c.RiskThreshold = c.MaxRiskScore + 1 },
			wantErr: true,
		},
		{
			name:    "warning at or above lock threshold",
			mutate:  func(c *anomaly.Config) { c.WarningThreshold = c.RiskThreshold },
			wantErr: true,
		},
		{
			name:    "negative window",
			mutate:  func(c *anomaly.Config) { c.FailedLoginWindow = -time.Minute },
			wantErr: true,
		},
		{
			name:    "zero signal threshold",
			mutate:  func(c *anomaly.Config) { c.RapidRequestThreshold = 0 },
			wantErr: true,
		},
		{
			name:    "negative penalty",
			mutate:  func(c *anomaly.Config) { c.IPChangePenalty = -1 },
			wantErr: true,
		},
		{
			name:    "decay rate above one",
			mutate:  func(c *anomaly.Config) { c.DecayFraction = 1.5 },
			wantErr: true,
		},
		{
			name:   "decay rate of exactly one",
			mutate: func(c *anomaly.Config) { c.DecayFraction = 1 },
		},
		{
			name:    "zero lock duration",
			mutate:  func(c *anomaly.Config) { c.LockDuration = 0 },
			wantErr: true,
		},
		{
			name:    "zero decay interval",
			mutate:  func(c *anomaly.Config) { c.DecayInterval = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := anomaly.DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigFromSettings(t *testing.T) {
	cfg, err := anomaly.ConfigFromSettings(map[string]interface{}{
		"risk_threshold":    float64(70),
		"lock_duration":     30 * time.Minute,
		"ip_change_penalty": float64(5),
	})
	require.NoError(t, err)

	assert.Equal(t, 70.0, cfg.RiskThreshold)
	assert.Equal(t, 30*time.Minute, cfg.LockDuration)
	assert.Equal(t, 5.0, cfg.IPChangePenalty)

	// Unset keys keep their defaults.
	assert.Equal(t, 3, cfg.FailedLoginThreshold)
	assert.Equal(t, 0.05, cfg.DecayFraction)
}

func TestConfigFromSettings_Invalid(t *testing.T) {
	_, err := anomaly.ConfigFromSettings(map[string]interface{}{
		"warning_threshold": float64(90),
	})
	assert.Error(t, err)
}
