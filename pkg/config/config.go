package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/authwatch/authwatch/pkg/anomaly"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig   `mapstructure:"server"`
	Redis   RedisConfig    `mapstructure:"redis"`
	Storage StorageConfig  `mapstructure:"storage"`
	Engine  anomaly.Config `mapstructure:"engine"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	SecretKey string `mapstructure:"secret_key"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TLS      bool   `mapstructure:"tls"`
}

type StorageConfig struct {
	// Backend selects the profile store: "memory" or "redis".
	Backend string `mapstructure:"backend"`
	// ProfileTTL bounds how long an idle profile is retained.
	ProfileTTL string `mapstructure:"profile_ttl"`
	// SweepInterval is how often the memory store janitor runs.
	SweepInterval string `mapstructure:"sweep_interval"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

var globalConfig Config

func Load(configPath string) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	globalConfig = Config{Engine: anomaly.DefaultConfig()}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	setDefaultValues()

	return globalConfig.Engine.Validate()
}

func setDefaultValues() {
	if globalConfig.Server.Port == 0 {
		globalConfig.Server.Port = 8087
	}
	if globalConfig.Server.Host == "" {
		globalConfig.Server.Host = "0.0.0.0"
	}
	if globalConfig.Storage.Backend == "" {
		globalConfig.Storage.Backend = "memory"
	}
	if globalConfig.Storage.ProfileTTL == "" {
		globalConfig.Storage.ProfileTTL = "24h"
	}
	if globalConfig.Storage.SweepInterval == "" {
		globalConfig.Storage.SweepInterval = "10m"
	}
	if globalConfig.Redis.Port == 0 {
		globalConfig.Redis.Port = 6379
	}
}

func GetConfig() *Config {
	return &globalConfig
}
