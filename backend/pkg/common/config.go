package common

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Config is the shared service configuration, loaded from the environment.
type Config struct {
	Port      string `env:"PORT, default=8080"`
	Env       string `env:"ENV, default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	JWTSecret string `env:"JWT_SECRET, default=dev-secret-change-me"`

	Fabric FabricConfig
	DB     DBConfig
}

// FabricConfig locates the gateway connection profile and client identity.
type FabricConfig struct {
	ConfigPath string `env:"FABRIC_CONFIG, default=connection-profile.yaml"`
	Channel    string `env:"FABRIC_CHANNEL, default=trustup-channel"`
	MSPID      string `env:"MSP_ID, default=TrustUpMSP"`
	CertPath   string `env:"CERT_PATH"`
	KeyPath    string `env:"KEY_PATH"`
}

type DBConfig struct {
	Host     string `env:"DB_HOST, default=localhost"`
	Port     string `env:"DB_PORT, default=5432"`
	User     string `env:"DB_USER, default=postgres"`
	Password string `env:"DB_PASSWORD, default=postgres"`
	Name     string `env:"DB_NAME, default=trustup"`
	SSLMode  string `env:"DB_SSLMODE, default=disable"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return &cfg, nil
}
