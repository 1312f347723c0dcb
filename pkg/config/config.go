package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// History source names accepted by HistoryConfig.Source.
const (
	HistorySourceSimulated = "simulated"
	HistorySourceArchive   = "archive"
)

// Config represents the ETL configuration
type Config struct {
	RPCURLs          []string         `yaml:"rpc_urls" validate:"required,min=1,dive,url"`
	RPC              RPCConfig        `yaml:"rpc"`
	Database         DatabaseConfig   `yaml:"db"`
	Vaults           []VaultConfig    `yaml:"vaults" validate:"required,min=1,dive"`
	LoadHistoryHours int              `yaml:"load_history_hours" default:"24" validate:"gte=0"`
	TimesInAnHour    int              `yaml:"times_in_a_hour" default:"4" validate:"gte=1,lte=3600"`
	History          HistoryConfig    `yaml:"history"`
	VerifyAssets     bool             `yaml:"verify_assets"`
	Schedule         string           `yaml:"schedule"`
	Monitoring       MonitoringConfig `yaml:"monitoring"`
	Logging          LoggingConfig    `yaml:"logging"`
}

// RPCConfig contains per-endpoint timeouts for the chain client
type RPCConfig struct {
	DialTimeout time.Duration `yaml:"dial_timeout" default:"10s" validate:"gt=0"`
	CallTimeout time.Duration `yaml:"call_timeout" default:"15s" validate:"gt=0"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host" default:"localhost" validate:"required"`
	Port     int    `yaml:"port" default:"5432" validate:"gt=0,lte=65535"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	Database string `yaml:"dbname" validate:"required"`
	SSLMode  string `yaml:"sslmode" default:"disable" validate:"oneof=disable require verify-ca verify-full"`
}

// VaultConfig describes one ERC-4626 vault to collect
type VaultConfig struct {
	ChainID      int64  `yaml:"chain_id" validate:"gt=0"`
	Address      string `yaml:"address" validate:"required,eth_addr"`
	Name         string `yaml:"name" validate:"required"`
	Symbol       string `yaml:"symbol" validate:"required"`
	AssetAddress string `yaml:"asset_address" validate:"omitempty,eth_addr"`
}

// HistoryConfig selects how missing history is produced
type HistoryConfig struct {
	Source    string        `yaml:"source" default:"simulated" validate:"oneof=simulated archive"`
	BlockTime time.Duration `yaml:"block_time" default:"12s" validate:"gt=0"`
}

// MonitoringConfig contains monitoring and metrics settings
type MonitoringConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Host           string `yaml:"host" default:"0.0.0.0"`
	Port           int    `yaml:"port" default:"9090"`
	PushgatewayURL string `yaml:"pushgateway_url" validate:"omitempty,url"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string   `yaml:"level" default:"info"`
	Format      string   `yaml:"format" default:"json" validate:"oneof=json console"`
	OutputPaths []string `yaml:"output_paths" default:"[\"stdout\",\"etl.log\"]"`
}

// Load reads the configuration file, expands ${ENV} references, applies defaults and validates.
func Load(configPath string) (*Config, error) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(raw))))
}

// Parse decodes a YAML (or JSON) document into a validated Config.
func Parse(data []byte) (*Config, error) {
	// defaults first so explicit zero values in the file survive
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(cfg.Vaults))
	for _, v := range cfg.Vaults {
		key := fmt.Sprintf("%d:%s", v.ChainID, strings.ToLower(v.Address))
		if _, ok := seen[key]; ok {
			return fmt.Errorf("duplicate vault %s on chain %d", v.Address, v.ChainID)
		}
		seen[key] = struct{}{}
	}
	return nil
}
