// Package config provides a reusable loader for sotamoon-network
// configuration files and environment variables.
//
// Version: v0.1.0
package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"sotamoon-network/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for a SOTAMoon node. It
// mirrors the structure of the YAML files under cmd/config.
type Config struct {
	Network struct {
		ListenAddr     string   `mapstructure:"listen_addr" json:"listen_addr"`
		Port           int      `mapstructure:"port" json:"port"`
		DiscoveryTag   string   `mapstructure:"discovery_tag" json:"discovery_tag"`
		BootstrapPeers []string `mapstructure:"bootstrap_peers" json:"bootstrap_peers"`
		DNSSeeds       []string `mapstructure:"dns_seeds" json:"dns_seeds"`
		StaticPeers    []string `mapstructure:"static_peers" json:"static_peers"`
	} `mapstructure:"network" json:"network"`

	Mining struct {
		WalletKeystore string `mapstructure:"wallet_keystore" json:"wallet_keystore"`
		BenchmarkID    string `mapstructure:"benchmark_id" json:"benchmark_id"`
		GenerateBlocks int    `mapstructure:"generate_blocks" json:"generate_blocks"`
	} `mapstructure:"mining" json:"mining"`

	Storage struct {
		CacheDir   string `mapstructure:"cache_dir" json:"cache_dir"`
		TorrentDir string `mapstructure:"torrent_dir" json:"torrent_dir"`
	} `mapstructure:"storage" json:"storage"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
//
// The function uses the provided environment name to merge additional
// config files. If env is empty, only the default configuration is
// loaded.
func Load(env string) (*Config, error) {
	// Best-effort: a .env file is optional, and its absence is not an
	// error a node operator needs to see.
	_ = godotenv.Load()

	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, utils.Wrap(err, "load config")
		}
		// No default.yaml shipped under cmd/config or config: fall
		// through and run entirely on applyDefaults plus environment
		// variables below.
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
			}
		}
	}

	// AutomaticEnv binds real process environment variables (including
	// ones godotenv.Load just populated from .env) onto unset keys.
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	applyDefaults(&AppConfig)
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the SOTA_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("SOTA_ENV", ""))
}

// applyDefaults fills fields viper left zero-valued, matching the
// documented external interface defaults (UDP 29636, etc.).
func applyDefaults(c *Config) {
	if c.Network.Port == 0 {
		c.Network.Port = 29636
	}
	if c.Network.ListenAddr == "" {
		c.Network.ListenAddr = "0.0.0.0"
	}
	if c.Network.DiscoveryTag == "" {
		c.Network.DiscoveryTag = "_sotamoon._udp.local."
	}
	if c.Storage.CacheDir == "" {
		c.Storage.CacheDir = "cache"
	}
	if c.Storage.TorrentDir == "" {
		c.Storage.TorrentDir = "torrents"
	}
	if c.Mining.BenchmarkID == "" {
		c.Mining.BenchmarkID = "mnist"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}
