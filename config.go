package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultMaxMessages       = 500
	defaultDedupCapacity     = 200
	defaultLookback          = time.Hour
	defaultSubscriptionLimit = 100
)

type Config struct {
	Relays            []string `toml:"relays"`
	PrivateKeyFile    string   `toml:"private_key_file"`
	MaxMessages       int      `toml:"max_messages"`
	DedupCapacity     int      `toml:"dedup_capacity"`
	LookbackMinutes   int      `toml:"lookback_minutes"`
	SubscriptionLimit int      `toml:"subscription_limit"`
}

// Lookback returns the subscription look-back horizon.
func (c Config) Lookback() time.Duration {
	if c.LookbackMinutes <= 0 {
		return defaultLookback
	}
	return time.Duration(c.LookbackMinutes) * time.Minute
}

func defaultConfig() Config {
	return Config{
		Relays: []string{
			"wss://relay.damus.io",
			"wss://relay.primal.net",
			"wss://offchain.pub",
			"wss://nostr21.com",
		},
		MaxMessages:       defaultMaxMessages,
		DedupCapacity:     defaultDedupCapacity,
		SubscriptionLimit: defaultSubscriptionLimit,
	}
}

func configPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if p := os.Getenv("GEOCHAT_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "geochat", "config.toml")
}

func LoadConfig(flagPath string) (Config, error) {
	cfg := defaultConfig()

	path := configPath(flagPath)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = defaultMaxMessages
	}
	if cfg.DedupCapacity <= 0 {
		cfg.DedupCapacity = defaultDedupCapacity
	}
	if cfg.SubscriptionLimit <= 0 {
		cfg.SubscriptionLimit = defaultSubscriptionLimit
	}
	if len(cfg.Relays) == 0 {
		cfg.Relays = defaultConfig().Relays
	}

	return cfg, nil
}

// loadSecretFromFile reads an nsec or hex secret key from a file.
func loadSecretFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
