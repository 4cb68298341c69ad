// Package config provides configuration management for the feed workers.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Mongo    MongoConfig
	Redis    RedisConfig
	Subscan  SubscanConfig
	Telegram TelegramConfig
	Exchange ExchangeConfig
	Feed     FeedConfig
	Logging  LoggingConfig
}

// MongoConfig holds document-store configuration
type MongoConfig struct {
	URI         string
	Database    string
	Collections CollectionsConfig
}

// CollectionsConfig names the five logical collections
type CollectionsConfig struct {
	Trades     string
	Operations string
	Validators string
	Identities string
	Posted     string
}

// RedisConfig holds the optional spot-price cache configuration.
// An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether the price cache is configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// SubscanConfig holds block-explorer API configuration
type SubscanConfig struct {
	// APIKeys is the rotating key pool, parsed from a comma-separated list
	APIKeys     []string
	KeyStrategy string
	Network     string
	// TargetAddress scopes extrinsic listing; empty means chain-wide
	TargetAddress string
	// ExchangeWallets are known exchange deposit addresses used to classify transfers
	ExchangeWallets []string
	// MinStakeQuantity is the dust floor for staking operations, in AZERO
	MinStakeQuantity float64
	// MinTransferQuantity is the dust floor for transfers, in AZERO
	MinTransferQuantity float64
	PollInterval        time.Duration
}

// TelegramConfig holds chat-bot configuration
type TelegramConfig struct {
	BotToken  string
	ChannelID string
}

// ExchangeConfig holds exchange ingester configuration
type ExchangeConfig struct {
	PollInterval time.Duration
}

// FeedConfig holds feed poster configuration
type FeedConfig struct {
	// MinUSD is the USD floor below which records are not posted
	MinUSD float64
	// Lookback is how far back each poll cycle queries persisted records
	Lookback time.Duration
	// MessagePacing is the delay between consecutive channel posts
	MessagePacing time.Duration
	PollInterval  time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from a .env file (optional) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional - environment variables can be set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Mongo: MongoConfig{
			URI:      getEnv("MONGODB_URI", ""),
			Database: getEnv("MONGODB_DATABASE", ""),
			Collections: CollectionsConfig{
				Trades:     getEnv("MONGODB_COLLECTION_TRADES", "trades"),
				Operations: getEnv("MONGODB_COLLECTION_OPERATIONS", "operations"),
				Validators: getEnv("MONGODB_COLLECTION_VALIDATORS", "validators"),
				Identities: getEnv("MONGODB_COLLECTION_IDENTITIES", "identities"),
				Posted:     getEnv("MONGODB_COLLECTION_POSTED", "posted_messages"),
			},
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Subscan: SubscanConfig{
			APIKeys:             splitList(getEnv("SUBSCAN_API_KEYS", "")),
			KeyStrategy:         getEnv("SUBSCAN_KEY_STRATEGY", "random"),
			Network:             getEnv("SUBSCAN_NETWORK", "alephzero"),
			TargetAddress:       getEnv("SUBSCAN_TARGET_ADDRESS", ""),
			ExchangeWallets:     splitList(getEnv("EXCHANGE_WALLETS", "")),
			MinStakeQuantity:    getEnvAsFloat("MIN_STAKE_QUANTITY", 499.999999),
			MinTransferQuantity: getEnvAsFloat("MIN_TRANSFER_QUANTITY", 2000.001),
			PollInterval:        getEnvAsDuration("SUBSCAN_POLL_INTERVAL", 5*time.Second),
		},
		Telegram: TelegramConfig{
			BotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChannelID: getEnv("TELEGRAM_CHANNEL_ID", ""),
		},
		Exchange: ExchangeConfig{
			PollInterval: getEnvAsDuration("EXCHANGE_POLL_INTERVAL", 100*time.Millisecond),
		},
		Feed: FeedConfig{
			MinUSD:        getEnvAsFloat("FEED_MIN_USD", 1000),
			Lookback:      getEnvAsDuration("FEED_LOOKBACK", 30*time.Minute),
			MessagePacing: getEnvAsDuration("FEED_MESSAGE_PACING", 250*time.Millisecond),
			PollInterval:  getEnvAsDuration("FEED_POLL_INTERVAL", time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// ValidateMongo checks the fields every worker needs to reach the store.
func (c *Config) ValidateMongo() error {
	var missing []string
	if c.Mongo.URI == "" {
		missing = append(missing, "MONGODB_URI")
	}
	if c.Mongo.Database == "" {
		missing = append(missing, "MONGODB_DATABASE")
	}
	return missingError(missing)
}

// ValidateSubscan checks the fields the chain ingester needs.
func (c *Config) ValidateSubscan() error {
	var missing []string
	if len(c.Subscan.APIKeys) == 0 {
		missing = append(missing, "SUBSCAN_API_KEYS")
	}
	return missingError(missing)
}

// ValidateTelegram checks the fields the feed poster needs.
func (c *Config) ValidateTelegram() error {
	var missing []string
	if c.Telegram.BotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.Telegram.ChannelID == "" {
		missing = append(missing, "TELEGRAM_CHANNEL_ID")
	}
	return missingError(missing)
}

func missingError(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
