package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Provider  ProviderConfig
	Chain     ChainConfig
	Exchange  ExchangeConfig
	Quest     QuestConfig
	Reconcile ReconcileConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// IsProduction reports whether the server runs in production mode
func (c ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode + "&prepare_threshold=0"
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	Password string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
}

// ProviderConfig holds custodial wallet provider configuration
type ProviderConfig struct {
	BaseURL          string
	APIKey           string
	WebhookSecret    string
	WalletSetID      string
	TreasuryWalletID string
	TreasuryAddress  string
	Timeout          time.Duration
}

// ChainConfig holds blockchain read configuration
type ChainConfig struct {
	RPCURL                  string
	Name                    string
	PurchaseContractAddress string
	PollInterval            time.Duration
	LookbackBlocks          uint64
}

// ExchangeConfig holds Diamond/stablecoin conversion configuration.
// The rate and minimum live here and nowhere else; usecases must not
// carry their own copies.
type ExchangeConfig struct {
	StablecoinSymbol   string
	StablecoinDecimals int32
	DiamondRate        string
	MinExchangeDiamond int64
}

// QuestConfig holds quest-progress notifier configuration
type QuestConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ReconcileConfig holds the stale-pending settlement sweep configuration
type ReconcileConfig struct {
	Interval      time.Duration
	PendingMaxAge time.Duration
	BatchSize     int
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "diamondpay"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret:       getEnv("JWT_SECRET", "change-this-in-production"),
			AccessExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRY", 24*time.Hour),
		},
		Provider: ProviderConfig{
			BaseURL:          getEnv("PROVIDER_BASE_URL", "https://api.wallet-provider.example"),
			APIKey:           getEnv("PROVIDER_API_KEY", ""),
			WebhookSecret:    getEnv("PROVIDER_WEBHOOK_SECRET", ""),
			WalletSetID:      getEnv("PROVIDER_WALLET_SET_ID", ""),
			TreasuryWalletID: getEnv("PROVIDER_TREASURY_WALLET_ID", ""),
			TreasuryAddress:  getEnv("PROVIDER_TREASURY_ADDRESS", ""),
			Timeout:          getEnvAsDuration("PROVIDER_TIMEOUT", 10*time.Second),
		},
		Chain: ChainConfig{
			RPCURL:                  getEnv("CHAIN_RPC_URL", "https://sepolia.base.org"),
			Name:                    getEnv("CHAIN_NAME", "BASE-SEPOLIA"),
			PurchaseContractAddress: getEnv("PURCHASE_CONTRACT_ADDRESS", ""),
			PollInterval:            getEnvAsDuration("CHAIN_POLL_INTERVAL", 5*time.Second),
			LookbackBlocks:          uint64(getEnvAsInt64("CHAIN_LOOKBACK_BLOCKS", 1000)),
		},
		Exchange: ExchangeConfig{
			StablecoinSymbol:   getEnv("STABLECOIN_SYMBOL", "USDC"),
			StablecoinDecimals: int32(getEnvAsInt("STABLECOIN_DECIMALS", 6)),
			DiamondRate:        getEnv("DIAMOND_EXCHANGE_RATE", "0.00008"),
			MinExchangeDiamond: getEnvAsInt64("MIN_EXCHANGE_DIAMOND", 100),
		},
		Quest: QuestConfig{
			BaseURL: getEnv("QUEST_SERVICE_URL", "http://localhost:8090"),
			Timeout: getEnvAsDuration("QUEST_TIMEOUT", 3*time.Second),
		},
		Reconcile: ReconcileConfig{
			Interval:      getEnvAsDuration("RECONCILE_INTERVAL", 5*time.Minute),
			PendingMaxAge: getEnvAsDuration("RECONCILE_PENDING_MAX_AGE", 30*time.Minute),
			BatchSize:     getEnvAsInt("RECONCILE_BATCH_SIZE", 100),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
