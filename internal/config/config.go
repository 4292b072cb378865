package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config carries the full configuration surface of the mint service.
// Settlement path selection is driven by which of the settlement options are
// set: a remote mint service wins over a chain client built from config.
type Config struct {
	Port        string
	LogLevel    string
	Environment string
	CORSOrigins string

	// Optional durable stores. Empty values disable the feature.
	DatabaseURL string
	RedisURL    string

	// Reward computation.
	BaseRewardRate float64

	// Direct ledger-contract settlement.
	ChainRPCURL    string
	ChainID        int64
	SignerKey      string
	LedgerContract string
	GasLimit       uint64
	MaxGasPriceWei int64
	Confirmations  uint64

	// Remote settlement service.
	SettlementServiceURL   string
	SettlementServiceToken string

	// Wallet resolution (userId -> payout address) for the contract path.
	WalletServiceURL string

	// Liquidity side-mint.
	LiquiditySharePercent int64
	LiquidityAccount      string

	Guard GuardConfig
}

// GuardConfig holds the anti-gaming thresholds. It can be overridden from a
// YAML file pointed to by GUARD_CONFIG.
type GuardConfig struct {
	UserHourlyLimit    int      `yaml:"userHourlyLimit"`
	OriginHourlyLimit  int      `yaml:"originHourlyLimit"`
	GlobalHourlyLimit  int      `yaml:"globalHourlyLimit"`
	DuplicateThreshold float64  `yaml:"duplicateThreshold"`
	MinProofValue      float64  `yaml:"minProofValue"`
	MaxProofValue      float64  `yaml:"maxProofValue"`
	SuspiciousPatterns []string `yaml:"suspiciousPatterns"`
}

// DefaultGuardConfig returns the built-in anti-gaming thresholds.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		UserHourlyLimit:    10,
		OriginHourlyLimit:  50,
		GlobalHourlyLimit:  1000,
		DuplicateThreshold: 0.8,
		MinProofValue:      1,
		MaxProofValue:      100,
	}
}

// Load reads configuration from the environment. A .env file in the working
// directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENVIRONMENT", "development"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		BaseRewardRate: getEnvFloat("BASE_REWARD_RATE", 10),

		ChainRPCURL:    getEnv("CHAIN_RPC_URL", ""),
		ChainID:        getEnvInt("CHAIN_ID", 1),
		SignerKey:      getEnv("SIGNER_KEY", ""),
		LedgerContract: getEnv("LEDGER_CONTRACT_ADDRESS", ""),
		GasLimit:       uint64(getEnvInt("GAS_LIMIT", 0)),
		MaxGasPriceWei: getEnvInt("MAX_GAS_PRICE_WEI", 0),
		Confirmations:  uint64(getEnvInt("CONFIRMATIONS", 0)),

		SettlementServiceURL:   getEnv("SETTLEMENT_SERVICE_URL", ""),
		SettlementServiceToken: getEnv("SETTLEMENT_SERVICE_TOKEN", ""),

		WalletServiceURL: getEnv("WALLET_SERVICE_URL", ""),

		LiquiditySharePercent: getEnvInt("LIQUIDITY_SHARE_PERCENT", 0),
		LiquidityAccount:      getEnv("LIQUIDITY_ACCOUNT", ""),

		Guard: DefaultGuardConfig(),
	}

	if path := getEnv("GUARD_CONFIG", ""); path != "" {
		guard, err := loadGuardFile(path)
		if err != nil {
			return nil, fmt.Errorf("load guard config: %w", err)
		}
		cfg.Guard = guard
	}

	if cfg.LiquiditySharePercent < 0 || cfg.LiquiditySharePercent > 100 {
		return nil, fmt.Errorf("LIQUIDITY_SHARE_PERCENT must be between 0 and 100, got %d", cfg.LiquiditySharePercent)
	}
	if cfg.BaseRewardRate <= 0 {
		return nil, fmt.Errorf("BASE_REWARD_RATE must be positive, got %v", cfg.BaseRewardRate)
	}

	return cfg, nil
}

// loadGuardFile reads a GuardConfig YAML file. Fields left at zero fall back
// to the defaults so a partial override file only needs the changed values.
func loadGuardFile(path string) (GuardConfig, error) {
	guard := DefaultGuardConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return guard, err
	}
	if err := yaml.Unmarshal(data, &guard); err != nil {
		return guard, err
	}

	defaults := DefaultGuardConfig()
	if guard.UserHourlyLimit <= 0 {
		guard.UserHourlyLimit = defaults.UserHourlyLimit
	}
	if guard.OriginHourlyLimit <= 0 {
		guard.OriginHourlyLimit = defaults.OriginHourlyLimit
	}
	if guard.GlobalHourlyLimit <= 0 {
		guard.GlobalHourlyLimit = defaults.GlobalHourlyLimit
	}
	if guard.DuplicateThreshold <= 0 || guard.DuplicateThreshold > 1 {
		guard.DuplicateThreshold = defaults.DuplicateThreshold
	}
	if guard.MaxProofValue <= 0 {
		guard.MaxProofValue = defaults.MaxProofValue
	}
	if guard.MinProofValue < 0 || guard.MinProofValue > guard.MaxProofValue {
		guard.MinProofValue = defaults.MinProofValue
	}

	return guard, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
