package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"paperTradeBot/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Portfolio
	StartingCash float64 // Initial cash balance for the simulated account

	// Market Simulation
	Volatility       float64       // Baseline per-tick volatility (e.g., 0.01 for 1%)
	SpikeProbability float64       // Probability of an extra large-variance shock per tick
	SpikeScale       float64       // Scale of the shock distribution (e.g., 0.05 for 5%)
	HistoryLimit     int           // Max retained price/equity history entries per series
	TickInterval     time.Duration // Spacing between background simulation ticks
	RandomSeed       int64         // Seed for the price walk; 0 means time-seeded

	// Protective Order Defaults
	StopLoss            float64 // Stop loss percentage below entry (e.g., 0.05 for 5%)
	TakeProfit          float64 // Take profit percentage above entry (e.g., 0.10 for 10%)
	PositionSizePercent float64 // Fraction of equity committed per demo order

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Portfolio
	cfg.StartingCash, err = getEnvAsFloatRequired("STARTING_CASH", 100000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STARTING_CASH: %v", err))
	} else if cfg.StartingCash <= 0 {
		errs = append(errs, "STARTING_CASH must be positive")
	}

	// Market Simulation
	cfg.Volatility, err = getEnvAsFloatRequired("VOLATILITY", 0.01)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid VOLATILITY: %v", err))
	} else if cfg.Volatility <= 0 || cfg.Volatility >= 1.0 {
		errs = append(errs, "VOLATILITY must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.SpikeProbability, err = getEnvAsFloatRequired("SPIKE_PROBABILITY", 0.01)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SPIKE_PROBABILITY: %v", err))
	} else if cfg.SpikeProbability < 0 || cfg.SpikeProbability > 1.0 {
		errs = append(errs, "SPIKE_PROBABILITY must be between 0.0 and 1.0")
	}

	cfg.SpikeScale, err = getEnvAsFloatRequired("SPIKE_SCALE", 0.05)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SPIKE_SCALE: %v", err))
	} else if cfg.SpikeScale < 0 {
		errs = append(errs, "SPIKE_SCALE cannot be negative")
	}

	cfg.HistoryLimit, err = getEnvAsIntRequired("HISTORY_LIMIT", 1000)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid HISTORY_LIMIT: %v", err))
	} else if cfg.HistoryLimit <= 0 {
		errs = append(errs, "HISTORY_LIMIT must be positive")
	}

	tickIntervalMs := getEnvAsInt("TICK_INTERVAL_MS", 1000)
	if tickIntervalMs <= 0 {
		errs = append(errs, "TICK_INTERVAL_MS must be positive")
	}
	cfg.TickInterval = time.Duration(tickIntervalMs) * time.Millisecond

	seed, err := getEnvAsIntRequired("RANDOM_SEED", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RANDOM_SEED: %v", err))
	}
	cfg.RandomSeed = int64(seed)

	// Protective Order Defaults
	cfg.StopLoss, err = getEnvAsFloatRequired("STOP_LOSS", 0.05)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STOP_LOSS: %v", err))
	} else if cfg.StopLoss <= 0 || cfg.StopLoss >= 1.0 {
		errs = append(errs, "STOP_LOSS must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.TakeProfit, err = getEnvAsFloatRequired("TAKE_PROFIT", 0.10)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TAKE_PROFIT: %v", err))
	} else if cfg.TakeProfit <= 0 {
		errs = append(errs, "TAKE_PROFIT must be positive")
	}

	cfg.PositionSizePercent, err = getEnvAsFloatRequired("POSITION_SIZE_PERCENT", 0.1)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid POSITION_SIZE_PERCENT: %v", err))
	} else if cfg.PositionSizePercent <= 0 || cfg.PositionSizePercent > 1.0 {
		errs = append(errs, "POSITION_SIZE_PERCENT must be between 0.0 (exclusive) and 1.0")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/paper_trading.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}
