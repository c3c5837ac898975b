package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reardonm/trivia/models"
)

type Config struct {
	Port        string
	BindAddress string
	RedisHost   string
	RedisPort   string
	DataPath    string
	LogLevel    string

	RoundsPerGame int
	MinPlayers    int

	StartDelay    time.Duration
	RoundDuration time.Duration
	PollInterval  time.Duration
	InitialDelay  time.Duration
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		BindAddress:   getEnv("BIND_ADDRESS", "localhost"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		DataPath:      getEnv("DATA_PATH", "data"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		RoundsPerGame: getEnvInt("ROUNDS_PER_GAME", 10),
		MinPlayers:    getEnvInt("MIN_PLAYERS", 3),
		StartDelay:    getEnvDuration("START_DELAY", 5*time.Second),
		RoundDuration: getEnvDuration("ROUND_DURATION", 30*time.Second),
		PollInterval:  getEnvDuration("POLL_INTERVAL", time.Second),
		InitialDelay:  getEnvDuration("INITIAL_DELAY", 5*time.Second),
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.RoundsPerGame <= 0 {
		return fmt.Errorf("%w: ROUNDS_PER_GAME must be positive", models.ErrInvalidInput)
	}
	if c.MinPlayers <= 0 {
		return fmt.Errorf("%w: MIN_PLAYERS must be positive", models.ErrInvalidInput)
	}
	if c.StartDelay < 0 {
		return fmt.Errorf("%w: START_DELAY must not be negative", models.ErrInvalidInput)
	}
	if c.RoundDuration < 0 {
		return fmt.Errorf("%w: ROUND_DURATION must not be negative", models.ErrInvalidInput)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: POLL_INTERVAL must be positive", models.ErrInvalidInput)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func InitRedis(cfg *Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: "", // no password set
		DB:       0,  // use default DB
	})
}
