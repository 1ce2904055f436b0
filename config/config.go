package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Fixed cache sizing. The reference deployment treats these as constants
// rather than tunables; changing them invalidates existing Redis entries'
// expectations, so they are deliberately not environment-driven.
const (
	// CacheTTL is the sliding expiration window for a conversation entry.
	// Every write resets it to the full two hours.
	CacheTTL = 2 * time.Hour

	// MaxCachedMessages bounds how many recent messages are kept per
	// conversation.
	MaxCachedMessages = 20

	// GraphAPIBaseURL is the Instagram Graph API endpoint all outbound
	// calls are made against.
	GraphAPIBaseURL = "https://graph.instagram.com/v24.0"
)

// Config holds all configuration fields for the application.
type Config struct {
	Port           string
	InstagramToken string
	VerifyToken    string
	RedisAddr      string // host:port; empty selects the in-memory store
	LogLevel       string
	LogFormat      string
}

// LoadConfig loads configuration from environment variables.
// It attempts to load a .env file if present; real environment variables
// take precedence.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		Port:           os.Getenv("PORT"),
		InstagramToken: os.Getenv("INSTAGRAM_TOKEN"),
		VerifyToken:    os.Getenv("IG_VERIFY_TOKEN"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		LogFormat:      os.Getenv("LOG_FORMAT"),
	}

	if cfg.InstagramToken == "" {
		return nil, fmt.Errorf("INSTAGRAM_TOKEN is not set")
	}

	if cfg.Port == "" {
		cfg.Port = "3001"
		log.Info().Str("port", cfg.Port).Msg("PORT not set, using default")
	}

	return cfg, nil
}
