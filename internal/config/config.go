package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const configPathEnv = "OASIS_CONFIG"

// Config holds application configuration
type Config struct {
	Port          string `yaml:"port"`
	DBConn        string `yaml:"db_conn"`
	LogLevel      string `yaml:"log_level"`
	JWTSecret     string `yaml:"-"`
	HMACSecret    string `yaml:"-"`
	EncryptionKey string `yaml:"-"`
	RedisAddr     string `yaml:"redis_addr"`

	ForecastDays       int    `yaml:"forecast_days"`
	AlertWithinDays    int    `yaml:"alert_within_days"`
	CrisisScanSchedule string `yaml:"crisis_scan_schedule"`
	PovertyFeedURL     string `yaml:"poverty_feed_url"`

	LLM       LLMConfig       `yaml:"llm"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Directory DirectoryConfig `yaml:"directory"`
}

// LLMConfig defines how to reach the OpenAI-compatible chat completions API.
type LLMConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"-"`
}

// SMTPConfig holds outgoing mail settings.
type SMTPConfig struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"-"`
	SenderEmail string `yaml:"sender_email"`
}

// DirectoryConfig points at a community resource directory page and the CSS
// selectors used to read its listings.
type DirectoryConfig struct {
	URL              string `yaml:"url"`
	ItemSelector     string `yaml:"item_selector"`
	NameSelector     string `yaml:"name_selector"`
	CategorySelector string `yaml:"category_selector"`
	AddressSelector  string `yaml:"address_selector"`
	PhoneSelector    string `yaml:"phone_selector"`
}

// NewConfig loads configuration from an optional YAML file and environment
// variables. Environment wins.
func NewConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HMACSecret == "" {
		return nil, fmt.Errorf("HMAC_SECRET is required")
	}
	if _, err := cfg.EncryptionKeyBytes(); err != nil {
		return nil, err
	}
	if cfg.ForecastDays < 1 || cfg.ForecastDays > MaxForecastDays {
		return nil, fmt.Errorf("FORECAST_DAYS must be between 1 and %d, got %d", MaxForecastDays, cfg.ForecastDays)
	}

	return cfg, nil
}

// MaxForecastDays bounds the forecast horizon a client may request.
const MaxForecastDays = 90

// EncryptionKeyBytes decodes the hex encryption key into an AES key.
func (c *Config) EncryptionKeyBytes() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	key, err := hex.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be hex: %w", err)
	}
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must decode to 16, 24, or 32 bytes, got %d", len(key))
	}
	return key, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.DBConn = getEnv("DB_CONN", c.DBConn)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.HMACSecret = getEnv("HMAC_SECRET", c.HMACSecret)
	c.EncryptionKey = getEnv("ENCRYPTION_KEY", c.EncryptionKey)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.ForecastDays = getEnvInt("FORECAST_DAYS", c.ForecastDays)
	c.AlertWithinDays = getEnvInt("ALERT_WITHIN_DAYS", c.AlertWithinDays)
	c.CrisisScanSchedule = getEnv("CRISIS_SCAN_SCHEDULE", c.CrisisScanSchedule)
	c.PovertyFeedURL = getEnv("POVERTY_FEED_URL", c.PovertyFeedURL)

	c.LLM.Endpoint = getEnv("LLM_ENDPOINT", c.LLM.Endpoint)
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.APIKey = getEnv("LLM_API_KEY", c.LLM.APIKey)

	c.SMTP.Host = getEnv("SMTP_HOST", c.SMTP.Host)
	c.SMTP.Port = getEnv("SMTP_PORT", c.SMTP.Port)
	c.SMTP.Username = getEnv("SMTP_USERNAME", c.SMTP.Username)
	c.SMTP.Password = getEnv("SMTP_PASSWORD", c.SMTP.Password)
	c.SMTP.SenderEmail = getEnv("SENDER_EMAIL", c.SMTP.SenderEmail)

	c.Directory.URL = getEnv("RESOURCE_DIRECTORY_URL", c.Directory.URL)
}

func defaultConfig() *Config {
	return &Config{
		Port:               "8080",
		DBConn:             "host=localhost port=5432 user=oasis password=oasis dbname=oasis sslmode=disable",
		LogLevel:           "INFO",
		JWTSecret:          "secret",
		HMACSecret:         "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6",
		EncryptionKey:      "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6",
		ForecastDays:       30,
		AlertWithinDays:    7,
		CrisisScanSchedule: "0 7 * * *",
		LLM: LLMConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
		},
		SMTP: SMTPConfig{
			Port:        "587",
			SenderEmail: "alerts@oasis.local",
		},
		Directory: DirectoryConfig{
			ItemSelector:     ".resource",
			NameSelector:     ".resource-name",
			CategorySelector: ".resource-category",
			AddressSelector:  ".resource-address",
			PhoneSelector:    ".resource-phone",
		},
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultVal
	}
	return n
}
