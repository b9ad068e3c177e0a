// Package config loads the webhook's configuration with the precedence
// flags > environment variables > JSON config file > defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the webhook backend configuration.
type Config struct {
	Addr         string `json:"addr,omitempty"`
	Env          string `json:"env,omitempty"`
	WebhookToken string `json:"webhook_token,omitempty"`

	SpreadsheetID string `json:"spreadsheet_id,omitempty"`
	SheetName     string `json:"sheet_name,omitempty"`
	CalendarID    string `json:"calendar_id,omitempty"`
	Timezone      string `json:"timezone,omitempty"`

	// Service-account mode (preferred for deployments).
	GoogleClientEmail string `json:"google_client_email,omitempty"`
	GooglePrivateKey  string `json:"google_private_key,omitempty"`

	// OAuth user mode (interactive first run, token persisted).
	GoogleCredentialsPath string `json:"google_credentials_path,omitempty"`
	GoogleTokenPath       string `json:"google_token_path,omitempty"`
}

// Flags carries the command-line overrides; empty values are ignored.
type Flags struct {
	ConfigFile    string
	Addr          string
	SpreadsheetID string
	SheetName     string
	CalendarID    string
	Timezone      string
}

// UsesServiceAccount reports whether service-account credentials were
// configured. When false, the OAuth user mode settings are required.
func (c *Config) UsesServiceAccount() bool {
	return c.GoogleClientEmail != "" && c.GooglePrivateKey != ""
}

// loadFromFile loads configuration from a JSON file.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Load builds the configuration with the precedence (highest to lowest):
// command-line flags, environment variables, JSON config file, defaults.
// A .env file in the working directory is folded into the environment
// first; its absence is not an error.
func Load(flags Flags) (*Config, error) {
	_ = godotenv.Load()

	var config Config

	// Step 1: config file, if provided.
	if flags.ConfigFile != "" {
		fileConfig, err := loadFromFile(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		config = *fileConfig
	}

	// Step 2: environment variables.
	setFromEnv(&config.Addr, "APP_ADDR")
	setFromEnv(&config.Env, "APP_ENV")
	setFromEnv(&config.WebhookToken, "WEBHOOK_TOKEN")
	setFromEnv(&config.SpreadsheetID, "SPREADSHEET_ID")
	setFromEnv(&config.SheetName, "SHEET_NAME")
	setFromEnv(&config.CalendarID, "CALENDAR_ID_DEFAULT")
	setFromEnv(&config.Timezone, "CALENDAR_TZ")
	setFromEnv(&config.GoogleClientEmail, "GOOGLE_CLIENT_EMAIL")
	setFromEnv(&config.GooglePrivateKey, "GOOGLE_PRIVATE_KEY")
	setFromEnv(&config.GoogleCredentialsPath, "GOOGLE_CREDENTIALS_PATH")
	setFromEnv(&config.GoogleTokenPath, "GOOGLE_TOKEN_PATH")

	// Step 3: command-line flags (highest priority).
	setIfNotEmpty(&config.Addr, flags.Addr)
	setIfNotEmpty(&config.SpreadsheetID, flags.SpreadsheetID)
	setIfNotEmpty(&config.SheetName, flags.SheetName)
	setIfNotEmpty(&config.CalendarID, flags.CalendarID)
	setIfNotEmpty(&config.Timezone, flags.Timezone)

	// Step 4: defaults and validation.
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.Env == "" {
		config.Env = "development"
	}
	if config.SheetName == "" {
		config.SheetName = "Users"
	}
	if config.Timezone == "" {
		config.Timezone = "America/Sao_Paulo"
	}

	if config.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet_id must be provided via --spreadsheet-id flag, SPREADSHEET_ID environment variable, or config file")
	}
	if config.CalendarID == "" {
		return nil, fmt.Errorf("calendar_id must be provided via --calendar-id flag, CALENDAR_ID_DEFAULT environment variable, or config file")
	}
	if !config.UsesServiceAccount() && (config.GoogleCredentialsPath == "" || config.GoogleTokenPath == "") {
		return nil, fmt.Errorf("google credentials must be provided: either GOOGLE_CLIENT_EMAIL and GOOGLE_PRIVATE_KEY, or GOOGLE_CREDENTIALS_PATH and GOOGLE_TOKEN_PATH")
	}

	return &config, nil
}

func setFromEnv(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setIfNotEmpty(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
