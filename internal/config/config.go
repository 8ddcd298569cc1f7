// Package config loads environment-based configuration, with optional
// .env file support for local development.
package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for docsync.
type Config struct {
	// Service flags. At least one must be true.
	EnableAPI   bool `env:"ENABLE_API" envDefault:"true"`
	EnableMCP   bool `env:"ENABLE_MCP" envDefault:"false"`
	EnableWatch bool `env:"ENABLE_WATCH" envDefault:"true"`

	// ListenAddr is the HTTP bind address for the API (and, when
	// enabled, the MCP endpoint mounted on the same server).
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// DataDir holds the document database and the sync journal.
	// Defaults to ~/.docsync when empty.
	DataDir string `env:"DATA_DIR"`

	// APIKeys guards the HTTP API when non-empty.
	// Format: "user1:ds_key1,user2:ds_key2". Empty disables auth,
	// intended for localhost-only use.
	APIKeys string `env:"API_KEYS"`

	// DocFilenamesFile optionally points to a YAML file overriding the
	// per-type filename candidate lists.
	DocFilenamesFile string `env:"DOC_FILENAMES_FILE"`

	// Environment controls log format
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing credentials to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("determining home directory: %w", err)
		}

		cfg.DataDir = filepath.Join(home, ".docsync")
	}

	// Resolve DataDir to an absolute path at startup so every derived
	// path below is absolute too.
	absDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving data dir to absolute path: %w", err)
	}

	cfg.DataDir = absDir

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !c.EnableAPI && !c.EnableMCP && !c.EnableWatch {
		return fmt.Errorf("at least one of ENABLE_API, ENABLE_MCP, or ENABLE_WATCH must be true")
	}

	if (c.EnableAPI || c.EnableMCP) && c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR is required when the HTTP server is enabled")
	}

	if _, err := c.ParseAPIKeys(); err != nil {
		return err
	}

	return nil
}

// StorePath returns the path of the SQLite document database.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "docsync.db")
}

// JournalPath returns the path of the sync journal database.
func (c *Config) JournalPath() string {
	return filepath.Join(c.DataDir, "journal.db")
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

const (
	// apiKeyPrefix marks docsync API keys, so a leaked key is
	// recognizable in scanners and logs.
	apiKeyPrefix = "ds_"

	// apiKeyMinLen is prefix plus 32 hex characters (128 bits).
	apiKeyMinLen = len(apiKeyPrefix) + 32
)

// APIKeyEntry holds a pre-configured API key and its associated user
// identity parsed from API_KEYS.
type APIKeyEntry struct {
	UserID string
	Key    string
}

// ParseAPIKeys parses the API_KEYS string.
// Format: "user1:ds_key1,user2:ds_key2"
func (c *Config) ParseAPIKeys() ([]APIKeyEntry, error) {
	if c.APIKeys == "" {
		return nil, nil
	}

	seenUsers := make(map[string]struct{})

	var entries []APIKeyEntry

	for _, pair := range strings.Split(c.APIKeys, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		idx := strings.Index(pair, ":")
		if idx < 0 {
			return nil, fmt.Errorf("invalid API key entry (missing ':')")
		}

		userID := pair[:idx]

		key := pair[idx+1:]
		if userID == "" || key == "" {
			return nil, fmt.Errorf("empty user or key in entry %d", len(entries)+1)
		}

		if !strings.HasPrefix(key, apiKeyPrefix) {
			return nil, fmt.Errorf("API key must start with %q prefix in entry %d", apiKeyPrefix, len(entries)+1)
		}

		if len(key) < apiKeyMinLen {
			return nil, fmt.Errorf("API key too short in entry %d (minimum %d characters)", len(entries)+1, apiKeyMinLen)
		}

		suffix := key[len(apiKeyPrefix):]
		if _, err := hex.DecodeString(suffix); err != nil {
			return nil, fmt.Errorf("API key contains non-hex characters after %q prefix in entry %d", apiKeyPrefix, len(entries)+1)
		}

		if _, dup := seenUsers[userID]; dup {
			return nil, fmt.Errorf("duplicate user_id %q in API_KEYS", userID)
		}

		seenUsers[userID] = struct{}{}
		entries = append(entries, APIKeyEntry{UserID: userID, Key: key})
	}

	return entries, nil
}
