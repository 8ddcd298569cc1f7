package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearConfigEnv unsets all config env vars so tests start clean.
func clearConfigEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"ENABLE_API",
		"ENABLE_MCP",
		"ENABLE_WATCH",
		"LISTEN_ADDR",
		"DATA_DIR",
		"API_KEYS",
		"DOC_FILENAMES_FILE",
		"ENVIRONMENT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func validKey() string {
	return apiKeyPrefix + strings.Repeat("ab", 16)
}

func TestLoad_Defaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.EnableAPI)
	assert.False(t, cfg.EnableMCP)
	assert.True(t, cfg.EnableWatch)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "development", cfg.Environment)
	assert.Empty(t, cfg.APIKeys)
}

func TestLoad_DefaultDataDirIsUnderHome(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".docsync"), cfg.DataDir)
}

func TestLoad_ResolvesRelativeDataDir(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DATA_DIR", "relative/data")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(cfg.DataDir), "DataDir should be absolute, got: %s", cfg.DataDir)
	assert.Contains(t, cfg.DataDir, filepath.Join("relative", "data"))
}

func TestLoad_AllServicesDisabled(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("ENABLE_API", "false")
	t.Setenv("ENABLE_MCP", "false")
	t.Setenv("ENABLE_WATCH", "false")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one")
}

func TestLoad_WatchOnlyNeedsNoListenAddr(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("ENABLE_API", "false")
	t.Setenv("ENABLE_WATCH", "true")
	t.Setenv("LISTEN_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.EnableAPI)
	assert.True(t, cfg.EnableWatch)
}

func TestLoad_InvalidAPIKeysRejected(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("API_KEYS", "alex:wrong_prefix_key_0123456789abcdef")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prefix")
}

func TestLoad_CustomEnvironment(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.True(t, cfg.IsProduction())
}

func TestDerivedPaths(t *testing.T) {
	cfg := &Config{DataDir: "/var/lib/docsync"}
	assert.Equal(t, filepath.Join("/var/lib/docsync", "docsync.db"), cfg.StorePath())
	assert.Equal(t, filepath.Join("/var/lib/docsync", "journal.db"), cfg.JournalPath())
}

func TestIsProduction_False(t *testing.T) {
	cfg := &Config{Environment: "development"}
	assert.False(t, cfg.IsProduction())
}

// --- ParseAPIKeys ---

func TestParseAPIKeys_Valid(t *testing.T) {
	cfg := &Config{APIKeys: "alex:" + validKey() + ",bob:" + apiKeyPrefix + strings.Repeat("cd", 16)}
	entries, err := cfg.ParseAPIKeys()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alex", entries[0].UserID)
	assert.Equal(t, validKey(), entries[0].Key)
	assert.Equal(t, "bob", entries[1].UserID)
}

func TestParseAPIKeys_Empty(t *testing.T) {
	cfg := &Config{APIKeys: ""}
	entries, err := cfg.ParseAPIKeys()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseAPIKeys_MissingColon(t *testing.T) {
	cfg := &Config{APIKeys: "invalidentry"}
	_, err := cfg.ParseAPIKeys()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing ':'")
}

func TestParseAPIKeys_EmptyUser(t *testing.T) {
	cfg := &Config{APIKeys: ":" + validKey()}
	_, err := cfg.ParseAPIKeys()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty user")
}

func TestParseAPIKeys_TooShort(t *testing.T) {
	cfg := &Config{APIKeys: "alex:" + apiKeyPrefix + "abcd"}
	_, err := cfg.ParseAPIKeys()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}

func TestParseAPIKeys_NonHexSuffix(t *testing.T) {
	cfg := &Config{APIKeys: "alex:" + apiKeyPrefix + strings.Repeat("zz", 16)}
	_, err := cfg.ParseAPIKeys()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-hex")
}

func TestParseAPIKeys_DuplicateUser(t *testing.T) {
	cfg := &Config{APIKeys: "alex:" + validKey() + ",alex:" + apiKeyPrefix + strings.Repeat("cd", 16)}
	_, err := cfg.ParseAPIKeys()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}
