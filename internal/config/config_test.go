package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "grocer.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "bonus_products.json", cfg.Catalog.BonusFile)
	assert.Equal(t, "previously_bought.json", cfg.Catalog.PreviousFile)
	assert.Equal(t, 24, cfg.Catalog.CacheTTLHours)
	assert.InDelta(t, 0.5, cfg.Matcher.Threshold, 0.001)
	assert.InDelta(t, 0.6, cfg.Matcher.FallbackThreshold, 0.001)
	assert.InDelta(t, 0.8, cfg.Matcher.IdentifierRelax, 0.001)
	assert.Contains(t, cfg.Matcher.Stopwords, "ah")
	assert.Equal(t, "https://www.ah.nl", cfg.Cart.BaseURL)
	assert.Equal(t, 5, cfg.Cart.MinMatchLength)
	assert.InDelta(t, 0.6, cfg.Cart.MinLengthRatio, 0.001)
	assert.InDelta(t, 50.0, cfg.Reconcile.TargetMinimum, 0.001)
	assert.Equal(t, 3, cfg.Reconcile.MaxAttempts)
	assert.Equal(t, 4000, cfg.Anthropic.MaxTokens)
	assert.Equal(t, 10, cfg.Buckets.MaxPerBucket)
	assert.Contains(t, cfg.Buckets.Keywords["essentials"], "melk")
	assert.Equal(t, 30, cfg.Browser.NavTimeoutSecs)
	assert.InDelta(t, 2.0, cfg.Browser.ActionsPerSecond, 0.001)
	assert.Equal(t, 587, cfg.Notify.SMTPPort)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
  format: console
reconcile:
  target_minimum: 75.5
  max_attempts: 5
matcher:
  threshold: 0.45
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.InDelta(t, 75.5, cfg.Reconcile.TargetMinimum, 0.001)
	assert.Equal(t, 5, cfg.Reconcile.MaxAttempts)
	assert.InDelta(t, 0.45, cfg.Matcher.Threshold, 0.001)
	// Defaults still apply for unset values
	assert.InDelta(t, 0.6, cfg.Matcher.FallbackThreshold, 0.001)
	assert.Equal(t, 24, cfg.Catalog.CacheTTLHours)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
store:
  path: from-file.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("GROCER_LOG_LEVEL", "warn")
	t.Setenv("GROCER_STORE_PATH", "from-env.db")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "from-env.db", cfg.Store.Path)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("GROCER_RECONCILE_MAX_ATTEMPTS", "7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Reconcile.MaxAttempts)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Matcher.Threshold = 0.5
	cfg.Matcher.FallbackThreshold = 0.6
	cfg.Matcher.IdentifierRelax = 0.8
	cfg.Cart.BaseURL = "https://www.ah.nl"
	cfg.Cart.MinLengthRatio = 0.6
	cfg.Reconcile.TargetMinimum = 50.0
	cfg.Reconcile.MaxAttempts = 3
	cfg.Buckets.MaxPerBucket = 10
	cfg.Catalog.CacheTTLHours = 24
	return cfg
}

func TestValidateReconcile_Valid(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("reconcile"))
}

func TestValidateReconcile_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Reconcile.TargetMinimum = 0
	cfg.Cart.BaseURL = ""

	err := cfg.Validate("reconcile")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reconcile.target_minimum must be > 0")
	assert.Contains(t, err.Error(), "cart.base_url is required")
}

func TestValidateReconcile_AttemptBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Reconcile.MaxAttempts = 0
	err := cfg.Validate("reconcile")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_attempts must be between 1 and 10")

	cfg.Reconcile.MaxAttempts = 11
	err = cfg.Validate("reconcile")
	assert.Error(t, err)

	cfg.Reconcile.MaxAttempts = 10
	assert.NoError(t, cfg.Validate("reconcile"))
}

func TestValidateBuckets_RequiresKey(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("buckets")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	cfg.Anthropic.Key = "sk-ant-key"
	assert.NoError(t, cfg.Validate("buckets"))
}

func TestValidateThresholdBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Matcher.Threshold = 0
	err := cfg.Validate("reconcile")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "matcher.threshold")

	cfg.Matcher.Threshold = 1.5
	err = cfg.Validate("reconcile")
	assert.Error(t, err)

	cfg.Matcher.Threshold = 0.5
	cfg.Cart.MinLengthRatio = -0.1
	err = cfg.Validate("reconcile")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cart.min_length_ratio")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
