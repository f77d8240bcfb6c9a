package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Matcher   MatcherConfig   `yaml:"matcher" mapstructure:"matcher"`
	Cart      CartConfig      `yaml:"cart" mapstructure:"cart"`
	Reconcile ReconcileConfig `yaml:"reconcile" mapstructure:"reconcile"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Buckets   BucketsConfig   `yaml:"buckets" mapstructure:"buckets"`
	Browser   BrowserConfig   `yaml:"browser" mapstructure:"browser"`
	Notify    NotifyConfig    `yaml:"notify" mapstructure:"notify"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-history database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CatalogConfig configures catalog source files and the disk cache.
type CatalogConfig struct {
	BonusFile     string `yaml:"bonus_file" mapstructure:"bonus_file"`
	PreviousFile  string `yaml:"previous_file" mapstructure:"previous_file"`
	CacheFile     string `yaml:"cache_file" mapstructure:"cache_file"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// MatcherConfig configures title resolution scoring. Threshold applies when
// both catalog sources contributed candidates; FallbackThreshold applies when
// only the secondary source did.
type MatcherConfig struct {
	Threshold         float64  `yaml:"threshold" mapstructure:"threshold"`
	FallbackThreshold float64  `yaml:"fallback_threshold" mapstructure:"fallback_threshold"`
	IdentifierRelax   float64  `yaml:"identifier_relax" mapstructure:"identifier_relax"`
	Stopwords         []string `yaml:"stopwords" mapstructure:"stopwords"`
}

// CartConfig configures the storefront and cart containment checks.
type CartConfig struct {
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	MinMatchLength int     `yaml:"min_match_length" mapstructure:"min_match_length"`
	MinLengthRatio float64 `yaml:"min_length_ratio" mapstructure:"min_length_ratio"`
}

// ReconcileConfig configures the convergence loop.
type ReconcileConfig struct {
	TargetMinimum float64 `yaml:"target_minimum" mapstructure:"target_minimum"`
	MaxAttempts   int     `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// AnthropicConfig holds Anthropic API settings for the recommender.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// BucketsConfig configures shopping-list generation, including the keyword
// map used to bucket products when the LLM is unavailable.
type BucketsConfig struct {
	MaxPerBucket int                 `yaml:"max_per_bucket" mapstructure:"max_per_bucket"`
	Keywords     map[string][]string `yaml:"keywords" mapstructure:"keywords"`
}

// BrowserConfig configures the browser-backed cart surface.
type BrowserConfig struct {
	Headless           bool    `yaml:"headless" mapstructure:"headless"`
	UserDataDir        string  `yaml:"user_data_dir" mapstructure:"user_data_dir"`
	NavTimeoutSecs     int     `yaml:"nav_timeout_secs" mapstructure:"nav_timeout_secs"`
	ActionsPerSecond   float64 `yaml:"actions_per_second" mapstructure:"actions_per_second"`
	LookupTimeoutMsecs int     `yaml:"lookup_timeout_msecs" mapstructure:"lookup_timeout_msecs"`
}

// NotifyConfig configures the completion email.
type NotifyConfig struct {
	SMTPHost string `yaml:"smtp_host" mapstructure:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port" mapstructure:"smtp_port"`
	From     string `yaml:"from" mapstructure:"from"`
	Password string `yaml:"password" mapstructure:"password"`
	To       string `yaml:"to" mapstructure:"to"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks that the fields required for the given command mode are
// set and within bounds. Modes: "reconcile", "buckets", "catalog".
func (c *Config) Validate(mode string) error {
	var missing []string

	check := func(ok bool, msg string) {
		if !ok {
			missing = append(missing, msg)
		}
	}

	check(c.Matcher.Threshold > 0 && c.Matcher.Threshold <= 1, "matcher.threshold must be in (0, 1]")
	check(c.Matcher.FallbackThreshold > 0 && c.Matcher.FallbackThreshold <= 1, "matcher.fallback_threshold must be in (0, 1]")
	check(c.Matcher.IdentifierRelax > 0 && c.Matcher.IdentifierRelax <= 1, "matcher.identifier_relax must be in (0, 1]")
	check(c.Cart.MinLengthRatio > 0 && c.Cart.MinLengthRatio <= 1, "cart.min_length_ratio must be in (0, 1]")

	switch mode {
	case "reconcile":
		check(c.Reconcile.TargetMinimum > 0, "reconcile.target_minimum must be > 0")
		check(c.Reconcile.MaxAttempts >= 1 && c.Reconcile.MaxAttempts <= 10, "reconcile.max_attempts must be between 1 and 10")
		check(c.Cart.BaseURL != "", "cart.base_url is required")
	case "buckets":
		check(c.Anthropic.Key != "", "anthropic.key is required")
		check(c.Buckets.MaxPerBucket >= 1, "buckets.max_per_bucket must be >= 1")
	case "catalog":
		check(c.Catalog.CacheTTLHours >= 0, "catalog.cache_ttl_hours must be >= 0")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GROCER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "grocer.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("catalog.bonus_file", "bonus_products.json")
	v.SetDefault("catalog.previous_file", "previously_bought.json")
	v.SetDefault("catalog.cache_file", "catalog_cache.json")
	v.SetDefault("catalog.cache_ttl_hours", 24)
	v.SetDefault("matcher.threshold", 0.5)
	v.SetDefault("matcher.fallback_threshold", 0.6)
	v.SetDefault("matcher.identifier_relax", 0.8)
	v.SetDefault("matcher.stopwords", []string{"ah", "x1", "x2", "x3", "x4", "1l", "2l", "300g", "500g"})
	v.SetDefault("cart.base_url", "https://www.ah.nl")
	v.SetDefault("cart.min_match_length", 5)
	v.SetDefault("cart.min_length_ratio", 0.6)
	v.SetDefault("reconcile.target_minimum", 50.0)
	v.SetDefault("reconcile.max_attempts", 3)
	v.SetDefault("anthropic.model", "claude-haiku-4-5")
	v.SetDefault("anthropic.max_tokens", 4000)
	v.SetDefault("buckets.max_per_bucket", 10)
	v.SetDefault("buckets.keywords", map[string][]string{
		"essentials": {"melk", "milk", "eieren", "eggs", "brood", "bread", "boter", "butter", "kaas"},
		"meat":       {"vlees", "kip", "chicken", "vis", "fish", "gehakt", "worst"},
		"vegetables": {"groente", "tomaat", "tomato", "ui", "onion", "wortel", "paprika", "sla"},
		"fruit":      {"fruit", "appel", "apple", "banaan", "banana", "sinaasappel", "druiven"},
		"snacks":     {"snack", "chips", "koek", "snoep", "chocolade", "noten"},
		"beverages":  {"drank", "sap", "juice", "water", "cola", "bier", "wijn"},
	})
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.nav_timeout_secs", 30)
	v.SetDefault("browser.actions_per_second", 2.0)
	v.SetDefault("browser.lookup_timeout_msecs", 1500)
	v.SetDefault("notify.smtp_port", 587)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
