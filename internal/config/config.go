// Package config defines all configuration for the quoting daemon.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via KALSHI_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DryRun  bool          `mapstructure:"dry_run"`
	Venue   VenueConfig   `mapstructure:"venue"`
	Quoting QuotingConfig `mapstructure:"quoting"`
	Risk    RiskConfig    `mapstructure:"risk"`
	API     APIConfig     `mapstructure:"api"`
	Scanner ScannerConfig `mapstructure:"scanner"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// VenueConfig holds the credentials and endpoints for the trading venue.
// PrivateKey is a PEM-encoded RSA private key used to sign every REST
// request; APIKeyID identifies the key to the venue.
type VenueConfig struct {
	APIKeyID   string `mapstructure:"api_key_id"`
	PrivateKey string `mapstructure:"private_key"`
	Demo       bool   `mapstructure:"demo"`
	BasePath   string `mapstructure:"base_path"`
	WSPath     string `mapstructure:"ws_path"`
}

// StrategyParamsConfig carries the per-variant tuning knobs. Only the
// fields relevant to the selected strategy.Name are consulted.
type StrategyParamsConfig struct {
	Gamma                  float64 `mapstructure:"gamma"`
	Sigma                  float64 `mapstructure:"sigma"`
	K                      float64 `mapstructure:"k"`
	HorizonSeconds         float64 `mapstructure:"horizon_seconds"`
	TerminalFloorSeconds   float64 `mapstructure:"terminal_floor_seconds"`
	LongshotThreshold      int     `mapstructure:"longshot_threshold"`
	NearlyCertainThreshold int     `mapstructure:"nearly_certain_threshold"`
	ZoneSizeMultiplier     float64 `mapstructure:"zone_size_multiplier"`
	LongshotExposureCap    int     `mapstructure:"longshot_exposure_cap"`
	AdverseSpreadInflation int     `mapstructure:"adverse_spread_inflation_cents"`
}

// StrategySelectConfig names which strategy variant to instantiate.
type StrategySelectConfig struct {
	Name   string                `mapstructure:"name"` // symmetric | avellaneda | optimism-tax
	Params StrategyParamsConfig  `mapstructure:"params"`
}

// QuotingConfig controls which markets are quoted and the shared sizing/
// spread/exposure bounds applied regardless of strategy variant.
type QuotingConfig struct {
	Markets               []string              `mapstructure:"markets"`
	Strategy              StrategySelectConfig  `mapstructure:"strategy"`
	SizePerSide           int                   `mapstructure:"size_per_side"`
	MinSpread             int                   `mapstructure:"min_spread"`
	MaxSpread             int                   `mapstructure:"max_spread"`
	MaxPositionPerMarket  int                   `mapstructure:"max_position_per_market"`
	DailyLossLimitCents   int                   `mapstructure:"daily_loss_limit_cents"`
	ExposureLimitContracts int                  `mapstructure:"exposure_limit_contracts"`
	RefreshInterval       time.Duration         `mapstructure:"refresh_interval"`
	StaleBookTimeout      time.Duration         `mapstructure:"stale_book_timeout"`
}

// DrawdownConfig tunes risk.DrawdownManager. All values are cents.
type DrawdownConfig struct {
	ScaleStart float64 `mapstructure:"scale_start"`
	HalfSize   float64 `mapstructure:"half_size"`
	Halt       float64 `mapstructure:"halt"`
}

// CircuitBreakerConfig tunes risk.CircuitBreaker.
type CircuitBreakerConfig struct {
	MaxConsecutiveLosses int           `mapstructure:"max_consec"`
	RapidLossWindow      time.Duration `mapstructure:"rapid_window_ms"`
	RapidLossThreshold   int           `mapstructure:"rapid_threshold"`
	Cooldown             time.Duration `mapstructure:"cooldown_ms"`
}

// AdverseConfig tunes risk.AdverseSelectionDetector.
type AdverseConfig struct {
	Window           time.Duration `mapstructure:"window_ms"`
	ConsecThreshold  int           `mapstructure:"consec_threshold"`
	PriceMoveCents   int           `mapstructure:"price_move_cents"`
	FillRateThreshold float64      `mapstructure:"fill_rate_threshold"`
	ScoreThreshold   float64       `mapstructure:"score_threshold"`
	Cooldown         time.Duration `mapstructure:"cooldown_ms"`
}

// RiskConfig sets the risk module's tunables: drawdown scaling, circuit
// breaker thresholds, adverse-selection detection, and global limits.
type RiskConfig struct {
	Drawdown       DrawdownConfig       `mapstructure:"drawdown"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Adverse        AdverseConfig        `mapstructure:"adverse"`
}

// APIConfig controls the control-plane HTTP server.
type APIConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// ScannerConfig controls the (external, best-effort) market scanner.
type ScannerConfig struct {
	Enabled         bool               `mapstructure:"enabled"`
	IntervalSeconds int                `mapstructure:"interval_s"`
	MinVolume24h    float64            `mapstructure:"min_volume_24h"`
	MinDepth        float64            `mapstructure:"min_depth"`
	MaxSpread       float64            `mapstructure:"max_spread"`
	CategoryWeights map[string]float64 `mapstructure:"category_weights"`
	AvoidCategories []string           `mapstructure:"avoid_categories"`
}

// StoreConfig sets where position data is persisted (JSON files).
// Persisting inventory across restarts is not part of the quoting
// core's invariants, but is a reasonable ambient feature of any
// deployed daemon and mirrors the book/position checkpointing used
// elsewhere in this corpus.
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("KALSHI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("KALSHI_PRIVATE_KEY"); key != "" {
		cfg.Venue.PrivateKey = key
	}
	if keyID := os.Getenv("KALSHI_API_KEY_ID"); keyID != "" {
		cfg.Venue.APIKeyID = keyID
	}
	if os.Getenv("KALSHI_DRY_RUN") == "true" || os.Getenv("KALSHI_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges. Returns the
// first violation found; startup treats any error as exit code 1.
func (c *Config) Validate() error {
	if c.Venue.APIKeyID == "" {
		return fmt.Errorf("venue.api_key_id is required (set KALSHI_API_KEY_ID)")
	}
	if c.Venue.PrivateKey == "" {
		return fmt.Errorf("venue.private_key is required (set KALSHI_PRIVATE_KEY)")
	}
	if c.Venue.BasePath == "" {
		return fmt.Errorf("venue.base_path is required")
	}
	if len(c.Quoting.Markets) == 0 {
		return fmt.Errorf("quoting.markets must list at least one ticker")
	}
	switch c.Quoting.Strategy.Name {
	case "symmetric", "avellaneda", "optimism-tax":
	default:
		return fmt.Errorf("quoting.strategy.name must be one of: symmetric, avellaneda, optimism-tax")
	}
	if c.Quoting.SizePerSide <= 0 {
		return fmt.Errorf("quoting.size_per_side must be > 0")
	}
	if c.Quoting.MaxPositionPerMarket <= 0 {
		return fmt.Errorf("quoting.max_position_per_market must be > 0")
	}
	if c.Risk.Drawdown.ScaleStart >= c.Risk.Drawdown.HalfSize || c.Risk.Drawdown.HalfSize >= c.Risk.Drawdown.Halt {
		return fmt.Errorf("risk.drawdown requires scale_start < half_size < halt")
	}
	if c.Risk.CircuitBreaker.MaxConsecutiveLosses <= 0 {
		return fmt.Errorf("risk.circuit_breaker.max_consec must be > 0")
	}
	return nil
}
