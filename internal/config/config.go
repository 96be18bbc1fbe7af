package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the backsim engine.
type Config struct {
	Storage    Storage    `yaml:"storage"`
	Alpaca     Alpaca     `yaml:"alpaca"`
	Logging    Logging    `yaml:"logging"`
	Gather     Gather     `yaml:"gather"`
	Simulation Simulation `yaml:"simulation"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Gather holds parameters for the daily close gathering job.
type Gather struct {
	StartDate       string `yaml:"start_date"`
	EndDate         string `yaml:"end_date"`
	BatchSize       int    `yaml:"batch_size"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	MaxAttempts     int    `yaml:"max_attempts"`
}

// Simulation defines the account, strategy, and date range of a backtest run.
type Simulation struct {
	SeedCapital float64      `yaml:"seed_capital"`
	StartDate   string       `yaml:"start_date"`
	EndDate     string       `yaml:"end_date"`
	Strategy    string       `yaml:"strategy"` // "progressive" or "compound"
	TaxRate     float64      `yaml:"tax_rate"`
	Commission  Commission   `yaml:"commission"`
	Progressive Progressive  `yaml:"progressive"`
	Compound    Compound     `yaml:"compound"`
	Instruments []Instrument `yaml:"instruments"`
}

// Commission selects and parameterises the commission model.
type Commission struct {
	Kind        string  `yaml:"kind"` // "free" or "fixed-plus-variable"
	Fixed       float64 `yaml:"fixed"`
	Rate        float64 `yaml:"rate"`
	MinVariable float64 `yaml:"min_variable"`
	MaxVariable float64 `yaml:"max_variable"`
}

// Trigger selects and parameterises one trigger of the progressive strategy.
type Trigger struct {
	Kind          string  `yaml:"kind"` // declining-streak, rising-streak, wait-days, below-maximum, always, never
	Days          int     `yaml:"days"`
	MinPercentage float64 `yaml:"min_percentage"`
}

// Progressive holds the parameters of the single-instrument strategy.
type Progressive struct {
	ISIN         string  `yaml:"isin"`
	BuyTrigger   Trigger `yaml:"buy_trigger"`
	SellTrigger  Trigger `yaml:"sell_trigger"`
	ResetTrigger Trigger `yaml:"reset_trigger"`
}

// Compound holds the parameters of the scoring-based portfolio strategy.
type Compound struct {
	BuyScorer            string  `yaml:"buy_scorer"`  // "below-maximum"
	SellScorer           string  `yaml:"sell_scorer"` // "rising-streak"
	MinBuyScore          float64 `yaml:"min_buy_score"`
	MinSellScore         float64 `yaml:"min_sell_score"`
	MaxPercentagePerISIN float64 `yaml:"max_percentage_per_isin"`
}

// Instrument maps an exchange ticker symbol to an ISIN.
type Instrument struct {
	Symbol string `yaml:"symbol"`
	ISIN   string `yaml:"isin"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
