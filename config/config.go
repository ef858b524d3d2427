package config

import (
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Duration accepts Go duration strings ("1s", "250ms") in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type FeedConfig struct {
	Symbols        []string           `yaml:"symbols"`
	InitialPrices  map[string]float64 `yaml:"initial_prices"`
	Volatility     float64            `yaml:"volatility"`
	TickSize       float64            `yaml:"tick_size"`
	LotSize        int64              `yaml:"lot_size"`
	UpdateInterval Duration           `yaml:"update_interval"`
	Seed           int64              `yaml:"seed"`
	MarketOpen     Duration           `yaml:"market_open"`  // offset from midnight UTC
	MarketClose    Duration           `yaml:"market_close"` // offset from midnight UTC
	AlwaysOpen     bool               `yaml:"always_open"`
}

// EngineConfig uses pointer fields so an explicit zero in the file (free
// trading, never-filling limits) is distinguishable from an omitted key.
type EngineConfig struct {
	Slippage             *float64 `yaml:"slippage"`
	Commission           *float64 `yaml:"commission"`
	LimitFillProbability *float64 `yaml:"limit_fill_probability"`
	StartingCash         *float64 `yaml:"starting_cash"`
	Seed                 int64    `yaml:"seed"`
}

type BacktestConfig struct {
	PollInterval Duration `yaml:"poll_interval"`
}

type RiskConfig struct {
	Confidence float64 `yaml:"confidence"`
	Window     int     `yaml:"window"`
}

type AppConfig struct {
	ServiceName string          `yaml:"service_name"`
	Feed        *FeedConfig     `yaml:"feed"`
	Engine      *EngineConfig   `yaml:"engine"`
	Backtest    *BacktestConfig `yaml:"backtest"`
	Risk        *RiskConfig     `yaml:"risk"`
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	sugar := zap.S().With("func", "config.Load", "filePath", filePath)
	sugar.Debug("Load config...")

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}
	if err := yaml.Unmarshal(configBytes, cfg); err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}
