// Package config assembles the simulation settings from defaults, an
// optional YAML file, and SHOPSIM_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/talgya/shopsim/internal/agents"
	"github.com/talgya/shopsim/internal/clock"
	"github.com/talgya/shopsim/internal/economy"
	"github.com/talgya/shopsim/internal/events"
	"github.com/talgya/shopsim/internal/shop"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// LedgerConfig selects the sales ledger backend. An empty DSN disables it.
type LedgerConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Config is the root of the configuration file.
type Config struct {
	Seed int64 `yaml:"seed"`
	// Tick is the real-time interval between simulation steps.
	Tick time.Duration `yaml:"tick"`

	Clock     clock.Config         `yaml:"clock"`
	Market    economy.Config       `yaml:"market"`
	Events    events.Config        `yaml:"events"`
	Shop      shop.Config          `yaml:"shop"`
	Customers agents.SpawnerConfig `yaml:"customers"`
	Ledger    LedgerConfig         `yaml:"ledger"`
	Log       LogConfig            `yaml:"log"`

	Items   []economy.ItemSpec  `yaml:"items"`
	Catalog []events.Definition `yaml:"events_catalog"`
}

// Default returns the stock corner shop.
func Default() Config {
	return Config{
		Seed:      42,
		Tick:      100 * time.Millisecond,
		Clock:     clock.DefaultConfig(),
		Market:    economy.DefaultConfig(),
		Events:    events.DefaultConfig(),
		Shop:      shop.DefaultConfig(),
		Customers: agents.DefaultSpawnerConfig(),
		Ledger:    LedgerConfig{Driver: "sqlite", DSN: "data/shopsim.db"},
		Log:       LogConfig{Level: "info", Format: "text"},
		Items:     economy.DefaultItems(),
		Catalog:   events.DefaultCatalog(),
	}
}

// Load reads a YAML file over the defaults. Lists present in the file
// replace the default lists wholesale.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config YAML: %w", err)
	}
	return cfg, nil
}

// FromEnv loads a .env file if present, then applies SHOPSIM_* variables to cfg.
func FromEnv(cfg Config, envFile string) Config {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			slog.Debug("no env file loaded", "path", envFile, "error", err)
		}
	}

	cfg.Seed = int64(envInt("SHOPSIM_SEED", int(cfg.Seed)))
	cfg.Tick = envDuration("SHOPSIM_TICK", cfg.Tick)
	cfg.Clock.Speed = envFloat("SHOPSIM_SPEED", cfg.Clock.Speed)
	cfg.Clock.MinutesPerSecond = envFloat("SHOPSIM_MINUTES_PER_SECOND", cfg.Clock.MinutesPerSecond)
	cfg.Market.EnforcePriceControls = envBool("SHOPSIM_ENFORCE_PRICE_CONTROLS", cfg.Market.EnforcePriceControls)
	cfg.Shop.StartingMoney = envFloat("SHOPSIM_STARTING_MONEY", cfg.Shop.StartingMoney)
	cfg.Customers.MaxSimultaneous = envInt("SHOPSIM_MAX_CUSTOMERS", cfg.Customers.MaxSimultaneous)
	cfg.Ledger.Driver = envOrDefault("SHOPSIM_LEDGER_DRIVER", cfg.Ledger.Driver)
	cfg.Ledger.DSN = envOrDefault("SHOPSIM_LEDGER_DSN", cfg.Ledger.DSN)
	if v, ok := os.LookupEnv("SHOPSIM_LEDGER_DISABLED"); ok && v == "true" {
		cfg.Ledger.DSN = ""
	}
	cfg.Log.Level = envOrDefault("SHOPSIM_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOrDefault("SHOPSIM_LOG_FORMAT", cfg.Log.Format)
	return cfg
}

// Validate checks ranges across every section.
func (c Config) Validate() error {
	var problems []string
	check := func(bad bool, format string, args ...any) {
		if bad {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.Tick <= 0, "tick must be positive")
	check(c.Clock.StartDay < 1, "clock.start_day must be at least 1")
	check(c.Clock.StartHour < 0 || c.Clock.StartHour >= clock.DayEndHour, "clock.start_hour %v outside [0,24)", c.Clock.StartHour)
	check(c.Clock.MinutesPerSecond <= 0, "clock.minutes_per_second must be positive")
	check(c.Clock.Speed < clock.MinSpeed || c.Clock.Speed > clock.MaxSpeed, "clock.speed %v outside [%v,%v]", c.Clock.Speed, clock.MinSpeed, clock.MaxSpeed)

	check(c.Market.PriceElasticity <= 0, "market.price_elasticity must be positive")
	check(c.Market.DemandVolatility < 0 || c.Market.DemandVolatility >= 1, "market.demand_volatility %v outside [0,1)", c.Market.DemandVolatility)
	check(c.Market.MarketMemory < 0 || c.Market.MarketMemory > 1, "market.market_memory %v outside [0,1]", c.Market.MarketMemory)

	check(c.Events.CheckInterval <= 0, "events.check_interval must be positive")
	check(c.Events.MaxEventsPerDay < 0, "events.max_events_per_day must not be negative")

	check(c.Shop.MaxDisplaySlots < 1, "shop.max_display_slots must be at least 1")
	check(c.Shop.StartingMoney < 0, "shop.starting_money must not be negative")
	check(c.Shop.Capacity < 1, "shop.capacity must be at least 1")
	check(c.Shop.StartingReputation < 0 || c.Shop.StartingReputation > 100, "shop.starting_reputation %v outside [0,100]", c.Shop.StartingReputation)
	check(c.Shop.ReputationDecay <= 0 || c.Shop.ReputationDecay > 1, "shop.reputation_decay %v outside (0,1]", c.Shop.ReputationDecay)

	check(c.Customers.BaseSpawnRate <= 0, "customers.base_spawn_rate must be positive")
	check(c.Customers.MaxSimultaneous < 1, "customers.max_simultaneous must be at least 1")
	check(c.Customers.TrafficJitter < 0 || c.Customers.TrafficJitter >= 1, "customers.traffic_jitter %v outside [0,1)", c.Customers.TrafficJitter)
	check(len(c.Customers.Traffic) == 0, "customers.traffic needs at least one keyframe")

	if c.Ledger.DSN != "" {
		check(c.Ledger.Driver != "sqlite" && c.Ledger.Driver != "postgres", "ledger.driver %q must be sqlite or postgres", c.Ledger.Driver)
	}
	if _, err := c.SlogLevel(); err != nil {
		problems = append(problems, err.Error())
	}
	check(c.Log.Format != "text" && c.Log.Format != "json", "log.format %q must be text or json", c.Log.Format)

	check(len(c.Items) == 0, "items must not be empty")
	for _, it := range c.Items {
		if err := it.Validate(); err != nil {
			problems = append(problems, err.Error())
		}
	}
	for _, d := range c.Catalog {
		if err := d.Validate(); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// SlogLevel parses Log.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q: %w", c.Log.Level, err)
	}
	return lvl, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("ignoring malformed env value", "key", key, "value", v)
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		slog.Warn("ignoring malformed env value", "key", key, "value", v)
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		slog.Warn("ignoring malformed env value", "key", key, "value", v)
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		slog.Warn("ignoring malformed env value", "key", key, "value", v)
	}
	return defaultVal
}
