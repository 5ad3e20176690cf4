package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Rajchodisetti/allocation-engine/internal/adapters"
	"github.com/Rajchodisetti/allocation-engine/internal/domain"
	"github.com/Rajchodisetti/allocation-engine/internal/sentiment"
	"github.com/Rajchodisetti/allocation-engine/internal/storage"
	"github.com/Rajchodisetti/allocation-engine/internal/strategy"
	"github.com/Rajchodisetti/allocation-engine/internal/universe"
)

const dateLayout = "2006-01-02"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverJSONL    = "jsonl"
	DriverPostgres = "postgres"
)

// Sentiment modes.
const (
	SentimentBeta   = "beta"
	SentimentStatic = "static"
	SentimentHTTP   = "http"
)

type Run struct {
	Start       string  `yaml:"start"` // YYYY-MM-DD, empty for open
	End         string  `yaml:"end"`
	InitialCash float64 `yaml:"initial_cash"`
	DataDir     string  `yaml:"data_dir"`
	LedgerPath  string  `yaml:"ledger_path"`
	PrintDaily  bool    `yaml:"print_daily"`

	// Synthetic bars fill in for symbols with no file under DataDir.
	SyntheticSeed int64 `yaml:"synthetic_seed"`
	SyntheticDays int   `yaml:"synthetic_days"`
}

type Sentiment struct {
	Mode   string                       `yaml:"mode"` // beta | static | http
	Shapes map[string]sentiment.Shape   `yaml:"shapes"`
	Static map[string]float64           `yaml:"static"`
	HTTP   adapters.HTTPSentimentConfig `yaml:"http"`
}

type Storage struct {
	Driver        string                 `yaml:"driver"` // memory | jsonl | postgres
	OrdersPath    string                 `yaml:"orders_path"`
	TelemetryPath string                 `yaml:"telemetry_path"`
	Postgres      storage.PostgresConfig `yaml:"postgres"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

type Root struct {
	Run       Run               `yaml:"run"`
	Strategy  strategy.Params   `yaml:"strategy"`
	Universe  universe.Universe `yaml:"universe"`
	Sentiment Sentiment         `yaml:"sentiment"`
	Storage   Storage           `yaml:"storage"`
	Server    Server            `yaml:"server"`
	Log       Log               `yaml:"log"`
}

func base() Root {
	c := Root{
		Strategy: strategy.Defaults(),
		Universe: universe.Default(),
	}
	c.Storage.Postgres = storage.DefaultPostgresConfig()
	return c
}

// Default is the configuration used when no file is given, without
// environment overrides.
func Default() Root {
	c := base()
	applyDefaults(&c)
	return c
}

// Load reads a YAML file over the defaults, then applies .env and
// environment overrides. An empty path loads defaults only.
func Load(path string) (Root, error) {
	c := base()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, domain.ConfigurationError(fmt.Sprintf("parse %s: %v", path, err))
		}
	}

	// .env is optional
	_ = godotenv.Load()
	applyEnv(&c)
	applyDefaults(&c)
	return c, nil
}

func applyDefaults(c *Root) {
	if c.Run.InitialCash == 0 {
		c.Run.InitialCash = 15_000_000
	}
	if c.Run.DataDir == "" {
		c.Run.DataDir = "data/bars"
	}
	if c.Run.SyntheticSeed == 0 {
		c.Run.SyntheticSeed = 42
	}
	if c.Run.SyntheticDays == 0 {
		c.Run.SyntheticDays = 504
	}
	if c.Run.LedgerPath == "" {
		c.Run.LedgerPath = "data/ledger.json"
	}

	if c.Sentiment.Mode == "" {
		c.Sentiment.Mode = SentimentBeta
	}
	if len(c.Sentiment.Shapes) == 0 {
		c.Sentiment.Shapes = sentiment.DefaultShapes()
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverJSONL
	}
	if c.Storage.OrdersPath == "" {
		c.Storage.OrdersPath = "data/orders.jsonl"
	}
	if c.Storage.TelemetryPath == "" {
		c.Storage.TelemetryPath = "data/telemetry.jsonl"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8090"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func applyEnv(c *Root) {
	if v := os.Getenv("ALLOC_PG_DSN"); v != "" {
		c.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("ALLOC_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("ALLOC_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("ALLOC_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("ALLOC_SENTIMENT_URL"); v != "" {
		c.Sentiment.HTTP.BaseURL = v
		c.Sentiment.Mode = SentimentHTTP
	}
}

// Validate checks every section. All failures wrap domain.ErrConfiguration.
func (c Root) Validate() error {
	if err := c.Strategy.Validate(); err != nil {
		return err
	}
	if err := c.Universe.Validate(c.Strategy.Weights()); err != nil {
		return err
	}
	if c.Run.InitialCash < 0 {
		return domain.ConfigurationError("run.initial_cash must not be negative")
	}
	if c.Run.SyntheticDays < 0 {
		return domain.ConfigurationError("run.synthetic_days must not be negative")
	}
	if _, err := c.Run.Range(); err != nil {
		return err
	}

	switch c.Sentiment.Mode {
	case SentimentBeta, SentimentStatic:
	case SentimentHTTP:
		if c.Sentiment.HTTP.BaseURL == "" {
			return domain.ConfigurationError("sentiment.http.base_url is required in http mode")
		}
	default:
		return domain.ConfigurationError(fmt.Sprintf("unknown sentiment mode %q", c.Sentiment.Mode))
	}
	for sym, shape := range c.Sentiment.Shapes {
		if shape.Alpha <= 0 || shape.Beta <= 0 {
			return domain.ConfigurationError(fmt.Sprintf("sentiment shape for %s must be positive", sym))
		}
	}
	for sym, v := range c.Sentiment.Static {
		if v < 0 || v > 1 {
			return domain.ConfigurationError(fmt.Sprintf("sentiment.static score for %s must be in [0,1], got %v", sym, v))
		}
	}

	switch c.Storage.Driver {
	case DriverMemory, DriverJSONL:
	case DriverPostgres:
		if c.Storage.Postgres.DSN == "" {
			return domain.ConfigurationError("storage.postgres.dsn is required for the postgres driver")
		}
	default:
		return domain.ConfigurationError(fmt.Sprintf("unknown storage driver %q", c.Storage.Driver))
	}
	return nil
}

// Range parses the run's start and end dates.
func (r Run) Range() (adapters.DateRange, error) {
	var rng adapters.DateRange
	var err error
	if r.Start != "" {
		if rng.From, err = time.Parse(dateLayout, r.Start); err != nil {
			return rng, domain.ConfigurationError(fmt.Sprintf("run.start: %v", err))
		}
	}
	if r.End != "" {
		if rng.To, err = time.Parse(dateLayout, r.End); err != nil {
			return rng, domain.ConfigurationError(fmt.Sprintf("run.end: %v", err))
		}
	}
	if !rng.From.IsZero() && !rng.To.IsZero() && rng.To.Before(rng.From) {
		return rng, domain.ConfigurationError("run.end is before run.start")
	}
	return rng, nil
}
