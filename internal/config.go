package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DotEnvFile is read from the working directory by LoadConfig, if present.
const DotEnvFile = ".env"

// EnvPrefix is prepended to every environment variable read by LoadConfig.
const EnvPrefix = "PAGESIM_"

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrParsingConfig = errors.New("failed to parse configuration")
)

type LogConfig struct {
	File       string `toml:"file" env:"FILE"`
	Level      string `toml:"level" env:"LEVEL"`
	MaxSize    int    `toml:"max_size" env:"MAX_SIZE"`
	MaxAge     int    `toml:"max_age" env:"MAX_AGE"`
	MaxBackups int    `toml:"max_backups" env:"MAX_BACKUPS"`
}

// Config drives one simulator invocation: which trace to replay, the
// capacities and policies to sweep, and where results and logs go.
type Config struct {
	TraceFile   string   `toml:"trace_file" env:"TRACE_FILE"`
	MinCapacity int      `toml:"min_capacity" env:"MIN_CAPACITY"`
	MaxCapacity int      `toml:"max_capacity" env:"MAX_CAPACITY"`
	Policies    []string `toml:"policies" env:"POLICIES" envSeparator:","`
	Index       string   `toml:"index" env:"INDEX"`
	ResultsFile string   `toml:"results_file" env:"RESULTS_FILE"`
	TrendAge    float64  `toml:"trend_age" env:"TREND_AGE"`

	Log LogConfig `toml:"log" envPrefix:"LOG_"`
}

func DefaultConfig() Config {
	return Config{
		TraceFile:   "trace.txt",
		MinCapacity: 64,
		MaxCapacity: 512,
		Policies:    []string{"fifo", "lru"},
		Index:       "map",
		TrendAge:    30,
		Log: LogConfig{
			Level:      "info",
			MaxSize:    10,
			MaxAge:     7,
			MaxBackups: 1,
		},
	}
}

// LoadConfig layers configuration sources: built-in defaults, then the TOML
// file at path (skipped when path is empty), then a .env file in the working
// directory if present, then PAGESIM_* environment variables.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, errors.Join(ErrParsingConfig, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return cfg, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalidConfig, path, strings.Join(keys, ", "))
		}
	}

	if err := loadDotEnv(DotEnvFile); err != nil {
		return cfg, err
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, errors.Join(ErrParsingConfig, err)
	}

	return cfg, cfg.Validate()
}

// loadDotEnv sets variables from path. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return errors.Join(ErrParsingConfig, fmt.Errorf("%s: %w", path, err))
}

// Capacities returns MinCapacity doubling up to and including MaxCapacity.
func (c Config) Capacities() []int {
	var out []int
	for size := c.MinCapacity; size > 0 && size <= c.MaxCapacity; size *= 2 {
		out = append(out, size)
	}
	return out
}

func (c Config) Validate() error {
	if err := ValidateCapacity(c.MinCapacity); err != nil {
		return fmt.Errorf("%w: min_capacity: %w", ErrInvalidConfig, err)
	}
	if c.MaxCapacity < c.MinCapacity {
		return fmt.Errorf("%w: max_capacity %d is below min_capacity %d", ErrInvalidConfig, c.MaxCapacity, c.MinCapacity)
	}
	if len(c.Policies) == 0 {
		return fmt.Errorf("%w: no policies configured", ErrInvalidConfig)
	}
	switch c.Index {
	case "map", "critbit":
	default:
		return fmt.Errorf("%w: unknown index %q", ErrInvalidConfig, c.Index)
	}
	if c.TrendAge < 1 {
		return fmt.Errorf("%w: trend_age must be at least 1, got %v", ErrInvalidConfig, c.TrendAge)
	}
	if c.TraceFile == "" {
		return fmt.Errorf("%w: trace_file is empty", ErrInvalidConfig)
	}
	return nil
}
