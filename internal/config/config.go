package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/freeeve/factory-arena/internal/match"
)

//go:embed config.schema.json
var schemaJSON []byte

const schemaURL = "config.schema.json"

// Config holds arena configuration. Values are layered: defaults, then the
// optional YAML file, then ARENA_* environment variables; the CLI applies its
// flags last.
type Config struct {
	Workers          int           `yaml:"workers"`
	Games            int           `yaml:"games"`
	Seed             int64         `yaml:"seed"`
	TurnLimit        int           `yaml:"turn_limit"`
	FirstTurnTimeout time.Duration `yaml:"first_turn_timeout"`
	TurnTimeout      time.Duration `yaml:"turn_timeout"`
	StopGrace        time.Duration `yaml:"stop_grace"`
	ResultsDir       string        `yaml:"results_dir"`
	SQLitePath       string        `yaml:"sqlite_path"`
	DatabaseURL      string        `yaml:"database_url"`
	RedisURL         string        `yaml:"redis_url"`
	Listen           string        `yaml:"listen"`
	JWTSecret        string        `yaml:"jwt_secret"`
	DiagDir          string        `yaml:"diag_dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	m := match.DefaultConfig()
	return &Config{
		Workers:          1,
		TurnLimit:        m.TurnLimit,
		FirstTurnTimeout: m.FirstTurnTimeout,
		TurnTimeout:      m.TurnTimeout,
		StopGrace:        m.StopGrace,
		ResultsDir:       ".",
	}
}

// Load reads .env (if present), the YAML file at path (if non-empty) and the
// environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decodeYAML(raw); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeYAML validates raw against the embedded schema and decodes it over
// the current values.
func (c *Config) decodeYAML(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	if err := validateDocument(doc); err != nil {
		return err
	}
	return yaml.Unmarshal(raw, c)
}

func validateDocument(doc any) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("load config schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	// Round-trip through JSON so the validator sees the same shapes it would
	// for a JSON document.
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config must be a mapping: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error
	if c.Workers, err = envInt("ARENA_WORKERS", c.Workers); err != nil {
		return err
	}
	if c.TurnLimit, err = envInt("ARENA_TURN_LIMIT", c.TurnLimit); err != nil {
		return err
	}
	if c.FirstTurnTimeout, err = envDuration("ARENA_FIRST_TURN_TIMEOUT", c.FirstTurnTimeout); err != nil {
		return err
	}
	if c.TurnTimeout, err = envDuration("ARENA_TURN_TIMEOUT", c.TurnTimeout); err != nil {
		return err
	}
	c.ResultsDir = envOrDefault("ARENA_RESULTS_DIR", c.ResultsDir)
	c.SQLitePath = envOrDefault("ARENA_SQLITE_PATH", c.SQLitePath)
	c.DatabaseURL = envOrDefault("DATABASE_URL", c.DatabaseURL)
	c.RedisURL = envOrDefault("REDIS_URL", c.RedisURL)
	c.Listen = envOrDefault("ARENA_LISTEN", c.Listen)
	c.JWTSecret = envOrDefault("JWT_SECRET", c.JWTSecret)
	c.DiagDir = envOrDefault("ARENA_DIAG_DIR", c.DiagDir)
	return nil
}

// Validate rejects unusable settings and clamps the worker count to
// [1, 2*NumCPU].
func (c *Config) Validate() error {
	if c.TurnLimit < 1 {
		return fmt.Errorf("turn limit must be positive, got %d", c.TurnLimit)
	}
	if c.FirstTurnTimeout <= 0 || c.TurnTimeout <= 0 {
		return fmt.Errorf("turn timeouts must be positive")
	}
	if c.StopGrace < 0 {
		return fmt.Errorf("stop grace must not be negative")
	}
	if c.Games < 0 {
		return fmt.Errorf("games must not be negative, got %d", c.Games)
	}
	if c.Listen != "" && c.JWTSecret == "" {
		return fmt.Errorf("listen requires JWT_SECRET")
	}
	c.Workers = max(1, min(c.Workers, 2*runtime.NumCPU()))
	return nil
}

// Match returns the per-match settings.
func (c *Config) Match() match.Config {
	return match.Config{
		TurnLimit:        c.TurnLimit,
		FirstTurnTimeout: c.FirstTurnTimeout,
		TurnTimeout:      c.TurnTimeout,
		StopGrace:        c.StopGrace,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
