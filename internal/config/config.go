// Package config loads the Dotted service configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Database     DatabaseConfig     `yaml:"database"`
	Auth         AuthConfig         `yaml:"auth"`
	Cycle        CycleConfig        `yaml:"cycle"`
	Optimization OptimizationConfig `yaml:"optimization"`
	LLM          LLMConfig          `yaml:"llm"`
	Storage      StorageConfig      `yaml:"storage"`
	NATS         NATSConfig         `yaml:"nats"`
	Competition  CompetitionConfig  `yaml:"competition"`
	Log          LogConfig          `yaml:"log"`
}

type HTTPConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// CycleConfig drives the daily cycle timeline.
type CycleConfig struct {
	// Schedule maps a phase name to its local opening time (HH:MM).
	Schedule       map[string]string `yaml:"schedule"`
	TickInterval   time.Duration     `yaml:"tick_interval"`
	OpenCron       string            `yaml:"open_cron"`
	MinSuggestions int               `yaml:"min_suggestions"`
	MaxSuggestions int               `yaml:"max_suggestions"`
}

// BidWeights mirror BID_SCORE_WEIGHTS.
type BidWeights struct {
	Price    float64 `yaml:"price"`
	Quality  float64 `yaml:"quality"`
	PrepTime float64 `yaml:"prep_time"`
	Capacity float64 `yaml:"capacity"`
}

// SupplierWeights mirror SUPPLIER_MATCH_WEIGHTS.
type SupplierWeights struct {
	Freshness float64 `yaml:"freshness"`
	Distance  float64 `yaml:"distance"`
	Cost      float64 `yaml:"cost"`
}

type OptimizationConfig struct {
	Bid             BidWeights      `yaml:"bid"`
	Supplier        SupplierWeights `yaml:"supplier"`
	NeutralQuality  float64         `yaml:"neutral_quality"`
	MaxDistanceKm   float64         `yaml:"max_distance_km"`
	MaxFreshnessHrs float64         `yaml:"max_freshness_hours"`
}

type LLMConfig struct {
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Bucket        string `yaml:"bucket"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// Enabled reports whether object storage credentials are present.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != "" && s.AccessKey != ""
}

type NATSConfig struct {
	// URL is empty when rooms stay local to one process.
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type CompetitionConfig struct {
	// RecomputeCron refreshes every zone's price snapshot.
	RecomputeCron string `yaml:"recompute_cron"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:        ":8000",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Cycle: CycleConfig{
			Schedule: map[string]string{
				"SUGGESTING": "00:00",
				"VOTING":     "08:00",
				"BIDDING":    "11:00",
				"SOURCING":   "13:00",
				"ORDERING":   "14:00",
				"COMPLETED":  "21:00",
			},
			TickInterval:   30 * time.Second,
			OpenCron:       "5 * * * *",
			MinSuggestions: 3,
			MaxSuggestions: 5,
		},
		Optimization: OptimizationConfig{
			Bid: BidWeights{
				Price:    0.4,
				Quality:  0.3,
				PrepTime: 0.15,
				Capacity: 0.15,
			},
			Supplier: SupplierWeights{
				Freshness: 0.4,
				Distance:  0.3,
				Cost:      0.3,
			},
			NeutralQuality:  0.6,
			MaxDistanceKm:   25,
			MaxFreshnessHrs: 72,
		},
		LLM: LLMConfig{
			Model:       "gemini-2.0-flash",
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		NATS: NATSConfig{
			SubjectPrefix: "dotted.rooms",
		},
		Competition: CompetitionConfig{
			RecomputeCron: "30 */6 * * *",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required (DATABASE_URL)")
	}
	return c.ValidateWithoutDatabase()
}

// ValidateWithoutDatabase is Validate for in-memory runs.
func (c *Config) ValidateWithoutDatabase() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required (JWT_SECRET)")
	}
	if c.Cycle.TickInterval <= 0 {
		return errors.New("cycle.tick_interval must be positive")
	}
	if err := c.Cycle.validateSchedule(); err != nil {
		return err
	}
	if c.Competition.RecomputeCron == "" {
		return errors.New("competition.recompute_cron is required")
	}
	if c.Cycle.MinSuggestions < 1 || c.Cycle.MaxSuggestions < c.Cycle.MinSuggestions {
		return fmt.Errorf(
			"cycle suggestions: need 1 <= min (%d) <= max (%d)",
			c.Cycle.MinSuggestions, c.Cycle.MaxSuggestions,
		)
	}
	return c.Optimization.Validate()
}

// phaseOrder is the order the schedule must open phases in.
var phaseOrder = []string{"SUGGESTING", "VOTING", "BIDDING", "SOURCING", "ORDERING", "COMPLETED"}

func (c CycleConfig) validateSchedule() error {
	var prev time.Time
	for i, phase := range phaseOrder {
		raw, ok := c.Schedule[phase]
		if !ok {
			return fmt.Errorf("cycle.schedule.%s is required", phase)
		}
		t, err := time.Parse("15:04", raw)
		if err != nil {
			return fmt.Errorf("cycle.schedule.%s: %w", phase, err)
		}
		if i > 0 && !t.After(prev) {
			return fmt.Errorf("cycle.schedule.%s (%s) must be after %s", phase, raw, phaseOrder[i-1])
		}
		prev = t
	}
	return nil
}

// Validate checks the scoring weights.
func (o OptimizationConfig) Validate() error {
	b := o.Bid
	if b.Price < 0 || b.Quality < 0 || b.PrepTime < 0 || b.Capacity < 0 {
		return errors.New("optimization.bid weights must be non-negative")
	}
	if b.Price+b.Quality+b.PrepTime+b.Capacity == 0 {
		return errors.New("optimization.bid weights sum to zero")
	}
	s := o.Supplier
	if s.Freshness < 0 || s.Distance < 0 || s.Cost < 0 {
		return errors.New("optimization.supplier weights must be non-negative")
	}
	if s.Freshness+s.Distance+s.Cost == 0 {
		return errors.New("optimization.supplier weights sum to zero")
	}
	if o.NeutralQuality < 0 || o.NeutralQuality > 1 {
		return errors.New("optimization.neutral_quality must be within [0,1]")
	}
	if o.MaxDistanceKm <= 0 || o.MaxFreshnessHrs <= 0 {
		return errors.New("optimization distance and freshness limits must be positive")
	}
	return nil
}

// LoadFromFile reads a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
