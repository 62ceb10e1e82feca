// Package config loads antsim settings from YAML files and environment
// variables and converts them into engine parameters.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/antpheromones/internal/agents"
	"github.com/talgya/antpheromones/internal/engine"
)

// Config contains all antsim settings.
type Config struct {
	Model   ModelConfig   `yaml:"model"`
	Run     RunConfig     `yaml:"run"`
	Report  ReportConfig  `yaml:"report"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// Choice is an enumerated setting given either by name or by integer code.
type Choice string

// UnmarshalYAML keeps the raw scalar so that `2` and `rwor` both decode.
func (c *Choice) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a name or integer code", node.Line)
	}
	*c = Choice(node.Value)
	return nil
}

// ModelConfig holds the model parameters.
type ModelConfig struct {
	Seed     int64 `yaml:"seed"`
	SizeX    int   `yaml:"size_x"`
	SizeY    int   `yaml:"size_y"`
	NumAnts  int   `yaml:"num_ants"`
	NumFoods int   `yaml:"num_foods"`

	// The *_sd values drive both initial draws and offspring mutation.
	// The *_mut_sd values are only reported when a mutation falls back.
	MaxAntWeight       float64 `yaml:"max_ant_weight"`
	ProbRandMoveMean   float64 `yaml:"prob_rand_move_mean"`
	ProbRandMoveSD     float64 `yaml:"prob_rand_move_sd"`
	ProbRandMoveMutSD  float64 `yaml:"prob_rand_move_mut_sd"`
	ProbDieCenterMean  float64 `yaml:"prob_die_center_mean"`
	ProbDieCenterSD    float64 `yaml:"prob_die_center_sd"`
	ProbDieCenterMutSD float64 `yaml:"prob_die_center_mut_sd"`

	TournamentSize int     `yaml:"tournament_size"`
	BestWinsProb   float64 `yaml:"best_wins_prob"`

	DiffusionK   float64 `yaml:"diffusion_k"`
	EvapRate     float64 `yaml:"evap_rate"`
	MaxPher      float64 `yaml:"max_pher"`
	ExogRate     float64 `yaml:"exog_rate"`
	InitialSteps int     `yaml:"initial_steps"`

	// BackgroundNoise is a fraction of max_pher; 0 disables it.
	BackgroundNoise float64 `yaml:"background_noise"`
	BackgroundScale float64 `yaml:"background_scale"`

	ActivationOrder  Choice `yaml:"activation_order"`
	RandomMoveMethod Choice `yaml:"random_move_method"`
}

// RunConfig controls the tick driver.
type RunConfig struct {
	Ticks    uint64        `yaml:"ticks"`    // 0 runs until interrupted
	Interval time.Duration `yaml:"interval"` // 0 runs flat out
	Speed    float64       `yaml:"speed"`
}

// ReportConfig controls the plain-text report files.
type ReportConfig struct {
	File       string `yaml:"file"`
	Every      uint64 `yaml:"every"`
	FieldFile  string `yaml:"field_file"`
	FieldEvery uint64 `yaml:"field_every"`
}

// StorageConfig controls the SQLite run store.
type StorageConfig struct {
	DBPath     string `yaml:"db_path"` // empty disables persistence
	SaveEvery  uint64 `yaml:"save_every"`
	SaveRoster bool   `yaml:"save_roster"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	AdminKey string `yaml:"admin_key"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // info, debug, trace, warn
	Format string `yaml:"format"` // text or json
}

// Default returns the classic model settings.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Seed:               1,
			SizeX:              100,
			SizeY:              100,
			NumAnts:            60,
			NumFoods:           3,
			MaxAntWeight:       10,
			ProbRandMoveMean:   0.10,
			ProbRandMoveSD:     0.05,
			ProbRandMoveMutSD:  0.05,
			ProbDieCenterMean:  0.05,
			ProbDieCenterSD:    0.02,
			ProbDieCenterMutSD: 0.02,
			TournamentSize:     2,
			BestWinsProb:       0.90,
			DiffusionK:         0.90,
			EvapRate:           1.00,
			MaxPher:            32000,
			ExogRate:           0.30,
			InitialSteps:       100,
			BackgroundScale:    0.05,
			ActivationOrder:    "fixed",
			RandomMoveMethod:   "random_open",
		},
		Run: RunConfig{
			Ticks: 1000,
			Speed: 1,
		},
		Report: ReportConfig{
			Every:      1,
			FieldEvery: 100,
		},
		Storage: StorageConfig{
			SaveEvery: 50,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromFile reads a YAML file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Load returns the defaults, overlaid by path (if non-empty) and then by
// ANTSIM_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// Validate checks ranges. Enumerated choices are checked by Params, which
// falls back rather than failing.
func (c *Config) Validate() error {
	m := c.Model
	switch {
	case m.SizeX <= 0 || m.SizeY <= 0:
		return fmt.Errorf("world size must be positive, got %dx%d", m.SizeX, m.SizeY)
	case m.NumAnts < 0 || m.NumFoods < 0:
		return fmt.Errorf("num_ants and num_foods must be non-negative")
	case m.NumAnts+m.NumFoods > m.SizeX*m.SizeY:
		return fmt.Errorf("%d ants and %d foods do not fit in %dx%d", m.NumAnts, m.NumFoods, m.SizeX, m.SizeY)
	case m.DiffusionK < 0 || m.DiffusionK > 1:
		return fmt.Errorf("diffusion_k must be in [0,1], got %f", m.DiffusionK)
	case m.EvapRate <= 0 || m.EvapRate > 1:
		return fmt.Errorf("evap_rate must be in (0,1], got %f", m.EvapRate)
	case m.ExogRate < 0 || m.ExogRate > 1:
		return fmt.Errorf("exog_rate must be in [0,1], got %f", m.ExogRate)
	case m.MaxPher <= 0:
		return fmt.Errorf("max_pher must be positive, got %f", m.MaxPher)
	case m.BestWinsProb < 0 || m.BestWinsProb > 1:
		return fmt.Errorf("best_wins_prob must be in [0,1], got %f", m.BestWinsProb)
	case m.TournamentSize < 1:
		return fmt.Errorf("tournament_size must be at least 1, got %d", m.TournamentSize)
	case m.ProbRandMoveSD < 0 || m.ProbDieCenterSD < 0 || m.ProbRandMoveMutSD < 0 || m.ProbDieCenterMutSD < 0:
		return fmt.Errorf("standard deviations must be non-negative")
	case m.InitialSteps < 0:
		return fmt.Errorf("initial_steps must be non-negative, got %d", m.InitialSteps)
	case m.BackgroundNoise < 0 || m.BackgroundNoise > 1:
		return fmt.Errorf("background_noise must be in [0,1], got %f", m.BackgroundNoise)
	case c.Run.Interval < 0:
		return fmt.Errorf("interval must be non-negative, got %v", c.Run.Interval)
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}

	validLevels := map[string]bool{"": true, "info": true, "debug": true, "trace": true, "warn": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: warn, info, debug, trace)", c.Logging.Level)
	}
	return nil
}

// Params converts the model section into engine parameters. An unknown
// activation order or move method is reported in the returned slice and the
// default is used instead.
func (c *Config) Params() (engine.Params, []error) {
	m := c.Model
	p := engine.Params{
		Seed:               m.Seed,
		SizeX:              m.SizeX,
		SizeY:              m.SizeY,
		NumAnts:            m.NumAnts,
		NumFoods:           m.NumFoods,
		MaxAntWeight:       m.MaxAntWeight,
		ProbRandMoveMean:   m.ProbRandMoveMean,
		ProbRandMoveSD:     m.ProbRandMoveSD,
		ProbRandMoveMutSD:  m.ProbRandMoveMutSD,
		ProbDieCenterMean:  m.ProbDieCenterMean,
		ProbDieCenterSD:    m.ProbDieCenterSD,
		ProbDieCenterMutSD: m.ProbDieCenterMutSD,
		TournamentSize:     m.TournamentSize,
		BestWinsProb:       m.BestWinsProb,
		DiffusionK:         m.DiffusionK,
		EvapRate:           m.EvapRate,
		MaxPher:            m.MaxPher,
		ExogRate:           m.ExogRate,
		InitialSteps:       m.InitialSteps,
		BackgroundNoise:    m.BackgroundNoise,
		BackgroundScale:    m.BackgroundScale,
		ActivationOrder:    engine.ActivationFixed,
		MoveMethod:         agents.MoveRandomOpen,
	}

	var errs []error
	if m.ActivationOrder != "" {
		if o, err := engine.ParseActivationOrder(string(m.ActivationOrder)); err != nil {
			slog.Warn("activation_order not recognised, keeping default", "value", m.ActivationOrder, "default", p.ActivationOrder)
			errs = append(errs, err)
		} else {
			p.ActivationOrder = o
		}
	}
	if m.RandomMoveMethod != "" {
		if mm, err := agents.ParseMoveMethod(string(m.RandomMoveMethod)); err != nil {
			slog.Warn("random_move_method not recognised, keeping default", "value", m.RandomMoveMethod, "default", p.MoveMethod)
			errs = append(errs, err)
		} else {
			p.MoveMethod = mm
		}
	}
	return p, errs
}

// ApplyEnv overlays ANTSIM_* environment variables. Unparseable numbers are
// ignored.
func (c *Config) ApplyEnv() {
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("ANTSIM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Model.Seed = n
		}
	}
	if v := os.Getenv("ANTSIM_TICKS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Run.Ticks = n
		}
	}
	setInt("ANTSIM_SIZE_X", &c.Model.SizeX)
	setInt("ANTSIM_SIZE_Y", &c.Model.SizeY)
	setInt("ANTSIM_NUM_ANTS", &c.Model.NumAnts)
	setFloat("ANTSIM_DIFFUSION_K", &c.Model.DiffusionK)
	setFloat("ANTSIM_EVAP_RATE", &c.Model.EvapRate)
	setFloat("ANTSIM_EXOG_RATE", &c.Model.ExogRate)
	if v := os.Getenv("ANTSIM_ACTIVATION_ORDER"); v != "" {
		c.Model.ActivationOrder = Choice(v)
	}
	if v := os.Getenv("ANTSIM_RANDOM_MOVE_METHOD"); v != "" {
		c.Model.RandomMoveMethod = Choice(v)
	}
	setString("ANTSIM_DB", &c.Storage.DBPath)
	setInt("ANTSIM_PORT", &c.Server.Port)
	setString("ANTSIM_ADMIN_KEY", &c.Server.AdminKey)
	setString("ANTSIM_LOG_LEVEL", &c.Logging.Level)
	setString("ANTSIM_LOG_FORMAT", &c.Logging.Format)
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
