// Package config loads sketch files: YAML documents naming a model skeleton, the dynamic
// properties and observation data to apply, and what to do with the candidates that remain.
//
//	name: tlgl
//	model_file: tlgl.aeon
//	properties:
//	  - name: steady
//	    formula: "3{x}: @{x}: Apoptosis & AX {x}"
//	observations:
//	  - path: attractors.txt
//	forbid_extra_attractors: true
//	witnesses: 5
//	report:
//	  dir: reports
//	  compress: true
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-sketch/pkg/hctl"
	"github.com/dd0wney/cluso-sketch/pkg/inference"
	"github.com/dd0wney/cluso-sketch/pkg/logging"
	"github.com/dd0wney/cluso-sketch/pkg/network"
	"github.com/dd0wney/cluso-sketch/pkg/observations"
	"github.com/dd0wney/cluso-sketch/pkg/validation"
)

// ErrInvalidConfig is returned for sketch files that fail to decode or validate.
var ErrInvalidConfig = errors.New("invalid sketch config")

// Config is a decoded sketch file. Relative paths are resolved against the directory of
// the file.
type Config struct {
	Name      string `yaml:"name" validate:"required,identifier"`
	Model     string `yaml:"model"`
	ModelFile string `yaml:"model_file"`

	Properties   []PropertyConfig    `yaml:"properties" validate:"dive"`
	Observations []ObservationConfig `yaml:"observations" validate:"dive"`

	ForbidExtraAttractors bool `yaml:"forbid_extra_attractors"`
	ExtraSlots            int  `yaml:"extra_slots" validate:"gte=0,lte=16"`
	// Dirty skips formula validation.
	Dirty bool `yaml:"dirty"`

	Witnesses    int    `yaml:"witnesses" validate:"gte=0,lte=10000"`
	Summarize    bool   `yaml:"summarize"`
	SummaryLimit int    `yaml:"summary_limit" validate:"gte=0"`
	Classify     bool   `yaml:"classify"`
	GoalFile     string `yaml:"goal_model_file"`
	Seed         uint64 `yaml:"seed"`

	Timeout  time.Duration `yaml:"timeout"`
	LogLevel string        `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	Report ReportConfig `yaml:"report"`

	dir string
}

// PropertyConfig is a named HCTL formula.
type PropertyConfig struct {
	Name    string `yaml:"name" validate:"required,identifier"`
	Formula string `yaml:"formula" validate:"required"`
}

// ObservationConfig points at an observation file. Type overrides the type declared in the
// file.
type ObservationConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path" validate:"required"`
	Type string `yaml:"type" validate:"omitempty,oneof=Attractor FixedPoint TimeSeries"`
}

// ReportConfig selects where run reports are stored. With neither Dir nor PostgresDSN set,
// no report is saved.
type ReportConfig struct {
	Dir         string `yaml:"dir"`
	Compress    bool   `yaml:"compress"`
	PostgresDSN string `yaml:"postgres_dsn" validate:"omitempty,url"`
}

// Load reads, decodes and validates a sketch file, then applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sketch config: %w", err)
	}
	cfg, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a sketch document. Unknown keys are rejected.
func Parse(data []byte, baseDir string) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.dir = baseDir
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv lets SKETCH_LOG_LEVEL override the configured log level.
func (c *Config) ApplyEnv() {
	if s := os.Getenv(logging.LevelEnv); s != "" {
		c.LogLevel = s
	}
}

// Validate checks struct tags and the rules spanning several fields.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cv := validation.NewConfigValidator("sketch").
		ExactlyOne(map[string]string{"model": c.Model, "model_file": c.ModelFile}).
		AtMostOne(map[string]string{"report.dir": c.Report.Dir, "report.postgres_dsn": c.Report.PostgresDSN}).
		Custom("properties", c.uniqueProperties).
		When(c.Timeout != 0, func(v *validation.ConfigValidator) {
			v.MinDuration("timeout", c.Timeout, time.Second)
		}).
		When(!c.Summarize, func(v *validation.ConfigValidator) {
			v.RangeInt("summary_limit", c.SummaryLimit, 0, 0)
		})
	if err := cv.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) uniqueProperties() error {
	seen := make(map[string]bool, len(c.Properties))
	for _, p := range c.Properties {
		if seen[p.Name] {
			return fmt.Errorf("duplicate property %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Level returns the configured log level, INFO when unset.
func (c *Config) Level() logging.Level {
	return logging.ParseLevel(validation.DefaultOr(c.LogLevel, "info"))
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.dir == "" {
		return path
	}
	return filepath.Join(c.dir, path)
}

// Sketch loads the model, observation files and goal network named by c.
func (c *Config) Sketch() (*inference.Sketch, error) {
	modelText := c.Model
	if c.ModelFile != "" {
		data, err := os.ReadFile(c.resolve(c.ModelFile))
		if err != nil {
			return nil, fmt.Errorf("failed to read model: %w", err)
		}
		modelText = string(data)
	}
	model, err := network.Parse(modelText)
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	s := &inference.Sketch{
		Name:                  c.Name,
		Model:                 model,
		ForbidExtraAttractors: c.ForbidExtraAttractors,
		ExtraSlots:            c.ExtraSlots,
		SkipValidation:        c.Dirty,
		Witnesses:             c.Witnesses,
		Summarize:             c.Summarize,
		SummaryLimit:          c.SummaryLimit,
		Classify:              c.Classify,
		Seed:                  c.Seed,
	}
	for _, p := range c.Properties {
		f, err := hctl.Parse(p.Formula)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", p.Name, err)
		}
		s.Properties = append(s.Properties, inference.Constraint{Name: p.Name, Formula: f})
	}
	for _, o := range c.Observations {
		list, err := observations.Load(c.resolve(o.Path))
		if err != nil {
			return nil, err
		}
		set := inference.ObservationSet{Name: validation.DefaultOr(o.Name, filepath.Base(o.Path)), List: list}
		if o.Type != "" {
			if set.As, err = observations.ParseType(o.Type); err != nil {
				return nil, err
			}
		}
		s.Observations = append(s.Observations, set)
	}
	if c.GoalFile != "" {
		data, err := os.ReadFile(c.resolve(c.GoalFile))
		if err != nil {
			return nil, fmt.Errorf("failed to read goal model: %w", err)
		}
		if s.Goal, err = network.Parse(string(data)); err != nil {
			return nil, fmt.Errorf("goal model: %w", err)
		}
	}
	return s, nil
}

// ReportDir returns the resolved report directory, empty when unset.
func (c *Config) ReportDir() string { return c.resolve(c.Report.Dir) }
