package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"lathe/internal/classid"
	"lathe/internal/evo"
	"lathe/internal/geometry"
	"lathe/internal/model"
	"lathe/internal/overhang"
	"lathe/internal/repair"
)

var ErrUnknownClass = errors.New("unknown object class")

var validate = validator.New()

// Config is the full lathectl configuration.
type Config struct {
	Classes          []ClassProfile      `yaml:"classes" validate:"required,min=1,dive"`
	MaxOverhangAngle float64             `yaml:"max_overhang_angle" validate:"gt=0,lt=90"`
	Resolution       geometry.Resolution `yaml:"resolution"`
	Evolution        EvolutionConfig     `yaml:"evolution"`
	Repair           RepairConfig        `yaml:"repair"`
	Batch            BatchConfig         `yaml:"batch"`
	Storage          StorageConfig       `yaml:"storage"`
	Logging          LoggingConfig       `yaml:"logging"`
	ArtifactsDir     string              `yaml:"artifacts_dir" validate:"required"`
}

// ClassProfile describes one object class: its parameter bounds in gene and
// sweep order plus the fixed shell dimensions.
type ClassProfile struct {
	Name          string          `yaml:"name" validate:"required"`
	Bounds        []BoundConfig   `yaml:"bounds" validate:"len=6,dive"`
	WallThickness float64         `yaml:"wall_thickness" validate:"gt=0"`
	Height        float64         `yaml:"height" validate:"gt=0"`
	CapThickness  float64         `yaml:"cap_thickness" validate:"gte=0"`
	CapEnd        geometry.CapEnd `yaml:"cap_end" validate:"oneof=top bottom"`
	Colorize      bool            `yaml:"colorize"`
}

// BoundConfig names a parameter by its human label.
type BoundConfig struct {
	Label   string  `yaml:"label" validate:"required"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Default float64 `yaml:"default"`
}

type EvolutionConfig struct {
	BitsPerField         int     `yaml:"bits_per_field" validate:"gte=1,lte=32"`
	MutationProbability  float64 `yaml:"mutation_probability" validate:"gte=0,lte=1"`
	CrossoverProbability float64 `yaml:"crossover_probability" validate:"gte=0,lte=1"`
}

type RepairConfig struct {
	StepFraction float64 `yaml:"step_fraction" validate:"gt=0,lte=1"`
	// Lightweight selects the buffer-free analyzer path for repair and batch
	// validation.
	Lightweight bool `yaml:"lightweight"`
}

type BatchConfig struct {
	Workers int `yaml:"workers" validate:"gte=0"`
}

type StorageConfig struct {
	Kind string `yaml:"kind" validate:"oneof=memory sqlite"`
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=auto json console"`
}

func canonicalBounds(sc, ow, ta, tgd, vwf, vwd [3]float64) []BoundConfig {
	rows := [...][3]float64{sc, ow, ta, tgd, vwf, vwd}
	out := make([]BoundConfig, len(model.Fields))
	for i, f := range model.Fields {
		out[i] = BoundConfig{Label: f.Label(), Min: rows[i][0], Max: rows[i][1], Default: rows[i][2]}
	}
	return out
}

// DefaultConfig returns the built-in vase, table and stool profiles.
func DefaultConfig() *Config {
	furniture := func() []BoundConfig {
		return canonicalBounds(
			[3]float64{2, 9, 5},
			[3]float64{1.5, 4, 3},
			[3]float64{0, 45, 20},
			[3]float64{0, 5, 1},
			[3]float64{0, 20, 3},
			[3]float64{0, 5, 1},
		)
	}
	return &Config{
		Classes: []ClassProfile{
			{
				Name: "vase",
				Bounds: canonicalBounds(
					[3]float64{2, 9, 5},
					[3]float64{2, 3, 2.5},
					[3]float64{0, 45, 20},
					[3]float64{0, 8, 1},
					[3]float64{0, 15, 3},
					[3]float64{0, 5, 1},
				),
				WallThickness: 0.5,
				Height:        14,
				CapThickness:  0.2,
				CapEnd:        geometry.CapBottom,
			},
			{
				Name:          "table",
				Bounds:        furniture(),
				WallThickness: 0.5,
				Height:        7,
				CapThickness:  0.2,
				CapEnd:        geometry.CapTop,
			},
			{
				Name:          "stool",
				Bounds:        furniture(),
				WallThickness: 0.5,
				Height:        7,
				CapThickness:  0.2,
				CapEnd:        geometry.CapTop,
				Colorize:      true,
			},
		},
		MaxOverhangAngle: geometry.DefaultMaxOverhangAngle,
		Resolution:       geometry.DefaultResolution,
		Evolution: EvolutionConfig{
			BitsPerField:         evo.DefaultBitsPerField,
			MutationProbability:  evo.DefaultMutationProbability,
			CrossoverProbability: evo.DefaultCrossoverProbability,
		},
		Repair: RepairConfig{
			StepFraction: repair.DefaultStepFraction,
			Lightweight:  true,
		},
		Batch: BatchConfig{Workers: 0},
		Storage: StorageConfig{
			Kind: "memory",
			Path: "lathe.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
		ArtifactsDir: "generations",
	}
}

// Load reads a YAML file over the defaults. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LATHE_STORE"); v != "" {
		c.Storage.Kind = v
	}
	if v := os.Getenv("LATHE_DB_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("LATHE_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LATHE_ARTIFACTS_DIR"); v != "" {
		c.ArtifactsDir = v
	}
}

// Validate runs the struct tags and the cross-field checks the tags cannot
// express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	seen := make(map[string]bool, len(c.Classes))
	for _, class := range c.Classes {
		name := classid.Normalize(class.Name)
		if seen[name] {
			return fmt.Errorf("invalid config: duplicate class %q", class.Name)
		}
		seen[name] = true
		bounds, err := class.ModelBounds()
		if err != nil {
			return fmt.Errorf("invalid config: class %s: %w", class.Name, err)
		}
		if width, _ := bounds.Lookup(model.FieldObjectWidth); class.WallThickness >= width.Min {
			return fmt.Errorf("invalid config: class %s: wall thickness %.3f must be below the minimum object width", class.Name, class.WallThickness)
		}
		if class.CapThickness >= class.Height {
			return fmt.Errorf("invalid config: class %s: cap thickness must be below height", class.Name)
		}
	}
	return nil
}

// ModelBounds resolves the labeled bounds into ordered model bounds. Every
// field must appear exactly once and each interval must be non-empty.
func (p ClassProfile) ModelBounds() (model.Bounds, error) {
	out := make(model.Bounds, 0, len(p.Bounds))
	seen := make(map[model.Field]bool, len(p.Bounds))
	for _, b := range p.Bounds {
		f, ok := model.FieldByLabel(b.Label)
		if !ok {
			return nil, fmt.Errorf("unknown parameter label %q", b.Label)
		}
		if seen[f] {
			return nil, fmt.Errorf("duplicate parameter label %q", b.Label)
		}
		seen[f] = true
		if b.Min >= b.Max {
			return nil, fmt.Errorf("%s: min %v must be below max %v", f.Label(), b.Min, b.Max)
		}
		if b.Default < b.Min || b.Default > b.Max {
			return nil, fmt.Errorf("%s: default %v outside [%v, %v]", f.Label(), b.Default, b.Min, b.Max)
		}
		out = append(out, model.ParameterBound{Field: f, Min: b.Min, Max: b.Max, Default: b.Default})
	}
	for _, f := range model.Fields {
		if !seen[f] {
			return nil, fmt.Errorf("%w: %q", model.ErrMissingLabel, f.Label())
		}
	}
	return out, nil
}

// Shell returns the shell dimensions of the class at the given resolution.
func (p ClassProfile) Shell(res geometry.Resolution) geometry.ShellProfile {
	return geometry.ShellProfile{
		Resolution:    res,
		Height:        p.Height,
		WallThickness: p.WallThickness,
		CapThickness:  p.CapThickness,
		CapEnd:        p.CapEnd,
	}
}

// Class looks up a profile by normalized name.
func (c *Config) Class(name string) (ClassProfile, error) {
	want := classid.Normalize(name)
	for _, class := range c.Classes {
		if classid.Normalize(class.Name) == want {
			return class, nil
		}
	}
	return ClassProfile{}, fmt.Errorf("%w: %q", ErrUnknownClass, name)
}

// ClassNames lists the normalized class names in configured order.
func (c *Config) ClassNames() []string {
	out := make([]string, 0, len(c.Classes))
	for _, class := range c.Classes {
		out = append(out, classid.Normalize(class.Name))
	}
	return out
}

// Overhang builds the analyzer configuration for a class.
func (c *Config) Overhang(class ClassProfile) overhang.Config {
	return overhang.Config{
		Profile:          class.Shell(c.Resolution),
		MaxOverhangAngle: c.MaxOverhangAngle,
	}
}

// Analyzer returns the configured analyzer path for a class.
func (c *Config) Analyzer(class ClassProfile) overhang.Analyzer {
	cfg := c.Overhang(class)
	if c.Repair.Lightweight {
		return overhang.LightPath{Config: cfg}
	}
	return overhang.MeshPath{Config: cfg}
}

// Sweeper builds a repair sweeper for a class.
func (c *Config) Sweeper(class ClassProfile) (repair.Sweeper, error) {
	bounds, err := class.ModelBounds()
	if err != nil {
		return repair.Sweeper{}, err
	}
	return repair.Sweeper{
		Analyzer:     c.Analyzer(class),
		Bounds:       bounds,
		StepFraction: c.Repair.StepFraction,
	}, nil
}

// Layouts builds one gene layout per class keyed by normalized name.
func (c *Config) Layouts() (map[string]evo.Layout, error) {
	out := make(map[string]evo.Layout, len(c.Classes))
	for _, class := range c.Classes {
		bounds, err := class.ModelBounds()
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", class.Name, err)
		}
		layout, err := evo.NewLayout(bounds, c.Evolution.BitsPerField)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", class.Name, err)
		}
		out[classid.Normalize(class.Name)] = layout
	}
	return out, nil
}
