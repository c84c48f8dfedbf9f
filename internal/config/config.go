package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DesignConfig holds block-design tunables.
type DesignConfig struct {
	// MinExposure is the minimum number of blocks every dimension must
	// appear in.
	MinExposure int `yaml:"min_exposure"`
	// CVTolerance is the maximum coefficient of variation accepted for
	// dimension exposure and pairwise co-occurrence counts.
	CVTolerance float64 `yaml:"cv_tolerance"`
	// OptimizerBudget caps local-search iterations.
	OptimizerBudget int `yaml:"optimizer_budget"`
	// SwapCandidates is the number of candidate swaps evaluated per
	// optimizer iteration.
	SwapCandidates int `yaml:"swap_candidates"`
}

// EstimationConfig holds theta-estimation tunables.
type EstimationConfig struct {
	MaxIterations     int     `yaml:"max_iterations"`
	GradientTolerance float64 `yaml:"gradient_tolerance"`
	FiniteDiffStep    float64 `yaml:"finite_diff_step"`
	// PriorWeight is the coefficient on the squared-theta MAP penalty.
	PriorWeight float64 `yaml:"prior_weight"`
	// FallbackSE is used for every dimension when the Hessian is singular.
	FallbackSE float64 `yaml:"fallback_se"`
	// DefaultLoading is the factor loading assigned to uncalibrated
	// statements. A placeholder default, not a derived constant.
	DefaultLoading float64 `yaml:"default_loading"`
	// ThetaBound bounds the optimization domain to [-ThetaBound, ThetaBound].
	ThetaBound float64 `yaml:"theta_bound"`
}

// Config bundles all scoring-core tunables.
type Config struct {
	Design     DesignConfig     `yaml:"design"`
	Estimation EstimationConfig `yaml:"estimation"`
}

// DefaultConfig returns the built-in tunables.
func DefaultConfig() *Config {
	return &Config{
		Design: DesignConfig{
			MinExposure:     3,
			CVTolerance:     0.15,
			OptimizerBudget: 500,
			SwapCandidates:  8,
		},
		Estimation: EstimationConfig{
			MaxIterations:     200,
			GradientTolerance: 1e-4,
			FiniteDiffStep:    1e-5,
			PriorWeight:       0.5,
			FallbackSE:        0.5,
			DefaultLoading:    0.7,
			ThetaBound:        3.0,
		},
	}
}

// Load reads a YAML config file, applies defaults for unset fields and
// validates ranges.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// applyDefaults fills zero values with the built-in defaults so partial
// config files stay usable.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Design.MinExposure == 0 {
		c.Design.MinExposure = def.Design.MinExposure
	}
	if c.Design.CVTolerance == 0 {
		c.Design.CVTolerance = def.Design.CVTolerance
	}
	if c.Design.OptimizerBudget == 0 {
		c.Design.OptimizerBudget = def.Design.OptimizerBudget
	}
	if c.Design.SwapCandidates == 0 {
		c.Design.SwapCandidates = def.Design.SwapCandidates
	}
	if c.Estimation.MaxIterations == 0 {
		c.Estimation.MaxIterations = def.Estimation.MaxIterations
	}
	if c.Estimation.GradientTolerance == 0 {
		c.Estimation.GradientTolerance = def.Estimation.GradientTolerance
	}
	if c.Estimation.FiniteDiffStep == 0 {
		c.Estimation.FiniteDiffStep = def.Estimation.FiniteDiffStep
	}
	if c.Estimation.FallbackSE == 0 {
		c.Estimation.FallbackSE = def.Estimation.FallbackSE
	}
	if c.Estimation.DefaultLoading == 0 {
		c.Estimation.DefaultLoading = def.Estimation.DefaultLoading
	}
	if c.Estimation.ThetaBound == 0 {
		c.Estimation.ThetaBound = def.Estimation.ThetaBound
	}
}

// Validate checks that tunables are in usable ranges.
func (c *Config) Validate() error {
	if c.Design.MinExposure < 1 {
		return fmt.Errorf("design.min_exposure must be positive, got %d", c.Design.MinExposure)
	}
	if c.Design.CVTolerance <= 0 {
		return fmt.Errorf("design.cv_tolerance must be positive, got %g", c.Design.CVTolerance)
	}
	if c.Design.SwapCandidates < 1 {
		return fmt.Errorf("design.swap_candidates must be positive, got %d", c.Design.SwapCandidates)
	}
	if c.Estimation.MaxIterations < 1 {
		return fmt.Errorf("estimation.max_iterations must be positive, got %d", c.Estimation.MaxIterations)
	}
	if c.Estimation.GradientTolerance <= 0 {
		return fmt.Errorf("estimation.gradient_tolerance must be positive, got %g", c.Estimation.GradientTolerance)
	}
	if c.Estimation.FiniteDiffStep <= 0 {
		return fmt.Errorf("estimation.finite_diff_step must be positive, got %g", c.Estimation.FiniteDiffStep)
	}
	if c.Estimation.PriorWeight < 0 {
		return fmt.Errorf("estimation.prior_weight must not be negative, got %g", c.Estimation.PriorWeight)
	}
	if c.Estimation.DefaultLoading <= 0 || c.Estimation.DefaultLoading > 1.5 {
		return fmt.Errorf("estimation.default_loading must be in (0, 1.5], got %g", c.Estimation.DefaultLoading)
	}
	if c.Estimation.ThetaBound <= 0 {
		return fmt.Errorf("estimation.theta_bound must be positive, got %g", c.Estimation.ThetaBound)
	}
	return nil
}
