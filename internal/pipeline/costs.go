package pipeline

import (
	"github.com/spf13/viper"

	"github.com/leadscout/api/internal/logger"
	"github.com/leadscout/api/internal/model"
)

// CostConfig holds per-platform budgets, per-stage rates, and guardrails
type CostConfig struct {
	Version    string                        `mapstructure:"version"`
	Defaults   map[string]PlatformBudget     `mapstructure:"defaults"`
	Rates      map[string]map[string]float64 `mapstructure:"rates"`
	Guardrails Guardrails                    `mapstructure:"guardrails"`
}

// PlatformBudget is the spend ceiling for one platform
type PlatformBudget struct {
	MaxBudget        float64 `mapstructure:"max_budget"`
	WarningThreshold float64 `mapstructure:"warning_threshold"`
}

// Guardrails are global spend limits
type Guardrails struct {
	ConfirmationThreshold float64 `mapstructure:"confirmation_threshold"`
	AbsoluteMax           float64 `mapstructure:"absolute_max"`
}

// LoadCostConfig reads the YAML cost file, falling back to built-in
// defaults when the file is missing or malformed.
func LoadCostConfig(path string, log *logger.Logger) *CostConfig {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		log.WithError(err).Warn("cost config not readable, using defaults")
		return defaultCostConfig()
	}

	var cfg CostConfig
	if err := v.Unmarshal(&cfg); err != nil {
		log.WithError(err).Warn("cost config malformed, using defaults")
		return defaultCostConfig()
	}
	if cfg.Rates == nil {
		cfg.Rates = defaultCostConfig().Rates
	}
	log.WithField("version", cfg.Version).Info("cost config loaded")
	return &cfg
}

func defaultCostConfig() *CostConfig {
	return &CostConfig{
		Version: "default",
		Defaults: map[string]PlatformBudget{
			model.PlatformInstagram: {MaxBudget: 50.00, WarningThreshold: 0.80},
			model.PlatformPatreon:   {MaxBudget: 20.00, WarningThreshold: 0.80},
			model.PlatformFacebook:  {MaxBudget: 20.00, WarningThreshold: 0.80},
		},
		Rates: map[string]map[string]float64{
			model.PlatformInstagram: {"discovery": 0.02, "pre_screen": 0.05, "analysis": 0.15, "scoring": 0.02},
			model.PlatformPatreon:   {"discovery": 0.01, "enrichment": 0.05, "analysis": 0.10, "scoring": 0.02},
			model.PlatformFacebook:  {"discovery": 0.01, "enrichment": 0.05, "analysis": 0.10, "scoring": 0.02},
		},
		Guardrails: Guardrails{
			ConfirmationThreshold: 10.00,
			AbsoluteMax:           200.00,
		},
	}
}

// Rate returns the per-profile cost of one platform stage
func (c *CostConfig) Rate(platform, stage string) float64 {
	return c.Rates[platform][stage]
}

// Budget returns the default max budget for a platform
func (c *CostConfig) Budget(platform string) float64 {
	if b, ok := c.Defaults[platform]; ok {
		return b.MaxBudget
	}
	return 50.00
}

// Estimate projects the cost of running expectedProfiles through every
// priced stage of the platform.
func (c *CostConfig) Estimate(platform string, expectedProfiles int) float64 {
	total := 0.0
	for _, rate := range c.Rates[platform] {
		total += rate * float64(expectedProfiles)
	}
	return total
}
