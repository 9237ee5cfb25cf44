package pipeline

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/leadscout/api/internal/logger"
	"github.com/leadscout/api/internal/model"
)

func TestLoadCostConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg := LoadCostConfig("/nonexistent/costs.yaml", logger.Discard())

	if cfg.Version != "default" {
		t.Errorf("version = %q, want default", cfg.Version)
	}
	if cfg.Budget(model.PlatformInstagram) != 50.00 {
		t.Errorf("instagram budget = %v, want 50.00", cfg.Budget(model.PlatformInstagram))
	}
	if cfg.Rate(model.PlatformInstagram, "discovery") != 0.02 {
		t.Errorf("instagram discovery rate = %v, want 0.02", cfg.Rate(model.PlatformInstagram, "discovery"))
	}
}

func TestLoadCostConfig_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "costs.yaml")
	body := `version: "2026-08"
defaults:
  instagram:
    max_budget: 75.0
    warning_threshold: 0.9
rates:
  instagram:
    discovery: 0.03
guardrails:
  confirmation_threshold: 15.0
  absolute_max: 300.0
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := LoadCostConfig(path, logger.Discard())

	if cfg.Version != "2026-08" {
		t.Errorf("version = %q, want 2026-08", cfg.Version)
	}
	if cfg.Budget(model.PlatformInstagram) != 75.0 {
		t.Errorf("budget = %v, want 75.0", cfg.Budget(model.PlatformInstagram))
	}
	if cfg.Rate(model.PlatformInstagram, "discovery") != 0.03 {
		t.Errorf("rate = %v, want 0.03", cfg.Rate(model.PlatformInstagram, "discovery"))
	}
	if cfg.Guardrails.AbsoluteMax != 300.0 {
		t.Errorf("absolute max = %v, want 300.0", cfg.Guardrails.AbsoluteMax)
	}
}

func TestRate_UnknownPlatformOrStageIsZero(t *testing.T) {
	cfg := defaultCostConfig()

	if cfg.Rate("tiktok", "discovery") != 0 {
		t.Error("unknown platform should rate zero")
	}
	if cfg.Rate(model.PlatformPatreon, "crm_sync") != 0 {
		t.Error("unpriced stage should rate zero")
	}
}

func TestBudget_UnknownPlatformFallsBack(t *testing.T) {
	cfg := defaultCostConfig()

	if cfg.Budget("tiktok") != 50.00 {
		t.Errorf("fallback budget = %v, want 50.00", cfg.Budget("tiktok"))
	}
}

func TestEstimate_SumsAllPricedStages(t *testing.T) {
	cfg := defaultCostConfig()

	// instagram prices discovery 0.02 + pre_screen 0.05 + analysis 0.15 + scoring 0.02
	want := 25 * (0.02 + 0.05 + 0.15 + 0.02)
	if got := cfg.Estimate(model.PlatformInstagram, 25); math.Abs(got-want) > 1e-9 {
		t.Errorf("estimate = %v, want %v", got, want)
	}
	if cfg.Estimate("tiktok", 25) != 0 {
		t.Error("unknown platform should estimate zero")
	}
}
