package router

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/maestro/internal/registry"
	"github.com/example/maestro/internal/store"
	"github.com/example/maestro/internal/telemetry"
	"github.com/example/maestro/pkg/models"
)

func testRouter(t *testing.T, profiles []models.ModelProfile) (*Router, *telemetry.Telemetry) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "maestro.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	reg := registry.New(db, slog.Default())
	for i := range profiles {
		if err := reg.Register(&profiles[i]); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	tel := telemetry.New(db, slog.Default())
	return New(reg, tel, 0.7, slog.Default()), tel
}

func TestPickModelNoCandidates(t *testing.T) {
	r, _ := testRouter(t, []models.ModelProfile{
		{ID: "exec", Role: models.RoleExecutor, CostTier: models.CostTierStandard, SuccessRate: 0.9, Enabled: true},
		{ID: "off-planner", Role: models.RolePlanner, CostTier: models.CostTierStandard, SuccessRate: 0.9, Enabled: false},
	})

	got, err := r.PickModel(models.RolePlanner, "general")
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if got != nil {
		t.Errorf("picked %q, want nil: no enabled planner exists", got.ID)
	}
}

func TestPickModelRoleMatchesExactly(t *testing.T) {
	r, _ := testRouter(t, []models.ModelProfile{
		{ID: "p1", Role: models.RolePlanner, CostTier: models.CostTierStandard, CostPer1k: 0.003, SuccessRate: 0.9, Enabled: true},
		{ID: "e1", Role: models.RoleExecutor, CostTier: models.CostTierNano, CostPer1k: 0.0001, SuccessRate: 0.99, Enabled: true},
	})

	got, err := r.PickModel(models.RolePlanner, "general")
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if got == nil || got.Role != models.RolePlanner {
		t.Fatalf("picked %+v, want a planner", got)
	}
}

func TestPickModelMaximizesRatePerDollar(t *testing.T) {
	r, _ := testRouter(t, []models.ModelProfile{
		{ID: "pricey", Role: models.RolePlanner, CostTier: models.CostTierPremium, CostPer1k: 0.015, SuccessRate: 0.95, Enabled: true},
		{ID: "value", Role: models.RolePlanner, CostTier: models.CostTierMicro, CostPer1k: 0.0002, SuccessRate: 0.8, Enabled: true},
	})

	got, err := r.PickModel(models.RolePlanner, "general")
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	// 0.8/(0.0002+1e-4) ≈ 2667 beats 0.95/(0.015+1e-4) ≈ 63
	if got.ID != "value" {
		t.Errorf("picked %q, want value", got.ID)
	}
}

func TestPickModelThresholdFallbackToCheapestTier(t *testing.T) {
	r, _ := testRouter(t, []models.ModelProfile{
		{ID: "weak-standard", Role: models.RolePlanner, CostTier: models.CostTierStandard, CostPer1k: 0.003, SuccessRate: 0.5, Enabled: true},
		{ID: "weak-nano", Role: models.RolePlanner, CostTier: models.CostTierNano, CostPer1k: 0.0001, SuccessRate: 0.4, Enabled: true},
	})

	got, err := r.PickModel(models.RolePlanner, "general")
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if got == nil || got.ID != "weak-nano" {
		t.Errorf("picked %v, want weak-nano (cheapest tier fallback)", got)
	}
}

func TestPickModelFallbackTieBrokenByRegistrationOrder(t *testing.T) {
	r, _ := testRouter(t, []models.ModelProfile{
		{ID: "first-nano", Role: models.RolePlanner, CostTier: models.CostTierNano, CostPer1k: 0.0001, SuccessRate: 0.3, Enabled: true},
		{ID: "second-nano", Role: models.RolePlanner, CostTier: models.CostTierNano, CostPer1k: 0.0001, SuccessRate: 0.6, Enabled: true},
	})

	got, err := r.PickModel(models.RolePlanner, "general")
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if got.ID != "first-nano" {
		t.Errorf("picked %q, want first-nano (first registered)", got.ID)
	}
}

func TestPickModelNeverPicksBelowThresholdWhenSurvivorExists(t *testing.T) {
	r, _ := testRouter(t, []models.ModelProfile{
		// Below threshold but an enormous rate-per-dollar score.
		{ID: "cheap-weak", Role: models.RolePlanner, CostTier: models.CostTierNano, CostPer1k: 0.00001, SuccessRate: 0.5, Enabled: true},
		{ID: "solid", Role: models.RolePlanner, CostTier: models.CostTierStandard, CostPer1k: 0.003, SuccessRate: 0.9, Enabled: true},
	})

	got, err := r.PickModel(models.RolePlanner, "general")
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if got.ID != "solid" {
		t.Errorf("picked %q, want solid: sub-threshold models only win as fallback", got.ID)
	}
}

func TestPickModelUsesEmpiricalRateAfterThreeCalls(t *testing.T) {
	r, tel := testRouter(t, []models.ModelProfile{
		// Strong prior, but telemetry shows it failing at code_edit.
		{ID: "braggart", Role: models.RolePlanner, CostTier: models.CostTierNano, CostPer1k: 0.0001, SuccessRate: 0.95, Enabled: true},
		{ID: "steady", Role: models.RolePlanner, CostTier: models.CostTierStandard, CostPer1k: 0.003, SuccessRate: 0.85, Enabled: true},
	})

	for i := 0; i < 3; i++ {
		tel.Record(models.TelemetryRecord{Model: "braggart", TaskType: "code_edit", Success: false})
	}

	got, err := r.PickModel(models.RolePlanner, "code_edit")
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if got.ID != "steady" {
		t.Errorf("picked %q, want steady: empirical 0/3 drops braggart below threshold", got.ID)
	}

	// For a different task type the prior still applies.
	got, err = r.PickModel(models.RolePlanner, "terminal")
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if got.ID != "braggart" {
		t.Errorf("picked %q, want braggart on unseen task type", got.ID)
	}
}
