package registry

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/maestro/internal/store"
	"github.com/example/maestro/pkg/models"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "maestro.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, slog.Default())
}

func TestSeedDefaultsOnce(t *testing.T) {
	r := testRegistry(t)

	if err := r.SeedDefaults(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	first, err := r.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("seed produced no models")
	}

	// Disable one, reseed: roster must be untouched.
	off := false
	if _, err := r.SetRole(first[0].ID, nil, &off); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if err := r.SeedDefaults(); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	again, err := r.Get(first[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if again.Enabled {
		t.Error("reseed overwrote an operator edit")
	}
}

func TestSetRole(t *testing.T) {
	r := testRegistry(t)
	m := &models.ModelProfile{
		ID: "m1", Provider: "anthropic", Role: models.RolePlanner,
		CostTier: models.CostTierStandard, SuccessRate: 0.9, Enabled: true,
	}
	if err := r.Register(m); err != nil {
		t.Fatalf("register: %v", err)
	}

	role := models.RoleJudge
	got, err := r.SetRole("m1", &role, nil)
	if err != nil {
		t.Fatalf("set role: %v", err)
	}
	if got.Role != models.RoleJudge || !got.Enabled {
		t.Errorf("profile = %+v", got)
	}

	bad := models.Role("critic")
	if _, err := r.SetRole("m1", &bad, nil); err == nil {
		t.Error("invalid role should be rejected")
	}

	if _, err := r.SetRole("missing", &role, nil); err != store.ErrNotFound {
		t.Errorf("SetRole(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSuggestionsNeverMutateProfile(t *testing.T) {
	r := testRegistry(t)
	m := &models.ModelProfile{
		ID: "m1", Provider: "anthropic", Role: models.RolePlanner,
		CostTier: models.CostTierStandard, SuccessRate: 0.9, Enabled: true,
	}
	if err := r.Register(m); err != nil {
		t.Fatalf("register: %v", err)
	}

	s, err := r.RecordSuggestion("m1", models.RoleExecutor, "more reliable at edits", "agent-7")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if s.ID == "" || s.ModelID != "m1" {
		t.Errorf("suggestion = %+v", s)
	}

	profile, err := r.Get("m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if profile.Role != models.RolePlanner {
		t.Errorf("suggestion mutated role to %q", profile.Role)
	}

	list, err := r.Suggestions("m1")
	if err != nil {
		t.Fatalf("suggestions: %v", err)
	}
	if len(list) != 1 || list[0].SuggestedBy != "agent-7" {
		t.Errorf("suggestions = %+v", list)
	}
}

func TestSuggestionUnknownModel(t *testing.T) {
	r := testRegistry(t)
	if _, err := r.RecordSuggestion("nope", models.RoleExecutor, "", "agent"); err != store.ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
