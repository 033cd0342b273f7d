package telemetry

import (
	"log/slog"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/maestro/internal/store"
	"github.com/example/maestro/pkg/models"
)

func testTelemetry(t *testing.T) *Telemetry {
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

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		model  string
		tokens int64
		want   float64
	}{
		{"unknown-model-x", 1000, 0.005},
		{"gpt-4o-mini", 2000, 2 * 0.00015},
		{"claude-opus-4", 1000, 0.015},
		{"gpt-4o-mini", 0, 0},
	}

	for _, tt := range tests {
		got := EstimateCost(tt.model, tt.tokens)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("EstimateCost(%q, %d) = %v, want %v", tt.model, tt.tokens, got, tt.want)
		}
	}
}

func TestStatsAggregation(t *testing.T) {
	tel := testTelemetry(t)

	base := time.Now().UTC()
	records := []models.TelemetryRecord{
		{Model: "m1", TaskType: "code_edit", Success: true, LatencyMs: 100, Tokens: 500, TS: base},
		{Model: "m1", TaskType: "code_edit", Success: false, LatencyMs: 300, Tokens: 500, TS: base.Add(time.Second), Error: "timeout"},
		{Model: "m1", TaskType: "terminal", Success: true, LatencyMs: 200, Tokens: 1000, TS: base.Add(2 * time.Second)},
		{Model: "m2", TaskType: "code_edit", Success: true, LatencyMs: 50, TS: base.Add(3 * time.Second)},
	}
	for _, r := range records {
		tel.Record(r)
	}

	stats, err := tel.Stats("")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("len(stats) = %d, want 2", len(stats))
	}

	m1 := stats[0]
	if m1.Model != "m1" {
		t.Fatalf("first model = %q, want m1", m1.Model)
	}
	if m1.Calls != 3 || m1.Successes != 2 || m1.Failures != 1 {
		t.Errorf("m1 counts = %d/%d/%d", m1.Calls, m1.Successes, m1.Failures)
	}
	if math.Abs(m1.SuccessRate-2.0/3.0) > 1e-9 {
		t.Errorf("m1 successRate = %v", m1.SuccessRate)
	}
	if math.Abs(m1.AvgLatencyMs-200) > 1e-9 {
		t.Errorf("m1 avgLatencyMs = %v, want 200", m1.AvgLatencyMs)
	}
	if m1.TotalTokens != 2000 {
		t.Errorf("m1 totalTokens = %d, want 2000", m1.TotalTokens)
	}
	if !m1.LastSeen.Equal(base.Add(2 * time.Second).Truncate(0)) && !m1.LastSeen.After(base) {
		t.Errorf("m1 lastSeen = %v", m1.LastSeen)
	}

	ce := m1.ByTaskType["code_edit"]
	if ce == nil || ce.Calls != 2 || ce.Successes != 1 || ce.SuccessRate != 0.5 {
		t.Errorf("m1 byTaskType[code_edit] = %+v", ce)
	}
	term := m1.ByTaskType["terminal"]
	if term == nil || term.Calls != 1 || term.SuccessRate != 1 {
		t.Errorf("m1 byTaskType[terminal] = %+v", term)
	}
}

func TestStatsRunningMeanStable(t *testing.T) {
	tel := testTelemetry(t)

	// Many identical latencies must average exactly to that latency.
	for i := 0; i < 200; i++ {
		tel.Record(models.TelemetryRecord{Model: "m1", TaskType: "general", Success: true, LatencyMs: 123})
	}

	stats, err := tel.Stats("m1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("len = %d", len(stats))
	}
	if math.Abs(stats[0].AvgLatencyMs-123) > 1e-9 {
		t.Errorf("avgLatencyMs = %v, want 123", stats[0].AvgLatencyMs)
	}
}

func TestRecordDefaultsCostFromTokens(t *testing.T) {
	tel := testTelemetry(t)
	tel.Record(models.TelemetryRecord{Model: "gpt-4o-mini", TaskType: "general", Success: true, Tokens: 2000})

	stats, err := tel.Stats("gpt-4o-mini")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if math.Abs(stats[0].TotalCostUSD-2*0.00015) > 1e-12 {
		t.Errorf("totalCostUsd = %v, want %v", stats[0].TotalCostUSD, 2*0.00015)
	}
}

func TestEffectiveRate(t *testing.T) {
	tel := testTelemetry(t)
	m := &models.ModelProfile{ID: "m1", SuccessRate: 0.9, CostPer1k: 0.001}

	// Fewer than three calls: static prior wins.
	tel.Record(models.TelemetryRecord{Model: "m1", TaskType: "code_edit", Success: false})
	tel.Record(models.TelemetryRecord{Model: "m1", TaskType: "code_edit", Success: false})
	if got := tel.EffectiveRate(m, "code_edit"); got != 0.9 {
		t.Errorf("rate with 2 calls = %v, want prior 0.9", got)
	}

	// Third call flips to empirical.
	tel.Record(models.TelemetryRecord{Model: "m1", TaskType: "code_edit", Success: true})
	if got := tel.EffectiveRate(m, "code_edit"); math.Abs(got-1.0/3.0) > 1e-9 {
		t.Errorf("rate with 3 calls = %v, want 1/3", got)
	}

	// Other task types keep the prior.
	if got := tel.EffectiveRate(m, "terminal"); got != 0.9 {
		t.Errorf("rate for unseen type = %v, want 0.9", got)
	}
}

func TestBestModelStaysInCandidates(t *testing.T) {
	tel := testTelemetry(t)

	candidates := []*models.ModelProfile{
		{ID: "cheap", SuccessRate: 0.8, CostPer1k: 0.0001},
		{ID: "expensive", SuccessRate: 0.95, CostPer1k: 0.02},
	}

	best := tel.BestModel("general", candidates)
	if best == nil {
		t.Fatal("best = nil")
	}
	// 0.8/(0.0001+1e-4) >> 0.95/(0.02+1e-4)
	if best.ID != "cheap" {
		t.Errorf("best = %q, want cheap", best.ID)
	}

	if got := tel.BestModel("general", nil); got != nil {
		t.Errorf("best of empty candidates = %v, want nil", got)
	}
}
