// Package telemetry records model-call outcomes and derives the per-model
// statistics that drive routing.
package telemetry

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/maestro/internal/metrics"
	"github.com/example/maestro/internal/store"
	"github.com/example/maestro/pkg/models"
)

// minEmpiricalCalls is how many recorded calls a (model, taskType) pair
// needs before its empirical success ratio overrides the static prior.
const minEmpiricalCalls = 3

// defaultCostPer1k is the assumed rate for models missing from the cost table.
const defaultCostPer1k = 0.005

// costPer1k is the static USD-per-1,000-tokens rate table used when a call
// does not report its own cost.
var costPer1k = map[string]float64{
	"claude-opus-4":    0.015,
	"claude-sonnet-4":  0.003,
	"claude-haiku-3-5": 0.0008,
	"gpt-4o":           0.0025,
	"gpt-4o-mini":      0.00015,
	"gemini-2-flash":   0.0001,
	"o3-mini":          0.0011,
}

// scoreEpsilon keeps free models from producing infinite scores.
const scoreEpsilon = 1e-4

// Telemetry is the append-only log of model-call outcomes. Records are
// immutable once written; statistics are aggregated on read.
type Telemetry struct {
	db  *store.DB
	log *slog.Logger
}

// New creates a Telemetry recorder backed by the given store.
func New(db *store.DB, log *slog.Logger) *Telemetry {
	return &Telemetry{db: db, log: log.With("component", "telemetry")}
}

// Record appends one model-call outcome. ID and timestamp are filled when
// absent, and cost defaults to EstimateCost when not supplied. Persistence
// failures are logged and swallowed; telemetry must never abort a pipeline.
func (t *Telemetry) Record(rec models.TelemetryRecord) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.TS.IsZero() {
		rec.TS = time.Now().UTC()
	}
	if rec.CostUSD == 0 && rec.Tokens > 0 {
		rec.CostUSD = EstimateCost(rec.Model, rec.Tokens)
	}

	metrics.RecordModelCall(rec.Model, rec.TaskType, rec.Success, float64(rec.LatencyMs)/1000)

	if err := t.db.AppendTelemetry(&rec); err != nil {
		t.log.Warn("telemetry write failed", "model", rec.Model, "error", err)
	}
}

// EstimateCost returns the USD cost of a call given its token count, using
// the static rate table. Unknown models default to 0.005 per 1k tokens.
func EstimateCost(model string, tokens int64) float64 {
	rate, ok := costPer1k[model]
	if !ok {
		rate = defaultCostPer1k
	}
	return float64(tokens) / 1000 * rate
}

// TypeStats is the per-task-type breakdown within a model's stats.
type TypeStats struct {
	Calls       int     `json:"calls"`
	Successes   int     `json:"successes"`
	SuccessRate float64 `json:"successRate"`
}

// ModelStats aggregates every recorded call for one model.
type ModelStats struct {
	Model        string                `json:"model"`
	Provider     string                `json:"provider,omitempty"`
	Calls        int                   `json:"calls"`
	Successes    int                   `json:"successes"`
	Failures     int                   `json:"failures"`
	SuccessRate  float64               `json:"successRate"`
	AvgLatencyMs float64               `json:"avgLatencyMs"`
	TotalTokens  int64                 `json:"totalTokens"`
	TotalCostUSD float64               `json:"totalCostUsd"`
	LastSeen     time.Time             `json:"lastSeen"`
	ByTaskType   map[string]*TypeStats `json:"byTaskType"`
}

// Stats aggregates records per model, optionally filtered to one model.
// The latency mean uses an incremental update so it stays numerically
// stable for long histories.
func (t *Telemetry) Stats(filterModel string) ([]*ModelStats, error) {
	records, err := t.db.ListTelemetry(filterModel)
	if err != nil {
		return nil, err
	}

	byModel := make(map[string]*ModelStats)
	var order []string
	for _, r := range records {
		s, ok := byModel[r.Model]
		if !ok {
			s = &ModelStats{Model: r.Model, Provider: r.Provider, ByTaskType: make(map[string]*TypeStats)}
			byModel[r.Model] = s
			order = append(order, r.Model)
		}

		s.Calls++
		if r.Success {
			s.Successes++
		} else {
			s.Failures++
		}
		// Welford-style running mean: avg += (x - avg) / n
		s.AvgLatencyMs += (float64(r.LatencyMs) - s.AvgLatencyMs) / float64(s.Calls)
		s.TotalTokens += r.Tokens
		s.TotalCostUSD += r.CostUSD
		if r.TS.After(s.LastSeen) {
			s.LastSeen = r.TS
		}

		ts, ok := s.ByTaskType[r.TaskType]
		if !ok {
			ts = &TypeStats{}
			s.ByTaskType[r.TaskType] = ts
		}
		ts.Calls++
		if r.Success {
			ts.Successes++
		}
	}

	out := make([]*ModelStats, 0, len(order))
	for _, model := range order {
		s := byModel[model]
		if s.Calls > 0 {
			s.SuccessRate = float64(s.Successes) / float64(s.Calls)
		}
		for _, ts := range s.ByTaskType {
			if ts.Calls > 0 {
				ts.SuccessRate = float64(ts.Successes) / float64(ts.Calls)
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// EffectiveRate returns the routing success rate for a model profile on a
// task type: the empirical pair ratio once at least minEmpiricalCalls calls
// exist, otherwise the profile's static prior.
func (t *Telemetry) EffectiveRate(m *models.ModelProfile, taskType string) float64 {
	calls, successes, err := t.db.PairCalls(m.ID, taskType)
	if err != nil {
		t.log.Warn("pair stats read failed", "model", m.ID, "error", err)
		return m.SuccessRate
	}
	if calls >= minEmpiricalCalls {
		return float64(successes) / float64(calls)
	}
	return m.SuccessRate
}

// Score is the routing score: effective success rate per dollar.
func Score(rate, costPer1k float64) float64 {
	return rate / (costPer1k + scoreEpsilon)
}

// BestModel returns the candidate with the highest success-rate-per-dollar
// score for the task type. It only ever returns a profile from candidates;
// nil means the list was empty.
func (t *Telemetry) BestModel(taskType string, candidates []*models.ModelProfile) *models.ModelProfile {
	var best *models.ModelProfile
	bestScore := -1.0
	for _, c := range candidates {
		score := Score(t.EffectiveRate(c, taskType), c.CostPer1k)
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best
}
