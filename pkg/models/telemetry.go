package models

import "time"

// TelemetryRecord captures the outcome of one completed model call.
// Records are immutable once written and aggregated on read.
type TelemetryRecord struct {
	ID        string    `json:"id"`
	TS        time.Time `json:"ts"`
	Model     string    `json:"model"`
	Provider  string    `json:"provider,omitempty"`
	TaskType  string    `json:"taskType"`
	Success   bool      `json:"success"`
	LatencyMs int64     `json:"latencyMs"`
	Tokens    int64     `json:"tokens,omitempty"`
	CostUSD   float64   `json:"costUsd,omitempty"`
	Error     string    `json:"error,omitempty"`
}
