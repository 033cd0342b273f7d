// Package metrics provides Prometheus metrics for monitoring the
// orchestration engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// modelCallsTotal records every model call made by the pipeline.
	// Labels:
	//   - model: model ID
	//   - task_type: routing dimension ("ai-chat" for planning/judging)
	//   - status: "success" or "failed"
	modelCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maestro_model_calls_total",
			Help: "Total number of model calls",
		},
		[]string{"model", "task_type", "status"},
	)

	// modelCallDuration records model call latency.
	modelCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "maestro_model_call_duration_seconds",
			Help:    "Duration of model calls in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"model", "task_type"},
	)

	// taskTerminalTotal records tasks reaching a terminal state.
	// Labels:
	//   - status: "done" or "failed"
	taskTerminalTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maestro_tasks_terminal_total",
			Help: "Total number of tasks reaching a terminal state",
		},
		[]string{"status"},
	)

	// approvalDecisionsTotal records approval request outcomes.
	// Labels:
	//   - status: "approved", "rejected" or "expired"
	approvalDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maestro_approval_decisions_total",
			Help: "Total number of approval request resolutions",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(modelCallsTotal)
	prometheus.MustRegister(modelCallDuration)
	prometheus.MustRegister(taskTerminalTotal)
	prometheus.MustRegister(approvalDecisionsTotal)
}

// RecordModelCall records one model call outcome.
func RecordModelCall(model, taskType string, success bool, durationSeconds float64) {
	status := "success"
	if !success {
		status = "failed"
	}
	modelCallsTotal.WithLabelValues(model, taskType, status).Inc()
	modelCallDuration.WithLabelValues(model, taskType).Observe(durationSeconds)
}

// RecordTaskTerminal records a task reaching done or failed.
func RecordTaskTerminal(status string) {
	taskTerminalTotal.WithLabelValues(status).Inc()
}

// RecordApprovalDecision records an approval resolution.
func RecordApprovalDecision(status string) {
	approvalDecisionsTotal.WithLabelValues(status).Inc()
}
