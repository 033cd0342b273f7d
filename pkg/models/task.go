package models

import "time"

// TaskStatus represents the current state of a task in the pipeline.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has been submitted but not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusPlanning indicates a planner model is producing a proposal.
	TaskStatusPlanning TaskStatus = "planning"
	// TaskStatusProposed indicates planning finished and a proposal was chosen.
	TaskStatusProposed TaskStatus = "proposed"
	// TaskStatusExecuting indicates an executor model is carrying out the proposal.
	TaskStatusExecuting TaskStatus = "executing"
	// TaskStatusVerifying indicates the result is being checked.
	TaskStatusVerifying TaskStatus = "verifying"
	// TaskStatusDone indicates the task completed successfully.
	TaskStatusDone TaskStatus = "done"
	// TaskStatusFailed indicates the task failed or was cancelled.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusAwaitingApproval indicates the pipeline is parked pending a human decision.
	TaskStatusAwaitingApproval TaskStatus = "awaiting_approval"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusPlanning, TaskStatusProposed,
		TaskStatusExecuting, TaskStatusVerifying, TaskStatusDone,
		TaskStatusFailed, TaskStatusAwaitingApproval:
		return true
	default:
		return false
	}
}

// Terminal returns true if no pipeline run will mutate the task further
// without an explicit retry.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusDone || s == TaskStatusFailed
}

// Autonomy controls when human approval is required for a task.
type Autonomy string

const (
	// AutonomySupervised requires approval for every task.
	AutonomySupervised Autonomy = "supervised"
	// AutonomyAssisted requires approval only for high or critical risk tasks.
	AutonomyAssisted Autonomy = "assisted"
	// AutonomyAutonomous never requires approval.
	AutonomyAutonomous Autonomy = "autonomous"
)

// Valid returns true if the autonomy level is a known value.
func (a Autonomy) Valid() bool {
	switch a {
	case AutonomySupervised, AutonomyAssisted, AutonomyAutonomous:
		return true
	default:
		return false
	}
}

// Proposal is one planner's output for a task. Parsed reports whether the
// model returned well-formed JSON or the content is a raw-text fallback.
type Proposal struct {
	Model    string `json:"model"`
	Proposal string `json:"proposal"`
	Parsed   bool   `json:"parsed"`
}

// Task represents a unit of orchestrated work.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Type is the free-form task-type tag used as the routing dimension,
	// e.g. "code_edit", "terminal", "general".
	Type string `json:"type"`
	// Description is the natural-language goal, also the input to risk detection.
	Description string `json:"description"`
	// Autonomy controls when human approval is required.
	Autonomy Autonomy `json:"autonomy"`
	// Status is the current pipeline state.
	Status TaskStatus `json:"status"`
	// Planner, Executor and Verifier record the model IDs actually used
	// for each stage, filled in as the pipeline progresses.
	Planner  string `json:"planner,omitempty"`
	Executor string `json:"executor,omitempty"`
	Verifier string `json:"verifier,omitempty"`
	// Proposal is the winning (or only) plan produced by planning.
	Proposal string `json:"proposal,omitempty"`
	// Proposals holds every planner's output when multiple planners ran.
	Proposals []Proposal `json:"proposals,omitempty"`
	// Result holds the executor output on success; Error holds the failure
	// message. Exactly one is meaningfully populated on terminal states.
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	// ApprovalID is set iff status is awaiting_approval.
	ApprovalID string `json:"approvalId,omitempty"`
	// Created and Updated are timestamps; Updated changes on every mutation.
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
	// Generation increments on every retry or cancellation. A pipeline run
	// holding a stale generation must not write to the task.
	Generation int `json:"-"`
}
