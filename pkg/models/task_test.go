package models

import "testing"

func TestTaskStatusValid(t *testing.T) {
	tests := []struct {
		status TaskStatus
		want   bool
	}{
		{TaskStatusPending, true},
		{TaskStatusPlanning, true},
		{TaskStatusProposed, true},
		{TaskStatusExecuting, true},
		{TaskStatusVerifying, true},
		{TaskStatusDone, true},
		{TaskStatusFailed, true},
		{TaskStatusAwaitingApproval, true},
		{TaskStatus("running"), false},
		{TaskStatus(""), false},
	}

	for _, tt := range tests {
		if got := tt.status.Valid(); got != tt.want {
			t.Errorf("TaskStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	tests := []struct {
		status TaskStatus
		want   bool
	}{
		{TaskStatusDone, true},
		{TaskStatusFailed, true},
		{TaskStatusPending, false},
		{TaskStatusAwaitingApproval, false},
		{TaskStatusExecuting, false},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("TaskStatus(%q).Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestAutonomyValid(t *testing.T) {
	valid := []Autonomy{AutonomySupervised, AutonomyAssisted, AutonomyAutonomous}
	for _, a := range valid {
		if !a.Valid() {
			t.Errorf("Autonomy(%q).Valid() = false, want true", a)
		}
	}
	if Autonomy("manual").Valid() {
		t.Error("Autonomy(\"manual\").Valid() = true, want false")
	}
}
