package orchestrator

import (
	"fmt"

	"github.com/example/maestro/internal/gateway"
	"github.com/example/maestro/pkg/models"
)

// plannerMessages builds the planning prompt. code_edit tasks ask for a
// change plan; everything else asks for ordered steps.
func plannerMessages(task *models.Task) []gateway.Message {
	var system, user string
	if task.Type == "code_edit" {
		system = `You are a software planning assistant. Respond with a single JSON object: {"approach": string, "changes": [string], "risks": [string]}. No prose outside the JSON.`
		user = fmt.Sprintf("Plan this code change:\n\n%s", task.Description)
	} else {
		system = `You are a task planning assistant. Respond with a single JSON object: {"approach": string, "steps": [string], "risks": [string]}. No prose outside the JSON.`
		user = fmt.Sprintf("Plan this %s task:\n\n%s", task.Type, task.Description)
	}
	return []gateway.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}

// judgeMessages builds the proposal-comparison prompt.
func judgeMessages(task *models.Task, serialized string) []gateway.Message {
	return []gateway.Message{
		{Role: "system", Content: `You compare competing plans. Respond with a single JSON object: {"winner": string, "reason": string}, where winner is the exact model id of the best proposal.`},
		{Role: "user", Content: fmt.Sprintf("Task: %s\n\nProposals:\n%s\n\nPick the best proposal.", task.Description, serialized)},
	}
}

// executorMessages builds the execution prompt from the winning proposal.
func executorMessages(task *models.Task) []gateway.Message {
	return []gateway.Message{
		{Role: "system", Content: `You carry out a planned task. Respond with a single JSON object: {"result": string, "actions_taken": [string], "success": bool}.`},
		{Role: "user", Content: fmt.Sprintf("Task: %s\n\nPlan:\n%s\n\nExecute the plan and report.", task.Description, task.Proposal)},
	}
}

// verifierMessages builds the soft verification prompt.
func verifierMessages(task *models.Task, result string) []gateway.Message {
	return []gateway.Message{
		{Role: "system", Content: `You check whether a result satisfies a task. Respond with a single JSON object: {"passed": bool, "reason": string}.`},
		{Role: "user", Content: fmt.Sprintf("Task: %s\n\nResult:\n%s\n\nDoes the result satisfy the task?", task.Description, result)},
	}
}
