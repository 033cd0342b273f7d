package orchestrator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/maestro/pkg/models"
)

// ProposeResult is the outcome of an ad-hoc proposal round.
type ProposeResult struct {
	Proposals []models.Proposal `json:"proposals"`
	Winner    string            `json:"winner"`
}

// Propose runs a synchronous proposal round outside any task: fan out to
// the named models (or every enabled planner when none are named), judge if
// two or more succeed, and return everything. Used by the transport layer
// for plan previews.
func (s *Service) Propose(ctx context.Context, taskType, description string, modelIDs []string) (*ProposeResult, error) {
	if description == "" {
		return nil, fmt.Errorf("description is required")
	}
	if taskType == "" {
		taskType = "general"
	}

	planners, err := s.proposeCandidates(modelIDs)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		ID:          "propose-" + time.Now().UTC().Format("20060102150405"),
		Type:        taskType,
		Description: description,
	}

	results := make([]*models.Proposal, len(planners))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range planners {
		g.Go(func() error {
			reply, call, err := s.callModel(gctx, m.ID, plannerMessages(task))
			s.recordCall(m.ID, m.Provider, chatTaskType, call, err)
			if err != nil {
				return nil
			}
			results[i] = &models.Proposal{Model: m.ID, Proposal: reply, Parsed: ParseOutput(reply).Parsed}
			return nil
		})
	}
	_ = g.Wait() // goroutines swallow call failures and return nil

	var proposals []models.Proposal
	for _, r := range results {
		if r != nil {
			proposals = append(proposals, *r)
		}
	}
	if len(proposals) == 0 {
		return nil, fmt.Errorf("no model produced a proposal")
	}

	winner := proposals[0]
	if len(proposals) >= 2 {
		winner = s.judge(ctx, task, proposals)
	}
	return &ProposeResult{Proposals: proposals, Winner: winner.Model}, nil
}

// proposeCandidates resolves the model list for a proposal round.
func (s *Service) proposeCandidates(modelIDs []string) ([]*models.ModelProfile, error) {
	if len(modelIDs) == 0 {
		planners, err := s.enabledPlanners()
		if err != nil {
			return nil, err
		}
		if len(planners) == 0 {
			return nil, fmt.Errorf("no enabled planner model")
		}
		return planners, nil
	}

	out := make([]*models.ModelProfile, 0, len(modelIDs))
	for _, id := range modelIDs {
		m, err := s.reg.Get(id)
		if err != nil {
			return nil, fmt.Errorf("unknown model %q", id)
		}
		out = append(out, m)
	}
	return out, nil
}
