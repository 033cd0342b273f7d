package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/maestro/internal/gateway"
	"github.com/example/maestro/internal/metrics"
	"github.com/example/maestro/pkg/models"
)

// verifyPassScore is the composite verification score a task must reach.
const verifyPassScore = 75

// fatalOutputMarkers fail the terminal-output deterministic check when they
// appear in an executor's result.
var fatalOutputMarkers = []string{
	"command not found",
	"permission denied",
	"no such file or directory",
	"segmentation fault",
	"fatal:",
	"traceback (most recent call last)",
}

// runPipeline drives one task through planning, the approval checkpoint,
// execution and verification. Every stage error is converted into a
// terminal failed task; nothing escapes the pipeline boundary. All writes
// are fenced on gen so a retried or cancelled task is never overwritten.
func (s *Service) runPipeline(ctx context.Context, id string, gen int) {
	task, ok := s.advance(id, gen, func(t *models.Task) {
		t.Status = models.TaskStatusPlanning
	})
	if !ok {
		return
	}

	riskLevel := s.gate.DetectRisk(task.Description)

	// Planning.
	plan, err := s.plan(ctx, task)
	if err != nil {
		s.fail(id, gen, "Planning failed: "+err.Error())
		return
	}
	task, ok = s.advance(id, gen, func(t *models.Task) {
		t.Status = models.TaskStatusProposed
		t.Planner = plan.winner.Model
		t.Proposal = plan.winner.Proposal
		t.Proposals = append(t.Proposals, plan.proposals...)
	})
	if !ok {
		return
	}

	// Approval checkpoint.
	if approvalRequired(task.Autonomy, riskLevel) {
		res := s.gate.Request(ctx, task.Description, task.Proposal, riskLevel, "pipeline", task.ID)
		switch {
		case res.OK:
			// Approved, carry on.
		case res.Status == models.ApprovalRejected:
			s.fail(id, gen, "Approval rejected")
			return
		default:
			s.advance(id, gen, func(t *models.Task) {
				t.Status = models.TaskStatusAwaitingApproval
				t.ApprovalID = res.ApprovalID
			})
			// Parked. Resolution does not auto-resume; the caller retries.
			return
		}
	}

	// Execution.
	task, ok = s.advance(id, gen, func(t *models.Task) {
		t.Status = models.TaskStatusExecuting
	})
	if !ok {
		return
	}
	exec, err := s.execute(ctx, task)
	if err != nil {
		s.fail(id, gen, "Execution failed: "+err.Error())
		return
	}
	task, ok = s.advance(id, gen, func(t *models.Task) {
		t.Executor = exec.modelID
	})
	if !ok {
		return
	}

	// Verification, unless the task is low-risk and global verify is off.
	verified := true
	var failing []string
	if s.cfg.VerifyAllTasks || riskLevel != models.RiskLow {
		task, ok = s.advance(id, gen, func(t *models.Task) {
			t.Status = models.TaskStatusVerifying
		})
		if !ok {
			return
		}
		var verifierID string
		verified, failing, verifierID = s.verify(ctx, task, exec)
		if verifierID != "" {
			task, ok = s.advance(id, gen, func(t *models.Task) {
				t.Verifier = verifierID
			})
			if !ok {
				return
			}
		}
	}

	// The executor outcome is tagged with the task's own type and reflects
	// the verified result, not just whether the call returned.
	s.tel.Record(models.TelemetryRecord{
		Model:     exec.modelID,
		Provider:  exec.provider,
		TaskType:  task.Type,
		Success:   verified,
		LatencyMs: exec.latencyMs,
		Tokens:    exec.tokens,
	})

	if !verified {
		s.fail(id, gen, "Verification failed: "+strings.Join(failing, ", "))
		return
	}

	if _, ok := s.advance(id, gen, func(t *models.Task) {
		t.Status = models.TaskStatusDone
		t.Result = exec.result
	}); ok {
		metrics.RecordTaskTerminal(string(models.TaskStatusDone))
		s.log.Info("task done", "id", id, "executor", exec.modelID)
	}
}

// approvalRequired applies the autonomy policy: supervised tasks always
// need a human; assisted tasks only when the action looks dangerous.
func approvalRequired(a models.Autonomy, r models.Risk) bool {
	switch a {
	case models.AutonomySupervised:
		return true
	case models.AutonomyAssisted:
		return r.AtLeast(models.RiskHigh)
	default:
		return false
	}
}

// planResult carries the planning stage's outcome.
type planResult struct {
	winner    models.Proposal
	proposals []models.Proposal
}

// plan produces the task's proposal. code_edit tasks with parallel
// proposals enabled fan out to every enabled planner and judge the results;
// everything else runs a single planner.
func (s *Service) plan(ctx context.Context, task *models.Task) (*planResult, error) {
	if task.Type == "code_edit" && s.cfg.ParallelProposals {
		planners, err := s.enabledPlanners()
		if err == nil && len(planners) > 1 {
			return s.planParallel(ctx, task, planners)
		}
	}
	return s.planSingle(ctx, task)
}

// enabledPlanners lists every enabled planner-role model, registration order.
func (s *Service) enabledPlanners() ([]*models.ModelProfile, error) {
	all, err := s.reg.List()
	if err != nil {
		return nil, err
	}
	var out []*models.ModelProfile
	for _, m := range all {
		if m.Enabled && m.Role == models.RolePlanner {
			out = append(out, m)
		}
	}
	return out, nil
}

// planSingle runs one planner, selected by the router with a configured
// default as fallback.
func (s *Service) planSingle(ctx context.Context, task *models.Task) (*planResult, error) {
	modelID, provider, err := s.resolveModel(models.RolePlanner, task.Type, s.cfg.DefaultPlanner)
	if err != nil {
		return nil, err
	}

	reply, call, err := s.callModel(ctx, modelID, plannerMessages(task))
	s.recordCall(modelID, provider, chatTaskType, call, err)
	if err != nil {
		return nil, err
	}

	p := models.Proposal{Model: modelID, Proposal: reply, Parsed: ParseOutput(reply).Parsed}
	return &planResult{winner: p, proposals: []models.Proposal{p}}, nil
}

// planParallel fans the planning prompt out to every enabled planner,
// tolerates individual failures, and judges when two or more succeed. It
// errors only when every planner failed.
func (s *Service) planParallel(ctx context.Context, task *models.Task, planners []*models.ModelProfile) (*planResult, error) {
	results := make([]*models.Proposal, len(planners))
	errs := make([]error, len(planners))

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range planners {
		g.Go(func() error {
			reply, call, err := s.callModel(gctx, m.ID, plannerMessages(task))
			s.recordCall(m.ID, m.Provider, chatTaskType, call, err)
			if err != nil {
				// Partial failure is fine as long as one planner delivers.
				errs[i] = err
				return nil
			}
			results[i] = &models.Proposal{Model: m.ID, Proposal: reply, Parsed: ParseOutput(reply).Parsed}
			return nil
		})
	}
	_ = g.Wait() // goroutines stash errors in errs and return nil

	var proposals []models.Proposal
	for _, r := range results {
		if r != nil {
			proposals = append(proposals, *r)
		}
	}
	if len(proposals) == 0 {
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
		return nil, fmt.Errorf("no planner produced a proposal")
	}

	winner := proposals[0]
	if len(proposals) >= 2 {
		winner = s.judge(ctx, task, proposals)
	}
	return &planResult{winner: winner, proposals: proposals}, nil
}

// judge asks a judge-role model, resolved via the router, to pick the best
// proposal. Any failure, parse miss or unknown winner falls back to the
// first proposal.
func (s *Service) judge(ctx context.Context, task *models.Task, proposals []models.Proposal) models.Proposal {
	modelID, provider, err := s.resolveModel(models.RoleJudge, chatTaskType, s.cfg.JudgeModel)
	if err != nil {
		return proposals[0]
	}

	serialized, err := json.Marshal(proposals)
	if err != nil {
		return proposals[0]
	}

	reply, call, err := s.callModel(ctx, modelID, judgeMessages(task, string(serialized)))
	s.recordCall(modelID, provider, chatTaskType, call, err)
	if err != nil {
		return proposals[0]
	}

	winnerID := ParseOutput(reply).String("winner")
	for _, p := range proposals {
		if p.Model == winnerID {
			return p
		}
	}
	return proposals[0]
}

// execResult carries the execution stage's outcome; telemetry for it is
// deferred until verification has decided success or failure.
type execResult struct {
	modelID   string
	provider  string
	result    string
	output    Output
	latencyMs int64
	tokens    int64
}

// execute runs the executor model against the winning proposal.
func (s *Service) execute(ctx context.Context, task *models.Task) (*execResult, error) {
	modelID, provider, err := s.resolveModel(models.RoleExecutor, task.Type, s.cfg.DefaultExecutor)
	if err != nil {
		return nil, err
	}

	reply, call, err := s.callModel(ctx, modelID, executorMessages(task))
	if err != nil {
		s.recordCall(modelID, provider, task.Type, call, err)
		return nil, err
	}

	out := ParseOutput(reply)
	result := reply
	if r := out.String("result"); r != "" {
		result = r
	}
	return &execResult{
		modelID:   modelID,
		provider:  provider,
		result:    result,
		output:    out,
		latencyMs: call.latencyMs,
		tokens:    call.tokens,
	}, nil
}

// verifyCheck is one verification check outcome.
type verifyCheck struct {
	name   string
	passed bool
	detail string
}

// verify runs the deterministic checks plus one soft AI check and scores
// the composite. The AI check never blocks completion: a verifier that is
// down or ungradable counts as passed with a skipped detail.
func (s *Service) verify(ctx context.Context, task *models.Task, exec *execResult) (passed bool, failing []string, verifierID string) {
	checks := []verifyCheck{
		checkNoExplicitError(exec.output),
		checkNonEmptyResult(exec.result),
	}
	if task.Type == "terminal" {
		checks = append(checks, checkTerminalOutput(exec.result))
	}

	aiCheck, verifierID := s.aiVerify(ctx, task, exec.result)
	checks = append(checks, aiCheck)

	passedCount := 0
	for _, c := range checks {
		if c.passed {
			passedCount++
		} else {
			failing = append(failing, c.name)
		}
	}
	score := int(math.Round(100 * float64(passedCount) / float64(len(checks))))

	s.log.Info("verification scored", "task", task.ID, "score", score, "failing", failing)
	return score >= verifyPassScore, failing, verifierID
}

// checkNoExplicitError fails when a structured result declares failure.
// Raw-text results pass; absence of structure is not evidence of failure.
func checkNoExplicitError(out Output) verifyCheck {
	c := verifyCheck{name: "no-explicit-error", passed: true}
	if ok, present := out.Bool("success"); present && !ok {
		c.passed = false
		c.detail = "result reports success=false"
	}
	if e := out.String("error"); e != "" {
		c.passed = false
		c.detail = "result carries error: " + e
	}
	return c
}

// checkNonEmptyResult fails on a blank executor result.
func checkNonEmptyResult(result string) verifyCheck {
	c := verifyCheck{name: "non-empty-result", passed: strings.TrimSpace(result) != ""}
	if !c.passed {
		c.detail = "executor returned nothing"
	}
	return c
}

// checkTerminalOutput fails when a terminal task's output contains a
// fatal-error marker.
func checkTerminalOutput(result string) verifyCheck {
	lower := strings.ToLower(result)
	for _, marker := range fatalOutputMarkers {
		if strings.Contains(lower, marker) {
			return verifyCheck{name: "terminal-output-clean", detail: "output contains " + marker}
		}
	}
	return verifyCheck{name: "terminal-output-clean", passed: true}
}

// aiVerify asks a verifier model whether the result satisfies the task. A
// failed call or an unparseable verdict records the check as passed with a
// skipped detail; verifier unavailability must never fail a task.
func (s *Service) aiVerify(ctx context.Context, task *models.Task, result string) (verifyCheck, string) {
	c := verifyCheck{name: "ai-verdict", passed: true, detail: "skipped"}

	modelID, provider, err := s.resolveModel(models.RoleVerifier, task.Type, s.cfg.DefaultVerifier)
	if err != nil {
		return c, ""
	}

	reply, call, err := s.callModel(ctx, modelID, verifierMessages(task, result))
	s.recordCall(modelID, provider, chatTaskType, call, err)
	if err != nil {
		return c, modelID
	}

	out := ParseOutput(reply)
	verdict, present := out.Bool("passed")
	if !present {
		return c, modelID
	}

	c.passed = verdict
	c.detail = out.String("reason")
	return c, modelID
}

// resolveModel picks a model for a role via the router, falling back to the
// configured default ID. No candidate and no default is a hard stage error.
func (s *Service) resolveModel(role models.Role, taskType, fallback string) (modelID, provider string, err error) {
	m, err := s.rtr.PickModel(role, taskType)
	if err != nil {
		return "", "", err
	}
	if m != nil {
		return m.ID, m.Provider, nil
	}
	if fallback != "" {
		return fallback, s.providerOf(fallback), nil
	}
	return "", "", fmt.Errorf("no enabled %s model", role)
}

// providerOf looks up a model's provider; unknown models report no provider.
func (s *Service) providerOf(modelID string) string {
	if m, err := s.reg.Get(modelID); err == nil {
		return m.Provider
	}
	return ""
}

// callStats is the measured shape of one gateway call.
type callStats struct {
	latencyMs int64
	tokens    int64
}

// callModel performs one gateway chat call and measures it. Token counts
// come from the gateway when it reports them, otherwise a rough estimate
// from payload size.
func (s *Service) callModel(ctx context.Context, modelID string, messages []gateway.Message) (string, callStats, error) {
	start := time.Now()
	reply, err := s.gw.Chat(ctx, modelID, messages)
	stats := callStats{latencyMs: time.Since(start).Milliseconds()}

	if t, ok := s.gw.(gateway.Tokens); ok {
		stats.tokens = t.LastTokens()
	}
	if stats.tokens == 0 {
		stats.tokens = estimateTokens(messages, reply)
	}
	return reply, stats, err
}

// recordCall appends one call outcome to telemetry.
func (s *Service) recordCall(modelID, provider, taskType string, call callStats, err error) {
	rec := models.TelemetryRecord{
		Model:     modelID,
		Provider:  provider,
		TaskType:  taskType,
		Success:   err == nil,
		LatencyMs: call.latencyMs,
		Tokens:    call.tokens,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	s.tel.Record(rec)
}

// estimateTokens roughly sizes a call at four characters per token.
func estimateTokens(messages []gateway.Message, reply string) int64 {
	n := len(reply)
	for _, m := range messages {
		n += len(m.Content)
	}
	return int64(n / 4)
}
