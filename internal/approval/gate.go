// Package approval implements the risk-triggered human-in-the-loop
// checkpoint that can pause a pipeline pending an external decision.
package approval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/maestro/internal/metrics"
	"github.com/example/maestro/internal/risk"
	"github.com/example/maestro/internal/store"
	"github.com/example/maestro/pkg/models"
)

// NotifyFn synchronously offers a human a decision. It returns the selected
// option, or empty when the human did not answer within the call.
type NotifyFn func(ctx context.Context, message string, options []string) (string, error)

// Config controls gate behavior.
type Config struct {
	// Enabled turns the gate on. A disabled gate approves everything and
	// persists nothing.
	Enabled bool
	// MinRisk is the lowest risk that creates an approval request.
	MinRisk models.Risk
	// AutoApprove approves everything without persistence. Test escape hatch.
	AutoApprove bool
	// Timeout is how long a request stays decidable before expiring.
	Timeout time.Duration
	// Notify, when set, is offered an Approve/Reject choice synchronously
	// at request time.
	Notify NotifyFn
}

// Result is the outcome of a gate request. OK means the action may proceed.
type Result struct {
	OK         bool                  `json:"ok"`
	ApprovalID string                `json:"approvalId,omitempty"`
	Status     models.ApprovalStatus `json:"status,omitempty"`
}

// Gate is the approval checkpoint. Sub-threshold actions pass silently;
// others park behind a persisted ApprovalRequest until a human decides or
// the request expires.
type Gate struct {
	cfg    Config
	db     *store.DB
	policy *risk.Policy
	log    *slog.Logger
}

// New creates a Gate. Zero-value config fields take the documented
// defaults (minRisk high, timeout 10 minutes).
func New(cfg Config, db *store.DB, policy *risk.Policy, log *slog.Logger) *Gate {
	if cfg.MinRisk == "" {
		cfg.MinRisk = models.RiskHigh
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if policy == nil {
		policy = risk.DefaultPolicy()
	}
	return &Gate{cfg: cfg, db: db, policy: policy, log: log.With("component", "approval")}
}

// Config returns the gate's active configuration.
func (g *Gate) Config() Config {
	return g.cfg
}

// SetEnabled toggles the gate at runtime.
func (g *Gate) SetEnabled(enabled bool) {
	g.cfg.Enabled = enabled
}

// SetMinRisk changes the persistence threshold at runtime.
func (g *Gate) SetMinRisk(r models.Risk) {
	g.cfg.MinRisk = r
}

// DetectRisk classifies an action description using the gate's policy.
func (g *Gate) DetectRisk(action string) models.Risk {
	return g.policy.Detect(action)
}

// Request evaluates an action against the gate. When riskLevel is empty it
// is auto-classified from the action text. Sub-threshold, disabled-gate and
// auto-approve paths return OK without creating any persisted request, so
// routine actions leave no audit noise. Otherwise a pending request is
// persisted; a configured notify hook is offered the decision synchronously
// and may resolve it within this call.
func (g *Gate) Request(ctx context.Context, action, payload string, riskLevel models.Risk, requestedBy, taskID string) Result {
	if riskLevel == "" {
		riskLevel = g.policy.Detect(action)
	}

	if !g.cfg.Enabled || !riskLevel.AtLeast(g.cfg.MinRisk) {
		return Result{OK: true}
	}
	if g.cfg.AutoApprove {
		return Result{OK: true}
	}

	now := time.Now().UTC()
	req := &models.ApprovalRequest{
		ID:          uuid.NewString(),
		TaskID:      taskID,
		Action:      action,
		Payload:     payload,
		Risk:        riskLevel,
		RequestedBy: requestedBy,
		Status:      models.ApprovalPending,
		Created:     now,
		ExpiresAt:   now.Add(g.cfg.Timeout),
	}

	if err := g.db.SaveApproval(req); err != nil {
		// Approval persistence is best-effort and must not abort a
		// pipeline; the action stays blocked pending a working store.
		g.log.Warn("approval persist failed", "action", action, "error", err)
		return Result{OK: false, Status: models.ApprovalPending}
	}

	g.log.Info("approval requested", "id", req.ID, "risk", riskLevel, "task", taskID)

	if g.cfg.Notify != nil {
		if res, done := g.notifySync(ctx, req); done {
			return res
		}
	}

	return Result{OK: false, ApprovalID: req.ID, Status: models.ApprovalPending}
}

// notifySync offers the request to the notify hook. Second return is false
// when the human gave no synchronous answer.
func (g *Gate) notifySync(ctx context.Context, req *models.ApprovalRequest) (Result, bool) {
	message := fmt.Sprintf("Approval required (%s risk): %s", req.Risk, req.Action)
	choice, err := g.cfg.Notify(ctx, message, []string{"Approve", "Reject"})
	if err != nil {
		// Notification failures are swallowed; the request stays pending.
		g.log.Warn("approval notify failed", "id", req.ID, "error", err)
		return Result{}, false
	}

	var decision models.ApprovalStatus
	switch choice {
	case "Approve":
		decision = models.ApprovalApproved
	case "Reject":
		decision = models.ApprovalRejected
	default:
		return Result{}, false
	}

	decided, err := g.Decide(req.ID, decision, "", "notify")
	if err != nil {
		g.log.Warn("synchronous decide failed", "id", req.ID, "error", err)
		return Result{}, false
	}
	return Result{
		OK:         decided.Status == models.ApprovalApproved,
		ApprovalID: decided.ID,
		Status:     decided.Status,
	}, true
}

// Decide resolves a pending request. Deciding an already-resolved request
// is a no-op that returns the stored outcome unchanged.
func (g *Gate) Decide(id string, decision models.ApprovalStatus, reason, decidedBy string) (*models.ApprovalRequest, error) {
	if decision != models.ApprovalApproved && decision != models.ApprovalRejected {
		return nil, fmt.Errorf("invalid decision %q", decision)
	}

	req, err := g.Get(id)
	if err != nil {
		return nil, err
	}
	if req.Status != models.ApprovalPending {
		return req, nil
	}

	now := time.Now().UTC()
	req.Status = decision
	req.DecidedAt = &now
	req.DecidedBy = decidedBy
	req.Reason = reason

	if err := g.db.SaveApproval(req); err != nil {
		return nil, fmt.Errorf("persist decision: %w", err)
	}

	metrics.RecordApprovalDecision(string(decision))
	g.log.Info("approval decided", "id", id, "decision", decision, "by", decidedBy)
	return req, nil
}

// Get returns a request by ID, lazily flipping pending requests to expired
// once their TTL has elapsed.
func (g *Gate) Get(id string) (*models.ApprovalRequest, error) {
	req, err := g.db.GetApproval(id)
	if err != nil {
		return nil, err
	}
	return g.expireIfDue(req), nil
}

// Pending returns all non-expired pending requests, newest first.
func (g *Gate) Pending() ([]*models.ApprovalRequest, error) {
	all, err := g.db.ListApprovals(models.ApprovalPending, 0)
	if err != nil {
		return nil, err
	}

	out := make([]*models.ApprovalRequest, 0, len(all))
	for _, req := range all {
		if g.expireIfDue(req).Status == models.ApprovalPending {
			out = append(out, req)
		}
	}
	return out, nil
}

// Audit returns resolved requests newest first, capped at limit (0 = all).
func (g *Gate) Audit(limit int) ([]*models.ApprovalRequest, error) {
	all, err := g.db.ListApprovals("", 0)
	if err != nil {
		return nil, err
	}
	out := make([]*models.ApprovalRequest, 0, len(all))
	for _, req := range all {
		if g.expireIfDue(req).Status == models.ApprovalPending {
			continue
		}
		out = append(out, req)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// expireIfDue flips a pending request to expired once now > expiresAt.
func (g *Gate) expireIfDue(req *models.ApprovalRequest) *models.ApprovalRequest {
	if req.Status != models.ApprovalPending || !time.Now().After(req.ExpiresAt) {
		return req
	}

	req.Status = models.ApprovalExpired
	if err := g.db.SaveApproval(req); err != nil {
		g.log.Warn("approval expiry persist failed", "id", req.ID, "error", err)
	}
	metrics.RecordApprovalDecision(string(models.ApprovalExpired))
	return req
}
