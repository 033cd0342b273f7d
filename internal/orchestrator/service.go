// Package orchestrator owns the task pipeline: planning, the approval
// checkpoint, execution and verification, with every model call routed
// through the registry-backed router and recorded to telemetry.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/maestro/internal/approval"
	"github.com/example/maestro/internal/config"
	"github.com/example/maestro/internal/gateway"
	"github.com/example/maestro/internal/metrics"
	"github.com/example/maestro/internal/registry"
	"github.com/example/maestro/internal/router"
	"github.com/example/maestro/internal/store"
	"github.com/example/maestro/internal/telemetry"
	"github.com/example/maestro/pkg/models"
)

// chatTaskType tags planning, judging and verifier calls in telemetry, so
// they don't pollute the per-task-type routing statistics of the task itself.
const chatTaskType = "ai-chat"

// run tracks one in-flight pipeline invocation for a task.
type run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Service owns the orchestration engine state: the task store, model
// registry, telemetry log and approval gate. It is constructed once and
// passed by reference to the transport layer.
type Service struct {
	db   *store.DB
	reg  *registry.Registry
	tel  *telemetry.Telemetry
	rtr  *router.Router
	gate *approval.Gate
	gw   gateway.Gateway
	cfg  config.EngineConfig
	log  *slog.Logger

	mu   sync.Mutex
	runs map[string]*run
}

// New assembles the orchestration service. The gateway should already be
// wrapped with the configured per-call timeout.
func New(cfg config.EngineConfig, db *store.DB, reg *registry.Registry, tel *telemetry.Telemetry, rtr *router.Router, gate *approval.Gate, gw gateway.Gateway, log *slog.Logger) *Service {
	return &Service{
		db:   db,
		reg:  reg,
		tel:  tel,
		rtr:  rtr,
		gate: gate,
		gw:   gw,
		cfg:  cfg,
		log:  log.With("component", "orchestrator"),
		runs: make(map[string]*run),
	}
}

// Config returns the engine configuration the service was built with.
func (s *Service) Config() config.EngineConfig {
	return s.cfg
}

// Gate exposes the approval gate for the transport layer.
func (s *Service) Gate() *approval.Gate {
	return s.gate
}

// Submit validates and persists a new task, then starts its pipeline in the
// background. Validation failure is the only synchronous error; everything
// downstream surfaces on the task itself.
func (s *Service) Submit(taskType, description string, autonomy models.Autonomy) (*models.Task, error) {
	if taskType == "" {
		return nil, fmt.Errorf("type is required")
	}
	if description == "" {
		return nil, fmt.Errorf("description is required")
	}
	if autonomy == "" {
		autonomy = models.AutonomyAssisted
	}
	if !autonomy.Valid() {
		return nil, fmt.Errorf("invalid autonomy %q", autonomy)
	}

	now := time.Now().UTC()
	task := &models.Task{
		ID:          uuid.NewString(),
		Type:        taskType,
		Description: description,
		Autonomy:    autonomy,
		Status:      models.TaskStatusPending,
		Created:     now,
		Updated:     now,
	}
	if err := s.db.SaveTask(task); err != nil {
		return nil, fmt.Errorf("persist task: %w", err)
	}

	s.log.Info("task submitted", "id", task.ID, "type", taskType, "autonomy", autonomy)
	s.start(task.ID, task.Generation)
	return task, nil
}

// Get returns a task by ID.
func (s *Service) Get(id string) (*models.Task, error) {
	return s.db.GetTask(id)
}

// List returns tasks newest first, optionally filtered by status.
func (s *Service) List(status models.TaskStatus, limit int) ([]*models.Task, int, error) {
	return s.db.ListTasks(status, limit)
}

// Retry resets a task to pending and re-runs the pipeline on the same task.
// Prior proposals are kept; result and error are cleared. The generation
// bump fences out any still-running pipeline for the old generation, and
// its in-flight calls are cancelled outright.
func (s *Service) Retry(id string) (*models.Task, error) {
	s.cancelRun(id)

	task, err := s.mutate(id, func(t *models.Task) {
		t.Generation++
		t.Status = models.TaskStatusPending
		t.Result = ""
		t.Error = ""
		t.ApprovalID = ""
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("task retried", "id", id, "generation", task.Generation)
	s.start(task.ID, task.Generation)
	return task, nil
}

// Cancel marks a task failed and aborts its in-flight pipeline run, if any.
// The generation bump guarantees a run that slips past the context cancel
// still cannot overwrite the cancelled state.
func (s *Service) Cancel(id string) (*models.Task, error) {
	s.cancelRun(id)

	task, err := s.mutate(id, func(t *models.Task) {
		t.Generation++
		t.Status = models.TaskStatusFailed
		t.Error = "Cancelled by user"
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTaskTerminal(string(models.TaskStatusFailed))
	s.log.Info("task cancelled", "id", id)
	return task, nil
}

// Wait returns a channel closed when the task's current pipeline run
// finishes. A task with no run in flight gets an already-closed channel.
func (s *Service) Wait(id string) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.runs[id]; ok {
		return r.done
	}
	ch := make(chan struct{})
	close(ch)
	return ch
}

// start launches a pipeline run for the task at the given generation.
func (s *Service) start(id string, gen int) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &run{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.runs[id] = r
	s.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			s.mu.Lock()
			if s.runs[id] == r {
				delete(s.runs, id)
			}
			s.mu.Unlock()
			close(r.done)
		}()
		s.runPipeline(ctx, id, gen)
	}()
}

// cancelRun aborts the task's in-flight run, if any, and waits for it to
// unwind so the caller's subsequent write cannot race it.
func (s *Service) cancelRun(id string) {
	s.mu.Lock()
	r, ok := s.runs[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	r.cancel()
	<-r.done
}

// mutate applies fn to the stored task and persists it, under the service
// lock so concurrent mutations serialize.
func (s *Service) mutate(id string, fn func(*models.Task)) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.db.GetTask(id)
	if err != nil {
		return nil, err
	}
	fn(task)
	task.Updated = time.Now().UTC()
	if err := s.db.SaveTask(task); err != nil {
		return nil, fmt.Errorf("persist task: %w", err)
	}
	return task, nil
}

// advance is the generation-fenced variant of mutate used by pipeline runs.
// A run holding a stale generation gets ok=false and must stop touching the
// task; someone retried or cancelled it out from under the run.
func (s *Service) advance(id string, gen int, fn func(*models.Task)) (*models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.db.GetTask(id)
	if err != nil {
		s.log.Warn("task read failed mid-pipeline", "id", id, "error", err)
		return nil, false
	}
	if task.Generation != gen {
		s.log.Info("stale pipeline write fenced", "id", id, "generation", gen, "current", task.Generation)
		return nil, false
	}
	fn(task)
	task.Updated = time.Now().UTC()
	if err := s.db.SaveTask(task); err != nil {
		s.log.Warn("task write failed mid-pipeline", "id", id, "error", err)
		return nil, false
	}
	return task, true
}

// fail marks the task failed with a message, generation-fenced.
func (s *Service) fail(id string, gen int, msg string) {
	if _, ok := s.advance(id, gen, func(t *models.Task) {
		t.Status = models.TaskStatusFailed
		t.Error = msg
	}); ok {
		metrics.RecordTaskTerminal(string(models.TaskStatusFailed))
		s.log.Info("task failed", "id", id, "error", msg)
	}
}
