// Package engine executes composed workflow plans: sequencing capability
// atoms, gating risky steps through the active risk policy and gate hooks,
// checkpointing before dangerous work, rolling back on verification
// failure, and recording every decision in the audit trail.
package engine

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/synaptiai/agent-capability-standard/pkg/audit"
	"github.com/synaptiai/agent-capability-standard/pkg/checkpoint"
	"github.com/synaptiai/agent-capability-standard/pkg/graph"
	"github.com/synaptiai/agent-capability-standard/pkg/hooks"
	"github.com/synaptiai/agent-capability-standard/pkg/logger"
	"github.com/synaptiai/agent-capability-standard/pkg/profile"
	"github.com/synaptiai/agent-capability-standard/pkg/telemetry"
	"github.com/synaptiai/agent-capability-standard/pkg/workflow"
)

// DefaultStepTimeout bounds a single capability runner execution.
const DefaultStepTimeout = 5 * time.Minute

// StepStatus is the outcome of one plan step.
type StepStatus string

// Step outcomes.
const (
	StepOK      StepStatus = "ok"
	StepSkipped StepStatus = "skipped"
	StepFailed  StepStatus = "failed"
	StepBlocked StepStatus = "blocked"
)

// StepResult records what happened to one plan step.
type StepResult struct {
	Capability string
	Status     StepStatus
	Detail     string
}

// RunResult summarizes a workflow run.
type RunResult struct {
	RunID    string
	Workflow string
	Steps    []StepResult
	// Aborted is set when the run stopped before completing the plan.
	Aborted bool
	// RolledBack is set when a failure restored a checkpoint.
	RolledBack bool
}

// Engine executes workflow plans.
type Engine struct {
	graph       *graph.Graph
	policy      *profile.Profile
	hooks       hooks.Manager
	checkpoints *checkpoint.Manager
	trail       *audit.Trail
	ruleSets    []*hooks.RuleSet
	stepTimeout time.Duration
	workdir     string
}

// Option configures an Engine.
type Option func(*Engine)

// WithHooks attaches discovered gate hooks.
func WithHooks(m hooks.Manager) Option {
	return func(e *Engine) { e.hooks = m }
}

// WithRuleSets attaches built-in pattern gates, evaluated before hook gates.
func WithRuleSets(rs ...*hooks.RuleSet) Option {
	return func(e *Engine) { e.ruleSets = append(e.ruleSets, rs...) }
}

// WithCheckpoints attaches the checkpoint manager. Without one, steps that
// require a checkpoint fail closed.
func WithCheckpoints(m *checkpoint.Manager) Option {
	return func(e *Engine) { e.checkpoints = m }
}

// WithAuditTrail attaches the audit trail.
func WithAuditTrail(t *audit.Trail) Option {
	return func(e *Engine) { e.trail = t }
}

// WithStepTimeout overrides the per-step runner timeout.
func WithStepTimeout(d time.Duration) Option {
	return func(e *Engine) { e.stepTimeout = d }
}

// WithWorkdir sets the directory runner and verify commands execute in.
func WithWorkdir(dir string) Option {
	return func(e *Engine) { e.workdir = dir }
}

// New creates an engine bound to a capability graph and risk policy.
func New(g *graph.Graph, policy *profile.Profile, opts ...Option) *Engine {
	e := &Engine{
		graph:       g,
		policy:      policy,
		trail:       audit.NewTrail(nil, ""),
		stepTimeout: DefaultStepTimeout,
		workdir:     ".",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes a plan to completion or first abort. The returned RunResult
// is valid even when err is non-nil.
func (e *Engine) Run(ctx context.Context, plan *workflow.Plan) (*RunResult, error) {
	result := &RunResult{
		RunID:    uuid.NewString(),
		Workflow: plan.Workflow,
	}
	ctx = logger.WithLogger(ctx, logger.G(ctx).WithField("run", result.RunID).WithField("workflow", plan.Workflow))

	e.trail.Append(ctx, audit.Event{RunID: result.RunID, Event: audit.EventRunStart, Detail: plan.Workflow})

	var runErr error
	for _, step := range plan.Steps {
		stepResult, err := e.runStep(ctx, result, step)
		result.Steps = append(result.Steps, stepResult)
		if err != nil {
			result.Aborted = true
			runErr = err
			break
		}
	}

	outcome := "completed"
	if result.Aborted {
		outcome = "aborted"
	}
	e.hooks.ExecuteRunEnd(ctx, hooks.RunEndPayload{
		BasePayload: e.basePayload(hooks.HookTypeRunEnd, result),
		Outcome:     outcome,
		Steps:       len(result.Steps),
	})
	e.trail.Append(ctx, audit.Event{RunID: result.RunID, Event: audit.EventRunEnd, Decision: outcome})

	return result, runErr
}

func (e *Engine) basePayload(event hooks.HookType, result *RunResult) hooks.BasePayload {
	cwd, _ := os.Getwd()
	return hooks.BasePayload{
		Event:    event,
		RunID:    result.RunID,
		Workflow: result.Workflow,
		CWD:      cwd,
	}
}

// runStep takes one step through the full lifecycle: policy, checkpoint,
// gates, runner, verification, failure policy.
func (e *Engine) runStep(ctx context.Context, result *RunResult, step workflow.PlanStep) (StepResult, error) {
	var stepResult StepResult
	err := telemetry.WithSpan(ctx, "engine.step", func(ctx context.Context) error {
		var err error
		stepResult, err = e.runStepInner(ctx, result, step)
		return err
	},
		attribute.String("capability", step.Capability),
		attribute.String("risk", string(step.Risk)),
	)
	return stepResult, err
}

func (e *Engine) runStepInner(ctx context.Context, result *RunResult, step workflow.PlanStep) (StepResult, error) {
	log := logger.G(ctx).WithField("capability", step.Capability).WithField("risk", step.Risk)

	// Hard deny first: no gate can override the policy ceiling.
	if step.Risk.AtLeast(e.policy.Thresholds.DenyAt) {
		detail := "risk " + string(step.Risk) + " at or above policy deny threshold"
		e.trail.Append(ctx, audit.Event{
			RunID: result.RunID, Event: audit.EventGate,
			Capability: step.Capability, Decision: audit.DecisionBlock, Detail: detail,
		})
		return StepResult{Capability: step.Capability, Status: StepBlocked, Detail: detail},
			errors.Errorf("capability %q denied: %s", step.Capability, detail)
	}

	if step.Risk.AtLeast(e.policy.Thresholds.AutoApproveBelow) {
		if decision := e.gate(ctx, result, step); !decision.Allowed {
			detail := decision.Gate + ": " + decision.Reason
			e.trail.Append(ctx, audit.Event{
				RunID: result.RunID, Event: audit.EventGate,
				Capability: step.Capability, Decision: audit.DecisionBlock, Detail: detail,
			})
			return StepResult{Capability: step.Capability, Status: StepBlocked, Detail: detail},
				errors.Errorf("capability %q blocked by %s: %s", step.Capability, decision.Gate, decision.Reason)
		}
		e.trail.Append(ctx, audit.Event{
			RunID: result.RunID, Event: audit.EventGate,
			Capability: step.Capability, Decision: audit.DecisionAllow,
		})
	}

	if veto := e.hooks.ExecutePreStep(ctx, hooks.StepPayload{
		BasePayload: e.basePayload(hooks.HookTypePreStep, result),
		Capability:  step.Capability,
		Risk:        string(step.Risk),
	}); !veto.Allowed {
		detail := veto.Gate + ": " + veto.Reason
		return StepResult{Capability: step.Capability, Status: StepBlocked, Detail: detail},
			errors.Errorf("capability %q vetoed by %s: %s", step.Capability, veto.Gate, veto.Reason)
	}

	// Checkpoint last, once every gate has let the step through, so a
	// blocked step never leaves a stash entry behind.
	if step.Risk.AtLeast(e.policy.Thresholds.CheckpointAt) {
		if err := e.checkpointBefore(ctx, result, step); err != nil {
			return StepResult{Capability: step.Capability, Status: StepFailed, Detail: err.Error()}, err
		}
	}

	outcome, err := e.execute(ctx, result, step)
	if err != nil {
		log.WithError(err).Error("step execution failed")
		e.trail.Append(ctx, audit.Event{
			RunID: result.RunID, Event: audit.EventStep,
			Capability: step.Capability, Decision: audit.DecisionFailed, Detail: err.Error(),
		})
		return e.handleFailure(ctx, result, step, err)
	}

	decision := audit.DecisionOK
	if outcome == StepSkipped {
		decision = audit.DecisionSkipped
	}
	e.trail.Append(ctx, audit.Event{
		RunID: result.RunID, Event: audit.EventStep,
		Capability: step.Capability, Decision: decision,
	})

	if step.Verify != "" {
		if err := e.verify(ctx, result, step); err != nil {
			return e.handleFailure(ctx, result, step, err)
		}
	}

	e.hooks.ExecutePostStep(ctx, hooks.StepPayload{
		BasePayload: e.basePayload(hooks.HookTypePostStep, result),
		Capability:  step.Capability,
		Risk:        string(step.Risk),
		Outcome:     string(outcome),
	})

	return StepResult{Capability: step.Capability, Status: outcome}, nil
}

// checkpointBefore snapshots the worktree ahead of a risky step. A clean
// worktree is anchored at HEAD so rollback still has a state to restore;
// a missing checkpoint manager fails the step.
func (e *Engine) checkpointBefore(ctx context.Context, result *RunResult, step workflow.PlanStep) error {
	if e.checkpoints == nil {
		return errors.Errorf("capability %q requires a checkpoint but no checkpoint manager is configured", step.Capability)
	}

	cp, err := e.checkpoints.Create(ctx, result.RunID, "pre-"+step.Capability)
	if err != nil {
		return errors.Wrapf(err, "failed to checkpoint before %q", step.Capability)
	}

	e.trail.Append(ctx, audit.Event{
		RunID: result.RunID, Event: audit.EventCheckpoint,
		Capability: step.Capability, Decision: audit.DecisionOK, Detail: cp.ID,
	})
	return nil
}

// gate evaluates pattern rule sets then external gate hooks. First block
// wins.
func (e *Engine) gate(ctx context.Context, result *RunResult, step workflow.PlanStep) hooks.Decision {
	payload := gatePayloadString(step)

	for _, rs := range e.ruleSets {
		if decision := rs.Evaluate(payload); !decision.Allowed {
			return decision
		}
	}

	return e.hooks.ExecuteGate(ctx, hooks.GatePayload{
		BasePayload: e.basePayload(hooks.HookTypeGate, result),
		Capability:  step.Capability,
		Risk:        string(step.Risk),
		Payload:     payload,
	})
}

// handleFailure applies the step's failure policy.
func (e *Engine) handleFailure(ctx context.Context, result *RunResult, step workflow.PlanStep, cause error) (StepResult, error) {
	switch step.OnFailure {
	case workflow.FailureContinue:
		logger.G(ctx).WithError(cause).WithField("capability", step.Capability).Warn("step failed, continuing per policy")
		return StepResult{Capability: step.Capability, Status: StepFailed, Detail: cause.Error()}, nil

	case workflow.FailureRollback:
		if err := e.rollback(ctx, result); err != nil {
			return StepResult{Capability: step.Capability, Status: StepFailed, Detail: cause.Error()},
				errors.Wrapf(err, "step %q failed and rollback also failed", step.Capability)
		}
		result.RolledBack = true
		return StepResult{Capability: step.Capability, Status: StepFailed, Detail: cause.Error()},
			errors.Wrapf(cause, "step %q failed, checkpoint restored", step.Capability)

	default: // abort
		return StepResult{Capability: step.Capability, Status: StepFailed, Detail: cause.Error()},
			errors.Wrapf(cause, "step %q failed", step.Capability)
	}
}

// rollback restores the latest checkpoint taken during this run.
func (e *Engine) rollback(ctx context.Context, result *RunResult) error {
	if e.checkpoints == nil {
		return errors.New("no checkpoint manager configured")
	}

	cp, err := e.checkpoints.Latest(ctx, result.RunID)
	if err != nil {
		return err
	}
	if cp == nil {
		return errors.New("no checkpoint exists for this run")
	}

	if err := e.checkpoints.Restore(ctx, cp); err != nil {
		return err
	}

	e.trail.Append(ctx, audit.Event{
		RunID: result.RunID, Event: audit.EventRollback,
		Decision: audit.DecisionOK, Detail: cp.ID,
	})
	return nil
}
