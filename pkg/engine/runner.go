package engine

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"github.com/synaptiai/agent-capability-standard/pkg/audit"
	"github.com/synaptiai/agent-capability-standard/pkg/logger"
	"github.com/synaptiai/agent-capability-standard/pkg/workflow"
)

// runnerFileName is the optional executable a skill directory may carry.
// Skills without one are prose-only and recorded as skipped.
const runnerFileName = "run.sh"

// retryBaseDelay is the initial backoff between runner retries
const retryBaseDelay = 500 * time.Millisecond

// gatePayloadString renders the invocation as the single string pattern
// gates match against: capability name followed by sorted key=value args.
func gatePayloadString(step workflow.PlanStep) string {
	parts := []string{step.Capability}

	keys := make([]string, 0, len(step.Args))
	for key := range step.Args {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		parts = append(parts, key+"="+step.Args[key])
	}

	return strings.Join(parts, " ")
}

// execute runs the step's capability runner if the skill ships one.
func (e *Engine) execute(ctx context.Context, result *RunResult, step workflow.PlanStep) (StepStatus, error) {
	skill, ok := e.graph.Get(step.Capability)
	if !ok {
		return StepFailed, errors.Errorf("unknown capability %q", step.Capability)
	}

	runnerPath := filepath.Join(skill.Directory, runnerFileName)
	info, err := os.Stat(runnerPath)
	if err != nil || info.Mode()&0o111 == 0 {
		logger.G(ctx).WithField("capability", step.Capability).Debug("no runner, prose-only skill skipped")
		return StepSkipped, nil
	}

	env := append(os.Environ(),
		"ACST_RUN_ID="+result.RunID,
		"ACST_WORKFLOW="+result.Workflow,
		"ACST_CAPABILITY="+step.Capability,
		"ACST_RISK="+string(step.Risk),
		"ACST_ALLOWED_TOOLS="+strings.Join(e.allowedTools(skill.AllowedTools), ","),
	)
	for key, value := range step.Args {
		env = append(env, "ACST_ARG_"+strings.ToUpper(strings.ReplaceAll(key, "-", "_"))+"="+value)
	}

	attempts := uint(step.Retries) + 1
	err = retry.Do(
		func() error {
			return e.runCommand(ctx, runnerPath, nil, env)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(retryBaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("capability", step.Capability).
				WithField("attempt", n+1).Warn("runner failed, retrying")
		}),
	)
	if err != nil {
		return StepFailed, errors.Wrapf(err, "runner for %q failed", step.Capability)
	}
	return StepOK, nil
}

// allowedTools intersects the skill's allowlist with the profile's. An
// empty profile list means no narrowing.
func (e *Engine) allowedTools(skillTools []string) []string {
	if len(e.policy.Tools) == 0 {
		return skillTools
	}
	if len(skillTools) == 0 {
		return e.policy.Tools
	}

	allowed := make(map[string]bool, len(e.policy.Tools))
	for _, tool := range e.policy.Tools {
		allowed[tool] = true
	}

	var out []string
	for _, tool := range skillTools {
		if allowed[tool] {
			out = append(out, tool)
		}
	}
	return out
}

// verify runs the step's verification command; failure is reported through
// the audit trail and returned for the failure policy to handle.
func (e *Engine) verify(ctx context.Context, result *RunResult, step workflow.PlanStep) error {
	err := e.runCommand(ctx, "/bin/sh", []string{"-c", step.Verify}, os.Environ())

	event := audit.Event{
		RunID: result.RunID, Event: audit.EventVerify,
		Capability: step.Capability, Decision: audit.DecisionOK,
	}
	if err != nil {
		event.Decision = audit.DecisionFailed
		event.Detail = err.Error()
	}
	e.trail.Append(ctx, event)

	return errors.Wrapf(err, "verification of %q failed", step.Capability)
}

// runCommand executes a command in the engine workdir with the step timeout.
func (e *Engine) runCommand(ctx context.Context, name string, args, env []string) error {
	ctx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.workdir
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return errors.Errorf("%s timed out after %s", name, e.stepTimeout)
		}
		return errors.Wrapf(err, "%s failed: %s", name, strings.TrimSpace(stderr.String()))
	}
	return nil
}
