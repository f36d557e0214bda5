package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/synaptiai/agent-capability-standard/pkg/logger"
)

// blockedError distinguishes a deliberate exit-1 block from hook failure
type blockedError struct {
	reason string
}

func (e blockedError) Error() string { return "blocked: " + e.reason }

// ExecuteGate runs every gate hook with the payload. The first hook that
// exits 1 blocks the step; its stderr is the reason. Hooks that fail for
// other reasons are logged and skipped, keeping a broken hook from
// wedging every run.
func (m Manager) ExecuteGate(ctx context.Context, payload GatePayload) Decision {
	for _, hook := range m.hooks[HookTypeGate] {
		err := m.executeHook(ctx, hook, payload)
		if err == nil {
			continue
		}
		var blocked blockedError
		if errors.As(err, &blocked) {
			return Block(hook.Name, blocked.reason)
		}
		logger.G(ctx).WithError(err).WithField("hook", hook.Name).Warn("gate hook execution failed")
	}
	return Allow()
}

// ExecutePreStep runs pre_step hooks. A block verdict vetoes the step.
func (m Manager) ExecutePreStep(ctx context.Context, payload StepPayload) Decision {
	for _, hook := range m.hooks[HookTypePreStep] {
		err := m.executeHook(ctx, hook, payload)
		if err == nil {
			continue
		}
		var blocked blockedError
		if errors.As(err, &blocked) {
			return Block(hook.Name, blocked.reason)
		}
		logger.G(ctx).WithError(err).WithField("hook", hook.Name).Warn("pre_step hook execution failed")
	}
	return Allow()
}

// ExecutePostStep runs post_step hooks. Verdicts are ignored; these hooks
// observe outcomes.
func (m Manager) ExecutePostStep(ctx context.Context, payload StepPayload) {
	for _, hook := range m.hooks[HookTypePostStep] {
		if err := m.executeHook(ctx, hook, payload); err != nil {
			logger.G(ctx).WithError(err).WithField("hook", hook.Name).Warn("post_step hook execution failed")
		}
	}
}

// ExecuteRunEnd runs run_end hooks.
func (m Manager) ExecuteRunEnd(ctx context.Context, payload RunEndPayload) {
	for _, hook := range m.hooks[HookTypeRunEnd] {
		if err := m.executeHook(ctx, hook, payload); err != nil {
			logger.G(ctx).WithError(err).WithField("hook", hook.Name).Warn("run_end hook execution failed")
		}
	}
}

// executeHook runs a single hook with timeout enforcement. An exit status
// of 1 is a block verdict carried as blockedError; anything else non-zero
// is a hook failure.
func (m Manager) executeHook(ctx context.Context, hook *Hook, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to marshal payload")
	}

	timeout := m.timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, hook.Path, "run")
	cmd.Stdin = bytes.NewReader(payloadBytes)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return errors.Errorf("hook %s timed out after %s", hook.Name, timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			reason := strings.TrimSpace(stderr.String())
			if reason == "" {
				reason = "blocked by " + hook.Name
			}
			return blockedError{reason: reason}
		}
		return errors.Wrapf(err, "hook %s failed: %s", hook.Name, stderr.String())
	}

	return nil
}
