package hooks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeHook creates an executable hook script that reports hookType for
// the "hook" query and runs body for "run".
func writeHook(t *testing.T, dir, name string, hookType HookType, body string) string {
	t.Helper()
	script := `#!/bin/sh
if [ "$1" = "hook" ]; then
    echo "` + string(hookType) + `"
    exit 0
fi
` + body + "\n"
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestHookType_Constants(t *testing.T) {
	assert.Equal(t, HookType("gate"), HookTypeGate)
	assert.Equal(t, HookType("pre_step"), HookTypePreStep)
	assert.Equal(t, HookType("post_step"), HookTypePostStep)
	assert.Equal(t, HookType("run_end"), HookTypeRunEnd)
}

func TestNewManager_NoHooksDir(t *testing.T) {
	manager, err := NewManager(WithHookDirs(t.TempDir()))
	require.NoError(t, err)
	assert.False(t, manager.HasHooks(HookTypeGate))
	assert.False(t, manager.HasHooks(HookTypePreStep))
	assert.False(t, manager.HasHooks(HookTypePostStep))
	assert.False(t, manager.HasHooks(HookTypeRunEnd))
}

func TestNewManager_NonExistentDir(t *testing.T) {
	manager, err := NewManager(WithHookDirs("/non-existent-dir-12345"))
	require.NoError(t, err)
	assert.False(t, manager.HasHooks(HookTypeGate))
}

func TestDiscovery_WithDefaultDirs(t *testing.T) {
	discovery, err := NewDiscovery(WithDefaultDirs())
	require.NoError(t, err)
	require.Len(t, discovery.hookDirs, 2)
	assert.Equal(t, "./.acst/hooks", discovery.hookDirs[0])
}

func TestDiscoverHooks(t *testing.T) {
	tmpDir := t.TempDir()
	writeHook(t, tmpDir, "approve_all", HookTypeGate, "exit 0")
	writeHook(t, tmpDir, "notify", HookTypeRunEnd, "exit 0")

	manager, err := NewManager(WithHookDirs(tmpDir))
	require.NoError(t, err)
	assert.True(t, manager.HasHooks(HookTypeGate))
	assert.True(t, manager.HasHooks(HookTypeRunEnd))
	assert.False(t, manager.HasHooks(HookTypePreStep))

	gates := manager.GetHooks(HookTypeGate)
	require.Len(t, gates, 1)
	assert.Equal(t, "approve_all", gates[0].Name)
}

func TestDiscoverHooks_SkipsNonExecutable(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "not_a_hook")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho gate\n"), 0o644))

	manager, err := NewManager(WithHookDirs(tmpDir))
	require.NoError(t, err)
	assert.False(t, manager.HasHooks(HookTypeGate))
}

func TestDiscoverHooks_SkipsInvalidType(t *testing.T) {
	tmpDir := t.TempDir()
	writeHook(t, tmpDir, "weird", HookType("on_fire"), "exit 0")

	manager, err := NewManager(WithHookDirs(tmpDir))
	require.NoError(t, err)
	for _, hookType := range []HookType{HookTypeGate, HookTypePreStep, HookTypePostStep, HookTypeRunEnd} {
		assert.False(t, manager.HasHooks(hookType))
	}
}

func TestDiscoverHooks_Precedence(t *testing.T) {
	localDir := t.TempDir()
	globalDir := t.TempDir()
	writeHook(t, localDir, "guard", HookTypeGate, "exit 0")
	writeHook(t, globalDir, "guard", HookTypePreStep, "exit 0")

	manager, err := NewManager(WithHookDirs(localDir, globalDir))
	require.NoError(t, err)
	assert.True(t, manager.HasHooks(HookTypeGate))
	assert.False(t, manager.HasHooks(HookTypePreStep))
}

func TestExecuteGate_Allow(t *testing.T) {
	tmpDir := t.TempDir()
	writeHook(t, tmpDir, "open_gate", HookTypeGate, "exit 0")

	manager, err := NewManager(WithHookDirs(tmpDir))
	require.NoError(t, err)

	decision := manager.ExecuteGate(context.Background(), GatePayload{
		BasePayload: BasePayload{Event: HookTypeGate, RunID: "r1"},
		Capability:  "deploy",
		Risk:        "high",
	})
	assert.True(t, decision.Allowed)
}

func TestExecuteGate_Block(t *testing.T) {
	tmpDir := t.TempDir()
	writeHook(t, tmpDir, "closed_gate", HookTypeGate, `echo "deploys are frozen" >&2
exit 1`)

	manager, err := NewManager(WithHookDirs(tmpDir))
	require.NoError(t, err)

	decision := manager.ExecuteGate(context.Background(), GatePayload{
		Capability: "deploy",
		Risk:       "high",
	})
	assert.False(t, decision.Allowed)
	assert.Equal(t, "closed_gate", decision.Gate)
	assert.Equal(t, "deploys are frozen", decision.Reason)
}

func TestExecuteGate_BlockOnPayloadContent(t *testing.T) {
	tmpDir := t.TempDir()
	// The hook receives the JSON payload on stdin.
	writeHook(t, tmpDir, "no_prod", HookTypeGate, `if grep -q "prod" -; then
    echo "production is gated" >&2
    exit 1
fi
exit 0`)

	manager, err := NewManager(WithHookDirs(tmpDir))
	require.NoError(t, err)

	blocked := manager.ExecuteGate(context.Background(), GatePayload{Payload: "deploy env=prod"})
	assert.False(t, blocked.Allowed)
	assert.Equal(t, "production is gated", blocked.Reason)

	allowed := manager.ExecuteGate(context.Background(), GatePayload{Payload: "deploy env=staging"})
	assert.True(t, allowed.Allowed)
}

func TestExecuteGate_BrokenHookSkipped(t *testing.T) {
	tmpDir := t.TempDir()
	// Exit codes other than 1 are hook failures, not block verdicts.
	writeHook(t, tmpDir, "broken", HookTypeGate, "exit 3")

	manager, err := NewManager(WithHookDirs(tmpDir))
	require.NoError(t, err)

	decision := manager.ExecuteGate(context.Background(), GatePayload{})
	assert.True(t, decision.Allowed)
}

func TestExecutePreStep_Block(t *testing.T) {
	tmpDir := t.TempDir()
	writeHook(t, tmpDir, "veto", HookTypePreStep, `echo "not now" >&2
exit 1`)

	manager, err := NewManager(WithHookDirs(tmpDir))
	require.NoError(t, err)

	decision := manager.ExecutePreStep(context.Background(), StepPayload{Capability: "deploy"})
	assert.False(t, decision.Allowed)
	assert.Equal(t, "not now", decision.Reason)
}

func TestExecutePostStep_IgnoresVerdict(t *testing.T) {
	tmpDir := t.TempDir()
	marker := filepath.Join(tmpDir, "ran")
	writeHook(t, tmpDir, "observer", HookTypePostStep, `touch "`+marker+`"
exit 1`)

	manager, err := NewManager(WithHookDirs(tmpDir))
	require.NoError(t, err)

	manager.ExecutePostStep(context.Background(), StepPayload{Capability: "deploy", Outcome: "ok"})
	assert.FileExists(t, marker)
}

func TestExecuteGate_Timeout(t *testing.T) {
	tmpDir := t.TempDir()
	writeHook(t, tmpDir, "sleeper", HookTypeGate, "sleep 5")

	manager, err := NewManager(WithHookDirs(tmpDir))
	require.NoError(t, err)
	manager.SetTimeout(100 * time.Millisecond)

	start := time.Now()
	decision := manager.ExecuteGate(context.Background(), GatePayload{})
	assert.True(t, decision.Allowed) // timeout is a failure, not a block
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestDecision(t *testing.T) {
	allow := Allow()
	assert.True(t, allow.Allowed)

	block := Block("rules/fintech", "matched a forbidden pattern")
	assert.False(t, block.Allowed)
	assert.Equal(t, "rules/fintech", block.Gate)
	assert.Equal(t, "matched a forbidden pattern", block.Reason)
}
