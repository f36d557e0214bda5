package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synaptiai/agent-capability-standard/pkg/hooks"
)

func TestHookDiscoveryOpts_ConfiguredDirs(t *testing.T) {
	dir := t.TempDir()
	script := `#!/bin/sh
if [ "$1" = "hook" ]; then
    echo "gate"
    exit 0
fi
exit 0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "freeze-gate"), []byte(script), 0o755))

	viper.Set("hook_dirs", []string{dir})
	t.Cleanup(func() { viper.Set("hook_dirs", nil) })

	manager, err := newHookManager()
	require.NoError(t, err)
	assert.True(t, manager.HasHooks(hooks.HookTypeGate))
}

func TestHookDiscoveryOpts_Unconfigured(t *testing.T) {
	viper.Set("hook_dirs", nil)
	assert.Nil(t, hookDiscoveryOpts())
}
