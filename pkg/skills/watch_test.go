package skills

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_InitialValidationAndChange(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeSkill(t, tmpDir, "good", `name: good
description: Fine
`, "body\n")

	discovery, err := NewDiscovery(WithSkillDirs(tmpDir))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results := make(chan []Problem, 4)
	done := make(chan error, 1)
	go func() {
		done <- discovery.Watch(ctx, func(problems []Problem) {
			results <- problems
		})
	}()

	// Initial validation fires immediately with a clean tree.
	select {
	case problems := <-results:
		assert.Empty(t, problems)
	case <-ctx.Done():
		t.Fatal("timed out waiting for initial validation")
	}

	// Breaking the document triggers a revalidation reporting the problem.
	require.NoError(t, os.WriteFile(path, []byte(`---
name: good
description: Fine
risk: absurd
---

body
`), 0o644))

	select {
	case problems := <-results:
		require.Len(t, problems, 1)
		assert.Contains(t, problems[0].Err.Error(), "invalid risk")
		assert.Equal(t, filepath.Join(tmpDir, "good", skillFileName), problems[0].Path)
	case <-ctx.Done():
		t.Fatal("timed out waiting for revalidation")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
