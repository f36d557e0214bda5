package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/aymanbagabas/go-udiff"
)

// Diff renders a unified diff between a checkpoint's snapshot and the
// current worktree, one hunk set per changed file.
func (m *Manager) Diff(ctx context.Context, cp *Checkpoint) (string, error) {
	namesOut, err := m.git(ctx, "diff", "--name-only", cp.StashSHA)
	if err != nil {
		return "", err
	}
	if namesOut == "" {
		return "", nil
	}

	var out strings.Builder
	for _, name := range strings.Split(namesOut, "\n") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		// Either side may be missing: added or deleted since the snapshot.
		snapshotted, err := m.gitRaw(ctx, "show", cp.StashSHA+":"+name)
		if err != nil {
			snapshotted = ""
		}

		current := ""
		if data, err := os.ReadFile(filepath.Join(m.repoRoot, name)); err == nil {
			current = string(data)
		}

		if snapshotted == current {
			continue
		}

		out.WriteString(udiff.Unified("checkpoint/"+name, "worktree/"+name, ensureTrailingNewline(snapshotted), ensureTrailingNewline(current)))
	}

	return out.String(), nil
}

func ensureTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
