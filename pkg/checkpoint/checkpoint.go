// Package checkpoint snapshots and restores worktree state around risky
// capability invocations. Snapshots use git's stash plumbing (`stash
// create` + `stash store`) so they survive without touching the worktree,
// and metadata rows in SQLite key them by run.
package checkpoint

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/synaptiai/agent-capability-standard/pkg/logger"
)

// Checkpoint is a stored worktree snapshot. For a dirty worktree StashSHA
// is a stash commit; for a clean one it is the HEAD commit the worktree
// matched, marked by Clean.
type Checkpoint struct {
	ID        string    `db:"id"`
	RunID     string    `db:"run_id"`
	Label     string    `db:"label"`
	StashSHA  string    `db:"stash_sha"`
	Clean     bool      `db:"clean"`
	RepoRoot  string    `db:"repo_root"`
	CreatedAt time.Time `db:"created_at"`
}

// Manager creates and restores checkpoints for a single repository.
type Manager struct {
	db       *sqlx.DB
	repoRoot string
}

// NewManager creates a checkpoint manager rooted at repoRoot.
func NewManager(db *sqlx.DB, repoRoot string) *Manager {
	return &Manager{db: db, repoRoot: repoRoot}
}

func (m *Manager) git(ctx context.Context, args ...string) (string, error) {
	out, err := m.gitRaw(ctx, args...)
	return strings.TrimSpace(out), err
}

// gitRaw preserves the command output verbatim, needed when the output is
// file content rather than plumbing metadata.
func (m *Manager) gitRaw(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = m.repoRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", errors.Wrapf(err, "git %s failed: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Create snapshots the current worktree state under the given label. The
// worktree is left untouched. A clean worktree is anchored at HEAD so a
// later Restore still has a state to return to.
func (m *Manager) Create(ctx context.Context, runID, label string) (*Checkpoint, error) {
	sha, err := m.git(ctx, "stash", "create", label)
	if err != nil {
		return nil, err
	}

	clean := sha == ""
	if clean {
		sha, err = m.git(ctx, "rev-parse", "HEAD")
		if err != nil {
			return nil, errors.Wrap(err, "worktree is clean and HEAD cannot be resolved")
		}
	} else {
		// Anchor the commit in the stash reflog so gc cannot reap it.
		if _, err := m.git(ctx, "stash", "store", "-m", label, sha); err != nil {
			return nil, err
		}
	}

	cp := &Checkpoint{
		ID:        uuid.NewString(),
		RunID:     runID,
		Label:     label,
		StashSHA:  sha,
		Clean:     clean,
		RepoRoot:  m.repoRoot,
		CreatedAt: time.Now().UTC(),
	}

	if m.db != nil {
		_, err = m.db.NamedExecContext(ctx, `
			INSERT INTO checkpoints (id, run_id, label, stash_sha, clean, repo_root, created_at)
			VALUES (:id, :run_id, :label, :stash_sha, :clean, :repo_root, :created_at)
		`, cp)
		if err != nil {
			return nil, errors.Wrap(err, "failed to store checkpoint metadata")
		}
	}

	logger.G(ctx).WithField("checkpoint", cp.ID).WithField("label", label).Info("checkpoint created")
	return cp, nil
}

// Get returns a checkpoint by id.
func (m *Manager) Get(ctx context.Context, id string) (*Checkpoint, error) {
	if m.db == nil {
		return nil, errors.New("checkpoint store is not configured")
	}

	var cp Checkpoint
	err := m.db.GetContext(ctx, &cp, `
		SELECT id, run_id, label, stash_sha, clean, repo_root, created_at
		FROM checkpoints WHERE id = ?
	`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "checkpoint %s not found", id)
	}
	return &cp, nil
}

// Latest returns the most recent checkpoint of a run, or nil when the run
// has none.
func (m *Manager) Latest(ctx context.Context, runID string) (*Checkpoint, error) {
	if m.db == nil {
		return nil, errors.New("checkpoint store is not configured")
	}

	var cps []Checkpoint
	err := m.db.SelectContext(ctx, &cps, `
		SELECT id, run_id, label, stash_sha, clean, repo_root, created_at
		FROM checkpoints WHERE run_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1
	`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query checkpoints for run %s", runID)
	}
	if len(cps) == 0 {
		return nil, nil
	}
	return &cps[0], nil
}

// List returns all checkpoints, newest first.
func (m *Manager) List(ctx context.Context) ([]Checkpoint, error) {
	if m.db == nil {
		return nil, errors.New("checkpoint store is not configured")
	}

	var cps []Checkpoint
	err := m.db.SelectContext(ctx, &cps, `
		SELECT id, run_id, label, stash_sha, clean, repo_root, created_at
		FROM checkpoints ORDER BY created_at DESC, id DESC
	`)
	return cps, errors.Wrap(err, "failed to list checkpoints")
}

// Restore returns the worktree to the snapshotted state: uncommitted
// changes are discarded and the stash is applied on top of the current
// HEAD. A clean checkpoint resets to its anchor commit instead, since
// there is no stash to apply. Fails when the stash does not apply cleanly.
func (m *Manager) Restore(ctx context.Context, cp *Checkpoint) error {
	if cp.Clean {
		if _, err := m.git(ctx, "reset", "--hard", cp.StashSHA); err != nil {
			return errors.Wrapf(err, "failed to reset worktree to checkpoint %s", cp.ID)
		}
		logger.G(ctx).WithField("checkpoint", cp.ID).Info("checkpoint restored")
		return nil
	}

	if _, err := m.git(ctx, "reset", "--hard"); err != nil {
		return errors.Wrap(err, "failed to reset worktree")
	}
	if _, err := m.git(ctx, "stash", "apply", cp.StashSHA); err != nil {
		return errors.Wrapf(err, "failed to apply checkpoint %s", cp.ID)
	}

	logger.G(ctx).WithField("checkpoint", cp.ID).Info("checkpoint restored")
	return nil
}

// Drop removes a checkpoint's metadata row. The underlying stash commit is
// kept in the reflog until git prunes it.
func (m *Manager) Drop(ctx context.Context, id string) error {
	if m.db == nil {
		return errors.New("checkpoint store is not configured")
	}

	result, err := m.db.ExecContext(ctx, "DELETE FROM checkpoints WHERE id = ?", id)
	if err != nil {
		return errors.Wrapf(err, "failed to drop checkpoint %s", id)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return errors.Errorf("checkpoint %s not found", id)
	}
	return nil
}
