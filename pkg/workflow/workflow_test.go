package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synaptiai/agent-capability-standard/pkg/graph"
	"github.com/synaptiai/agent-capability-standard/pkg/profile"
	"github.com/synaptiai/agent-capability-standard/pkg/skills"
)

func testGraph(t *testing.T, specs map[string]skills.Metadata) *graph.Graph {
	t.Helper()
	reg := make(map[string]*skills.Skill, len(specs))
	for name, md := range specs {
		md.Name = name
		if md.Description == "" {
			md.Description = name
		}
		reg[name] = &skills.Skill{Metadata: md}
	}
	g, _, err := graph.New(reg)
	require.NoError(t, err)
	return g
}

func writeWorkflow(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeWorkflow(t, tmpDir, "release.yaml", `name: release
description: Cut a release
risk_ceiling: high
steps:
  - capability: run-tests
    verify: "test -f report.xml"
    retries: 2
  - capability: deploy
    args:
      env: staging
    on_failure: rollback
`)

	w, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "release", w.Name)
	assert.Equal(t, skills.RiskHigh, w.RiskCeiling)
	assert.Equal(t, path, w.Path)
	require.Len(t, w.Steps, 2)
	assert.Equal(t, "run-tests", w.Steps[0].Capability)
	assert.Equal(t, 2, w.Steps[0].Retries)
	assert.Equal(t, FailureAbort, w.Steps[0].Policy())
	assert.Equal(t, "staging", w.Steps[1].Args["env"])
	assert.Equal(t, FailureRollback, w.Steps[1].Policy())
}

func TestLoad_UnknownField(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeWorkflow(t, tmpDir, "bad.yaml", `name: bad
stages:
  - capability: x
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid workflow")
}

func TestLoadDir(t *testing.T) {
	tmpDir := t.TempDir()
	writeWorkflow(t, tmpDir, "a.yaml", "name: release\nsteps:\n  - capability: x\n")
	writeWorkflow(t, tmpDir, "b.yaml", "name: hotfix\nsteps:\n  - capability: x\n")
	writeWorkflow(t, tmpDir, "readme.md", "not yaml\n")

	catalog, err := LoadDir(tmpDir)
	require.NoError(t, err)
	assert.Len(t, catalog, 2)
	assert.Equal(t, []string{"hotfix", "release"}, Names(catalog))
}

func TestLoadDir_DuplicateName(t *testing.T) {
	tmpDir := t.TempDir()
	writeWorkflow(t, tmpDir, "a.yaml", "name: release\n")
	writeWorkflow(t, tmpDir, "b.yaml", "name: release\n")

	_, err := LoadDir(tmpDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate workflow name "release"`)
}

func TestValidate(t *testing.T) {
	g := testGraph(t, map[string]skills.Metadata{
		"run-tests":  {Risk: skills.RiskNone},
		"deploy":     {Risk: skills.RiskHigh},
		"release":    {Risk: skills.RiskLow, Requires: []string{"deploy"}},
		"checkpoint": {Risk: skills.RiskNone},
	})
	pol := profile.Default()

	tests := []struct {
		name     string
		workflow *Workflow
		wantErr  string
	}{
		{
			name: "valid",
			workflow: &Workflow{
				Name: "ship",
				Steps: []Step{
					{Capability: "run-tests"},
					{Capability: "deploy"},
				},
			},
		},
		{
			name:     "no name",
			workflow: &Workflow{Steps: []Step{{Capability: "run-tests"}}},
			wantErr:  "workflow name is required",
		},
		{
			name:     "no steps",
			workflow: &Workflow{Name: "empty"},
			wantErr:  "no steps",
		},
		{
			name: "unknown capability",
			workflow: &Workflow{
				Name:  "ship",
				Steps: []Step{{Capability: "teleport"}},
			},
			wantErr: `step 1: unknown capability "teleport"`,
		},
		{
			name: "invalid on_failure",
			workflow: &Workflow{
				Name:  "ship",
				Steps: []Step{{Capability: "run-tests", OnFailure: "panic"}},
			},
			wantErr: `invalid on_failure "panic"`,
		},
		{
			name: "risk above ceiling",
			workflow: &Workflow{
				Name:        "ship",
				RiskCeiling: skills.RiskMedium,
				Steps:       []Step{{Capability: "deploy"}},
			},
			wantErr: `risk high exceeds workflow ceiling medium`,
		},
		{
			name: "dependency risk above ceiling",
			workflow: &Workflow{
				Name:        "ship",
				RiskCeiling: skills.RiskMedium,
				// release itself is low risk, but composition pulls in
				// its hard dependency deploy, which is high.
				Steps: []Step{{Capability: "release"}},
			},
			wantErr: `dependency "deploy" of "release" risk high exceeds workflow ceiling medium`,
		},
		{
			name: "rollback without checkpoint",
			workflow: &Workflow{
				Name:  "ship",
				Steps: []Step{{Capability: "run-tests", OnFailure: FailureRollback}},
			},
			wantErr: "rollback without a prior checkpoint",
		},
		{
			name: "rollback after explicit checkpoint",
			workflow: &Workflow{
				Name: "ship",
				Steps: []Step{
					{Capability: "checkpoint"},
					{Capability: "run-tests", OnFailure: FailureRollback},
				},
			},
		},
		{
			name: "rollback on auto-checkpointed step",
			workflow: &Workflow{
				Name: "ship",
				// deploy is high risk; the default policy checkpoints at
				// high, so rollback is satisfied without an explicit step.
				Steps: []Step{{Capability: "deploy", OnFailure: FailureRollback}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.workflow.Validate(g, pol)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateCatalog(t *testing.T) {
	g := testGraph(t, map[string]skills.Metadata{
		"run-tests": {},
	})

	catalog := map[string]*Workflow{
		"good": {Name: "good", Steps: []Step{{Capability: "run-tests"}}},
		"bad":  {Name: "bad", Steps: []Step{{Capability: "missing"}}},
	}

	problems := ValidateCatalog(catalog, g, profile.Default())
	assert.Len(t, problems, 1)
	assert.Contains(t, problems["bad"].Error(), "unknown capability")
}
