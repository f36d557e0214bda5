package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synaptiai/agent-capability-standard/pkg/skills"
)

func TestCompose(t *testing.T) {
	g := testGraph(t, map[string]skills.Metadata{
		"deploy": {Risk: skills.RiskHigh, Requires: []string{"build", "run-tests"}},
		"build":  {Risk: skills.RiskLow, Requires: []string{"fetch"}},
		"run-tests": {
			Risk:     skills.RiskNone,
			Requires: []string{"build"},
		},
		"fetch": {Risk: skills.RiskNone},
	})

	w := &Workflow{
		Name: "ship",
		Steps: []Step{
			{Capability: "deploy", Args: map[string]string{"env": "prod"}, Verify: "true", OnFailure: FailureRollback},
		},
	}

	plan, err := w.Compose(g)
	require.NoError(t, err)
	assert.Equal(t, "ship", plan.Workflow)
	require.Len(t, plan.Steps, 4)

	caps := make([]string, len(plan.Steps))
	for i, step := range plan.Steps {
		caps[i] = step.Capability
	}
	assert.Equal(t, []string{"fetch", "build", "run-tests", "deploy"}, caps)

	for _, step := range plan.Steps[:3] {
		assert.True(t, step.Implicit)
		assert.Equal(t, FailureAbort, step.OnFailure)
	}

	last := plan.Steps[3]
	assert.False(t, last.Implicit)
	assert.Equal(t, skills.RiskHigh, last.Risk)
	assert.Equal(t, "prod", last.Args["env"])
	assert.Equal(t, "true", last.Verify)
	assert.Equal(t, FailureRollback, last.OnFailure)
}

func TestCompose_DependenciesScheduledOnce(t *testing.T) {
	g := testGraph(t, map[string]skills.Metadata{
		"lint":  {Requires: []string{"fetch"}},
		"build": {Requires: []string{"fetch"}},
		"fetch": {},
	})

	w := &Workflow{
		Name: "ci",
		Steps: []Step{
			{Capability: "lint"},
			{Capability: "build"},
		},
	}

	plan, err := w.Compose(g)
	require.NoError(t, err)

	caps := make([]string, len(plan.Steps))
	for i, step := range plan.Steps {
		caps[i] = step.Capability
	}
	assert.Equal(t, []string{"fetch", "lint", "build"}, caps)
}

func TestCompose_ExplicitStepsMayRepeat(t *testing.T) {
	g := testGraph(t, map[string]skills.Metadata{
		"run-tests": {},
	})

	w := &Workflow{
		Name: "flaky",
		Steps: []Step{
			{Capability: "run-tests"},
			{Capability: "run-tests"},
		},
	}

	plan, err := w.Compose(g)
	require.NoError(t, err)
	assert.Len(t, plan.Steps, 2)
}

func TestCompose_UnknownCapability(t *testing.T) {
	g := testGraph(t, map[string]skills.Metadata{})

	w := &Workflow{Name: "x", Steps: []Step{{Capability: "ghost"}}}
	_, err := w.Compose(g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown capability "ghost"`)
}

func TestPlan_MaxRisk(t *testing.T) {
	p := &Plan{Steps: []PlanStep{
		{Risk: skills.RiskLow},
		{Risk: skills.RiskCritical},
		{Risk: skills.RiskMedium},
	}}
	assert.Equal(t, skills.RiskCritical, p.MaxRisk())

	empty := &Plan{}
	assert.Equal(t, skills.RiskNone, empty.MaxRisk())
}
