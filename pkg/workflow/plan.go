package workflow

import (
	"github.com/pkg/errors"

	"github.com/synaptiai/agent-capability-standard/pkg/graph"
	"github.com/synaptiai/agent-capability-standard/pkg/skills"
)

// PlanStep is one scheduled capability invocation in a composed plan.
type PlanStep struct {
	Capability string
	Risk       skills.Risk
	Args       map[string]string
	Verify     string
	OnFailure  FailurePolicy
	Retries    int

	// Implicit marks steps pulled in as hard dependencies rather than
	// listed in the workflow document.
	Implicit bool
}

// Plan is the executable expansion of a workflow.
type Plan struct {
	Workflow string
	Steps    []PlanStep
}

// Compose expands the workflow through the capability graph. Each explicit
// step is preceded by its unscheduled hard dependencies in topological
// order; a dependency is scheduled at most once per plan, while explicit
// steps may repeat.
func (w *Workflow) Compose(g *graph.Graph) (*Plan, error) {
	plan := &Plan{Workflow: w.Name}
	scheduled := make(map[string]bool)

	for i, step := range w.Steps {
		skill, ok := g.Get(step.Capability)
		if !ok {
			return nil, errors.Errorf("step %d: unknown capability %q", i+1, step.Capability)
		}

		order, err := g.Order(step.Capability)
		if err != nil {
			return nil, errors.Wrapf(err, "step %d: cannot order dependencies of %q", i+1, step.Capability)
		}

		for _, dep := range order {
			if dep == step.Capability || scheduled[dep] {
				continue
			}
			depSkill, ok := g.Get(dep)
			if !ok {
				return nil, errors.Errorf("step %d: unknown dependency %q", i+1, dep)
			}
			plan.Steps = append(plan.Steps, PlanStep{
				Capability: dep,
				Risk:       depSkill.EffectiveRisk(),
				OnFailure:  FailureAbort,
				Implicit:   true,
			})
			scheduled[dep] = true
		}

		plan.Steps = append(plan.Steps, PlanStep{
			Capability: step.Capability,
			Risk:       skill.EffectiveRisk(),
			Args:       step.Args,
			Verify:     step.Verify,
			OnFailure:  step.Policy(),
			Retries:    step.Retries,
		})
		scheduled[step.Capability] = true
	}

	return plan, nil
}

// MaxRisk returns the highest risk level among the plan's steps.
func (p *Plan) MaxRisk() skills.Risk {
	max := skills.RiskNone
	for _, step := range p.Steps {
		if step.Risk.Rank() > max.Rank() {
			max = step.Risk
		}
	}
	return max
}
