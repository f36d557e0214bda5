// Package workflow loads the workflow catalog and composes workflows into
// executable plans. A workflow is a YAML document naming a sequence of
// capability invocations; composition expands each step through the
// capability graph so hard dependencies execute first.
package workflow

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/synaptiai/agent-capability-standard/pkg/graph"
	"github.com/synaptiai/agent-capability-standard/pkg/profile"
	"github.com/synaptiai/agent-capability-standard/pkg/skills"
)

// CheckpointCapability is the well-known atom that snapshots worktree state.
// A step invoking it satisfies the rollback precondition for later steps.
const CheckpointCapability = "checkpoint"

// FailurePolicy controls what the engine does when a step's verification
// fails.
type FailurePolicy string

// Failure policies.
const (
	FailureRollback FailurePolicy = "rollback"
	FailureAbort    FailurePolicy = "abort"
	FailureContinue FailurePolicy = "continue"
)

// Valid reports whether p is a known failure policy.
func (p FailurePolicy) Valid() bool {
	switch p {
	case FailureRollback, FailureAbort, FailureContinue:
		return true
	}
	return false
}

// Step is one capability invocation in a workflow.
type Step struct {
	Capability string            `yaml:"capability"`
	Args       map[string]string `yaml:"args"`
	Verify     string            `yaml:"verify"`
	OnFailure  FailurePolicy     `yaml:"on_failure"`
	Retries    int               `yaml:"retries"`
}

// Policy returns the step's failure policy, defaulting to abort.
func (s Step) Policy() FailurePolicy {
	if s.OnFailure == "" {
		return FailureAbort
	}
	return s.OnFailure
}

// Workflow is a parsed workflow document.
type Workflow struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	RiskCeiling skills.Risk `yaml:"risk_ceiling"`
	Steps       []Step      `yaml:"steps"`

	// Path is the source file, set by the loader.
	Path string `yaml:"-"`
}

// Load reads a single workflow document.
func Load(path string) (*Workflow, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read workflow")
	}

	var w Workflow
	dec := yaml.NewDecoder(strings.NewReader(string(content)))
	dec.KnownFields(true)
	if err := dec.Decode(&w); err != nil {
		return nil, errors.Wrapf(err, "invalid workflow %s", path)
	}

	w.Path = path
	return &w, nil
}

// LoadDir loads every *.yaml workflow in a directory, keyed by name.
func LoadDir(dir string) (map[string]*Workflow, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*Workflow{}, nil
		}
		return nil, errors.Wrapf(err, "failed to read workflow directory %s", dir)
	}

	catalog := make(map[string]*Workflow)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		w, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if w.Name == "" {
			return nil, errors.Errorf("workflow %s has no name", entry.Name())
		}
		if _, exists := catalog[w.Name]; exists {
			return nil, errors.Errorf("duplicate workflow name %q", w.Name)
		}
		catalog[w.Name] = w
	}
	return catalog, nil
}

// Names returns the catalog's workflow names, sorted.
func Names(catalog map[string]*Workflow) []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks a workflow against the capability graph and the active
// risk policy. All problems are aggregated.
func (w *Workflow) Validate(g *graph.Graph, pol *profile.Profile) error {
	var result *multierror.Error

	if w.Name == "" {
		result = multierror.Append(result, errors.New("workflow name is required"))
	}
	if w.RiskCeiling != "" && !w.RiskCeiling.Valid() {
		result = multierror.Append(result, errors.Errorf("invalid risk_ceiling %q", w.RiskCeiling))
	}
	if len(w.Steps) == 0 {
		result = multierror.Append(result, errors.New("workflow has no steps"))
	}

	checkpointSeen := false
	for i, step := range w.Steps {
		if step.Capability == "" {
			result = multierror.Append(result, errors.Errorf("step %d: capability is required", i+1))
			continue
		}
		skill, ok := g.Get(step.Capability)
		if !ok {
			result = multierror.Append(result, errors.Errorf("step %d: unknown capability %q", i+1, step.Capability))
			continue
		}
		if step.OnFailure != "" && !step.OnFailure.Valid() {
			result = multierror.Append(result, errors.Errorf("step %d: invalid on_failure %q", i+1, step.OnFailure))
		}
		if step.Retries < 0 {
			result = multierror.Append(result, errors.Errorf("step %d: negative retries", i+1))
		}

		risk := skill.EffectiveRisk()
		if w.RiskCeiling != "" && w.RiskCeiling.Valid() {
			if risk.Rank() > w.RiskCeiling.Rank() {
				result = multierror.Append(result, errors.Errorf(
					"step %d: capability %q risk %s exceeds workflow ceiling %s",
					i+1, step.Capability, risk, w.RiskCeiling))
			}

			// Composition pulls hard dependencies into the plan, so they
			// are bound by the ceiling too.
			closure, err := g.Closure(step.Capability)
			if err == nil {
				for _, dep := range closure {
					depSkill, ok := g.Get(dep)
					if !ok {
						continue
					}
					depRisk := depSkill.EffectiveRisk()
					if depRisk.Rank() > w.RiskCeiling.Rank() {
						result = multierror.Append(result, errors.Errorf(
							"step %d: dependency %q of %q risk %s exceeds workflow ceiling %s",
							i+1, dep, step.Capability, depRisk, w.RiskCeiling))
					}
				}
			}
		}

		// Rollback needs a checkpoint in place before the step runs:
		// either an explicit checkpoint step earlier in the sequence, or
		// a risk level where the engine checkpoints automatically.
		if step.Policy() == FailureRollback {
			autoCheckpointed := risk.AtLeast(pol.Thresholds.CheckpointAt)
			if !checkpointSeen && !autoCheckpointed {
				result = multierror.Append(result, errors.Errorf(
					"step %d: on_failure rollback without a prior checkpoint", i+1))
			}
		}

		if step.Capability == CheckpointCapability || skill.EffectiveRisk().AtLeast(pol.Thresholds.CheckpointAt) {
			checkpointSeen = true
		}
	}

	return result.ErrorOrNil()
}

// ValidateCatalog validates every workflow in a catalog, returning problems
// keyed by workflow name.
func ValidateCatalog(catalog map[string]*Workflow, g *graph.Graph, pol *profile.Profile) map[string]error {
	problems := make(map[string]error)
	for name, w := range catalog {
		if err := w.Validate(g, pol); err != nil {
			problems[name] = err
		}
	}
	return problems
}
