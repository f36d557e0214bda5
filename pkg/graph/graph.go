// Package graph builds the capability ontology: a directed graph of
// capability atoms connected by hard (requires), soft (soft_requires), and
// advisory (enables) edges. It answers dependency closure, deterministic
// execution ordering, and effective trust queries for the composer.
package graph

import (
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/synaptiai/agent-capability-standard/pkg/skills"
)

// Graph is an immutable view over a skill registry's dependency edges.
type Graph struct {
	nodes map[string]*skills.Skill

	requires     map[string][]string
	softRequires map[string][]string
	enables      map[string][]string

	trustOverrides map[string]float64
}

// Option configures graph construction.
type Option func(*Graph)

// WithTrustOverrides substitutes per-capability trust weights, typically
// sourced from the active domain profile.
func WithTrustOverrides(overrides map[string]float64) Option {
	return func(g *Graph) {
		g.trustOverrides = overrides
	}
}

// Warning is a non-fatal ontology inconsistency.
type Warning struct {
	Capability string
	Message    string
}

func (w Warning) String() string {
	return w.Capability + ": " + w.Message
}

// New builds the capability graph from a registry. Unknown hard-dependency
// targets and dependency cycles are errors; unknown soft/enables targets and
// enables edges without a matching back-reference are warnings.
func New(registry map[string]*skills.Skill, opts ...Option) (*Graph, []Warning, error) {
	g := &Graph{
		nodes:        registry,
		requires:     make(map[string][]string),
		softRequires: make(map[string][]string),
		enables:      make(map[string][]string),
	}
	for _, opt := range opts {
		opt(g)
	}

	var (
		result   *multierror.Error
		warnings []Warning
	)

	for name, skill := range registry {
		for _, dep := range skill.Requires {
			if _, ok := registry[dep]; !ok {
				result = multierror.Append(result, errors.Errorf("%s requires unknown capability %q", name, dep))
				continue
			}
			g.requires[name] = append(g.requires[name], dep)
		}
		for _, dep := range skill.SoftRequires {
			if _, ok := registry[dep]; !ok {
				warnings = append(warnings, Warning{name, "soft_requires unknown capability " + dep})
				continue
			}
			g.softRequires[name] = append(g.softRequires[name], dep)
		}
		for _, target := range skill.Enables {
			if _, ok := registry[target]; !ok {
				warnings = append(warnings, Warning{name, "enables unknown capability " + target})
				continue
			}
			g.enables[name] = append(g.enables[name], target)
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		result = multierror.Append(result, errors.Errorf("dependency cycle: %s", strings.Join(cycle, " -> ")))
	}

	warnings = append(warnings, g.lintEnables()...)
	sort.Slice(warnings, func(i, j int) bool {
		if warnings[i].Capability != warnings[j].Capability {
			return warnings[i].Capability < warnings[j].Capability
		}
		return warnings[i].Message < warnings[j].Message
	})

	if err := result.ErrorOrNil(); err != nil {
		return nil, warnings, err
	}
	return g, warnings, nil
}

// lintEnables checks that every enables edge is acknowledged by the target
// through a requires or soft_requires back-reference.
func (g *Graph) lintEnables() []Warning {
	var warnings []Warning
	for name, targets := range g.enables {
		for _, target := range targets {
			if !contains(g.requires[target], name) && !contains(g.softRequires[target], name) {
				warnings = append(warnings, Warning{
					Capability: name,
					Message:    "enables " + target + " but " + target + " does not require it",
				})
			}
		}
	}
	return warnings
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// findCycle walks the hard-dependency edges looking for a cycle, returning
// the member path when one exists.
func (g *Graph) findCycle() []string {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int)
	var stack []string

	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	var visit func(string) []string
	visit = func(name string) []string {
		state[name] = inStack
		stack = append(stack, name)

		deps := append([]string{}, g.requires[name]...)
		sort.Strings(deps)
		for _, dep := range deps {
			switch state[dep] {
			case inStack:
				for i, member := range stack {
					if member == dep {
						return append(append([]string{}, stack[i:]...), dep)
					}
				}
			case unvisited:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[name] = done
		return nil
	}

	for _, name := range names {
		if state[name] == unvisited {
			if cycle := visit(name); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// Get returns the skill backing a capability node.
func (g *Graph) Get(name string) (*skills.Skill, bool) {
	s, ok := g.nodes[name]
	return s, ok
}

// Closure returns the transitive hard-dependency set of a capability,
// excluding the capability itself, sorted by name.
func (g *Graph) Closure(name string) ([]string, error) {
	if _, ok := g.nodes[name]; !ok {
		return nil, errors.Errorf("unknown capability %q", name)
	}

	seen := make(map[string]bool)
	var walk func(string)
	walk = func(n string) {
		for _, dep := range g.requires[n] {
			if !seen[dep] {
				seen[dep] = true
				walk(dep)
			}
		}
	}
	walk(name)
	delete(seen, name)

	closure := make([]string, 0, len(seen))
	for dep := range seen {
		closure = append(closure, dep)
	}
	sort.Strings(closure)
	return closure, nil
}

// Order returns a deterministic execution order covering the given
// capabilities and their hard closures: dependencies first, lexicographic
// tie-breaking. Soft dependencies present in the set are ordered before
// their dependents but never pulled in.
func (g *Graph) Order(names ...string) ([]string, error) {
	include := make(map[string]bool)
	for _, name := range names {
		if _, ok := g.nodes[name]; !ok {
			return nil, errors.Errorf("unknown capability %q", name)
		}
		include[name] = true
		closure, err := g.Closure(name)
		if err != nil {
			return nil, err
		}
		for _, dep := range closure {
			include[dep] = true
		}
	}

	// Kahn's algorithm over the included set; soft edges count only when
	// both endpoints are included.
	indegree := make(map[string]int)
	dependents := make(map[string][]string)
	for name := range include {
		indegree[name] += 0
		for _, dep := range g.requires[name] {
			if include[dep] {
				indegree[name]++
				dependents[dep] = append(dependents[dep], name)
			}
		}
		for _, dep := range g.softRequires[name] {
			if include[dep] {
				indegree[name]++
				dependents[dep] = append(dependents[dep], name)
			}
		}
	}

	var ready []string
	for name, degree := range indegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(include))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		changed := false
		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
				changed = true
			}
		}
		if changed {
			sort.Strings(ready)
		}
	}

	if len(order) != len(include) {
		// Hard cycles are rejected at construction, so only a soft edge
		// interacting with hard edges can get here.
		return nil, errors.New("soft dependency ordering conflicts with hard dependencies")
	}
	return order, nil
}

// Trust returns a capability's own trust weight, honoring profile overrides.
func (g *Graph) Trust(name string) (float64, error) {
	skill, ok := g.nodes[name]
	if !ok {
		return 0, errors.Errorf("unknown capability %q", name)
	}
	if weight, ok := g.trustOverrides[name]; ok {
		return weight, nil
	}
	return skill.TrustWeight(), nil
}

// EffectiveTrust returns the capability's trust combined with its hard
// closure: the atom's weight multiplied by the minimum weight among its
// transitive hard dependencies.
func (g *Graph) EffectiveTrust(name string) (float64, error) {
	own, err := g.Trust(name)
	if err != nil {
		return 0, err
	}

	closure, err := g.Closure(name)
	if err != nil {
		return 0, err
	}

	min := 1.0
	for _, dep := range closure {
		weight, err := g.Trust(dep)
		if err != nil {
			return 0, err
		}
		if weight < min {
			min = weight
		}
	}
	return own * min, nil
}
