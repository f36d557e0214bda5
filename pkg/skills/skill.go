// Package skills loads and validates capability skill documents. A skill is
// a directory containing a SKILL.md file whose YAML frontmatter declares the
// capability's name, risk, tool allowlist, and dependency edges, and whose
// markdown body carries the instructions.
package skills

import (
	"regexp"

	"github.com/gobwas/glob"
)

const skillFileName = "SKILL.md"

// Layer classifies where a capability sits in the composition hierarchy.
type Layer string

// Layer values, from smallest unit of work to cross-cutting guidance.
const (
	LayerAtomic    Layer = "atomic"
	LayerComposite Layer = "composite"
	LayerWorkflow  Layer = "workflow"
	LayerMeta      Layer = "meta"
)

// Risk classifies how dangerous it is to execute a capability unattended.
type Risk string

// Risk values in ascending order of severity.
const (
	RiskNone     Risk = "none"
	RiskLow      Risk = "low"
	RiskMedium   Risk = "medium"
	RiskHigh     Risk = "high"
	RiskCritical Risk = "critical"
)

var riskRank = map[Risk]int{
	RiskNone:     0,
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskCritical: 4,
}

// Rank returns the ordinal severity of the risk level, or -1 for an
// unknown value.
func (r Risk) Rank() int {
	rank, ok := riskRank[r]
	if !ok {
		return -1
	}
	return rank
}

// AtLeast reports whether r is at or above the given level.
func (r Risk) AtLeast(other Risk) bool {
	return r.Rank() >= other.Rank()
}

// Valid reports whether r is a known risk level.
func (r Risk) Valid() bool {
	_, ok := riskRank[r]
	return ok
}

// Valid reports whether l is a known layer.
func (l Layer) Valid() bool {
	switch l {
	case LayerAtomic, LayerComposite, LayerWorkflow, LayerMeta:
		return true
	}
	return false
}

// nameRE is the grammar for capability names: lowercase alphanumeric
// segments joined by single hyphens.
var nameRE = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidName reports whether name conforms to the capability name grammar.
func ValidName(name string) bool {
	return nameRE.MatchString(name)
}

// Metadata is the YAML frontmatter of a SKILL.md file.
type Metadata struct {
	Name         string   `yaml:"name" json:"name" jsonschema:"required,pattern=^[a-z0-9]+(-[a-z0-9]+)*$"`
	Description  string   `yaml:"description" json:"description" jsonschema:"required"`
	Layer        Layer    `yaml:"layer" json:"layer,omitempty" jsonschema:"enum=atomic,enum=composite,enum=workflow,enum=meta"`
	Risk         Risk     `yaml:"risk" json:"risk,omitempty" jsonschema:"enum=none,enum=low,enum=medium,enum=high,enum=critical"`
	AllowedTools []string `yaml:"allowed-tools" json:"allowed-tools,omitempty"`
	Requires     []string `yaml:"requires" json:"requires,omitempty"`
	Enables      []string `yaml:"enables" json:"enables,omitempty"`
	SoftRequires []string `yaml:"soft_requires" json:"soft_requires,omitempty"`
	Trust        *float64 `yaml:"trust" json:"trust,omitempty" jsonschema:"minimum=0,maximum=1"`
	Version      string   `yaml:"version" json:"version,omitempty"`
}

// Skill is a discovered capability with its parsed frontmatter and body.
type Skill struct {
	Metadata

	// Directory is the full path to the skill directory.
	Directory string
	// Content is the markdown body of SKILL.md with frontmatter stripped.
	Content string

	tools []glob.Glob
}

// EffectiveRisk returns the declared risk, defaulting to low when the
// frontmatter omits it.
func (s *Skill) EffectiveRisk() Risk {
	if s.Risk == "" {
		return RiskLow
	}
	return s.Risk
}

// TrustWeight returns the declared trust weight, defaulting to 1.0.
func (s *Skill) TrustWeight() float64 {
	if s.Trust == nil {
		return 1.0
	}
	return *s.Trust
}

// ToolAllowed reports whether the named tool matches the skill's
// allowed-tools patterns. An empty allowlist admits every tool.
func (s *Skill) ToolAllowed(tool string) bool {
	if len(s.AllowedTools) == 0 {
		return true
	}
	for _, g := range s.toolGlobs() {
		if g.Match(tool) {
			return true
		}
	}
	return false
}

func (s *Skill) toolGlobs() []glob.Glob {
	if s.tools == nil {
		s.tools = make([]glob.Glob, 0, len(s.AllowedTools))
		for _, pattern := range s.AllowedTools {
			g, err := glob.Compile(pattern)
			if err != nil {
				continue
			}
			s.tools = append(s.tools, g)
		}
	}
	return s.tools
}
