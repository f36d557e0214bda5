// Package profile loads domain profiles: named risk-policy documents that
// set approval thresholds, trust overrides, and tool allowlists for the
// invocation engine.
package profile

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/synaptiai/agent-capability-standard/pkg/skills"
)

// Thresholds are the risk cut lines for the invocation engine. Each value
// is a risk level name.
type Thresholds struct {
	// AutoApproveBelow: steps strictly below this risk run without gating.
	AutoApproveBelow skills.Risk `yaml:"auto_approve_below"`
	// CheckpointAt: steps at or above this risk get a checkpoint first.
	CheckpointAt skills.Risk `yaml:"checkpoint_at"`
	// DenyAt: steps at or above this risk are refused outright.
	DenyAt skills.Risk `yaml:"deny_at"`
}

// Profile is a parsed domain profile document.
type Profile struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Thresholds  Thresholds         `yaml:"thresholds"`
	Trust       map[string]float64 `yaml:"trust"`
	Tools       []string           `yaml:"tools"`
}

// Default returns the profile applied when none is configured: gate at
// medium, checkpoint at high, deny critical.
func Default() *Profile {
	return &Profile{
		Name:        "default",
		Description: "built-in default risk policy",
		Thresholds: Thresholds{
			AutoApproveBelow: skills.RiskMedium,
			CheckpointAt:     skills.RiskHigh,
			DenyAt:           skills.RiskCritical,
		},
	}
}

// Validate checks threshold and trust values.
func (p *Profile) Validate() error {
	var result *multierror.Error

	if p.Name == "" {
		result = multierror.Append(result, errors.New("profile name is required"))
	}
	for field, risk := range map[string]skills.Risk{
		"auto_approve_below": p.Thresholds.AutoApproveBelow,
		"checkpoint_at":      p.Thresholds.CheckpointAt,
		"deny_at":            p.Thresholds.DenyAt,
	} {
		if risk != "" && !risk.Valid() {
			result = multierror.Append(result, errors.Errorf("invalid risk %q for %s", risk, field))
		}
	}
	for capability, weight := range p.Trust {
		if weight < 0 || weight > 1 {
			result = multierror.Append(result, errors.Errorf("trust %v for %s out of range [0, 1]", weight, capability))
		}
	}

	return result.ErrorOrNil()
}

// withDefaults fills unset thresholds from the built-in default policy.
func (p *Profile) withDefaults() *Profile {
	def := Default()
	if p.Thresholds.AutoApproveBelow == "" {
		p.Thresholds.AutoApproveBelow = def.Thresholds.AutoApproveBelow
	}
	if p.Thresholds.CheckpointAt == "" {
		p.Thresholds.CheckpointAt = def.Thresholds.CheckpointAt
	}
	if p.Thresholds.DenyAt == "" {
		p.Thresholds.DenyAt = def.Thresholds.DenyAt
	}
	return p
}

// Load reads and validates a profile document.
func Load(path string) (*Profile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read profile")
	}

	var p Profile
	dec := yaml.NewDecoder(strings.NewReader(string(content)))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, errors.Wrapf(err, "invalid profile %s", path)
	}

	if err := p.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid profile %s", path)
	}
	return p.withDefaults(), nil
}

// LoadDir loads every *.yaml profile in a directory, keyed by profile name.
func LoadDir(dir string) (map[string]*Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*Profile{}, nil
		}
		return nil, errors.Wrapf(err, "failed to read profile directory %s", dir)
	}

	profiles := make(map[string]*Profile)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		p, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if _, exists := profiles[p.Name]; exists {
			return nil, errors.Errorf("duplicate profile name %q", p.Name)
		}
		profiles[p.Name] = p
	}
	return profiles, nil
}

// Select returns the named profile from dir, or the built-in default when
// name is empty.
func Select(dir, name string) (*Profile, error) {
	if name == "" {
		return Default(), nil
	}

	profiles, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}

	p, ok := profiles[name]
	if !ok {
		names := make([]string, 0, len(profiles))
		for n := range profiles {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, errors.Errorf("profile %q not found (available: %s)", name, strings.Join(names, ", "))
	}
	return p, nil
}
