package hooks

import (
	"os"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// RuleAction is what a matching rule does with the payload.
type RuleAction string

// Rule actions.
const (
	ActionAllow RuleAction = "allow"
	ActionBlock RuleAction = "block"
)

// Rule is one pattern entry in a rule file.
type Rule struct {
	Pattern string     `yaml:"pattern"`
	Action  RuleAction `yaml:"action"`
	Reason  string     `yaml:"reason"`

	re *regexp.Regexp
}

// RuleSet is a parsed pattern-gate rule file. Rules are evaluated in
// order; the first match decides. No match falls through to Default.
type RuleSet struct {
	Name    string     `yaml:"name"`
	Default RuleAction `yaml:"default"`
	Rules   []Rule     `yaml:"rules"`
}

// LoadRules parses and compiles a rule file.
func LoadRules(path string) (*RuleSet, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read rule file")
	}

	var rs RuleSet
	dec := yaml.NewDecoder(strings.NewReader(string(content)))
	dec.KnownFields(true)
	if err := dec.Decode(&rs); err != nil {
		return nil, errors.Wrapf(err, "invalid rule file %s", path)
	}

	if err := rs.Compile(); err != nil {
		return nil, errors.Wrapf(err, "invalid rule file %s", path)
	}
	return &rs, nil
}

// Compile validates the rule set and compiles its patterns. Required
// before Evaluate when the set was built in code rather than loaded.
func (rs *RuleSet) Compile() error {
	var result *multierror.Error

	if rs.Default == "" {
		rs.Default = ActionAllow
	}
	if rs.Default != ActionAllow && rs.Default != ActionBlock {
		result = multierror.Append(result, errors.Errorf("invalid default action %q", rs.Default))
	}

	for i := range rs.Rules {
		rule := &rs.Rules[i]
		if rule.Action != ActionAllow && rule.Action != ActionBlock {
			result = multierror.Append(result, errors.Errorf("rule %d: invalid action %q", i+1, rule.Action))
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "rule %d: invalid pattern", i+1))
			continue
		}
		rule.re = re
	}

	return result.ErrorOrNil()
}

// gateName identifies the rule set in audit events
func (rs *RuleSet) gateName() string {
	if rs.Name != "" {
		return "rules/" + rs.Name
	}
	return "rules"
}

// Evaluate matches the payload against the rules in order.
func (rs *RuleSet) Evaluate(payload string) Decision {
	for i := range rs.Rules {
		rule := &rs.Rules[i]
		if rule.re == nil || !rule.re.MatchString(payload) {
			continue
		}
		if rule.Action == ActionBlock {
			reason := rule.Reason
			if reason == "" {
				reason = "matched pattern " + rule.Pattern
			}
			return Block(rs.gateName(), reason)
		}
		return Allow()
	}

	if rs.Default == ActionBlock {
		return Block(rs.gateName(), "no rule matched, default is block")
	}
	return Allow()
}
