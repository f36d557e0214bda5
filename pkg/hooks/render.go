package hooks

import (
	"bytes"
	"text/template"

	"github.com/pkg/errors"
)

// scriptTemplate emits a standalone POSIX gate script with the classic
// convention: payload as the first positional argument, exit 0 to allow,
// exit 1 to block, optional timestamped audit lines when ACST_AUDIT_LOG
// is set.
const scriptTemplate = `#!/bin/sh
# Pattern gate{{if .Name}} "{{.Name}}"{{end}} generated by acst hook render.
# Usage: $0 "<payload>"   exit 0 = allow, exit 1 = block

payload="$1"

audit() {
    if [ -n "$ACST_AUDIT_LOG" ]; then
        printf '%s gate={{.Gate}} decision=%s payload=%s\n' \
            "$(date -u +%Y-%m-%dT%H:%M:%SZ)" "$1" "$payload" >> "$ACST_AUDIT_LOG"
    fi
}
{{range .Rules}}
if printf '%s' "$payload" | grep -Eq -- '{{.Pattern}}'; then
{{- if eq .Action "block"}}
    audit block
    echo '{{.BlockReason}}' >&2
    exit 1
{{- else}}
    audit allow
    exit 0
{{- end}}
fi
{{end}}
{{- if eq .Default "block"}}
audit block
echo 'no rule matched, default is block' >&2
exit 1
{{- else}}
audit allow
exit 0
{{- end}}
`

type renderRule struct {
	Pattern     string
	Action      RuleAction
	BlockReason string
}

// Render materializes the rule set as a POSIX shell script so the gate can
// run where acst is not installed.
func (rs *RuleSet) Render() ([]byte, error) {
	tmpl, err := template.New("gate").Parse(scriptTemplate)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse gate template")
	}

	rules := make([]renderRule, 0, len(rs.Rules))
	for _, rule := range rs.Rules {
		reason := rule.Reason
		if reason == "" {
			reason = "matched pattern " + rule.Pattern
		}
		rules = append(rules, renderRule{
			Pattern:     rule.Pattern,
			Action:      rule.Action,
			BlockReason: reason,
		})
	}

	data := struct {
		Name    string
		Gate    string
		Default RuleAction
		Rules   []renderRule
	}{
		Name:    rs.Name,
		Gate:    rs.gateName(),
		Default: rs.Default,
		Rules:   rules,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, errors.Wrap(err, "failed to render gate script")
	}
	return buf.Bytes(), nil
}
