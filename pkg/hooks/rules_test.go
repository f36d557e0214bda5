package hooks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRules(t *testing.T) {
	path := writeRules(t, `name: fintech
default: allow
rules:
  - pattern: "rm -rf"
    action: block
    reason: destructive delete
  - pattern: "^deploy"
    action: allow
`)

	rs, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, "fintech", rs.Name)
	assert.Equal(t, ActionAllow, rs.Default)
	require.Len(t, rs.Rules, 2)
	assert.Equal(t, "destructive delete", rs.Rules[0].Reason)
}

func TestLoadRules_DefaultsToAllow(t *testing.T) {
	path := writeRules(t, `rules:
  - pattern: "x"
    action: block
`)

	rs, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, ActionAllow, rs.Default)
}

func TestLoadRules_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "bad pattern",
			content: `rules:
  - pattern: "[unclosed"
    action: block
`,
			wantErr: "invalid pattern",
		},
		{
			name: "bad action",
			content: `rules:
  - pattern: "x"
    action: maybe
`,
			wantErr: `invalid action "maybe"`,
		},
		{
			name:    "bad default",
			content: "default: shrug\n",
			wantErr: `invalid default action "shrug"`,
		},
		{
			name:    "unknown field",
			content: "patterns: []\n",
			wantErr: "invalid rule file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRules(writeRules(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRuleSet_Evaluate(t *testing.T) {
	rs, err := LoadRules(writeRules(t, `name: fintech
default: allow
rules:
  - pattern: "rm -rf /"
    action: block
    reason: refusing to wipe the filesystem
  - pattern: "^git push --force"
    action: block
  - pattern: "^git"
    action: allow
`))
	require.NoError(t, err)

	t.Run("block with reason", func(t *testing.T) {
		d := rs.Evaluate("rm -rf / --no-preserve-root")
		assert.False(t, d.Allowed)
		assert.Equal(t, "rules/fintech", d.Gate)
		assert.Equal(t, "refusing to wipe the filesystem", d.Reason)
	})

	t.Run("block without reason falls back to pattern", func(t *testing.T) {
		d := rs.Evaluate("git push --force origin main")
		assert.False(t, d.Allowed)
		assert.Contains(t, d.Reason, "matched pattern")
	})

	t.Run("first match wins", func(t *testing.T) {
		// "^git" allow comes after the force-push block, so it never
		// rescues a force push.
		d := rs.Evaluate("git status")
		assert.True(t, d.Allowed)
	})

	t.Run("default fallthrough", func(t *testing.T) {
		d := rs.Evaluate("cat README.md")
		assert.True(t, d.Allowed)
	})
}

func TestRuleSet_Evaluate_DefaultBlock(t *testing.T) {
	rs, err := LoadRules(writeRules(t, `default: block
rules:
  - pattern: "^cat "
    action: allow
`))
	require.NoError(t, err)

	assert.True(t, rs.Evaluate("cat README.md").Allowed)

	d := rs.Evaluate("curl http://example.com")
	assert.False(t, d.Allowed)
	assert.Equal(t, "rules", d.Gate)
	assert.Contains(t, d.Reason, "default is block")
}
