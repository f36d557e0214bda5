package presenter

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	presenter := New()
	assert.NotNil(t, presenter)
	assert.Equal(t, os.Stdout, presenter.output)
	assert.Equal(t, os.Stderr, presenter.errorOutput)
	assert.False(t, presenter.quiet)
}

func TestNewWithOptions(t *testing.T) {
	var output, errorOutput bytes.Buffer
	presenter := NewWithOptions(&output, &errorOutput, ColorNever)

	assert.Equal(t, &output, presenter.output)
	assert.Equal(t, &errorOutput, presenter.errorOutput)
	assert.Equal(t, ColorNever, presenter.colorMode)
}

func TestDetectColorMode(t *testing.T) {
	tests := []struct {
		name      string
		noColor   string
		acstColor string
		expected  ColorMode
	}{
		{"NO_COLOR set", "1", "", ColorNever},
		{"ACST_COLOR always", "", "always", ColorAlways},
		{"ACST_COLOR force", "", "force", ColorAlways},
		{"ACST_COLOR never", "", "never", ColorNever},
		{"ACST_COLOR off", "", "off", ColorNever},
		{"ACST_COLOR auto", "", "auto", ColorAuto},
		{"default", "", "", ColorAuto},
		{"invalid acst color", "", "invalid", ColorAuto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("NO_COLOR")
			os.Unsetenv("ACST_COLOR")

			if tt.noColor != "" {
				os.Setenv("NO_COLOR", tt.noColor)
			}
			if tt.acstColor != "" {
				os.Setenv("ACST_COLOR", tt.acstColor)
			}

			result := detectColorMode()
			assert.Equal(t, tt.expected, result)

			os.Unsetenv("NO_COLOR")
			os.Unsetenv("ACST_COLOR")
		})
	}
}

func TestError(t *testing.T) {
	var errorOutput bytes.Buffer
	presenter := NewWithOptions(nil, &errorOutput, ColorNever)

	err := errors.New("test error")
	presenter.Error(err, "test context")

	output := errorOutput.String()
	assert.Contains(t, output, "[ERROR]")
	assert.Contains(t, output, "test context")
	assert.Contains(t, output, "test error")

	errorOutput.Reset()
	presenter.Error(err, "")

	output = errorOutput.String()
	assert.Contains(t, output, "[ERROR]")
	assert.Contains(t, output, "test error")
	assert.NotContains(t, output, "test context")

	errorOutput.Reset()
	presenter.Error(nil, "context")
	assert.Empty(t, errorOutput.String())
}

func TestSuccess(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)

	presenter.Success("all steps completed")
	assert.Contains(t, output.String(), "✓ all steps completed")
}

func TestQuietModeSuppresses(t *testing.T) {
	var output, errorOutput bytes.Buffer
	presenter := NewWithOptions(&output, &errorOutput, ColorNever)
	presenter.SetQuiet(true)
	assert.True(t, presenter.IsQuiet())

	presenter.Success("hidden")
	presenter.Warning("hidden")
	presenter.Info("hidden")
	presenter.Section("hidden")
	presenter.Separator()
	presenter.Stats(&RunStats{RunID: "r1"})
	assert.Empty(t, output.String())

	// Errors always show.
	presenter.Error(errors.New("boom"), "")
	assert.Contains(t, errorOutput.String(), "boom")
}

func TestStats(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)

	presenter.Stats(&RunStats{
		RunID:   "run-1",
		Steps:   4,
		OK:      2,
		Skipped: 1,
		Failed:  1,
	})

	text := output.String()
	assert.Contains(t, text, "[Run run-1]")
	assert.Contains(t, text, "Steps: 4")
	assert.Contains(t, text, "OK: 2")
	assert.Contains(t, text, "Skipped: 1")
	assert.NotContains(t, text, "Checkpoint restored")

	output.Reset()
	presenter.Stats(&RunStats{RunID: "run-2", RolledBack: true})
	assert.Contains(t, output.String(), "Checkpoint restored after failure")

	output.Reset()
	presenter.Stats(nil)
	assert.Empty(t, output.String())
}
