package skills

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontmatterSchema(t *testing.T) {
	data, err := FrontmatterSchema()
	require.NoError(t, err)

	var schema map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &schema))

	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok)
	for _, field := range []string{"name", "description", "layer", "risk", "allowed-tools", "requires", "enables", "soft_requires", "trust", "version"} {
		assert.Contains(t, props, field)
	}

	required, ok := schema["required"].([]interface{})
	require.True(t, ok)
	assert.Contains(t, required, "name")
	assert.Contains(t, required, "description")

	// Unknown keys are rejected, matching the strict loader.
	assert.Equal(t, false, schema["additionalProperties"])
}
