package skills

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

// FrontmatterSchema generates the JSON Schema describing SKILL.md
// frontmatter, suitable for editor integration and external validators.
func FrontmatterSchema() ([]byte, error) {
	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}

	schema := reflector.Reflect(&Metadata{})
	schema.Title = "SKILL.md frontmatter"
	schema.AdditionalProperties = jsonschema.FalseSchema

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal schema")
	}
	return out, nil
}
