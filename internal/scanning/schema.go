package scanning

import (
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// classificationSchema describes the list the oracle must return.
const classificationSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["line_number", "is_product"],
    "properties": {
      "line_number": {"type": "integer", "minimum": 0},
      "text": {"type": "string"},
      "is_product": {"enum": [0, 1, true, false]}
    }
  }
}`

var compiledClassificationSchema = jsonschema.MustCompileString("classifications.json", classificationSchema)

// validateClassifications checks a decoded classifications value against the schema.
func validateClassifications(v any) error {
	return compiledClassificationSchema.Validate(v)
}
