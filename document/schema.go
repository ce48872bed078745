package document

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// DefinitionJSONSchema is the subset of the presentation definition v2 JSON schema
// this module understands.
const DefinitionJSONSchema = `
{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "filter": {
      "type": "object",
      "properties": {
        "type": { "type": "string", "enum": ["string", "number", "integer", "boolean", "array", "object", "null"] },
        "format": { "type": "string" },
        "pattern": { "type": "string" },
        "minLength": { "type": "integer", "minimum": 0 },
        "maxLength": { "type": "integer", "minimum": 0 },
        "minimum": { "type": "number" },
        "maximum": { "type": "number" },
        "exclusiveMinimum": { "type": "number" },
        "exclusiveMaximum": { "type": "number" },
        "enum": { "type": "array", "minItems": 1 },
        "const": {},
        "not": { "type": "object", "minProperties": 1 }
      }
    },
    "jwt_type": {
      "type": "object",
      "properties": {
        "alg": { "type": "array", "minItems": 1, "items": { "type": "string" } }
      },
      "required": ["alg"],
      "additionalProperties": false
    },
    "format": {
      "type": "object",
      "properties": {
        "jwt_vc": { "$ref": "#/definitions/jwt_type" },
        "jwt_vc_json": { "$ref": "#/definitions/jwt_type" },
        "jwt_vp": { "$ref": "#/definitions/jwt_type" }
      },
      "additionalProperties": false
    },
    "field": {
      "type": "object",
      "properties": {
        "id": { "type": "string" },
        "path": { "type": "array", "minItems": 1, "items": { "type": "string", "minLength": 1 } },
        "purpose": { "type": "string" },
        "name": { "type": "string" },
        "optional": { "type": "boolean" },
        "filter": { "$ref": "#/definitions/filter" }
      },
      "required": ["path"],
      "additionalProperties": false
    },
    "input_descriptor": {
      "type": "object",
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "name": { "type": "string" },
        "purpose": { "type": "string" },
        "format": { "$ref": "#/definitions/format" },
        "constraints": {
          "type": "object",
          "properties": {
            "limit_disclosure": { "type": "string", "enum": ["required", "preferred"] },
            "fields": { "type": "array", "items": { "$ref": "#/definitions/field" } }
          },
          "additionalProperties": false
        }
      },
      "required": ["id"],
      "additionalProperties": false
    }
  },
  "type": "object",
  "properties": {
    "id": { "type": "string", "minLength": 1 },
    "name": { "type": "string" },
    "purpose": { "type": "string" },
    "format": { "$ref": "#/definitions/format" },
    "input_descriptors": {
      "type": "array",
      "minItems": 1,
      "items": { "$ref": "#/definitions/input_descriptor" }
    }
  },
  "required": ["id", "input_descriptors"],
  "additionalProperties": false
}`

// SchemaError lists every JSON schema violation of a definition.
type SchemaError struct {
	Errors []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("presentation definition does not match schema: %s", strings.Join(e.Errors, ", "))
}

// ValidateSchema validates the definition against DefinitionJSONSchema.
func (pd *PresentationDefinition) ValidateSchema() error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(DefinitionJSONSchema),
		gojsonschema.NewGoLoader(pd),
	)
	if err != nil {
		return fmt.Errorf("failed to validate presentation definition: %w", err)
	}

	if result.Valid() {
		return nil
	}

	resultErrors := result.Errors()

	errs := make([]string, len(resultErrors))
	for i := range resultErrors {
		errs[i] = resultErrors[i].String()
	}

	return &SchemaError{Errors: errs}
}
