package config

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// projectConfigSchema describes the shape LoadFile validates a decoded
// config against before merging it over Default() — required field types
// and the pillar-weight numeric ranges, per SPEC_FULL.md §2. This plays
// the role the teacher's internal/config/validator.go's hand-written field
// checks play, generalized into a schema-driven check for the richer
// config surface this package adds.
var projectConfigSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"project_type": {
			Type: "string",
			Enum: []any{
				"", "web", "interpreter", "compiler", "library", "framework",
				"cli", "kernel", "game", "data_science", "mobile",
			},
		},
		"detectors": {
			Type: "object",
			AdditionalProperties: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"enabled":  {Type: "boolean"},
					"severity": {Type: "string"},
					"thresholds": {
						Type:                 "object",
						AdditionalProperties: &jsonschema.Schema{},
					},
				},
			},
		},
		"scoring": {
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"securitymultiplier": {Type: "number", Minimum: jsonschema.Ptr(0.0)},
				"pillarweights": {
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"structure":    {Type: "number", Minimum: jsonschema.Ptr(0.0), Maximum: jsonschema.Ptr(1.0)},
						"quality":      {Type: "number", Minimum: jsonschema.Ptr(0.0), Maximum: jsonschema.Ptr(1.0)},
						"architecture": {Type: "number", Minimum: jsonschema.Ptr(0.0), Maximum: jsonschema.Ptr(1.0)},
					},
				},
			},
		},
		"exclude": {
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"paths":         {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
				"skip_defaults": {Type: "boolean"},
			},
		},
		"defaults": {
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"format":         {Type: "string", Enum: []any{"text", "json", "sarif", "html", "markdown"}},
				"severity":       {Type: "string"},
				"workers":        {Type: "integer", Minimum: jsonschema.Ptr(0.0)},
				"per_page":       {Type: "integer", Minimum: jsonschema.Ptr(1.0)},
				"skip_detectors": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
				"thorough":       {Type: "boolean"},
				"no_git":         {Type: "boolean"},
				"no_emoji":       {Type: "boolean"},
				"fail_on":        {Type: "string"},
			},
		},
	},
}

// ValidateSchema checks a decoded (but not yet defaults-merged) config
// document against projectConfigSchema. Called before LoadFile merges the
// document over Default() so an invalid document never silently succeeds
// by having its bad fields overwritten with defaults.
func ValidateSchema(raw map[string]any) error {
	resolved, err := projectConfigSchema.Resolve(nil)
	if err != nil {
		return err
	}
	return resolved.Validate(raw)
}
