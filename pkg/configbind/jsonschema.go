package configbind

import (
	"github.com/invopop/jsonschema"
)

// durationPattern matches strings accepted by time.ParseDuration.
const durationPattern = `^-?([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$|^0$`

// JSONSchema describes the flat property set of the schema. Property names
// are relative to the bind prefix.
func (s *Schema) JSONSchema() *jsonschema.Schema {
	props := jsonschema.NewProperties()
	var required []string
	for _, f := range s.fields {
		props.Set(f.Name, f.jsonSchema())
		if f.Required {
			required = append(required, f.Name)
		}
	}

	return &jsonschema.Schema{
		Version:              jsonschema.Version,
		Title:                s.name,
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

func (f Field) jsonSchema() *jsonschema.Schema {
	js := &jsonschema.Schema{
		Description: f.Description,
		WriteOnly:   f.Secret,
	}

	switch f.Kind {
	case KindInt:
		js.Type = "integer"
	case KindBool:
		js.Type = "boolean"
	case KindFloat:
		js.Type = "number"
	case KindStringList:
		js.Type = "array"
		js.Items = &jsonschema.Schema{Type: "string"}
	case KindDuration:
		js.Type = "string"
		js.Pattern = durationPattern
	case KindDataSize:
		js.Type = "string"
		js.Examples = []any{"512MiB", "1GB"}
	default:
		js.Type = "string"
	}

	for _, e := range f.Enum {
		js.Enum = append(js.Enum, e)
	}
	if !f.Secret && f.Default != "" {
		js.Default = f.defaultValue
	}
	return js
}
