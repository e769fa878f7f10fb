package generator

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema reflects T into a strict JSON schema usable as a structured
// output format: every object closed and every property required.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	b, err := schema.MarshalJSON()
	if err != nil {
		panic(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	delete(m, "$schema")
	delete(m, "$id")
	closeObjects(m)
	return m
}

func closeObjects(schema map[string]any) {
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false
		if props, ok := schema["properties"].(map[string]any); ok {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			if len(required) > 0 {
				schema["required"] = required
			}
		}
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		for _, p := range props {
			if pm, ok := p.(map[string]any); ok {
				closeObjects(pm)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		closeObjects(items)
	}
}
