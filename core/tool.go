package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
)

var systemOutputPrompt = `
When you have gathered enough information, reply with a single JSON object and nothing else.
The object must match the following JSON schema named "{{schema_name}}":
<output_schema>
{{schema}}
</output_schema>
Every property listed under "required" must be present. Respect every minimum, maximum,
minItems and maxItems constraint. Do not wrap the JSON in markdown.
`

type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	ToolName  string `json:"tool_name"`
	Arguments string `json:"arguments"`
}

func GetOutputPrompt(format OutputFormat) string {
	return ReplaceLabels(systemOutputPrompt, map[string]string{
		"schema_name": format.Name,
		"schema":      string(format.Schema),
	})
}

// ReplaceLabels substitutes every {{key}} in template. Keys are applied in
// sorted order so that rendering is deterministic.
func ReplaceLabels(template string, replacements map[string]string) string {
	keys := make([]string, 0, len(replacements))
	for key := range replacements {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		placeholder := "{{" + key + "}}"
		template = strings.ReplaceAll(template, placeholder, replacements[key])
	}
	return template
}

var reflector = &jsonschema.Reflector{
	DoNotReference: true,
	ExpandedStruct: true,
}

var schemaCache sync.Map

// ReflectSchema returns the inline JSON schema of v's type. Results are cached per type.
func ReflectSchema(v any) *jsonschema.Schema {
	t := reflect.TypeOf(v)
	if cached, ok := schemaCache.Load(t); ok {
		return cached.(*jsonschema.Schema)
	}
	schema := reflector.Reflect(v)
	schema.Version = ""
	actual, _ := schemaCache.LoadOrStore(t, schema)
	return actual.(*jsonschema.Schema)
}

// GetSchema reflects the schema of a struct pointer.
func GetSchema(obj any) (*jsonschema.Schema, error) {
	if reflect.ValueOf(obj).Kind() != reflect.Ptr {
		return nil, errors.New("object must be a pointer")
	}
	pointsToValue := reflect.Indirect(reflect.ValueOf(obj))
	switch pointsToValue.Kind() {
	case reflect.Struct:
		return ReflectSchema(obj), nil
	case reflect.Slice:
		return nil, errors.New("slice not supported as an input")
	default:
		return nil, fmt.Errorf("unsupported input kind %s", pointsToValue.Kind())
	}
}

// SchemaMap converts a raw schema into the generic form provider SDKs accept.
func SchemaMap(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{"type": "object", "properties": map[string]any{}}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m, nil
}
