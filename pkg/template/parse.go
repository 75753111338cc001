package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/google/jsonschema-go/jsonschema"
)

// namePattern keeps template names usable as kv key segments and file names.
const namePattern = `^[A-Za-z0-9][A-Za-z0-9_.-]*$`

// Schema returns the JSON schema definitions are validated against.
func Schema() *jsonschema.Schema {
	str := func(pattern string) *jsonschema.Schema {
		return &jsonschema.Schema{Type: "string", MinLength: ptr(1), Pattern: pattern}
	}
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"name", "entities"},
		Properties: map[string]*jsonschema.Schema{
			"name":        str(namePattern),
			"description": {Type: "string"},
			"entities": {
				Type:     "array",
				MinItems: ptr(1),
				Items: &jsonschema.Schema{
					Type:     "object",
					Required: []string{"id"},
					Properties: map[string]*jsonschema.Schema{
						"id":       str(""),
						"category": {Type: "string"},
						"type":     {Type: "string"},
						"props": {
							Type: "object",
							AdditionalProperties: &jsonschema.Schema{
								Types: []string{"string", "number", "boolean", "null"},
							},
						},
						"where": {Type: "object"},
					},
					AdditionalProperties: falseSchema(),
				},
			},
			"relationships": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type:     "object",
					Required: []string{"source", "target", "label"},
					Properties: map[string]*jsonschema.Schema{
						"id":     {Type: "string"},
						"source": str(""),
						"target": str(""),
						"label":  str(""),
					},
					AdditionalProperties: falseSchema(),
				},
			},
		},
		AdditionalProperties: falseSchema(),
	}
}

func ptr[T any](v T) *T { return &v }

func falseSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}

var resolved = sync.OnceValues(func() (*jsonschema.Resolved, error) {
	return Schema().Resolve(nil)
})

// Parse decodes a definition from YAML or JSON, chosen by the filename
// extension (YAML when unknown), validates it against Schema and compiles it.
func Parse(data []byte, filename string) (*Template, error) {
	def, err := Decode(data, filename)
	if err != nil {
		return nil, err
	}
	return Compile(def)
}

// Decode decodes and schema-checks a definition without compiling it.
func Decode(data []byte, filename string) (Definition, error) {
	var raw any
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		err = json.Unmarshal(data, &raw)
	default:
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return Definition{}, fmt.Errorf("%w: %s: %v", ErrInvalid, filename, err)
	}

	// Round-trip through JSON so the validator and the typed decoder both
	// see plain JSON values regardless of the source format.
	doc, err := json.Marshal(raw)
	if err != nil {
		return Definition{}, fmt.Errorf("%w: %s: %v", ErrInvalid, filename, err)
	}
	var inst any
	if err := json.Unmarshal(doc, &inst); err != nil {
		return Definition{}, fmt.Errorf("%w: %s: %v", ErrInvalid, filename, err)
	}
	rs, err := resolved()
	if err != nil {
		return Definition{}, fmt.Errorf("template: resolve schema: %w", err)
	}
	if err := rs.Validate(inst); err != nil {
		return Definition{}, fmt.Errorf("%w: %s: %v", ErrInvalid, filename, err)
	}

	var def Definition
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(&def); err != nil {
		return Definition{}, fmt.Errorf("%w: %s: %v", ErrInvalid, filename, err)
	}
	for i := range def.Entities {
		def.Entities[i].Where = plain(def.Entities[i].Where)
	}
	return def, nil
}

// plain replaces json.Number with int64 or float64 so the value survives a
// msgpack round trip with its numeric type.
func plain(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, e := range x {
			x[k] = plain(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = plain(e)
		}
		return x
	default:
		return v
	}
}

// MarshalYAML encodes def as YAML.
func MarshalYAML(def Definition) ([]byte, error) {
	return yaml.Marshal(def)
}
