// Package template defines RCA templates: small causal patterns such as
// "an alarm on an instance whose host is attached to a switch". A template is
// written as a Definition (YAML or JSON), checked against a JSON schema and
// compiled into a Template, whose vertices carry property constraints and
// whose edges carry the required label and direction.
//
// Templates are grouped in a Library, cached in a kv.Store and shipped as
// bundles on any storage.FileStore.
package template

import (
	"errors"

	"github.com/haivivi/topograph/pkg/prop"
)

// Sentinel errors.
var (
	// ErrInvalid is returned when a definition fails schema or semantic
	// checks.
	ErrInvalid = errors.New("template: invalid definition")

	// ErrNotFound is returned when a named template does not exist.
	ErrNotFound = errors.New("template: not found")

	// ErrExists is returned when adding a template whose name is taken.
	ErrExists = errors.New("template: already exists")
)

// Definition is the serialized form of a template.
type Definition struct {
	Name          string            `json:"name" yaml:"name" msgpack:"name"`
	Description   string            `json:"description,omitempty" yaml:"description,omitempty" msgpack:"description,omitempty"`
	Entities      []EntityDef       `json:"entities" yaml:"entities" msgpack:"entities"`
	Relationships []RelationshipDef `json:"relationships,omitempty" yaml:"relationships,omitempty" msgpack:"relationships,omitempty"`
}

// EntityDef is a template vertex. Category, Type and every entry of Props
// must equal the entity's value; Where is an optional extra predicate in the
// operator-map form accepted by predicate.Parse.
type EntityDef struct {
	ID       string   `json:"id" yaml:"id" msgpack:"id"`
	Category string   `json:"category,omitempty" yaml:"category,omitempty" msgpack:"category,omitempty"`
	Type     string   `json:"type,omitempty" yaml:"type,omitempty" msgpack:"type,omitempty"`
	Props    prop.Map `json:"props,omitempty" yaml:"props,omitempty" msgpack:"props,omitempty"`
	Where    any      `json:"where,omitempty" yaml:"where,omitempty" msgpack:"where,omitempty"`
}

// RelationshipDef is a template edge Source -Label-> Target. An empty ID
// defaults to "<source>_<label>_<target>".
type RelationshipDef struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty" msgpack:"id,omitempty"`
	Source string `json:"source" yaml:"source" msgpack:"source"`
	Target string `json:"target" yaml:"target" msgpack:"target"`
	Label  string `json:"label" yaml:"label" msgpack:"label"`
}

// EdgeID returns the relationship id, applying the default.
func (r RelationshipDef) EdgeID() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Source + "_" + r.Label + "_" + r.Target
}
