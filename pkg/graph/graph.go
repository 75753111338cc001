// Package graph provides the live entity graph: a mutable, directed property
// multigraph of resources and alarms. Vertices are identified by unique string
// ids and carry a small typed core (category, type) plus an open property map.
// Edges connect two vertices with a label naming the relationship kind ("on",
// "contains", "uses"); several edges with different labels may join the same
// ordered pair.
//
// Internally vertices and edges live in slot arenas addressed by integer
// handles (VID, EID) with per-vertex in/out adjacency lists, so id lookups are
// O(1) and neighbor scans are O(degree). Read-only algorithms run inside
// Graph.View, which hands them a lock-free Reader over one consistent snapshot.
package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/haivivi/topograph/pkg/prop"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when a vertex or edge id does not exist.
	ErrNotFound = errors.New("graph: not found")

	// ErrConflict is returned when inserting a vertex id that already exists,
	// or an edge whose id or (source, target, label) triple already exists.
	ErrConflict = errors.New("graph: conflict")
)

// Reserved property names exposing the typed core of vertices and edges to
// predicates. Entries with these names in Props are shadowed.
const (
	KeyID       = "id"
	KeyCategory = "category"
	KeyType     = "type"
	KeyLabel    = "label"
	KeySource   = "source"
	KeyTarget   = "target"
)

// Direction selects which incident edges a traversal follows.
type Direction uint8

const (
	// Both follows incoming and outgoing edges. It is the zero value.
	Both Direction = iota
	// Out follows edges forwards, from source to target.
	Out
	// In follows edges backwards, from target to source.
	In
)

func (d Direction) String() string {
	switch d {
	case Both:
		return "both"
	case Out:
		return "out"
	case In:
		return "in"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// ParseDirection parses "in", "out" or "both" (case-insensitive). The empty
// string is Both.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both":
		return Both, nil
	case "out":
		return Out, nil
	case "in":
		return In, nil
	default:
		return Both, fmt.Errorf("graph: invalid direction %q (expected in|out|both)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Vertex is a resource or alarm in the entity graph.
type Vertex struct {
	// ID is the unique identifier of the vertex.
	ID string `json:"id" yaml:"id"`

	// Category is the coarse class, e.g. "RESOURCE" or "ALARM".
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// Type is the source-specific kind, e.g. "nova.host" or "nagios".
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// Props holds source-specific properties beyond the typed core.
	Props prop.Map `json:"props,omitempty" yaml:"props,omitempty"`
}

// Property returns the named property. The reserved keys id, category and
// type read the typed core; an empty category or type counts as absent.
func (v Vertex) Property(name string) (prop.Value, bool) {
	switch name {
	case KeyID:
		return prop.String(v.ID), true
	case KeyCategory:
		return coreString(v.Category)
	case KeyType:
		return coreString(v.Type)
	}
	return v.Props.Property(name)
}

// PropertyMap returns all properties, core included, as a plain map.
func (v Vertex) PropertyMap() map[string]any {
	m := v.Props.Any()
	m[KeyID] = v.ID
	if v.Category != "" {
		m[KeyCategory] = v.Category
	}
	if v.Type != "" {
		m[KeyType] = v.Type
	}
	return m
}

// Clone returns a copy of v that shares no mutable state with it.
func (v Vertex) Clone() Vertex {
	v.Props = v.Props.Clone()
	return v
}

// Edge is a directed, labeled relationship between two vertices.
type Edge struct {
	// ID is the unique identifier of the edge. AddEdge assigns a UUID when
	// it is empty.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Source is the id of the vertex the edge leaves.
	Source string `json:"source" yaml:"source"`

	// Target is the id of the vertex the edge enters.
	Target string `json:"target" yaml:"target"`

	// Label names the relationship kind.
	Label string `json:"label" yaml:"label"`

	// Props holds additional edge properties.
	Props prop.Map `json:"props,omitempty" yaml:"props,omitempty"`
}

// Property returns the named property. The reserved keys id, label, source
// and target read the edge core.
func (e Edge) Property(name string) (prop.Value, bool) {
	switch name {
	case KeyID:
		return prop.String(e.ID), true
	case KeyLabel:
		return prop.String(e.Label), true
	case KeySource:
		return prop.String(e.Source), true
	case KeyTarget:
		return prop.String(e.Target), true
	}
	return e.Props.Property(name)
}

// PropertyMap returns all properties, core included, as a plain map.
func (e Edge) PropertyMap() map[string]any {
	m := e.Props.Any()
	m[KeyID] = e.ID
	m[KeyLabel] = e.Label
	m[KeySource] = e.Source
	m[KeyTarget] = e.Target
	return m
}

// Clone returns a copy of e that shares no mutable state with it.
func (e Edge) Clone() Edge {
	e.Props = e.Props.Clone()
	return e
}

func coreString(s string) (prop.Value, bool) {
	if s == "" {
		return prop.Value{}, false
	}
	return prop.String(s), true
}
