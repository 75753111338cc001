package template

import (
	"errors"
	"fmt"

	"github.com/haivivi/topograph/pkg/graph"
	"github.com/haivivi/topograph/pkg/predicate"
	"github.com/haivivi/topograph/pkg/prop"
)

// Template is a compiled, immutable template. Its vertices and edges keep
// definition order, which the matcher uses for tie-breaking and output.
type Template struct {
	def         Definition
	graph       *graph.Graph
	vertices    []graph.Vertex
	edges       []graph.Edge
	constraints map[string]predicate.Expr
}

// Compile checks def and builds its template graph.
func Compile(def Definition) (*Template, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalid)
	}
	if len(def.Entities) == 0 {
		return nil, fmt.Errorf("%w: %s: no entities", ErrInvalid, def.Name)
	}

	t := &Template{
		def:         def,
		graph:       graph.New(),
		constraints: make(map[string]predicate.Expr, len(def.Entities)),
	}
	ids := make(map[string]struct{}, len(def.Entities)+len(def.Relationships))

	for _, ent := range def.Entities {
		if ent.ID == "" {
			return nil, fmt.Errorf("%w: %s: entity without id", ErrInvalid, def.Name)
		}
		if _, dup := ids[ent.ID]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate element id %q", ErrInvalid, def.Name, ent.ID)
		}
		ids[ent.ID] = struct{}{}

		where, err := parseWhere(ent.Where)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: entity %q: %v", ErrInvalid, def.Name, ent.ID, err)
		}
		v := graph.Vertex{ID: ent.ID, Category: ent.Category, Type: ent.Type, Props: ent.Props.Clone()}
		if err := t.graph.AddVertex(v); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, def.Name, err)
		}
		t.vertices = append(t.vertices, v)
		t.constraints[ent.ID] = constraint(ent, where)
	}

	for _, rel := range def.Relationships {
		id := rel.EdgeID()
		if rel.Label == "" {
			return nil, fmt.Errorf("%w: %s: relationship %q without label", ErrInvalid, def.Name, id)
		}
		if _, dup := ids[id]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate element id %q", ErrInvalid, def.Name, id)
		}
		ids[id] = struct{}{}

		e, err := t.graph.AddEdge(graph.Edge{ID: id, Source: rel.Source, Target: rel.Target, Label: rel.Label})
		switch {
		case errors.Is(err, graph.ErrNotFound):
			return nil, fmt.Errorf("%w: %s: relationship %q references an undefined entity", ErrInvalid, def.Name, id)
		case err != nil:
			return nil, fmt.Errorf("%w: %s: relationship %q: %v", ErrInvalid, def.Name, id, err)
		}
		t.edges = append(t.edges, e)
	}
	return t, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(def Definition) *Template {
	t, err := Compile(def)
	if err != nil {
		panic(err)
	}
	return t
}

func parseWhere(raw any) (predicate.Expr, error) {
	if raw == nil {
		return nil, nil
	}
	return predicate.Parse(raw)
}

// constraint is the conjunction of the entity's core and property equalities
// and its where clause.
func constraint(ent EntityDef, where predicate.Expr) predicate.Expr {
	var exprs []predicate.Expr
	if ent.Category != "" {
		exprs = append(exprs, predicate.Equal(graph.KeyCategory, prop.String(ent.Category)))
	}
	if ent.Type != "" {
		exprs = append(exprs, predicate.Equal(graph.KeyType, prop.String(ent.Type)))
	}
	for _, k := range ent.Props.Keys() {
		exprs = append(exprs, predicate.Equal(k, ent.Props[k]))
	}
	exprs = append(exprs, where)
	return predicate.AllOf(exprs...)
}

// Name returns the template name.
func (t *Template) Name() string { return t.def.Name }

// Description returns the free-form description.
func (t *Template) Description() string { return t.def.Description }

// Definition returns the definition t was compiled from.
func (t *Template) Definition() Definition { return t.def }

// Graph returns the template graph. Callers must not modify it.
func (t *Template) Graph() *graph.Graph { return t.graph }

// Vertices returns the template vertices in definition order.
func (t *Template) Vertices() []graph.Vertex { return t.vertices }

// Edges returns the template edges in definition order.
func (t *Template) Edges() []graph.Edge { return t.edges }

// Constraint returns the predicate an entity must satisfy to be mapped onto
// the template vertex id. Nil means unconstrained.
func (t *Template) Constraint(id string) predicate.Expr { return t.constraints[id] }

// Element reports whether id names a template vertex or edge, and which.
func (t *Template) Element(id string) (isVertex, ok bool) {
	if _, err := t.graph.Vertex(id); err == nil {
		return true, true
	}
	if _, err := t.graph.Edge(id); err == nil {
		return false, true
	}
	return false, false
}
