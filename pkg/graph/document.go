package graph

import "fmt"

// Document is the plain vertices/edges form of a graph. It is what fixtures,
// synchronizer dumps and query results are read from and written to.
type Document struct {
	Vertices []Vertex `json:"vertices" yaml:"vertices"`
	Edges    []Edge   `json:"edges,omitempty" yaml:"edges,omitempty"`
}

// FromDocument builds a graph from doc. Vertices are inserted before edges;
// the first duplicate or dangling reference aborts the build.
func FromDocument(doc Document) (*Graph, error) {
	g := New()
	for i, v := range doc.Vertices {
		if err := g.AddVertex(v); err != nil {
			return nil, fmt.Errorf("vertices[%d]: %w", i, err)
		}
	}
	for i, e := range doc.Edges {
		if _, err := g.AddEdge(e); err != nil {
			return nil, fmt.Errorf("edges[%d]: %w", i, err)
		}
	}
	return g, nil
}

// Document returns a copy of g in document form, in slot order.
func (g *Graph) Document() Document {
	return Document{
		Vertices: g.Vertices(),
		Edges:    g.AllEdges(),
	}
}
