// Package query builds filtered and radius-bounded subgraphs of the entity
// graph. It is the diagnostics/exploration side of the engine: given an
// optional predicate and an optional root vertex, it returns the matching
// vertices together with every edge of the parent graph between them.
package query

import (
	"fmt"

	"github.com/haivivi/topograph/pkg/graph"
	"github.com/haivivi/topograph/pkg/predicate"
)

// Request describes one graph query.
type Request struct {
	// Query selects vertices. Nil matches every vertex.
	Query predicate.Expr

	// Root, when set, switches to bounded-neighborhood mode: a breadth-first
	// traversal from this vertex. Empty means a global filter.
	Root string

	// Depth bounds the traversal in hops. Zero yields only the root; a
	// negative depth is unbounded. Ignored without Root.
	Depth int

	// Direction selects the edges the traversal follows. The zero value
	// follows both directions. Ignored without Root.
	Direction graph.Direction
}

// Vertices runs req against g inside a single read view and returns the
// result as a new, independent graph.
func Vertices(g *graph.Graph, req Request) (*graph.Graph, error) {
	var out *graph.Graph
	err := g.View(func(r graph.Reader) error {
		var err error
		out, err = VerticesView(r, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// VerticesView is Vertices over an already acquired snapshot.
//
// Global filter: the induced subgraph over every vertex satisfying Query.
//
// Bounded neighborhood: vertices reached from Root within Depth hops along
// Direction. A reached vertex is included, and only then explored further,
// if it satisfies Query. The root is always included. Each vertex appears
// once, at its shortest qualifying distance. Edges are the induced edges
// among the included vertices.
func VerticesView(r graph.Reader, req Request) (*graph.Graph, error) {
	var (
		ids []graph.VID
		err error
	)
	if req.Root == "" {
		ids, err = filter(r, req.Query)
	} else {
		ids, err = neighborhood(r, req)
	}
	if err != nil {
		return nil, err
	}
	return induced(r, ids)
}

func filter(r graph.Reader, q predicate.Expr) ([]graph.VID, error) {
	var ids []graph.VID
	for h, v := range r.EachVertex() {
		ok, err := predicate.Evaluate(q, v)
		if err != nil {
			return nil, err
		}
		if ok {
			ids = append(ids, h)
		}
	}
	return ids, nil
}

func neighborhood(r graph.Reader, req Request) ([]graph.VID, error) {
	root, ok := r.LookupVertex(req.Root)
	if !ok {
		return nil, fmt.Errorf("%w: root vertex %q", graph.ErrNotFound, req.Root)
	}

	// A vertex is marked on first contact. The predicate does not depend on
	// the path, so a vertex rejected once is rejected on every path.
	seen := map[graph.VID]struct{}{root: {}}
	ids := []graph.VID{root}
	frontier := []graph.VID{root}

	for hop := 0; (req.Depth < 0 || hop < req.Depth) && len(frontier) > 0; hop++ {
		var next []graph.VID
		for _, h := range frontier {
			for _, nb := range r.Incident(h, req.Direction) {
				if _, ok := seen[nb]; ok {
					continue
				}
				seen[nb] = struct{}{}
				ok, err := predicate.Evaluate(req.Query, r.VertexAt(nb))
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				ids = append(ids, nb)
				next = append(next, nb)
			}
		}
		frontier = next
	}
	return ids, nil
}

// induced copies the vertices at ids and every edge between two of them
// into a new graph.
func induced(r graph.Reader, ids []graph.VID) (*graph.Graph, error) {
	out := graph.New()
	in := make(map[graph.VID]struct{}, len(ids))
	for _, h := range ids {
		in[h] = struct{}{}
		if err := out.AddVertex(r.VertexAt(h)); err != nil {
			return nil, err
		}
	}
	for _, h := range ids {
		for eh, nb := range r.Incident(h, graph.Out) {
			if _, ok := in[nb]; !ok {
				continue
			}
			if _, err := out.AddEdge(r.EdgeAt(eh)); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
