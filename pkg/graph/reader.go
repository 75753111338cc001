package graph

import (
	"fmt"
	"iter"
)

// Reader is a read-only view of a graph snapshot, handed out by Graph.View.
// Its methods take no locks. Returned vertices and edges share property maps
// with the graph and must not be modified.
type Reader interface {
	// NumVertices returns the number of vertices.
	NumVertices() int
	// NumEdges returns the number of edges.
	NumEdges() int

	// Vertex returns the vertex with the given id or ErrNotFound.
	Vertex(id string) (Vertex, error)
	// Edge returns the edge with the given id or ErrNotFound.
	Edge(id string) (Edge, error)
	// FindEdge returns the edge source -label-> target, if present.
	FindEdge(source, target, label string) (Edge, bool)
	// Neighbors returns the distinct vertices adjacent to id in the given
	// direction, optionally restricted by filter. ErrNotFound for unknown ids.
	Neighbors(id string, dir Direction, filter func(Edge, Vertex) bool) ([]Vertex, error)
	// Edges returns the edges incident to id in the given direction.
	Edges(id string, dir Direction) ([]Edge, error)

	// EachVertex iterates over all vertices in slot order.
	EachVertex() iter.Seq2[VID, Vertex]
	// EachEdge iterates over all edges in slot order.
	EachEdge() iter.Seq2[EID, Edge]

	// LookupVertex resolves a vertex id to its handle.
	LookupVertex(id string) (VID, bool)
	// LookupEdge resolves an edge id to its handle.
	LookupEdge(id string) (EID, bool)
	// VertexAt returns the vertex stored at h.
	VertexAt(h VID) Vertex
	// EdgeAt returns the edge stored at h.
	EdgeAt(h EID) Edge
	// Endpoints returns the source and target handles of edge h.
	Endpoints(h EID) (src, tgt VID)
	// Incident iterates over the edges incident to h in the given direction,
	// yielding each edge with the vertex at its other end. With Both, a
	// self-loop is yielded once.
	Incident(h VID, dir Direction) iter.Seq2[EID, VID]
	// EdgeBetween returns the edge src -label-> tgt, if present.
	EdgeBetween(src, tgt VID, label string) (EID, bool)
}

// view implements Reader directly over the graph's arenas. The caller holds
// the read lock.
type view struct {
	g *Graph
}

var _ Reader = view{}

func (r view) NumVertices() int { return len(r.g.vindex) }

func (r view) NumEdges() int { return len(r.g.eindex) }

func (r view) Vertex(id string) (Vertex, error) {
	h, ok := r.g.vindex[id]
	if !ok {
		return Vertex{}, fmt.Errorf("%w: vertex %q", ErrNotFound, id)
	}
	return r.g.vertices[h].v, nil
}

func (r view) Edge(id string) (Edge, error) {
	h, ok := r.g.eindex[id]
	if !ok {
		return Edge{}, fmt.Errorf("%w: edge %q", ErrNotFound, id)
	}
	return r.g.edges[h].e, nil
}

func (r view) FindEdge(source, target, label string) (Edge, bool) {
	src, ok := r.g.vindex[source]
	if !ok {
		return Edge{}, false
	}
	tgt, ok := r.g.vindex[target]
	if !ok {
		return Edge{}, false
	}
	h, ok := r.EdgeBetween(src, tgt, label)
	if !ok {
		return Edge{}, false
	}
	return r.g.edges[h].e, true
}

func (r view) Neighbors(id string, dir Direction, filter func(Edge, Vertex) bool) ([]Vertex, error) {
	h, ok := r.g.vindex[id]
	if !ok {
		return nil, fmt.Errorf("%w: vertex %q", ErrNotFound, id)
	}
	seen := make(map[VID]struct{})
	var out []Vertex
	for eh, nb := range r.Incident(h, dir) {
		if _, dup := seen[nb]; dup {
			continue
		}
		v := r.g.vertices[nb].v
		if filter != nil && !filter(r.g.edges[eh].e, v) {
			continue
		}
		seen[nb] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

func (r view) Edges(id string, dir Direction) ([]Edge, error) {
	h, ok := r.g.vindex[id]
	if !ok {
		return nil, fmt.Errorf("%w: vertex %q", ErrNotFound, id)
	}
	var out []Edge
	for eh := range r.Incident(h, dir) {
		out = append(out, r.g.edges[eh].e)
	}
	return out, nil
}

func (r view) EachVertex() iter.Seq2[VID, Vertex] {
	return func(yield func(VID, Vertex) bool) {
		for i := range r.g.vertices {
			slot := &r.g.vertices[i]
			if !slot.live {
				continue
			}
			if !yield(VID(i), slot.v) {
				return
			}
		}
	}
}

func (r view) EachEdge() iter.Seq2[EID, Edge] {
	return func(yield func(EID, Edge) bool) {
		for i := range r.g.edges {
			slot := &r.g.edges[i]
			if !slot.live {
				continue
			}
			if !yield(EID(i), slot.e) {
				return
			}
		}
	}
}

func (r view) LookupVertex(id string) (VID, bool) {
	h, ok := r.g.vindex[id]
	return h, ok
}

func (r view) LookupEdge(id string) (EID, bool) {
	h, ok := r.g.eindex[id]
	return h, ok
}

func (r view) VertexAt(h VID) Vertex { return r.g.vertices[h].v }

func (r view) EdgeAt(h EID) Edge { return r.g.edges[h].e }

func (r view) Endpoints(h EID) (VID, VID) {
	slot := &r.g.edges[h]
	return slot.src, slot.tgt
}

func (r view) Incident(h VID, dir Direction) iter.Seq2[EID, VID] {
	return func(yield func(EID, VID) bool) {
		slot := &r.g.vertices[h]
		if dir == Out || dir == Both {
			for _, eh := range slot.out {
				if !yield(eh, r.g.edges[eh].tgt) {
					return
				}
			}
		}
		if dir == In || dir == Both {
			for _, eh := range slot.in {
				src := r.g.edges[eh].src
				if dir == Both && src == h {
					continue // self-loop, already yielded as outgoing
				}
				if !yield(eh, src) {
					return
				}
			}
		}
	}
}

func (r view) EdgeBetween(src, tgt VID, label string) (EID, bool) {
	h, ok := r.g.pairs[pairKey{src: src, tgt: tgt, label: label}]
	return h, ok
}
