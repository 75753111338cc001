package graph

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// VID is the handle of a vertex slot. Handles are only meaningful inside the
// View that produced them; slots are reused after removal.
type VID int32

// EID is the handle of an edge slot.
type EID int32

// NoVertex is the invalid vertex handle.
const NoVertex VID = -1

type vertexSlot struct {
	v    Vertex
	out  []EID
	in   []EID
	live bool
}

type edgeSlot struct {
	e        Edge
	src, tgt VID
	live     bool
}

// pairKey indexes edges by (source, target, label).
type pairKey struct {
	src, tgt VID
	label    string
}

// Graph is the mutable entity graph. It is safe for concurrent use: mutators
// take the write lock, reads and View take the read lock.
type Graph struct {
	mu sync.RWMutex

	vertices []vertexSlot
	edges    []edgeSlot
	vindex   map[string]VID
	eindex   map[string]EID
	pairs    map[pairKey]EID
	freeV    []VID
	freeE    []EID
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		vindex: make(map[string]VID),
		eindex: make(map[string]EID),
		pairs:  make(map[pairKey]EID),
	}
}

// --- mutation ---

// AddVertex inserts v. It returns ErrConflict if a vertex with the same id
// already exists; use UpsertVertex for update semantics.
func (g *Graph) AddVertex(v Vertex) error {
	if v.ID == "" {
		return fmt.Errorf("%w: empty vertex id", ErrConflict)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.vindex[v.ID]; ok {
		return fmt.Errorf("%w: vertex %q already exists", ErrConflict, v.ID)
	}
	g.insertVertex(v.Clone())
	return nil
}

// UpsertVertex inserts v, or replaces the category, type and properties of
// the existing vertex with the same id. Incident edges are kept.
func (g *Graph) UpsertVertex(v Vertex) error {
	if v.ID == "" {
		return fmt.Errorf("%w: empty vertex id", ErrConflict)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if h, ok := g.vindex[v.ID]; ok {
		g.vertices[h].v = v.Clone()
		return nil
	}
	g.insertVertex(v.Clone())
	return nil
}

func (g *Graph) insertVertex(v Vertex) VID {
	slot := vertexSlot{v: v, live: true}
	var h VID
	if n := len(g.freeV); n > 0 {
		h = g.freeV[n-1]
		g.freeV = g.freeV[:n-1]
		g.vertices[h] = slot
	} else {
		h = VID(len(g.vertices))
		g.vertices = append(g.vertices, slot)
	}
	g.vindex[v.ID] = h
	return h
}

// RemoveVertex deletes the vertex and every edge incident to it.
func (g *Graph) RemoveVertex(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, ok := g.vindex[id]
	if !ok {
		return fmt.Errorf("%w: vertex %q", ErrNotFound, id)
	}
	slot := &g.vertices[h]
	incident := make([]EID, 0, len(slot.out)+len(slot.in))
	incident = append(incident, slot.out...)
	incident = append(incident, slot.in...)
	for _, eh := range incident {
		if g.edges[eh].live {
			g.deleteEdge(eh)
		}
	}
	delete(g.vindex, id)
	g.vertices[h] = vertexSlot{}
	g.freeV = append(g.freeV, h)
	return nil
}

// AddEdge inserts e and returns it with its id filled in. Both endpoints must
// exist (ErrNotFound); the id and the (source, target, label) triple must be
// new (ErrConflict).
func (g *Graph) AddEdge(e Edge) (Edge, error) {
	if e.Label == "" {
		return Edge{}, fmt.Errorf("%w: edge %s->%s has no label", ErrConflict, e.Source, e.Target)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e = e.Clone()

	g.mu.Lock()
	defer g.mu.Unlock()
	src, ok := g.vindex[e.Source]
	if !ok {
		return Edge{}, fmt.Errorf("%w: source vertex %q", ErrNotFound, e.Source)
	}
	tgt, ok := g.vindex[e.Target]
	if !ok {
		return Edge{}, fmt.Errorf("%w: target vertex %q", ErrNotFound, e.Target)
	}
	if _, ok := g.eindex[e.ID]; ok {
		return Edge{}, fmt.Errorf("%w: edge %q already exists", ErrConflict, e.ID)
	}
	pk := pairKey{src: src, tgt: tgt, label: e.Label}
	if other, ok := g.pairs[pk]; ok {
		return Edge{}, fmt.Errorf("%w: %s -%s-> %s already exists as edge %q",
			ErrConflict, e.Source, e.Label, e.Target, g.edges[other].e.ID)
	}

	slot := edgeSlot{e: e, src: src, tgt: tgt, live: true}
	var h EID
	if n := len(g.freeE); n > 0 {
		h = g.freeE[n-1]
		g.freeE = g.freeE[:n-1]
		g.edges[h] = slot
	} else {
		h = EID(len(g.edges))
		g.edges = append(g.edges, slot)
	}
	g.eindex[e.ID] = h
	g.pairs[pk] = h
	g.vertices[src].out = append(g.vertices[src].out, h)
	g.vertices[tgt].in = append(g.vertices[tgt].in, h)
	return e, nil
}

// RemoveEdge deletes the edge with the given id.
func (g *Graph) RemoveEdge(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, ok := g.eindex[id]
	if !ok {
		return fmt.Errorf("%w: edge %q", ErrNotFound, id)
	}
	g.deleteEdge(h)
	return nil
}

func (g *Graph) deleteEdge(h EID) {
	slot := g.edges[h]
	drop := func(l []EID) []EID {
		return slices.DeleteFunc(l, func(x EID) bool { return x == h })
	}
	g.vertices[slot.src].out = drop(g.vertices[slot.src].out)
	g.vertices[slot.tgt].in = drop(g.vertices[slot.tgt].in)
	delete(g.eindex, slot.e.ID)
	delete(g.pairs, pairKey{src: slot.src, tgt: slot.tgt, label: slot.e.Label})
	g.edges[h] = edgeSlot{}
	g.freeE = append(g.freeE, h)
}

// --- locked reads ---

// View runs fn with a Reader over the current graph while holding the read
// lock. Writers block until fn returns, so everything fn observes belongs to
// one snapshot. The Reader must not be retained after fn returns.
func (g *Graph) View(fn func(r Reader) error) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return fn(view{g})
}

// Vertex returns a copy of the vertex with the given id.
func (g *Graph) Vertex(id string) (Vertex, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, err := view{g}.Vertex(id)
	return v.Clone(), err
}

// Edge returns a copy of the edge with the given id.
func (g *Graph) Edge(id string) (Edge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, err := view{g}.Edge(id)
	return e.Clone(), err
}

// FindEdge returns the edge source -label-> target, if present.
func (g *Graph) FindEdge(source, target, label string) (Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := view{g}.FindEdge(source, target, label)
	return e.Clone(), ok
}

// Neighbors returns the distinct vertices adjacent to id in the given
// direction. If filter is non-nil, a neighbor is kept only when filter
// accepts at least one connecting edge.
func (g *Graph) Neighbors(id string, dir Direction, filter func(Edge, Vertex) bool) ([]Vertex, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	vs, err := view{g}.Neighbors(id, dir, filter)
	for i := range vs {
		vs[i] = vs[i].Clone()
	}
	return vs, err
}

// Edges returns the edges incident to id in the given direction.
func (g *Graph) Edges(id string, dir Direction) ([]Edge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	es, err := view{g}.Edges(id, dir)
	for i := range es {
		es[i] = es[i].Clone()
	}
	return es, err
}

// NumVertices returns the number of vertices.
func (g *Graph) NumVertices() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.vindex)
}

// NumEdges returns the number of edges.
func (g *Graph) NumEdges() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.eindex)
}

// Vertices returns a copy of every vertex in slot order.
func (g *Graph) Vertices() []Vertex {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Vertex, 0, len(g.vindex))
	for _, v := range (view{g}).EachVertex() {
		out = append(out, v.Clone())
	}
	return out
}

// AllEdges returns a copy of every edge in slot order.
func (g *Graph) AllEdges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, 0, len(g.eindex))
	for _, e := range (view{g}).EachEdge() {
		out = append(out, e.Clone())
	}
	return out
}
