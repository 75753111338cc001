package graph_test

import (
	"errors"
	"slices"
	"sort"
	"sync"
	"testing"

	"github.com/haivivi/topograph/pkg/graph"
	"github.com/haivivi/topograph/pkg/prop"
)

func newTestGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, v := range []graph.Vertex{
		{ID: "cluster", Category: "RESOURCE", Type: "openstack.cluster"},
		{ID: "host-1", Category: "RESOURCE", Type: "nova.host", Props: prop.Map{"zone": prop.String("az1")}},
		{ID: "vm-1", Category: "RESOURCE", Type: "nova.instance"},
		{ID: "alarm-1", Category: "ALARM", Type: "nagios"},
	} {
		if err := g.AddVertex(v); err != nil {
			t.Fatalf("AddVertex(%s): %v", v.ID, err)
		}
	}
	for _, e := range []graph.Edge{
		{ID: "c-h", Source: "cluster", Target: "host-1", Label: "contains"},
		{ID: "h-v", Source: "host-1", Target: "vm-1", Label: "contains"},
		{ID: "a-h", Source: "alarm-1", Target: "host-1", Label: "on"},
	} {
		if _, err := g.AddEdge(e); err != nil {
			t.Fatalf("AddEdge(%s): %v", e.ID, err)
		}
	}
	return g
}

func vertexIDs(vs []graph.Vertex) []string {
	ids := make([]string, len(vs))
	for i, v := range vs {
		ids[i] = v.ID
	}
	sort.Strings(ids)
	return ids
}

func TestAddVertex_Conflict(t *testing.T) {
	g := newTestGraph(t)
	err := g.AddVertex(graph.Vertex{ID: "host-1"})
	if !errors.Is(err, graph.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := g.AddVertex(graph.Vertex{}); !errors.Is(err, graph.ErrConflict) {
		t.Fatalf("expected ErrConflict for empty id, got %v", err)
	}
}

func TestUpsertVertex(t *testing.T) {
	g := newTestGraph(t)
	if err := g.UpsertVertex(graph.Vertex{ID: "host-1", Category: "RESOURCE", Type: "nova.host",
		Props: prop.Map{"zone": prop.String("az2")}}); err != nil {
		t.Fatal(err)
	}
	v, err := g.Vertex("host-1")
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := v.Property("zone"); !got.Equal(prop.String("az2")) {
		t.Fatalf("zone = %s, want az2", got)
	}
	// Edges survive an update.
	if g.NumEdges() != 3 {
		t.Fatalf("NumEdges = %d, want 3", g.NumEdges())
	}
	if err := g.UpsertVertex(graph.Vertex{ID: "host-2"}); err != nil {
		t.Fatal(err)
	}
	if g.NumVertices() != 5 {
		t.Fatalf("NumVertices = %d, want 5", g.NumVertices())
	}
}

func TestVertex_NotFound(t *testing.T) {
	g := newTestGraph(t)
	if _, err := g.Vertex("nobody"); !errors.Is(err, graph.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := g.RemoveVertex("nobody"); !errors.Is(err, graph.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := g.RemoveEdge("nothing"); !errors.Is(err, graph.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := g.Neighbors("nobody", graph.Both, nil); !errors.Is(err, graph.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVertex_Property(t *testing.T) {
	g := newTestGraph(t)
	v, err := g.Vertex("host-1")
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := v.Property(graph.KeyCategory); !ok || !got.Equal(prop.String("RESOURCE")) {
		t.Fatalf("category = %s, %v", got, ok)
	}
	if got, ok := v.Property(graph.KeyID); !ok || !got.Equal(prop.String("host-1")) {
		t.Fatalf("id = %s, %v", got, ok)
	}
	if _, ok := v.Property("missing"); ok {
		t.Fatal("missing property reported present")
	}
	empty := graph.Vertex{ID: "x"}
	if _, ok := empty.Property(graph.KeyType); ok {
		t.Fatal("empty type should be absent")
	}
}

func TestAddEdge(t *testing.T) {
	g := newTestGraph(t)

	_, err := g.AddEdge(graph.Edge{Source: "ghost", Target: "host-1", Label: "on"})
	if !errors.Is(err, graph.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing source, got %v", err)
	}
	_, err = g.AddEdge(graph.Edge{Source: "alarm-1", Target: "ghost", Label: "on"})
	if !errors.Is(err, graph.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing target, got %v", err)
	}
	_, err = g.AddEdge(graph.Edge{ID: "a-h", Source: "alarm-1", Target: "vm-1", Label: "on"})
	if !errors.Is(err, graph.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate id, got %v", err)
	}
	_, err = g.AddEdge(graph.Edge{Source: "alarm-1", Target: "host-1", Label: "on"})
	if !errors.Is(err, graph.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate triple, got %v", err)
	}

	// Different label between the same pair is allowed, and gets an id.
	e, err := g.AddEdge(graph.Edge{Source: "alarm-1", Target: "host-1", Label: "causes"})
	if err != nil {
		t.Fatal(err)
	}
	if e.ID == "" {
		t.Fatal("expected generated edge id")
	}
	if got, err := g.Edge(e.ID); err != nil || got.Label != "causes" {
		t.Fatalf("Edge(%s) = %+v, %v", e.ID, got, err)
	}
	if _, ok := g.FindEdge("alarm-1", "host-1", "causes"); !ok {
		t.Fatal("FindEdge did not find the new edge")
	}
}

func TestRemoveVertex_Cascades(t *testing.T) {
	g := newTestGraph(t)
	if err := g.RemoveVertex("host-1"); err != nil {
		t.Fatal(err)
	}
	if g.NumVertices() != 3 {
		t.Fatalf("NumVertices = %d, want 3", g.NumVertices())
	}
	if g.NumEdges() != 0 {
		t.Fatalf("NumEdges = %d, want 0 after cascading removal", g.NumEdges())
	}
	for _, id := range []string{"cluster", "vm-1", "alarm-1"} {
		es, err := g.Edges(id, graph.Both)
		if err != nil {
			t.Fatal(err)
		}
		if len(es) != 0 {
			t.Fatalf("%s still has %d edges", id, len(es))
		}
	}
	// The freed slot is reusable and the old edges stay gone.
	if err := g.AddVertex(graph.Vertex{ID: "host-9"}); err != nil {
		t.Fatal(err)
	}
	if es, _ := g.Edges("host-9", graph.Both); len(es) != 0 {
		t.Fatalf("reused slot inherited %d edges", len(es))
	}
}

func TestRemoveEdge(t *testing.T) {
	g := newTestGraph(t)
	if err := g.RemoveEdge("h-v"); err != nil {
		t.Fatal(err)
	}
	if _, ok := g.FindEdge("host-1", "vm-1", "contains"); ok {
		t.Fatal("edge still found after removal")
	}
	// The triple can be re-added.
	if _, err := g.AddEdge(graph.Edge{ID: "h-v2", Source: "host-1", Target: "vm-1", Label: "contains"}); err != nil {
		t.Fatal(err)
	}
}

func TestNeighbors(t *testing.T) {
	g := newTestGraph(t)

	out, err := g.Neighbors("host-1", graph.Out, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := vertexIDs(out); !slices.Equal(got, []string{"vm-1"}) {
		t.Fatalf("Out = %v", got)
	}

	in, err := g.Neighbors("host-1", graph.In, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := vertexIDs(in); !slices.Equal(got, []string{"alarm-1", "cluster"}) {
		t.Fatalf("In = %v", got)
	}

	both, err := g.Neighbors("host-1", graph.Both, func(e graph.Edge, _ graph.Vertex) bool {
		return e.Label == "contains"
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := vertexIDs(both); !slices.Equal(got, []string{"cluster", "vm-1"}) {
		t.Fatalf("Both(contains) = %v", got)
	}
}

func TestNeighbors_Dedup(t *testing.T) {
	g := newTestGraph(t)
	if _, err := g.AddEdge(graph.Edge{Source: "host-1", Target: "alarm-1", Label: "raises"}); err != nil {
		t.Fatal(err)
	}
	vs, err := g.Neighbors("host-1", graph.Both, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := vertexIDs(vs); !slices.Equal(got, []string{"alarm-1", "cluster", "vm-1"}) {
		t.Fatalf("Both = %v", got)
	}
}

func TestSelfLoop(t *testing.T) {
	g := newTestGraph(t)
	if _, err := g.AddEdge(graph.Edge{ID: "loop", Source: "vm-1", Target: "vm-1", Label: "migrates"}); err != nil {
		t.Fatal(err)
	}
	es, err := g.Edges("vm-1", graph.Both)
	if err != nil {
		t.Fatal(err)
	}
	if len(es) != 2 {
		t.Fatalf("Both edges = %d, want 2 (h-v and loop once)", len(es))
	}
	if err := g.RemoveVertex("vm-1"); err != nil {
		t.Fatal(err)
	}
	if g.NumEdges() != 2 {
		t.Fatalf("NumEdges = %d, want 2", g.NumEdges())
	}
}

func TestView(t *testing.T) {
	g := newTestGraph(t)
	err := g.View(func(r graph.Reader) error {
		h, ok := r.LookupVertex("host-1")
		if !ok {
			t.Fatal("LookupVertex failed")
		}
		if r.VertexAt(h).ID != "host-1" {
			t.Fatalf("VertexAt = %s", r.VertexAt(h).ID)
		}
		a, _ := r.LookupVertex("alarm-1")
		eh, ok := r.EdgeBetween(a, h, "on")
		if !ok {
			t.Fatal("EdgeBetween failed")
		}
		src, tgt := r.Endpoints(eh)
		if src != a || tgt != h {
			t.Fatalf("Endpoints = %d,%d", src, tgt)
		}
		n := 0
		for range r.EachVertex() {
			n++
		}
		if n != r.NumVertices() {
			t.Fatalf("EachVertex yielded %d, want %d", n, r.NumVertices())
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	g := newTestGraph(t)
	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = g.View(func(r graph.Reader) error {
					// Inside one view the counts never change.
					nv, ne := r.NumVertices(), r.NumEdges()
					for range r.EachEdge() {
					}
					if r.NumVertices() != nv || r.NumEdges() != ne {
						t.Error("snapshot changed during View")
					}
					return nil
				})
			}
		}()
		go func() {
			defer wg.Done()
			id := "tmp-" + string(rune('a'+i))
			for range 100 {
				_ = g.AddVertex(graph.Vertex{ID: id})
				_, _ = g.AddEdge(graph.Edge{Source: id, Target: "host-1", Label: "on"})
				_ = g.RemoveVertex(id)
			}
		}()
	}
	wg.Wait()
	if g.NumVertices() != 4 || g.NumEdges() != 3 {
		t.Fatalf("final graph = %d vertices, %d edges", g.NumVertices(), g.NumEdges())
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	g := newTestGraph(t)
	doc := g.Document()
	g2, err := graph.FromDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	if g2.NumVertices() != g.NumVertices() || g2.NumEdges() != g.NumEdges() {
		t.Fatalf("round trip: %d/%d, want %d/%d",
			g2.NumVertices(), g2.NumEdges(), g.NumVertices(), g.NumEdges())
	}

	doc.Edges = append(doc.Edges, graph.Edge{Source: "vm-1", Target: "ghost", Label: "on"})
	if _, err := graph.FromDocument(doc); !errors.Is(err, graph.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for dangling edge, got %v", err)
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]graph.Direction{"": graph.Both, "IN": graph.In, "out": graph.Out, "both": graph.Both} {
		got, err := graph.ParseDirection(in)
		if err != nil || got != want {
			t.Errorf("ParseDirection(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := graph.ParseDirection("sideways"); err == nil {
		t.Fatal("expected error")
	}
}
