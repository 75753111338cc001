package commands

import (
	"slices"
	"strings"
	"testing"

	"github.com/haivivi/topograph/pkg/graph"
)

func vertexIDs(doc graph.Document) []string {
	ids := make([]string, len(doc.Vertices))
	for i, v := range doc.Vertices {
		ids[i] = v.ID
	}
	slices.Sort(ids)
	return ids
}

func edgeIDs(doc graph.Document) []string {
	ids := make([]string, len(doc.Edges))
	for i, e := range doc.Edges {
		ids[i] = e.ID
	}
	slices.Sort(ids)
	return ids
}

func TestQueryGlobalFilter(t *testing.T) {
	setupTestEnv(t)
	graphPath, _ := fixtures(t)

	var doc graph.Document
	decodeJSON(t, &doc, "query", "-g", graphPath, "--where", `{"==": {"category": "ALARM"}}`)
	if got := vertexIDs(doc); !slices.Equal(got, []string{"a1", "a2"}) {
		t.Fatalf("vertices = %v", got)
	}
	if len(doc.Edges) != 0 {
		t.Fatalf("alarms share no edges, got %v", edgeIDs(doc))
	}
	if v := doc.Vertices[0]; v.Props == nil {
		t.Fatalf("props were dropped: %+v", v)
	}
}

func TestQueryNeighborhood(t *testing.T) {
	setupTestEnv(t)
	graphPath, _ := fixtures(t)

	var doc graph.Document
	decodeJSON(t, &doc, "query", "-g", graphPath, "--root", "h1", "--depth", "1")
	if got := vertexIDs(doc); !slices.Equal(got, []string{"a1", "c1", "h1", "vm1"}) {
		t.Fatalf("vertices = %v", got)
	}
	if got := edgeIDs(doc); !slices.Equal(got, []string{"a1-h1", "c1-h1", "h1-vm1"}) {
		t.Fatalf("edges = %v", got)
	}

	decodeJSON(t, &doc, "query", "-g", graphPath, "--root", "h1", "--depth", "1", "--direction", "out")
	if got := vertexIDs(doc); !slices.Equal(got, []string{"h1", "vm1"}) {
		t.Fatalf("out vertices = %v", got)
	}
}

func TestQueryRequestFile(t *testing.T) {
	setupTestEnv(t)
	graphPath, _ := fixtures(t)
	req := writeTestFile(t, t.TempDir(), "query.yaml", `
where: {"==": {"type": "host"}}
root: c1
depth: 2
direction: out
`)

	var doc graph.Document
	decodeJSON(t, &doc, "query", "-g", graphPath, "-f", req)
	// vm1 is two hops out but fails the filter; c1 is the root.
	if got := vertexIDs(doc); !slices.Equal(got, []string{"c1", "h1", "h2"}) {
		t.Fatalf("vertices = %v", got)
	}

	// Flags override the file.
	decodeJSON(t, &doc, "query", "-g", graphPath, "-f", req, "--depth", "0")
	if got := vertexIDs(doc); !slices.Equal(got, []string{"c1"}) {
		t.Fatalf("depth 0 vertices = %v", got)
	}
}

func TestQueryTable(t *testing.T) {
	setupTestEnv(t)
	graphPath, _ := fixtures(t)

	out := mustRun(t, "query", "-g", graphPath, "--root", "a1", "--depth", "1", "--format", "table")
	for _, want := range []string{"vertex", "edge", "a1", "h1", "a1 -> h1"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestQueryErrors(t *testing.T) {
	setupTestEnv(t)
	graphPath, _ := fixtures(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no graph", []string{"query"}, "no graph"},
		{"missing root", []string{"query", "-g", graphPath, "--root", "nope"}, "not found"},
		{"depth without root", []string{"query", "-g", graphPath, "--depth", "2"}, "need --root"},
		{"bad direction", []string{"query", "-g", graphPath, "--root", "h1", "--direction", "up"}, "invalid direction"},
		{"malformed where", []string{"query", "-g", graphPath, "--where", `{"~=": {"a": 1}}`}, "malformed"},
		{"bad format", []string{"query", "-g", graphPath, "--format", "xml"}, "unsupported output format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := runCmd(t, tt.args...)
			if code == 0 {
				t.Fatal("expected non-zero exit")
			}
			if !strings.Contains(stderr, tt.want) {
				t.Fatalf("expected %q in error, got: %s", tt.want, stderr)
			}
		})
	}
}
