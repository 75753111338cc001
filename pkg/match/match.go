// Package match finds the embeddings of a template into the entity graph.
//
// The search is a constrained subgraph-isomorphism: starting from caller
// supplied seed mappings, it resolves template vertices outward along
// template edges, branching over the entity neighbors that satisfy each
// template vertex's constraint and backtracking over an explicit stack of
// choice points. Every result maps each template vertex to a distinct entity
// vertex.
package match

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/haivivi/topograph/pkg/graph"
	"github.com/haivivi/topograph/pkg/predicate"
)

// Sentinel errors.
var (
	// ErrDisconnectedTemplate is returned when a template vertex has no
	// template path from any seeded element.
	ErrDisconnectedTemplate = errors.New("match: template vertex unreachable from seeds")

	// ErrUnknownElement is returned when a seed names a template element
	// that does not exist, or names a vertex as an edge or vice versa.
	ErrUnknownElement = errors.New("match: unknown template element")

	// ErrBudgetExceeded is returned when the search runs out of steps.
	ErrBudgetExceeded = errors.New("match: step budget exceeded")
)

// DefaultMaxSteps bounds the candidates a single call may try.
const DefaultMaxSteps = 1 << 20

// Pattern is the template side of a match. *template.Template implements it.
type Pattern interface {
	Name() string
	// Vertices returns the template vertices in definition order.
	Vertices() []graph.Vertex
	// Edges returns the template edges in definition order.
	Edges() []graph.Edge
	// Constraint returns the predicate for template vertex id; nil matches
	// any entity.
	Constraint(id string) predicate.Expr
}

// Mapping associates a template element with an entity element.
type Mapping struct {
	TemplateID string `json:"template_id" yaml:"template_id"`
	EntityID   string `json:"entity_id" yaml:"entity_id"`
	IsVertex   bool   `json:"is_vertex" yaml:"is_vertex"`
}

// VertexSeed maps template vertex tid onto entity vertex eid.
func VertexSeed(tid, eid string) Mapping {
	return Mapping{TemplateID: tid, EntityID: eid, IsVertex: true}
}

// EdgeSeed maps template edge tid onto entity edge eid.
func EdgeSeed(tid, eid string) Mapping {
	return Mapping{TemplateID: tid, EntityID: eid}
}

// Result is one complete embedding. Mappings lists every template vertex in
// definition order, then the template edges in definition order that were
// matched to an entity edge.
type Result struct {
	Template string    `json:"template" yaml:"template"`
	Mappings []Mapping `json:"mappings" yaml:"mappings"`
}

// Key identifies the assignment; two results are equal iff their keys are.
func (r Result) Key() string {
	var sb strings.Builder
	for i, m := range r.Mappings {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(m.TemplateID)
		sb.WriteByte('=')
		sb.WriteString(m.EntityID)
	}
	return sb.String()
}

// Vertex returns the entity vertex mapped to template vertex tid.
func (r Result) Vertex(tid string) (string, bool) {
	return r.lookup(tid, true)
}

// Edge returns the entity edge mapped to template edge tid.
func (r Result) Edge(tid string) (string, bool) {
	return r.lookup(tid, false)
}

func (r Result) lookup(tid string, vertex bool) (string, bool) {
	for _, m := range r.Mappings {
		if m.TemplateID == tid && m.IsVertex == vertex {
			return m.EntityID, true
		}
	}
	return "", false
}

// Request is one sub_graph_matching call.
type Request struct {
	Template Pattern
	Seeds    []Mapping

	// Validate re-checks every template edge between seed-resolved vertices
	// before the search and across every complete assignment. Without it,
	// only edges touching a vertex resolved by the search are checked.
	Validate bool
}

// Matcher runs template matches. The zero value is not usable; call New.
type Matcher struct {
	maxSteps int
	logger   *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithMaxSteps sets the step budget. A negative n disables it.
func WithMaxSteps(n int) Option {
	return func(m *Matcher) { m.maxSteps = n }
}

// WithLogger sets the logger for search statistics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Matcher) { m.logger = l }
}

// New returns a Matcher.
func New(opts ...Option) *Matcher {
	m := &Matcher{maxSteps: DefaultMaxSteps}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Match runs req against g inside a single read view.
func (m *Matcher) Match(ctx context.Context, g *graph.Graph, req Request) ([]Result, error) {
	var out []Result
	err := g.View(func(r graph.Reader) error {
		var err error
		out, err = m.MatchView(ctx, r, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MatchView is Match over an already acquired snapshot. It returns every
// complete, duplicate-free embedding sorted by assignment. Inconsistent
// seeds yield an empty result, not an error.
func (m *Matcher) MatchView(ctx context.Context, r graph.Reader, req Request) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := compile(req.Template)
	if err != nil {
		return nil, err
	}
	seeds, err := p.resolveSeeds(req.Seeds)
	if err != nil {
		return nil, err
	}
	if len(p.vertices) == 0 {
		return nil, nil
	}
	if err := p.checkConnected(seeds); err != nil {
		return nil, err
	}

	s := newSearch(r, p, req.Validate, m.maxSteps)
	ok, err := s.applySeeds(seeds)
	if err != nil {
		return nil, err
	}
	if ok && req.Validate {
		ok = s.resolvedEdgesHold()
	}
	if ok {
		if err := s.run(ctx); err != nil {
			m.logger.Debug("match aborted", "template", p.name, "steps", s.steps, "error", err)
			return nil, err
		}
	}

	out := s.results
	slices.SortFunc(out, func(a, b Result) int { return cmp.Compare(a.Key(), b.Key()) })
	m.logger.Debug("match done",
		"template", p.name,
		"seeds", len(req.Seeds),
		"validate", req.Validate,
		"results", len(out),
		"steps", s.steps,
	)
	return out, nil
}
