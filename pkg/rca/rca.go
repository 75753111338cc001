// Package rca connects graph changes to template matching. When a vertex or
// edge changes, the engine seeds every template element the changed element
// could play, matches all templates against one snapshot of the graph and
// returns the findings for the downstream deduction stage.
package rca

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/haivivi/topograph/pkg/graph"
	"github.com/haivivi/topograph/pkg/match"
	"github.com/haivivi/topograph/pkg/predicate"
	"github.com/haivivi/topograph/pkg/template"
)

// Finding is one embedding of a template triggered by a change.
type Finding struct {
	ID       uuid.UUID    `json:"id" yaml:"id"`
	Template string       `json:"template" yaml:"template"`
	Trigger  string       `json:"trigger" yaml:"trigger"`
	Result   match.Result `json:"result" yaml:"result"`
}

// Config configures an Engine.
type Config struct {
	Graph   *graph.Graph
	Library *template.Library

	// Matcher defaults to match.New().
	Matcher *match.Matcher

	// Validate enables the exhaustive edge check on every match.
	Validate bool

	// Parallelism bounds concurrent template matches. Zero means GOMAXPROCS.
	Parallelism int

	Logger *slog.Logger
}

// Engine runs the template library against the graph on changes.
type Engine struct {
	cfg Config
}

// New returns an Engine.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Matcher == nil {
		cfg.Matcher = match.New(match.WithLogger(cfg.Logger))
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = runtime.GOMAXPROCS(0)
	}
	return &Engine{cfg: cfg}
}

// VertexChanged matches every template with a vertex whose constraint
// accepts vertex id, seeded at that template vertex.
func (e *Engine) VertexChanged(ctx context.Context, id string) ([]Finding, error) {
	return e.run(ctx, id, func(r graph.Reader, t *template.Template) ([][]match.Mapping, error) {
		v, err := r.Vertex(id)
		if err != nil {
			return nil, err
		}
		var seeds [][]match.Mapping
		for _, tv := range t.Vertices() {
			ok, err := predicate.Evaluate(t.Constraint(tv.ID), v)
			if err != nil {
				return nil, err
			}
			if ok {
				seeds = append(seeds, []match.Mapping{match.VertexSeed(tv.ID, id)})
			}
		}
		return seeds, nil
	})
}

// EdgeChanged matches every template with an edge whose label and endpoint
// constraints accept edge id, seeded at that template edge.
func (e *Engine) EdgeChanged(ctx context.Context, id string) ([]Finding, error) {
	return e.run(ctx, id, func(r graph.Reader, t *template.Template) ([][]match.Mapping, error) {
		ed, err := r.Edge(id)
		if err != nil {
			return nil, err
		}
		src, err := r.Vertex(ed.Source)
		if err != nil {
			return nil, err
		}
		tgt, err := r.Vertex(ed.Target)
		if err != nil {
			return nil, err
		}
		var seeds [][]match.Mapping
		for _, te := range t.Edges() {
			if te.Label != ed.Label {
				continue
			}
			okS, err := predicate.Evaluate(t.Constraint(te.Source), src)
			if err != nil {
				return nil, err
			}
			okT, err := predicate.Evaluate(t.Constraint(te.Target), tgt)
			if err != nil {
				return nil, err
			}
			if okS && okT {
				seeds = append(seeds, []match.Mapping{match.EdgeSeed(te.ID, id)})
			}
		}
		return seeds, nil
	})
}

type seedFunc func(r graph.Reader, t *template.Template) ([][]match.Mapping, error)

// run matches every template inside one read view. A template may be seeded
// several ways by the same element; their results are merged.
func (e *Engine) run(ctx context.Context, trigger string, seedsFor seedFunc) ([]Finding, error) {
	templates := e.cfg.Library.All()
	perTemplate := make([][]match.Result, len(templates))

	err := e.cfg.Graph.View(func(r graph.Reader) error {
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.Parallelism)
		for i, t := range templates {
			g.Go(func() error {
				seeds, err := seedsFor(r, t)
				if err != nil {
					return fmt.Errorf("rca: %s: %w", t.Name(), err)
				}
				seen := make(map[string]struct{})
				for _, s := range seeds {
					res, err := e.cfg.Matcher.MatchView(ctx, r, match.Request{
						Template: t,
						Seeds:    s,
						Validate: e.cfg.Validate,
					})
					if err != nil {
						return fmt.Errorf("rca: %s: %w", t.Name(), err)
					}
					for _, m := range res {
						if _, dup := seen[m.Key()]; dup {
							continue
						}
						seen[m.Key()] = struct{}{}
						perTemplate[i] = append(perTemplate[i], m)
					}
				}
				if n := len(perTemplate[i]); n > 0 {
					e.cfg.Logger.Info("template matched", "template", t.Name(), "trigger", trigger, "results", n)
				}
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}

	var out []Finding
	for i, results := range perTemplate {
		slices.SortFunc(results, func(a, b match.Result) int { return cmp.Compare(a.Key(), b.Key()) })
		for _, res := range results {
			out = append(out, Finding{
				ID:       uuid.New(),
				Template: templates[i].Name(),
				Trigger:  trigger,
				Result:   res,
			})
		}
	}
	return out, nil
}
