package match

import (
	"fmt"

	"github.com/haivivi/topograph/pkg/predicate"
)

// plan is a template indexed for the search. Template vertices and edges are
// addressed by their position in definition order.
type plan struct {
	name     string
	vertices []tvertex
	edges    []tedge
	vindex   map[string]int
	eindex   map[string]int
}

type tvertex struct {
	id         string
	constraint predicate.Expr
	incident   []int // template edges touching this vertex, self-loops once
}

type tedge struct {
	id       string
	src, tgt int
	label    string
}

// seed is a caller mapping resolved onto template positions.
type seed struct {
	pos      int
	entity   string
	isVertex bool
}

func compile(t Pattern) (*plan, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil template", ErrUnknownElement)
	}
	vs, es := t.Vertices(), t.Edges()
	p := &plan{
		name:     t.Name(),
		vertices: make([]tvertex, len(vs)),
		edges:    make([]tedge, len(es)),
		vindex:   make(map[string]int, len(vs)),
		eindex:   make(map[string]int, len(es)),
	}
	for i, v := range vs {
		p.vertices[i] = tvertex{id: v.ID, constraint: t.Constraint(v.ID)}
		p.vindex[v.ID] = i
	}
	for i, e := range es {
		src, okS := p.vindex[e.Source]
		tgt, okT := p.vindex[e.Target]
		if !okS || !okT {
			return nil, fmt.Errorf("%w: template edge %q references an undefined vertex", ErrUnknownElement, e.ID)
		}
		p.edges[i] = tedge{id: e.ID, src: src, tgt: tgt, label: e.Label}
		p.eindex[e.ID] = i
		p.vertices[src].incident = append(p.vertices[src].incident, i)
		if tgt != src {
			p.vertices[tgt].incident = append(p.vertices[tgt].incident, i)
		}
	}
	return p, nil
}

// other returns the endpoint of template edge ei opposite tv.
func (p *plan) other(ei, tv int) int {
	e := p.edges[ei]
	if e.src == tv {
		return e.tgt
	}
	return e.src
}

func (p *plan) resolveSeeds(ms []Mapping) ([]seed, error) {
	out := make([]seed, 0, len(ms))
	for _, m := range ms {
		var (
			pos int
			ok  bool
		)
		if m.IsVertex {
			pos, ok = p.vindex[m.TemplateID]
		} else {
			pos, ok = p.eindex[m.TemplateID]
		}
		if !ok {
			kind := "edge"
			if m.IsVertex {
				kind = "vertex"
			}
			return nil, fmt.Errorf("%w: %s %q in template %s", ErrUnknownElement, kind, m.TemplateID, p.name)
		}
		out = append(out, seed{pos: pos, entity: m.EntityID, isVertex: m.IsVertex})
	}
	return out, nil
}

// checkConnected verifies that every template vertex can be reached along
// template edges, in either direction, from a seeded element. It runs before
// the entity graph is touched.
func (p *plan) checkConnected(seeds []seed) error {
	reached := make([]bool, len(p.vertices))
	var queue []int
	mark := func(tv int) {
		if !reached[tv] {
			reached[tv] = true
			queue = append(queue, tv)
		}
	}
	for _, s := range seeds {
		if s.isVertex {
			mark(s.pos)
		} else {
			mark(p.edges[s.pos].src)
			mark(p.edges[s.pos].tgt)
		}
	}
	for len(queue) > 0 {
		tv := queue[0]
		queue = queue[1:]
		for _, ei := range p.vertices[tv].incident {
			mark(p.other(ei, tv))
		}
	}
	for tv, ok := range reached {
		if !ok {
			return fmt.Errorf("%w: vertex %q in template %s", ErrDisconnectedTemplate, p.vertices[tv].id, p.name)
		}
	}
	return nil
}
