package match

import (
	"context"
	"fmt"

	"github.com/haivivi/topograph/pkg/graph"
	"github.com/haivivi/topograph/pkg/predicate"
)

const (
	noEdge graph.EID = -1

	// ctxCheckInterval is how many steps run between context polls.
	ctxCheckInterval = 256
)

type memoKey struct {
	tv int
	h  graph.VID
}

// choice is a backtrack point: the template vertex being resolved, its
// candidates, and the next candidate to try.
type choice struct {
	tv    int
	cands []graph.VID
	next  int
}

type search struct {
	r        graph.Reader
	p        *plan
	validate bool
	maxSteps int

	assign []graph.VID    // per template vertex; NoVertex when unresolved
	pinned []graph.EID    // per template edge; set by edge seeds
	owner  map[graph.VID]int
	memo   map[memoKey]bool

	steps   int
	results []Result
	seen    map[string]struct{}
}

func newSearch(r graph.Reader, p *plan, validate bool, maxSteps int) *search {
	s := &search{
		r:        r,
		p:        p,
		validate: validate,
		maxSteps: maxSteps,
		assign:   make([]graph.VID, len(p.vertices)),
		pinned:   make([]graph.EID, len(p.edges)),
		owner:    make(map[graph.VID]int),
		memo:     make(map[memoKey]bool),
		seen:     make(map[string]struct{}),
	}
	for i := range s.assign {
		s.assign[i] = graph.NoVertex
	}
	for i := range s.pinned {
		s.pinned[i] = noEdge
	}
	return s
}

// applySeeds binds the seeds. It reports false when they are inconsistent
// with the graph, the constraints or each other.
func (s *search) applySeeds(seeds []seed) (bool, error) {
	for _, sd := range seeds {
		if sd.isVertex {
			h, ok := s.r.LookupVertex(sd.entity)
			if !ok {
				return false, nil
			}
			if ok, err := s.bind(sd.pos, h); !ok || err != nil {
				return false, err
			}
			continue
		}

		eh, ok := s.r.LookupEdge(sd.entity)
		if !ok {
			return false, nil
		}
		te := s.p.edges[sd.pos]
		if s.r.EdgeAt(eh).Label != te.label {
			return false, nil
		}
		if s.pinned[sd.pos] != noEdge && s.pinned[sd.pos] != eh {
			return false, nil
		}
		src, tgt := s.r.Endpoints(eh)
		if ok, err := s.bind(te.src, src); !ok || err != nil {
			return false, err
		}
		if ok, err := s.bind(te.tgt, tgt); !ok || err != nil {
			return false, err
		}
		s.pinned[sd.pos] = eh
	}
	return true, nil
}

// bind maps template vertex tv to entity h. Rebinding to the same entity is a
// no-op; anything else that breaks consistency, injectivity or the
// constraint reports false.
func (s *search) bind(tv int, h graph.VID) (bool, error) {
	if cur := s.assign[tv]; cur != graph.NoVertex {
		return cur == h, nil
	}
	if _, taken := s.owner[h]; taken {
		return false, nil
	}
	ok, err := s.accepts(tv, h)
	if !ok || err != nil {
		return false, err
	}
	s.assign[tv] = h
	s.owner[h] = tv
	return true, nil
}

func (s *search) unbind(tv int) {
	delete(s.owner, s.assign[tv])
	s.assign[tv] = graph.NoVertex
}

// accepts evaluates the constraint of tv on h, memoised per pair.
func (s *search) accepts(tv int, h graph.VID) (bool, error) {
	k := memoKey{tv: tv, h: h}
	if ok, hit := s.memo[k]; hit {
		return ok, nil
	}
	ok, err := predicate.Evaluate(s.p.vertices[tv].constraint, s.r.VertexAt(h))
	if err != nil {
		return false, fmt.Errorf("template %s vertex %q: %w", s.p.name, s.p.vertices[tv].id, err)
	}
	s.memo[k] = ok
	return ok, nil
}

// edgeHolds reports whether template edge ei has a matching entity edge
// between the current assignments of its endpoints.
func (s *search) edgeHolds(ei int) bool {
	if s.pinned[ei] != noEdge {
		return true
	}
	te := s.p.edges[ei]
	_, ok := s.r.EdgeBetween(s.assign[te.src], s.assign[te.tgt], te.label)
	return ok
}

// resolvedEdgesHold checks every template edge whose endpoints are both
// resolved.
func (s *search) resolvedEdgesHold() bool {
	for ei, te := range s.p.edges {
		if s.assign[te.src] == graph.NoVertex || s.assign[te.tgt] == graph.NoVertex {
			continue
		}
		if !s.edgeHolds(ei) {
			return false
		}
	}
	return true
}

// extend binds tv to h and checks every template edge between tv and an
// already resolved vertex. On failure the binding is undone.
func (s *search) extend(tv int, h graph.VID) (bool, error) {
	ok, err := s.bind(tv, h)
	if !ok || err != nil {
		return false, err
	}
	for _, ei := range s.p.vertices[tv].incident {
		if s.assign[s.p.other(ei, tv)] == graph.NoVertex {
			continue
		}
		if !s.edgeHolds(ei) {
			s.unbind(tv)
			return false, nil
		}
	}
	return true, nil
}

// pick returns the unresolved template vertex with the most template edges
// into the resolved set, lowest position first on ties, or -1 when every
// vertex is resolved.
func (s *search) pick() int {
	best, bestLinks := -1, -1
	for tv, tvx := range s.p.vertices {
		if s.assign[tv] != graph.NoVertex {
			continue
		}
		links := 0
		for _, ei := range tvx.incident {
			o := s.p.other(ei, tv)
			if o != tv && s.assign[o] != graph.NoVertex {
				links++
			}
		}
		if links > bestLinks {
			best, bestLinks = tv, links
		}
	}
	return best
}

// candidates lists the entity vertices tv may take: neighbors of a resolved
// template neighbor across the linking edge's label and direction, that are
// not yet used and satisfy tv's constraint.
func (s *search) candidates(tv int) ([]graph.VID, error) {
	anchor := -1
	for _, ei := range s.p.vertices[tv].incident {
		o := s.p.other(ei, tv)
		if o != tv && s.assign[o] != graph.NoVertex {
			anchor = ei
			break
		}
	}
	if anchor < 0 {
		return nil, nil
	}
	te := s.p.edges[anchor]
	// tv is the target: walk forward from the resolved source.
	from, dir := s.assign[te.src], graph.Out
	if te.src == tv {
		from, dir = s.assign[te.tgt], graph.In
	}

	var out []graph.VID
	for eh, nb := range s.r.Incident(from, dir) {
		if s.r.EdgeAt(eh).Label != te.label {
			continue
		}
		if _, taken := s.owner[nb]; taken {
			continue
		}
		ok, err := s.accepts(tv, nb)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, nb)
		}
	}
	return out, nil
}

// tick counts one step and enforces the budget and cancellation.
func (s *search) tick(ctx context.Context) error {
	s.steps++
	if s.maxSteps >= 0 && s.steps > s.maxSteps {
		return fmt.Errorf("%w: template %s after %d steps", ErrBudgetExceeded, s.p.name, s.maxSteps)
	}
	if s.steps%ctxCheckInterval == 0 {
		return ctx.Err()
	}
	return nil
}

// run performs the depth-first search over an explicit stack of choice
// points, collecting every complete assignment.
func (s *search) run(ctx context.Context) error {
	var stack []choice
	descend := true
	for {
		if descend {
			descend = false
			tv := s.pick()
			if tv < 0 {
				s.emit()
			} else {
				cands, err := s.candidates(tv)
				if err != nil {
					return err
				}
				stack = append(stack, choice{tv: tv, cands: cands})
			}
		}
		if len(stack) == 0 {
			return nil
		}

		top := &stack[len(stack)-1]
		if s.assign[top.tv] != graph.NoVertex {
			s.unbind(top.tv)
		}
		for top.next < len(top.cands) {
			h := top.cands[top.next]
			top.next++
			if err := s.tick(ctx); err != nil {
				return err
			}
			ok, err := s.extend(top.tv, h)
			if err != nil {
				return err
			}
			if ok {
				descend = true
				break
			}
		}
		if !descend {
			stack = stack[:len(stack)-1]
		}
	}
}

// emit records the current complete assignment.
func (s *search) emit() {
	if s.validate && !s.resolvedEdgesHold() {
		return
	}
	res := Result{
		Template: s.p.name,
		Mappings: make([]Mapping, 0, len(s.p.vertices)+len(s.p.edges)),
	}
	for tv, tvx := range s.p.vertices {
		res.Mappings = append(res.Mappings, VertexSeed(tvx.id, s.r.VertexAt(s.assign[tv]).ID))
	}
	for ei, te := range s.p.edges {
		eh := s.pinned[ei]
		if eh == noEdge {
			var ok bool
			eh, ok = s.r.EdgeBetween(s.assign[te.src], s.assign[te.tgt], te.label)
			if !ok {
				continue
			}
		}
		res.Mappings = append(res.Mappings, EdgeSeed(te.id, s.r.EdgeAt(eh).ID))
	}
	key := res.Key()
	if _, dup := s.seen[key]; dup {
		return
	}
	s.seen[key] = struct{}{}
	s.results = append(s.results, res)
}
