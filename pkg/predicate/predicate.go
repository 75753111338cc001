// Package predicate implements the boolean query expressions evaluated
// against vertex and edge property maps.
//
// An expression is a tree of tagged variants: Eq, Ne, And, Or, plus the JQ
// extension for ad-hoc checks that the core operators cannot express.
// Operations over the tree (evaluation, validation, formatting) are Visitors,
// so a new variant only touches this package, never the callers of Evaluate.
package predicate

import (
	"errors"
	"fmt"

	"github.com/itchyny/gojq"

	"github.com/haivivi/topograph/pkg/prop"
)

// ErrMalformedQuery is returned for unknown operators, wrong operand shapes
// and structurally invalid trees.
var ErrMalformedQuery = errors.New("predicate: malformed query")

// Source is anything that exposes named properties: graph vertices, graph
// edges and prop.Map all qualify.
type Source interface {
	Property(name string) (prop.Value, bool)
}

// Mapper is implemented by sources that can expose all their properties at
// once. The JQ operator needs it; other operators only use Source.
type Mapper interface {
	PropertyMap() map[string]any
}

// Expr is a node of a query expression tree.
type Expr interface {
	// Accept dispatches to the Visitor method for the concrete variant.
	Accept(v Visitor) error
}

// Visitor is implemented by every operation over an expression tree.
// Composite variants leave recursion to the visitor.
type Visitor interface {
	VisitEq(Eq) error
	VisitNe(Ne) error
	VisitAnd(And) error
	VisitOr(Or) error
	VisitJQ(*JQ) error
}

// Eq holds iff the property is present and equal to Value.
type Eq struct {
	Property string
	Value    prop.Value
}

// Ne holds iff the property is absent or not equal to Value.
type Ne struct {
	Property string
	Value    prop.Value
}

// And holds iff every operand holds. Operands are evaluated in order and
// evaluation stops at the first false one. An empty And is true.
type And []Expr

// Or holds iff some operand holds. Operands are evaluated in order and
// evaluation stops at the first true one. An empty Or is false.
type Or []Expr

// JQ holds iff the jq program's first output, run over the source's full
// property map, is neither false nor null. Runtime jq errors count as false.
type JQ struct {
	Expr  string
	query *gojq.Query
}

// NewJQ parses a jq program.
func NewJQ(expr string) (*JQ, error) {
	q, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid jq expression %q: %v", ErrMalformedQuery, expr, err)
	}
	return &JQ{Expr: expr, query: q}, nil
}

func (e Eq) Accept(v Visitor) error  { return v.VisitEq(e) }
func (e Ne) Accept(v Visitor) error  { return v.VisitNe(e) }
func (e And) Accept(v Visitor) error { return v.VisitAnd(e) }
func (e Or) Accept(v Visitor) error  { return v.VisitOr(e) }
func (e *JQ) Accept(v Visitor) error { return v.VisitJQ(e) }

// Equal is shorthand for Eq{Property: name, Value: v}.
func Equal(name string, v prop.Value) Eq { return Eq{Property: name, Value: v} }

// NotEqual is shorthand for Ne{Property: name, Value: v}.
func NotEqual(name string, v prop.Value) Ne { return Ne{Property: name, Value: v} }

// AllOf returns the conjunction of exprs, dropping nil operands. It returns
// nil (match everything) when nothing is left and the operand itself when
// only one is left.
func AllOf(exprs ...Expr) Expr {
	var out And
	for _, e := range exprs {
		if e != nil {
			out = append(out, e)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}
