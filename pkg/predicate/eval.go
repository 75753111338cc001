package predicate

import (
	"fmt"
	"strconv"
	"strings"
)

// Evaluate reports whether src satisfies expr. A nil expr matches
// everything. Malformed nodes (nil operands, empty property names, unparsed
// JQ programs) fail with ErrMalformedQuery.
func Evaluate(expr Expr, src Source) (bool, error) {
	if expr == nil {
		return true, nil
	}
	ev := &evaluator{src: src}
	if err := expr.Accept(ev); err != nil {
		return false, err
	}
	return ev.result, nil
}

type evaluator struct {
	src    Source
	result bool
}

func (ev *evaluator) VisitEq(e Eq) error {
	if e.Property == "" {
		return fmt.Errorf("%w: == with empty property name", ErrMalformedQuery)
	}
	v, ok := ev.src.Property(e.Property)
	ev.result = ok && v.Equal(e.Value)
	return nil
}

func (ev *evaluator) VisitNe(e Ne) error {
	if e.Property == "" {
		return fmt.Errorf("%w: != with empty property name", ErrMalformedQuery)
	}
	v, ok := ev.src.Property(e.Property)
	ev.result = !ok || !v.Equal(e.Value)
	return nil
}

func (ev *evaluator) VisitAnd(e And) error {
	for i, op := range e {
		if op == nil {
			return fmt.Errorf("%w: and operand %d is nil", ErrMalformedQuery, i)
		}
		if err := op.Accept(ev); err != nil {
			return err
		}
		if !ev.result {
			return nil
		}
	}
	ev.result = true
	return nil
}

func (ev *evaluator) VisitOr(e Or) error {
	for i, op := range e {
		if op == nil {
			return fmt.Errorf("%w: or operand %d is nil", ErrMalformedQuery, i)
		}
		if err := op.Accept(ev); err != nil {
			return err
		}
		if ev.result {
			return nil
		}
	}
	ev.result = false
	return nil
}

func (ev *evaluator) VisitJQ(e *JQ) error {
	if e == nil || e.query == nil {
		return fmt.Errorf("%w: jq expression was not parsed", ErrMalformedQuery)
	}
	input := map[string]any{}
	if m, ok := ev.src.(Mapper); ok {
		input = jqInput(m.PropertyMap())
	}
	it := e.query.Run(input)
	v, ok := it.Next()
	if !ok {
		ev.result = false
		return nil
	}
	switch x := v.(type) {
	case error:
		ev.result = false
	case nil:
		ev.result = false
	case bool:
		ev.result = x
	default:
		ev.result = true
	}
	return nil
}

// jqInput converts int64 values, which gojq does not accept, to int.
func jqInput(m map[string]any) map[string]any {
	for k, v := range m {
		if n, ok := v.(int64); ok {
			m[k] = int(n)
		}
	}
	return m
}

// Validate checks the structure of expr without evaluating it.
func Validate(expr Expr) error {
	if expr == nil {
		return nil
	}
	return expr.Accept(validator{})
}

type validator struct{}

func (validator) VisitEq(e Eq) error {
	if e.Property == "" {
		return fmt.Errorf("%w: == with empty property name", ErrMalformedQuery)
	}
	return nil
}

func (validator) VisitNe(e Ne) error {
	if e.Property == "" {
		return fmt.Errorf("%w: != with empty property name", ErrMalformedQuery)
	}
	return nil
}

func (v validator) VisitAnd(e And) error { return v.operands("and", e) }
func (v validator) VisitOr(e Or) error   { return v.operands("or", e) }

func (v validator) operands(op string, exprs []Expr) error {
	for i, x := range exprs {
		if x == nil {
			return fmt.Errorf("%w: %s operand %d is nil", ErrMalformedQuery, op, i)
		}
		if err := x.Accept(v); err != nil {
			return err
		}
	}
	return nil
}

func (validator) VisitJQ(e *JQ) error {
	if e == nil || e.query == nil {
		return fmt.Errorf("%w: jq expression was not parsed", ErrMalformedQuery)
	}
	return nil
}

// Format renders expr in a compact infix form for logs and CLI output,
// e.g. (category == "ALARM" and severity != "low").
func Format(expr Expr) string {
	if expr == nil {
		return "true"
	}
	f := &formatter{}
	if err := expr.Accept(f); err != nil {
		return "<malformed>"
	}
	return f.sb.String()
}

type formatter struct {
	sb strings.Builder
}

func (f *formatter) VisitEq(e Eq) error {
	f.sb.WriteString(e.Property + " == " + e.Value.String())
	return nil
}

func (f *formatter) VisitNe(e Ne) error {
	f.sb.WriteString(e.Property + " != " + e.Value.String())
	return nil
}

func (f *formatter) VisitAnd(e And) error { return f.join("and", "true", e) }
func (f *formatter) VisitOr(e Or) error   { return f.join("or", "false", e) }

func (f *formatter) join(op, empty string, exprs []Expr) error {
	if len(exprs) == 0 {
		f.sb.WriteString(empty)
		return nil
	}
	f.sb.WriteByte('(')
	for i, x := range exprs {
		if x == nil {
			return ErrMalformedQuery
		}
		if i > 0 {
			f.sb.WriteString(" " + op + " ")
		}
		if err := x.Accept(f); err != nil {
			return err
		}
	}
	f.sb.WriteByte(')')
	return nil
}

func (f *formatter) VisitJQ(e *JQ) error {
	if e == nil {
		return ErrMalformedQuery
	}
	f.sb.WriteString("jq(" + strconv.Quote(e.Expr) + ")")
	return nil
}
