package predicate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/haivivi/topograph/pkg/prop"
)

// Operator names of the map form accepted by Parse.
const (
	OpAnd = "and"
	OpOr  = "or"
	OpEq  = "=="
	OpNe  = "!="
	OpJQ  = "jq"
)

// Parse converts the decoded operator-map form of a query into an Expr:
//
//	{"and": [<expr>, ...]}
//	{"or":  [<expr>, ...]}
//	{"==":  {"category": "ALARM"}}
//	{"!=":  {"severity": "low"}}
//	{"jq":  ".cpu > 8"}
//
// A comparison body with several keys is the conjunction of one comparison
// per key, in key order. Input is what encoding/json or a YAML decoder
// produces when decoding into any.
func Parse(v any) (Expr, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected an operator object, got %T", ErrMalformedQuery, v)
	}
	if len(m) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one operator, got %d", ErrMalformedQuery, len(m))
	}
	var op string
	var body any
	for k, b := range m {
		op, body = k, b
	}
	switch strings.ToLower(op) {
	case OpAnd:
		ops, err := parseOperands(op, body)
		if err != nil {
			return nil, err
		}
		return And(ops), nil
	case OpOr:
		ops, err := parseOperands(op, body)
		if err != nil {
			return nil, err
		}
		return Or(ops), nil
	case OpEq, OpNe:
		return parseComparison(op, body)
	case OpJQ:
		s, ok := body.(string)
		if !ok {
			return nil, fmt.Errorf("%w: jq operand must be a string, got %T", ErrMalformedQuery, body)
		}
		q, err := NewJQ(s)
		if err != nil {
			return nil, err
		}
		return q, nil
	default:
		return nil, fmt.Errorf("%w: unknown operator %q", ErrMalformedQuery, op)
	}
}

func parseOperands(op string, body any) ([]Expr, error) {
	list, ok := body.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s operand must be a list, got %T", ErrMalformedQuery, op, body)
	}
	out := make([]Expr, 0, len(list))
	for i, item := range list {
		e, err := Parse(item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", op, i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func parseComparison(op string, body any) (Expr, error) {
	m, ok := body.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, fmt.Errorf("%w: %s operand must be a non-empty object", ErrMalformedQuery, op)
	}
	keys := slices.Sorted(maps.Keys(m))
	out := make(And, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			return nil, fmt.Errorf("%w: %s with empty property name", ErrMalformedQuery, op)
		}
		v, err := prop.Of(m[k])
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q: %v", ErrMalformedQuery, op, k, err)
		}
		if op == OpEq {
			out = append(out, Eq{Property: k, Value: v})
		} else {
			out = append(out, Ne{Property: k, Value: v})
		}
	}
	if len(out) == 1 {
		return out[0], nil
	}
	return out, nil
}

// ParseJSON parses a JSON-encoded query. Integral numbers are kept as ints.
func ParseJSON(data []byte) (Expr, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedQuery, err)
	}
	return Parse(raw)
}

// ParseYAML parses a YAML-encoded query.
func ParseYAML(data []byte) (Expr, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedQuery, err)
	}
	return Parse(raw)
}
