package prop_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/haivivi/topograph/pkg/prop"
)

func TestOf(t *testing.T) {
	tests := []struct {
		in   any
		kind prop.Kind
	}{
		{nil, prop.KindNull},
		{"up", prop.KindString},
		{true, prop.KindBool},
		{int8(3), prop.KindInt},
		{uint32(3), prop.KindInt},
		{int64(-7), prop.KindInt},
		{float32(1.5), prop.KindFloat},
		{json.Number("42"), prop.KindInt},
		{json.Number("4.2"), prop.KindFloat},
	}
	for _, tt := range tests {
		v, err := prop.Of(tt.in)
		if err != nil {
			t.Fatalf("Of(%#v): %v", tt.in, err)
		}
		if v.Kind() != tt.kind {
			t.Errorf("Of(%#v).Kind() = %s, want %s", tt.in, v.Kind(), tt.kind)
		}
	}
}

func TestOf_Unsupported(t *testing.T) {
	for _, in := range []any{[]any{1}, map[string]any{}, uint64(1 << 63), struct{}{}} {
		if _, err := prop.Of(in); !errors.Is(err, prop.ErrUnsupported) {
			t.Errorf("Of(%#v): expected ErrUnsupported, got %v", in, err)
		}
	}
}

func TestEqual(t *testing.T) {
	if !prop.Int(4).Equal(prop.Float(4)) {
		t.Fatal("Int(4) should equal Float(4)")
	}
	if !prop.Float(4).Equal(prop.Int(4)) {
		t.Fatal("Float(4) should equal Int(4)")
	}
	if prop.Int(4).Equal(prop.Float(4.5)) {
		t.Fatal("Int(4) should not equal Float(4.5)")
	}
	if prop.String("4").Equal(prop.Int(4)) {
		t.Fatal("String(4) should not equal Int(4)")
	}
	if prop.Bool(false).Equal(prop.Value{}) {
		t.Fatal("false should not equal null")
	}
	if !(prop.Value{}).Equal(prop.Value{}) {
		t.Fatal("null should equal null")
	}
}

func TestJSON(t *testing.T) {
	var m prop.Map
	if err := json.Unmarshal([]byte(`{"cpu":4,"load":0.5,"name":"h1","up":true,"gone":null}`), &m); err != nil {
		t.Fatal(err)
	}
	if m["cpu"].Kind() != prop.KindInt {
		t.Fatalf("cpu kind = %s, want int", m["cpu"].Kind())
	}
	if m["load"].Kind() != prop.KindFloat {
		t.Fatalf("load kind = %s, want float", m["load"].Kind())
	}
	if !m["gone"].IsNull() {
		t.Fatalf("gone = %s, want null", m["gone"])
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	var back prop.Map
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	for k, v := range m {
		if !back[k].Equal(v) {
			t.Errorf("%s: %s after round trip, want %s", k, back[k], v)
		}
	}
}

func TestYAML(t *testing.T) {
	var m prop.Map
	src := "cpu: 8\nzone: az-1\nmaintenance: false\n"
	if err := yaml.Unmarshal([]byte(src), &m); err != nil {
		t.Fatal(err)
	}
	if !m["cpu"].Equal(prop.Int(8)) {
		t.Fatalf("cpu = %s", m["cpu"])
	}
	if !m["zone"].Equal(prop.String("az-1")) {
		t.Fatalf("zone = %s", m["zone"])
	}
	if !m["maintenance"].Equal(prop.Bool(false)) {
		t.Fatalf("maintenance = %s", m["maintenance"])
	}

	var bad prop.Map
	if err := yaml.Unmarshal([]byte("tags: [a, b]\n"), &bad); !errors.Is(err, prop.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for a sequence, got %v", err)
	}
}

func TestMsgpack(t *testing.T) {
	m := prop.Map{"cpu": prop.Int(16), "ratio": prop.Float(0.25), "rack": prop.String("r7")}
	data, err := msgpack.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	var back prop.Map
	if err := msgpack.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	for k, v := range m {
		if !back[k].Equal(v) {
			t.Errorf("%s: %s after round trip, want %s", k, back[k], v)
		}
	}
}

func TestMapHelpers(t *testing.T) {
	m, err := prop.FromAny(map[string]any{"b": 1, "a": "x"})
	if err != nil {
		t.Fatal(err)
	}
	keys := m.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("Keys() = %v", keys)
	}
	c := m.Clone()
	c["a"] = prop.String("y")
	if !m["a"].Equal(prop.String("x")) {
		t.Fatal("Clone shares storage with the original")
	}
	if got := m.Any()["b"]; got != int64(1) {
		t.Fatalf("Any()[b] = %#v, want int64(1)", got)
	}
}
