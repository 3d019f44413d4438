package cell

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestCoerce_SameTypeRoundTrip(t *testing.T) {
	if s, ok := String("  keep spaces "); !ok || s != "  keep spaces " {
		t.Fatalf("String round trip: %q %v", s, ok)
	}
	if n, ok := Int(42); !ok || n != 42 {
		t.Fatalf("Int round trip: %d %v", n, ok)
	}
	if f, ok := Float(1.25); !ok || f != 1.25 {
		t.Fatalf("Float round trip: %v %v", f, ok)
	}
	if f, ok := Float32(float32(0.1)); !ok || f != float32(0.1) {
		t.Fatalf("Float32 round trip: %v %v", f, ok)
	}
	if b, ok := Bool(true); !ok || !b {
		t.Fatalf("Bool round trip: %v %v", b, ok)
	}
	if got := Strings([]string{"a", "b"}); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("Strings round trip: %v", got)
	}
}

func TestInt_TruncatesTowardZero(t *testing.T) {
	cases := []struct {
		in   any
		want int
	}{
		{3.9, 3},
		{-3.9, -3},
		{json.Number("7"), 7},
		{json.Number("2.7"), 2},
		{json.Number("-2.7"), -2},
		{"12", 12},
		{" 5 ", 5},
		{true, 1},
		{false, 0},
	}
	for _, c := range cases {
		got, ok := Int(c.in)
		if !ok || got != c.want {
			t.Fatalf("Int(%#v)=%d,%v want %d", c.in, got, ok, c.want)
		}
	}
	for _, bad := range []any{nil, "", "7.5", "abc", []any{1}} {
		if _, ok := Int(bad); ok {
			t.Fatalf("Int(%#v) should fail", bad)
		}
	}
}

func TestFloat_InvariantParsing(t *testing.T) {
	if f, ok := Float("0.15"); !ok || f != 0.15 {
		t.Fatalf("Float(0.15)=%v,%v", f, ok)
	}
	if _, ok := Float("0,15"); ok {
		t.Fatalf("comma decimal separator must not parse")
	}
	if _, ok := Float(nil); ok {
		t.Fatalf("nil must not coerce")
	}
	if _, ok := Float(true); ok {
		t.Fatalf("bool must not coerce to float")
	}
}

func TestBool(t *testing.T) {
	for _, raw := range []any{"1", "TRUE", "Yes", " true ", 1, json.Number("2")} {
		if b, ok := Bool(raw); !ok || !b {
			t.Fatalf("Bool(%#v)=%v,%v want true", raw, b, ok)
		}
	}
	for _, raw := range []any{"0", "False", "NO", 0.0} {
		if b, ok := Bool(raw); !ok || b {
			t.Fatalf("Bool(%#v)=%v,%v want false", raw, b, ok)
		}
	}
	for _, raw := range []any{nil, "", "maybe", "2"} {
		if _, ok := Bool(raw); ok {
			t.Fatalf("Bool(%#v) should fail", raw)
		}
	}
}

func TestList_SplitsStrings(t *testing.T) {
	if got := Strings("a, b ,c"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("split: %v", got)
	}
	if got := Strings("x;y，z"); !reflect.DeepEqual(got, []string{"x", "y", "z"}) {
		t.Fatalf("split mixed separators: %v", got)
	}
	if got := Strings(""); len(got) != 0 {
		t.Fatalf("empty string should give empty list, got %v", got)
	}
	if got := Strings(" ; ,"); len(got) != 0 {
		t.Fatalf("separators only should give empty list, got %v", got)
	}
	if got := Strings(nil); got != nil {
		t.Fatalf("nil should fail to coerce, got %v", got)
	}
}

func TestList_NativeArraysDropFailures(t *testing.T) {
	raw := []any{json.Number("1"), "2", "x", nil, 3.9}
	if got := Ints(raw); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Fatalf("Ints: %v", got)
	}
	if got := Floats([]any{"0.5", json.Number("2"), "bad"}); !reflect.DeepEqual(got, []float64{0.5, 2}) {
		t.Fatalf("Floats: %v", got)
	}
	if got := Strings([]any{"a", nil, json.Number("3")}); !reflect.DeepEqual(got, []string{"a", "3"}) {
		t.Fatalf("Strings: %v", got)
	}
}

func TestList_ScalarBecomesSingleton(t *testing.T) {
	if got := Ints(json.Number("9")); !reflect.DeepEqual(got, []int{9}) {
		t.Fatalf("Ints scalar: %v", got)
	}
	if got := Strings(true); !reflect.DeepEqual(got, []string{"true"}) {
		t.Fatalf("Strings scalar: %v", got)
	}
}

func TestIsEmpty(t *testing.T) {
	for _, v := range []any{nil, "", "   ", []any{}} {
		if !IsEmpty(v) {
			t.Fatalf("IsEmpty(%#v) should be true", v)
		}
	}
	for _, v := range []any{"x", json.Number("0"), false, []any{"a"}} {
		if IsEmpty(v) {
			t.Fatalf("IsEmpty(%#v) should be false", v)
		}
	}
}
