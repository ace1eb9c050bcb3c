package runtime

import "testing"

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Null(), false},
		{Number(0), false},
		{Number(1), true},
		{String(""), false},
		{String("x"), true},
		{Bool(false), false},
		{Bool(true), true},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("%v.Truthy() = %v, want %v", c.v.TypeName(), got, c.want)
		}
	}
}

func TestBinaryArithmetic(t *testing.T) {
	v, err := Binary("+", Number(2), Number(3))
	if err != nil || v.AsNumber() != 5 {
		t.Fatalf("2 + 3 = %v, %v, want 5, nil", v.AsNumber(), err)
	}
	v, err = Binary("+", String("a"), String("b"))
	if err != nil || v.AsString() != "ab" {
		t.Fatalf(`"a" + "b" = %v, %v, want "ab", nil`, v.AsString(), err)
	}
}

func TestBinaryDivisionByZero(t *testing.T) {
	_, err := Binary("/", Number(1), Number(0))
	if err == nil {
		t.Fatal("expected a ZeroDivisionError-shaped error")
	}
}

func TestBinaryMismatchedTypesIsTypeError(t *testing.T) {
	_, err := Binary("-", String("a"), Number(1))
	if err == nil {
		t.Fatal("expected an error subtracting a number from a string")
	}
}

func TestEqualStructural(t *testing.T) {
	if !Equal(Number(1), Number(1)) {
		t.Error("Equal(1, 1) should be true")
	}
	if Equal(Number(1), String("1")) {
		t.Error("Equal across kinds should be false")
	}
}

func TestShortCircuitLogical(t *testing.T) {
	v, _ := Binary("&&", Bool(false), Number(42))
	if v.Truthy() {
		t.Error("false && 42 must be falsy, short-circuiting on the left operand")
	}
	v, _ = Binary("||", Number(0), String("fallback"))
	if v.AsString() != "fallback" {
		t.Errorf("0 || \"fallback\" = %v, want fallback", v)
	}
}
