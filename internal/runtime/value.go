// Package runtime is the tiny runtime preamble every generated program
// imports: one value representation, truthiness/equality/arithmetic
// rules, the capability-checked attribute accessor, and scoped
// capability acquisition. Generated code never imports anything else —
// this package, plus internal/capability and internal/safeattr it wraps,
// is the entire standard-library surface a compiled ML program can see.
package runtime

import (
	"fmt"
	"math"

	"mlsec/internal/diagnostic"
)

// Value is the single representation for every ML-level value: number,
// string, bool, null, *Sequence (array), or *Mapping (object). There is
// one numeric type, matching the source language's "all numbers
// uniform" rule.
type Value struct {
	kind kindT
	num  float64
	str  string
	b    bool
	seq  *Sequence
	obj  *Mapping
}

type kindT int

const (
	kNull kindT = iota
	kNumber
	kString
	kBool
	kSequence
	kMapping
)

func Null() Value                 { return Value{kind: kNull} }
func Number(f float64) Value      { return Value{kind: kNumber, num: f} }
func String(s string) Value       { return Value{kind: kString, str: s} }
func Bool(b bool) Value           { return Value{kind: kBool, b: b} }
func FromSequence(s *Sequence) Value { return Value{kind: kSequence, seq: s} }
func FromMapping(m *Mapping) Value   { return Value{kind: kMapping, obj: m} }

// TypeName returns the type identifier safeattr.Registry keys on.
func (v Value) TypeName() string {
	switch v.kind {
	case kNull:
		return "null"
	case kNumber:
		return "number"
	case kString:
		return "string"
	case kBool:
		return "bool"
	case kSequence:
		return "sequence"
	case kMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

func (v Value) IsNull() bool       { return v.kind == kNull }
func (v Value) AsNumber() float64  { return v.num }
func (v Value) AsString() string   { return v.str }
func (v Value) AsBool() bool       { return v.b }
func (v Value) AsSequence() *Sequence { return v.seq }
func (v Value) AsMapping() *Mapping   { return v.obj }

// Truthy implements the language's truthiness rule: false, null, 0, "",
// [], {} are false; everything else is true.
func (v Value) Truthy() bool {
	switch v.kind {
	case kNull:
		return false
	case kNumber:
		return v.num != 0
	case kString:
		return v.str != ""
	case kBool:
		return v.b
	case kSequence:
		return v.seq.Len() != 0
	case kMapping:
		return v.obj.Len() != 0
	default:
		return false
	}
}

// Equal implements structural equality for objects/arrays of scalars;
// reference identity is never exposed.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case kNull:
		return true
	case kNumber:
		return a.num == b.num
	case kString:
		return a.str == b.str
	case kBool:
		return a.b == b.b
	case kSequence:
		return sequenceEqual(a.seq, b.seq)
	case kMapping:
		return mappingEqual(a.obj, b.obj)
	default:
		return false
	}
}

func sequenceEqual(a, b *Sequence) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		if !Equal(a.At(i), b.At(i)) {
			return false
		}
	}
	return true
}

func mappingEqual(a, b *Mapping) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, k := range a.Keys() {
		av, _ := a.Get(k)
		bv, ok := b.Get(k)
		if !ok || !Equal(av, bv) {
			return false
		}
	}
	return true
}

// Binary implements the §4.1/§4.3 binary operators, including the
// "integer operations preserved when both operands are integral literals"
// rule for +, -, *, and the division-by-zero UserLanguageError.
func Binary(op string, a, b Value) (Value, error) {
	switch op {
	case "+":
		if a.kind == kString || b.kind == kString {
			return String(displayString(a) + displayString(b)), nil
		}
		if a.kind == kSequence && b.kind == kSequence {
			return FromSequence(Concat(a.seq, b.seq)), nil
		}
		return arith(a, b, func(x, y float64) float64 { return x + y })
	case "-":
		return arith(a, b, func(x, y float64) float64 { return x - y })
	case "*":
		return arith(a, b, func(x, y float64) float64 { return x * y })
	case "/":
		if b.kind == kNumber && b.num == 0 {
			return Value{}, &diagnostic.UserLanguageError{Kind: "ZeroDivisionError", Message: "division by zero"}
		}
		return arith(a, b, func(x, y float64) float64 { return x / y })
	case "%":
		if b.kind == kNumber && b.num == 0 {
			return Value{}, &diagnostic.UserLanguageError{Kind: "ZeroDivisionError", Message: "modulo by zero"}
		}
		return arith(a, b, math.Mod)
	case "==":
		return Bool(Equal(a, b)), nil
	case "!=":
		return Bool(!Equal(a, b)), nil
	case "<":
		return compare(a, b, func(c int) bool { return c < 0 })
	case "<=":
		return compare(a, b, func(c int) bool { return c <= 0 })
	case ">":
		return compare(a, b, func(c int) bool { return c > 0 })
	case ">=":
		return compare(a, b, func(c int) bool { return c >= 0 })
	case "&&":
		if !a.Truthy() {
			return a, nil
		}
		return b, nil
	case "||":
		if a.Truthy() {
			return a, nil
		}
		return b, nil
	default:
		return Value{}, &diagnostic.UserLanguageError{Kind: "TypeError", Message: fmt.Sprintf("unknown operator %q", op)}
	}
}

func arith(a, b Value, f func(x, y float64) float64) (Value, error) {
	if a.kind != kNumber || b.kind != kNumber {
		return Value{}, &diagnostic.UserLanguageError{Kind: "TypeError", Message: fmt.Sprintf("unsupported operand types for arithmetic: %s and %s", a.TypeName(), b.TypeName())}
	}
	return Number(f(a.num, b.num)), nil
}

func compare(a, b Value, test func(int) bool) (Value, error) {
	switch {
	case a.kind == kNumber && b.kind == kNumber:
		return Bool(test(cmpFloat(a.num, b.num))), nil
	case a.kind == kString && b.kind == kString:
		return Bool(test(cmpString(a.str, b.str))), nil
	default:
		return Value{}, &diagnostic.UserLanguageError{Kind: "TypeError", Message: fmt.Sprintf("cannot compare %s and %s", a.TypeName(), b.TypeName())}
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Not implements unary `!`.
func Not(v Value) Value { return Bool(!v.Truthy()) }

// Neg implements unary `-`.
func Neg(v Value) (Value, error) {
	if v.kind != kNumber {
		return Value{}, &diagnostic.UserLanguageError{Kind: "TypeError", Message: fmt.Sprintf("bad operand type for unary -: %s", v.TypeName())}
	}
	return Number(-v.num), nil
}

// Display renders v the way a `print`-style builtin would, for hosts that
// need a user-facing rendering of a top-level result (e.g. cmd/mlrunner
// reporting a program's return value).
func (v Value) Display() string { return displayString(v) }

func displayString(v Value) string {
	switch v.kind {
	case kString:
		return v.str
	case kNumber:
		if v.num == math.Trunc(v.num) {
			return fmt.Sprintf("%d", int64(v.num))
		}
		return fmt.Sprintf("%g", v.num)
	case kBool:
		if v.b {
			return "true"
		}
		return "false"
	case kNull:
		return "null"
	default:
		return fmt.Sprintf("%v", v)
	}
}
