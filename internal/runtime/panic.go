package runtime

import (
	"strconv"

	"mlsec/internal/diagnostic"
)

// PanicError is the mechanism generated code uses to unwind a failing
// expression out to the nearest enclosing try/except (or to the
// function's own top-level recover, which converts it into the (Value,
// error) pair every generated function returns). Go's panic/recover
// stands in for a structured unwind of source-level try/except/finally.
type PanicError struct{ Err error }

// Must panics with a PanicError when err is non-nil; every compound
// expression generated code emits is wrapped in Must so a failing
// sub-expression unwinds immediately instead of needing to thread an
// error return through arbitrarily nested Go expressions.
func Must(v Value, err error) Value {
	if err != nil {
		panic(PanicError{err})
	}
	return v
}

// Recover converts an in-flight panic into (result, err) for a generated
// function's top-level deferred recover. Non-PanicError panics (a real
// Go bug, not a user-language failure) are re-raised unchanged.
func Recover(r interface{}) (Value, error) {
	pe, ok := r.(PanicError)
	if !ok {
		panic(r)
	}
	return Null(), pe.Err
}

// ErrorValue turns a caught error into the Value bound by an `except
// (name)` clause: a mapping with "kind" and "message" keys. They are read
// by index (`e["kind"]`) or `e.get("kind")`; dotted access (`e.kind`) goes
// through the safe-attribute registry, whose mapping table does not list
// them, so it is denied.
func ErrorValue(err error) Value {
	m := NewMapping()
	switch e := err.(type) {
	case *diagnostic.UserLanguageError:
		m.Set("kind", String(e.Kind))
		m.Set("message", String(e.Message))
	case *diagnostic.CapabilityDenied:
		m.Set("kind", String("CapabilityDenied"))
		m.Set("message", String(e.Error()))
	case *diagnostic.AttributeForbidden:
		m.Set("kind", String("AttributeForbidden"))
		m.Set("message", String(e.Error()))
	default:
		m.Set("kind", String("Error"))
		m.Set("message", String(err.Error()))
	}
	return FromMapping(m)
}

// NewArityError builds the UserLanguageError generated code raises when a
// call supplies the wrong number of arguments for a function's declared
// parameter list.
func NewArityError(name string, want, got int) error {
	msg := name + ": expected " + strconv.Itoa(want) + " arguments, got " + strconv.Itoa(got)
	return &diagnostic.UserLanguageError{Kind: "ArityError", Message: msg}
}
