package runner

import (
	"reflect"

	"github.com/traefik/yaegi/interp"

	"mlsec/internal/runtime"
)

// exports is the yaegi symbol table exposed to generated code: exactly
// the public surface of internal/runtime that internal/codegen emits
// calls to, and nothing else. This is an exact symbol table rather than
// a package-name allowlist — the mechanism that physically prevents
// generated code from importing anything but internal/runtime, since
// yaegi only resolves identifiers it was given via Use.
var exports = interp.Exports{
	"mlsec/internal/runtime/runtime": map[string]reflect.Value{
		"AcquireScope":   reflect.ValueOf(runtime.AcquireScope),
		"Binary":         reflect.ValueOf(runtime.Binary),
		"Bool":           reflect.ValueOf(runtime.Bool),
		"BuildMapping":   reflect.ValueOf(runtime.BuildMapping),
		"CallMethod":     reflect.ValueOf(runtime.CallMethod),
		"CallModule":     reflect.ValueOf(runtime.CallModule),
		"CapSpec":        reflect.ValueOf((*runtime.CapSpec)(nil)),
		"Env":            reflect.ValueOf((*runtime.Env)(nil)),
		"ErrorValue":     reflect.ValueOf(runtime.ErrorValue),
		"FromSequence":   reflect.ValueOf(runtime.FromSequence),
		"IndexAccess":    reflect.ValueOf(runtime.IndexAccess),
		"LoadModule":     reflect.ValueOf(runtime.LoadModule),
		"Must":           reflect.ValueOf(runtime.Must),
		"Neg":            reflect.ValueOf(runtime.Neg),
		"NewArityError":  reflect.ValueOf(runtime.NewArityError),
		"NewSequence":    reflect.ValueOf(runtime.NewSequence),
		"Not":            reflect.ValueOf(runtime.Not),
		"Null":           reflect.ValueOf(runtime.Null),
		"Number":         reflect.ValueOf(runtime.Number),
		"PanicError":     reflect.ValueOf((*runtime.PanicError)(nil)),
		"Recover":        reflect.ValueOf(runtime.Recover),
		"SafeAttrAccess": reflect.ValueOf(runtime.SafeAttrAccess),
		"SetIndexValue":  reflect.ValueOf(runtime.SetIndexValue),
		"SetMember":      reflect.ValueOf(runtime.SetMember),
		"String":         reflect.ValueOf(runtime.String),
		"Value":          reflect.ValueOf((*runtime.Value)(nil)),
	},
}
