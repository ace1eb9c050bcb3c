package runtime

import (
	"fmt"

	"mlsec/internal/capability"
	"mlsec/internal/diagnostic"
	"mlsec/internal/safeattr"
)

// BridgeTable is the interface internal/bridge.Table satisfies. It is
// declared here, not imported, so internal/bridge can depend on Value
// without this package depending back on internal/bridge.
type BridgeTable interface {
	CallAttr(ctx *capability.Context, typeName, name string, obj Value, args []Value) (Value, error)
	CallModule(ctx *capability.Context, module, fn string, args []Value) (Value, error)
	Load(ctx *capability.Context, registry *safeattr.Registry, name string) error
}

// Env is the first-class parameter threaded through every generated
// function frame, representing the current capability context as an
// explicit value rather than thread-local state. It carries the
// capability context for the current scope and the process's immutable
// safe-attribute registry and bridge table.
type Env struct {
	Registry *safeattr.Registry
	Bridges  BridgeTable
	Ctx      *capability.Context
}

func (e *Env) held(capType string) bool {
	if e.Ctx == nil {
		return false
	}
	ok, _ := e.Ctx.HasCapability(capType)
	return ok
}

// denyAttr emits an audit event before every AttributeForbidden returns
// control to the caller.
func (e *Env) denyAttr(typeName, attr string) {
	if e.Ctx == nil {
		return
	}
	e.Ctx.Emit(capability.AuditEvent{Operation: "attribute_access", Resource: typeName + "." + attr, Outcome: "denied", Reason: "attribute not registered as safe"})
}

// SafeAttrAccess lowers `x.y`: consult the registry; deny raises
// AttributeForbidden. For every member access in generated code, either
// this returns ok or it returns an error — there is no third outcome.
func SafeAttrAccess(env *Env, obj Value, name string) (Value, error) {
	if !env.Registry.IsSafe(obj.TypeName(), name, env.held) {
		env.denyAttr(obj.TypeName(), name)
		return Value{}, safeattr.Deny(obj.TypeName(), name)
	}
	return dispatchAttr(env, obj, name)
}

// CallMethod lowers `x.y(args...)`. The method lookup is gated exactly
// like a property access; invocation is then dispatched to the builtin
// implementation or a registered bridge callable.
func CallMethod(env *Env, obj Value, name string, args ...Value) (Value, error) {
	if !env.Registry.IsSafe(obj.TypeName(), name, env.held) {
		env.denyAttr(obj.TypeName(), name)
		return Value{}, safeattr.Deny(obj.TypeName(), name)
	}
	return dispatchMethod(env, obj, name, args)
}

// IndexAccess lowers `x[k]`. A string key is checked against the dunder
// deny-set only; it is not looked up in the safe-attribute registry,
// whether or not the key is a constant in the source. A mapping is then
// read by key and a sequence by numeric index; other combinations are a
// TypeError.
func IndexAccess(env *Env, obj, key Value) (Value, error) {
	if key.kind == kString {
		if isDunder(key.str) {
			env.denyAttr(obj.TypeName(), key.str)
			return Value{}, safeattr.Deny(obj.TypeName(), key.str)
		}
		if obj.kind == kMapping {
			v, ok := obj.obj.Get(key.str)
			if !ok {
				return Value{}, &diagnostic.UserLanguageError{Kind: "KeyError", Message: fmt.Sprintf("key %q not found", key.str)}
			}
			return v, nil
		}
	}
	if obj.kind == kSequence && key.kind == kNumber {
		return obj.seq.Index(int(key.num))
	}
	if obj.kind == kMapping && key.kind == kString {
		v, ok := obj.obj.Get(key.str)
		if !ok {
			return Value{}, &diagnostic.UserLanguageError{Kind: "KeyError", Message: fmt.Sprintf("key %q not found", key.str)}
		}
		return v, nil
	}
	return Value{}, &diagnostic.UserLanguageError{Kind: "TypeError", Message: fmt.Sprintf("cannot index %s with %s", obj.TypeName(), key.TypeName())}
}

func isDunder(name string) bool { return dunderPatternRuntime.MatchString(name) }

// CallModule lowers `modname.fn(args...)` for an imported bridge module.
func CallModule(env *Env, module, fn string, args ...Value) (Value, error) {
	if env.Bridges == nil {
		return Value{}, fmt.Errorf("no bridge module registered as %q", module)
	}
	return env.Bridges.CallModule(env.Ctx, module, fn, args)
}

// LoadModule lowers one `import` declaration, executed once at program
// entry before any statement that might reference the module.
func LoadModule(env *Env, name string) error {
	if env.Bridges == nil {
		return fmt.Errorf("no bridge table configured: cannot import %q", name)
	}
	return env.Bridges.Load(env.Ctx, env.Registry, name)
}

// SetMember lowers `x.y = v`. Only a mapping's own fields are settable
// through dotted assignment; the target is still gated by the registry
// exactly like a read.
func SetMember(env *Env, obj Value, name string, v Value) (Value, error) {
	if !env.Registry.IsSafe(obj.TypeName(), name, env.held) {
		env.denyAttr(obj.TypeName(), name)
		return Value{}, safeattr.Deny(obj.TypeName(), name)
	}
	if obj.kind != kMapping {
		return Value{}, &diagnostic.UserLanguageError{Kind: "TypeError", Message: fmt.Sprintf("%s has no assignable field %q", obj.TypeName(), name)}
	}
	obj.obj.Set(name, v)
	return v, nil
}

// SetIndexValue lowers `x[k] = v` for both sequences (bounds-checked, no
// implicit growth) and mappings (always settable, growing the mapping if
// the key is new).
func SetIndexValue(env *Env, obj, key, v Value) (Value, error) {
	switch obj.kind {
	case kSequence:
		if key.kind != kNumber {
			return Value{}, &diagnostic.UserLanguageError{Kind: "TypeError", Message: "sequence index must be a number"}
		}
		if err := obj.seq.SetIndex(int(key.num), v); err != nil {
			return Value{}, err
		}
		return v, nil
	case kMapping:
		if key.kind != kString {
			return Value{}, &diagnostic.UserLanguageError{Kind: "TypeError", Message: "mapping key must be a string"}
		}
		if isDunder(key.str) {
			env.denyAttr(obj.TypeName(), key.str)
			return Value{}, safeattr.Deny(obj.TypeName(), key.str)
		}
		obj.obj.Set(key.str, v)
		return v, nil
	default:
		return Value{}, &diagnostic.UserLanguageError{Kind: "TypeError", Message: fmt.Sprintf("cannot assign into %s by index", obj.TypeName())}
	}
}

// BuildMapping constructs an object literal's runtime value, preserving
// the source's key order.
func BuildMapping(keys []string, values []Value) Value {
	m := NewMapping()
	for i, k := range keys {
		m.Set(k, values[i])
	}
	return FromMapping(m)
}

// dispatchAttr handles the built-in property reads safeattr.Registry
// already approved (length, etc.); everything else routes to a bridge.
func dispatchAttr(env *Env, obj Value, name string) (Value, error) {
	switch {
	case name == "length" && obj.kind == kString:
		return Number(float64(len([]rune(obj.str)))), nil
	case name == "length" && obj.kind == kSequence:
		return Number(float64(obj.seq.Len())), nil
	case name == "length" && obj.kind == kMapping:
		return Number(float64(obj.obj.Len())), nil
	default:
		return callBridge(env, obj, name, nil)
	}
}

func callBridge(env *Env, obj Value, name string, args []Value) (Value, error) {
	if env.Bridges == nil {
		env.denyAttr(obj.TypeName(), name)
		return Value{}, safeattr.Deny(obj.TypeName(), name)
	}
	return env.Bridges.CallAttr(env.Ctx, obj.TypeName(), name, obj, args)
}

func dispatchMethod(env *Env, obj Value, name string, args []Value) (Value, error) {
	switch {
	case obj.kind == kString:
		if v, ok := stringMethod(name, obj.str, args); ok {
			return v, nil
		}
	case obj.kind == kMapping:
		if v, ok := mappingMethod(name, obj.obj, args); ok {
			return v, nil
		}
	case obj.kind == kSequence:
		if v, ok, err := sequenceMethod(name, obj.seq, args); ok {
			return v, err
		}
	}
	return callBridge(env, obj, name, args)
}

func stringMethod(name, s string, args []Value) (Value, bool) {
	switch name {
	case "upper":
		return String(toUpper(s)), true
	case "lower":
		return String(toLower(s)), true
	case "trim":
		return String(trimSpace(s)), true
	case "split":
		sep := " "
		if len(args) > 0 {
			sep = args[0].AsString()
		}
		return FromSequence(splitString(s, sep)), true
	}
	return Value{}, false
}

func mappingMethod(name string, m *Mapping, args []Value) (Value, bool) {
	switch name {
	case "keys":
		items := make([]Value, 0, m.Len())
		for _, k := range m.Keys() {
			items = append(items, String(k))
		}
		return FromSequence(NewSequence(items...)), true
	case "values":
		items := make([]Value, 0, m.Len())
		for _, k := range m.Keys() {
			v, _ := m.Get(k)
			items = append(items, v)
		}
		return FromSequence(NewSequence(items...)), true
	case "items":
		items := make([]Value, 0, m.Len())
		for _, k := range m.Keys() {
			v, _ := m.Get(k)
			pair := NewMapping()
			pair.Set("key", String(k))
			pair.Set("value", v)
			items = append(items, FromMapping(pair))
		}
		return FromSequence(NewSequence(items...)), true
	case "get":
		if len(args) == 0 {
			return Null(), true
		}
		if v, ok := m.Get(args[0].AsString()); ok {
			return v, true
		}
		if len(args) > 1 {
			return args[1], true
		}
		return Null(), true
	}
	return Value{}, false
}

func sequenceMethod(name string, s *Sequence, args []Value) (Value, bool, error) {
	switch name {
	case "length":
		return Number(float64(s.Len())), true, nil
	case "slice":
		start, end := 0, s.Len()
		if len(args) > 0 {
			start = int(args[0].AsNumber())
		}
		if len(args) > 1 {
			end = int(args[1].AsNumber())
		}
		if start < 0 {
			start = 0
		}
		if end > s.Len() {
			end = s.Len()
		}
		if start > end {
			start = end
		}
		items := make([]Value, 0, end-start)
		for i := start; i < end; i++ {
			items = append(items, s.At(i))
		}
		return FromSequence(NewSequence(items...)), true, nil
	case "push":
		if len(args) > 0 {
			s.Push(args[0])
		}
		return Null(), true, nil
	case "pop":
		v, err := s.Pop()
		return v, true, err
	}
	return Value{}, false, nil
}
