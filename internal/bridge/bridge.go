// Package bridge implements the extensibility surface that lets
// third-party Go code expose additional callables and custom types to ML
// programs, gated by the same capability model as everything else the
// runtime touches. Concrete stdlib-shaped bridges (math, json, regex,
// path, file, network) are out of scope here — only the registration
// mechanism itself is, and internal/bridge/stringsbridge exists purely to
// exercise it with one worked example.
package bridge

import (
	"fmt"
	"sync"

	"mlsec/internal/capability"
	"mlsec/internal/diagnostic"
	"mlsec/internal/runtime"
	"mlsec/internal/safeattr"
)

// Callable is one function a bridge exposes, either as a module-level
// function (`modname.fn(...)`) or as a method on a value a bridge
// previously returned (`result.fn(...)`).
type Callable struct {
	Name                 string
	RequiredCapabilities []string
	Validate             func(args []runtime.Value) error
	Fn                   func(ctx *capability.Context, args []runtime.Value) (runtime.Value, error)
}

func (c Callable) invoke(ctx *capability.Context, held func(string) bool, args []runtime.Value) (runtime.Value, error) {
	for _, cap := range c.RequiredCapabilities {
		if !held(cap) {
			if ctx != nil {
				ctx.Emit(capability.AuditEvent{CapabilityType: cap, Operation: c.Name, Outcome: "denied", Reason: "bridge call requires a capability not held in the current context"})
			}
			return runtime.Value{}, &diagnostic.CapabilityDenied{CapabilityType: cap, Operation: c.Name, Reason: "bridge call requires a capability not held in the current context"}
		}
	}
	if c.Validate != nil {
		if err := c.Validate(args); err != nil {
			return runtime.Value{}, err
		}
	}
	v, err := c.Fn(ctx, args)
	if ctx != nil && len(c.RequiredCapabilities) > 0 {
		for _, cap := range c.RequiredCapabilities {
			ctx.Emit(capability.AuditEvent{CapabilityType: cap, Operation: c.Name, Outcome: "allowed"})
		}
	}
	return v, err
}

// Bridge is one registered module: a name, an optional capability gating
// whether it can be imported at all, the module-level functions it
// exposes, and the safe-attribute tables for any custom types its
// functions return.
type Bridge struct {
	Name           string
	LoadCapability string
	Funcs          map[string]Callable
	// TypeMethods maps a custom return-type name to its method table, for
	// values the bridge hands back (e.g. a parsed-result object).
	TypeMethods map[string]map[string]Callable
	// Attrs is installed into the safeattr.Registry at Load time so
	// generated code's member-access gate recognizes the custom type.
	Attrs map[string]map[string]safeattr.SafeAttribute
}

// Table holds every registered Bridge. It implements runtime.BridgeTable.
type Table struct {
	mu      sync.RWMutex
	bridges map[string]*Bridge
	loaded  map[string]bool
}

func NewTable() *Table {
	return &Table{bridges: map[string]*Bridge{}, loaded: map[string]bool{}}
}

func (t *Table) Register(b *Bridge) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bridges[b.Name] = b
}

// Load implements `import <bridge>` lowering: it checks LoadCapability (if
// any) against ctx and, on success, installs the bridge's safe-attribute
// tables into registry so subsequent member access on values it returns is
// gated normally.
func (t *Table) Load(ctx *capability.Context, registry *safeattr.Registry, name string) error {
	t.mu.RLock()
	b, ok := t.bridges[name]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("bridge: no module registered as %q", name)
	}
	if b.LoadCapability != "" {
		held, _ := ctx.HasCapability(b.LoadCapability)
		if !held {
			ctx.Emit(capability.AuditEvent{CapabilityType: b.LoadCapability, Operation: "import", Resource: name, Outcome: "denied", Reason: "importing this module requires a capability not granted to this context"})
			return &diagnostic.CapabilityDenied{CapabilityType: b.LoadCapability, Operation: "import", Resource: name, Reason: "importing this module requires a capability not granted to this context"}
		}
		ctx.Emit(capability.AuditEvent{CapabilityType: b.LoadCapability, Operation: "import", Resource: name, Outcome: "allowed"})
	}
	for typeName, attrs := range b.Attrs {
		registry.Register(typeName, attrs)
	}
	t.mu.Lock()
	t.loaded[name] = true
	t.mu.Unlock()
	return nil
}

// CallModule lowers `modname.fn(args...)`.
func (t *Table) CallModule(ctx *capability.Context, module, fn string, args []runtime.Value) (runtime.Value, error) {
	t.mu.RLock()
	b, ok := t.bridges[module]
	t.mu.RUnlock()
	if !ok {
		return runtime.Value{}, fmt.Errorf("bridge: no module registered as %q", module)
	}
	callable, ok := b.Funcs[fn]
	if !ok {
		return runtime.Value{}, fmt.Errorf("bridge: %s has no function %q", module, fn)
	}
	return callable.invoke(ctx, heldFunc(ctx), args)
}

// CallAttr implements runtime.BridgeTable: the fallback dispatch when a
// value's member access/method call isn't one of the built-in
// string/sequence/mapping operations. It searches every bridge's
// TypeMethods table for a method registered against obj's type name.
func (t *Table) CallAttr(ctx *capability.Context, typeName, name string, obj runtime.Value, args []runtime.Value) (runtime.Value, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, b := range t.bridges {
		methods, ok := b.TypeMethods[typeName]
		if !ok {
			continue
		}
		callable, ok := methods[name]
		if !ok {
			continue
		}
		full := append([]runtime.Value{obj}, args...)
		return callable.invoke(ctx, heldFunc(ctx), full)
	}
	return runtime.Value{}, fmt.Errorf("bridge: no method %q registered for type %q", name, typeName)
}

func heldFunc(ctx *capability.Context) func(string) bool {
	return func(capType string) bool {
		if ctx == nil {
			return false
		}
		ok, _ := ctx.HasCapability(capType)
		return ok
	}
}
