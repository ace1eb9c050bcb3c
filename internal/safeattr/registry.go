// Package safeattr implements the safe-attribute registry consulted by
// generated code at every member access: an immutable
// type→attribute-name→SafeAttribute lookup table built once at startup
// and consulted read-only thereafter, swappable as a whole by atomic
// root-pointer replace for hot reload.
package safeattr

import (
	"regexp"
	"sync/atomic"

	"mlsec/internal/diagnostic"
)

var dunderPattern = regexp.MustCompile(`^__.*__$`)

// Kind classifies a SafeAttribute.
type Kind int

const (
	Property Kind = iota
	Method
	Forbidden
)

// SafeAttribute is one registered member.
type SafeAttribute struct {
	Name                 string
	Kind                 Kind
	RequiredCapabilities []string
	Description          string
}

// heldBy reports whether held (a capability-type lookup on the current
// context) returns true for every capability this attribute requires.
func (a SafeAttribute) heldBy(held func(string) bool) bool {
	for _, c := range a.RequiredCapabilities {
		if !held(c) {
			return false
		}
	}
	return true
}

// snapshot is the immutable table a Registry wraps; swapping the whole
// struct via atomic.Value is the hot-reload mechanism: reload = swap of
// the root reference.
type snapshot struct {
	byType   map[string]map[string]SafeAttribute
	builtins map[string]map[string]SafeAttribute
}

// Registry gates every attribute access executed by generated code. It
// is safe for concurrent lock-free reads; writers replace the whole
// snapshot.
type Registry struct {
	cur atomic.Value // holds *snapshot
}

// New builds an empty registry with the standard built-ins table
// installed (strings, sequences, key/value mappings).
func New() *Registry {
	r := &Registry{}
	r.cur.Store(&snapshot{
		byType:   map[string]map[string]SafeAttribute{},
		builtins: defaultBuiltins(),
	})
	return r
}

func (r *Registry) load() *snapshot { return r.cur.Load().(*snapshot) }

// Register installs the attribute table for one bridge-defined type
// identifier, called once at module init for each bridged module. It
// copy-on-writes the snapshot so concurrent readers never observe a
// partially-built table.
func (r *Registry) Register(typeIdentifier string, attrs map[string]SafeAttribute) {
	old := r.load()
	next := &snapshot{byType: make(map[string]map[string]SafeAttribute, len(old.byType)+1), builtins: old.builtins}
	for k, v := range old.byType {
		next.byType[k] = v
	}
	copied := make(map[string]SafeAttribute, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	next.byType[typeIdentifier] = copied
	r.cur.Store(next)
}

// IsSafe decides whether name is an accessible member of typeIdentifier
// in the current context. typeIdentifier names the runtime type of the
// object being accessed; held reports whether the current capability
// context holds a given capability type.
func (r *Registry) IsSafe(typeIdentifier, name string, held func(capType string) bool) bool {
	if dunderPattern.MatchString(name) {
		return false
	}
	snap := r.load()
	if table, ok := snap.byType[typeIdentifier]; ok {
		if attr, ok := table[name]; ok {
			return attr.Kind != Forbidden && attr.heldBy(held)
		}
		return false
	}
	if table, ok := snap.builtins[typeIdentifier]; ok {
		if attr, ok := table[name]; ok {
			return attr.Kind != Forbidden && attr.heldBy(held)
		}
	}
	return false
}

// Deny is the constructor for the *diagnostic.AttributeForbidden error
// generated code raises when IsSafe returns false; every denial in
// internal/runtime routes through this so the registry owns the shape of
// the error it documents.
func Deny(typeName, attr string) error {
	return &diagnostic.AttributeForbidden{TypeName: typeName, Attr: attr}
}

// defaultBuiltins provides whitelists for strings, sequences, and
// key/value mappings — upper/lower/split for strings, keys/values/
// items/get for mappings.
func defaultBuiltins() map[string]map[string]SafeAttribute {
	prop := func(name string) SafeAttribute { return SafeAttribute{Name: name, Kind: Property} }
	method := func(name string) SafeAttribute { return SafeAttribute{Name: name, Kind: Method} }
	return map[string]map[string]SafeAttribute{
		"string": {
			"upper":  method("upper"),
			"lower":  method("lower"),
			"split":  method("split"),
			"trim":   method("trim"),
			"length": prop("length"),
		},
		"sequence": {
			"length": prop("length"),
			"push":   method("push"),
			"pop":    method("pop"),
			"slice":  method("slice"),
		},
		"mapping": {
			"keys":   method("keys"),
			"values": method("values"),
			"items":  method("items"),
			"get":    method("get"),
		},
	}
}
