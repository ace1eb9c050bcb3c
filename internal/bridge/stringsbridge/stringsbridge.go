// Package stringsbridge is a worked example of the bridge registration
// API: a module exposing three text functions (contains, reverse, find)
// gated behind a capability. find returns a plain mapping with "found" and
// "index" keys; the module registers no custom type and no safe-attribute
// table of its own. It is deliberately not a full reimplementation of
// a host-language strings module — it exists to exercise internal/bridge
// end to end.
package stringsbridge

import (
	"fmt"
	"strings"

	"mlsec/internal/bridge"
	"mlsec/internal/capability"
	"mlsec/internal/runtime"
)

// Name is the module identifier ML source imports this bridge under:
// `import textutil`.
const Name = "textutil"

// RequiredCapability gates `import textutil` itself; a context with no
// "textutil" capability cannot load the module at all.
const RequiredCapability = "textutil"

// New builds the textutil bridge and registers it into t.
func New(t *bridge.Table) {
	t.Register(&bridge.Bridge{
		Name:           Name,
		LoadCapability: RequiredCapability,
		Funcs: map[string]bridge.Callable{
			"contains": {
				Name:                 "contains",
				RequiredCapabilities: nil,
				Validate:             requireArgs(2, "string", "string"),
				Fn: func(_ *capability.Context, args []runtime.Value) (runtime.Value, error) {
					return runtime.Bool(strings.Contains(args[0].AsString(), args[1].AsString())), nil
				},
			},
			"reverse": {
				Name:                 "reverse",
				RequiredCapabilities: nil,
				Validate:             requireArgs(1, "string"),
				Fn: func(_ *capability.Context, args []runtime.Value) (runtime.Value, error) {
					return runtime.String(reverseRunes(args[0].AsString())), nil
				},
			},
			"find": {
				Name:                 "find",
				RequiredCapabilities: nil,
				Validate:             requireArgs(2, "string", "string"),
				Fn: func(_ *capability.Context, args []runtime.Value) (runtime.Value, error) {
					idx := strings.Index(args[0].AsString(), args[1].AsString())
					m := runtime.NewMapping()
					m.Set("found", runtime.Bool(idx >= 0))
					m.Set("index", runtime.Number(float64(idx)))
					return runtime.FromMapping(m), nil
				},
			},
		},
	})
}

func requireArgs(n int, types ...string) func([]runtime.Value) error {
	return func(args []runtime.Value) error {
		if len(args) != n {
			return fmt.Errorf("textutil: expected %d arguments, got %d", n, len(args))
		}
		for i, t := range types {
			if args[i].TypeName() != t {
				return fmt.Errorf("textutil: argument %d must be %s, got %s", i+1, t, args[i].TypeName())
			}
		}
		return nil
	}
}

func reverseRunes(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
