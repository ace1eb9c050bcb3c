package runtime

import (
	"time"

	"mlsec/internal/capability"
)

// CapSpec is the Go-literal shape codegen emits for each `capability`
// declaration's token factory: a factory that constructs a
// CapabilityToken with the declared constraints.
type CapSpec struct {
	Type             string
	ResourcePatterns []string
	Operations       []string
	MaxUsage         int64
	MaxFileSizeBytes int64
	Hosts            []string
	Ports            []int
	TTLSeconds       int64
}

// AcquireScope is the scoped-acquisition wrapper generated code calls
// once at program entry: it mints one Token per CapSpec, pushes a child
// capability context holding them, and returns that child wrapped in a
// fresh *Env plus the release closure the caller must defer so the
// context is dropped on every exit path.
func AcquireScope(env *Env, name string, specs []CapSpec) (*Env, func()) {
	tokens := make([]*capability.Token, 0, len(specs))
	for _, s := range specs {
		c := capability.Constraints{
			MaxUsage:    s.MaxUsage,
			MaxFileSize: s.MaxFileSizeBytes,
			Hosts:       s.Hosts,
			Ports:       s.Ports,
		}
		if s.TTLSeconds > 0 {
			c.ExpiresAt = time.Now().Add(time.Duration(s.TTLSeconds) * time.Second)
		}
		tokens = append(tokens, capability.New(s.Type, s.ResourcePatterns, s.Operations, c))
	}
	child, release := capability.AcquireChild(env.Ctx, name, tokens)
	next := &Env{Registry: env.Registry, Bridges: env.Bridges, Ctx: child}
	return next, release
}
