// Package policy implements the administrator-authored policy file: a
// YAML artifact describing the set of CapabilityTokens a sandbox session
// is allowed to mint. It is the "granted" side of the declared ⊆ granted
// rule, and the source of the tokens cmd/mlrunner constructs its root
// capability context from.
//
// A plain gopkg.in/yaml.v3 struct unmarshal, no custom decoding, read
// once at process startup.
package policy

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"mlsec/internal/capability"
)

// File is the on-disk shape of a policy document.
type File struct {
	Name      string        `yaml:"name"`
	AppliesTo []string      `yaml:"applies_to"`
	Grants    []GrantRecord `yaml:"grants"`
}

// GrantRecord is one granted capability type: resource patterns,
// operations, and constraints.
type GrantRecord struct {
	Type             string   `yaml:"type"`
	ResourcePatterns []string `yaml:"resource_patterns"`
	Operations       []string `yaml:"operations"`
	Constraints      struct {
		MaxFileSize int64    `yaml:"max_file_size"`
		MaxUsage    int64    `yaml:"max_usage"`
		TTLSeconds  int64    `yaml:"ttl_seconds"`
		Hosts       []string `yaml:"hosts"`
		Ports       []int    `yaml:"ports"`
	} `yaml:"constraints"`
}

// Policy is a loaded, parsed policy document. loadedAt anchors the
// relative ttl_seconds field at the moment the policy was read, which is
// also the moment the sandbox mints tokens from it, since a policy file
// is read once at sandbox startup and absolute expiry computed here and
// at token-mint time coincide in practice.
type Policy struct {
	File     File
	loadedAt time.Time
}

// Load reads and parses a policy file from path.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("policy: parse %s: %w", path, err)
	}
	return &Policy{File: f, loadedAt: time.Now()}, nil
}

// Applies reports whether this policy applies to subject (a user or
// group name). An empty AppliesTo list applies to every subject.
func (p *Policy) Applies(subject string) bool {
	if len(p.File.AppliesTo) == 0 {
		return true
	}
	for _, s := range p.File.AppliesTo {
		if s == subject {
			return true
		}
	}
	return false
}

// Grants converts this policy's records into capability.Grant values for
// the Validator's granted set. TTLSeconds is resolved to an absolute
// ExpiresAt relative to when the policy was loaded.
func (p *Policy) Grants() []capability.Grant {
	out := make([]capability.Grant, 0, len(p.File.Grants))
	for _, g := range p.File.Grants {
		out = append(out, capability.Grant{
			Type:             g.Type,
			ResourcePatterns: append([]string(nil), g.ResourcePatterns...),
			Operations:       append([]string(nil), g.Operations...),
			Constraints:      p.constraintsOf(g),
		})
	}
	return out
}

func (p *Policy) constraintsOf(g GrantRecord) capability.Constraints {
	c := capability.Constraints{
		MaxUsage:    g.Constraints.MaxUsage,
		MaxFileSize: g.Constraints.MaxFileSize,
		Hosts:       append([]string(nil), g.Constraints.Hosts...),
		Ports:       append([]int(nil), g.Constraints.Ports...),
	}
	if g.Constraints.TTLSeconds > 0 {
		c.ExpiresAt = p.loadedAt.Add(time.Duration(g.Constraints.TTLSeconds) * time.Second)
	}
	return c
}

// MintTokens constructs one real, checksummed capability.Token per grant
// record — the concrete tokens the sandbox installs into the child's
// root capability context.
func (p *Policy) MintTokens() []*capability.Token {
	tokens := make([]*capability.Token, 0, len(p.File.Grants))
	for _, g := range p.File.Grants {
		tokens = append(tokens, capability.New(g.Type, g.ResourcePatterns, g.Operations, p.constraintsOf(g)))
	}
	return tokens
}

// Merge combines the grants of several applicable policies into the
// union the validator consumes.
func Merge(policies []*Policy) []capability.Grant {
	var out []capability.Grant
	for _, p := range policies {
		out = append(out, p.Grants()...)
	}
	return out
}
