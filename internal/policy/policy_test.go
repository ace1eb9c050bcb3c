package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"mlsec/internal/capability"
)

const samplePolicy = `
name: default
applies_to: ["alice", "bob"]
grants:
  - type: file
    resource_patterns: ["/tmp/*"]
    operations: ["read", "write"]
    constraints:
      max_file_size: 1048576
      ttl_seconds: 3600
  - type: net
    resource_patterns: ["example.com"]
    operations: ["connect"]
    constraints:
      hosts: ["example.com"]
      ports: [443]
`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAndApplies(t *testing.T) {
	p, err := Load(writeTemp(t, samplePolicy))
	require.NoError(t, err)
	require.True(t, p.Applies("alice"))
	require.False(t, p.Applies("carol"))
}

func TestLoadAppliesToEmptyMeansEveryone(t *testing.T) {
	p, err := Load(writeTemp(t, "name: open\ngrants: []\n"))
	require.NoError(t, err)
	require.True(t, p.Applies("anyone"))
}

func TestGrantsAndConstraints(t *testing.T) {
	p, err := Load(writeTemp(t, samplePolicy))
	require.NoError(t, err)

	grants := p.Grants()
	require.Len(t, grants, 2)
	require.Equal(t, "file", grants[0].Type)
	require.Equal(t, int64(1048576), grants[0].Constraints.MaxFileSize)
	require.False(t, grants[0].Constraints.ExpiresAt.IsZero(), "a ttl_seconds grant must resolve to an absolute ExpiresAt")
	require.Equal(t, []string{"example.com"}, grants[1].Constraints.Hosts)
	require.Equal(t, []int{443}, grants[1].Constraints.Ports)
}

func TestMintTokensProducesValidTokens(t *testing.T) {
	p, err := Load(writeTemp(t, samplePolicy))
	require.NoError(t, err)

	tokens := p.MintTokens()
	require.Len(t, tokens, 2)
	for _, tok := range tokens {
		require.True(t, tok.ValidChecksum())
	}
}

func TestMergeUnionsGrants(t *testing.T) {
	p1, err := Load(writeTemp(t, samplePolicy))
	require.NoError(t, err)
	p2, err := Load(writeTemp(t, "name: extra\ngrants:\n  - type: env\n    resource_patterns: [\"HOME\"]\n    operations: [\"read\"]\n"))
	require.NoError(t, err)

	merged := Merge([]*Policy{p1, p2})
	require.Len(t, merged, 3)

	declared := []capability.Declaration{{Type: "env", ResourcePatterns: []string{"HOME"}, Operations: []string{"read"}}}
	bad, reason := capability.Validate(declared, merged)
	require.Nil(t, bad, reason)
}
