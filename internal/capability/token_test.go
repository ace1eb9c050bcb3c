package capability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenCanAccess(t *testing.T) {
	tok := New("file", []string{"/tmp/*"}, []string{"read", "write"}, Constraints{MaxUsage: 2})

	require.True(t, tok.CanAccess("/tmp/foo.txt", "read"))
	require.False(t, tok.CanAccess("/etc/passwd", "read"), "pattern must not match outside /tmp")
	require.False(t, tok.CanAccess("/tmp/foo.txt", "delete"), "operation not granted")
}

func TestTokenUsageExhaustion(t *testing.T) {
	tok := New("file", []string{"/tmp/*"}, []string{"read"}, Constraints{MaxUsage: 1})

	require.True(t, tok.Use())
	require.False(t, tok.Use(), "second use must fail once max_usage is reached")
	require.False(t, tok.CanAccess("/tmp/a", "read"), "CanAccess must also see the exhausted usage count")
}

func TestTokenExpiry(t *testing.T) {
	tok := New("file", []string{"/tmp/*"}, []string{"read"}, Constraints{ExpiresAt: time.Now().Add(-time.Second)})
	require.False(t, tok.CanAccess("/tmp/a", "read"))
	require.False(t, tok.Use())
}

func TestTokenChecksumDetectsTampering(t *testing.T) {
	tok := New("file", []string{"/tmp/*"}, []string{"read"}, Constraints{})
	require.True(t, tok.ValidChecksum())

	tok.Operations = append(tok.Operations, "delete")
	require.False(t, tok.ValidChecksum(), "mutating Operations after construction must invalidate the checksum")
	require.False(t, tok.CanAccess("/tmp/a", "read"), "CanAccess must refuse a tampered token")
}
