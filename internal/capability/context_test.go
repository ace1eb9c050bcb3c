package capability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextParentWalk(t *testing.T) {
	root := newContext("root", nil, []*Token{New("net", []string{"example.com"}, []string{"connect"}, Constraints{})})
	child, release := AcquireChild(root, "child", []*Token{New("file", []string{"/tmp/*"}, []string{"read"}, Constraints{})})
	defer release()

	has, err := child.HasCapability("net")
	require.NoError(t, err)
	require.True(t, has, "child must see a capability held by its parent")

	has, err = child.HasCapability("file")
	require.NoError(t, err)
	require.True(t, has)

	has, err = root.HasCapability("file")
	require.NoError(t, err)
	require.False(t, has, "a parent must not see a capability only its child holds")
}

func TestGetCapabilityNotFound(t *testing.T) {
	root := newContext("root", nil, nil)
	_, err := root.GetCapability("net")
	require.ErrorIs(t, err, ErrCapabilityNotFound)
}

func TestAcquireChildReleaseDetaches(t *testing.T) {
	root := newContext("root", nil, nil)
	_, release := AcquireChild(root, "child", nil)

	root.mu.RLock()
	n := len(root.children)
	root.mu.RUnlock()
	require.Equal(t, 1, n)

	release()

	root.mu.RLock()
	n = len(root.children)
	root.mu.RUnlock()
	require.Equal(t, 0, n, "release must detach the child from its parent's children slice")
}
