package capability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmitRoutesToNearestAncestorAuditor(t *testing.T) {
	root := newContext("root", nil, nil)
	auditor := NewAuditor(nil)
	root.SetAuditor(auditor)

	child, release := AcquireChild(root, "child", nil)
	defer release()

	child.Emit(AuditEvent{CapabilityType: "file", Resource: "/tmp/a", Operation: "read", Outcome: "allowed"})
	grandchild, releaseGC := AcquireChild(child, "grandchild", nil)
	defer releaseGC()
	grandchild.Emit(AuditEvent{CapabilityType: "net", Resource: "example.com", Operation: "connect", Outcome: "denied"})

	events := auditor.Events()
	require.Len(t, events, 2)
	require.Equal(t, "file", events[0].CapabilityType)
	require.Equal(t, "net", events[1].CapabilityType)
	require.False(t, events[0].Timestamp.IsZero())
}

func TestEmitWithoutAuditorIsNoop(t *testing.T) {
	root := newContext("root", nil, nil)
	require.NotPanics(t, func() {
		root.Emit(AuditEvent{CapabilityType: "file"})
	})
}

func TestAuditorStreamsToSink(t *testing.T) {
	var streamed []AuditEvent
	auditor := NewAuditor(func(e AuditEvent) { streamed = append(streamed, e) })
	root := newContext("root", nil, nil)
	root.SetAuditor(auditor)

	root.Emit(AuditEvent{CapabilityType: "file", Outcome: "allowed"})
	require.Len(t, streamed, 1)
	require.Equal(t, "file", streamed[0].CapabilityType)
}
