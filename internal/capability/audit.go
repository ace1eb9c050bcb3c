package capability

import (
	"sync"
	"time"
)

// AuditEvent is one structured record of a capability-gated operation:
// timestamp, user-or-session, capability type, resource, operation, and
// outcome. One is emitted for every CapabilityDenied and
// AttributeForbidden before control returns to the caller.
type AuditEvent struct {
	Timestamp      time.Time `json:"timestamp"`
	Session        string    `json:"session"`
	CapabilityType string    `json:"capability_type"`
	Resource       string    `json:"resource"`
	Operation      string    `json:"operation"`
	Outcome        string    `json:"outcome"` // "allowed", "denied", or an infrastructure outcome such as "terminated_by_limit"
	Reason         string    `json:"reason"`
}

// Auditor collects AuditEvents in total emission order — within a single
// execution, events are totally ordered by their emission time in the
// child — and forwards each one to an optional streaming
// sink — the mechanism cmd/mlrunner uses to write one JSON line per event
// down the sandbox's audit pipe as it happens, rather than buffering
// until exit.
type Auditor struct {
	mu     sync.Mutex
	events []AuditEvent
	sink   func(AuditEvent)
}

// NewAuditor builds an Auditor. sink may be nil if events only need to be
// collected in-process (e.g. in tests) and not streamed anywhere.
func NewAuditor(sink func(AuditEvent)) *Auditor {
	return &Auditor{sink: sink}
}

// record appends e (stamping Timestamp if unset) and forwards it to the
// sink, if any.
func (a *Auditor) record(e AuditEvent) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	a.mu.Lock()
	a.events = append(a.events, e)
	sink := a.sink
	a.mu.Unlock()
	if sink != nil {
		sink(e)
	}
}

// Events returns every event recorded so far, in emission order.
func (a *Auditor) Events() []AuditEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]AuditEvent(nil), a.events...)
}

// SetAuditor installs a on c; every descendant context created after this
// call (and c itself) routes Emit through a. It is meant to be called
// once, immediately after a root context is created by the sandbox or a
// test, before any child context or concurrent access exists.
func (c *Context) SetAuditor(a *Auditor) {
	c.mu.Lock()
	c.auditor = a
	c.mu.Unlock()
}

// Emit records e against the nearest auditor in c's ancestor chain,
// walking toward the root the same way HasCapability does. A context
// tree with no auditor installed anywhere (common in unit tests that
// don't care about audit output) makes Emit a no-op rather than an
// error — emitting an audit event is a side effect of a capability
// operation succeeding or failing, never itself a reason to fail one.
func (c *Context) Emit(e AuditEvent) {
	for cur := c; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		a := cur.auditor
		cur.mu.RUnlock()
		if a != nil {
			a.record(e)
			return
		}
	}
}
