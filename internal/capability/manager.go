package capability

import (
	"sync"
	"time"
)

// Manager is the process-wide singleton that mints root contexts, tracks
// the current context per execution flow, and periodically sweeps expired
// tokens. Manager's mu guards only the roots slice and is released before
// any Context is touched; each Context's own mu guards that context's
// tokens and children. No single lock serializes mutations across the
// manager and its contexts, and no lock is held across more than one
// context at a time.
type Manager struct {
	mu       sync.Mutex
	roots    []*Context
	sweepInt time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

var (
	managerOnce sync.Once
	managerInst *Manager
)

// Instance returns the process-wide Manager singleton.
func Instance() *Manager {
	managerOnce.Do(func() {
		managerInst = newManager()
	})
	return managerInst
}

func newManager() *Manager {
	m := &Manager{sweepInt: 30 * time.Second, stopCh: make(chan struct{})}
	go m.sweepLoop()
	return m
}

// NewRootContext creates a new root (parentless) context holding tokens,
// registers it with the manager for sweeping, and returns it. This is
// what a sandbox session calls once at startup.
func (m *Manager) NewRootContext(name string, tokens []*Token) *Context {
	c := newContext(name, nil, tokens)
	m.mu.Lock()
	m.roots = append(m.roots, c)
	m.mu.Unlock()
	return c
}

// AcquireChild enters a scoped child context holding the given tokens.
// Callers MUST defer the returned release function so the child is
// detached on every exit path — normal return, panic unwinding, or early
// return.
func AcquireChild(parent *Context, name string, tokens []*Token) (*Context, func()) {
	child := newContext(name, parent, tokens)
	return child, func() { release(parent, child) }
}

func release(parent, child *Context) {
	if parent == nil {
		return
	}
	parent.mu.Lock()
	defer parent.mu.Unlock()
	for i, c := range parent.children {
		if c == child {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			return
		}
	}
}

// sweepLoop periodically removes expired tokens from contexts the
// manager created, as required by §4.4 ("Periodically sweeps expired
// tokens out of contexts it created").
func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(m.sweepInt)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweepOnce()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) sweepOnce() {
	m.mu.Lock()
	roots := append([]*Context(nil), m.roots...)
	m.mu.Unlock()
	now := time.Now()
	for _, r := range roots {
		sweepTree(r, now)
	}
}

func sweepTree(c *Context, now time.Time) {
	c.mu.Lock()
	for typ, t := range c.tokens {
		if !t.notExpired(now) {
			delete(c.tokens, typ)
		}
	}
	children := append([]*Context(nil), c.children...)
	c.mu.Unlock()
	for _, ch := range children {
		sweepTree(ch, now)
	}
}

// Stop halts the background sweep goroutine. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// Reset clears the singleton's tracked roots; intended for tests that need
// a clean Manager between cases.
func Reset() {
	m := Instance()
	m.mu.Lock()
	m.roots = nil
	m.mu.Unlock()
}
