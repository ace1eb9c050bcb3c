// Package capability implements the capability model: tokens, contexts,
// a process-wide manager, and the validator that checks declared
// capabilities against granted ones. Tokens are explicit resource/
// operation sets bundled into a validated, immutable record.
package capability

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Constraints bounds a token beyond its resource/operation sets.
type Constraints struct {
	ExpiresAt   time.Time
	MaxUsage    int64 // 0 means unlimited
	MaxFileSize int64 // bytes, 0 means unlimited
	Hosts       []string
	Ports       []int
}

// Token is an immutable capability instance. Immutable after creation:
// every field is set once in New. The fields are exported, so nothing
// stops a caller from assigning to them, but any such mutation no longer
// matches Checksum and makes ValidChecksum return false.
type Token struct {
	ID               string
	Type             string
	ResourcePatterns []string
	Operations       []string
	Constraints      Constraints
	CreatedAt        time.Time
	Checksum         string

	usageCount int64 // accessed only via atomic ops from Use/UsageCount
}

// New constructs a Token, allocating an id and computing its checksum.
func New(typ string, patterns, ops []string, constraints Constraints) *Token {
	id := uuid.New().String()
	t := &Token{
		ID:               id,
		Type:             typ,
		ResourcePatterns: append([]string(nil), patterns...),
		Operations:       append([]string(nil), ops...),
		Constraints:      constraints,
		CreatedAt:        time.Now(),
	}
	t.Checksum = t.computeChecksum()
	return t
}

// computeChecksum implements checksum = sha256(type || patterns || ops || id).
func (t *Token) computeChecksum() string {
	patterns := append([]string(nil), t.ResourcePatterns...)
	ops := append([]string(nil), t.Operations...)
	sort.Strings(patterns)
	sort.Strings(ops)
	h := sha256.New()
	h.Write([]byte(t.Type))
	h.Write([]byte("|"))
	h.Write([]byte(strings.Join(patterns, ",")))
	h.Write([]byte("|"))
	h.Write([]byte(strings.Join(ops, ",")))
	h.Write([]byte("|"))
	h.Write([]byte(t.ID))
	return hex.EncodeToString(h.Sum(nil))
}

// ValidChecksum reports whether Checksum still matches the token's fields,
// i.e. nothing has been mutated out from under it since New.
func (t *Token) ValidChecksum() bool {
	return t.Checksum == t.computeChecksum()
}

// UsageCount returns the current usage counter.
func (t *Token) UsageCount() int64 {
	return atomic.LoadInt64(&t.usageCount)
}

// notExpired reports whether now is still before Constraints.ExpiresAt
// (a zero ExpiresAt means "never expires").
func (t *Token) notExpired(now time.Time) bool {
	return t.Constraints.ExpiresAt.IsZero() || now.Before(t.Constraints.ExpiresAt)
}

func (t *Token) hasOperation(op string) bool {
	for _, o := range t.Operations {
		if o == op {
			return true
		}
	}
	return false
}

func (t *Token) matchesAnyPattern(resource string) bool {
	for _, p := range t.ResourcePatterns {
		if GlobMatch(p, resource) {
			return true
		}
	}
	return false
}

// CanAccess implements the §4.4 predicate:
// (operation ∈ ops) ∧ (∃ pattern matching resource) ∧ (usage_count < max_usage)
// ∧ (now < expires_at) ∧ checksum valid.
func (t *Token) CanAccess(resource, operation string) bool {
	if !t.ValidChecksum() {
		return false
	}
	if !t.hasOperation(operation) {
		return false
	}
	if !t.matchesAnyPattern(resource) {
		return false
	}
	if t.Constraints.MaxUsage > 0 && t.UsageCount() >= t.Constraints.MaxUsage {
		return false
	}
	if !t.notExpired(time.Now()) {
		return false
	}
	return true
}

// Use atomically increments the usage counter if the token is still valid
// for at least one more use; it fails (returns false) otherwise, never
// exceeding MaxUsage.
func (t *Token) Use() bool {
	if !t.ValidChecksum() || !t.notExpired(time.Now()) {
		return false
	}
	for {
		cur := atomic.LoadInt64(&t.usageCount)
		if t.Constraints.MaxUsage > 0 && cur >= t.Constraints.MaxUsage {
			return false
		}
		if atomic.CompareAndSwapInt64(&t.usageCount, cur, cur+1) {
			return true
		}
	}
}

func (t *Token) String() string {
	return fmt.Sprintf("Token{id=%s type=%s ops=%v patterns=%v}", t.ID, t.Type, t.Operations, t.ResourcePatterns)
}
