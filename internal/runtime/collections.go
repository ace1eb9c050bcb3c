package runtime

import "mlsec/internal/diagnostic"

// Sequence is the runtime representation of an array literal. Indexed
// assignment never implicitly extends the backing slice — writing to
// arr[len(arr)] is a user-language runtime error — so growth only ever
// happens through Concat (source-level `+`) or the explicit Push/Pop
// methods.
type Sequence struct {
	items []Value
}

func NewSequence(items ...Value) *Sequence {
	return &Sequence{items: append([]Value(nil), items...)}
}

func (s *Sequence) Len() int { return len(s.items) }

func (s *Sequence) At(i int) Value { return s.items[i] }

// Index implements `seq[i]` including the negative-index-is-an-error and
// past-the-end-is-an-error rules.
func (s *Sequence) Index(i int) (Value, error) {
	if i < 0 || i >= len(s.items) {
		return Value{}, &diagnostic.UserLanguageError{Kind: "IndexError", Message: "sequence index out of range"}
	}
	return s.items[i], nil
}

// SetIndex implements `seq[i] = v`. Writing at i == len(items) is a
// runtime error, not an implicit append.
func (s *Sequence) SetIndex(i int, v Value) error {
	if i < 0 || i >= len(s.items) {
		return &diagnostic.UserLanguageError{Kind: "IndexError", Message: "sequence assignment index out of range"}
	}
	s.items[i] = v
	return nil
}

// Concat implements array growth via `+`.
func Concat(a, b *Sequence) *Sequence {
	out := make([]Value, 0, a.Len()+b.Len())
	out = append(out, a.items...)
	out = append(out, b.items...)
	return &Sequence{items: out}
}

// Push appends v to the end of s in place.
func (s *Sequence) Push(v Value) {
	s.items = append(s.items, v)
}

// Pop removes and returns the last element of s, or a runtime error if s
// is empty.
func (s *Sequence) Pop() (Value, error) {
	if len(s.items) == 0 {
		return Value{}, &diagnostic.UserLanguageError{Kind: "IndexError", Message: "pop from empty sequence"}
	}
	last := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return last, nil
}

func (s *Sequence) Each(f func(Value) error) error {
	for _, v := range s.items {
		if err := f(v); err != nil {
			return err
		}
	}
	return nil
}

// Mapping is the runtime representation of an object literal: a key/value
// store that iterates in insertion order for `for (x in expr)`, backed by
// a parallel key-slice so order survives regardless of Go's map
// iteration order.
type Mapping struct {
	keys   []string
	values map[string]Value
}

func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]Value)}
}

func (m *Mapping) Len() int { return len(m.keys) }

func (m *Mapping) Keys() []string { return append([]string(nil), m.keys...) }

func (m *Mapping) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set implements `obj[key] = v` / object-literal construction, preserving
// insertion order: an existing key keeps its original position.
func (m *Mapping) Set(key string, v Value) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m *Mapping) Each(f func(key string, v Value) error) error {
	for _, k := range m.keys {
		if err := f(k, m.values[k]); err != nil {
			return err
		}
	}
	return nil
}
