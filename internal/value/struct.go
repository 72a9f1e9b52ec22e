package value

import "strings"

// Key is a struct entry's key: either a named key (compared by string
// value) or an Unnamed marker (§3: "identity unique per occurrence", so
// it never compares equal to any key, including another Unnamed marker
// from a different occurrence — see Equal below).
type Key struct {
	name string
	pos  *struct{}
}

// NamedKey builds a named key.
func NamedKey(name string) Key { return Key{name: name} }

// NewUnnamedKey allocates a fresh positional marker. Every positional
// struct entry must get its own, never a shared instance, so that
// multiple positional entries coexist without colliding (§3).
func NewUnnamedKey() Key { return Key{pos: new(struct{})} }

// IsUnnamed reports whether k is a positional marker.
func (k Key) IsUnnamed() bool { return k.pos != nil }

// Name returns the key's name; valid only when !IsUnnamed().
func (k Key) Name() string { return k.name }

// Equal reports whether two keys denote the same struct slot. Two named
// keys are equal iff their names match; an Unnamed key is equal only to
// the exact same marker instance (never to a different occurrence, even
// one also unnamed).
func (k Key) Equal(o Key) bool {
	if k.pos != nil || o.pos != nil {
		return k.pos == o.pos && k.pos != nil
	}
	return k.name == o.name
}

func (k Key) String() string {
	if k.pos != nil {
		return "<unnamed>"
	}
	return k.name
}

// Entry is one (key, value) pair of a Struct, in insertion order.
type Entry struct {
	Key   Key
	Value Value
}

// Struct is the ordered map of key -> value that is Comp's sole compound
// data structure (§3). Structs are immutable: every mutating-looking
// method returns a new *Struct sharing the unmodified entries.
type Struct struct {
	Entries []Entry
}

// Empty returns a new, empty struct.
func Empty() *Struct { return &Struct{} }

// Wrap builds the single-field struct {Unnamed: v}, used by scalar
// promotion during morphing (§3, §4.4 step 1).
func Wrap(v Value) *Struct {
	return Empty().Append(NewUnnamedKey(), v)
}

func (s *Struct) Kind() Kind { return KindStruct }

func (s *Struct) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, e := range s.Entries {
		if i > 0 {
			b.WriteByte(' ')
		}
		if !e.Key.IsUnnamed() {
			b.WriteString(e.Key.name)
			b.WriteByte('=')
		}
		b.WriteString(e.Value.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Append returns a new Struct with (key, v) added after all existing
// entries. The receiver is left unmodified.
func (s *Struct) Append(key Key, v Value) *Struct {
	entries := make([]Entry, len(s.Entries), len(s.Entries)+1)
	copy(entries, s.Entries)
	entries = append(entries, Entry{Key: key, Value: v})
	return &Struct{Entries: entries}
}

// AppendAll returns a new Struct with every entry of other appended
// after s's own entries, used by struct spread (`..p`, E3 in §8).
func (s *Struct) AppendAll(other *Struct) *Struct {
	entries := make([]Entry, len(s.Entries), len(s.Entries)+len(other.Entries))
	copy(entries, s.Entries)
	entries = append(entries, other.Entries...)
	return &Struct{Entries: entries}
}

// Get returns the value of the last entry named `name` (later
// assignments win, per SPEC_FULL.md §3), and whether one was found.
func (s *Struct) Get(name string) (Value, bool) {
	var found Value
	ok := false
	for _, e := range s.Entries {
		if !e.Key.IsUnnamed() && e.Key.name == name {
			found, ok = e.Value, true
		}
	}
	return found, ok
}

// Positional returns the values of every unnamed entry, in order.
func (s *Struct) Positional() []Value {
	var out []Value
	for _, e := range s.Entries {
		if e.Key.IsUnnamed() {
			out = append(out, e.Value)
		}
	}
	return out
}

// Len returns the total entry count (named and positional).
func (s *Struct) Len() int { return len(s.Entries) }

// SingleField reports whether s has exactly one entry, returning it.
// Used by scalar-unwrapping in morph (§4.4 step 6).
func (s *Struct) SingleField() (Entry, bool) {
	if len(s.Entries) != 1 {
		return Entry{}, false
	}
	return s.Entries[0], true
}
