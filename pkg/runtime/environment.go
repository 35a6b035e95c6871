package runtime

import (
	"sort"
	"strings"
)

// Binding is one entry of an environment chain.
type Binding struct {
	Name  string
	Value Value
	Type  Type
}

// Environment is a persistent, prepend-only chain of bindings. The nil
// *Environment is the empty environment; every method accepts it. Nodes are
// never mutated after construction, so any number of holders may share a tail.
type Environment struct {
	binding Binding
	prev    *Environment
}

// NewEnvironment returns the empty environment.
func NewEnvironment() *Environment {
	return nil
}

// Extend returns a new chain whose head binds name. The receiver is unchanged.
func (e *Environment) Extend(name string, value Value, typ Type) *Environment {
	return &Environment{
		binding: Binding{Name: name, Value: value, Type: typ},
		prev:    e,
	}
}

// Lookup returns the most recently prepended binding for name.
func (e *Environment) Lookup(name string) (Value, Type, bool) {
	for cur := e; cur != nil; cur = cur.prev {
		if cur.binding.Name == name {
			return cur.binding.Value, cur.binding.Type, true
		}
	}
	return nil, TypeUnit, false
}

// Depth counts every node in the chain, shadowed bindings included.
func (e *Environment) Depth() int {
	n := 0
	for cur := e; cur != nil; cur = cur.prev {
		n++
	}
	return n
}

// Bindings lists every node head-to-tail, shadowed bindings included.
func (e *Environment) Bindings() []Binding {
	out := make([]Binding, 0, e.Depth())
	for cur := e; cur != nil; cur = cur.prev {
		out = append(out, cur.binding)
	}
	return out
}

// Snapshot returns the visible binding for each name.
func (e *Environment) Snapshot() map[string]Binding {
	out := make(map[string]Binding)
	for cur := e; cur != nil; cur = cur.prev {
		if _, seen := out[cur.binding.Name]; !seen {
			out[cur.binding.Name] = cur.binding
		}
	}
	return out
}

// Names returns the visible names in sorted order (useful for determinism in tests).
func (e *Environment) Names() []string {
	snap := e.Snapshot()
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String renders the whole chain head first, e.g. `x: (5, Integer), x: (2, Integer)`.
func (e *Environment) String() string {
	var b strings.Builder
	for n, binding := range e.Bindings() {
		if n > 0 {
			b.WriteString(", ")
		}
		b.WriteString(binding.Name)
		b.WriteString(": (")
		b.WriteString(Inspect(binding.Value))
		b.WriteString(", ")
		b.WriteString(binding.Type.String())
		b.WriteString(")")
	}
	return b.String()
}
