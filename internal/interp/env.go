package interp

import "sort"

// Environment maps names to values. All bindings share one scope that lives
// as long as the session.
type Environment struct {
	vars map[string]Value
}

// NewEnvironment creates an empty environment.
func NewEnvironment() *Environment {
	return &Environment{vars: make(map[string]Value)}
}

// Get returns the value bound to name.
func (e *Environment) Get(name string) (Value, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Set binds name to v, replacing any previous binding.
func (e *Environment) Set(name string, v Value) {
	e.vars[name] = v
}

// Delete removes name and reports whether it was bound.
func (e *Environment) Delete(name string) bool {
	_, ok := e.vars[name]
	delete(e.vars, name)
	return ok
}

// Clear removes every binding.
func (e *Environment) Clear() {
	clear(e.vars)
}

// Names returns the bound names in sorted order.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of bindings.
func (e *Environment) Len() int {
	return len(e.vars)
}
