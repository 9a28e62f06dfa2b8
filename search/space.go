// Package search enumerates configuration spaces and selects the
// configuration with the best cross-validated primary metric.
package search

import (
	"fmt"
	"strings"
)

// Value is one point on an axis. Label is what tables and logs show.
type Value struct {
	Label string
	V     any
}

// Axis is a named, finite, ordered domain.
type Axis struct {
	Name   string
	Values []Value
}

// NewAxis builds an axis whose labels are the fmt rendering of vs.
func NewAxis[T any](name string, vs ...T) Axis {
	a := Axis{Name: name, Values: make([]Value, len(vs))}
	for i, v := range vs {
		a.Values[i] = Value{Label: fmt.Sprint(v), V: v}
	}
	return a
}

// Labeled builds an axis from explicit label/value pairs.
func Labeled(name string, values ...Value) Axis {
	return Axis{Name: name, Values: values}
}

// Binding is an axis name bound to one of its values.
type Binding struct {
	Axis  string
	Value Value
}

// Configuration is one enumerated point. Index is its position in the
// enumeration and is stable across runs.
type Configuration struct {
	Index    int
	Bindings []Binding
}

// Get returns the value bound to axis.
func (c Configuration) Get(axis string) (any, bool) {
	for _, b := range c.Bindings {
		if b.Axis == axis {
			return b.Value.V, true
		}
	}
	return nil, false
}

// Label returns the label bound to axis, or "" when unbound.
func (c Configuration) Label(axis string) string {
	for _, b := range c.Bindings {
		if b.Axis == axis {
			return b.Value.Label
		}
	}
	return ""
}

// Params returns axis → label.
func (c Configuration) Params() map[string]string {
	out := make(map[string]string, len(c.Bindings))
	for _, b := range c.Bindings {
		out[b.Axis] = b.Value.Label
	}
	return out
}

func (c Configuration) String() string {
	parts := make([]string, len(c.Bindings))
	for i, b := range c.Bindings {
		parts[i] = b.Axis + "=" + b.Value.Label
	}
	return strings.Join(parts, " ")
}

// Enumerator produces configurations in a deterministic order.
type Enumerator interface {
	Enumerate() []Configuration
}

// Space is the Cartesian product of its axes.
type Space struct {
	Axes []Axis
}

// NewSpace creates a Space.
func NewSpace(axes ...Axis) Space { return Space{Axes: axes} }

// Size returns the number of configurations, 0 when there are no axes or
// any axis is empty.
func (s Space) Size() int {
	if len(s.Axes) == 0 {
		return 0
	}
	n := 1
	for _, a := range s.Axes {
		n *= len(a.Values)
	}
	return n
}

// Enumerate lists the product with the last axis varying fastest.
func (s Space) Enumerate() []Configuration {
	size := s.Size()
	out := make([]Configuration, size)
	for i := range out {
		bindings := make([]Binding, len(s.Axes))
		rem := i
		for a := len(s.Axes) - 1; a >= 0; a-- {
			axis := s.Axes[a]
			bindings[a] = Binding{Axis: axis.Name, Value: axis.Values[rem%len(axis.Values)]}
			rem /= len(axis.Values)
		}
		out[i] = Configuration{Index: i, Bindings: bindings}
	}
	return out
}

// Grid is an ordered union of spaces, like a list of sklearn param grids.
type Grid []Space

// Enumerate lists each space in turn and renumbers the result.
func (g Grid) Enumerate() []Configuration {
	var out []Configuration
	for _, s := range g {
		for _, c := range s.Enumerate() {
			c.Index = len(out)
			out = append(out, c)
		}
	}
	return out
}
