package expr

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Shape is a synthesized composite type: an ordered list of named members.
// A Shape is immutable; merging produces a new Shape.
type Shape struct {
	Name    string
	members []ShapeMember
	index   map[string]int
}

// ShapeMember is one member slot of a Shape.
type ShapeMember struct {
	Name    string
	GoType  reflect.Type
	Default any
}

// ShapeConflict records a member redeclared with a different Go type.
type ShapeConflict struct {
	Member   string
	Previous reflect.Type
	Next     reflect.Type
}

func NewShape(name string, members ...ShapeMember) *Shape {
	s := &Shape{Name: name, index: make(map[string]int, len(members))}
	for _, m := range members {
		s.put(m)
	}
	return s
}

func (s *Shape) put(m ShapeMember) {
	if i, ok := s.index[m.Name]; ok {
		s.members[i] = m
		return
	}
	s.index[m.Name] = len(s.members)
	s.members = append(s.members, m)
}

// Members returns a copy of the member list in declaration order.
func (s *Shape) Members() []ShapeMember {
	if s == nil {
		return nil
	}
	return append([]ShapeMember(nil), s.members...)
}

func (s *Shape) Member(name string) (ShapeMember, bool) {
	if s == nil {
		return ShapeMember{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return ShapeMember{}, false
	}
	return s.members[i], true
}

func (s *Shape) Len() int {
	if s == nil {
		return 0
	}
	return len(s.members)
}

func (s *Shape) String() string {
	if s == nil {
		return "<nil>"
	}
	parts := make([]string, len(s.members))
	for i, m := range s.members {
		parts[i] = fmt.Sprintf("%s %v", m.Name, m.GoType)
	}
	return s.Name + "{" + strings.Join(parts, "; ") + "}"
}

// MergeShapes returns a new shape holding every member of base followed by
// the members of add. A member present in both takes its definition from
// add; differing Go types are returned as conflicts. base may be nil.
func MergeShapes(name string, base, add *Shape) (*Shape, []ShapeConflict) {
	out := NewShape(name, base.Members()...)
	var conflicts []ShapeConflict
	for _, m := range add.Members() {
		if prev, ok := out.Member(m.Name); ok && prev.GoType != nil && m.GoType != nil && prev.GoType != m.GoType {
			conflicts = append(conflicts, ShapeConflict{Member: m.Name, Previous: prev.GoType, Next: m.GoType})
		}
		out.put(m)
	}
	return out, conflicts
}

// ShapeValue is an instance of a Shape: one value slot per member.
type ShapeValue struct {
	shape    *Shape
	values   []any
	supplied []bool
}

// NewShapeValue returns an instance of s with every slot holding its
// member's default.
func NewShapeValue(s *Shape) *ShapeValue {
	v := &ShapeValue{shape: s, values: make([]any, s.Len()), supplied: make([]bool, s.Len())}
	for i, m := range s.Members() {
		v.values[i] = m.Default
	}
	return v
}

func (v *ShapeValue) Shape() *Shape { return v.shape }

func (v *ShapeValue) Get(name string) (any, bool) {
	if v == nil || v.shape == nil {
		return nil, false
	}
	i, ok := v.shape.index[name]
	if !ok {
		return nil, false
	}
	return v.values[i], true
}

func (v *ShapeValue) Set(name string, value any) error {
	if v.shape == nil {
		return fmt.Errorf("shape value has no shape")
	}
	i, ok := v.shape.index[name]
	if !ok {
		return fmt.Errorf("shape %s has no member %q", v.shape.Name, name)
	}
	v.values[i] = value
	v.supplied[i] = true
	return nil
}

// Supplied reports whether the named slot was written by Set rather than
// holding its seeded default.
func (v *ShapeValue) Supplied(name string) bool {
	if v == nil || v.shape == nil {
		return false
	}
	i, ok := v.shape.index[name]
	return ok && v.supplied[i]
}

// Map copies the slots into a plain map.
func (v *ShapeValue) Map() map[string]any {
	out := make(map[string]any, len(v.values))
	if v.shape == nil {
		return out
	}
	for i, m := range v.shape.members {
		out[m.Name] = v.values[i]
	}
	return out
}

func (v *ShapeValue) String() string {
	if v == nil {
		return "<nil>"
	}
	names := make([]string, 0, len(v.values))
	m := v.Map()
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = fmt.Sprintf("%s: %v", k, m[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
