// Package dataschema infers a schema from decoded JSON data. The root
// object becomes the query type, nested objects become object types and
// arrays of objects become list fields that can be sorted and paged.
package dataschema

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/overjt/entitygraphql/internal/extensions"
	"github.com/overjt/entitygraphql/internal/introspection"
	"github.com/overjt/entitygraphql/internal/schema"
)

// JSONScalar holds values whose type could not be narrowed to a builtin
// scalar: mixed kinds, empty arrays and nulls.
const JSONScalar = "JSON"

type Options struct {
	// Paging pages every list of objects with offset paging.
	Paging          bool
	DefaultPageSize int
	MaxPageSize     int
	// Sort adds a sort argument over the scalar members of every list of
	// objects.
	Sort bool
	// Introspection adds __schema and __type to the query type.
	Introspection bool
}

var nameRE = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

type builder struct {
	s    *schema.Schema
	opts Options
}

// Build returns a schema whose query type mirrors root. The schema's
// fields read the same JSON values back, so root is the value to execute
// against.
func Build(root map[string]any, opts Options, schemaOpts ...schema.Option) (*schema.Schema, error) {
	b := &builder{s: schema.NewSchema("", schemaOpts...), opts: opts}
	query, err := b.objectType("Query", []map[string]any{root})
	if err != nil {
		return nil, err
	}
	b.s.SetQueryType(query.Name)
	if opts.Introspection {
		if err := introspection.Install(b.s); err != nil {
			return nil, err
		}
	}
	return b.s, nil
}

func (b *builder) objectType(name string, samples []map[string]any) (*schema.Type, error) {
	t := schema.NewType(name, schema.TypeKindObject, "")
	b.s.AddType(t)

	log := b.s.Logger()
	for _, key := range keysOf(samples) {
		if !nameRE.MatchString(key) {
			log.Warn().Str("type", name).Str("member", key).Msg("skipping member that is not a valid field name")
			continue
		}
		values, present := valuesOf(samples, key)
		ref, err := b.typeFor(name, key, values)
		if err != nil {
			return nil, err
		}
		if present && !ref.IsNonNull() && nonNullable(values) {
			ref = schema.NonNullType(ref)
		}
		f := t.AddMember(key, "", ref)
		if ref.ElementType() != nil && b.s.Type(ref.GetNamedType()).Kind == schema.TypeKindObject {
			if err := b.extendList(f); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

func (b *builder) extendList(f *schema.Field) error {
	if b.opts.Sort {
		var members []string
		for _, m := range b.s.Type(f.Type.GetNamedType()).Fields {
			if t := b.s.Type(m.Type.GetNamedType()); t != nil && t.Kind == schema.TypeKindScalar && t.Name != JSONScalar && m.Type.ElementType() == nil {
				members = append(members, m.Name)
			}
		}
		if err := f.AddExtension(extensions.Sort{Fields: members}); err != nil {
			return err
		}
	}
	if b.opts.Paging {
		return f.AddExtension(extensions.OffsetPaging{
			DefaultPageSize: b.opts.DefaultPageSize,
			MaxPageSize:     b.opts.MaxPageSize,
		})
	}
	return nil
}

// typeFor infers the type of one member from every value seen for it.
func (b *builder) typeFor(owner, key string, values []any) (*schema.TypeRef, error) {
	kind := ""
	var objects []map[string]any
	var elements []any
	integral := true
	for _, v := range values {
		k := kindOf(v)
		if k == "null" {
			continue
		}
		if kind != "" && kind != k {
			if (kind == "Int" || kind == "Float") && (k == "Int" || k == "Float") {
				integral = false
				kind = "Float"
				continue
			}
			return b.jsonScalar(), nil
		}
		kind = k
		switch v := v.(type) {
		case map[string]any:
			objects = append(objects, v)
		case []any:
			elements = append(elements, v...)
		}
		if k == "Float" {
			integral = false
		}
	}

	switch kind {
	case "":
		return b.jsonScalar(), nil
	case "Int", "Float":
		if integral {
			return schema.NamedType("Int"), nil
		}
		return schema.NamedType("Float"), nil
	case "String", "Boolean":
		return schema.NamedType(kind), nil
	case "object":
		t, err := b.objectType(b.typeName(owner, key), objects)
		if err != nil {
			return nil, err
		}
		return schema.NamedType(t.Name), nil
	case "list":
		elem, err := b.typeFor(owner, singular(key), elements)
		if err != nil {
			return nil, err
		}
		if nonNullable(elements) && len(elements) > 0 {
			elem = schema.NonNullType(elem)
		}
		return schema.ListType(elem), nil
	}
	return nil, fmt.Errorf("member %s.%s: unsupported value kind %s", owner, key, kind)
}

func (b *builder) typeName(owner, key string) string {
	name := upperFirst(singular(key))
	if b.s.Type(name) != nil {
		name = owner + name
	}
	return name
}

func (b *builder) jsonScalar() *schema.TypeRef {
	if b.s.Type(JSONScalar) == nil {
		b.s.AddType(schema.NewType(JSONScalar, schema.TypeKindScalar, "Arbitrary JSON value"))
	}
	return schema.NamedType(JSONScalar)
}

func kindOf(v any) string {
	switch n := v.(type) {
	case nil:
		return "null"
	case string:
		return "String"
	case bool:
		return "Boolean"
	case float64:
		if n == math.Trunc(n) {
			return "Int"
		}
		return "Float"
	case int, int32, int64:
		return "Int"
	case map[string]any:
		return "object"
	case []any:
		return "list"
	}
	return fmt.Sprintf("%T", v)
}

func keysOf(samples []map[string]any) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, s := range samples {
		for k := range s {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// valuesOf returns the member's values across samples. present is false
// when some sample lacks the member.
func valuesOf(samples []map[string]any, key string) (values []any, present bool) {
	present = true
	for _, s := range samples {
		v, ok := s[key]
		if !ok {
			present = false
			continue
		}
		values = append(values, v)
	}
	return values, present
}

func nonNullable(values []any) bool {
	for _, v := range values {
		if v == nil {
			return false
		}
	}
	return true
}

func singular(s string) string {
	switch {
	case strings.HasSuffix(s, "ies") && len(s) > 3:
		return s[:len(s)-3] + "y"
	case s == "people":
		return "person"
	case strings.HasSuffix(s, "ss"):
		return s
	case strings.HasSuffix(s, "s") && len(s) > 1:
		return s[:len(s)-1]
	}
	return s
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
