// Package introspection answers __schema and __type queries. Install adds
// the introspection types and root fields to a finished schema; the root
// fields resolve to a snapshot of the schema taken at install time, so the
// executor serves them like any other field.
package introspection

import (
	"errors"
	"sort"
	"strings"

	"github.com/overjt/entitygraphql/internal/expr"
	"github.com/overjt/entitygraphql/internal/schema"
)

var ErrNoQueryType = errors.New("introspection: schema has no query type")

type typeArgs struct {
	Name string `graphql:"name" validate:"required"`
}

// Install adds __schema and __type to the query type. Types added to s
// afterwards are not visible to introspection.
func Install(s *schema.Schema) error {
	query := s.GetQueryType()
	if query == nil {
		return ErrNoQueryType
	}
	if err := addIntrospectionTypes(s); err != nil {
		return err
	}
	snap := snapshot(s)

	query.AddField("__schema", "Access the current type schema of this server.", schema.NonNullType(schema.NamedType("__Schema"))).
		Resolve(func(*expr.Param) expr.Expr { return expr.Constant(snap) })

	typeField := query.AddField("__type", "Request the type information of a single type.", schema.NamedType("__Type"))
	if _, err := typeField.AddArguments(typeArgs{}); err != nil {
		return err
	}
	typeField.ResolveWithArgs(func(_, args *expr.Param) expr.Expr {
		t := expr.NewParam("t", "__Type")
		return expr.CallMethod("First",
			expr.CallMethod("Where", expr.Constant(snap["types"]),
				expr.Fn(t, expr.BinaryOp(expr.OpEqual, expr.Prop(t, "name"), expr.Prop(args, "name")))))
	})
	return nil
}

type snapshotter struct {
	s     *schema.Schema
	types map[string]map[string]any
}

// snapshot describes s as nested maps shaped like the introspection types.
// Named types are shared, so the result contains cycles.
func snapshot(s *schema.Schema) map[string]any {
	sn := &snapshotter{s: s, types: make(map[string]map[string]any, len(s.Types))}
	names := make([]string, 0, len(s.Types))
	for name, t := range s.Types {
		names = append(names, name)
		sn.types[name] = map[string]any{
			"kind":        string(t.Kind),
			"name":        name,
			"description": optional(t.Description),
		}
	}
	sort.Strings(names)

	types := make([]any, len(names))
	for i, name := range names {
		sn.fill(s.Types[name], sn.types[name])
		types[i] = sn.types[name]
	}

	dirNames := make([]string, 0, len(s.Directives))
	for name := range s.Directives {
		dirNames = append(dirNames, name)
	}
	sort.Strings(dirNames)
	directives := make([]any, len(dirNames))
	for i, name := range dirNames {
		directives[i] = sn.directive(s.Directives[name])
	}

	return map[string]any{
		"description":      optional(s.Description),
		"types":            types,
		"queryType":        sn.named(s.QueryType),
		"mutationType":     sn.named(s.MutationType),
		"subscriptionType": nil,
		"directives":       directives,
	}
}

func (sn *snapshotter) fill(t *schema.Type, out map[string]any) {
	switch t.Kind {
	case schema.TypeKindObject:
		fields := []any{}
		for _, f := range t.Fields {
			if strings.HasPrefix(f.Name, "__") {
				continue
			}
			fields = append(fields, sn.field(f))
		}
		out["fields"] = fields
		out["interfaces"] = []any{}
	case schema.TypeKindEnum:
		values := make([]any, len(t.EnumValues))
		for i, v := range t.EnumValues {
			values[i] = map[string]any{
				"name":              v.Name,
				"description":       optional(v.Description),
				"isDeprecated":      v.IsDeprecated,
				"deprecationReason": deprecationReason(v.IsDeprecated, v.DeprecationReason),
			}
		}
		out["enumValues"] = values
	case schema.TypeKindInputObject:
		fields := make([]any, len(t.InputFields))
		for i, iv := range t.InputFields {
			fields[i] = sn.inputValue(iv.Name, iv.Description, iv.Type, iv.DefaultValue)
		}
		out["inputFields"] = fields
	}
}

func (sn *snapshotter) field(f *schema.Field) map[string]any {
	args := []any{}
	if !f.ArgumentsAreInternal() {
		for _, a := range f.ArgumentList() {
			args = append(args, sn.inputValue(a.Name, a.Description, a.Type, a.DefaultValue))
		}
	}
	d, deprecated := f.Deprecation()
	return map[string]any{
		"name":              f.Name,
		"description":       optional(f.Description),
		"args":              args,
		"type":              sn.ref(f.Type),
		"isDeprecated":      deprecated,
		"deprecationReason": deprecationReason(deprecated, d.Reason),
	}
}

func (sn *snapshotter) inputValue(name, description string, t *schema.TypeRef, def any) map[string]any {
	var defaultValue any
	if def != nil {
		defaultValue = schema.RenderValue(def)
	}
	return map[string]any{
		"name":              name,
		"description":       optional(description),
		"type":              sn.ref(t),
		"defaultValue":      defaultValue,
		"isDeprecated":      false,
		"deprecationReason": nil,
	}
}

func (sn *snapshotter) directive(d *schema.DirectiveDefinition) map[string]any {
	args := make([]any, len(d.Arguments))
	for i, a := range d.Arguments {
		args[i] = sn.inputValue(a.Name, a.Description, a.Type, a.DefaultValue)
	}
	locations := make([]any, len(d.Locations))
	for i, l := range d.Locations {
		locations[i] = l
	}
	return map[string]any{
		"name":         d.Name,
		"description":  optional(d.Description),
		"isRepeatable": d.IsRepeatable,
		"locations":    locations,
		"args":         args,
	}
}

func (sn *snapshotter) ref(t *schema.TypeRef) any {
	if t == nil {
		return nil
	}
	if t.Kind == schema.TypeRefKindNamed {
		return sn.named(t.Named)
	}
	return map[string]any{
		"kind":   string(t.Kind),
		"name":   nil,
		"ofType": sn.ref(t.OfType),
	}
}

func (sn *snapshotter) named(name string) any {
	if t, ok := sn.types[name]; ok {
		return t
	}
	return nil
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deprecationReason(deprecated bool, reason string) any {
	if !deprecated {
		return nil
	}
	return reason
}
