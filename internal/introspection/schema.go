package introspection

import (
	"strings"

	"github.com/overjt/entitygraphql/internal/expr"
	"github.com/overjt/entitygraphql/internal/schema"
)

type member struct {
	name        string
	typ         string
	description string
	// deprecatable members take includeDeprecated and filter on it.
	deprecatable bool
}

type objectDef struct {
	name        string
	description string
	members     []member
}

type deprecatedArgs struct {
	IncludeDeprecated *bool `graphql:"includeDeprecated"`
}

var objectDefs = []objectDef{
	{"__Schema", "A GraphQL Schema defines the capabilities of a GraphQL server.", []member{
		{name: "description", typ: "String"},
		{name: "types", typ: "[__Type!]!", description: "A list of all types supported by this server."},
		{name: "queryType", typ: "__Type!", description: "The type that query operations will be rooted at."},
		{name: "mutationType", typ: "__Type", description: "If this server supports mutation, the type that mutation operations will be rooted at."},
		{name: "subscriptionType", typ: "__Type", description: "If this server support subscription, the type that subscription operations will be rooted at."},
		{name: "directives", typ: "[__Directive!]!", description: "A list of all directives supported by this server."},
	}},
	{"__Type", "The fundamental unit of any GraphQL Schema is the type.", []member{
		{name: "kind", typ: "__TypeKind!"},
		{name: "name", typ: "String"},
		{name: "description", typ: "String"},
		{name: "specifiedByURL", typ: "String"},
		{name: "fields", typ: "[__Field!]", deprecatable: true},
		{name: "interfaces", typ: "[__Type!]"},
		{name: "possibleTypes", typ: "[__Type!]"},
		{name: "enumValues", typ: "[__EnumValue!]", deprecatable: true},
		{name: "inputFields", typ: "[__InputValue!]", deprecatable: true},
		{name: "ofType", typ: "__Type"},
		{name: "isOneOf", typ: "Boolean"},
	}},
	{"__Field", "Object and Interface types are described by a list of Fields, each of which has a name, potentially a list of arguments, and a return type.", []member{
		{name: "name", typ: "String!"},
		{name: "description", typ: "String"},
		{name: "args", typ: "[__InputValue!]!", deprecatable: true},
		{name: "type", typ: "__Type!"},
		{name: "isDeprecated", typ: "Boolean!"},
		{name: "deprecationReason", typ: "String"},
	}},
	{"__InputValue", "Arguments provided to Fields or Directives and the input fields of an InputObject are represented as Input Values which describe their type and optionally a default value.", []member{
		{name: "name", typ: "String!"},
		{name: "description", typ: "String"},
		{name: "type", typ: "__Type!"},
		{name: "defaultValue", typ: "String", description: "A GraphQL-formatted string representing the default value for this input value."},
		{name: "isDeprecated", typ: "Boolean!"},
		{name: "deprecationReason", typ: "String"},
	}},
	{"__EnumValue", "One possible value for a given Enum.", []member{
		{name: "name", typ: "String!"},
		{name: "description", typ: "String"},
		{name: "isDeprecated", typ: "Boolean!"},
		{name: "deprecationReason", typ: "String"},
	}},
	{"__Directive", "A Directive provides a way to describe alternate runtime execution and type validation behavior in a GraphQL document.", []member{
		{name: "name", typ: "String!"},
		{name: "description", typ: "String"},
		{name: "isRepeatable", typ: "Boolean!"},
		{name: "locations", typ: "[__DirectiveLocation!]!"},
		{name: "args", typ: "[__InputValue!]!", deprecatable: true},
	}},
}

var typeKinds = []string{"SCALAR", "OBJECT", "INTERFACE", "UNION", "ENUM", "INPUT_OBJECT", "LIST", "NON_NULL"}

var directiveLocations = []string{
	"QUERY", "MUTATION", "SUBSCRIPTION", "FIELD", "FRAGMENT_DEFINITION", "FRAGMENT_SPREAD",
	"INLINE_FRAGMENT", "VARIABLE_DEFINITION", "SCHEMA", "SCALAR", "OBJECT", "FIELD_DEFINITION",
	"ARGUMENT_DEFINITION", "INTERFACE", "UNION", "ENUM", "ENUM_VALUE", "INPUT_OBJECT",
	"INPUT_FIELD_DEFINITION",
}

// addIntrospectionTypes adds the __ types. Their fields read the members of
// the snapshot maps built by snapshot.
func addIntrospectionTypes(s *schema.Schema) error {
	for _, def := range objectDefs {
		t := schema.NewType(def.name, schema.TypeKindObject, def.description)
		s.AddType(t)
		for _, m := range def.members {
			f := t.AddMember(m.name, m.description, parseTypeRef(m.typ))
			if m.deprecatable {
				if err := deprecatable(f); err != nil {
					return err
				}
			}
		}
	}
	enum(s, "__TypeKind", "An enum describing what kind of type a given `__Type` is.", typeKinds)
	enum(s, "__DirectiveLocation", "A Directive can be adjacent to many parts of the GraphQL language, a __DirectiveLocation describes one such possible adjacencies.", directiveLocations)
	return nil
}

// deprecatable hides deprecated entries unless includeDeprecated is true.
func deprecatable(f *schema.Field) error {
	include := false
	if _, err := f.AddArguments(deprecatedArgs{IncludeDeprecated: &include}); err != nil {
		return err
	}
	name := f.Name
	f.ResolveWithArgs(func(ctx, args *expr.Param) expr.Expr {
		list := expr.Prop(ctx, name)
		entry := expr.NewParam("entry", "")
		return expr.If(
			expr.BinaryOp(expr.OpEqual, list, expr.Constant(nil)),
			expr.Constant(nil),
			expr.CallMethod("Where", list, expr.Fn(entry, expr.BinaryOp(expr.OpOr,
				expr.BinaryOp(expr.OpEqual, expr.Prop(args, "includeDeprecated"), expr.Constant(true)),
				expr.BinaryOp(expr.OpNotEqual, expr.Prop(entry, "isDeprecated"), expr.Constant(true)),
			))),
		)
	})
	return nil
}

func enum(s *schema.Schema, name, description string, values []string) {
	t := schema.NewType(name, schema.TypeKindEnum, description)
	for _, v := range values {
		t.AddEnumValue(schema.NewEnumValue(v, ""))
	}
	s.AddType(t)
}

// parseTypeRef reads an SDL type reference such as [__Type!]!.
func parseTypeRef(s string) *schema.TypeRef {
	if strings.HasSuffix(s, "!") {
		return schema.NonNullType(parseTypeRef(strings.TrimSuffix(s, "!")))
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		return schema.ListType(parseTypeRef(s[1 : len(s)-1]))
	}
	return schema.NamedType(s)
}
