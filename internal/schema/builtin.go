package schema

func builtinScalars() []*Type {
	return []*Type{
		NewType("String", TypeKindScalar, "The `String` scalar type represents textual data, represented as UTF-8 character sequences."),
		NewType("Int", TypeKindScalar, "The `Int` scalar type represents non-fractional signed whole numeric values."),
		NewType("Float", TypeKindScalar, "The `Float` scalar type represents signed double-precision fractional values."),
		NewType("Boolean", TypeKindScalar, "The `Boolean` scalar type represents `true` or `false`."),
		NewType("ID", TypeKindScalar, "The `ID` scalar type represents a unique identifier, often used to refetch an object or as a key for caching."),
	}
}

func isBuiltinScalar(name string) bool {
	switch name {
	case "String", "Int", "Float", "Boolean", "ID":
		return true
	}
	return false
}

var includeDirective = &DirectiveDefinition{
	Name:        "include",
	Description: "Directs the executor to include this field or fragment only when the `if` argument is true.",
	Arguments: []*InputValue{
		{
			Name:        "if",
			Description: "Included when true.",
			Type:        NonNullType(NamedType("Boolean")),
		},
	},
	Locations: []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
}

var skipDirective = &DirectiveDefinition{
	Name:        "skip",
	Description: "Directs the executor to skip this field or fragment when the `if` argument is true.",
	Arguments: []*InputValue{
		{
			Name:        "if",
			Description: "Skipped when true.",
			Type:        NonNullType(NamedType("Boolean")),
		},
	},
	Locations: []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
}

var deprecatedDirective = &DirectiveDefinition{
	Name:        "deprecated",
	Description: "Marks an element of a GraphQL schema as no longer supported.",
	Arguments: []*InputValue{
		{
			Name:         "reason",
			Type:         NamedType("String"),
			DefaultValue: "No longer supported",
		},
	},
	Locations: []string{"FIELD_DEFINITION", "ENUM_VALUE"},
}

func isBuiltinDirective(d *DirectiveDefinition) bool {
	return d == includeDirective || d == skipDirective || d == deprecatedDirective
}
