package language

import "github.com/vektah/gqlparser/v2/ast"

type (
	QueryDocument       = ast.QueryDocument
	SchemaDocument      = ast.SchemaDocument
	OperationDefinition = ast.OperationDefinition
	SelectionSet        = ast.SelectionSet
	Selection           = ast.Selection
	Field               = ast.Field
	InlineFragment      = ast.InlineFragment
	FragmentDefinition  = ast.FragmentDefinition
	FragmentSpread      = ast.FragmentSpread
	Directive           = ast.Directive
	DirectiveList       = ast.DirectiveList
	ArgumentList        = ast.ArgumentList
	Argument            = ast.Argument
	Value               = ast.Value
	Definition          = ast.Definition
	Position            = ast.Position
	Type                = ast.Type
)

type Operation = ast.Operation

type ValueKind = ast.ValueKind

// DirectiveLocation names a place a directive may be used.
type DirectiveLocation = ast.DirectiveLocation

const (
	Query    Operation = ast.Query
	Mutation Operation = ast.Mutation

	Variable     ValueKind = ast.Variable
	IntValue     ValueKind = ast.IntValue
	FloatValue   ValueKind = ast.FloatValue
	StringValue  ValueKind = ast.StringValue
	BlockValue   ValueKind = ast.BlockValue
	BooleanValue ValueKind = ast.BooleanValue
	NullValue    ValueKind = ast.NullValue
	EnumValue    ValueKind = ast.EnumValue
	ListValue    ValueKind = ast.ListValue
	ObjectValue  ValueKind = ast.ObjectValue

	LocationField              DirectiveLocation = ast.LocationField
	LocationFieldDefinition    DirectiveLocation = ast.LocationFieldDefinition
	LocationEnumValue          DirectiveLocation = ast.LocationEnumValue
	LocationObject             DirectiveLocation = ast.LocationObject
	LocationArgumentDefinition DirectiveLocation = ast.LocationArgumentDefinition
)
