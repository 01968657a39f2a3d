package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/overjt/entitygraphql/internal/expr"
	language "github.com/overjt/entitygraphql/internal/language"
)

func TestRender(t *testing.T) {
	s := NewSchema("")
	query := NewType("Query", TypeKindObject, "Root query")
	actorType := NewType("Actor", TypeKindObject, "")
	page := NewType("ActorPage", TypeKindObject, "")
	role := NewType("Role", TypeKindEnum, "").
		AddEnumValue(NewEnumValue("ADMIN", "")).
		AddEnumValue(NewEnumValue("GUEST", "").Deprecate(""))
	s.AddType(query).AddType(actorType).AddType(page).AddType(role).SetQueryType("Query")

	actorType.AddField("id", "", NonNullType(NamedType("Int")))
	actorType.AddField("name", "", NamedType("String"))

	actors := query.AddField("actors", "All actors", NonNullType(ListType(NonNullType(NamedType("Actor"))))).
		Resolve(func(ctx *expr.Param) expr.Expr { return expr.Prop(ctx, "actors") }).
		Deprecate("use people")
	zero := 0
	_, err := actors.AddArguments(&struct {
		Skip   *int   `graphql:"skip"`
		Search string `validate:"required"`
	}{Skip: &zero})
	require.NoError(t, err)

	items := page.AddField("items", "", NonNullType(ListType(NonNullType(NamedType("Actor")))))
	items.UseArgumentsFrom(actors)

	want := `type Actor {
  id: Int!
  name: String
}

type ActorPage {
  items: [Actor!]!
}

"""
Root query
"""
type Query {
  """
  All actors
  """
  actors(skip: Int = 0, search: String!): [Actor!]! @deprecated(reason: "use people")
}

enum Role {
  ADMIN
  GUEST @deprecated
}
`
	got := Render(s)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rendered schema mismatch (-want +got):\n%s", diff)
	}

	_, err = language.ParseSchema("rendered", got)
	require.NoError(t, err)
}

func TestRenderCustomDirectiveDefinition(t *testing.T) {
	s := NewSchema("")
	s.AddDirectiveDefinition(&DirectiveDefinition{
		Name:      "cacheControl",
		Arguments: []*InputValue{{Name: "maxAge", Type: NamedType("Int"), DefaultValue: 60}},
		Locations: []string{"FIELD_DEFINITION", "OBJECT"},
	})
	require.Equal(t, "directive @cacheControl(maxAge: Int = 60) on FIELD_DEFINITION | OBJECT\n", Render(s))
}
