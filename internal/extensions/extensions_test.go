package extensions

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/overjt/entitygraphql/internal/expr"
	"github.com/overjt/entitygraphql/internal/schema"
)

type person struct {
	Name string
	Age  int
}

var people = []person{
	{Name: "Ada", Age: 36},
	{Name: "Bob", Age: 52},
	{Name: "Cyd", Age: 21},
}

func newPeopleSchema(t *testing.T, opts ...schema.Option) (*schema.Schema, *schema.Field) {
	t.Helper()
	s := schema.NewSchema("", opts...)
	query := schema.NewType("Query", schema.TypeKindObject, "")
	personType := schema.NewType("Person", schema.TypeKindObject, "")
	s.AddType(query).AddType(personType).SetQueryType("Query")
	personType.AddField("name", "", schema.NonNullType(schema.NamedType("String")))
	personType.AddField("age", "", schema.NonNullType(schema.NamedType("Int")))

	f := query.AddField("people", "", schema.NonNullType(schema.ListType(schema.NonNullType(schema.NamedType("Person"))))).
		Resolve(func(ctx *expr.Param) expr.Expr { return expr.Prop(ctx, "people") })
	return s, f
}

func run(t *testing.T, f *schema.Field, raw map[string]any) any {
	t.Helper()
	values, err := f.NewArgumentValues(raw)
	require.NoError(t, err)
	require.NoError(t, f.Validate(context.Background(), values))
	e, err := f.ProduceExpression(schema.Call{
		Context:   expr.Constant(map[string]any{"people": people}),
		Arguments: values,
	})
	require.NoError(t, err)
	out, err := expr.Eval(context.Background(), e)
	require.NoError(t, err)
	return out
}

func names(t *testing.T, items any) []string {
	t.Helper()
	list, ok := items.([]any)
	require.True(t, ok, "items is %T", items)
	out := make([]string, len(list))
	for i, it := range list {
		out[i] = it.(person).Name
	}
	return out
}

func TestOffsetPaging(t *testing.T) {
	s, f := newPeopleSchema(t)
	require.NoError(t, f.AddExtension(OffsetPaging{DefaultPageSize: 10}))

	require.Equal(t, "PersonOffsetPage!", f.Type.String())
	page := s.Type("PersonOffsetPage")
	require.NotNil(t, page)
	require.True(t, page.Field("items").ArgumentsAreInternal())
	require.Same(t, f, page.Field("items").ArgumentsFrom())

	t.Run("first page", func(t *testing.T) {
		out := run(t, f, map[string]any{"skip": 0, "take": 2}).(map[string]any)
		require.Equal(t, []string{"Ada", "Bob"}, names(t, out["items"]))
		require.Equal(t, 3, out["totalItems"])
		require.Equal(t, true, out["hasNextPage"])
		require.Equal(t, false, out["hasPreviousPage"])
	})

	t.Run("last page", func(t *testing.T) {
		out := run(t, f, map[string]any{"skip": 2, "take": 2}).(map[string]any)
		require.Equal(t, []string{"Cyd"}, names(t, out["items"]))
		require.Equal(t, false, out["hasNextPage"])
		require.Equal(t, true, out["hasPreviousPage"])
	})

	t.Run("defaults", func(t *testing.T) {
		out := run(t, f, nil).(map[string]any)
		require.Equal(t, []string{"Ada", "Bob", "Cyd"}, names(t, out["items"]))
		require.Equal(t, false, out["hasNextPage"])
	})

	t.Run("null take returns the rest", func(t *testing.T) {
		out := run(t, f, map[string]any{"skip": 1, "take": nil}).(map[string]any)
		require.Equal(t, []string{"Bob", "Cyd"}, names(t, out["items"]))
		require.Equal(t, false, out["hasNextPage"])
	})

	t.Run("page fields read the page", func(t *testing.T) {
		pageValue := run(t, f, map[string]any{"take": 1})
		e, err := page.Field("totalItems").ProduceExpression(schema.Call{Context: expr.Constant(pageValue)})
		require.NoError(t, err)
		total, err := expr.Eval(context.Background(), e)
		require.NoError(t, err)
		require.Equal(t, 3, total)
	})
}

func TestOffsetPagingRender(t *testing.T) {
	s, f := newPeopleSchema(t)
	require.NoError(t, f.AddExtension(OffsetPaging{DefaultPageSize: 2}))

	sdl := schema.Render(s)
	require.Contains(t, sdl, "  people(skip: Int = 0, take: Int = 2): PersonOffsetPage!\n")
	require.Contains(t, sdl, "  items: [Person!]!\n")
	require.Contains(t, sdl, "  totalItems: Int!\n")
}

func TestOffsetPagingMaxPageSize(t *testing.T) {
	_, f := newPeopleSchema(t, schema.WithMaxPageSize(5))
	require.NoError(t, f.AddExtension(OffsetPaging{}))

	take, err := f.GetArgumentType("take")
	require.NoError(t, err)
	require.Equal(t, 5, take.DefaultValue)

	values, err := f.NewArgumentValues(map[string]any{"take": 10, "skip": -1})
	require.NoError(t, err)
	err = f.Validate(context.Background(), values)
	require.ErrorIs(t, err, schema.ErrValidationFailed)

	var ve *schema.ValidationError
	require.ErrorAs(t, err, &ve)
	got := make([]string, len(ve.Failures))
	for i, fl := range ve.Failures {
		got[i] = fl.Message
	}
	want := []string{
		"argument 'skip' must be at least 0",
		"argument 'take' must be at most 5",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("failures mismatch (-want +got):\n%s", diff)
	}
}

func TestOffsetPagingNeedsList(t *testing.T) {
	s := schema.NewSchema("")
	query := schema.NewType("Query", schema.TypeKindObject, "")
	s.AddType(query)
	f := query.AddField("count", "", schema.NamedType("Int")).
		Resolve(func(ctx *expr.Param) expr.Expr { return expr.Prop(ctx, "count") })

	err := f.AddExtension(OffsetPaging{})
	require.ErrorIs(t, err, ErrNotAList)

	empty := query.AddField("empty", "", schema.ListType(schema.NamedType("Int")))
	require.ErrorIs(t, empty.AddExtension(OffsetPaging{}), ErrNoExpression)
}

func TestSort(t *testing.T) {
	_, f := newPeopleSchema(t)
	require.NoError(t, f.AddExtension(Sort{Fields: []string{"name", "age"}, Default: []string{"name"}}))

	sortArg, err := f.GetArgumentType("sort")
	require.NoError(t, err)
	require.Equal(t, "[String!]", sortArg.Type.String())

	require.Equal(t, []string{"Ada", "Bob", "Cyd"}, names(t, run(t, f, nil)))
	require.Equal(t, []string{"Bob", "Ada", "Cyd"}, names(t, run(t, f, map[string]any{"sort": []any{"-age"}})))

	values, err := f.NewArgumentValues(map[string]any{"sort": []any{"secret"}})
	require.NoError(t, err)
	require.ErrorContains(t, f.Validate(context.Background(), values), "argument 'sort' cannot order by 'secret'")
}

func TestSortThenPage(t *testing.T) {
	_, f := newPeopleSchema(t)
	require.NoError(t, f.ApplyAnnotations(
		UseSort{Default: []string{"age"}},
		UseOffsetPaging{DefaultPageSize: 2},
	))

	require.Equal(t, []string{"sort", "skip", "take"}, argumentNames(f))

	out := run(t, f, nil).(map[string]any)
	require.Equal(t, []string{"Cyd", "Ada"}, names(t, out["items"]))

	out = run(t, f, map[string]any{"sort": []any{"-age"}, "take": 1}).(map[string]any)
	require.Equal(t, []string{"Bob"}, names(t, out["items"]))
	require.Equal(t, true, out["hasNextPage"])

	// paging replaced the list, sorting can no longer be attached
	require.ErrorIs(t, f.AddExtension(Sort{}), ErrNotAList)
}

func argumentNames(f *schema.Field) []string {
	var out []string
	for _, a := range f.ArgumentList() {
		out = append(out, a.Name)
	}
	return out
}
