package executor_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/overjt/entitygraphql/internal/eventbus"
	"github.com/overjt/entitygraphql/internal/events"
	executor "github.com/overjt/entitygraphql/internal/executor"
	"github.com/overjt/entitygraphql/internal/expr"
	"github.com/overjt/entitygraphql/internal/extensions"
	"github.com/overjt/entitygraphql/internal/reqid"
	schema "github.com/overjt/entitygraphql/internal/schema"
)

type person struct {
	ID       int
	Name     string
	Age      int
	Role     string
	Nickname *string
}

func testRoot() map[string]any {
	return map[string]any{
		"people": []person{
			{ID: 1, Name: "Ada", Age: 36, Role: "ADMIN"},
			{ID: 2, Name: "Bob", Age: 52, Role: "USER"},
			{ID: 3, Name: "Cyd", Age: 21, Role: "USER"},
		},
	}
}

// newTestSchema builds:
//
//	type Query {
//	  people(sort: [String!], skip: Int = 0, take: Int = 10): PersonOffsetPage!
//	  person(id: Int!): Person
//	  secret: String
//	  broken: String!
//	}
//	type Person { id: Int! name: String! age: Int! role: Role! nickname: String! }
func newTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s := schema.NewSchema("")
	query := schema.NewType("Query", schema.TypeKindObject, "")
	personType := schema.NewType("Person", schema.TypeKindObject, "")
	role := schema.NewType("Role", schema.TypeKindEnum, "").
		AddEnumValue(schema.NewEnumValue("ADMIN", "")).
		AddEnumValue(schema.NewEnumValue("USER", ""))
	s.AddType(query).AddType(personType).AddType(role).SetQueryType("Query")

	personType.AddMember("id", "", schema.NonNullType(schema.NamedType("Int")))
	personType.AddMember("name", "", schema.NonNullType(schema.NamedType("String")))
	personType.AddMember("age", "", schema.NonNullType(schema.NamedType("Int")))
	personType.AddMember("role", "", schema.NonNullType(schema.NamedType("Role")))
	personType.AddMember("nickname", "", schema.NonNullType(schema.NamedType("String")))

	people := query.AddMember("people", "", schema.NonNullType(schema.ListType(schema.NonNullType(schema.NamedType("Person")))))
	require.NoError(t, people.ApplyAnnotations(
		extensions.UseSort{Fields: []string{"name", "age"}},
		extensions.UseOffsetPaging{DefaultPageSize: 10, MaxPageSize: 50},
	))

	byID := query.AddField("person", "", schema.NamedType("Person"))
	_, err := byID.AddArguments(&struct {
		ID int `graphql:"id" validate:"required,min=1"`
	}{})
	require.NoError(t, err)
	byID.ResolveWithArgs(func(ctx, args *expr.Param) expr.Expr {
		p := expr.NewParam("p", "Person")
		match := expr.Fn(p, expr.BinaryOp(expr.OpEqual, expr.Prop(p, "id"), expr.Prop(args, "id")))
		return expr.CallMethod("First", expr.CallMethod("Where", expr.Prop(ctx, "people"), match))
	})

	query.AddField("secret", "", schema.NamedType("String")).
		Resolve(func(*expr.Param) expr.Expr { return expr.Constant("s3cr3t") }).
		RequiresAnyRole("admin")
	query.AddMember("broken", "", schema.NonNullType(schema.NamedType("String")))
	return s
}

func execute(t *testing.T, req executor.Request, opts ...executor.Option) *executor.ExecutionResult {
	t.Helper()
	if req.Root == nil {
		req.Root = testRoot()
	}
	return executor.New(newTestSchema(t), opts...).Execute(context.Background(), req)
}

func requireResult(t *testing.T, want, got *executor.ExecutionResult) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteSelection(t *testing.T) {
	got := execute(t, executor.Request{Query: `
		{
			first: person(id: 1) { __typename name role ...Ages }
			third: person(id: 3) { name }
		}
		fragment Ages on Person { age }
	`})
	requireResult(t, &executor.ExecutionResult{
		Data: map[string]any{
			"first": map[string]any{"__typename": "Person", "name": "Ada", "role": "ADMIN", "age": 36},
			"third": map[string]any{"name": "Cyd"},
		},
	}, got)
}

func TestExecuteOffsetPage(t *testing.T) {
	got := execute(t, executor.Request{Query: `{
		people(sort: ["-age"], take: 2) {
			items { name age }
			totalItems
			hasNextPage
			hasPreviousPage
		}
	}`})
	requireResult(t, &executor.ExecutionResult{
		Data: map[string]any{
			"people": map[string]any{
				"items": []any{
					map[string]any{"name": "Bob", "age": 52},
					map[string]any{"name": "Ada", "age": 36},
				},
				"totalItems":      3,
				"hasNextPage":     true,
				"hasPreviousPage": false,
			},
		},
	}, got)
}

func TestExecuteVariablesAndDirectives(t *testing.T) {
	query := `query Lookup($id: Int!, $withAge: Boolean!) {
		person(id: $id) { name age @include(if: $withAge) }
	}`

	got := execute(t, executor.Request{
		Query: query,
		// JSON decoding yields float64 numbers
		Variables: map[string]any{"id": float64(2), "withAge": false},
	})
	requireResult(t, &executor.ExecutionResult{
		Data: map[string]any{"person": map[string]any{"name": "Bob"}},
	}, got)

	got = execute(t, executor.Request{Query: query, Variables: map[string]any{"id": 2, "withAge": true}})
	requireResult(t, &executor.ExecutionResult{
		Data: map[string]any{"person": map[string]any{"name": "Bob", "age": 52}},
	}, got)

	got = execute(t, executor.Request{Query: query, Variables: map[string]any{"withAge": true}})
	requireResult(t, &executor.ExecutionResult{
		Errors: []executor.GraphQLError{{Message: "variable $id of required type Int! was not provided"}},
	}, got)
}

func TestExecuteValidationErrors(t *testing.T) {
	t.Run("missing required argument", func(t *testing.T) {
		got := execute(t, executor.Request{Query: `{ person { name } }`})
		requireResult(t, &executor.ExecutionResult{
			Data: map[string]any{"person": nil},
			Errors: []executor.GraphQLError{{
				Message: "field Query.person: validation failed: argument 'id' is required (argument 'id')",
				Path:    executor.Path{"person"},
				Extensions: map[string]any{
					"code":     executor.CodeValidationFailed,
					"failures": []*schema.ValidationFailure{{Argument: "id", Message: "argument 'id' is required"}},
				},
			}},
		}, got)
	})

	t.Run("zero id is supplied", func(t *testing.T) {
		got := execute(t, executor.Request{Query: `{ person(id: 0) { name } }`})
		require.Len(t, got.Errors, 1)
		require.Equal(t, []*schema.ValidationFailure{{Argument: "id", Message: "argument 'id' must be at least 1"}},
			got.Errors[0].Extensions["failures"])
	})

	t.Run("page size above the maximum", func(t *testing.T) {
		got := execute(t, executor.Request{Query: `{ people(take: 500) { totalItems } }`})
		require.Len(t, got.Errors, 1)
		require.Equal(t, executor.CodeValidationFailed, got.Errors[0].Extensions["code"])
		require.Contains(t, got.Errors[0].Message, "argument 'take' must be at most 50")
		require.Equal(t, map[string]any{"people": nil}, got.Data)
	})

	t.Run("sort by an unlisted member", func(t *testing.T) {
		got := execute(t, executor.Request{Query: `{ people(sort: ["role"]) { totalItems } }`})
		require.Len(t, got.Errors, 1)
		require.Contains(t, got.Errors[0].Message, "argument 'sort' cannot order by 'role'")
	})

	t.Run("unknown argument", func(t *testing.T) {
		got := execute(t, executor.Request{Query: `{ person(id: 1, name: "Ada") { name } }`})
		require.Len(t, got.Errors, 1)
		require.Contains(t, got.Errors[0].Message, "argument not found: name")
		require.Equal(t, map[string]any{"person": nil}, got.Data)
	})
}

func TestExecuteNonNullArguments(t *testing.T) {
	s := schema.NewSchema("")
	query := schema.NewType("Query", schema.TypeKindObject, "")
	s.AddType(query).SetQueryType("Query")
	greet := query.AddField("greet", "", schema.NamedType("String"))
	_, err := greet.AddArguments(struct {
		Name    string
		Excited bool
	}{})
	require.NoError(t, err)
	greet.ResolveWithArgs(func(_, args *expr.Param) expr.Expr { return expr.Prop(args, "name") })
	require.Equal(t, "String!", greet.Arguments()["name"].Type.String())

	run := func(q string) *executor.ExecutionResult {
		return executor.New(s).Execute(context.Background(), executor.Request{Query: q, Root: map[string]any{}})
	}

	t.Run("omitted", func(t *testing.T) {
		got := run(`{ greet }`)
		require.Equal(t, map[string]any{"greet": nil}, got.Data)
		require.Len(t, got.Errors, 1)
		require.Equal(t, executor.CodeValidationFailed, got.Errors[0].Extensions["code"])
		require.Equal(t, []*schema.ValidationFailure{
			{Argument: "name", Message: "argument 'name' is required"},
			{Argument: "excited", Message: "argument 'excited' is required"},
		}, got.Errors[0].Extensions["failures"])
	})

	t.Run("zero values", func(t *testing.T) {
		requireResult(t, &executor.ExecutionResult{Data: map[string]any{"greet": ""}}, run(`{ greet(name: "", excited: false) }`))
	})
}

func TestExecuteAuthorization(t *testing.T) {
	got := execute(t, executor.Request{Query: `{ secret }`})
	requireResult(t, &executor.ExecutionResult{
		Data: map[string]any{"secret": nil},
		Errors: []executor.GraphQLError{{
			Message:    "authorization denied: Query.secret",
			Path:       executor.Path{"secret"},
			Extensions: map[string]any{"code": executor.CodeForbidden},
		}},
	}, got)

	got = execute(t, executor.Request{
		Query:     `{ secret }`,
		Principal: schema.StaticPrincipal{Roles: []string{"admin"}},
	})
	requireResult(t, &executor.ExecutionResult{Data: map[string]any{"secret": "s3cr3t"}}, got)
}

func TestExecuteNonNullPropagation(t *testing.T) {
	t.Run("root field", func(t *testing.T) {
		got := execute(t, executor.Request{Query: `{ broken person(id: 1) { name } }`})
		requireResult(t, &executor.ExecutionResult{
			Data: map[string]any{"broken": nil, "person": map[string]any{"name": "Ada"}},
			Errors: []executor.GraphQLError{{
				Message: "Cannot return null for non-nullable field broken",
				Path:    executor.Path{"broken"},
			}},
		}, got)
	})

	t.Run("nested field nulls its parent", func(t *testing.T) {
		got := execute(t, executor.Request{Query: `{ person(id: 1) { name nickname } }`})
		requireResult(t, &executor.ExecutionResult{
			Data: map[string]any{"person": nil},
			Errors: []executor.GraphQLError{{
				Message: "Cannot return null for non-nullable field person.nickname",
				Path:    executor.Path{"person", "nickname"},
			}},
		}, got)
	})
}

func TestExecuteUnknownField(t *testing.T) {
	got := execute(t, executor.Request{Query: `{ nope }`})
	requireResult(t, &executor.ExecutionResult{
		Data: map[string]any{},
		Errors: []executor.GraphQLError{{
			Message: "Cannot query field 'nope' on type 'Query'",
			Path:    executor.Path{"nope"},
		}},
	}, got)
}

func TestExecuteOperationErrors(t *testing.T) {
	got := execute(t, executor.Request{Query: `{ person(id: 1) { name }`})
	require.Nil(t, got.Data)
	require.Len(t, got.Errors, 1)
	require.Contains(t, got.Errors[0].Message, "parse query")

	got = execute(t, executor.Request{Query: `mutation { rename }`})
	requireResult(t, &executor.ExecutionResult{
		Errors: []executor.GraphQLError{{Message: "root type not found for mutation operation"}},
	}, got)
}

func TestExecutePublishesEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	var compiled []events.FieldCompileFinish
	unsubscribe := eventbus.Subscribe(func(_ context.Context, e events.FieldCompileFinish) {
		e.Duration = 0
		compiled = append(compiled, e)
	})
	defer unsubscribe()

	var requestIDs []string
	defer eventbus.Subscribe(func(ctx context.Context, e events.RequestFinish) {
		id, _ := reqid.FromContext(ctx)
		requestIDs = append(requestIDs, id)
	})()

	ctx, id := reqid.NewContext(context.Background())
	executor.New(newTestSchema(t)).Execute(ctx, executor.Request{
		Query: `{ person(id: 1) { name age @skip(if: true) } }`,
		Root:  testRoot(),
	})

	want := []events.FieldCompileFinish{
		{Field: "Query.person", Path: "person"},
		{Field: "Person.name", Path: "person.name"},
		{Field: "Person.age", Path: "person.age", Skipped: true},
	}
	if diff := cmp.Diff(want, compiled); diff != "" {
		t.Fatalf("compile events mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []string{id}, requestIDs)
}

func TestExecuteLogs(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	ctx, id := reqid.NewContext(context.Background())
	executor.New(newTestSchema(t), executor.WithLogger(log)).Execute(ctx, executor.Request{
		Query: `query Q { secret }`,
		Root:  testRoot(),
	})

	out := buf.String()
	require.Contains(t, out, `"request_id":"`+id+`"`)
	require.Contains(t, out, `"message":"field failed"`)
	require.Contains(t, out, `"message":"executed operation"`)
	require.Contains(t, out, `"operation":"Q"`)
}

type upper struct{}

func (upper) Name() string { return "upper" }

func (upper) VisitExpression(_ *schema.Field, e expr.Expr) (expr.Expr, error) {
	// wraps the value so the test can see the directive ran
	return expr.BinaryOp(expr.OpAdd, e, expr.Constant("!")), nil
}

func TestExecuteCustomDirective(t *testing.T) {
	got := execute(t, executor.Request{Query: `{ person(id: 2) { name @shout } }`},
		executor.WithDirective("shout", func(map[string]any) (schema.ExecutableDirective, error) {
			return upper{}, nil
		}))
	requireResult(t, &executor.ExecutionResult{
		Data: map[string]any{"person": map[string]any{"name": "Bob!"}},
	}, got)
}
