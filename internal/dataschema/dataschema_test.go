package dataschema_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/overjt/entitygraphql/internal/dataschema"
	"github.com/overjt/entitygraphql/internal/executor"
	"github.com/overjt/entitygraphql/internal/schema"
)

const team = `{
	"title": "Team",
	"people": [
		{"name": "Ada", "age": 36, "email": null},
		{"name": "Bob", "age": 52, "email": "bob@example.com"},
		{"name": "Cyd", "age": 21}
	]
}`

func decode(t *testing.T, src string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(src), &out))
	return out
}

func TestBuildInfersTypes(t *testing.T) {
	s, err := dataschema.Build(decode(t, team), dataschema.Options{Sort: true, Paging: true, DefaultPageSize: 2})
	require.NoError(t, err)

	sdl := schema.Render(s)
	for _, line := range []string{
		"type Person {\n  age: Int!\n  email: String\n  name: String!\n}",
		"  people(sort: [String!], skip: Int = 0, take: Int = 2): PersonOffsetPage!\n",
		"  title: String!\n",
		"type PersonOffsetPage {",
	} {
		require.Contains(t, sdl, line)
	}
}

func TestBuildScalarKinds(t *testing.T) {
	var buf bytes.Buffer
	s, err := dataschema.Build(decode(t, `{
		"ratio": [1, 2.5],
		"mixed": [1, "one"],
		"nothing": null,
		"empty": [],
		"tags": ["a", "b"],
		"bad-name": 1
	}`), dataschema.Options{}, schema.WithLogger(zerolog.New(&buf)))
	require.NoError(t, err)

	q := s.GetQueryType()
	got := map[string]string{}
	for _, f := range q.Fields {
		got[f.Name] = f.Type.String()
	}
	want := map[string]string{
		"ratio":   "[Float!]!",
		"mixed":   "[JSON!]!",
		"nothing": "JSON",
		"empty":   "[JSON]!",
		"tags":    "[String!]!",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("field types mismatch (-want +got):\n%s", diff)
	}
	require.Contains(t, buf.String(), `"member":"bad-name"`)
}

func TestBuildExecutes(t *testing.T) {
	root := decode(t, team)
	s, err := dataschema.Build(root, dataschema.Options{Sort: true, Paging: true, DefaultPageSize: 2, Introspection: true})
	require.NoError(t, err)

	got := executor.New(s).Execute(context.Background(), executor.Request{
		Query: `{ title people(sort: ["-age"]) { items { name email } totalItems hasNextPage } __type(name: "Person") { name } }`,
		Root:  root,
	})
	want := &executor.ExecutionResult{
		Data: map[string]any{
			"title": "Team",
			"people": map[string]any{
				"items": []any{
					map[string]any{"name": "Bob", "email": "bob@example.com"},
					map[string]any{"name": "Ada", "email": nil},
				},
				"totalItems":  3,
				"hasNextPage": true,
			},
			"__type": map[string]any{"name": "Person"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}
