package expr

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type actor struct {
	ID   int
	Name string `graphql:"fullName"`
}

func TestEvalSequenceMethods(t *testing.T) {
	actors := []actor{{1, "Ann"}, {2, "Bob"}, {3, "Cid"}}
	src := Constant(actors)

	tests := []struct {
		name string
		expr Expr
		want any
	}{
		{"skip take", CallMethod("Take", CallMethod("Skip", src, Constant(1)), Constant(1)), []any{actors[1]}},
		{"take beyond length", CallMethod("Take", src, Constant(10)), []any{actors[0], actors[1], actors[2]}},
		{"null take is a no-op", CallMethod("Take", src, Constant(nil)), []any{actors[0], actors[1], actors[2]}},
		{"count", CallMethod("Count", src), 3},
		{"first", CallMethod("First", src), actors[0]},
		{"first of empty", CallMethod("First", Constant([]any{})), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Eval(context.Background(), tt.expr)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvalLambdas(t *testing.T) {
	x := NewParam("x", "Actor")
	src := Constant([]actor{{1, "Ann"}, {2, "Bob"}, {3, "Cid"}})

	names := CallMethod("Select",
		CallMethod("Where", src, Fn(x, BinaryOp(OpGreater, Prop(x, "id"), Constant(1)))),
		Fn(x, Prop(x, "fullName")))

	got, err := Eval(context.Background(), names)
	require.NoError(t, err)
	require.Equal(t, []any{"Bob", "Cid"}, got)
}

func TestEvalOrderBy(t *testing.T) {
	rows := Constant([]any{
		map[string]any{"name": "b", "age": 2},
		map[string]any{"name": "a", "age": 2},
		map[string]any{"name": "c", "age": 1},
	})
	x := NewParam("x", "Row")
	e := CallMethod("Select", CallMethod("OrderBy", rows, Constant([]any{"-age", "name"})), Fn(x, Prop(x, "name")))

	got, err := Eval(context.Background(), e)
	require.NoError(t, err)
	require.Equal(t, []any{"a", "b", "c"}, got)
}

func TestEvalObjectAndShapeValues(t *testing.T) {
	s := NewShape("args", ShapeMember{Name: "skip", Default: 1})
	v := NewShapeValue(s)
	e := Object(
		Binding{Name: "skip", Value: Prop(Constant(v), "skip")},
		Binding{Name: "hasPrev", Value: BinaryOp(OpGreater, Prop(Constant(v), "skip"), Constant(0))},
		Binding{Name: "sum", Value: BinaryOp(OpAdd, Constant(1), Constant(2.5))},
		Binding{Name: "label", Value: If(Constant(false), Constant("x"), BinaryOp(OpAdd, Constant("a"), Constant("b")))},
	)

	got, err := Eval(context.Background(), e)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"skip": 1, "hasPrev": true, "sum": 3.5, "label": "ab"}, got)
}

func TestEvalFailsOnOpenExpressions(t *testing.T) {
	_, err := Eval(context.Background(), Prop(NewParam("ctx", "Query"), "a"))
	require.True(t, errors.Is(err, ErrFreeParam))

	_, err = Eval(context.Background(), Variable("v"))
	require.True(t, errors.Is(err, ErrUnboundVariable))

	_, err = Eval(context.Background(), CallMethod("Nope", Constant([]any{})))
	require.Error(t, err)
}

func TestEvalHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Eval(ctx, Constant(1))
	require.ErrorIs(t, err, context.Canceled)
}

func TestLookup(t *testing.T) {
	v, err := Lookup(&actor{ID: 7}, "id")
	require.NoError(t, err)
	require.Equal(t, 7, v)

	v, err = Lookup(nil, "id")
	require.NoError(t, err)
	require.Nil(t, v)

	_, err = Lookup(actor{}, "missing")
	require.Error(t, err)
}
