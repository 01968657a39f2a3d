package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type started struct{ name string }

type finished struct{ name string }

func TestDispatchByType(t *testing.T) {
	b := New()
	var got []string
	On(b, func(_ context.Context, e started) { got = append(got, "start "+e.name) })
	On(b, func(_ context.Context, e finished) { got = append(got, "finish "+e.name) })

	Emit(context.Background(), b, started{"a"})
	Emit(context.Background(), b, finished{"a"})
	require.Equal(t, []string{"start a", "finish a"}, got)
}

func TestUnsubscribeRemovesOnlyThatHandler(t *testing.T) {
	b := New()
	var got []int
	subscribe := func(n int) func() {
		return On(b, func(_ context.Context, _ started) { got = append(got, n) })
	}
	first := subscribe(1)
	subscribe(2)

	first()
	first()
	Emit(context.Background(), b, started{})
	require.Equal(t, []int{2}, got)
}

func TestGlobalBus(t *testing.T) {
	var got []string
	Use(nil)
	Subscribe(func(_ context.Context, e started) { got = append(got, e.name) })
	Publish(context.Background(), started{"dropped"})
	require.Empty(t, got)

	Use(New())
	t.Cleanup(func() { Use(nil) })
	unsubscribe := Subscribe(func(_ context.Context, e started) { got = append(got, e.name) })
	Publish(context.Background(), started{"seen"})
	unsubscribe()
	Publish(context.Background(), started{"after"})
	require.Equal(t, []string{"seen"}, got)
}
