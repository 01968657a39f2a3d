package language

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindOperation(t *testing.T) {
	doc, err := ParseQuery(`query A { a } query B { b }`)
	require.NoError(t, err)

	op, err := FindOperation(doc, "B")
	require.NoError(t, err)
	require.Equal(t, "B", op.Name)

	_, err = FindOperation(doc, "")
	require.Error(t, err)

	_, err = FindOperation(doc, "C")
	require.Error(t, err)

	single, err := ParseQuery(`{ a }`)
	require.NoError(t, err)
	op, err = FindOperation(single, "")
	require.NoError(t, err)
	require.Equal(t, Query, op.Operation)
}

func TestParseErrors(t *testing.T) {
	_, err := ParseQuery(`{ a `)
	require.ErrorContains(t, err, "parse query")

	_, err = ParseSchema("broken", `type {`)
	require.ErrorContains(t, err, "parse schema broken")
}
