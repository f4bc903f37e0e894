package schema_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stanza/pkg/schema"
)

func TestSchema_Check(t *testing.T) {
	s := schema.Schema{
		"query": schema.String(),
		"limit": schema.Int(),
	}

	t.Run("conforming arguments pass", func(t *testing.T) {
		args := map[string]any{"query": "golang concurrency", "limit": int64(5)}
		assert.NoError(t, s.Check(args, "query", "limit"))
	})

	t.Run("only named arguments are checked", func(t *testing.T) {
		// limit was omitted from the call, so its name is not passed.
		args := map[string]any{"query": "golang concurrency"}
		assert.NoError(t, s.Check(args, "query"))
	})

	t.Run("no names is a no-op", func(t *testing.T) {
		assert.NoError(t, s.Check(map[string]any{"query": int64(9)}))
	})

	t.Run("failures report every bad argument", func(t *testing.T) {
		args := map[string]any{"query": int64(9), "limit": "five"}
		err := s.Check(args, "query", "limit")
		require.Error(t, err)
		assert.ErrorContains(t, err, `argument "query"`)
		assert.ErrorContains(t, err, `argument "limit"`)
	})

	t.Run("undeclared name is rejected", func(t *testing.T) {
		err := s.Check(map[string]any{"depth": int64(2)}, "depth")
		assert.ErrorContains(t, err, `argument "depth": no declared type`)
	})

	t.Run("named but absent argument is rejected", func(t *testing.T) {
		err := s.Check(map[string]any{}, "query")
		assert.ErrorContains(t, err, `argument "query": missing`)
	})
}

func TestArgumentError_Unwrap(t *testing.T) {
	cause := errors.New("expected string, got int64")
	err := &schema.ArgumentError{Arg: "query", Err: cause}

	assert.Equal(t, `argument "query": expected string, got int64`, err.Error())
	assert.ErrorIs(t, err, cause)

	var argErr *schema.ArgumentError
	joined := schema.Schema{"limit": schema.Int()}.Check(map[string]any{"limit": "five"}, "limit")
	require.ErrorAs(t, joined, &argErr)
	assert.Equal(t, "limit", argErr.Arg)
}
