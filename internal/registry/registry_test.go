package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndGet(t *testing.T) {
	r := New[int]("test", Options{ThrowOnConflict: true})

	require.NoError(t, r.Register("one", 1, "uno", "eins"))
	require.NoError(t, r.Register("two", 2))

	v, ok := r.Get("one")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = r.Get("uno")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = r.Get("three")
	assert.False(t, ok)
}

func TestStrictConflicts(t *testing.T) {
	r := New[string]("metrics", Options{ThrowOnConflict: true})
	require.NoError(t, r.Register("ndcg_at_5", "a", "ndcg@5"))

	cases := []struct {
		name    string
		key     string
		aliases []string
	}{
		{"duplicate key", "ndcg_at_5", nil},
		{"key collides with alias", "ndcg@5", nil},
		{"alias collides with key", "other", []string{"ndcg_at_5"}},
		{"alias collides with alias", "other", []string{"ndcg@5"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := r.Register(tc.key, "b", tc.aliases...)
			var conflict *ConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, "metrics", conflict.Registry)
		})
	}

	// Registry unchanged after failed registrations.
	assert.Equal(t, 1, r.Size())
	assert.Equal(t, []string{"ndcg_at_5"}, r.Keys())
}

func TestLenientFirstWins(t *testing.T) {
	r := New[int]("loaders", Options{ThrowOnConflict: false})
	require.NoError(t, r.Register("a", 1))
	require.NoError(t, r.Register("a", 2))

	v, _ := r.Get("a")
	assert.Equal(t, 1, v, "first registration wins in lenient mode")
}

func TestGetOrErrorListsAvailableKeys(t *testing.T) {
	r := New[int]("evaluators", Options{ThrowOnConflict: true})
	require.NoError(t, r.Register("llm-judge", 1))
	require.NoError(t, r.Register("exact", 2))

	_, err := r.GetOrError("fuzzy")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "evaluators", nf.Registry)
	assert.Equal(t, "fuzzy", nf.Key)
	assert.Equal(t, []string{"exact", "llm-judge"}, nf.Available)
	assert.Contains(t, err.Error(), "exact, llm-judge")
}

func TestDeleteRemovesAliases(t *testing.T) {
	r := New[int]("test", Options{ThrowOnConflict: true})
	require.NoError(t, r.Register("one", 1, "uno"))

	// Aliases alone are not deletable.
	assert.False(t, r.Delete("uno"))
	assert.True(t, r.Has("uno"))

	assert.True(t, r.Delete("one"))
	assert.False(t, r.Has("one"))
	assert.False(t, r.Has("uno"))
	assert.Equal(t, 0, r.Size())

	// Freed alias can be reused.
	require.NoError(t, r.Register("uno", 10))
}

func TestKeysSortedPrimariesOnly(t *testing.T) {
	r := New[int]("test", Options{})
	require.NoError(t, r.Register("b", 2, "zz"))
	require.NoError(t, r.Register("a", 1, "yy"))

	assert.Equal(t, []string{"a", "b"}, r.Keys())
	assert.Equal(t, 2, r.Size())
}

func TestResolveAliasIdempotent(t *testing.T) {
	r := New[int]("test", Options{})
	require.NoError(t, r.Register("primary", 1, "alias"))

	assert.Equal(t, "primary", r.ResolveAlias("alias"))
	assert.Equal(t, "primary", r.ResolveAlias("primary"))
	assert.Equal(t, "unknown", r.ResolveAlias("unknown"))
	// Idempotence: resolving a resolved name is a no-op.
	assert.Equal(t, r.ResolveAlias("alias"), r.ResolveAlias(r.ResolveAlias("alias")))
}

func TestHasCoversPrimariesAndAliases(t *testing.T) {
	r := New[int]("test", Options{})
	require.NoError(t, r.Register("one", 1, "uno"))

	assert.True(t, r.Has("one"))
	assert.True(t, r.Has("uno"))
	assert.False(t, r.Has("two"))
}

func TestErrorTypesAreDistinct(t *testing.T) {
	nf := &NotFoundError{Registry: "r", Key: "k"}
	cf := &ConflictError{Registry: "r", Key: "k"}

	var asConflict *ConflictError
	assert.False(t, errors.As(error(nf), &asConflict))
	var asNotFound *NotFoundError
	assert.False(t, errors.As(error(cf), &asNotFound))
}
