package uuid

import (
	"testing"

	goUUID "github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewIDProducesUniqueV7(t *testing.T) {
	t.Parallel()

	gen := New()
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		id, err := gen.NewID()
		require.NoError(t, err)

		parsed, err := goUUID.Parse(id)
		require.NoError(t, err)
		require.Equal(t, goUUID.Version(7), parsed.Version())

		_, dup := seen[id]
		require.False(t, dup, "site id %s generated twice", id)
		seen[id] = struct{}{}
	}
}

// Site ids double as a creation-time sort key in store listings.
func TestNewIDIsTimeOrdered(t *testing.T) {
	t.Parallel()

	gen := New()
	prev, err := gen.NewID()
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		next, err := gen.NewID()
		require.NoError(t, err)
		require.GreaterOrEqual(t, next, prev)
		prev = next
	}
}
