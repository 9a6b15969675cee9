package importer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrontierOrdering(t *testing.T) {
	t.Parallel()

	f := NewFrontier()
	require.True(t, f.PushBack("https://a.test/1"))
	require.True(t, f.PushBack("https://a.test/2"))
	require.True(t, f.PushFront("https://a.test/priority"))

	url, ok := f.Pop()
	require.True(t, ok)
	require.Equal(t, "https://a.test/priority", url)

	url, ok = f.Pop()
	require.True(t, ok)
	require.Equal(t, "https://a.test/1", url)

	url, ok = f.Pop()
	require.True(t, ok)
	require.Equal(t, "https://a.test/2", url)

	_, ok = f.Pop()
	require.False(t, ok)
}

func TestFrontierRejectsDuplicates(t *testing.T) {
	t.Parallel()

	f := NewFrontier()
	require.True(t, f.PushBack("https://a.test/page"))
	require.False(t, f.PushBack("https://a.test/page"))
	require.False(t, f.PushFront("https://a.test/page"))
	require.Equal(t, 1, f.Len())
}

func TestFrontierRejectsVisited(t *testing.T) {
	t.Parallel()

	f := NewFrontier()
	require.True(t, f.PushBack("https://a.test/page"))
	_, ok := f.Pop()
	require.True(t, ok)
	require.True(t, f.Visited("https://a.test/page"))

	// A popped URL can never be re-queued.
	require.False(t, f.PushBack("https://a.test/page"))
	require.Equal(t, 0, f.Len())
}

func TestFrontierMarkVisited(t *testing.T) {
	t.Parallel()

	f := NewFrontier()
	f.MarkVisited("https://a.test/products/hat")
	require.True(t, f.Visited("https://a.test/products/hat"))
	require.False(t, f.PushBack("https://a.test/products/hat"))
	require.Equal(t, 0, f.Len())
}

func TestFrontierRejectsEmpty(t *testing.T) {
	t.Parallel()

	f := NewFrontier()
	require.False(t, f.PushBack(""))
	require.False(t, f.PushFront(""))
	require.Equal(t, 0, f.Len())
}
