package dag

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/provisiongrid/internal/nodeid"
)

var (
	a = nodeid.MustParse("echo.a")
	b = nodeid.MustParse("echo.b")
	c = nodeid.MustParse("echo.c")
)

func TestNew(t *testing.T) {
	g := New()
	require.NotNil(t, g)
	assert.NotNil(t, g.nodes)
	assert.Empty(t, g.nodes)
	assert.Equal(t, 0, g.Len())
}

func TestAddNode(t *testing.T) {
	g := New()

	assert.True(t, g.AddNode(a))
	assert.Len(t, g.nodes, 1)
	nodeA, ok := g.nodes[a]
	require.True(t, ok)
	assert.Equal(t, a, nodeA.id)
	assert.Equal(t, 0, nodeA.index)

	assert.False(t, g.AddNode(a), "adding twice is reported and ignored")
	assert.Len(t, g.nodes, 1)

	g.AddNode(b)
	assert.Equal(t, []nodeid.ID{a, b}, g.Nodes())
	assert.True(t, g.HasNode(b))
	assert.False(t, g.HasNode(c))
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := New()
		g.AddNode(a)
		g.AddNode(b)

		require.NoError(t, g.AddEdge(a, b)) // b depends on a

		deps, err := g.Dependencies(b)
		require.NoError(t, err)
		assert.Equal(t, []nodeid.ID{a}, deps)

		dependents, err := g.Dependents(a)
		require.NoError(t, err)
		assert.Equal(t, []nodeid.ID{b}, dependents)
	})

	t.Run("duplicate edge is ignored", func(t *testing.T) {
		g := New()
		g.AddNode(a)
		g.AddNode(b)

		require.NoError(t, g.AddEdge(a, b))
		require.NoError(t, g.AddEdge(a, b))
		assert.Equal(t, 1, g.EdgeCount())
	})

	t.Run("self edge is kept", func(t *testing.T) {
		g := New()
		g.AddNode(a)

		require.NoError(t, g.AddEdge(a, a))
		deps, err := g.Dependencies(a)
		require.NoError(t, err)
		assert.Equal(t, []nodeid.ID{a}, deps)
	})

	t.Run("error cases", func(t *testing.T) {
		g := New()
		g.AddNode(a)

		err := g.AddEdge(c, a)
		assert.ErrorContains(t, err, "source node not found")

		err = g.AddEdge(a, c)
		assert.ErrorContains(t, err, "destination node not found")
	})
}

func TestQueriesAreInsertionOrdered(t *testing.T) {
	g := New()
	g.AddNode(a)
	g.AddNode(b)
	g.AddNode(c)

	// Edges added in reverse order still come back in node insertion order.
	require.NoError(t, g.AddEdge(c, a))
	require.NoError(t, g.AddEdge(b, a))

	deps, err := g.Dependencies(a)
	require.NoError(t, err)
	assert.Equal(t, []nodeid.ID{b, c}, deps)

	_, err = g.Dependencies(nodeid.MustParse("echo.missing"))
	assert.ErrorContains(t, err, "node not found")
	_, err = g.Dependents(nodeid.MustParse("echo.missing"))
	assert.ErrorContains(t, err, "node not found")
}

func TestConcurrentAccess(t *testing.T) {
	g := New()
	root := nodeid.MustParse("echo.root")
	g.AddNode(root)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := nodeid.New("echo", "n"+string(rune('a'+i%26))+string(rune('a'+i/26)))
			g.AddNode(id)
			_ = g.AddEdge(root, id)
			_, _ = g.Dependents(root)
		}(i)
	}
	wg.Wait()

	dependents, err := g.Dependents(root)
	require.NoError(t, err)
	assert.Len(t, dependents, 50)
}
