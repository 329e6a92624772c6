package topology

import (
	"math/rand"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/amsen20/leovnf/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
)

// 1 - 2 - 3 - 6
// |       |
// 4 ----- 5
// plus an isolated node 9
func ring() *Graph {
	return NewGraph(model.TopologySnapshot{
		SecondOfDay: 60,
		Nodes:       []string{"1", "2", "3", "4", "5", "6", "9"},
		Edges: [][2]string{
			{"1", "2"}, {"2", "3"}, {"3", "6"},
			{"1", "4"}, {"4", "5"}, {"5", "3"},
			{"2", "2"},
		},
	})
}

func TestNewGraph(t *testing.T) {
	g := ring()

	assert.Equal(t, 60, g.SecondOfDay)
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "9"}, g.Nodes())
	assert.Equal(t, 6, g.EdgeCount())
	assert.True(t, g.HasNode("9"))
	assert.False(t, g.HasNode("10"))

	withEdgeOnlyNode := NewGraph(model.TopologySnapshot{Edges: [][2]string{{"a", "b"}}})
	assert.Equal(t, []string{"a", "b"}, withEdgeOnlyNode.Nodes())
}

func TestKShortestPaths(t *testing.T) {
	g := ring()

	t.Run("OrderedByHops", func(t *testing.T) {
		paths := g.KShortestPaths("1", "6", 5)
		require.Len(t, paths, 2)
		assert.Equal(t, []string{"1", "2", "3", "6"}, paths[0])
		assert.Equal(t, []string{"1", "4", "5", "3", "6"}, paths[1])
	})

	t.Run("BoundedByK", func(t *testing.T) {
		paths := g.KShortestPaths("1", "6", 1)
		require.Len(t, paths, 1)
		assert.Equal(t, []string{"1", "2", "3", "6"}, paths[0])
	})

	t.Run("LoopFree", func(t *testing.T) {
		for _, p := range g.KShortestPaths("2", "5", 10) {
			seen := make(map[string]bool)
			for _, n := range p {
				assert.False(t, seen[n], "node %s repeated in %v", n, p)
				seen[n] = true
			}
		}
	})

	t.Run("NoPath", func(t *testing.T) {
		assert.Empty(t, g.KShortestPaths("1", "9", 5))
		assert.Empty(t, g.KShortestPaths("1", "10", 5))
		assert.Empty(t, g.KShortestPaths("1", "6", 0))
	})

	t.Run("SameEndpoint", func(t *testing.T) {
		assert.Equal(t, [][]string{{"3"}}, g.KShortestPaths("3", "3", 5))
	})
}

// complete graph over a..e
func clique() *Graph {
	nodes := []string{"a", "b", "c", "d", "e"}
	snapshot := model.TopologySnapshot{Nodes: nodes}
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			snapshot.Edges = append(snapshot.Edges, [2]string{nodes[i], nodes[j]})
		}
	}

	return NewGraph(snapshot)
}

func TestKShortestPathsRepeatedResults(t *testing.T) {
	var asked []int
	yenKShortestPaths = func(g graph.Graph, k int, cost float64, s, t graph.Node) [][]graph.Node {
		asked = append(asked, k)
		found := path.YenKShortestPaths(g, k, cost, s, t)
		if len(found) < 2 {
			return found
		}
		// repeat the first path in place of the last one
		return append(found[:len(found)-1:len(found)-1], found[0])
	}
	defer func() { yenKShortestPaths = path.YenKShortestPaths }()

	paths := clique().KShortestPaths("a", "e", 5)

	require.Len(t, paths, 5)
	assert.Equal(t, []string{"a", "e"}, paths[0])
	seen := make(map[string]bool)
	for i, p := range paths {
		key := strings.Join(p, ",")
		assert.False(t, seen[key], "path %v returned twice", p)
		seen[key] = true
		if i > 0 {
			assert.LessOrEqual(t, len(paths[i-1]), len(p))
		}
	}
	assert.Equal(t, []int{5, 10}, asked)
}

// countSimplePaths enumerates every loop-free path from src to dst.
func countSimplePaths(adjacency map[string][]string, src, dst string) int {
	visited := map[string]bool{src: true}
	var walk func(node string) int
	walk = func(node string) int {
		if node == dst {
			return 1
		}
		count := 0
		for _, next := range adjacency[node] {
			if visited[next] {
				continue
			}
			visited[next] = true
			count += walk(next)
			visited[next] = false
		}
		return count
	}

	return walk(src)
}

func TestKShortestPathsFindsEveryDistinctPath(t *testing.T) {
	r := rand.New(rand.NewSource(86))

	for trial := 0; trial < 300; trial++ {
		snapshot := model.TopologySnapshot{}
		adjacency := make(map[string][]string)
		for i := 0; i < 8; i++ {
			snapshot.Nodes = append(snapshot.Nodes, strconv.Itoa(i))
		}
		for i := 0; i < 8; i++ {
			for j := i + 1; j < 8; j++ {
				if r.Float64() < 0.4 {
					u, v := strconv.Itoa(i), strconv.Itoa(j)
					snapshot.Edges = append(snapshot.Edges, [2]string{u, v})
					adjacency[u] = append(adjacency[u], v)
					adjacency[v] = append(adjacency[v], u)
				}
			}
		}

		want := countSimplePaths(adjacency, "0", "7")
		if want > 5 {
			want = 5
		}

		paths := NewGraph(snapshot).KShortestPaths("0", "7", 5)
		assert.Len(t, DedupePaths(paths), want, "trial %d: %v", trial, paths)
	}
}

func TestSortAndDedupe(t *testing.T) {
	paths := [][]string{{"a", "b", "c"}, {"a", "c"}, {"a", "d", "c"}, {"a", "c"}}
	paths = DedupePaths(paths)
	SortByHops(paths)
	assert.Equal(t, [][]string{{"a", "c"}, {"a", "b", "c"}, {"a", "d", "c"}}, paths)
}

func TestSecondOfDay(t *testing.T) {
	base := time.Date(2024, 3, 1, 23, 59, 50, 0, time.UTC)
	assert.Equal(t, 86390, SecondOfDay(base))

	next := RoundInstant(base, 2, 6*time.Second)
	assert.Equal(t, 2, SecondOfDay(next))
	assert.Equal(t, 0, SecondOfDay(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)))
}
