// Package topology turns provider snapshots into searchable graphs. A Graph is
// built once per instant and never mutated afterwards.
package topology

import (
	"math"
	"sort"
	"strings"

	"github.com/amsen20/leovnf/internal/model"
	"github.com/amsen20/leovnf/logging"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

var log = logging.Get()

// yenKShortestPaths can hand back the same path more than once, so callers ask
// it for more paths until enough distinct ones are collected.
var yenKShortestPaths = path.YenKShortestPaths

type Graph struct {
	SecondOfDay int

	g     *simple.UndirectedGraph
	ids   map[string]int64
	names []string
}

// NewGraph builds an unweighted undirected graph. Node ids are numbered in
// order of first appearance in Nodes, then Edges. Self links are ignored.
func NewGraph(snapshot model.TopologySnapshot) *Graph {
	ret := &Graph{
		SecondOfDay: snapshot.SecondOfDay,
		g:           simple.NewUndirectedGraph(),
		ids:         make(map[string]int64),
	}

	for _, node := range snapshot.Nodes {
		ret.add(node)
	}
	for _, edge := range snapshot.Edges {
		u, v := ret.add(edge[0]), ret.add(edge[1])
		if u == v {
			continue
		}
		ret.g.SetEdge(ret.g.NewEdge(simple.Node(u), simple.Node(v)))
	}

	return ret
}

func (gr *Graph) add(node string) int64 {
	if id, ok := gr.ids[node]; ok {
		return id
	}

	id := int64(len(gr.names))
	gr.ids[node] = id
	gr.names = append(gr.names, node)
	gr.g.AddNode(simple.Node(id))

	return id
}

func (gr *Graph) HasNode(node string) bool {
	_, ok := gr.ids[node]
	return ok
}

// Nodes returns node ids in insertion order.
func (gr *Graph) Nodes() []string {
	return append([]string(nil), gr.names...)
}

func (gr *Graph) EdgeCount() int {
	return gr.g.Edges().Len()
}

// KShortestPaths returns at most k loop-free paths from src to dst ordered by
// hop count, ties kept in search order. Fewer than k paths means fewer exist.
// Unknown endpoints or unreachable pairs give no paths.
func (gr *Graph) KShortestPaths(src, dst string, k int) [][]string {
	if k < 1 || !gr.HasNode(src) || !gr.HasNode(dst) {
		return nil
	}

	var ret [][]string
	for want := k; ; want *= 2 {
		found := yenKShortestPaths(gr.g, want, math.Inf(1), simple.Node(gr.ids[src]), simple.Node(gr.ids[dst]))
		ret = DedupePaths(gr.toNames(found))

		// a short answer means the search ran out of paths
		if len(ret) >= k || len(found) < want {
			break
		}
	}

	SortByHops(ret)
	if len(ret) > k {
		ret = ret[:k]
	}

	return ret
}

func (gr *Graph) toNames(paths [][]graph.Node) [][]string {
	ret := make([][]string, 0, len(paths))
	for _, p := range paths {
		names := make([]string, 0, len(p))
		for _, n := range p {
			names = append(names, gr.names[n.ID()])
		}
		ret = append(ret, names)
	}

	return ret
}

// SortByHops orders paths by length, keeping the relative order of equally
// long paths.
func SortByHops(paths [][]string) {
	sort.SliceStable(paths, func(i, j int) bool {
		return len(paths[i]) < len(paths[j])
	})
}

// DedupePaths drops repeated paths, keeping the first occurrence.
func DedupePaths(paths [][]string) [][]string {
	seen := make(map[string]bool)
	ret := make([][]string, 0, len(paths))
	for _, p := range paths {
		key := strings.Join(p, ",")
		if seen[key] {
			continue
		}
		seen[key] = true
		ret = append(ret, p)
	}

	if len(ret) < len(paths) {
		log.Debug().Msgf("dropped %d repeated paths", len(paths)-len(ret))
	}

	return ret
}
