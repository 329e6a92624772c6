// Because it is a testing package, no errors are returned,
// all problems cause a panic.

package testing_tool

import (
	"context"
	"fmt"
	"sync"

	"github.com/amsen20/leovnf/internal/connector"
	"github.com/amsen20/leovnf/internal/model"
)

// ScriptedTopology answers the n-th graph query with Rounds[n], whatever the
// requested second, so round behaviour can be scripted without a clock.
type ScriptedTopology struct {
	Rounds []model.TopologySnapshot

	// Cover sets per station latitude, the same for every round.
	Cover map[string][]string

	// Failing rounds return an error instead of a graph.
	Failing map[int]bool

	mutex        sync.Mutex
	graphCalls   int
	seconds      []int
	coverQueries []string
}

func (st *ScriptedTopology) GraphAt(ctx context.Context, req connector.TopologyRequest) (model.TopologySnapshot, error) {
	st.mutex.Lock()
	defer st.mutex.Unlock()

	call := st.graphCalls
	st.graphCalls++
	st.seconds = append(st.seconds, req.SecondOfDay)

	if st.Failing[call] {
		return model.TopologySnapshot{}, fmt.Errorf("scripted failure of round %d", call)
	}
	if call >= len(st.Rounds) {
		panic(fmt.Sprintf("graph query %d, but only %d rounds are scripted", call, len(st.Rounds)))
	}

	snapshot := st.Rounds[call]
	snapshot.SecondOfDay = req.SecondOfDay
	return snapshot, nil
}

func (st *ScriptedTopology) CoverSetAt(ctx context.Context, req connector.TopologyRequest) ([]string, error) {
	st.mutex.Lock()
	defer st.mutex.Unlock()

	if req.Station == nil {
		panic("cover set query without station")
	}
	st.coverQueries = append(st.coverQueries, req.Station.Latitude)

	cover, ok := st.Cover[req.Station.Latitude]
	if !ok {
		return nil, fmt.Errorf("no cover set scripted for %s", req.Station.Latitude)
	}
	return cover, nil
}

// Seconds returns the second of day of every graph query so far.
func (st *ScriptedTopology) Seconds() []int {
	st.mutex.Lock()
	defer st.mutex.Unlock()

	return append([]int(nil), st.seconds...)
}

// CoverQueries returns the station latitude of every cover set query so far.
func (st *ScriptedTopology) CoverQueries() []string {
	st.mutex.Lock()
	defer st.mutex.Unlock()

	return append([]string(nil), st.coverQueries...)
}

// Chain is a path graph over nodes.
func Chain(nodes ...string) model.TopologySnapshot {
	snapshot := model.TopologySnapshot{Nodes: nodes}
	for i := 1; i < len(nodes); i++ {
		snapshot.Edges = append(snapshot.Edges, [2]string{nodes[i-1], nodes[i]})
	}

	return snapshot
}

// Join merges snapshots, keeping the first occurrence of every node.
func Join(snapshots ...model.TopologySnapshot) model.TopologySnapshot {
	ret := model.TopologySnapshot{}
	seen := make(map[string]bool)
	for _, snapshot := range snapshots {
		for _, node := range snapshot.Nodes {
			if !seen[node] {
				seen[node] = true
				ret.Nodes = append(ret.Nodes, node)
			}
		}
		ret.Edges = append(ret.Edges, snapshot.Edges...)
	}

	return ret
}
