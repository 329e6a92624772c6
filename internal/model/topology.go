package model

// TopologySnapshot is the node/edge connectivity of the constellation at one
// second of the day. Edges are undirected.
type TopologySnapshot struct {
	SecondOfDay int         `json:"second" yaml:"second"`
	Nodes       []string    `json:"nodes" yaml:"nodes"`
	Edges       [][2]string `json:"edges" yaml:"edges"`
}
