package model

import (
	"errors"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound means no candidate satisfied the constraints. The caller
	// should leave the existing deployment unchanged.
	ErrNotFound = errors.New("no feasible candidate found")

	// ErrAborted means the pass ran out of time or was cancelled before a
	// decision could be trusted.
	ErrAborted = errors.New("planning pass aborted")

	// ErrConfig marks operator or programmer errors such as zero totals or a
	// broken chain.
	ErrConfig = errors.New("configuration error")
)

// Ratios are post-assignment utilization fractions.
type Ratios struct {
	CPU  float64 `json:"cpu" yaml:"cpu"`
	Mem  float64 `json:"mem" yaml:"mem"`
	Disk float64 `json:"disk" yaml:"disk"`
}

func (r Ratios) Slice() []float64 {
	return []float64{r.CPU, r.Mem, r.Disk}
}

type PlacementPlan struct {
	Path []string `json:"path" yaml:"path"`

	// Assignment maps vnf name to node id, AssignmentOrder keeps chain order.
	Assignment      map[string]string `json:"assignment" yaml:"assignment"`
	AssignmentOrder []string          `json:"assignment_order" yaml:"assignment_order"`

	// PathIndices[i] is the index in Path of the node hosting the i-th VNF.
	PathIndices []int `json:"path_indices" yaml:"path_indices"`

	UsedNodes   []string       `json:"used_nodes" yaml:"used_nodes"`
	Consumption ResourceVector `json:"consumption" yaml:"consumption"`
	Ratios      Ratios         `json:"ratios" yaml:"ratios"`
	Score       float64        `json:"score" yaml:"score"`
}

// DeploymentPath is [path start, node per VNF in chain order, path end].
func (p *PlacementPlan) DeploymentPath() []string {
	ret := []string{p.Path[0]}
	for _, vnfName := range p.AssignmentOrder {
		ret = append(ret, p.Assignment[vnfName])
	}

	return append(ret, p.Path[len(p.Path)-1])
}

func (p *PlacementPlan) String() string {
	bytes, _ := yaml.Marshal(p)
	return string(bytes)
}

type MigrationDecision struct {
	VNF         string   `json:"vnf" yaml:"vnf"`
	From        string   `json:"from" yaml:"from"`
	Target      string   `json:"target" yaml:"target"`
	Ratios      Ratios   `json:"ratios" yaml:"ratios"`
	Score       float64  `json:"score" yaml:"score"`
	StableNodes []string `json:"stable_nodes" yaml:"stable_nodes"`
	Rounds      int      `json:"rounds" yaml:"rounds"`
}

func (d *MigrationDecision) String() string {
	bytes, _ := yaml.Marshal(d)
	return string(bytes)
}
