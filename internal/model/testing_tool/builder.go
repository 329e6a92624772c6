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

type NodeDesc struct {
	Cpu    int64
	Memory int64 // MB
	Disk   int64

	UsedCpu    int64
	UsedMemory int64
	UsedDisk   int64
}

type VNFDesc struct {
	Name    string
	Cpu     int64
	Memory  int64 // GiB
	Storage int64
}

type Builder struct {
	vnfs    map[string]*VNFDesc
	nodes   map[string]*NodeDesc
	unknown map[string]bool

	queries map[string]int
	mutex   sync.Mutex
}

func New() *Builder {
	return &Builder{
		vnfs:    make(map[string]*VNFDesc),
		nodes:   make(map[string]*NodeDesc),
		unknown: make(map[string]bool),
		queries: make(map[string]int),
	}
}

func (builder *Builder) ImportVNFs(vnfsDesc []*VNFDesc) {
	for _, vnfDesc := range vnfsDesc {
		builder.vnfs[vnfDesc.Name] = vnfDesc
	}
}

// GetNS returns an unplaced network service chaining the named VNFs in order.
func (builder *Builder) GetNS(name string, vnfNames ...string) *model.NetworkService {
	ns := &model.NetworkService{
		Name:        name,
		Source:      model.NewCoordinates(35.6892, 51.389),
		Destination: model.NewCoordinates(48.8566, 2.3522),
	}

	for ind, vnfName := range vnfNames {
		vnfDesc, ok := builder.vnfs[vnfName]
		if !ok {
			panic(fmt.Sprintf("there is no vnf named %s", vnfName))
		}

		ns.VNFs = append(ns.VNFs, &model.VNFSpec{
			Name:         vnfDesc.Name,
			Id:           ind + 1,
			CPU:          vnfDesc.Cpu,
			MemoryGiB:    vnfDesc.Memory,
			StorageGB:    vnfDesc.Storage,
			MinInstances: 1,
			MaxInstances: 1,
			AssignedNode: model.UNASSIGNED,
		})
	}

	return ns
}

// GetPlacedNS is GetNS with every VNF already deployed along path, which holds
// the two endpoints around one node per VNF.
func (builder *Builder) GetPlacedNS(name string, path []string, vnfNames ...string) *model.NetworkService {
	if len(path) != len(vnfNames)+2 {
		panic(fmt.Sprintf("path %v does not fit %d vnfs", path, len(vnfNames)))
	}

	ns := builder.GetNS(name, vnfNames...)
	ns.Path = append([]string(nil), path...)
	for ind, vnf := range ns.VNFs {
		vnf.AssignedNode = path[ind+1]
	}

	return ns
}

func (builder *Builder) SetNode(id string, nodeDesc *NodeDesc) {
	builder.mutex.Lock()
	defer builder.mutex.Unlock()

	builder.nodes[id] = nodeDesc
	delete(builder.unknown, id)
}

// SetNodes gives every id the same description.
func (builder *Builder) SetNodes(nodeDesc NodeDesc, ids ...string) {
	for _, id := range ids {
		desc := nodeDesc
		builder.SetNode(id, &desc)
	}
}

// SetUnknown makes queries for id fail.
func (builder *Builder) SetUnknown(id string) {
	builder.mutex.Lock()
	defer builder.mutex.Unlock()

	builder.unknown[id] = true
}

func (builder *Builder) Snapshot(id string) model.ResourceSnapshot {
	builder.mutex.Lock()
	defer builder.mutex.Unlock()

	nodeDesc, ok := builder.nodes[id]
	if !ok {
		panic(fmt.Sprintf("there is no node %s", id))
	}

	used := model.ResourceVector{CPU: nodeDesc.UsedCpu, MemoryMB: nodeDesc.UsedMemory, DiskGB: nodeDesc.UsedDisk}
	return model.ResourceSnapshot{
		Hostname: "openstackcompute" + id,
		Total:    model.ResourceVector{CPU: nodeDesc.Cpu, MemoryMB: nodeDesc.Memory, DiskGB: nodeDesc.Disk},
		UsedNow:  used,
		UsedMax:  used,
	}
}

// Provider serves the described nodes. Nodes never described, or marked
// unknown, fail with connector.ErrUnknown.
func (builder *Builder) Provider() connector.ResourceProvider {
	return connector.ResourceProviderFunc(func(ctx context.Context, node string) (model.ResourceSnapshot, error) {
		builder.mutex.Lock()
		builder.queries[node]++
		_, known := builder.nodes[node]
		unknown := builder.unknown[node]
		builder.mutex.Unlock()

		if !known || unknown {
			return model.ResourceSnapshot{}, fmt.Errorf("%w: test node %s", connector.ErrUnknown, node)
		}

		return builder.Snapshot(node), nil
	})
}

// Queries is how many times the provider was asked about node.
func (builder *Builder) Queries(node string) int {
	builder.mutex.Lock()
	defer builder.mutex.Unlock()

	return builder.queries[node]
}
