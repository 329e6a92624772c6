package model

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/amsen20/leovnf/internal/config"
	"gonum.org/v1/gonum/mat"
)

// UNASSIGNED marks a VNF that has not been placed yet.
const UNASSIGNED = ""

const (
	CPU = iota
	MEMORY
	DISK

	RESOURCE_COUNT
)

// ResourceVector holds CPU cores, memory in MB and disk in GB.
type ResourceVector struct {
	CPU      int64 `json:"CPU" yaml:"cpu"`
	MemoryMB int64 `json:"Memory_MB" yaml:"memory_mb"`
	DiskGB   int64 `json:"Disk_GB" yaml:"disk_gb"`
}

func (r ResourceVector) ToVec() *mat.VecDense {
	return mat.NewVecDense(RESOURCE_COUNT, []float64{
		float64(r.CPU),
		float64(r.MemoryMB),
		float64(r.DiskGB),
	})
}

func (r ResourceVector) Add(o ResourceVector) ResourceVector {
	return ResourceVector{
		CPU:      r.CPU + o.CPU,
		MemoryMB: r.MemoryMB + o.MemoryMB,
		DiskGB:   r.DiskGB + o.DiskGB,
	}
}

func (r ResourceVector) Sub(o ResourceVector) ResourceVector {
	return ResourceVector{
		CPU:      r.CPU - o.CPU,
		MemoryMB: r.MemoryMB - o.MemoryMB,
		DiskGB:   r.DiskGB - o.DiskGB,
	}
}

func (r ResourceVector) String() string {
	return fmt.Sprintf("cpu=%d mem=%dMB disk=%dGB", r.CPU, r.MemoryMB, r.DiskGB)
}

// ResourceSnapshot is what a resource provider reports for one node.
type ResourceSnapshot struct {
	Hostname string         `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Total    ResourceVector `json:"total" yaml:"total"`
	UsedNow  ResourceVector `json:"used_now" yaml:"used_now"`
	UsedMax  ResourceVector `json:"used_max" yaml:"used_max"`
}

func (s ResourceSnapshot) Available() ResourceVector {
	return s.Total.Sub(s.UsedNow)
}

type VNFSpec struct {
	Name         string `json:"vnf_name"`
	Id           int    `json:"id"`
	CPU          int64  `json:"cpu"`
	MemoryGiB    int64  `json:"memory"`
	StorageGB    int64  `json:"storage"`
	MinInstances int    `json:"min_vm"`
	MaxInstances int    `json:"max_vm"`
	Image        string `json:"image,omitempty"`
	AssignedNode string `json:"sat_id"`
}

// Demand is the resource request of one VNF instance with memory in MB.
func (v *VNFSpec) Demand() ResourceVector {
	return ResourceVector{
		CPU:      v.CPU,
		MemoryMB: v.MemoryGiB * config.MiBPerGiB,
		DiskGB:   v.StorageGB,
	}
}

func (v *VNFSpec) IsAssigned() bool {
	return v.AssignedNode != UNASSIGNED
}

type vnfSpecAlias VNFSpec

type vnfSpecWire struct {
	*vnfSpecAlias
	AssignedNode json.RawMessage `json:"sat_id"`
}

// MarshalJSON writes sat_id the way the store file has it: numeric ids as
// numbers and -1 for an unplaced VNF.
func (v *VNFSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(vnfSpecWire{
		vnfSpecAlias: (*vnfSpecAlias)(v),
		AssignedNode: encodeNodeId(v.AssignedNode),
	})
}

// UnmarshalJSON accepts the store file's numeric sat_id (with -1 meaning
// unplaced) as well as string node ids.
func (v *VNFSpec) UnmarshalJSON(data []byte) error {
	wire := vnfSpecWire{vnfSpecAlias: (*vnfSpecAlias)(v)}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	node, err := decodeNodeId(wire.AssignedNode)
	if err != nil {
		return fmt.Errorf("vnf %s: %w", v.Name, err)
	}
	v.AssignedNode = node

	return nil
}

func encodeNodeId(node string) json.RawMessage {
	if node == UNASSIGNED {
		return json.RawMessage("-1")
	}
	if n, err := strconv.ParseInt(node, 10, 64); err == nil && n >= 0 && strconv.FormatInt(n, 10) == node {
		return json.RawMessage(node)
	}

	raw, _ := json.Marshal(node)
	return raw
}

func decodeNodeId(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return UNASSIGNED, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "-1" {
			return UNASSIGNED, nil
		}
		return s, nil
	}

	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("node id %s is neither a string nor an integer", string(raw))
	}
	if n < 0 {
		return UNASSIGNED, nil
	}

	return strconv.FormatInt(n, 10), nil
}

// Coordinates of a ground station, kept with five decimals.
type Coordinates struct {
	Latitude  string
	Longitude string
}

func NewCoordinates(latitude, longitude float64) Coordinates {
	return Coordinates{
		Latitude:  FormatCoordinate(latitude),
		Longitude: FormatCoordinate(longitude),
	}
}

func FormatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', 5, 64)
}

type NetworkService struct {
	Name        string      `json:"ns_name"`
	Description string      `json:"ns_description"`
	Source      Coordinates `json:"-"`
	Destination Coordinates `json:"-"`
	VNFs        []*VNFSpec  `json:"vnfs"`

	// Path is [start, one node per VNF in chain order, end] once placed.
	Path []string `json:"path"`
}

type networkServiceAlias NetworkService

type networkServiceWire struct {
	*networkServiceAlias
	SourceLatitude       string            `json:"source_latitude"`
	SourceLongitude      string            `json:"source_longitude"`
	DestinationLatitude  string            `json:"destination_latitude"`
	DestinationLongitude string            `json:"destination_longitude"`
	Path                 []json.RawMessage `json:"path"`
}

func (ns *NetworkService) MarshalJSON() ([]byte, error) {
	path := make([]json.RawMessage, 0, len(ns.Path))
	for _, node := range ns.Path {
		path = append(path, encodeNodeId(node))
	}

	return json.Marshal(networkServiceWire{
		networkServiceAlias:  (*networkServiceAlias)(ns),
		SourceLatitude:       ns.Source.Latitude,
		SourceLongitude:      ns.Source.Longitude,
		DestinationLatitude:  ns.Destination.Latitude,
		DestinationLongitude: ns.Destination.Longitude,
		Path:                 path,
	})
}

func (ns *NetworkService) UnmarshalJSON(data []byte) error {
	wire := networkServiceWire{networkServiceAlias: (*networkServiceAlias)(ns)}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	ns.Source = Coordinates{Latitude: wire.SourceLatitude, Longitude: wire.SourceLongitude}
	ns.Destination = Coordinates{Latitude: wire.DestinationLatitude, Longitude: wire.DestinationLongitude}

	ns.Path = make([]string, 0, len(wire.Path))
	for _, raw := range wire.Path {
		node, err := decodeNodeId(raw)
		if err != nil {
			return fmt.Errorf("ns %s path: %w", ns.Name, err)
		}
		ns.Path = append(ns.Path, node)
	}

	return nil
}
