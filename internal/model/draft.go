package model

import "fmt"

// NSDraft is what an operator enters for a new network service. Coordinates
// are plain degrees; Build formats them with five decimals.
type NSDraft struct {
	Description          string     `json:"ns_description" yaml:"description"`
	SourceLatitude       float64    `json:"source_latitude" yaml:"source_latitude"`
	SourceLongitude      float64    `json:"source_longitude" yaml:"source_longitude"`
	DestinationLatitude  float64    `json:"destination_latitude" yaml:"destination_latitude"`
	DestinationLongitude float64    `json:"destination_longitude" yaml:"destination_longitude"`
	VNFs                 []VNFDraft `json:"vnfs" yaml:"vnfs"`
}

type VNFDraft struct {
	Name         string `json:"vnf_name" yaml:"name"`
	CPU          int64  `json:"cpu" yaml:"cpu"`
	MemoryGiB    int64  `json:"memory" yaml:"memory"`
	StorageGB    int64  `json:"storage" yaml:"storage"`
	MinInstances int    `json:"min_vm" yaml:"min_vm"`
	MaxInstances int    `json:"max_vm" yaml:"max_vm"`
	Image        string `json:"image,omitempty" yaml:"image,omitempty"`
}

// Build turns the draft into an unplaced network service: ids follow chain
// order from 1, every VNF is unassigned and the path is empty. Instance
// bounds default to one.
func (d *NSDraft) Build(name string) (*NetworkService, error) {
	if err := checkCoordinates(d.SourceLatitude, d.SourceLongitude); err != nil {
		return nil, fmt.Errorf("source of %s: %w", name, err)
	}
	if err := checkCoordinates(d.DestinationLatitude, d.DestinationLongitude); err != nil {
		return nil, fmt.Errorf("destination of %s: %w", name, err)
	}

	ns := &NetworkService{
		Name:        name,
		Description: d.Description,
		Source:      NewCoordinates(d.SourceLatitude, d.SourceLongitude),
		Destination: NewCoordinates(d.DestinationLatitude, d.DestinationLongitude),
		Path:        []string{},
	}

	for ind, vnf := range d.VNFs {
		minInstances, maxInstances := vnf.MinInstances, vnf.MaxInstances
		if minInstances == 0 {
			minInstances = 1
		}
		if maxInstances == 0 {
			maxInstances = minInstances
		}
		if minInstances < 0 || maxInstances < minInstances {
			return nil, fmt.Errorf("%w: vnf %s has instance bounds %d..%d", ErrConfig, vnf.Name, minInstances, maxInstances)
		}

		ns.VNFs = append(ns.VNFs, &VNFSpec{
			Name:         vnf.Name,
			Id:           ind + 1,
			CPU:          vnf.CPU,
			MemoryGiB:    vnf.MemoryGiB,
			StorageGB:    vnf.StorageGB,
			MinInstances: minInstances,
			MaxInstances: maxInstances,
			Image:        vnf.Image,
			AssignedNode: UNASSIGNED,
		})
	}

	if err := ns.Validate(); err != nil {
		return nil, err
	}

	return ns, nil
}

func checkCoordinates(latitude, longitude float64) error {
	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return fmt.Errorf("%w: coordinates (%v, %v) are out of range", ErrConfig, latitude, longitude)
	}

	return nil
}
