package model

import (
	"fmt"
)

func (ns *NetworkService) Clone() *NetworkService {
	ret := &NetworkService{
		Name:        ns.Name,
		Description: ns.Description,
		Source:      ns.Source,
		Destination: ns.Destination,
		Path:        append([]string(nil), ns.Path...),
	}

	for _, vnf := range ns.VNFs {
		vnfCopy := *vnf
		ret.VNFs = append(ret.VNFs, &vnfCopy)
	}

	return ret
}

func (ns *NetworkService) FindVNF(name string) (*VNFSpec, bool) {
	for _, vnf := range ns.VNFs {
		if vnf.Name == name {
			return vnf, true
		}
	}

	return nil, false
}

// IsPlaced reports whether the NS carries a complete deployment path.
func (ns *NetworkService) IsPlaced() bool {
	return len(ns.Path) == len(ns.VNFs)+2
}

// Validate checks the chain is well formed: ids follow chain order starting at
// 1, names are unique and demands are non-negative.
func (ns *NetworkService) Validate() error {
	if ns.Name == "" {
		return fmt.Errorf("%w: network service has no name", ErrConfig)
	}
	if len(ns.VNFs) == 0 {
		return fmt.Errorf("%w: network service %s has an empty vnf chain", ErrConfig, ns.Name)
	}

	names := make(map[string]bool)
	for ind, vnf := range ns.VNFs {
		if vnf == nil {
			return fmt.Errorf("%w: network service %s has a missing chain entry at %d", ErrConfig, ns.Name, ind)
		}
		if names[vnf.Name] {
			return fmt.Errorf("%w: vnf name %s is used twice in %s", ErrConfig, vnf.Name, ns.Name)
		}
		names[vnf.Name] = true

		if vnf.Id != ind+1 {
			return fmt.Errorf("%w: vnf %s has id %d but sits at chain position %d", ErrConfig, vnf.Name, vnf.Id, ind+1)
		}
		if vnf.CPU < 0 || vnf.MemoryGiB < 0 || vnf.StorageGB < 0 {
			return fmt.Errorf("%w: vnf %s has a negative resource demand", ErrConfig, vnf.Name)
		}
	}

	if len(ns.Path) != 0 && !ns.IsPlaced() {
		return fmt.Errorf(
			"%w: network service %s has a path of length %d, want %d",
			ErrConfig, ns.Name, len(ns.Path), len(ns.VNFs)+2,
		)
	}

	return nil
}

// ApplyPlacement writes the plan's assignment and deployment path into the NS.
// Either every VNF gets its node or nothing is changed.
func (ns *NetworkService) ApplyPlacement(plan *PlacementPlan) error {
	if len(plan.Path) == 0 {
		return fmt.Errorf("%w: placement plan has an empty path", ErrConfig)
	}

	path := make([]string, 0, len(ns.VNFs)+2)
	path = append(path, plan.Path[0])
	for _, vnf := range ns.VNFs {
		node, ok := plan.Assignment[vnf.Name]
		if !ok {
			return fmt.Errorf("%w: placement plan does not cover vnf %s", ErrConfig, vnf.Name)
		}
		path = append(path, node)
	}
	path = append(path, plan.Path[len(plan.Path)-1])

	for _, vnf := range ns.VNFs {
		vnf.AssignedNode = plan.Assignment[vnf.Name]
	}
	ns.Path = path

	return nil
}

// ApplyMigration moves one VNF to the decision's target, updating the matching
// deployment path entry.
func (ns *NetworkService) ApplyMigration(decision *MigrationDecision) error {
	vnf, ok := ns.FindVNF(decision.VNF)
	if !ok {
		return fmt.Errorf("%w: network service %s has no vnf %s", ErrConfig, ns.Name, decision.VNF)
	}
	if !ns.IsPlaced() {
		return fmt.Errorf("%w: network service %s is not placed", ErrConfig, ns.Name)
	}

	vnf.AssignedNode = decision.Target
	ns.Path[vnf.Id] = decision.Target

	return nil
}
