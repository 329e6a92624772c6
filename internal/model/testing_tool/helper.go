package testing_tool

import (
	"fmt"

	"github.com/amsen20/leovnf/internal/model"
)

// Expect panics unless every VNF of got sits on the node want names for it
// and got's deployment path is wantPath.
func Expect(got *model.NetworkService, want map[string]string, wantPath []string) {
	if len(got.VNFs) != len(want) {
		panic(fmt.Errorf("got %d vnfs, wanted %d", len(got.VNFs), len(want)))
	}

	for _, vnf := range got.VNFs {
		wantNode, ok := want[vnf.Name]
		if !ok {
			panic(fmt.Errorf("expected no vnf %s in got, but it was", vnf.Name))
		}
		if vnf.AssignedNode != wantNode {
			panic(fmt.Errorf("vnf %s is on %s, wanted %s", vnf.Name, vnf.AssignedNode, wantNode))
		}
	}

	if len(got.Path) != len(wantPath) {
		panic(fmt.Errorf("got path %v, wanted %v", got.Path, wantPath))
	}
	for i := range wantPath {
		if got.Path[i] != wantPath[i] {
			panic(fmt.Errorf("got path %v, wanted %v", got.Path, wantPath))
		}
	}
}

// ExpectForward panics if the plan assigns a VNF to an earlier path position
// than the VNF before it.
func ExpectForward(plan *model.PlacementPlan) {
	for i := 1; i < len(plan.PathIndices); i++ {
		if plan.PathIndices[i] < plan.PathIndices[i-1] {
			panic(fmt.Errorf("path indices %v move backward at %d", plan.PathIndices, i))
		}
	}
}
