package connector

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/amsen20/leovnf/internal/model"
	"github.com/amsen20/leovnf/internal/utils"
)

// This provider is implemented for
// testing and demo purposes, it makes up
// a consistent snapshot for any node id.
// The same node and seed always give the
// same snapshot.
type SimulatedResourceProvider struct {
	Seed int64
}

func NewSimulatedResourceProvider(seed int64) *SimulatedResourceProvider {
	return &SimulatedResourceProvider{Seed: seed}
}

func (s *SimulatedResourceProvider) Query(ctx context.Context, node string) (model.ResourceSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.ResourceSnapshot{}, fmt.Errorf("%w: %v", ErrUnknown, err)
	}

	r := rand.New(rand.NewSource(s.Seed + int64(utils.Hash(node))))

	cpus := []int64{4, 8, 16, 32}
	memPerCpu := []int64{2048, 4096}

	total := model.ResourceVector{CPU: cpus[r.Intn(len(cpus))]}
	total.MemoryMB = total.CPU * memPerCpu[r.Intn(len(memPerCpu))]
	total.DiskGB = 100 + r.Int63n(401)

	usedNow := model.ResourceVector{
		CPU:      r.Int63n(total.CPU + 1),
		MemoryMB: r.Int63n(total.MemoryMB + 1),
		DiskGB:   r.Int63n(total.DiskGB + 1),
	}
	usedMax := model.ResourceVector{
		CPU:      usedNow.CPU + r.Int63n(total.CPU-usedNow.CPU+1),
		MemoryMB: usedNow.MemoryMB + r.Int63n(total.MemoryMB-usedNow.MemoryMB+1),
		DiskGB:   usedNow.DiskGB + r.Int63n(total.DiskGB-usedNow.DiskGB+1),
	}

	return model.ResourceSnapshot{
		Hostname: fmt.Sprintf("openstackcompute%s", node),
		Total:    total,
		UsedNow:  usedNow,
		UsedMax:  usedMax,
	}, nil
}

// FallbackResourceProvider sends known node ids to the primary provider and
// simulates everything else, or rejects it when Simulated is nil. Whether
// unknown ids are simulated is the integrator's call (resource.simulate_unknown).
type FallbackResourceProvider struct {
	Primary   ResourceProvider
	Simulated ResourceProvider
	known     map[string]bool
}

func NewFallbackResourceProvider(primary ResourceProvider, simulated ResourceProvider, knownNodes []string) *FallbackResourceProvider {
	known := make(map[string]bool)
	for _, node := range knownNodes {
		known[node] = true
	}

	return &FallbackResourceProvider{
		Primary:   primary,
		Simulated: simulated,
		known:     known,
	}
}

func (f *FallbackResourceProvider) Query(ctx context.Context, node string) (model.ResourceSnapshot, error) {
	if f.known[node] {
		return f.Primary.Query(ctx, node)
	}

	if f.Simulated == nil {
		return model.ResourceSnapshot{}, fmt.Errorf("%w: node %s is not in the known host list", ErrUnknown, node)
	}

	log.Warn().Msgf("node %s is not in the known host list, using simulated data", node)
	return f.Simulated.Query(ctx, node)
}
