// Package policy decides whether a node can host a VNF without breaching the
// configured utilization ceilings, and scores completed plans by weighted
// post-assignment utilization. Lower scores are better: selection favours
// leaving headroom over packing nodes.
package policy

import (
	"fmt"

	"github.com/amsen20/leovnf/internal/config"
	"github.com/amsen20/leovnf/internal/model"
	"github.com/amsen20/leovnf/internal/utils"
	"gonum.org/v1/gonum/mat"
)

var dimensionNames = [model.RESOURCE_COUNT]string{"cpu", "mem", "disk"}

type Verdict struct {
	Fits      bool
	Reason    model.Reason
	Ratios    model.Ratios
	Available model.ResourceVector
	Detail    string
}

// Check evaluates demand against one node snapshot. Capacity is tested first
// (available = total - used_now must cover demand in every dimension), then
// the post-assignment ratios (used_now + demand) / total against limits. A ratio
// equal to its limit is accepted.
func Check(snapshot model.ResourceSnapshot, demand model.ResourceVector, limits config.Limits) (Verdict, error) {
	total := snapshot.Total.ToVec()
	usedNow := snapshot.UsedNow.ToVec()
	demandVec := demand.ToVec()

	if err := checkTotals(total); err != nil {
		return Verdict{}, err
	}

	available := snapshot.Available()
	verdict := Verdict{
		Reason:    model.ACCEPTED,
		Available: available,
	}

	// negative availability (used_now > total) can never fit
	if ind := utils.FirstGreater(demandVec, available.ToVec()); ind >= 0 {
		verdict.Reason = model.REJECT_CAPACITY
		verdict.Detail = fmt.Sprintf(
			"%s available %v < demand %v",
			dimensionNames[ind], available.ToVec().AtVec(ind), demandVec.AtVec(ind),
		)
		return verdict, nil
	}

	ratios, err := utils.DivElemVec(utils.AddVec(usedNow, demandVec), total)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", model.ErrConfig, err)
	}
	verdict.Ratios = toRatios(ratios)

	if ind := utils.FirstGreater(ratios, limitsVec(limits)); ind >= 0 {
		verdict.Reason = model.REJECT_CEILING
		verdict.Detail = fmt.Sprintf(
			"%s utilization %.4f exceeds ceiling %.4f",
			dimensionNames[ind], ratios.AtVec(ind), limitsVec(limits).AtVec(ind),
		)
		return verdict, nil
	}

	verdict.Fits = true
	return verdict, nil
}

func Fits(snapshot model.ResourceSnapshot, demand model.ResourceVector, limits config.Limits) (bool, error) {
	verdict, err := Check(snapshot, demand, limits)
	if err != nil {
		return false, err
	}

	return verdict.Fits, nil
}

// Ratios returns usage / totals per dimension.
func Ratios(usage model.ResourceVector, totals model.ResourceVector) (model.Ratios, error) {
	total := totals.ToVec()
	if err := checkTotals(total); err != nil {
		return model.Ratios{}, err
	}

	ratios, err := utils.DivElemVec(usage.ToVec(), total)
	if err != nil {
		return model.Ratios{}, fmt.Errorf("%w: %v", model.ErrConfig, err)
	}

	return toRatios(ratios), nil
}

// Score is the weighted sum of usage / totals over cpu, mem and disk.
func Score(usage model.ResourceVector, totals model.ResourceVector, weights config.Weights) (float64, model.Ratios, error) {
	ratios, err := Ratios(usage, totals)
	if err != nil {
		return 0, model.Ratios{}, err
	}

	return WeightedSum(ratios, weights), ratios, nil
}

func WeightedSum(ratios model.Ratios, weights config.Weights) float64 {
	return mat.Dot(
		mat.NewVecDense(model.RESOURCE_COUNT, ratios.Slice()),
		mat.NewVecDense(model.RESOURCE_COUNT, weights.Slice()),
	)
}

func checkTotals(total *mat.VecDense) error {
	for i := 0; i < total.Len(); i++ {
		if total.AtVec(i) <= 0 {
			return fmt.Errorf("%w: %s total is %v", model.ErrConfig, dimensionNames[i], total.AtVec(i))
		}
	}

	return nil
}

func limitsVec(limits config.Limits) *mat.VecDense {
	return mat.NewVecDense(model.RESOURCE_COUNT, limits.Slice())
}

func toRatios(v *mat.VecDense) model.Ratios {
	return model.Ratios{
		CPU:  v.AtVec(model.CPU),
		Mem:  v.AtVec(model.MEMORY),
		Disk: v.AtVec(model.DISK),
	}
}
