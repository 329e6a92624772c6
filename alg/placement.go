package alg

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/amsen20/leovnf/internal/cache"
	"github.com/amsen20/leovnf/internal/config"
	"github.com/amsen20/leovnf/internal/model"
	"github.com/amsen20/leovnf/internal/policy"
	"github.com/amsen20/leovnf/statistics"
	"golang.org/x/sync/errgroup"
)

// Solver maps a VNF chain onto candidate paths. Each path is evaluated on its
// own overlay of the shared baseline cache, so evaluations never see each
// other's assignments.
type Solver struct {
	Params config.PlacementParams
	Cache  *cache.Cache

	// Workers bounds the number of paths evaluated at once.
	Workers int

	Tally *statistics.Tally
}

func NewSolver(params config.PlacementParams, baseline *cache.Cache) *Solver {
	return &Solver{
		Params:  params,
		Cache:   baseline,
		Workers: runtime.NumCPU(),
		Tally:   statistics.New(),
	}
}

type pathEvaluation struct {
	plan   *model.PlacementPlan
	report *model.Report
}

// Place picks the lowest scoring feasible plan over candidatePaths and writes
// it into ns. On ErrNotFound, ErrAborted or a configuration error ns is left
// untouched. The report lists every candidate considered either way.
func (s *Solver) Place(ctx context.Context, ns *model.NetworkService, candidatePaths [][]string) (*model.PlacementPlan, *model.Report, error) {
	report := model.NewReport()

	if err := ns.Validate(); err != nil {
		return nil, report, err
	}
	if len(candidatePaths) == 0 {
		record(report, s.Tally, model.ReportEntry{
			Subject: "ns " + ns.Name,
			Reason:  model.REJECT_UNREACHABLE,
			Detail:  "no candidate paths",
		})
		return nil, report, fmt.Errorf("%w: no candidate paths for %s", model.ErrNotFound, ns.Name)
	}

	evaluations := make([]pathEvaluation, len(candidatePaths))
	group, groupCtx := errgroup.WithContext(ctx)
	if s.Workers > 0 {
		group.SetLimit(s.Workers)
	}
	for ind, path := range candidatePaths {
		ind, path := ind, path
		group.Go(func() error {
			pathReport := model.NewReport()
			plan, err := s.evaluatePath(groupCtx, ns, ind, path, pathReport)
			evaluations[ind] = pathEvaluation{plan: plan, report: pathReport}

			return err
		})
	}
	err := group.Wait()

	// reports are merged in discovery order whatever order paths finished in
	for _, evaluation := range evaluations {
		report.Merge(evaluation.report)
	}

	if ctx.Err() != nil {
		return nil, report, fmt.Errorf("%w: placement of %s: %v", model.ErrAborted, ns.Name, ctx.Err())
	}
	if err != nil {
		log.Err(err).Send()

		return nil, report, err
	}

	var feasible []*candidate[*model.PlacementPlan]
	emptyPaths := 0
	for ind, evaluation := range evaluations {
		if len(candidatePaths[ind]) == 0 {
			emptyPaths++
		}
		if evaluation.plan != nil {
			feasible = append(feasible, &candidate[*model.PlacementPlan]{
				index:  ind,
				score:  evaluation.plan.Score,
				object: evaluation.plan,
			})
		}
	}
	if emptyPaths == len(candidatePaths) {
		return nil, report, fmt.Errorf("%w: every candidate path of %s is empty", model.ErrConfig, ns.Name)
	}
	if len(feasible) == 0 {
		return nil, report, fmt.Errorf("%w: no feasible path for %s among %d candidates", model.ErrNotFound, ns.Name, len(candidatePaths))
	}

	ranked := rankCandidates(feasible)
	best := ranked[0]
	for _, cand := range ranked {
		entry := model.ReportEntry{
			Subject: pathSubject(cand.index, cand.object.Path),
			Reason:  model.ACCEPTED,
			Score:   cand.score,
		}
		if cand != best {
			entry.Reason = model.REJECT_SCORE
			entry.Detail = fmt.Sprintf("path %d scored %.4f", best.index, best.score)
		}
		record(report, s.Tally, entry)
	}

	if err := ns.ApplyPlacement(best.object); err != nil {
		return nil, report, err
	}

	log.Info().Msgf(
		"placed %s on path %d with score %.4f, deployment path %v",
		ns.Name, best.index, best.score, ns.Path,
	)

	return best.object, report, nil
}

// evaluatePath greedily assigns the chain along one path. A nil plan with a
// nil error means the path is infeasible.
func (s *Solver) evaluatePath(ctx context.Context, ns *model.NetworkService, ind int, path []string, report *model.Report) (*model.PlacementPlan, error) {
	subject := pathSubject(ind, path)
	if len(path) == 0 {
		record(report, s.Tally, model.ReportEntry{Subject: subject, Reason: model.REJECT_UNREACHABLE, Detail: "empty path"})
		return nil, nil
	}

	overlay := cache.NewOverlay(s.Cache)
	plan := &model.PlacementPlan{
		Path:       append([]string(nil), path...),
		Assignment: make(map[string]string),
	}
	used := make(map[string]bool)

	cursor := 0
	for _, vnf := range ns.VNFs {
		demand := vnf.Demand()

		placed := false
		lastReason := model.REJECT_UNREACHABLE
		for i := cursor; i < len(path); i++ {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: %v", model.ErrAborted, err)
			}

			node := path[i]
			snapshot, err := overlay.Resolve(ctx, node)
			if err != nil {
				lastReason = model.REJECT_UNKNOWN
				record(report, s.Tally, model.ReportEntry{
					Subject: subject, Node: node, VNF: vnf.Name,
					Reason: model.REJECT_UNKNOWN, Detail: err.Error(),
				})
				continue
			}

			verdict, err := policy.Check(snapshot, demand, s.Params.Limit)
			if err != nil {
				return nil, fmt.Errorf("node %s: %w", node, err)
			}
			if !verdict.Fits {
				lastReason = verdict.Reason
				record(report, s.Tally, model.ReportEntry{
					Subject: subject, Node: node, VNF: vnf.Name,
					Reason: verdict.Reason, Detail: verdict.Detail,
				})
				continue
			}

			overlay.Commit(node, demand)
			plan.Assignment[vnf.Name] = node
			plan.AssignmentOrder = append(plan.AssignmentOrder, vnf.Name)
			plan.PathIndices = append(plan.PathIndices, i)
			plan.Consumption = plan.Consumption.Add(demand)
			if !used[node] {
				used[node] = true
				plan.UsedNodes = append(plan.UsedNodes, node)
			}

			// the next VNF may share this node
			cursor = i
			placed = true
			break
		}

		if !placed {
			record(report, s.Tally, model.ReportEntry{
				Subject: subject, VNF: vnf.Name, Reason: lastReason,
				Detail: fmt.Sprintf("no node from index %d on fits vnf %s", cursor, vnf.Name),
			})
			return nil, nil
		}
	}

	if err := s.scorePlan(ctx, plan); err != nil {
		return nil, err
	}

	log.Debug().Msgf("%s is feasible, score %.4f, assignment %v", subject, plan.Score, plan.Assignment)

	return plan, nil
}

// scorePlan scores the plan over the nodes it uses: their baseline used_now
// plus everything the plan consumes, against their totals.
func (s *Solver) scorePlan(ctx context.Context, plan *model.PlacementPlan) error {
	usage := plan.Consumption
	totals := model.ResourceVector{}
	for _, node := range plan.UsedNodes {
		snapshot, err := s.Cache.Get(ctx, node)
		if err != nil {
			return fmt.Errorf("baseline of used node %s vanished: %w", node, err)
		}
		usage = usage.Add(snapshot.UsedNow)
		totals = totals.Add(snapshot.Total)
	}

	score, ratios, err := policy.Score(usage, totals, s.Params.Weights)
	if err != nil {
		return err
	}
	plan.Score = score
	plan.Ratios = ratios

	return nil
}

func pathSubject(ind int, path []string) string {
	return fmt.Sprintf("path %d %v", ind, path)
}

// IsAborted reports whether err means the pass ran out of time.
func IsAborted(err error) bool {
	return errors.Is(err, model.ErrAborted) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
